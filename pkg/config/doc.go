// Package config provides configuration management for the IoT Core connector.
//
// # Key Features
//
// - BaseConfig: one configuration structure for the connector, CLI and export sinks
// - IoTCoreOptions: the host option map (url, region, aws_access_key, aws_secret_key,
//   table_type) with validation
// - Environment variable substitution with ${VAR_NAME} syntax
//
// # Usage
//
//	var cfg config.BaseConfig
//	if err := config.Load("iotcore.yaml", &cfg); err != nil {
//		log.Fatal(err)
//	}
//	opts := config.IoTCoreOptionsFromConfig(&cfg)
//	if err := opts.Validate(); err != nil {
//		log.Fatal(err)
//	}
//
// ## Environment Variable Substitution
//
//	security:
//	  credentials:
//	    region: eu-central-1
//	    aws_access_key: ${AWS_ACCESS_KEY_ID}
//	    aws_secret_key: ${AWS_SECRET_ACCESS_KEY}
//	    table_type: thing
package config
