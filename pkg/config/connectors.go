package config

import (
	"strings"

	"github.com/ajitpratap0/iotcore/pkg/errors"
)

// Option keys understood by the IoT Core connector. They mirror the foreign
// server and table options a host passes in.
const (
	OptionURL        = "url"
	OptionDataURL    = "data_url"
	OptionRegion     = "region"
	OptionAccessKey  = "aws_access_key"
	OptionSecretKey  = "aws_secret_key"
	OptionTableType  = "table_type"
	OptionShadowName = "shadow_name"
)

// DefaultTableType is used when no table_type option is given.
const DefaultTableType = "thing"

// IoTCoreOptions contains the settings needed to reach the device registry.
type IoTCoreOptions struct {
	// Endpoint optionally overrides the registry (control plane) URL
	Endpoint string `yaml:"url" json:"url"`
	// DataEndpoint optionally overrides the shadow (data plane) URL; defaults to Endpoint
	DataEndpoint string `yaml:"data_url" json:"data_url"`
	Region       string `yaml:"region" json:"region"`
	AccessKey    string `yaml:"aws_access_key" json:"aws_access_key"`
	SecretKey    string `yaml:"aws_secret_key" json:"aws_secret_key"`
	// TableType selects thing, thing-type or thing-group
	TableType string `yaml:"table_type" json:"table_type"`
	// ShadowName selects a named shadow instead of the classic one
	ShadowName string `yaml:"shadow_name" json:"shadow_name"`
}

// IoTCoreOptionsFromMap reads connector options from a host-supplied option map.
func IoTCoreOptionsFromMap(options map[string]string) IoTCoreOptions {
	opts := IoTCoreOptions{
		Endpoint:     options[OptionURL],
		DataEndpoint: options[OptionDataURL],
		Region:       options[OptionRegion],
		AccessKey:    options[OptionAccessKey],
		SecretKey:    options[OptionSecretKey],
		TableType:    strings.ToLower(strings.TrimSpace(options[OptionTableType])),
		ShadowName:   options[OptionShadowName],
	}
	if opts.TableType == "" {
		opts.TableType = DefaultTableType
	}
	if opts.DataEndpoint == "" {
		opts.DataEndpoint = opts.Endpoint
	}
	return opts
}

// IoTCoreOptionsFromConfig reads connector options from BaseConfig.Security.Credentials.
func IoTCoreOptionsFromConfig(cfg *BaseConfig) IoTCoreOptions {
	if cfg == nil {
		return IoTCoreOptionsFromMap(nil)
	}
	return IoTCoreOptionsFromMap(cfg.Security.Credentials)
}

// Validate reports a configuration error for a missing region or credential.
func (o IoTCoreOptions) Validate() error {
	if o.Region == "" {
		return errors.New(errors.ErrorTypeConfig, "please set the AWS region").
			WithDetail("option", OptionRegion)
	}
	if o.AccessKey == "" {
		return errors.New(errors.ErrorTypeConfig, "please set the AWS access key").
			WithDetail("option", OptionAccessKey)
	}
	if o.SecretKey == "" {
		return errors.New(errors.ErrorTypeConfig, "please set the AWS secret key").
			WithDetail("option", OptionSecretKey)
	}
	return nil
}

// ToMap converts the options back into a host option map.
func (o IoTCoreOptions) ToMap() map[string]string {
	m := map[string]string{
		OptionRegion:    o.Region,
		OptionAccessKey: o.AccessKey,
		OptionSecretKey: o.SecretKey,
		OptionTableType: o.TableType,
	}
	if o.Endpoint != "" {
		m[OptionURL] = o.Endpoint
	}
	if o.DataEndpoint != "" && o.DataEndpoint != o.Endpoint {
		m[OptionDataURL] = o.DataEndpoint
	}
	if o.ShadowName != "" {
		m[OptionShadowName] = o.ShadowName
	}
	return m
}

// ExportConfig configures where the export command writes scanned rows.
type ExportConfig struct {
	// Target is "-" for stdout, a local path, or s3://bucket/key
	Target string `yaml:"target" json:"target"`
	// Compression is none, gzip, lz4 or zstd
	Compression string `yaml:"compression" json:"compression"`
	// Region for the S3 target; defaults to the connector region
	Region string `yaml:"region" json:"region"`
	// Endpoint optionally overrides the S3 endpoint
	Endpoint string `yaml:"endpoint" json:"endpoint"`
	// PathStyle addresses buckets as endpoint/bucket/key
	PathStyle bool `yaml:"path_style" json:"path_style"`
}
