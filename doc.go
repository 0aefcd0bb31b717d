// Package iotcore exposes the AWS IoT Core device registry as a set of
// queryable and updatable tables.
//
// Things, thing types and thing groups each become a table. A scan translates
// the host's predicates and wanted columns into registry list calls: equality
// and literal-prefix filters are pushed down to the service, pages of at most
// 250 items are fetched lazily, and thing rows are enriched with group
// membership and shadow documents only when those columns are requested.
// Things can be created, deleted and have their shadow replaced.
//
// # Quick Start
//
//	import (
//	    "github.com/ajitpratap0/iotcore/pkg/config"
//	    "github.com/ajitpratap0/iotcore/pkg/connector/core"
//	    "github.com/ajitpratap0/iotcore/pkg/connector/registry"
//	    _ "github.com/ajitpratap0/iotcore/pkg/connector/sources/iotcore"
//	)
//
//	cfg := config.NewBaseConfig("things", "iotcore")
//	cfg.Security.Credentials["region"] = "eu-central-1"
//	cfg.Security.Credentials["aws_access_key"] = os.Getenv("AWS_ACCESS_KEY_ID")
//	cfg.Security.Credentials["aws_secret_key"] = os.Getenv("AWS_SECRET_ACCESS_KEY")
//	cfg.Security.Credentials["table_type"] = "thing"
//
//	table, err := registry.CreateTable("iotcore", cfg)
//	if err != nil {
//	    return err
//	}
//	defer table.Close(ctx)
//
//	it, err := table.Execute(ctx, []core.Qual{{
//	    Field: "thing_type_name", Operator: core.OperatorEqual, Value: "gateway",
//	}}, []string{"thing_name", "thing_groups"})
//	if err != nil {
//	    return err
//	}
//	rows, err := core.Collect(ctx, it)
//
// # Package Structure
//
//	cmd/iotcore                    - CLI: scan, export, insert, update, delete
//	pkg/connector/core             - Table, RowIterator, Qual and schema types
//	pkg/connector/base             - BaseConnector: logging, metrics, tracing, health
//	pkg/connector/registry         - Table factories and connector catalog
//	pkg/connector/sources/iotcore  - The device registry connector
//	pkg/iot                        - Registry and shadow clients
//	pkg/export                     - JSON lines sinks for stdout, files and S3
//	pkg/compression                - gzip, lz4 and zstd stream writers
//	pkg/config                     - BaseConfig, connector options, YAML loading
//	pkg/errors                     - Structured errors
//	pkg/logger                     - Structured logging
//	pkg/metrics                    - Prometheus metrics
//	pkg/observability              - OpenTelemetry tracing
//
// # Configuration
//
// Connector options live in BaseConfig.Security.Credentials, keyed like the
// host's table options: url, data_url, region, aws_access_key, aws_secret_key,
// table_type and shadow_name. The CLI additionally accepts them as flags and
// IOTCORE_* environment variables, and YAML files support ${VAR_NAME}
// substitution.
package iotcore
