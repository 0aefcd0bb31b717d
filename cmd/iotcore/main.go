package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ajitpratap0/iotcore/pkg/config"
	"github.com/ajitpratap0/iotcore/pkg/connector/core"
	"github.com/ajitpratap0/iotcore/pkg/connector/registry"
	"github.com/ajitpratap0/iotcore/pkg/logger"
	"github.com/ajitpratap0/iotcore/pkg/metrics"
	"github.com/ajitpratap0/iotcore/pkg/observability"

	// Register the connector
	"github.com/ajitpratap0/iotcore/pkg/connector/sources/iotcore"
)

var version = "0.1.0"

// fileConfig is the layout of the --config YAML file
type fileConfig struct {
	Connector config.BaseConfig   `yaml:"connector"`
	Export    config.ExportConfig `yaml:"export"`
}

// optionKeys are the connector options settable by flag or IOTCORE_* variable
var optionKeys = []string{
	config.OptionURL,
	config.OptionDataURL,
	config.OptionRegion,
	config.OptionAccessKey,
	config.OptionSecretKey,
	config.OptionTableType,
	config.OptionShadowName,
}

// app carries state shared by the subcommands of one invocation
type app struct {
	v    *viper.Viper
	out  io.Writer
	file fileConfig
	log  *zap.Logger
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdout).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	a := &app{v: viper.New(), out: out}
	a.v.SetEnvPrefix("IOTCORE")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	root := &cobra.Command{
		Use:   "iotcore",
		Short: "Query and manage the AWS IoT Core device registry as tables",
		Long: `iotcore exposes things, thing types and thing groups of the AWS IoT Core
device registry as tables. Scans push equality and prefix filters down to the
registry, page through results and enrich thing rows with group membership and
shadow documents when those columns are requested.`,
		SilenceUsage:      true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error { return a.setup(cmd) },
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return a.teardown(cmd.Context())
		},
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "YAML configuration file (connector and export sections)")
	flags.String("log-level", "warn", "Log level (debug, info, warn, error)")
	flags.String("log-format", "console", "Log encoding (json, console)")
	flags.Bool("trace", false, "Write OpenTelemetry spans to stderr")
	flags.String("pushgateway", "", "Prometheus Pushgateway URL to push metrics to on exit")
	flags.String("url", "", "Registry endpoint override")
	flags.String("data-url", "", "Shadow endpoint override (defaults to --url)")
	flags.String("region", "", "AWS region")
	flags.String("aws-access-key", "", "AWS access key")
	flags.String("aws-secret-key", "", "AWS secret key")
	flags.StringP("table-type", "t", "", "thing, thing-type or thing-group")
	flags.String("shadow-name", "", "Named shadow to read and write")
	_ = a.v.BindPFlags(flags)

	root.AddCommand(
		a.versionCmd(),
		a.tablesCmd(),
		a.scanCmd(),
		a.insertCmd(),
		a.updateCmd(),
		a.deleteCmd(),
		a.exportCmd(),
		a.healthCmd(),
	)
	return root
}

func (a *app) setup(_ *cobra.Command) error {
	if path := a.v.GetString("config"); path != "" {
		if err := config.Load(path, &a.file); err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}
	}

	level := a.v.GetString("log-level")
	if !a.v.IsSet("log-level") && a.file.Connector.Observability.LogLevel != "" {
		level = a.file.Connector.Observability.LogLevel
	}
	if err := logger.Init(logger.Config{Level: level, Encoding: a.v.GetString("log-format")}); err != nil {
		return err
	}
	a.log = logger.Get().With(zap.String("component", "iotcore-cli"))

	if a.v.GetBool("trace") || a.file.Connector.Observability.EnableTracing {
		tcfg := observability.DefaultTracingConfig()
		tcfg.ServiceVersion = version
		if rate := a.file.Connector.Observability.TracingSampleRate; rate > 0 {
			tcfg.SamplingRate = rate
		}
		if err := observability.InitTracing(tcfg); err != nil {
			return fmt.Errorf("failed to initialize tracing: %w", err)
		}
	}
	return nil
}

func (a *app) teardown(ctx context.Context) error {
	if err := observability.Shutdown(context.WithoutCancel(ctx)); err != nil {
		a.log.Warn("failed to flush traces", zap.Error(err))
	}
	if url := a.v.GetString("pushgateway"); url != "" {
		if err := metrics.Push(url, "iotcore"); err != nil {
			a.log.Warn("failed to push metrics", zap.String("url", url), zap.Error(err))
		}
	}
	_ = logger.Sync()
	return nil
}

// connectorConfig merges the config file with flags and environment variables.
func (a *app) connectorConfig() *config.BaseConfig {
	cfg := config.NewBaseConfig("iotcore-cli", iotcore.ConnectorName)
	if a.file.Connector.Type != "" || len(a.file.Connector.Security.Credentials) > 0 {
		file := a.file.Connector
		cfg.Name = firstNonEmpty(file.Name, cfg.Name)
		if file.Timeouts.Request > 0 {
			cfg.Timeouts.Request = file.Timeouts.Request
		}
		if file.Timeouts.Connection > 0 {
			cfg.Timeouts.Connection = file.Timeouts.Connection
		}
		for k, v := range file.Security.Credentials {
			cfg.Security.Credentials[k] = v
		}
	}

	for _, key := range optionKeys {
		flag := strings.ReplaceAll(key, "_", "-")
		if v := a.v.GetString(flag); v != "" {
			cfg.Security.Credentials[key] = v
		}
	}
	return cfg
}

// open creates the connector through the registry.
func (a *app) open() (core.Table, error) {
	cfg := a.connectorConfig()
	table, err := registry.CreateTable(iotcore.ConnectorName, cfg)
	if err != nil {
		return nil, err
	}
	a.log.Debug("connector opened",
		zap.String("table_type", table.Kind().String()),
		zap.String("region", cfg.Security.Option(config.OptionRegion)))
	return table, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
