// Package config provides the unified configuration system for the connector.
// It defines a single BaseConfig structure shared by the connector, the CLI and
// the export sinks.
//
// The configuration is organized into logical sections:
//   - Timeouts: HTTP client timeouts applied to backend clients
//   - Security: credentials and the connector options map
//   - Observability: metrics, tracing, logging
//
// Example usage:
//
//	cfg := config.NewBaseConfig("devices", "iotcore")
//	cfg.Security.Credentials["region"] = "eu-central-1"
//
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
package config

import (
	"fmt"
	"time"
)

// BaseConfig is the single configuration structure the connector uses.
type BaseConfig struct {
	// Name identifies the foreign table or connector instance
	Name string `yaml:"name" json:"name"`
	// Type specifies the connector type (always "iotcore" today)
	Type string `yaml:"type" json:"type"`
	// Version indicates the configuration version
	Version string `yaml:"version" json:"version"`

	// Timeouts define HTTP client timeouts
	Timeouts TimeoutConfig `yaml:"timeouts" json:"timeouts"`

	// Security holds credentials and connector options
	Security SecurityConfig `yaml:"security" json:"security"`

	// Observability settings for monitoring and debugging
	Observability ObservabilityConfig `yaml:"observability" json:"observability"`
}

// TimeoutConfig contains all timeout-related settings.
// They configure the underlying network clients; the connector itself adds no deadlines.
type TimeoutConfig struct {
	// Request timeout for individual backend calls (0 = none)
	Request time.Duration `yaml:"request" json:"request"`
	// Connection timeout for establishing connections
	Connection time.Duration `yaml:"connection" json:"connection"`
}

// SecurityConfig contains security and authentication settings.
type SecurityConfig struct {
	// Credentials stores the connector options map (region, keys, table_type, ...)
	Credentials map[string]string `yaml:"credentials" json:"credentials"`
}

// ObservabilityConfig contains monitoring and observability settings.
type ObservabilityConfig struct {
	// EnableMetrics activates prometheus metrics collection
	EnableMetrics bool `yaml:"enable_metrics" json:"enable_metrics"`
	// EnableTracing activates OpenTelemetry tracing
	EnableTracing bool `yaml:"enable_tracing" json:"enable_tracing"`
	// LogLevel sets logging verbosity (debug, info, warn, error)
	LogLevel string `yaml:"log_level" json:"log_level"`
	// LogFormat selects json or console encoding
	LogFormat string `yaml:"log_format" json:"log_format"`
	// TracingSampleRate controls trace sampling (0.0-1.0)
	TracingSampleRate float64 `yaml:"tracing_sample_rate" json:"tracing_sample_rate"`
}

// NewBaseConfig creates a new BaseConfig with sensible defaults.
//
// Example:
//
//	cfg := config.NewBaseConfig("iot_things", "iotcore")
//	cfg.Timeouts.Request = 10 * time.Second
func NewBaseConfig(name, connectorType string) *BaseConfig {
	return &BaseConfig{
		Name:    name,
		Type:    connectorType,
		Version: "1.0.0",
		Timeouts: TimeoutConfig{
			Request:    30 * time.Second,
			Connection: 10 * time.Second,
		},
		Security: SecurityConfig{
			Credentials: make(map[string]string),
		},
		Observability: ObservabilityConfig{
			EnableMetrics:     true,
			EnableTracing:     false,
			LogLevel:          "info",
			LogFormat:         "json",
			TracingSampleRate: 1.0,
		},
	}
}

// Validate validates the configuration for correctness.
func (bc *BaseConfig) Validate() error {
	if bc.Name == "" {
		return fmt.Errorf("name is required")
	}
	if bc.Type == "" {
		return fmt.Errorf("type is required")
	}
	if bc.Timeouts.Request < 0 {
		return fmt.Errorf("timeouts.request cannot be negative")
	}
	if bc.Timeouts.Connection < 0 {
		return fmt.Errorf("timeouts.connection cannot be negative")
	}
	if bc.Observability.TracingSampleRate < 0 || bc.Observability.TracingSampleRate > 1 {
		return fmt.Errorf("tracing_sample_rate must be between 0 and 1")
	}
	return nil
}

// HasCredentials returns true if credentials are configured
func (s *SecurityConfig) HasCredentials() bool {
	return len(s.Credentials) > 0
}

// Option returns a single option from the credentials map
func (s *SecurityConfig) Option(key string) string {
	if s.Credentials == nil {
		return ""
	}
	return s.Credentials[key]
}
