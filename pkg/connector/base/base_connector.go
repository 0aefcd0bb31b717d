// Package base provides the BaseConnector that registry tables embed. It owns
// the logger, the metrics collector, the tracer and the health checker of one
// table instance.
//
// # Usage
//
//	type ThingTable struct {
//	    *base.BaseConnector
//	    // table-specific fields
//	}
//
//	func NewThingTable() *ThingTable {
//	    return &ThingTable{
//	        BaseConnector: base.NewBaseConnector("iotcore", core.KindThing, "1.0.0"),
//	    }
//	}
//
// Every backend call goes through Observe, which opens a span and records the
// call in prometheus:
//
//	err := t.Observe(ctx, "ListThings", func(ctx context.Context) error {
//	    out, err = client.ListThings(ctx, in)
//	    return err
//	})
//
// # Lifecycle
//
// 1. Create with NewBaseConnector
// 2. Initialize with Initialize()
// 3. Use throughout table operations
// 4. Close with Close()
//
// No goroutines are started; health is checked on demand.
package base

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/ajitpratap0/iotcore/pkg/config"
	"github.com/ajitpratap0/iotcore/pkg/connector/core"
	"github.com/ajitpratap0/iotcore/pkg/errors"
	"github.com/ajitpratap0/iotcore/pkg/logger"
	"github.com/ajitpratap0/iotcore/pkg/metrics"
	"github.com/ajitpratap0/iotcore/pkg/observability"
)

// BaseConnector provides common functionality for registry tables.
type BaseConnector struct {
	name    string             // Connector name
	kind    core.Kind          // Table kind
	version string             // Connector version
	config  *config.BaseConfig // Unified configuration
	logger  *zap.Logger        // Structured logger

	metricsCollector *metrics.Collector
	tracer           *observability.ConnectorTracer
	healthChecker    *HealthChecker

	closed     bool
	closeMutex sync.Mutex
}

// NewBaseConnector creates a new base connector for one table kind.
func NewBaseConnector(name string, kind core.Kind, version string) *BaseConnector {
	return &BaseConnector{
		name:    name,
		kind:    kind,
		version: version,
		logger: logger.Get().With(
			zap.String("connector", name),
			zap.String("table_type", kind.String())),
		metricsCollector: metrics.NewCollector(kind.String()),
		tracer:           observability.NewConnectorTracer(kind.String()),
		healthChecker:    NewHealthChecker(name),
	}
}

// Initialize stores the configuration. It does not reach the backend.
func (bc *BaseConnector) Initialize(ctx context.Context, cfg *config.BaseConfig) error {
	if cfg == nil {
		return errors.New(errors.ErrorTypeConfig, "configuration is required")
	}
	bc.config = cfg

	bc.logger.Info("connector initialized",
		zap.String("table", cfg.Name),
		zap.String("version", bc.version))
	return nil
}

// Name returns the table name from configuration, or the connector name
func (bc *BaseConnector) Name() string {
	if bc.config != nil && bc.config.Name != "" {
		return bc.config.Name
	}
	return bc.name
}

// Kind returns the table kind
func (bc *BaseConnector) Kind() core.Kind {
	return bc.kind
}

// Version returns the connector version
func (bc *BaseConnector) Version() string {
	return bc.version
}

// Config returns the configuration passed to Initialize
func (bc *BaseConnector) Config() *config.BaseConfig {
	return bc.config
}

// GetLogger returns the connector logger
func (bc *BaseConnector) GetLogger() *zap.Logger {
	return bc.logger
}

// LoggerFor returns the connector logger with the query id and table name
// carried by ctx.
func (bc *BaseConnector) LoggerFor(ctx context.Context) *zap.Logger {
	return logger.WithContext(ctx, bc.logger)
}

// SetLogger replaces the connector logger, keeping its connector fields
func (bc *BaseConnector) SetLogger(l *zap.Logger) {
	bc.logger = l.With(
		zap.String("connector", bc.name),
		zap.String("table_type", bc.kind.String()))
}

// MetricsCollector returns the collector used for this table
func (bc *BaseConnector) MetricsCollector() *metrics.Collector {
	return bc.metricsCollector
}

// SetStatusClassifier sets how call errors map to metrics status labels
func (bc *BaseConnector) SetStatusClassifier(fn func(error) string) {
	bc.metricsCollector.SetClassifier(fn)
}

// SetHealthCheck sets the probe used by Health
func (bc *BaseConnector) SetHealthCheck(fn func(ctx context.Context) error) {
	bc.healthChecker.SetCheckFunc(fn)
}

// Observe runs one backend call inside a span and records its outcome.
func (bc *BaseConnector) Observe(ctx context.Context, operation string, fn func(context.Context) error, attrs ...attribute.KeyValue) error {
	start := time.Now()
	err := bc.tracer.Trace(ctx, operation, fn, attrs...)
	bc.metricsCollector.ObserveCall(operation, start, err)
	return err
}

// Health runs the health probe
func (bc *BaseConnector) Health(ctx context.Context) error {
	if bc.Closed() {
		return errors.New(errors.ErrorTypeConnection, "connector is closed")
	}

	status := bc.healthChecker.Check(ctx)
	if status.Status != "healthy" {
		return errors.Wrap(status.Error, errors.ErrorTypeConnection, "health check failed")
	}
	return nil
}

// Metrics returns current metrics
func (bc *BaseConnector) Metrics() map[string]interface{} {
	m := bc.metricsCollector.GetAll()

	m["name"] = bc.Name()
	m["version"] = bc.version

	status := bc.healthChecker.GetStatus()
	m["health_status"] = status.Status
	m["health_check_count"] = bc.healthChecker.CheckCount()
	m["health_failure_count"] = bc.healthChecker.FailureCount()

	return m
}

// Closed reports whether Close has been called
func (bc *BaseConnector) Closed() bool {
	bc.closeMutex.Lock()
	defer bc.closeMutex.Unlock()
	return bc.closed
}

// Close marks the connector closed. It is safe to call more than once.
func (bc *BaseConnector) Close(ctx context.Context) error {
	bc.closeMutex.Lock()
	defer bc.closeMutex.Unlock()

	if bc.closed {
		return nil
	}
	bc.closed = true
	bc.logger.Debug("connector closed")
	return nil
}
