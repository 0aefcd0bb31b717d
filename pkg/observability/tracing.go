// Package observability wires OpenTelemetry tracing for backend calls.
package observability

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentationName names the tracer used by the connector.
const InstrumentationName = "github.com/ajitpratap0/iotcore"

// TracingConfig contains tracing configuration
type TracingConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	SamplingRate   float64
	// Writer receives exported spans; defaults to stderr so stdout stays clean for rows
	Writer       io.Writer
	PrettyPrint  bool
	BatchTimeout time.Duration
}

// DefaultTracingConfig returns the configuration the CLI uses with --trace.
func DefaultTracingConfig() TracingConfig {
	return TracingConfig{
		ServiceName:    "iotcore",
		ServiceVersion: "dev",
		Environment:    getEnv("IOTCORE_ENVIRONMENT", "development"),
		SamplingRate:   1.0,
		BatchTimeout:   time.Second,
	}
}

var (
	mu       sync.RWMutex
	provider *sdktrace.TracerProvider
)

// InitTracing installs a global tracer provider exporting to the configured
// writer. Call Shutdown to flush it.
func InitTracing(cfg TracingConfig) error {
	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(cfg.ServiceName),
			semconv.ServiceVersionKey.String(cfg.ServiceVersion),
			semconv.DeploymentEnvironmentKey.String(cfg.Environment),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	w := cfg.Writer
	if w == nil {
		w = os.Stderr
	}
	opts := []stdouttrace.Option{stdouttrace.WithWriter(w)}
	if cfg.PrettyPrint {
		opts = append(opts, stdouttrace.WithPrettyPrint())
	}
	exporter, err := stdouttrace.New(opts...)
	if err != nil {
		return fmt.Errorf("failed to create stdout exporter: %w", err)
	}

	tp := NewTracerProvider(cfg, sdktrace.WithResource(res),
		sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(batchTimeout(cfg))))
	SetTracerProvider(tp)

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return nil
}

// NewTracerProvider builds a provider with the configured sampler.
func NewTracerProvider(cfg TracingConfig, opts ...sdktrace.TracerProviderOption) *sdktrace.TracerProvider {
	opts = append([]sdktrace.TracerProviderOption{sdktrace.WithSampler(sampler(cfg.SamplingRate))}, opts...)
	return sdktrace.NewTracerProvider(opts...)
}

// SetTracerProvider installs tp globally and remembers it for Shutdown.
func SetTracerProvider(tp *sdktrace.TracerProvider) {
	mu.Lock()
	provider = tp
	mu.Unlock()
	otel.SetTracerProvider(tp)
}

// Shutdown flushes pending spans and stops the installed provider. It is a
// no-op when tracing was never initialized.
func Shutdown(ctx context.Context) error {
	mu.Lock()
	tp := provider
	provider = nil
	mu.Unlock()

	if tp == nil {
		return nil
	}
	if err := tp.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown tracer: %w", err)
	}
	return nil
}

func sampler(rate float64) sdktrace.Sampler {
	switch {
	case rate <= 0:
		return sdktrace.NeverSample()
	case rate >= 1.0:
		return sdktrace.AlwaysSample()
	default:
		return sdktrace.TraceIDRatioBased(rate)
	}
}

func batchTimeout(cfg TracingConfig) time.Duration {
	if cfg.BatchTimeout <= 0 {
		return time.Second
	}
	return cfg.BatchTimeout
}

// Tracer returns the connector tracer from the global provider. Without
// InitTracing it is a no-op tracer.
func Tracer() trace.Tracer {
	return otel.Tracer(InstrumentationName)
}

// ConnectorTracer starts spans tagged with the connector's table type.
type ConnectorTracer struct {
	tableType string
}

// NewConnectorTracer creates a tracer for one connector instance.
func NewConnectorTracer(tableType string) *ConnectorTracer {
	return &ConnectorTracer{tableType: tableType}
}

// StartSpan opens a span named after a backend operation.
func (ct *ConnectorTracer) StartSpan(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs,
		attribute.String("iotcore.table_type", ct.tableType),
		attribute.String("iotcore.operation", operation),
	)
	return Tracer().Start(ctx, operation, trace.WithAttributes(attrs...))
}

// Trace runs fn inside a span and records its error.
func (ct *ConnectorTracer) Trace(ctx context.Context, operation string, fn func(context.Context) error, attrs ...attribute.KeyValue) error {
	ctx, span := ct.StartSpan(ctx, operation, attrs...)
	defer span.End()

	err := fn(ctx)
	EndWithError(span, err)
	return err
}

// EndWithError sets the span status from err without ending the span.
func EndWithError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return
	}
	span.SetStatus(codes.Ok, "")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
