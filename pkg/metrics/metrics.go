// Package metrics provides prometheus metrics for the IoT Core connector.
//
// # Overview
//
// Every backend call, every emitted row and every enrichment miss is counted:
//
//	collector := metrics.NewCollector("thing")
//	start := time.Now()
//	out, err := client.ListThings(ctx, in)
//	collector.ObserveCall("ListThings", start, err)
//
// Metrics live in a dedicated Registry rather than the global default one so a
// host embedding the connector decides whether and where to expose them. The
// CLI pushes the registry to a Pushgateway when one is configured.
package metrics

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Registry holds every connector metric.
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

var (
	// BackendCalls counts registry API calls.
	// Labels: operation (ListThings, GetThingShadow, ...), status (success/backend_error/error)
	BackendCalls = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "iotcore_backend_calls_total",
			Help: "Total number of device registry API calls",
		},
		[]string{"operation", "status"},
	)

	// BackendLatency tracks the distribution of registry API call latencies in seconds.
	BackendLatency = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "iotcore_backend_call_duration_seconds",
			Help:    "Device registry API call latency in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"operation"},
	)

	// RowsEmitted counts rows handed to the host.
	RowsEmitted = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "iotcore_rows_emitted_total",
			Help: "Total number of rows produced by scans",
		},
		[]string{"table_type"},
	)

	// EnrichmentMisses counts enrichment columns left absent after a backend failure.
	EnrichmentMisses = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "iotcore_enrichment_misses_total",
			Help: "Enrichment lookups that failed and left the column absent",
		},
		[]string{"column"},
	)

	// Mutations counts insert/update/delete calls.
	Mutations = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "iotcore_mutations_total",
			Help: "Total number of mutation requests",
		},
		[]string{"table_type", "operation", "status"},
	)
)

// Call status label values
const (
	StatusSuccess      = "success"
	StatusBackendError = "backend_error"
	StatusError        = "error"
)

// Collector records metrics for one connector instance. Each instance also keeps
// local counters so the connector can report its own activity.
type Collector struct {
	tableType string
	startTime time.Time

	calls  atomic.Int64
	rows   atomic.Int64
	misses atomic.Int64

	classify func(error) string
}

// NewCollector creates a collector labelled with the table type.
func NewCollector(tableType string) *Collector {
	return &Collector{
		tableType: tableType,
		startTime: time.Now(),
		classify:  defaultClassify,
	}
}

// SetClassifier overrides how call errors map to a status label.
func (c *Collector) SetClassifier(fn func(error) string) {
	if fn != nil {
		c.classify = fn
	}
}

func defaultClassify(err error) string {
	if err == nil {
		return StatusSuccess
	}
	return StatusError
}

// ObserveCall records one backend call that started at start.
func (c *Collector) ObserveCall(operation string, start time.Time, err error) {
	c.calls.Add(1)
	BackendCalls.WithLabelValues(operation, c.classify(err)).Inc()
	BackendLatency.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// RowEmitted records one row handed to the host.
func (c *Collector) RowEmitted() {
	c.rows.Add(1)
	RowsEmitted.WithLabelValues(c.tableType).Inc()
}

// EnrichmentMiss records a column dropped from a row after a failed lookup.
func (c *Collector) EnrichmentMiss(column string) {
	c.misses.Add(1)
	EnrichmentMisses.WithLabelValues(column).Inc()
}

// Mutation records an insert, update or delete attempt.
func (c *Collector) Mutation(operation string, err error) {
	Mutations.WithLabelValues(c.tableType, operation, c.classify(err)).Inc()
}

// GetAll returns the collector's local counters
func (c *Collector) GetAll() map[string]interface{} {
	return map[string]interface{}{
		"table_type":        c.tableType,
		"start_time":        c.startTime,
		"uptime":            time.Since(c.startTime).Seconds(),
		"backend_calls":     c.calls.Load(),
		"rows_emitted":      c.rows.Load(),
		"enrichment_misses": c.misses.Load(),
	}
}

// Push sends the registry to a Prometheus Pushgateway under the given job name.
func Push(url, job string) error {
	return push.New(url, job).Gatherer(Registry).Push()
}
