package base

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ajitpratap0/iotcore/pkg/connector/core"
	"github.com/ajitpratap0/iotcore/pkg/errors"
	"github.com/ajitpratap0/iotcore/pkg/logger"
)

const (
	statusUnknown   = "unknown"
	statusHealthy   = "healthy"
	statusUnhealthy = "unhealthy"
)

// HealthChecker runs the registry probe when asked. Nothing runs in the
// background; the last outcome is kept for Metrics.
type HealthChecker struct {
	mu       sync.Mutex
	probe    func(ctx context.Context) error
	logger   *zap.Logger
	last     core.HealthStatus
	lastOK   time.Time
	checks   int64
	failures int64
}

// NewHealthChecker creates a checker for the named connector
func NewHealthChecker(name string) *HealthChecker {
	return &HealthChecker{
		logger: logger.Get().With(zap.String("component", "health"), zap.String("connector", name)),
		last:   core.HealthStatus{Status: statusUnknown, Timestamp: time.Now()},
	}
}

// SetCheckFunc sets the probe
func (hc *HealthChecker) SetCheckFunc(fn func(ctx context.Context) error) {
	hc.mu.Lock()
	hc.probe = fn
	hc.mu.Unlock()
}

// Check runs the probe and returns the resulting status.
func (hc *HealthChecker) Check(ctx context.Context) *core.HealthStatus {
	hc.mu.Lock()
	probe := hc.probe
	hc.mu.Unlock()

	start := time.Now()
	var err error
	if probe != nil {
		err = probe(ctx)
	}
	latency := time.Since(start)

	hc.mu.Lock()
	hc.checks++
	status := core.HealthStatus{
		Timestamp: start,
		Details: map[string]interface{}{
			"latency_ms":  latency.Milliseconds(),
			"check_count": hc.checks,
		},
	}
	if err != nil {
		hc.failures++
		status.Status = statusUnhealthy
		status.Error = err
		status.Details["last_error"] = err.Error()
		status.Details["error_type"] = string(errors.GetType(err))
	} else {
		status.Status = statusHealthy
		hc.lastOK = start
	}
	if !hc.lastOK.IsZero() {
		status.Details["last_success"] = hc.lastOK
	}
	status.Details["failure_count"] = hc.failures
	hc.last = status
	hc.mu.Unlock()

	if err != nil {
		hc.logger.Warn("health check failed", zap.Error(err), zap.Duration("latency", latency))
	} else {
		hc.logger.Debug("health check passed", zap.Duration("latency", latency))
	}
	return hc.GetStatus()
}

// GetStatus returns a copy of the last status
func (hc *HealthChecker) GetStatus() *core.HealthStatus {
	hc.mu.Lock()
	defer hc.mu.Unlock()

	out := hc.last
	out.Details = make(map[string]interface{}, len(hc.last.Details))
	for k, v := range hc.last.Details {
		out.Details[k] = v
	}
	return &out
}

// CheckCount returns how many probes ran
func (hc *HealthChecker) CheckCount() int64 {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	return hc.checks
}

// FailureCount returns how many probes failed
func (hc *HealthChecker) FailureCount() int64 {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	return hc.failures
}

// IsHealthy reports whether the last probe passed
func (hc *HealthChecker) IsHealthy() bool {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	return hc.last.Status == statusHealthy
}
