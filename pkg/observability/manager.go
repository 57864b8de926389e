package observability

import (
	"context"
	"errors"
	"time"

	"github.com/snow-ghost/era/pkg/logging"
	"github.com/snow-ghost/era/pkg/metrics"
	"github.com/snow-ghost/era/pkg/tracing"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/trace"
)

// Manager manages all observability components
type Manager struct {
	metrics *metrics.PrometheusMetrics
	tracer  *tracing.Tracer
	logger  *logging.Logger
}

// Config holds observability configuration
type Config struct {
	Logging logging.Config
	Tracing tracing.Config
}

// NewManager creates a new observability manager
func NewManager(config Config) (*Manager, error) {
	logger, err := logging.NewLogger(config.Logging)
	if err != nil {
		return nil, err
	}

	tracer, err := tracing.NewTracer(config.Tracing)
	if err != nil {
		return nil, err
	}

	return &Manager{
		metrics: metrics.NewPrometheusMetrics(),
		tracer:  tracer,
		logger:  logger,
	}, nil
}

// NewNop returns a manager that records metrics on a private registry but
// discards logs and spans.
func NewNop() *Manager {
	return &Manager{
		metrics: metrics.NewPrometheusMetrics(),
		tracer:  tracing.NewNop(),
		logger:  logging.NewNop(),
	}
}

// GetMetrics returns the metrics instance
func (m *Manager) GetMetrics() *metrics.PrometheusMetrics {
	return m.metrics
}

// GetTracer returns the tracer instance
func (m *Manager) GetTracer() *tracing.Tracer {
	return m.tracer
}

// GetLogger returns the logger instance
func (m *Manager) GetLogger() *logging.Logger {
	return m.logger
}

// StartCycleSpan starts the span covering one optimizer cycle
func (m *Manager) StartCycleSpan(ctx context.Context, generation int, loadLevel string) (context.Context, trace.Span) {
	return m.tracer.StartCycleSpan(ctx, generation, loadLevel)
}

// RecordCycle records metrics and a debug log line for a finished cycle
func (m *Manager) RecordCycle(ctx context.Context, c logging.CycleFields, average, worst float64) {
	m.metrics.RecordGeneration(c.BestFitness, average, worst)
	m.metrics.RecordCycle(c.Duration)

	m.metrics.RecordUsage("cpu", c.CPUUsage)
	m.metrics.RecordUsage("memory", c.MemoryUsage)
	m.metrics.RecordUsage("power", c.PowerUsage)
	m.metrics.RecordThreshold("cpu", c.CPUThreshold)
	m.metrics.RecordThreshold("memory", c.MemoryThreshold)
	m.metrics.RecordThreshold("power", c.PowerThreshold)

	m.logger.LogCycle(ctx, c)
}

// RecordCycleFailure records a skipped cycle
func (m *Manager) RecordCycleFailure(ctx context.Context, stage string, err error) {
	m.metrics.RecordCycleFailure(stage)
	m.logger.LogCycleFailure(ctx, stage, err)
}

// RecordActuation records the outcome of applying one threshold
func (m *Manager) RecordActuation(resource, outcome string) {
	m.metrics.RecordActuation(resource, outcome)
}

// OnBreakerStateChange is a limiter.StateChangeFunc that logs and counts
// breaker transitions.
func (m *Manager) OnBreakerStateChange(name string, from, to gobreaker.State) {
	m.metrics.RecordCircuitState(name, to.String())
	m.logger.LogCircuitBreaker(context.Background(), name, from.String(), to.String())
}

// LogHTTPRequest logs a served API request
func (m *Manager) LogHTTPRequest(ctx context.Context, method, path string, status int, duration time.Duration) {
	m.logger.LogHTTPRequest(ctx, method, path, status, duration)
}

// Shutdown flushes the tracer and the logger
func (m *Manager) Shutdown(ctx context.Context) error {
	return errors.Join(m.tracer.Shutdown(ctx), m.logger.Sync())
}
