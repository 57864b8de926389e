package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusMetrics holds all Prometheus metrics
type PrometheusMetrics struct {
	registry *prometheus.Registry

	// Evolution metrics
	GenerationsTotal  prometheus.Counter
	BestFitness       prometheus.Gauge
	PopulationFitness *prometheus.GaugeVec

	// Published state
	Threshold *prometheus.GaugeVec
	Usage     *prometheus.GaugeVec

	// Loop health
	CycleDuration      prometheus.Histogram
	CycleFailuresTotal *prometheus.CounterVec
	ActuationsTotal    *prometheus.CounterVec
	HistoryPoints      prometheus.Gauge

	// Circuit breaker metrics
	CircuitStateChangesTotal *prometheus.CounterVec

	JournalDroppedTotal prometheus.Counter
}

// NewPrometheusMetrics registers every collector on a private registry, so
// several optimizers (or tests) can coexist in one process.
func NewPrometheusMetrics() *PrometheusMetrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &PrometheusMetrics{
		registry: reg,

		GenerationsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "era_generations_total",
				Help: "Total number of evolved generations",
			},
		),

		BestFitness: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "era_best_fitness",
				Help: "Fitness of the best chromosome in the latest generation",
			},
		),

		PopulationFitness: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "era_population_fitness",
				Help: "Fitness summary of the latest generation",
			},
			[]string{"stat"},
		),

		Threshold: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "era_threshold",
				Help: "Currently published threshold per resource",
			},
			[]string{"resource"},
		),

		Usage: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "era_usage",
				Help: "Last observed usage per resource",
			},
			[]string{"resource"},
		),

		CycleDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "era_cycle_duration_seconds",
				Help:    "Optimizer cycle duration in seconds",
				Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
			},
		),

		CycleFailuresTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "era_cycle_failures_total",
				Help: "Total number of skipped optimizer cycles",
			},
			[]string{"stage"},
		),

		ActuationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "era_actuations_total",
				Help: "Total number of threshold applications",
			},
			[]string{"resource", "outcome"},
		),

		HistoryPoints: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "era_history_points",
				Help: "Number of points held in the history buffer",
			},
		),

		CircuitStateChangesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "era_circuit_state_changes_total",
				Help: "Total number of circuit breaker transitions",
			},
			[]string{"breaker", "to"},
		),

		JournalDroppedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "era_journal_dropped_total",
				Help: "Generation records dropped because the journal buffer was full",
			},
		),
	}
}

// Registry returns the private registry
func (m *PrometheusMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the exposition format
func (m *PrometheusMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RecordGeneration records the outcome of one evolution step
func (m *PrometheusMetrics) RecordGeneration(best, average, worst float64) {
	m.GenerationsTotal.Inc()
	m.BestFitness.Set(best)
	m.PopulationFitness.WithLabelValues("best").Set(best)
	m.PopulationFitness.WithLabelValues("average").Set(average)
	m.PopulationFitness.WithLabelValues("worst").Set(worst)
}

// RecordThreshold records a published threshold
func (m *PrometheusMetrics) RecordThreshold(resource string, value float64) {
	m.Threshold.WithLabelValues(resource).Set(value)
}

// RecordUsage records an observed usage
func (m *PrometheusMetrics) RecordUsage(resource string, value float64) {
	m.Usage.WithLabelValues(resource).Set(value)
}

// RecordCycle records a cycle duration
func (m *PrometheusMetrics) RecordCycle(duration time.Duration) {
	m.CycleDuration.Observe(duration.Seconds())
}

// RecordCycleFailure records a skipped cycle
func (m *PrometheusMetrics) RecordCycleFailure(stage string) {
	m.CycleFailuresTotal.WithLabelValues(stage).Inc()
}

// RecordActuation records an actuation outcome
func (m *PrometheusMetrics) RecordActuation(resource, outcome string) {
	m.ActuationsTotal.WithLabelValues(resource, outcome).Inc()
}

// RecordHistorySize records the history buffer length
func (m *PrometheusMetrics) RecordHistorySize(n int) {
	m.HistoryPoints.Set(float64(n))
}

// RecordCircuitState records a circuit breaker transition
func (m *PrometheusMetrics) RecordCircuitState(name, to string) {
	m.CircuitStateChangesTotal.WithLabelValues(name, to).Inc()
}

// RecordJournalDrop records a dropped journal record
func (m *PrometheusMetrics) RecordJournalDrop() {
	m.JournalDroppedTotal.Inc()
}
