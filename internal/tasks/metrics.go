package tasks

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics records pipeline counters in its own registry.
type Metrics struct {
	registry    *prometheus.Registry
	generations *prometheus.CounterVec
	stages      *prometheus.HistogramVec
	retries     *prometheus.CounterVec
	warnings    *prometheus.CounterVec
}

// NewMetrics creates the pipeline collectors on a fresh registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		generations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "vibelist_generations_total",
			Help: "Pipeline runs by outcome (done, partial, or the failure kind).",
		}, []string{"outcome"}),
		stages: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "vibelist_stage_duration_seconds",
			Help:    "Duration of each pipeline stage.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		}, []string{"stage"}),
		retries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "vibelist_retries_total",
			Help: "Retried calls by stage.",
		}, []string{"stage"}),
		warnings: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "vibelist_degradations_total",
			Help: "Non-fatal degradations recorded on results.",
		}, []string{"kind"}),
	}
}

// Registry exposes the collectors, mostly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// All methods are nil-safe so components can run without metrics.

func (m *Metrics) outcome(label string) {
	if m != nil {
		m.generations.WithLabelValues(label).Inc()
	}
}

func (m *Metrics) observe(stage Phase, start time.Time) {
	if m != nil {
		m.stages.WithLabelValues(stage.String()).Observe(time.Since(start).Seconds())
	}
}

func (m *Metrics) retry(stage Phase) {
	if m != nil {
		m.retries.WithLabelValues(stage.String()).Inc()
	}
}

func (m *Metrics) degraded(kind string) {
	if m != nil {
		m.warnings.WithLabelValues(kind).Inc()
	}
}
