package store

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors the store updates.
type Metrics struct {
	registry *prometheus.Registry

	Operations  *prometheus.CounterVec
	Duration    *prometheus.HistogramVec
	Fallbacks   *prometheus.CounterVec
	Transitions *prometheus.CounterVec
	Degraded    prometheus.Gauge
}

// NewMetrics creates the store collectors on a private registry.
func NewMetrics(namespace string) *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		Operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "store_operations_total",
				Help:      "Total number of store operations",
			},
			[]string{"entity", "operation", "path", "status"},
		),
		Duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "store_operation_duration_seconds",
				Help:      "Store operation duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"entity", "operation"},
		),
		Fallbacks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "store_fallback_served_total",
				Help:      "Total number of calls served by the fallback repository",
			},
			[]string{"entity", "operation"},
		),
		Transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "store_mode_transitions_total",
				Help:      "Total number of Normal/Degraded transitions",
			},
			[]string{"mode", "reason"},
		),
		Degraded: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "store_degraded",
				Help:      "1 while the store serves from the fallback repository",
			},
		),
	}

	registry.MustRegister(m.Operations, m.Duration, m.Fallbacks, m.Transitions, m.Degraded)
	return m
}

// Registry returns the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) observe(entity, op, path string, degraded bool, err error, took time.Duration) {
	status := "ok"
	if err != nil {
		status = KindOf(err).String()
	}
	m.Operations.WithLabelValues(entity, op, path, status).Inc()
	m.Duration.WithLabelValues(entity, op).Observe(took.Seconds())
	if degraded && err == nil {
		m.Fallbacks.WithLabelValues(entity, op).Inc()
	}
}

func (m *Metrics) transition(mode Mode, reason string) {
	m.Transitions.WithLabelValues(mode.String(), reason).Inc()
	if mode == Degraded {
		m.Degraded.Set(1)
	} else {
		m.Degraded.Set(0)
	}
}
