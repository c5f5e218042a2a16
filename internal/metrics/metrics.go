package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "session_cart"

type CartMetrics struct {
	Operations *prometheus.CounterVec
	LatencyMS  *prometheus.HistogramVec
	Conflicts  prometheus.Counter
}

func NewCartMetrics(reg prometheus.Registerer) *CartMetrics {
	operations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "operations_total",
		Help:      "Cart operations by outcome.",
	}, []string{"operation", "outcome"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "operation_duration_ms",
		Help:      "Cart operation latency in milliseconds.",
		Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
	}, []string{"operation"})
	conflicts := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "version_conflicts_total",
		Help:      "Optimistic write conflicts that caused a retry.",
	})

	reg.MustRegister(operations, latency, conflicts)
	return &CartMetrics{Operations: operations, LatencyMS: latency, Conflicts: conflicts}
}

// Observe records one finished operation. A nil receiver is a no-op.
func (m *CartMetrics) Observe(operation, outcome string, started time.Time) {
	if m == nil {
		return
	}
	m.Operations.WithLabelValues(operation, outcome).Inc()
	m.LatencyMS.WithLabelValues(operation).Observe(float64(time.Since(started).Milliseconds()))
}

func (m *CartMetrics) Conflict() {
	if m == nil {
		return
	}
	m.Conflicts.Inc()
}

func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
