package monitor

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ltmtri/vnspend/internal/model"
)

// Metrics exposes cascade telemetry to prometheus. All vectors are labeled
// by layer so dashboards can break down usage the same way Stats does.
type Metrics struct {
	invocations *prometheus.CounterVec
	latency     *prometheus.HistogramVec
	confidence  *prometheus.HistogramVec
	feedback    *prometheus.CounterVec
}

// NewMetrics registers the cascade metric vectors with reg. Pass
// prometheus.DefaultRegisterer for the usual global registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		invocations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vnspend",
			Subsystem: "cascade",
			Name:      "invocations_total",
			Help:      "Accepted classification results per layer.",
		}, []string{"layer"}),
		latency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "vnspend",
			Subsystem: "cascade",
			Name:      "layer_latency_seconds",
			Help:      "Per-layer classification latency.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		}, []string{"layer"}),
		confidence: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "vnspend",
			Subsystem: "cascade",
			Name:      "layer_confidence",
			Help:      "Calibrated confidence of accepted results per layer.",
			Buckets:   prometheus.LinearBuckets(0.05, 0.05, 19),
		}, []string{"layer"}),
		feedback: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vnspend",
			Subsystem: "feedback",
			Name:      "outcomes_total",
			Help:      "Ground-truth outcomes reported through user feedback.",
		}, []string{"result"}),
	}
}

// ObserveInvocation records one accepted layer result.
func (m *Metrics) ObserveInvocation(layer model.Layer, latency time.Duration, confidence float64) {
	label := string(layer)
	m.invocations.WithLabelValues(label).Inc()
	m.latency.WithLabelValues(label).Observe(latency.Seconds())
	m.confidence.WithLabelValues(label).Observe(confidence)
}

// ObserveFeedback records one feedback outcome.
func (m *Metrics) ObserveFeedback(correct bool) {
	result := "correct"
	if !correct {
		result = "incorrect"
	}
	m.feedback.WithLabelValues(result).Inc()
}
