package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "opspulse"

// Recorder publishes the engine's operational counters through
// Prometheus. It satisfies the domain Metrics interface.
type Recorder struct {
	observationsSent *prometheus.CounterVec
	errorsTotal      *prometheus.CounterVec
	lastValue        *prometheus.GaugeVec
	latency          *prometheus.HistogramVec
}

// New registers the collectors on the default registry. Call it once
// per process.
func New() *Recorder {
	return &Recorder{
		observationsSent: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "observations_sent_total",
			Help:      "Observations forwarded to a sink",
		}, []string{"sink", "metric"}),
		errorsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Errors by component",
		}, []string{"type"}),
		lastValue: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_value",
			Help:      "Most recent observation per tracked metric",
		}, []string{"metric"}),
		latency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Operation latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
	}
}

// RecordObservationSent counts one observation delivered to sink.
func (r *Recorder) RecordObservationSent(sink, metric string) {
	r.observationsSent.WithLabelValues(sink, metric).Inc()
}

// RecordError counts one failure under its component kind.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLastValue tracks the newest value seen for metric.
func (r *Recorder) RecordLastValue(metric string, value float64) {
	r.lastValue.WithLabelValues(metric).Set(value)
}

// RecordLatency observes one operation duration in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
