package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	predictions *prometheus.CounterVec
	errorsTotal *prometheus.CounterVec
	lastProb    prometheus.Gauge
	cacheLookup *prometheus.CounterVec
	latency     *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		predictions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loanserve_predictions_total",
				Help: "Total number of predictions served",
			},
			[]string{"label"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loanserve_errors_total",
				Help: "Total number of request errors by kind",
			},
			[]string{"kind"},
		),
		lastProb: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "loanserve_last_probability",
				Help: "Positive-class probability of the most recent prediction",
			},
		),
		cacheLookup: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loanserve_cache_lookups_total",
				Help: "Prediction cache lookups by outcome",
			},
			[]string{"outcome"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "loanserve_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordPrediction records a served prediction.
func (r *Recorder) RecordPrediction(label string, probability float64) {
	r.predictions.WithLabelValues(label).Inc()
	r.lastProb.Set(probability)
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordCacheLookup records a prediction cache lookup.
func (r *Recorder) RecordCacheLookup(hit bool) {
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	r.cacheLookup.WithLabelValues(outcome).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
