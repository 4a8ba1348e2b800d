package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	signalsCollected *prometheus.CounterVec
	incidentsFormed  *prometheus.CounterVec
	errorsTotal      *prometheus.CounterVec
	locationRisk     *prometheus.GaugeVec
	latency          *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		signalsCollected: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "noesis_signals_collected_total",
				Help: "Total number of raw signals collected per source",
			},
			[]string{"source"},
		),
		incidentsFormed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "noesis_incidents_formed_total",
				Help: "Total number of incidents formed by severity",
			},
			[]string{"severity"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "noesis_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		locationRisk: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "noesis_location_risk_score",
				Help: "Last predicted risk score per location",
			},
			[]string{"location"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "noesis_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordSignalsCollected records signals collected from a source.
func (r *Recorder) RecordSignalsCollected(source string, count int) {
	r.signalsCollected.WithLabelValues(source).Add(float64(count))
}

// RecordIncidentFormed records one formed incident.
func (r *Recorder) RecordIncidentFormed(severity string) {
	r.incidentsFormed.WithLabelValues(severity).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLocationRisk records the latest risk score for a location.
func (r *Recorder) RecordLocationRisk(location string, score float64) {
	r.locationRisk.WithLabelValues(location).Set(score)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
