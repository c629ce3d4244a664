package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for aggregation passes.
type Metrics struct {
	FetchDuration *prometheus.HistogramVec
	SourceStatus  *prometheus.CounterVec
	Scores        prometheus.Histogram
	Passes        *prometheus.CounterVec
}

// New creates compliance metrics registered on the default registry.
func New() *Metrics {
	return &Metrics{
		FetchDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "facade_source_fetch_duration_seconds",
			Help:    "Duration of one source adapter fetch",
			Buckets: prometheus.DefBuckets,
		}, []string{"source"}),
		SourceStatus: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "facade_source_status_total",
			Help: "Per-source fetch outcomes (OK, STALE, FAILED)",
		}, []string{"source", "status"}),
		Scores: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "facade_compliance_score",
			Help:    "Scores produced by aggregation passes",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		}),
		Passes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "facade_aggregation_passes_total",
			Help: "Aggregation pass outcomes (ok, degraded, failed)",
		}, []string{"outcome"}),
	}
}

// ObserveFetch records one adapter fetch.
func (m *Metrics) ObserveFetch(source string, seconds float64, status string) {
	if m != nil {
		m.FetchDuration.WithLabelValues(source).Observe(seconds)
		m.SourceStatus.WithLabelValues(source, status).Inc()
	}
}

// ObserveScore records the score of a completed pass.
func (m *Metrics) ObserveScore(score int) {
	if m != nil {
		m.Scores.Observe(float64(score))
	}
}

// IncPass records a pass outcome.
func (m *Metrics) IncPass(outcome string) {
	if m != nil {
		m.Passes.WithLabelValues(outcome).Inc()
	}
}
