package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the aggregation cache.
type Metrics struct {
	Requests *prometheus.CounterVec
}

// New creates cache metrics registered on the default registry.
func New() *Metrics {
	return &Metrics{
		Requests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "facade_cache_requests_total",
			Help: "Cache request outcomes (hit, miss, stale_hit, stale_fallback, refresh, coalesced, force_refresh, invalidate)",
		}, []string{"outcome"}),
	}
}

// IncRequest records one cache request outcome.
func (m *Metrics) IncRequest(outcome string) {
	if m != nil {
		m.Requests.WithLabelValues(outcome).Inc()
	}
}
