package routing

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/tributary-ai/search-router/internal/admission"
)

// RoutingStats is the point-in-time snapshot served by the ops surface.
type RoutingStats struct {
	TotalQueries      int64            `json:"total_queries"`
	QueriesByMode     map[string]int64 `json:"queries_by_mode"`
	AvgRoutingLatency time.Duration    `json:"avg_routing_latency"`
}

// RouterMetrics accumulates per-mode query counts and routing latency, both
// as Prometheus series and as an in-process snapshot.
type RouterMetrics struct {
	decisions *prometheus.CounterVec
	denials   *prometheus.CounterVec
	latency   prometheus.Histogram

	mutex        sync.Mutex
	total        int64
	byMode       map[string]int64
	totalLatency time.Duration
}

// NewRouterMetrics creates the metrics set, registered against reg. Pass
// prometheus.DefaultRegisterer outside tests.
func NewRouterMetrics(reg prometheus.Registerer) *RouterMetrics {
	factory := promauto.With(reg)
	return &RouterMetrics{
		decisions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "search_router",
			Name:      "routing_decisions_total",
			Help:      "Routing decisions by selection mode.",
		}, []string{"mode"}),
		denials: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "search_router",
			Name:      "admission_denials_total",
			Help:      "Providers denied at admission, by provider and cause.",
		}, []string{"provider", "kind"}),
		latency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "search_router",
			Name:      "routing_latency_seconds",
			Help:      "Time spent selecting providers, excluding execution.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
		byMode: make(map[string]int64),
	}
}

// ObserveDecision records one completed routing decision.
func (m *RouterMetrics) ObserveDecision(mode string, elapsed time.Duration) {
	m.decisions.WithLabelValues(mode).Inc()
	m.latency.Observe(elapsed.Seconds())

	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.total++
	m.byMode[mode]++
	m.totalLatency += elapsed
}

// ObserveDenials records admission denials from one execution outcome.
func (m *RouterMetrics) ObserveDenials(denials map[string]*admission.Denial) {
	for provider, denial := range denials {
		m.denials.WithLabelValues(provider, string(denial.Kind)).Inc()
	}
}

// Snapshot returns current counters for the ops surface.
func (m *RouterMetrics) Snapshot() RoutingStats {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	byMode := make(map[string]int64, len(m.byMode))
	for mode, count := range m.byMode {
		byMode[mode] = count
	}
	stats := RoutingStats{
		TotalQueries:  m.total,
		QueriesByMode: byMode,
	}
	if m.total > 0 {
		stats.AvgRoutingLatency = m.totalLatency / time.Duration(m.total)
	}
	return stats
}
