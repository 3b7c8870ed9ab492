package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MarketMetrics records RPC activity against the marketplace module.
type MarketMetrics struct {
	requests *prometheus.CounterVec
	errors   *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

var (
	marketMetricsOnce sync.Once
	marketRegistry    *MarketMetrics
)

// Metrics returns the lazily-initialised metrics registry used to record
// marketplace RPC activity. Collectors are registered with the default
// Prometheus registry exactly once.
func Metrics() *MarketMetrics {
	marketMetricsOnce.Do(func() {
		marketRegistry = &MarketMetrics{
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "marketd",
				Subsystem: "rpc",
				Name:      "requests_total",
				Help:      "Total JSON-RPC requests segmented by method and outcome.",
			}, []string{"method", "outcome"}),
			errors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "marketd",
				Subsystem: "rpc",
				Name:      "errors_total",
				Help:      "Total JSON-RPC errors segmented by method and error code.",
			}, []string{"method", "code"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "marketd",
				Subsystem: "rpc",
				Name:      "request_duration_seconds",
				Help:      "Latency distribution for JSON-RPC handlers.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"method"}),
		}
		prometheus.MustRegister(marketRegistry.requests, marketRegistry.errors, marketRegistry.latency)
	})
	return marketRegistry
}

// ObserveRequest records a completed request with its outcome and duration.
func (m *MarketMetrics) ObserveRequest(method, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, outcome).Inc()
	m.latency.WithLabelValues(method).Observe(elapsed.Seconds())
}

// ObserveError records a failed request with its JSON-RPC error code.
func (m *MarketMetrics) ObserveError(method, code string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(method, code).Inc()
}
