package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the card service's Prometheus metrics.
type Metrics struct {
	CardMutations *prometheus.CounterVec
	StoreFailures *prometheus.CounterVec
	HTTPLatency   *prometheus.HistogramVec
	HTTPClients   *prometheus.CounterVec
}

// New creates and registers all metrics on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		CardMutations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "cardshare_card_mutations_total",
			Help: "Successful card mutations by operation",
		}, []string{"operation"}),
		StoreFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "cardshare_store_failures_total",
			Help: "Store failures mapped to persistence errors, by operation",
		}, []string{"operation"}),
		HTTPLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cardshare_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		HTTPClients: f.NewCounterVec(prometheus.CounterOpts{
			Name: "cardshare_http_requests_by_client_total",
			Help: "HTTP requests by user agent class (bot, mobile, desktop, unknown)",
		}, []string{"client"}),
	}
}

// IncCardMutation counts a successful create, update or delete.
func (m *Metrics) IncCardMutation(operation string) {
	if m != nil {
		m.CardMutations.WithLabelValues(operation).Inc()
	}
}

// IncStoreFailure counts a store error surfaced as a persistence error.
func (m *Metrics) IncStoreFailure(operation string) {
	if m != nil {
		m.StoreFailures.WithLabelValues(operation).Inc()
	}
}

// ObserveHTTP records one request's latency.
func (m *Metrics) ObserveHTTP(method, route, status string, d time.Duration) {
	if m != nil {
		m.HTTPLatency.WithLabelValues(method, route, status).Observe(d.Seconds())
	}
}

// IncHTTPClient counts one request from a client class.
func (m *Metrics) IncHTTPClient(class string) {
	if m != nil {
		m.HTTPClients.WithLabelValues(class).Inc()
	}
}
