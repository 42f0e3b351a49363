package notify

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Drop reasons recorded on the dropped counter.
const (
	DropBufferFull  = "buffer_full"
	DropClosed      = "closed"
	DropCircuitOpen = "circuit_open"
)

// Metrics holds Prometheus metrics for event publishing.
type Metrics struct {
	Enqueued     *prometheus.CounterVec
	Delivered    *prometheus.CounterVec
	Failed       *prometheus.CounterVec
	Dropped      *prometheus.CounterVec
	CircuitState prometheus.Gauge
}

// NewMetrics registers publisher metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Enqueued: f.NewCounterVec(prometheus.CounterOpts{
			Name: "cardshare_notify_enqueued_total",
			Help: "Events accepted into the publish buffer",
		}, []string{"channel"}),
		Delivered: f.NewCounterVec(prometheus.CounterOpts{
			Name: "cardshare_notify_delivered_total",
			Help: "Events delivered to the sink",
		}, []string{"channel"}),
		Failed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "cardshare_notify_failed_total",
			Help: "Events abandoned after exhausting delivery attempts",
		}, []string{"channel"}),
		Dropped: f.NewCounterVec(prometheus.CounterOpts{
			Name: "cardshare_notify_dropped_total",
			Help: "Events dropped without a delivery attempt",
		}, []string{"channel", "reason"}),
		CircuitState: f.NewGauge(prometheus.GaugeOpts{
			Name: "cardshare_notify_circuit_state",
			Help: "Sink circuit breaker state (0=closed, 1=open, 2=half-open)",
		}),
	}
}

func (m *Metrics) incEnqueued(channel string) {
	if m != nil {
		m.Enqueued.WithLabelValues(channel).Inc()
	}
}

func (m *Metrics) incDelivered(channel string) {
	if m != nil {
		m.Delivered.WithLabelValues(channel).Inc()
	}
}

func (m *Metrics) incFailed(channel string) {
	if m != nil {
		m.Failed.WithLabelValues(channel).Inc()
	}
}

func (m *Metrics) incDropped(channel, reason string) {
	if m != nil {
		m.Dropped.WithLabelValues(channel, reason).Inc()
	}
}

func (m *Metrics) setCircuitState(state CircuitState) {
	if m != nil {
		m.CircuitState.Set(float64(state))
	}
}
