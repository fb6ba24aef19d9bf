package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/fabienmoyon/socialInbox/core/gateway"
)

// gatewayMetrics implements gateway.SessionMetrics using Prometheus.
type gatewayMetrics struct {
	sessionsActive prometheus.Gauge
	sessionsTotal  prometheus.Counter
	framesTotal    *prometheus.CounterVec
	droppedTotal   *prometheus.CounterVec
}

// NewGatewayMetrics creates a new Prometheus implementation of SessionMetrics.
func NewGatewayMetrics(reg prometheus.Registerer) gateway.SessionMetrics {
	m := &gatewayMetrics{
		sessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "socialinbox_sse_sessions",
			Help: "Number of currently connected SSE sessions",
		}),

		sessionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "socialinbox_sse_sessions_total",
			Help: "Total number of SSE sessions opened",
		}),

		framesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "socialinbox_sse_frames_total",
			Help: "Total number of frames delivered to clients",
		}, []string{"event"}),

		droppedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "socialinbox_sse_dropped_total",
			Help: "Total number of bus messages dropped before delivery",
		}, []string{"event", "reason"}),
	}

	reg.MustRegister(
		m.sessionsActive,
		m.sessionsTotal,
		m.framesTotal,
		m.droppedTotal,
	)

	return m
}

func (m *gatewayMetrics) SessionOpened() {
	m.sessionsActive.Inc()
	m.sessionsTotal.Inc()
}

func (m *gatewayMetrics) SessionClosed() {
	m.sessionsActive.Dec()
}

func (m *gatewayMetrics) FrameSent(eventType string) {
	m.framesTotal.WithLabelValues(eventType).Inc()
}

func (m *gatewayMetrics) MessageDropped(eventType string, reason string) {
	m.droppedTotal.WithLabelValues(eventType, reason).Inc()
}

var _ gateway.SessionMetrics = (*gatewayMetrics)(nil)
