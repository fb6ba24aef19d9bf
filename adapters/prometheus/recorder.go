package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/fabienmoyon/socialInbox/core/activity"
)

// recorderMetrics implements activity.RecorderMetrics using Prometheus.
type recorderMetrics struct {
	activitiesTotal      *prometheus.CounterVec
	forwardFailuresTotal *prometheus.CounterVec
}

// NewRecorderMetrics creates a new Prometheus implementation of RecorderMetrics.
func NewRecorderMetrics(reg prometheus.Registerer) activity.RecorderMetrics {
	m := &recorderMetrics{
		activitiesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "socialinbox_activities_total",
			Help: "Total number of activity append attempts",
		}, []string{"scoped", "success"}),

		forwardFailuresTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "socialinbox_activity_forward_failures_total",
			Help: "Total number of notifications that failed to publish after a successful record",
		}, []string{"event"}),
	}

	reg.MustRegister(
		m.activitiesTotal,
		m.forwardFailuresTotal,
	)

	return m
}

func (m *recorderMetrics) ActivityRecorded(scoped bool, success bool) {
	m.activitiesTotal.WithLabelValues(boolToStr(scoped), boolToStr(success)).Inc()
}

func (m *recorderMetrics) ForwardPublishFailed(eventType string) {
	m.forwardFailuresTotal.WithLabelValues(eventType).Inc()
}

var _ activity.RecorderMetrics = (*recorderMetrics)(nil)
