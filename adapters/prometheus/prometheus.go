// Package prometheus provides Prometheus implementations of the metric
// interfaces for both halves of the pipeline (gateway sessions, activity
// recorder).
package prometheus

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

func boolToStr(b bool) string { return strconv.FormatBool(b) }

// AllMetrics holds Prometheus implementations for both pipeline halves.
type AllMetrics struct {
	Gateway  *gatewayMetrics
	Recorder *recorderMetrics
}

// NewAllMetrics registers and returns metrics for the whole application.
func NewAllMetrics(reg prometheus.Registerer) *AllMetrics {
	return &AllMetrics{
		Gateway:  NewGatewayMetrics(reg).(*gatewayMetrics),
		Recorder: NewRecorderMetrics(reg).(*recorderMetrics),
	}
}
