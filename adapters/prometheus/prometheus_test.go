package prometheus

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGatewayMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewGatewayMetrics(reg)

	require.NotNil(t, m)

	m.SessionOpened()
	m.FrameSent("label:created")
	m.MessageDropped("email:shared", "filtered")
	m.SessionClosed()

	mfs, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, mfs)

	names := make(map[string]bool)
	for _, mf := range mfs {
		names[mf.GetName()] = true
	}

	assert.True(t, names["socialinbox_sse_sessions"])
	assert.True(t, names["socialinbox_sse_sessions_total"])
	assert.True(t, names["socialinbox_sse_frames_total"])
	assert.True(t, names["socialinbox_sse_dropped_total"])
}

func TestNewRecorderMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewRecorderMetrics(reg)

	require.NotNil(t, m)

	m.ActivityRecorded(true, true)
	m.ActivityRecorded(false, false)
	m.ForwardPublishFailed("email:shared")

	mfs, err := reg.Gather()
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, mf := range mfs {
		names[mf.GetName()] = true
	}

	assert.True(t, names["socialinbox_activities_total"])
	assert.True(t, names["socialinbox_activity_forward_failures_total"])
}

func TestNewAllMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewAllMetrics(reg)

	require.NotNil(t, m)
	require.NotNil(t, m.Gateway)
	require.NotNil(t, m.Recorder)

	m.Gateway.FrameSent("ping")
	m.Recorder.ActivityRecorded(false, true)

	mfs, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, mfs)
}

func TestBoolToStr(t *testing.T) {
	assert.Equal(t, "true", boolToStr(true))
	assert.Equal(t, "false", boolToStr(false))
}
