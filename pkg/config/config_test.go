package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	var conf Config
	require.NoError(t, LoadConfig(&conf, ""))

	assert.Equal(t, "0.0.0.0", conf.Stream.BindAddress)
	assert.Equal(t, 11000, conf.Stream.VideoPort)
	assert.Equal(t, 11001, conf.Stream.AudioPort)
	assert.True(t, conf.Stream.Audio)
	assert.Equal(t, 8, conf.Stream.Window)
	assert.Equal(t, 2, conf.Stream.Lookahead)
	assert.Equal(t, 2*time.Second, conf.Stream.StallTimeout)
	assert.Equal(t, 200*time.Millisecond, conf.Stream.AudioBuffer)
	assert.True(t, conf.Stream.DcFilter)

	assert.Equal(t, "rest", conf.Device.Control)
	assert.True(t, conf.Device.AutoStream)
	assert.Equal(t, 5*time.Second, conf.Device.Timeout)

	assert.Equal(t, 2, conf.Display.Scale)
	assert.False(t, conf.Display.Headless)

	assert.Equal(t, 1, conf.Capture.Scale)

	assert.Equal(t, 6601, conf.Monitoring.Port)
	assert.False(t, conf.Monitoring.IsEnabled())
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("U64VIEW_STREAM_VIDEOPORT", "12000")
	t.Setenv("U64VIEW_DEVICE_HOST", "10.0.0.9")

	var conf Config
	require.NoError(t, LoadConfig(&conf, ""))
	assert.Equal(t, 12000, conf.Stream.VideoPort)
	assert.Equal(t, "10.0.0.9", conf.Device.Host)
}

func TestMonitoringIsEnabled(t *testing.T) {
	m := Monitoring{}
	assert.False(t, m.IsEnabled())
	m.MetricEnabled = true
	assert.True(t, m.IsEnabled())
	m = Monitoring{ProfilingEnabled: true}
	assert.True(t, m.IsEnabled())
	m = Monitoring{StatsPushEnabled: true}
	assert.True(t, m.IsEnabled())
}
