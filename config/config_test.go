package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swdee/go-posewatch/landmark"
	"github.com/swdee/go-posewatch/window"
)

func writeConfig(t *testing.T, body string) string {

	path := filepath.Join(t.TempDir(), "posewatch.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	return path
}

func TestDefaultIsValid(t *testing.T) {

	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 10, cfg.Window.Capacity)
	assert.Equal(t, landmark.DefaultFeatures, cfg.Window.Features)
	assert.Equal(t, 100, cfg.Dataset.MaxFrames)
	assert.Equal(t, 10*time.Second, cfg.Dataset.MaxDuration)
}

func TestLoadOverridesDefaults(t *testing.T) {

	path := writeConfig(t, `
source: rtsp://camera.local/stream
platform: rk3576
window:
  capacity: 30
  mode: batch
  layout: coco17
  features: 68
capture:
  interval: 50ms
mqtt:
  enabled: true
  broker: broker.local:1883
  instance: hallway
  alert_qos: 2
dataset:
  dir: /tmp/training
  max_frames: 50
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "rtsp://camera.local/stream", cfg.Source)
	assert.Equal(t, "rk3576", cfg.Platform)
	assert.Equal(t, 30, cfg.Window.Capacity)
	assert.Equal(t, 68, cfg.Window.Features)
	assert.Equal(t, 50*time.Millisecond, cfg.Capture.Interval)

	mode, err := cfg.WindowMode()
	require.NoError(t, err)
	assert.Equal(t, window.Batch, mode)

	layout, err := cfg.LandmarkLayout()
	require.NoError(t, err)
	assert.Equal(t, landmark.COCO17, layout)

	assert.True(t, cfg.MQTT.Enabled)
	assert.Equal(t, "broker.local:1883", cfg.MQTT.Broker)
	assert.Equal(t, "hallway", cfg.MQTT.Instance)
	assert.Equal(t, byte(2), cfg.MQTT.AlertQoS)
	// untouched values keep their defaults
	assert.Equal(t, "posewatch", cfg.MQTT.Prefix)

	assert.Equal(t, "/tmp/training", cfg.Dataset.Dir)
	assert.Equal(t, 50, cfg.Dataset.MaxFrames)
	assert.Equal(t, 10*time.Second, cfg.Dataset.MaxDuration)
}

func TestValidate(t *testing.T) {

	tests := []struct {
		name   string
		modify func(c *Config)
		errMsg string
	}{
		{"no source", func(c *Config) { c.Source = "" }, "source is required"},
		{"no activity model", func(c *Config) { c.Models.Activity = "" }, "models.pose"},
		{"zero capacity", func(c *Config) { c.Window.Capacity = 0 }, "window.capacity"},
		{"negative features", func(c *Config) { c.Window.Features = -1 }, "window.features"},
		{"bad mode", func(c *Config) { c.Window.Mode = "rolling" }, "unknown window mode"},
		{"bad layout", func(c *Config) { c.Window.Layout = "openpose" }, "unknown landmark layout"},
		{"bad threshold", func(c *Config) { c.Models.BoxThreshold = 1.5 }, "box_threshold"},
		{"mqtt without broker", func(c *Config) {
			c.MQTT.Enabled = true
			c.MQTT.Broker = ""
		}, "mqtt.broker"},
		{"mqtt bad qos", func(c *Config) {
			c.MQTT.Enabled = true
			c.MQTT.QoS = 3
		}, "qos"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.errMsg)
		})
	}
}

func TestLoadErrors(t *testing.T) {

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read")

	_, err = Load(writeConfig(t, "window: [1, 2"))
	assert.ErrorContains(t, err, "failed to parse")

	_, err = Load(writeConfig(t, "window:\n  capacity: -3\n"))
	assert.ErrorContains(t, err, "invalid configuration")
}
