// Package config loads the posewatch YAML configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/swdee/go-posewatch/dataset"
	"github.com/swdee/go-posewatch/emitter"
	"github.com/swdee/go-posewatch/landmark"
	"github.com/swdee/go-posewatch/window"
)

// Config represents the complete posewatch configuration
type Config struct {
	// Source is a camera index such as "0", a video file or a stream URL
	Source string `yaml:"source"`
	// Platform is the Rockchip SoC, rk3588, rk3576 or rk3566 etc
	Platform string `yaml:"platform"`
	// CPUCores selects the fast or slow CPU cores, empty leaves affinity alone
	CPUCores string        `yaml:"cpu_cores"`
	Models   ModelsConfig  `yaml:"models"`
	Window   WindowConfig  `yaml:"window"`
	Capture  CaptureConfig `yaml:"capture"`
	Present  PresentConfig `yaml:"present"`
	MQTT     MQTTConfig    `yaml:"mqtt"`
	Dataset  DatasetConfig `yaml:"dataset"`
}

// ModelsConfig contains the model artifact paths
type ModelsConfig struct {
	// Pose is the YOLOv8-pose RKNN model
	Pose string `yaml:"pose"`
	// Activity is the LSTM RKNN model
	Activity string `yaml:"activity"`
	// Labels is the label file of the activity model, empty uses the
	// built in Falling, Sitting, Standing ordering
	Labels string `yaml:"labels"`
	// PoolSize is the number of pose runtimes to spread over the NPU cores
	PoolSize int `yaml:"pool_size"`
	// BoxThreshold is the minimum person score
	BoxThreshold float32 `yaml:"box_threshold"`
	// NMSThreshold is the box overlap above which weaker people are dropped
	NMSThreshold float32 `yaml:"nms_threshold"`
}

// WindowConfig contains the activity window settings
type WindowConfig struct {
	// Capacity is the number of frames W classified at once
	Capacity int `yaml:"capacity"`
	// Features is the vector length F
	Features int `yaml:"features"`
	// Mode is sliding or batch
	Mode string `yaml:"mode"`
	// Layout is coco17 or blazepose33
	Layout string `yaml:"layout"`
}

// CaptureConfig contains the capture loop settings
type CaptureConfig struct {
	Interval time.Duration `yaml:"interval"`
	Buffer   int           `yaml:"buffer"`
}

// PresentConfig contains the presentation settings
type PresentConfig struct {
	// Window shows frames in a desktop window
	Window bool   `yaml:"window"`
	Title  string `yaml:"title"`
	// MJPEG is the listen address of the MJPEG stream, empty disables it
	MJPEG string `yaml:"mjpeg"`
	// Font is a TTF file for the status banner, empty uses a built in face
	Font     string  `yaml:"font"`
	FontSize float64 `yaml:"font_size"`
	// Thickness of skeleton lines
	Thickness int `yaml:"thickness"`
	// OnChange only logs results when the label changes
	OnChange bool `yaml:"on_change"`
}

// MQTTConfig contains the result emitter settings
type MQTTConfig struct {
	Enabled        bool `yaml:"enabled"`
	emitter.Config `yaml:",inline"`
}

// DatasetConfig contains the training data capture settings
type DatasetConfig struct {
	Dir                    string `yaml:"dir"`
	dataset.RecorderConfig `yaml:",inline"`
}

// Default returns the configuration used when no file is given
func Default() *Config {
	return &Config{
		Source:   "0",
		Platform: "rk3588",
		Models: ModelsConfig{
			Pose:         "../data/models/rk3588/yolov8n-pose-rk3588.rknn",
			Activity:     "../data/models/rk3588/lstm-activity-rk3588.rknn",
			PoolSize:     3,
			BoxThreshold: 0.5,
			NMSThreshold: 0.4,
		},
		Window: WindowConfig{
			Capacity: 10,
			Features: landmark.DefaultFeatures,
			Mode:     window.Sliding.String(),
			Layout:   landmark.BlazePose33.String(),
		},
		Capture: CaptureConfig{
			Interval: 30 * time.Millisecond,
			Buffer:   4,
		},
		Present: PresentConfig{
			Title:     "posewatch",
			MJPEG:     ":8080",
			FontSize:  24,
			Thickness: 2,
		},
		MQTT: MQTTConfig{
			Config: emitter.Config{
				Broker:   "localhost:1883",
				Instance: "posewatch",
				Prefix:   "posewatch",
				QoS:      0,
				AlertQoS: 1,
				Timeout:  2 * time.Second,
			},
		},
		Dataset: DatasetConfig{
			Dir:            "data",
			RecorderConfig: dataset.DefaultRecorderConfig(),
		},
	}
}

// Load reads a YAML configuration file over the defaults
func Load(path string) (*Config, error) {

	data, err := os.ReadFile(path)

	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks the configuration
func (c *Config) Validate() error {

	if c.Source == "" {
		return fmt.Errorf("source is required")
	}

	if c.Platform == "" {
		return fmt.Errorf("platform is required")
	}

	if c.Models.Pose == "" || c.Models.Activity == "" {
		return fmt.Errorf("models.pose and models.activity are required")
	}

	if c.Models.PoolSize <= 0 {
		return fmt.Errorf("models.pool_size must be > 0")
	}

	if c.Models.BoxThreshold <= 0 || c.Models.BoxThreshold >= 1 {
		return fmt.Errorf("models.box_threshold must be between 0 and 1")
	}

	if c.Window.Capacity <= 0 {
		return fmt.Errorf("window.capacity must be > 0")
	}

	if c.Window.Features <= 0 {
		return fmt.Errorf("window.features must be > 0")
	}

	if _, err := c.WindowMode(); err != nil {
		return err
	}

	if _, err := c.LandmarkLayout(); err != nil {
		return err
	}

	if c.Capture.Interval < 0 {
		return fmt.Errorf("capture.interval must not be negative")
	}

	if c.Capture.Buffer <= 0 {
		c.Capture.Buffer = 4
	}

	if c.MQTT.Enabled {
		if c.MQTT.Broker == "" {
			return fmt.Errorf("mqtt.broker is required when mqtt is enabled")
		}

		if c.MQTT.QoS > 2 || c.MQTT.AlertQoS > 2 {
			return fmt.Errorf("mqtt qos must be 0, 1 or 2")
		}
	}

	if c.Dataset.MaxFrames <= 0 || c.Dataset.MaxDuration <= 0 {
		return fmt.Errorf("dataset.max_frames and dataset.max_duration must be > 0")
	}

	return nil
}

// WindowMode returns the parsed window mode
func (c *Config) WindowMode() (window.Mode, error) {
	return window.ParseMode(c.Window.Mode)
}

// LandmarkLayout returns the parsed landmark layout
func (c *Config) LandmarkLayout() (landmark.Layout, error) {
	return landmark.ParseLayout(c.Window.Layout)
}
