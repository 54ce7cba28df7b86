package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Camera types understood by hw/camera.
const (
	CameraGPhoto2      = "gphoto2"
	CameraNikonD90GPIO = "nikon_d90_gpio"
)

// CameraConfig describes how to drive the capture device.
// Type selects a concrete implementation.
type CameraConfig struct {
	Type           string `yaml:"type" env:"GOLAPSE_CAMERA_TYPE"`
	GPhoto2Path    string `yaml:"gphoto2_path" env:"GOLAPSE_GPHOTO2_PATH"` // gphoto2 binary
	FocusPin       int    `yaml:"focus_pin"`                               // GPIO pin for FOCUS line (BCM)
	ShutterPin     int    `yaml:"shutter_pin"`                             // GPIO pin for SHUTTER line (BCM)
	FocusDelayMs   int    `yaml:"focus_delay_ms"`                          // autofocus delay (ms)
	ShutterDelayMs int    `yaml:"shutter_delay_ms"`                        // shutter hold time (ms)
}

// SessionConfig controls where and how captures are written.
type SessionConfig struct {
	OutputDir  string  `yaml:"output_dir" env:"GOLAPSE_OUTPUT_DIR"`
	DirPrefix  string  `yaml:"dir_prefix"`  // session directory prefix, e.g. "pics_"
	FilePrefix string  `yaml:"file_prefix"` // capture file prefix, e.g. "capt_"
	ImgSizeMB  float64 `yaml:"img_size_mb" env:"GOLAPSE_IMG_SIZE_MB"`
}

// PlacesConfig points to an optional YAML file merged over the built-in places.
type PlacesConfig struct {
	ExtraFile string `yaml:"extra_file" env:"GOLAPSE_PLACES_FILE"`
}

// JournalConfig controls the SQLite capture history.
type JournalConfig struct {
	Disabled bool   `yaml:"disabled" env:"GOLAPSE_JOURNAL_DISABLED"`
	Path     string `yaml:"path" env:"GOLAPSE_JOURNAL_PATH"`
}

// WebConfig controls the optional status server. Port 0 = disabled.
type WebConfig struct {
	Port int `yaml:"port" env:"GOLAPSE_WEB_PORT"`
}

// DefaultsConfig contains generic parameters.
type DefaultsConfig struct {
	DebugLevel int  `yaml:"debug_level" env:"GOLAPSE_DEBUG_LEVEL"` // 0-4 (0=off, 1=info, 2=live, 3=verbose, 4=trace)
	MockGPIO   bool `yaml:"mock_gpio" env:"GOLAPSE_MOCK_GPIO"`     // use mock GPIO (true=dev/test)
}

// Config aggregates all application configuration.
type Config struct {
	Camera   CameraConfig   `yaml:"camera"`
	Session  SessionConfig  `yaml:"session"`
	Places   PlacesConfig   `yaml:"places"`
	Journal  JournalConfig  `yaml:"journal"`
	Web      WebConfig      `yaml:"web"`
	Defaults DefaultsConfig `yaml:"defaults"`
}

// Load reads a YAML file, applies GOLAPSE_* environment overrides and
// returns the validated configuration. A missing file yields defaults.
func Load(path string) (*Config, error) {
	var cfg Config
	cfg.Defaults.DebugLevel = LevelUnset

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("unmarshal yaml: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("read config file: %w", err)
	}

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LevelUnset marks a debug level that was never configured.
const LevelUnset = -1

func (c *Config) applyDefaults() error {
	if c.Camera.Type == "" {
		c.Camera.Type = CameraGPhoto2
	}
	switch c.Camera.Type {
	case CameraGPhoto2:
		if c.Camera.GPhoto2Path == "" {
			c.Camera.GPhoto2Path = "gphoto2"
		}
	case CameraNikonD90GPIO:
		if c.Camera.FocusPin <= 0 || c.Camera.ShutterPin <= 0 {
			return fmt.Errorf("camera.focus_pin and camera.shutter_pin are required for %s", CameraNikonD90GPIO)
		}
		if c.Camera.FocusPin == c.Camera.ShutterPin {
			return fmt.Errorf("camera.focus_pin and camera.shutter_pin must differ, both are %d", c.Camera.FocusPin)
		}
	default:
		return fmt.Errorf("unsupported camera type: %s", c.Camera.Type)
	}
	if c.Camera.FocusDelayMs <= 0 {
		c.Camera.FocusDelayMs = 500 // 500ms for autofocus
	}
	if c.Camera.ShutterDelayMs <= 0 {
		c.Camera.ShutterDelayMs = 200 // 200ms shutter hold
	}

	if c.Session.OutputDir == "" {
		c.Session.OutputDir = "."
	}
	if c.Session.DirPrefix == "" {
		c.Session.DirPrefix = "pics_"
	}
	if c.Session.FilePrefix == "" {
		c.Session.FilePrefix = "capt_"
	}
	if c.Session.ImgSizeMB < 0 {
		return fmt.Errorf("session.img_size_mb must be > 0, got %g", c.Session.ImgSizeMB)
	}
	if c.Session.ImgSizeMB == 0 {
		c.Session.ImgSizeMB = 10
	}

	if c.Journal.Path == "" {
		c.Journal.Path = DefaultJournalPath()
	}

	if c.Web.Port < 0 || c.Web.Port > 65535 {
		return fmt.Errorf("web.port must be 0-65535, got %d", c.Web.Port)
	}

	if c.Defaults.DebugLevel == LevelUnset {
		c.Defaults.DebugLevel = 1
	}
	if c.Defaults.DebugLevel < 0 || c.Defaults.DebugLevel > 4 {
		return fmt.Errorf("defaults.debug_level must be between 0 and 4, got %d", c.Defaults.DebugLevel)
	}
	return nil
}

// FocusDelay returns the autofocus delay duration.
func (c *Config) FocusDelay() time.Duration {
	return time.Duration(c.Camera.FocusDelayMs) * time.Millisecond
}

// ShutterDelay returns the shutter hold duration.
func (c *Config) ShutterDelay() time.Duration {
	return time.Duration(c.Camera.ShutterDelayMs) * time.Millisecond
}
