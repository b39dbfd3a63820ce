package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// PeripheralConfig identifies the remote node and how to reach it.
type PeripheralConfig struct {
	ID        string `yaml:"id" env:"PERIPHERAL_ID"`
	BaseURL   string `yaml:"base_url" env:"PERIPHERAL_URL"` // e.g. http://192.168.1.42:5001
	TimeoutMs int    `yaml:"timeout_ms" env:"PERIPHERAL_TIMEOUT_MS"`
}

// ChannelsConfig maps each class to a GPIO output pin (BCM numbering).
type ChannelsConfig struct {
	Can     int `yaml:"can" env:"CHANNEL_CAN"`
	Plastic int `yaml:"plastic" env:"CHANNEL_PLASTIC"`
}

// DurationsConfig holds the fixed per-class motor run times.
// Durations come from configuration, never from request payloads.
type DurationsConfig struct {
	CanMs     int `yaml:"can_ms" env:"DURATION_CAN_MS"`         // 1000ms = 45 degrees
	PlasticMs int `yaml:"plastic_ms" env:"DURATION_PLASTIC_MS"` // 2000ms = 90 degrees
}

// CameraConfig describes the local capture chain.
// Devices is the ordered probe list; there is no built-in fallback order.
type CameraConfig struct {
	Devices  []string `yaml:"devices" env:"CAMERA_DEVICES" envSeparator:","`
	WidthPx  int      `yaml:"width_px" env:"CAMERA_WIDTH"`
	HeightPx int      `yaml:"height_px" env:"CAMERA_HEIGHT"`
	// Command is the frame-grab command template. Placeholders:
	// {device}, {width}, {height}. It must write one JPEG to stdout.
	Command []string `yaml:"command"`
}

// EngineConfig describes the inference collaborator.
type EngineConfig struct {
	Endpoint  string  `yaml:"endpoint" env:"ENGINE_ENDPOINT"`
	TimeoutMs int     `yaml:"timeout_ms" env:"ENGINE_TIMEOUT_MS"`
	Mock      bool    `yaml:"mock" env:"ENGINE_MOCK"` // fixed-probability engine (dev/test)
	MockP     float64 `yaml:"mock_p" env:"ENGINE_MOCK_P"`
}

// ListenConfig holds the bind addresses of the two HTTP surfaces.
type ListenConfig struct {
	Orchestrator string `yaml:"orchestrator" env:"LISTEN_ORCHESTRATOR"`
	Peripheral   string `yaml:"peripheral" env:"LISTEN_PERIPHERAL"`
}

// DefaultsConfig contains generic parameters.
type DefaultsConfig struct {
	DebugLevel int  `yaml:"debug_level" env:"DEBUG_LEVEL"` // 0-4 (0=off, 1=info, 2=live, 3=verbose, 4=trace)
	MockGPIO   bool `yaml:"mock_gpio" env:"MOCK_GPIO"`     // use mock GPIO (true=dev/test, false=real Raspberry Pi)
	MockCamera bool `yaml:"mock_camera" env:"MOCK_CAMERA"` // use synthetic frames instead of a real device
}

// Config aggregates all application configuration. It is loaded once at
// startup and treated as immutable afterwards.
type Config struct {
	Peripheral PeripheralConfig `yaml:"peripheral"`
	Channels   ChannelsConfig   `yaml:"channels"`
	Durations  DurationsConfig  `yaml:"durations"`
	Camera     CameraConfig     `yaml:"camera"`
	Engine     EngineConfig     `yaml:"engine"`
	Listen     ListenConfig     `yaml:"listen"`
	Defaults   DefaultsConfig   `yaml:"defaults"`
}

// Load reads a YAML file, layers environment overrides on top, and
// validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal yaml: %w", err)
	}

	// Environment variables take priority over the file.
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env overrides: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Peripheral.ID == "" {
		c.Peripheral.ID = "pi"
	}
	if c.Peripheral.TimeoutMs <= 0 {
		c.Peripheral.TimeoutMs = 5000
	}
	if c.Channels.Can <= 0 || c.Channels.Plastic <= 0 {
		return fmt.Errorf("channels.can and channels.plastic must be set to GPIO pins")
	}
	if c.Channels.Can == c.Channels.Plastic {
		return fmt.Errorf("channels.can and channels.plastic must differ, both are %d", c.Channels.Can)
	}
	if c.Durations.CanMs <= 0 {
		c.Durations.CanMs = 1000
	}
	if c.Durations.PlasticMs <= 0 {
		c.Durations.PlasticMs = 2000
	}
	if c.Camera.WidthPx <= 0 {
		c.Camera.WidthPx = 640
	}
	if c.Camera.HeightPx <= 0 {
		c.Camera.HeightPx = 480
	}
	if !c.Defaults.MockCamera && len(c.Camera.Devices) == 0 {
		return fmt.Errorf("camera.devices must list at least one candidate device")
	}
	if len(c.Camera.Command) == 0 {
		c.Camera.Command = []string{
			"fswebcam", "-d", "{device}",
			"-r", "{width}x{height}",
			"--jpeg", "95", "--no-banner", "-",
		}
	}
	if c.Engine.Mock {
		if c.Engine.MockP < 0 || c.Engine.MockP > 1 {
			return fmt.Errorf("engine.mock_p must be within [0, 1], got %g", c.Engine.MockP)
		}
	}
	if c.Engine.TimeoutMs <= 0 {
		c.Engine.TimeoutMs = 10000
	}
	if c.Listen.Orchestrator == "" {
		c.Listen.Orchestrator = ":5000"
	}
	if c.Listen.Peripheral == "" {
		c.Listen.Peripheral = ":5001"
	}
	return nil
}

// PeerTimeout returns the bounded timeout for wire calls to the peripheral.
func (c *Config) PeerTimeout() time.Duration {
	return time.Duration(c.Peripheral.TimeoutMs) * time.Millisecond
}

// EngineTimeout returns the bounded timeout for inference calls.
func (c *Config) EngineTimeout() time.Duration {
	return time.Duration(c.Engine.TimeoutMs) * time.Millisecond
}

// CanDuration returns the fixed can motor run time.
func (c *Config) CanDuration() time.Duration {
	return time.Duration(c.Durations.CanMs) * time.Millisecond
}

// PlasticDuration returns the fixed plastic motor run time.
func (c *Config) PlasticDuration() time.Duration {
	return time.Duration(c.Durations.PlasticMs) * time.Millisecond
}
