package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const minimalYAML = `
channels:
  can: 17
  plastic: 27
camera:
  devices: ["/dev/video1", "/dev/video0", "/dev/video2"]
`

func TestLoad_AppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Peripheral.ID != "pi" {
		t.Errorf("peripheral id = %q, want pi", cfg.Peripheral.ID)
	}
	if cfg.PeerTimeout() != 5*time.Second {
		t.Errorf("peer timeout = %v, want 5s", cfg.PeerTimeout())
	}
	if cfg.CanDuration() != time.Second || cfg.PlasticDuration() != 2*time.Second {
		t.Errorf("durations = %v/%v, want 1s/2s", cfg.CanDuration(), cfg.PlasticDuration())
	}
	if cfg.Camera.WidthPx != 640 || cfg.Camera.HeightPx != 480 {
		t.Errorf("frame size = %dx%d, want 640x480", cfg.Camera.WidthPx, cfg.Camera.HeightPx)
	}
	if cfg.Listen.Orchestrator != ":5000" || cfg.Listen.Peripheral != ":5001" {
		t.Errorf("listen = %q/%q, want :5000/:5001", cfg.Listen.Orchestrator, cfg.Listen.Peripheral)
	}
	if len(cfg.Camera.Command) == 0 || cfg.Camera.Command[0] != "fswebcam" {
		t.Errorf("default capture command = %v, want fswebcam template", cfg.Camera.Command)
	}
}

func TestLoad_FullFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
peripheral:
  id: shed-pi
  base_url: http://192.168.1.42:5001
  timeout_ms: 2500
channels:
  can: 5
  plastic: 6
durations:
  can_ms: 750
  plastic_ms: 1500
camera:
  devices: ["/dev/video0"]
  width_px: 1280
  height_px: 720
engine:
  endpoint: http://127.0.0.1:8080
  timeout_ms: 3000
listen:
  orchestrator: ":8000"
  peripheral: ":8001"
defaults:
  debug_level: 2
  mock_gpio: true
`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Peripheral.ID != "shed-pi" || cfg.Peripheral.BaseURL != "http://192.168.1.42:5001" {
		t.Errorf("peripheral = %+v", cfg.Peripheral)
	}
	if cfg.PeerTimeout() != 2500*time.Millisecond {
		t.Errorf("peer timeout = %v, want 2.5s", cfg.PeerTimeout())
	}
	if cfg.CanDuration() != 750*time.Millisecond || cfg.PlasticDuration() != 1500*time.Millisecond {
		t.Errorf("durations = %v/%v", cfg.CanDuration(), cfg.PlasticDuration())
	}
	if cfg.Camera.WidthPx != 1280 || cfg.Camera.HeightPx != 720 {
		t.Errorf("frame size = %dx%d, want 1280x720", cfg.Camera.WidthPx, cfg.Camera.HeightPx)
	}
	if cfg.EngineTimeout() != 3*time.Second {
		t.Errorf("engine timeout = %v, want 3s", cfg.EngineTimeout())
	}
	if !cfg.Defaults.MockGPIO || cfg.Defaults.DebugLevel != 2 {
		t.Errorf("defaults = %+v", cfg.Defaults)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("CHANNEL_CAN", "22")
	t.Setenv("PERIPHERAL_URL", "http://10.0.0.9:5001")
	t.Setenv("CAMERA_DEVICES", "/dev/video9,/dev/video8")

	cfg, err := Load(writeConfig(t, minimalYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Channels.Can != 22 {
		t.Errorf("channels.can = %d, want env override 22", cfg.Channels.Can)
	}
	if cfg.Peripheral.BaseURL != "http://10.0.0.9:5001" {
		t.Errorf("base url = %q, want env override", cfg.Peripheral.BaseURL)
	}
	want := []string{"/dev/video9", "/dev/video8"}
	if len(cfg.Camera.Devices) != 2 || cfg.Camera.Devices[0] != want[0] || cfg.Camera.Devices[1] != want[1] {
		t.Errorf("devices = %v, want %v", cfg.Camera.Devices, want)
	}
}

func TestLoad_ValidationErrors(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{
			"missing_channels",
			`
camera:
  devices: ["/dev/video0"]
`,
		},
		{
			"duplicate_channel_pins",
			`
channels:
  can: 17
  plastic: 17
camera:
  devices: ["/dev/video0"]
`,
		},
		{
			"no_camera_devices",
			`
channels:
  can: 17
  plastic: 27
`,
		},
		{
			"mock_p_out_of_range",
			`
channels:
  can: 17
  plastic: 27
camera:
  devices: ["/dev/video0"]
engine:
  mock: true
  mock_p: 1.5
`,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tc.yaml)); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func TestLoad_MockCameraAllowsEmptyDeviceList(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
channels:
  can: 17
  plastic: 27
defaults:
  mock_camera: true
`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.Defaults.MockCamera {
		t.Error("mock_camera not set")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for missing file, got nil")
	}
}
