package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.DeviceName != "ESP32" {
		t.Errorf("DeviceName = %q, want %q", cfg.DeviceName, "ESP32")
	}
	if cfg.ServiceUUID != "4fafc201-1fb5-459e-8fcc-c5c9c331914b" {
		t.Errorf("ServiceUUID = %q", cfg.ServiceUUID)
	}
	if cfg.CharacteristicUUID != "beefcafe-36e1-4688-b7f5-00000000000b" {
		t.Errorf("CharacteristicUUID = %q", cfg.CharacteristicUUID)
	}
	if cfg.Mode != ModeServo {
		t.Errorf("Mode = %q, want %q", cfg.Mode, ModeServo)
	}
	if cfg.Timing.NotifyInterval != 2*time.Second {
		t.Errorf("Timing.NotifyInterval = %v, want 2s", cfg.Timing.NotifyInterval)
	}
	if cfg.Timing.AdvertiseSettle != 500*time.Millisecond {
		t.Errorf("Timing.AdvertiseSettle = %v, want 500ms", cfg.Timing.AdvertiseSettle)
	}
	if cfg.Timing.LEDPulse != 100*time.Millisecond {
		t.Errorf("Timing.LEDPulse = %v, want 100ms", cfg.Timing.LEDPulse)
	}
	if !cfg.Calibrate {
		t.Error("Calibrate should default to true")
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "info")
	}
}

func TestLoad(t *testing.T) {
	yamlContent := `
device_name: servo-rig
characteristic_uuid: beb5483e-36e1-4688-b7f5-ea07361b26a8
mode: greeter
pins:
  main: 18
  secondary: 19
  led: 5
timing:
  notify_interval: 1s
  advertise_settle: 250ms
  led_pulse: 50ms
calibrate: false
log_level: debug
`
	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.DeviceName != "servo-rig" {
		t.Errorf("DeviceName = %q, want %q", cfg.DeviceName, "servo-rig")
	}
	if cfg.CharacteristicUUID != "beb5483e-36e1-4688-b7f5-ea07361b26a8" {
		t.Errorf("CharacteristicUUID = %q", cfg.CharacteristicUUID)
	}
	// Fields absent from the file keep their defaults.
	if cfg.ServiceUUID != "4fafc201-1fb5-459e-8fcc-c5c9c331914b" {
		t.Errorf("ServiceUUID = %q, want default", cfg.ServiceUUID)
	}
	if cfg.Mode != ModeGreeter {
		t.Errorf("Mode = %q, want %q", cfg.Mode, ModeGreeter)
	}
	if cfg.Pins.Main != 18 || cfg.Pins.Secondary != 19 || cfg.Pins.LED != 5 {
		t.Errorf("Pins = %+v, want {18 19 5}", cfg.Pins)
	}
	if cfg.Timing.NotifyInterval != time.Second {
		t.Errorf("Timing.NotifyInterval = %v, want 1s", cfg.Timing.NotifyInterval)
	}
	if cfg.Timing.AdvertiseSettle != 250*time.Millisecond {
		t.Errorf("Timing.AdvertiseSettle = %v, want 250ms", cfg.Timing.AdvertiseSettle)
	}
	if cfg.Timing.LEDPulse != 50*time.Millisecond {
		t.Errorf("Timing.LEDPulse = %v, want 50ms", cfg.Timing.LEDPulse)
	}
	if cfg.Timing.CalibrationDelay != time.Second {
		t.Errorf("Timing.CalibrationDelay = %v, want default 1s", cfg.Timing.CalibrationDelay)
	}
	if cfg.Calibrate {
		t.Error("Calibrate = true, want false")
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "debug")
	}
}

func TestLoadFileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	if err == nil {
		t.Error("Load() should return error for nonexistent file")
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte("timing: [unclosed"), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	if _, err := Load(cfgPath); err == nil {
		t.Error("Load() should return error for invalid YAML")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid default config",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "greeter mode",
			modify:  func(c *Config) { c.Mode = ModeGreeter },
			wantErr: false,
		},
		{
			name:    "empty device name",
			modify:  func(c *Config) { c.DeviceName = "" },
			wantErr: true,
		},
		{
			name:    "invalid service uuid",
			modify:  func(c *Config) { c.ServiceUUID = "not-a-uuid" },
			wantErr: true,
		},
		{
			name:    "invalid characteristic uuid",
			modify:  func(c *Config) { c.CharacteristicUUID = "beefcafe" },
			wantErr: true,
		},
		{
			name:    "invalid mode",
			modify:  func(c *Config) { c.Mode = "echo" },
			wantErr: true,
		},
		{
			name:    "negative pin",
			modify:  func(c *Config) { c.Pins.LED = -1 },
			wantErr: true,
		},
		{
			name:    "shared servo pin",
			modify:  func(c *Config) { c.Pins.Secondary = c.Pins.Main },
			wantErr: true,
		},
		{
			name:    "led on servo pin",
			modify:  func(c *Config) { c.Pins.LED = c.Pins.Secondary },
			wantErr: true,
		},
		{
			name:    "zero notify interval",
			modify:  func(c *Config) { c.Timing.NotifyInterval = 0 },
			wantErr: true,
		},
		{
			name:    "zero advertise settle",
			modify:  func(c *Config) { c.Timing.AdvertiseSettle = 0 },
			wantErr: true,
		},
		{
			name:    "zero led pulse",
			modify:  func(c *Config) { c.Timing.LEDPulse = 0 },
			wantErr: true,
		},
		{
			name:    "zero calibration delay",
			modify:  func(c *Config) { c.Timing.CalibrationDelay = 0 },
			wantErr: true,
		},
		{
			name:    "invalid log level",
			modify:  func(c *Config) { c.LogLevel = "invalid" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestControllerOptions(t *testing.T) {
	cfg := Default()
	cfg.Mode = ModeGreeter
	cfg.Pins.LED = 7
	cfg.Timing.NotifyInterval = 3 * time.Second

	opts := cfg.ControllerOptions()
	if opts.ServoControl {
		t.Error("ServoControl = true in greeter mode")
	}
	if opts.LEDPin != 7 {
		t.Errorf("LEDPin = %d, want 7", opts.LEDPin)
	}
	if opts.NotifyInterval != 3*time.Second {
		t.Errorf("NotifyInterval = %v, want 3s", opts.NotifyInterval)
	}
	if opts.AdvertiseSettle != 500*time.Millisecond {
		t.Errorf("AdvertiseSettle = %v, want 500ms", opts.AdvertiseSettle)
	}

	if !Default().ControllerOptions().ServoControl {
		t.Error("ServoControl = false in servo mode")
	}
}

func TestPeripheralOptionsAndPins(t *testing.T) {
	cfg := Default()
	cfg.DeviceName = "rig"

	p := cfg.PeripheralOptions()
	if p.DeviceName != "rig" || p.ServiceUUID != cfg.ServiceUUID || p.CharacteristicUUID != cfg.CharacteristicUUID {
		t.Errorf("PeripheralOptions() = %+v", p)
	}

	pins := cfg.HardwarePins()
	if pins.Main != cfg.Pins.Main || pins.Secondary != cfg.Pins.Secondary || pins.LED != cfg.Pins.LED {
		t.Errorf("HardwarePins() = %+v, want %+v", pins, cfg.Pins)
	}
}

func TestWriteDefault_CreatesFile(t *testing.T) {
	// Use a temp dir as fake home to avoid touching real config
	tmpHome := t.TempDir()
	t.Setenv("HOME", tmpHome)

	path, err := WriteDefault()
	if err != nil {
		t.Fatalf("WriteDefault() error = %v", err)
	}

	expectedPath := filepath.Join(tmpHome, ".config", "servoble", "config.yaml")
	if path != expectedPath {
		t.Errorf("WriteDefault() path = %q, want %q", path, expectedPath)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read written config: %v", err)
	}
	if !strings.HasPrefix(string(data), "# servoble") {
		t.Error("written config should start with header comment")
	}
	if !strings.Contains(string(data), "notify_interval: 2s") {
		t.Errorf("written config should use duration strings, got:\n%s", data)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		t.Fatalf("written config is not valid YAML: %v", err)
	}
	if cfg.Timing.NotifyInterval != 2*time.Second {
		t.Errorf("written config Timing.NotifyInterval = %v, want 2s", cfg.Timing.NotifyInterval)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("written config does not validate: %v", err)
	}
}

func TestWriteDefault_NoOpIfExists(t *testing.T) {
	tmpHome := t.TempDir()
	t.Setenv("HOME", tmpHome)

	configDir := filepath.Join(tmpHome, ".config", "servoble")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		t.Fatalf("failed to create config dir: %v", err)
	}
	existingContent := []byte("device_name: custom\n")
	configPath := filepath.Join(configDir, "config.yaml")
	if err := os.WriteFile(configPath, existingContent, 0644); err != nil {
		t.Fatalf("failed to write existing config: %v", err)
	}

	path, err := WriteDefault()
	if err != nil {
		t.Fatalf("WriteDefault() error = %v", err)
	}
	if path != "" {
		t.Errorf("WriteDefault() path = %q, want empty string for existing file", path)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatalf("failed to read config: %v", err)
	}
	if string(data) != string(existingContent) {
		t.Error("WriteDefault() should not overwrite existing config file")
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"unknown", slog.LevelInfo}, // defaults to info
		{"", slog.LevelInfo},        // defaults to info
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := ParseLogLevel(tt.input)
			if got != tt.want {
				t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
