package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/chaz8081/servoble/internal/ble"
	"github.com/chaz8081/servoble/internal/controller"
	"github.com/chaz8081/servoble/internal/hardware"
)

// Controller modes.
const (
	ModeServo   = "servo"   // parse servo commands
	ModeGreeter = "greeter" // notify only, log writes
)

// Config holds all application configuration.
type Config struct {
	DeviceName         string       `yaml:"device_name"`
	ServiceUUID        string       `yaml:"service_uuid"`
	CharacteristicUUID string       `yaml:"characteristic_uuid"`
	Mode               string       `yaml:"mode"`
	Pins               PinsConfig   `yaml:"pins"`
	Timing             TimingConfig `yaml:"timing"`
	Calibrate          bool         `yaml:"calibrate"`
	LogLevel           string       `yaml:"log_level"`
}

// PinsConfig holds the output pin numbers.
type PinsConfig struct {
	Main      int `yaml:"main"`
	Secondary int `yaml:"secondary"`
	LED       int `yaml:"led"`
}

// TimingConfig holds controller intervals.
type TimingConfig struct {
	NotifyInterval   time.Duration `yaml:"notify_interval"`
	AdvertiseSettle  time.Duration `yaml:"advertise_settle"`
	LEDPulse         time.Duration `yaml:"led_pulse"`
	CalibrationDelay time.Duration `yaml:"calibration_delay"`
}

// MarshalYAML writes durations as "2s" rather than nanoseconds. Decoding
// needs no counterpart: yaml.v3 parses duration strings natively.
func (t TimingConfig) MarshalYAML() (interface{}, error) {
	return struct {
		NotifyInterval   string `yaml:"notify_interval"`
		AdvertiseSettle  string `yaml:"advertise_settle"`
		LEDPulse         string `yaml:"led_pulse"`
		CalibrationDelay string `yaml:"calibration_delay"`
	}{
		NotifyInterval:   t.NotifyInterval.String(),
		AdvertiseSettle:  t.AdvertiseSettle.String(),
		LEDPulse:         t.LEDPulse.String(),
		CalibrationDelay: t.CalibrationDelay.String(),
	}, nil
}

// DefaultConfigDir returns the default config directory path.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "servoble")
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

// Default returns a Config with sensible default values.
func Default() *Config {
	opts := controller.DefaultOptions()
	pins := hardware.DefaultPins()

	return &Config{
		DeviceName:         ble.DefaultDeviceName,
		ServiceUUID:        ble.ServiceUUID,
		CharacteristicUUID: ble.CharacteristicUUID,
		Mode:               ModeServo,
		Pins: PinsConfig{
			Main:      pins.Main,
			Secondary: pins.Secondary,
			LED:       pins.LED,
		},
		Timing: TimingConfig{
			NotifyInterval:   opts.NotifyInterval,
			AdvertiseSettle:  opts.AdvertiseSettle,
			LEDPulse:         opts.LEDPulse,
			CalibrationDelay: opts.CalibrationDelay,
		},
		Calibrate: true,
		LogLevel:  "info",
	}
}

// Load reads and parses a YAML config file. Missing fields are filled
// with defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	return cfg, nil
}

// Validate checks the config for invalid values.
func (c *Config) Validate() error {
	if c.DeviceName == "" {
		return fmt.Errorf("device_name must not be empty")
	}

	if _, err := uuid.Parse(c.ServiceUUID); err != nil {
		return fmt.Errorf("service_uuid %q is not a valid UUID: %w", c.ServiceUUID, err)
	}
	if _, err := uuid.Parse(c.CharacteristicUUID); err != nil {
		return fmt.Errorf("characteristic_uuid %q is not a valid UUID: %w", c.CharacteristicUUID, err)
	}

	switch c.Mode {
	case ModeServo, ModeGreeter:
	default:
		return fmt.Errorf("mode must be %q or %q, got %q", ModeServo, ModeGreeter, c.Mode)
	}

	if c.Pins.Main < 0 || c.Pins.Secondary < 0 || c.Pins.LED < 0 {
		return fmt.Errorf("pins must be >= 0")
	}
	if c.Pins.Main == c.Pins.Secondary {
		return fmt.Errorf("pins.main and pins.secondary must differ, both are %d", c.Pins.Main)
	}
	if c.Pins.LED == c.Pins.Main || c.Pins.LED == c.Pins.Secondary {
		return fmt.Errorf("pins.led %d collides with a servo pin", c.Pins.LED)
	}

	if c.Timing.NotifyInterval <= 0 {
		return fmt.Errorf("timing.notify_interval must be > 0")
	}
	if c.Timing.AdvertiseSettle <= 0 {
		return fmt.Errorf("timing.advertise_settle must be > 0")
	}
	if c.Timing.LEDPulse <= 0 {
		return fmt.Errorf("timing.led_pulse must be > 0")
	}
	if c.Timing.CalibrationDelay <= 0 {
		return fmt.Errorf("timing.calibration_delay must be > 0")
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be debug, info, warn, or error, got %q", c.LogLevel)
	}

	return nil
}

// ParseLogLevel maps a log_level value to a slog level. Unknown values
// map to info.
func ParseLogLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

const defaultHeader = `# servoble configuration
# Durations use Go syntax (500ms, 2s). mode is "servo" or "greeter".
`

// WriteDefault writes the default config to DefaultConfigPath. It returns
// the written path, or "" if a config file already exists.
func WriteDefault() (string, error) {
	path := DefaultConfigPath()
	if _, err := os.Stat(path); err == nil {
		return "", nil
	}

	data, err := yaml.Marshal(Default())
	if err != nil {
		return "", fmt.Errorf("encoding default config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("creating config dir: %w", err)
	}
	if err := os.WriteFile(path, append([]byte(defaultHeader), data...), 0644); err != nil {
		return "", fmt.Errorf("writing config file: %w", err)
	}
	return path, nil
}

// ControllerOptions maps the config onto controller options.
func (c *Config) ControllerOptions() controller.Options {
	opts := controller.DefaultOptions()
	opts.NotifyInterval = c.Timing.NotifyInterval
	opts.AdvertiseSettle = c.Timing.AdvertiseSettle
	opts.LEDPulse = c.Timing.LEDPulse
	opts.CalibrationDelay = c.Timing.CalibrationDelay
	opts.LEDPin = c.Pins.LED
	opts.ServoControl = c.Mode == ModeServo
	return opts
}

// PeripheralOptions maps the config onto BLE peripheral options.
func (c *Config) PeripheralOptions() ble.PeripheralOptions {
	return ble.PeripheralOptions{
		DeviceName:         c.DeviceName,
		ServiceUUID:        c.ServiceUUID,
		CharacteristicUUID: c.CharacteristicUUID,
	}
}

// HardwarePins maps the config onto driver pin numbers.
func (c *Config) HardwarePins() hardware.Pins {
	return hardware.Pins{
		Main:      c.Pins.Main,
		Secondary: c.Pins.Secondary,
		LED:       c.Pins.LED,
	}
}
