package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/chaz8081/servoble/internal/ble"
	"github.com/chaz8081/servoble/internal/command"
	"github.com/chaz8081/servoble/internal/config"
	"github.com/chaz8081/servoble/internal/console"
	"github.com/chaz8081/servoble/internal/controller"
	"github.com/chaz8081/servoble/internal/hardware"
)

// CLI is the root command structure for servoble.
type CLI struct {
	Config   string `help:"Path to config file (default: ~/.config/servoble/config.yaml)." type:"path"`
	LogLevel string `name:"log-level" help:"Override log_level from the config (debug, info, warn, error)."`

	Serve    ServeCmd    `cmd:"" default:"1" help:"Run the BLE peripheral (default)"`
	Simulate SimulateCmd `cmd:"" help:"Run the controller against an interactive simulated central"`
	Parse    ParseCmd    `cmd:"" help:"Parse a payload and print the resulting command"`
	Init     InitCmd     `cmd:"" help:"Write the default config file"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("servoble"),
		kong.Description("BLE servo controller peripheral"),
		kong.UsageOnError(),
	)
	err := ctx.Run(&cli)
	ctx.FatalIfErrorf(err)
}

// --- Serve ---

type ServeCmd struct {
	NoCalibrate bool `name:"no-calibrate" help:"Skip the startup servo sweep"`
}

func (c *ServeCmd) Run(globals *CLI) error {
	cfg, err := globals.setup()
	if err != nil {
		return err
	}
	printBanner(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	driver := hardware.NewLogDriver(cfg.HardwarePins(), slog.Default())
	periph := ble.NewPeripheral(ble.NewTinyGoAdapter(), cfg.PeripheralOptions())
	ctrl := controller.New(periph, driver, cfg.ControllerOptions())

	if cfg.Calibrate && !c.NoCalibrate {
		if err := ctrl.Calibrate(ctx); err != nil {
			return shutdown(err)
		}
	}

	if err := periph.Start(ctrl); err != nil {
		return fmt.Errorf("starting peripheral: %w", err)
	}

	return shutdown(ctrl.Run(ctx))
}

// --- Simulate ---

type SimulateCmd struct {
	Calibrate bool `help:"Run the startup servo sweep before the prompt"`
}

func (c *SimulateCmd) Run(globals *CLI) error {
	cfg, err := globals.setup()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pins := cfg.HardwarePins()
	transport := console.NewLoopback(os.Stdout)
	driver := hardware.NewLogDriver(pins, slog.Default())
	ctrl := controller.New(transport, driver, cfg.ControllerOptions())

	if c.Calibrate {
		if err := ctrl.Calibrate(ctx); err != nil {
			return err
		}
	}

	done := make(chan error, 1)
	go func() { done <- ctrl.Run(ctx) }()

	con := console.New(ctrl, driver, transport, pins)
	if err := con.Run(ctx, cancel); err != nil {
		return err
	}
	cancel()
	return shutdown(<-done)
}

// --- Parse ---

type ParseCmd struct {
	Payload string `arg:"" help:"Payload text, e.g. \"Servo: 90\""`
}

func (c *ParseCmd) Run() error {
	cmd, err := command.Parse([]byte(c.Payload))
	if err != nil {
		return err
	}
	fmt.Println(cmd)
	return nil
}

// --- Init ---

type InitCmd struct{}

func (c *InitCmd) Run() error {
	path, err := config.WriteDefault()
	if err != nil {
		return err
	}
	if path == "" {
		fmt.Printf("Config already exists at %s\n", config.DefaultConfigPath())
		return nil
	}
	fmt.Printf("Wrote default config to %s\n", path)
	return nil
}

// setup loads and validates the config and installs the default logger.
func (c *CLI) setup() (*config.Config, error) {
	cfg, err := loadConfig(c.Config)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if c.LogLevel != "" {
		cfg.LogLevel = c.LogLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: config.ParseLogLevel(cfg.LogLevel),
	})
	slog.SetDefault(slog.New(handler))
	return cfg, nil
}

// loadConfig loads the config from the specified path, or falls back to
// the default config path, or uses built-in defaults.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}

	defaultPath := config.DefaultConfigPath()
	if _, err := os.Stat(defaultPath); err == nil {
		cfg, err := config.Load(defaultPath)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", defaultPath, err)
		}
		slog.Info("config loaded", "path", defaultPath)
		return cfg, nil
	}

	slog.Info("no config file found, using defaults")
	return config.Default(), nil
}

// shutdown treats context cancellation as a clean exit.
func shutdown(err error) error {
	if err == nil || errors.Is(err, context.Canceled) {
		slog.Info("shutting down")
		return nil
	}
	return err
}

// printBanner displays the startup configuration summary.
func printBanner(cfg *config.Config) {
	fmt.Println("=== servoble ===")
	fmt.Printf("  Name:     %s\n", cfg.DeviceName)
	fmt.Printf("  Service:  %s\n", cfg.ServiceUUID)
	fmt.Printf("  Char:     %s\n", cfg.CharacteristicUUID)
	fmt.Printf("  Mode:     %s\n", cfg.Mode)
	fmt.Printf("  Pins:     main=%d secondary=%d led=%d\n", cfg.Pins.Main, cfg.Pins.Secondary, cfg.Pins.LED)
	fmt.Printf("  Notify:   every %s\n", cfg.Timing.NotifyInterval)
	fmt.Printf("  Log:      %s\n", cfg.LogLevel)
	fmt.Println("================")
}
