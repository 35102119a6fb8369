//go:build tinygo && nrf52840

// Command servoble-firmware runs the servo controller on a Seeed XIAO BLE
// (nRF52840).
//
//	tinygo flash -target xiao-ble ./cmd/servoble-firmware
package main

import (
	"context"
	"log/slog"
	"machine"
	"time"

	"github.com/chaz8081/servoble/internal/ble"
	"github.com/chaz8081/servoble/internal/controller"
	"github.com/chaz8081/servoble/internal/hardware"
)

func main() {
	// Give the USB serial console time to attach.
	time.Sleep(2 * time.Second)

	logger := slog.New(slog.NewTextHandler(machine.Serial, nil))
	slog.SetDefault(logger)

	driver, err := hardware.NewServoDriver(
		hardware.ServoConfig{Pin: machine.D0, PWM: machine.PWM0},
		hardware.ServoConfig{Pin: machine.D1, PWM: machine.PWM0},
		machine.LED,
	)
	must("configure servos", err)

	periph := ble.NewPeripheral(ble.NewTinyGoAdapter(), ble.DefaultPeripheralOptions())

	opts := controller.DefaultOptions()
	opts.LEDPin = int(machine.LED)
	opts.Logger = logger
	ctrl := controller.New(periph, driver, opts)

	ctx := context.Background()
	must("calibrate servos", ctrl.Calibrate(ctx))
	must("start peripheral", periph.Start(ctrl))
	must("run controller", ctrl.Run(ctx))
}

func must(action string, err error) {
	if err != nil {
		panic("failed to " + action + ": " + err.Error())
	}
}
