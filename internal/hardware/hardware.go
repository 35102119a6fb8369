// Package hardware provides the servo and LED drivers used by the
// controller: an in-memory driver for hosted runs and a PWM driver for
// TinyGo boards.
package hardware

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/chaz8081/servoble/internal/command"
)

// ErrUnknownChannel is returned for a servo channel with no output.
var ErrUnknownChannel = errors.New("hardware: unknown servo channel")

// ErrUnknownPin is returned for a digital output that was not configured.
var ErrUnknownPin = errors.New("hardware: unknown output pin")

// Pins maps the logical outputs to board pin numbers.
type Pins struct {
	Main      int
	Secondary int
	LED       int
}

// DefaultPins returns the ESP32 wiring of the reference build.
func DefaultPins() Pins {
	return Pins{Main: 13, Secondary: 12, LED: 2}
}

// Pin returns the pin wired to servo channel ch.
func (p Pins) Pin(ch command.ServoChannel) (int, error) {
	switch ch {
	case command.Main:
		return p.Main, nil
	case command.Secondary:
		return p.Secondary, nil
	default:
		return 0, fmt.Errorf("%w: %d", ErrUnknownChannel, ch)
	}
}

// LogDriver records output state in memory and logs every change. It stands
// in for real PWM hardware on hosts without servo outputs.
type LogDriver struct {
	pins Pins
	log  *slog.Logger

	mu     sync.Mutex
	angles map[command.ServoChannel]int
	levels map[int]bool
}

// NewLogDriver creates a LogDriver for the given wiring.
func NewLogDriver(pins Pins, logger *slog.Logger) *LogDriver {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogDriver{
		pins:   pins,
		log:    logger,
		angles: make(map[command.ServoChannel]int),
		levels: map[int]bool{pins.LED: false},
	}
}

// SetAngle records degrees for ch. No range check is applied.
func (d *LogDriver) SetAngle(ch command.ServoChannel, degrees int) error {
	pin, err := d.pins.Pin(ch)
	if err != nil {
		return err
	}
	d.mu.Lock()
	d.angles[ch] = degrees
	d.mu.Unlock()

	d.log.Debug("[HW] servo", "channel", ch, "pin", pin, "degrees", degrees)
	return nil
}

// SetDigitalOutput records level for pin.
func (d *LogDriver) SetDigitalOutput(pin int, level bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.levels[pin]; !ok {
		return fmt.Errorf("%w: %d", ErrUnknownPin, pin)
	}
	d.levels[pin] = level
	d.log.Debug("[HW] digital output", "pin", pin, "level", level)
	return nil
}

// Angle returns the last angle set on ch.
func (d *LogDriver) Angle(ch command.ServoChannel) (int, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	v, ok := d.angles[ch]
	return v, ok
}

// Level returns the current level of pin.
func (d *LogDriver) Level(pin int) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.levels[pin]
}
