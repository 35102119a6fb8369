//go:build tinygo

package hardware

import (
	"fmt"
	"machine"

	"tinygo.org/x/drivers/servo"

	"github.com/chaz8081/servoble/internal/command"
)

// ServoConfig wires one servo output.
type ServoConfig struct {
	Pin machine.Pin
	PWM servo.PWM
}

// ServoDriver drives two hobby servos over PWM and the LED over GPIO.
type ServoDriver struct {
	servos map[command.ServoChannel]servo.Servo
	led    machine.Pin
	ledNum int
}

// NewServoDriver configures the PWM outputs and the LED pin.
func NewServoDriver(main, secondary ServoConfig, led machine.Pin) (*ServoDriver, error) {
	d := &ServoDriver{
		servos: make(map[command.ServoChannel]servo.Servo, 2),
		led:    led,
		ledNum: int(led),
	}
	for ch, cfg := range map[command.ServoChannel]ServoConfig{command.Main: main, command.Secondary: secondary} {
		s, err := servo.New(cfg.PWM, cfg.Pin)
		if err != nil {
			return nil, fmt.Errorf("hardware: configure %s servo: %w", ch, err)
		}
		d.servos[ch] = s
	}

	led.Configure(machine.PinConfig{Mode: machine.PinOutput})
	led.Low()
	return d, nil
}

// SetAngle maps degrees linearly onto the servo pulse width. Values outside
// [0,180] are not clamped, but a pulse width past the PWM range is an error.
func (d *ServoDriver) SetAngle(ch command.ServoChannel, degrees int) error {
	s, ok := d.servos[ch]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownChannel, ch)
	}
	us, err := pulseMicros(degrees)
	if err != nil {
		return err
	}
	s.SetMicroseconds(us)
	return nil
}

// SetDigitalOutput drives the LED pin.
func (d *ServoDriver) SetDigitalOutput(pin int, level bool) error {
	if pin != d.ledNum {
		return fmt.Errorf("%w: %d", ErrUnknownPin, pin)
	}
	d.led.Set(level)
	return nil
}
