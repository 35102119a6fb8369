// Package command decodes text payloads written to the control
// characteristic into servo commands.
package command

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformedCommand is returned when a servo command carries a value that
// is not a base-10 integer.
var ErrMalformedCommand = errors.New("malformed command")

// servoKeyword marks a payload as a servo command.
const servoKeyword = "Servo"

// Kind identifies the parsed command variant.
type Kind uint8

const (
	// KindUnrecognized is any payload that is not a servo command.
	KindUnrecognized Kind = iota

	// KindSetServoAngle sets the servo angle in degrees.
	KindSetServoAngle
)

// String returns a human-readable kind name.
func (k Kind) String() string {
	switch k {
	case KindUnrecognized:
		return "UNRECOGNIZED"
	case KindSetServoAngle:
		return "SET_SERVO_ANGLE"
	default:
		return "UNKNOWN"
	}
}

// ServoChannel identifies one of the two physical servo outputs.
type ServoChannel uint8

const (
	Main ServoChannel = iota
	Secondary
)

// String returns a human-readable channel name.
func (c ServoChannel) String() string {
	switch c {
	case Main:
		return "main"
	case Secondary:
		return "secondary"
	default:
		return "unknown"
	}
}

// Channels returns both servo channels in drive order.
func Channels() []ServoChannel {
	return []ServoChannel{Main, Secondary}
}

// Command is a single parsed instruction.
type Command struct {
	Kind    Kind
	Channel ServoChannel
	Angle   int // degrees, not range checked
}

// Unrecognized is the command produced for payloads that carry no servo
// instruction.
var Unrecognized = Command{Kind: KindUnrecognized}

// String formats the command for logs.
func (c Command) String() string {
	if c.Kind == KindSetServoAngle {
		return fmt.Sprintf("%s{channel=%s angle=%d}", c.Kind, c.Channel, c.Angle)
	}
	return c.Kind.String()
}

// Parse decodes payload. A payload containing "Servo" and a colon yields a
// SetServoAngle command with the integer that follows the first colon.
// "Servo" without a colon, and anything else, is Unrecognized.
//
// Angles outside [0,180] are passed through unchanged.
func Parse(payload []byte) (Command, error) {
	text := string(payload)
	if !strings.Contains(text, servoKeyword) {
		return Unrecognized, nil
	}

	idx := strings.IndexByte(text, ':')
	if idx < 0 {
		return Unrecognized, nil
	}

	value := strings.TrimLeft(text[idx+1:], " ")
	angle, err := strconv.Atoi(value)
	if err != nil {
		return Unrecognized, fmt.Errorf("%w: servo value %q is not an integer", ErrMalformedCommand, value)
	}

	return Command{Kind: KindSetServoAngle, Channel: Main, Angle: angle}, nil
}
