package hardware

import (
	"errors"
	"fmt"
	"math"
)

// Servo pulse range in microseconds for 0 and 180 degrees.
const (
	PulseMinMicros = 1000
	PulseMaxMicros = 2000
)

// ErrPulseOutOfRange is returned when an angle maps to a pulse width the PWM
// output cannot express.
var ErrPulseOutOfRange = errors.New("hardware: servo pulse out of range")

// pulseMicros converts an angle to a pulse width. Angles outside [0,180]
// extrapolate past the nominal range, as long as the result stays within
// [0, MaxInt16] microseconds.
func pulseMicros(degrees int) (int16, error) {
	us := PulseMinMicros + degrees*(PulseMaxMicros-PulseMinMicros)/180
	if us < 0 || us > math.MaxInt16 {
		return 0, fmt.Errorf("%w: %d degrees is %dus", ErrPulseOutOfRange, degrees, us)
	}
	return int16(us), nil
}
