package controller

// ConnectionState is the link state reported by the transport callbacks.
type ConnectionState uint8

const (
	Disconnected ConnectionState = iota
	Connected
)

// String returns a human-readable state name.
func (s ConnectionState) String() string {
	switch s {
	case Disconnected:
		return "DISCONNECTED"
	case Connected:
		return "CONNECTED"
	default:
		return "UNKNOWN"
	}
}

// GreetingPhase selects which greeting the next notification carries.
type GreetingPhase uint8

const (
	PhaseA GreetingPhase = iota
	PhaseB
)

// Greetings sent on alternating ticks.
const (
	GreetingA = "Selamun Aleykum"
	GreetingB = "Aleykum Selam"
)

// String returns a human-readable phase name.
func (p GreetingPhase) String() string {
	switch p {
	case PhaseA:
		return "A"
	case PhaseB:
		return "B"
	default:
		return "?"
	}
}

// Next returns the phase that follows p.
func (p GreetingPhase) Next() GreetingPhase {
	if p == PhaseA {
		return PhaseB
	}
	return PhaseA
}

// Greeting returns the notification text for phase p.
func Greeting(p GreetingPhase) string {
	if p == PhaseB {
		return GreetingB
	}
	return GreetingA
}
