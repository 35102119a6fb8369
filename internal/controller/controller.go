// Package controller implements the device state machine: it tracks the BLE
// connection, greets a connected central on a fixed interval, and turns
// servo commands written by the central into driver calls.
package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/chaz8081/servoble/internal/command"
)

// ErrDriverFailure wraps errors returned by the peripheral driver.
var ErrDriverFailure = errors.New("driver failure")

// Transport is the outbound side of the BLE link.
type Transport interface {
	// Notify pushes value to the connected central.
	Notify(value []byte) error
	// StartAdvertising makes the peripheral discoverable again.
	StartAdvertising() error
}

// Driver drives the servo and LED outputs.
type Driver interface {
	SetAngle(ch command.ServoChannel, degrees int) error
	SetDigitalOutput(pin int, level bool) error
}

// Listener receives transport events. Methods may be called from any
// goroutine.
type Listener interface {
	OnConnect()
	OnDisconnect()
	OnWrite(payload []byte)
}

// Options configures the controller timing and behavior.
type Options struct {
	NotifyInterval   time.Duration // delay between greetings while connected
	AdvertiseSettle  time.Duration // wait after a disconnect before advertising again
	LEDPulse         time.Duration // LED hold time after a servo command
	LEDPin           int
	CalibrationDelay time.Duration // hold time per calibration step
	ServoControl     bool          // false: writes are only logged
	InboxSize        int           // max writes queued between loop passes
	Clock            Clock
	Logger           *slog.Logger
}

// DefaultOptions returns the timings of the reference hardware.
func DefaultOptions() Options {
	return Options{
		NotifyInterval:   2000 * time.Millisecond,
		AdvertiseSettle:  500 * time.Millisecond,
		LEDPulse:         100 * time.Millisecond,
		LEDPin:           2,
		CalibrationDelay: 1000 * time.Millisecond,
		ServoControl:     true,
		InboxSize:        16,
	}
}

// CalibrationSweep is the angle sequence driven on both channels at startup.
var CalibrationSweep = []int{0, 180, 0}

// Status is a point-in-time view of the controller.
type Status struct {
	State     ConnectionState
	Phase     GreetingPhase
	Angle     int
	HasAngle  bool
	LEDOn     bool
	Queued    int
	NextTick  time.Time
	Advertise time.Time
}

// Controller owns the connection and greeting state.
type Controller struct {
	transport Transport
	driver    Driver
	opts      Options
	clock     Clock
	log       *slog.Logger

	// mu guards the fields written by transport callbacks.
	mu          sync.Mutex
	state       ConnectionState
	connects    uint64
	disconnects uint64
	inbox       [][]byte

	wake chan struct{}

	// stepMu serializes Step and guards the loop-owned fields below.
	stepMu          sync.Mutex
	seenConnects    uint64
	seenDisconnects uint64
	phase           GreetingPhase
	nextNotify      time.Time
	advertiseAt     time.Time
	ledOn           bool
	ledOffAt        time.Time
	angle           int
	hasAngle        bool
}

var _ Listener = (*Controller)(nil)

// New creates a controller. Zero durations and sizes fall back to
// DefaultOptions; ServoControl is taken as given.
func New(transport Transport, driver Driver, opts Options) *Controller {
	def := DefaultOptions()
	if opts.NotifyInterval <= 0 {
		opts.NotifyInterval = def.NotifyInterval
	}
	if opts.AdvertiseSettle <= 0 {
		opts.AdvertiseSettle = def.AdvertiseSettle
	}
	if opts.LEDPulse <= 0 {
		opts.LEDPulse = def.LEDPulse
	}
	if opts.CalibrationDelay <= 0 {
		opts.CalibrationDelay = def.CalibrationDelay
	}
	if opts.InboxSize <= 0 {
		opts.InboxSize = def.InboxSize
	}
	if opts.Clock == nil {
		opts.Clock = SystemClock()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Controller{
		transport: transport,
		driver:    driver,
		opts:      opts,
		clock:     opts.Clock,
		log:       opts.Logger,
		wake:      make(chan struct{}, 1),
	}
}

// OnConnect marks the link connected. Repeated calls are no-ops.
func (c *Controller) OnConnect() {
	c.mu.Lock()
	if c.state == Connected {
		c.mu.Unlock()
		return
	}
	c.state = Connected
	c.connects++
	c.mu.Unlock()

	c.log.Info("[CTRL] connected")
	c.signal()
}

// OnDisconnect marks the link disconnected. Repeated calls are no-ops.
func (c *Controller) OnDisconnect() {
	c.mu.Lock()
	if c.state == Disconnected {
		c.mu.Unlock()
		return
	}
	c.state = Disconnected
	c.disconnects++
	c.mu.Unlock()

	c.log.Info("[CTRL] disconnected")
	c.signal()
}

// OnWrite queues payload for the next loop pass. The payload is copied.
func (c *Controller) OnWrite(payload []byte) {
	cp := make([]byte, len(payload))
	copy(cp, payload)

	c.mu.Lock()
	if len(c.inbox) >= c.opts.InboxSize {
		c.log.Warn("[CTRL] inbox full, dropping oldest write")
		c.inbox = c.inbox[1:]
	}
	c.inbox = append(c.inbox, cp)
	c.mu.Unlock()

	c.log.Info("[CTRL] incoming data", "data", string(cp))
	c.signal()
}

// signal wakes the loop without blocking.
func (c *Controller) signal() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// State returns the current connection state.
func (c *Controller) State() ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Phase returns the phase of the next greeting.
func (c *Controller) Phase() GreetingPhase {
	c.stepMu.Lock()
	defer c.stepMu.Unlock()
	return c.phase
}

// Status returns a snapshot of the controller.
func (c *Controller) Status() Status {
	c.stepMu.Lock()
	defer c.stepMu.Unlock()
	c.mu.Lock()
	defer c.mu.Unlock()
	return Status{
		State:     c.state,
		Phase:     c.phase,
		Angle:     c.angle,
		HasAngle:  c.hasAngle,
		LEDOn:     c.ledOn,
		Queued:    len(c.inbox),
		NextTick:  c.nextNotify,
		Advertise: c.advertiseAt,
	}
}

// Calibrate sweeps both servos through CalibrationSweep, holding each
// position for CalibrationDelay. Driver errors are logged and the sweep
// continues. It returns early only if ctx is done.
func (c *Controller) Calibrate(ctx context.Context) error {
	c.log.Info("[CTRL] calibrating servos", "sweep", CalibrationSweep)
	for _, angle := range CalibrationSweep {
		for _, ch := range command.Channels() {
			if err := c.driver.SetAngle(ch, angle); err != nil {
				c.log.Warn("[CTRL] calibration step failed", "channel", ch, "angle", angle, "error", err)
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.clock.After(c.opts.CalibrationDelay):
		}
	}
	c.log.Info("[CTRL] calibration done")
	return nil
}

// Run drives the scheduler until ctx is done. Transport events wake the
// loop immediately; otherwise it sleeps until the next due action.
func (c *Controller) Run(ctx context.Context) error {
	c.log.Info("[CTRL] waiting for a client connection to notify")
	for {
		next := c.Step(c.clock.Now())

		var due <-chan time.Time
		if !next.IsZero() {
			due = c.clock.After(next.Sub(c.clock.Now()))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.wake:
		case <-due:
		}
	}
}

// Step runs one scheduler pass at time now and returns when the next action
// is due, or the zero time if nothing is scheduled.
func (c *Controller) Step(now time.Time) time.Time {
	c.stepMu.Lock()
	defer c.stepMu.Unlock()

	c.mu.Lock()
	writes := c.inbox
	c.inbox = nil
	state := c.state
	connects, disconnects := c.connects, c.disconnects
	c.mu.Unlock()

	for _, payload := range writes {
		if err := c.handleWrite(now, payload); err != nil {
			if errors.Is(err, command.ErrMalformedCommand) {
				c.log.Warn("[CTRL] ignoring malformed command", "error", err)
			} else {
				c.log.Error("[CTRL] command failed", "error", err)
			}
		}
	}

	if connects != c.seenConnects {
		c.seenConnects = connects
		c.nextNotify = now
	}
	if disconnects != c.seenDisconnects {
		c.seenDisconnects = disconnects
		c.advertiseAt = now.Add(c.opts.AdvertiseSettle)
	}

	if state == Connected && !c.nextNotify.After(now) {
		c.greet(now)
	}

	if !c.advertiseAt.IsZero() && !c.advertiseAt.After(now) {
		c.advertiseAt = time.Time{}
		if err := c.transport.StartAdvertising(); err != nil {
			c.log.Error("[CTRL] restart advertising failed", "error", err)
		} else {
			c.log.Info("[CTRL] start advertising")
		}
	}

	if c.ledOn && !c.ledOffAt.After(now) {
		c.ledOn = false
		if err := c.driver.SetDigitalOutput(c.opts.LEDPin, false); err != nil {
			c.log.Error("[CTRL] led off failed", "error", fmt.Errorf("%w: %w", ErrDriverFailure, err))
		}
	}

	return c.nextDue(state)
}

// greet sends the current greeting and advances the phase on success.
func (c *Controller) greet(now time.Time) {
	msg := Greeting(c.phase)
	if err := c.transport.Notify([]byte(msg)); err != nil {
		c.log.Warn("[CTRL] notify failed", "error", err)
	} else {
		c.log.Debug("[CTRL] notified", "value", msg)
		c.phase = c.phase.Next()
	}
	c.nextNotify = now.Add(c.opts.NotifyInterval)
}

// handleWrite interprets one inbound payload.
func (c *Controller) handleWrite(now time.Time, payload []byte) error {
	if !c.opts.ServoControl {
		return nil
	}

	cmd, err := command.Parse(payload)
	if err != nil {
		return err
	}

	switch cmd.Kind {
	case command.KindSetServoAngle:
		return c.applyAngle(now, cmd.Angle)
	default:
		c.log.Info("[CTRL] unrecognized command", "data", string(payload))
		return nil
	}
}

// applyAngle drives both servos to angle and starts the LED pulse. The two
// servos share one control value.
func (c *Controller) applyAngle(now time.Time, angle int) error {
	for _, ch := range command.Channels() {
		if err := c.driver.SetAngle(ch, angle); err != nil {
			return fmt.Errorf("%w: set %s servo to %d: %w", ErrDriverFailure, ch, angle, err)
		}
	}
	c.angle = angle
	c.hasAngle = true
	c.log.Info("[CTRL] servo angle set", "angle", angle)

	if err := c.driver.SetDigitalOutput(c.opts.LEDPin, true); err != nil {
		return fmt.Errorf("%w: led on: %w", ErrDriverFailure, err)
	}
	c.ledOn = true
	c.ledOffAt = now.Add(c.opts.LEDPulse)
	return nil
}

// nextDue returns the earliest pending deadline (caller holds stepMu).
func (c *Controller) nextDue(state ConnectionState) time.Time {
	var next time.Time
	consider := func(t time.Time) {
		if t.IsZero() {
			return
		}
		if next.IsZero() || t.Before(next) {
			next = t
		}
	}
	if state == Connected {
		consider(c.nextNotify)
	}
	consider(c.advertiseAt)
	if c.ledOn {
		consider(c.ledOffAt)
	}
	return next
}
