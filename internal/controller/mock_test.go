package controller

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/chaz8081/servoble/internal/command"
)

var errInjected = errors.New("injected failure")

// mockTransport records notifications and advertising restarts.
type mockTransport struct {
	mu          sync.Mutex
	notified    []string
	advertised  int
	failNotify  bool
	failAdverts bool
}

func (t *mockTransport) Notify(value []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.failNotify {
		return errInjected
	}
	t.notified = append(t.notified, string(value))
	return nil
}

func (t *mockTransport) StartAdvertising() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.advertised++
	if t.failAdverts {
		return errInjected
	}
	return nil
}

func (t *mockTransport) notifications() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.notified...)
}

func (t *mockTransport) advertiseCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.advertised
}

type angleCall struct {
	ch    command.ServoChannel
	angle int
}

type levelCall struct {
	pin   int
	level bool
}

// mockDriver records driver calls in order.
type mockDriver struct {
	mu        sync.Mutex
	angles    []angleCall
	levels    []levelCall
	failAngle map[command.ServoChannel]bool
	failLevel bool
}

func (d *mockDriver) SetAngle(ch command.ServoChannel, degrees int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failAngle[ch] {
		return errInjected
	}
	d.angles = append(d.angles, angleCall{ch, degrees})
	return nil
}

func (d *mockDriver) SetDigitalOutput(pin int, level bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failLevel {
		return errInjected
	}
	d.levels = append(d.levels, levelCall{pin, level})
	return nil
}

func (d *mockDriver) angleCalls() []angleCall {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]angleCall(nil), d.angles...)
}

func (d *mockDriver) levelCalls() []levelCall {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]levelCall(nil), d.levels...)
}

// fakeClock advances only when told to. After advances the clock by d and
// fires immediately.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	c.sleeps = append(c.sleeps, d)
	ch := make(chan time.Time, 1)
	ch <- c.now
	return ch
}

func (c *fakeClock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestController(opts Options) (*Controller, *mockTransport, *mockDriver, *fakeClock) {
	tr := &mockTransport{}
	drv := &mockDriver{}
	clk := newFakeClock()
	opts.Clock = clk
	opts.Logger = discardLogger()
	return New(tr, drv, opts), tr, drv, clk
}
