package console

import (
	"fmt"
	"io"
	"sync"
)

// Loopback is an in-process transport: notifications are printed instead
// of sent over the air.
type Loopback struct {
	mu       sync.Mutex
	out      io.Writer
	notified []string
	adverts  int
}

// NewLoopback creates a loopback transport printing to out.
func NewLoopback(out io.Writer) *Loopback {
	return &Loopback{out: out}
}

// SetOutput redirects printed events.
func (l *Loopback) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.out = w
}

func (l *Loopback) Notify(value []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.notified = append(l.notified, string(value))
	fmt.Fprintf(l.out, "<- notify %q\n", value)
	return nil
}

func (l *Loopback) StartAdvertising() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.adverts++
	fmt.Fprintln(l.out, "-- advertising restarted")
	return nil
}

// Notifications returns every value notified so far.
func (l *Loopback) Notifications() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.notified...)
}

// Adverts returns how many times advertising was restarted.
func (l *Loopback) Adverts() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.adverts
}
