// Package debounce provides delay-and-coalesce scheduling for rapid
// event streams: only the most recent request within a window fires.
package debounce

import (
	"sync"
	"time"
)

// Debouncer coalesces rapid calls so only the last one within the
// configured window executes. Safe for concurrent use.
type Debouncer struct {
	mu       sync.Mutex
	timer    *time.Timer
	duration time.Duration
}

// New creates a debouncer with the given window.
func New(duration time.Duration) *Debouncer {
	return &Debouncer{duration: duration}
}

// Duration returns the configured window.
func (d *Debouncer) Duration() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.duration
}

// SetDuration changes the window for subsequent calls. A pending call
// keeps the window it was scheduled with.
func (d *Debouncer) SetDuration(duration time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.duration = duration
}

// Call schedules fn to run after the window elapses with no newer call.
// Each call cancels the previously scheduled one (last write wins).
func (d *Debouncer) Call(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.duration, fn)
}

// Cancel drops any pending scheduled call.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// Immediate cancels any pending call and runs fn right away.
func (d *Debouncer) Immediate(fn func()) {
	d.Cancel()
	fn()
}
