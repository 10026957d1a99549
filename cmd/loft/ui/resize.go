package ui

import (
	"sync"
	"time"

	"codeloft/internal/debounce"
)

// DefaultResizeDelay is the debounce window for terminal resize
// bursts.
const DefaultResizeDelay = 250 * time.Millisecond

// ResizeDebouncer coalesces terminal resize events: dragging a window
// edge emits dozens of size messages and relayout only needs the last
// one.
type ResizeDebouncer struct {
	mu       sync.Mutex
	d        *debounce.Debouncer
	pendingW int
	pendingH int
	lastW    int
	lastH    int
}

// NewResizeDebouncer creates a debouncer for resize events.
func NewResizeDebouncer(delay time.Duration) *ResizeDebouncer {
	if delay <= 0 {
		delay = DefaultResizeDelay
	}
	return &ResizeDebouncer{d: debounce.New(delay)}
}

// Resize schedules handler with the newest size once events settle.
// Rapid successive calls reset the timer; only the final size is
// delivered.
func (r *ResizeDebouncer) Resize(width, height int, handler func(width, height int)) {
	r.mu.Lock()
	r.pendingW, r.pendingH = width, height
	r.mu.Unlock()

	r.d.Call(func() {
		r.mu.Lock()
		w, h := r.pendingW, r.pendingH
		r.lastW, r.lastH = w, h
		r.mu.Unlock()
		handler(w, h)
	})
}

// LastSize returns the last size handed to a handler.
func (r *ResizeDebouncer) LastSize() (width, height int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastW, r.lastH
}

// Cancel drops any pending resize.
func (r *ResizeDebouncer) Cancel() {
	r.d.Cancel()
}
