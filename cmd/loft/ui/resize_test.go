package ui

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestResizeDebouncer_SingleResize(t *testing.T) {
	var gotWidth, gotHeight int32
	rd := NewResizeDebouncer(50 * time.Millisecond)

	rd.Resize(120, 40, func(w, h int) {
		atomic.StoreInt32(&gotWidth, int32(w))
		atomic.StoreInt32(&gotHeight, int32(h))
	})

	time.Sleep(150 * time.Millisecond)

	if atomic.LoadInt32(&gotWidth) != 120 {
		t.Errorf("expected width 120, got %d", gotWidth)
	}
	if atomic.LoadInt32(&gotHeight) != 40 {
		t.Errorf("expected height 40, got %d", gotHeight)
	}
}

func TestResizeDebouncer_RapidResizes(t *testing.T) {
	var callCount, finalWidth int32
	rd := NewResizeDebouncer(50 * time.Millisecond)

	for i := 1; i <= 10; i++ {
		width := 100 + i
		rd.Resize(width, 40, func(w, h int) {
			atomic.AddInt32(&callCount, 1)
			atomic.StoreInt32(&finalWidth, int32(w))
		})
		time.Sleep(10 * time.Millisecond)
	}

	time.Sleep(150 * time.Millisecond)

	if atomic.LoadInt32(&callCount) != 1 {
		t.Errorf("expected 1 handler call, got %d", callCount)
	}
	if atomic.LoadInt32(&finalWidth) != 110 {
		t.Errorf("expected final width 110, got %d", finalWidth)
	}
}

func TestResizeDebouncer_Cancel(t *testing.T) {
	var called int32
	rd := NewResizeDebouncer(50 * time.Millisecond)

	rd.Resize(120, 40, func(w, h int) {
		atomic.AddInt32(&called, 1)
	})
	rd.Cancel()

	time.Sleep(120 * time.Millisecond)

	if atomic.LoadInt32(&called) != 0 {
		t.Errorf("expected no calls after cancel, got %d", called)
	}
}

func TestResizeDebouncer_LastSize(t *testing.T) {
	rd := NewResizeDebouncer(50 * time.Millisecond)

	rd.Resize(132, 43, func(w, h int) {})

	time.Sleep(150 * time.Millisecond)

	w, h := rd.LastSize()
	if w != 132 || h != 43 {
		t.Errorf("expected last size (132, 43), got (%d, %d)", w, h)
	}
}
