package project

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Change is one settled filesystem event under the workspace root.
type Change struct {
	Path string // absolute
	Op   string // "create", "modify", "delete" or "rename"
}

// WatcherStats tracks watcher activity for debugging.
type WatcherStats struct {
	Created       int
	Modified      int
	Deleted       int
	Errors        int
	LastEventTime time.Time
	LastEventPath string
}

type pendingChange struct {
	op string
	at time.Time
}

// Watcher reports files changed on disk outside the editor. Raw
// fsnotify events are debounced per path, so the write+rename burst of
// a single save collapses into one notification. Settled changes are
// delivered in batches on Changes.
type Watcher struct {
	mu          sync.RWMutex
	fs          *fsnotify.Watcher
	root        string
	pending     map[string]pendingChange
	debounceDur time.Duration
	changes     chan []Change
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool
	logger      *zap.Logger

	stats WatcherStats
}

// NewWatcher creates a watcher for the given workspace root. Call
// Start to begin listening and Stop to release it.
func NewWatcher(root string, logger *zap.Logger) (*Watcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("failed to resolve watch root: %w", err)
	}
	return &Watcher{
		fs:          fsw,
		root:        abs,
		pending:     make(map[string]pendingChange),
		debounceDur: 500 * time.Millisecond,
		changes:     make(chan []Change, 8),
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
		logger:      logger,
	}, nil
}

// Changes returns the channel settled change batches are delivered on.
// The channel is never closed; a full channel drops batches rather
// than stalling the event loop.
func (w *Watcher) Changes() <-chan []Change { return w.changes }

// Start registers the workspace tree with fsnotify and launches the
// event loop. Non-blocking; calling Start on a running watcher is a
// no-op.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	if err := w.fs.Add(w.root); err != nil {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		return fmt.Errorf("failed to watch %s: %w", w.root, err)
	}
	w.addSubdirs(w.root)
	w.logger.Debug("watching workspace", zap.String("root", w.root))

	go w.run(ctx)
	return nil
}

// Stop stops the watcher and waits for the event loop to drain. On a
// watcher that never started it just releases the fsnotify handle.
// Idempotent.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		_ = w.fs.Close()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	if err := w.fs.Close(); err != nil {
		w.logger.Error("failed to close watcher", zap.Error(err))
	}
}

// Watching reports whether the event loop is live.
func (w *Watcher) Watching() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.running
}

// Stats returns a snapshot of the watcher counters.
func (w *Watcher) Stats() WatcherStats {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.stats
}

// addSubdirs registers every listable subdirectory. fsnotify does not
// recurse, and the skip rules mirror the workspace listing so changes
// in hidden or dependency trees never surface.
func (w *Watcher) addSubdirs(dir string) {
	_ = filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil || !info.IsDir() {
			return nil
		}
		if path == dir {
			return nil
		}
		if shouldSkipDir(info.Name()) {
			return filepath.SkipDir
		}
		if aerr := w.fs.Add(path); aerr != nil {
			w.logger.Warn("watch failed", zap.String("dir", path), zap.Error(aerr))
		}
		return nil
	})
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-w.stopCh:
			return

		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.Error("watch error", zap.Error(err))
			w.mu.Lock()
			w.stats.Errors++
			w.mu.Unlock()

		case <-ticker.C:
			w.flushSettled()
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	name := filepath.Base(event.Name)
	if isEditorArtifact(name) {
		return
	}

	var op string
	switch {
	case event.Op&fsnotify.Create != 0:
		op = "create"
	case event.Op&fsnotify.Write != 0:
		op = "modify"
	case event.Op&fsnotify.Remove != 0:
		op = "delete"
	case event.Op&fsnotify.Rename != 0:
		op = "rename"
	default:
		return // chmod etc.
	}

	// A freshly created directory extends the watch set.
	if op == "create" {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if !shouldSkipDir(name) {
				if aerr := w.fs.Add(event.Name); aerr != nil {
					w.logger.Warn("watch failed", zap.String("dir", event.Name), zap.Error(aerr))
				}
			}
		}
	}

	w.mu.Lock()
	w.stats.LastEventTime = time.Now()
	w.stats.LastEventPath = event.Name
	switch op {
	case "create":
		w.stats.Created++
	case "modify":
		w.stats.Modified++
	case "delete", "rename":
		w.stats.Deleted++
	}
	w.pending[event.Name] = pendingChange{op: op, at: time.Now()}
	w.mu.Unlock()
}

// flushSettled delivers every pending change older than the debounce
// window as one batch.
func (w *Watcher) flushSettled() {
	w.mu.Lock()
	now := time.Now()
	var settled []Change
	for path, p := range w.pending {
		if now.Sub(p.at) >= w.debounceDur {
			settled = append(settled, Change{Path: path, Op: p.op})
			delete(w.pending, path)
		}
	}
	w.mu.Unlock()

	if len(settled) == 0 {
		return
	}
	sort.Slice(settled, func(i, j int) bool { return settled[i].Path < settled[j].Path })

	select {
	case w.changes <- settled:
	default:
		w.logger.Warn("change channel full, dropping batch", zap.Int("count", len(settled)))
	}
}

// isEditorArtifact filters our own staging files and common editor
// artifacts out of the event stream.
func isEditorArtifact(name string) bool {
	if strings.HasPrefix(name, ".loft-") && strings.HasSuffix(name, ".tmp") {
		return true
	}
	if strings.HasSuffix(name, "~") || strings.HasSuffix(name, ".swp") {
		return true
	}
	return false
}
