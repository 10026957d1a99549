// Package editor implements the host that owns the lifecycle of one
// embedded editing surface and its in-memory text buffer, and bridges
// them to the project's current file and persist operation. The editing
// widget itself, the file provider, and the persist backend are
// external collaborators; the host only coordinates them.
package editor

import (
	"fmt"
	"sync"

	"codeloft/internal/debounce"

	"go.uber.org/zap"
)

// PersistFunc saves a file's content through the external provider.
type PersistFunc func(fileID, content string) error

// UIState is the derived view state, recomputed on every load or
// content event.
type UIState struct {
	IsLoading         bool
	HasUnsavedChanges bool
	Language          string
}

type hostState int

const (
	stateUninitialized hostState = iota
	stateReady
	stateDisposed
)

// errChanSize bounds the error channel. Sends never block; a lagging
// drain side loses messages rather than stalling the host.
const errChanSize = 16

// Host owns one editing Session and at most one attached TextModel.
// The frontend forwards widget edits to OnContentChanged and binds its
// save key to Save; failures come back on Errors. All mutating
// operations are serialized through one mutex, so the host behaves like
// the single-threaded event queue it stands in for. The only
// asynchronous entry points are the autosave timer and the persist
// calls it triggers.
type Host struct {
	mu sync.Mutex

	cfg     Config
	state   hostState
	session *Session
	model   *TextModel

	persist  PersistFunc
	autosave *debounce.Debouncer
	errs     chan HostError

	loading  bool
	unsaved  bool
	language string

	logger *zap.Logger
}

// Option configures a Host.
type Option func(*Host)

// WithLogger attaches a logger for diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(h *Host) { h.logger = l }
}

// NewHost creates a host that saves through fn. The host starts
// uninitialized; call Initialize before loading files.
func NewHost(fn PersistFunc, opts ...Option) *Host {
	h := &Host{
		persist:  fn,
		errs:     make(chan HostError, errChanSize),
		language: DefaultLanguage,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Initialize creates the editing session, or reconfigures the live one.
// Height and autosave settings apply in place; a theme or font size
// change rebuilds the session because those are baked in at creation
// time. The rebuild carries the widget's content and cursor across, so
// unsaved edits survive reconfiguration. At most one session is live at
// any time.
func (h *Host) Initialize(cfg Config) error {
	cfg = cfg.normalized()
	if err := cfg.Validate(); err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.state == stateDisposed {
		return ErrDisposed
	}

	if h.autosave == nil {
		h.autosave = debounce.New(cfg.AutoSaveDelay())
	} else {
		h.autosave.SetDuration(cfg.AutoSaveDelay())
	}
	if !cfg.AutoSave {
		h.autosave.Cancel()
	}

	if h.session == nil {
		h.session = newSession(cfg)
		h.cfg = cfg
		h.state = stateReady
		h.logger.Debug("editor session created",
			zap.String("session", h.session.id),
			zap.String("theme", cfg.Theme))
		return nil
	}

	if !appearanceChanged(h.cfg, cfg) {
		if cfg.Height > 0 && cfg.Height != h.cfg.Height {
			h.session.area.SetHeight(cfg.Height)
		}
		h.session.config = cfg
		h.cfg = cfg
		return nil
	}

	// Capture the live widget state, dispose the old session strictly
	// before the replacement attaches, then restore into the new one.
	content := h.session.area.Value()
	pos := h.session.cursor()
	focused := h.session.area.Focused()
	h.session.Dispose()

	fresh := newSession(cfg)
	fresh.restore(content, pos, focused)
	h.session = fresh
	h.cfg = cfg
	h.logger.Debug("editor session reinitialized",
		zap.String("session", fresh.id),
		zap.String("theme", cfg.Theme),
		zap.Int("fontSize", cfg.FontSize))
	return nil
}

// LoadFile binds the given file to the editing surface. A nil file
// clears the buffer and resets the detected language to the default.
// The previous buffer is disposed strictly before the new one attaches;
// two buffers are never simultaneously live. If no live session exists
// the load aborts with a LoadFailure on the error channel and the prior
// view state is kept, loading flag reset.
func (h *Host) LoadFile(f *File) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.state == stateDisposed {
		h.emitLocked(HostError{
			Kind:    LoadFailure,
			Message: "load failed: editor host is disposed",
			Err:     ErrDisposed,
		})
		return
	}

	if h.autosave != nil {
		// A pending persist belongs to the outgoing buffer.
		h.autosave.Cancel()
	}

	if f == nil {
		if h.model != nil {
			h.model.Dispose()
			h.model = nil
		}
		if h.session != nil && !h.session.Disposed() {
			h.session.area.SetValue("")
		}
		h.language = DefaultLanguage
		h.unsaved = false
		h.loading = false
		h.logger.Debug("buffer cleared")
		return
	}

	h.loading = true

	name := f.Name
	if name == "" {
		name = f.Path
	}
	lang := DetectLanguage(name)
	model := newTextModel(*f, lang)

	if h.session == nil || h.session.Disposed() {
		h.loading = false
		h.emitLocked(HostError{
			Kind:    LoadFailure,
			Message: fmt.Sprintf("load %s failed: no live editor session", name),
		})
		return
	}

	if h.model != nil {
		h.model.Dispose()
	}
	h.model = model
	h.session.restore(f.Content, cursorPos{}, h.session.area.Focused())
	h.language = lang
	h.unsaved = false
	h.loading = false
	h.logger.Debug("file loaded",
		zap.String("file", name),
		zap.String("language", lang),
		zap.Int("bytes", len(f.Content)))
}

// OnContentChanged records a keystroke-level edit of the buffer: the
// unsaved flag goes up and, when autosave is on, the debounced persist
// is (re)scheduled. Calls after teardown or without a loaded file are
// no-ops.
func (h *Host) OnContentChanged(content string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.state != stateReady || h.model == nil || h.model.Disposed() {
		return
	}
	h.model.setContent(content)
	h.unsaved = true
	if h.cfg.AutoSave {
		h.scheduleAutosaveLocked()
	}
}

// DebouncedPersist records content as the newest buffer snapshot and
// schedules a persist after the configured delay, canceling any pending
// one. Within a window only the most recent snapshot reaches the
// persist operation; an in-flight persist is never aborted, only unfired
// timers are pre-empted.
func (h *Host) DebouncedPersist(content string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.state != stateReady || h.model == nil || h.model.Disposed() {
		return
	}
	h.model.setContent(content)
	h.unsaved = true
	h.scheduleAutosaveLocked()
}

// Save persists the current buffer immediately, bypassing the debounce.
// The pending debounced persist is canceled so it cannot fire later and
// overwrite newer content with a stale snapshot. Without a loaded file
// Save is a no-op.
func (h *Host) Save() {
	h.mu.Lock()
	if h.state != stateReady || h.model == nil {
		h.mu.Unlock()
		return
	}
	h.autosave.Cancel()
	fileID := h.model.fileID
	content := h.model.content
	version := h.model.version
	h.mu.Unlock()

	h.persistSnapshot(fileID, content, version)
}

// Teardown releases everything the host owns: the pending autosave, the
// attached buffer, and the session, in that order. Safe to call any
// number of times; after the first call the host is disposed and every
// in-flight callback becomes a no-op instead of acting on released
// resources.
func (h *Host) Teardown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.state == stateDisposed {
		h.logger.Debug("teardown on disposed host ignored")
		return
	}
	if h.autosave != nil {
		h.autosave.Cancel()
	}
	if h.model != nil {
		h.model.Dispose()
		h.model = nil
	}
	if h.session != nil {
		h.session.Dispose()
		h.session = nil
	}
	h.state = stateDisposed
	h.logger.Debug("editor host disposed")
}

// UIState returns the current derived view state.
func (h *Host) UIState() UIState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return UIState{
		IsLoading:         h.loading,
		HasUnsavedChanges: h.unsaved,
		Language:          h.language,
	}
}

// Errors returns the channel operational failures are delivered on. The
// channel is never closed; drain it for the host's lifetime.
func (h *Host) Errors() <-chan HostError { return h.errs }

// Session returns the live session, or nil before Initialize and after
// Teardown.
func (h *Host) Session() *Session {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.session
}

// Model returns the attached buffer, or nil when none is attached.
func (h *Host) Model() *TextModel {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.model
}

// Config returns the active configuration.
func (h *Host) Config() Config {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cfg
}

// Disposed reports whether Teardown has completed.
func (h *Host) Disposed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state == stateDisposed
}

// scheduleAutosaveLocked arms the debounce timer for the attached
// buffer. The fire callback re-checks that the same buffer is still
// attached, so a timer surviving a file swap or teardown does nothing.
func (h *Host) scheduleAutosaveLocked() {
	scheduled := h.model
	h.autosave.Call(func() { h.firePersist(scheduled) })
}

// firePersist runs on the timer goroutine when the debounce window
// closes.
func (h *Host) firePersist(scheduled *TextModel) {
	h.mu.Lock()
	if h.state != stateReady || h.model == nil || h.model != scheduled || scheduled.Disposed() {
		h.mu.Unlock()
		return
	}
	fileID := h.model.fileID
	content := h.model.content
	version := h.model.version
	h.mu.Unlock()

	h.persistSnapshot(fileID, content, version)
}

// persistSnapshot calls the external persist operation outside the lock
// so a slow backend never stalls the host. On success the unsaved flag
// clears only if no newer edit arrived while the call was in flight; on
// failure the flag stays up so the user can retry, and the error goes
// to the channel. No automatic retry.
func (h *Host) persistSnapshot(fileID, content string, version uint64) {
	err := h.persist(fileID, content)

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.state == stateDisposed {
		return
	}
	if err != nil {
		h.emitLocked(HostError{
			Kind:    PersistFailure,
			Message: fmt.Sprintf("save failed: %v", err),
			Err:     err,
		})
		return
	}
	if h.model != nil && h.model.fileID == fileID && h.model.version == version {
		h.unsaved = false
	}
	h.logger.Debug("content persisted",
		zap.String("file", fileID),
		zap.Uint64("version", version))
}

// emitLocked delivers err on the error channel without blocking.
func (h *Host) emitLocked(err HostError) {
	h.logger.Error("editor failure",
		zap.String("kind", string(err.Kind)),
		zap.String("message", err.Message))
	select {
	case h.errs <- err:
	default:
		h.logger.Warn("error channel full, dropping",
			zap.String("kind", string(err.Kind)))
	}
}
