package editor

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// persistRecorder is a fake persist backend that records every call and
// can be told to reject.
type persistRecorder struct {
	mu    sync.Mutex
	calls []persistCall
	err   error
}

type persistCall struct {
	fileID  string
	content string
	at      time.Time
}

func (r *persistRecorder) persist(fileID, content string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, persistCall{fileID: fileID, content: content, at: time.Now()})
	return r.err
}

func (r *persistRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func (r *persistRecorder) last() persistCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[len(r.calls)-1]
}

func (r *persistRecorder) setErr(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

func waitForError(t *testing.T, h *Host) HostError {
	t.Helper()
	select {
	case e := <-h.Errors():
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for host error")
		return HostError{}
	}
}

// typeInto simulates the user editing the widget: the frontend forwards
// the new widget value to OnContentChanged after every edit.
func typeInto(h *Host, content string) {
	h.Session().Area().SetValue(content)
	h.OnContentChanged(content)
}

func TestHost_InitializeCreatesSession(t *testing.T) {
	rec := &persistRecorder{}
	h := NewHost(rec.persist)

	require.NoError(t, h.Initialize(Config{Height: 20}))

	sess := h.Session()
	require.NotNil(t, sess)
	assert.False(t, sess.Disposed())
	assert.Equal(t, ThemeLight, sess.Theme(), "empty theme should normalize to light")

	st := h.UIState()
	assert.False(t, st.IsLoading)
	assert.False(t, st.HasUnsavedChanges)
	assert.Equal(t, DefaultLanguage, st.Language)
}

func TestHost_InitializeRejectsBadConfig(t *testing.T) {
	h := NewHost((&persistRecorder{}).persist)

	err := h.Initialize(Config{Theme: "solarized"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown theme")
	assert.Nil(t, h.Session())
}

func TestHost_InitializeAfterTeardown(t *testing.T) {
	h := NewHost((&persistRecorder{}).persist)
	require.NoError(t, h.Initialize(Config{}))
	h.Teardown()

	err := h.Initialize(Config{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDisposed))
}

func TestHost_HeightChangeKeepsSession(t *testing.T) {
	h := NewHost((&persistRecorder{}).persist)
	require.NoError(t, h.Initialize(Config{Height: 10}))
	first := h.Session().ID()

	require.NoError(t, h.Initialize(Config{Height: 24}))
	assert.Equal(t, first, h.Session().ID(), "height applies in place")
	assert.Equal(t, 24, h.Config().Height)
}

func TestHost_ThemeChangeRebuildsSessionKeepingBuffer(t *testing.T) {
	h := NewHost((&persistRecorder{}).persist)
	require.NoError(t, h.Initialize(Config{Theme: ThemeLight}))
	h.LoadFile(&File{ID: "f1", Name: "notes.md", Content: "draft"})

	typeInto(h, "draft v2")
	require.True(t, h.UIState().HasUnsavedChanges)

	old := h.Session()
	require.NoError(t, h.Initialize(Config{Theme: ThemeDark}))

	fresh := h.Session()
	require.NotNil(t, fresh)
	assert.NotEqual(t, old.ID(), fresh.ID())
	assert.True(t, old.Disposed())
	assert.False(t, fresh.Disposed())
	assert.Equal(t, ThemeDark, fresh.Theme())

	// Unsaved edits survive the rebuild.
	assert.Equal(t, "draft v2", fresh.Area().Value())
	assert.True(t, h.UIState().HasUnsavedChanges)
	assert.Equal(t, "markdown", h.UIState().Language)
}

func TestHost_FontSizeChangeRebuildsSession(t *testing.T) {
	h := NewHost((&persistRecorder{}).persist)
	require.NoError(t, h.Initialize(Config{FontSize: 13}))
	first := h.Session().ID()

	require.NoError(t, h.Initialize(Config{FontSize: 15}))
	assert.NotEqual(t, first, h.Session().ID())
	assert.Equal(t, 15, h.Config().FontSize)
}

func TestHost_LoadFileDetectsLanguage(t *testing.T) {
	h := NewHost((&persistRecorder{}).persist)
	require.NoError(t, h.Initialize(Config{}))

	h.LoadFile(&File{ID: "f1", Name: "app.tsx", Path: "src/app.tsx", Content: "export {}"})

	st := h.UIState()
	assert.Equal(t, "typescript", st.Language)
	assert.False(t, st.IsLoading)
	assert.False(t, st.HasUnsavedChanges)

	m := h.Model()
	require.NotNil(t, m)
	assert.Equal(t, "f1", m.FileID())
	assert.Equal(t, "export {}", m.Content())
	assert.Equal(t, "export {}", h.Session().Area().Value())
}

func TestHost_LoadFileSwapDisposesOldModel(t *testing.T) {
	h := NewHost((&persistRecorder{}).persist)
	require.NoError(t, h.Initialize(Config{}))

	h.LoadFile(&File{ID: "a", Name: "a.go", Content: "package a"})
	first := h.Model()
	require.NotNil(t, first)

	h.LoadFile(&File{ID: "b", Name: "b.py", Content: "pass"})
	second := h.Model()
	require.NotNil(t, second)

	assert.True(t, first.Disposed(), "old buffer must be disposed on swap")
	assert.False(t, second.Disposed())
	assert.NotEqual(t, first.ID(), second.ID())
	assert.Equal(t, "python", h.UIState().Language)
}

func TestHost_LoadFileNilClearsBuffer(t *testing.T) {
	h := NewHost((&persistRecorder{}).persist)
	require.NoError(t, h.Initialize(Config{}))

	h.LoadFile(&File{ID: "a", Name: "a.go", Content: "package a"})
	stale := h.Model()
	require.NotNil(t, stale)

	// Even if the previous buffer was already disposed, clearing must
	// not fail.
	stale.Dispose()
	h.LoadFile(nil)

	assert.Nil(t, h.Model())
	assert.Equal(t, "", h.Session().Area().Value())

	st := h.UIState()
	assert.Equal(t, DefaultLanguage, st.Language)
	assert.False(t, st.HasUnsavedChanges)
	assert.False(t, st.IsLoading)
}

func TestHost_LoadFileWithoutSessionFails(t *testing.T) {
	h := NewHost((&persistRecorder{}).persist)

	h.LoadFile(&File{ID: "f1", Name: "a.go", Content: "package a"})

	e := waitForError(t, h)
	assert.Equal(t, LoadFailure, e.Kind)
	assert.Contains(t, e.Message, "no live editor session")
	assert.Nil(t, h.Model())
	assert.False(t, h.UIState().IsLoading, "loading flag must reset on failure")
}

func TestHost_LoadFileAfterTeardownFails(t *testing.T) {
	h := NewHost((&persistRecorder{}).persist)
	require.NoError(t, h.Initialize(Config{}))
	h.Teardown()

	h.LoadFile(&File{ID: "f1", Name: "a.go", Content: "package a"})

	e := waitForError(t, h)
	assert.Equal(t, LoadFailure, e.Kind)
	assert.True(t, errors.Is(e, ErrDisposed))
}

func TestHost_TeardownIsIdempotent(t *testing.T) {
	defer goleak.VerifyNone(t)

	rec := &persistRecorder{}
	h := NewHost(rec.persist)
	require.NoError(t, h.Initialize(Config{AutoSave: true, AutoSaveDelaySeconds: 1}))
	h.LoadFile(&File{ID: "f1", Name: "a.go", Content: "package a"})
	typeInto(h, "package a // edited")

	h.Teardown()
	assert.True(t, h.Disposed())
	assert.Nil(t, h.Session())
	assert.Nil(t, h.Model())

	// Second teardown must be a silent no-op.
	h.Teardown()
	assert.True(t, h.Disposed())

	// The pending autosave was canceled; nothing fires afterwards.
	time.Sleep(1200 * time.Millisecond)
	assert.Equal(t, 0, rec.count())
}

func TestHost_ContentChangeAfterTeardownIsNoop(t *testing.T) {
	rec := &persistRecorder{}
	h := NewHost(rec.persist)
	require.NoError(t, h.Initialize(Config{AutoSave: true, AutoSaveDelaySeconds: 1}))
	h.LoadFile(&File{ID: "f1", Name: "a.go", Content: "x"})
	h.Teardown()

	h.OnContentChanged("y")
	h.Save()
	h.DebouncedPersist("z")

	time.Sleep(1200 * time.Millisecond)
	assert.Equal(t, 0, rec.count())
	assert.False(t, h.UIState().HasUnsavedChanges)
}

func TestHost_AutosaveDebounceLastWriteWins(t *testing.T) {
	rec := &persistRecorder{}
	h := NewHost(rec.persist)
	require.NoError(t, h.Initialize(Config{AutoSave: true, AutoSaveDelaySeconds: 2}))
	h.LoadFile(&File{ID: "f1", Name: "f1.txt", Content: "a"})

	typeInto(h, "ab")
	time.Sleep(500 * time.Millisecond)
	typeInto(h, "abc")
	secondEdit := time.Now()

	// The first edit's window would have closed 2s after t=0; the second
	// edit restarted it, so nothing may fire before secondEdit+2s.
	time.Sleep(1400 * time.Millisecond)
	assert.Equal(t, 0, rec.count(), "persist fired inside the debounce window")

	require.Eventually(t, func() bool { return rec.count() == 1 },
		2*time.Second, 20*time.Millisecond, "debounced persist never fired")

	call := rec.last()
	assert.Equal(t, "f1", call.fileID)
	assert.Equal(t, "abc", call.content, "persist must carry the newest content")
	assert.GreaterOrEqual(t, call.at.Sub(secondEdit), 2*time.Second,
		"persist fired earlier than the configured delay after the last edit")

	// Exactly one, not one per edit.
	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, 1, rec.count())
	assert.False(t, h.UIState().HasUnsavedChanges)
}

func TestHost_ManualSaveBypassesAndCancelsDebounce(t *testing.T) {
	rec := &persistRecorder{}
	h := NewHost(rec.persist)
	require.NoError(t, h.Initialize(Config{AutoSave: true, AutoSaveDelaySeconds: 2}))
	h.LoadFile(&File{ID: "f1", Name: "f1.txt", Content: "a"})

	typeInto(h, "ab")
	h.Save()

	require.Equal(t, 1, rec.count(), "manual save must persist immediately")
	assert.Equal(t, "ab", rec.last().content)
	assert.False(t, h.UIState().HasUnsavedChanges)

	// The debounced persist scheduled by the edit must not fire later
	// and re-save stale content.
	time.Sleep(2300 * time.Millisecond)
	assert.Equal(t, 1, rec.count(), "canceled debounce fired anyway")
}

func TestHost_SaveWithoutFileIsNoop(t *testing.T) {
	rec := &persistRecorder{}
	h := NewHost(rec.persist)
	require.NoError(t, h.Initialize(Config{}))

	h.Save()
	assert.Equal(t, 0, rec.count())
}

func TestHost_AutosaveDisabled(t *testing.T) {
	rec := &persistRecorder{}
	h := NewHost(rec.persist)
	require.NoError(t, h.Initialize(Config{AutoSave: false, AutoSaveDelaySeconds: 1}))
	h.LoadFile(&File{ID: "f1", Name: "f1.txt", Content: "a"})

	typeInto(h, "ab")

	time.Sleep(1300 * time.Millisecond)
	assert.Equal(t, 0, rec.count())
	assert.True(t, h.UIState().HasUnsavedChanges)
}

func TestHost_DebouncedPersistCoalesces(t *testing.T) {
	rec := &persistRecorder{}
	h := NewHost(rec.persist)
	require.NoError(t, h.Initialize(Config{AutoSave: true, AutoSaveDelaySeconds: 1}))
	h.LoadFile(&File{ID: "f1", Name: "f1.txt", Content: ""})

	h.DebouncedPersist("v1")
	h.DebouncedPersist("v2")
	h.DebouncedPersist("v3")

	require.Eventually(t, func() bool { return rec.count() == 1 },
		2*time.Second, 20*time.Millisecond)
	assert.Equal(t, "v3", rec.last().content)
}

func TestHost_PersistFailureKeepsUnsaved(t *testing.T) {
	rec := &persistRecorder{}
	rec.setErr(fmt.Errorf("network error"))
	h := NewHost(rec.persist)
	require.NoError(t, h.Initialize(Config{}))
	h.LoadFile(&File{ID: "f1", Name: "f1.txt", Content: "a"})

	typeInto(h, "ab")
	h.Save()

	e := waitForError(t, h)
	assert.Equal(t, PersistFailure, e.Kind)
	assert.Contains(t, e.Message, "network error")
	assert.True(t, h.UIState().HasUnsavedChanges,
		"failed persist must leave the buffer marked unsaved")

	// A later retry after the backend recovers succeeds and clears it.
	rec.setErr(nil)
	h.Save()
	assert.Equal(t, 2, rec.count())
	assert.False(t, h.UIState().HasUnsavedChanges)
}

func TestHost_FileSwapDropsPendingAutosave(t *testing.T) {
	rec := &persistRecorder{}
	h := NewHost(rec.persist)
	require.NoError(t, h.Initialize(Config{AutoSave: true, AutoSaveDelaySeconds: 1}))
	h.LoadFile(&File{ID: "a", Name: "a.txt", Content: "a"})

	typeInto(h, "a edited")
	h.LoadFile(&File{ID: "b", Name: "b.txt", Content: "b"})

	// The autosave scheduled for file a must not fire against file b.
	time.Sleep(1300 * time.Millisecond)
	assert.Equal(t, 0, rec.count())
	assert.False(t, h.UIState().HasUnsavedChanges)
}

func TestHost_ErrorChannelDoesNotBlock(t *testing.T) {
	rec := &persistRecorder{}
	rec.setErr(fmt.Errorf("disk full"))
	h := NewHost(rec.persist)
	require.NoError(t, h.Initialize(Config{}))
	h.LoadFile(&File{ID: "f1", Name: "f1.txt", Content: "a"})

	// Nobody drains the channel; the host must keep accepting saves.
	for i := 0; i < errChanSize+8; i++ {
		typeInto(h, fmt.Sprintf("rev %d", i))
		h.Save()
	}
	assert.Equal(t, errChanSize+8, rec.count())
}
