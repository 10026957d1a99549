package editor

import (
	"sync/atomic"

	"github.com/google/uuid"
)

// File is the snapshot of a current file handed to the host by the
// project provider. The host never mutates the provider's copy; edits
// flow back only through the persist operation.
type File struct {
	ID      string
	Name    string
	Path    string
	Content string
}

// TextModel is the in-memory buffer bound to one file's content and one
// detected language. At most one TextModel is attached to a session at
// a time; the host disposes the old model strictly before attaching a
// new one.
type TextModel struct {
	id       string
	fileID   string
	path     string
	name     string
	language string

	// content and version are guarded by the owning host's mutex.
	content string
	version uint64

	disposed atomic.Bool
}

func newTextModel(f File, language string) *TextModel {
	return &TextModel{
		id:       uuid.NewString(),
		fileID:   f.ID,
		path:     f.Path,
		name:     f.Name,
		language: language,
		content:  f.Content,
	}
}

// ID returns the model's unique identifier.
func (m *TextModel) ID() string { return m.id }

// FileID returns the identifier of the file this buffer is bound to.
func (m *TextModel) FileID() string { return m.fileID }

// Path returns the bound file's path.
func (m *TextModel) Path() string { return m.path }

// Name returns the bound file's display name.
func (m *TextModel) Name() string { return m.name }

// Language returns the language identifier detected at load time.
func (m *TextModel) Language() string { return m.language }

// Content returns the latest buffer snapshot.
func (m *TextModel) Content() string { return m.content }

// Version returns the snapshot counter, incremented on every recorded
// content change.
func (m *TextModel) Version() uint64 { return m.version }

func (m *TextModel) setContent(s string) {
	m.content = s
	m.version++
}

// Dispose releases the model. Calling it on an already-disposed model
// is a no-op, never an error; reinitialization cycles legitimately
// dispose the same buffer twice.
func (m *TextModel) Dispose() {
	m.disposed.Store(true)
}

// Disposed reports whether Dispose has been called.
func (m *TextModel) Disposed() bool {
	return m.disposed.Load()
}
