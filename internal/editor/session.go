package editor

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/google/uuid"
)

// Recognized themes. Theme and font size are baked into a session at
// creation time; changing either reinitializes the session.
const (
	ThemeLight = "light"
	ThemeDark  = "dark"
)

// DefaultAutoSaveDelay applies when AutoSaveDelaySeconds is zero or
// negative.
const DefaultAutoSaveDelay = 5 * time.Second

// Config carries the creation-time settings for an editing session.
type Config struct {
	// Height is the visible editor height in rows. Adjustable in place.
	Height int
	// Theme is ThemeLight or ThemeDark; empty means ThemeLight.
	Theme string
	// FontSize is the frontend's point size for editor text. Like Theme
	// it is part of the session's creation-time appearance.
	FontSize int
	// AutoSave enables the debounced persist on content changes.
	AutoSave bool
	// AutoSaveDelaySeconds is the debounce window for autosave.
	AutoSaveDelaySeconds int
}

// Validate rejects unrecognized settings.
func (c Config) Validate() error {
	switch c.Theme {
	case "", ThemeLight, ThemeDark:
	default:
		return fmt.Errorf("editor: unknown theme %q", c.Theme)
	}
	if c.Height < 0 {
		return fmt.Errorf("editor: negative height %d", c.Height)
	}
	return nil
}

// AutoSaveDelay returns the effective debounce window.
func (c Config) AutoSaveDelay() time.Duration {
	if c.AutoSaveDelaySeconds <= 0 {
		return DefaultAutoSaveDelay
	}
	return time.Duration(c.AutoSaveDelaySeconds) * time.Second
}

func (c Config) normalized() Config {
	if c.Theme == "" {
		c.Theme = ThemeLight
	}
	return c
}

// appearanceChanged reports whether the settings that are baked into a
// session at creation time differ between two configs.
func appearanceChanged(old, new Config) bool {
	return old.Theme != new.Theme || old.FontSize != new.FontSize
}

// Session is one instantiated editing surface: a textarea widget plus
// the appearance settings it was created with. A host owns at most one
// live session at any time.
type Session struct {
	id       string
	config   Config
	area     textarea.Model
	disposed atomic.Bool
}

func newSession(cfg Config) *Session {
	ta := textarea.New()
	ta.Placeholder = "Open a file to start editing..."
	ta.ShowLineNumbers = true
	ta.CharLimit = 0
	ta.Prompt = ""
	if cfg.Height > 0 {
		ta.SetHeight(cfg.Height)
	}
	return &Session{
		id:     uuid.NewString(),
		config: cfg,
		area:   ta,
	}
}

// ID returns the session's unique identifier.
func (s *Session) ID() string { return s.id }

// Config returns the settings the session was created with.
func (s *Session) Config() Config { return s.config }

// Theme returns the session's theme.
func (s *Session) Theme() string { return s.config.Theme }

// Area exposes the embedded editing widget so the frontend can forward
// input events and render it. The host remains the owner.
func (s *Session) Area() *textarea.Model { return &s.area }

// Dispose releases the session. Idempotent: repeat calls complete
// without effect or error.
func (s *Session) Dispose() {
	if !s.disposed.CompareAndSwap(false, true) {
		return
	}
	s.area.Blur()
}

// Disposed reports whether Dispose has been called.
func (s *Session) Disposed() bool {
	return s.disposed.Load()
}

// cursorPos captures the widget's cursor so reinitialization can put it
// back instead of silently jumping to the end of the buffer.
type cursorPos struct {
	row int
	col int
}

func (s *Session) cursor() cursorPos {
	return cursorPos{
		row: s.area.Line(),
		col: s.area.LineInfo().ColumnOffset,
	}
}

func (s *Session) restore(content string, pos cursorPos, focused bool) {
	s.area.SetValue(content)

	row := pos.row
	if lines := s.area.LineCount(); row > lines-1 {
		row = lines - 1
	}
	if row < 0 {
		row = 0
	}
	// SetValue leaves the cursor at the end of the buffer; walk it back
	// up to the remembered row, then set the column.
	for s.area.Line() > row {
		prev := s.area.Line()
		s.area.CursorUp()
		if s.area.Line() == prev {
			break
		}
	}
	s.area.SetCursor(pos.col)

	if focused {
		s.area.Focus()
	}
}
