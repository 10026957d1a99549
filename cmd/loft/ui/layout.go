package ui

// Layout constants for pane sizing.
const (
	// SidebarWidth is the file list column, hidden in compact mode.
	SidebarWidth = 28
	// RightColumnRatio is the share of the remaining width given to
	// the chat/run column.
	RightColumnRatio = 0.38

	HeaderHeight    = 1
	StatusBarHeight = 1

	// PaneBorderWidth is both border cells of a rounded pane;
	// PanePaddingH is the horizontal padding inside it.
	PaneBorderWidth = 2
	PanePaddingH    = 1

	// Responsive breakpoints
	MinimumTerminalWidth  = 60
	MinimumTerminalHeight = 16
	CompactModeWidth      = 100
)

// Layout is the computed pane geometry for one terminal size. The
// workbench is a three-column split: file sidebar, editor, and a right
// column holding chat above run output.
type Layout struct {
	Width  int
	Height int

	// Compact hides the sidebar on narrow terminals.
	Compact bool

	SidebarWidth int
	EditorWidth  int
	RightWidth   int

	// BodyHeight is the rows between header and status bar.
	BodyHeight int
	ChatHeight int
	RunHeight  int
}

// NewLayout computes pane geometry for the given terminal size.
func NewLayout(width, height int) Layout {
	l := Layout{Width: width, Height: height}
	l.Compact = width < CompactModeWidth

	l.BodyHeight = height - HeaderHeight - StatusBarHeight
	if l.BodyHeight < 0 {
		l.BodyHeight = 0
	}

	if !l.Compact {
		l.SidebarWidth = SidebarWidth
	}
	l.RightWidth = int(float64(width-l.SidebarWidth) * RightColumnRatio)
	l.EditorWidth = width - l.SidebarWidth - l.RightWidth

	// Chat gets the larger share of the right column.
	l.ChatHeight = l.BodyHeight * 3 / 5
	l.RunHeight = l.BodyHeight - l.ChatHeight
	return l
}

// Usable reports whether the terminal is big enough to draw the
// workbench at all.
func (l Layout) Usable() bool {
	return l.Width >= MinimumTerminalWidth && l.Height >= MinimumTerminalHeight
}

// PaneContentWidth returns the text width inside a bordered pane.
func PaneContentWidth(paneWidth int) int {
	w := paneWidth - PaneBorderWidth - PanePaddingH*2
	if w < 0 {
		return 0
	}
	return w
}

// PaneContentHeight returns the text height inside a bordered pane.
func PaneContentHeight(paneHeight int) int {
	h := paneHeight - PaneBorderWidth
	if h < 0 {
		return 0
	}
	return h
}
