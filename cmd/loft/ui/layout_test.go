package ui

import "testing"

func TestNewLayout_WidthsSumToTotal(t *testing.T) {
	l := NewLayout(160, 48)

	if l.Compact {
		t.Fatal("160 columns should not be compact")
	}
	if l.SidebarWidth != SidebarWidth {
		t.Errorf("expected sidebar width %d, got %d", SidebarWidth, l.SidebarWidth)
	}
	if sum := l.SidebarWidth + l.EditorWidth + l.RightWidth; sum != 160 {
		t.Errorf("pane widths should sum to the terminal width, got %d", sum)
	}
	if l.EditorWidth <= l.RightWidth {
		t.Errorf("editor should get the wider column: editor=%d right=%d", l.EditorWidth, l.RightWidth)
	}
}

func TestNewLayout_CompactHidesSidebar(t *testing.T) {
	l := NewLayout(90, 30)

	if !l.Compact {
		t.Fatal("90 columns should be compact")
	}
	if l.SidebarWidth != 0 {
		t.Errorf("compact mode should hide the sidebar, got width %d", l.SidebarWidth)
	}
	if sum := l.EditorWidth + l.RightWidth; sum != 90 {
		t.Errorf("pane widths should sum to the terminal width, got %d", sum)
	}
}

func TestNewLayout_HeightsSumToBody(t *testing.T) {
	l := NewLayout(160, 48)

	wantBody := 48 - HeaderHeight - StatusBarHeight
	if l.BodyHeight != wantBody {
		t.Errorf("expected body height %d, got %d", wantBody, l.BodyHeight)
	}
	if l.ChatHeight+l.RunHeight != l.BodyHeight {
		t.Errorf("chat+run should fill the body: %d+%d != %d", l.ChatHeight, l.RunHeight, l.BodyHeight)
	}
	if l.ChatHeight <= l.RunHeight {
		t.Errorf("chat should get the larger share: chat=%d run=%d", l.ChatHeight, l.RunHeight)
	}
}

func TestNewLayout_TinyTerminal(t *testing.T) {
	l := NewLayout(20, 1)

	if l.Usable() {
		t.Error("a 20x1 terminal should not be usable")
	}
	if l.BodyHeight < 0 {
		t.Errorf("body height should clamp at zero, got %d", l.BodyHeight)
	}
}

func TestPaneContentDimensions(t *testing.T) {
	if got := PaneContentWidth(40); got != 40-PaneBorderWidth-PanePaddingH*2 {
		t.Errorf("unexpected content width %d", got)
	}
	if got := PaneContentWidth(1); got != 0 {
		t.Errorf("content width should clamp at zero, got %d", got)
	}
	if got := PaneContentHeight(10); got != 10-PaneBorderWidth {
		t.Errorf("unexpected content height %d", got)
	}
	if got := PaneContentHeight(0); got != 0 {
		t.Errorf("content height should clamp at zero, got %d", got)
	}
}
