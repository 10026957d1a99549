// Package workbench model helpers: focus and layout bookkeeping shared
// by the update and view code.
package workbench

import (
	"fmt"
	"strings"

	"codeloft/cmd/loft/ui"
	"codeloft/internal/assist"

	"github.com/charmbracelet/bubbles/textarea"
)

// editorArea returns the live editing surface, or nil before a session
// exists or after teardown.
func (m Model) editorArea() *textarea.Model {
	if m.host == nil {
		return nil
	}
	s := m.host.Session()
	if s == nil || s.Disposed() {
		return nil
	}
	return s.Area()
}

func (m Model) hasUnsavedChanges() bool {
	return m.host != nil && m.host.UIState().HasUnsavedChanges
}

// setStatus replaces the status-bar message.
func (m *Model) setStatus(s string, isErr bool) {
	m.status = s
	m.statusErr = isErr
}

// appendNotice adds a display-only line to the transcript.
func (m *Model) appendNotice(s string) {
	m.chatLog = append(m.chatLog, assist.Message{Role: roleNotice, Content: s})
	m.refreshChat()
}

// refreshChat re-renders the transcript into the chat viewport and
// scrolls to the newest entry.
func (m *Model) refreshChat() {
	m.chatVP.SetContent(m.renderChatLog())
	m.chatVP.GotoBottom()
}

// syncFocus moves input focus to the pane selected by m.focus.
func (m *Model) syncFocus() {
	if area := m.editorArea(); area != nil {
		if m.focus == FocusEditor {
			area.Focus()
		} else {
			area.Blur()
		}
	}
	if m.focus == FocusChat {
		m.chatInput.Focus()
	} else {
		m.chatInput.Blur()
	}
	// The sidebar has no input component; its focus is purely visual.
	if m.layout.Compact && m.focus == FocusSidebar {
		m.focus = FocusEditor
	}
}

// syncLoginFocus focuses the active form field and blurs the rest.
func (m *Model) syncLoginFocus() {
	for i := range m.loginInputs {
		if i == m.loginFocus {
			m.loginInputs[i].Focus()
		} else {
			m.loginInputs[i].Blur()
		}
	}
}

// applyLayout pushes the current pane geometry into the components.
func (m *Model) applyLayout() {
	l := m.layout

	contentW := ui.PaneContentWidth(l.RightWidth)
	chatH := ui.PaneContentHeight(l.ChatHeight) - 2 // title and input rows
	if chatH < 1 {
		chatH = 1
	}
	m.chatVP.Width = contentW
	m.chatVP.Height = chatH
	inputW := contentW - len(m.chatInput.Prompt) - 1
	if inputW < 10 {
		inputW = 10
	}
	m.chatInput.Width = inputW

	runH := ui.PaneContentHeight(l.RunHeight) - 1 // title row
	if runH < 1 {
		runH = 1
	}
	m.runVP.Width = contentW
	m.runVP.Height = runH

	if area := m.editorArea(); area != nil {
		area.SetWidth(ui.PaneContentWidth(l.EditorWidth))
		h := ui.PaneContentHeight(l.BodyHeight) - 1 // title row
		if h < 1 {
			h = 1
		}
		area.SetHeight(h)
	}

	if m.layout.Compact && m.focus == FocusSidebar {
		m.focus = FocusEditor
		m.syncFocus()
	}
}

// conversationTurns extracts the turns the assistant should see:
// notices dropped, capped to the newest entries.
func (m Model) conversationTurns() []assist.Message {
	turns := make([]assist.Message, 0, len(m.chatLog))
	for _, msg := range m.chatLog {
		if msg.Role == assist.RoleUser || msg.Role == assist.RoleAssistant {
			turns = append(turns, msg)
		}
	}
	if len(turns) > maxConversationTurns {
		turns = turns[len(turns)-maxConversationTurns:]
	}
	return turns
}

// buildSystemPrompt assembles the assistant's standing instructions:
// who it is, where it is, what file is open, and any fetched pages.
func (m Model) buildSystemPrompt() string {
	var sb strings.Builder
	sb.WriteString("You are the coding assistant inside loft, a terminal code workbench. " +
		"Be concise. Prefer fenced code blocks with language tags.")

	if m.workspace != nil {
		fmt.Fprintf(&sb, "\nWorkspace root: %s", m.workspace.Root())
	}
	if m.host != nil {
		if tm := m.host.Model(); tm != nil {
			fmt.Fprintf(&sb, "\nOpen file: %s (%s)", tm.FileID(), tm.Language())
		}
	}
	for _, p := range m.fetched {
		fmt.Fprintf(&sb, "\n\nReference fetched from %s:\n%s", p.url, p.content)
	}
	return sb.String()
}
