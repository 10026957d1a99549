// Package workbench key routing: global shortcuts first, then the
// active view, then the focused pane.
package workbench

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// handleKey routes a keystroke. Ctrl+C works everywhere; everything
// else depends on the active view and focus.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		if m.viewMode == WorkbenchView && m.hasUnsavedChanges() && !m.quitArmed {
			m.quitArmed = true
			m.setStatus("unsaved changes — ctrl+s to save, ctrl+c again to quit", true)
			return m, nil
		}
		m.performShutdown()
		return m, tea.Quit
	}

	switch m.viewMode {
	case BootView:
		return m, nil
	case LoginView:
		return m.handleLoginKey(msg)
	default:
		return m.handleWorkbenchKey(msg)
	}
}

func (m Model) handleWorkbenchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Any key other than the second Ctrl+C stands the quit guard down.
	m.quitArmed = false

	switch msg.String() {
	case "ctrl+s":
		return m.saveNow()

	case "ctrl+r":
		return m.startRun()

	case "shift+tab":
		m.focus = m.prevFocus()
		m.syncFocus()
		return m, nil

	case "tab":
		// In the editor, tab belongs to the buffer.
		if m.focus != FocusEditor {
			m.focus = m.nextFocus()
			m.syncFocus()
			return m, nil
		}
	}

	switch m.focus {
	case FocusSidebar:
		return m.handleSidebarKey(msg)
	case FocusChat:
		return m.handleChatKey(msg)
	default:
		return m.handleEditorKey(msg)
	}
}

func (m Model) handleSidebarKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.entries)-1 {
			m.cursor++
		}
	case "g":
		m.cursor = 0
	case "G":
		if len(m.entries) > 0 {
			m.cursor = len(m.entries) - 1
		}
	case "r":
		if m.workspace != nil {
			return m, m.listFilesCmd()
		}
	case "enter":
		if len(m.entries) == 0 || m.workspace == nil {
			return m, nil
		}
		entry := m.entries[m.cursor]
		return m, m.openFileCmd(entry.Rel)
	}
	return m, nil
}

func (m Model) handleEditorKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "esc" {
		m.focus = FocusSidebar
		m.syncFocus()
		return m, nil
	}

	area := m.editorArea()
	if area == nil {
		return m, nil
	}

	before := area.Value()
	updated, cmd := area.Update(msg)
	*area = updated

	// Keystroke-level edits flow into the host, which arms autosave.
	if v := updated.Value(); v != before {
		m.host.OnContentChanged(v)
	}
	return m, cmd
}

func (m Model) handleChatKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		input := strings.TrimSpace(m.chatInput.Value())
		if input == "" {
			return m, nil
		}
		m.chatInput.Reset()
		if strings.HasPrefix(input, "/") {
			return m.handleCommand(input)
		}
		return m.sendPrompt(input)

	case "esc":
		m.focus = FocusEditor
		m.syncFocus()
		return m, nil

	case "pgup", "pgdown", "home", "end":
		var cmd tea.Cmd
		m.chatVP, cmd = m.chatVP.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.chatInput, cmd = m.chatInput.Update(msg)
	return m, cmd
}

func (m Model) handleLoginKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.loginBusy {
		return m, nil
	}

	switch msg.String() {
	case "tab", "down":
		m.loginFocus = (m.loginFocus + 1) % loginFieldCount
		m.syncLoginFocus()
		return m, nil

	case "shift+tab", "up":
		m.loginFocus = (m.loginFocus + loginFieldCount - 1) % loginFieldCount
		m.syncLoginFocus()
		return m, nil

	case "enter":
		if m.loginFocus < loginFieldCount-1 {
			m.loginFocus++
			m.syncLoginFocus()
			return m, nil
		}
		return m.submitLogin()

	case "esc":
		m.loginErr = nil
		return m, nil
	}

	var cmd tea.Cmd
	m.loginInputs[m.loginFocus], cmd = m.loginInputs[m.loginFocus].Update(msg)
	return m, cmd
}

// submitLogin validates the form and kicks off verification.
func (m Model) submitLogin() (tea.Model, tea.Cmd) {
	provider := strings.TrimSpace(strings.ToLower(m.loginInputs[loginFieldProvider].Value()))
	email := strings.TrimSpace(m.loginInputs[loginFieldEmail].Value())
	key := strings.TrimSpace(m.loginInputs[loginFieldKey].Value())

	if provider == "" {
		provider = "openai"
	}
	if key == "" {
		m.loginErr = fmt.Errorf("API key is required")
		return m, nil
	}

	m.loginBusy = true
	m.loginErr = nil
	return m, tea.Batch(m.spinner.Tick, m.loginCmd(provider, email, key))
}

// saveNow persists the open buffer immediately. Persist failures come
// back through the host's error channel.
func (m Model) saveNow() (tea.Model, tea.Cmd) {
	if m.host == nil || m.host.Model() == nil {
		m.setStatus("nothing to save", true)
		return m, nil
	}
	name := m.host.Model().Name()
	m.host.Save()
	m.setStatus(fmt.Sprintf("saved %s", name), false)
	return m, nil
}

func (m Model) nextFocus() Focus {
	switch m.focus {
	case FocusSidebar:
		return FocusEditor
	case FocusEditor:
		return FocusChat
	default:
		if m.layout.Compact {
			return FocusEditor
		}
		return FocusSidebar
	}
}

func (m Model) prevFocus() Focus {
	switch m.focus {
	case FocusChat:
		return FocusEditor
	case FocusEditor:
		if m.layout.Compact {
			return FocusChat
		}
		return FocusSidebar
	default:
		return FocusChat
	}
}
