// Package workbench message routing: the Update loop dispatches typed
// messages from boot, the editor host, the watcher, and the assistant
// back into view state.
package workbench

import (
	"fmt"
	"path/filepath"
	"time"

	"codeloft/cmd/loft/ui"
	"codeloft/internal/assist"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
)

// roleNotice marks transcript lines that are shown but never sent to
// the assistant.
const roleNotice = "notice"

// Update routes messages to the matching handler.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleWindowSize(msg)

	case resizeSettledMsg:
		// Instant layout already happened; now pay for the expensive
		// part, re-wrapping the rendered transcript.
		m.renderer = newRenderer(m.styles.Theme, ui.PaneContentWidth(m.layout.RightWidth))
		m.refreshChat()
		return m, m.waitForResize()

	case spinner.TickMsg:
		if m.isBooting || m.isThinking || m.isRunning || m.loginBusy {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case bootDoneMsg:
		return m.handleBootDone(msg)

	case fileListMsg:
		if msg.err != nil {
			m.setStatus(fmt.Sprintf("listing failed: %v", msg.err), true)
			return m, nil
		}
		m.entries = msg.entries
		if m.cursor >= len(m.entries) {
			m.cursor = len(m.entries) - 1
		}
		if m.cursor < 0 {
			m.cursor = 0
		}
		return m, nil

	case fileOpenedMsg:
		return m.handleFileOpened(msg)

	case fileChangesMsg:
		return m.handleFileChanges(msg)

	case chatReplyMsg:
		m.isThinking = false
		if msg.err != nil {
			m.appendNotice(fmt.Sprintf("assistant error: %v", msg.err))
			return m, nil
		}
		m.chatLog = append(m.chatLog, assist.Message{Role: assist.RoleAssistant, Content: msg.content})
		m.refreshChat()
		n := m.turnNo
		m.turnNo++
		return m, m.persistTurnCmd(n, assist.RoleAssistant, msg.content)

	case fetchDoneMsg:
		m.isThinking = false
		if msg.err != nil {
			m.appendNotice(fmt.Sprintf("fetch failed: %v", msg.err))
			return m, nil
		}
		m.fetched = append(m.fetched, fetchedPage{url: msg.url, content: msg.content})
		m.appendNotice(fmt.Sprintf("fetched %s (%d chars) — the assistant can now see it", msg.url, len(msg.content)))
		return m, nil

	case runDoneMsg:
		return m.handleRunDone(msg)

	case sessionListMsg:
		if msg.err != nil {
			m.appendNotice(fmt.Sprintf("history unavailable: %v", msg.err))
			return m, nil
		}
		m.appendNotice(formatSessionList(msg.sessions))
		return m, nil

	case hostErrorMsg:
		m.setStatus(msg.Message, true)
		m.logger.Warn("editor host failure",
			zap.String("kind", string(msg.Kind)),
			zap.String("message", msg.Message))
		return m, m.waitForHostError()

	case loginDoneMsg:
		m.loginBusy = false
		if msg.err != nil {
			m.loginErr = msg.err
			return m, nil
		}
		m.loginErr = nil
		m.assistant = msg.assistant
		m.user = msg.creds.Email
		m.viewMode = WorkbenchView
		m.setStatus("signed in", false)
		m.syncFocus()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m.updateComponents(msg)
}

// handleWindowSize applies the cheap geometry immediately and defers
// transcript re-rendering until the resize burst settles.
func (m Model) handleWindowSize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height
	m.layout = ui.NewLayout(msg.Width, msg.Height)
	m.applyLayout()

	if !m.ready {
		m.ready = true
		m.renderer = newRenderer(m.styles.Theme, ui.PaneContentWidth(m.layout.RightWidth))
		m.refreshChat()
		return m, nil
	}

	m.resize.Resize(msg.Width, msg.Height, m.pushResize)
	return m, nil
}

// pushResize hands the settled size to the update loop. Runs on the
// debounce timer goroutine; a stale pending size is dropped first so
// only the newest survives.
func (m Model) pushResize(width, height int) {
	select {
	case <-m.resizeCh:
	default:
	}
	m.resizeCh <- resizeSettledMsg{width: width, height: height}
}

func (m Model) handleBootDone(msg bootDoneMsg) (tea.Model, tea.Cmd) {
	m.isBooting = false
	if msg.err != nil {
		m.err = msg.err
		m.performShutdown()
		return m, tea.Quit
	}

	boot := msg.boot
	m.workspace = boot.workspace
	m.watcher = boot.watcher
	m.host = boot.host
	m.entries = boot.entries
	m.history = boot.history
	m.accounts = boot.accounts
	m.assistant = boot.assistant
	m.user = boot.user
	m.runner = newRunner(m.cfg, boot.workspace.Root(), m.logger)
	m.turnNo = 1
	m.applyLayout()

	cmds := []tea.Cmd{m.waitForHostError()}
	if m.watcher != nil {
		cmds = append(cmds, m.waitForChanges())
	}

	if boot.loggedIn {
		m.viewMode = WorkbenchView
		m.setStatus(fmt.Sprintf("%d files in %s", len(m.entries), m.workspace.Root()), false)
		m.syncFocus()
	} else {
		m.viewMode = LoginView
		m.syncLoginFocus()
	}
	return m, tea.Batch(cmds...)
}

func (m Model) handleFileOpened(msg fileOpenedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.setStatus(fmt.Sprintf("open failed: %v", msg.err), true)
		return m, nil
	}

	m.host.LoadFile(msg.file)
	m.openedFile = msg.file.ID
	delete(m.changed, msg.file.ID)
	m.focus = FocusEditor
	m.syncFocus()
	m.applyLayout()
	m.setStatus(fmt.Sprintf("%s — %s", msg.file.Name, m.host.UIState().Language), false)
	return m, nil
}

// handleFileChanges marks files touched outside the editor and
// refreshes the sidebar listing.
func (m Model) handleFileChanges(msg fileChangesMsg) (tea.Model, tea.Cmd) {
	if m.workspace == nil || m.watcher == nil {
		return m, nil
	}
	for _, c := range msg {
		rel, err := filepath.Rel(m.workspace.Root(), c.Path)
		if err != nil {
			continue
		}
		rel = filepath.ToSlash(rel)
		switch c.Op {
		case "delete", "rename":
			delete(m.changed, rel)
		default:
			// The host's own saves land on the open file; don't flag
			// those as external edits.
			if rel != m.openedFile {
				m.changed[rel] = true
			}
		}
	}
	return m, tea.Batch(m.listFilesCmd(), m.waitForChanges())
}

func (m Model) handleRunDone(msg runDoneMsg) (tea.Model, tea.Cmd) {
	m.isRunning = false
	if msg.err != nil {
		m.runOutput = m.styles.Error.Render(fmt.Sprintf("run failed: %v", msg.err))
		m.runVP.SetContent(m.runOutput)
		m.setStatus("run failed", true)
		return m, nil
	}

	m.runOutput = m.formatRunResult(msg.result)
	m.runVP.SetContent(m.runOutput)
	m.runVP.GotoBottom()
	if msg.result.ExitCode == 0 && !msg.result.Killed {
		m.setStatus(fmt.Sprintf("run finished in %s", msg.result.Duration.Round(time.Millisecond)), false)
	} else {
		m.setStatus(fmt.Sprintf("run exited with %d", msg.result.ExitCode), true)
	}
	return m, nil
}

// updateComponents forwards non-key messages (cursor blinks and the
// like) to whichever input component currently has focus.
func (m Model) updateComponents(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	switch m.viewMode {
	case LoginView:
		for i := range m.loginInputs {
			m.loginInputs[i], cmd = m.loginInputs[i].Update(msg)
			cmds = append(cmds, cmd)
		}

	case WorkbenchView:
		switch m.focus {
		case FocusEditor:
			if area := m.editorArea(); area != nil {
				updated, cmd := area.Update(msg)
				*area = updated
				cmds = append(cmds, cmd)
			}
		case FocusChat:
			m.chatInput, cmd = m.chatInput.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	return m, tea.Batch(cmds...)
}
