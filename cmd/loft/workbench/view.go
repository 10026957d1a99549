// Package workbench view rendering: the boot splash, the login form,
// and the three-pane layout with header and status bar.
package workbench

import (
	"fmt"
	"strings"
	"time"

	"codeloft/cmd/loft/ui"
	"codeloft/internal/assist"
	"codeloft/internal/runner"

	"github.com/charmbracelet/lipgloss"
)

func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}
	if m.isBooting {
		return m.renderBootScreen()
	}
	if !m.layout.Usable() {
		return m.styles.Warning.Render(fmt.Sprintf(
			"terminal too small — need at least %dx%d",
			ui.MinimumTerminalWidth, ui.MinimumTerminalHeight))
	}
	if m.viewMode == LoginView {
		return m.renderLoginScreen()
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		m.renderHeader(),
		m.renderBody(),
		m.renderStatusBar(),
	)
}

func (m Model) renderHeader() string {
	title := m.styles.Header.Render(" loft ")
	version := m.styles.Badge.Render("v1.0")

	where := ""
	if m.workspace != nil {
		where = m.styles.Muted.Render(" " + m.workspace.Root())
	}

	var status string
	switch {
	case m.isThinking:
		status = lipgloss.JoinHorizontal(lipgloss.Center,
			m.spinner.View(), " ", m.styles.Badge.Render("thinking"))
	case m.isRunning:
		status = lipgloss.JoinHorizontal(lipgloss.Center,
			m.spinner.View(), " ", m.styles.Badge.Render("running"))
	default:
		status = m.styles.Success.Render("ready")
	}

	return lipgloss.JoinHorizontal(lipgloss.Center, title, " ", version, where, "  ", status)
}

func (m Model) renderBody() string {
	right := lipgloss.JoinVertical(lipgloss.Left, m.renderChatPane(), m.renderRunPane())
	editorPane := m.renderEditorPane()

	if m.layout.Compact {
		return lipgloss.JoinHorizontal(lipgloss.Top, editorPane, right)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, m.renderSidebar(), editorPane, right)
}

// pane frames content with a title and an active or inactive border.
// width and height are the outer dimensions including the border.
func (m Model) pane(title, content string, width, height int, active bool) string {
	style := m.styles.PaneInactive
	if active {
		style = m.styles.PaneActive
	}
	inner := lipgloss.JoinVertical(lipgloss.Left, m.styles.PaneTitle.Render(title), content)
	return style.
		Width(width - ui.PaneBorderWidth).
		Height(height - ui.PaneBorderWidth).
		Render(inner)
}

func (m Model) renderSidebar() string {
	rows := ui.PaneContentHeight(m.layout.BodyHeight) - 1
	if rows < 1 {
		rows = 1
	}
	start := 0
	if m.cursor >= rows {
		start = m.cursor - rows + 1
	}
	end := start + rows
	if end > len(m.entries) {
		end = len(m.entries)
	}

	width := ui.PaneContentWidth(m.layout.SidebarWidth)
	var sb strings.Builder
	if len(m.entries) == 0 {
		sb.WriteString(m.styles.Muted.Render("no files"))
	}
	for i := start; i < end; i++ {
		entry := m.entries[i]
		marker := "  "
		if i == m.cursor {
			marker = "▸ "
		}
		line := marker + truncateLeft(entry.Rel, width-4)
		switch {
		case i == m.cursor && m.focus == FocusSidebar:
			line = m.styles.FileSelected.Render(line)
		case m.changed[entry.Rel]:
			line = m.styles.FileChanged.Render(line + " ●")
		case entry.Rel == m.openedFile:
			line = m.styles.Bold.Render(line)
		default:
			line = m.styles.FileItem.Render(line)
		}
		sb.WriteString(line)
		if i < end-1 {
			sb.WriteString("\n")
		}
	}

	return m.pane("files", sb.String(), m.layout.SidebarWidth, m.layout.BodyHeight,
		m.focus == FocusSidebar)
}

func (m Model) renderEditorPane() string {
	title := "editor"
	var body string

	if m.host != nil && m.host.Model() != nil {
		tm := m.host.Model()
		state := m.host.UIState()
		title = tm.Name() + "  " + state.Language
		if state.HasUnsavedChanges {
			title += " ●"
		}
		if area := m.editorArea(); area != nil {
			body = area.View()
		}
	} else {
		body = m.styles.Muted.Render("select a file in the sidebar and press enter")
	}

	return m.pane(title, body, m.layout.EditorWidth, m.layout.BodyHeight,
		m.focus == FocusEditor)
}

func (m Model) renderChatPane() string {
	title := "assistant"
	if m.user != "" {
		title = "assistant — " + m.user
	}
	inner := lipgloss.JoinVertical(lipgloss.Left, m.chatVP.View(), m.chatInput.View())
	return m.pane(title, inner, m.layout.RightWidth, m.layout.ChatHeight,
		m.focus == FocusChat)
}

func (m Model) renderRunPane() string {
	return m.pane("run", m.runVP.View(), m.layout.RightWidth, m.layout.RunHeight, false)
}

func (m Model) renderStatusBar() string {
	var segs []string
	if m.host != nil && m.host.Model() != nil {
		state := m.host.UIState()
		segs = append(segs, state.Language)
		if state.HasUnsavedChanges {
			segs = append(segs, "unsaved ●")
		} else {
			segs = append(segs, "saved")
		}
	}
	if m.cfg.Editor.AutoSave {
		segs = append(segs, "autosave on")
	} else {
		segs = append(segs, "autosave off")
	}
	if m.status != "" {
		if m.statusErr {
			segs = append(segs, m.styles.StatusError.Render(m.status))
		} else {
			segs = append(segs, m.status)
		}
	}
	left := strings.Join(segs, "  ·  ")

	hint := m.styles.StatusKey.Render("ctrl+s save · ctrl+r run · tab pane · /help")
	gap := m.width - lipgloss.Width(left) - lipgloss.Width(hint) - 4
	if gap < 1 {
		return m.styles.StatusBar.Width(m.width).Render(left)
	}
	return m.styles.StatusBar.Width(m.width).Render(left + strings.Repeat(" ", gap) + hint)
}

func (m Model) renderChatLog() string {
	if len(m.chatLog) == 0 {
		return m.styles.Muted.Render("ask the assistant about your code — /help lists commands")
	}

	var sb strings.Builder
	for _, msg := range m.chatLog {
		switch msg.Role {
		case assist.RoleUser:
			sb.WriteString(m.styles.ChatUser.Render("you") + "\n")
			sb.WriteString(m.styles.UserInput.Render(msg.Content))
			sb.WriteString("\n\n")

		case roleNotice:
			sb.WriteString(m.styles.Muted.Render(msg.Content))
			sb.WriteString("\n")

		default: // assistant
			header := m.styles.Bold.Foreground(m.styles.Theme.Accent)
			sb.WriteString(header.Render("loft") + "\n")
			sb.WriteString(m.safeRenderMarkdown(msg.Content))
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

// safeRenderMarkdown renders markdown with panic recovery.
func (m Model) safeRenderMarkdown(content string) (result string) {
	defer func() {
		if r := recover(); r != nil {
			// If the renderer panics, fall back to plain text.
			result = content
		}
	}()

	if m.renderer != nil && content != "" {
		rendered, err := m.renderer.Render(content)
		if err == nil {
			return rendered
		}
	}
	return content
}

// formatRunResult renders a run outcome for the run pane.
func (m Model) formatRunResult(res *runner.Result) string {
	var sb strings.Builder

	switch {
	case res.Killed:
		sb.WriteString(m.styles.Warning.Render("killed: " + res.KillReason))
	case res.ExitCode == 0:
		sb.WriteString(m.styles.Success.Render(
			fmt.Sprintf("exit 0 in %s", res.Duration.Round(time.Millisecond))))
	default:
		sb.WriteString(m.styles.Error.Render(
			fmt.Sprintf("exit %d in %s", res.ExitCode, res.Duration.Round(time.Millisecond))))
	}
	sb.WriteString("\n")

	out := res.Combined
	if strings.TrimSpace(out) == "" {
		out = m.styles.Muted.Render("(no output)")
	}
	sb.WriteString(out)

	if res.Truncated {
		sb.WriteString("\n" + m.styles.Warning.Render("output truncated"))
	}
	return sb.String()
}

func (m Model) renderLoginScreen() string {
	labels := [loginFieldCount]string{"provider", "email", "api key"}

	rows := []string{m.styles.Title.Render("sign in to loft")}
	for i := range m.loginInputs {
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top,
			m.styles.FormLabel.Render(labels[i]), m.loginInputs[i].View()))
	}
	switch {
	case m.loginBusy:
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Center,
			m.spinner.View(), " ", m.styles.Muted.Render("verifying key...")))
	case m.loginErr != nil:
		rows = append(rows, m.styles.Error.Render(m.loginErr.Error()))
	}
	rows = append(rows, m.styles.Muted.Render("enter to continue · ctrl+c to quit"))

	form := m.styles.FormBox.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
	content := lipgloss.JoinVertical(lipgloss.Center, ui.Logo(m.styles), form)
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
}

func (m Model) renderBootScreen() string {
	content := lipgloss.JoinVertical(
		lipgloss.Center,
		ui.Logo(m.styles),
		"\n",
		m.spinner.View(),
		"\n",
		m.styles.Badge.Render("Opening workspace"),
		m.styles.Muted.Render(m.workspaceDir),
	)
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
}

// truncateLeft shortens a path from the left so the filename stays
// visible.
func truncateLeft(s string, max int) string {
	if max <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max == 1 {
		return "…"
	}
	return "…" + string(r[len(r)-max+1:])
}
