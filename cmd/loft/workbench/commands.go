// Package workbench chat commands and the asynchronous work they kick
// off. Slash commands act on the workbench itself; plain prompts go to
// the assistant.
package workbench

import (
	"context"
	"fmt"
	"strings"
	"time"

	"codeloft/internal/assist"
	"codeloft/internal/auth"
	"codeloft/internal/runner"
	"codeloft/internal/store"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// maxConversationTurns caps how much transcript each request carries.
const maxConversationTurns = 20

// Timeouts for command-triggered work; assistant calls use the
// configured timeout instead.
const (
	fetchTimeout = 30 * time.Second
	loginTimeout = 15 * time.Second
)

const helpText = `commands:
  /help              show this help
  /clear             clear the transcript (history on disk is kept)
  /new               start a fresh chat session
  /fetch <url>       pull a web page into the conversation
  /run               run the open file (same as ctrl+r)
  /save              save the open file (same as ctrl+s)
  /sessions          list recent chat sessions

keys:
  ctrl+s save   ctrl+r run   tab/shift+tab switch pane   esc back   ctrl+c quit`

// handleCommand dispatches a slash command from the chat input.
func (m Model) handleCommand(input string) (tea.Model, tea.Cmd) {
	name, arg := splitCommand(input)

	switch name {
	case "/help":
		m.appendNotice(helpText)
		return m, nil

	case "/clear":
		m.chatLog = nil
		m.fetched = nil
		m.refreshChat()
		return m, nil

	case "/new":
		m.sessionID = uuid.New().String()
		m.turnNo = 1
		m.chatLog = nil
		m.fetched = nil
		m.appendNotice("started a new session")
		return m, nil

	case "/fetch":
		if arg == "" {
			m.appendNotice("usage: /fetch <url>")
			return m, nil
		}
		m.isThinking = true
		m.appendNotice(fmt.Sprintf("fetching %s...", arg))
		return m, tea.Batch(m.spinner.Tick, m.fetchCmd(arg))

	case "/run":
		return m.startRun()

	case "/save":
		return m.saveNow()

	case "/sessions":
		return m, m.sessionListCmd()

	default:
		m.appendNotice(fmt.Sprintf("unknown command %s — /help lists commands", name))
		return m, nil
	}
}

// splitCommand separates the command name from its argument.
func splitCommand(input string) (name, arg string) {
	parts := strings.SplitN(strings.TrimSpace(input), " ", 2)
	name = strings.ToLower(parts[0])
	if len(parts) == 2 {
		arg = strings.TrimSpace(parts[1])
	}
	return name, arg
}

// sendPrompt ships a user prompt to the assistant and records it.
func (m Model) sendPrompt(input string) (tea.Model, tea.Cmd) {
	if m.assistant == nil {
		m.appendNotice("assistant unavailable — sign in at startup or set LOFT_API_KEY")
		return m, nil
	}

	m.chatLog = append(m.chatLog, assist.Message{Role: assist.RoleUser, Content: input})
	m.isThinking = true
	m.refreshChat()

	n := m.turnNo
	m.turnNo++
	return m, tea.Batch(
		m.spinner.Tick,
		m.persistTurnCmd(n, assist.RoleUser, input),
		m.chatCmd(),
	)
}

// startRun saves the open buffer and dispatches it to the runner.
func (m Model) startRun() (tea.Model, tea.Cmd) {
	if m.host == nil || m.host.Model() == nil {
		m.setStatus("open a file to run", true)
		return m, nil
	}
	if m.isRunning {
		m.setStatus("a run is already in progress", true)
		return m, nil
	}

	tm := m.host.Model()
	// The runner reads from disk for binary backends; flush first.
	m.host.Save()

	m.isRunning = true
	m.runVP.SetContent(m.styles.Muted.Render(fmt.Sprintf("running %s...", tm.Name())))

	req := runner.Request{
		Path:     tm.Path(),
		Language: tm.Language(),
		Source:   tm.Content(),
	}
	return m, tea.Batch(m.spinner.Tick, m.runCmd(req))
}

// =============================================================================
// ASYNC COMMANDS
// =============================================================================

func (m Model) openFileCmd(rel string) tea.Cmd {
	ws := m.workspace
	return func() tea.Msg {
		f, err := ws.Load(rel)
		return fileOpenedMsg{file: f, err: err}
	}
}

func (m Model) listFilesCmd() tea.Cmd {
	ws := m.workspace
	ctx := m.ctx
	return func() tea.Msg {
		entries, err := ws.List(ctx)
		return fileListMsg{entries: entries, err: err}
	}
}

func (m Model) chatCmd() tea.Cmd {
	client := m.assistant
	timeout := m.cfg.GetAssistTimeout()
	system := m.buildSystemPrompt()
	turns := m.conversationTurns()
	ctx := m.ctx
	return func() tea.Msg {
		cctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		reply, err := client.Chat(cctx, system, turns)
		return chatReplyMsg{content: reply, err: err}
	}
}

// persistTurnCmd records one transcript turn. Failures are logged, not
// surfaced; losing a history row should never interrupt a conversation.
func (m Model) persistTurnCmd(number int, role, content string) tea.Cmd {
	h := m.history
	if h == nil {
		return nil
	}
	sid := m.sessionID
	logger := m.logger
	return func() tea.Msg {
		if err := h.AddTurn(sid, number, role, content); err != nil {
			logger.Warn("failed to record chat turn", zap.Error(err))
		}
		return nil
	}
}

func (m Model) fetchCmd(rawURL string) tea.Cmd {
	f := m.fetcher
	ctx := m.ctx
	return func() tea.Msg {
		fctx, cancel := context.WithTimeout(ctx, fetchTimeout)
		defer cancel()
		content, err := f.Fetch(fctx, rawURL)
		return fetchDoneMsg{url: rawURL, content: content, err: err}
	}
}

func (m Model) runCmd(req runner.Request) tea.Cmd {
	r := m.runner
	ctx := m.ctx
	return func() tea.Msg {
		res, err := r.Run(ctx, req)
		return runDoneMsg{result: res, err: err}
	}
}

func (m Model) sessionListCmd() tea.Cmd {
	h := m.history
	if h == nil {
		return func() tea.Msg {
			return sessionListMsg{err: fmt.Errorf("chat history is disabled")}
		}
	}
	return func() tea.Msg {
		sessions, err := h.RecentSessions(10)
		return sessionListMsg{sessions: sessions, err: err}
	}
}

// loginCmd verifies the key with the provider, stores the credentials,
// and builds the assistant client.
func (m Model) loginCmd(provider, email, key string) tea.Cmd {
	cfg := m.cfg
	verifier := m.verifier
	accounts := m.accounts
	ctx := m.ctx
	return func() tea.Msg {
		vctx, cancel := context.WithTimeout(ctx, loginTimeout)
		defer cancel()

		baseURL := ""
		if provider == "custom" {
			baseURL = cfg.Assist.BaseURL
		}
		if err := verifier.Verify(vctx, provider, baseURL, key); err != nil {
			return loginDoneMsg{err: err}
		}

		creds := auth.Credentials{Provider: provider, APIKey: key, Email: email}
		if accounts != nil {
			if err := accounts.Login(creds); err != nil {
				return loginDoneMsg{err: err}
			}
		}

		client, err := assist.New(ctx, configWithCredentials(cfg, creds))
		if err != nil {
			return loginDoneMsg{err: err}
		}
		return loginDoneMsg{creds: creds, assistant: client}
	}
}

// formatSessionList renders recent sessions as a transcript notice.
func formatSessionList(sessions []store.SessionInfo) string {
	if len(sessions) == 0 {
		return "no recorded sessions yet"
	}
	var sb strings.Builder
	sb.WriteString("recent sessions:\n")
	for _, s := range sessions {
		fmt.Fprintf(&sb, "  %s — %d turns, last active %s\n",
			shortID(s.ID), s.Turns, s.LastAt.Format("2006-01-02 15:04"))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
