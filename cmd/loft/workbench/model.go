// Package workbench implements the interactive TUI: a file sidebar, the
// editing surface, an assistant chat panel, and a run-output pane, glued
// to the editor host and the project workspace.
package workbench

import (
	"context"
	"sync"

	"codeloft/cmd/loft/ui"
	"codeloft/internal/assist"
	"codeloft/internal/auth"
	"codeloft/internal/config"
	"codeloft/internal/editor"
	"codeloft/internal/project"
	"codeloft/internal/runner"
	"codeloft/internal/store"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/glamour"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ViewMode selects which full-screen view is active.
type ViewMode int

const (
	// BootView shows the splash screen while components come up.
	BootView ViewMode = iota
	// LoginView shows the sign-in form.
	LoginView
	// WorkbenchView shows the three-pane editing layout.
	WorkbenchView
)

// Focus identifies which pane receives keystrokes.
type Focus int

const (
	FocusSidebar Focus = iota
	FocusEditor
	FocusChat
)

// Login form field indexes.
const (
	loginFieldProvider = iota
	loginFieldEmail
	loginFieldKey
	loginFieldCount
)

// =============================================================================
// MESSAGES
// =============================================================================

type (
	// bootDoneMsg reports the outcome of component initialization.
	bootDoneMsg struct {
		boot *bootResult
		err  error
	}

	// fileListMsg carries a fresh workspace listing.
	fileListMsg struct {
		entries []project.Entry
		err     error
	}

	// fileOpenedMsg carries a file loaded from the workspace.
	fileOpenedMsg struct {
		file *editor.File
		err  error
	}

	// fileChangesMsg is a settled batch of filesystem changes.
	fileChangesMsg []project.Change

	// chatReplyMsg carries the assistant's reply to the last prompt.
	chatReplyMsg struct {
		content string
		err     error
	}

	// fetchDoneMsg carries a fetched web page for the conversation.
	fetchDoneMsg struct {
		url     string
		content string
		err     error
	}

	// runDoneMsg carries the outcome of a code run.
	runDoneMsg struct {
		result *runner.Result
		err    error
	}

	// sessionListMsg carries recent chat sessions from the history store.
	sessionListMsg struct {
		sessions []store.SessionInfo
		err      error
	}

	// hostErrorMsg is an operational failure drained from the editor host.
	hostErrorMsg editor.HostError

	// loginDoneMsg reports the outcome of a sign-in attempt.
	loginDoneMsg struct {
		creds     auth.Credentials
		assistant assist.Client
		err       error
	}

	// resizeSettledMsg fires after a resize burst has gone quiet.
	resizeSettledMsg struct {
		width  int
		height int
	}
)

// bootResult is everything the boot sequence constructs.
type bootResult struct {
	workspace *project.Workspace
	watcher   *project.Watcher
	host      *editor.Host
	entries   []project.Entry
	history   *store.History
	accounts  *auth.Manager
	assistant assist.Client
	user      string
	loggedIn  bool
}

// =============================================================================
// MODEL
// =============================================================================

// Model is the bubbletea model for the whole workbench.
type Model struct {
	// Dimensions and layout
	width  int
	height int
	layout ui.Layout
	ready  bool

	// Appearance
	styles   ui.Styles
	renderer *glamour.TermRenderer

	// View state
	viewMode  ViewMode
	focus     Focus
	isBooting bool
	err       error
	status    string
	statusErr bool

	// Sidebar
	entries    []project.Entry
	cursor     int
	changed    map[string]bool
	openedFile string

	// Editing surface
	host *editor.Host

	// Chat panel
	chatVP     viewport.Model
	chatInput  textinput.Model
	chatLog    []assist.Message
	fetched    []fetchedPage
	isThinking bool
	spinner    spinner.Model

	// Run pane
	runVP     viewport.Model
	runOutput string
	isRunning bool

	// Login form
	loginInputs [loginFieldCount]textinput.Model
	loginFocus  int
	loginBusy   bool
	loginErr    error

	// Components
	cfg       *config.Config
	workspace *project.Workspace
	watcher   *project.Watcher
	history   *store.History
	assistant assist.Client
	fetcher   *assist.PageFetcher
	runner    *runner.Runner
	accounts  *auth.Manager
	verifier  *auth.Verifier
	logger    *zap.Logger

	// Session
	sessionID string
	turnNo    int
	user      string

	// Resize settling
	resize   *ui.ResizeDebouncer
	resizeCh chan resizeSettledMsg

	// Shutdown (pointer so every copy of the model shares it)
	shutdownOnce *sync.Once
	ctx          context.Context
	cancel       context.CancelFunc

	workspaceDir string
	quitArmed    bool
}

// fetchedPage is web content pulled into the conversation via /fetch.
type fetchedPage struct {
	url     string
	content string
}

// NewModel constructs the workbench over a workspace directory. Heavy
// initialization happens in the boot command, not here.
func NewModel(cfg *config.Config, workspaceDir string, logger *zap.Logger) Model {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	theme, err := ui.ThemeByName(cfg.Editor.Theme)
	if err != nil {
		theme = ui.DetectTheme()
	}
	styles := ui.NewStyles(theme)

	ci := textinput.New()
	ci.Placeholder = "Ask about your code, or /help"
	ci.CharLimit = 4000
	ci.Prompt = "> "

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.Spinner

	var logins [loginFieldCount]textinput.Model
	for i := range logins {
		logins[i] = textinput.New()
		logins[i].CharLimit = 256
		logins[i].Prompt = ""
	}
	logins[loginFieldProvider].Placeholder = "openai, gemini or custom"
	logins[loginFieldProvider].SetValue(cfg.Assist.Provider)
	logins[loginFieldEmail].Placeholder = "you@example.com (optional)"
	logins[loginFieldKey].Placeholder = "sk-..."
	logins[loginFieldKey].EchoMode = textinput.EchoPassword
	logins[loginFieldKey].EchoCharacter = '*'
	logins[loginFieldProvider].Focus()

	ctx, cancel := context.WithCancel(context.Background())

	return Model{
		styles:       styles,
		viewMode:     BootView,
		isBooting:    true,
		focus:        FocusSidebar,
		changed:      make(map[string]bool),
		chatVP:       viewport.New(0, 0),
		chatInput:    ci,
		spinner:      sp,
		runVP:        viewport.New(0, 0),
		loginInputs:  logins,
		cfg:          cfg,
		fetcher:      assist.NewPageFetcher(),
		verifier:     auth.NewVerifier(),
		logger:       logger,
		sessionID:    uuid.New().String(),
		resize:       ui.NewResizeDebouncer(ui.DefaultResizeDelay),
		resizeCh:     make(chan resizeSettledMsg, 1),
		shutdownOnce: &sync.Once{},
		ctx:          ctx,
		cancel:       cancel,
		workspaceDir: workspaceDir,
	}
}

// newRenderer builds the markdown renderer for the current theme and a
// wrap width matching the chat pane.
func newRenderer(theme ui.Theme, wrap int) *glamour.TermRenderer {
	if wrap < 20 {
		wrap = 20
	}
	var r *glamour.TermRenderer
	if theme.IsDark {
		r, _ = glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(wrap),
		)
	} else {
		r, _ = glamour.NewTermRenderer(
			glamour.WithStylePath("light"),
			glamour.WithWordWrap(wrap),
		)
	}
	return r
}
