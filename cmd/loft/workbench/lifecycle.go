// Package workbench boot and shutdown: component initialization runs in
// a background command so the splash screen stays responsive, and
// teardown releases everything exactly once no matter how the program
// exits.
package workbench

import (
	"codeloft/internal/assist"
	"codeloft/internal/auth"
	"codeloft/internal/config"
	"codeloft/internal/editor"
	"codeloft/internal/project"
	"codeloft/internal/runner"
	"codeloft/internal/store"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Init starts the spinner, cursor blink, the boot sequence, and the
// resize-settle listener.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		textinput.Blink,
		m.bootCmd(),
		m.waitForResize(),
	)
}

// bootCmd opens the workspace and brings up the supporting components.
// Only the workspace itself is load-bearing; history, watching, and the
// assistant degrade to warnings so a broken ancillary never blocks
// editing.
func (m Model) bootCmd() tea.Cmd {
	cfg := m.cfg
	dir := m.workspaceDir
	logger := m.logger
	ctx := m.ctx

	return func() tea.Msg {
		ws, err := project.Open(dir, logger)
		if err != nil {
			return bootDoneMsg{err: err}
		}

		boot := &bootResult{workspace: ws}
		g, gctx := errgroup.WithContext(ctx)

		g.Go(func() error {
			entries, err := ws.List(gctx)
			if err != nil {
				return err
			}
			boot.entries = entries
			return nil
		})

		g.Go(func() error {
			w, err := project.NewWatcher(ws.Root(), logger)
			if err != nil {
				logger.Warn("file watching disabled", zap.Error(err))
				return nil
			}
			// The watcher outlives boot, so it runs on the model's
			// context rather than the group's.
			if err := w.Start(ctx); err != nil {
				w.Stop()
				logger.Warn("file watching disabled", zap.Error(err))
				return nil
			}
			boot.watcher = w
			return nil
		})

		g.Go(func() error {
			if !cfg.History.Enabled {
				return nil
			}
			h, err := store.OpenHistory(cfg.HistoryPath(), logger)
			if err != nil {
				logger.Warn("chat history disabled", zap.Error(err))
				return nil
			}
			boot.history = h
			return nil
		})

		g.Go(func() error {
			accounts, err := auth.NewManager()
			if err != nil {
				logger.Warn("credential store unavailable", zap.Error(err))
				return nil
			}
			boot.accounts = accounts

			creds, err := accounts.Current()
			if err != nil {
				return nil
			}
			boot.loggedIn = true
			boot.user = creds.Email

			client, err := assist.New(ctx, configWithCredentials(cfg, *creds))
			if err != nil {
				logger.Warn("assistant unavailable", zap.Error(err))
				return nil
			}
			boot.assistant = client
			return nil
		})

		if err := g.Wait(); err != nil {
			if boot.watcher != nil {
				boot.watcher.Stop()
			}
			if boot.history != nil {
				_ = boot.history.Close()
			}
			return bootDoneMsg{err: err}
		}

		host := editor.NewHost(ws.Persist, editor.WithLogger(logger))
		if err := host.Initialize(editorConfig(cfg)); err != nil {
			if boot.watcher != nil {
				boot.watcher.Stop()
			}
			if boot.history != nil {
				_ = boot.history.Close()
			}
			return bootDoneMsg{err: err}
		}
		boot.host = host

		return bootDoneMsg{boot: boot}
	}
}

// waitForResize delivers the next settled resize. Reissued after every
// receive so the channel is always drained.
func (m Model) waitForResize() tea.Cmd {
	ch := m.resizeCh
	return func() tea.Msg {
		return <-ch
	}
}

// waitForHostError delivers the next operational failure from the editor
// host. The channel is never closed; the receive parks until teardown
// ends the process.
func (m Model) waitForHostError() tea.Cmd {
	host := m.host
	return func() tea.Msg {
		return hostErrorMsg(<-host.Errors())
	}
}

// waitForChanges delivers the next settled batch of filesystem changes.
func (m Model) waitForChanges() tea.Cmd {
	w := m.watcher
	return func() tea.Msg {
		return fileChangesMsg(<-w.Changes())
	}
}

// Shutdown releases everything the workbench owns: pending resize
// timers, the watcher, the editor host, and the history store. Safe to
// call any number of times.
func (m *Model) Shutdown() {
	if m.shutdownOnce == nil {
		return
	}
	m.shutdownOnce.Do(func() {
		if m.resize != nil {
			m.resize.Cancel()
		}
		if m.watcher != nil {
			m.watcher.Stop()
		}
		if m.host != nil {
			m.host.Teardown()
		}
		if m.history != nil {
			if err := m.history.Close(); err != nil {
				m.logger.Warn("failed to close history store", zap.Error(err))
			}
		}
		if m.cancel != nil {
			m.cancel()
		}
	})
}

// performShutdown invokes Shutdown from update paths, which hold the
// model by value.
func (m Model) performShutdown() {
	modelPtr := &m
	modelPtr.Shutdown()
}

// Run starts the interactive workbench and blocks until it exits.
func Run(cfg *config.Config, workspaceDir string, logger *zap.Logger) error {
	m := NewModel(cfg, workspaceDir, logger)

	p := tea.NewProgram(m, tea.WithAltScreen())
	final, err := p.Run()

	// Quit paths call performShutdown before tea.Quit; this covers
	// errors and interrupts that bypass them.
	if fm, ok := final.(Model); ok {
		fm.performShutdown()
		if err == nil && fm.err != nil {
			// A failed boot quits the program; surface why.
			err = fm.err
		}
	}
	return err
}

// editorConfig maps the application configuration onto the editor
// host's settings.
func editorConfig(cfg *config.Config) editor.Config {
	return editor.Config{
		Height:               cfg.Editor.Height,
		Theme:                cfg.Editor.Theme,
		FontSize:             cfg.Editor.FontSize,
		AutoSave:             cfg.Editor.AutoSave,
		AutoSaveDelaySeconds: cfg.Editor.AutoSaveDelaySeconds,
	}
}

// configWithCredentials returns a copy of cfg with the stored login
// applied, leaving the shared configuration untouched.
func configWithCredentials(cfg *config.Config, creds auth.Credentials) *config.Config {
	dup := *cfg
	dup.Assist.Provider = creds.Provider
	dup.Assist.APIKey = creds.APIKey
	return &dup
}

// newRunner builds the run-code dispatcher rooted at the workspace.
func newRunner(cfg *config.Config, root string, logger *zap.Logger) *runner.Runner {
	dup := *cfg
	if dup.Runner.WorkingDirectory == "" || dup.Runner.WorkingDirectory == "." {
		dup.Runner.WorkingDirectory = root
	}
	return runner.New(&dup, logger)
}
