package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"codeloft/cmd/loft/workbench"
	"codeloft/internal/auth"
	"codeloft/internal/config"
	"codeloft/internal/logging"
	"codeloft/internal/store"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

var (
	// Global flags
	verbose    bool
	configPath string
	workspace  string

	// Shared state built in PersistentPreRunE
	cfg    *config.Config
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "loft",
	Short: "codeloft - terminal code workbench",
	Long: `codeloft is a terminal workbench for editing, running, and discussing code.

It opens a workspace directory in a three-pane layout: a file sidebar,
an editing surface with autosave, and an AI assistant chat with a run
panel underneath. Edits persist automatically after a configurable
delay; ctrl+s saves immediately.

Run without arguments to open the workbench in the current directory.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if verbose {
			cfg.Logging.Level = "debug"
		}

		// The workbench owns the terminal, so interactive runs log to a
		// file; plain subcommands log to stderr as usual.
		logFile := ""
		if cmd.Name() == "loft" {
			logFile = cfg.Logging.File
			if logFile == "" {
				logFile = logging.DefaultLogPath()
			}
		}
		logger, err = logging.Build(cfg.Logging.Level, logFile)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		// Default behavior: open the interactive workbench
		return runWorkbench()
	},
}

// loginCmd stores assistant credentials for later sessions
var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Verify an API key and store it for the assistant",
	Long: `Verifies an API key against the assistant backend and stores it under
~/.loft/credentials.json (mode 0600). The workbench picks the stored
login up on its next start and skips the sign-in screen.

Examples:
  loft login --key sk-...
  loft login --provider gemini --key AIza... --email you@example.com

Without --key the key comes from LOFT_API_KEY, OPENAI_API_KEY, or
GEMINI_API_KEY.`,
	RunE: runLogin,
}

// logoutCmd discards the stored credentials
var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the stored assistant credentials",
	RunE:  runLogout,
}

// versionCmd prints the application version
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the codeloft version",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("%s %s\n", cfg.Name, cfg.Version)
		return nil
	},
}

// configCmd groups configuration commands
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect or create the configuration file",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Long: `Prints the configuration after file loading and environment
overrides, as YAML. The API key is redacted.`,
	RunE: runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	Long: `Writes the default configuration to ~/.loft/config.yaml (or the
--config path). Refuses to overwrite an existing file.`,
	RunE: runConfigInit,
}

// historyCmd groups chat history maintenance commands
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect or prune the chat history database",
}

var historySessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List recent chat sessions",
	RunE:  runHistorySessions,
}

var historyPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete chat turns older than a cutoff",
	Long: `Deletes chat turns whose recorded time is older than --older-than.

Example:
  loft history prune --older-than 720h`,
	RunE: runHistoryPrune,
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ~/.loft/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "Workspace directory (default: current)")

	// Login flags
	loginCmd.Flags().String("provider", "openai", "Assistant provider: openai, gemini, or custom")
	loginCmd.Flags().String("email", "", "Email to associate with the login (optional)")
	loginCmd.Flags().String("key", "", "API key (falls back to environment)")

	// History flags
	historyPruneCmd.Flags().Duration("older-than", 30*24*time.Hour, "Delete turns older than this")

	// Subcommand wiring
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	historyCmd.AddCommand(historySessionsCmd)
	historyCmd.AddCommand(historyPruneCmd)

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(historyCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// runWorkbench opens the interactive workbench in the workspace.
func runWorkbench() error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	dir := workspace
	if dir == "" {
		var err error
		dir, err = os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to resolve working directory: %w", err)
		}
	}

	logger.Info("Opening workbench", zap.String("workspace", dir))
	return workbench.Run(cfg, dir, logger)
}

// runLogin verifies the key with the provider and stores it.
func runLogin(cmd *cobra.Command, args []string) error {
	provider, _ := cmd.Flags().GetString("provider")
	email, _ := cmd.Flags().GetString("email")
	key, _ := cmd.Flags().GetString("key")

	if key == "" {
		// Load already folded LOFT_API_KEY and the provider keys in.
		key = cfg.Assist.APIKey
	}
	if key == "" {
		return fmt.Errorf("no API key: pass --key or set LOFT_API_KEY")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	baseURL := ""
	if provider == "custom" {
		baseURL = cfg.Assist.BaseURL
	}
	if err := auth.NewVerifier().Verify(ctx, provider, baseURL, key); err != nil {
		return fmt.Errorf("key verification failed: %w", err)
	}

	manager, err := auth.NewManager()
	if err != nil {
		return err
	}
	if err := manager.Login(auth.Credentials{Provider: provider, APIKey: key, Email: email}); err != nil {
		return err
	}

	logger.Info("Stored credentials", zap.String("provider", provider))
	if email != "" {
		fmt.Printf("Logged in to %s as %s\n", provider, email)
	} else {
		fmt.Printf("Logged in to %s\n", provider)
	}
	return nil
}

// runLogout discards the stored credentials.
func runLogout(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return err
	}
	if !manager.LoggedIn() {
		fmt.Println("Not logged in")
		return nil
	}
	if err := manager.Logout(); err != nil {
		return err
	}
	fmt.Println("Logged out")
	return nil
}

// runConfigShow prints the effective configuration as YAML.
func runConfigShow(cmd *cobra.Command, args []string) error {
	shown := *cfg
	if shown.Assist.APIKey != "" {
		shown.Assist.APIKey = "(set)"
	}

	data, err := yaml.Marshal(&shown)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	path := configPath
	if path == "" {
		path = config.DefaultPath()
	}
	fmt.Printf("# %s\n%s", path, data)
	return nil
}

// runConfigInit writes a default configuration file.
func runConfigInit(cmd *cobra.Command, args []string) error {
	path := configPath
	if path == "" {
		path = config.DefaultPath()
	}

	if _, err := os.Stat(path); err == nil {
		fmt.Printf("Config already exists at %s\n", path)
		return nil
	}

	if err := config.DefaultConfig().Save(path); err != nil {
		return err
	}
	fmt.Printf("Wrote default config to %s\n", path)
	return nil
}

// runHistorySessions lists recent chat sessions.
func runHistorySessions(cmd *cobra.Command, args []string) error {
	history, err := store.OpenHistory(cfg.HistoryPath(), logger)
	if err != nil {
		return err
	}
	defer func() { _ = history.Close() }()

	sessions, err := history.RecentSessions(20)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Println("No recorded sessions")
		return nil
	}

	for _, s := range sessions {
		fmt.Printf("%s  %3d turns  last active %s\n",
			s.ID, s.Turns, s.LastAt.Format("2006-01-02 15:04"))
	}
	return nil
}

// runHistoryPrune deletes old chat turns.
func runHistoryPrune(cmd *cobra.Command, args []string) error {
	olderThan, _ := cmd.Flags().GetDuration("older-than")

	history, err := store.OpenHistory(cfg.HistoryPath(), logger)
	if err != nil {
		return err
	}
	defer func() { _ = history.Close() }()

	deleted, err := history.Prune(olderThan)
	if err != nil {
		return err
	}
	fmt.Printf("Pruned %d turn(s) older than %s\n", deleted, olderThan)
	return nil
}
