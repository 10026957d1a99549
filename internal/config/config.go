// Package config loads and validates the application configuration.
// Settings live in a YAML file under the user's .loft directory and can
// be overridden through environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all codeloft configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// Editing surface
	Editor EditorConfig `yaml:"editor"`

	// AI assistant backend
	Assist AssistConfig `yaml:"assist"`

	// Run-code execution
	Runner RunnerConfig `yaml:"runner"`

	// Chat transcript persistence
	History HistoryConfig `yaml:"history"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// EditorConfig configures the editing surface.
type EditorConfig struct {
	Height               int    `yaml:"height"`
	Theme                string `yaml:"theme"` // light, dark
	FontSize             int    `yaml:"font_size"`
	TabWidth             int    `yaml:"tab_width"`
	AutoSave             bool   `yaml:"auto_save"`
	AutoSaveDelaySeconds int    `yaml:"auto_save_delay_seconds"`
}

// AssistConfig configures the assistant client.
type AssistConfig struct {
	Provider string `yaml:"provider"` // openai, gemini, custom
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
	BaseURL  string `yaml:"base_url"`
	Timeout  string `yaml:"timeout"`
}

// RunnerConfig configures run-code dispatch.
type RunnerConfig struct {
	// Allowed binaries for dispatched commands
	AllowedBinaries []string `yaml:"allowed_binaries"`

	// Default timeout for commands
	DefaultTimeout string `yaml:"default_timeout"`

	// Working directory
	WorkingDirectory string `yaml:"working_directory"`

	// Environment variables to pass
	AllowedEnvVars []string `yaml:"allowed_env_vars"`

	// Run Go files through the in-process interpreter instead of the
	// go binary
	GoInterpreter bool `yaml:"go_interpreter"`
}

// HistoryConfig configures chat history storage.
type HistoryConfig struct {
	Enabled      bool   `yaml:"enabled"`
	DatabasePath string `yaml:"database_path"`
	MaxTurns     int    `yaml:"max_turns"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
	File  string `yaml:"file"`
}

// ValidProviders lists the assist backends the client factory accepts.
var ValidProviders = []string{"openai", "gemini", "custom"}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "codeloft",
		Version: "1.0.0",

		Editor: EditorConfig{
			Theme:                "light",
			FontSize:             13,
			TabWidth:             4,
			AutoSave:             true,
			AutoSaveDelaySeconds: 5,
		},

		Assist: AssistConfig{
			Provider: "openai",
			Model:    "gpt-4o-mini",
			BaseURL:  "https://api.openai.com/v1",
			Timeout:  "60s",
		},

		Runner: RunnerConfig{
			AllowedBinaries: []string{
				"go", "python3", "python", "node",
				"ruby", "bash", "sh",
			},
			DefaultTimeout:   "30s",
			WorkingDirectory: ".",
			AllowedEnvVars:   []string{"PATH", "HOME", "GOPATH", "GOROOT"},
			GoInterpreter:    true,
		},

		History: HistoryConfig{
			Enabled:  true,
			MaxTurns: 500,
		},

		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// DefaultPath returns the standard config file location
// (~/.loft/config.yaml).
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".loft", "config.yaml")
	}
	return filepath.Join(home, ".loft", "config.yaml")
}

// DefaultHistoryPath returns the standard chat history database
// location (~/.loft/history.db).
func DefaultHistoryPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".loft", "history.db")
	}
	return filepath.Join(home, ".loft", "history.db")
}

// Load loads configuration from a YAML file. An empty path means the
// default location; a missing file is not an error, defaults apply.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}

	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Return defaults if config file doesn't exist
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Override with environment variables
	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	if path == "" {
		path = DefaultPath()
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides lets environment variables win over file values.
// Provider-specific keys also select their provider when none was set,
// so exporting a single key is enough to get going.
func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		c.Assist.APIKey = key
		if c.Assist.Provider == "" {
			c.Assist.Provider = "openai"
		}
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.Assist.APIKey = key
		if c.Assist.Provider == "" {
			c.Assist.Provider = "gemini"
		}
	}
	// LOFT_API_KEY wins over provider-specific keys.
	if key := os.Getenv("LOFT_API_KEY"); key != "" {
		c.Assist.APIKey = key
	}

	if url := os.Getenv("LOFT_ASSIST_URL"); url != "" {
		c.Assist.BaseURL = url
	}
	if model := os.Getenv("LOFT_ASSIST_MODEL"); model != "" {
		c.Assist.Model = model
	}
	if theme := os.Getenv("LOFT_THEME"); theme != "" {
		c.Editor.Theme = theme
	}
	if db := os.Getenv("LOFT_DB"); db != "" {
		c.History.DatabasePath = db
	}
}

// GetAssistTimeout parses the assist timeout, falling back to 60s on a
// missing or malformed value.
func (c *Config) GetAssistTimeout() time.Duration {
	if c.Assist.Timeout != "" {
		if d, err := time.ParseDuration(c.Assist.Timeout); err == nil {
			return d
		}
	}
	return 60 * time.Second
}

// GetRunnerTimeout parses the runner timeout, falling back to 30s on a
// missing or malformed value.
func (c *Config) GetRunnerTimeout() time.Duration {
	if c.Runner.DefaultTimeout != "" {
		if d, err := time.ParseDuration(c.Runner.DefaultTimeout); err == nil {
			return d
		}
	}
	return 30 * time.Second
}

// HistoryPath resolves the chat history database location.
func (c *Config) HistoryPath() string {
	if c.History.DatabasePath != "" {
		return c.History.DatabasePath
	}
	return DefaultHistoryPath()
}

// Validate checks the configuration for values no component can act on.
func (c *Config) Validate() error {
	switch c.Editor.Theme {
	case "", "light", "dark":
	default:
		return fmt.Errorf("editor.theme must be light or dark, got %q", c.Editor.Theme)
	}
	if c.Editor.FontSize < 0 {
		return fmt.Errorf("editor.font_size must not be negative")
	}
	if c.Editor.TabWidth < 0 {
		return fmt.Errorf("editor.tab_width must not be negative")
	}

	if c.Assist.Provider != "" {
		valid := false
		for _, p := range ValidProviders {
			if c.Assist.Provider == p {
				valid = true
				break
			}
		}
		if !valid {
			return fmt.Errorf("assist.provider must be one of %v, got %q", ValidProviders, c.Assist.Provider)
		}
	}

	if c.History.MaxTurns < 0 {
		return fmt.Errorf("history.max_turns must not be negative")
	}

	return nil
}
