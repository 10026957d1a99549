package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnvOverrides blanks every variable Load folds in, so assertions
// against defaults hold on machines that carry real keys.
func clearEnvOverrides(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"OPENAI_API_KEY", "GEMINI_API_KEY", "LOFT_API_KEY",
		"LOFT_ASSIST_URL", "LOFT_ASSIST_MODEL", "LOFT_THEME", "LOFT_DB",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	clearEnvOverrides(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	if diff := cmp.Diff(DefaultConfig(), cfg); diff != "" {
		t.Errorf("defaults mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	clearEnvOverrides(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte("editor:\n  theme: dark\n  auto_save_delay_seconds: 2\n")
	require.NoError(t, os.WriteFile(path, data, 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "dark", cfg.Editor.Theme)
	assert.Equal(t, 2, cfg.Editor.AutoSaveDelaySeconds)

	// Untouched sections keep their defaults.
	assert.Equal(t, 13, cfg.Editor.FontSize)
	assert.Equal(t, "openai", cfg.Assist.Provider)
	assert.Contains(t, cfg.Runner.AllowedBinaries, "go")
}

func TestLoad_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("editor: [not a map"), 0644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config")
}

func TestSaveLoadRoundTrip(t *testing.T) {
	clearEnvOverrides(t)

	path := filepath.Join(t.TempDir(), "sub", "config.yaml")

	cfg := DefaultConfig()
	cfg.Editor.Theme = "dark"
	cfg.Editor.Height = 30
	cfg.Assist.Model = "gpt-4o"
	cfg.History.MaxTurns = 50

	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)

	if diff := cmp.Diff(cfg, loaded); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestTimeoutGetters(t *testing.T) {
	cfg := &Config{}
	assert.Equal(t, 60*time.Second, cfg.GetAssistTimeout(), "empty assist timeout falls back")
	assert.Equal(t, 30*time.Second, cfg.GetRunnerTimeout(), "empty runner timeout falls back")

	cfg.Assist.Timeout = "90s"
	cfg.Runner.DefaultTimeout = "5s"
	assert.Equal(t, 90*time.Second, cfg.GetAssistTimeout())
	assert.Equal(t, 5*time.Second, cfg.GetRunnerTimeout())

	cfg.Assist.Timeout = "not-a-duration"
	assert.Equal(t, 60*time.Second, cfg.GetAssistTimeout(), "malformed timeout falls back")
}

func TestHistoryPath(t *testing.T) {
	cfg := &Config{}
	assert.Equal(t, DefaultHistoryPath(), cfg.HistoryPath())

	cfg.History.DatabasePath = "/tmp/loft-test.db"
	assert.Equal(t, "/tmp/loft-test.db", cfg.HistoryPath())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults are valid", mutate: func(c *Config) {}},
		{name: "dark theme valid", mutate: func(c *Config) { c.Editor.Theme = "dark" }},
		{name: "empty theme valid", mutate: func(c *Config) { c.Editor.Theme = "" }},
		{name: "unknown theme", mutate: func(c *Config) { c.Editor.Theme = "sepia" }, wantErr: "editor.theme"},
		{name: "negative font size", mutate: func(c *Config) { c.Editor.FontSize = -1 }, wantErr: "font_size"},
		{name: "negative tab width", mutate: func(c *Config) { c.Editor.TabWidth = -2 }, wantErr: "tab_width"},
		{name: "unknown provider", mutate: func(c *Config) { c.Assist.Provider = "llamacloud" }, wantErr: "assist.provider"},
		{name: "empty provider valid", mutate: func(c *Config) { c.Assist.Provider = "" }},
		{name: "negative max turns", mutate: func(c *Config) { c.History.MaxTurns = -1 }, wantErr: "max_turns"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}
