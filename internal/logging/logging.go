// Package logging builds the application's zap loggers. The TUI cannot
// log to the terminal it draws on, so interactive runs route output to
// a file under the user's .loft directory; plain CLI commands log to
// stderr as usual.
package logging

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DefaultLogPath returns the standard log file location
// (~/.loft/loft.log).
func DefaultLogPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".loft", "loft.log")
	}
	return filepath.Join(home, ".loft", "loft.log")
}

// Build constructs a logger at the given level. Empty level means
// info. When file is non-empty all output goes there instead of
// stderr; parent directories are created as needed.
func Build(level, file string) (*zap.Logger, error) {
	lvl := zapcore.InfoLevel
	if level != "" {
		parsed, err := zapcore.ParseLevel(level)
		if err != nil {
			return nil, fmt.Errorf("failed to parse log level %q: %w", level, err)
		}
		lvl = parsed
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	if file != "" {
		if err := os.MkdirAll(filepath.Dir(file), 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		cfg.OutputPaths = []string{file}
		cfg.ErrorOutputPaths = []string{file}
	}

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}

// Nop returns a disabled logger for tests and optional wiring.
func Nop() *zap.Logger { return zap.NewNop() }
