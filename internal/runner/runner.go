// Package runner executes the file in the active editor buffer. Scripted
// languages shell out to an allow-listed interpreter binary; Go buffers
// can instead be evaluated in-process so unsaved edits run as-is.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"

	"go.uber.org/zap"

	"codeloft/internal/config"
)

// maxOutputBytes caps how much program output is retained per stream.
const maxOutputBytes = 1 << 20

// Request describes what to run.
type Request struct {
	// Path is the file location on disk, used by binary runners.
	Path string
	// Language selects the run command.
	Language string
	// Source is the buffer contents, used by the Go interpreter.
	Source string
}

// Result is the outcome of a run. A non-zero ExitCode or a kill is a
// program outcome, not an infrastructure failure.
type Result struct {
	Stdout     string
	Stderr     string
	Combined   string
	ExitCode   int
	Duration   time.Duration
	Killed     bool
	KillReason string
	Truncated  bool
}

// Runner dispatches run requests to the right backend.
type Runner struct {
	allowed    map[string]bool
	allowedEnv []string
	workdir    string
	timeout    time.Duration
	interp     *GoInterpreter
	logger     *zap.Logger
}

// New builds a Runner from the loaded configuration.
func New(cfg *config.Config, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	allowed := make(map[string]bool, len(cfg.Runner.AllowedBinaries))
	for _, binary := range cfg.Runner.AllowedBinaries {
		allowed[binary] = true
	}
	r := &Runner{
		allowed:    allowed,
		allowedEnv: cfg.Runner.AllowedEnvVars,
		workdir:    cfg.Runner.WorkingDirectory,
		timeout:    cfg.GetRunnerTimeout(),
		logger:     logger,
	}
	if cfg.Runner.GoInterpreter {
		r.interp = NewGoInterpreter()
	}
	return r
}

// commandForFile maps a language to the argv that runs path.
func commandForFile(language, path string) ([]string, error) {
	switch language {
	case "go":
		return []string{"go", "run", path}, nil
	case "python":
		return []string{"python3", path}, nil
	case "javascript":
		return []string{"node", path}, nil
	case "ruby":
		return []string{"ruby", path}, nil
	case "shell":
		return []string{"bash", path}, nil
	default:
		return nil, fmt.Errorf("no run command registered for language %q", language)
	}
}

// Run executes the request and returns its outcome. An error return means
// the run could not be attempted at all.
func (r *Runner) Run(ctx context.Context, req Request) (*Result, error) {
	if req.Language == "go" && r.interp != nil {
		return r.runInterpreted(ctx, req)
	}
	return r.runBinary(ctx, req)
}

func (r *Runner) runBinary(ctx context.Context, req Request) (*Result, error) {
	argv, err := commandForFile(req.Language, req.Path)
	if err != nil {
		return nil, err
	}
	if req.Path == "" {
		return nil, fmt.Errorf("buffer has no file on disk; save it first")
	}
	if !r.allowed[argv[0]] {
		return nil, fmt.Errorf("binary %q is not in the allow list", argv[0])
	}

	runCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, argv[0], argv[1:]...)
	cmd.Dir = r.workdir
	cmd.Env = r.environment()

	stdout := newCappedWriter(maxOutputBytes)
	stderr := newCappedWriter(maxOutputBytes)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	r.logger.Debug("running file",
		zap.String("binary", argv[0]),
		zap.String("path", req.Path),
		zap.Duration("timeout", r.timeout))

	started := time.Now()
	runErr := cmd.Run()

	res := &Result{
		Stdout:    stdout.String(),
		Stderr:    stderr.String(),
		Duration:  time.Since(started),
		Truncated: stdout.Truncated() || stderr.Truncated(),
	}
	res.Combined = res.Stdout
	if res.Stderr != "" {
		if res.Combined != "" {
			res.Combined += "\n"
		}
		res.Combined += res.Stderr
	}

	if runErr != nil {
		var exitErr *exec.ExitError
		switch {
		case runCtx.Err() == context.DeadlineExceeded:
			res.Killed = true
			res.KillReason = fmt.Sprintf("timed out after %s", r.timeout)
			res.ExitCode = -1
		case runCtx.Err() == context.Canceled:
			res.Killed = true
			res.KillReason = "canceled"
			res.ExitCode = -1
		case errors.As(runErr, &exitErr):
			res.ExitCode = exitErr.ExitCode()
		default:
			return nil, fmt.Errorf("failed to run %s: %w", argv[0], runErr)
		}
	}

	r.logger.Debug("run finished",
		zap.String("binary", argv[0]),
		zap.Int("exit_code", res.ExitCode),
		zap.Bool("killed", res.Killed),
		zap.Duration("duration", res.Duration))
	return res, nil
}

func (r *Runner) runInterpreted(ctx context.Context, req Request) (*Result, error) {
	runCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	started := time.Now()
	output, err := r.interp.Run(runCtx, req.Source)

	res := &Result{
		Stdout:   output,
		Combined: output,
		Duration: time.Since(started),
	}
	if err != nil {
		if runCtx.Err() != nil {
			res.Killed = true
			res.KillReason = fmt.Sprintf("timed out after %s", r.timeout)
			res.ExitCode = -1
			return res, nil
		}
		// Parse failures and runtime errors belong in the output pane.
		res.ExitCode = 1
		if res.Combined != "" {
			res.Combined += "\n"
		}
		res.Combined += err.Error()
		return res, nil
	}
	return res, nil
}

// environment builds the child environment from the allow list. Anything
// not listed in the config never reaches the child process.
func (r *Runner) environment() []string {
	env := make([]string, 0, len(r.allowedEnv))
	for _, key := range r.allowedEnv {
		if val := os.Getenv(key); val != "" {
			env = append(env, key+"="+val)
		}
	}
	return env
}

// cappedWriter retains at most max bytes. Writes past the cap report
// success but are dropped. Safe for concurrent use.
type cappedWriter struct {
	mu        sync.Mutex
	buf       bytes.Buffer
	max       int64
	truncated bool
}

func newCappedWriter(max int64) *cappedWriter {
	return &cappedWriter{max: max}
}

func (cw *cappedWriter) Write(p []byte) (int, error) {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	n := len(p)
	written := int64(cw.buf.Len())
	if written >= cw.max {
		cw.truncated = true
		return n, nil
	}
	if remaining := cw.max - written; int64(n) > remaining {
		cw.truncated = true
		p = p[:remaining]
	}
	cw.buf.Write(p)
	return n, nil
}

func (cw *cappedWriter) String() string {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	return cw.buf.String()
}

func (cw *cappedWriter) Truncated() bool {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	return cw.truncated
}
