// Package project is the workspace file provider behind the editor
// host: it lists the tree, loads files into buffer snapshots, and
// persists buffer content back to disk atomically. Persist has the
// editor.PersistFunc shape, so a Workspace plugs straight into the
// host as its save backend.
package project

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"codeloft/internal/editor"

	"go.uber.org/zap"
)

var (
	// ErrOutsideRoot is returned when a path resolves outside the
	// workspace root.
	ErrOutsideRoot = errors.New("path outside the workspace root")
	// ErrTooLarge is returned when a file exceeds the buffer size cap.
	ErrTooLarge = errors.New("file too large to open")
	// ErrBinaryFile is returned when a file does not look like text.
	ErrBinaryFile = errors.New("binary file")
)

const (
	// maxFileSize caps what Load pulls into a buffer.
	maxFileSize = 2 << 20
	// binarySniffLen is how many leading bytes Load inspects for NUL
	// bytes before deciding a file is binary.
	binarySniffLen = 8000
)

// allowedHiddenDirs are dot-directories worth showing; every other
// dot-directory is skipped wholesale.
var allowedHiddenDirs = map[string]bool{
	".github":   true,
	".vscode":   true,
	".circleci": true,
	".config":   true,
}

// skippedDirs are dependency and build-output trees that never belong
// in the sidebar.
var skippedDirs = map[string]bool{
	"node_modules": true,
	"vendor":       true,
	"dist":         true,
	"target":       true,
	"__pycache__":  true,
}

// Entry is one file in the workspace listing.
type Entry struct {
	Rel     string // workspace-relative, forward slashes
	Size    int64
	ModTime time.Time
}

// Workspace is rooted at one project directory. Every path handed to
// Load or Persist resolves inside the root; escapes are rejected.
type Workspace struct {
	root   string
	logger *zap.Logger
}

// Open roots a workspace at dir, which must exist and be a directory.
func Open(dir string, logger *zap.Logger) (*Workspace, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve workspace root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to open workspace %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("workspace root %s is not a directory", dir)
	}
	// Resolve the root itself so the containment check in resolve
	// compares like with like when the root sits behind a symlink.
	if resolved, rerr := filepath.EvalSymlinks(abs); rerr == nil {
		abs = resolved
	}
	return &Workspace{root: abs, logger: logger}, nil
}

// Root returns the absolute workspace root.
func (w *Workspace) Root() string { return w.root }

// List walks the workspace and returns every regular file, sorted by
// relative path. Dot-directories outside the allowlist and dependency
// trees are skipped.
func (w *Workspace) List(ctx context.Context) ([]Entry, error) {
	var entries []Entry
	err := filepath.Walk(w.root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // unreadable subtree, keep going
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		name := info.Name()
		if info.IsDir() {
			if path == w.root {
				return nil
			}
			if shouldSkipDir(name) {
				return filepath.SkipDir
			}
			return nil
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		rel, rerr := filepath.Rel(w.root, path)
		if rerr != nil {
			return nil
		}
		entries = append(entries, Entry{
			Rel:     filepath.ToSlash(rel),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list workspace: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Rel < entries[j].Rel })
	return entries, nil
}

// Load reads the file at the workspace-relative path and returns the
// snapshot the editor binds to a buffer. The snapshot's ID is the
// relative path, so persist calls route straight back to this
// workspace.
func (w *Workspace) Load(rel string) (*editor.File, error) {
	abs, err := w.resolve(rel)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", rel, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", rel)
	}
	if info.Size() > maxFileSize {
		return nil, fmt.Errorf("%s is %d bytes: %w", rel, info.Size(), ErrTooLarge)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", rel, err)
	}
	if looksBinary(data) {
		return nil, fmt.Errorf("%s: %w", rel, ErrBinaryFile)
	}
	canonical, err := filepath.Rel(w.root, abs)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", rel, err)
	}
	return &editor.File{
		ID:      filepath.ToSlash(canonical),
		Name:    filepath.Base(abs),
		Path:    abs,
		Content: string(data),
	}, nil
}

// Persist writes content for the given file ID atomically: the bytes
// land in a temp file next to the target, then rename over the
// destination, so a crash mid-write never truncates the original.
// Matches editor.PersistFunc.
func (w *Workspace) Persist(fileID, content string) error {
	abs, err := w.resolve(fileID)
	if err != nil {
		return err
	}
	if st, serr := os.Stat(abs); serr == nil && st.IsDir() {
		return fmt.Errorf("%s is a directory", fileID)
	}

	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	f, err := os.CreateTemp(dir, ".loft-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to stage %s: %w", fileID, err)
	}
	tmp := f.Name()
	cleanup := func() {
		_ = f.Close()
		_ = os.Remove(tmp)
	}

	if _, err := f.WriteString(content); err != nil {
		cleanup()
		return fmt.Errorf("failed to write %s: %w", fileID, err)
	}
	if err := f.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("failed to sync %s: %w", fileID, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to write %s: %w", fileID, err)
	}

	// CreateTemp makes the staging file 0600; carry the target's mode
	// across the rename, or the usual 0644 for a brand-new file.
	mode := os.FileMode(0o644)
	if info, serr := os.Stat(abs); serr == nil {
		mode = info.Mode().Perm()
	}
	if err := os.Chmod(tmp, mode); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to write %s: %w", fileID, err)
	}

	if err := os.Rename(tmp, abs); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to replace %s: %w", fileID, err)
	}

	w.logger.Debug("file persisted",
		zap.String("file", fileID),
		zap.Int("bytes", len(content)))
	return nil
}

// resolve maps a workspace-relative path to an absolute one inside the
// root, rejecting escapes through dot segments or symlinks.
func (w *Workspace) resolve(rel string) (string, error) {
	rel = strings.TrimSpace(rel)
	if rel == "" {
		return "", errors.New("empty file path")
	}
	rel = strings.TrimPrefix(rel, "/")
	abs := filepath.Clean(filepath.Join(w.root, filepath.FromSlash(rel)))

	rootPrefix := w.root + string(filepath.Separator)
	if abs != w.root && !strings.HasPrefix(abs, rootPrefix) {
		return "", fmt.Errorf("%s: %w", rel, ErrOutsideRoot)
	}
	// A symlink inside the tree can still point out of it.
	if p, err := filepath.EvalSymlinks(abs); err == nil {
		if p != w.root && !strings.HasPrefix(p, rootPrefix) {
			return "", fmt.Errorf("%s: %w", rel, ErrOutsideRoot)
		}
	}
	return abs, nil
}

func shouldSkipDir(name string) bool {
	if strings.HasPrefix(name, ".") && !allowedHiddenDirs[name] {
		return true
	}
	return skippedDirs[name]
}

func looksBinary(data []byte) bool {
	n := len(data)
	if n > binarySniffLen {
		n = binarySniffLen
	}
	return bytes.IndexByte(data[:n], 0) >= 0
}
