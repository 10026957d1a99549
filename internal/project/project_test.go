package project

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"codeloft/internal/editor"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tempWorkspace lays out a small project tree and opens it.
func tempWorkspace(t *testing.T) *Workspace {
	t.Helper()
	root := t.TempDir()

	files := map[string]string{
		"main.go":                   "package main\n\nfunc main() {}\n",
		"docs/readme.md":            "# readme\n",
		".gitignore":                "dist/\n",
		".git/config":               "[core]\n",
		".github/workflows/ci.yml":  "on: push\n",
		"node_modules/pkg/index.js": "module.exports = 1\n",
		"vendor/dep/dep.go":         "package dep\n",
	}
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}

	ws, err := Open(root, nil)
	require.NoError(t, err)
	return ws
}

func relPaths(entries []Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Rel)
	}
	return out
}

func TestOpen_RequiresDirectory(t *testing.T) {
	file := filepath.Join(t.TempDir(), "plain.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	_, err := Open(file, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a directory")

	_, err = Open(filepath.Join(t.TempDir(), "missing"), nil)
	require.Error(t, err)
}

func TestWorkspace_List(t *testing.T) {
	ws := tempWorkspace(t)

	entries, err := ws.List(context.Background())
	require.NoError(t, err)

	rels := relPaths(entries)
	assert.Contains(t, rels, "main.go")
	assert.Contains(t, rels, "docs/readme.md")
	assert.Contains(t, rels, ".gitignore")
	// .github is allowlisted, .git and dependency trees are not.
	assert.Contains(t, rels, ".github/workflows/ci.yml")
	assert.NotContains(t, rels, ".git/config")
	assert.NotContains(t, rels, "node_modules/pkg/index.js")
	assert.NotContains(t, rels, "vendor/dep/dep.go")

	assert.IsIncreasing(t, rels)
}

func TestWorkspace_ListHonorsContext(t *testing.T) {
	ws := tempWorkspace(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ws.List(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWorkspace_LoadRoundTrip(t *testing.T) {
	ws := tempWorkspace(t)

	f, err := ws.Load("docs/readme.md")
	require.NoError(t, err)

	assert.Equal(t, "docs/readme.md", f.ID)
	assert.Equal(t, "readme.md", f.Name)
	assert.Equal(t, filepath.Join(ws.Root(), "docs", "readme.md"), f.Path)
	assert.Equal(t, "# readme\n", f.Content)
}

func TestWorkspace_LoadErrors(t *testing.T) {
	ws := tempWorkspace(t)

	_, err := ws.Load("docs")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is a directory")

	_, err = ws.Load("missing.txt")
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = ws.Load("")
	require.Error(t, err)
}

func TestWorkspace_LoadRejectsBinary(t *testing.T) {
	ws := tempWorkspace(t)
	require.NoError(t, os.WriteFile(
		filepath.Join(ws.Root(), "blob.bin"),
		[]byte{0x7f, 'E', 'L', 'F', 0x00, 0x01, 0x02},
		0o644,
	))

	_, err := ws.Load("blob.bin")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBinaryFile)
}

func TestWorkspace_LoadRejectsOversizedFile(t *testing.T) {
	ws := tempWorkspace(t)
	big := bytes.Repeat([]byte("a"), maxFileSize+1)
	require.NoError(t, os.WriteFile(filepath.Join(ws.Root(), "big.txt"), big, 0o644))

	_, err := ws.Load("big.txt")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestWorkspace_RejectsEscapes(t *testing.T) {
	ws := tempWorkspace(t)

	_, err := ws.Load("../outside.txt")
	assert.ErrorIs(t, err, ErrOutsideRoot)

	err = ws.Persist("../../etc/escape.txt", "nope")
	assert.ErrorIs(t, err, ErrOutsideRoot)
}

func TestWorkspace_PersistReplacesContent(t *testing.T) {
	ws := tempWorkspace(t)

	require.NoError(t, ws.Persist("main.go", "package main\n\n// edited\nfunc main() {}\n"))

	data, err := os.ReadFile(filepath.Join(ws.Root(), "main.go"))
	require.NoError(t, err)
	assert.Equal(t, "package main\n\n// edited\nfunc main() {}\n", string(data))

	// No staging leftovers.
	entries, err := os.ReadDir(ws.Root())
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".loft-")
	}
}

func TestWorkspace_PersistCreatesParents(t *testing.T) {
	ws := tempWorkspace(t)

	require.NoError(t, ws.Persist("notes/today/plan.md", "- ship it\n"))

	data, err := os.ReadFile(filepath.Join(ws.Root(), "notes", "today", "plan.md"))
	require.NoError(t, err)
	assert.Equal(t, "- ship it\n", string(data))
}

func TestWorkspace_PersistKeepsFileMode(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("no unix file modes on windows")
	}
	ws := tempWorkspace(t)
	script := filepath.Join(ws.Root(), "run.sh")
	require.NoError(t, os.WriteFile(script, []byte("echo old\n"), 0o755))

	require.NoError(t, ws.Persist("run.sh", "echo new\n"))

	info, err := os.Stat(script)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o755), info.Mode().Perm())
}

func TestWorkspace_PersistRejectsDirectoryTarget(t *testing.T) {
	ws := tempWorkspace(t)

	err := ws.Persist("docs", "overwrite a directory")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is a directory")
}

// The workspace doubles as the editor host's persist backend: a loaded
// file's ID routes a save straight back to its path on disk.
func TestWorkspace_BacksEditorHost(t *testing.T) {
	ws := tempWorkspace(t)

	host := editor.NewHost(ws.Persist)
	defer host.Teardown()
	require.NoError(t, host.Initialize(editor.Config{Height: 10}))

	f, err := ws.Load("main.go")
	require.NoError(t, err)
	host.LoadFile(f)

	host.OnContentChanged("package main\n\nfunc main() { println(42) }\n")
	host.Save()

	data, err := os.ReadFile(filepath.Join(ws.Root(), "main.go"))
	require.NoError(t, err)
	assert.Equal(t, "package main\n\nfunc main() { println(42) }\n", string(data))
	assert.False(t, host.UIState().HasUnsavedChanges)
}
