package runner

import (
	"context"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"strconv"
	"strings"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
)

// goImportAllowlist is the set of standard-library packages an
// interpreted buffer may import. Packages that reach the filesystem,
// network, or process table are deliberately absent.
var goImportAllowlist = map[string]bool{
	"bufio":           true,
	"bytes":           true,
	"container/heap":  true,
	"container/list":  true,
	"encoding/base64": true,
	"encoding/json":   true,
	"errors":          true,
	"fmt":             true,
	"math":            true,
	"math/rand":       true,
	"regexp":          true,
	"sort":            true,
	"strconv":         true,
	"strings":         true,
	"time":            true,
	"unicode":         true,
	"unicode/utf8":    true,
}

// GoInterpreter evaluates Go buffers with yaegi instead of shelling out
// to the toolchain, so unsaved edits run exactly as typed.
type GoInterpreter struct{}

// NewGoInterpreter creates an interpreter-backed Go runner.
func NewGoInterpreter() *GoInterpreter {
	return &GoInterpreter{}
}

// Run evaluates src, which must be a program with a main function, and
// returns everything it printed. The returned output is valid even when
// an error is also returned.
func (g *GoInterpreter) Run(ctx context.Context, src string) (string, error) {
	full := ensureMainPackage(src)

	file, err := parser.ParseFile(token.NewFileSet(), "buffer.go", full, 0)
	if err != nil {
		return "", fmt.Errorf("source does not parse: %w", err)
	}
	if err := checkImports(file); err != nil {
		return "", err
	}
	if !declaresMain(file) {
		return "", fmt.Errorf("source must declare func main")
	}

	out := newCappedWriter(maxOutputBytes)
	i := interp.New(interp.Options{Stdout: out, Stderr: out})
	if err := i.Use(stdlib.Symbols); err != nil {
		return "", fmt.Errorf("failed to load stdlib symbols: %w", err)
	}

	if _, err := i.EvalWithContext(ctx, full); err != nil {
		return out.String(), fmt.Errorf("evaluation failed: %w", err)
	}

	entry, err := i.EvalWithContext(ctx, "main.main")
	if err != nil {
		return out.String(), fmt.Errorf("main not found: %w", err)
	}
	mainFn, ok := entry.Interface().(func())
	if !ok {
		return out.String(), fmt.Errorf("main has the wrong signature")
	}

	// The interpreted main cannot be preempted once started, so it runs
	// on its own goroutine and the caller's deadline wins the select.
	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("program panicked: %v", r)
			}
		}()
		mainFn()
		done <- nil
	}()

	select {
	case err := <-done:
		return out.String(), err
	case <-ctx.Done():
		return out.String(), fmt.Errorf("execution stopped: %w", ctx.Err())
	}
}

// ensureMainPackage prepends a package clause when the buffer omits one.
func ensureMainPackage(src string) string {
	if strings.Contains(src, "package main") {
		return src
	}
	return "package main\n\n" + src
}

// checkImports rejects imports outside the allow list.
func checkImports(file *ast.File) error {
	var forbidden []string
	for _, imp := range file.Imports {
		path, err := strconv.Unquote(imp.Path.Value)
		if err != nil {
			path = imp.Path.Value
		}
		if !goImportAllowlist[path] {
			forbidden = append(forbidden, path)
		}
	}
	if len(forbidden) > 0 {
		return fmt.Errorf("imports not allowed in interpreted runs: %s", strings.Join(forbidden, ", "))
	}
	return nil
}

// declaresMain reports whether the file declares a niladic main function.
func declaresMain(file *ast.File) bool {
	for _, decl := range file.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if !ok || fn.Recv != nil {
			continue
		}
		if fn.Name.Name == "main" {
			return true
		}
	}
	return false
}
