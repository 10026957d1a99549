// Package workbench test utilities: a lightweight model builder, a
// recording persist backend, and a mock assistant client.
package workbench

import (
	"context"
	"os"
	"strings"
	"sync"

	"codeloft/cmd/loft/ui"
	"codeloft/internal/assist"
	"codeloft/internal/config"
	"codeloft/internal/editor"
	"codeloft/internal/project"

	"go.uber.org/zap"
)

// contains reports whether rendered output carries a substring; styled
// text keeps its raw characters, so plain matching works.
func contains(haystack, needle string) bool {
	return strings.Contains(haystack, needle)
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o644)
}

// =============================================================================
// PERSIST RECORDER
// =============================================================================

// persistRecorder captures everything the editor host saves.
type persistRecorder struct {
	mu    sync.Mutex
	saves map[string]string
	calls int
	fail  error
}

func newPersistRecorder() *persistRecorder {
	return &persistRecorder{saves: make(map[string]string)}
}

func (r *persistRecorder) persist(fileID, content string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return r.fail
	}
	r.saves[fileID] = content
	r.calls++
	return nil
}

func (r *persistRecorder) get(fileID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.saves[fileID]
	return s, ok
}

func (r *persistRecorder) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

// =============================================================================
// MOCK ASSISTANT
// =============================================================================

// MockAssistClient simulates an assist.Client.
type MockAssistClient struct {
	mu          sync.Mutex
	reply       string
	err         error
	chatCalls   int
	lastSystem  string
	lastTurns   []assist.Message
	modelName   string
	lastPrompt  string
	systemSeen  []string
	promptsSeen []string
}

func newMockAssistClient(reply string) *MockAssistClient {
	return &MockAssistClient{reply: reply, modelName: "mock-model"}
}

func (c *MockAssistClient) Complete(_ context.Context, prompt string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastPrompt = prompt
	c.promptsSeen = append(c.promptsSeen, prompt)
	return c.reply, c.err
}

func (c *MockAssistClient) CompleteWithSystem(_ context.Context, systemPrompt, userPrompt string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastPrompt = userPrompt
	c.systemSeen = append(c.systemSeen, systemPrompt)
	return c.reply, c.err
}

func (c *MockAssistClient) Chat(_ context.Context, systemPrompt string, turns []assist.Message) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.chatCalls++
	c.lastSystem = systemPrompt
	c.lastTurns = append([]assist.Message(nil), turns...)
	return c.reply, c.err
}

func (c *MockAssistClient) Model() string {
	return c.modelName
}

func (c *MockAssistClient) chatCallCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.chatCalls
}

func (c *MockAssistClient) lastChat() (string, []assist.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastSystem, c.lastTurns
}

// =============================================================================
// TEST MODEL BUILDER
// =============================================================================

// TestModelOption configures a test model.
type TestModelOption func(*Model)

// NewTestModel creates a Model ready for Update and View tests: sized,
// past boot, with an editor host that saves into a throwaway recorder.
func NewTestModel(opts ...TestModelOption) Model {
	m := NewModel(config.DefaultConfig(), "/tmp/loft-test-workspace", zap.NewNop())

	host := editor.NewHost(newPersistRecorder().persist)
	_ = host.Initialize(editor.Config{Height: 10})
	m.host = host

	m.ready = true
	m.isBooting = false
	m.viewMode = WorkbenchView
	m.width = 120
	m.height = 40
	m.layout = ui.NewLayout(120, 40)
	m.applyLayout()
	m.turnNo = 1

	for _, opt := range opts {
		opt(&m)
	}
	return m
}

// WithBooting puts the model back into the boot state.
func WithBooting(booting bool) TestModelOption {
	return func(m *Model) {
		m.isBooting = booting
		if booting {
			m.viewMode = BootView
		}
	}
}

// WithViewMode sets the active view.
func WithViewMode(mode ViewMode) TestModelOption {
	return func(m *Model) {
		m.viewMode = mode
	}
}

// WithFocus sets the focused pane.
func WithFocus(f Focus) TestModelOption {
	return func(m *Model) {
		m.focus = f
		m.syncFocus()
	}
}

// WithSize sets the terminal dimensions and relays them into the layout.
func WithSize(width, height int) TestModelOption {
	return func(m *Model) {
		m.width = width
		m.height = height
		m.layout = ui.NewLayout(width, height)
		m.applyLayout()
	}
}

// WithHost replaces the editor host.
func WithHost(h *editor.Host) TestModelOption {
	return func(m *Model) {
		m.host = h
	}
}

// WithOpenFile loads a file into the host.
func WithOpenFile(f *editor.File) TestModelOption {
	return func(m *Model) {
		m.host.LoadFile(f)
		m.openedFile = f.ID
	}
}

// WithAssistant installs an assistant client.
func WithAssistant(c assist.Client) TestModelOption {
	return func(m *Model) {
		m.assistant = c
	}
}

// WithChatLog seeds the transcript.
func WithChatLog(msgs ...assist.Message) TestModelOption {
	return func(m *Model) {
		m.chatLog = append(m.chatLog, msgs...)
	}
}

// WithEntries seeds the sidebar listing.
func WithEntries(entries ...project.Entry) TestModelOption {
	return func(m *Model) {
		m.entries = entries
	}
}

// WithThinking marks an assistant request in flight.
func WithThinking(thinking bool) TestModelOption {
	return func(m *Model) {
		m.isThinking = thinking
	}
}
