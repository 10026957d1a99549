// Package auth stores the signed-in identity for the workbench and
// verifies provider API keys at login time.
package auth

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const (
	// credentialTTL is how long a login stays valid before the user has
	// to sign in again.
	credentialTTL = 30 * 24 * time.Hour

	// expiryMargin keeps credentials that are about to lapse from being
	// handed out mid-session.
	expiryMargin = 5 * time.Minute
)

// Credentials is the stored identity.
type Credentials struct {
	Provider string    `json:"provider"`
	APIKey   string    `json:"api_key"`
	Email    string    `json:"email,omitempty"`
	Expiry   time.Time `json:"expiry"`
}

// Manager owns the credentials file.
type Manager struct {
	file  string
	mu    sync.Mutex
	creds *Credentials
}

// NewManager creates a manager over ~/.loft/credentials.json and loads
// any existing credentials.
func NewManager() (*Manager, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve home directory: %w", err)
	}
	m := NewManagerWithFile(filepath.Join(home, ".loft", "credentials.json"))
	_ = m.Load()
	return m, nil
}

// NewManagerWithFile creates a manager over an explicit file path.
func NewManagerWithFile(path string) *Manager {
	return &Manager{file: path}
}

// Load reads credentials from disk.
func (m *Manager) Load() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := os.ReadFile(m.file)
	if err != nil {
		return err
	}
	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return fmt.Errorf("failed to parse credentials file: %w", err)
	}
	m.creds = &creds
	return nil
}

// Login records the credentials and persists them. A zero expiry gets
// the default TTL.
func (m *Manager) Login(creds Credentials) error {
	if creds.Expiry.IsZero() {
		creds.Expiry = time.Now().Add(credentialTTL)
	}

	m.mu.Lock()
	m.creds = &creds
	m.mu.Unlock()

	return m.save()
}

// Logout clears the stored credentials and removes the file.
func (m *Manager) Logout() error {
	m.mu.Lock()
	m.creds = nil
	m.mu.Unlock()

	if err := os.Remove(m.file); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove credentials file: %w", err)
	}
	return nil
}

// Current returns the stored credentials if they are still usable.
func (m *Manager) Current() (*Credentials, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.creds == nil {
		return nil, fmt.Errorf("not logged in")
	}
	if !time.Now().Add(expiryMargin).Before(m.creds.Expiry) {
		return nil, fmt.Errorf("login expired, sign in again")
	}
	return m.creds, nil
}

// LoggedIn reports whether usable credentials exist.
func (m *Manager) LoggedIn() bool {
	_, err := m.Current()
	return err == nil
}

func (m *Manager) save() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.creds == nil {
		return nil
	}
	data, err := json.MarshalIndent(m.creds, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode credentials: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(m.file), 0o755); err != nil {
		return fmt.Errorf("failed to create credentials directory: %w", err)
	}
	// Credentials hold an API key; keep the file owner-only.
	if err := os.WriteFile(m.file, data, 0o600); err != nil {
		return fmt.Errorf("failed to write credentials file: %w", err)
	}
	return nil
}
