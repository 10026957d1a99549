// Package store persists chat transcripts to a local SQLite database
// so the assistant panel can recall recent turns across runs.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// Turn is one utterance in a chat session.
type Turn struct {
	SessionID string
	Number    int
	Role      string // "user" or "assistant"
	Content   string
	CreatedAt time.Time
}

// SessionInfo summarizes one stored session.
type SessionInfo struct {
	ID        string
	Turns     int
	StartedAt time.Time
	LastAt    time.Time
}

// History is the SQLite-backed chat transcript store.
type History struct {
	db     *sql.DB
	mu     sync.RWMutex
	path   string
	logger *zap.Logger
}

// OpenHistory initializes the database at path, creating parent
// directories as needed.
func OpenHistory(path string, logger *zap.Logger) (*History, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	h := &History{db: db, path: path, logger: logger}
	if err := h.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return h, nil
}

func (h *History) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS chat_turns (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		turn_number INTEGER NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(session_id, turn_number)
	);
	CREATE INDEX IF NOT EXISTS idx_chat_session ON chat_turns(session_id);
	`
	if _, err := h.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (h *History) Close() error {
	return h.db.Close()
}

// Path returns the database file location.
func (h *History) Path() string { return h.path }

// AddTurn records one conversation turn. Duplicate (session, turn)
// pairs are silently skipped so replays stay idempotent.
func (h *History) AddTurn(sessionID string, number int, role, content string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	_, err := h.db.Exec(
		`INSERT OR IGNORE INTO chat_turns (session_id, turn_number, role, content)
		 VALUES (?, ?, ?, ?)`,
		sessionID, number, role, content,
	)
	if err != nil {
		h.logger.Error("failed to store turn",
			zap.String("session", sessionID),
			zap.Int("turn", number),
			zap.Error(err))
		return fmt.Errorf("failed to store turn: %w", err)
	}
	return nil
}

// NextTurnNumber returns the next free turn number for a session,
// starting at 1 for a fresh session.
func (h *History) NextTurnNumber(sessionID string) (int, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var max sql.NullInt64
	err := h.db.QueryRow(
		`SELECT MAX(turn_number) FROM chat_turns WHERE session_id = ?`,
		sessionID,
	).Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("failed to query turn number: %w", err)
	}
	if !max.Valid {
		return 1, nil
	}
	return int(max.Int64) + 1, nil
}

// Recent returns the last limit turns of a session in chronological
// order.
func (h *History) Recent(sessionID string, limit int) ([]Turn, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}

	rows, err := h.db.Query(
		`SELECT turn_number, role, content, created_at
		 FROM chat_turns
		 WHERE session_id = ?
		 ORDER BY turn_number DESC
		 LIMIT ?`,
		sessionID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var turns []Turn
	for rows.Next() {
		t := Turn{SessionID: sessionID}
		if err := rows.Scan(&t.Number, &t.Role, &t.Content, &t.CreatedAt); err != nil {
			continue
		}
		turns = append(turns, t)
	}

	// The query walks newest-first; flip back to reading order.
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}

// RecentSessions lists stored sessions, most recently active first.
func (h *History) RecentSessions(limit int) ([]SessionInfo, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if limit <= 0 {
		limit = 10
	}

	rows, err := h.db.Query(
		`SELECT session_id, COUNT(*), MIN(created_at), MAX(created_at)
		 FROM chat_turns
		 GROUP BY session_id
		 ORDER BY MAX(created_at) DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []SessionInfo
	for rows.Next() {
		var s SessionInfo
		var started, last string
		if err := rows.Scan(&s.ID, &s.Turns, &started, &last); err != nil {
			continue
		}
		// MIN/MAX are expressions, so they come back as text rather
		// than the driver-converted time a plain DATETIME column gets.
		s.StartedAt = parseSQLiteTime(started)
		s.LastAt = parseSQLiteTime(last)
		sessions = append(sessions, s)
	}
	return sessions, nil
}

func parseSQLiteTime(s string) time.Time {
	for _, layout := range []string{"2006-01-02 15:04:05", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// Prune removes every session whose latest turn is older than the
// given age and reports how many turns were deleted.
func (h *History) Prune(olderThan time.Duration) (int64, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	res, err := h.db.Exec(
		`DELETE FROM chat_turns WHERE session_id IN (
		   SELECT session_id FROM chat_turns
		   GROUP BY session_id
		   HAVING MAX(created_at) < datetime('now', ?)
		 )`,
		fmt.Sprintf("-%d seconds", int64(olderThan.Seconds())),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to prune history: %w", err)
	}
	removed, _ := res.RowsAffected()
	if removed > 0 {
		h.logger.Debug("history pruned", zap.Int64("turns", removed))
	}
	return removed, nil
}
