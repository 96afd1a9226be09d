// Package session provides SQLite-backed storage of per-turn usage for
// cost aggregation across runs.
package session

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // sqlite driver

	"agora/pkg/budget"
	"agora/pkg/logx"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id TEXT PRIMARY KEY,
	started_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS usage_turns (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL REFERENCES sessions(id),
	provider TEXT NOT NULL,
	model TEXT NOT NULL,
	input_tokens INTEGER NOT NULL,
	output_tokens INTEGER NOT NULL,
	total_tokens INTEGER NOT NULL,
	recorded_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_usage_turns_session ON usage_turns(session_id);
`

// Store records usage turns for one session. Unlike a process-wide
// singleton, each Store owns its connection, so independent runs can use
// independent databases.
type Store struct {
	db        *sql.DB
	sessionID string
	logger    *logx.Logger
}

// Totals is the aggregated usage of one session, grouped by provider and
// model.
type Totals struct {
	Provider     string `json:"provider"`
	Model        string `json:"model"`
	Turns        int64  `json:"turns"`
	InputTokens  int64  `json:"input_tokens"`
	OutputTokens int64  `json:"output_tokens"`
	TotalTokens  int64  `json:"total_tokens"`
}

// Open creates or opens the database at dbPath and starts a new session.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", fmt.Sprintf(
		"file:%s?_foreign_keys=ON&_journal_mode=WAL&_busy_timeout=5000",
		dbPath,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	// SQLite only supports one writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &Store{
		db:        db,
		sessionID: uuid.NewString(),
		logger:    logx.NewLogger("session"),
	}
	if _, err := db.Exec(
		"INSERT INTO sessions (id, started_at) VALUES (?, ?)",
		store.sessionID, time.Now().UTC(),
	); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	store.logger.Info("session store opened: %s (session: %s)", dbPath, store.sessionID)
	return store, nil
}

// SessionID returns the identifier of the session this store records into.
func (s *Store) SessionID() string {
	return s.sessionID
}

// RecordTurn persists one agent turn's usage. It implements the usage
// middleware's Sink interface.
func (s *Store) RecordTurn(provider, model string, u budget.Usage) error {
	total := u.TotalTokens
	if total == 0 {
		total = u.InputTokens + u.OutputTokens
	}
	_, err := s.db.Exec(
		`INSERT INTO usage_turns (session_id, provider, model, input_tokens, output_tokens, total_tokens, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.sessionID, provider, model, u.InputTokens, u.OutputTokens, total, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to record usage turn: %w", err)
	}
	return nil
}

// SessionTotals aggregates the current session's usage by provider and
// model.
func (s *Store) SessionTotals() ([]Totals, error) {
	rows, err := s.db.Query(
		`SELECT provider, model, COUNT(*), SUM(input_tokens), SUM(output_tokens), SUM(total_tokens)
		 FROM usage_turns WHERE session_id = ?
		 GROUP BY provider, model
		 ORDER BY provider, model`,
		s.sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query session totals: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var totals []Totals
	for rows.Next() {
		var t Totals
		if err := rows.Scan(&t.Provider, &t.Model, &t.Turns, &t.InputTokens, &t.OutputTokens, &t.TotalTokens); err != nil {
			return nil, fmt.Errorf("failed to scan totals row: %w", err)
		}
		totals = append(totals, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate totals: %w", err)
	}
	return totals, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close session store: %w", err)
	}
	return nil
}
