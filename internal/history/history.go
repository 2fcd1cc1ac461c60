// Package history persists a decision audit log to SQLite. The log is an
// observer of the transport layer: recording happens after a decision is
// produced and never feeds back into the decision path, so the core stays
// stateless.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

const schema = `
CREATE TABLE IF NOT EXISTS decisions (
	id              TEXT PRIMARY KEY,
	decision        TEXT NOT NULL,
	confidence      REAL NOT NULL,
	reaction_time   REAL NOT NULL,
	workflow_mode   TEXT NOT NULL,
	iteration       INTEGER NOT NULL,
	content_length  INTEGER NOT NULL,
	timed_out       INTEGER NOT NULL DEFAULT 0,
	created_at      TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_decisions_created_at ON decisions(created_at DESC);
`

// Entry is one recorded decision.
type Entry struct {
	ID             string    `json:"id"`
	Decision       string    `json:"decision"`
	Confidence     float64   `json:"confidence"`
	ReactionTimeMS float64   `json:"reaction_time"`
	WorkflowMode   string    `json:"workflow_mode"`
	Iteration      int       `json:"iteration"`
	ContentLength  int       `json:"content_length"`
	TimedOut       bool      `json:"timed_out"`
	CreatedAt      time.Time `json:"created_at"`
}

// Store is a SQLite-backed decision log.
type Store struct {
	db *sql.DB
}

// New opens (creating if needed) the decision log at path.
func New(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	// WAL keeps concurrent readers cheap while the server appends.
	db, err := sql.Open("sqlite3", "file:"+path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping history database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize history schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Record appends one decision to the log.
func (s *Store) Record(ctx context.Context, e Entry) error {
	if e.ID == "" {
		return fmt.Errorf("entry id is required")
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO decisions (id, decision, confidence, reaction_time, workflow_mode, iteration, content_length, timed_out, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Decision, e.Confidence, e.ReactionTimeMS, e.WorkflowMode,
		e.Iteration, e.ContentLength, boolToInt(e.TimedOut), e.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record decision: %w", err)
	}
	return nil
}

// Recent returns the newest entries, most recent first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit < 1 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, decision, confidence, reaction_time, workflow_mode, iteration, content_length, timed_out, created_at
		FROM decisions
		ORDER BY created_at DESC, id
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query decisions: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var timedOut int
		if err := rows.Scan(&e.ID, &e.Decision, &e.Confidence, &e.ReactionTimeMS,
			&e.WorkflowMode, &e.Iteration, &e.ContentLength, &timedOut, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan decision row: %w", err)
		}
		e.TimedOut = timedOut != 0
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate decisions: %w", err)
	}
	return entries, nil
}

// Count returns the total number of recorded decisions.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM decisions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count decisions: %w", err)
	}
	return n, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
