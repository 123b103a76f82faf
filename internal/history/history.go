/*
Package history records handler-selection analytics in a local SQLite
database (modernc.org/sqlite, pure Go).

The database lives beside the handler registry and is strictly supplemental:
if it cannot be opened or migrated the store disables itself with a warning
and every write becomes a no-op, so analytics failures never affect request
handling. Queries are stored as SHA-256 hashes, not raw text.
*/
package history

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// Decision records which path the coordinator took for a request.
type Decision string

const (
	DecisionReused  Decision = "reused"
	DecisionCreated Decision = "created"
)

// SelectionEvent is one handler selection (reuse or create).
type SelectionEvent struct {
	// HandlerID is the id of the selected or newly created record.
	HandlerID string

	// Decision is whether the handler was reused or created.
	Decision Decision

	// Score is the combined similarity score of the winning candidate,
	// zero for creations against an empty store.
	Score float64

	// QueryHash is the SHA-256 hash of the originating request.
	QueryHash string

	// Timestamp is when the selection happened.
	Timestamp time.Time
}

// SearchEvent is one ranking pass over the registry.
type SearchEvent struct {
	QueryHash  string
	Candidates int
	BestScore  float64
	Matched    bool
	Timestamp  time.Time
}

// SelectionStats aggregates recorded selections.
type SelectionStats struct {
	Total   int
	Reused  int
	Created int
}

// Store persists analytics events with graceful degradation.
type Store struct {
	db      *sql.DB
	dbPath  string
	logger  *zap.Logger
	enabled bool
	mu      sync.Mutex
}

// Open opens (or creates) the history database at dbPath. Failures disable
// the store instead of propagating: the returned *Store is always usable.
func Open(dbPath string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{dbPath: dbPath, logger: logger}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		logger.Warn("history disabled: cannot create directory", zap.Error(err))
		return s
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		logger.Warn("history disabled: cannot open database", zap.Error(err))
		return s
	}
	if err := db.Ping(); err != nil {
		logger.Warn("history disabled: cannot reach database", zap.Error(err))
		db.Close()
		return s
	}
	s.db = db
	if err := s.migrate(); err != nil {
		logger.Warn("history disabled: migration failed", zap.Error(err))
		db.Close()
		s.db = nil
		return s
	}
	s.enabled = true
	return s
}

// Enabled reports whether the store accepted its database.
func (s *Store) Enabled() bool {
	return s.enabled
}

func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS selection_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			handler_id TEXT NOT NULL,
			decision TEXT NOT NULL,
			score REAL NOT NULL,
			query_hash TEXT NOT NULL,
			timestamp TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS search_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			query_hash TEXT NOT NULL,
			candidates INTEGER NOT NULL,
			best_score REAL NOT NULL,
			matched INTEGER NOT NULL,
			timestamp TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_selection_handler ON selection_events(handler_id);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// RecordSelection stores one selection event. No-op when disabled; write
// failures are logged, never returned.
func (s *Store) RecordSelection(event SelectionEvent) {
	if !s.enabled {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		`INSERT INTO selection_events (handler_id, decision, score, query_hash, timestamp)
		 VALUES (?, ?, ?, ?, ?)`,
		event.HandlerID,
		string(event.Decision),
		event.Score,
		event.QueryHash,
		event.Timestamp.Format(time.RFC3339),
	)
	if err != nil {
		s.logger.Warn("failed to record selection event", zap.Error(err))
	}
}

// RecordSearch stores one ranking-pass event.
func (s *Store) RecordSearch(event SearchEvent) {
	if !s.enabled {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	matched := 0
	if event.Matched {
		matched = 1
	}
	_, err := s.db.Exec(
		`INSERT INTO search_events (query_hash, candidates, best_score, matched, timestamp)
		 VALUES (?, ?, ?, ?, ?)`,
		event.QueryHash,
		event.Candidates,
		event.BestScore,
		matched,
		event.Timestamp.Format(time.RFC3339),
	)
	if err != nil {
		s.logger.Warn("failed to record search event", zap.Error(err))
	}
}

// Selections returns aggregate selection counts.
func (s *Store) Selections() (SelectionStats, error) {
	var stats SelectionStats
	if !s.enabled {
		return stats, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`SELECT decision, COUNT(*) FROM selection_events GROUP BY decision`)
	if err != nil {
		return stats, fmt.Errorf("failed to query selections: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var decision string
		var count int
		if err := rows.Scan(&decision, &count); err != nil {
			return stats, fmt.Errorf("failed to scan selection row: %w", err)
		}
		stats.Total += count
		switch Decision(decision) {
		case DecisionReused:
			stats.Reused = count
		case DecisionCreated:
			stats.Created = count
		}
	}
	return stats, rows.Err()
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.db.Close()
	s.db = nil
	s.enabled = false
	return err
}

// HashQuery creates a SHA-256 hash of a query string for privacy.
func HashQuery(query string) string {
	hash := sha256.Sum256([]byte(query))
	return hex.EncodeToString(hash[:])
}
