// Package store persists selection history and the last-outcome slot to
// sqlite so rejoinder state survives restarts.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"psikit/internal/selection"
)

// Store manages the psikit history database. It implements
// selection.HistorySink and selection.OutcomeSink.
type Store struct {
	db     *sql.DB
	dbPath string
	mu     sync.RWMutex
}

// PassRow is one persisted selection pass.
type PassRow struct {
	PassID    string
	Mode      string
	Trigger   string
	RuleAlias string
	RuleID    string
	Action    string
	Weight    float64
	Selected  bool
	Timestamp time.Time
}

// NewStore creates or opens the history store at dbPath.
func NewStore(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db, dbPath: dbPath}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.dbPath
}

func (s *Store) initSchema() error {
	schema := `
	-- One row per selection pass, selected or not
	CREATE TABLE IF NOT EXISTS passes (
		pass_id TEXT PRIMARY KEY,
		timestamp DATETIME NOT NULL,
		mode TEXT NOT NULL,
		trigger_text TEXT,
		rule_alias TEXT,
		rule_id TEXT,
		action TEXT,
		weight REAL NOT NULL DEFAULT 0,
		selected INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_passes_timestamp ON passes(timestamp);
	CREATE INDEX IF NOT EXISTS idx_passes_mode ON passes(mode);

	-- Persisted mirror of the outcome slot
	CREATE TABLE IF NOT EXISTS last_outcome (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		rule_alias TEXT NOT NULL,
		updated_at DATETIME NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// RecordPass persists one selection pass.
func (s *Store) RecordPass(rec selection.PassRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO passes (pass_id, timestamp, mode, trigger_text, rule_alias, rule_id, action, weight, selected)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.PassID, time.Now().UTC(), rec.Mode, rec.Trigger, rec.RuleAlias,
		rec.RuleID, rec.Action, rec.Weight, rec.Selected)
	if err != nil {
		return fmt.Errorf("insert pass: %w", err)
	}
	return nil
}

// WriteOutcome upserts the persisted outcome slot.
func (s *Store) WriteOutcome(alias string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO last_outcome (id, rule_alias, updated_at) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET rule_alias = excluded.rule_alias, updated_at = excluded.updated_at`,
		alias, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("write outcome: %w", err)
	}
	return nil
}

// LastOutcome reads the persisted outcome slot; ok=false when no aliased
// rule has ever fired.
func (s *Store) LastOutcome() (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var alias string
	err := s.db.QueryRow(`SELECT rule_alias FROM last_outcome WHERE id = 1`).Scan(&alias)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read outcome: %w", err)
	}
	return alias, true, nil
}

// RecentPasses returns the newest limit passes, newest first.
func (s *Store) RecentPasses(limit int) ([]PassRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT pass_id, timestamp, mode, trigger_text, rule_alias, rule_id, action, weight, selected
		FROM passes ORDER BY timestamp DESC, pass_id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query passes: %w", err)
	}
	defer rows.Close()

	var out []PassRow
	for rows.Next() {
		var p PassRow
		if err := rows.Scan(&p.PassID, &p.Timestamp, &p.Mode, &p.Trigger,
			&p.RuleAlias, &p.RuleID, &p.Action, &p.Weight, &p.Selected); err != nil {
			return nil, fmt.Errorf("scan pass: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
