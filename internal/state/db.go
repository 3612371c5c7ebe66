// Package state provides SQLite-based local state for sagan: the
// applied-review ledger that keeps score mutations idempotent and the
// append-only stage transition audit log.
package state

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/tobiasfw/sagan/pkg/models"
)

// DB wraps an SQLite database connection with sagan-specific operations.
type DB struct {
	conn *sql.DB
	path string
	mu   sync.RWMutex
}

// DefaultPath returns the path to the sagan database under XDG data home.
func DefaultPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, _ := os.UserHomeDir()
		dataDir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataDir, "sagan", "sagan.db")
}

// Open opens an SQLite database at the given path.
// It creates the parent directories if they don't exist.
// WAL mode is enabled for concurrent reads.
func Open(path string) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	db := &DB{conn: conn, path: path}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.conn.Close()
}

// Path returns the path to the database file.
func (db *DB) Path() string {
	return db.path
}

// migrate applies all pending schema migrations.
func (db *DB) migrate() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_version table: %w", err)
	}

	var currentVersion int
	row := db.conn.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("get schema version: %w", err)
	}

	migrations := []struct {
		version int
		sql     string
	}{
		{1, migrationV1AppliedReviews},
		{2, migrationV2Transitions},
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}

		tx, err := db.conn.Begin()
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}

		if _, err := tx.Exec(m.sql); err != nil {
			tx.Rollback()
			return fmt.Errorf("apply migration v%d: %w", m.version, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", m.version); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration v%d: %w", m.version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration v%d: %w", m.version, err)
		}
	}

	return nil
}

const migrationV1AppliedReviews = `
CREATE TABLE IF NOT EXISTS applied_reviews (
	identity_key TEXT PRIMARY KEY,
	applied_at DATETIME NOT NULL
);
`

const migrationV2Transitions = `
CREATE TABLE IF NOT EXISTS stage_transitions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	project_id TEXT NOT NULL,
	from_stage TEXT NOT NULL,
	to_stage TEXT NOT NULL,
	trigger_score REAL NOT NULL,
	at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_transitions_project ON stage_transitions(project_id);
`

// Applied reports whether a review identity key has been applied.
func (db *DB) Applied(ctx context.Context, key string) (bool, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	var one int
	err := db.conn.QueryRowContext(ctx, "SELECT 1 FROM applied_reviews WHERE identity_key = ?", key).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query applied_reviews: %w", err)
	}
	return true, nil
}

// MarkApplied records a review identity key. Marking the same key twice
// is a no-op rather than an error.
func (db *DB) MarkApplied(ctx context.Context, key string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	_, err := db.conn.ExecContext(ctx,
		"INSERT OR IGNORE INTO applied_reviews (identity_key, applied_at) VALUES (?, ?)",
		key, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("insert applied review: %w", err)
	}
	return nil
}

// Record appends a stage transition to the audit log.
func (db *DB) Record(ctx context.Context, t models.StageTransition) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	_, err := db.conn.ExecContext(ctx,
		"INSERT INTO stage_transitions (project_id, from_stage, to_stage, trigger_score, at) VALUES (?, ?, ?, ?, ?)",
		t.ProjectID, string(t.From), string(t.To), t.TriggerScore, t.At.UTC())
	if err != nil {
		return fmt.Errorf("insert stage transition: %w", err)
	}
	return nil
}

// Transitions returns the most recent transitions for a project, newest
// first. A limit of 0 returns all of them.
func (db *DB) Transitions(ctx context.Context, projectID string, limit int) ([]models.StageTransition, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	query := "SELECT project_id, from_stage, to_stage, trigger_score, at FROM stage_transitions WHERE project_id = ? ORDER BY id DESC"
	args := []interface{}{projectID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query stage_transitions: %w", err)
	}
	defer rows.Close()

	var out []models.StageTransition
	for rows.Next() {
		var t models.StageTransition
		var from, to string
		if err := rows.Scan(&t.ProjectID, &from, &to, &t.TriggerScore, &t.At); err != nil {
			return nil, fmt.Errorf("scan stage transition: %w", err)
		}
		t.From = models.Stage(from)
		t.To = models.Stage(to)
		out = append(out, t)
	}
	return out, rows.Err()
}
