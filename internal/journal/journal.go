// Package journal keeps an append-only capture log in SQLite. The store
// itself lives in memory; the journal records what content entered it, when,
// and through which path, for the history subcommand.
package journal

import (
	"crypto/rand"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"
)

// schemaVersion is the latest schema version. Bump when adding migrations.
const schemaVersion = 1

// DefaultRecent caps history output when no limit is given.
const DefaultRecent = 50

// Capture is one journaled arrival of new content.
type Capture struct {
	ID        string    `json:"id"`
	Value     string    `json:"value"`
	Source    string    `json:"source"` // sync, add, insert or load
	CreatedAt time.Time `json:"created_at"`
}

// Journal is an append-only capture log.
type Journal struct {
	db *sql.DB
}

// Open creates or opens the journal database at path, running migrations as
// needed. Clipboard history is private, so the file ends up 0600 inside a
// 0700 directory.
func Open(path string) (*Journal, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create journal directory: %w", err)
	}
	_ = os.Chmod(dir, 0700)

	// Pragmas in the connection string apply to every pooled connection.
	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}

	if err := verifyWALMode(db); err != nil {
		db.Close()
		return nil, err
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	_ = os.Chmod(path, 0600)

	return &Journal{db: db}, nil
}

func (j *Journal) Close() error {
	return j.db.Close()
}

// Append records one capture.
func (j *Journal) Append(source, value string) error {
	query := `
		INSERT INTO captures (id, value, source, created_at)
		VALUES (?, ?, ?, ?)
	`
	_, err := j.db.Exec(query, newID(), value, source, time.Now().UnixNano())
	if err != nil {
		return fmt.Errorf("append capture: %w", err)
	}
	return nil
}

// Recent returns captures newest first. An empty source means all sources;
// a non-positive limit falls back to DefaultRecent.
func (j *Journal) Recent(source string, limit int) ([]Capture, error) {
	if limit <= 0 {
		limit = DefaultRecent
	}

	query := `
		SELECT id, value, source, created_at
		FROM captures
	`
	var args []any
	if source != "" {
		query += " WHERE source = ?"
		args = append(args, source)
	}
	query += " ORDER BY created_at DESC, id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := j.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query captures: %w", err)
	}
	defer rows.Close()

	var out []Capture
	for rows.Next() {
		var c Capture
		var ns int64
		if err := rows.Scan(&c.ID, &c.Value, &c.Source, &ns); err != nil {
			return nil, fmt.Errorf("scan capture: %w", err)
		}
		c.CreatedAt = time.Unix(0, ns).UTC()
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate captures: %w", err)
	}
	return out, nil
}

// migrate applies schema migrations based on user_version.
func migrate(db *sql.DB) error {
	version, err := userVersion(db)
	if err != nil {
		return err
	}

	if version < 1 {
		schema := `
		CREATE TABLE IF NOT EXISTS captures (
		  id         TEXT PRIMARY KEY,
		  value      TEXT NOT NULL,
		  source     TEXT NOT NULL,
		  created_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_captures_created
		ON captures(created_at DESC);

		CREATE INDEX IF NOT EXISTS idx_captures_source_created
		ON captures(source, created_at DESC);
		`
		if _, err := db.Exec(schema); err != nil {
			return fmt.Errorf("migration 1 failed: %w", err)
		}
		if err := setUserVersion(db, 1); err != nil {
			return err
		}
	}

	// Future migrations go here:
	// if version < 2 { ... }

	return nil
}

// verifyWALMode checks that WAL mode is active (set via connection string).
func verifyWALMode(db *sql.DB) error {
	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode;").Scan(&journalMode); err != nil {
		return fmt.Errorf("verify journal mode: %w", err)
	}
	if journalMode != "wal" {
		return fmt.Errorf("expected WAL mode, got %s", journalMode)
	}
	return nil
}

func userVersion(db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRow("PRAGMA user_version;").Scan(&version); err != nil {
		return 0, fmt.Errorf("get user_version: %w", err)
	}
	return version, nil
}

func setUserVersion(db *sql.DB, version int) error {
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version=%d", version)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}

func newID() string {
	entropy := ulid.Monotonic(rand.Reader, 0)
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}
