// Package journal persists dispatched file events to an embedded SQLite
// database.
//
// The journal is an optional sink behind the monitor: every dispatched event
// is appended as one row, giving `filemon` a queryable history of activity on
// the target file. The database runs in embedded mode with WAL so a reader
// (e.g. the dashboard) can query while the monitor writes.
package journal

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/steveyegge/filemon/internal/monitor"
)

// Journal wraps the SQLite connection holding the event history.
type Journal struct {
	conn *sql.DB
	path string
}

// Open creates or opens the journal database at the specified path.
//
// The caller MUST call Close() when done.
func Open(path string) (*Journal, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping journal: %w", err)
	}

	conn.SetMaxOpenConns(4)
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxLifetime(5 * time.Minute)

	j := &Journal{conn: conn, path: path}

	// WAL lets readers query while the monitor appends.
	if _, err := j.conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = j.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := j.conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = j.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	if err := j.createSchema(); err != nil {
		_ = j.Close()
		return nil, err
	}

	return j, nil
}

// createSchema creates the events table if it does not exist.
func (j *Journal) createSchema() error {
	const schema = `
CREATE TABLE IF NOT EXISTS events (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	observed_at TEXT    NOT NULL,
	source      TEXT    NOT NULL,
	name        TEXT    NOT NULL,
	kind        TEXT    NOT NULL,
	mask        INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_events_observed_at ON events(observed_at);
`
	if _, err := j.conn.Exec(schema); err != nil {
		return fmt.Errorf("failed to create journal schema: %w", err)
	}
	return nil
}

// Append records one dispatched event.
func (j *Journal) Append(rec monitor.Record) error {
	_, err := j.conn.Exec(
		"INSERT INTO events (observed_at, source, name, kind, mask) VALUES (?, ?, ?, ?, ?)",
		rec.Time.UTC().Format(time.RFC3339Nano), rec.Source, rec.Name, rec.Kind, rec.Mask,
	)
	if err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}
	return nil
}

// Recent returns up to limit events, newest first.
func (j *Journal) Recent(limit int) ([]monitor.Record, error) {
	rows, err := j.conn.Query(
		"SELECT observed_at, source, name, kind, mask FROM events ORDER BY id DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var recs []monitor.Record
	for rows.Next() {
		var (
			rec monitor.Record
			at  string
		)
		if err := rows.Scan(&at, &rec.Source, &rec.Name, &rec.Kind, &rec.Mask); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		rec.Time, err = time.Parse(time.RFC3339Nano, at)
		if err != nil {
			return nil, fmt.Errorf("failed to parse event time %q: %w", at, err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read events: %w", err)
	}
	return recs, nil
}

// Count returns the total number of recorded events.
func (j *Journal) Count() (int, error) {
	var n int
	if err := j.conn.QueryRow("SELECT COUNT(*) FROM events").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}
	return n, nil
}

// Path returns the journal database path.
func (j *Journal) Path() string {
	return j.path
}

// Close closes the underlying database connection.
func (j *Journal) Close() error {
	if err := j.conn.Close(); err != nil {
		return fmt.Errorf("failed to close journal: %w", err)
	}
	return nil
}
