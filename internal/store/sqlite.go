package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.

	"github.com/papapumpkin/taskmaster/internal/tasks"
)

// schema is executed on every open; IF NOT EXISTS keeps it idempotent.
const schema = `
CREATE TABLE IF NOT EXISTS collections (
    tag        TEXT PRIMARY KEY,
    document   TEXT NOT NULL,
    revision   INTEGER NOT NULL DEFAULT 1,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS revisions (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    tag        TEXT NOT NULL,
    revision   INTEGER NOT NULL,
    task_count INTEGER NOT NULL,
    edge_count INTEGER NOT NULL,
    saved_at   TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// Revision summarizes one saved version of a tag's collection.
type Revision struct {
	Tag       string
	Revision  int
	TaskCount int
	EdgeCount int
	SavedAt   time.Time
}

// SQLite stores one collection document per tag in a local SQLite
// database and records a revision row for every save.
type SQLite struct {
	db   *sql.DB
	path string
	tag  string
}

// OpenSQLite opens (or creates) the database at dbPath in WAL mode and
// returns a store bound to tag.
func OpenSQLite(ctx context.Context, dbPath, tag string) (*SQLite, error) {
	if tag == "" {
		tag = tasks.DefaultTag
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}
	// SQLite has a single writer; one connection avoids SQLITE_BUSY between
	// pooled connections.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: enable WAL mode: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: set busy timeout: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: create schema: %w", err)
	}
	return &SQLite{db: db, path: dbPath, tag: tag}, nil
}

// Location returns the database path.
func (s *SQLite) Location() string { return s.path }

// Load returns the collection stored for the store's tag. A tag with no
// row is reported as tasks.ErrInvalidCollection.
func (s *SQLite) Load(ctx context.Context) (*tasks.Collection, error) {
	var doc string
	err := s.db.QueryRowContext(ctx,
		`SELECT document FROM collections WHERE tag = ?`, s.tag).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: no collection stored for tag %q", tasks.ErrInvalidCollection, s.tag)
	}
	if err != nil {
		return nil, fmt.Errorf("store: load tag %q: %w", s.tag, err)
	}
	return tasks.Decode([]byte(doc), s.tag)
}

// Save upserts the collection and appends a revision row in one
// transaction.
func (s *SQLite) Save(ctx context.Context, c *tasks.Collection) error {
	doc, err := tasks.Encode(nil, s.tag, c)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const upsert = `
		INSERT INTO collections (tag, document, revision, updated_at)
		VALUES (?, ?, 1, CURRENT_TIMESTAMP)
		ON CONFLICT(tag) DO UPDATE SET
			document = excluded.document,
			revision = collections.revision + 1,
			updated_at = CURRENT_TIMESTAMP`
	if _, err := tx.ExecContext(ctx, upsert, s.tag, string(doc)); err != nil {
		return fmt.Errorf("store: save tag %q: %w", s.tag, err)
	}

	var rev int
	if err := tx.QueryRowContext(ctx,
		`SELECT revision FROM collections WHERE tag = ?`, s.tag).Scan(&rev); err != nil {
		return fmt.Errorf("store: read revision: %w", err)
	}
	const record = `INSERT INTO revisions (tag, revision, task_count, edge_count) VALUES (?, ?, ?, ?)`
	if _, err := tx.ExecContext(ctx, record, s.tag, rev, len(c.Tasks), countEdges(c)); err != nil {
		return fmt.Errorf("store: record revision: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit: %w", err)
	}
	return nil
}

// Revisions lists the saved revisions of the store's tag, newest first.
func (s *SQLite) Revisions(ctx context.Context) ([]Revision, error) {
	const q = `SELECT tag, revision, task_count, edge_count, saved_at
		FROM revisions WHERE tag = ? ORDER BY revision DESC`
	rows, err := s.db.QueryContext(ctx, q, s.tag)
	if err != nil {
		return nil, fmt.Errorf("store: query revisions: %w", err)
	}
	defer rows.Close()

	var result []Revision
	for rows.Next() {
		var r Revision
		var savedAt string
		if err := rows.Scan(&r.Tag, &r.Revision, &r.TaskCount, &r.EdgeCount, &savedAt); err != nil {
			return nil, fmt.Errorf("store: scan revision: %w", err)
		}
		if t, err := parseTimestamp(savedAt); err == nil {
			r.SavedAt = t
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate revisions: %w", err)
	}
	return result, nil
}

// Close releases the database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// timestampFormats covers both the RFC3339 form the driver returns for
// TIMESTAMP columns and SQLite's native space-separated form.
var timestampFormats = []string{
	time.RFC3339,
	time.DateTime,
}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp format: %q", s)
}

func countEdges(c *tasks.Collection) int {
	n := 0
	for _, t := range c.Tasks {
		n += len(t.Dependencies)
		for _, s := range t.Subtasks {
			n += len(s.Dependencies)
		}
	}
	return n
}
