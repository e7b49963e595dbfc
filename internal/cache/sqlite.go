package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS cache_entries (
	id         TEXT PRIMARY KEY,
	query      TEXT NOT NULL,
	response   TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	hit_count  INTEGER NOT NULL DEFAULT 0
);
`

// SQLiteBackend persists entries in a single-table SQLite database, so a
// warm cache survives restarts alongside the vector index artifacts.
type SQLiteBackend struct {
	db *sql.DB
}

// NewSQLiteBackend opens (creating if needed) the database at path.
func NewSQLiteBackend(path string) (*SQLiteBackend, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init cache schema: %w", err)
	}
	return &SQLiteBackend{db: db}, nil
}

func (s *SQLiteBackend) Get(ctx context.Context, id string) (*Entry, error) {
	var e Entry
	var created int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id, query, response, created_at, hit_count FROM cache_entries WHERE id = ?`, id).
		Scan(&e.ID, &e.Query, &e.Response, &created, &e.HitCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: select: %v", ErrBackendUnavailable, err)
	}
	e.CreatedAt = time.Unix(created, 0).UTC()
	return &e, nil
}

func (s *SQLiteBackend) Put(ctx context.Context, entry *Entry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO cache_entries (id, query, response, created_at, hit_count)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   query = excluded.query,
		   response = excluded.response,
		   created_at = excluded.created_at,
		   hit_count = excluded.hit_count`,
		entry.ID, entry.Query, entry.Response, entry.CreatedAt.Unix(), entry.HitCount)
	if err != nil {
		return fmt.Errorf("%w: upsert: %v", ErrBackendUnavailable, err)
	}
	return nil
}

func (s *SQLiteBackend) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE id = ?`, id); err != nil {
		return fmt.Errorf("%w: delete: %v", ErrBackendUnavailable, err)
	}
	return nil
}

func (s *SQLiteBackend) Size(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM cache_entries`).Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: count: %v", ErrBackendUnavailable, err)
	}
	return n, nil
}

func (s *SQLiteBackend) Flush(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM cache_entries`); err != nil {
		return fmt.Errorf("%w: flush: %v", ErrBackendUnavailable, err)
	}
	return nil
}

func (s *SQLiteBackend) Close() error { return s.db.Close() }
