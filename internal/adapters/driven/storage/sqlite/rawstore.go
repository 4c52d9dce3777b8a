// Package sqlite provides a local SQLite-backed raw payload cache for
// running the pipeline without round-tripping every cached payload
// through the search engine.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/harvest-cli/internal/core/domain"
	"github.com/custodia-labs/harvest-cli/internal/core/ports/driven"
)

// schema holds the raw cache table. Entries are written once per
// (kind, id) and never invalidated; a re-fetch overwrites in place.
const schema = `
CREATE TABLE IF NOT EXISTS raw_cache (
	kind       TEXT NOT NULL,
	id         TEXT NOT NULL,
	data       BLOB NOT NULL,
	fetched_at TIMESTAMP NOT NULL,
	PRIMARY KEY (kind, id)
);`

// Ensure RawStore implements the interface.
var _ driven.RawStore = (*RawStore)(nil)

// RawStore is a local raw payload cache.
type RawStore struct {
	db   *sql.DB
	path string
}

// NewRawStore opens (creating when needed) a raw cache at the given
// data directory. If dataDir is empty, defaults to
// ~/.harvest/data/rawcache.db.
func NewRawStore(dataDir string) (*RawStore, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".harvest", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "rawcache.db")

	// WAL mode so a long harvest does not block concurrent readers.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening raw cache: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating raw cache schema: %w", err)
	}

	return &RawStore{db: db, path: dbPath}, nil
}

// Close closes the database connection.
func (s *RawStore) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *RawStore) Path() string {
	return s.path
}

// Has reports whether a payload is cached.
func (s *RawStore) Has(ctx context.Context, kind domain.RawKind, id string) bool {
	var one int
	err := s.db.QueryRowContext(ctx,
		"SELECT 1 FROM raw_cache WHERE kind = ? AND id = ?", string(kind), id).Scan(&one)
	return err == nil
}

// Get returns a cached payload.
func (s *RawStore) Get(ctx context.Context, kind domain.RawKind, id string) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT data FROM raw_cache WHERE kind = ? AND id = ?", string(kind), id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("raw %s/%s: %w", kind, id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("reading raw %s/%s: %w", kind, id, err)
	}
	return data, nil
}

// Put stores a payload, overwriting any previous version.
func (s *RawStore) Put(ctx context.Context, kind domain.RawKind, id string, data []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO raw_cache (kind, id, data, fetched_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (kind, id) DO UPDATE SET
			data = excluded.data,
			fetched_at = excluded.fetched_at`,
		string(kind), id, data, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("writing raw %s/%s: %w", kind, id, err)
	}
	return nil
}
