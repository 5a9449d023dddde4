// Package sqlite implements storage.ObjectStore in a single SQLite file
// for local runs without an object-store service.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"natgas-forecast/internal/observability"
	"natgas-forecast/internal/storage"
)

const backendName = "sqlite"

const schema = `
CREATE TABLE IF NOT EXISTS objects (
    folder      TEXT NOT NULL,
    key         TEXT NOT NULL,
    data        BLOB NOT NULL,
    updated_at  DATETIME NOT NULL,
    PRIMARY KEY (folder, key)
);
`

// ObjectStore keeps objects in the objects table keyed by (folder, key).
type ObjectStore struct {
	db *sql.DB
}

var _ storage.ObjectStore = (*ObjectStore)(nil)

// Open opens (or creates) the database at path and applies the schema.
// Use ":memory:" for a throwaway store.
func Open(path string) (*ObjectStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// One writer; also keeps ":memory:" databases on a single connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply sqlite schema: %w", err)
	}
	return &ObjectStore{db: db}, nil
}

// Close closes the database.
func (s *ObjectStore) Close() error {
	return s.db.Close()
}

// Get returns the object at folder/key.
func (s *ObjectStore) Get(ctx context.Context, folder, key string) (data []byte, err error) {
	start := time.Now()
	defer func() {
		observability.RecordObjectOp(backendName, "get", time.Since(start), err)
	}()

	row := s.db.QueryRowContext(ctx, `SELECT data FROM objects WHERE folder = ? AND key = ?`, folder, key)
	if err = row.Scan(&data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("query object: %w", err)
	}
	return data, nil
}

// Put overwrites the object at folder/key.
func (s *ObjectStore) Put(ctx context.Context, folder, key string, data []byte) (err error) {
	if key == "" {
		return storage.ErrInvalidInput
	}

	start := time.Now()
	defer func() {
		observability.RecordObjectOp(backendName, "put", time.Since(start), err)
	}()

	if data == nil {
		data = []byte{}
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO objects (folder, key, data, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (folder, key) DO UPDATE
		SET data = excluded.data,
		    updated_at = excluded.updated_at
	`, folder, key, data, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("upsert object: %w", err)
	}
	return nil
}
