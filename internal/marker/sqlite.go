package marker

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS markers (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	stream     TEXT    NOT NULL,
	marker     TEXT    NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_markers_stream ON markers(stream, id);
`

// SQLiteStore appends one row per advance to a markers table.
type SQLiteStore struct {
	db     *sql.DB
	stream string
}

// OpenSQLiteStore opens (or creates) the database file at path.
func OpenSQLiteStore(path, stream string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("%w: create marker directory: %w", ErrStorageUnavailable, err)
	}

	// synchronous(FULL) makes each committed advance durable.
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=synchronous(FULL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("%w: open database: %w", ErrStorageUnavailable, err)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: create schema: %w", ErrStorageUnavailable, err)
	}

	return &SQLiteStore{db: db, stream: stream}, nil
}

// Read implements Store.
func (s *SQLiteStore) Read(ctx context.Context) (string, error) {
	var marker string
	err := s.db.QueryRowContext(ctx,
		`SELECT marker FROM markers WHERE stream = ? ORDER BY id DESC LIMIT 1`, s.stream,
	).Scan(&marker)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("%w: read marker: %w", ErrStorageUnavailable, err)
	}
	return marker, nil
}

// Advance implements Store.
func (s *SQLiteStore) Advance(ctx context.Context, key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO markers (stream, marker, created_at) VALUES (?, ?, ?)`,
		s.stream, key, time.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("%w: write marker: %w", ErrStorageUnavailable, err)
	}
	return nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
