package publish

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/crypto/blake2b"

	// SQLite driver (pure Go, no CGO required)
	_ "modernc.org/sqlite"
)

// Kind tells rendered pages from copied static files.
type Kind string

const (
	KindPage   Kind = "page"
	KindStatic Kind = "static"
)

// Manifest records the hash of every file written to the output directory,
// keyed by output path, so unchanged files are not rewritten.
type Manifest struct {
	db *sql.DB
}

// Entry is one published file.
type Entry struct {
	Path string
	Kind Kind
	Hash []byte
	Size int64
}

// OpenManifest opens or creates the manifest database at path. An empty path
// or ":memory:" keeps the manifest in memory.
func OpenManifest(path string) (*Manifest, error) {
	dsn := ":memory:"
	if path != "" && path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("creating manifest directory: %w", err)
		}
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening manifest: %w", err)
	}
	// one connection, so an in-memory database is shared
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to manifest: %w", err)
	}
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS files (
			path TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			hash BLOB NOT NULL,
			size INTEGER NOT NULL,
			updated DATETIME DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_files_kind ON files(kind);
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating manifest schema: %w", err)
	}
	return &Manifest{db: db}, nil
}

// Hash returns the content hash stored for output paths.
func Hash(data []byte) []byte {
	sum := blake2b.Sum256(data)
	return sum[:]
}

// Get returns the entry for path.
func (m *Manifest) Get(ctx context.Context, path string) (Entry, bool, error) {
	e := Entry{Path: path}
	var kind string
	err := m.db.QueryRowContext(ctx,
		`SELECT kind, hash, size FROM files WHERE path = ?`, path,
	).Scan(&kind, &e.Hash, &e.Size)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("reading manifest: %w", err)
	}
	e.Kind = Kind(kind)
	return e, true, nil
}

// Unchanged reports whether path was last written with data.
func (m *Manifest) Unchanged(ctx context.Context, path string, data []byte) (bool, error) {
	e, ok, err := m.Get(ctx, path)
	if err != nil || !ok {
		return false, err
	}
	return e.Size == int64(len(data)) && bytes.Equal(e.Hash, Hash(data)), nil
}

// Put records that path now holds data.
func (m *Manifest) Put(ctx context.Context, path string, kind Kind, data []byte) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO files (path, kind, hash, size, updated)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(path) DO UPDATE SET
			kind = excluded.kind,
			hash = excluded.hash,
			size = excluded.size,
			updated = excluded.updated
	`, path, string(kind), Hash(data), len(data))
	if err != nil {
		return fmt.Errorf("updating manifest: %w", err)
	}
	return nil
}

// Delete forgets path.
func (m *Manifest) Delete(ctx context.Context, path string) error {
	if _, err := m.db.ExecContext(ctx, `DELETE FROM files WHERE path = ?`, path); err != nil {
		return fmt.Errorf("updating manifest: %w", err)
	}
	return nil
}

// Paths lists the recorded paths of kind, sorted.
func (m *Manifest) Paths(ctx context.Context, kind Kind) ([]string, error) {
	rows, err := m.db.QueryContext(ctx, `SELECT path FROM files WHERE kind = ? ORDER BY path`, string(kind))
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("reading manifest: %w", err)
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

// Close closes the database.
func (m *Manifest) Close() error {
	return m.db.Close()
}
