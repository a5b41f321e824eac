package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	// pure-Go driver, no CGO
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS kv_slots (
    name        TEXT PRIMARY KEY,
    payload     BLOB NOT NULL,
    updated_at  TEXT NOT NULL
);
`

// SQLiteSlot stores the payload as one row of the kv_slots table.
type SQLiteSlot struct {
	db      *sql.DB
	name    string
	nowFunc func() time.Time
}

// OpenSQLite opens (or creates) the database at path and returns the slot called name.
func OpenSQLite(path, name string) (*SQLiteSlot, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("sqlite: create dir for %q: %w", path, err)
	}
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %q: %w", path, err)
	}
	// one writer; the queue serialises its read-modify-write anyway
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: apply schema: %w", err)
	}

	return &SQLiteSlot{db: db, name: name, nowFunc: time.Now}, nil
}

func (s *SQLiteSlot) Close() error {
	return s.db.Close()
}

func (s *SQLiteSlot) Read(ctx context.Context) ([]byte, error) {
	const q = `SELECT payload FROM kv_slots WHERE name = ?`

	var payload []byte
	err := s.db.QueryRowContext(ctx, q, s.name).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: read slot %q: %w", s.name, err)
	}
	return payload, nil
}

func (s *SQLiteSlot) Write(ctx context.Context, data []byte) error {
	const q = `
		INSERT INTO kv_slots (name, payload, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`

	_, err := s.db.ExecContext(ctx, q, s.name, data, s.nowFunc().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("sqlite: write slot %q: %w", s.name, err)
	}
	return nil
}
