package storage

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaFS embed.FS

// timestampFormat keeps all nine fractional digits so the stored text sorts
// chronologically; RFC3339Nano trims trailing zeros and breaks ORDER BY for
// same-second rows. Timestamps are written in UTC.
const (
	dateFormat      = "2006-01-02"
	timestampFormat = "2006-01-02T15:04:05.000000000Z07:00"
)

// Storage persists users and items in a sqlite database. Every item query
// carries the owning user's id so no row is ever visible across accounts.
type Storage struct {
	db *sql.DB
}

// Open creates a Storage backed by the sqlite file at path, applying the
// schema if needed.
func Open(path string) (*Storage, error) {
	if path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.ExecContext(context.Background(), "PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, err
	}

	if err := applySchema(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Storage{db: db}, nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}

func applySchema(ctx context.Context, db *sql.DB) error {
	schemaSQL, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		return fmt.Errorf("read schema: %w", err)
	}
	if _, err := db.ExecContext(ctx, string(schemaSQL)); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
