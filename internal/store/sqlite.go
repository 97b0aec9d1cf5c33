package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLite is a Store backed by a single table in a SQLite database.
type SQLite struct {
	db    *sql.DB
	table string
}

// OpenSQLite opens (or creates) the database at path and ensures the KV
// table exists. Use ":memory:" for a throwaway database.
func OpenSQLite(ctx context.Context, path, table string) (*SQLite, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("sqlite: create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	// One connection serializes writers and keeps ":memory:" a single database.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlite: %s: %w", p, err)
		}
	}

	schema := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		key        TEXT PRIMARY KEY,
		value      BLOB NOT NULL,
		updated_at TEXT NOT NULL
	)`, table)
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: create table: %w", err)
	}

	return &SQLite{db: db, table: table}, nil
}

func (s *SQLite) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	var v []byte
	err := s.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT value FROM %s WHERE key = ?`, s.table), key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: get %s: %w", key, err)
	}
	return v, nil
}

func (s *SQLite) Set(ctx context.Context, key string, value []byte) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(
		`INSERT INTO %s (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`, s.table),
		key, value, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("sqlite: set %s: %w", key, err)
	}
	return nil
}

func (s *SQLite) Delete(ctx context.Context, key string) error {
	res, err := s.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE key = ?`, s.table), key)
	if err != nil {
		return fmt.Errorf("sqlite: delete %s: %w", key, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLite) List(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(
		`SELECT key FROM %s WHERE substr(key, 1, length(?)) = ? ORDER BY key`, s.table),
		prefix, prefix)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("sqlite: scan: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
