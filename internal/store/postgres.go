package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// NewPool constructs a pgx connection pool from a connection string.
func NewPool(ctx context.Context, connString string) (*pgxpool.Pool, error) {
	if connString == "" {
		return nil, fmt.Errorf("postgres: empty connection string")
	}
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse config: %w", err)
	}
	return pgxpool.NewWithConfig(ctx, cfg)
}

// Postgres is a Store backed by a single table in PostgreSQL.
type Postgres struct {
	pool  *pgxpool.Pool
	table string
	owned bool
}

// OpenPostgres connects to dsn and ensures the KV table exists.
// The returned store owns the pool and closes it on Close.
func OpenPostgres(ctx context.Context, dsn, table string) (*Postgres, error) {
	pool, err := NewPool(ctx, dsn)
	if err != nil {
		return nil, err
	}
	s, err := NewPostgres(ctx, pool, table)
	if err != nil {
		pool.Close()
		return nil, err
	}
	s.owned = true
	return s, nil
}

// NewPostgres wraps an existing pool. The caller keeps ownership of pool.
func NewPostgres(ctx context.Context, pool *pgxpool.Pool, table string) (*Postgres, error) {
	schema := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		key        TEXT PRIMARY KEY,
		value      BYTEA NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`, table)
	if _, err := pool.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("postgres: create table: %w", err)
	}
	return &Postgres{pool: pool, table: table}, nil
}

// Pool exposes the underlying pool so the advisory-lock lease can share it.
func (s *Postgres) Pool() *pgxpool.Pool { return s.pool }

func (s *Postgres) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	var v []byte
	err := s.pool.QueryRow(ctx,
		fmt.Sprintf(`SELECT value FROM %s WHERE key = $1`, s.table), key).Scan(&v)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get %s: %w", key, err)
	}
	return v, nil
}

func (s *Postgres) Set(ctx context.Context, key string, value []byte) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	_, err := s.pool.Exec(ctx, fmt.Sprintf(
		`INSERT INTO %s (key, value, updated_at) VALUES ($1, $2, now())
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`, s.table),
		key, value)
	if err != nil {
		return fmt.Errorf("postgres: set %s: %w", key, err)
	}
	return nil
}

func (s *Postgres) Delete(ctx context.Context, key string) error {
	tag, err := s.pool.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE key = $1`, s.table), key)
	if err != nil {
		return fmt.Errorf("postgres: delete %s: %w", key, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Postgres) List(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.pool.Query(ctx, fmt.Sprintf(
		`SELECT key FROM %s WHERE starts_with(key, $1) ORDER BY key`, s.table), prefix)
	if err != nil {
		return nil, fmt.Errorf("postgres: list: %w", err)
	}
	keys, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("postgres: list: %w", err)
	}
	return keys, nil
}

func (s *Postgres) Close() error {
	if s.owned {
		s.pool.Close()
	}
	return nil
}
