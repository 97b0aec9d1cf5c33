package lease

import (
	"context"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres admits keys with session-level advisory locks. Each admitted key
// pins one pooled connection until released.
type Postgres struct {
	pool  *pgxpool.Pool
	local *Memory
	owned bool
}

// NewPostgres uses pool for advisory locks. The caller keeps ownership of
// pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool, local: NewMemory()}
}

// OpenPostgres connects to dsn and owns the resulting pool.
func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	if dsn == "" {
		return nil, fmt.Errorf("lease: empty postgres connection string")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("lease: connect: %w", err)
	}
	p := NewPostgres(pool)
	p.owned = true
	return p, nil
}

// LockID hashes key into the advisory lock keyspace.
func LockID(key string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(key))
	return int64(h.Sum64())
}

// TryAcquire calls pg_try_advisory_lock on a dedicated connection.
func (p *Postgres) TryAcquire(ctx context.Context, key string) (Release, bool, error) {
	releaseLocal, ok, err := p.local.TryAcquire(ctx, key)
	if err != nil || !ok {
		return nil, ok, err
	}

	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		_ = releaseLocal()
		return nil, false, fmt.Errorf("lease: acquire connection: %w", err)
	}

	id := LockID(key)
	var got bool
	if err := conn.QueryRow(ctx, "SELECT pg_try_advisory_lock($1)", id).Scan(&got); err != nil {
		conn.Release()
		_ = releaseLocal()
		return nil, false, fmt.Errorf("lease: try advisory lock: %w", err)
	}
	if !got {
		conn.Release()
		_ = releaseLocal()
		return nil, false, nil
	}

	return onceRelease(func() error {
		defer func() { _ = releaseLocal() }()
		// Unlock must run even if the caller's context is done.
		unlockCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		var released bool
		err := conn.QueryRow(unlockCtx, "SELECT pg_advisory_unlock($1)", id).Scan(&released)
		if err != nil {
			// Closing the session drops every advisory lock it holds.
			_ = conn.Conn().Close(unlockCtx)
			conn.Release()
			return fmt.Errorf("lease: advisory unlock: %w", err)
		}
		conn.Release()
		if !released {
			return fmt.Errorf("lease: advisory lock %d was not held", id)
		}
		return nil
	}), true, nil
}

// Close rejects further acquisitions and closes an owned pool.
func (p *Postgres) Close() error {
	_ = p.local.Close()
	if p.owned {
		p.pool.Close()
	}
	return nil
}
