package lease

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Options selects and configures an Admitter for Open.
type Options struct {
	// Kind is "memory", "file", or "postgres".
	Kind string
	// Dir holds lock files for the file admitter.
	Dir string
	// Pool is reused by the postgres admitter when set.
	Pool *pgxpool.Pool
	// DSN is dialled by the postgres admitter when Pool is nil.
	DSN string
}

// Open builds the admitter named by opts.Kind.
func Open(ctx context.Context, opts Options) (Admitter, error) {
	switch opts.Kind {
	case "", "memory":
		return NewMemory(), nil
	case "file":
		f, err := NewFile(opts.Dir)
		if err != nil {
			return nil, err
		}
		return f, nil
	case "postgres":
		if opts.Pool != nil {
			return NewPostgres(opts.Pool), nil
		}
		p, err := OpenPostgres(ctx, opts.DSN)
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("lease: unknown kind %q", opts.Kind)
	}
}
