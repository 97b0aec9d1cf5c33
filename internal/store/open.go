package store

import (
	"context"
	"fmt"

	"github.com/Iron-Ham/conflux/internal/config"
)

// Open constructs the backend selected by cfg.Driver.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "memory":
		return NewMemory(), nil
	case "file", "":
		return nonNil(NewFileStore(cfg.ResolvePath()))
	case "sqlite":
		return nonNil(OpenSQLite(ctx, cfg.ResolvePath(), cfg.Table))
	case "postgres":
		return nonNil(OpenPostgres(ctx, cfg.ResolveDSN(), cfg.Table))
	default:
		return nil, fmt.Errorf("store: unknown driver %q", cfg.Driver)
	}
}

// nonNil keeps a typed nil pointer from becoming a non-nil Store.
func nonNil[S Store](s S, err error) (Store, error) {
	if err != nil {
		return nil, err
	}
	return s, nil
}
