package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Iron-Ham/conflux/internal/config"
	"github.com/Iron-Ham/conflux/internal/coordination"
	"github.com/Iron-Ham/conflux/internal/logging"
	"github.com/Iron-Ham/conflux/internal/orchestrator"
)

// runtime bundles what a command needs to operate on one tenant.
type runtime struct {
	cfg     *config.Config
	logger  *logging.Logger
	manager *orchestrator.Manager
	coord   *coordination.Coordinator
}

func (r *runtime) close() error {
	err := r.manager.Close()
	if cerr := r.logger.Close(); err == nil {
		err = cerr
	}
	return err
}

func newLogger(cfg *config.Config) (*logging.Logger, error) {
	return logging.NewLogger(logging.Options{
		Dir:   cfg.Logging.Dir,
		Level: cfg.Logging.Level,
		Rotation: logging.RotationConfig{
			MaxSizeMB:  cfg.Logging.MaxSizeMB,
			MaxBackups: cfg.Logging.MaxBackups,
			Compress:   cfg.Logging.Compress,
		},
	})
}

// openRuntime loads config and opens the coordinator for the selected tenant.
func openRuntime(ctx context.Context) (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}
	m := orchestrator.New(cfg, orchestrator.WithLogger(logger))
	c, err := m.Coordinator(ctx, viper.GetString("tenant.default"))
	if err != nil {
		_ = m.Close()
		_ = logger.Close()
		return nil, err
	}
	return &runtime{cfg: cfg, logger: logger, manager: m, coord: c}, nil
}

// withCoordinator runs fn against the selected tenant and closes every
// backend afterwards.
func withCoordinator(cmd *cobra.Command, fn func(ctx context.Context, rt *runtime) error) (err error) {
	ctx := cmd.Context()
	rt, err := openRuntime(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := rt.close(); err == nil {
			err = cerr
		}
	}()
	return fn(ctx, rt)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// readInput reads a file argument, or stdin when the path is "-".
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}
