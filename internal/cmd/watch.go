package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Iron-Ham/conflux/internal/conflict"
	"github.com/Iron-Ham/conflux/internal/intake"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch an inbox directory for change records",
	Long: `Watch a directory for *.json change records, detecting conflicts as files
arrive. Handled files move to processed/ or failed/ inside the inbox. While
watching, unresolved conflicts are escalated on the configured sweep interval.

With --once, the inbox is drained a single time and the command exits.`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().String("dir", "", "inbox directory (default from intake.dir)")
	watchCmd.Flags().Bool("once", false, "process files already in the inbox and exit")
}

func runWatch(cmd *cobra.Command, args []string) error {
	once, _ := cmd.Flags().GetBool("once")

	return withCoordinator(cmd, func(ctx context.Context, rt *runtime) error {
		dir, _ := cmd.Flags().GetString("dir")
		if dir == "" {
			dir = rt.cfg.Intake.Dir
		}
		if dir == "" {
			return fmt.Errorf("no inbox directory: pass --dir or set intake.dir")
		}

		out := cmd.OutOrStdout()
		handler := func(ctx context.Context, path string, events []conflict.ChangeEvent) error {
			res, err := rt.coord.DetectAll(ctx, events)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s: %d detected, %d unchanged, %d rejected\n",
				filepath.Base(path), len(res.Conflicts), res.Unchanged, len(res.Rejected))
			if len(res.Rejected) > 0 {
				return fmt.Errorf("%d change record(s) rejected", len(res.Rejected))
			}
			return nil
		}

		w, err := intake.NewWatcher(dir, rt.coord.TenantID(), handler,
			intake.WithDebounce(rt.cfg.Intake.Debounce()),
			intake.WithWatcherLogger(rt.logger))
		if err != nil {
			return err
		}

		if once {
			defer w.Stop()
			return w.Drain(ctx)
		}

		ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := rt.coord.Start(ctx); err != nil {
			return err
		}
		defer func() { _ = rt.coord.Stop() }()

		fmt.Fprintf(out, "%s %s (tenant %s)\n",
			titleStyle.Render("Watching"), dir, rt.coord.TenantID())

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error { return w.Run(gctx) })
		g.Go(func() error {
			<-gctx.Done()
			w.Stop()
			return nil
		})
		return g.Wait()
	})
}
