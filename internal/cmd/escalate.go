package cmd

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var escalateCmd = &cobra.Command{
	Use:   "escalate <conflict-id>",
	Short: "Raise a conflict's priority by one level",
	Args:  cobra.ExactArgs(1),
	RunE:  runEscalate,
}

var escalateSweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Escalate every unresolved conflict older than its impact's max age",
	Args:  cobra.NoArgs,
	RunE:  runEscalateSweep,
}

func init() {
	rootCmd.AddCommand(escalateCmd)
	escalateCmd.AddCommand(escalateSweepCmd)
	escalateCmd.Flags().StringP("reason", "r", "", "reason recorded with the escalation (required)")
	escalateCmd.Flags().Bool("json", false, "print the result as JSON")
	_ = escalateCmd.MarkFlagRequired("reason")
}

func runEscalate(cmd *cobra.Command, args []string) error {
	reason := mustString(cmd, "reason")
	asJSON, _ := cmd.Flags().GetBool("json")

	return withCoordinator(cmd, func(ctx context.Context, rt *runtime) error {
		out, err := rt.coord.EscalateConflict(ctx, args[0], reason)
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		if asJSON {
			return writeJSON(w, out)
		}
		if !out.Changed {
			fmt.Fprintf(w, "%s already %s\n", out.Conflict.ID,
				priorityStyle(out.To).Render(string(out.To)))
			return nil
		}
		fmt.Fprintf(w, "%s %s escalated %s → %s\n", warningStyle.Render("▲"), out.Conflict.ID,
			priorityStyle(out.From).Render(string(out.From)),
			priorityStyle(out.To).Render(string(out.To)))
		return nil
	})
}

func runEscalateSweep(cmd *cobra.Command, args []string) error {
	return withCoordinator(cmd, func(ctx context.Context, rt *runtime) error {
		res, err := rt.coord.SweepEscalations(ctx)
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		for _, id := range res.Escalated {
			fmt.Fprintf(w, "%s %s\n", warningStyle.Render("▲"), id)
		}
		failed := make([]string, 0, len(res.Failed))
		for id := range res.Failed {
			failed = append(failed, id)
		}
		sort.Strings(failed)
		for _, id := range failed {
			fmt.Fprintf(w, "%s %s: %v\n", errorStyle.Render("✗"), id, res.Failed[id])
		}
		fmt.Fprintf(w, "%d escalated, %d failed\n", len(res.Escalated), len(res.Failed))
		return nil
	})
}
