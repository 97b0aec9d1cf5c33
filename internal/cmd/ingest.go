package cmd

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/conflux/internal/coordination"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [file...]",
	Short: "Detect conflicts from change records",
	Long: `Read change records (a JSON object, a JSON array, or newline-delimited
JSON) and record a conflict for every event whose server and client values
diverge. Use "-" or no argument to read from stdin.`,
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	ingestCmd.Flags().Bool("json", false, "print detected conflicts as JSON")
}

func runIngest(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		args = []string{"-"}
	}
	asJSON, _ := cmd.Flags().GetBool("json")

	return withCoordinator(cmd, func(ctx context.Context, rt *runtime) error {
		var total coordination.IngestResult
		for _, path := range args {
			data, err := readInput(cmd, path)
			if err != nil {
				return err
			}
			res, err := rt.coord.Ingest(ctx, data)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			total = mergeIngest(total, res)
		}

		out := cmd.OutOrStdout()
		if asJSON {
			return writeJSON(out, total.Conflicts)
		}
		printIngest(out, total)
		if len(total.Rejected) > 0 {
			return fmt.Errorf("%d change record(s) rejected", len(total.Rejected))
		}
		return nil
	})
}

func mergeIngest(acc, res coordination.IngestResult) coordination.IngestResult {
	if acc.Rejected == nil {
		acc.Rejected = map[int]error{}
	}
	// Keep indexes unique across files.
	offset := len(acc.Conflicts) + acc.Unchanged + len(acc.Rejected)
	acc.Conflicts = append(acc.Conflicts, res.Conflicts...)
	acc.Unchanged += res.Unchanged
	for i, err := range res.Rejected {
		acc.Rejected[offset+i] = err
	}
	return acc
}

func printIngest(w io.Writer, res coordination.IngestResult) {
	for _, c := range res.Conflicts {
		fmt.Fprintf(w, "%s %s %s.%s#%s %s\n",
			successStyle.Render("+"), c.ID, c.Module, c.EntityType, c.EntityID,
			priorityStyle(c.Priority).Render(string(c.Priority)))
	}

	idx := make([]int, 0, len(res.Rejected))
	for i := range res.Rejected {
		idx = append(idx, i)
	}
	sort.Ints(idx)
	for _, i := range idx {
		fmt.Fprintf(w, "%s record %d: %v\n", errorStyle.Render("!"), i, res.Rejected[i])
	}

	fmt.Fprintf(w, "%d detected, %d unchanged, %d rejected\n",
		len(res.Conflicts), res.Unchanged, len(res.Rejected))
}
