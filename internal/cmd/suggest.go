package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var suggestCmd = &cobra.Command{
	Use:   "suggest <conflict-id>",
	Short: "Ask the suggestion provider how to resolve a conflict",
	Long: `Ask the configured suggestion provider for a strategy. The call is
bounded by resolution.suggestion_timeout_ms; on timeout or provider failure a
low-confidence manual suggestion is returned instead of an error.`,
	Args: cobra.ExactArgs(1),
	RunE: runSuggest,
}

func init() {
	rootCmd.AddCommand(suggestCmd)
	suggestCmd.Flags().Bool("json", false, "print as JSON")
}

func runSuggest(cmd *cobra.Command, args []string) error {
	asJSON, _ := cmd.Flags().GetBool("json")

	return withCoordinator(cmd, func(ctx context.Context, rt *runtime) error {
		sg, err := rt.coord.SuggestFor(ctx, args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if asJSON {
			return writeJSON(out, sg)
		}
		fmt.Fprintf(out, "%s %s (%d%% confidence)\n", labelStyle.Render("Strategy"),
			titleStyle.Render(string(sg.Strategy)), sg.Confidence)
		if sg.Value != nil {
			fmt.Fprintf(out, "%s %s\n", labelStyle.Render("Value"), formatValue(sg.Value))
		}
		fmt.Fprintf(out, "%s %s\n", labelStyle.Render("Reasoning"), sg.Reasoning)
		if sg.Degraded {
			fmt.Fprintln(out, warningStyle.Render("provider unavailable; fallback suggestion"))
		}
		return nil
	})
}
