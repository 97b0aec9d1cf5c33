package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/conflux/internal/analytics"
)

var analyticsCmd = &cobra.Command{
	Use:     "analytics",
	Aliases: []string{"stats"},
	Short:   "Show conflict analytics for the tenant",
	Args:    cobra.NoArgs,
	RunE:    runAnalytics,
}

func init() {
	rootCmd.AddCommand(analyticsCmd)
	analyticsCmd.Flags().Bool("json", false, "print as JSON")
}

func runAnalytics(cmd *cobra.Command, args []string) error {
	asJSON, _ := cmd.Flags().GetBool("json")

	return withCoordinator(cmd, func(ctx context.Context, rt *runtime) error {
		r, err := rt.coord.GetAnalytics(ctx)
		if err != nil {
			return err
		}
		if asJSON {
			return analytics.WriteJSON(cmd.OutOrStdout(), r)
		}
		return analytics.WriteText(cmd.OutOrStdout(), r)
	})
}
