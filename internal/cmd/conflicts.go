package cmd

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/conflux/internal/conflict"
	"github.com/Iron-Ham/conflux/internal/repository"
)

var conflictsCmd = &cobra.Command{
	Use:     "conflicts",
	Aliases: []string{"ls"},
	Short:   "List or inspect conflicts",
	RunE:    runConflictsList,
}

var conflictsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List conflicts",
	RunE:  runConflictsList,
}

var conflictsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one conflict in detail",
	Args:  cobra.ExactArgs(1),
	RunE:  runConflictsShow,
}

func init() {
	rootCmd.AddCommand(conflictsCmd)
	conflictsCmd.AddCommand(conflictsListCmd)
	conflictsCmd.AddCommand(conflictsShowCmd)

	for _, c := range []*cobra.Command{conflictsCmd, conflictsListCmd} {
		c.Flags().String("module", "", "only conflicts in this module")
		c.Flags().String("priority", "", "only conflicts with this priority")
		c.Flags().String("impact", "", "only conflicts with this business impact")
		c.Flags().String("type", "", "only conflicts of this type")
		c.Flags().Bool("open", false, "only unresolved conflicts")
		c.Flags().Bool("resolved", false, "only resolved conflicts")
		c.Flags().Bool("json", false, "print as JSON")
	}
	conflictsShowCmd.Flags().Bool("json", false, "print as JSON")
}

func filterFromFlags(cmd *cobra.Command) (repository.Filter, error) {
	f := repository.Filter{}
	f.Module, _ = cmd.Flags().GetString("module")

	priority, _ := cmd.Flags().GetString("priority")
	if priority != "" {
		p := conflict.Priority(strings.ToLower(priority))
		if !p.Valid() {
			return f, fmt.Errorf("invalid priority %q", priority)
		}
		f.Priority = p
	}

	impact, _ := cmd.Flags().GetString("impact")
	if impact != "" {
		i := conflict.Impact(strings.ToLower(impact))
		if !i.Valid() {
			return f, fmt.Errorf("invalid impact %q", impact)
		}
		f.Impact = i
	}

	if typ := strings.ToLower(mustString(cmd, "type")); typ != "" {
		if !slices.Contains(conflict.Types(), conflict.Type(typ)) {
			return f, fmt.Errorf("invalid conflict type %q", typ)
		}
		f.Type = conflict.Type(typ)
	}

	open, _ := cmd.Flags().GetBool("open")
	resolved, _ := cmd.Flags().GetBool("resolved")
	switch {
	case open && resolved:
		return f, fmt.Errorf("--open and --resolved are mutually exclusive")
	case open:
		f = withResolved(f, false)
	case resolved:
		f = withResolved(f, true)
	}
	return f, nil
}

func withResolved(f repository.Filter, v bool) repository.Filter {
	f.Resolved = &v
	return f
}

func mustString(cmd *cobra.Command, name string) string {
	s, _ := cmd.Flags().GetString(name)
	return s
}

func runConflictsList(cmd *cobra.Command, args []string) error {
	f, err := filterFromFlags(cmd)
	if err != nil {
		return err
	}
	asJSON, _ := cmd.Flags().GetBool("json")

	return withCoordinator(cmd, func(ctx context.Context, rt *runtime) error {
		list, err := rt.coord.ListConflicts(ctx, f)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if asJSON {
			if list == nil {
				list = []conflict.Conflict{}
			}
			return writeJSON(out, list)
		}
		if len(list) == 0 {
			fmt.Fprintln(out, mutedStyle.Render("No conflicts."))
			return nil
		}
		for _, c := range list {
			printConflictLine(out, c)
		}
		return nil
	})
}

func printConflictLine(w io.Writer, c conflict.Conflict) {
	state := warningStyle.Render("open")
	if c.Resolved {
		state = successStyle.Render("resolved")
	}
	fmt.Fprintf(w, "%-38s %-9s %-8s %s.%s#%s.%s %s\n",
		c.ID,
		priorityStyle(c.Priority).Render(string(c.Priority)),
		state,
		c.Module, c.EntityType, c.EntityID, c.Field,
		mutedStyle.Render(string(c.Impact)))
}

func runConflictsShow(cmd *cobra.Command, args []string) error {
	asJSON, _ := cmd.Flags().GetBool("json")

	return withCoordinator(cmd, func(ctx context.Context, rt *runtime) error {
		c, err := rt.coord.GetConflict(ctx, args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if asJSON {
			return writeJSON(out, c)
		}
		printConflict(out, c)
		return nil
	})
}

func printConflict(w io.Writer, c conflict.Conflict) {
	row := func(label string, value any) {
		fmt.Fprintf(w, "%s %v\n", labelStyle.Render(label), value)
	}

	fmt.Fprintln(w, titleStyle.Render("Conflict "+c.ID))
	row("Entity", fmt.Sprintf("%s.%s#%s", c.Module, c.EntityType, c.EntityID))
	row("Field", c.Field)
	row("Server", formatValue(c.ServerValue))
	row("Client", formatValue(c.ClientValue))
	row("Priority", priorityStyle(c.Priority).Render(string(c.Priority)))
	row("Type", c.Type)
	row("Impact", c.Impact)
	row("Operation", c.Metadata.Operation)
	row("Detected", c.DetectedAt.Format(time.RFC3339))
	row("Version", c.Metadata.Version)
	if len(c.AffectedUsers) > 0 {
		row("Users", strings.Join(c.AffectedUsers, ", "))
	}
	if c.Metadata.Escalated {
		row("Escalated", c.Metadata.EscalationReason)
	}
	if c.Resolved {
		v, _ := c.ResolvedAs()
		row("Resolved", successStyle.Render(formatValue(v)))
		row("Strategy", fmt.Sprintf("%s (%d%%)", c.Metadata.ResolutionStrategy, c.Metadata.ResolutionConfidence))
	}
}

func formatValue(v any) string {
	if v == nil {
		return "null"
	}
	return fmt.Sprintf("%v", v)
}
