package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/conflux/internal/approval"
	"github.com/Iron-Ham/conflux/internal/coordination"
	"github.com/Iron-Ham/conflux/internal/repository"
	"github.com/Iron-Ham/conflux/internal/resolve"
	"github.com/Iron-Ham/conflux/internal/strategy"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <conflict-id>",
	Short: "Resolve a conflict with a strategy",
	Long: `Resolve a conflict with one of the strategies:
  server_wins        keep the server value
  client_wins        take the client value
  merge              combine per field rule (--rule field=rule)
  manual             use an explicit --value
  ai_assisted        follow the configured suggestion provider
  workflow_approval  defer to an approval workflow (--workflow or --template)

A full strategy descriptor in JSON or YAML can be passed with --file.`,
	Args: cobra.ExactArgs(1),
	RunE: runResolve,
}

var bulkResolveCmd = &cobra.Command{
	Use:   "bulk-resolve <conflict-id>...",
	Short: "Resolve many conflicts with one strategy",
	Long: `Resolve every listed conflict with the same strategy. Failures are reported
per conflict and never stop the others. With --open, every unresolved
conflict matching the filter flags is selected instead of explicit ids.`,
	RunE: runBulkResolve,
}

func init() {
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(bulkResolveCmd)

	for _, c := range []*cobra.Command{resolveCmd, bulkResolveCmd} {
		c.Flags().StringP("strategy", "s", "", "strategy name")
		c.Flags().String("value", "", "manual value, parsed as JSON when possible")
		c.Flags().Int("confidence", 0, "confidence 0-100 (default depends on strategy)")
		c.Flags().String("reasoning", "", "free-text reasoning recorded with the resolution")
		c.Flags().StringArray("rule", nil, "merge rule as field=rule (repeatable)")
		c.Flags().String("workflow", "", "YAML workflow file for workflow_approval")
		c.Flags().String("template", "", "workflow template name for workflow_approval")
		c.Flags().StringP("file", "f", "", "strategy descriptor file (JSON or YAML)")
		c.Flags().Bool("json", false, "print the result as JSON")
	}
	bulkResolveCmd.Flags().Bool("open", false, "select every unresolved conflict")
	bulkResolveCmd.Flags().String("module", "", "with --open, only conflicts in this module")
}

// strategyFromFlags builds the strategy described by the resolve flags.
func strategyFromFlags(cmd *cobra.Command, c *coordination.Coordinator) (strategy.Strategy, error) {
	if path := mustString(cmd, "file"); path != "" {
		data, err := readInput(cmd, path)
		if err != nil {
			return nil, err
		}
		return strategy.Parse(data)
	}

	name := mustString(cmd, "strategy")
	if name == "" {
		return nil, fmt.Errorf("--strategy or --file is required")
	}
	d := strategy.Descriptor{
		Name:      strategy.Name(strings.ToLower(name)),
		Reasoning: mustString(cmd, "reasoning"),
	}
	if cmd.Flags().Changed("confidence") {
		v, _ := cmd.Flags().GetInt("confidence")
		d.Confidence = &v
	}
	if cmd.Flags().Changed("value") {
		d.Value = parseValue(mustString(cmd, "value"))
	}

	rules, _ := cmd.Flags().GetStringArray("rule")
	for _, r := range rules {
		field, kind, ok := strings.Cut(r, "=")
		if !ok {
			return nil, fmt.Errorf("invalid --rule %q: expected field=rule", r)
		}
		d.MergeRules = append(d.MergeRules, strategy.MergeRule{
			Field: strings.TrimSpace(field),
			Rule:  strategy.RuleKind(strings.TrimSpace(kind)),
		})
	}

	switch wfPath, tmpl := mustString(cmd, "workflow"), mustString(cmd, "template"); {
	case wfPath != "" && tmpl != "":
		return nil, fmt.Errorf("--workflow and --template are mutually exclusive")
	case wfPath != "":
		wf, err := approval.LoadTemplate(wfPath)
		if err != nil {
			return nil, err
		}
		d.Workflow = &wf
	case tmpl != "":
		wf, ok := c.Template(tmpl)
		if !ok {
			return nil, fmt.Errorf("unknown workflow template %q (available: %s)",
				tmpl, strings.Join(c.Templates(), ", "))
		}
		d.Workflow = &wf
	}

	return d.Strategy()
}

// parseValue decodes s as JSON, falling back to the raw string.
func parseValue(s string) any {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return s
	}
	return v
}

func runResolve(cmd *cobra.Command, args []string) error {
	asJSON, _ := cmd.Flags().GetBool("json")

	return withCoordinator(cmd, func(ctx context.Context, rt *runtime) error {
		s, err := strategyFromFlags(cmd, rt.coord)
		if err != nil {
			return err
		}
		res, err := rt.coord.ResolveConflict(ctx, args[0], s)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if asJSON {
			return writeJSON(out, res)
		}
		printResult(out, res)
		return nil
	})
}

func printResult(w io.Writer, res resolve.Result) {
	c := res.Conflict
	if res.Pending {
		fmt.Fprintf(w, "%s %s awaiting approval\n", warningStyle.Render("…"), c.ID)
		if res.Workflow != nil {
			fmt.Fprintf(w, "  workflow %s (%d steps)\n", res.Workflow.ID, len(res.Workflow.Steps))
		}
		return
	}

	v, _ := c.ResolvedAs()
	fmt.Fprintf(w, "%s %s resolved with %s: %s\n",
		successStyle.Render("✓"), c.ID, c.Metadata.ResolutionStrategy, formatValue(v))
	if res.Detail != "" {
		fmt.Fprintf(w, "  %s\n", mutedStyle.Render(res.Detail))
	}
	if sg := res.Suggestion; sg != nil {
		fmt.Fprintf(w, "  suggestion: %s (%d%%) %s\n", sg.Strategy, sg.Confidence, mutedStyle.Render(sg.Reasoning))
	}
}

func runBulkResolve(cmd *cobra.Command, args []string) error {
	asJSON, _ := cmd.Flags().GetBool("json")
	open, _ := cmd.Flags().GetBool("open")
	if open == (len(args) > 0) {
		return fmt.Errorf("pass either conflict ids or --open")
	}

	return withCoordinator(cmd, func(ctx context.Context, rt *runtime) error {
		s, err := strategyFromFlags(cmd, rt.coord)
		if err != nil {
			return err
		}

		ids := args
		if open {
			f := withResolved(filterFromModule(cmd), false)
			list, err := rt.coord.ListConflicts(ctx, f)
			if err != nil {
				return err
			}
			for _, c := range list {
				ids = append(ids, c.ID)
			}
		}

		res := rt.coord.BulkResolveConflicts(ctx, ids, s)
		out := cmd.OutOrStdout()
		if asJSON {
			return writeJSON(out, bulkJSON(res))
		}

		fmt.Fprintf(out, "%d succeeded, %d failed", res.Succeeded, res.Failed)
		if res.Pending > 0 {
			fmt.Fprintf(out, " (%d awaiting approval)", res.Pending)
		}
		fmt.Fprintln(out)
		for _, id := range res.FailedIDs() {
			fmt.Fprintf(out, "  %s %s: %v\n", errorStyle.Render("✗"), id, res.Errors[id])
		}
		return nil
	})
}

func filterFromModule(cmd *cobra.Command) repository.Filter {
	return repository.Filter{Module: mustString(cmd, "module")}
}

type bulkOutput struct {
	Succeeded int               `json:"succeeded"`
	Failed    int               `json:"failed"`
	Pending   int               `json:"pending"`
	Errors    map[string]string `json:"errors,omitempty"`
}

func bulkJSON(res resolve.BulkResult) bulkOutput {
	out := bulkOutput{Succeeded: res.Succeeded, Failed: res.Failed, Pending: res.Pending}
	if len(res.Errors) > 0 {
		out.Errors = make(map[string]string, len(res.Errors))
		for id, err := range res.Errors {
			out.Errors[id] = err.Error()
		}
	}
	return out
}
