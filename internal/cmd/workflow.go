package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/conflux/internal/approval"
)

var workflowCmd = &cobra.Command{
	Use:     "workflow",
	Aliases: []string{"wf"},
	Short:   "Manage approval workflows",
}

var workflowCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an unbound workflow from a YAML file or template",
	Args:  cobra.NoArgs,
	RunE:  runWorkflowCreate,
}

var workflowTriggerCmd = &cobra.Command{
	Use:   "trigger <conflict-id> <workflow-id>",
	Short: "Bind a workflow to a conflict",
	Args:  cobra.ExactArgs(2),
	RunE:  runWorkflowTrigger,
}

var workflowApproveCmd = &cobra.Command{
	Use:   "approve <workflow-id> <step-id>",
	Short: "Approve a workflow step",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWorkflowStep(cmd, args, approval.StepApproved)
	},
}

var workflowRejectCmd = &cobra.Command{
	Use:   "reject <workflow-id> <step-id>",
	Short: "Reject a workflow step, blocking the workflow",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWorkflowStep(cmd, args, approval.StepRejected)
	},
}

var workflowSkipCmd = &cobra.Command{
	Use:   "skip <workflow-id> <step-id>",
	Short: "Skip a workflow step",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWorkflowStep(cmd, args, approval.StepSkipped)
	},
}

var workflowShowCmd = &cobra.Command{
	Use:   "show <workflow-id>",
	Short: "Show a workflow and its steps",
	Args:  cobra.ExactArgs(1),
	RunE:  runWorkflowShow,
}

var workflowListCmd = &cobra.Command{
	Use:   "list",
	Short: "List workflows",
	Args:  cobra.NoArgs,
	RunE:  runWorkflowList,
}

var workflowTemplatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "List workflow templates from approval.templates_dir",
	Args:  cobra.NoArgs,
	RunE:  runWorkflowTemplates,
}

func init() {
	rootCmd.AddCommand(workflowCmd)
	workflowCmd.AddCommand(workflowCreateCmd, workflowTriggerCmd, workflowApproveCmd,
		workflowRejectCmd, workflowSkipCmd, workflowShowCmd, workflowListCmd, workflowTemplatesCmd)

	workflowCreateCmd.Flags().StringP("file", "f", "", "YAML workflow file")
	workflowCreateCmd.Flags().String("template", "", "workflow template name")

	workflowApproveCmd.Flags().StringP("comments", "m", "", "comments recorded on the step")
	workflowRejectCmd.Flags().StringP("comments", "m", "", "rejection reason recorded on the step")
	workflowSkipCmd.Flags().StringP("comments", "m", "", "reason recorded on the step")

	for _, c := range []*cobra.Command{workflowCreateCmd, workflowTriggerCmd, workflowApproveCmd,
		workflowRejectCmd, workflowSkipCmd, workflowShowCmd, workflowListCmd} {
		c.Flags().Bool("json", false, "print as JSON")
	}
}

func runWorkflowCreate(cmd *cobra.Command, args []string) error {
	path := mustString(cmd, "file")
	tmpl := mustString(cmd, "template")
	if (path == "") == (tmpl == "") {
		return fmt.Errorf("pass exactly one of --file or --template")
	}

	return withCoordinator(cmd, func(ctx context.Context, rt *runtime) error {
		var (
			wf  approval.Workflow
			err error
		)
		if tmpl != "" {
			wf, err = rt.coord.CreateWorkflowFromTemplate(ctx, tmpl)
		} else {
			var def approval.Workflow
			if def, err = approval.LoadTemplate(path); err == nil {
				wf, err = rt.coord.CreateWorkflow(ctx, def)
			}
		}
		if err != nil {
			return err
		}
		return printWorkflowResult(cmd, wf, "Created workflow")
	})
}

func runWorkflowTrigger(cmd *cobra.Command, args []string) error {
	return withCoordinator(cmd, func(ctx context.Context, rt *runtime) error {
		wf, err := rt.coord.TriggerWorkflow(ctx, args[0], args[1])
		if err != nil {
			return err
		}
		return printWorkflowResult(cmd, wf, "Bound workflow")
	})
}

func runWorkflowStep(cmd *cobra.Command, args []string, to approval.StepStatus) error {
	comments := mustString(cmd, "comments")

	return withCoordinator(cmd, func(ctx context.Context, rt *runtime) error {
		var (
			wf  approval.Workflow
			err error
		)
		switch to {
		case approval.StepApproved:
			wf, err = rt.coord.ApproveStep(ctx, args[0], args[1], comments)
		case approval.StepRejected:
			wf, err = rt.coord.RejectStep(ctx, args[0], args[1], comments)
		default:
			wf, err = rt.coord.SkipStep(ctx, args[0], args[1], comments)
		}
		if err != nil {
			return err
		}
		return printWorkflowResult(cmd, wf, "Updated workflow")
	})
}

func runWorkflowShow(cmd *cobra.Command, args []string) error {
	return withCoordinator(cmd, func(ctx context.Context, rt *runtime) error {
		wf, err := rt.coord.GetWorkflow(ctx, args[0])
		if err != nil {
			return err
		}
		return printWorkflowResult(cmd, wf, "Workflow")
	})
}

func runWorkflowList(cmd *cobra.Command, args []string) error {
	asJSON, _ := cmd.Flags().GetBool("json")

	return withCoordinator(cmd, func(ctx context.Context, rt *runtime) error {
		list, err := rt.coord.ListWorkflows(ctx)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if asJSON {
			if list == nil {
				list = []approval.Workflow{}
			}
			return writeJSON(out, list)
		}
		if len(list) == 0 {
			fmt.Fprintln(out, mutedStyle.Render("No workflows."))
			return nil
		}
		for _, wf := range list {
			bound := mutedStyle.Render("unbound")
			if wf.ConflictID != "" {
				bound = wf.ConflictID
			}
			fmt.Fprintf(out, "%-38s %-12s %-20s %s\n", wf.ID,
				workflowStyle(wf.Status()).Render(string(wf.Status())), wf.Name, bound)
		}
		return nil
	})
}

func runWorkflowTemplates(cmd *cobra.Command, args []string) error {
	return withCoordinator(cmd, func(ctx context.Context, rt *runtime) error {
		out := cmd.OutOrStdout()
		names := rt.coord.Templates()
		if len(names) == 0 {
			fmt.Fprintln(out, mutedStyle.Render("No templates."))
			return nil
		}
		for _, name := range names {
			tmpl, _ := rt.coord.Template(name)
			fmt.Fprintf(out, "%-20s %d steps\n", name, len(tmpl.Steps))
		}
		return nil
	})
}

func printWorkflowResult(cmd *cobra.Command, wf approval.Workflow, heading string) error {
	out := cmd.OutOrStdout()
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return writeJSON(out, wf)
	}
	printWorkflow(out, wf, heading)
	return nil
}

func printWorkflow(w io.Writer, wf approval.Workflow, heading string) {
	fmt.Fprintf(w, "%s %s\n", titleStyle.Render(heading), wf.ID)
	fmt.Fprintf(w, "%s %s\n", labelStyle.Render("Name"), wf.Name)
	fmt.Fprintf(w, "%s %s\n", labelStyle.Render("Status"),
		workflowStyle(wf.Status()).Render(string(wf.Status())))
	if wf.ConflictID != "" {
		fmt.Fprintf(w, "%s %s\n", labelStyle.Render("Conflict"), wf.ConflictID)
	}
	for i, s := range wf.Steps {
		line := fmt.Sprintf("  %d. %-16s %-20s %s", i+1, s.ID, s.ApproverRole,
			stepStyle(s.Status).Render(string(s.Status)))
		if s.Timestamp != nil {
			line += " " + mutedStyle.Render(s.Timestamp.Format(time.RFC3339))
		}
		if s.Comments != "" {
			line += " " + mutedStyle.Render(fmt.Sprintf("%q", s.Comments))
		}
		fmt.Fprintln(w, line)
	}
}
