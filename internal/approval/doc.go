// Package approval gates conflict resolution behind ordered human sign-off.
//
// A [Workflow] is an ordered list of [Step]s, each owned by an approver role.
// Steps move from pending to approved, rejected, or skipped, and every one of
// those states is terminal. A step may only transition once every earlier
// step is approved or skipped. Workflow status is derived from the steps and
// never stored:
//
//   - complete when every step is approved or skipped
//   - blocked when any step is rejected
//   - in_progress otherwise
//
// # Usage
//
//	eng := approval.NewEngine("acme", repo, approval.WithBus(bus))
//
//	wf, err := eng.Create(ctx, approval.Workflow{
//		Name:  "finance sign-off",
//		Steps: []approval.Step{{ApproverRole: "manager"}, {ApproverRole: "cfo"}},
//	})
//	wf, err = eng.Trigger(ctx, conflictID, wf.ID)
//	wf, err = eng.Approve(ctx, wf.ID, wf.Steps[0].ID, "looks right")
//
// Workflows can also be loaded from YAML templates with [ParseTemplate] and
// [LoadTemplates].
//
// # Thread Safety
//
// [Engine] holds no mutable state of its own; atomicity of each transition
// comes from the [Store] implementation.
package approval
