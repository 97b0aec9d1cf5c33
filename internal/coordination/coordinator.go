package coordination

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/Iron-Ham/conflux/internal/analytics"
	"github.com/Iron-Ham/conflux/internal/approval"
	"github.com/Iron-Ham/conflux/internal/conflict"
	cerrors "github.com/Iron-Ham/conflux/internal/errors"
	"github.com/Iron-Ham/conflux/internal/escalation"
	"github.com/Iron-Ham/conflux/internal/event"
	"github.com/Iron-Ham/conflux/internal/intake"
	"github.com/Iron-Ham/conflux/internal/logging"
	"github.com/Iron-Ham/conflux/internal/notify"
	"github.com/Iron-Ham/conflux/internal/repository"
	"github.com/Iron-Ham/conflux/internal/resolve"
	"github.com/Iron-Ham/conflux/internal/store"
	"github.com/Iron-Ham/conflux/internal/strategy"
	"github.com/Iron-Ham/conflux/internal/suggest"
)

// Config holds required dependencies for creating a Coordinator.
type Config struct {
	TenantID string
	Store    store.Store
	// Bus receives every event for the tenant. If nil, one is created.
	Bus *event.Bus
}

// Coordinator composes the conflict components for one tenant and exposes
// the tenant's operation surface.
type Coordinator struct {
	mu        sync.RWMutex
	started   bool
	cancel    context.CancelFunc
	sweepDone chan struct{}

	tenantID      string
	bus           *event.Bus
	logger        *logging.Logger
	sweepInterval time.Duration
	now           func() time.Time

	repo      *repository.Repository
	detector  *conflict.Detector
	resolver  *resolve.Engine
	workflows *approval.Engine
	policy    *escalation.Policy
	advisor   *suggest.Advisor
	templates map[string]approval.Workflow
}

// IngestResult summarises one Ingest call.
type IngestResult struct {
	Conflicts []conflict.Conflict `json:"conflicts"`
	// Unchanged counts events whose values did not diverge.
	Unchanged int `json:"unchanged"`
	// Rejected maps the zero-based event index to its validation error.
	Rejected map[int]error `json:"-"`
}

// NewCoordinator wires the tenant pipeline over cfg.Store.
func NewCoordinator(cfg Config, opts ...Option) (*Coordinator, error) {
	if cfg.Store == nil {
		return nil, errors.New("coordination: Store is required")
	}
	repo, err := repository.New(cfg.TenantID, cfg.Store)
	if err != nil {
		return nil, err
	}

	cc := &coordinatorConfig{}
	for _, opt := range opts {
		opt(cc)
	}
	logger := cc.logger
	if logger == nil {
		logger = logging.NopLogger()
	}
	bus := cfg.Bus
	if bus == nil {
		bus = event.NewBus(event.WithBusLogger(logger))
	}
	sink := cc.sink
	if sink == nil {
		sink = notify.Nop{}
	}
	sink = notify.Safe{Sink: sink, Logger: logger}
	advisor := cc.advisor
	if advisor == nil {
		advisor = suggest.NewAdvisor(nil, suggest.WithLogger(logger))
	}

	var detectorOpts []conflict.Option
	detectorOpts = append(detectorOpts, conflict.WithLogger(logger), conflict.WithBus(bus))
	if cc.rules != nil {
		detectorOpts = append(detectorOpts, conflict.WithRules(*cc.rules))
	}

	workflowOpts := []approval.Option{approval.WithLogger(logger), approval.WithBus(bus)}

	resolveOpts := []resolve.Option{
		resolve.WithLogger(logger),
		resolve.WithBus(bus),
		resolve.WithSink(sink),
		resolve.WithAdvisor(advisor),
		resolve.WithMergeRules(cc.mergeRules),
		resolve.WithBulkConcurrency(cc.bulkConcurrency),
	}
	if cc.admitter != nil {
		resolveOpts = append(resolveOpts, resolve.WithAdmitter(cc.admitter))
	}

	policyOpts := []escalation.Option{
		escalation.WithLogger(logger),
		escalation.WithBus(bus),
		escalation.WithSink(sink),
		escalation.WithMaxAges(cc.maxAges),
	}

	if cc.now != nil {
		detectorOpts = append(detectorOpts, conflict.WithClock(cc.now))
		workflowOpts = append(workflowOpts, approval.WithClock(cc.now))
		resolveOpts = append(resolveOpts, resolve.WithClock(cc.now))
		policyOpts = append(policyOpts, escalation.WithClock(cc.now))
	}
	if cc.newID != nil {
		detectorOpts = append(detectorOpts, conflict.WithIDGenerator(cc.newID))
		workflowOpts = append(workflowOpts, approval.WithIDGenerator(cc.newID))
	}

	workflows := approval.NewEngine(cfg.TenantID, repo, workflowOpts...)
	resolveOpts = append(resolveOpts, resolve.WithWorkflows(workflows))

	c := &Coordinator{
		tenantID:  cfg.TenantID,
		bus:       bus,
		logger:    logger.WithTenant(cfg.TenantID).WithComponent("coordinator"),
		repo:      repo,
		detector:  conflict.NewDetector(cfg.TenantID, repo, detectorOpts...),
		resolver:  resolve.NewEngine(cfg.TenantID, repo, resolveOpts...),
		workflows: workflows,
		policy:    escalation.NewPolicy(cfg.TenantID, repo, policyOpts...),
		advisor:   advisor,
		templates: cc.templates,

		sweepInterval: cc.sweepInterval,
		now:           cc.now,
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c, nil
}

// TenantID returns the tenant this coordinator serves.
func (c *Coordinator) TenantID() string { return c.tenantID }

// Bus returns the tenant event bus.
func (c *Coordinator) Bus() *event.Bus { return c.bus }

// Repository returns the tenant repository.
func (c *Coordinator) Repository() *repository.Repository { return c.repo }

// Detector returns the conflict detector.
func (c *Coordinator) Detector() *conflict.Detector { return c.detector }

// Workflows returns the approval workflow engine.
func (c *Coordinator) Workflows() *approval.Engine { return c.workflows }

// Policy returns the escalation policy.
func (c *Coordinator) Policy() *escalation.Policy { return c.policy }

// -----------------------------------------------------------------------------
// Detection
// -----------------------------------------------------------------------------

// Ingest parses raw change records and detects a conflict for each
// diverging event. Malformed events are reported per index and do not stop
// the rest.
func (c *Coordinator) Ingest(ctx context.Context, data []byte) (IngestResult, error) {
	events, err := intake.Parse(data, c.tenantID)
	if err != nil {
		return IngestResult{}, err
	}
	return c.DetectAll(ctx, events)
}

// DetectAll runs DetectConflict for every event.
func (c *Coordinator) DetectAll(ctx context.Context, events []conflict.ChangeEvent) (IngestResult, error) {
	res := IngestResult{Rejected: map[int]error{}}
	for i, ev := range events {
		cf, err := c.DetectConflict(ctx, ev)
		switch {
		case err == nil:
			res.Conflicts = append(res.Conflicts, cf)
		case errors.Is(err, cerrors.ErrNoDivergence):
			res.Unchanged++
		case cerrors.IsValidation(err):
			res.Rejected[i] = err
		default:
			return res, err
		}
	}
	return res, nil
}

// DetectConflict classifies and stores one change event.
func (c *Coordinator) DetectConflict(ctx context.Context, ev conflict.ChangeEvent) (conflict.Conflict, error) {
	if ev.TenantID == "" {
		ev.TenantID = c.tenantID
	}
	return c.detector.Detect(ctx, ev)
}

// GetConflict returns one conflict.
func (c *Coordinator) GetConflict(ctx context.Context, id string) (conflict.Conflict, error) {
	return c.repo.GetConflict(ctx, id)
}

// ListConflicts returns the conflicts matching f.
func (c *Coordinator) ListConflicts(ctx context.Context, f repository.Filter) ([]conflict.Conflict, error) {
	return c.repo.ListConflicts(ctx, f)
}

// -----------------------------------------------------------------------------
// Resolution
// -----------------------------------------------------------------------------

// ResolveConflict applies s to one conflict.
func (c *Coordinator) ResolveConflict(ctx context.Context, id string, s strategy.Strategy) (resolve.Result, error) {
	return c.resolver.Resolve(ctx, id, s)
}

// BulkResolveConflicts applies s to every id and reports aggregate counts.
func (c *Coordinator) BulkResolveConflicts(ctx context.Context, ids []string, s strategy.Strategy) resolve.BulkResult {
	return c.resolver.BulkResolve(ctx, ids, s)
}

// GetSuggestion asks the advisor about cf. It never fails.
func (c *Coordinator) GetSuggestion(ctx context.Context, cf conflict.Conflict) suggest.Suggestion {
	return c.advisor.Suggest(ctx, cf)
}

// SuggestFor loads a conflict and asks the advisor about it.
func (c *Coordinator) SuggestFor(ctx context.Context, id string) (suggest.Suggestion, error) {
	cf, err := c.repo.GetConflict(ctx, id)
	if err != nil {
		return suggest.Suggestion{}, err
	}
	return c.GetSuggestion(ctx, cf), nil
}

// -----------------------------------------------------------------------------
// Escalation
// -----------------------------------------------------------------------------

// EscalateConflict raises a conflict one priority level.
func (c *Coordinator) EscalateConflict(ctx context.Context, id, reason string) (escalation.Outcome, error) {
	return c.policy.Escalate(ctx, id, reason)
}

// SweepEscalations escalates every overdue conflict now.
func (c *Coordinator) SweepEscalations(ctx context.Context) (escalation.SweepResult, error) {
	return c.policy.Sweep(ctx, c.now())
}

// -----------------------------------------------------------------------------
// Workflows
// -----------------------------------------------------------------------------

// CreateWorkflow stores a new unbound workflow.
func (c *Coordinator) CreateWorkflow(ctx context.Context, wf approval.Workflow) (approval.Workflow, error) {
	return c.workflows.Create(ctx, wf)
}

// CreateWorkflowFromTemplate stores a copy of the named template.
func (c *Coordinator) CreateWorkflowFromTemplate(ctx context.Context, name string) (approval.Workflow, error) {
	tmpl, ok := c.templates[name]
	if !ok {
		return approval.Workflow{}, cerrors.NewNotFoundError("workflow template", name).WithCause(cerrors.ErrNotFound)
	}
	wf := tmpl.Clone()
	wf.ID = ""
	return c.workflows.Create(ctx, wf)
}

// Templates returns the registered template names, sorted.
func (c *Coordinator) Templates() []string {
	names := make([]string, 0, len(c.templates))
	for name := range c.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Template returns a copy of the named template.
func (c *Coordinator) Template(name string) (approval.Workflow, bool) {
	tmpl, ok := c.templates[name]
	if !ok {
		return approval.Workflow{}, false
	}
	return tmpl.Clone(), true
}

// TriggerWorkflow binds a stored workflow to an unresolved conflict. It
// fails with a ConcurrencyError while a resolution of the conflict is in
// flight.
func (c *Coordinator) TriggerWorkflow(ctx context.Context, conflictID, workflowID string) (approval.Workflow, error) {
	return c.resolver.Bind(ctx, conflictID, workflowID)
}

// ApproveStep approves one step.
func (c *Coordinator) ApproveStep(ctx context.Context, workflowID, stepID, comments string) (approval.Workflow, error) {
	return c.workflows.Approve(ctx, workflowID, stepID, comments)
}

// RejectStep rejects one step, blocking the workflow.
func (c *Coordinator) RejectStep(ctx context.Context, workflowID, stepID, reason string) (approval.Workflow, error) {
	return c.workflows.Reject(ctx, workflowID, stepID, reason)
}

// SkipStep marks one step skipped.
func (c *Coordinator) SkipStep(ctx context.Context, workflowID, stepID, reason string) (approval.Workflow, error) {
	return c.workflows.Skip(ctx, workflowID, stepID, reason)
}

// GetWorkflow returns one workflow.
func (c *Coordinator) GetWorkflow(ctx context.Context, id string) (approval.Workflow, error) {
	return c.workflows.Get(ctx, id)
}

// ListWorkflows returns every workflow for the tenant.
func (c *Coordinator) ListWorkflows(ctx context.Context) ([]approval.Workflow, error) {
	return c.workflows.List(ctx)
}

// -----------------------------------------------------------------------------
// Analytics
// -----------------------------------------------------------------------------

// GetAnalytics computes the tenant report from a consistent snapshot.
func (c *Coordinator) GetAnalytics(ctx context.Context) (analytics.Report, error) {
	conflicts, history, err := c.repo.Snapshot(ctx)
	if err != nil {
		return analytics.Report{}, err
	}
	return analytics.Compute(conflicts, history), nil
}
