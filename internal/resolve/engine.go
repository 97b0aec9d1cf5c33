package resolve

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Iron-Ham/conflux/internal/approval"
	"github.com/Iron-Ham/conflux/internal/conflict"
	"github.com/Iron-Ham/conflux/internal/errors"
	"github.com/Iron-Ham/conflux/internal/event"
	"github.com/Iron-Ham/conflux/internal/lease"
	"github.com/Iron-Ham/conflux/internal/logging"
	"github.com/Iron-Ham/conflux/internal/notify"
	"github.com/Iron-Ham/conflux/internal/strategy"
	"github.com/Iron-Ham/conflux/internal/suggest"
)

// Repository is the persistence the engine needs.
type Repository interface {
	GetConflict(ctx context.Context, id string) (conflict.Conflict, error)
	CommitResolution(ctx context.Context, id string, fn func(*conflict.Conflict) (conflict.HistoryEntry, error)) (conflict.Conflict, error)
}

// Workflows registers approval workflows and gates direct resolution.
type Workflows interface {
	Register(ctx context.Context, conflictID string, wf approval.Workflow) (approval.Workflow, error)
	Trigger(ctx context.Context, conflictID, workflowID string) (approval.Workflow, error)
	ForConflict(ctx context.Context, conflictID string) (approval.Workflow, bool, error)
	Gate(ctx context.Context, conflictID string) error
}

// Advisor returns a suggestion for a conflict and never fails.
type Advisor interface {
	Suggest(ctx context.Context, c conflict.Conflict) suggest.Suggestion
}

// Result describes the outcome of a Resolve call.
type Result struct {
	Conflict conflict.Conflict `json:"conflict"`
	// Pending is true when the strategy deferred to a workflow.
	Pending  bool               `json:"pending"`
	Workflow *approval.Workflow `json:"workflow,omitempty"`
	// Suggestion is the advice used by an ai_assisted resolution.
	Suggestion *suggest.Suggestion `json:"suggestion,omitempty"`
	// Detail explains how the value was chosen.
	Detail string `json:"detail,omitempty"`
}

// Engine resolves conflicts for one tenant.
type Engine struct {
	tenantID   string
	repo       Repository
	workflows  Workflows
	advisor    Advisor
	admitter   lease.Admitter
	bus        *event.Bus
	sink       notify.Sink
	logger     *logging.Logger
	now        func() time.Time
	mergeRules []strategy.MergeRule
	bulkLimit  int
}

// Option configures an Engine.
type Option func(*Engine)

// WithWorkflows enables the workflow_approval strategy and the approval gate.
func WithWorkflows(w Workflows) Option {
	return func(e *Engine) { e.workflows = w }
}

// WithAdvisor sets the advisor used by ai_assisted.
func WithAdvisor(a Advisor) Option {
	return func(e *Engine) {
		if a != nil {
			e.advisor = a
		}
	}
}

// WithAdmitter replaces the in-memory admission guard.
func WithAdmitter(a lease.Admitter) Option {
	return func(e *Engine) {
		if a != nil {
			e.admitter = a
		}
	}
}

// WithBus sets the bus receiving resolution events.
func WithBus(b *event.Bus) Option {
	return func(e *Engine) { e.bus = b }
}

// WithSink sets the notification sink.
func WithSink(s notify.Sink) Option {
	return func(e *Engine) {
		if s != nil {
			e.sink = s
		}
	}
}

// WithLogger sets the engine logger.
func WithLogger(l *logging.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithMergeRules sets the rules used by merge strategies that carry none,
// and by ai_assisted merge suggestions.
func WithMergeRules(rules []strategy.MergeRule) Option {
	return func(e *Engine) { e.mergeRules = append([]strategy.MergeRule(nil), rules...) }
}

// WithBulkConcurrency caps concurrent resolutions in BulkResolve.
func WithBulkConcurrency(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.bulkLimit = n
		}
	}
}

// DefaultBulkConcurrency is used when WithBulkConcurrency is not given.
const DefaultBulkConcurrency = 8

// NewEngine creates an Engine over repo.
func NewEngine(tenantID string, repo Repository, opts ...Option) *Engine {
	e := &Engine{
		tenantID:  tenantID,
		repo:      repo,
		advisor:   suggest.NewAdvisor(suggest.Nop{}),
		admitter:  lease.NewMemory(),
		sink:      notify.Nop{},
		logger:    logging.NopLogger(),
		now:       time.Now,
		bulkLimit: DefaultBulkConcurrency,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.WithTenant(tenantID).WithComponent("resolve")
	return e
}

// leaseKey scopes admission to the tenant.
func (e *Engine) leaseKey(conflictID string) string {
	return e.tenantID + ":" + conflictID
}

// admit takes the conflict's admission lease. The returned func releases it.
func (e *Engine) admit(ctx context.Context, conflictID string, log *logging.Logger) (func(), error) {
	release, ok, err := e.admitter.TryAcquire(ctx, e.leaseKey(conflictID))
	if err != nil {
		return nil, errors.Wrap(err, "admit resolution")
	}
	if !ok {
		log.Info("resolution rejected, already in flight")
		e.publish(event.NewResolutionRejectedEvent(e.tenantID, conflictID, "resolution already in flight"))
		return nil, errors.NewConcurrencyError(conflictID)
	}
	return func() {
		if err := release(); err != nil {
			log.Warn("failed to release admission lease", "error", err.Error())
		}
	}, nil
}

// Bind triggers a stored workflow for conflictID while holding the
// conflict's admission lease, so a workflow cannot be bound underneath an
// in-flight resolution.
func (e *Engine) Bind(ctx context.Context, conflictID, workflowID string) (approval.Workflow, error) {
	if e.workflows == nil {
		return approval.Workflow{}, errors.NewValidationError("workflow approval is not configured").WithField("strategy")
	}
	if conflictID == "" {
		return approval.Workflow{}, errors.NewValidationError("conflict id is required").WithField("conflictId")
	}
	log := e.logger.WithConflict(conflictID).WithWorkflow(workflowID)
	release, err := e.admit(ctx, conflictID, log)
	if err != nil {
		return approval.Workflow{}, err
	}
	defer release()

	c, err := e.repo.GetConflict(ctx, conflictID)
	if err != nil {
		return approval.Workflow{}, err
	}
	if c.Resolved {
		return approval.Workflow{}, alreadyResolved(conflictID)
	}
	return e.workflows.Trigger(ctx, conflictID, workflowID)
}

// Resolve applies s to the conflict. Overlapping calls for the same id, and
// calls overlapping a Bind, are rejected with a ConcurrencyError.
func (e *Engine) Resolve(ctx context.Context, conflictID string, s strategy.Strategy) (Result, error) {
	if conflictID == "" {
		return Result{}, errors.NewValidationError("conflict id is required").WithField("conflictId")
	}
	if s == nil {
		return Result{}, errors.NewValidationError("strategy is required").WithField("strategy")
	}
	log := e.logger.WithConflict(conflictID).With("strategy", string(s.Name()))

	release, err := e.admit(ctx, conflictID, log)
	if err != nil {
		return Result{}, err
	}
	defer release()

	start := e.now()

	c, err := e.repo.GetConflict(ctx, conflictID)
	if err != nil {
		return Result{}, err
	}
	if c.Resolved {
		return Result{}, alreadyResolved(conflictID)
	}

	if wf, ok := s.(strategy.WorkflowApproval); ok {
		approved, err := e.approvedWorkflow(ctx, c.ID)
		if err != nil {
			return Result{}, err
		}
		if !approved {
			return e.deferToWorkflow(ctx, c, wf, log)
		}
	} else if e.workflows != nil {
		if err := e.workflows.Gate(ctx, conflictID); err != nil {
			log.Info("direct resolution refused by approval workflow", "error", err.Error())
			return Result{}, err
		}
	}

	out, err := e.compute(ctx, c, s)
	if err != nil {
		return Result{}, err
	}
	return e.commit(ctx, c.ID, s, out, start, log)
}

// commit records out as the conflict's resolution.
func (e *Engine) commit(ctx context.Context, conflictID string, s strategy.Strategy, out outcome, start time.Time, log *logging.Logger) (Result, error) {
	encoded, err := json.Marshal(out.value)
	if err != nil {
		return Result{}, errors.NewValidationError("resolved value is not JSON encodable").WithField("value").WithCause(err)
	}

	resolved, err := e.repo.CommitResolution(ctx, conflictID, func(cur *conflict.Conflict) (conflict.HistoryEntry, error) {
		if cur.Resolved {
			return conflict.HistoryEntry{}, alreadyResolved(conflictID)
		}
		now := e.now()
		at := now.UTC()
		cur.Resolved = true
		cur.Metadata.ResolvedValue = encoded
		cur.Metadata.ResolutionStrategy = string(s.Name())
		cur.Metadata.ResolutionConfidence = out.confidence
		cur.Metadata.ResolvedAt = &at
		cur.Metadata.Version++
		cur.Metadata.LastModifiedAt = at
		return conflict.HistoryEntry{
			ConflictID:       cur.ID,
			StrategyUsed:     string(s.Name()),
			Timestamp:        at,
			ProcessingTimeMs: now.Sub(start).Milliseconds(),
			Confidence:       out.confidence,
			BusinessImpact:   cur.Impact,
		}, nil
	})
	if err != nil {
		log.Warn("resolution commit failed", "error", err.Error())
		return Result{}, err
	}

	ms := e.now().Sub(start).Milliseconds()
	log.Info("conflict resolved",
		"confidence", out.confidence,
		"version", resolved.Metadata.Version,
		"processing_ms", ms,
		"detail", out.detail)
	e.publish(event.NewConflictResolvedEvent(e.tenantID, conflictID, string(s.Name()), ms))
	e.sink.Notify(fmt.Sprintf("conflict %s resolved with %s", conflictID, s.Name()), notify.LevelInfo)

	return Result{Conflict: resolved, Suggestion: out.suggestion, Detail: out.detail}, nil
}

// approvedWorkflow reports whether the workflow bound to conflictID is
// complete.
func (e *Engine) approvedWorkflow(ctx context.Context, conflictID string) (bool, error) {
	if e.workflows == nil {
		return false, nil
	}
	wf, ok, err := e.workflows.ForConflict(ctx, conflictID)
	if err != nil || !ok {
		return false, err
	}
	return wf.Status() == approval.StatusComplete, nil
}

// deferToWorkflow registers the strategy's workflow against c.
func (e *Engine) deferToWorkflow(ctx context.Context, c conflict.Conflict, s strategy.WorkflowApproval, log *logging.Logger) (Result, error) {
	if e.workflows == nil {
		return Result{}, errors.NewValidationError("workflow approval is not configured").WithField("strategy")
	}
	wf, err := e.workflows.Register(ctx, c.ID, s.Workflow)
	if err != nil {
		return Result{}, err
	}
	log.Info("resolution deferred to approval workflow", "workflow_id", wf.ID, "steps", len(wf.Steps))

	level := notify.LevelInfo
	if c.Priority.Rank() >= conflict.PriorityHigh.Rank() {
		level = notify.LevelWarning
	}
	e.sink.Notify(fmt.Sprintf("conflict %s awaits approval in workflow %s", c.ID, wf.ID), level)
	return Result{Conflict: c, Pending: true, Workflow: &wf, Detail: "awaiting approval"}, nil
}

type outcome struct {
	value      any
	confidence int
	detail     string
	suggestion *suggest.Suggestion
}

// compute picks the resolved value. workflow_approval only reaches it once
// its workflow is complete.
func (e *Engine) compute(ctx context.Context, c conflict.Conflict, s strategy.Strategy) (outcome, error) {
	switch v := s.(type) {
	case strategy.ServerWins:
		return outcome{value: c.ServerValue, confidence: v.Confidence(), detail: "kept server value"}, nil

	case strategy.ClientWins:
		return outcome{value: c.ClientValue, confidence: v.Confidence(), detail: "took client value"}, nil

	case strategy.Merge:
		rules := v.Rules
		if len(rules) == 0 {
			rules = e.mergeRules
		}
		m := strategy.Evaluate(c, rules)
		return outcome{value: m.Value, confidence: v.Confidence(), detail: string(m.Applied) + ": " + m.Reason}, nil

	case strategy.Manual:
		if v.Value == nil {
			return outcome{}, errors.NewValidationError("manual strategy requires a value").WithField("value")
		}
		return outcome{value: conflict.Normalize(v.Value), confidence: v.Confidence(), detail: "manual value"}, nil

	case strategy.AIAssisted:
		sug := e.advisor.Suggest(ctx, c)
		value, detail := e.applySuggestion(c, sug)
		return outcome{value: value, confidence: sug.Confidence, detail: detail, suggestion: &sug}, nil

	case strategy.WorkflowApproval:
		if v.Value != nil {
			return outcome{value: conflict.Normalize(v.Value), confidence: v.Confidence(), detail: "approved value"}, nil
		}
		return outcome{value: c.ClientValue, confidence: v.Confidence(), detail: "approved client value"}, nil

	default:
		return outcome{}, errors.NewValidationError("unsupported strategy").WithField("strategy").WithValue(fmt.Sprintf("%T", s))
	}
}

// applySuggestion turns advice into a value. Anything the engine cannot
// apply falls back to the server value.
func (e *Engine) applySuggestion(c conflict.Conflict, sug suggest.Suggestion) (any, string) {
	if sug.Degraded {
		return c.ServerValue, "suggestion unavailable, kept server value"
	}
	if sug.Value != nil {
		return conflict.Normalize(sug.Value), "applied suggested value"
	}
	switch sug.Strategy {
	case strategy.NameServerWins:
		return c.ServerValue, "suggested server_wins"
	case strategy.NameClientWins:
		return c.ClientValue, "suggested client_wins"
	case strategy.NameMerge:
		m := strategy.Evaluate(c, e.mergeRules)
		return m.Value, "suggested merge, " + string(m.Applied)
	default:
		return c.ServerValue, fmt.Sprintf("suggested %s cannot apply automatically, kept server value", sug.Strategy)
	}
}

// Suggest returns the advisor's suggestion for a conflict without
// resolving it.
func (e *Engine) Suggest(ctx context.Context, c conflict.Conflict) suggest.Suggestion {
	return e.advisor.Suggest(ctx, c)
}

func (e *Engine) publish(ev event.Event) {
	if e.bus != nil {
		e.bus.Publish(ev)
	}
}

func alreadyResolved(id string) error {
	return errors.NewValidationError("conflict already resolved").
		WithField("conflictId").WithValue(id).WithCause(errors.ErrAlreadyResolved)
}
