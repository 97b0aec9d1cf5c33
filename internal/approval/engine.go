package approval

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Iron-Ham/conflux/internal/errors"
	"github.com/Iron-Ham/conflux/internal/event"
	"github.com/Iron-Ham/conflux/internal/logging"
)

// Store persists workflows for one tenant.
type Store interface {
	// SaveWorkflow inserts wf, replacing any workflow with the same id.
	SaveWorkflow(ctx context.Context, wf Workflow) error
	// GetWorkflow returns the workflow or an error matching
	// errors.ErrWorkflowNotFound.
	GetWorkflow(ctx context.Context, id string) (Workflow, error)
	// ListWorkflows returns every workflow in creation order.
	ListWorkflows(ctx context.Context) ([]Workflow, error)
	// UpdateWorkflow applies fn to a copy of the stored workflow and saves
	// the result atomically. Nothing is saved when fn returns an error.
	UpdateWorkflow(ctx context.Context, id string, fn func(*Workflow) error) (Workflow, error)
}

// errUnchanged aborts an update without surfacing an error.
var errUnchanged = errors.New("workflow unchanged")

// Engine runs approval workflows for a single tenant.
type Engine struct {
	tenantID string
	store    Store
	bus      *event.Bus
	logger   *logging.Logger
	now      func() time.Time
	newID    func() string
}

// Option configures an Engine.
type Option func(*Engine)

// WithBus sets the bus receiving workflow events.
func WithBus(b *event.Bus) Option {
	return func(e *Engine) { e.bus = b }
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

// WithIDGenerator overrides workflow id generation.
func WithIDGenerator(gen func() string) Option {
	return func(e *Engine) { e.newID = gen }
}

// NewEngine creates an Engine persisting to store.
func NewEngine(tenantID string, store Store, opts ...Option) *Engine {
	e := &Engine{
		tenantID: tenantID,
		store:    store,
		logger:   logging.NopLogger(),
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.WithTenant(tenantID).WithComponent("approval")
	return e
}

// Create validates wf and stores it unbound, with every step pending.
// Missing workflow and step ids are generated.
func (e *Engine) Create(ctx context.Context, wf Workflow) (Workflow, error) {
	if err := wf.Validate(); err != nil {
		return Workflow{}, err
	}
	wf = wf.Clone()
	if wf.ID == "" {
		wf.ID = e.newID()
	} else if _, err := e.store.GetWorkflow(ctx, wf.ID); err == nil {
		return Workflow{}, errors.NewValidationError("workflow id already exists").WithField("id").WithValue(wf.ID)
	} else if !errors.Is(err, errors.ErrWorkflowNotFound) {
		return Workflow{}, err
	}
	if wf.Name == "" {
		wf.Name = wf.ID
	}
	wf.ConflictID = ""
	wf.BoundAt = nil
	wf.CreatedAt = e.now().UTC()
	for i := range wf.Steps {
		if wf.Steps[i].ID == "" {
			wf.Steps[i].ID = fmt.Sprintf("step-%d", i+1)
		}
		wf.Steps[i].Status = StepPending
		wf.Steps[i].Timestamp = nil
		wf.Steps[i].Comments = ""
	}
	// Generated ids may collide with explicit ones.
	if err := wf.Validate(); err != nil {
		return Workflow{}, err
	}

	if err := e.store.SaveWorkflow(ctx, wf); err != nil {
		return Workflow{}, errors.Wrap(err, "save workflow")
	}
	e.logger.WithWorkflow(wf.ID).Info("workflow created", "name", wf.Name, "steps", len(wf.Steps))
	return wf, nil
}

// Register creates wf and binds it to conflictID in one call. It backs the
// workflow_approval resolution strategy. Nothing is stored when the conflict
// already has a workflow in progress.
func (e *Engine) Register(ctx context.Context, conflictID string, wf Workflow) (Workflow, error) {
	if conflictID == "" {
		return Workflow{}, errors.NewValidationError("conflict id is required").WithField("conflictId")
	}
	if err := e.checkBindable(ctx, conflictID, ""); err != nil {
		return Workflow{}, err
	}
	created, err := e.Create(ctx, wf)
	if err != nil {
		return Workflow{}, err
	}
	return e.Trigger(ctx, conflictID, created.ID)
}

// checkBindable fails when a workflow other than workflowID is in progress
// for conflictID.
func (e *Engine) checkBindable(ctx context.Context, conflictID, workflowID string) error {
	current, ok, err := e.ForConflict(ctx, conflictID)
	if err != nil {
		return err
	}
	if ok && current.ID != workflowID && current.Status() == StatusInProgress {
		return errors.NewValidationError("conflict already has a workflow in progress").
			WithField("conflictId").WithValue(current.ID)
	}
	return nil
}

// Trigger binds a stored workflow to a conflict. Triggering the same pair
// twice is a no-op. Rebinding a workflow to another conflict, or binding a
// second workflow while one is still in progress for the conflict, is a
// ValidationError.
func (e *Engine) Trigger(ctx context.Context, conflictID, workflowID string) (Workflow, error) {
	if conflictID == "" {
		return Workflow{}, errors.NewValidationError("conflict id is required").WithField("conflictId")
	}

	if _, err := e.store.GetWorkflow(ctx, workflowID); err != nil {
		return Workflow{}, err
	}
	if err := e.checkBindable(ctx, conflictID, workflowID); err != nil {
		return Workflow{}, err
	}

	wf, err := e.store.UpdateWorkflow(ctx, workflowID, func(w *Workflow) error {
		switch w.ConflictID {
		case conflictID:
			return errUnchanged
		case "":
		default:
			return errors.NewValidationError("workflow is bound to another conflict").
				WithField("workflowId").WithValue(w.ConflictID)
		}
		now := e.now().UTC()
		w.ConflictID = conflictID
		w.BoundAt = &now
		return nil
	})
	if errors.Is(err, errUnchanged) {
		return e.store.GetWorkflow(ctx, workflowID)
	}
	if err != nil {
		return Workflow{}, err
	}

	e.logger.WithWorkflow(wf.ID).WithConflict(conflictID).Info("workflow triggered", "status", string(wf.Status()))
	e.publish(event.NewWorkflowRegisteredEvent(e.tenantID, wf.ID, conflictID))
	return wf, nil
}

// Approve marks a pending step approved.
func (e *Engine) Approve(ctx context.Context, workflowID, stepID, comments string) (Workflow, error) {
	return e.transition(ctx, workflowID, stepID, StepApproved, comments)
}

// Reject marks a pending step rejected, blocking the workflow.
func (e *Engine) Reject(ctx context.Context, workflowID, stepID, reason string) (Workflow, error) {
	return e.transition(ctx, workflowID, stepID, StepRejected, reason)
}

// Skip marks a pending step skipped. Skipped steps count as satisfied.
func (e *Engine) Skip(ctx context.Context, workflowID, stepID, reason string) (Workflow, error) {
	return e.transition(ctx, workflowID, stepID, StepSkipped, reason)
}

func (e *Engine) transition(ctx context.Context, workflowID, stepID string, to StepStatus, comments string) (Workflow, error) {
	log := e.logger.WithWorkflow(workflowID).With("step_id", stepID)

	var before Status
	wf, err := e.store.UpdateWorkflow(ctx, workflowID, func(w *Workflow) error {
		step, idx, ok := w.Step(stepID)
		if !ok {
			return errors.NewNotFoundError("step", stepID).WithCause(errors.ErrStepNotFound)
		}
		if step.Status.Terminal() {
			return errUnchanged
		}
		for _, prev := range w.Steps[:idx] {
			if prev.Status == StepRejected {
				return fmt.Errorf("%w: step %s was rejected", errors.ErrWorkflowBlocked, prev.ID)
			}
			if !prev.Status.satisfied() {
				return fmt.Errorf("%w: step %s is still pending", errors.ErrStepOutOfOrder, prev.ID)
			}
		}
		before = w.Status()
		now := e.now().UTC()
		w.Steps[idx].Status = to
		w.Steps[idx].Timestamp = &now
		w.Steps[idx].Comments = comments
		return nil
	})
	if errors.Is(err, errUnchanged) {
		current, getErr := e.store.GetWorkflow(ctx, workflowID)
		if getErr != nil {
			return Workflow{}, getErr
		}
		step, _, _ := current.Step(stepID)
		log.Warn("step already terminal, ignoring transition",
			"status", string(step.Status),
			"requested", string(to))
		return current, nil
	}
	if err != nil {
		return Workflow{}, err
	}

	step, _, _ := wf.Step(stepID)
	log.Info("step transitioned", "status", string(to), "role", step.ApproverRole)

	eventType := map[StepStatus]string{
		StepApproved: event.TypeStepApproved,
		StepRejected: event.TypeStepRejected,
		StepSkipped:  event.TypeStepSkipped,
	}[to]
	e.publish(event.NewStepTransitionEvent(eventType, e.tenantID, wf.ID, stepID, step.ApproverRole, comments))

	if after := wf.Status(); after != before {
		switch after {
		case StatusComplete:
			log.Info("workflow complete", "conflict_id", wf.ConflictID)
			e.publish(event.NewWorkflowCompletedEvent(e.tenantID, wf.ID, wf.ConflictID))
		case StatusBlocked:
			log.Info("workflow blocked", "conflict_id", wf.ConflictID)
			e.publish(event.NewWorkflowBlockedEvent(e.tenantID, wf.ID, wf.ConflictID))
		}
	}
	return wf, nil
}

// Get returns a workflow by id.
func (e *Engine) Get(ctx context.Context, workflowID string) (Workflow, error) {
	return e.store.GetWorkflow(ctx, workflowID)
}

// List returns every workflow of the tenant.
func (e *Engine) List(ctx context.Context) ([]Workflow, error) {
	return e.store.ListWorkflows(ctx)
}

// ForConflict returns the workflow most recently bound to conflictID.
func (e *Engine) ForConflict(ctx context.Context, conflictID string) (Workflow, bool, error) {
	all, err := e.store.ListWorkflows(ctx)
	if err != nil {
		return Workflow{}, false, err
	}
	var (
		found  Workflow
		exists bool
	)
	for _, wf := range all {
		if wf.ConflictID != conflictID || wf.BoundAt == nil {
			continue
		}
		if !exists || !wf.BoundAt.Before(*found.BoundAt) {
			found, exists = wf, true
		}
	}
	return found, exists, nil
}

// Gate reports whether conflictID may be resolved directly. It returns nil
// when no workflow is bound or the bound workflow is complete,
// ErrAwaitingApproval while it is in progress and ErrWorkflowBlocked once a
// step has been rejected.
func (e *Engine) Gate(ctx context.Context, conflictID string) error {
	wf, ok, err := e.ForConflict(ctx, conflictID)
	if err != nil || !ok {
		return err
	}
	switch wf.Status() {
	case StatusInProgress:
		return fmt.Errorf("%w: workflow %s", errors.ErrAwaitingApproval, wf.ID)
	case StatusBlocked:
		return fmt.Errorf("%w: workflow %s", errors.ErrWorkflowBlocked, wf.ID)
	default:
		return nil
	}
}

func (e *Engine) publish(ev event.Event) {
	if e.bus != nil {
		e.bus.Publish(ev)
	}
}
