package approval

import (
	"fmt"
	"time"

	"github.com/Iron-Ham/conflux/internal/errors"
)

// StepStatus is the state of a single approval step.
type StepStatus string

const (
	StepPending  StepStatus = "pending"
	StepApproved StepStatus = "approved"
	StepRejected StepStatus = "rejected"
	StepSkipped  StepStatus = "skipped"
)

// Terminal reports whether no further transition is allowed.
func (s StepStatus) Terminal() bool {
	return s == StepApproved || s == StepRejected || s == StepSkipped
}

// satisfied reports whether the step lets later steps proceed.
func (s StepStatus) satisfied() bool {
	return s == StepApproved || s == StepSkipped
}

// Status is the derived state of a whole workflow.
type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusComplete   Status = "complete"
	StatusBlocked    Status = "blocked"
)

// Step is one sign-off in a workflow.
type Step struct {
	ID           string     `json:"id" yaml:"id"`
	ApproverRole string     `json:"approverRole" yaml:"approverRole"`
	Description  string     `json:"description,omitempty" yaml:"description,omitempty"`
	Status       StepStatus `json:"status" yaml:"status,omitempty"`
	Timestamp    *time.Time `json:"timestamp,omitempty" yaml:"-"`
	Comments     string     `json:"comments,omitempty" yaml:"-"`
}

// Workflow is an ordered sequence of approval steps, optionally bound to a
// conflict.
type Workflow struct {
	ID         string     `json:"id" yaml:"id,omitempty"`
	Name       string     `json:"name" yaml:"name"`
	ConflictID string     `json:"conflictId,omitempty" yaml:"-"`
	BoundAt    *time.Time `json:"boundAt,omitempty" yaml:"-"`
	Steps      []Step     `json:"steps" yaml:"steps"`
	CreatedAt  time.Time  `json:"createdAt" yaml:"-"`
}

// Status derives the workflow status from its steps.
func (w Workflow) Status() Status {
	complete := len(w.Steps) > 0
	for _, s := range w.Steps {
		if s.Status == StepRejected {
			return StatusBlocked
		}
		if !s.Status.satisfied() {
			complete = false
		}
	}
	if complete {
		return StatusComplete
	}
	return StatusInProgress
}

// Step returns the step with the given id and its index.
func (w Workflow) Step(id string) (Step, int, bool) {
	for i, s := range w.Steps {
		if s.ID == id {
			return s, i, true
		}
	}
	return Step{}, -1, false
}

// Current returns the first step still pending, if any.
func (w Workflow) Current() (Step, bool) {
	for _, s := range w.Steps {
		if s.Status == StepPending {
			return s, true
		}
	}
	return Step{}, false
}

// Clone returns a deep copy of w.
func (w Workflow) Clone() Workflow {
	out := w
	out.Steps = make([]Step, len(w.Steps))
	for i, s := range w.Steps {
		if s.Timestamp != nil {
			ts := *s.Timestamp
			s.Timestamp = &ts
		}
		out.Steps[i] = s
	}
	if w.BoundAt != nil {
		b := *w.BoundAt
		out.BoundAt = &b
	}
	return out
}

// Validate checks the structural rules of a new workflow: at least one step,
// unique step ids, an approver role on every step, and no step already past
// pending.
func (w Workflow) Validate() error {
	if len(w.Steps) == 0 {
		return errors.NewValidationError("workflow needs at least one step").WithField("steps")
	}
	seen := make(map[string]bool, len(w.Steps))
	for i, s := range w.Steps {
		field := fmt.Sprintf("steps[%d]", i)
		if s.ApproverRole == "" {
			return errors.NewValidationError("approver role is required").WithField(field + ".approverRole")
		}
		if s.ID != "" {
			if seen[s.ID] {
				return errors.NewValidationError("duplicate step id").WithField(field + ".id").WithValue(s.ID)
			}
			seen[s.ID] = true
		}
		if s.Status != "" && s.Status != StepPending {
			return errors.NewValidationError("new steps must be pending").WithField(field + ".status").WithValue(string(s.Status))
		}
	}
	return nil
}
