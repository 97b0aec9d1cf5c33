// Package escalation raises conflict priority, on request or when a conflict
// has waited longer than its business impact allows.
package escalation

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Iron-Ham/conflux/internal/conflict"
	"github.com/Iron-Ham/conflux/internal/errors"
	"github.com/Iron-Ham/conflux/internal/event"
	"github.com/Iron-Ham/conflux/internal/logging"
	"github.com/Iron-Ham/conflux/internal/notify"
	"github.com/Iron-Ham/conflux/internal/repository"
)

// Repository is the persistence the policy needs.
type Repository interface {
	ListConflicts(ctx context.Context, f repository.Filter) ([]conflict.Conflict, error)
	UpdateConflict(ctx context.Context, id string, fn func(*conflict.Conflict) error) (conflict.Conflict, error)
	GetConflict(ctx context.Context, id string) (conflict.Conflict, error)
}

// Outcome reports what an escalation did.
type Outcome struct {
	Conflict conflict.Conflict `json:"conflict"`
	From     conflict.Priority `json:"from"`
	To       conflict.Priority `json:"to"`
	// Changed is false when the conflict was already critical.
	Changed bool `json:"changed"`
}

// SweepResult lists the conflicts a sweep escalated.
type SweepResult struct {
	Escalated []string
	Failed    map[string]error
}

// Policy escalates conflicts for one tenant.
type Policy struct {
	tenantID string
	repo     Repository
	maxAges  map[conflict.Impact]time.Duration
	bus      *event.Bus
	sink     notify.Sink
	logger   *logging.Logger
	now      func() time.Time
}

// Option configures a Policy.
type Option func(*Policy)

// WithMaxAges sets the per-impact age after which Sweep escalates. Impacts
// without an entry, or with a non-positive duration, are never swept.
func WithMaxAges(ages map[string]time.Duration) Option {
	return func(p *Policy) {
		p.maxAges = make(map[conflict.Impact]time.Duration, len(ages))
		for k, d := range ages {
			if d > 0 {
				p.maxAges[conflict.Impact(k)] = d
			}
		}
	}
}

// WithBus sets the bus receiving escalation events.
func WithBus(b *event.Bus) Option { return func(p *Policy) { p.bus = b } }

// WithSink sets the sink notified when a conflict is escalated.
func WithSink(s notify.Sink) Option {
	return func(p *Policy) {
		if s != nil {
			p.sink = s
		}
	}
}

// WithLogger sets the policy logger.
func WithLogger(l *logging.Logger) Option {
	return func(p *Policy) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithClock overrides time.Now for escalation timestamps and sweep ages.
func WithClock(now func() time.Time) Option { return func(p *Policy) { p.now = now } }

// NewPolicy creates a Policy over repo.
func NewPolicy(tenantID string, repo Repository, opts ...Option) *Policy {
	p := &Policy{
		tenantID: tenantID,
		repo:     repo,
		maxAges:  map[conflict.Impact]time.Duration{},
		sink:     notify.Nop{},
		logger:   logging.NopLogger(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.WithTenant(tenantID).WithComponent("escalation")
	return p
}

var errUnchanged = errors.New("priority unchanged")

// Escalate raises the conflict one priority level and records reason.
// A critical conflict is returned unchanged. Resolved conflicts cannot be
// escalated.
func (p *Policy) Escalate(ctx context.Context, conflictID, reason string) (Outcome, error) {
	return p.escalate(ctx, conflictID, reason, false)
}

func (p *Policy) escalate(ctx context.Context, conflictID, reason string, automatic bool) (Outcome, error) {
	if conflictID == "" {
		return Outcome{}, errors.NewValidationError("conflict id is required").WithField("conflictId")
	}
	var from conflict.Priority
	updated, err := p.repo.UpdateConflict(ctx, conflictID, func(c *conflict.Conflict) error {
		if c.Resolved {
			return errors.NewValidationError("resolved conflicts cannot be escalated").
				WithField("conflictId").WithValue(c.ID).WithCause(errors.ErrAlreadyResolved)
		}
		from = c.Priority
		next := c.Priority.Next()
		if next == c.Priority {
			return errUnchanged
		}
		now := p.now().UTC()
		c.Priority = next
		c.Metadata.Escalated = true
		c.Metadata.EscalationReason = reason
		c.Metadata.EscalationTimestamp = &now
		c.Metadata.LastModifiedAt = now
		c.Metadata.Version++
		return nil
	})
	if errors.Is(err, errUnchanged) {
		current, getErr := p.repo.GetConflict(ctx, conflictID)
		if getErr != nil {
			return Outcome{}, getErr
		}
		p.logger.WithConflict(conflictID).Debug("conflict already at highest priority")
		return Outcome{Conflict: current, From: from, To: from}, nil
	}
	if err != nil {
		return Outcome{}, err
	}

	to := updated.Priority
	p.logger.WithConflict(conflictID).Info("conflict escalated",
		"from", string(from), "to", string(to), "reason", reason, "automatic", automatic)
	if p.bus != nil {
		p.bus.Publish(event.NewConflictEscalatedEvent(p.tenantID, conflictID, string(from), string(to), reason, automatic))
	}
	level := notify.LevelWarning
	if to == conflict.PriorityCritical {
		level = notify.LevelCritical
	}
	p.sink.Notify(fmt.Sprintf("conflict %s escalated from %s to %s: %s", conflictID, from, to, reason), level)

	return Outcome{Conflict: updated, From: from, To: to, Changed: true}, nil
}

// Due reports whether c has waited longer than its impact allows at now.
// The wait is measured from the last escalation, or from detection.
func (p *Policy) Due(c conflict.Conflict, now time.Time) bool {
	if c.Resolved || c.Priority == conflict.PriorityCritical {
		return false
	}
	limit, ok := p.maxAges[c.Impact]
	if !ok {
		return false
	}
	since := c.DetectedAt
	if ts := c.Metadata.EscalationTimestamp; ts != nil {
		since = *ts
	}
	return now.Sub(since) > limit
}

// Sweep escalates every open conflict that is due at now. Failures for one
// conflict do not stop the sweep.
func (p *Policy) Sweep(ctx context.Context, now time.Time) (SweepResult, error) {
	open, err := p.repo.ListConflicts(ctx, repository.Unresolved())
	if err != nil {
		return SweepResult{}, errors.Wrap(err, "list open conflicts")
	}

	res := SweepResult{Failed: map[string]error{}}
	for _, c := range open {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if !p.Due(c, now) {
			continue
		}
		age := now.Sub(c.DetectedAt).Truncate(time.Second)
		out, err := p.escalate(ctx, c.ID, fmt.Sprintf("unresolved %s conflict open for %s", c.Impact, age), true)
		if err != nil {
			p.logger.WithConflict(c.ID).Warn("automatic escalation failed", "error", err.Error())
			res.Failed[c.ID] = err
			continue
		}
		if out.Changed {
			res.Escalated = append(res.Escalated, c.ID)
		}
	}
	sort.Strings(res.Escalated)
	if len(res.Escalated) > 0 {
		p.logger.Info("escalation sweep finished", "escalated", len(res.Escalated), "failed", len(res.Failed))
	}
	return res, nil
}

// Run sweeps every interval until ctx is done. A non-positive interval
// returns immediately.
func (p *Policy) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return nil
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := p.Sweep(ctx, p.now()); err != nil && ctx.Err() == nil {
				p.logger.Warn("escalation sweep failed", "error", err.Error())
			}
		}
	}
}
