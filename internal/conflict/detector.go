package conflict

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Iron-Ham/conflux/internal/errors"
	"github.com/Iron-Ham/conflux/internal/event"
	"github.com/Iron-Ham/conflux/internal/logging"
)

// Appender persists new conflicts for one tenant.
type Appender interface {
	// AppendConflict stores c unless an existing conflict satisfies match,
	// in which case that conflict is returned with created=false. The
	// check and the append happen atomically.
	AppendConflict(ctx context.Context, c Conflict, match func(Conflict) bool) (stored Conflict, created bool, err error)
}

// Detector turns change events into persisted, classified conflicts for a
// single tenant.
type Detector struct {
	tenantID string
	repo     Appender
	logger   *logging.Logger
	bus      *event.Bus
	now      func() time.Time
	newID    func() string

	mu    sync.RWMutex
	rules Rules
}

// Option configures a Detector.
type Option func(*Detector)

// WithLogger sets the detector's logger.
func WithLogger(l *logging.Logger) Option {
	return func(d *Detector) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithBus sets the bus that receives conflict.detected events.
func WithBus(b *event.Bus) Option {
	return func(d *Detector) { d.bus = b }
}

// WithRules replaces the classification rules.
func WithRules(r Rules) Option {
	return func(d *Detector) { d.rules = r }
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(d *Detector) { d.now = now }
}

// WithIDGenerator overrides conflict id generation, for tests.
func WithIDGenerator(gen func() string) Option {
	return func(d *Detector) { d.newID = gen }
}

// NewDetector creates a Detector writing to repo.
func NewDetector(tenantID string, repo Appender, opts ...Option) *Detector {
	d := &Detector{
		tenantID: tenantID,
		repo:     repo,
		logger:   logging.NopLogger(),
		now:      time.Now,
		newID:    uuid.NewString,
		rules:    DefaultRules(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.WithTenant(tenantID).WithComponent("detector")
	return d
}

// SetRules swaps classification rules at runtime.
func (d *Detector) SetRules(r Rules) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rules = r
}

// Validate checks that ev has every identifier a conflict needs.
func (d *Detector) Validate(ev ChangeEvent) error {
	required := []struct {
		field, value string
	}{
		{"tenantId", ev.TenantID},
		{"module", ev.Module},
		{"entityType", ev.EntityType},
		{"entityId", ev.EntityID},
		{"field", ev.Field},
	}
	for _, r := range required {
		if r.value == "" {
			return errors.NewValidationError(r.field + " is required").WithField(r.field)
		}
	}
	if ev.TenantID != d.tenantID {
		return errors.NewValidationError("event belongs to another tenant").
			WithField("tenantId").WithValue(ev.TenantID)
	}
	if ev.Operation != "" && !ev.Operation.Valid() {
		return errors.NewValidationError("unknown operation").
			WithField("operation").WithValue(string(ev.Operation))
	}
	return nil
}

// Detect classifies ev and persists a new unresolved conflict at version 1.
//
// Malformed events are rejected with a ValidationError and logged.
// Events whose values do not diverge return ErrNoDivergence. An event
// matching an existing unresolved conflict returns that conflict unchanged.
func (d *Detector) Detect(ctx context.Context, ev ChangeEvent) (Conflict, error) {
	if err := d.Validate(ev); err != nil {
		d.logger.Warn("rejected malformed change event",
			"entity_id", ev.EntityID,
			"field", ev.Field,
			"error", err.Error())
		return Conflict{}, err
	}
	if ev.Operation == "" {
		ev.Operation = OpUpdate
	}

	server := Normalize(ev.ServerValue)
	client := Normalize(ev.ClientValue)
	if Equal(server, client) {
		d.logger.Debug("change event without divergence", "entity_id", ev.EntityID, "field", ev.Field)
		return Conflict{}, errors.ErrNoDivergence
	}

	d.mu.RLock()
	cls := d.rules.Classify(ev)
	d.mu.RUnlock()

	now := d.now().UTC()
	c := Conflict{
		ID:            d.newID(),
		TenantID:      ev.TenantID,
		Module:        ev.Module,
		EntityType:    ev.EntityType,
		EntityID:      ev.EntityID,
		Field:         ev.Field,
		ServerValue:   server,
		ClientValue:   client,
		DetectedAt:    now,
		Priority:      cls.Priority,
		Type:          cls.Type,
		Impact:        cls.Impact,
		AffectedUsers: sortedUnique(ev.AffectedUsers),
		Metadata: Metadata{
			LastModifiedAt:        lastModified(ev, now),
			ModifiedBy:            ev.ModifiedBy,
			Version:               1,
			Dependencies:          sortedUnique(ev.Dependencies),
			Operation:             ev.Operation,
			ServerModifiedAt:      ev.ServerModifiedAt,
			ClientModifiedAt:      ev.ClientModifiedAt,
			ServerVersion:         ev.ServerVersion,
			ClientVersion:         ev.ClientVersion,
			ClassificationReasons: cls.Reasons,
		},
	}

	stored, created, err := d.repo.AppendConflict(ctx, c, func(existing Conflict) bool {
		return !existing.Resolved &&
			existing.Module == c.Module &&
			existing.EntityType == c.EntityType &&
			existing.EntityID == c.EntityID &&
			existing.Field == c.Field &&
			Equal(existing.ServerValue, c.ServerValue) &&
			Equal(existing.ClientValue, c.ClientValue)
	})
	if err != nil {
		return Conflict{}, errors.Wrap(err, "persist conflict")
	}

	log := d.logger.WithConflict(stored.ID)
	if !created {
		log.Debug("duplicate change event matched open conflict")
		return stored, nil
	}

	log.Info("conflict detected",
		"module", stored.Module,
		"entity_type", stored.EntityType,
		"entity_id", stored.EntityID,
		"field", stored.Field,
		"conflict_type", string(stored.Type),
		"impact", string(stored.Impact),
		"priority", string(stored.Priority))
	if d.bus != nil {
		d.bus.Publish(event.NewConflictDetectedEvent(d.tenantID, stored.ID,
			string(stored.Type), string(stored.Impact), string(stored.Priority)))
	}
	return stored, nil
}

func lastModified(ev ChangeEvent, fallback time.Time) time.Time {
	var latest time.Time
	for _, t := range []*time.Time{ev.ServerModifiedAt, ev.ClientModifiedAt} {
		if t != nil && t.After(latest) {
			latest = t.UTC()
		}
	}
	if latest.IsZero() {
		return fallback
	}
	return latest
}

func sortedUnique(in []string) []string {
	if len(in) == 0 {
		return []string{}
	}
	out := slices.Clone(in)
	slices.Sort(out)
	return slices.Compact(out)
}
