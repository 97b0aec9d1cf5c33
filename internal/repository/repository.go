package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/Iron-Ham/conflux/internal/approval"
	"github.com/Iron-Ham/conflux/internal/conflict"
	"github.com/Iron-Ham/conflux/internal/errors"
	"github.com/Iron-Ham/conflux/internal/store"
)

// Collection names used as the first key segment.
const (
	CollectionConflicts = "conflicts"
	CollectionWorkflows = "workflows"
	CollectionHistory   = "history"
)

var (
	_ conflict.Appender = (*Repository)(nil)
	_ approval.Store    = (*Repository)(nil)
)

// Repository is the tenant-scoped persistence layer.
type Repository struct {
	tenantID string
	store    store.Store

	mu sync.Mutex
}

// New returns a Repository for tenantID. The tenant id must be a single
// key segment.
func New(tenantID string, s store.Store) (*Repository, error) {
	if err := store.ValidateSegment(tenantID); err != nil {
		return nil, errors.NewValidationError("invalid tenant id").
			WithField("tenantId").WithValue(tenantID).WithCause(err)
	}
	if s == nil {
		return nil, errors.NewValidationError("store is required").WithField("store")
	}
	return &Repository{tenantID: tenantID, store: s}, nil
}

// TenantID returns the tenant this repository belongs to.
func (r *Repository) TenantID() string { return r.tenantID }

// Key returns the store key of a collection for this tenant.
func (r *Repository) Key(collection string) string {
	return store.Key(collection, r.tenantID)
}

// load reads a collection into out. A missing key leaves out empty and
// returns the nil blob.
func (r *Repository) load(ctx context.Context, collection string, out any) ([]byte, error) {
	data, err := r.store.Get(ctx, r.Key(collection))
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", collection, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", collection, err)
	}
	return data, nil
}

func (r *Repository) save(ctx context.Context, collection string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", collection, err)
	}
	if err := r.store.Set(ctx, r.Key(collection), data); err != nil {
		return fmt.Errorf("save %s: %w", collection, err)
	}
	return nil
}

// restore puts a previously loaded blob back. A nil blob means the key did
// not exist before.
func (r *Repository) restore(ctx context.Context, collection string, prev []byte) error {
	key := r.Key(collection)
	if prev == nil {
		err := r.store.Delete(ctx, key)
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return err
	}
	return r.store.Set(ctx, key, prev)
}

// -----------------------------------------------------------------------------
// Conflicts
// -----------------------------------------------------------------------------

// AppendConflict stores c unless an existing conflict satisfies match.
func (r *Repository) AppendConflict(ctx context.Context, c conflict.Conflict, match func(conflict.Conflict) bool) (conflict.Conflict, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var all []conflict.Conflict
	if _, err := r.load(ctx, CollectionConflicts, &all); err != nil {
		return conflict.Conflict{}, false, err
	}
	for _, existing := range all {
		if existing.ID == c.ID {
			return conflict.Conflict{}, false, errors.NewValidationError("conflict id already exists").
				WithField("id").WithValue(c.ID)
		}
		if match != nil && match(existing) {
			return existing, false, nil
		}
	}
	all = append(all, c.Clone())
	if err := r.save(ctx, CollectionConflicts, all); err != nil {
		return conflict.Conflict{}, false, err
	}
	return c, true, nil
}

// GetConflict returns a conflict by id.
func (r *Repository) GetConflict(ctx context.Context, id string) (conflict.Conflict, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var all []conflict.Conflict
	if _, err := r.load(ctx, CollectionConflicts, &all); err != nil {
		return conflict.Conflict{}, err
	}
	for _, c := range all {
		if c.ID == id {
			return c, nil
		}
	}
	return conflict.Conflict{}, conflictNotFound(id)
}

// ListConflicts returns the conflicts accepted by f, in detection order.
func (r *Repository) ListConflicts(ctx context.Context, f Filter) ([]conflict.Conflict, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var all []conflict.Conflict
	if _, err := r.load(ctx, CollectionConflicts, &all); err != nil {
		return nil, err
	}
	out := all[:0]
	for _, c := range all {
		if f.Match(c) {
			out = append(out, c)
		}
	}
	return out, nil
}

// UpdateConflict applies fn to a copy of the stored conflict and saves it.
// Nothing is written when fn returns an error.
func (r *Repository) UpdateConflict(ctx context.Context, id string, fn func(*conflict.Conflict) error) (conflict.Conflict, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var all []conflict.Conflict
	if _, err := r.load(ctx, CollectionConflicts, &all); err != nil {
		return conflict.Conflict{}, err
	}
	idx := indexOf(all, id)
	if idx < 0 {
		return conflict.Conflict{}, conflictNotFound(id)
	}
	updated := all[idx].Clone()
	if err := fn(&updated); err != nil {
		return conflict.Conflict{}, err
	}
	all[idx] = updated
	if err := r.save(ctx, CollectionConflicts, all); err != nil {
		return conflict.Conflict{}, err
	}
	return updated.Clone(), nil
}

// CommitResolution applies fn to a copy of the conflict and appends the
// history entry it returns. Either both collections change or neither does.
func (r *Repository) CommitResolution(ctx context.Context, id string, fn func(*conflict.Conflict) (conflict.HistoryEntry, error)) (conflict.Conflict, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var all []conflict.Conflict
	prevConflicts, err := r.load(ctx, CollectionConflicts, &all)
	if err != nil {
		return conflict.Conflict{}, err
	}
	var history []conflict.HistoryEntry
	if _, err := r.load(ctx, CollectionHistory, &history); err != nil {
		return conflict.Conflict{}, err
	}

	idx := indexOf(all, id)
	if idx < 0 {
		return conflict.Conflict{}, conflictNotFound(id)
	}
	updated := all[idx].Clone()
	entry, err := fn(&updated)
	if err != nil {
		return conflict.Conflict{}, err
	}
	all[idx] = updated
	history = append(history, entry)

	if err := r.save(ctx, CollectionConflicts, all); err != nil {
		return conflict.Conflict{}, err
	}
	if err := r.save(ctx, CollectionHistory, history); err != nil {
		if rbErr := r.restore(ctx, CollectionConflicts, prevConflicts); rbErr != nil {
			return conflict.Conflict{}, fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return conflict.Conflict{}, err
	}
	return updated.Clone(), nil
}

// ListHistory returns every resolution history entry in commit order.
func (r *Repository) ListHistory(ctx context.Context) ([]conflict.HistoryEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var history []conflict.HistoryEntry
	if _, err := r.load(ctx, CollectionHistory, &history); err != nil {
		return nil, err
	}
	return history, nil
}

// Snapshot returns conflicts and history read under one lock.
func (r *Repository) Snapshot(ctx context.Context) ([]conflict.Conflict, []conflict.HistoryEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var all []conflict.Conflict
	if _, err := r.load(ctx, CollectionConflicts, &all); err != nil {
		return nil, nil, err
	}
	var history []conflict.HistoryEntry
	if _, err := r.load(ctx, CollectionHistory, &history); err != nil {
		return nil, nil, err
	}
	return all, history, nil
}

func indexOf(all []conflict.Conflict, id string) int {
	for i := range all {
		if all[i].ID == id {
			return i
		}
	}
	return -1
}

func conflictNotFound(id string) error {
	return errors.NewNotFoundError("conflict", id).WithCause(errors.ErrConflictNotFound)
}

// -----------------------------------------------------------------------------
// Workflows
// -----------------------------------------------------------------------------

// SaveWorkflow inserts wf or replaces the workflow with the same id.
func (r *Repository) SaveWorkflow(ctx context.Context, wf approval.Workflow) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var all []approval.Workflow
	if _, err := r.load(ctx, CollectionWorkflows, &all); err != nil {
		return err
	}
	replaced := false
	for i := range all {
		if all[i].ID == wf.ID {
			all[i] = wf.Clone()
			replaced = true
			break
		}
	}
	if !replaced {
		all = append(all, wf.Clone())
	}
	return r.save(ctx, CollectionWorkflows, all)
}

// GetWorkflow returns a workflow by id.
func (r *Repository) GetWorkflow(ctx context.Context, id string) (approval.Workflow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var all []approval.Workflow
	if _, err := r.load(ctx, CollectionWorkflows, &all); err != nil {
		return approval.Workflow{}, err
	}
	for _, wf := range all {
		if wf.ID == id {
			return wf, nil
		}
	}
	return approval.Workflow{}, workflowNotFound(id)
}

// ListWorkflows returns the tenant's workflows sorted by creation time.
func (r *Repository) ListWorkflows(ctx context.Context) ([]approval.Workflow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var all []approval.Workflow
	if _, err := r.load(ctx, CollectionWorkflows, &all); err != nil {
		return nil, err
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].CreatedAt.Before(all[j].CreatedAt) })
	return all, nil
}

// UpdateWorkflow applies fn to a copy of the stored workflow and saves it.
func (r *Repository) UpdateWorkflow(ctx context.Context, id string, fn func(*approval.Workflow) error) (approval.Workflow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var all []approval.Workflow
	if _, err := r.load(ctx, CollectionWorkflows, &all); err != nil {
		return approval.Workflow{}, err
	}
	for i := range all {
		if all[i].ID != id {
			continue
		}
		updated := all[i].Clone()
		if err := fn(&updated); err != nil {
			return approval.Workflow{}, err
		}
		all[i] = updated
		if err := r.save(ctx, CollectionWorkflows, all); err != nil {
			return approval.Workflow{}, err
		}
		return updated.Clone(), nil
	}
	return approval.Workflow{}, workflowNotFound(id)
}

func workflowNotFound(id string) error {
	return errors.NewNotFoundError("workflow", id).WithCause(errors.ErrWorkflowNotFound)
}
