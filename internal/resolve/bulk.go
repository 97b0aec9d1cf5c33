package resolve

import (
	"context"
	"sort"

	"github.com/sourcegraph/conc/pool"

	"github.com/Iron-Ham/conflux/internal/strategy"
)

// BulkResult aggregates the outcome of a bulk resolution.
type BulkResult struct {
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	// Pending counts successes that deferred to a workflow. They are
	// included in Succeeded.
	Pending int              `json:"pending,omitempty"`
	Errors  map[string]error `json:"-"`
}

// FailedIDs returns the ids that failed, sorted.
func (r BulkResult) FailedIDs() []string {
	ids := make([]string, 0, len(r.Errors))
	for id := range r.Errors {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

type bulkItem struct {
	id      string
	pending bool
	err     error
}

// BulkResolve resolves every id with s concurrently and reports aggregate
// counts once all have finished. A failure for one id never affects the
// others.
func (e *Engine) BulkResolve(ctx context.Context, ids []string, s strategy.Strategy) BulkResult {
	p := pool.NewWithResults[bulkItem]().WithMaxGoroutines(e.bulkLimit)
	for _, id := range ids {
		p.Go(func() bulkItem {
			member := s
			// Each conflict gets its own copy of a workflow template.
			if wf, ok := s.(strategy.WorkflowApproval); ok {
				wf.Workflow = wf.Workflow.Clone()
				wf.Workflow.ID = ""
				member = wf
			}
			res, err := e.Resolve(ctx, id, member)
			return bulkItem{id: id, pending: res.Pending, err: err}
		})
	}

	result := BulkResult{Errors: make(map[string]error)}
	for _, item := range p.Wait() {
		if item.err != nil {
			result.Failed++
			result.Errors[item.id] = item.err
			continue
		}
		result.Succeeded++
		if item.pending {
			result.Pending++
		}
	}

	e.logger.Info("bulk resolution finished",
		"strategy", string(s.Name()),
		"requested", len(ids),
		"succeeded", result.Succeeded,
		"failed", result.Failed,
		"pending", result.Pending)
	return result
}
