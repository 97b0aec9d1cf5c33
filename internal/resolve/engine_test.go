package resolve

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Iron-Ham/conflux/internal/approval"
	"github.com/Iron-Ham/conflux/internal/conflict"
	"github.com/Iron-Ham/conflux/internal/errors"
	"github.com/Iron-Ham/conflux/internal/event"
	"github.com/Iron-Ham/conflux/internal/lease"
	"github.com/Iron-Ham/conflux/internal/logging"
	"github.com/Iron-Ham/conflux/internal/repository"
	"github.com/Iron-Ham/conflux/internal/store"
	"github.com/Iron-Ham/conflux/internal/strategy"
	"github.com/Iron-Ham/conflux/internal/suggest"
)

type fixture struct {
	repo      *repository.Repository
	workflows *approval.Engine
	bus       *event.Bus
	events    *recorder
	logs      *bytes.Buffer
}

type recorder struct {
	mu     sync.Mutex
	events []event.Event
}

func (r *recorder) handle(e event.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) count(eventType string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.EventType() == eventType {
			n++
		}
	}
	return n
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo, err := repository.New("acme", store.NewMemory())
	if err != nil {
		t.Fatalf("repository.New() error = %v", err)
	}
	f := &fixture{repo: repo, bus: event.NewBus(), events: &recorder{}, logs: &bytes.Buffer{}}
	f.bus.SubscribeAll(f.events.handle)
	f.workflows = approval.NewEngine("acme", repo, approval.WithBus(f.bus))
	return f
}

func (f *fixture) engine(opts ...Option) *Engine {
	base := []Option{
		WithWorkflows(f.workflows),
		WithBus(f.bus),
		WithLogger(logging.NewWriterLogger(f.logs, logging.LevelDebug)),
	}
	return NewEngine("acme", f.repo, append(base, opts...)...)
}

func (f *fixture) add(t *testing.T, c conflict.Conflict) {
	t.Helper()
	if _, _, err := f.repo.AppendConflict(context.Background(), c, nil); err != nil {
		t.Fatalf("AppendConflict(%s) error = %v", c.ID, err)
	}
}

func invoice(id string) conflict.Conflict {
	return conflict.Conflict{
		ID:          id,
		TenantID:    "acme",
		Module:      "finance",
		EntityType:  "invoice",
		EntityID:    "inv-" + id,
		Field:       "amount",
		ServerValue: 1500.0,
		ClientValue: 1550.0,
		DetectedAt:  time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Priority:    conflict.PriorityHigh,
		Type:        conflict.TypeDataMismatch,
		Impact:      conflict.ImpactRevenue,
		Metadata:    conflict.Metadata{Version: 1},
	}
}

func resolvedValue(t *testing.T, c conflict.Conflict) any {
	t.Helper()
	v, ok := c.ResolvedAs()
	if !ok {
		t.Fatalf("conflict %s has no resolved value", c.ID)
	}
	return v
}

func TestResolve_ServerWins(t *testing.T) {
	f := newFixture(t)
	f.add(t, invoice("c-1"))

	res, err := f.engine().Resolve(context.Background(), "c-1", strategy.ServerWins{Meta: strategy.Meta{Conf: 100}})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if res.Pending {
		t.Error("server_wins should not be pending")
	}
	got := res.Conflict
	if !got.Resolved {
		t.Error("conflict should be resolved")
	}
	if v := resolvedValue(t, got); v != 1500.0 {
		t.Errorf("resolved value = %v, want 1500", v)
	}
	if got.Metadata.ResolutionStrategy != "server_wins" || got.Metadata.ResolutionConfidence != 100 {
		t.Errorf("strategy/confidence = %q/%d", got.Metadata.ResolutionStrategy, got.Metadata.ResolutionConfidence)
	}
	if got.Metadata.Version != 2 {
		t.Errorf("version = %d, want 2", got.Metadata.Version)
	}
	if got.Metadata.ResolvedAt == nil {
		t.Error("resolvedAt should be set")
	}

	history, err := f.repo.ListHistory(context.Background())
	if err != nil {
		t.Fatalf("ListHistory() error = %v", err)
	}
	if len(history) != 1 || history[0].ConflictID != "c-1" || history[0].StrategyUsed != "server_wins" {
		t.Errorf("history = %+v", history)
	}
	if history[0].BusinessImpact != conflict.ImpactRevenue {
		t.Errorf("history impact = %q", history[0].BusinessImpact)
	}
	if n := f.events.count(event.TypeConflictResolved); n != 1 {
		t.Errorf("resolved events = %d, want 1", n)
	}
}

func TestResolve_Strategies(t *testing.T) {
	tests := []struct {
		name     string
		conflict func() conflict.Conflict
		strategy strategy.Strategy
		want     any
	}{
		{
			name:     "client wins",
			conflict: func() conflict.Conflict { return invoice("c") },
			strategy: strategy.ClientWins{Meta: strategy.Meta{Conf: 100}},
			want:     1550.0,
		},
		{
			name:     "manual value",
			conflict: func() conflict.Conflict { return invoice("c") },
			strategy: strategy.Manual{Meta: strategy.Meta{Conf: 100}, Value: 1525},
			want:     1525.0,
		},
		{
			name:     "merge highest value",
			conflict: func() conflict.Conflict { return invoice("c") },
			strategy: strategy.Merge{
				Meta:  strategy.Meta{Conf: 80},
				Rules: []strategy.MergeRule{{Field: "amount", Rule: strategy.RuleHighestValue}},
			},
			want: 1550.0,
		},
		{
			name:     "merge without rules keeps server",
			conflict: func() conflict.Conflict { return invoice("c") },
			strategy: strategy.Merge{Meta: strategy.Meta{Conf: 80}},
			want:     1500.0,
		},
		{
			name: "merge combine arrays",
			conflict: func() conflict.Conflict {
				c := invoice("c")
				c.Field = "tags"
				c.ServerValue = []any{"a", "b"}
				c.ClientValue = []any{"b", "c"}
				return c
			},
			strategy: strategy.Merge{
				Meta:  strategy.Meta{Conf: 80},
				Rules: []strategy.MergeRule{{Field: "tags", Rule: strategy.RuleCombineArrays}},
			},
			want: []any{"a", "b", "c"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.add(t, tt.conflict())

			res, err := f.engine().Resolve(context.Background(), "c", tt.strategy)
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			if got := resolvedValue(t, res.Conflict); !conflict.Equal(got, tt.want) {
				t.Errorf("resolved value = %v, want %v", got, tt.want)
			}
			if res.Conflict.Metadata.ResolutionConfidence != tt.strategy.Confidence() {
				t.Errorf("confidence = %d, want %d", res.Conflict.Metadata.ResolutionConfidence, tt.strategy.Confidence())
			}
		})
	}
}

func TestResolve_EngineMergeRules(t *testing.T) {
	f := newFixture(t)
	f.add(t, invoice("c-1"))
	e := f.engine(WithMergeRules([]strategy.MergeRule{{Field: "amount", Rule: strategy.RuleHighestValue}}))

	res, err := e.Resolve(context.Background(), "c-1", strategy.Merge{Meta: strategy.Meta{Conf: 80}})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if v := resolvedValue(t, res.Conflict); v != 1550.0 {
		t.Errorf("resolved value = %v, want 1550", v)
	}
}

func TestResolve_Errors(t *testing.T) {
	f := newFixture(t)
	f.add(t, invoice("c-1"))
	e := f.engine()
	ctx := context.Background()

	if _, err := e.Resolve(ctx, "", strategy.ServerWins{}); !errors.IsValidation(err) {
		t.Errorf("empty id: err = %v, want validation", err)
	}
	if _, err := e.Resolve(ctx, "c-1", nil); !errors.IsValidation(err) {
		t.Errorf("nil strategy: err = %v, want validation", err)
	}
	if _, err := e.Resolve(ctx, "missing", strategy.ServerWins{}); !errors.Is(err, errors.ErrConflictNotFound) {
		t.Errorf("missing: err = %v, want ErrConflictNotFound", err)
	}
	if _, err := e.Resolve(ctx, "c-1", strategy.Manual{}); !errors.IsValidation(err) {
		t.Errorf("manual without value: err = %v, want validation", err)
	}

	if _, err := e.Resolve(ctx, "c-1", strategy.ServerWins{Meta: strategy.Meta{Conf: 100}}); err != nil {
		t.Fatalf("first resolve error = %v", err)
	}
	_, err := e.Resolve(ctx, "c-1", strategy.ClientWins{})
	if !errors.IsValidation(err) || !errors.Is(err, errors.ErrAlreadyResolved) {
		t.Errorf("second resolve: err = %v, want ErrAlreadyResolved validation", err)
	}

	got, _ := f.repo.GetConflict(ctx, "c-1")
	if got.Metadata.Version != 2 {
		t.Errorf("version after rejected resolve = %d, want 2", got.Metadata.Version)
	}
}

// gatedRepo blocks the first GetConflict until release is closed so a
// resolution can be held in flight.
type gatedRepo struct {
	Repository
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (g *gatedRepo) GetConflict(ctx context.Context, id string) (conflict.Conflict, error) {
	first := false
	g.once.Do(func() { first = true })
	if first {
		close(g.entered)
		<-g.release
	}
	return g.Repository.GetConflict(ctx, id)
}

func TestResolve_RejectsOverlappingCalls(t *testing.T) {
	f := newFixture(t)
	f.add(t, invoice("c-1"))
	gated := &gatedRepo{Repository: f.repo, entered: make(chan struct{}), release: make(chan struct{})}
	e := NewEngine("acme", gated, WithBus(f.bus))

	done := make(chan error, 1)
	go func() {
		_, err := e.Resolve(context.Background(), "c-1", strategy.ServerWins{Meta: strategy.Meta{Conf: 100}})
		done <- err
	}()
	<-gated.entered

	_, err := e.Resolve(context.Background(), "c-1", strategy.ClientWins{Meta: strategy.Meta{Conf: 100}})
	if !errors.IsConcurrency(err) {
		t.Fatalf("overlapping Resolve() err = %v, want ConcurrencyError", err)
	}
	if n := f.events.count(event.TypeResolutionRejected); n != 1 {
		t.Errorf("rejected events = %d, want 1", n)
	}

	close(gated.release)
	if err := <-done; err != nil {
		t.Fatalf("held Resolve() error = %v", err)
	}

	got, _ := f.repo.GetConflict(context.Background(), "c-1")
	if v := resolvedValue(t, got); v != 1500.0 {
		t.Errorf("resolved value = %v, want server value", v)
	}
	history, _ := f.repo.ListHistory(context.Background())
	if len(history) != 1 {
		t.Errorf("history entries = %d, want 1", len(history))
	}
}

func TestResolve_ConcurrentCallsCommitOnce(t *testing.T) {
	f := newFixture(t)
	f.add(t, invoice("c-1"))
	e := f.engine()

	const callers = 16
	var wg sync.WaitGroup
	var ok, rejected, resolved atomic.Int32
	start := make(chan struct{})
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := e.Resolve(context.Background(), "c-1", strategy.ServerWins{Meta: strategy.Meta{Conf: 100}})
			switch {
			case err == nil:
				ok.Add(1)
			case errors.IsConcurrency(err):
				rejected.Add(1)
			case errors.Is(err, errors.ErrAlreadyResolved):
				resolved.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	close(start)
	wg.Wait()

	if ok.Load() != 1 {
		t.Errorf("successful resolves = %d, want 1", ok.Load())
	}
	if ok.Load()+rejected.Load()+resolved.Load() != callers {
		t.Errorf("outcomes do not add up: ok=%d rejected=%d resolved=%d", ok.Load(), rejected.Load(), resolved.Load())
	}
	history, _ := f.repo.ListHistory(context.Background())
	if len(history) != 1 {
		t.Errorf("history entries = %d, want 1", len(history))
	}
}

func TestResolve_UsesSharedAdmitter(t *testing.T) {
	f := newFixture(t)
	f.add(t, invoice("c-1"))
	adm := lease.NewMemory()

	release, ok, err := adm.TryAcquire(context.Background(), "acme:c-1")
	if err != nil || !ok {
		t.Fatalf("TryAcquire() = %v, %v", ok, err)
	}
	e := f.engine(WithAdmitter(adm))
	if _, err := e.Resolve(context.Background(), "c-1", strategy.ServerWins{}); !errors.IsConcurrency(err) {
		t.Errorf("Resolve() with held lease err = %v, want ConcurrencyError", err)
	}
	_ = release()
	if _, err := e.Resolve(context.Background(), "c-1", strategy.ServerWins{}); err != nil {
		t.Errorf("Resolve() after release err = %v", err)
	}
	if adm.Len() != 0 {
		t.Errorf("admitter holds %d leases after resolve, want 0", adm.Len())
	}
}

func TestResolve_WorkflowApproval(t *testing.T) {
	f := newFixture(t)
	f.add(t, invoice("c-1"))
	e := f.engine()
	ctx := context.Background()

	wf := approval.Workflow{
		Name: "finance sign-off",
		Steps: []approval.Step{
			{ApproverRole: "manager"},
			{ApproverRole: "controller"},
		},
	}
	res, err := e.Resolve(ctx, "c-1", strategy.WorkflowApproval{Meta: strategy.Meta{Conf: 100}, Workflow: wf})
	if err != nil {
		t.Fatalf("Resolve(workflow_approval) error = %v", err)
	}
	if !res.Pending || res.Workflow == nil {
		t.Fatalf("result = %+v, want pending with workflow", res)
	}
	if res.Conflict.Resolved {
		t.Error("conflict should stay unresolved while awaiting approval")
	}
	wfID := res.Workflow.ID

	if _, err := e.Resolve(ctx, "c-1", strategy.ServerWins{}); !errors.Is(err, errors.ErrAwaitingApproval) {
		t.Errorf("direct resolve during approval err = %v, want ErrAwaitingApproval", err)
	}

	if _, err := f.workflows.Approve(ctx, wfID, "step-1", "ok"); err != nil {
		t.Fatalf("Approve(step-1) error = %v", err)
	}
	if _, err := e.Resolve(ctx, "c-1", strategy.ServerWins{}); !errors.Is(err, errors.ErrAwaitingApproval) {
		t.Errorf("resolve with one step left err = %v, want ErrAwaitingApproval", err)
	}
	done, err := f.workflows.Approve(ctx, wfID, "step-2", "ok")
	if err != nil {
		t.Fatalf("Approve(step-2) error = %v", err)
	}
	if done.Status() != approval.StatusComplete {
		t.Fatalf("workflow status = %q, want complete", done.Status())
	}

	out, err := e.Resolve(ctx, "c-1", strategy.ServerWins{Meta: strategy.Meta{Conf: 100}})
	if err != nil {
		t.Fatalf("resolve after approval error = %v", err)
	}
	if !out.Conflict.Resolved {
		t.Error("conflict should be resolved after approval")
	}
}

func TestResolve_WorkflowRejectedBlocks(t *testing.T) {
	f := newFixture(t)
	f.add(t, invoice("c-1"))
	e := f.engine()
	ctx := context.Background()

	res, err := e.Resolve(ctx, "c-1", strategy.WorkflowApproval{Workflow: approval.Workflow{
		Steps: []approval.Step{{ApproverRole: "manager"}},
	}})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if _, err := f.workflows.Reject(ctx, res.Workflow.ID, "step-1", "numbers look wrong"); err != nil {
		t.Fatalf("Reject() error = %v", err)
	}
	if _, err := e.Resolve(ctx, "c-1", strategy.ServerWins{}); !errors.Is(err, errors.ErrWorkflowBlocked) {
		t.Errorf("resolve after rejection err = %v, want ErrWorkflowBlocked", err)
	}
}

func twoStepWorkflow() approval.Workflow {
	return approval.Workflow{
		Name:  "finance sign-off",
		Steps: []approval.Step{{ApproverRole: "manager"}, {ApproverRole: "controller"}},
	}
}

func TestResolve_WorkflowApprovalRefusedStoresNothing(t *testing.T) {
	f := newFixture(t)
	f.add(t, invoice("c-1"))
	e := f.engine()
	ctx := context.Background()

	first, err := e.Resolve(ctx, "c-1", strategy.WorkflowApproval{Workflow: twoStepWorkflow()})
	if err != nil {
		t.Fatalf("first Resolve() error = %v", err)
	}
	if _, err := e.Resolve(ctx, "c-1", strategy.WorkflowApproval{Workflow: twoStepWorkflow()}); !errors.IsValidation(err) {
		t.Fatalf("second Resolve() err = %v, want ValidationError", err)
	}

	all, err := f.repo.ListWorkflows(ctx)
	if err != nil {
		t.Fatalf("ListWorkflows() error = %v", err)
	}
	if len(all) != 1 || all[0].ID != first.Workflow.ID {
		t.Errorf("stored workflows = %d, want only %s", len(all), first.Workflow.ID)
	}
}

func TestResolve_WorkflowApprovalCommitsOnceApproved(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  any
	}{
		{"client value", nil, 1550.0},
		{"explicit value", 1525, 1525.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.add(t, invoice("c-1"))
			e := f.engine()
			ctx := context.Background()
			s := strategy.WorkflowApproval{Meta: strategy.Meta{Conf: 95}, Workflow: twoStepWorkflow(), Value: tt.value}

			res, err := e.Resolve(ctx, "c-1", s)
			if err != nil || !res.Pending {
				t.Fatalf("Resolve() = %+v, %v; want pending", res, err)
			}
			for _, step := range []string{"step-1", "step-2"} {
				if _, err := f.workflows.Approve(ctx, res.Workflow.ID, step, "ok"); err != nil {
					t.Fatalf("Approve(%s) error = %v", step, err)
				}
			}

			out, err := e.Resolve(ctx, "c-1", s)
			if err != nil {
				t.Fatalf("Resolve() after approval error = %v", err)
			}
			if out.Pending || !out.Conflict.Resolved {
				t.Fatalf("result = %+v, want resolved", out)
			}
			if v := resolvedValue(t, out.Conflict); v != tt.want {
				t.Errorf("resolved value = %v, want %v", v, tt.want)
			}
			if out.Conflict.Metadata.ResolutionStrategy != string(strategy.NameWorkflowApproval) {
				t.Errorf("strategy = %q", out.Conflict.Metadata.ResolutionStrategy)
			}
			all, _ := f.repo.ListWorkflows(ctx)
			if len(all) != 1 {
				t.Errorf("stored workflows = %d, want 1", len(all))
			}
			history, _ := f.repo.ListHistory(ctx)
			if len(history) != 1 || history[0].StrategyUsed != string(strategy.NameWorkflowApproval) || history[0].Confidence != 95 {
				t.Errorf("history = %+v", history)
			}
		})
	}
}

// heldAdvisor blocks inside Suggest until release is closed.
type heldAdvisor struct {
	entered chan struct{}
	release chan struct{}
}

func (a heldAdvisor) Suggest(context.Context, conflict.Conflict) suggest.Suggestion {
	close(a.entered)
	<-a.release
	return suggest.Suggestion{Strategy: strategy.NameClientWins, Confidence: 70}
}

func TestResolve_BindDuringResolutionRejected(t *testing.T) {
	f := newFixture(t)
	f.add(t, invoice("c-1"))
	adv := heldAdvisor{entered: make(chan struct{}), release: make(chan struct{})}
	e := f.engine(WithAdvisor(adv))
	ctx := context.Background()

	wf, err := f.workflows.Create(ctx, twoStepWorkflow())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := e.Resolve(ctx, "c-1", strategy.AIAssisted{})
		done <- err
	}()
	<-adv.entered

	if _, err := e.Bind(ctx, "c-1", wf.ID); !errors.IsConcurrency(err) {
		t.Errorf("Bind() during resolution err = %v, want ConcurrencyError", err)
	}
	close(adv.release)
	if err := <-done; err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	got, _ := f.workflows.Get(ctx, wf.ID)
	if got.ConflictID != "" {
		t.Errorf("workflow bound to %q, want unbound", got.ConflictID)
	}
	if _, err := e.Bind(ctx, "c-1", wf.ID); !errors.Is(err, errors.ErrAlreadyResolved) {
		t.Errorf("Bind() after resolution err = %v, want ErrAlreadyResolved", err)
	}
}

func TestResolve_BindGatesResolution(t *testing.T) {
	f := newFixture(t)
	f.add(t, invoice("c-1"))
	e := f.engine()
	ctx := context.Background()

	wf, err := f.workflows.Create(ctx, twoStepWorkflow())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := e.Bind(ctx, "missing", wf.ID); !errors.Is(err, errors.ErrConflictNotFound) {
		t.Errorf("Bind(missing) err = %v, want ErrConflictNotFound", err)
	}
	bound, err := e.Bind(ctx, "c-1", wf.ID)
	if err != nil {
		t.Fatalf("Bind() error = %v", err)
	}
	if bound.ConflictID != "c-1" {
		t.Errorf("ConflictID = %q", bound.ConflictID)
	}
	if _, err := e.Resolve(ctx, "c-1", strategy.ServerWins{}); !errors.Is(err, errors.ErrAwaitingApproval) {
		t.Errorf("Resolve() after Bind err = %v, want ErrAwaitingApproval", err)
	}
}

func TestResolve_WorkflowApprovalWithoutEngine(t *testing.T) {
	f := newFixture(t)
	f.add(t, invoice("c-1"))
	e := NewEngine("acme", f.repo)

	_, err := e.Resolve(context.Background(), "c-1", strategy.WorkflowApproval{Workflow: approval.Workflow{
		Steps: []approval.Step{{ApproverRole: "manager"}},
	}})
	if !errors.IsValidation(err) {
		t.Errorf("err = %v, want validation", err)
	}
}

type fixedAdvisor suggest.Suggestion

func (a fixedAdvisor) Suggest(context.Context, conflict.Conflict) suggest.Suggestion {
	return suggest.Suggestion(a)
}

func TestResolve_AIAssisted(t *testing.T) {
	tests := []struct {
		name           string
		suggestion     suggest.Suggestion
		want           any
		wantConfidence int
	}{
		{
			name:           "client suggestion",
			suggestion:     suggest.Suggestion{Strategy: strategy.NameClientWins, Confidence: 85},
			want:           1550.0,
			wantConfidence: 85,
		},
		{
			name:           "explicit value",
			suggestion:     suggest.Suggestion{Strategy: strategy.NameManual, Confidence: 70, Value: 1530},
			want:           1530.0,
			wantConfidence: 70,
		},
		{
			name:           "degraded keeps server",
			suggestion:     suggest.Degraded("offline"),
			want:           1500.0,
			wantConfidence: suggest.LowConfidence,
		},
		{
			name:           "manual without value keeps server",
			suggestion:     suggest.Suggestion{Strategy: strategy.NameManual, Confidence: 40},
			want:           1500.0,
			wantConfidence: 40,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.add(t, invoice("c-1"))
			e := f.engine(WithAdvisor(fixedAdvisor(tt.suggestion)))

			res, err := e.Resolve(context.Background(), "c-1", strategy.AIAssisted{})
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			if v := resolvedValue(t, res.Conflict); !conflict.Equal(v, tt.want) {
				t.Errorf("resolved value = %v, want %v", v, tt.want)
			}
			if res.Conflict.Metadata.ResolutionConfidence != tt.wantConfidence {
				t.Errorf("confidence = %d, want %d", res.Conflict.Metadata.ResolutionConfidence, tt.wantConfidence)
			}
			if res.Suggestion == nil {
				t.Error("result should carry the suggestion")
			}
		})
	}
}

func TestResolve_VersionCountsResolution(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		f.add(t, invoice(fmt.Sprintf("c-%d", i)))
	}
	e := f.engine()
	for i := 0; i < 5; i++ {
		res, err := e.Resolve(ctx, fmt.Sprintf("c-%d", i), strategy.ServerWins{})
		if err != nil {
			t.Fatalf("Resolve(c-%d) error = %v", i, err)
		}
		if res.Conflict.Metadata.Version != 2 {
			t.Errorf("c-%d version = %d, want 2", i, res.Conflict.Metadata.Version)
		}
	}
}
