package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Iron-Ham/conflux/internal/approval"
	"github.com/Iron-Ham/conflux/internal/config"
	"github.com/Iron-Ham/conflux/internal/conflict"
	"github.com/Iron-Ham/conflux/internal/coordination"
	"github.com/Iron-Ham/conflux/internal/event"
	"github.com/Iron-Ham/conflux/internal/lease"
	"github.com/Iron-Ham/conflux/internal/logging"
	"github.com/Iron-Ham/conflux/internal/notify"
	"github.com/Iron-Ham/conflux/internal/store"
	"github.com/Iron-Ham/conflux/internal/strategy"
	"github.com/Iron-Ham/conflux/internal/suggest"
)

// Manager owns the coordinators of every tenant in the process.
type Manager struct {
	cfg    *config.Config
	logger *logging.Logger
	now    func() time.Time

	// Shared backends, opened on first use.
	kv         store.Store
	ownsStore  bool
	admitter   lease.Admitter
	ownsLease  bool
	advisor    *suggest.Advisor
	mergeRules []strategy.MergeRule
	templates  map[string]approval.Workflow
	rules      conflict.Rules

	coordinators map[string]*coordination.Coordinator
	initialized  bool
	mu           sync.Mutex
}

// Option configures a Manager.
type Option func(*Manager)

// WithStore injects a store instead of opening cfg.Store. The Manager does
// not close injected stores.
func WithStore(s store.Store) Option {
	return func(m *Manager) { m.kv = s }
}

// WithAdmitter injects the admission guard instead of opening
// cfg.Resolution.Lease. The Manager does not close injected admitters.
func WithAdmitter(a lease.Admitter) Option {
	return func(m *Manager) { m.admitter = a }
}

// WithLogger sets the base logger.
func WithLogger(l *logging.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithClock overrides time.Now for every coordinator.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// New creates a Manager for cfg. Backends are opened lazily by the first
// Coordinator call.
func New(cfg *config.Config, opts ...Option) *Manager {
	if cfg == nil {
		cfg = config.Default()
	}
	m := &Manager{
		cfg:          cfg,
		logger:       logging.NopLogger(),
		coordinators: make(map[string]*coordination.Coordinator),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Config returns the configuration the Manager was built with.
func (m *Manager) Config() *config.Config { return m.cfg }

// Coordinator returns the coordinator for tenantID, creating it on first
// use. An empty tenantID selects cfg.Tenant.Default.
func (m *Manager) Coordinator(ctx context.Context, tenantID string) (*coordination.Coordinator, error) {
	if tenantID == "" {
		tenantID = m.cfg.Tenant.Default
	}
	if !config.ValidTenantID(tenantID) {
		return nil, fmt.Errorf("invalid tenant id %q", tenantID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if c, ok := m.coordinators[tenantID]; ok {
		return c, nil
	}
	if err := m.initLocked(ctx); err != nil {
		return nil, err
	}

	bus := event.NewBus(event.WithBusLogger(m.logger))
	tenantLog := m.logger.WithTenant(tenantID)
	sink, err := notify.New(m.cfg.Notify.Sink, tenantLog, bus, tenantID)
	if err != nil {
		return nil, err
	}

	opts := []coordination.Option{
		coordination.WithLogger(m.logger),
		coordination.WithAdvisor(m.advisor),
		coordination.WithAdmitter(m.admitter),
		coordination.WithSink(sink),
		coordination.WithDetectionRules(m.rules),
		coordination.WithMergeRules(m.mergeRules),
		coordination.WithMaxAges(m.cfg.Escalation.MaxAges()),
		coordination.WithSweepInterval(m.cfg.Escalation.SweepInterval()),
		coordination.WithBulkConcurrency(m.cfg.Resolution.BulkMaxConcurrency),
		coordination.WithTemplates(m.templates),
	}
	if m.now != nil {
		opts = append(opts, coordination.WithClock(m.now))
	}
	c, err := coordination.NewCoordinator(coordination.Config{TenantID: tenantID, Store: m.kv, Bus: bus}, opts...)
	if err != nil {
		return nil, err
	}
	m.coordinators[tenantID] = c
	m.logger.Info("tenant coordinator created", "tenant_id", tenantID)
	return c, nil
}

// initLocked opens the shared backends once. m.mu must be held.
func (m *Manager) initLocked(ctx context.Context) error {
	if m.initialized {
		return nil
	}

	rules, err := strategy.RulesFromMap(m.cfg.Resolution.MergeRules)
	if err != nil {
		return fmt.Errorf("resolution.merge_rules: %w", err)
	}
	templates := map[string]approval.Workflow{}
	if dir := m.cfg.Approval.TemplatesDir; dir != "" {
		if templates, err = approval.LoadTemplates(dir); err != nil {
			return fmt.Errorf("load workflow templates: %w", err)
		}
	}
	provider, err := suggest.New(m.cfg.Suggest)
	if err != nil {
		return err
	}

	if m.kv == nil {
		kv, err := store.Open(ctx, m.cfg.Store)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		m.kv, m.ownsStore = kv, true
	}
	if m.admitter == nil {
		adm, err := lease.Open(ctx, lease.Options{
			Kind: m.cfg.Resolution.Lease,
			Dir:  m.cfg.Resolution.ResolveLeaseDir(),
			DSN:  m.cfg.Store.ResolveDSN(),
		})
		if err != nil {
			return fmt.Errorf("open lease: %w", err)
		}
		m.admitter, m.ownsLease = adm, true
	}

	m.mergeRules = rules
	m.templates = templates
	m.rules = DetectionRules(m.cfg.Detection)
	m.advisor = suggest.NewAdvisor(provider,
		suggest.WithTimeout(m.cfg.Resolution.SuggestionTimeout()),
		suggest.WithLogger(m.logger))
	m.initialized = true
	return nil
}

// Tenants returns the tenants with a live coordinator, sorted.
func (m *Manager) Tenants() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.coordinators))
	for id := range m.coordinators {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Start starts the coordinator of every live tenant.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, c := range m.coordinators {
		if c.Running() {
			continue
		}
		if err := c.Start(ctx); err != nil {
			return fmt.Errorf("start tenant %s: %w", id, err)
		}
	}
	return nil
}

// Close stops every coordinator and releases the backends the Manager
// opened itself.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	for _, c := range m.coordinators {
		if err := c.Stop(); err != nil {
			errs = append(errs, err)
		}
	}
	m.coordinators = make(map[string]*coordination.Coordinator)

	if m.ownsLease && m.admitter != nil {
		if err := m.admitter.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close lease: %w", err))
		}
		m.admitter, m.ownsLease = nil, false
	}
	if m.ownsStore && m.kv != nil {
		if err := m.kv.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close store: %w", err))
		}
		m.kv, m.ownsStore = nil, false
	}
	m.initialized = false
	return errors.Join(errs...)
}

// DetectionRules converts detection config into classification rules.
// Empty sections fall back to conflict.DefaultRules.
func DetectionRules(cfg config.DetectionConfig) conflict.Rules {
	r := conflict.DefaultRules()
	r.ConcurrentWindow = cfg.ConcurrentWindow()
	if len(cfg.ModuleImpact) > 0 {
		r.ModuleImpact = make(map[string]conflict.Impact, len(cfg.ModuleImpact))
		for module, impact := range cfg.ModuleImpact {
			r.ModuleImpact[module] = conflict.Impact(strings.ToLower(impact))
		}
	}
	if len(cfg.RevenueFields) > 0 {
		r.RevenueFields = append([]string(nil), cfg.RevenueFields...)
	}
	if len(cfg.PermissionFields) > 0 {
		r.PermissionFields = append([]string(nil), cfg.PermissionFields...)
	}
	return r
}
