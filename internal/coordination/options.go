package coordination

import (
	"time"

	"github.com/Iron-Ham/conflux/internal/approval"
	"github.com/Iron-Ham/conflux/internal/conflict"
	"github.com/Iron-Ham/conflux/internal/lease"
	"github.com/Iron-Ham/conflux/internal/logging"
	"github.com/Iron-Ham/conflux/internal/notify"
	"github.com/Iron-Ham/conflux/internal/strategy"
	"github.com/Iron-Ham/conflux/internal/suggest"
)

// coordinatorConfig holds optional configuration for a Coordinator.
type coordinatorConfig struct {
	logger          *logging.Logger
	advisor         *suggest.Advisor
	admitter        lease.Admitter
	sink            notify.Sink
	rules           *conflict.Rules
	mergeRules      []strategy.MergeRule
	maxAges         map[string]time.Duration
	sweepInterval   time.Duration
	bulkConcurrency int
	templates       map[string]approval.Workflow
	now             func() time.Time
	newID           func() string
}

// Option configures a Coordinator.
type Option func(*coordinatorConfig)

// WithLogger sets the base logger. Components derive their own attributes.
func WithLogger(l *logging.Logger) Option {
	return func(c *coordinatorConfig) { c.logger = l }
}

// WithAdvisor sets the suggestion advisor. If nil, suggestions degrade.
func WithAdvisor(a *suggest.Advisor) Option {
	return func(c *coordinatorConfig) { c.advisor = a }
}

// WithAdmitter sets the resolution admission guard. Admitters may be shared
// between tenants since keys carry the tenant id.
func WithAdmitter(a lease.Admitter) Option {
	return func(c *coordinatorConfig) { c.admitter = a }
}

// WithSink sets the notification sink.
func WithSink(s notify.Sink) Option {
	return func(c *coordinatorConfig) { c.sink = s }
}

// WithDetectionRules overrides conflict.DefaultRules.
func WithDetectionRules(r conflict.Rules) Option {
	return func(c *coordinatorConfig) { c.rules = &r }
}

// WithMergeRules sets the default merge rules.
func WithMergeRules(rules []strategy.MergeRule) Option {
	return func(c *coordinatorConfig) { c.mergeRules = rules }
}

// WithMaxAges sets the per-impact escalation thresholds.
func WithMaxAges(ages map[string]time.Duration) Option {
	return func(c *coordinatorConfig) { c.maxAges = ages }
}

// WithSweepInterval sets how often Start sweeps escalations. Zero disables
// the background sweep.
func WithSweepInterval(d time.Duration) Option {
	return func(c *coordinatorConfig) { c.sweepInterval = d }
}

// WithBulkConcurrency caps concurrent resolutions per bulk call.
func WithBulkConcurrency(n int) Option {
	return func(c *coordinatorConfig) { c.bulkConcurrency = n }
}

// WithTemplates registers named workflow templates.
func WithTemplates(t map[string]approval.Workflow) Option {
	return func(c *coordinatorConfig) { c.templates = t }
}

// WithClock overrides time.Now in every component.
func WithClock(now func() time.Time) Option {
	return func(c *coordinatorConfig) { c.now = now }
}

// WithIDGenerator overrides uuid generation for conflicts and workflows.
func WithIDGenerator(gen func() string) Option {
	return func(c *coordinatorConfig) { c.newID = gen }
}
