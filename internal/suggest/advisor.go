package suggest

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/Iron-Ham/conflux/internal/conflict"
	"github.com/Iron-Ham/conflux/internal/errors"
	"github.com/Iron-Ham/conflux/internal/logging"
	"github.com/Iron-Ham/conflux/internal/strategy"
)

// DefaultTimeout bounds provider calls when the advisor is built without one.
const DefaultTimeout = 2 * time.Second

// Advisor wraps a Provider with a timeout and a degraded fallback.
type Advisor struct {
	provider Provider
	timeout  time.Duration
	logger   *logging.Logger
}

// AdvisorOption configures an Advisor.
type AdvisorOption func(*Advisor)

// WithTimeout sets the per-call bound.
func WithTimeout(d time.Duration) AdvisorOption {
	return func(a *Advisor) {
		if d > 0 {
			a.timeout = d
		}
	}
}

// WithLogger sets the advisor logger.
func WithLogger(l *logging.Logger) AdvisorOption {
	return func(a *Advisor) {
		if l != nil {
			a.logger = l
		}
	}
}

// NewAdvisor wraps p. A nil p behaves like Nop.
func NewAdvisor(p Provider, opts ...AdvisorOption) *Advisor {
	if p == nil {
		p = Nop{}
	}
	a := &Advisor{provider: p, timeout: DefaultTimeout, logger: logging.NopLogger()}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = a.logger.WithComponent("suggest")
	return a
}

// Provider returns the wrapped provider.
func (a *Advisor) Provider() Provider { return a.provider }

// Timeout returns the per-call bound.
func (a *Advisor) Timeout() time.Duration { return a.timeout }

type result struct {
	s   Suggestion
	err error
}

// Suggest asks the provider about c. It returns within the advisor timeout
// even if the provider ignores its context, and it never fails. Suggestions
// naming an unknown strategy or carrying a confidence outside 0-100 are
// replaced by the degraded fallback.
func (a *Advisor) Suggest(ctx context.Context, c conflict.Conflict) Suggestion {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	done := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: fmt.Errorf("provider panicked: %v", r)}
			}
		}()
		s, err := a.provider.Suggest(ctx, c)
		done <- result{s: s, err: err}
	}()

	log := a.logger.WithConflict(c.ID).With("provider", a.provider.Name())
	select {
	case r := <-done:
		if r.err != nil {
			log.Warn("suggestion provider failed, using fallback", "error", r.err.Error())
			return Degraded("suggestion provider failed: " + r.err.Error())
		}
		if r.s.Strategy == "" {
			log.Warn("suggestion provider returned no strategy, using fallback")
			return Degraded("suggestion provider returned no strategy")
		}
		if !slices.Contains(strategy.Names(), r.s.Strategy) {
			log.Warn("suggestion provider returned unknown strategy, using fallback", "strategy", string(r.s.Strategy))
			return Degraded(fmt.Sprintf("suggestion provider returned unknown strategy %q", r.s.Strategy))
		}
		if r.s.Confidence < 0 || r.s.Confidence > 100 {
			log.Warn("suggestion confidence out of range, using fallback", "confidence", r.s.Confidence)
			return Degraded(fmt.Sprintf("suggestion confidence %d out of range", r.s.Confidence))
		}
		log.Debug("suggestion received", "strategy", string(r.s.Strategy), "confidence", r.s.Confidence)
		return r.s
	case <-ctx.Done():
		err := errors.NewTimeoutError("suggestion request", a.timeout)
		log.Warn("suggestion provider timed out, using fallback", "timeout_ms", a.timeout.Milliseconds())
		return Degraded(err.Error())
	}
}
