// Package suggest provides advisory resolution suggestions for conflicts.
//
// A [Provider] may be remote and unreliable. Callers in the resolution path
// go through an [Advisor], which bounds each call with a timeout and turns
// every failure into the degraded {manual, low} suggestion.
package suggest

import (
	"context"
	"fmt"

	"github.com/Iron-Ham/conflux/internal/config"
	"github.com/Iron-Ham/conflux/internal/conflict"
	"github.com/Iron-Ham/conflux/internal/strategy"
)

// LowConfidence is the confidence reported by degraded suggestions.
const LowConfidence = 20

// Suggestion is a provider's advice for one conflict.
type Suggestion struct {
	Strategy   strategy.Name `json:"strategy"`
	Confidence int           `json:"confidence"`
	Reasoning  string        `json:"reasoning"`
	// Value is an explicit resolved value proposed by the provider.
	Value any `json:"value,omitempty"`
	// Degraded is set when the advisor substituted the fallback.
	Degraded bool `json:"degraded,omitempty"`
}

// Degraded returns the suggestion used when no provider answer is usable.
func Degraded(reason string) Suggestion {
	return Suggestion{
		Strategy:   strategy.NameManual,
		Confidence: LowConfidence,
		Reasoning:  reason,
		Degraded:   true,
	}
}

// Provider produces a suggestion for a conflict.
type Provider interface {
	Name() string
	Suggest(ctx context.Context, c conflict.Conflict) (Suggestion, error)
}

// Nop is the provider used when suggestions are disabled.
type Nop struct{}

func (Nop) Name() string { return "none" }

// Suggest always returns the degraded suggestion.
func (Nop) Suggest(context.Context, conflict.Conflict) (Suggestion, error) {
	return Degraded("no suggestion provider configured"), nil
}

// New builds the provider named in cfg.
func New(cfg config.SuggestConfig, opts ...HTTPOption) (Provider, error) {
	switch cfg.Provider {
	case "", "none":
		return Nop{}, nil
	case "heuristic":
		return Heuristic{}, nil
	case "http":
		if cfg.Model != "" {
			opts = append([]HTTPOption{WithModel(cfg.Model)}, opts...)
		}
		p, err := NewHTTPProvider(cfg.Endpoint, cfg.APIKeyEnv, opts...)
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown suggestion provider %q", cfg.Provider)
	}
}
