package suggest

import (
	"context"

	"github.com/Iron-Ham/conflux/internal/conflict"
	"github.com/Iron-Ham/conflux/internal/strategy"
)

// Heuristic suggests a strategy from the conflict's shape alone, without any
// remote call.
type Heuristic struct{}

func (Heuristic) Name() string { return "heuristic" }

// Suggest inspects type, impact, and value kinds. It never fails.
func (Heuristic) Suggest(_ context.Context, c conflict.Conflict) (Suggestion, error) {
	server := conflict.Normalize(c.ServerValue)
	client := conflict.Normalize(c.ClientValue)
	_, serverArr := server.([]any)
	_, clientArr := client.([]any)

	switch {
	case c.Type == conflict.TypePermissionConflict:
		return Suggestion{Strategy: strategy.NameManual, Confidence: 40,
			Reasoning: "permission changes need a human decision"}, nil

	case serverArr && clientArr:
		return Suggestion{Strategy: strategy.NameMerge, Confidence: 75,
			Reasoning: "both sides are lists; combining keeps every entry"}, nil

	case c.Type == conflict.TypeVersionConflict:
		return Suggestion{Strategy: strategy.NameServerWins, Confidence: 70,
			Reasoning: "client edited a stale version"}, nil

	case c.Type == conflict.TypeConcurrentEdit:
		s, cl := c.Metadata.ServerModifiedAt, c.Metadata.ClientModifiedAt
		if s != nil && cl != nil && cl.After(*s) {
			return Suggestion{Strategy: strategy.NameClientWins, Confidence: 60,
				Reasoning: "client edit is the most recent"}, nil
		}
		return Suggestion{Strategy: strategy.NameServerWins, Confidence: 60,
			Reasoning: "server edit is the most recent"}, nil

	case c.Impact == conflict.ImpactRevenue || c.Impact == conflict.ImpactCompliance:
		return Suggestion{Strategy: strategy.NameServerWins, Confidence: 55,
			Reasoning: "server record is authoritative for " + string(c.Impact) + " data"}, nil

	default:
		return Suggestion{Strategy: strategy.NameServerWins, Confidence: 50,
			Reasoning: "no signal favours the client"}, nil
	}
}
