package conflict

import (
	"fmt"
	"time"
)

// Rules drive deterministic classification. Lookups on module and field
// names are case-insensitive.
type Rules struct {
	// ConcurrentWindow is the maximum gap between server and client
	// modification times for a concurrent_edit. Zero disables the rule.
	ConcurrentWindow time.Duration
	// ModuleImpact maps module names to business impact.
	ModuleImpact map[string]Impact
	// RevenueFields always carry revenue impact regardless of module.
	RevenueFields []string
	// PermissionFields make any divergence a permission_conflict.
	PermissionFields []string
}

// DefaultRules returns the classification rules used when none are configured.
func DefaultRules() Rules {
	return Rules{
		ConcurrentWindow: 5 * time.Second,
		ModuleImpact: map[string]Impact{
			"finance":    ImpactRevenue,
			"billing":    ImpactRevenue,
			"sales":      ImpactRevenue,
			"compliance": ImpactCompliance,
			"audit":      ImpactCompliance,
			"legal":      ImpactCompliance,
			"hr":         ImpactCompliance,
			"inventory":  ImpactOperations,
			"operations": ImpactOperations,
			"logistics":  ImpactOperations,
			"reports":    ImpactReporting,
			"analytics":  ImpactReporting,
		},
		RevenueFields:    []string{"amount", "price", "total", "discount", "credit_limit"},
		PermissionFields: []string{"role", "permissions", "access_level", "owner"},
	}
}

// Classification is the outcome of applying Rules to a change.
type Classification struct {
	Type     Type
	Impact   Impact
	Priority Priority
	Reasons  []string
}

func contains(list []string, name string) bool {
	n := normalizeName(name)
	for _, s := range list {
		if normalizeName(s) == n {
			return true
		}
	}
	return false
}

// Classify assigns exactly one type, impact, and priority to ev. The same
// event and rules always produce the same classification.
func (r Rules) Classify(ev ChangeEvent) Classification {
	var c Classification

	switch {
	case ev.Operation == OpPermission:
		c.Type = TypePermissionConflict
		c.Reasons = append(c.Reasons, "type: operation is permission")
	case contains(r.PermissionFields, ev.Field):
		c.Type = TypePermissionConflict
		c.Reasons = append(c.Reasons, fmt.Sprintf("type: field %q is a permission field", ev.Field))
	case ev.ServerVersion > 0 && ev.ClientVersion > 0 && ev.ClientVersion < ev.ServerVersion:
		c.Type = TypeVersionConflict
		c.Reasons = append(c.Reasons, fmt.Sprintf("type: client version %d behind server version %d", ev.ClientVersion, ev.ServerVersion))
	case r.ConcurrentWindow > 0 && ev.ServerModifiedAt != nil && ev.ClientModifiedAt != nil &&
		absDuration(ev.ServerModifiedAt.Sub(*ev.ClientModifiedAt)) <= r.ConcurrentWindow:
		c.Type = TypeConcurrentEdit
		c.Reasons = append(c.Reasons, fmt.Sprintf("type: edits within %s", r.ConcurrentWindow))
	default:
		c.Type = TypeDataMismatch
		c.Reasons = append(c.Reasons, "type: default data_mismatch")
	}

	c.Impact = ImpactNone
	if contains(r.RevenueFields, ev.Field) {
		c.Impact = ImpactRevenue
		c.Reasons = append(c.Reasons, fmt.Sprintf("impact: field %q is a revenue field", ev.Field))
	} else if impact, ok := r.lookupModule(ev.Module); ok {
		c.Impact = impact
		c.Reasons = append(c.Reasons, fmt.Sprintf("impact: module %q maps to %s", ev.Module, impact))
	} else {
		c.Reasons = append(c.Reasons, "impact: no rule matched")
	}

	switch c.Impact {
	case ImpactRevenue, ImpactCompliance:
		c.Priority = PriorityHigh
	case ImpactOperations:
		c.Priority = PriorityMedium
	default:
		c.Priority = PriorityLow
	}
	c.Reasons = append(c.Reasons, fmt.Sprintf("priority: %s from %s impact", c.Priority, c.Impact))

	if c.Type == TypePermissionConflict {
		floor := PriorityHigh
		if c.Impact == ImpactCompliance {
			floor = PriorityCritical
		}
		if raised := c.Priority.AtLeast(floor); raised != c.Priority {
			c.Priority = raised
			c.Reasons = append(c.Reasons, fmt.Sprintf("priority: raised to %s for permission conflict", raised))
		}
	}

	return c
}

func (r Rules) lookupModule(module string) (Impact, bool) {
	n := normalizeName(module)
	for k, v := range r.ModuleImpact {
		if normalizeName(k) == n && v.Valid() {
			return v, true
		}
	}
	return "", false
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
