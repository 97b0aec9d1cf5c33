package repository

import "github.com/Iron-Ham/conflux/internal/conflict"

// Filter selects conflicts for listing. Zero fields match everything.
type Filter struct {
	Module   string
	Priority conflict.Priority
	Impact   conflict.Impact
	Type     conflict.Type
	Resolved *bool
}

// Unresolved is a Filter matching open conflicts only.
func Unresolved() Filter {
	f := false
	return Filter{Resolved: &f}
}

// Match reports whether c passes the filter.
func (f Filter) Match(c conflict.Conflict) bool {
	switch {
	case f.Module != "" && f.Module != c.Module:
		return false
	case f.Priority != "" && f.Priority != c.Priority:
		return false
	case f.Impact != "" && f.Impact != c.Impact:
		return false
	case f.Type != "" && f.Type != c.Type:
		return false
	case f.Resolved != nil && *f.Resolved != c.Resolved:
		return false
	}
	return true
}
