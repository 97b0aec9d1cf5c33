package conflict

import (
	"encoding/json"
	"time"
)

// Priority is the urgency of a conflict. It is only ever raised.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

var priorityOrder = []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical}

// Rank returns 0 for low through 3 for critical, or -1 for unknown values.
func (p Priority) Rank() int {
	for i, q := range priorityOrder {
		if q == p {
			return i
		}
	}
	return -1
}

// Next returns the priority one level above p. Critical returns itself.
func (p Priority) Next() Priority {
	r := p.Rank()
	if r < 0 || r == len(priorityOrder)-1 {
		return p
	}
	return priorityOrder[r+1]
}

// Valid reports whether p is one of the defined priorities.
func (p Priority) Valid() bool { return p.Rank() >= 0 }

// AtLeast returns the higher of p and floor.
func (p Priority) AtLeast(floor Priority) Priority {
	if floor.Rank() > p.Rank() {
		return floor
	}
	return p
}

// Priorities returns all priorities in ascending order.
func Priorities() []Priority { return append([]Priority(nil), priorityOrder...) }

// Type classifies how the divergence arose.
type Type string

const (
	TypeDataMismatch       Type = "data_mismatch"
	TypeConcurrentEdit     Type = "concurrent_edit"
	TypeVersionConflict    Type = "version_conflict"
	TypePermissionConflict Type = "permission_conflict"
)

// Types returns all conflict types.
func Types() []Type {
	return []Type{TypeDataMismatch, TypeConcurrentEdit, TypeVersionConflict, TypePermissionConflict}
}

// Impact classifies which business function a conflict threatens.
type Impact string

const (
	ImpactRevenue    Impact = "revenue"
	ImpactCompliance Impact = "compliance"
	ImpactOperations Impact = "operations"
	ImpactReporting  Impact = "reporting"
	ImpactNone       Impact = "none"
)

// Impacts returns all business impacts.
func Impacts() []Impact {
	return []Impact{ImpactRevenue, ImpactCompliance, ImpactOperations, ImpactReporting, ImpactNone}
}

// Valid reports whether i is one of the defined impacts.
func (i Impact) Valid() bool {
	for _, v := range Impacts() {
		if v == i {
			return true
		}
	}
	return false
}

// Operation is the kind of change that produced a conflict.
type Operation string

const (
	OpCreate     Operation = "create"
	OpUpdate     Operation = "update"
	OpDelete     Operation = "delete"
	OpPermission Operation = "permission"
)

// Valid reports whether o is a known operation.
func (o Operation) Valid() bool {
	switch o {
	case OpCreate, OpUpdate, OpDelete, OpPermission:
		return true
	}
	return false
}

// Conflict is a detected divergence between the server-held and
// client-submitted value of one field of one entity.
type Conflict struct {
	ID            string    `json:"id"`
	TenantID      string    `json:"tenantId"`
	Module        string    `json:"module"`
	EntityType    string    `json:"entityType"`
	EntityID      string    `json:"entityId"`
	Field         string    `json:"field"`
	ServerValue   any       `json:"serverValue"`
	ClientValue   any       `json:"clientValue"`
	DetectedAt    time.Time `json:"detectedAt"`
	Resolved      bool      `json:"resolved"`
	Priority      Priority  `json:"priority"`
	Type          Type      `json:"conflictType"`
	Impact        Impact    `json:"businessImpact"`
	AffectedUsers []string  `json:"affectedUsers"`
	Metadata      Metadata  `json:"metadata"`
}

// Metadata carries audit fields. Version starts at 1 and increases by one on
// every resolve or escalate.
type Metadata struct {
	LastModifiedAt time.Time `json:"lastModifiedAt"`
	ModifiedBy     string    `json:"modifiedBy,omitempty"`
	Version        int       `json:"version"`
	Dependencies   []string  `json:"dependencies,omitempty"`
	Operation      Operation `json:"operation"`

	ServerModifiedAt *time.Time `json:"serverModifiedAt,omitempty"`
	ClientModifiedAt *time.Time `json:"clientModifiedAt,omitempty"`
	ServerVersion    int64      `json:"serverVersion,omitempty"`
	ClientVersion    int64      `json:"clientVersion,omitempty"`

	// ClassificationReasons records which detection rules fired.
	ClassificationReasons []string `json:"classificationReasons,omitempty"`

	ResolvedValue        json.RawMessage `json:"resolvedValue,omitempty"`
	ResolutionStrategy   string          `json:"resolutionStrategy,omitempty"`
	ResolutionConfidence int             `json:"resolutionConfidence,omitempty"`
	ResolvedAt           *time.Time      `json:"resolvedAt,omitempty"`

	Escalated           bool       `json:"escalated,omitempty"`
	EscalationReason    string     `json:"escalationReason,omitempty"`
	EscalationTimestamp *time.Time `json:"escalationTimestamp,omitempty"`
}

// ResolvedAs decodes the resolved value. It returns (nil, false) for an
// unresolved conflict.
func (c *Conflict) ResolvedAs() (any, bool) {
	if len(c.Metadata.ResolvedValue) == 0 {
		return nil, false
	}
	var v any
	if err := json.Unmarshal(c.Metadata.ResolvedValue, &v); err != nil {
		return nil, false
	}
	return v, true
}

// Clone returns a deep copy of c, safe to mutate independently.
func (c Conflict) Clone() Conflict {
	out := c
	out.ServerValue = cloneValue(c.ServerValue)
	out.ClientValue = cloneValue(c.ClientValue)
	out.AffectedUsers = append([]string(nil), c.AffectedUsers...)
	out.Metadata.Dependencies = append([]string(nil), c.Metadata.Dependencies...)
	out.Metadata.ClassificationReasons = append([]string(nil), c.Metadata.ClassificationReasons...)
	out.Metadata.ResolvedValue = append(json.RawMessage(nil), c.Metadata.ResolvedValue...)
	out.Metadata.ServerModifiedAt = cloneTime(c.Metadata.ServerModifiedAt)
	out.Metadata.ClientModifiedAt = cloneTime(c.Metadata.ClientModifiedAt)
	out.Metadata.ResolvedAt = cloneTime(c.Metadata.ResolvedAt)
	out.Metadata.EscalationTimestamp = cloneTime(c.Metadata.EscalationTimestamp)
	return out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneValue(v any) any {
	switch x := v.(type) {
	case []any:
		out := make([]any, len(x))
		for i := range x {
			out[i] = cloneValue(x[i])
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}

// HistoryEntry is an append-only record of one committed resolution.
type HistoryEntry struct {
	ConflictID       string    `json:"conflictId"`
	StrategyUsed     string    `json:"strategyUsed"`
	Timestamp        time.Time `json:"timestamp"`
	ProcessingTimeMs int64     `json:"processingTimeMs"`
	Confidence       int       `json:"confidence"`
	BusinessImpact   Impact    `json:"businessImpact"`
}

// ChangeEvent is one observed change to a field, as delivered by intake.
type ChangeEvent struct {
	TenantID         string     `json:"tenantId"`
	Module           string     `json:"module"`
	EntityType       string     `json:"entityType"`
	EntityID         string     `json:"entityId"`
	Field            string     `json:"field"`
	Operation        Operation  `json:"operation,omitempty"`
	ServerValue      any        `json:"serverValue"`
	ClientValue      any        `json:"clientValue"`
	ServerModifiedAt *time.Time `json:"serverModifiedAt,omitempty"`
	ClientModifiedAt *time.Time `json:"clientModifiedAt,omitempty"`
	ModifiedBy       string     `json:"modifiedBy,omitempty"`
	ServerVersion    int64      `json:"serverVersion,omitempty"`
	ClientVersion    int64      `json:"clientVersion,omitempty"`
	AffectedUsers    []string   `json:"affectedUsers,omitempty"`
	Dependencies     []string   `json:"dependencies,omitempty"`
}
