package strategy

import (
	"github.com/Iron-Ham/conflux/internal/approval"
)

// Name identifies a strategy variant.
type Name string

const (
	NameServerWins       Name = "server_wins"
	NameClientWins       Name = "client_wins"
	NameMerge            Name = "merge"
	NameManual           Name = "manual"
	NameAIAssisted       Name = "ai_assisted"
	NameWorkflowApproval Name = "workflow_approval"
)

// Names returns every strategy name.
func Names() []Name {
	return []Name{NameServerWins, NameClientWins, NameMerge, NameManual, NameAIAssisted, NameWorkflowApproval}
}

// Default confidences used when a descriptor leaves confidence unset.
const (
	DefaultPickConfidence     = 100
	DefaultMergeConfidence    = 80
	DefaultManualConfidence   = 100
	DefaultWorkflowConfidence = 100
)

// Strategy is a resolution policy. The unexported method seals the set.
type Strategy interface {
	Name() Name
	Confidence() int
	Reasoning() string
	sealed()
}

// Meta carries the attributes shared by every strategy.
type Meta struct {
	Conf   int
	Reason string
}

func (m Meta) Confidence() int   { return m.Conf }
func (m Meta) Reasoning() string { return m.Reason }
func (Meta) sealed()             {}

// ServerWins keeps the server value.
type ServerWins struct{ Meta }

// ClientWins takes the client value.
type ClientWins struct{ Meta }

// Merge combines both sides using per-field rules. Empty Rules means the
// resolver's configured defaults apply.
type Merge struct {
	Meta
	Rules []MergeRule
}

// Manual applies a value chosen by the caller.
type Manual struct {
	Meta
	Value any
}

// AIAssisted asks the suggestion provider which side to keep.
type AIAssisted struct{ Meta }

// WorkflowApproval defers resolution to an approval workflow. Once the bound
// workflow is complete, the same strategy commits Value, or the client value
// under approval when Value is nil.
type WorkflowApproval struct {
	Meta
	Workflow approval.Workflow
	Value    any
}

func (ServerWins) Name() Name       { return NameServerWins }
func (ClientWins) Name() Name       { return NameClientWins }
func (Merge) Name() Name            { return NameMerge }
func (Manual) Name() Name           { return NameManual }
func (AIAssisted) Name() Name       { return NameAIAssisted }
func (WorkflowApproval) Name() Name { return NameWorkflowApproval }

// RuleFor returns the merge rule for field, matched case-insensitively.
func (m Merge) RuleFor(field string) (MergeRule, bool) {
	return Lookup(m.Rules, field)
}
