package strategy

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/Iron-Ham/conflux/internal/approval"
	"github.com/Iron-Ham/conflux/internal/errors"
)

// Descriptor is the wire form of a strategy.
type Descriptor struct {
	Name       Name               `json:"name" yaml:"name"`
	Confidence *int               `json:"confidence,omitempty" yaml:"confidence,omitempty"`
	Reasoning  string             `json:"reasoning,omitempty" yaml:"reasoning,omitempty"`
	MergeRules []MergeRule        `json:"mergeRules,omitempty" yaml:"mergeRules,omitempty"`
	Workflow   *approval.Workflow `json:"workflow,omitempty" yaml:"workflow,omitempty"`
	Value      any                `json:"value,omitempty" yaml:"value,omitempty"`
}

// Parse decodes a JSON or YAML descriptor into a Strategy.
func Parse(data []byte) (Strategy, error) {
	var d Descriptor
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, errors.NewValidationError("malformed strategy descriptor").WithCause(err)
	}
	return d.Strategy()
}

// FromName builds a strategy that needs nothing beyond its name.
func FromName(name string) (Strategy, error) {
	return Descriptor{Name: Name(name)}.Strategy()
}

// Strategy validates d and returns the matching variant.
func (d Descriptor) Strategy() (Strategy, error) {
	conf := func(def int) (int, error) {
		if d.Confidence == nil {
			return def, nil
		}
		if *d.Confidence < 0 || *d.Confidence > 100 {
			return 0, errors.NewValidationError("confidence must be between 0 and 100").
				WithField("confidence").WithValue(*d.Confidence)
		}
		return *d.Confidence, nil
	}

	var def int
	switch d.Name {
	case NameServerWins, NameClientWins:
		def = DefaultPickConfidence
	case NameMerge:
		def = DefaultMergeConfidence
	case NameManual:
		def = DefaultManualConfidence
	case NameWorkflowApproval:
		def = DefaultWorkflowConfidence
	case NameAIAssisted:
		def = 0
	case "":
		return nil, errors.NewValidationError("strategy name is required").WithField("name")
	default:
		return nil, errors.NewValidationError("unknown strategy").WithField("name").WithValue(string(d.Name))
	}
	c, err := conf(def)
	if err != nil {
		return nil, err
	}
	meta := Meta{Conf: c, Reason: d.Reasoning}

	switch d.Name {
	case NameServerWins:
		return ServerWins{meta}, nil
	case NameClientWins:
		return ClientWins{meta}, nil
	case NameMerge:
		if err := ValidateRules(d.MergeRules); err != nil {
			return nil, err
		}
		return Merge{Meta: meta, Rules: append([]MergeRule(nil), d.MergeRules...)}, nil
	case NameManual:
		if d.Value == nil {
			return nil, errors.NewValidationError("manual strategy requires a value").WithField("value")
		}
		return Manual{Meta: meta, Value: d.Value}, nil
	case NameAIAssisted:
		return AIAssisted{meta}, nil
	default: // NameWorkflowApproval
		if d.Workflow == nil {
			return nil, errors.NewValidationError("workflow_approval requires a workflow").WithField("workflow")
		}
		if err := d.Workflow.Validate(); err != nil {
			return nil, fmt.Errorf("workflow: %w", err)
		}
		return WorkflowApproval{Meta: meta, Workflow: d.Workflow.Clone(), Value: d.Value}, nil
	}
}

// Describe converts s back into its wire form.
func Describe(s Strategy) Descriptor {
	c := s.Confidence()
	d := Descriptor{Name: s.Name(), Confidence: &c, Reasoning: s.Reasoning()}
	switch v := s.(type) {
	case ServerWins, ClientWins, AIAssisted:
	case Merge:
		d.MergeRules = append([]MergeRule(nil), v.Rules...)
	case Manual:
		d.Value = v.Value
	case WorkflowApproval:
		wf := v.Workflow.Clone()
		d.Workflow = &wf
		d.Value = v.Value
	}
	return d
}
