package strategy

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Iron-Ham/conflux/internal/conflict"
	"github.com/Iron-Ham/conflux/internal/errors"
)

// RuleKind selects how a merge combines the two sides.
type RuleKind string

const (
	RuleLatestTimestamp RuleKind = "latest_timestamp"
	RuleHighestValue    RuleKind = "highest_value"
	RuleCombineArrays   RuleKind = "combine_arrays"
	RuleFallbackServer  RuleKind = "fallback_server"
)

// Valid reports whether k is a known rule.
func (k RuleKind) Valid() bool {
	switch k {
	case RuleLatestTimestamp, RuleHighestValue, RuleCombineArrays, RuleFallbackServer:
		return true
	}
	return false
}

// MergeRule binds a field to a rule.
type MergeRule struct {
	Field string   `json:"field" yaml:"field"`
	Rule  RuleKind `json:"rule" yaml:"rule"`
}

// ValidateRules checks every rule has a field and a known kind, and that no
// field appears twice.
func ValidateRules(rules []MergeRule) error {
	seen := make(map[string]bool, len(rules))
	for i, r := range rules {
		field := fmt.Sprintf("mergeRules[%d]", i)
		if strings.TrimSpace(r.Field) == "" {
			return errors.NewValidationError("merge rule field is required").WithField(field + ".field")
		}
		if !r.Rule.Valid() {
			return errors.NewValidationError("unknown merge rule").WithField(field + ".rule").WithValue(string(r.Rule))
		}
		key := strings.ToLower(r.Field)
		if seen[key] {
			return errors.NewValidationError("duplicate merge rule").WithField(field + ".field").WithValue(r.Field)
		}
		seen[key] = true
	}
	return nil
}

// RulesFromMap converts a field-to-rule map, as found in configuration,
// into sorted rules.
func RulesFromMap(m map[string]string) ([]MergeRule, error) {
	rules := make([]MergeRule, 0, len(m))
	for field, rule := range m {
		rules = append(rules, MergeRule{Field: field, Rule: RuleKind(rule)})
	}
	sort.Slice(rules, func(i, j int) bool { return rules[i].Field < rules[j].Field })
	if err := ValidateRules(rules); err != nil {
		return nil, err
	}
	return rules, nil
}

// LoadRules reads a YAML list of merge rules from path.
func LoadRules(path string) ([]MergeRule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read merge rules: %w", err)
	}
	var rules []MergeRule
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("parse merge rules: %w", err)
	}
	if err := ValidateRules(rules); err != nil {
		return nil, err
	}
	return rules, nil
}

// Lookup finds the rule for field, ignoring case.
func Lookup(rules []MergeRule, field string) (MergeRule, bool) {
	for _, r := range rules {
		if strings.EqualFold(r.Field, field) {
			return r, true
		}
	}
	return MergeRule{}, false
}

// Outcome is the result of a merge evaluation.
type Outcome struct {
	Value any
	// Applied is the rule that produced Value. It is fallback_server when
	// the requested rule could not apply.
	Applied RuleKind
	Reason  string
}

// Evaluate merges the two sides of c using the rule for c.Field. It never
// fails: a missing rule, fallback_server, or a type mismatch yields the
// server value.
func Evaluate(c conflict.Conflict, rules []MergeRule) Outcome {
	server := conflict.Normalize(c.ServerValue)
	client := conflict.Normalize(c.ClientValue)
	fallback := func(reason string) Outcome {
		return Outcome{Value: server, Applied: RuleFallbackServer, Reason: reason}
	}

	rule, ok := Lookup(rules, c.Field)
	if !ok {
		return fallback(fmt.Sprintf("no merge rule for field %q", c.Field))
	}

	switch rule.Rule {
	case RuleLatestTimestamp:
		s, cl := c.Metadata.ServerModifiedAt, c.Metadata.ClientModifiedAt
		if s != nil && cl != nil && cl.After(*s) {
			return Outcome{Value: client, Applied: RuleLatestTimestamp, Reason: "client modified later"}
		}
		if s == nil || cl == nil {
			return Outcome{Value: server, Applied: RuleLatestTimestamp, Reason: "modification time unknown, kept server"}
		}
		return Outcome{Value: server, Applied: RuleLatestTimestamp, Reason: "server modified later or at the same time"}

	case RuleHighestValue:
		sv, sok := server.(float64)
		cv, cok := client.(float64)
		if !sok || !cok {
			return fallback("highest_value needs two numbers")
		}
		if cv > sv {
			return Outcome{Value: client, Applied: RuleHighestValue, Reason: "client value is higher"}
		}
		return Outcome{Value: server, Applied: RuleHighestValue, Reason: "server value is higher or equal"}

	case RuleCombineArrays:
		sa, sok := server.([]any)
		ca, cok := client.([]any)
		if !sok || !cok {
			return fallback("combine_arrays needs two arrays")
		}
		return Outcome{Value: union(sa, ca), Applied: RuleCombineArrays, Reason: "combined both arrays"}

	case RuleFallbackServer:
		return fallback("rule is fallback_server")

	default:
		return fallback(fmt.Sprintf("unknown rule %q", rule.Rule))
	}
}

// union keeps server order, then appends unseen client elements.
func union(server, client []any) []any {
	out := make([]any, 0, len(server)+len(client))
	add := func(v any) {
		for _, existing := range out {
			if conflict.Equal(existing, v) {
				return
			}
		}
		out = append(out, v)
	}
	for _, v := range server {
		add(v)
	}
	for _, v := range client {
		add(v)
	}
	return out
}
