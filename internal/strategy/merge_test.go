package strategy

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/Iron-Ham/conflux/internal/conflict"
	"github.com/Iron-Ham/conflux/internal/errors"
)

func TestEvaluate(t *testing.T) {
	t0 := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	later := t0.Add(time.Minute)

	tests := []struct {
		name        string
		c           conflict.Conflict
		rules       []MergeRule
		want        any
		wantApplied RuleKind
	}{
		{
			name:        "combine arrays",
			c:           conflict.Conflict{Field: "tags", ServerValue: []any{1, 2}, ClientValue: []any{2, 3}},
			rules:       []MergeRule{{Field: "tags", Rule: RuleCombineArrays}},
			want:        []any{1.0, 2.0, 3.0},
			wantApplied: RuleCombineArrays,
		},
		{
			name:        "combine arrays dedupes server side",
			c:           conflict.Conflict{Field: "tags", ServerValue: []any{"a", "a", "b"}, ClientValue: []any{"c", "b"}},
			rules:       []MergeRule{{Field: "tags", Rule: RuleCombineArrays}},
			want:        []any{"a", "b", "c"},
			wantApplied: RuleCombineArrays,
		},
		{
			name:        "combine arrays type mismatch",
			c:           conflict.Conflict{Field: "tags", ServerValue: "a", ClientValue: []any{"b"}},
			rules:       []MergeRule{{Field: "tags", Rule: RuleCombineArrays}},
			want:        "a",
			wantApplied: RuleFallbackServer,
		},
		{
			name:        "highest value client",
			c:           conflict.Conflict{Field: "amount", ServerValue: 1500.0, ClientValue: 1550.0},
			rules:       []MergeRule{{Field: "amount", Rule: RuleHighestValue}},
			want:        1550.0,
			wantApplied: RuleHighestValue,
		},
		{
			name:        "highest value server",
			c:           conflict.Conflict{Field: "amount", ServerValue: 9, ClientValue: 3},
			rules:       []MergeRule{{Field: "amount", Rule: RuleHighestValue}},
			want:        9.0,
			wantApplied: RuleHighestValue,
		},
		{
			name:        "highest value type mismatch",
			c:           conflict.Conflict{Field: "amount", ServerValue: "n/a", ClientValue: 3},
			rules:       []MergeRule{{Field: "amount", Rule: RuleHighestValue}},
			want:        "n/a",
			wantApplied: RuleFallbackServer,
		},
		{
			name: "latest timestamp client",
			c: conflict.Conflict{Field: "note", ServerValue: "old", ClientValue: "new",
				Metadata: conflict.Metadata{ServerModifiedAt: &t0, ClientModifiedAt: &later}},
			rules:       []MergeRule{{Field: "note", Rule: RuleLatestTimestamp}},
			want:        "new",
			wantApplied: RuleLatestTimestamp,
		},
		{
			name: "latest timestamp equal keeps server",
			c: conflict.Conflict{Field: "note", ServerValue: "old", ClientValue: "new",
				Metadata: conflict.Metadata{ServerModifiedAt: &t0, ClientModifiedAt: &t0}},
			rules:       []MergeRule{{Field: "note", Rule: RuleLatestTimestamp}},
			want:        "old",
			wantApplied: RuleLatestTimestamp,
		},
		{
			name: "latest timestamp unknown keeps server",
			c: conflict.Conflict{Field: "note", ServerValue: "old", ClientValue: "new",
				Metadata: conflict.Metadata{ClientModifiedAt: &later}},
			rules:       []MergeRule{{Field: "note", Rule: RuleLatestTimestamp}},
			want:        "old",
			wantApplied: RuleLatestTimestamp,
		},
		{
			name:        "no rule",
			c:           conflict.Conflict{Field: "other", ServerValue: "s", ClientValue: "c"},
			rules:       []MergeRule{{Field: "tags", Rule: RuleCombineArrays}},
			want:        "s",
			wantApplied: RuleFallbackServer,
		},
		{
			name:        "explicit fallback",
			c:           conflict.Conflict{Field: "x", ServerValue: "s", ClientValue: "c"},
			rules:       []MergeRule{{Field: "x", Rule: RuleFallbackServer}},
			want:        "s",
			wantApplied: RuleFallbackServer,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Evaluate(tt.c, tt.rules)
			if !reflect.DeepEqual(got.Value, tt.want) {
				t.Errorf("Value = %#v, want %#v", got.Value, tt.want)
			}
			if got.Applied != tt.wantApplied {
				t.Errorf("Applied = %q, want %q", got.Applied, tt.wantApplied)
			}
			if got.Reason == "" {
				t.Error("Reason should be set")
			}
		})
	}
}

func TestRulesFromMap(t *testing.T) {
	rules, err := RulesFromMap(map[string]string{"tags": "combine_arrays", "amount": "highest_value"})
	if err != nil {
		t.Fatal(err)
	}
	if len(rules) != 2 || rules[0].Field != "amount" {
		t.Errorf("rules = %+v, want sorted by field", rules)
	}
	if _, err := RulesFromMap(map[string]string{"x": "random"}); !errors.IsValidation(err) {
		t.Errorf("bad rule error = %v", err)
	}
}

func TestValidateRules_Duplicate(t *testing.T) {
	err := ValidateRules([]MergeRule{{Field: "Tags", Rule: RuleCombineArrays}, {Field: "tags", Rule: RuleFallbackServer}})
	if !errors.IsValidation(err) {
		t.Errorf("error = %v, want ValidationError", err)
	}
}

func TestLoadRules(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	body := "- field: tags\n  rule: combine_arrays\n- field: updated_note\n  rule: latest_timestamp\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	rules, err := LoadRules(path)
	if err != nil {
		t.Fatalf("LoadRules() error = %v", err)
	}
	if len(rules) != 2 || rules[1].Rule != RuleLatestTimestamp {
		t.Errorf("rules = %+v", rules)
	}
	if _, err := LoadRules(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected read error")
	}
}
