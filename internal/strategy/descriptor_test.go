package strategy

import (
	"encoding/json"
	"testing"

	"github.com/Iron-Ham/conflux/internal/errors"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		want     Name
		wantConf int
	}{
		{"json server wins", `{"name":"server_wins"}`, NameServerWins, DefaultPickConfidence},
		{"yaml client wins", "name: client_wins\nconfidence: 70\n", NameClientWins, 70},
		{"merge with rules", `{"name":"merge","mergeRules":[{"field":"tags","rule":"combine_arrays"}]}`, NameMerge, DefaultMergeConfidence},
		{"manual", `{"name":"manual","value":1525}`, NameManual, DefaultManualConfidence},
		{"ai", `{"name":"ai_assisted"}`, NameAIAssisted, 0},
		{"workflow", `{"name":"workflow_approval","workflow":{"steps":[{"approverRole":"cfo"}]}}`, NameWorkflowApproval, DefaultWorkflowConfidence},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Parse([]byte(tt.input))
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if s.Name() != tt.want {
				t.Errorf("Name() = %q, want %q", s.Name(), tt.want)
			}
			if s.Confidence() != tt.wantConf {
				t.Errorf("Confidence() = %d, want %d", s.Confidence(), tt.wantConf)
			}
		})
	}
}

func TestParse_Variants(t *testing.T) {
	s, _ := Parse([]byte(`{"name":"merge","mergeRules":[{"field":"tags","rule":"combine_arrays"}]}`))
	m, ok := s.(Merge)
	if !ok {
		t.Fatalf("got %T, want Merge", s)
	}
	if r, ok := m.RuleFor("TAGS"); !ok || r.Rule != RuleCombineArrays {
		t.Errorf("RuleFor() = %+v, %v", r, ok)
	}

	s, _ = Parse([]byte(`{"name":"workflow_approval","workflow":{"name":"sign-off","steps":[{"id":"a","approverRole":"cfo"}]}}`))
	wf, ok := s.(WorkflowApproval)
	if !ok {
		t.Fatalf("got %T, want WorkflowApproval", s)
	}
	if wf.Workflow.Name != "sign-off" || wf.Workflow.Steps[0].ApproverRole != "cfo" {
		t.Errorf("workflow = %+v", wf.Workflow)
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantField string
	}{
		{"unknown name", `{"name":"coin_flip"}`, "name"},
		{"missing name", `{}`, "name"},
		{"confidence out of range", `{"name":"server_wins","confidence":101}`, "confidence"},
		{"negative confidence", `{"name":"server_wins","confidence":-1}`, "confidence"},
		{"manual without value", `{"name":"manual"}`, "value"},
		{"workflow missing", `{"name":"workflow_approval"}`, "workflow"},
		{"workflow without steps", `{"name":"workflow_approval","workflow":{"steps":[]}}`, "steps"},
		{"bad merge rule", `{"name":"merge","mergeRules":[{"field":"x","rule":"average"}]}`, "mergeRules[0].rule"},
		{"merge rule without field", `{"name":"merge","mergeRules":[{"rule":"highest_value"}]}`, "mergeRules[0].field"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.input))
			var vErr *errors.ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("error = %v, want ValidationError", err)
			}
			if vErr.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", vErr.Field, tt.wantField)
			}
		})
	}

	if _, err := Parse([]byte("name: [")); !errors.IsValidation(err) {
		t.Errorf("syntax error = %v, want ValidationError", err)
	}
}

func TestFromName(t *testing.T) {
	for _, n := range []Name{NameServerWins, NameClientWins, NameMerge, NameAIAssisted} {
		if _, err := FromName(string(n)); err != nil {
			t.Errorf("FromName(%q) error = %v", n, err)
		}
	}
	for _, n := range []Name{NameManual, NameWorkflowApproval, "bogus"} {
		if _, err := FromName(string(n)); !errors.IsValidation(err) {
			t.Errorf("FromName(%q) error = %v, want ValidationError", n, err)
		}
	}
}

func TestDescribe_RoundTrip(t *testing.T) {
	inputs := []string{
		`{"name":"manual","value":"Acme Corp","reasoning":"confirmed by phone"}`,
		`{"name":"merge","confidence":60,"mergeRules":[{"field":"amount","rule":"highest_value"}]}`,
		`{"name":"workflow_approval","workflow":{"steps":[{"id":"a","approverRole":"cfo"}]}}`,
	}
	for _, in := range inputs {
		s, err := Parse([]byte(in))
		if err != nil {
			t.Fatalf("Parse(%s) error = %v", in, err)
		}
		data, err := json.Marshal(Describe(s))
		if err != nil {
			t.Fatal(err)
		}
		again, err := Parse(data)
		if err != nil {
			t.Fatalf("re-Parse(%s) error = %v", data, err)
		}
		if again.Name() != s.Name() || again.Confidence() != s.Confidence() || again.Reasoning() != s.Reasoning() {
			t.Errorf("round trip changed strategy: %s -> %s", in, data)
		}
	}
}
