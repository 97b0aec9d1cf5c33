package approval

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Iron-Ham/conflux/internal/errors"
)

const financeTemplate = `
name: finance-signoff
steps:
  - id: manager
    approverRole: finance_manager
    description: Confirm invoice total
  - approverRole: cfo
`

func TestParseTemplate(t *testing.T) {
	wf, err := ParseTemplate([]byte(financeTemplate))
	if err != nil {
		t.Fatalf("ParseTemplate() error = %v", err)
	}
	if wf.Name != "finance-signoff" || len(wf.Steps) != 2 {
		t.Fatalf("got %+v", wf)
	}
	if wf.Steps[0].ApproverRole != "finance_manager" || wf.Steps[0].Description != "Confirm invoice total" {
		t.Errorf("step 0 = %+v", wf.Steps[0])
	}

	if _, err := ParseTemplate([]byte("name: empty\nsteps: []\n")); !errors.IsValidation(err) {
		t.Errorf("empty steps error = %v, want ValidationError", err)
	}
	if _, err := ParseTemplate([]byte("steps: [")); err == nil {
		t.Error("expected YAML syntax error")
	}
}

func TestLoadTemplates(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write("finance.yaml", financeTemplate)
	write("legal.yml", "steps:\n  - approverRole: counsel\n")
	write("notes.txt", "not a template")

	got, err := LoadTemplates(dir)
	if err != nil {
		t.Fatalf("LoadTemplates() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("loaded %d templates, want 2", len(got))
	}
	if _, ok := got["finance-signoff"]; !ok {
		t.Error("missing finance-signoff")
	}
	if _, ok := got["legal"]; !ok {
		t.Error("unnamed template should take file name")
	}

	missing, err := LoadTemplates(filepath.Join(dir, "nope"))
	if err != nil || len(missing) != 0 {
		t.Errorf("missing dir = %v, %v", missing, err)
	}

	write("dup.yaml", financeTemplate)
	if _, err := LoadTemplates(dir); err == nil {
		t.Error("expected duplicate name error")
	}
}
