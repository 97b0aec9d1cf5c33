package intake

import (
	"testing"

	"github.com/Iron-Ham/conflux/internal/conflict"
	"github.com/Iron-Ham/conflux/internal/errors"
)

func TestParse_Shapes(t *testing.T) {
	tests := []struct {
		name string
		data string
		want int
	}{
		{"empty", "  \n", 0},
		{"object", `{"module":"finance","entityType":"invoice","entityId":"1","field":"amount","serverValue":1,"clientValue":2}`, 1},
		{"array", `[{"entityId":"1","field":"a"},{"entityId":"2","field":"b"}]`, 2},
		{"ndjson", "{\"entityId\":\"1\"}\n{\"entityId\":\"2\"}\n\n{\"entityId\":\"3\"}\n", 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse([]byte(tt.data), "acme")
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("Parse() returned %d events, want %d", len(got), tt.want)
			}
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	for _, data := range []string{`{"entityId":`, `[{"entityId":1}`, "{}\nnot json"} {
		if _, err := Parse([]byte(data), "acme"); !errors.IsValidation(err) {
			t.Errorf("Parse(%q) err = %v, want validation", data, err)
		}
	}
}

func TestEnrich(t *testing.T) {
	tests := []struct {
		name   string
		record Record
		check  func(t *testing.T, ev conflict.ChangeEvent)
	}{
		{
			name:   "fills tenant",
			record: Record{EntityID: "1"},
			check: func(t *testing.T, ev conflict.ChangeEvent) {
				if ev.TenantID != "acme" {
					t.Errorf("TenantID = %q, want acme", ev.TenantID)
				}
			},
		},
		{
			name:   "keeps foreign tenant",
			record: Record{TenantID: "globex"},
			check: func(t *testing.T, ev conflict.ChangeEvent) {
				if ev.TenantID != "globex" {
					t.Errorf("TenantID = %q, want globex", ev.TenantID)
				}
			},
		},
		{
			name:   "resource shorthand",
			record: Record{Resource: "finance.invoice"},
			check: func(t *testing.T, ev conflict.ChangeEvent) {
				if ev.Module != "finance" || ev.EntityType != "invoice" {
					t.Errorf("module/entity = %q/%q", ev.Module, ev.EntityType)
				}
			},
		},
		{
			name:   "explicit module wins over resource",
			record: Record{Resource: "finance.invoice", Module: "billing"},
			check: func(t *testing.T, ev conflict.ChangeEvent) {
				if ev.Module != "billing" || ev.EntityType != "invoice" {
					t.Errorf("module/entity = %q/%q", ev.Module, ev.EntityType)
				}
			},
		},
		{
			name:   "explicit operation lowercased",
			record: Record{Operation: " DELETE ", ServerValue: 1.0, ClientValue: 2.0},
			check: func(t *testing.T, ev conflict.ChangeEvent) {
				if ev.Operation != conflict.OpDelete {
					t.Errorf("Operation = %q, want delete", ev.Operation)
				}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, Enrich(tt.record, "acme"))
		})
	}
}

func TestInferOperation(t *testing.T) {
	tests := []struct {
		name string
		ev   conflict.ChangeEvent
		want conflict.Operation
	}{
		{"update", conflict.ChangeEvent{Field: "amount", ServerValue: 1.0, ClientValue: 2.0}, conflict.OpUpdate},
		{"create", conflict.ChangeEvent{Field: "amount", ClientValue: 2.0}, conflict.OpCreate},
		{"delete", conflict.ChangeEvent{Field: "amount", ServerValue: 1.0}, conflict.OpDelete},
		{"permission field", conflict.ChangeEvent{Field: "permissions", ServerValue: "r", ClientValue: "rw"}, conflict.OpPermission},
		{"role suffix", conflict.ChangeEvent{Field: "approver_role", ServerValue: "a", ClientValue: "b"}, conflict.OpPermission},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := InferOperation(tt.ev); got != tt.want {
				t.Errorf("InferOperation() = %q, want %q", got, tt.want)
			}
		})
	}
}
