package conflict

import (
	"encoding/json"
	"testing"
	"time"
)

func TestPriority_Next(t *testing.T) {
	tests := []struct {
		in, want Priority
	}{
		{PriorityLow, PriorityMedium},
		{PriorityMedium, PriorityHigh},
		{PriorityHigh, PriorityCritical},
		{PriorityCritical, PriorityCritical},
		{Priority("bogus"), Priority("bogus")},
	}
	for _, tt := range tests {
		t.Run(string(tt.in), func(t *testing.T) {
			if got := tt.in.Next(); got != tt.want {
				t.Errorf("Next() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPriority_AtLeast(t *testing.T) {
	if got := PriorityLow.AtLeast(PriorityHigh); got != PriorityHigh {
		t.Errorf("AtLeast raised to %q, want high", got)
	}
	if got := PriorityCritical.AtLeast(PriorityHigh); got != PriorityCritical {
		t.Errorf("AtLeast lowered to %q, want critical", got)
	}
	if PriorityMedium.Rank() != 1 || !PriorityMedium.Valid() || Priority("x").Valid() {
		t.Error("Rank/Valid mismatch")
	}
}

func TestConflict_Clone(t *testing.T) {
	ts := time.Now()
	c := Conflict{
		ServerValue:   []any{1.0, 2.0},
		AffectedUsers: []string{"u1"},
		Metadata: Metadata{
			ResolvedAt:    &ts,
			ResolvedValue: json.RawMessage(`[1]`),
		},
	}
	cp := c.Clone()
	cp.ServerValue.([]any)[0] = 99.0
	cp.AffectedUsers[0] = "u2"
	*cp.Metadata.ResolvedAt = ts.Add(time.Hour)
	cp.Metadata.ResolvedValue[1] = '9'

	if c.ServerValue.([]any)[0] != 1.0 {
		t.Error("ServerValue shared with clone")
	}
	if c.AffectedUsers[0] != "u1" {
		t.Error("AffectedUsers shared with clone")
	}
	if !c.Metadata.ResolvedAt.Equal(ts) {
		t.Error("ResolvedAt shared with clone")
	}
	if string(c.Metadata.ResolvedValue) != "[1]" {
		t.Error("ResolvedValue shared with clone")
	}
}

func TestConflict_ResolvedAs(t *testing.T) {
	var c Conflict
	if _, ok := c.ResolvedAs(); ok {
		t.Error("unresolved conflict should report no value")
	}
	c.Metadata.ResolvedValue = json.RawMessage(`1500`)
	v, ok := c.ResolvedAs()
	if !ok || v != 1500.0 {
		t.Errorf("ResolvedAs() = %v, %v", v, ok)
	}
}

func TestConflict_JSON(t *testing.T) {
	c := Conflict{ID: "c-1", Type: TypeConcurrentEdit, Impact: ImpactCompliance, Priority: PriorityHigh}
	data, err := json.Marshal(c)
	if err != nil {
		t.Fatal(err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatal(err)
	}
	if raw["conflictType"] != "concurrent_edit" || raw["businessImpact"] != "compliance" {
		t.Errorf("unexpected wire names: %s", data)
	}
}
