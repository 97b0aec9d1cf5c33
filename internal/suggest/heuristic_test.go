package suggest

import (
	"context"
	"testing"
	"time"

	"github.com/Iron-Ham/conflux/internal/conflict"
	"github.com/Iron-Ham/conflux/internal/strategy"
)

func TestHeuristic_Suggest(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	t1 := t0.Add(time.Second)

	tests := []struct {
		name string
		c    conflict.Conflict
		want strategy.Name
	}{
		{"permission", conflict.Conflict{Type: conflict.TypePermissionConflict, ServerValue: "admin", ClientValue: "viewer"}, strategy.NameManual},
		{"arrays", conflict.Conflict{Type: conflict.TypeDataMismatch, ServerValue: []any{"a"}, ClientValue: []any{"b"}}, strategy.NameMerge},
		{"stale client", conflict.Conflict{Type: conflict.TypeVersionConflict, ServerValue: 1, ClientValue: 2}, strategy.NameServerWins},
		{"concurrent client later", conflict.Conflict{Type: conflict.TypeConcurrentEdit, ServerValue: "a", ClientValue: "b",
			Metadata: conflict.Metadata{ServerModifiedAt: &t0, ClientModifiedAt: &t1}}, strategy.NameClientWins},
		{"concurrent server later", conflict.Conflict{Type: conflict.TypeConcurrentEdit, ServerValue: "a", ClientValue: "b",
			Metadata: conflict.Metadata{ServerModifiedAt: &t1, ClientModifiedAt: &t0}}, strategy.NameServerWins},
		{"revenue", conflict.Conflict{Type: conflict.TypeDataMismatch, Impact: conflict.ImpactRevenue, ServerValue: 1, ClientValue: 2}, strategy.NameServerWins},
		{"default", conflict.Conflict{Type: conflict.TypeDataMismatch, ServerValue: "x", ClientValue: "y"}, strategy.NameServerWins},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Heuristic{}.Suggest(context.Background(), tt.c)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if s.Strategy != tt.want {
				t.Errorf("Strategy = %q, want %q", s.Strategy, tt.want)
			}
			if s.Confidence <= 0 || s.Confidence > 100 || s.Reasoning == "" {
				t.Errorf("bad suggestion metadata: %+v", s)
			}
		})
	}
}
