// Package analytics derives read-only metrics from conflicts and resolution
// history.
package analytics

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/Iron-Ham/conflux/internal/conflict"
)

// Bucket is one histogram entry.
type Bucket struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// Report is the aggregate view over one tenant's data.
type Report struct {
	Total     int `json:"total"`
	Resolved  int `json:"resolved"`
	Pending   int `json:"pending"`
	Escalated int `json:"escalated"`
	// ResolutionRate is Resolved/Total in [0,1].
	ResolutionRate          float64 `json:"resolutionRate"`
	AverageResolutionTimeMs float64 `json:"averageResolutionTimeMs"`
	AverageConfidence       float64 `json:"averageConfidence"`

	ByModule   []Bucket `json:"byModule"`
	ByType     []Bucket `json:"byConflictType"`
	ByImpact   []Bucket `json:"byBusinessImpact"`
	ByPriority []Bucket `json:"byPriority"`
	ByStrategy []Bucket `json:"byResolutionStrategy"`
}

// Compute builds a Report. Empty inputs yield zero rates and averages.
func Compute(conflicts []conflict.Conflict, history []conflict.HistoryEntry) Report {
	r := Report{Total: len(conflicts)}

	modules := map[string]int{}
	types := map[string]int{}
	impacts := map[string]int{}
	priorities := map[string]int{}
	for _, c := range conflicts {
		if c.Resolved {
			r.Resolved++
		}
		if c.Metadata.Escalated {
			r.Escalated++
		}
		modules[c.Module]++
		types[string(c.Type)]++
		impacts[string(c.Impact)]++
		priorities[string(c.Priority)]++
	}
	r.Pending = r.Total - r.Resolved
	if r.Total > 0 {
		r.ResolutionRate = float64(r.Resolved) / float64(r.Total)
	}

	strategies := map[string]int{}
	var totalMs int64
	var totalConfidence int
	for _, h := range history {
		totalMs += h.ProcessingTimeMs
		totalConfidence += h.Confidence
		strategies[h.StrategyUsed]++
	}
	if n := len(history); n > 0 {
		r.AverageResolutionTimeMs = float64(totalMs) / float64(n)
		r.AverageConfidence = float64(totalConfidence) / float64(n)
	}

	r.ByModule = histogram(modules)
	r.ByType = histogram(types)
	r.ByImpact = histogram(impacts)
	r.ByPriority = histogram(priorities)
	r.ByStrategy = histogram(strategies)
	return r
}

// histogram orders buckets by count, descending, then key.
func histogram(m map[string]int) []Bucket {
	out := make([]Bucket, 0, len(m))
	for k, n := range m {
		out = append(out, Bucket{Key: k, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Key < out[j].Key
	})
	return out
}

// Count returns the count for key in buckets, or 0.
func Count(buckets []Bucket, key string) int {
	for _, b := range buckets {
		if b.Key == key {
			return b.Count
		}
	}
	return 0
}

const labelWidth = 22

var rule = strings.Repeat("─", 40)

// WriteText renders r as a plain-text report.
func WriteText(w io.Writer, r Report) error {
	var b strings.Builder
	b.WriteString("CONFLICT ANALYTICS\n")
	b.WriteString(rule + "\n")
	fmt.Fprintf(&b, "%-*s %d\n", labelWidth, "Total:", r.Total)
	fmt.Fprintf(&b, "%-*s %d (%.1f%%)\n", labelWidth, "Resolved:", r.Resolved, r.ResolutionRate*100)
	fmt.Fprintf(&b, "%-*s %d\n", labelWidth, "Pending:", r.Pending)
	fmt.Fprintf(&b, "%-*s %d\n", labelWidth, "Escalated:", r.Escalated)
	fmt.Fprintf(&b, "%-*s %.1f ms\n", labelWidth, "Avg resolution time:", r.AverageResolutionTimeMs)
	fmt.Fprintf(&b, "%-*s %.1f\n", labelWidth, "Avg confidence:", r.AverageConfidence)

	sections := []struct {
		title   string
		buckets []Bucket
	}{
		{"BY MODULE", r.ByModule},
		{"BY CONFLICT TYPE", r.ByType},
		{"BY BUSINESS IMPACT", r.ByImpact},
		{"BY PRIORITY", r.ByPriority},
		{"BY RESOLUTION STRATEGY", r.ByStrategy},
	}
	for _, s := range sections {
		b.WriteString("\n" + s.title + "\n" + rule + "\n")
		if len(s.buckets) == 0 {
			b.WriteString("  (none)\n")
			continue
		}
		for _, bk := range s.buckets {
			key := bk.Key
			if key == "" {
				key = "(unset)"
			}
			fmt.Fprintf(&b, "%-*s %d\n", labelWidth, key, bk.Count)
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// WriteJSON renders r as indented JSON.
func WriteJSON(w io.Writer, r Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}
