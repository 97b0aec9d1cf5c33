package approval

import (
	"testing"
	"time"
)

func TestWorkflow_Status(t *testing.T) {
	tests := []struct {
		name  string
		steps []StepStatus
		want  Status
	}{
		{"empty", nil, StatusInProgress},
		{"all pending", []StepStatus{StepPending, StepPending}, StatusInProgress},
		{"partial", []StepStatus{StepApproved, StepPending}, StatusInProgress},
		{"all approved", []StepStatus{StepApproved, StepApproved}, StatusComplete},
		{"approved and skipped", []StepStatus{StepSkipped, StepApproved}, StatusComplete},
		{"rejected", []StepStatus{StepApproved, StepRejected}, StatusBlocked},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var wf Workflow
			for _, s := range tt.steps {
				wf.Steps = append(wf.Steps, Step{ID: string(s), ApproverRole: "r", Status: s})
			}
			if got := wf.Status(); got != tt.want {
				t.Errorf("Status() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWorkflow_Current(t *testing.T) {
	wf := Workflow{Steps: []Step{
		{ID: "a", Status: StepApproved},
		{ID: "b", Status: StepPending},
	}}
	s, ok := wf.Current()
	if !ok || s.ID != "b" {
		t.Errorf("Current() = %q, %v", s.ID, ok)
	}
	wf.Steps[1].Status = StepSkipped
	if _, ok := wf.Current(); ok {
		t.Error("no step should be current")
	}
}

func TestWorkflow_Clone(t *testing.T) {
	ts := time.Now()
	wf := Workflow{BoundAt: &ts, Steps: []Step{{ID: "a", Timestamp: &ts}}}
	cp := wf.Clone()
	cp.Steps[0].ID = "z"
	*cp.Steps[0].Timestamp = ts.Add(time.Hour)
	*cp.BoundAt = ts.Add(time.Hour)

	if wf.Steps[0].ID != "a" || !wf.Steps[0].Timestamp.Equal(ts) || !wf.BoundAt.Equal(ts) {
		t.Error("clone shares state with original")
	}
}
