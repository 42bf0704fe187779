package types

import (
	"testing"
	"time"
)

func nowForTest() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }

func TestJobState_CanTransitionTo(t *testing.T) {
	tests := []struct {
		name string
		from JobState
		to   JobState
		want bool
	}{
		{"queued to running", JobQueued, JobRunning, true},
		{"queued to completed skips running", JobQueued, JobCompleted, false},
		{"running to completed", JobRunning, JobCompleted, true},
		{"running to failed", JobRunning, JobFailed, true},
		{"completed is terminal", JobCompleted, JobRunning, false},
		{"failed is terminal", JobFailed, JobRunning, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
				t.Fatalf("%s.CanTransitionTo(%s) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestComplianceProfile_ExtractionAllowed(t *testing.T) {
	tests := []struct {
		name     string
		risk     RiskLevel
		override bool
		want     bool
	}{
		{"permissive always allowed", RiskPermissive, false, true},
		{"neutral always allowed", RiskNeutral, false, true},
		{"high risk without override refused", RiskHighRisk, false, false},
		{"high risk with override allowed", RiskHighRisk, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := ComplianceProfile{Risk: tt.risk}
			if got := p.ExtractionAllowed(tt.override); got != tt.want {
				t.Fatalf("ExtractionAllowed(%v) = %v, want %v", tt.override, got, tt.want)
			}
		})
	}
}

func TestDefaultProfile(t *testing.T) {
	p := DefaultProfile()
	if p.Risk != RiskNeutral {
		t.Fatalf("default profile risk = %v, want neutral", p.Risk)
	}
	if p.Warning == "" {
		t.Fatal("default profile must carry a non-empty warning")
	}
	if !p.ExtractionAllowed(false) {
		t.Fatal("default (neutral) profile must allow extraction without override")
	}
}

func TestExtractionEvent_IsTerminal(t *testing.T) {
	completed := NewJobStateChange("job-1", nowForTest(), JobCompleted, "")
	failed := NewJobStateChange("job-1", nowForTest(), JobFailed, "boom")
	running := NewJobStateChange("job-1", nowForTest(), JobRunning, "")
	progress := NewAssetIndexingProgress("job-1", nowForTest(), 1, 10)

	if !completed.IsTerminal() {
		t.Fatal("completed state change must be terminal")
	}
	if !failed.IsTerminal() {
		t.Fatal("failed state change must be terminal")
	}
	if running.IsTerminal() {
		t.Fatal("running state change must not be terminal")
	}
	if progress.IsTerminal() {
		t.Fatal("progress event must not be terminal")
	}
}
