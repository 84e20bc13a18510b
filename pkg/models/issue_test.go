package models

import (
	"testing"
	"time"
)

func TestTransition_ForwardOnly(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		from    string
		to      string
		wantErr bool
	}{
		{"open to in_progress", IssueStatusOpen, IssueStatusInProgress, false},
		{"open to resolved", IssueStatusOpen, IssueStatusResolved, false},
		{"in_progress to resolved", IssueStatusInProgress, IssueStatusResolved, false},
		{"resolved to closed", IssueStatusResolved, IssueStatusClosed, false},
		{"same status is allowed", IssueStatusResolved, IssueStatusResolved, false},
		{"closed to closed", IssueStatusClosed, IssueStatusClosed, false},
		{"open to closed skips resolution", IssueStatusOpen, IssueStatusClosed, true},
		{"in_progress to closed skips resolution", IssueStatusInProgress, IssueStatusClosed, true},
		{"resolved back to open", IssueStatusResolved, IssueStatusOpen, true},
		{"closed back to resolved", IssueStatusClosed, IssueStatusResolved, true},
		{"in_progress back to open", IssueStatusInProgress, IssueStatusOpen, true},
		{"unknown status", IssueStatusOpen, "abandoned", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			issue := Issue{Status: tt.from}
			out, err := issue.Transition(tt.to, now)

			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error transitioning %s -> %s", tt.from, tt.to)
				}
				if out.Status != tt.from {
					t.Errorf("failed transition must not change status, got %s", out.Status)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if out.Status != tt.to {
				t.Errorf("expected status %s, got %s", tt.to, out.Status)
			}
		})
	}
}

func TestTransition_ResolvedAtSetOnce(t *testing.T) {
	resolvedTime := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	later := resolvedTime.Add(48 * time.Hour)

	issue := Issue{Status: IssueStatusOpen}

	resolved, err := issue.Transition(IssueStatusResolved, resolvedTime)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved.ResolvedAt == nil || !resolved.ResolvedAt.Equal(resolvedTime) {
		t.Fatalf("expected ResolvedAt %v, got %v", resolvedTime, resolved.ResolvedAt)
	}

	// Moving on to closed must not clear or update the resolution stamp.
	closed, err := resolved.Transition(IssueStatusClosed, later)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if closed.ResolvedAt == nil || !closed.ResolvedAt.Equal(resolvedTime) {
		t.Errorf("expected ResolvedAt to stay %v, got %v", resolvedTime, closed.ResolvedAt)
	}

	// Re-resolving an already resolved issue keeps the original stamp.
	again, err := resolved.Transition(IssueStatusResolved, later)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !again.ResolvedAt.Equal(resolvedTime) {
		t.Errorf("expected original ResolvedAt %v, got %v", resolvedTime, again.ResolvedAt)
	}
}

// A closed issue always carries a resolution time, so closing is only
// permitted once the issue has been resolved.
func TestTransition_ClosedRequiresResolution(t *testing.T) {
	now := time.Now()
	for _, from := range []string{IssueStatusOpen, IssueStatusInProgress} {
		out, err := Issue{Status: from}.Transition(IssueStatusClosed, now)
		if err == nil {
			t.Fatalf("expected error closing %s issue, got status %s", from, out.Status)
		}
		if out.ResolvedAt != nil {
			t.Errorf("rejected transition must not set ResolvedAt, got %v", out.ResolvedAt)
		}
	}
}

func TestTransition_DoesNotMutateReceiver(t *testing.T) {
	now := time.Now()
	issue := Issue{Status: IssueStatusOpen}

	if _, err := issue.Transition(IssueStatusResolved, now); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if issue.Status != IssueStatusOpen || issue.ResolvedAt != nil {
		t.Errorf("Transition mutated its receiver: %+v", issue)
	}
}

func TestDeriveCritical(t *testing.T) {
	tests := []struct {
		urgency    string
		safetyFlag bool
		want       bool
	}{
		{UrgencyCritical, false, true},
		{UrgencyCritical, true, true},
		{UrgencyHigh, false, false},
		{UrgencyHigh, true, true},
		{UrgencyLow, false, false},
	}

	for _, tt := range tests {
		if got := DeriveCritical(tt.urgency, tt.safetyFlag); got != tt.want {
			t.Errorf("DeriveCritical(%q, %v) = %v, want %v", tt.urgency, tt.safetyFlag, got, tt.want)
		}
	}
}

func TestIsOpenStatus(t *testing.T) {
	if !IsOpenStatus(IssueStatusOpen) || !IsOpenStatus(IssueStatusInProgress) {
		t.Error("open and in_progress must count as open")
	}
	if IsOpenStatus(IssueStatusResolved) || IsOpenStatus(IssueStatusClosed) {
		t.Error("resolved and closed must not count as open")
	}
}
