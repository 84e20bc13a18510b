package services

import (
	"reflect"
	"testing"
	"time"

	"github.com/upkept/upkept-engine/pkg/models"
)

func filterFixture() []models.IssueWithItem {
	base := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	leak := testIssue(1, 10, "Pump A", base.AddDate(0, 0, -2))
	leak.Description = "Water leaking from the seal"
	leak.IssueType = "leak"
	leak.Urgency = models.UrgencyHigh

	noise := testIssue(2, 20, "Elevator B", base.AddDate(0, 0, -40))
	noise.Description = "Grinding noise on floor 3"
	noise.IssueType = "noise"
	noise.Status = models.IssueStatusResolved

	electrical := testIssue(3, 30, "Generator C", base.AddDate(0, 0, -5))
	electrical.Description = "Breaker trips under load"
	electrical.IssueType = "electrical"
	electrical.Urgency = models.UrgencyCritical
	electrical.Status = models.IssueStatusInProgress
	electrical.ItemLocation = "Basement"

	return []models.IssueWithItem{leak, noise, electrical}
}

func TestFilterIssues_EmptySpecReturnsAll(t *testing.T) {
	issues := filterFixture()
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	out := FilterIssues(issues, models.FilterSpec{}, now)

	if len(out) != len(issues) {
		t.Fatalf("expected %d issues, got %d", len(issues), len(out))
	}
	// The result must be a copy, not an alias of the input.
	out[0].Description = "mutated"
	if issues[0].Description == "mutated" {
		t.Error("filter result aliases the input slice")
	}
}

func TestFilterIssues_OrWithinField(t *testing.T) {
	issues := filterFixture()
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	out := FilterIssues(issues, models.FilterSpec{
		Statuses: []string{models.IssueStatusOpen, models.IssueStatusInProgress},
	}, now)

	if len(out) != 2 {
		t.Fatalf("expected 2 issues, got %d", len(out))
	}
	for _, issue := range out {
		if issue.Status == models.IssueStatusResolved {
			t.Errorf("resolved issue %d leaked through status filter", issue.ID)
		}
	}
}

func TestFilterIssues_AndAcrossFields(t *testing.T) {
	issues := filterFixture()
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	// in_progress AND critical matches only the generator issue.
	out := FilterIssues(issues, models.FilterSpec{
		Statuses:  []string{models.IssueStatusInProgress},
		Urgencies: []string{models.UrgencyCritical},
	}, now)

	if len(out) != 1 || out[0].ID != 3 {
		t.Fatalf("expected only issue 3, got %v", ids(out))
	}

	// in_progress AND low matches nothing.
	out = FilterIssues(issues, models.FilterSpec{
		Statuses:  []string{models.IssueStatusInProgress},
		Urgencies: []string{models.UrgencyLow},
	}, now)
	if len(out) != 0 {
		t.Fatalf("expected no matches, got %v", ids(out))
	}
}

func TestFilterIssues_SearchAcrossFields(t *testing.T) {
	issues := filterFixture()
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		search string
		want   []int64
	}{
		{"LEAK", []int64{1}},        // description, case-insensitive
		{"elevator", []int64{2}},    // item name
		{"basement", []int64{3}},    // item location
		{"turbine", nil},            // no match anywhere
	}

	for _, tt := range tests {
		out := FilterIssues(issues, models.FilterSpec{SearchText: tt.search}, now)
		if !reflect.DeepEqual(ids(out), tt.want) {
			t.Errorf("search %q: expected %v, got %v", tt.search, tt.want, ids(out))
		}
	}
}

func TestFilterIssues_RelativeDateWindow(t *testing.T) {
	issues := filterFixture()
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	out := FilterIssues(issues, models.FilterSpec{
		DateWindow: &models.DateWindow{Days: 7},
	}, now)

	if !reflect.DeepEqual(ids(out), []int64{1, 3}) {
		t.Fatalf("expected issues 1 and 3 inside the 7-day window, got %v", ids(out))
	}

	// The window slides with the clock: thirty days later the same rows
	// fall outside it.
	out = FilterIssues(issues, models.FilterSpec{
		DateWindow: &models.DateWindow{Days: 7},
	}, now.AddDate(0, 0, 30))
	if len(out) != 0 {
		t.Fatalf("expected no issues after the window slid, got %v", ids(out))
	}
}

func TestFilterIssues_ExplicitDateRange(t *testing.T) {
	issues := filterFixture()
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	start := now.AddDate(0, 0, -50)
	end := now.AddDate(0, 0, -30)

	out := FilterIssues(issues, models.FilterSpec{
		DateWindow: &models.DateWindow{Start: &start, End: &end},
	}, now)

	if !reflect.DeepEqual(ids(out), []int64{2}) {
		t.Fatalf("expected only issue 2 in the explicit range, got %v", ids(out))
	}
}

func TestFilterIssues_IdempotentUnderFrozenClock(t *testing.T) {
	issues := filterFixture()
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	spec := models.FilterSpec{
		Statuses:   []string{models.IssueStatusOpen, models.IssueStatusInProgress},
		DateWindow: &models.DateWindow{Days: 7},
	}

	once := FilterIssues(issues, spec, now)
	twice := FilterIssues(once, spec, now)

	if !reflect.DeepEqual(once, twice) {
		t.Error("filtering its own output changed the result")
	}
}

func TestFilterIssues_PreservesInputOrder(t *testing.T) {
	issues := filterFixture()
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	out := FilterIssues(issues, models.FilterSpec{
		Statuses: []string{models.IssueStatusOpen, models.IssueStatusInProgress, models.IssueStatusResolved},
	}, now)

	if !reflect.DeepEqual(ids(out), []int64{1, 2, 3}) {
		t.Fatalf("expected input order preserved, got %v", ids(out))
	}
}

func ids(issues []models.IssueWithItem) []int64 {
	var out []int64
	for _, issue := range issues {
		out = append(out, issue.ID)
	}
	return out
}
