package services

import (
	"strings"
	"time"

	"github.com/upkept/upkept-engine/pkg/models"
)

// FilterIssues applies a compound predicate to an issue list. It is pure
// and order-preserving: the result keeps the input's relative order and
// the input is never modified.
//
// Fields combine with logical AND; values within a field combine with OR.
// Relative date windows are evaluated against now, which is filter-
// evaluation time rather than fetch time; repeated calls over the same
// rows can yield different results as the window slides. That is
// documented behavior.
func FilterIssues(issues []models.IssueWithItem, spec models.FilterSpec, now time.Time) []models.IssueWithItem {
	if spec.IsZero() {
		out := make([]models.IssueWithItem, len(issues))
		copy(out, issues)
		return out
	}

	search := strings.ToLower(spec.SearchText)

	out := make([]models.IssueWithItem, 0, len(issues))
	for _, issue := range issues {
		if !matchesSet(issue.Status, spec.Statuses) {
			continue
		}
		if !matchesSet(issue.Urgency, spec.Urgencies) {
			continue
		}
		if !matchesSet(issue.IssueType, spec.Types) {
			continue
		}
		if search != "" && !matchesSearch(issue, search) {
			continue
		}
		if spec.DateWindow != nil && !matchesWindow(issue.ReportedAt, spec.DateWindow, now) {
			continue
		}
		out = append(out, issue)
	}

	return out
}

// matchesSet reports whether value is in the set; an empty set matches all.
func matchesSet(value string, set []string) bool {
	if len(set) == 0 {
		return true
	}
	for _, v := range set {
		if v == value {
			return true
		}
	}
	return false
}

// matchesSearch is a case-insensitive substring match across the issue
// description and the owning item's name and location.
func matchesSearch(issue models.IssueWithItem, search string) bool {
	return strings.Contains(strings.ToLower(issue.Description), search) ||
		strings.Contains(strings.ToLower(issue.ItemName), search) ||
		strings.Contains(strings.ToLower(issue.ItemLocation), search)
}

// matchesWindow reports whether reportedAt falls inside the date window.
func matchesWindow(reportedAt time.Time, window *models.DateWindow, now time.Time) bool {
	if window.Days > 0 {
		start := now.AddDate(0, 0, -window.Days)
		return !reportedAt.Before(start) && !reportedAt.After(now)
	}
	if window.Start != nil && reportedAt.Before(*window.Start) {
		return false
	}
	if window.End != nil && reportedAt.After(*window.End) {
		return false
	}
	return true
}
