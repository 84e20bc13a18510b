package services

import (
	"math"
	"time"

	"github.com/upkept/upkept-engine/pkg/models"
)

// StatusCount pairs an issue status with a count.
type StatusCount struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

// PriorityCount pairs an urgency level with a count.
type PriorityCount struct {
	Urgency string `json:"urgency"`
	Count   int    `json:"count"`
}

// MonthCount pairs a month label with a count.
type MonthCount struct {
	Month string `json:"month"`
	Count int    `json:"count"`
}

// Metrics summarizes an issue list for the dashboard and reports views.
type Metrics struct {
	Total      int             `json:"total"`
	Open       int             `json:"open"`
	Resolved   int             `json:"resolved"`
	Critical   int             `json:"critical"`
	ByStatus   []StatusCount   `json:"by_status"`
	ByPriority []PriorityCount `json:"by_priority"`
	ByMonth    []MonthCount    `json:"by_month"`
}

// trailingMonths is how many calendar months ByMonth always covers.
const trailingMonths = 6

var statusDisplayOrder = []string{
	models.IssueStatusOpen,
	models.IssueStatusInProgress,
	models.IssueStatusResolved,
	models.IssueStatusClosed,
}

var urgencyDisplayOrder = []string{
	models.UrgencyLow,
	models.UrgencyMedium,
	models.UrgencyHigh,
	models.UrgencyCritical,
}

// AggregateIssues computes summary counts from an issue list.
// ByMonth always covers exactly the trailing six calendar months ending at
// the current month, zero-filled and ordered oldest to newest; months with
// no issues are present with a zero count, not omitted.
func AggregateIssues(issues []models.IssueWithItem, now time.Time) Metrics {
	m := Metrics{Total: len(issues)}

	statusCounts := make(map[string]int)
	urgencyCounts := make(map[string]int)
	monthCounts := make(map[string]int)

	for _, issue := range issues {
		statusCounts[issue.Status]++
		urgencyCounts[issue.Urgency]++
		monthCounts[issue.ReportedAt.Format("Jan 2006")]++

		if models.IsOpenStatus(issue.Status) {
			m.Open++
		}
		if issue.Status == models.IssueStatusResolved {
			m.Resolved++
		}
		if issue.IsCritical {
			m.Critical++
		}
	}

	for _, status := range statusDisplayOrder {
		if count := statusCounts[status]; count > 0 {
			m.ByStatus = append(m.ByStatus, StatusCount{Status: status, Count: count})
		}
	}

	for _, urgency := range urgencyDisplayOrder {
		if count := urgencyCounts[urgency]; count > 0 {
			m.ByPriority = append(m.ByPriority, PriorityCount{Urgency: urgency, Count: count})
		}
	}

	m.ByMonth = make([]MonthCount, 0, trailingMonths)
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).
		AddDate(0, -(trailingMonths - 1), 0)
	for i := 0; i < trailingMonths; i++ {
		label := first.AddDate(0, i, 0).Format("Jan 2006")
		m.ByMonth = append(m.ByMonth, MonthCount{Month: label, Count: monthCounts[label]})
	}

	return m
}

// ResolutionRate returns the percentage of issues counted as dealt with.
//
// The subtraction uses strictly status == "open": in_progress issues count
// toward the rate even though dashboard "open" counts include them. The
// asymmetry is inherited from the product's existing reports, which
// downstream consumers already expect; do not "fix" it without product
// sign-off.
func ResolutionRate(issues []models.IssueWithItem) int {
	if len(issues) == 0 {
		return 0
	}

	openOnly := 0
	for _, issue := range issues {
		if issue.Status == models.IssueStatusOpen {
			openOnly++
		}
	}

	rate := float64(len(issues)-openOnly) / float64(len(issues)) * 100
	return int(math.Round(rate))
}
