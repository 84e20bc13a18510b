package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/upkept/upkept-engine/pkg/models"
)

// Rule thresholds for the deterministic insight generator.
const (
	repeatOffenderMinIssues = 3
	failureRiskMinIssues    = 2
	failureRiskMinAgeDays   = 180
	failureRiskMaxNamed     = 3
	anomalyWindowDays       = 7
	anomalyShareThreshold   = 0.30
	downtimeEscalationHours = 20
	healthyActiveShare      = 0.85
)

// GenerateRuleInsights derives insights from item and issue aggregates
// without any model call. It is a pure function: given the same inputs and
// the same clock it returns the same list, in fixed rule order. Each rule
// independently emits zero or one insight, so the result holds between 0
// and 6 entries.
//
// The issue list is expected in reported_at-descending order (the order
// ListWithItems returns); the repeat-offender tie-break depends on it.
func GenerateRuleInsights(items []*models.Item, issues []models.IssueWithItem, now time.Time) []models.Insight {
	var insights []models.Insight

	issuesByItem := make(map[int64]int)
	namesByItem := make(map[int64]string)
	itemOrder := make([]int64, 0, len(issues))
	for _, issue := range issues {
		if _, seen := issuesByItem[issue.ItemID]; !seen {
			itemOrder = append(itemOrder, issue.ItemID)
			namesByItem[issue.ItemID] = issue.ItemName
		}
		issuesByItem[issue.ItemID]++
	}

	criticalIssues := 0
	recentIssues := 0
	recentCutoff := now.AddDate(0, 0, -anomalyWindowDays)
	for _, issue := range issues {
		if issue.IsCritical {
			criticalIssues++
		}
		if !issue.ReportedAt.Before(recentCutoff) {
			recentIssues++
		}
	}

	activeItems := 0
	maintenanceNeeded := 0
	for _, item := range items {
		switch item.Status {
		case models.ItemStatusActive:
			activeItems++
		case models.ItemStatusMaintenanceNeeded:
			maintenanceNeeded++
		}
	}

	// Rule 1: repeat offender. The item with the most issues among those
	// with at least three; ties go to the item seen first in the
	// newest-first issue list.
	var offenderID int64
	offenderCount := 0
	for _, itemID := range itemOrder {
		if count := issuesByItem[itemID]; count >= repeatOffenderMinIssues && count > offenderCount {
			offenderID = itemID
			offenderCount = count
		}
	}
	if offenderCount > 0 {
		name := namesByItem[offenderID]
		insights = append(insights, models.Insight{
			Type:     models.InsightTypePrediction,
			Category: models.InsightCategoryMaintenance,
			Title:    fmt.Sprintf("Maintenance needed soon: %s", name),
			Description: fmt.Sprintf("%s has accumulated %d issues and is likely to need maintenance.",
				name, offenderCount),
			Priority:       models.PriorityHigh,
			Confidence:     82,
			Timeline:       "7-10 days",
			AffectedItems:  []string{name},
			ActionRequired: true,
		})
	}

	// Rule 2: failure risk. Aging items that keep collecting issues.
	var atRisk []string
	for _, item := range items {
		if issuesByItem[item.ID] >= failureRiskMinIssues && item.AgeDays(now) > failureRiskMinAgeDays {
			atRisk = append(atRisk, item.Name)
		}
	}
	if len(atRisk) > 0 {
		named := atRisk
		if len(named) > failureRiskMaxNamed {
			named = named[:failureRiskMaxNamed]
		}
		insights = append(insights, models.Insight{
			Type:     models.InsightTypeRisk,
			Category: models.InsightCategoryFailureRisk,
			Title:    "Elevated failure risk on aging equipment",
			Description: fmt.Sprintf("%d aging item(s) with repeated issues: %s.",
				len(atRisk), strings.Join(named, ", ")),
			Priority:       models.PriorityHigh,
			Confidence:     78,
			Timeline:       "within 30 days",
			AffectedItems:  named,
			ActionRequired: true,
		})
	}

	// Rule 3: anomaly. A burst of recent reports relative to the total.
	if len(issues) > 0 && float64(recentIssues) > anomalyShareThreshold*float64(len(issues)) {
		insights = append(insights, models.Insight{
			Type:     models.InsightTypeAnomaly,
			Category: models.InsightCategoryAnomaly,
			Title:    "Unusual spike in reported issues",
			Description: fmt.Sprintf("%d of %d issues were reported in the last %d days.",
				recentIssues, len(issues), anomalyWindowDays),
			Priority:   models.PriorityMedium,
			Confidence: 85,
		})
	}

	// Rule 4: downtime projection.
	downtimeHours := criticalIssues*4 + maintenanceNeeded*2
	if downtimeHours < 0 {
		downtimeHours = 0
	}
	if downtimeHours > 0 {
		priority := models.PriorityMedium
		costImpact := models.CostImpactMedium
		actionRequired := false
		if downtimeHours > downtimeEscalationHours {
			priority = models.PriorityHigh
			costImpact = models.CostImpactHigh
			actionRequired = true
		}
		insights = append(insights, models.Insight{
			Type:     models.InsightTypePrediction,
			Category: models.InsightCategoryDowntime,
			Title:    "Projected downtime from outstanding problems",
			Description: fmt.Sprintf("Roughly %d hours of downtime projected from %d critical issue(s) and %d item(s) needing maintenance.",
				downtimeHours, criticalIssues, maintenanceNeeded),
			Priority:       priority,
			Confidence:     72,
			CostImpact:     costImpact,
			ActionRequired: actionRequired,
		})
	}

	// Rule 5: recommended action.
	if criticalIssues > 0 || maintenanceNeeded > 0 {
		insights = append(insights, models.Insight{
			Type:     models.InsightTypeAction,
			Category: models.InsightCategoryRecommendation,
			Title:    "Schedule maintenance for flagged equipment",
			Description: fmt.Sprintf("Address %d critical issue(s) and %d item(s) flagged for maintenance before they escalate.",
				criticalIssues, maintenanceNeeded),
			Priority:       models.PriorityHigh,
			Confidence:     90,
			CostImpact:     models.CostImpactLow,
			ActionRequired: true,
		})
	}

	// Rule 6: positive performance.
	if len(items) > 0 && float64(activeItems)/float64(len(items)) >= healthyActiveShare {
		insights = append(insights, models.Insight{
			Type:     models.InsightTypePositive,
			Category: models.InsightCategoryPerformance,
			Title:    "Fleet availability is healthy",
			Description: fmt.Sprintf("%d of %d items are active.",
				activeItems, len(items)),
			Priority:   models.PriorityInfo,
			Confidence: 95,
		})
	}

	return insights
}
