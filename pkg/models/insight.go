package models

// Insight types.
const (
	InsightTypePrediction  = "prediction"
	InsightTypeRisk        = "risk"
	InsightTypeAnomaly     = "anomaly"
	InsightTypeMaintenance = "maintenance"
	InsightTypeAction      = "action"
	InsightTypePositive    = "positive"
	InsightTypeWarning     = "warning"
)

// Insight categories.
const (
	InsightCategoryMaintenance    = "maintenance"
	InsightCategoryFailureRisk    = "failure_risk"
	InsightCategoryAnomaly        = "anomaly"
	InsightCategoryDowntime       = "downtime"
	InsightCategoryRecommendation = "recommendation"
	InsightCategoryPerformance    = "performance"
)

// Insight priorities.
const (
	PriorityCritical = "critical"
	PriorityHigh     = "high"
	PriorityMedium   = "medium"
	PriorityLow      = "low"
	PriorityInfo     = "info"
)

// CostImpact levels.
const (
	CostImpactHigh   = "high"
	CostImpactMedium = "medium"
	CostImpactLow    = "low"
)

// priorityRank orders insight priorities for ranking.
var priorityRank = map[string]int{
	PriorityCritical: 4,
	PriorityHigh:     3,
	PriorityMedium:   2,
	PriorityLow:      1,
	PriorityInfo:     0,
}

// Insight is a ranked recommendation derived from item and issue aggregates.
// Insights are never persisted; they are recomputed on each request and
// optionally merged with LLM output.
type Insight struct {
	Type           string   `json:"type"`
	Category       string   `json:"category"`
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	Priority       string   `json:"priority"`
	Confidence     int      `json:"confidence"`
	Timeline       string   `json:"timeline,omitempty"`
	AffectedItems  []string `json:"affected_items,omitempty"`
	CostImpact     string   `json:"cost_impact,omitempty"`
	ActionRequired bool     `json:"action_required"`
}

// PriorityRank returns the ordinal of an insight priority. Unknown
// priorities rank lowest, alongside info.
func PriorityRank(p string) int {
	return priorityRank[p]
}

// IsValidPriority reports whether p is a known insight priority.
func IsValidPriority(p string) bool {
	_, ok := priorityRank[p]
	return ok
}
