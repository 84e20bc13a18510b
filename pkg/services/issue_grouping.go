package services

import (
	"sort"

	"github.com/upkept/upkept-engine/pkg/models"
)

// UngroupedKey is the sentinel group key for issues without a similarity
// group. Ungrouped issues are always rendered individually, never inside a
// collapsible group, no matter how many of them share an item.
const UngroupedKey = "ungrouped"

// IssueGroup is one similarity group within an asset's issues.
type IssueGroup struct {
	Issues            []models.IssueWithItem `json:"issues"`
	HasOpenIssues     bool                   `json:"has_open_issues"`
	HasCriticalIssues bool                   `json:"has_critical_issues"`
}

// AssetGroup collects all issues reported against one item, partitioned by
// similarity group.
type AssetGroup struct {
	ItemID        int64                  `json:"item_id"`
	ItemName      string                 `json:"item_name"`
	TotalCount    int                    `json:"total_count"`
	OpenCount     int                    `json:"open_count"`
	CriticalCount int                    `json:"critical_count"`
	Groups        map[string]*IssueGroup `json:"groups"`
}

// GroupIssues partitions a flat issue list by owning item and then by
// similarity group. Issues are ordered newest first before partitioning;
// ties on reported_at keep their input order so results are deterministic.
// The newest-first order is a display invariant, not a convenience:
// downstream "load more" pagination depends on it.
//
// Items with zero issues never appear in the output. The map is built from
// the issue list alone, which matches the product's current behavior.
func GroupIssues(issues []models.IssueWithItem) map[int64]*AssetGroup {
	sorted := make([]models.IssueWithItem, len(issues))
	copy(sorted, issues)
	sort.SliceStable(sorted, func(a, b int) bool {
		return sorted[a].ReportedAt.After(sorted[b].ReportedAt)
	})

	out := make(map[int64]*AssetGroup)
	for _, issue := range sorted {
		asset, ok := out[issue.ItemID]
		if !ok {
			asset = &AssetGroup{
				ItemID:   issue.ItemID,
				ItemName: issue.ItemName,
				Groups:   make(map[string]*IssueGroup),
			}
			out[issue.ItemID] = asset
		}

		key := UngroupedKey
		if issue.GroupID != nil && *issue.GroupID != "" {
			key = *issue.GroupID
		}

		group, ok := asset.Groups[key]
		if !ok {
			group = &IssueGroup{}
			asset.Groups[key] = group
		}

		group.Issues = append(group.Issues, issue)
		asset.TotalCount++
		if models.IsOpenStatus(issue.Status) {
			asset.OpenCount++
			group.HasOpenIssues = true
		}
		if issue.IsCritical {
			asset.CriticalCount++
			group.HasCriticalIssues = true
		}
	}

	return out
}
