package services

import (
	"sort"
	"strings"

	"github.com/upkept/upkept-engine/pkg/models"
)

// RankInsights orders insights by priority (critical > high > medium >
// low > info), breaking ties by confidence descending. The sort is stable:
// insights with equal priority and confidence keep their input order,
// which is what lets LLM-sourced insights win ties when merged first.
//
// After sorting, near-duplicates are dropped: an insight is kept only if
// no already-kept, higher-ranked insight's title contains the first
// whitespace token of its title (case-insensitive). The heuristic is
// deliberately weak and order-dependent; callers depend on which insight
// survives, so it must not be "improved" without product sign-off.
func RankInsights(insights []models.Insight) []models.Insight {
	ranked := make([]models.Insight, len(insights))
	copy(ranked, insights)

	sort.SliceStable(ranked, func(a, b int) bool {
		pa, pb := models.PriorityRank(ranked[a].Priority), models.PriorityRank(ranked[b].Priority)
		if pa != pb {
			return pa > pb
		}
		return ranked[a].Confidence > ranked[b].Confidence
	})

	kept := make([]models.Insight, 0, len(ranked))
	for _, candidate := range ranked {
		token := firstTitleToken(candidate.Title)
		duplicate := false
		for _, existing := range kept {
			if token != "" && strings.Contains(strings.ToLower(existing.Title), token) {
				duplicate = true
				break
			}
		}
		if !duplicate {
			kept = append(kept, candidate)
		}
	}

	return kept
}

// MergeInsights combines LLM-sourced and rule-based insights, ranks them,
// and truncates to max. LLM insights are concatenated first so the stable
// sort lets them win exact priority/confidence ties.
func MergeInsights(llmInsights, ruleInsights []models.Insight, max int) []models.Insight {
	merged := make([]models.Insight, 0, len(llmInsights)+len(ruleInsights))
	merged = append(merged, llmInsights...)
	merged = append(merged, ruleInsights...)

	ranked := RankInsights(merged)
	if max > 0 && len(ranked) > max {
		ranked = ranked[:max]
	}
	return ranked
}

// firstTitleToken returns the first whitespace-delimited token of a title,
// lowercased.
func firstTitleToken(title string) string {
	fields := strings.Fields(title)
	if len(fields) == 0 {
		return ""
	}
	return strings.ToLower(fields[0])
}
