// Package prompts builds the prompt strings sent to the LLM endpoint.
// Every prompt pins down the exact JSON shape expected back; the llm
// package still parses responses defensively since models do not always
// comply.
package prompts

import (
	"fmt"
	"strings"

	"github.com/upkept/upkept-engine/pkg/models"
)

// InsightSystemMessage frames the model as a maintenance analyst.
const InsightSystemMessage = "You are a maintenance analyst for an equipment tracking system. " +
	"Respond with JSON only, no prose outside the JSON."

// MetricsContext is the aggregate snapshot included in insight and summary
// prompts.
type MetricsContext struct {
	TotalItems            int
	ActiveItems           int
	MaintenanceNeeded     int
	TotalIssues           int
	OpenIssues            int
	CriticalIssues        int
	ResolutionRatePercent int
	TopItems              []ItemIssueCount
}

// ItemIssueCount names an item and how many issues it has accumulated.
type ItemIssueCount struct {
	Name       string
	IssueCount int
}

// BuildInsightPrompt creates the prompt asking the model for additional
// insights on top of the rule-based ones.
func BuildInsightPrompt(m MetricsContext) string {
	var prompt strings.Builder

	prompt.WriteString("# Equipment Fleet Snapshot\n\n")
	writeMetrics(&prompt, m)

	prompt.WriteString("\n## Task\n\n")
	prompt.WriteString("Produce up to 4 insights about this fleet as a JSON array. Each element:\n")
	prompt.WriteString(`{"type": "prediction|risk|anomaly|maintenance|action|positive|warning", ` +
		`"category": "maintenance|failure_risk|anomaly|downtime|recommendation|performance", ` +
		`"title": "...", "description": "...", ` +
		`"priority": "critical|high|medium|low|info", "confidence": 0-100, ` +
		`"timeline": "...", "affected_items": ["..."], ` +
		`"cost_impact": "high|medium|low", "action_required": true|false}`)
	prompt.WriteString("\n\nReturn only the JSON array.\n")

	return prompt.String()
}

// BuildSummaryPrompt creates the prompt for the streamed fleet summary.
func BuildSummaryPrompt(m MetricsContext, insights []models.Insight) string {
	var prompt strings.Builder

	prompt.WriteString("# Equipment Fleet Snapshot\n\n")
	writeMetrics(&prompt, m)

	if len(insights) > 0 {
		prompt.WriteString("\n## Current Insights\n\n")
		for _, ins := range insights {
			prompt.WriteString(fmt.Sprintf("- [%s] %s: %s\n", ins.Priority, ins.Title, ins.Description))
		}
	}

	prompt.WriteString("\n## Task\n\n")
	prompt.WriteString("Write a management summary of the fleet's health. Respond with a single JSON object:\n")
	prompt.WriteString(`{"summary": "...", "keyInsights": ["..."], "recommendations": ["..."]}`)
	prompt.WriteString("\n\nReturn only the JSON object.\n")

	return prompt.String()
}

// NLQuerySystemMessage frames the model as a query translator.
const NLQuerySystemMessage = "You translate natural-language questions about equipment issues " +
	"into a JSON filter. Respond with JSON only."

// BuildNLQueryPrompt creates the prompt translating a free-form question
// into a FilterSpec.
func BuildNLQueryPrompt(query string) string {
	var prompt strings.Builder

	prompt.WriteString("Translate this question about equipment issues into a JSON filter.\n\n")
	prompt.WriteString(fmt.Sprintf("Question: %q\n\n", query))
	prompt.WriteString("Respond with a single JSON object of this shape (omit fields that do not apply):\n")
	prompt.WriteString(`{"statuses": ["open"|"in_progress"|"resolved"|"closed"], ` +
		`"urgencies": ["low"|"medium"|"high"|"critical"], ` +
		`"types": ["..."], "search_text": "...", "date_window": {"days": N}}`)
	prompt.WriteString("\n\nReturn only the JSON object.\n")

	return prompt.String()
}

func writeMetrics(prompt *strings.Builder, m MetricsContext) {
	prompt.WriteString(fmt.Sprintf("Items: %d total, %d active, %d needing maintenance\n",
		m.TotalItems, m.ActiveItems, m.MaintenanceNeeded))
	prompt.WriteString(fmt.Sprintf("Issues: %d total, %d open, %d critical, resolution rate %d%%\n",
		m.TotalIssues, m.OpenIssues, m.CriticalIssues, m.ResolutionRatePercent))

	if len(m.TopItems) > 0 {
		prompt.WriteString("Items with the most issues:\n")
		for _, item := range m.TopItems {
			prompt.WriteString(fmt.Sprintf("- %s: %d issues\n", item.Name, item.IssueCount))
		}
	}
}
