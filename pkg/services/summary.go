package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/upkept/upkept-engine/pkg/llm"
	"github.com/upkept/upkept-engine/pkg/models"
	"github.com/upkept/upkept-engine/pkg/prompts"
	"github.com/upkept/upkept-engine/pkg/repositories"
)

// Summary is the structured fleet summary streamed to the dashboard.
type Summary struct {
	Summary         string   `json:"summary"`
	KeyInsights     []string `json:"keyInsights"`
	Recommendations []string `json:"recommendations"`
}

// SummaryService produces a streamed management summary of the fleet.
type SummaryService interface {
	// Stream generates the summary, sending raw text chunks to the channel
	// as they arrive and returning the final parsed summary. The channel is
	// closed before returning. A model failure yields a fixed deterministic
	// summary instead of an error.
	Stream(ctx context.Context, chunks chan<- string) (*Summary, error)
}

type summaryService struct {
	itemRepo   repositories.ItemRepository
	issueRepo  repositories.IssueRepository
	llmClient  llm.LLMClient // nil when no model is configured
	llmTimeout time.Duration
	logger     *zap.Logger
	now        func() time.Time
}

// NewSummaryService creates a summary service. A nil LLM client is valid;
// the service then always returns the deterministic summary.
func NewSummaryService(itemRepo repositories.ItemRepository, issueRepo repositories.IssueRepository, llmClient llm.LLMClient, llmTimeout time.Duration, logger *zap.Logger) SummaryService {
	if llmTimeout == 0 {
		llmTimeout = 60 * time.Second
	}
	return &summaryService{
		itemRepo:   itemRepo,
		issueRepo:  issueRepo,
		llmClient:  llmClient,
		llmTimeout: llmTimeout,
		logger:     logger.Named("summary"),
		now:        time.Now,
	}
}

// Stream implements SummaryService.
func (s *summaryService) Stream(ctx context.Context, chunks chan<- string) (*Summary, error) {
	defer close(chunks)

	items, err := s.itemRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch items: %w", err)
	}
	issues, err := s.issueRepo.ListWithItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch issues: %w", err)
	}

	ruleInsights := GenerateRuleInsights(items, issues, s.now())

	if s.llmClient == nil {
		return fallbackSummary(items, issues, ruleInsights), nil
	}

	prompt := prompts.BuildSummaryPrompt(BuildMetricsContext(items, issues), ruleInsights)

	callCtx, cancel := context.WithTimeout(ctx, s.llmTimeout)
	defer cancel()

	// Forward chunks to the caller while accumulating the full response
	// for the terminal parse.
	raw := make(chan string)
	var accumulated string
	done := make(chan struct{})
	go func() {
		defer close(done)
		for chunk := range raw {
			accumulated += chunk
			select {
			case chunks <- chunk:
			case <-ctx.Done():
			}
		}
	}()

	streamErr := s.llmClient.CompleteStream(callCtx, prompt, prompts.InsightSystemMessage, raw)
	close(raw)
	<-done

	if streamErr != nil {
		s.logger.Warn("LLM summary stream failed, using fallback summary",
			zap.Error(streamErr))
		return fallbackSummary(items, issues, ruleInsights), nil
	}

	summary, err := llm.ParseJSONResponse[Summary](accumulated)
	if err != nil || summary.Summary == "" {
		s.logger.Warn("LLM summary response malformed, using fallback summary",
			zap.Error(err))
		return fallbackSummary(items, issues, ruleInsights), nil
	}

	return &summary, nil
}

// fallbackSummary builds a deterministic summary from aggregates when the
// model is unavailable.
func fallbackSummary(items []*models.Item, issues []models.IssueWithItem, insights []models.Insight) *Summary {
	m := BuildMetricsContext(items, issues)

	summary := &Summary{
		Summary: fmt.Sprintf(
			"Tracking %d items with %d recorded issues. %d issues are open, %d flagged critical. Resolution rate is %d%%.",
			m.TotalItems, m.TotalIssues, m.OpenIssues, m.CriticalIssues, m.ResolutionRatePercent),
	}

	for _, ins := range insights {
		if len(summary.KeyInsights) >= 3 {
			break
		}
		summary.KeyInsights = append(summary.KeyInsights, ins.Title)
	}
	if len(summary.KeyInsights) == 0 {
		summary.KeyInsights = []string{"No notable patterns detected across the fleet"}
	}

	if m.CriticalIssues > 0 {
		summary.Recommendations = append(summary.Recommendations,
			fmt.Sprintf("Address the %d critical issues first", m.CriticalIssues))
	}
	if m.MaintenanceNeeded > 0 {
		summary.Recommendations = append(summary.Recommendations,
			fmt.Sprintf("Schedule maintenance for the %d items flagged as needing it", m.MaintenanceNeeded))
	}
	if len(summary.Recommendations) == 0 {
		summary.Recommendations = []string{"Keep logging issues to improve trend detection"}
	}

	return summary
}

var _ SummaryService = (*summaryService)(nil)
