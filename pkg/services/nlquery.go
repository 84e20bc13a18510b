package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/upkept/upkept-engine/pkg/llm"
	"github.com/upkept/upkept-engine/pkg/models"
	"github.com/upkept/upkept-engine/pkg/prompts"
	"github.com/upkept/upkept-engine/pkg/repositories"
	"github.com/upkept/upkept-engine/pkg/retry"
)

// maxQueryResults caps the issue list returned for a natural-language query.
const maxQueryResults = 20

// QueryResult is the answer to a natural-language issue query. The
// original question is echoed back alongside the filter it was translated
// into so the UI can show how the question was understood.
type QueryResult struct {
	Results    []models.IssueWithItem `json:"results"`
	Query      string                 `json:"query"`
	Filters    models.FilterSpec      `json:"filters"`
	TotalFound int                    `json:"totalFound"`
	Source     InsightSource          `json:"source"`
}

// QueryService answers free-form questions about issues by translating
// them into a structured filter.
type QueryService interface {
	Query(ctx context.Context, question string) (*QueryResult, error)
}

type queryService struct {
	issueRepo  repositories.IssueRepository
	llmClient  llm.LLMClient // nil when no model is configured
	llmTimeout time.Duration
	logger     *zap.Logger
	now        func() time.Time
}

// NewQueryService creates a query service. A nil LLM client is valid; the
// service then always uses the keyword interpretation.
func NewQueryService(issueRepo repositories.IssueRepository, llmClient llm.LLMClient, llmTimeout time.Duration, logger *zap.Logger) QueryService {
	if llmTimeout == 0 {
		llmTimeout = 20 * time.Second
	}
	return &queryService{
		issueRepo:  issueRepo,
		llmClient:  llmClient,
		llmTimeout: llmTimeout,
		logger:     logger.Named("query"),
		now:        time.Now,
	}
}

// Query implements QueryService.
func (s *queryService) Query(ctx context.Context, question string) (*QueryResult, error) {
	issues, err := s.issueRepo.ListWithItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch issues: %w", err)
	}

	spec, source := s.interpret(ctx, question)

	matched := FilterIssues(issues, spec, s.now())
	result := &QueryResult{
		Query:      question,
		Filters:    spec,
		TotalFound: len(matched),
		Source:     source,
	}
	if len(matched) > maxQueryResults {
		matched = matched[:maxQueryResults]
	}
	result.Results = matched

	return result, nil
}

// interpret translates a question into a FilterSpec. When the model is
// unavailable or fails, the question degrades to a keyword search so the
// endpoint still answers.
func (s *queryService) interpret(ctx context.Context, question string) (models.FilterSpec, InsightSource) {
	if s.llmClient == nil {
		return KeywordFilter(question), SourceRuleBased
	}

	callCtx, cancel := context.WithTimeout(ctx, s.llmTimeout)
	defer cancel()

	response, err := retry.DoWithResult(callCtx, retry.DefaultConfig(), func() (string, error) {
		return s.llmClient.Complete(callCtx, prompts.BuildNLQueryPrompt(question), prompts.NLQuerySystemMessage)
	})
	if err != nil {
		s.logger.Warn("LLM query interpretation failed, using keyword fallback",
			zap.Error(err))
		return KeywordFilter(question), SourceRuleBasedFallback
	}

	spec, err := llm.ParseJSONResponse[models.FilterSpec](response)
	if err != nil {
		s.logger.Warn("LLM query response malformed, using keyword fallback",
			zap.Error(err))
		return KeywordFilter(question), SourceRuleBasedFallback
	}

	spec = sanitizeFilter(spec)
	if spec.IsZero() {
		// The model produced an empty filter; treat the question as keywords
		// rather than returning every issue.
		return KeywordFilter(question), SourceAIEnhanced
	}
	return spec, SourceAIEnhanced
}

// KeywordFilter builds the degraded filter for a question: tokens longer
// than two characters joined as a single search phrase.
func KeywordFilter(question string) models.FilterSpec {
	var keywords []string
	for _, token := range strings.Fields(question) {
		token = strings.Trim(token, `.,!?"'`)
		if len(token) > 2 {
			keywords = append(keywords, token)
		}
	}
	return models.FilterSpec{SearchText: strings.Join(keywords, " ")}
}

// sanitizeFilter drops values the filter vocabulary does not recognize.
// Model output is untrusted and an invalid status or urgency would
// silently match nothing.
func sanitizeFilter(spec models.FilterSpec) models.FilterSpec {
	spec.Statuses = keepKnown(spec.Statuses, map[string]bool{
		models.IssueStatusOpen:       true,
		models.IssueStatusInProgress: true,
		models.IssueStatusResolved:   true,
		models.IssueStatusClosed:     true,
	})
	spec.Urgencies = keepKnown(spec.Urgencies, map[string]bool{
		models.UrgencyLow:      true,
		models.UrgencyMedium:   true,
		models.UrgencyHigh:     true,
		models.UrgencyCritical: true,
	})
	if spec.DateWindow != nil && spec.DateWindow.Days <= 0 &&
		spec.DateWindow.Start == nil && spec.DateWindow.End == nil {
		spec.DateWindow = nil
	}
	return spec
}

func keepKnown(values []string, known map[string]bool) []string {
	var kept []string
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if known[v] {
			kept = append(kept, v)
		}
	}
	return kept
}

var _ QueryService = (*queryService)(nil)
