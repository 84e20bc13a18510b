package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/upkept/upkept-engine/pkg/auth"
	"github.com/upkept/upkept-engine/pkg/llm"
	"github.com/upkept/upkept-engine/pkg/models"
	"github.com/upkept/upkept-engine/pkg/prompts"
	"github.com/upkept/upkept-engine/pkg/repositories"
	"github.com/upkept/upkept-engine/pkg/retry"
)

// InsightSource reports how an insight payload was produced. The three
// states are distinct on purpose: "rule-based" means no model is
// configured, "rule-based-fallback" means a configured model failed and
// the deterministic path took over.
type InsightSource string

const (
	SourceAIEnhanced        InsightSource = "ai-enhanced"
	SourceRuleBased         InsightSource = "rule-based"
	SourceRuleBasedFallback InsightSource = "rule-based-fallback"
)

// maxDashboardInsights caps the merged insight list for the dashboard.
const maxDashboardInsights = 8

// InsightResult is the payload returned to the dashboard.
type InsightResult struct {
	Insights []models.Insight `json:"insights"`
	Source   InsightSource    `json:"source"`
}

// InsightService produces ranked insights for the current tenant.
type InsightService interface {
	// Generate recomputes insights from current items and issues,
	// optionally enhanced by the LLM. It never fails because of the LLM:
	// model errors degrade to the rule-based path.
	Generate(ctx context.Context) (*InsightResult, error)
}

// insightService implements InsightService.
type insightService struct {
	itemRepo   repositories.ItemRepository
	issueRepo  repositories.IssueRepository
	llmClient  llm.LLMClient // nil when no model is configured
	llmTimeout time.Duration
	cache      *redis.Client // nil disables caching
	cacheTTL   time.Duration
	logger     *zap.Logger
	now        func() time.Time
}

// InsightServiceConfig holds construction options for the insight service.
type InsightServiceConfig struct {
	// LLMClient may be nil; the service then always uses the rule-based path.
	LLMClient  llm.LLMClient
	LLMTimeout time.Duration
	// Cache may be nil; the service then recomputes on every request.
	Cache    *redis.Client
	CacheTTL time.Duration
}

// NewInsightService creates a new insight service with dependencies.
// The LLM client is injected explicitly at construction; there is no
// ambient global client.
func NewInsightService(
	itemRepo repositories.ItemRepository,
	issueRepo repositories.IssueRepository,
	cfg InsightServiceConfig,
	logger *zap.Logger,
) InsightService {
	timeout := cfg.LLMTimeout
	if timeout == 0 {
		timeout = 20 * time.Second
	}
	ttl := cfg.CacheTTL
	if ttl == 0 {
		ttl = 5 * time.Minute
	}
	return &insightService{
		itemRepo:   itemRepo,
		issueRepo:  issueRepo,
		llmClient:  cfg.LLMClient,
		llmTimeout: timeout,
		cache:      cfg.Cache,
		cacheTTL:   ttl,
		logger:     logger.Named("insights"),
		now:        time.Now,
	}
}

// Generate implements InsightService.
func (s *insightService) Generate(ctx context.Context) (*InsightResult, error) {
	orgID := auth.OrgIDFromContext(ctx)
	cacheKey := fmt.Sprintf("insights:%s", orgID)

	if cached := s.readCache(ctx, cacheKey); cached != nil {
		return cached, nil
	}

	items, err := s.itemRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch items: %w", err)
	}
	issues, err := s.issueRepo.ListWithItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch issues: %w", err)
	}

	now := s.now()
	ruleInsights := GenerateRuleInsights(items, issues, now)

	result := &InsightResult{}
	if s.llmClient == nil {
		result.Insights = MergeInsights(nil, ruleInsights, maxDashboardInsights)
		result.Source = SourceRuleBased
	} else {
		llmInsights, err := s.requestLLMInsights(ctx, items, issues, now)
		if err != nil {
			s.logger.Warn("LLM insight generation failed, using rule-based fallback",
				zap.Error(err))
			result.Insights = MergeInsights(nil, ruleInsights, maxDashboardInsights)
			result.Source = SourceRuleBasedFallback
		} else {
			result.Insights = MergeInsights(llmInsights, ruleInsights, maxDashboardInsights)
			result.Source = SourceAIEnhanced
		}
	}

	s.writeCache(ctx, cacheKey, result)
	return result, nil
}

// requestLLMInsights asks the model for additional insights and validates
// the response shape. Model output is untrusted: entries missing a title
// or description are dropped and out-of-range fields are normalized.
func (s *insightService) requestLLMInsights(ctx context.Context, items []*models.Item, issues []models.IssueWithItem, now time.Time) ([]models.Insight, error) {
	prompt := prompts.BuildInsightPrompt(BuildMetricsContext(items, issues))

	callCtx, cancel := context.WithTimeout(ctx, s.llmTimeout)
	defer cancel()

	response, err := retry.DoWithResult(callCtx, retry.DefaultConfig(), func() (string, error) {
		return s.llmClient.Complete(callCtx, prompt, prompts.InsightSystemMessage)
	})
	if err != nil {
		return nil, err
	}

	parsed, err := llm.ParseJSONResponse[[]models.Insight](response)
	if err != nil {
		return nil, fmt.Errorf("parse LLM insights: %w", err)
	}

	valid := make([]models.Insight, 0, len(parsed))
	for _, ins := range parsed {
		if ins.Title == "" || ins.Description == "" {
			continue
		}
		if !models.IsValidPriority(ins.Priority) {
			ins.Priority = models.PriorityInfo
		}
		if ins.Confidence < 0 {
			ins.Confidence = 0
		}
		if ins.Confidence > 100 {
			ins.Confidence = 100
		}
		valid = append(valid, ins)
	}

	return valid, nil
}

// BuildMetricsContext assembles the aggregate snapshot included in LLM
// prompts.
func BuildMetricsContext(items []*models.Item, issues []models.IssueWithItem) prompts.MetricsContext {
	m := prompts.MetricsContext{
		TotalItems:  len(items),
		TotalIssues: len(issues),
	}

	for _, item := range items {
		switch item.Status {
		case models.ItemStatusActive:
			m.ActiveItems++
		case models.ItemStatusMaintenanceNeeded:
			m.MaintenanceNeeded++
		}
	}

	counts := make(map[int64]int)
	names := make(map[int64]string)
	for _, issue := range issues {
		counts[issue.ItemID]++
		names[issue.ItemID] = issue.ItemName
		if models.IsOpenStatus(issue.Status) {
			m.OpenIssues++
		}
		if issue.IsCritical {
			m.CriticalIssues++
		}
	}
	m.ResolutionRatePercent = ResolutionRate(issues)

	type itemCount struct {
		id    int64
		count int
	}
	ranked := make([]itemCount, 0, len(counts))
	for id, count := range counts {
		ranked = append(ranked, itemCount{id: id, count: count})
	}
	sort.Slice(ranked, func(a, b int) bool {
		if ranked[a].count != ranked[b].count {
			return ranked[a].count > ranked[b].count
		}
		return ranked[a].id < ranked[b].id
	})
	for i := 0; i < len(ranked) && i < 3; i++ {
		m.TopItems = append(m.TopItems, prompts.ItemIssueCount{
			Name:       names[ranked[i].id],
			IssueCount: ranked[i].count,
		})
	}

	return m
}

// readCache returns a cached result, or nil on miss or any cache error.
func (s *insightService) readCache(ctx context.Context, key string) *InsightResult {
	if s.cache == nil {
		return nil
	}

	data, err := s.cache.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			s.logger.Debug("Insight cache read failed", zap.Error(err))
		}
		return nil
	}

	var result InsightResult
	if err := json.Unmarshal(data, &result); err != nil {
		s.logger.Debug("Insight cache entry malformed", zap.Error(err))
		return nil
	}
	return &result
}

// writeCache stores a result; cache failures are logged and ignored.
func (s *insightService) writeCache(ctx context.Context, key string, result *InsightResult) {
	if s.cache == nil {
		return
	}

	data, err := json.Marshal(result)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, data, s.cacheTTL).Err(); err != nil {
		s.logger.Debug("Insight cache write failed", zap.Error(err))
	}
}

// Ensure insightService implements InsightService at compile time.
var _ InsightService = (*insightService)(nil)
