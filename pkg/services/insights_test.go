package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/upkept/upkept-engine/pkg/llm"
	"github.com/upkept/upkept-engine/pkg/models"
)

func insightFixture(now time.Time) (*mockItemRepo, *mockIssueRepo) {
	itemRepo := &mockItemRepo{
		items: []*models.Item{
			testItem(1, "Pump A", models.ItemStatusActive, 200, now),
			testItem(2, "Elevator B", models.ItemStatusMaintenanceNeeded, 90, now),
		},
		nextID: 2,
	}
	issueRepo := &mockIssueRepo{
		issues: []models.IssueWithItem{
			testIssue(1, 1, "Pump A", now.AddDate(0, 0, -30)),
			testIssue(2, 1, "Pump A", now.AddDate(0, 0, -45)),
			testIssue(3, 1, "Pump A", now.AddDate(0, 0, -60)),
		},
		nextID: 3,
	}
	return itemRepo, issueRepo
}

func newTestInsightService(itemRepo *mockItemRepo, issueRepo *mockIssueRepo, client llm.LLMClient, now time.Time) *insightService {
	svc := NewInsightService(itemRepo, issueRepo, InsightServiceConfig{
		LLMClient: client,
	}, zap.NewNop()).(*insightService)
	svc.now = func() time.Time { return now }
	return svc
}

func TestInsightService_RuleBasedWithoutModel(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	itemRepo, issueRepo := insightFixture(now)

	svc := newTestInsightService(itemRepo, issueRepo, nil, now)

	result, err := svc.Generate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, SourceRuleBased, result.Source)
	assert.NotEmpty(t, result.Insights)
	assert.LessOrEqual(t, len(result.Insights), 8)
}

func TestInsightService_AIEnhanced(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	itemRepo, issueRepo := insightFixture(now)

	mock := llm.NewMockLLMClient()
	mock.CompleteFunc = func(ctx context.Context, prompt, systemMessage string) (string, error) {
		return `[{"type": "warning", "category": "maintenance", "title": "Seal wear trend on Pump A",
			"description": "Recurring seal issues suggest wear", "priority": "critical", "confidence": 88}]`, nil
	}

	svc := newTestInsightService(itemRepo, issueRepo, mock, now)

	result, err := svc.Generate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, SourceAIEnhanced, result.Source)
	require.NotEmpty(t, result.Insights)
	assert.Equal(t, "Seal wear trend on Pump A", result.Insights[0].Title,
		"critical model insight must rank first")
	assert.Equal(t, 1, mock.CompleteCalls)
}

func TestInsightService_FallbackOnModelFailure(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	itemRepo, issueRepo := insightFixture(now)

	mock := llm.NewMockLLMClient()
	mock.CompleteFunc = func(ctx context.Context, prompt, systemMessage string) (string, error) {
		return "", &llm.Error{Type: llm.ErrorTypeAuth, Message: "bad key"}
	}

	svc := newTestInsightService(itemRepo, issueRepo, mock, now)

	result, err := svc.Generate(context.Background())
	require.NoError(t, err, "model failure must not fail the request")

	assert.Equal(t, SourceRuleBasedFallback, result.Source)
	assert.NotEmpty(t, result.Insights, "rule insights still present after model failure")
}

func TestInsightService_FallbackOnMalformedResponse(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	itemRepo, issueRepo := insightFixture(now)

	mock := llm.NewMockLLMClient()
	mock.CompleteFunc = func(ctx context.Context, prompt, systemMessage string) (string, error) {
		return "I'm sorry, I cannot produce insights right now.", nil
	}

	svc := newTestInsightService(itemRepo, issueRepo, mock, now)

	result, err := svc.Generate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, SourceRuleBasedFallback, result.Source)
}

func TestInsightService_NormalizesModelOutput(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	itemRepo, issueRepo := insightFixture(now)

	mock := llm.NewMockLLMClient()
	mock.CompleteFunc = func(ctx context.Context, prompt, systemMessage string) (string, error) {
		// One entry missing a title, one with an unknown priority and an
		// out-of-range confidence.
		return `[
			{"type": "warning", "category": "maintenance", "description": "no title"},
			{"type": "warning", "category": "maintenance", "title": "Odd output",
			 "description": "d", "priority": "mega-urgent", "confidence": 250}
		]`, nil
	}

	svc := newTestInsightService(itemRepo, issueRepo, mock, now)

	result, err := svc.Generate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SourceAIEnhanced, result.Source)

	var found *models.Insight
	for i := range result.Insights {
		if result.Insights[i].Title == "Odd output" {
			found = &result.Insights[i]
		}
		if result.Insights[i].Title == "" {
			t.Error("untitled model insight must be dropped")
		}
	}
	require.NotNil(t, found)
	assert.Equal(t, models.PriorityInfo, found.Priority, "unknown priority normalizes to info")
	assert.Equal(t, 100, found.Confidence, "confidence clamps to 100")
}

func TestInsightService_RepositoryErrorPropagates(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	itemRepo, issueRepo := insightFixture(now)
	issueRepo.listErr = errors.New("connection reset")

	svc := newTestInsightService(itemRepo, issueRepo, nil, now)

	_, err := svc.Generate(context.Background())
	assert.Error(t, err)
}

func TestBuildMetricsContext(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	itemRepo, issueRepo := insightFixture(now)

	m := BuildMetricsContext(itemRepo.items, issueRepo.issues)

	assert.Equal(t, 2, m.TotalItems)
	assert.Equal(t, 1, m.ActiveItems)
	assert.Equal(t, 1, m.MaintenanceNeeded)
	assert.Equal(t, 3, m.TotalIssues)
	assert.Equal(t, 3, m.OpenIssues)
	require.Len(t, m.TopItems, 1)
	assert.Equal(t, "Pump A", m.TopItems[0].Name)
	assert.Equal(t, 3, m.TopItems[0].IssueCount)
}
