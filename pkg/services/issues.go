package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/upkept/upkept-engine/pkg/apperrors"
	"github.com/upkept/upkept-engine/pkg/auth"
	"github.com/upkept/upkept-engine/pkg/models"
	"github.com/upkept/upkept-engine/pkg/repositories"
)

// maxDescriptionLength bounds reporter-supplied issue descriptions.
const maxDescriptionLength = 4000

// IssueListResult is a filtered issue list together with its per-item
// grouping and aggregate counters, computed over the same snapshot.
type IssueListResult struct {
	Issues  []models.IssueWithItem `json:"issues"`
	Groups  map[int64]*AssetGroup  `json:"groups"`
	Metrics Metrics                `json:"metrics"`
}

// CreateIssueInput carries the fields a caller may set when reporting an
// issue. Status and criticality are derived, never accepted.
type CreateIssueInput struct {
	ItemID      int64           `json:"item_id"`
	Description string          `json:"description"`
	IssueType   string          `json:"issue_type"`
	Urgency     string          `json:"urgency"`
	SafetyFlag  bool            `json:"safety_flag"`
	ReportedBy  string          `json:"reported_by"`
	ContactInfo string          `json:"contact_info"`
	GroupID     string          `json:"group_id"`
	Metadata    models.JSONBMap `json:"metadata"`
}

// IssueService implements the issue workflows: listing with grouping and
// aggregation, reporting, and status transitions.
type IssueService interface {
	// List returns the tenant's issues filtered by spec, with grouping and
	// metrics computed over the filtered set.
	List(ctx context.Context, spec models.FilterSpec) (*IssueListResult, error)
	// Create records a new issue against an item the tenant owns.
	Create(ctx context.Context, input CreateIssueInput) (*models.Issue, error)
	// ReportPublic records an issue from an unauthenticated reporter who
	// scanned an item's QR code. The item is addressed by its public UID.
	ReportPublic(ctx context.Context, itemUID uuid.UUID, input CreateIssueInput) (*models.Issue, error)
	// Transition moves a single issue forward to newStatus.
	Transition(ctx context.Context, id int64, newStatus string) (*models.Issue, error)
	// TransitionGroup moves every open issue in a group forward to
	// newStatus and returns the IDs of the issues that changed.
	TransitionGroup(ctx context.Context, groupID string, newStatus string) ([]int64, error)
}

type issueService struct {
	issueRepo repositories.IssueRepository
	itemRepo  repositories.ItemRepository
	logger    *zap.Logger
	now       func() time.Time
}

// NewIssueService creates an issue service with dependencies.
func NewIssueService(issueRepo repositories.IssueRepository, itemRepo repositories.ItemRepository, logger *zap.Logger) IssueService {
	return &issueService{
		issueRepo: issueRepo,
		itemRepo:  itemRepo,
		logger:    logger.Named("issues"),
		now:       time.Now,
	}
}

// List implements IssueService. Grouping and metrics come from the same
// filtered snapshot, so the counters always match the visible list.
func (s *issueService) List(ctx context.Context, spec models.FilterSpec) (*IssueListResult, error) {
	issues, err := s.issueRepo.ListWithItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch issues: %w", err)
	}

	now := s.now()
	filtered := FilterIssues(issues, spec, now)

	return &IssueListResult{
		Issues:  filtered,
		Groups:  GroupIssues(filtered),
		Metrics: AggregateIssues(filtered, now),
	}, nil
}

// Create implements IssueService.
func (s *issueService) Create(ctx context.Context, input CreateIssueInput) (*models.Issue, error) {
	if err := validateIssueInput(input); err != nil {
		return nil, err
	}

	// The item lookup runs under the tenant scope, so an item belonging to
	// another org surfaces as not found rather than leaking existence.
	item, err := s.itemRepo.Get(ctx, input.ItemID)
	if err != nil {
		if err == apperrors.ErrNotFound {
			return nil, apperrors.ErrUnknownItem
		}
		return nil, fmt.Errorf("verify item: %w", err)
	}

	issue := s.buildIssue(ctx, item, input)
	if err := s.issueRepo.Create(ctx, issue); err != nil {
		return nil, fmt.Errorf("create issue: %w", err)
	}

	s.logger.Info("Issue created",
		zap.Int64("issue_id", issue.ID),
		zap.Int64("item_id", item.ID),
		zap.String("urgency", issue.Urgency),
		zap.Bool("is_critical", issue.IsCritical))

	return issue, nil
}

// ReportPublic implements IssueService. The caller is unauthenticated, so
// the tenant scope on the context belongs to the item's owning org (set up
// after the UID resolution by the handler's scope helper).
func (s *issueService) ReportPublic(ctx context.Context, itemUID uuid.UUID, input CreateIssueInput) (*models.Issue, error) {
	if err := validatePublicIssueInput(input); err != nil {
		return nil, err
	}

	item, err := s.itemRepo.GetByUID(ctx, itemUID)
	if err != nil {
		if err == apperrors.ErrNotFound {
			return nil, apperrors.ErrUnknownItem
		}
		return nil, fmt.Errorf("resolve item: %w", err)
	}
	input.ItemID = item.ID

	issue := s.buildIssue(ctx, item, input)
	issue.OrgID = item.OrgID

	if err := s.issueRepo.Create(ctx, issue); err != nil {
		return nil, fmt.Errorf("create issue: %w", err)
	}

	s.logger.Info("Public issue reported",
		zap.Int64("issue_id", issue.ID),
		zap.String("item_uid", itemUID.String()))

	return issue, nil
}

// Transition implements IssueService. The forward-only check runs inside a
// single conditional UPDATE, so concurrent transitions can never move an
// issue backwards.
func (s *issueService) Transition(ctx context.Context, id int64, newStatus string) (*models.Issue, error) {
	if !models.IsValidIssueStatus(newStatus) {
		return nil, apperrors.ErrInvalidTransition
	}

	issue, err := s.issueRepo.UpdateStatus(ctx, id, newStatus, s.now())
	if err != nil {
		return nil, err
	}

	s.logger.Info("Issue status changed",
		zap.Int64("issue_id", id),
		zap.String("status", newStatus))

	return issue, nil
}

// TransitionGroup implements IssueService. Only open and in_progress
// issues move; already-resolved members keep their status and timestamps.
func (s *issueService) TransitionGroup(ctx context.Context, groupID string, newStatus string) ([]int64, error) {
	if groupID == "" {
		return nil, apperrors.ErrValidation
	}
	if !models.IsValidIssueStatus(newStatus) {
		return nil, apperrors.ErrInvalidTransition
	}

	updated, err := s.issueRepo.UpdateGroupStatus(ctx, groupID, newStatus, s.now())
	if err != nil {
		return nil, err
	}

	s.logger.Info("Issue group status changed",
		zap.String("group_id", groupID),
		zap.String("status", newStatus),
		zap.Int("updated", len(updated)))

	return updated, nil
}

func (s *issueService) buildIssue(ctx context.Context, item *models.Item, input CreateIssueInput) *models.Issue {
	urgency := input.Urgency
	if urgency == "" {
		urgency = models.UrgencyMedium
	}

	issue := &models.Issue{
		OrgID:       auth.OrgIDFromContext(ctx),
		ItemID:      item.ID,
		Description: strings.TrimSpace(input.Description),
		IssueType:   strings.TrimSpace(input.IssueType),
		Urgency:     urgency,
		IsCritical:  models.DeriveCritical(urgency, input.SafetyFlag),
		Status:      models.IssueStatusOpen,
		ReportedAt:  s.now(),
		ReportedBy:  strings.TrimSpace(input.ReportedBy),
		ContactInfo: strings.TrimSpace(input.ContactInfo),
		Metadata:    input.Metadata,
	}
	if g := strings.TrimSpace(input.GroupID); g != "" {
		issue.GroupID = &g
	}
	return issue
}

func validateIssueInput(input CreateIssueInput) error {
	if input.ItemID <= 0 {
		return apperrors.ErrValidation
	}
	return validatePublicIssueInput(input)
}

// validatePublicIssueInput checks the fields shared with the public
// reporting path, where the item is addressed by UID instead of ID.
func validatePublicIssueInput(input CreateIssueInput) error {
	if strings.TrimSpace(input.Description) == "" {
		return apperrors.ErrValidation
	}
	if len(input.Description) > maxDescriptionLength {
		return apperrors.ErrValidation
	}
	if input.Urgency != "" && !models.IsValidUrgency(input.Urgency) {
		return apperrors.ErrValidation
	}
	return nil
}

var _ IssueService = (*issueService)(nil)
