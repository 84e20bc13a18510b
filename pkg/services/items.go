package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/upkept/upkept-engine/pkg/apperrors"
	"github.com/upkept/upkept-engine/pkg/auth"
	"github.com/upkept/upkept-engine/pkg/models"
	"github.com/upkept/upkept-engine/pkg/repositories"
)

// CreateItemInput carries the fields a caller may set when registering an
// item.
type CreateItemInput struct {
	Name     string          `json:"name"`
	Type     string          `json:"type"`
	Location string          `json:"location"`
	Tags     []string        `json:"tags"`
	Metadata models.JSONBMap `json:"metadata"`
}

// ItemService implements item registration and fleet listing.
type ItemService interface {
	List(ctx context.Context) ([]*models.Item, error)
	Get(ctx context.Context, id int64) (*models.Item, error)
	Create(ctx context.Context, input CreateItemInput) (*models.Item, error)
	// UpdateStatus sets an item's operational status.
	UpdateStatus(ctx context.Context, id int64, status string) (*models.Item, error)
	// RecordMaintenance stamps last_maintenance_at and returns the updated
	// item.
	RecordMaintenance(ctx context.Context, id int64) (*models.Item, error)
}

type itemService struct {
	itemRepo repositories.ItemRepository
	logger   *zap.Logger
	now      func() time.Time
}

// NewItemService creates an item service with dependencies.
func NewItemService(itemRepo repositories.ItemRepository, logger *zap.Logger) ItemService {
	return &itemService{
		itemRepo: itemRepo,
		logger:   logger.Named("items"),
		now:      time.Now,
	}
}

func (s *itemService) List(ctx context.Context) ([]*models.Item, error) {
	return s.itemRepo.List(ctx)
}

func (s *itemService) Get(ctx context.Context, id int64) (*models.Item, error) {
	return s.itemRepo.Get(ctx, id)
}

func (s *itemService) Create(ctx context.Context, input CreateItemInput) (*models.Item, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.ErrValidation
	}

	item := &models.Item{
		OrgID:     auth.OrgIDFromContext(ctx),
		Name:      name,
		Type:      strings.TrimSpace(input.Type),
		Location:  strings.TrimSpace(input.Location),
		Status:    models.ItemStatusActive,
		Tags:      input.Tags,
		Metadata:  input.Metadata,
		CreatedAt: s.now(),
	}

	if err := s.itemRepo.Create(ctx, item); err != nil {
		return nil, fmt.Errorf("create item: %w", err)
	}

	s.logger.Info("Item created",
		zap.Int64("item_id", item.ID),
		zap.String("type", item.Type))

	return item, nil
}

func (s *itemService) UpdateStatus(ctx context.Context, id int64, status string) (*models.Item, error) {
	if !models.IsValidItemStatus(status) {
		return nil, apperrors.ErrValidation
	}

	if err := s.itemRepo.UpdateStatus(ctx, id, status); err != nil {
		return nil, err
	}

	s.logger.Info("Item status changed",
		zap.Int64("item_id", id),
		zap.String("status", status))

	return s.itemRepo.Get(ctx, id)
}

func (s *itemService) RecordMaintenance(ctx context.Context, id int64) (*models.Item, error) {
	if err := s.itemRepo.TouchMaintenance(ctx, id, s.now()); err != nil {
		return nil, err
	}

	s.logger.Info("Item maintenance recorded", zap.Int64("item_id", id))

	return s.itemRepo.Get(ctx, id)
}

var _ ItemService = (*itemService)(nil)
