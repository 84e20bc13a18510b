package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/upkept/upkept-engine/pkg/apperrors"
	"github.com/upkept/upkept-engine/pkg/auth"
	"github.com/upkept/upkept-engine/pkg/models"
	"github.com/upkept/upkept-engine/pkg/repositories"
)

// CreateItemTypeInput carries the fields for a custom item type.
type CreateItemTypeInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

// ItemTypeService implements the item type catalog: listing the system
// catalog alongside the org's types, adopting system types, and creating
// custom ones.
type ItemTypeService interface {
	List(ctx context.Context) ([]*models.ItemType, error)
	// Adopt copies a system type into the org's catalog. Adopting the same
	// type twice returns the existing copy.
	Adopt(ctx context.Context, systemTypeID int64) (*models.ItemType, error)
	CreateCustom(ctx context.Context, input CreateItemTypeInput) (*models.ItemType, error)
}

type itemTypeService struct {
	typeRepo repositories.ItemTypeRepository
	logger   *zap.Logger
}

// NewItemTypeService creates an item type service with dependencies.
func NewItemTypeService(typeRepo repositories.ItemTypeRepository, logger *zap.Logger) ItemTypeService {
	return &itemTypeService{
		typeRepo: typeRepo,
		logger:   logger.Named("item_types"),
	}
}

func (s *itemTypeService) List(ctx context.Context) ([]*models.ItemType, error) {
	return s.typeRepo.List(ctx)
}

func (s *itemTypeService) Adopt(ctx context.Context, systemTypeID int64) (*models.ItemType, error) {
	if systemTypeID <= 0 {
		return nil, apperrors.ErrValidation
	}

	adopted, err := s.typeRepo.Adopt(ctx, auth.OrgIDFromContext(ctx), systemTypeID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Item type adopted",
		zap.Int64("system_type_id", systemTypeID),
		zap.Int64("org_type_id", adopted.ID))

	return adopted, nil
}

func (s *itemTypeService) CreateCustom(ctx context.Context, input CreateItemTypeInput) (*models.ItemType, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.ErrValidation
	}

	orgID := auth.OrgIDFromContext(ctx)
	itemType := &models.ItemType{
		OrgID:       &orgID,
		Name:        name,
		Description: strings.TrimSpace(input.Description),
		Icon:        strings.TrimSpace(input.Icon),
		IsCustom:    true,
	}

	if err := s.typeRepo.CreateCustom(ctx, itemType); err != nil {
		return nil, fmt.Errorf("create item type: %w", err)
	}

	s.logger.Info("Custom item type created", zap.Int64("type_id", itemType.ID))

	return itemType, nil
}

var _ ItemTypeService = (*itemTypeService)(nil)
