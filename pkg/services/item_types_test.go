package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/upkept/upkept-engine/pkg/apperrors"
	"github.com/upkept/upkept-engine/pkg/models"
)

// mockItemTypeRepo is a hand-rolled ItemTypeRepository backed by a slice.
type mockItemTypeRepo struct {
	types  []*models.ItemType
	nextID int64
}

func (m *mockItemTypeRepo) List(ctx context.Context) ([]*models.ItemType, error) {
	return m.types, nil
}

func (m *mockItemTypeRepo) Get(ctx context.Context, id int64) (*models.ItemType, error) {
	for _, t := range m.types {
		if t.ID == id {
			return t, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (m *mockItemTypeRepo) Adopt(ctx context.Context, orgID uuid.UUID, systemTypeID int64) (*models.ItemType, error) {
	var system *models.ItemType
	for _, t := range m.types {
		if t.ID == systemTypeID && t.OrgID == nil {
			system = t
			break
		}
	}
	if system == nil {
		return nil, apperrors.ErrNotFound
	}
	for _, t := range m.types {
		if t.OrgID != nil && *t.OrgID == orgID && t.Name == system.Name && !t.IsCustom {
			return t, nil
		}
	}
	m.nextID++
	org := orgID
	adopted := &models.ItemType{
		ID:          m.nextID,
		OrgID:       &org,
		Name:        system.Name,
		Description: system.Description,
		Category:    system.Category,
		Icon:        system.Icon,
	}
	m.types = append(m.types, adopted)
	return adopted, nil
}

func (m *mockItemTypeRepo) CreateCustom(ctx context.Context, itemType *models.ItemType) error {
	m.nextID++
	itemType.ID = m.nextID
	itemType.IsCustom = true
	m.types = append(m.types, itemType)
	return nil
}

func systemCatalog() *mockItemTypeRepo {
	return &mockItemTypeRepo{
		types: []*models.ItemType{
			{ID: 1, Name: "HVAC Unit", Category: "facilities"},
			{ID: 2, Name: "Elevator", Category: "facilities"},
		},
		nextID: 2,
	}
}

func TestItemTypeService_Adopt(t *testing.T) {
	repo := systemCatalog()
	svc := NewItemTypeService(repo, zap.NewNop())
	orgID := uuid.New()

	adopted, err := svc.Adopt(authedContext(orgID), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if adopted.OrgID == nil || *adopted.OrgID != orgID {
		t.Errorf("adopted type not scoped to org: %+v", adopted)
	}
	if adopted.Name != "HVAC Unit" {
		t.Errorf("name = %q, want HVAC Unit", adopted.Name)
	}
	if adopted.IsCustom {
		t.Error("adopted copy must not be marked custom")
	}

	// A second adoption returns the same copy.
	again, err := svc.Adopt(authedContext(orgID), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if again.ID != adopted.ID {
		t.Errorf("repeat adoption created a new row: %d vs %d", again.ID, adopted.ID)
	}
}

func TestItemTypeService_Adopt_Validation(t *testing.T) {
	svc := NewItemTypeService(systemCatalog(), zap.NewNop())

	if _, err := svc.Adopt(authedContext(uuid.New()), 0); !errors.Is(err, apperrors.ErrValidation) {
		t.Errorf("expected validation error for zero id, got %v", err)
	}
	if _, err := svc.Adopt(authedContext(uuid.New()), 42); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("expected not found for unknown system type, got %v", err)
	}
}

func TestItemTypeService_CreateCustom(t *testing.T) {
	repo := systemCatalog()
	svc := NewItemTypeService(repo, zap.NewNop())
	orgID := uuid.New()

	created, err := svc.CreateCustom(authedContext(orgID), CreateItemTypeInput{
		Name:        "  Conveyor Belt ",
		Description: "Packaging line conveyors",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if created.Name != "Conveyor Belt" {
		t.Errorf("name not trimmed: %q", created.Name)
	}
	if !created.IsCustom {
		t.Error("expected custom flag")
	}
	if created.OrgID == nil || *created.OrgID != orgID {
		t.Errorf("custom type not scoped to org: %+v", created)
	}
}

func TestItemTypeService_CreateCustom_BlankName(t *testing.T) {
	svc := NewItemTypeService(systemCatalog(), zap.NewNop())

	_, err := svc.CreateCustom(authedContext(uuid.New()), CreateItemTypeInput{Name: " "})
	if !errors.Is(err, apperrors.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}
