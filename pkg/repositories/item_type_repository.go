package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/upkept/upkept-engine/pkg/apperrors"
	"github.com/upkept/upkept-engine/pkg/database"
	"github.com/upkept/upkept-engine/pkg/models"
)

// ItemTypeRepository defines the interface for item type data access.
type ItemTypeRepository interface {
	// List returns system-provided types plus the org's own types.
	List(ctx context.Context) ([]*models.ItemType, error)
	Get(ctx context.Context, id int64) (*models.ItemType, error)
	// Adopt copies a system type into the org's scope. At most one
	// non-custom copy exists per (org, name); adopting twice is a no-op.
	Adopt(ctx context.Context, orgID uuid.UUID, systemTypeID int64) (*models.ItemType, error)
	CreateCustom(ctx context.Context, itemType *models.ItemType) error
}

// itemTypeRepository implements ItemTypeRepository using PostgreSQL.
type itemTypeRepository struct{}

// NewItemTypeRepository creates a new item type repository.
func NewItemTypeRepository() ItemTypeRepository {
	return &itemTypeRepository{}
}

const itemTypeColumns = `id, org_id, name, description, category, icon, is_custom`

func scanItemType(row pgx.Row) (*models.ItemType, error) {
	var t models.ItemType
	err := row.Scan(&t.ID, &t.OrgID, &t.Name, &t.Description, &t.Category, &t.Icon, &t.IsCustom)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// List returns system types (org_id IS NULL) and the tenant's own types.
// RLS exposes both to the tenant connection.
func (r *itemTypeRepository) List(ctx context.Context) ([]*models.ItemType, error) {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no tenant scope in context")
	}

	rows, err := scope.Conn.Query(ctx,
		`SELECT `+itemTypeColumns+` FROM item_types ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list item types: %w", err)
	}
	defer rows.Close()

	var types []*models.ItemType
	for rows.Next() {
		t, err := scanItemType(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item type: %w", err)
		}
		types = append(types, t)
	}

	return types, rows.Err()
}

// Get retrieves an item type by ID.
func (r *itemTypeRepository) Get(ctx context.Context, id int64) (*models.ItemType, error) {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no tenant scope in context")
	}

	t, err := scanItemType(scope.Conn.QueryRow(ctx,
		`SELECT `+itemTypeColumns+` FROM item_types WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get item type: %w", err)
	}

	return t, nil
}

// Adopt copies a system type into the org scope. The partial unique index
// on (org_id, name) WHERE NOT is_custom makes this idempotent.
func (r *itemTypeRepository) Adopt(ctx context.Context, orgID uuid.UUID, systemTypeID int64) (*models.ItemType, error) {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no tenant scope in context")
	}

	query := `
		INSERT INTO item_types (org_id, name, description, category, icon, is_custom)
		SELECT $1, name, description, category, icon, false
		FROM item_types
		WHERE id = $2 AND org_id IS NULL
		ON CONFLICT (org_id, name) WHERE NOT is_custom DO NOTHING
		RETURNING ` + itemTypeColumns

	t, err := scanItemType(scope.Conn.QueryRow(ctx, query, orgID, systemTypeID))
	if err == nil {
		return t, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to adopt item type: %w", err)
	}

	// Zero rows: either the system type does not exist, or the org already
	// adopted it. Return the existing copy in the latter case.
	var name string
	err = scope.Conn.QueryRow(ctx,
		`SELECT name FROM item_types WHERE id = $1 AND org_id IS NULL`, systemTypeID).Scan(&name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to look up system type: %w", err)
	}

	t, err = scanItemType(scope.Conn.QueryRow(ctx,
		`SELECT `+itemTypeColumns+` FROM item_types WHERE org_id = $1 AND name = $2 AND NOT is_custom`,
		orgID, name))
	if err != nil {
		return nil, fmt.Errorf("failed to load adopted type: %w", err)
	}

	return t, nil
}

// CreateCustom inserts an org-defined custom type.
func (r *itemTypeRepository) CreateCustom(ctx context.Context, itemType *models.ItemType) error {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return fmt.Errorf("no tenant scope in context")
	}

	itemType.IsCustom = true

	err := scope.Conn.QueryRow(ctx, `
		INSERT INTO item_types (org_id, name, description, category, icon, is_custom)
		VALUES ($1, $2, $3, $4, $5, true)
		RETURNING id`,
		itemType.OrgID,
		itemType.Name,
		itemType.Description,
		itemType.Category,
		itemType.Icon,
	).Scan(&itemType.ID)
	if err != nil {
		return fmt.Errorf("failed to create custom item type: %w", err)
	}

	return nil
}

// Ensure itemTypeRepository implements ItemTypeRepository at compile time.
var _ ItemTypeRepository = (*itemTypeRepository)(nil)
