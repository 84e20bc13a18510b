package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/upkept/upkept-engine/pkg/apperrors"
	"github.com/upkept/upkept-engine/pkg/database"
	"github.com/upkept/upkept-engine/pkg/models"
)

// ItemRepository defines the interface for item data access.
type ItemRepository interface {
	Create(ctx context.Context, item *models.Item) error
	List(ctx context.Context) ([]*models.Item, error)
	Get(ctx context.Context, id int64) (*models.Item, error)
	// GetByUID resolves a public QR identifier to the full item row.
	// Used by the anonymous report path, which has no tenant scope yet.
	GetByUID(ctx context.Context, uid uuid.UUID) (*models.Item, error)
	UpdateStatus(ctx context.Context, id int64, status string) error
	TouchMaintenance(ctx context.Context, id int64, at time.Time) error
}

// itemRepository implements ItemRepository using PostgreSQL.
type itemRepository struct{}

// NewItemRepository creates a new item repository.
func NewItemRepository() ItemRepository {
	return &itemRepository{}
}

const itemColumns = `id, uid, org_id, name, type, location, status, tags, metadata, created_at, last_maintenance_at`

func scanItem(row pgx.Row) (*models.Item, error) {
	var item models.Item
	err := row.Scan(
		&item.ID,
		&item.UID,
		&item.OrgID,
		&item.Name,
		&item.Type,
		&item.Location,
		&item.Status,
		&item.Tags,
		&item.Metadata,
		&item.CreatedAt,
		&item.LastMaintenanceAt,
	)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// Create inserts a new item, assigning its UID if absent.
func (r *itemRepository) Create(ctx context.Context, item *models.Item) error {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return fmt.Errorf("no tenant scope in context")
	}

	if item.UID == uuid.Nil {
		item.UID = uuid.New()
	}
	if item.Status == "" {
		item.Status = models.ItemStatusActive
	}
	item.CreatedAt = time.Now()

	query := `
		INSERT INTO items (uid, org_id, name, type, location, status, tags, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`

	err := scope.Conn.QueryRow(ctx, query,
		item.UID,
		item.OrgID,
		item.Name,
		item.Type,
		item.Location,
		item.Status,
		item.Tags,
		item.Metadata,
		item.CreatedAt,
	).Scan(&item.ID)
	if err != nil {
		return fmt.Errorf("failed to create item: %w", err)
	}

	return nil
}

// List returns all items in the current tenant scope, newest first.
func (r *itemRepository) List(ctx context.Context) ([]*models.Item, error) {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no tenant scope in context")
	}

	query := `SELECT ` + itemColumns + ` FROM items ORDER BY created_at DESC`

	rows, err := scope.Conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	defer rows.Close()

	var items []*models.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, item)
	}

	return items, rows.Err()
}

// Get retrieves an item by ID.
func (r *itemRepository) Get(ctx context.Context, id int64) (*models.Item, error) {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no tenant scope in context")
	}

	item, err := scanItem(scope.Conn.QueryRow(ctx,
		`SELECT `+itemColumns+` FROM items WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get item: %w", err)
	}

	return item, nil
}

// GetByUID retrieves an item by its public UID.
func (r *itemRepository) GetByUID(ctx context.Context, uid uuid.UUID) (*models.Item, error) {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no tenant scope in context")
	}

	item, err := scanItem(scope.Conn.QueryRow(ctx,
		`SELECT `+itemColumns+` FROM items WHERE uid = $1`, uid))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get item by uid: %w", err)
	}

	return item, nil
}

// UpdateStatus sets an item's status.
func (r *itemRepository) UpdateStatus(ctx context.Context, id int64, status string) error {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return fmt.Errorf("no tenant scope in context")
	}

	result, err := scope.Conn.Exec(ctx,
		`UPDATE items SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("failed to update item status: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

// TouchMaintenance records a maintenance timestamp on the item.
func (r *itemRepository) TouchMaintenance(ctx context.Context, id int64, at time.Time) error {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return fmt.Errorf("no tenant scope in context")
	}

	result, err := scope.Conn.Exec(ctx,
		`UPDATE items SET last_maintenance_at = $2 WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("failed to update item maintenance time: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

// Ensure itemRepository implements ItemRepository at compile time.
var _ ItemRepository = (*itemRepository)(nil)
