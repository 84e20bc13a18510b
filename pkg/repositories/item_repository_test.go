//go:build integration

package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/upkept/upkept-engine/pkg/apperrors"
	"github.com/upkept/upkept-engine/pkg/database"
	"github.com/upkept/upkept-engine/pkg/models"
	"github.com/upkept/upkept-engine/pkg/testhelpers"
)

type itemTestContext struct {
	t        *testing.T
	engineDB *testhelpers.EngineDB
	repo     ItemRepository
	orgID    uuid.UUID
}

func setupItemTest(t *testing.T) *itemTestContext {
	engineDB := testhelpers.GetEngineDB(t)
	return &itemTestContext{
		t:        t,
		engineDB: engineDB,
		repo:     NewItemRepository(),
		orgID:    uuid.MustParse("00000000-0000-0000-0000-000000000020"),
	}
}

func (tc *itemTestContext) createTestContext() (context.Context, func()) {
	tc.t.Helper()
	ctx := context.Background()
	scope, err := tc.engineDB.DB.WithTenant(ctx, tc.orgID)
	if err != nil {
		tc.t.Fatalf("failed to create tenant scope: %v", err)
	}
	return database.SetTenantScope(ctx, scope), scope.Close
}

func (tc *itemTestContext) cleanup() {
	tc.t.Helper()
	ctx := context.Background()
	scope, err := tc.engineDB.DB.WithoutTenant(ctx)
	if err != nil {
		tc.t.Fatalf("failed to create scope for cleanup: %v", err)
	}
	defer scope.Close()

	_, _ = scope.Conn.Exec(ctx, "DELETE FROM items WHERE org_id = $1", tc.orgID)
}

func TestItemRepository_Create_AssignsUIDAndDefaults(t *testing.T) {
	tc := setupItemTest(t)
	defer tc.cleanup()
	ctx, closeScope := tc.createTestContext()
	defer closeScope()

	item := &models.Item{
		OrgID:    tc.orgID,
		Name:     "Warehouse Forklift",
		Type:     "Forklift",
		Location: "Dock B",
		Tags:     []string{"warehouse", "heavy"},
	}
	require.NoError(t, tc.repo.Create(ctx, item))

	assert.NotZero(t, item.ID)
	assert.NotEqual(t, uuid.Nil, item.UID)
	assert.Equal(t, models.ItemStatusActive, item.Status)

	fetched, err := tc.repo.Get(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, "Warehouse Forklift", fetched.Name)
	assert.Equal(t, []string{"warehouse", "heavy"}, fetched.Tags)
}

func TestItemRepository_GetByUID(t *testing.T) {
	tc := setupItemTest(t)
	defer tc.cleanup()
	ctx, closeScope := tc.createTestContext()
	defer closeScope()

	item := &models.Item{OrgID: tc.orgID, Name: "Lobby Elevator", Type: "Elevator"}
	require.NoError(t, tc.repo.Create(ctx, item))

	fetched, err := tc.repo.GetByUID(ctx, item.UID)
	require.NoError(t, err)
	assert.Equal(t, item.ID, fetched.ID)

	_, err = tc.repo.GetByUID(ctx, uuid.New())
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestItemRepository_GetByUID_WithoutTenantScope(t *testing.T) {
	// The public report path resolves the uid before any tenant is known,
	// so the lookup must work on an unscoped connection.
	tc := setupItemTest(t)
	defer tc.cleanup()

	ctx, closeScope := tc.createTestContext()
	item := &models.Item{OrgID: tc.orgID, Name: "Garage Door", Type: "Door"}
	require.NoError(t, tc.repo.Create(ctx, item))
	closeScope()

	publicCtx := context.Background()
	scope, err := tc.engineDB.DB.WithoutTenant(publicCtx)
	require.NoError(t, err)
	defer scope.Close()
	publicCtx = database.SetTenantScope(publicCtx, scope)

	fetched, err := tc.repo.GetByUID(publicCtx, item.UID)
	require.NoError(t, err)
	assert.Equal(t, tc.orgID, fetched.OrgID)
}

func TestItemRepository_UpdateStatus(t *testing.T) {
	tc := setupItemTest(t)
	defer tc.cleanup()
	ctx, closeScope := tc.createTestContext()
	defer closeScope()

	item := &models.Item{OrgID: tc.orgID, Name: "Roof HVAC", Type: "HVAC Unit"}
	require.NoError(t, tc.repo.Create(ctx, item))

	require.NoError(t, tc.repo.UpdateStatus(ctx, item.ID, models.ItemStatusMaintenanceNeeded))

	fetched, err := tc.repo.Get(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ItemStatusMaintenanceNeeded, fetched.Status)

	err = tc.repo.UpdateStatus(ctx, 999999, models.ItemStatusInactive)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestItemRepository_TouchMaintenance(t *testing.T) {
	tc := setupItemTest(t)
	defer tc.cleanup()
	ctx, closeScope := tc.createTestContext()
	defer closeScope()

	item := &models.Item{OrgID: tc.orgID, Name: "Diesel Generator", Type: "Generator"}
	require.NoError(t, tc.repo.Create(ctx, item))
	require.Nil(t, item.LastMaintenanceAt)

	at := time.Now().UTC().Truncate(time.Millisecond)
	require.NoError(t, tc.repo.TouchMaintenance(ctx, item.ID, at))

	fetched, err := tc.repo.Get(ctx, item.ID)
	require.NoError(t, err)
	require.NotNil(t, fetched.LastMaintenanceAt)
	assert.WithinDuration(t, at, *fetched.LastMaintenanceAt, time.Second)
}
