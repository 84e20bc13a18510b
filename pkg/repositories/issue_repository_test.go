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

// issueTestContext holds test dependencies for issue repository tests.
type issueTestContext struct {
	t        *testing.T
	engineDB *testhelpers.EngineDB
	repo     IssueRepository
	itemRepo ItemRepository
	orgID    uuid.UUID
}

func setupIssueTest(t *testing.T) *issueTestContext {
	engineDB := testhelpers.GetEngineDB(t)
	return &issueTestContext{
		t:        t,
		engineDB: engineDB,
		repo:     NewIssueRepository(),
		itemRepo: NewItemRepository(),
		orgID:    uuid.MustParse("00000000-0000-0000-0000-000000000010"),
	}
}

// createTestContext returns a context carrying a tenant scope for the
// test org, plus a cleanup func that must be deferred.
func (tc *issueTestContext) createTestContext() (context.Context, func()) {
	tc.t.Helper()
	ctx := context.Background()
	scope, err := tc.engineDB.DB.WithTenant(ctx, tc.orgID)
	if err != nil {
		tc.t.Fatalf("failed to create tenant scope: %v", err)
	}
	return database.SetTenantScope(ctx, scope), scope.Close
}

// cleanup removes all rows the test org created.
func (tc *issueTestContext) cleanup() {
	tc.t.Helper()
	ctx := context.Background()
	scope, err := tc.engineDB.DB.WithoutTenant(ctx)
	if err != nil {
		tc.t.Fatalf("failed to create scope for cleanup: %v", err)
	}
	defer scope.Close()

	_, _ = scope.Conn.Exec(ctx, "DELETE FROM issues WHERE org_id = $1", tc.orgID)
	_, _ = scope.Conn.Exec(ctx, "DELETE FROM items WHERE org_id = $1", tc.orgID)
}

// createTestItem inserts an item for issues to hang off.
func (tc *issueTestContext) createTestItem(ctx context.Context, name string) *models.Item {
	tc.t.Helper()
	item := &models.Item{
		OrgID:    tc.orgID,
		Name:     name,
		Type:     "HVAC Unit",
		Location: "Roof",
	}
	require.NoError(tc.t, tc.itemRepo.Create(ctx, item))
	return item
}

func (tc *issueTestContext) createTestIssue(ctx context.Context, itemID int64, desc string, reportedAt time.Time) *models.Issue {
	tc.t.Helper()
	issue := &models.Issue{
		OrgID:       tc.orgID,
		ItemID:      itemID,
		Description: desc,
		ReportedAt:  reportedAt,
	}
	require.NoError(tc.t, tc.repo.Create(ctx, issue))
	return issue
}

func TestIssueRepository_Create_AppliesDefaults(t *testing.T) {
	tc := setupIssueTest(t)
	defer tc.cleanup()
	ctx, closeScope := tc.createTestContext()
	defer closeScope()

	item := tc.createTestItem(ctx, "Rooftop AHU")

	issue := &models.Issue{
		OrgID:       tc.orgID,
		ItemID:      item.ID,
		Description: "Compressor makes grinding noise",
	}
	require.NoError(t, tc.repo.Create(ctx, issue))

	assert.NotZero(t, issue.ID)
	assert.NotEqual(t, uuid.Nil, issue.UID)
	assert.Equal(t, models.IssueStatusOpen, issue.Status)
	assert.Equal(t, models.UrgencyMedium, issue.Urgency)
	assert.False(t, issue.ReportedAt.IsZero())

	fetched, err := tc.repo.Get(ctx, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, issue.UID, fetched.UID)
	assert.Equal(t, "Compressor makes grinding noise", fetched.Description)
}

func TestIssueRepository_Create_DerivesCritical(t *testing.T) {
	tc := setupIssueTest(t)
	defer tc.cleanup()
	ctx, closeScope := tc.createTestContext()
	defer closeScope()

	item := tc.createTestItem(ctx, "Service Elevator")

	issue := &models.Issue{
		OrgID:       tc.orgID,
		ItemID:      item.ID,
		Description: "Doors close on passengers",
		Urgency:     models.UrgencyCritical,
	}
	require.NoError(t, tc.repo.Create(ctx, issue))
	assert.True(t, issue.IsCritical)
}

func TestIssueRepository_Get_NotFound(t *testing.T) {
	tc := setupIssueTest(t)
	defer tc.cleanup()
	ctx, closeScope := tc.createTestContext()
	defer closeScope()

	_, err := tc.repo.Get(ctx, 999999)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestIssueRepository_ListWithItems_NewestFirst(t *testing.T) {
	tc := setupIssueTest(t)
	defer tc.cleanup()
	ctx, closeScope := tc.createTestContext()
	defer closeScope()

	item := tc.createTestItem(ctx, "Backup Generator")
	now := time.Now().UTC().Truncate(time.Millisecond)

	oldest := tc.createTestIssue(ctx, item.ID, "Oil leak", now.Add(-48*time.Hour))
	newest := tc.createTestIssue(ctx, item.ID, "Will not start", now)
	middle := tc.createTestIssue(ctx, item.ID, "Low coolant", now.Add(-24*time.Hour))

	issues, err := tc.repo.ListWithItems(ctx)
	require.NoError(t, err)
	require.Len(t, issues, 3)

	assert.Equal(t, newest.ID, issues[0].ID)
	assert.Equal(t, middle.ID, issues[1].ID)
	assert.Equal(t, oldest.ID, issues[2].ID)

	// Join columns come back populated.
	assert.Equal(t, "Backup Generator", issues[0].ItemName)
	assert.Equal(t, "HVAC Unit", issues[0].ItemType)
	assert.Equal(t, "Roof", issues[0].ItemLocation)
}

func TestIssueRepository_UpdateStatus_Forward(t *testing.T) {
	tc := setupIssueTest(t)
	defer tc.cleanup()
	ctx, closeScope := tc.createTestContext()
	defer closeScope()

	item := tc.createTestItem(ctx, "Loading Dock Pump")
	issue := tc.createTestIssue(ctx, item.ID, "Pressure drops overnight", time.Now())

	now := time.Now().UTC().Truncate(time.Millisecond)
	updated, err := tc.repo.UpdateStatus(ctx, issue.ID, models.IssueStatusResolved, now)
	require.NoError(t, err)

	assert.Equal(t, models.IssueStatusResolved, updated.Status)
	require.NotNil(t, updated.ResolvedAt)
	assert.WithinDuration(t, now, *updated.ResolvedAt, time.Second)
}

func TestIssueRepository_UpdateStatus_RejectsBackward(t *testing.T) {
	tc := setupIssueTest(t)
	defer tc.cleanup()
	ctx, closeScope := tc.createTestContext()
	defer closeScope()

	item := tc.createTestItem(ctx, "Loading Dock Pump")
	issue := tc.createTestIssue(ctx, item.ID, "Seal failure", time.Now())

	_, err := tc.repo.UpdateStatus(ctx, issue.ID, models.IssueStatusResolved, time.Now())
	require.NoError(t, err)

	_, err = tc.repo.UpdateStatus(ctx, issue.ID, models.IssueStatusOpen, time.Now())
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)

	// The rejected transition left the row alone.
	fetched, err := tc.repo.Get(ctx, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, models.IssueStatusResolved, fetched.Status)
}

func TestIssueRepository_UpdateStatus_RejectsCloseBeforeResolve(t *testing.T) {
	tc := setupIssueTest(t)
	defer tc.cleanup()
	ctx, closeScope := tc.createTestContext()
	defer closeScope()

	item := tc.createTestItem(ctx, "Loading Dock Pump")
	issue := tc.createTestIssue(ctx, item.ID, "Seal failure", time.Now())

	_, err := tc.repo.UpdateStatus(ctx, issue.ID, models.IssueStatusClosed, time.Now())
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)

	// The row is untouched: still open, never resolved.
	fetched, err := tc.repo.Get(ctx, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, models.IssueStatusOpen, fetched.Status)
	assert.Nil(t, fetched.ResolvedAt)
}

func TestIssueRepository_UpdateStatus_PreservesResolvedAt(t *testing.T) {
	tc := setupIssueTest(t)
	defer tc.cleanup()
	ctx, closeScope := tc.createTestContext()
	defer closeScope()

	item := tc.createTestItem(ctx, "Forklift 3")
	issue := tc.createTestIssue(ctx, item.ID, "Hydraulic drift", time.Now())

	resolvedAt := time.Now().UTC().Truncate(time.Millisecond)
	_, err := tc.repo.UpdateStatus(ctx, issue.ID, models.IssueStatusResolved, resolvedAt)
	require.NoError(t, err)

	closed, err := tc.repo.UpdateStatus(ctx, issue.ID, models.IssueStatusClosed, resolvedAt.Add(time.Hour))
	require.NoError(t, err)

	require.NotNil(t, closed.ResolvedAt)
	assert.WithinDuration(t, resolvedAt, *closed.ResolvedAt, time.Second)
}

func TestIssueRepository_UpdateStatus_NotFound(t *testing.T) {
	tc := setupIssueTest(t)
	defer tc.cleanup()
	ctx, closeScope := tc.createTestContext()
	defer closeScope()

	_, err := tc.repo.UpdateStatus(ctx, 999999, models.IssueStatusResolved, time.Now())
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestIssueRepository_UpdateGroupStatus_SkipsSettledMembers(t *testing.T) {
	tc := setupIssueTest(t)
	defer tc.cleanup()
	ctx, closeScope := tc.createTestContext()
	defer closeScope()

	item := tc.createTestItem(ctx, "Chiller Bank")
	groupID := "chiller-vibration"

	makeMember := func(desc string) *models.Issue {
		issue := &models.Issue{
			OrgID:       tc.orgID,
			ItemID:      item.ID,
			Description: desc,
			GroupID:     &groupID,
		}
		require.NoError(t, tc.repo.Create(ctx, issue))
		return issue
	}

	open := makeMember("Vibration at startup")
	inProgress := makeMember("Vibration under load")
	_, err := tc.repo.UpdateStatus(ctx, inProgress.ID, models.IssueStatusInProgress, time.Now())
	require.NoError(t, err)

	settled := makeMember("Vibration after service")
	_, err = tc.repo.UpdateStatus(ctx, settled.ID, models.IssueStatusResolved, time.Now())
	require.NoError(t, err)

	ids, err := tc.repo.UpdateGroupStatus(ctx, groupID, models.IssueStatusResolved, time.Now())
	require.NoError(t, err)

	assert.Len(t, ids, 2)
	assert.Contains(t, ids, open.ID)
	assert.Contains(t, ids, inProgress.ID)
	assert.NotContains(t, ids, settled.ID)

	// Repeating the call is a no-op.
	ids, err = tc.repo.UpdateGroupStatus(ctx, groupID, models.IssueStatusResolved, time.Now())
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestIssueRepository_UpdateGroupStatus_UnknownGroup(t *testing.T) {
	tc := setupIssueTest(t)
	defer tc.cleanup()
	ctx, closeScope := tc.createTestContext()
	defer closeScope()

	ids, err := tc.repo.UpdateGroupStatus(ctx, "no-such-group", models.IssueStatusResolved, time.Now())
	require.NoError(t, err)
	assert.Empty(t, ids)
}
