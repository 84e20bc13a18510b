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

// IssueRepository defines the interface for issue data access.
//
// Status changes are issued as single conditional UPDATE statements rather
// than read-modify-write loops, so concurrent transitions on the same row
// cannot lose updates.
type IssueRepository interface {
	Create(ctx context.Context, issue *models.Issue) error
	Get(ctx context.Context, id int64) (*models.Issue, error)
	// ListWithItems returns issue rows pre-joined with their owning item's
	// name/type/location, ordered by reported_at descending.
	ListWithItems(ctx context.Context) ([]models.IssueWithItem, error)
	// UpdateStatus transitions a single issue. The WHERE clause enforces
	// forward-only movement and that closed is entered only from resolved;
	// zero rows affected on an existing issue means the transition was
	// rejected.
	UpdateStatus(ctx context.Context, id int64, newStatus string, now time.Time) (*models.Issue, error)
	// UpdateGroupStatus transitions every open/in_progress issue in the
	// group, returning affected issue IDs. Already resolved/closed members
	// are untouched.
	UpdateGroupStatus(ctx context.Context, groupID string, newStatus string, now time.Time) ([]int64, error)
}

// issueRepository implements IssueRepository using PostgreSQL.
type issueRepository struct{}

// NewIssueRepository creates a new issue repository.
func NewIssueRepository() IssueRepository {
	return &issueRepository{}
}

// statusOrder is the forward transition order used in conditional updates.
const statusOrder = `'{open,in_progress,resolved,closed}'`

const issueColumns = `i.id, i.uid, i.org_id, i.item_id, i.description, i.issue_type, i.urgency,
	i.is_critical, i.status, i.reported_at, i.resolved_at, i.reported_by, i.contact_info,
	i.internal_notes, i.image_path, i.group_id, i.metadata`

func scanIssue(row pgx.Row) (*models.Issue, error) {
	var issue models.Issue
	err := row.Scan(
		&issue.ID,
		&issue.UID,
		&issue.OrgID,
		&issue.ItemID,
		&issue.Description,
		&issue.IssueType,
		&issue.Urgency,
		&issue.IsCritical,
		&issue.Status,
		&issue.ReportedAt,
		&issue.ResolvedAt,
		&issue.ReportedBy,
		&issue.ContactInfo,
		&issue.InternalNotes,
		&issue.ImagePath,
		&issue.GroupID,
		&issue.Metadata,
	)
	if err != nil {
		return nil, err
	}
	return &issue, nil
}

// Create inserts a new issue row.
func (r *issueRepository) Create(ctx context.Context, issue *models.Issue) error {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return fmt.Errorf("no tenant scope in context")
	}

	if issue.UID == uuid.Nil {
		issue.UID = uuid.New()
	}
	if issue.Status == "" {
		issue.Status = models.IssueStatusOpen
	}
	if issue.Urgency == "" {
		issue.Urgency = models.UrgencyMedium
	}
	if issue.ReportedAt.IsZero() {
		issue.ReportedAt = time.Now()
	}
	issue.IsCritical = models.DeriveCritical(issue.Urgency, issue.IsCritical)

	query := `
		INSERT INTO issues (uid, org_id, item_id, description, issue_type, urgency, is_critical,
			status, reported_at, reported_by, contact_info, internal_notes, image_path, group_id, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id`

	err := scope.Conn.QueryRow(ctx, query,
		issue.UID,
		issue.OrgID,
		issue.ItemID,
		issue.Description,
		issue.IssueType,
		issue.Urgency,
		issue.IsCritical,
		issue.Status,
		issue.ReportedAt,
		issue.ReportedBy,
		issue.ContactInfo,
		issue.InternalNotes,
		issue.ImagePath,
		issue.GroupID,
		issue.Metadata,
	).Scan(&issue.ID)
	if err != nil {
		return fmt.Errorf("failed to create issue: %w", err)
	}

	return nil
}

// Get retrieves an issue by ID.
func (r *issueRepository) Get(ctx context.Context, id int64) (*models.Issue, error) {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no tenant scope in context")
	}

	issue, err := scanIssue(scope.Conn.QueryRow(ctx,
		`SELECT `+issueColumns+` FROM issues i WHERE i.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get issue: %w", err)
	}

	return issue, nil
}

// ListWithItems returns all tenant issues joined with item display fields,
// newest first. The reported_at ordering is a display invariant the
// grouping engine and pagination depend on.
func (r *issueRepository) ListWithItems(ctx context.Context) ([]models.IssueWithItem, error) {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no tenant scope in context")
	}

	query := `
		SELECT ` + issueColumns + `, it.name, it.type, it.location
		FROM issues i
		JOIN items it ON it.id = i.item_id
		ORDER BY i.reported_at DESC, i.id DESC`

	rows, err := scope.Conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list issues: %w", err)
	}
	defer rows.Close()

	var issues []models.IssueWithItem
	for rows.Next() {
		var row models.IssueWithItem
		err := rows.Scan(
			&row.ID,
			&row.UID,
			&row.OrgID,
			&row.ItemID,
			&row.Description,
			&row.IssueType,
			&row.Urgency,
			&row.IsCritical,
			&row.Status,
			&row.ReportedAt,
			&row.ResolvedAt,
			&row.ReportedBy,
			&row.ContactInfo,
			&row.InternalNotes,
			&row.ImagePath,
			&row.GroupID,
			&row.Metadata,
			&row.ItemName,
			&row.ItemType,
			&row.ItemLocation,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan issue: %w", err)
		}
		issues = append(issues, row)
	}

	return issues, rows.Err()
}

// UpdateStatus transitions one issue forward. The conditional WHERE clause
// makes the forward-only check and the write a single atomic statement.
// Closed is only reachable from resolved, so a closed row always carries
// resolved_at. Entering resolved stamps resolved_at once; it is never
// cleared.
func (r *issueRepository) UpdateStatus(ctx context.Context, id int64, newStatus string, now time.Time) (*models.Issue, error) {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no tenant scope in context")
	}

	query := `
		UPDATE issues i SET
			status = $2,
			resolved_at = CASE
				WHEN $2 = 'resolved' AND i.status <> 'resolved' THEN $3
				ELSE i.resolved_at
			END
		WHERE i.id = $1
		  AND array_position(` + statusOrder + `::text[], i.status)
		      <= array_position(` + statusOrder + `::text[], $2)
		  AND ($2 <> 'closed' OR i.status = ANY('{resolved,closed}'::text[]))
		RETURNING ` + issueColumns

	issue, err := scanIssue(scope.Conn.QueryRow(ctx, query, id, newStatus, now))
	if err == nil {
		return issue, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to update issue status: %w", err)
	}

	// Zero rows: distinguish a missing issue from a rejected transition.
	var exists bool
	if err := scope.Conn.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM issues WHERE id = $1)`, id).Scan(&exists); err != nil {
		return nil, fmt.Errorf("failed to check issue existence: %w", err)
	}
	if !exists {
		return nil, apperrors.ErrNotFound
	}
	return nil, apperrors.ErrInvalidTransition
}

// UpdateGroupStatus transitions every open/in_progress member of a
// similarity group in one atomic statement. Members already past the
// target status are skipped by the forward-only condition rather than
// erroring, which makes repeated calls idempotent. A group transition to
// closed affects no members: closed requires resolved first, and the
// statement only touches open/in_progress rows.
func (r *issueRepository) UpdateGroupStatus(ctx context.Context, groupID string, newStatus string, now time.Time) ([]int64, error) {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no tenant scope in context")
	}

	query := `
		UPDATE issues i SET
			status = $2,
			resolved_at = CASE
				WHEN $2 = 'resolved' AND i.status <> 'resolved' THEN $3
				ELSE i.resolved_at
			END
		WHERE i.group_id = $1
		  AND i.status = ANY('{open,in_progress}'::text[])
		  AND $2 <> 'closed'
		  AND array_position(` + statusOrder + `::text[], i.status)
		      <= array_position(` + statusOrder + `::text[], $2)
		RETURNING i.id`

	rows, err := scope.Conn.Query(ctx, query, groupID, newStatus, now)
	if err != nil {
		return nil, fmt.Errorf("failed to update group status: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan issue id: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

// Ensure issueRepository implements IssueRepository at compile time.
var _ IssueRepository = (*issueRepository)(nil)
