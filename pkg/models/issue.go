package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/upkept/upkept-engine/pkg/apperrors"
)

// IssueStatus constants. Transitions only ever move forward through this
// order; see Transition.
const (
	IssueStatusOpen       = "open"
	IssueStatusInProgress = "in_progress"
	IssueStatusResolved   = "resolved"
	IssueStatusClosed     = "closed"
)

// Urgency constants for reported issues.
const (
	UrgencyLow      = "low"
	UrgencyMedium   = "medium"
	UrgencyHigh     = "high"
	UrgencyCritical = "critical"
)

// statusRank orders issue statuses for monotonicity checks.
var statusRank = map[string]int{
	IssueStatusOpen:       0,
	IssueStatusInProgress: 1,
	IssueStatusResolved:   2,
	IssueStatusClosed:     3,
}

// Issue is a single reported problem against an Item. Public reporters may
// be anonymous, so ReportedBy and ContactInfo are free-form and optional.
type Issue struct {
	ID            int64      `json:"id"`
	UID           uuid.UUID  `json:"uid"`
	OrgID         uuid.UUID  `json:"org_id"`
	ItemID        int64      `json:"item_id"`
	Description   string     `json:"description"`
	IssueType     string     `json:"issue_type,omitempty"`
	Urgency       string     `json:"urgency"`
	IsCritical    bool       `json:"is_critical"`
	Status        string     `json:"status"`
	ReportedAt    time.Time  `json:"reported_at"`
	ResolvedAt    *time.Time `json:"resolved_at,omitempty"`
	ReportedBy    string     `json:"reported_by,omitempty"`
	ContactInfo   string     `json:"contact_info,omitempty"`
	InternalNotes string     `json:"internal_notes,omitempty"`
	ImagePath     string     `json:"image_path,omitempty"`
	GroupID       *string    `json:"group_id,omitempty"`
	Metadata      JSONBMap   `json:"metadata,omitempty"`
}

// IssueWithItem is an issue row joined with its owning item's display
// fields. List queries always return this shape so the filter engine can
// search item name and location without a second fetch.
type IssueWithItem struct {
	Issue
	ItemName     string `json:"item_name"`
	ItemType     string `json:"item_type,omitempty"`
	ItemLocation string `json:"item_location,omitempty"`
}

// IsValidIssueStatus reports whether s is a known issue status.
func IsValidIssueStatus(s string) bool {
	_, ok := statusRank[s]
	return ok
}

// IsValidUrgency reports whether u is a known urgency level.
func IsValidUrgency(u string) bool {
	switch u {
	case UrgencyLow, UrgencyMedium, UrgencyHigh, UrgencyCritical:
		return true
	}
	return false
}

// StatusRank returns the ordinal of an issue status, with unknown statuses
// ranked lowest.
func StatusRank(s string) int {
	return statusRank[s]
}

// IsOpenStatus reports whether s counts as "open" for dashboard purposes
// (open or in_progress).
func IsOpenStatus(s string) bool {
	return s == IssueStatusOpen || s == IssueStatusInProgress
}

// Transition returns a copy of the issue moved to newStatus. Backward moves
// fail with apperrors.ErrInvalidTransition and leave the issue unchanged.
// Closed is only reachable from resolved, so a closed issue always carries
// a resolution time. Entering resolved stamps ResolvedAt with now;
// ResolvedAt is never cleared afterwards, so "when was this last resolved"
// survives later edits.
func (i Issue) Transition(newStatus string, now time.Time) (Issue, error) {
	newRank, ok := statusRank[newStatus]
	if !ok {
		return i, apperrors.ErrInvalidTransition
	}
	if newRank < statusRank[i.Status] {
		return i, apperrors.ErrInvalidTransition
	}
	if newStatus == IssueStatusClosed && statusRank[i.Status] < statusRank[IssueStatusResolved] {
		return i, apperrors.ErrInvalidTransition
	}

	out := i
	if newStatus == IssueStatusResolved && i.Status != IssueStatusResolved {
		resolved := now
		out.ResolvedAt = &resolved
	}
	out.Status = newStatus
	return out, nil
}

// DeriveCritical keeps the denormalized is_critical flag consistent with
// urgency. A reporter-provided safety flag may force it true; it is never
// forced false when urgency is critical.
func DeriveCritical(urgency string, safetyFlag bool) bool {
	return urgency == UrgencyCritical || safetyFlag
}
