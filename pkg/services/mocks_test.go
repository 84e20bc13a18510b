package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/upkept/upkept-engine/pkg/apperrors"
	"github.com/upkept/upkept-engine/pkg/models"
)

// mockItemRepo is a hand-rolled ItemRepository backed by a slice.
type mockItemRepo struct {
	items   []*models.Item
	listErr error
	nextID  int64
}

func (m *mockItemRepo) Create(ctx context.Context, item *models.Item) error {
	m.nextID++
	item.ID = m.nextID
	if item.UID == uuid.Nil {
		item.UID = uuid.New()
	}
	m.items = append(m.items, item)
	return nil
}

func (m *mockItemRepo) List(ctx context.Context) ([]*models.Item, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.items, nil
}

func (m *mockItemRepo) Get(ctx context.Context, id int64) (*models.Item, error) {
	for _, item := range m.items {
		if item.ID == id {
			return item, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (m *mockItemRepo) GetByUID(ctx context.Context, uid uuid.UUID) (*models.Item, error) {
	for _, item := range m.items {
		if item.UID == uid {
			return item, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (m *mockItemRepo) UpdateStatus(ctx context.Context, id int64, status string) error {
	item, err := m.Get(ctx, id)
	if err != nil {
		return err
	}
	item.Status = status
	return nil
}

func (m *mockItemRepo) TouchMaintenance(ctx context.Context, id int64, at time.Time) error {
	item, err := m.Get(ctx, id)
	if err != nil {
		return err
	}
	item.LastMaintenanceAt = &at
	return nil
}

// mockIssueRepo is a hand-rolled IssueRepository backed by a slice.
type mockIssueRepo struct {
	issues  []models.IssueWithItem
	listErr error
	nextID  int64
}

func (m *mockIssueRepo) Create(ctx context.Context, issue *models.Issue) error {
	m.nextID++
	issue.ID = m.nextID
	if issue.UID == uuid.Nil {
		issue.UID = uuid.New()
	}
	m.issues = append(m.issues, models.IssueWithItem{Issue: *issue})
	return nil
}

func (m *mockIssueRepo) Get(ctx context.Context, id int64) (*models.Issue, error) {
	for i := range m.issues {
		if m.issues[i].ID == id {
			issue := m.issues[i].Issue
			return &issue, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (m *mockIssueRepo) ListWithItems(ctx context.Context) ([]models.IssueWithItem, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.issues, nil
}

func (m *mockIssueRepo) UpdateStatus(ctx context.Context, id int64, newStatus string, now time.Time) (*models.Issue, error) {
	for i := range m.issues {
		if m.issues[i].ID == id {
			updated, err := m.issues[i].Issue.Transition(newStatus, now)
			if err != nil {
				return nil, err
			}
			m.issues[i].Issue = updated
			return &updated, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (m *mockIssueRepo) UpdateGroupStatus(ctx context.Context, groupID string, newStatus string, now time.Time) ([]int64, error) {
	var updated []int64
	for i := range m.issues {
		issue := &m.issues[i]
		if issue.GroupID == nil || *issue.GroupID != groupID {
			continue
		}
		if !models.IsOpenStatus(issue.Status) {
			continue
		}
		next, err := issue.Issue.Transition(newStatus, now)
		if err != nil {
			return nil, err
		}
		issue.Issue = next
		updated = append(updated, issue.ID)
	}
	return updated, nil
}
