package service

import (
	"context"
	"errors"
	"time"

	"github.com/kaizen-ngo/backend/internal/model"
	"github.com/kaizen-ngo/backend/pkg/auth"
)

var fixedNow = time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

// adminCtx は認証済みの context
func adminCtx() context.Context {
	return auth.WithPrincipal(context.Background(), &auth.Principal{Subject: "admin-1"})
}

// mockProjectStore は repository.ProjectStore のモック
type mockProjectStore struct {
	listAllFunc  func(ctx context.Context) ([]*model.Project, error)
	findByIDFunc func(ctx context.Context, id string) (*model.Project, error)
	upsertFunc   func(ctx context.Context, p *model.Project) error
	removeFunc   func(ctx context.Context, id string) (*model.Project, error)
}

func (m *mockProjectStore) ListAll(ctx context.Context) ([]*model.Project, error) {
	if m.listAllFunc != nil {
		return m.listAllFunc(ctx)
	}
	return nil, nil
}

func (m *mockProjectStore) FindByID(ctx context.Context, id string) (*model.Project, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return nil, errors.New("not implemented")
}

func (m *mockProjectStore) Upsert(ctx context.Context, p *model.Project) error {
	if m.upsertFunc != nil {
		return m.upsertFunc(ctx, p)
	}
	return nil
}

func (m *mockProjectStore) Remove(ctx context.Context, id string) (*model.Project, error) {
	if m.removeFunc != nil {
		return m.removeFunc(ctx, id)
	}
	return nil, errors.New("not implemented")
}

// mockChangeLogStore は repository.ChangeLogStore のモック
type mockChangeLogStore struct {
	appendFunc func(ctx context.Context, e *model.ChangeLogEntry) error
	recentFunc func(ctx context.Context, entity string, limit int) ([]*model.ChangeLogEntry, error)
	entries    []*model.ChangeLogEntry
}

func (m *mockChangeLogStore) Append(ctx context.Context, e *model.ChangeLogEntry) error {
	if m.appendFunc != nil {
		return m.appendFunc(ctx, e)
	}
	m.entries = append(m.entries, e)
	return nil
}

func (m *mockChangeLogStore) Recent(ctx context.Context, entity string, limit int) ([]*model.ChangeLogEntry, error) {
	if m.recentFunc != nil {
		return m.recentFunc(ctx, entity, limit)
	}
	return m.entries, nil
}

func newTestChangeLog(store *mockChangeLogStore) ChangeLogService {
	return &changeLogService{store: store, now: fixedClock}
}
