package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/kaizen-ngo/backend/internal/model"
	"github.com/kaizen-ngo/backend/internal/repository"
	"github.com/kaizen-ngo/backend/internal/taxonomy"
	"github.com/kaizen-ngo/backend/pkg/auth"
)

func strPtr(s string) *string { return &s }

// newFileBackedProjectService は一時ディレクトリの FileStore を使う ProjectService を返す
func newFileBackedProjectService(t *testing.T) (*ProjectServiceImpl, *mockChangeLogStore) {
	t.Helper()
	logs := &mockChangeLogStore{}
	svc := &ProjectServiceImpl{
		store:   repository.NewFileProjectStoreInDir(t.TempDir()),
		changes: newTestChangeLog(logs),
		now:     fixedClock,
	}
	return svc, logs
}

func TestProjectService_CreateThenGet(t *testing.T) {
	svc, logs := newFileBackedProjectService(t)
	ctx := adminCtx()

	p := &model.Project{Title: "Youth Camp", Category: "local"}
	if err := svc.Create(ctx, p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ID != "local-1792056600000" {
		t.Errorf("unexpected id %q", p.ID)
	}

	got, err := svc.Get(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Status != model.StatusActive {
		t.Errorf("expected status=active, got %q", got.Status)
	}
	if got.Image != model.DefaultProjectImage {
		t.Errorf("expected placeholder image, got %q", got.Image)
	}
	if got.Gallery == nil || len(got.Gallery) != 0 {
		t.Errorf("expected empty gallery, got %v", got.Gallery)
	}
	if got.Date != "2026-10-15" {
		t.Errorf("expected today's date, got %q", got.Date)
	}
	if got.Category != taxonomy.Local {
		t.Errorf("expected category local, got %q", got.Category)
	}

	if len(logs.entries) != 1 || logs.entries[0].Action != model.ActionCreated || logs.entries[0].Title != "Youth Camp" {
		t.Errorf("unexpected change log: %+v", logs.entries)
	}
}

func TestProjectService_Create_RequiresPrincipal(t *testing.T) {
	svc, _ := newFileBackedProjectService(t)
	err := svc.Create(context.Background(), &model.Project{Title: "x", Category: "local"})
	if !errors.Is(err, auth.ErrUnauthenticated) {
		t.Errorf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestProjectService_Create_ValidationError(t *testing.T) {
	svc, logs := newFileBackedProjectService(t)
	for _, p := range []*model.Project{
		{Category: "local"},
		{Title: "x"},
		{Title: "x", Category: "ka999"},
	} {
		if err := svc.Create(adminCtx(), p); !errors.Is(err, model.ErrValidation) {
			t.Errorf("expected validation error for %+v, got %v", p, err)
		}
	}
	if len(logs.entries) != 0 {
		t.Errorf("expected no change log entries, got %d", len(logs.entries))
	}
}

func TestProjectService_Create_BumpsCollidingID(t *testing.T) {
	svc, _ := newFileBackedProjectService(t)
	ctx := adminCtx()

	first := &model.Project{Title: "A", Category: "local"}
	second := &model.Project{Title: "B", Category: "local"}
	if err := svc.Create(ctx, first); err != nil {
		t.Fatal(err)
	}
	if err := svc.Create(ctx, second); err != nil {
		t.Fatal(err)
	}
	if first.ID == second.ID {
		t.Fatalf("expected distinct ids, both %q", first.ID)
	}
	if second.ID != "local-1792056600001" {
		t.Errorf("expected bumped id, got %q", second.ID)
	}
}

func TestProjectService_List_TreeShape(t *testing.T) {
	svc, _ := newFileBackedProjectService(t)
	ctx := adminCtx()

	for _, c := range []string{"local", "k152", "ka153", "ka210", "k220"} {
		if err := svc.Create(ctx, &model.Project{Title: c, Category: taxonomy.Category(c)}); err != nil {
			t.Fatalf("create %s: %v", c, err)
		}
	}

	tree, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(tree.Local) != 1 || len(tree.Erasmus.K1.KA152) != 1 || len(tree.Erasmus.K1.KA153) != 1 ||
		len(tree.Erasmus.K2.KA210) != 1 || len(tree.Erasmus.K2.KA220) != 1 {
		t.Errorf("unexpected tree: %+v", tree)
	}
	if tree.Erasmus.K1.KA152[0].Category != taxonomy.KA152 {
		t.Errorf("expected legacy k152 normalized, got %q", tree.Erasmus.K1.KA152[0].Category)
	}

	// 書き込みが無ければ同じ結果になる
	again, err := svc.List(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	a, _ := json.Marshal(tree)
	b, _ := json.Marshal(again)
	if string(a) != string(b) {
		t.Errorf("List is not idempotent:\n%s\n%s", a, b)
	}
}

func TestProjectService_Update_PartialAndCategoryMove(t *testing.T) {
	svc, logs := newFileBackedProjectService(t)
	ctx := adminCtx()

	p := &model.Project{Title: "Youth Camp", Category: "local", Description: "desc", Gallery: []string{"/a.jpg"}}
	if err := svc.Create(ctx, p); err != nil {
		t.Fatal(err)
	}

	updated, err := svc.Update(ctx, p.ID, &model.ProjectPatch{Status: strPtr(model.StatusCompleted)})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.Status != model.StatusCompleted {
		t.Errorf("expected status completed, got %q", updated.Status)
	}
	if updated.Title != "Youth Camp" || updated.Description != "desc" || len(updated.Gallery) != 1 || updated.Category != taxonomy.Local {
		t.Errorf("other fields changed: %+v", updated)
	}

	if _, err := svc.Update(ctx, p.ID, &model.ProjectPatch{Category: strPtr("k152")}); err != nil {
		t.Fatal(err)
	}
	tree, err := svc.List(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(tree.Local) != 0 || len(tree.Erasmus.K1.KA152) != 1 || tree.Erasmus.K1.KA152[0].ID != p.ID {
		t.Errorf("expected project under erasmus.k1.ka152, got %+v", tree)
	}
	if len(logs.entries) != 3 || logs.entries[2].Action != model.ActionUpdated {
		t.Errorf("unexpected change log: %+v", logs.entries)
	}
}

func TestProjectService_Update_NotFoundAndValidation(t *testing.T) {
	svc, _ := newFileBackedProjectService(t)
	ctx := adminCtx()

	if _, err := svc.Update(ctx, "missing", &model.ProjectPatch{Status: strPtr(model.StatusDraft)}); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := svc.Update(ctx, "missing", &model.ProjectPatch{Title: strPtr("")}); !errors.Is(err, model.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestProjectService_Delete(t *testing.T) {
	svc, logs := newFileBackedProjectService(t)
	ctx := adminCtx()

	p := &model.Project{Title: "Youth Camp", Category: "local"}
	if err := svc.Create(ctx, p); err != nil {
		t.Fatal(err)
	}
	removed, err := svc.Delete(ctx, p.ID)
	if err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if removed.Title != "Youth Camp" {
		t.Errorf("unexpected removed project %+v", removed)
	}
	if _, err := svc.Get(context.Background(), p.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	last := logs.entries[len(logs.entries)-1]
	if last.Action != model.ActionDeleted || last.Title != "Youth Camp" {
		t.Errorf("expected deleted entry with pre-delete title, got %+v", last)
	}
	if _, err := svc.Delete(ctx, p.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestProjectService_ChangeLogFailureIsSwallowed(t *testing.T) {
	logs := &mockChangeLogStore{
		appendFunc: func(ctx context.Context, e *model.ChangeLogEntry) error {
			return errors.New("changelog down")
		},
	}
	svc := &ProjectServiceImpl{
		store:   repository.NewFileProjectStoreInDir(t.TempDir()),
		changes: newTestChangeLog(logs),
		now:     fixedClock,
	}
	if err := svc.Create(adminCtx(), &model.Project{Title: "x", Category: "local"}); err != nil {
		t.Errorf("expected change log failure to be swallowed, got %v", err)
	}
}

func TestProjectService_StoreErrorsPropagate(t *testing.T) {
	storeErr := errors.New("disk on fire")
	svc := &ProjectServiceImpl{
		store: &mockProjectStore{
			findByIDFunc: func(ctx context.Context, id string) (*model.Project, error) {
				return nil, repository.ErrNotFound
			},
			upsertFunc: func(ctx context.Context, p *model.Project) error { return storeErr },
		},
		changes: newTestChangeLog(&mockChangeLogStore{}),
		now:     fixedClock,
	}
	if err := svc.Create(adminCtx(), &model.Project{Title: "x", Category: "local"}); !errors.Is(err, storeErr) {
		t.Errorf("expected store error, got %v", err)
	}
}

func TestProjectService_Stats(t *testing.T) {
	svc := &ProjectServiceImpl{
		store: &mockProjectStore{
			listAllFunc: func(ctx context.Context) ([]*model.Project, error) {
				return []*model.Project{
					{ID: "1", Category: "local"},
					{ID: "2", Category: "k152"},
					{ID: "3", Category: "ka153"},
					{ID: "4", Category: "ka210"},
					{ID: "5", Category: "k220"},
					{ID: "6", Category: "ka220"},
				}, nil
			},
		},
		changes: newTestChangeLog(&mockChangeLogStore{}),
		now:     fixedClock,
	}
	stats, err := svc.Stats(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if stats.LocalCount != 1 || stats.KA1Count != 2 || stats.KA2Count != 3 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}
