package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/kaizen-ngo/backend/internal/model"
	"github.com/kaizen-ngo/backend/internal/repository"
	"github.com/kaizen-ngo/backend/internal/taxonomy"
	"github.com/kaizen-ngo/backend/pkg/auth"
)

// ProjectServiceImpl は ProjectService の実装
type ProjectServiceImpl struct {
	store   repository.ProjectStore
	changes ChangeLogService
	now     func() time.Time
}

// NewProjectService は ProjectServiceImpl を生成する（DI: ProjectStore と ChangeLogService を注入）
func NewProjectService(store repository.ProjectStore, changes ChangeLogService) ProjectService {
	return &ProjectServiceImpl{store: store, changes: changes, now: time.Now}
}

// Get は id のプロジェクトをカテゴリ付きで返す
func (s *ProjectServiceImpl) Get(ctx context.Context, id string) (*model.Project, error) {
	p, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Normalize()
	return p, nil
}

// List は全件をカテゴリツリーに振り分けて返す
func (s *ProjectServiceImpl) List(ctx context.Context) (*model.ProjectTree, error) {
	projects, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	tree := model.NewProjectTree()
	for _, p := range projects {
		p.Normalize()
		if !tree.Add(p) {
			slog.Warn("project with unknown category skipped", "id", p.ID, "category", p.Category)
		}
	}
	return tree, nil
}

// Create は検証・デフォルト補完・id 採番を行って保存する。project に id 等が書き戻される。
func (s *ProjectServiceImpl) Create(ctx context.Context, project *model.Project) error {
	if _, err := auth.RequirePrincipal(ctx); err != nil {
		return err
	}
	now := s.now()
	if err := project.PrepareForCreate(now); err != nil {
		return err
	}
	id, err := nextID(ctx, string(project.Category), now, func(ctx context.Context, id string) error {
		_, err := s.store.FindByID(ctx, id)
		return err
	})
	if err != nil {
		return err
	}
	project.ID = id

	if err := s.store.Upsert(ctx, project); err != nil {
		return err
	}
	s.changes.Record(ctx, model.ActionCreated, model.EntityProject, project.Title)
	return nil
}

// Update は現在値に patch を重ねて全置換で保存する
func (s *ProjectServiceImpl) Update(ctx context.Context, id string, patch *model.ProjectPatch) (*model.Project, error) {
	if _, err := auth.RequirePrincipal(ctx); err != nil {
		return nil, err
	}
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	current, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	current.Normalize()
	updated := patch.Apply(current)
	updated.ID = id

	if err := s.store.Upsert(ctx, updated); err != nil {
		return nil, err
	}
	s.changes.Record(ctx, model.ActionUpdated, model.EntityProject, updated.Title)
	return updated, nil
}

// Delete は削除したプロジェクトを返し、削除前のタイトルで履歴を残す
func (s *ProjectServiceImpl) Delete(ctx context.Context, id string) (*model.Project, error) {
	if _, err := auth.RequirePrincipal(ctx); err != nil {
		return nil, err
	}
	removed, err := s.store.Remove(ctx, id)
	if err != nil {
		return nil, err
	}
	removed.Normalize()
	s.changes.Record(ctx, model.ActionDeleted, model.EntityProject, removed.Title)
	return removed, nil
}

// Stats は local / KA1 / KA2 の件数を返す
func (s *ProjectServiceImpl) Stats(ctx context.Context) (*model.ProjectStats, error) {
	projects, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	stats := &model.ProjectStats{}
	for _, p := range projects {
		c := taxonomy.Normalize(string(p.Category))
		switch {
		case c == taxonomy.Local:
			stats.LocalCount++
		case c.IsKA1():
			stats.KA1Count++
		case c.IsKA2():
			stats.KA2Count++
		}
	}
	return stats, nil
}
