package service

import (
	"context"
	"time"

	"github.com/kaizen-ngo/backend/internal/model"
	"github.com/kaizen-ngo/backend/internal/repository"
	"github.com/kaizen-ngo/backend/pkg/auth"
)

// PostServiceImpl は PostService の実装
type PostServiceImpl struct {
	store   repository.PostStore
	changes ChangeLogService
	now     func() time.Time
}

// NewPostService は PostServiceImpl を生成する
func NewPostService(store repository.PostStore, changes ChangeLogService) PostService {
	return &PostServiceImpl{store: store, changes: changes, now: time.Now}
}

func (s *PostServiceImpl) Get(ctx context.Context, id string) (*model.Post, error) {
	return s.store.FindByID(ctx, id)
}

func (s *PostServiceImpl) List(ctx context.Context) ([]*model.Post, error) {
	return s.store.ListAll(ctx)
}

func (s *PostServiceImpl) Create(ctx context.Context, in *model.PostInput) (*model.Post, error) {
	if _, err := auth.RequirePrincipal(ctx); err != nil {
		return nil, err
	}
	now := s.now()
	post, err := in.Build(now)
	if err != nil {
		return nil, err
	}
	post.ID, err = nextID(ctx, "post", now, func(ctx context.Context, id string) error {
		_, err := s.store.FindByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	if err := s.store.Upsert(ctx, post); err != nil {
		return nil, err
	}
	s.changes.Record(ctx, model.ActionCreated, model.EntityPost, post.Title)
	return post, nil
}

func (s *PostServiceImpl) Update(ctx context.Context, id string, patch *model.PostPatch) (*model.Post, error) {
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
	updated := patch.Apply(current, s.now())
	updated.ID = id
	if err := s.store.Upsert(ctx, updated); err != nil {
		return nil, err
	}
	s.changes.Record(ctx, model.ActionUpdated, model.EntityPost, updated.Title)
	return updated, nil
}

func (s *PostServiceImpl) Delete(ctx context.Context, id string) (*model.Post, error) {
	if _, err := auth.RequirePrincipal(ctx); err != nil {
		return nil, err
	}
	removed, err := s.store.Remove(ctx, id)
	if err != nil {
		return nil, err
	}
	s.changes.Record(ctx, model.ActionDeleted, model.EntityPost, removed.Title)
	return removed, nil
}
