package repository

import (
	"context"
	"errors"
	"log/slog"

	"github.com/kaizen-ngo/backend/internal/model"
)

// FallbackProjectStore は primary が ErrUnavailable を返したとき同じ呼び出しを fallback で再実行する。
// fallback（FileStore）自身の失敗はそのまま返す。
type FallbackProjectStore struct {
	primary  ProjectStore
	fallback ProjectStore
}

// NewFallbackProjectStore は FallbackProjectStore を生成する
func NewFallbackProjectStore(primary, fallback ProjectStore) *FallbackProjectStore {
	return &FallbackProjectStore{primary: primary, fallback: fallback}
}

func shouldFallback(entity, op string, err error) bool {
	if !errors.Is(err, ErrUnavailable) {
		return false
	}
	slog.Warn("primary backend unavailable, falling back to file store", "entity", entity, "op", op, "error", err)
	return true
}

func (s *FallbackProjectStore) ListAll(ctx context.Context) ([]*model.Project, error) {
	out, err := s.primary.ListAll(ctx)
	if shouldFallback(model.EntityProject, "list", err) {
		return s.fallback.ListAll(ctx)
	}
	return out, err
}

func (s *FallbackProjectStore) FindByID(ctx context.Context, id string) (*model.Project, error) {
	out, err := s.primary.FindByID(ctx, id)
	if shouldFallback(model.EntityProject, "find", err) {
		return s.fallback.FindByID(ctx, id)
	}
	return out, err
}

func (s *FallbackProjectStore) Upsert(ctx context.Context, p *model.Project) error {
	err := s.primary.Upsert(ctx, p)
	if shouldFallback(model.EntityProject, "upsert", err) {
		return s.fallback.Upsert(ctx, p)
	}
	return err
}

func (s *FallbackProjectStore) Remove(ctx context.Context, id string) (*model.Project, error) {
	out, err := s.primary.Remove(ctx, id)
	if shouldFallback(model.EntityProject, "remove", err) {
		return s.fallback.Remove(ctx, id)
	}
	return out, err
}

// FallbackPostStore は PostStore 版の FallbackProjectStore
type FallbackPostStore struct {
	primary  PostStore
	fallback PostStore
}

func NewFallbackPostStore(primary, fallback PostStore) *FallbackPostStore {
	return &FallbackPostStore{primary: primary, fallback: fallback}
}

func (s *FallbackPostStore) ListAll(ctx context.Context) ([]*model.Post, error) {
	out, err := s.primary.ListAll(ctx)
	if shouldFallback(model.EntityPost, "list", err) {
		return s.fallback.ListAll(ctx)
	}
	return out, err
}

func (s *FallbackPostStore) FindByID(ctx context.Context, id string) (*model.Post, error) {
	out, err := s.primary.FindByID(ctx, id)
	if shouldFallback(model.EntityPost, "find", err) {
		return s.fallback.FindByID(ctx, id)
	}
	return out, err
}

func (s *FallbackPostStore) Upsert(ctx context.Context, p *model.Post) error {
	err := s.primary.Upsert(ctx, p)
	if shouldFallback(model.EntityPost, "upsert", err) {
		return s.fallback.Upsert(ctx, p)
	}
	return err
}

func (s *FallbackPostStore) Remove(ctx context.Context, id string) (*model.Post, error) {
	out, err := s.primary.Remove(ctx, id)
	if shouldFallback(model.EntityPost, "remove", err) {
		return s.fallback.Remove(ctx, id)
	}
	return out, err
}
