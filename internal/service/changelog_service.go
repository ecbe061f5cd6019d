package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/kaizen-ngo/backend/internal/model"
	"github.com/kaizen-ngo/backend/internal/repository"
)

// ChangeLogService は管理画面の変更履歴（追記専用）
type ChangeLogService interface {
	// Record は履歴を追記する。失敗はログに残すだけで呼び出し元には返さない。
	Record(ctx context.Context, action model.ChangeAction, entity, title string)
	// Recent は entity の直近 model.RecentChangesLimit 件を新しい順に返す
	Recent(ctx context.Context, entity string) ([]*model.ChangeLogEntry, error)
}

type changeLogService struct {
	store repository.ChangeLogStore
	now   func() time.Time
}

// NewChangeLogService は ChangeLogService を生成する。store が nil なら記録しない。
func NewChangeLogService(store repository.ChangeLogStore) ChangeLogService {
	return &changeLogService{store: store, now: time.Now}
}

func (s *changeLogService) Record(ctx context.Context, action model.ChangeAction, entity, title string) {
	if s.store == nil {
		return
	}
	e := &model.ChangeLogEntry{Action: action, Entity: entity, Title: title, Timestamp: s.now().UTC()}
	if err := s.store.Append(ctx, e); err != nil {
		slog.Warn("change log append failed", "action", action, "entity", entity, "title", title, "error", err)
	}
}

func (s *changeLogService) Recent(ctx context.Context, entity string) ([]*model.ChangeLogEntry, error) {
	if s.store == nil {
		return []*model.ChangeLogEntry{}, nil
	}
	return s.store.Recent(ctx, entity, model.RecentChangesLimit)
}
