package service

import (
	"context"

	"github.com/kaizen-ngo/backend/internal/model"
)

// ProjectService はカテゴリツリー全体を id で扱うプロジェクトの窓口。
// 書き込み系は context に認証済み Principal が必要。
type ProjectService interface {
	Get(ctx context.Context, id string) (*model.Project, error)
	List(ctx context.Context) (*model.ProjectTree, error)
	Create(ctx context.Context, project *model.Project) error
	Update(ctx context.Context, id string, patch *model.ProjectPatch) (*model.Project, error)
	Delete(ctx context.Context, id string) (*model.Project, error)
	Stats(ctx context.Context) (*model.ProjectStats, error)
}
