package service

import (
	"context"

	"github.com/kaizen-ngo/backend/internal/model"
)

// PostService はブログ記事の窓口。書き込み系は認証済み Principal が必要。
type PostService interface {
	Get(ctx context.Context, id string) (*model.Post, error)
	List(ctx context.Context) ([]*model.Post, error)
	Create(ctx context.Context, in *model.PostInput) (*model.Post, error)
	Update(ctx context.Context, id string, patch *model.PostPatch) (*model.Post, error)
	Delete(ctx context.Context, id string) (*model.Post, error)
}
