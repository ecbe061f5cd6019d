package repository

import (
	"context"

	"github.com/kaizen-ngo/backend/internal/model"
)

// DB は接続の生存確認を行うインターフェース
type DB interface {
	Ping(ctx context.Context) error
}

// ProjectStore はプロジェクト永続化の共通契約。
// 実装は呼び出し間でキャッシュせず、毎回バックエンドから読み直す。
type ProjectStore interface {
	// ListAll は全件を返す（ページングなし）
	ListAll(ctx context.Context) ([]*model.Project, error)
	// FindByID は id のプロジェクトを返す。存在しなければ ErrNotFound。
	FindByID(ctx context.Context, id string) (*model.Project, error)
	// Upsert は id が未登録なら追加、登録済みなら全置換する
	Upsert(ctx context.Context, p *model.Project) error
	// Remove は削除したプロジェクトを返す。存在しなければ ErrNotFound。
	Remove(ctx context.Context, id string) (*model.Project, error)
}

// PostStore はブログ記事永続化の共通契約
type PostStore interface {
	ListAll(ctx context.Context) ([]*model.Post, error)
	FindByID(ctx context.Context, id string) (*model.Post, error)
	Upsert(ctx context.Context, p *model.Post) error
	Remove(ctx context.Context, id string) (*model.Post, error)
}

// Clearer は全レコード削除（移行先の初期化用）をサポートするストア
type Clearer interface {
	Clear(ctx context.Context) error
}

// ChangeLogStore は追記専用の変更履歴ストア
type ChangeLogStore interface {
	Append(ctx context.Context, e *model.ChangeLogEntry) error
	// Recent は entity の履歴を新しい順に最大 limit 件返す
	Recent(ctx context.Context, entity string, limit int) ([]*model.ChangeLogEntry, error)
}
