package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/kaizen-ngo/backend/internal/model"
	"github.com/kaizen-ngo/backend/pkg/ghcontents"
)

type postsFileShape struct {
	Posts []*model.Post `json:"posts"`
}

// filePost は読み込み用。published が無い記事は公開扱いにする。
type filePost struct {
	model.Post
	Published *bool `json:"published"`
}

func decodePosts(data []byte) ([]*model.Post, error) {
	if len(data) == 0 {
		return []*model.Post{}, nil
	}
	var shape struct {
		Posts []*filePost `json:"posts"`
	}
	if err := json.Unmarshal(data, &shape); err != nil {
		return nil, fmt.Errorf("decode %s: %w", PostsFile, err)
	}
	out := make([]*model.Post, 0, len(shape.Posts))
	for _, fp := range shape.Posts {
		if fp == nil {
			continue
		}
		p := fp.Post
		p.Published = fp.Published == nil || *fp.Published
		p.Normalize()
		out = append(out, &p)
	}
	return out, nil
}

func encodePosts(posts []*model.Post) ([]byte, error) {
	if posts == nil {
		posts = []*model.Post{}
	}
	return json.MarshalIndent(postsFileShape{Posts: posts}, "", "  ")
}

// JSONPostStore は blog-posts.json を媒体ごと読み書きする PostStore。
// 新規記事は先頭に追加する（ファイル順 = 新しい順）。
type JSONPostStore struct {
	medium blobMedium
}

// NewFilePostStore はローカルディスク上の blog-posts.json を使う FileStore を生成する
func NewFilePostStore(path string) *JSONPostStore {
	return &JSONPostStore{medium: diskMedium{path: path}}
}

// NewFilePostStoreInDir は dir/blog-posts.json を使う FileStore を生成する
func NewFilePostStoreInDir(dir string) *JSONPostStore {
	return NewFilePostStore(filepath.Join(dir, PostsFile))
}

// NewRemotePostStore はリモートリポジトリ上の path を使う RemoteFileStore を生成する
func NewRemotePostStore(client ghcontents.Client, path string) *JSONPostStore {
	return &JSONPostStore{medium: remoteMedium{client: client, path: path, message: "Update blog posts"}}
}

func (s *JSONPostStore) read(ctx context.Context) ([]*model.Post, string, error) {
	data, rev, err := s.medium.load(ctx)
	if err != nil {
		return nil, "", err
	}
	posts, err := decodePosts(data)
	if err != nil {
		return nil, "", unavailable(err)
	}
	return posts, rev, nil
}

func (s *JSONPostStore) write(ctx context.Context, posts []*model.Post, rev string) error {
	data, err := encodePosts(posts)
	if err != nil {
		return err
	}
	return s.medium.save(ctx, data, rev)
}

func indexOfPost(posts []*model.Post, id string) int {
	for i, p := range posts {
		if p.ID == id {
			return i
		}
	}
	return -1
}

// ListAll はファイル順に全件を返す
func (s *JSONPostStore) ListAll(ctx context.Context) ([]*model.Post, error) {
	posts, _, err := s.read(ctx)
	if err != nil {
		return nil, opErr("list", model.EntityPost, "", err)
	}
	return posts, nil
}

func (s *JSONPostStore) FindByID(ctx context.Context, id string) (*model.Post, error) {
	posts, _, err := s.read(ctx)
	if err != nil {
		return nil, opErr("find", model.EntityPost, id, err)
	}
	i := indexOfPost(posts, id)
	if i < 0 {
		return nil, opErr("find", model.EntityPost, id, ErrNotFound)
	}
	return posts[i], nil
}

func (s *JSONPostStore) Upsert(ctx context.Context, p *model.Post) error {
	stored := p.Clone()
	stored.Normalize()
	posts, rev, err := s.read(ctx)
	if err != nil {
		return opErr("upsert", model.EntityPost, p.ID, err)
	}
	if i := indexOfPost(posts, p.ID); i >= 0 {
		posts[i] = stored
	} else {
		posts = append([]*model.Post{stored}, posts...)
	}
	return opErr("upsert", model.EntityPost, p.ID, s.write(ctx, posts, rev))
}

func (s *JSONPostStore) Remove(ctx context.Context, id string) (*model.Post, error) {
	posts, rev, err := s.read(ctx)
	if err != nil {
		return nil, opErr("remove", model.EntityPost, id, err)
	}
	i := indexOfPost(posts, id)
	if i < 0 {
		return nil, opErr("remove", model.EntityPost, id, ErrNotFound)
	}
	removed := posts[i]
	posts = append(posts[:i], posts[i+1:]...)
	if err := s.write(ctx, posts, rev); err != nil {
		return nil, opErr("remove", model.EntityPost, id, err)
	}
	return removed, nil
}

func (s *JSONPostStore) Clear(ctx context.Context) error {
	_, rev, err := s.medium.load(ctx)
	if err != nil {
		return opErr("clear", model.EntityPost, "", err)
	}
	return opErr("clear", model.EntityPost, "", s.write(ctx, nil, rev))
}
