package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/kaizen-ngo/backend/internal/model"
)

type changeLogFileShape struct {
	Entries []*model.ChangeLogEntry `json:"entries"`
}

// JSONChangeLogStore は changelog.json に追記する ChangeLogStore
type JSONChangeLogStore struct {
	medium blobMedium
}

// NewFileChangeLogStore は dir/changelog.json を使う変更履歴ストアを生成する
func NewFileChangeLogStore(dir string) *JSONChangeLogStore {
	return &JSONChangeLogStore{medium: diskMedium{path: filepath.Join(dir, ChangeLogFile)}}
}

func (s *JSONChangeLogStore) read(ctx context.Context) (*changeLogFileShape, string, error) {
	data, rev, err := s.medium.load(ctx)
	if err != nil {
		return nil, "", err
	}
	shape := &changeLogFileShape{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, shape); err != nil {
			return nil, "", unavailable(fmt.Errorf("decode %s: %w", ChangeLogFile, err))
		}
	}
	return shape, rev, nil
}

func (s *JSONChangeLogStore) Append(ctx context.Context, e *model.ChangeLogEntry) error {
	shape, rev, err := s.read(ctx)
	if err != nil {
		return opErr("append", "changelog", "", err)
	}
	entry := *e
	shape.Entries = append(shape.Entries, &entry)
	data, err := json.MarshalIndent(shape, "", "  ")
	if err != nil {
		return opErr("append", "changelog", "", err)
	}
	return opErr("append", "changelog", "", s.medium.save(ctx, data, rev))
}

// Recent は entity の履歴を timestamp の新しい順に最大 limit 件返す
func (s *JSONChangeLogStore) Recent(ctx context.Context, entity string, limit int) ([]*model.ChangeLogEntry, error) {
	shape, _, err := s.read(ctx)
	if err != nil {
		return nil, opErr("recent", "changelog", "", err)
	}
	out := []*model.ChangeLogEntry{}
	for _, e := range shape.Entries {
		if e != nil && e.Entity == entity {
			out = append(out, e)
		}
	}
	// 追記順が新しい方を優先するため、逆順にしてから安定ソートする
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
