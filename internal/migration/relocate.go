package migration

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/kaizen-ngo/backend/internal/model"
	"github.com/kaizen-ngo/backend/internal/repository"
	"github.com/kaizen-ngo/backend/internal/storage"
)

// RelocationPrefix は移設先のキー接頭辞
const RelocationPrefix = "projects/"

// RelocationReport は移設の集計
type RelocationReport struct {
	References      int
	Uploaded        int
	Skipped         int // すでにストレージ上にある
	Missing         int // ローカルファイルが無い
	Failed          int
	UpdatedProjects int
	UpdatedPosts    int
}

// Relocator はレコード中の画像参照をオブジェクトストレージへ移し、参照を書き換える
type Relocator struct {
	Projects  repository.ProjectStore
	Posts     repository.PostStore
	Storage   storage.Storage
	PublicDir string
}

// NewRelocator は Relocator を返す
func NewRelocator(projects repository.ProjectStore, posts repository.PostStore, st storage.Storage, publicDir string) *Relocator {
	return &Relocator{Projects: projects, Posts: posts, Storage: st, PublicDir: publicDir}
}

// Run は参照を集め、未移設のものを順にアップロードしてから各レコードを書き換える。
// ローカルファイルが無い参照はログに残して元のまま残す。
func (r *Relocator) Run(ctx context.Context) (*RelocationReport, error) {
	projects, err := r.Projects.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("relocate: list projects: %w", err)
	}
	posts, err := r.Posts.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("relocate: list posts: %w", err)
	}

	refs := collectReferences(projects, posts)
	rep := &RelocationReport{References: len(refs)}
	mapping := make(map[string]string, len(refs))

	for _, ref := range refs {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		ok, err := r.Storage.Exists(ctx, ref)
		if err != nil {
			rep.Failed++
			slog.Warn("relocate: exists check failed", "ref", ref, "error", err)
			continue
		}
		if ok {
			rep.Skipped++
			continue
		}

		data, err := os.ReadFile(r.localPath(ref))
		if errors.Is(err, os.ErrNotExist) {
			rep.Missing++
			slog.Warn("relocate: local file not found, skipping", "ref", ref)
			continue
		}
		if err != nil {
			rep.Failed++
			slog.Warn("relocate: read local file", "ref", ref, "error", err)
			continue
		}

		key := relocationKey(ref)
		url, err := r.Storage.Save(ctx, key, bytes.NewReader(data), storage.DetectContentType(data, key))
		if err != nil {
			rep.Failed++
			slog.Warn("relocate: upload failed", "ref", ref, "key", key, "error", err)
			continue
		}
		mapping[ref] = url
		rep.Uploaded++
		slog.Info("relocate: uploaded", "ref", ref, "url", url)
	}

	if len(mapping) == 0 {
		return rep, nil
	}

	for _, p := range projects {
		if !rewriteProject(p, mapping) {
			continue
		}
		if err := r.Projects.Upsert(ctx, p); err != nil {
			return rep, fmt.Errorf("relocate: update project %s: %w", p.ID, err)
		}
		rep.UpdatedProjects++
	}
	for _, p := range posts {
		if !rewriteRef(&p.Image, mapping) {
			continue
		}
		if err := r.Posts.Upsert(ctx, p); err != nil {
			return rep, fmt.Errorf("relocate: update post %s: %w", p.ID, err)
		}
		rep.UpdatedPosts++
	}
	return rep, nil
}

// relocationKey はローカル参照のパス構造を保ったキーを返す。
// ファイル名だけにすると別ディレクトリの同名画像が上書きされる。
func relocationKey(ref string) string {
	return RelocationPrefix + strings.TrimPrefix(path.Clean("/"+ref), "/")
}

func (r *Relocator) localPath(ref string) string {
	return filepath.Join(r.PublicDir, filepath.FromSlash(strings.TrimPrefix(ref, "/")))
}

// collectReferences は重複を除いた画像参照を出現順に返す
func collectReferences(projects []*model.Project, posts []*model.Post) []string {
	seen := map[string]bool{}
	var out []string
	add := func(ref string) {
		if ref == "" || seen[ref] {
			return
		}
		seen[ref] = true
		out = append(out, ref)
	}
	for _, p := range projects {
		add(p.Image)
		for _, g := range p.Gallery {
			add(g)
		}
		for _, a := range p.Activities {
			for _, img := range a.Images {
				add(img)
			}
		}
	}
	for _, p := range posts {
		add(p.Image)
	}
	return out
}

func rewriteProject(p *model.Project, mapping map[string]string) bool {
	changed := rewriteRef(&p.Image, mapping)
	for i := range p.Gallery {
		changed = rewriteRef(&p.Gallery[i], mapping) || changed
	}
	for i := range p.Activities {
		for j := range p.Activities[i].Images {
			changed = rewriteRef(&p.Activities[i].Images[j], mapping) || changed
		}
	}
	return changed
}

func rewriteRef(ref *string, mapping map[string]string) bool {
	url, ok := mapping[*ref]
	if !ok {
		return false
	}
	*ref = url
	return true
}
