package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/kaizen-ngo/backend/internal/model"
	"github.com/kaizen-ngo/backend/internal/taxonomy"
	"github.com/kaizen-ngo/backend/pkg/ghcontents"
)

// データファイル名
const (
	ProjectsFile  = "projects.json"
	PostsFile     = "blog-posts.json"
	ChangeLogFile = "changelog.json"
)

// projectsFileShape は projects.json のツリー形。
// 中間ノードは map で受け、k152 / ka152 のような表記揺れを読み込み時に正規化する。
type projectsFileShape struct {
	Local   []fileProject `json:"local"`
	Erasmus struct {
		K1 map[string][]fileProject `json:"k1"`
		K2 map[string][]fileProject `json:"k2"`
	} `json:"erasmus"`
}

// fileProject はファイル上のプロジェクト。カテゴリはツリー上の位置で表すため持たない。
type fileProject struct {
	ID               string           `json:"id"`
	Title            string           `json:"title"`
	Description      string           `json:"description"`
	Content          string           `json:"content"`
	Image            string           `json:"image"`
	Gallery          []string         `json:"gallery"`
	Activities       []model.Activity `json:"activities"`
	Date             string           `json:"date"`
	Status           string           `json:"status"`
	Partners         []string         `json:"partners,omitempty"`
	ExternalBoardURL string           `json:"externalBoardUrl,omitempty"`
}

func toFileProject(p *model.Project) fileProject {
	return fileProject{
		ID:               p.ID,
		Title:            p.Title,
		Description:      p.Description,
		Content:          p.Content,
		Image:            p.Image,
		Gallery:          p.Gallery,
		Activities:       p.Activities,
		Date:             p.Date,
		Status:           p.Status,
		Partners:         p.Partners,
		ExternalBoardURL: p.ExternalBoardURL,
	}
}

func (f fileProject) toModel(c taxonomy.Category) *model.Project {
	p := &model.Project{
		ID:               f.ID,
		Category:         c,
		Title:            f.Title,
		Description:      f.Description,
		Content:          f.Content,
		Image:            f.Image,
		Gallery:          f.Gallery,
		Activities:       f.Activities,
		Date:             f.Date,
		Status:           f.Status,
		Partners:         f.Partners,
		ExternalBoardURL: f.ExternalBoardURL,
	}
	p.Normalize()
	return p
}

// projectDocument はデコード済みのツリー。id → カテゴリの索引で全カテゴリ横断の検索を O(1) にする。
type projectDocument struct {
	buckets map[taxonomy.Category][]*model.Project
	index   map[string]taxonomy.Category
}

func decodeProjects(data []byte) (*projectDocument, error) {
	doc := &projectDocument{buckets: make(map[taxonomy.Category][]*model.Project)}
	if len(data) > 0 {
		var shape projectsFileShape
		if err := json.Unmarshal(data, &shape); err != nil {
			return nil, fmt.Errorf("decode %s: %w", ProjectsFile, err)
		}
		for _, fp := range shape.Local {
			doc.buckets[taxonomy.Local] = append(doc.buckets[taxonomy.Local], fp.toModel(taxonomy.Local))
		}
		for group, byKey := range map[taxonomy.Group]map[string][]fileProject{
			taxonomy.GroupK1: shape.Erasmus.K1,
			taxonomy.GroupK2: shape.Erasmus.K2,
		} {
			// k152 と ka152 が併存する場合もファイル上の順序が安定するようキーをソートして走査する
			keys := make([]string, 0, len(byKey))
			for key := range byKey {
				keys = append(keys, key)
			}
			sort.Strings(keys)
			for _, key := range keys {
				list := byKey[key]
				c := taxonomy.Normalize(key)
				leaf, ok := taxonomy.LeafOf(c)
				if !ok || leaf.Group != group {
					return nil, fmt.Errorf("decode %s: unknown category key erasmus.%s.%s", ProjectsFile, group, key)
				}
				for _, fp := range list {
					doc.buckets[c] = append(doc.buckets[c], fp.toModel(c))
				}
			}
		}
	}
	doc.reindex()
	return doc, nil
}

func (d *projectDocument) reindex() {
	d.index = make(map[string]taxonomy.Category)
	for _, c := range taxonomy.Categories() {
		for _, p := range d.buckets[c] {
			if _, dup := d.index[p.ID]; !dup {
				d.index[p.ID] = c
			}
		}
	}
}

func (d *projectDocument) all() []*model.Project {
	out := []*model.Project{}
	for _, c := range taxonomy.Categories() {
		out = append(out, d.buckets[c]...)
	}
	return out
}

func (d *projectDocument) find(id string) (taxonomy.Category, int, bool) {
	c, ok := d.index[id]
	if !ok {
		return "", -1, false
	}
	for i, p := range d.buckets[c] {
		if p.ID == id {
			return c, i, true
		}
	}
	return "", -1, false
}

// upsert は同じカテゴリ内なら位置を保って置換し、カテゴリが変われば移動先の末尾に追加する
func (d *projectDocument) upsert(p *model.Project) {
	if c, i, ok := d.find(p.ID); ok {
		if c == p.Category {
			d.buckets[c][i] = p
			return
		}
		d.buckets[c] = append(d.buckets[c][:i], d.buckets[c][i+1:]...)
	}
	d.buckets[p.Category] = append(d.buckets[p.Category], p)
	d.reindex()
}

func (d *projectDocument) remove(id string) (*model.Project, bool) {
	c, i, ok := d.find(id)
	if !ok {
		return nil, false
	}
	p := d.buckets[c][i]
	d.buckets[c] = append(d.buckets[c][:i], d.buckets[c][i+1:]...)
	d.reindex()
	return p, true
}

func (d *projectDocument) encode() ([]byte, error) {
	var shape projectsFileShape
	shape.Local = []fileProject{}
	shape.Erasmus.K1 = make(map[string][]fileProject)
	shape.Erasmus.K2 = make(map[string][]fileProject)
	for _, leaf := range taxonomy.Leaves() {
		list := []fileProject{}
		for _, p := range d.buckets[leaf.Category] {
			list = append(list, toFileProject(p))
		}
		switch leaf.Group {
		case taxonomy.GroupNone:
			shape.Local = list
		case taxonomy.GroupK1:
			shape.Erasmus.K1[leaf.FileKey] = list
		case taxonomy.GroupK2:
			shape.Erasmus.K2[leaf.FileKey] = list
		}
	}
	return json.MarshalIndent(shape, "", "  ")
}

// JSONProjectStore は projects.json を媒体ごと読み書きする ProjectStore。
// 更新は毎回ドキュメント全体を load → 変更 → save する。
type JSONProjectStore struct {
	medium blobMedium
}

// NewFileProjectStore はローカルディスク上の projects.json を使う FileStore を生成する
func NewFileProjectStore(path string) *JSONProjectStore {
	return &JSONProjectStore{medium: diskMedium{path: path}}
}

// NewFileProjectStoreInDir は dir/projects.json を使う FileStore を生成する
func NewFileProjectStoreInDir(dir string) *JSONProjectStore {
	return NewFileProjectStore(filepath.Join(dir, ProjectsFile))
}

// NewRemoteProjectStore はリモートリポジトリ上の path を使う RemoteFileStore を生成する
func NewRemoteProjectStore(client ghcontents.Client, path string) *JSONProjectStore {
	return &JSONProjectStore{medium: remoteMedium{client: client, path: path, message: "Update projects data"}}
}

func (s *JSONProjectStore) read(ctx context.Context) (*projectDocument, string, error) {
	data, rev, err := s.medium.load(ctx)
	if err != nil {
		return nil, "", err
	}
	doc, err := decodeProjects(data)
	if err != nil {
		return nil, "", unavailable(err)
	}
	return doc, rev, nil
}

func (s *JSONProjectStore) write(ctx context.Context, doc *projectDocument, rev string) error {
	data, err := doc.encode()
	if err != nil {
		return err
	}
	return s.medium.save(ctx, data, rev)
}

// ListAll はツリー順（local, ka152, ka153, ka210, ka220）に全件を返す
func (s *JSONProjectStore) ListAll(ctx context.Context) ([]*model.Project, error) {
	doc, _, err := s.read(ctx)
	if err != nil {
		return nil, opErr("list", model.EntityProject, "", err)
	}
	return doc.all(), nil
}

// FindByID は id のプロジェクトをカテゴリ付きで返す
func (s *JSONProjectStore) FindByID(ctx context.Context, id string) (*model.Project, error) {
	doc, _, err := s.read(ctx)
	if err != nil {
		return nil, opErr("find", model.EntityProject, id, err)
	}
	c, i, ok := doc.find(id)
	if !ok {
		return nil, opErr("find", model.EntityProject, id, ErrNotFound)
	}
	return doc.buckets[c][i], nil
}

// Upsert は p.Category のツリー位置に保存する
func (s *JSONProjectStore) Upsert(ctx context.Context, p *model.Project) error {
	stored := p.Clone()
	stored.Normalize()
	if _, ok := taxonomy.LeafOf(stored.Category); !ok {
		return opErr("upsert", model.EntityProject, p.ID,
			&model.ValidationError{Field: "category", Reason: "unknown category " + string(p.Category)})
	}
	doc, rev, err := s.read(ctx)
	if err != nil {
		return opErr("upsert", model.EntityProject, p.ID, err)
	}
	doc.upsert(stored)
	return opErr("upsert", model.EntityProject, p.ID, s.write(ctx, doc, rev))
}

// Remove は id のプロジェクトを削除して返す
func (s *JSONProjectStore) Remove(ctx context.Context, id string) (*model.Project, error) {
	doc, rev, err := s.read(ctx)
	if err != nil {
		return nil, opErr("remove", model.EntityProject, id, err)
	}
	p, ok := doc.remove(id)
	if !ok {
		return nil, opErr("remove", model.EntityProject, id, ErrNotFound)
	}
	if err := s.write(ctx, doc, rev); err != nil {
		return nil, opErr("remove", model.EntityProject, id, err)
	}
	return p, nil
}

// Clear は全カテゴリを空にする
func (s *JSONProjectStore) Clear(ctx context.Context) error {
	_, rev, err := s.medium.load(ctx)
	if err != nil {
		return opErr("clear", model.EntityProject, "", err)
	}
	empty, _ := decodeProjects(nil)
	return opErr("clear", model.EntityProject, "", s.write(ctx, empty, rev))
}
