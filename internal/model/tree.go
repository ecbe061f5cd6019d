package model

import "github.com/kaizen-ngo/backend/internal/taxonomy"

// ProjectTree は一覧 API の応答形
// { local, erasmus: { k1: { ka152, ka153 }, k2: { ka210, k220 } } }
type ProjectTree struct {
	Local   []*Project  `json:"local"`
	Erasmus ErasmusTree `json:"erasmus"`
}

type ErasmusTree struct {
	K1 KA1Group `json:"k1"`
	K2 KA2Group `json:"k2"`
}

type KA1Group struct {
	KA152 []*Project `json:"ka152"`
	KA153 []*Project `json:"ka153"`
}

type KA2Group struct {
	KA210 []*Project `json:"ka210"`
	KA220 []*Project `json:"k220"`
}

// NewProjectTree は全カテゴリが空配列のツリーを返す（null を出力しないため）
func NewProjectTree() *ProjectTree {
	return &ProjectTree{
		Local: []*Project{},
		Erasmus: ErasmusTree{
			K1: KA1Group{KA152: []*Project{}, KA153: []*Project{}},
			K2: KA2Group{KA210: []*Project{}, KA220: []*Project{}},
		},
	}
}

// Bucket は正規化済みカテゴリに対応する配列へのポインタを返す
func (t *ProjectTree) Bucket(c taxonomy.Category) *[]*Project {
	switch c {
	case taxonomy.Local:
		return &t.Local
	case taxonomy.KA152:
		return &t.Erasmus.K1.KA152
	case taxonomy.KA153:
		return &t.Erasmus.K1.KA153
	case taxonomy.KA210:
		return &t.Erasmus.K2.KA210
	case taxonomy.KA220:
		return &t.Erasmus.K2.KA220
	}
	return nil
}

// Add はカテゴリを正規化して対応する配列に追加する。未知のカテゴリなら false。
func (t *ProjectTree) Add(p *Project) bool {
	b := t.Bucket(taxonomy.Normalize(string(p.Category)))
	if b == nil {
		return false
	}
	*b = append(*b, p)
	return true
}

// Flatten はツリー順に全プロジェクトを並べる
func (t *ProjectTree) Flatten() []*Project {
	var out []*Project
	for _, c := range taxonomy.Categories() {
		out = append(out, *t.Bucket(c)...)
	}
	return out
}

// Count は全件数を返す
func (t *ProjectTree) Count() int {
	n := 0
	for _, c := range taxonomy.Categories() {
		n += len(*t.Bucket(c))
	}
	return n
}
