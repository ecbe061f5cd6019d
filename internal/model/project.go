package model

import (
	"strings"
	"time"

	"github.com/kaizen-ngo/backend/internal/taxonomy"
)

// DefaultProjectImage は画像未指定のプロジェクトに使うプレースホルダ
const DefaultProjectImage = "/images/projects/default.jpg"

const (
	StatusActive    = "active"
	StatusCompleted = "completed"
	StatusOngoing   = "ongoing"
	StatusDraft     = "draft"
)

var validStatuses = map[string]bool{
	StatusActive:    true,
	StatusCompleted: true,
	StatusOngoing:   true,
	StatusDraft:     true,
}

// IsValidStatus は s がプロジェクトの状態として有効かを返す
func IsValidStatus(s string) bool {
	return validStatuses[s]
}

// Project は NGO のプロジェクト 1 件。id は全カテゴリを通して一意。
type Project struct {
	ID               string            `json:"id"`
	Category         taxonomy.Category `json:"category"`
	Title            string            `json:"title"`
	Description      string            `json:"description"`
	Content          string            `json:"content"` // markdown
	Image            string            `json:"image"`
	Gallery          []string          `json:"gallery"`
	Activities       []Activity        `json:"activities"`
	Date             string            `json:"date"` // YYYY-MM-DD
	Status           string            `json:"status"`
	Partners         []string          `json:"partners,omitempty"` // 空なら出力しない
	ExternalBoardURL string            `json:"externalBoardUrl,omitempty"`
}

// Activity はプロジェクト内の活動記録。親プロジェクトの更新としてのみ作成・削除される。
type Activity struct {
	ID      string   `json:"id"`
	Content string   `json:"content"`
	Images  []string `json:"images"`
}

// Normalize は読み込み境界での整形を行う。
// カテゴリを正規名に揃え、nil スライスを空スライスにする。
func (p *Project) Normalize() {
	p.Category = taxonomy.Normalize(string(p.Category))
	if p.Gallery == nil {
		p.Gallery = []string{}
	}
	if p.Activities == nil {
		p.Activities = []Activity{}
	}
	for i := range p.Activities {
		if p.Activities[i].Images == nil {
			p.Activities[i].Images = []string{}
		}
	}
	if len(p.Partners) == 0 {
		p.Partners = nil
	}
}

// Clone はスライスを含めて複製する
func (p *Project) Clone() *Project {
	c := *p
	c.Gallery = cloneStrings(p.Gallery)
	c.Partners = cloneStrings(p.Partners)
	c.Activities = cloneActivities(p.Activities)
	return &c
}

// PrepareForCreate は作成前の検証とデフォルト値の補完を行う。
// title と category は必須。date 未指定なら now の日付を使う。
func (p *Project) PrepareForCreate(now time.Time) error {
	if strings.TrimSpace(p.Title) == "" {
		return &ValidationError{Field: "title", Reason: "required"}
	}
	if p.Category == "" {
		return &ValidationError{Field: "category", Reason: "required"}
	}
	if !taxonomy.IsValidCategory(string(p.Category)) {
		return &ValidationError{Field: "category", Reason: "unknown category " + string(p.Category)}
	}
	if p.Image == "" {
		p.Image = DefaultProjectImage
	}
	if p.Status == "" {
		p.Status = StatusActive
	}
	if !IsValidStatus(p.Status) {
		return &ValidationError{Field: "status", Reason: "unknown status " + p.Status}
	}
	if p.Date == "" {
		p.Date = FormatDate(now)
	} else {
		d, err := NormalizeDate(p.Date)
		if err != nil {
			return &ValidationError{Field: "date", Reason: err.Error()}
		}
		p.Date = d
	}
	p.Normalize()
	return nil
}

// ProjectPatch は部分更新の入力。nil のフィールドは変更しない。
// Gallery / Activities / Partners に空スライスを渡すと値をクリアする。
type ProjectPatch struct {
	Category         *string     `json:"category,omitempty"`
	Title            *string     `json:"title,omitempty"`
	Description      *string     `json:"description,omitempty"`
	Content          *string     `json:"content,omitempty"`
	Image            *string     `json:"image,omitempty"`
	Gallery          *[]string   `json:"gallery,omitempty"`
	Activities       *[]Activity `json:"activities,omitempty"`
	Date             *string     `json:"date,omitempty"`
	Status           *string     `json:"status,omitempty"`
	Partners         *[]string   `json:"partners,omitempty"`
	ExternalBoardURL *string     `json:"externalBoardUrl,omitempty"`
}

// Validate はパッチ単体で判定できる不正値を検出する
func (pt *ProjectPatch) Validate() error {
	if pt.Title != nil && strings.TrimSpace(*pt.Title) == "" {
		return &ValidationError{Field: "title", Reason: "must not be empty"}
	}
	if pt.Category != nil && !taxonomy.IsValidCategory(*pt.Category) {
		return &ValidationError{Field: "category", Reason: "unknown category " + *pt.Category}
	}
	if pt.Status != nil && !IsValidStatus(*pt.Status) {
		return &ValidationError{Field: "status", Reason: "unknown status " + *pt.Status}
	}
	if pt.Date != nil {
		if _, err := NormalizeDate(*pt.Date); err != nil {
			return &ValidationError{Field: "date", Reason: err.Error()}
		}
	}
	return nil
}

// Apply は p の複製にパッチを適用して返す。p 自体は変更しない。
func (pt *ProjectPatch) Apply(p *Project) *Project {
	out := p.Clone()
	if pt.Category != nil {
		out.Category = taxonomy.Normalize(*pt.Category)
	}
	if pt.Title != nil {
		out.Title = *pt.Title
	}
	if pt.Description != nil {
		out.Description = *pt.Description
	}
	if pt.Content != nil {
		out.Content = *pt.Content
	}
	if pt.Image != nil {
		out.Image = *pt.Image
		if out.Image == "" {
			out.Image = DefaultProjectImage
		}
	}
	if pt.Gallery != nil {
		out.Gallery = cloneStrings(*pt.Gallery)
	}
	if pt.Activities != nil {
		out.Activities = cloneActivities(*pt.Activities)
	}
	if pt.Date != nil {
		out.Date, _ = NormalizeDate(*pt.Date)
	}
	if pt.Status != nil {
		out.Status = *pt.Status
	}
	if pt.Partners != nil {
		out.Partners = cloneStrings(*pt.Partners)
	}
	if pt.ExternalBoardURL != nil {
		out.ExternalBoardURL = *pt.ExternalBoardURL
	}
	out.Normalize()
	return out
}

// ProjectStats は管理画面のカテゴリ別件数
type ProjectStats struct {
	LocalCount int `json:"localCount"`
	KA1Count   int `json:"ka1Count"`
	KA2Count   int `json:"ka2Count"`
}

func cloneActivities(s []Activity) []Activity {
	if s == nil {
		return nil
	}
	out := make([]Activity, len(s))
	for i, a := range s {
		a.Images = cloneStrings(a.Images)
		out[i] = a
	}
	return out
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}
