package model

import (
	"strings"
	"time"
)

const (
	// DefaultPostImage は画像未指定の記事に使うプレースホルダ
	DefaultPostImage = "/images/blog/default.jpg"
	// DefaultPostAuthor は著者未指定時の表示名
	DefaultPostAuthor = "Admin"

	excerptLength = 150
)

// Post はブログ記事
type Post struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Excerpt   string   `json:"excerpt"`
	Content   string   `json:"content"`
	Image     string   `json:"image"`
	Author    string   `json:"author"`
	Date      string   `json:"date"`
	Tags      []string `json:"tags"`
	Published bool     `json:"published"`
	UpdatedAt string   `json:"updatedAt,omitempty"`
}

// Normalize は読み込み境界での整形を行う
func (p *Post) Normalize() {
	if p.Tags == nil {
		p.Tags = []string{}
	}
}

// Clone は Tags を含めて複製する
func (p *Post) Clone() *Post {
	c := *p
	c.Tags = cloneStrings(p.Tags)
	return &c
}

// DeriveExcerpt は本文の先頭 150 文字に "..." を付けた抜粋を返す
func DeriveExcerpt(content string) string {
	r := []rune(content)
	if len(r) > excerptLength {
		r = r[:excerptLength]
	}
	return string(r) + "..."
}

// PostInput は記事作成の入力。Published は未指定と false を区別する。
type PostInput struct {
	Title     string   `json:"title"`
	Excerpt   string   `json:"excerpt"`
	Content   string   `json:"content"`
	Image     string   `json:"image"`
	Author    string   `json:"author"`
	Date      string   `json:"date"`
	Tags      []string `json:"tags"`
	Published *bool    `json:"published"`
}

// Build は検証とデフォルト補完を行い、ID 未設定の Post を返す
func (in *PostInput) Build(now time.Time) (*Post, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, &ValidationError{Field: "title", Reason: "required"}
	}
	if strings.TrimSpace(in.Content) == "" {
		return nil, &ValidationError{Field: "content", Reason: "required"}
	}
	p := &Post{
		Title:     in.Title,
		Excerpt:   in.Excerpt,
		Content:   in.Content,
		Image:     in.Image,
		Author:    in.Author,
		Tags:      cloneStrings(in.Tags),
		Published: true,
	}
	if p.Excerpt == "" {
		p.Excerpt = DeriveExcerpt(p.Content)
	}
	if p.Image == "" {
		p.Image = DefaultPostImage
	}
	if p.Author == "" {
		p.Author = DefaultPostAuthor
	}
	if in.Published != nil {
		p.Published = *in.Published
	}
	if in.Date == "" {
		p.Date = FormatDate(now)
	} else {
		d, err := NormalizeDate(in.Date)
		if err != nil {
			return nil, &ValidationError{Field: "date", Reason: err.Error()}
		}
		p.Date = d
	}
	p.Normalize()
	return p, nil
}

// PostPatch は記事の部分更新。nil のフィールドは変更しない。
type PostPatch struct {
	Title     *string   `json:"title,omitempty"`
	Excerpt   *string   `json:"excerpt,omitempty"`
	Content   *string   `json:"content,omitempty"`
	Image     *string   `json:"image,omitempty"`
	Author    *string   `json:"author,omitempty"`
	Date      *string   `json:"date,omitempty"`
	Tags      *[]string `json:"tags,omitempty"`
	Published *bool     `json:"published,omitempty"`
}

// Validate はパッチ単体で判定できる不正値を検出する
func (pt *PostPatch) Validate() error {
	if pt.Title != nil && strings.TrimSpace(*pt.Title) == "" {
		return &ValidationError{Field: "title", Reason: "must not be empty"}
	}
	if pt.Content != nil && strings.TrimSpace(*pt.Content) == "" {
		return &ValidationError{Field: "content", Reason: "must not be empty"}
	}
	if pt.Date != nil {
		if _, err := NormalizeDate(*pt.Date); err != nil {
			return &ValidationError{Field: "date", Reason: err.Error()}
		}
	}
	return nil
}

// Apply は p の複製にパッチを適用し、updatedAt に now を記録する
func (pt *PostPatch) Apply(p *Post, now time.Time) *Post {
	out := p.Clone()
	if pt.Title != nil {
		out.Title = *pt.Title
	}
	if pt.Excerpt != nil {
		out.Excerpt = *pt.Excerpt
	}
	if pt.Content != nil {
		out.Content = *pt.Content
	}
	if pt.Image != nil {
		out.Image = *pt.Image
		if out.Image == "" {
			out.Image = DefaultPostImage
		}
	}
	if pt.Author != nil {
		out.Author = *pt.Author
		if out.Author == "" {
			out.Author = DefaultPostAuthor
		}
	}
	if pt.Date != nil {
		out.Date, _ = NormalizeDate(*pt.Date)
	}
	if pt.Tags != nil {
		out.Tags = cloneStrings(*pt.Tags)
	}
	if pt.Published != nil {
		out.Published = *pt.Published
	}
	out.UpdatedAt = now.UTC().Format(time.RFC3339)
	out.Normalize()
	return out
}
