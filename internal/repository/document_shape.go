package repository

import (
	"time"

	"github.com/kaizen-ngo/backend/internal/model"
	"github.com/kaizen-ngo/backend/internal/taxonomy"
)

// projectRecord は DocumentStore 上のプロジェクト形。
// id → projectId、activity の id → activityId、date は時刻型で保存する。
type projectRecord struct {
	ProjectID        string           `bson:"projectId" json:"projectId"`
	Category         string           `bson:"category" json:"category"`
	Title            string           `bson:"title" json:"title"`
	Description      string           `bson:"description" json:"description"`
	Content          string           `bson:"content" json:"content"`
	Image            string           `bson:"image" json:"image"`
	Gallery          []string         `bson:"gallery" json:"gallery"`
	Activities       []activityRecord `bson:"activities" json:"activities"`
	Date             time.Time        `bson:"date" json:"date"`
	Status           string           `bson:"status" json:"status"`
	Partners         []string         `bson:"partners,omitempty" json:"partners,omitempty"`
	ExternalBoardURL string           `bson:"externalBoardUrl,omitempty" json:"externalBoardUrl,omitempty"`
	UpdatedAt        time.Time        `bson:"updatedAt" json:"updatedAt"`
}

type activityRecord struct {
	ActivityID string   `bson:"activityId" json:"activityId"`
	Content    string   `bson:"content" json:"content"`
	Images     []string `bson:"images" json:"images"`
}

// postRecord は DocumentStore 上の記事形（id → postId）
type postRecord struct {
	PostID    string    `bson:"postId" json:"postId"`
	Title     string    `bson:"title" json:"title"`
	Excerpt   string    `bson:"excerpt" json:"excerpt"`
	Content   string    `bson:"content" json:"content"`
	Image     string    `bson:"image" json:"image"`
	Author    string    `bson:"author" json:"author"`
	Date      time.Time `bson:"date" json:"date"`
	Tags      []string  `bson:"tags" json:"tags"`
	Published bool      `bson:"published" json:"published"`
	UpdatedAt string    `bson:"updatedAt,omitempty" json:"updatedAt,omitempty"`
}

// parseStoredDate は不正・空の日付をゼロ時刻として扱う
func parseStoredDate(s string) time.Time {
	t, err := model.ParseDate(s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func formatStoredDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return model.FormatDate(t)
}

func toProjectRecord(p *model.Project, now time.Time) *projectRecord {
	rec := &projectRecord{
		ProjectID:        p.ID,
		Category:         string(taxonomy.Normalize(string(p.Category))),
		Title:            p.Title,
		Description:      p.Description,
		Content:          p.Content,
		Image:            p.Image,
		Gallery:          p.Gallery,
		Activities:       make([]activityRecord, 0, len(p.Activities)),
		Date:             parseStoredDate(p.Date),
		Status:           p.Status,
		Partners:         p.Partners,
		ExternalBoardURL: p.ExternalBoardURL,
		UpdatedAt:        now.UTC(),
	}
	if rec.Gallery == nil {
		rec.Gallery = []string{}
	}
	for _, a := range p.Activities {
		images := a.Images
		if images == nil {
			images = []string{}
		}
		rec.Activities = append(rec.Activities, activityRecord{ActivityID: a.ID, Content: a.Content, Images: images})
	}
	return rec
}

func (r *projectRecord) toModel() *model.Project {
	p := &model.Project{
		ID:               r.ProjectID,
		Category:         taxonomy.Category(r.Category),
		Title:            r.Title,
		Description:      r.Description,
		Content:          r.Content,
		Image:            r.Image,
		Gallery:          r.Gallery,
		Date:             formatStoredDate(r.Date),
		Status:           r.Status,
		Partners:         r.Partners,
		ExternalBoardURL: r.ExternalBoardURL,
	}
	for _, a := range r.Activities {
		p.Activities = append(p.Activities, model.Activity{ID: a.ActivityID, Content: a.Content, Images: a.Images})
	}
	p.Normalize()
	return p
}

func toPostRecord(p *model.Post) *postRecord {
	tags := p.Tags
	if tags == nil {
		tags = []string{}
	}
	return &postRecord{
		PostID:    p.ID,
		Title:     p.Title,
		Excerpt:   p.Excerpt,
		Content:   p.Content,
		Image:     p.Image,
		Author:    p.Author,
		Date:      parseStoredDate(p.Date),
		Tags:      tags,
		Published: p.Published,
		UpdatedAt: p.UpdatedAt,
	}
}

func (r *postRecord) toModel() *model.Post {
	p := &model.Post{
		ID:        r.PostID,
		Title:     r.Title,
		Excerpt:   r.Excerpt,
		Content:   r.Content,
		Image:     r.Image,
		Author:    r.Author,
		Date:      formatStoredDate(r.Date),
		Tags:      r.Tags,
		Published: r.Published,
		UpdatedAt: r.UpdatedAt,
	}
	p.Normalize()
	return p
}
