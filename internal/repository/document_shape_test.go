package repository

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaizen-ngo/backend/internal/model"
	"github.com/kaizen-ngo/backend/internal/taxonomy"
)

func TestProjectRecord_FieldMapping(t *testing.T) {
	now := time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC)
	p := &model.Project{
		ID:         "ka152-1",
		Category:   "k152",
		Title:      "Exchange",
		Date:       "2024-03-01",
		Status:     model.StatusActive,
		Activities: []model.Activity{{ID: "act-1", Content: "Kickoff"}},
	}

	rec := toProjectRecord(p, now)
	assert.Equal(t, "ka152-1", rec.ProjectID)
	assert.Equal(t, "ka152", rec.Category)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), rec.Date)
	assert.Equal(t, []string{}, rec.Gallery)
	require.Len(t, rec.Activities, 1)
	assert.Equal(t, "act-1", rec.Activities[0].ActivityID)

	raw, err := json.Marshal(rec)
	require.NoError(t, err)
	var generic map[string]any
	require.NoError(t, json.Unmarshal(raw, &generic))
	assert.Contains(t, generic, "projectId")
	assert.NotContains(t, generic, "id")
	assert.NotContains(t, generic, "partners")
	assert.Equal(t, "act-1", generic["activities"].([]any)[0].(map[string]any)["activityId"])

	back := rec.toModel()
	assert.Equal(t, "ka152-1", back.ID)
	assert.Equal(t, taxonomy.KA152, back.Category)
	assert.Equal(t, "2024-03-01", back.Date)
	assert.Equal(t, "act-1", back.Activities[0].ID)
	assert.Equal(t, []string{}, back.Activities[0].Images)
}

func TestProjectRecord_EmptyDate(t *testing.T) {
	rec := toProjectRecord(&model.Project{ID: "x", Category: taxonomy.Local}, time.Now())
	assert.True(t, rec.Date.IsZero())
	assert.Equal(t, "", rec.toModel().Date)
}

func TestPostRecord_FieldMapping(t *testing.T) {
	p := &model.Post{ID: "post-1", Title: "Hello", Date: "2025-01-02T10:00:00Z", Published: true}
	rec := toPostRecord(p)
	assert.Equal(t, "post-1", rec.PostID)
	assert.Equal(t, []string{}, rec.Tags)

	back := rec.toModel()
	assert.Equal(t, "post-1", back.ID)
	assert.Equal(t, "2025-01-02", back.Date)
	assert.True(t, back.Published)
}
