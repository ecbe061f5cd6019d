package repository

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaizen-ngo/backend/internal/model"
	"github.com/kaizen-ngo/backend/internal/taxonomy"
	"github.com/kaizen-ngo/backend/pkg/ghcontents"
)

const legacyProjectsJSON = `{
  "local": [
    {"id": "local-1", "title": "Youth Camp", "description": "", "content": "", "image": "/images/a.jpg", "gallery": [], "activities": [], "date": "2024-05-01", "status": "active"}
  ],
  "erasmus": {
    "k1": {
      "k152": [{"id": "k152-1", "title": "Exchange", "date": "2024-03-01", "status": "completed"}],
      "ka152": [{"id": "k152-2", "title": "Exchange II", "date": "2024-04-01", "status": "active"}],
      "k153": []
    },
    "k2": {
      "ka210": [{"id": "ka210-1", "title": "Small Partnership", "date": "2023-01-01", "status": "ongoing", "partners": ["Org A"]}],
      "k220": [{"id": "k220-1", "title": "Cooperation", "date": "2022-01-01", "status": "active", "activities": [{"id": "act-1", "content": "Kickoff"}]}]
    }
  }
}`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestJSONProjectStore_MissingFileIsEmpty(t *testing.T) {
	store := NewFileProjectStoreInDir(t.TempDir())

	projects, err := store.ListAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, projects)

	_, err = store.FindByID(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestJSONProjectStore_ReadsLegacyTree(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ProjectsFile), legacyProjectsJSON)
	store := NewFileProjectStoreInDir(dir)

	projects, err := store.ListAll(context.Background())
	require.NoError(t, err)

	var ids []string
	for _, p := range projects {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []string{"local-1", "k152-1", "k152-2", "ka210-1", "k220-1"}, ids)

	// カテゴリはツリー上の位置から正規名で付与される
	assert.Equal(t, taxonomy.Local, projects[0].Category)
	assert.Equal(t, taxonomy.KA152, projects[1].Category)
	assert.Equal(t, taxonomy.KA152, projects[2].Category)
	assert.Equal(t, taxonomy.KA210, projects[3].Category)
	assert.Equal(t, taxonomy.KA220, projects[4].Category)

	// 欠けたスライスは空スライスに揃う
	assert.NotNil(t, projects[1].Gallery)
	assert.NotNil(t, projects[4].Activities[0].Images)
	assert.Equal(t, []string{"Org A"}, projects[3].Partners)
}

func TestJSONProjectStore_FindByID_AttachesCategory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ProjectsFile), legacyProjectsJSON)
	store := NewFileProjectStoreInDir(dir)

	p, err := store.FindByID(context.Background(), "k220-1")
	require.NoError(t, err)
	assert.Equal(t, taxonomy.KA220, p.Category)
	assert.Equal(t, "Cooperation", p.Title)
}

func TestJSONProjectStore_UpsertWritesLegacyShape(t *testing.T) {
	dir := t.TempDir()
	store := NewFileProjectStoreInDir(dir)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, &model.Project{ID: "ka152-1", Category: taxonomy.KA152, Title: "Exchange", Status: model.StatusActive}))
	require.NoError(t, store.Upsert(ctx, &model.Project{ID: "ka152-2", Category: "k152", Title: "Exchange II", Status: model.StatusActive}))

	raw, err := os.ReadFile(filepath.Join(dir, ProjectsFile))
	require.NoError(t, err)

	var shape map[string]any
	require.NoError(t, json.Unmarshal(raw, &shape))
	k1 := shape["erasmus"].(map[string]any)["k1"].(map[string]any)
	list := k1["k152"].([]any)
	require.Len(t, list, 2)
	first := list[0].(map[string]any)
	assert.Equal(t, "ka152-1", first["id"])
	_, hasCategory := first["category"]
	assert.False(t, hasCategory, "records in the file carry no category")
	_, hasPartners := first["partners"]
	assert.False(t, hasPartners, "empty partners are omitted")

	k2 := shape["erasmus"].(map[string]any)["k2"].(map[string]any)
	assert.Contains(t, k2, "ka210")
	assert.Contains(t, k2, "k220")
	assert.Contains(t, string(raw), "\n  \"erasmus\"")
}

func TestJSONProjectStore_UpsertReplacesInPlace(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ProjectsFile), legacyProjectsJSON)
	store := NewFileProjectStoreInDir(dir)
	ctx := context.Background()

	p, err := store.FindByID(ctx, "k152-1")
	require.NoError(t, err)
	p.Status = model.StatusCompleted
	p.Title = "Exchange (done)"
	require.NoError(t, store.Upsert(ctx, p))

	projects, err := store.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, projects, 5)
	assert.Equal(t, "k152-1", projects[1].ID)
	assert.Equal(t, "Exchange (done)", projects[1].Title)
}

func TestJSONProjectStore_UpsertMovesCategory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ProjectsFile), legacyProjectsJSON)
	store := NewFileProjectStoreInDir(dir)
	ctx := context.Background()

	p, err := store.FindByID(ctx, "local-1")
	require.NoError(t, err)
	p.Category = taxonomy.KA153
	require.NoError(t, store.Upsert(ctx, p))

	moved, err := store.FindByID(ctx, "local-1")
	require.NoError(t, err)
	assert.Equal(t, taxonomy.KA153, moved.Category)

	projects, err := store.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, projects, 5)
}

func TestJSONProjectStore_UpsertRejectsUnknownCategory(t *testing.T) {
	store := NewFileProjectStoreInDir(t.TempDir())
	err := store.Upsert(context.Background(), &model.Project{ID: "x", Category: "ka999", Title: "x"})
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestJSONProjectStore_Remove(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ProjectsFile), legacyProjectsJSON)
	store := NewFileProjectStoreInDir(dir)
	ctx := context.Background()

	removed, err := store.Remove(ctx, "ka210-1")
	require.NoError(t, err)
	assert.Equal(t, "Small Partnership", removed.Title)
	assert.Equal(t, taxonomy.KA210, removed.Category)

	_, err = store.Remove(ctx, "ka210-1")
	require.ErrorIs(t, err, ErrNotFound)

	var opErr *OpError
	require.True(t, errors.As(err, &opErr))
	assert.Equal(t, "remove", opErr.Op)
	assert.Equal(t, model.EntityProject, opErr.Entity)
	assert.Equal(t, "ka210-1", opErr.ID)

	projects, err := store.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, projects, 4)
}

func TestJSONProjectStore_Clear(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ProjectsFile), legacyProjectsJSON)
	store := NewFileProjectStoreInDir(dir)

	require.NoError(t, store.Clear(context.Background()))
	projects, err := store.ListAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, projects)
}

func TestJSONProjectStore_CorruptDocumentIsUnavailable(t *testing.T) {
	for name, content := range map[string]string{
		"invalid json": `{"local": [`,
		"unknown key":  `{"local": [], "erasmus": {"k1": {"k999": []}, "k2": {}}}`,
		"wrong group":  `{"local": [], "erasmus": {"k1": {"ka210": []}, "k2": {}}}`,
	} {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			writeFile(t, filepath.Join(dir, ProjectsFile), content)
			_, err := NewFileProjectStoreInDir(dir).ListAll(context.Background())
			assert.ErrorIs(t, err, ErrUnavailable)
		})
	}
}

// racingClient は最初の GetFile の直後に別の書き込みを割り込ませる
type racingClient struct {
	*ghcontents.MemoryClient
	raced bool
}

func (c *racingClient) GetFile(ctx context.Context, path string) (*ghcontents.File, error) {
	f, err := c.MemoryClient.GetFile(ctx, path)
	if err != nil || c.raced {
		return f, err
	}
	c.raced = true
	if _, err := c.MemoryClient.PutFile(ctx, path, append(f.Content, '\n'), f.SHA, "concurrent edit"); err != nil {
		return nil, err
	}
	return f, nil
}

func TestRemoteProjectStore_RoundTrip(t *testing.T) {
	client := ghcontents.NewMemoryClient()
	store := NewRemoteProjectStore(client, "src/data/projects.json")
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, &model.Project{ID: "local-1", Category: taxonomy.Local, Title: "Youth Camp"}))
	require.NoError(t, store.Upsert(ctx, &model.Project{ID: "ka220-1", Category: "ka220", Title: "Cooperation"}))

	p, err := store.FindByID(ctx, "ka220-1")
	require.NoError(t, err)
	assert.Equal(t, taxonomy.KA220, p.Category)
	assert.Len(t, client.Commits, 2, "each write is one commit")
}

func TestRemoteProjectStore_StaleRevisionConflicts(t *testing.T) {
	mem := ghcontents.NewMemoryClient()
	seed := NewRemoteProjectStore(mem, "projects.json")
	require.NoError(t, seed.Upsert(context.Background(), &model.Project{ID: "local-1", Category: taxonomy.Local, Title: "Youth Camp"}))

	store := NewRemoteProjectStore(&racingClient{MemoryClient: mem}, "projects.json")
	err := store.Upsert(context.Background(), &model.Project{ID: "local-2", Category: taxonomy.Local, Title: "Second"})
	require.ErrorIs(t, err, ErrConflict)

	// 競合した書き込みは反映されない
	_, err = seed.FindByID(context.Background(), "local-2")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRemoteProjectStore_TransportFailureIsUnavailable(t *testing.T) {
	mem := ghcontents.NewMemoryClient()
	mem.Err = errors.New("connection reset")
	store := NewRemoteProjectStore(mem, "projects.json")

	_, err := store.ListAll(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestRemoteProjectStore_RejectedCredentialsDoNotFallBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Bad credentials"}`))
	}))
	defer srv.Close()

	client, err := ghcontents.NewClient("revoked", "kaizen/site", "")
	require.NoError(t, err)
	client.BaseURL = srv.URL

	dir := t.TempDir()
	store := NewFallbackProjectStore(NewRemoteProjectStore(client, "projects.json"), NewFileProjectStoreInDir(dir))
	err = store.Upsert(context.Background(), &model.Project{ID: "local-1", Category: taxonomy.Local, Title: "Youth Camp"})

	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnavailable)
	var apiErr *ghcontents.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.NoFileExists(t, filepath.Join(dir, ProjectsFile))
}

func TestRemoteProjectStore_ServerErrorIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client, err := ghcontents.NewClient("token", "kaizen/site", "")
	require.NoError(t, err)
	client.BaseURL = srv.URL

	_, err = NewRemoteProjectStore(client, "projects.json").ListAll(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)
}
