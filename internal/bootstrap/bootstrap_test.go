package bootstrap

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaizen-ngo/backend/internal/config"
	"github.com/kaizen-ngo/backend/internal/repository"
	"github.com/kaizen-ngo/backend/internal/storage"
)

func TestOpenStores_File(t *testing.T) {
	cfg := &config.Config{ContentBackend: config.BackendFile, DataDir: t.TempDir()}

	s, err := OpenStores(context.Background(), cfg)
	require.NoError(t, err)
	defer s.Close(context.Background())

	assert.Equal(t, config.BackendFile, s.Backend)
	assert.IsType(t, &repository.JSONProjectStore{}, s.Projects)
	assert.Nil(t, s.DB)

	projects, err := s.Projects.ListAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, projects)
}

func TestOpenStores_GitHubWithoutTokenUsesFiles(t *testing.T) {
	cfg := &config.Config{ContentBackend: config.BackendGitHub, GitHubRepo: "kaizen/site", DataDir: t.TempDir()}

	s, err := OpenStores(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, config.BackendFile, s.Backend)
}

func TestOpenStores_GitHubWrapsFallback(t *testing.T) {
	cfg := &config.Config{
		ContentBackend: config.BackendGitHub,
		GitHubToken:    "token",
		GitHubRepo:     "kaizen/site",
		GitHubPath:     "data",
		DataDir:        t.TempDir(),
		FallbackToFile: true,
	}

	s, err := OpenStores(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, config.BackendGitHub, s.Backend)
	assert.IsType(t, &repository.FallbackProjectStore{}, s.Projects)
	assert.IsType(t, &repository.FallbackPostStore{}, s.Posts)
}

func TestOpenStores_MongoWithoutURIFails(t *testing.T) {
	cfg := &config.Config{ContentBackend: config.BackendMongo, DataDir: t.TempDir(), FallbackToFile: true}

	_, err := OpenStores(context.Background(), cfg)
	assert.Error(t, err)
}

func TestConnectTarget_RejectsFileBackend(t *testing.T) {
	_, err := ConnectTarget(&config.Config{}, config.BackendFile)
	assert.Error(t, err)

	connect, err := ConnectTarget(&config.Config{}, config.BackendMongo)
	require.NoError(t, err)
	_, err = connect(context.Background())
	assert.Error(t, err)
}

func TestOpenStorage_Local(t *testing.T) {
	cfg := &config.Config{AssetStorage: config.AssetLocal, UploadDir: t.TempDir(), UploadURLPrefix: "/uploads"}

	st, err := OpenStorage(context.Background(), cfg)
	require.NoError(t, err)
	assert.IsType(t, &storage.LocalStorage{}, st)
}

func TestOpenStorage_MinioRequiresEndpoint(t *testing.T) {
	cfg := &config.Config{AssetStorage: config.AssetMinio, MinioBucket: "assets"}

	_, err := OpenStorage(context.Background(), cfg)
	assert.Error(t, err)
}
