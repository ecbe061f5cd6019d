package migration

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaizen-ngo/backend/internal/model"
	"github.com/kaizen-ngo/backend/internal/repository"
	"github.com/kaizen-ngo/backend/internal/taxonomy"
)

var fixedNow = time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC)

const sourceProjectsJSON = `{
  "local": [
    {"id": "local-1", "title": "Youth Camp", "image": "/images/camp.jpg", "date": "2024-05-01", "status": "active"}
  ],
  "erasmus": {
    "k1": {
      "k152": [{"id": "k152-1", "title": "Exchange", "date": "2024-03-01"}],
      "k153": [{"id": "k153-1", "title": "Workers", "date": "2024-02-01", "status": "completed"}]
    },
    "k2": {
      "ka210": [{"id": "ka210-1", "title": "Small Partnership", "date": "2023-01-01", "partners": ["Org A"]}],
      "k220": [{"id": "k220-1", "title": "Cooperation", "date": "2022-01-01", "activities": [{"id": "act-1", "content": "Kickoff"}]}]
    }
  }
}`

const sourcePostsJSON = `{"posts": [
  {"id": "post-2", "title": "Second", "content": "B", "date": "2024-06-01"},
  {"id": "post-1", "title": "First", "content": "A", "date": "2024-01-01", "author": "Ana", "published": false}
]}`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func seedSource(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, repository.ProjectsFile), sourceProjectsJSON)
	writeFile(t, filepath.Join(dir, repository.PostsFile), sourcePostsJSON)
	writeFile(t, filepath.Join(dir, AdminConfigFile), `{"siteName":"Kaizen"}`)
	return dir
}

type fileTarget struct {
	projects *repository.JSONProjectStore
	posts    *repository.JSONPostStore
	closed   bool
}

func newFileTarget(t *testing.T) (*fileTarget, ConnectFunc) {
	t.Helper()
	dir := t.TempDir()
	ft := &fileTarget{
		projects: repository.NewFileProjectStoreInDir(dir),
		posts:    repository.NewFilePostStoreInDir(dir),
	}
	connect := func(context.Context) (*Target, error) {
		return &Target{
			Projects: ft.projects,
			Posts:    ft.posts,
			Close: func(context.Context) error {
				ft.closed = true
				return nil
			},
		}, nil
	}
	return ft, connect
}

func newTestMigrator(src, backupRoot string, connect ConnectFunc) (*Migrator, *[]Phase) {
	m := NewMigrator(src, backupRoot, connect)
	m.now = func() time.Time { return fixedNow }
	var phases []Phase
	m.OnPhase = func(p Phase) { phases = append(phases, p) }
	return m, &phases
}

func TestBackupDirName(t *testing.T) {
	assert.Equal(t, "2026-10-15T09-30-00-000Z", BackupDirName(fixedNow))
	assert.Equal(t, "2026-10-15T09-30-00-000Z", BackupDirName(fixedNow.In(time.FixedZone("JST", 9*3600))))
}

func TestBackup_CopiesFilesAndSkipsMissing(t *testing.T) {
	src := t.TempDir()
	writeFile(t, filepath.Join(src, repository.ProjectsFile), sourceProjectsJSON)
	root := t.TempDir()

	res, err := Backup(src, root, fixedNow)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(root, "2026-10-15T09-30-00-000Z"), res.Dir)
	require.Len(t, res.Files, 1)
	assert.Equal(t, repository.ProjectsFile, res.Files[0].Name)
	assert.Equal(t, int64(len(sourceProjectsJSON)), res.Files[0].Size)

	copied, err := os.ReadFile(filepath.Join(res.Dir, repository.ProjectsFile))
	require.NoError(t, err)
	assert.Equal(t, sourceProjectsJSON, string(copied))
	assert.NoFileExists(t, filepath.Join(res.Dir, repository.PostsFile))
}

func TestMigrator_Run(t *testing.T) {
	src := seedSource(t)
	backupRoot := t.TempDir()
	target, connect := newFileTarget(t)
	m, phases := newTestMigrator(src, backupRoot, connect)

	rep, err := m.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []Phase{PhaseBackup, PhaseConnect, PhaseClearTarget, PhaseTransfer, PhaseVerify, PhaseDone}, *phases)
	assert.Equal(t, PhaseDone, rep.Phase)
	assert.Equal(t, 5, rep.Projects)
	assert.Equal(t, 2, rep.Posts)
	assert.True(t, target.closed)
	for _, name := range BackupFiles {
		assert.FileExists(t, filepath.Join(rep.BackupDir, name))
	}

	ctx := context.Background()
	projects, err := target.projects.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, projects, 5)

	var order []taxonomy.Category
	for _, p := range projects {
		order = append(order, p.Category)
	}
	assert.Equal(t, taxonomy.Categories(), order)

	p, err := target.projects.FindByID(ctx, "k152-1")
	require.NoError(t, err)
	assert.Equal(t, taxonomy.KA152, p.Category)
	assert.Equal(t, DefaultMigratedProjectImage, p.Image)
	assert.Equal(t, model.StatusActive, p.Status)
	assert.Equal(t, []string{}, p.Gallery)

	p, err = target.projects.FindByID(ctx, "local-1")
	require.NoError(t, err)
	assert.Equal(t, "/images/camp.jpg", p.Image)

	post, err := target.posts.FindByID(ctx, "post-2")
	require.NoError(t, err)
	assert.Equal(t, DefaultMigratedPostImage, post.Image)
	assert.Equal(t, model.DefaultPostAuthor, post.Author)
	assert.True(t, post.Published)
	assert.Equal(t, []string{}, post.Tags)

	post, err = target.posts.FindByID(ctx, "post-1")
	require.NoError(t, err)
	assert.Equal(t, "Ana", post.Author)
	assert.False(t, post.Published)
}

func TestMigrator_RunClearsExistingTarget(t *testing.T) {
	src := seedSource(t)
	target, connect := newFileTarget(t)
	ctx := context.Background()
	require.NoError(t, target.projects.Upsert(ctx, &model.Project{ID: "stale", Category: taxonomy.Local, Title: "Stale"}))

	m, _ := newTestMigrator(src, t.TempDir(), connect)
	_, err := m.Run(ctx)
	require.NoError(t, err)

	_, err = target.projects.FindByID(ctx, "stale")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestMigrator_TruncatedSourceFailsVerification(t *testing.T) {
	src := seedSource(t)
	target, connect := newFileTarget(t)
	m, phases := newTestMigrator(src, t.TempDir(), connect)

	// バックアップ後、転送前にソースから 1 件消す
	m.OnPhase = func(p Phase) {
		*phases = append(*phases, p)
		if p == PhaseClearTarget {
			_, err := m.Projects.Remove(context.Background(), "ka210-1")
			require.NoError(t, err)
		}
	}

	rep, err := m.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrVerification)

	var verr *VerificationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "project", verr.Entity)
	assert.Equal(t, 5, verr.Expected)
	assert.Equal(t, 4, verr.Actual)
	assert.Equal(t, rep.BackupDir, verr.BackupDir)
	assert.Equal(t, PhaseRollbackNotice, rep.Phase)
	assert.Equal(t, PhaseRollbackNotice, (*phases)[len(*phases)-1])

	// ターゲットは巻き戻さない
	projects, err := target.projects.ListAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, projects, 4)

	// バックアップには消す前の内容が残る
	backup, err := os.ReadFile(filepath.Join(rep.BackupDir, repository.ProjectsFile))
	require.NoError(t, err)
	assert.Equal(t, sourceProjectsJSON, string(backup))
}

func TestMigrator_ExpectedCountsComeFromBackup(t *testing.T) {
	src := seedSource(t)
	_, connect := newFileTarget(t)
	m, _ := newTestMigrator(src, t.TempDir(), connect)

	// バックアップ取得後に書き換えられたソースを読む状況
	edited := t.TempDir()
	writeFile(t, filepath.Join(edited, repository.ProjectsFile), sourceProjectsJSON)
	m.Projects = repository.NewFileProjectStoreInDir(edited)
	_, err := m.Projects.Remove(context.Background(), "ka210-1")
	require.NoError(t, err)

	rep, err := m.Run(context.Background())
	var verr *VerificationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, 5, verr.Expected)
	assert.Equal(t, 4, verr.Actual)
	assert.Equal(t, PhaseRollbackNotice, rep.Phase)
}

func TestMigrator_ConnectFailureLeavesTargetUntouched(t *testing.T) {
	src := seedSource(t)
	boom := errors.New("dial tcp: connection refused")
	m, phases := newTestMigrator(src, t.TempDir(), func(context.Context) (*Target, error) {
		return nil, boom
	})

	rep, err := m.Run(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, PhaseConnect, rep.Phase)
	assert.Equal(t, []Phase{PhaseBackup, PhaseConnect}, *phases)
	assert.NotEmpty(t, rep.BackupDir)
}

func TestMigrator_BackupFailureAbortsBeforeConnect(t *testing.T) {
	src := seedSource(t)
	root := filepath.Join(t.TempDir(), "not-a-dir")
	writeFile(t, root, "file")

	connected := false
	m, _ := newTestMigrator(src, root, func(context.Context) (*Target, error) {
		connected = true
		return nil, errors.New("unexpected")
	})

	rep, err := m.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, PhaseBackup, rep.Phase)
	assert.False(t, connected)
}

func TestMigrator_RejectsConcurrentRun(t *testing.T) {
	inFlight.Store(true)
	defer inFlight.Store(false)

	_, connect := newFileTarget(t)
	m, phases := newTestMigrator(seedSource(t), t.TempDir(), connect)

	_, err := m.Run(context.Background())
	assert.ErrorIs(t, err, ErrInProgress)
	assert.Empty(t, *phases)
}
