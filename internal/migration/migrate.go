package migration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync/atomic"
	"time"

	"github.com/kaizen-ngo/backend/internal/model"
	"github.com/kaizen-ngo/backend/internal/repository"
	"github.com/kaizen-ngo/backend/internal/taxonomy"
)

// Phase は移行の状態。BACKUP から DONE / ROLLBACK_NOTICE へ一方向に進む。
type Phase string

const (
	PhaseBackup         Phase = "BACKUP"
	PhaseConnect        Phase = "CONNECT"
	PhaseClearTarget    Phase = "CLEAR_TARGET"
	PhaseTransfer       Phase = "TRANSFER"
	PhaseVerify         Phase = "VERIFY"
	PhaseDone           Phase = "DONE"
	PhaseRollbackNotice Phase = "ROLLBACK_NOTICE"
)

// 移行時のデフォルト値
const (
	DefaultMigratedProjectImage = "/images/Erasmus_Logo.png"
	DefaultMigratedPostImage    = model.DefaultPostImage
)

var (
	// ErrInProgress は別の移行が実行中
	ErrInProgress = errors.New("migration: already in progress")
	// ErrVerification は移行後の件数が一致しない
	ErrVerification = errors.New("migration: verification failed")
)

// VerificationError は件数不一致の詳細。ターゲットは巻き戻さない。
type VerificationError struct {
	Entity    string
	Expected  int
	Actual    int
	BackupDir string
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("migration: %s count mismatch: expected %d, got %d (backup: %s)",
		e.Entity, e.Expected, e.Actual, e.BackupDir)
}

func (e *VerificationError) Unwrap() error { return ErrVerification }

// TargetProjectStore は移行先のプロジェクトストア
type TargetProjectStore interface {
	repository.ProjectStore
	repository.Clearer
}

// TargetPostStore は移行先の記事ストア
type TargetPostStore interface {
	repository.PostStore
	repository.Clearer
}

// Target は CONNECT で得る移行先。Close は nil でもよい。
type Target struct {
	Projects TargetProjectStore
	Posts    TargetPostStore
	Close    func(ctx context.Context) error
}

// ConnectFunc は移行先への接続を確立する
type ConnectFunc func(ctx context.Context) (*Target, error)

// Report は移行結果
type Report struct {
	BackupDir string
	Projects  int
	Posts     int
	Phase     Phase
}

// Migrator は JSON ファイルストアから DocumentStore への一括移行を行う
type Migrator struct {
	SourceDir  string
	BackupRoot string
	Projects   repository.ProjectStore
	Posts      repository.PostStore
	Connect    ConnectFunc
	// OnPhase は各フェーズの開始時に呼ばれる（ログ・テスト用）
	OnPhase func(Phase)

	now func() time.Time
}

// NewMigrator は srcDir の JSON ファイルを移行元とする Migrator を返す
func NewMigrator(srcDir, backupRoot string, connect ConnectFunc) *Migrator {
	return &Migrator{
		SourceDir:  srcDir,
		BackupRoot: backupRoot,
		Projects:   repository.NewFileProjectStoreInDir(srcDir),
		Posts:      repository.NewFilePostStoreInDir(srcDir),
		Connect:    connect,
		now:        time.Now,
	}
}

// プロセス内で同時に 1 つだけ実行する
var inFlight atomic.Bool

// Run は BACKUP → CONNECT → CLEAR_TARGET → TRANSFER → VERIFY を順に実行する。
// VERIFY 失敗時はターゲットを残したまま ROLLBACK_NOTICE で終わる。
func (m *Migrator) Run(ctx context.Context) (*Report, error) {
	if !inFlight.CompareAndSwap(false, true) {
		return nil, ErrInProgress
	}
	defer inFlight.Store(false)

	now := time.Now
	if m.now != nil {
		now = m.now
	}
	rep := &Report{}

	m.enter(rep, PhaseBackup)
	backup, err := Backup(m.SourceDir, m.BackupRoot, now())
	if err != nil {
		return rep, fmt.Errorf("migration: backup: %w", err)
	}
	rep.BackupDir = backup.Dir
	expectedProjects, expectedPosts, err := backupCounts(ctx, backup.Dir)
	if err != nil {
		return rep, fmt.Errorf("migration: read backup: %w", err)
	}

	m.enter(rep, PhaseConnect)
	target, err := m.Connect(ctx)
	if err != nil {
		return rep, fmt.Errorf("migration: connect: %w", err)
	}
	if target.Close != nil {
		defer func() {
			if err := target.Close(context.WithoutCancel(ctx)); err != nil {
				slog.Warn("migration: close target", "error", err)
			}
		}()
	}

	m.enter(rep, PhaseClearTarget)
	if err := target.Projects.Clear(ctx); err != nil {
		return rep, m.notice(rep, fmt.Errorf("migration: clear projects: %w", err))
	}
	if err := target.Posts.Clear(ctx); err != nil {
		return rep, m.notice(rep, fmt.Errorf("migration: clear posts: %w", err))
	}

	m.enter(rep, PhaseTransfer)
	if rep.Projects, err = m.transferProjects(ctx, target.Projects); err != nil {
		return rep, m.notice(rep, err)
	}
	if rep.Posts, err = m.transferPosts(ctx, target.Posts); err != nil {
		return rep, m.notice(rep, err)
	}

	m.enter(rep, PhaseVerify)
	projects, err := target.Projects.ListAll(ctx)
	if err != nil {
		return rep, m.notice(rep, fmt.Errorf("migration: verify projects: %w", err))
	}
	if len(projects) != expectedProjects {
		return rep, m.notice(rep, &VerificationError{Entity: "project", Expected: expectedProjects, Actual: len(projects), BackupDir: rep.BackupDir})
	}
	posts, err := target.Posts.ListAll(ctx)
	if err != nil {
		return rep, m.notice(rep, fmt.Errorf("migration: verify posts: %w", err))
	}
	if len(posts) != expectedPosts {
		return rep, m.notice(rep, &VerificationError{Entity: "post", Expected: expectedPosts, Actual: len(posts), BackupDir: rep.BackupDir})
	}

	m.enter(rep, PhaseDone)
	slog.Info("migration: done", "projects", rep.Projects, "posts", rep.Posts, "backup", rep.BackupDir)
	return rep, nil
}

func (m *Migrator) enter(rep *Report, p Phase) {
	rep.Phase = p
	slog.Info("migration: phase", "phase", p)
	if m.OnPhase != nil {
		m.OnPhase(p)
	}
}

// notice はターゲット変更後の失敗を記録する。自動ロールバックはしない。
func (m *Migrator) notice(rep *Report, err error) error {
	failed := rep.Phase
	m.enter(rep, PhaseRollbackNotice)
	slog.Error("migration failed; target left as is, restore manually from backup",
		"phase", failed, "backup", rep.BackupDir, "error", err)
	return err
}

// backupCounts はバックアップのコピーから件数を数える。
// 以降にソースが書き換わっても VERIFY の基準は変わらない。
func backupCounts(ctx context.Context, dir string) (int, int, error) {
	projects, err := repository.NewFileProjectStoreInDir(dir).ListAll(ctx)
	if err != nil {
		return 0, 0, err
	}
	posts, err := repository.NewFilePostStoreInDir(dir).ListAll(ctx)
	if err != nil {
		return 0, 0, err
	}
	return len(projects), len(posts), nil
}

func (m *Migrator) transferProjects(ctx context.Context, dst repository.ProjectStore) (int, error) {
	projects, err := m.Projects.ListAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("migration: read projects: %w", err)
	}
	sortByTaxonomy(projects)

	for _, p := range projects {
		fillProjectDefaults(p)
		if err := dst.Upsert(ctx, p); err != nil {
			return 0, fmt.Errorf("migration: transfer project %s: %w", p.ID, err)
		}
		slog.Debug("migration: project transferred", "id", p.ID, "category", p.Category)
	}
	return len(projects), nil
}

func (m *Migrator) transferPosts(ctx context.Context, dst repository.PostStore) (int, error) {
	posts, err := m.Posts.ListAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("migration: read posts: %w", err)
	}
	for _, p := range posts {
		fillPostDefaults(p)
		if err := dst.Upsert(ctx, p); err != nil {
			return 0, fmt.Errorf("migration: transfer post %s: %w", p.ID, err)
		}
	}
	return len(posts), nil
}

// sortByTaxonomy はカテゴリツリー順に並べる。同一カテゴリ内の順序は保つ。
func sortByTaxonomy(projects []*model.Project) {
	rank := map[taxonomy.Category]int{}
	for i, c := range taxonomy.Categories() {
		rank[c] = i
	}
	sort.SliceStable(projects, func(i, j int) bool {
		return rank[projects[i].Category] < rank[projects[j].Category]
	})
}

func fillProjectDefaults(p *model.Project) {
	p.Normalize()
	if p.Image == "" {
		p.Image = DefaultMigratedProjectImage
	}
	if p.Status == "" {
		p.Status = model.StatusActive
	}
}

func fillPostDefaults(p *model.Post) {
	p.Normalize()
	if p.Image == "" {
		p.Image = DefaultMigratedPostImage
	}
	if p.Author == "" {
		p.Author = model.DefaultPostAuthor
	}
}
