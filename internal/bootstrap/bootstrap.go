// Package bootstrap は設定からストアとアップローダを組み立てる。
// サーバーと移行 CLI の両方から使う。
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/kaizen-ngo/backend/internal/config"
	"github.com/kaizen-ngo/backend/internal/migration"
	"github.com/kaizen-ngo/backend/internal/repository"
	"github.com/kaizen-ngo/backend/internal/storage"
	"github.com/kaizen-ngo/backend/pkg/ghcontents"
)

// Stores は選択したバックエンドのストア一式
type Stores struct {
	Backend    string
	Projects   repository.ProjectStore
	Posts      repository.PostStore
	ChangeLogs repository.ChangeLogStore
	DB         repository.DB // ファイル / GitHub では nil

	closers []func(ctx context.Context) error
}

// Close は接続を閉じる
func (s *Stores) Close(ctx context.Context) error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i](ctx))
	}
	return errors.Join(errs...)
}

func fileStores(dir string) *Stores {
	return &Stores{
		Backend:    config.BackendFile,
		Projects:   repository.NewFileProjectStoreInDir(dir),
		Posts:      repository.NewFilePostStoreInDir(dir),
		ChangeLogs: repository.NewFileChangeLogStore(dir),
	}
}

// OpenStores は cfg のバックエンドに接続する。
// FallbackToFile のときは接続失敗でファイルストアに切り替え、
// 接続後の ErrUnavailable もファイルストアで再試行する。
func OpenStores(ctx context.Context, cfg *config.Config) (*Stores, error) {
	backend := cfg.EffectiveBackend()
	if backend != cfg.ContentBackend {
		slog.Warn("github backend not configured, using file backend")
	}

	var (
		s   *Stores
		err error
	)
	switch backend {
	case config.BackendFile:
		return fileStores(cfg.DataDir), nil
	case config.BackendGitHub:
		s, err = openGitHub(cfg)
	case config.BackendMongo:
		s, err = openMongo(ctx, cfg)
	case config.BackendPostgres:
		s, err = openPostgres(ctx, cfg)
	default:
		return nil, fmt.Errorf("bootstrap: unknown backend %q", backend)
	}
	if err != nil {
		if cfg.FallbackToFile && errors.Is(err, repository.ErrUnavailable) {
			slog.Warn("backend unavailable, falling back to file backend", "backend", backend, "error", err)
			return fileStores(cfg.DataDir), nil
		}
		return nil, err
	}

	if cfg.FallbackToFile {
		files := fileStores(cfg.DataDir)
		s.Projects = repository.NewFallbackProjectStore(s.Projects, files.Projects)
		s.Posts = repository.NewFallbackPostStore(s.Posts, files.Posts)
	}
	return s, nil
}

func openGitHub(cfg *config.Config) (*Stores, error) {
	client, err := ghcontents.NewClient(cfg.GitHubToken, cfg.GitHubRepo, cfg.GitHubBranch)
	if err != nil {
		return nil, err
	}
	return &Stores{
		Backend:  config.BackendGitHub,
		Projects: repository.NewRemoteProjectStore(client, path.Join(cfg.GitHubPath, repository.ProjectsFile)),
		Posts:    repository.NewRemotePostStore(client, path.Join(cfg.GitHubPath, repository.PostsFile)),
		// 変更履歴はコミットを増やさないようローカルに残す
		ChangeLogs: repository.NewFileChangeLogStore(cfg.DataDir),
	}, nil
}

func openMongo(ctx context.Context, cfg *config.Config) (*Stores, error) {
	if cfg.MongoURI == "" {
		return nil, errors.New("bootstrap: MONGODB_URI is not set")
	}
	client, err := repository.ConnectMongo(ctx, cfg.MongoURI)
	if err != nil {
		return nil, err
	}
	db := client.Database(cfg.MongoDatabase)
	if err := repository.EnsureMongoIndexes(ctx, db); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return &Stores{
		Backend:    config.BackendMongo,
		Projects:   repository.NewMongoProjectStore(db),
		Posts:      repository.NewMongoPostStore(db),
		ChangeLogs: repository.NewMongoChangeLogStore(db),
		DB:         repository.NewMongoDB(db),
		closers:    []func(context.Context) error{disconnect(client)},
	}, nil
}

func disconnect(client *mongo.Client) func(context.Context) error {
	return func(ctx context.Context) error { return client.Disconnect(ctx) }
}

func openPostgres(ctx context.Context, cfg *config.Config) (*Stores, error) {
	if cfg.DatabaseURL == "" {
		return nil, errors.New("bootstrap: DATABASE_URL is not set")
	}
	pool, err := repository.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	applied, err := repository.EnsureSchema(ctx, pool)
	if err != nil {
		pool.Close()
		return nil, err
	}
	if applied > 0 {
		slog.Info("content schema migrations applied", "count", applied)
	}
	return &Stores{
		Backend:    config.BackendPostgres,
		Projects:   repository.NewPgProjectStore(pool),
		Posts:      repository.NewPgPostStore(pool),
		ChangeLogs: repository.NewPgChangeLogStore(pool),
		DB:         pool,
		closers: []func(context.Context) error{func(context.Context) error {
			pool.Close()
			return nil
		}},
	}, nil
}

// ConnectTarget は移行先（mongo / postgres）への ConnectFunc を返す
func ConnectTarget(cfg *config.Config, backend string) (migration.ConnectFunc, error) {
	switch backend {
	case config.BackendMongo, config.BackendPostgres:
	default:
		return nil, fmt.Errorf("bootstrap: %q cannot be a migration target", backend)
	}
	return func(ctx context.Context) (*migration.Target, error) {
		var (
			s   *Stores
			err error
		)
		if backend == config.BackendMongo {
			s, err = openMongo(ctx, cfg)
		} else {
			s, err = openPostgres(ctx, cfg)
		}
		if err != nil {
			return nil, err
		}
		projects, ok := s.Projects.(migration.TargetProjectStore)
		if !ok {
			_ = s.Close(ctx)
			return nil, fmt.Errorf("bootstrap: %s project store cannot be cleared", backend)
		}
		posts, ok := s.Posts.(migration.TargetPostStore)
		if !ok {
			_ = s.Close(ctx)
			return nil, fmt.Errorf("bootstrap: %s post store cannot be cleared", backend)
		}
		return &migration.Target{Projects: projects, Posts: posts, Close: s.Close}, nil
	}, nil
}

// OpenStorage は ASSET_STORAGE に応じたアップローダを返す
func OpenStorage(ctx context.Context, cfg *config.Config) (storage.Storage, error) {
	switch cfg.AssetStorage {
	case config.AssetS3:
		st, err := storage.NewS3Storage(ctx, storage.S3Config{
			Bucket:        cfg.S3Bucket,
			Region:        cfg.S3Region,
			Endpoint:      cfg.S3Endpoint,
			PublicBaseURL: cfg.S3PublicBaseURL,
			AccessKey:     cfg.S3AccessKey,
			SecretKey:     cfg.S3SecretKey,
		})
		if err != nil {
			return nil, err
		}
		return st, nil
	case config.AssetMinio:
		st, err := storage.NewMinioStorage(storage.MinioConfig{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			UseSSL:    cfg.MinioUseSSL,
			Bucket:    cfg.MinioBucket,
		})
		if err != nil {
			return nil, err
		}
		if err := st.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return st, nil
	default:
		return storage.NewLocalStorage(cfg.UploadDir, cfg.UploadURLPrefix), nil
	}
}
