// Package config は環境変数（と .env）から設定を読み込む。
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// コンテンツの保存先
const (
	BackendFile     = "file"
	BackendMongo    = "mongo"
	BackendPostgres = "postgres"
	BackendGitHub   = "github"
)

// 画像の保存先
const (
	AssetLocal = "local"
	AssetS3    = "s3"
	AssetMinio = "minio"
)

// Config はサーバーと移行 CLI の共通設定
type Config struct {
	Port        string
	FrontendURL string
	LogLevel    string

	DataDir        string
	ContentBackend string
	FallbackToFile bool

	MongoURI      string
	MongoDatabase string
	DatabaseURL   string

	GitHubToken  string
	GitHubRepo   string // owner/repo
	GitHubBranch string
	GitHubPath   string // リポジトリ内のデータディレクトリ

	JWTSecret    string
	AuthRequired bool

	AssetStorage    string
	PublicDir       string
	UploadDir       string
	UploadURLPrefix string
	S3Bucket        string
	S3Region        string
	S3Endpoint      string
	S3PublicBaseURL string
	S3AccessKey     string
	S3SecretKey     string
	MinioEndpoint   string
	MinioAccessKey  string
	MinioSecretKey  string
	MinioUseSSL     bool
	MinioBucket     string

	GalleryUploadPolicy string
	BackupDir           string
}

// Load は .env（無ければ無視）を読んだうえで環境変数から Config を作る
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		_ = godotenv.Load(f)
	}

	cfg := &Config{
		Port:        getenv("PORT", "8080"),
		FrontendURL: getenv("FRONTEND_URL", "http://localhost:4321"),
		LogLevel:    getenv("LOG_LEVEL", "INFO"),

		DataDir:        getenv("DATA_DIR", "./data"),
		ContentBackend: strings.ToLower(getenv("CONTENT_BACKEND", BackendFile)),
		FallbackToFile: getbool("FALLBACK_TO_FILE", true),

		MongoURI:      os.Getenv("MONGODB_URI"),
		MongoDatabase: getenv("MONGODB_DATABASE", "kaizen"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),

		GitHubToken:  os.Getenv("GITHUB_TOKEN"),
		GitHubRepo:   os.Getenv("GITHUB_REPO"),
		GitHubBranch: os.Getenv("GITHUB_BRANCH"),
		GitHubPath:   getenv("GITHUB_DATA_PATH", "data"),

		JWTSecret:    getenv("JWT_SECRET", "dev-secret-change-in-production-32bytes"),
		AuthRequired: getbool("AUTH_REQUIRED", false),

		AssetStorage:    strings.ToLower(getenv("ASSET_STORAGE", AssetLocal)),
		PublicDir:       getenv("PUBLIC_DIR", "./public"),
		UploadDir:       getenv("UPLOAD_DIR", "./uploads"),
		UploadURLPrefix: getenv("UPLOAD_URL_PREFIX", "/uploads"),
		S3Bucket:        os.Getenv("S3_BUCKET"),
		S3Region:        getenv("S3_REGION", "eu-central-1"),
		S3Endpoint:      os.Getenv("S3_ENDPOINT"),
		S3PublicBaseURL: os.Getenv("S3_PUBLIC_BASE_URL"),
		S3AccessKey:     os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey:     os.Getenv("S3_SECRET_KEY"),
		MinioEndpoint:   os.Getenv("MINIO_ENDPOINT"),
		MinioAccessKey:  os.Getenv("MINIO_ACCESS_KEY"),
		MinioSecretKey:  os.Getenv("MINIO_SECRET_KEY"),
		MinioUseSSL:     getbool("MINIO_USE_SSL", false),
		MinioBucket:     getenv("MINIO_BUCKET", "kaizen-assets"),

		GalleryUploadPolicy: getenv("GALLERY_UPLOAD_POLICY", "drop"),
		BackupDir:           getenv("BACKUP_DIR", "./backups"),
	}

	switch cfg.ContentBackend {
	case BackendFile, BackendMongo, BackendPostgres, BackendGitHub:
	default:
		return nil, fmt.Errorf("config: unknown CONTENT_BACKEND %q", cfg.ContentBackend)
	}
	switch cfg.AssetStorage {
	case AssetLocal, AssetS3, AssetMinio:
	default:
		return nil, fmt.Errorf("config: unknown ASSET_STORAGE %q", cfg.AssetStorage)
	}
	return cfg, nil
}

// GitHubEnabled はトークンと owner/repo が揃っているときだけ true
func (c *Config) GitHubEnabled() bool {
	owner, repo, ok := strings.Cut(c.GitHubRepo, "/")
	return c.GitHubToken != "" && ok && owner != "" && repo != ""
}

// EffectiveBackend は実際に使うバックエンド。GitHub 設定が不完全ならファイルに戻す。
func (c *Config) EffectiveBackend() string {
	if c.ContentBackend == BackendGitHub && !c.GitHubEnabled() {
		return BackendFile
	}
	return c.ContentBackend
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getbool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
