package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioConfig は MinioStorage の接続設定
type MinioConfig struct {
	Endpoint      string // host:port
	AccessKey     string
	SecretKey     string
	UseSSL        bool
	Bucket        string
	PublicBaseURL string // 空なら <scheme>://<endpoint>/<bucket>
}

// MinioStorage は MinIO（S3 互換）に保存する Storage 実装
type MinioStorage struct {
	client        *minio.Client
	bucket        string
	publicBaseURL string
}

// NewMinioStorage は MinioConfig から MinioStorage を生成する
func NewMinioStorage(cfg MinioConfig) (*MinioStorage, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, errors.New("storage: minio endpoint and bucket are required")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("storage: minio client: %w", err)
	}
	base := cfg.PublicBaseURL
	if base == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		base = fmt.Sprintf("%s://%s/%s", scheme, cfg.Endpoint, cfg.Bucket)
	}
	return &MinioStorage{client: client, bucket: cfg.Bucket, publicBaseURL: base}, nil
}

// EnsureBucket はバケットが無ければ作成する
func (s *MinioStorage) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("storage: minio bucket exists: %w", err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("storage: minio make bucket: %w", err)
	}
	return nil
}

func (s *MinioStorage) Save(ctx context.Context, key string, data io.Reader, contentType string) (string, error) {
	k, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	body, err := io.ReadAll(data)
	if err != nil {
		return "", fmt.Errorf("storage: read: %w", err)
	}
	if contentType == "" {
		contentType = DetectContentType(body, k)
	}
	_, err = s.client.PutObject(ctx, s.bucket, k, bytes.NewReader(body), int64(len(body)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("storage: minio put %s: %w", k, err)
	}
	return joinURL(s.publicBaseURL, k), nil
}

func (s *MinioStorage) Delete(ctx context.Context, key string) error {
	k, err := cleanKey(key)
	if err != nil {
		return err
	}
	if err := s.client.RemoveObject(ctx, s.bucket, k, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("storage: minio remove %s: %w", k, err)
	}
	return nil
}

func (s *MinioStorage) Exists(ctx context.Context, ref string) (bool, error) {
	key, ok := keyFromURL(s.publicBaseURL, ref)
	if !ok {
		return false, nil
	}
	_, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return false, nil
		}
		return false, fmt.Errorf("storage: minio stat %s: %w", key, err)
	}
	return true, nil
}
