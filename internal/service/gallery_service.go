package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kaizen-ngo/backend/internal/model"
	"github.com/kaizen-ngo/backend/internal/storage"
	"github.com/kaizen-ngo/backend/pkg/auth"
)

// UploadPolicy はギャラリー一括アップロードで一部が失敗したときの扱い
type UploadPolicy string

const (
	// DropFailed は成功分だけをギャラリーに追加し、失敗分は結果の Failed に残す
	DropFailed UploadPolicy = "drop"
	// FailBatch は 1 件でも失敗したらギャラリーを更新せず、成功分も削除する
	FailBatch UploadPolicy = "fail"
)

// ParseUploadPolicy は設定値を UploadPolicy にする。空は DropFailed。
func ParseUploadPolicy(s string) (UploadPolicy, error) {
	switch UploadPolicy(s) {
	case "", DropFailed:
		return DropFailed, nil
	case FailBatch:
		return FailBatch, nil
	}
	return "", fmt.Errorf("unknown upload policy %q", s)
}

// ErrUploadFailed はアップロードが 1 件も反映されなかった
var ErrUploadFailed = errors.New("gallery upload failed")

const (
	maxUploadBytes    = 5 << 20
	uploadConcurrency = 4
	galleryFolder     = "projects"
)

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9.-]`)

// UploadFailure は失敗した 1 ファイル
type UploadFailure struct {
	Filename string `json:"filename"`
	Error    string `json:"error"`
}

// GalleryResult は一括アップロードの結果
type GalleryResult struct {
	Project  *model.Project  `json:"project"`
	Uploaded []string        `json:"uploaded"`
	Failed   []UploadFailure `json:"failed"`
}

// GalleryService はプロジェクトのギャラリーに画像を追加する
type GalleryService interface {
	Append(ctx context.Context, projectID string, files []model.Upload) (*GalleryResult, error)
}

type galleryService struct {
	projects ProjectService
	storage  storage.Storage
	policy   UploadPolicy
	now      func() time.Time
}

// NewGalleryService は GalleryService を生成する
func NewGalleryService(projects ProjectService, st storage.Storage, policy UploadPolicy) GalleryService {
	return &galleryService{projects: projects, storage: st, policy: policy, now: time.Now}
}

func validateUpload(f model.Upload) error {
	if len(f.Data) == 0 {
		return &model.ValidationError{Field: "file", Reason: f.Filename + " is empty"}
	}
	if len(f.Data) > maxUploadBytes {
		return &model.ValidationError{Field: "file", Reason: f.Filename + " is too large"}
	}
	ct := f.ContentType
	if ct == "" {
		ct = storage.DetectContentType(f.Data, f.Filename)
	}
	if !allowedImageTypes[ct] {
		return &model.ValidationError{Field: "file", Reason: "invalid file type " + ct}
	}
	return nil
}

// Append は files を並行にアップロードし、全件の完了を待ってからギャラリーを 1 回だけ更新する。
// ギャラリーへの追加順は files の順序に従う。
func (s *galleryService) Append(ctx context.Context, projectID string, files []model.Upload) (*GalleryResult, error) {
	if _, err := auth.RequirePrincipal(ctx); err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, &model.ValidationError{Field: "files", Reason: "required"}
	}
	for _, f := range files {
		if err := validateUpload(f); err != nil {
			return nil, err
		}
	}
	current, err := s.projects.Get(ctx, projectID)
	if err != nil {
		return nil, err
	}

	urls := make([]string, len(files))
	keys := make([]string, len(files))
	errs := make([]error, len(files))
	stamp := s.now().UnixMilli()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uploadConcurrency)
	for i, f := range files {
		keys[i] = fmt.Sprintf("%s/%s-%s", galleryFolder, strconv.FormatInt(stamp+int64(i), 10),
			unsafeFilenameChars.ReplaceAllString(f.Filename, "_"))
		g.Go(func() error {
			// 失敗はスロットに記録し、他のアップロードは継続する
			urls[i], errs[i] = s.storage.Save(gctx, keys[i], bytes.NewReader(f.Data), f.ContentType)
			return nil
		})
	}
	_ = g.Wait()

	result := &GalleryResult{Uploaded: []string{}, Failed: []UploadFailure{}}
	for i, err := range errs {
		if err != nil {
			slog.Warn("gallery upload failed", "project", projectID, "file", files[i].Filename, "error", err)
			result.Failed = append(result.Failed, UploadFailure{Filename: files[i].Filename, Error: err.Error()})
			continue
		}
		result.Uploaded = append(result.Uploaded, urls[i])
	}

	if len(result.Failed) > 0 && s.policy == FailBatch {
		s.discard(ctx, keys, errs)
		result.Uploaded = []string{}
		result.Project = current
		return result, fmt.Errorf("%w: %d of %d files", ErrUploadFailed, len(result.Failed), len(files))
	}
	if len(result.Uploaded) == 0 {
		result.Project = current
		return result, fmt.Errorf("%w: all %d files", ErrUploadFailed, len(files))
	}

	gallery := append(append([]string{}, current.Gallery...), result.Uploaded...)
	updated, err := s.projects.Update(ctx, projectID, &model.ProjectPatch{Gallery: &gallery})
	if err != nil {
		return nil, err
	}
	result.Project = updated
	return result, nil
}

// discard は FailBatch で巻き戻すとき、成功したアップロードを削除する
func (s *galleryService) discard(ctx context.Context, keys []string, errs []error) {
	for i, key := range keys {
		if errs[i] != nil {
			continue
		}
		if err := s.storage.Delete(ctx, key); err != nil {
			slog.Warn("discard uploaded file failed", "key", key, "error", err)
		}
	}
}
