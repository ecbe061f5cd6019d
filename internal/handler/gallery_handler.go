package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/kaizen-ngo/backend/internal/model"
	"github.com/kaizen-ngo/backend/internal/service"
)

// 1 リクエストあたりのマルチパート上限（1 ファイル 5MB はサービス側で検証する）
const maxGalleryRequestBytes = 64 << 20

// GalleryHandler はプロジェクトのギャラリー画像アップロードを処理する
type GalleryHandler struct {
	gallery service.GalleryService
}

// NewGalleryHandler は GalleryHandler を生成する
func NewGalleryHandler(gallery service.GalleryService) *GalleryHandler {
	return &GalleryHandler{gallery: gallery}
}

// Upload は POST /api/admin/projects/{id}/gallery を処理する。
// フォームフィールド "files" に複数の画像を受け取る。
func (h *GalleryHandler) Upload(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("id")
	if projectID == "" {
		writeErrorCode(w, http.StatusBadRequest, "id_required")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxGalleryRequestBytes)
	if err := r.ParseMultipartForm(maxGalleryRequestBytes); err != nil {
		writeErrorCode(w, http.StatusBadRequest, "file_too_large")
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		writeErrorCode(w, http.StatusBadRequest, "files_required")
		return
	}

	uploads := make([]model.Upload, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			writeErrorCode(w, http.StatusBadRequest, "invalid_file")
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			writeErrorCode(w, http.StatusBadRequest, "invalid_file")
			return
		}
		uploads = append(uploads, model.Upload{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Data:        data,
		})
	}

	result, err := h.gallery.Append(r.Context(), projectID, uploads)
	if err != nil {
		if errors.Is(err, service.ErrUploadFailed) && result != nil {
			writeJSON(w, http.StatusBadGateway, map[string]any{"error": "upload_failed", "failed": result.Failed})
			return
		}
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
