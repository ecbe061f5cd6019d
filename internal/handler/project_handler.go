package handler

import (
	"net/http"

	"github.com/kaizen-ngo/backend/internal/model"
	"github.com/kaizen-ngo/backend/internal/service"
)

// ProjectHandler はプロジェクト CRUD の HTTP ハンドラ
type ProjectHandler struct {
	projectService service.ProjectService
}

// NewProjectHandler は ProjectHandler を生成する
func NewProjectHandler(projectService service.ProjectService) *ProjectHandler {
	return &ProjectHandler{projectService: projectService}
}

// List は GET /api/projects を処理する（カテゴリツリー形）
func (h *ProjectHandler) List(w http.ResponseWriter, r *http.Request) {
	tree, err := h.projectService.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tree)
}

// Get は GET /api/projects/{id} を処理する
func (h *ProjectHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeErrorCode(w, http.StatusBadRequest, "id_required")
		return
	}

	project, err := h.projectService.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, project)
}

// Create は POST /api/projects を処理する（認証必須）
func (h *ProjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	var project model.Project
	if err := decodeJSON(r, &project); err != nil {
		writeErrorCode(w, http.StatusBadRequest, "invalid_json")
		return
	}
	// id はサーバー側で採番する
	project.ID = ""

	if err := h.projectService.Create(r.Context(), &project); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, &project)
}

// Update は PUT /api/projects/{id} を処理する（部分更新）
func (h *ProjectHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeErrorCode(w, http.StatusBadRequest, "id_required")
		return
	}

	var patch model.ProjectPatch
	if err := decodeJSON(r, &patch); err != nil {
		writeErrorCode(w, http.StatusBadRequest, "invalid_json")
		return
	}

	updated, err := h.projectService.Update(r.Context(), id, &patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// Delete は DELETE /api/projects/{id} を処理する
func (h *ProjectHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeErrorCode(w, http.StatusBadRequest, "id_required")
		return
	}

	removed, err := h.projectService.Delete(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, removed)
}
