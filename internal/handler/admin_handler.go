package handler

import (
	"net/http"

	"github.com/kaizen-ngo/backend/internal/model"
	"github.com/kaizen-ngo/backend/internal/service"
)

// AdminHandler は管理画面ダッシュボード用の読み取り API
type AdminHandler struct {
	projects service.ProjectService
	changes  service.ChangeLogService
}

func NewAdminHandler(projects service.ProjectService, changes service.ChangeLogService) *AdminHandler {
	return &AdminHandler{projects: projects, changes: changes}
}

// Changes は GET /api/admin/changes。?entity=post で記事の履歴。
func (h *AdminHandler) Changes(w http.ResponseWriter, r *http.Request) {
	entity := r.URL.Query().Get("entity")
	if entity == "" {
		entity = model.EntityProject
	}
	if entity != model.EntityProject && entity != model.EntityPost {
		writeErrorCode(w, http.StatusBadRequest, "invalid_entity")
		return
	}

	entries, err := h.changes.Recent(r.Context(), entity)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if entries == nil {
		entries = []*model.ChangeLogEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"changes": entries})
}

// Stats は GET /api/admin/stats
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.projects.Stats(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
