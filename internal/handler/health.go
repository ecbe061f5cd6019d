package handler

import (
	"net/http"
)

type healthResponse struct {
	Status  string `json:"status"`
	Backend string `json:"backend"`
	Message string `json:"message"`
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		if err := h.db.Ping(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, healthResponse{
				Status:  "unhealthy",
				Backend: h.backend,
				Message: err.Error(),
			})
			return
		}
	}

	writeJSON(w, http.StatusOK, healthResponse{
		Status:  "ok",
		Backend: h.backend,
		Message: "Kaizen content API",
	})
}
