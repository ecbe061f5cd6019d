package handler

import (
	"net/http"

	"github.com/kaizen-ngo/backend/internal/model"
	"github.com/kaizen-ngo/backend/internal/service"
)

// PostHandler はブログ記事の HTTP ハンドラ
type PostHandler struct {
	postService service.PostService
}

func NewPostHandler(postService service.PostService) *PostHandler {
	return &PostHandler{postService: postService}
}

// List は GET /api/posts を処理する。?published=true で公開記事のみ。
func (h *PostHandler) List(w http.ResponseWriter, r *http.Request) {
	posts, err := h.postService.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if r.URL.Query().Get("published") == "true" {
		visible := make([]*model.Post, 0, len(posts))
		for _, p := range posts {
			if p.Published {
				visible = append(visible, p)
			}
		}
		posts = visible
	}
	writeJSON(w, http.StatusOK, map[string]any{"posts": posts})
}

func (h *PostHandler) Get(w http.ResponseWriter, r *http.Request) {
	post, err := h.postService.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

func (h *PostHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in model.PostInput
	if err := decodeJSON(r, &in); err != nil {
		writeErrorCode(w, http.StatusBadRequest, "invalid_json")
		return
	}

	post, err := h.postService.Create(r.Context(), &in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, post)
}

func (h *PostHandler) Update(w http.ResponseWriter, r *http.Request) {
	var patch model.PostPatch
	if err := decodeJSON(r, &patch); err != nil {
		writeErrorCode(w, http.StatusBadRequest, "invalid_json")
		return
	}

	post, err := h.postService.Update(r.Context(), r.PathValue("id"), &patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

func (h *PostHandler) Delete(w http.ResponseWriter, r *http.Request) {
	post, err := h.postService.Delete(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}
