package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/socialboard/internal/flux"
	"github.com/sakif/socialboard/internal/model"
)

// PostHandler maps the feed endpoints onto post actions.
type PostHandler struct {
	store   StateSource
	actions *flux.Actions
	logger  *slog.Logger
}

func NewPostHandler(store StateSource, actions *flux.Actions, logger *slog.Logger) *PostHandler {
	return &PostHandler{store: store, actions: actions, logger: logger}
}

type createPostRequest struct {
	Content  string `json:"content"`
	ImageURL string `json:"imageUrl"`
}

type updatePostRequest struct {
	Content string `json:"content"`
}

type setPostsRequest struct {
	Posts []model.Post `json:"posts"`
}

// HTTP: POST /api/posts {"content", "imageUrl"}
func (h *PostHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createPostRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	h.actions.CreatePost(req.Content, req.ImageURL)
	accepted(w, r, h.store)
}

// HTTP: PUT /api/posts/{id} {"content"}
func (h *PostHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req updatePostRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	h.actions.UpdatePost(chi.URLParam(r, "id"), req.Content)
	accepted(w, r, h.store)
}

// HTTP: DELETE /api/posts/{id}
func (h *PostHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	h.actions.DeletePost(chi.URLParam(r, "id"))
	accepted(w, r, h.store)
}

// HandleRefresh reloads the feed from the backend.
//
// HTTP: POST /api/posts/refresh
func (h *PostHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	h.actions.FetchPosts()
	accepted(w, r, h.store)
}

// HandleReplace swaps the whole client-side feed without touching the
// backend.
//
// HTTP: PUT /api/posts {"posts": [...]}
func (h *PostHandler) HandleReplace(w http.ResponseWriter, r *http.Request) {
	var req setPostsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	h.logger.Debug("replacing feed", slog.Int("posts", len(req.Posts)))
	h.actions.SetPosts(req.Posts)
	accepted(w, r, h.store)
}
