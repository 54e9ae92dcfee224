package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/socialboard/internal/flux"
	"github.com/sakif/socialboard/internal/model"
)

// UserHandler maps the admin console endpoints onto user actions. The store
// refuses them for anyone who is not an admin.
type UserHandler struct {
	store   StateSource
	actions *flux.Actions
	logger  *slog.Logger
}

func NewUserHandler(store StateSource, actions *flux.Actions, logger *slog.Logger) *UserHandler {
	return &UserHandler{store: store, actions: actions, logger: logger}
}

type setRoleRequest struct {
	Role string `json:"role"`
}

// HTTP: POST /api/users/refresh
func (h *UserHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	h.actions.FetchUsers()
	accepted(w, r, h.store)
}

// HTTP: PATCH /api/users/{id} {"role": "admin"}
func (h *UserHandler) HandleSetRole(w http.ResponseWriter, r *http.Request) {
	var req setRoleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	id := chi.URLParam(r, "id")
	h.logger.Debug("changing role", slog.String("user_id", id), slog.String("role", req.Role))
	h.actions.SetUserRole(id, model.Role(req.Role))
	accepted(w, r, h.store)
}

// HTTP: DELETE /api/users/{id}
func (h *UserHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	h.actions.DeleteUser(chi.URLParam(r, "id"))
	accepted(w, r, h.store)
}
