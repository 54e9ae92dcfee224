package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/socialboard/internal/flux"
	"github.com/sakif/socialboard/internal/model"
)

// TaskHandler maps the task board endpoints onto task actions.
type TaskHandler struct {
	store   StateSource
	actions *flux.Actions
	logger  *slog.Logger
}

func NewTaskHandler(store StateSource, actions *flux.Actions, logger *slog.Logger) *TaskHandler {
	return &TaskHandler{store: store, actions: actions, logger: logger}
}

type createTaskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type updateTaskRequest struct {
	Status string `json:"status"`
}

// HTTP: POST /api/tasks {"title", "description"}
func (h *TaskHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createTaskRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	h.actions.CreateTask(req.Title, req.Description)
	accepted(w, r, h.store)
}

// HandleUpdateStatus moves a task to another column. An unknown status is
// reported through the state's error, like every other rejected action.
//
// HTTP: PATCH /api/tasks/{id} {"status": "in-progress"}
func (h *TaskHandler) HandleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req updateTaskRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	id := chi.URLParam(r, "id")
	h.logger.Debug("moving task", slog.String("task_id", id), slog.String("status", req.Status))
	h.actions.UpdateTaskStatus(id, model.TaskStatus(req.Status))
	accepted(w, r, h.store)
}

// HTTP: DELETE /api/tasks/{id}
func (h *TaskHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	h.actions.DeleteTask(chi.URLParam(r, "id"))
	accepted(w, r, h.store)
}

// HTTP: POST /api/tasks/refresh
func (h *TaskHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	h.actions.FetchTasks()
	accepted(w, r, h.store)
}
