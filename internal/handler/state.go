package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sakif/socialboard/internal/apperror"
	"github.com/sakif/socialboard/internal/flux"
)

// heartbeatInterval keeps idle event streams from being closed by proxies.
const heartbeatInterval = 15 * time.Second

// StateHandler exposes the store's state and its change stream, plus the
// actions that only touch client state (navigation, clearing the error).
type StateHandler struct {
	store   StateSource
	actions *flux.Actions
	logger  *slog.Logger
}

func NewStateHandler(store StateSource, actions *flux.Actions, logger *slog.Logger) *StateHandler {
	return &StateHandler{store: store, actions: actions, logger: logger}
}

// HandleGet returns the current state.
//
// HTTP: GET /api/state
func (h *StateHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.store.GetState())
}

// HandleEvents streams state changes as server-sent events. The first event
// is the current state; each later event is the state after one transition.
// ?fields=posts,tasks limits the stream to transitions touching those fields.
// A slow client only ever sees the latest state, never a backlog.
//
// HTTP: GET /api/state/events
func (h *StateHandler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	fields, err := parseFields(r.URL.Query().Get("fields"))
	if err != nil {
		writeError(w, err)
		return
	}

	rc := http.NewResponseController(w)
	// Streams outlive the server's WriteTimeout.
	_ = rc.SetWriteDeadline(time.Time{})

	latest := make(chan flux.AppState, 1)
	unsubscribe := h.store.Subscribe(func(s flux.AppState) {
		for {
			select {
			case latest <- s:
				return
			default:
			}
			select {
			case <-latest:
			default:
			}
		}
	}, flux.WithFields(fields))
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if err := h.send(w, rc, h.store.GetState()); err != nil {
		return
	}

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case s := <-latest:
			if err := h.send(w, rc, s); err != nil {
				h.logger.Debug("event stream closed", slog.String("error", err.Error()))
				return
			}
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
		}
	}
}

func (h *StateHandler) send(w http.ResponseWriter, rc *http.ResponseController, s flux.AppState) error {
	data, err := json.Marshal(s)
	if err != nil {
		h.logger.Error("failed to encode state event", slog.String("error", err.Error()))
		return err
	}
	if _, err := fmt.Fprintf(w, "event: state\ndata: %s\n\n", data); err != nil {
		return err
	}
	return rc.Flush()
}

// parseFields turns "posts, tasks" into a Field mask. Empty means all fields.
func parseFields(raw string) (flux.Field, error) {
	if strings.TrimSpace(raw) == "" {
		return flux.FieldAll, nil
	}
	var mask flux.Field
	for _, name := range strings.Split(raw, ",") {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		f, ok := flux.ParseField(name)
		if !ok {
			return 0, apperror.ValidationFailed("fields", fmt.Sprintf("unknown state field %q", name))
		}
		mask |= f
	}
	if mask == 0 {
		return flux.FieldAll, nil
	}
	return mask, nil
}

type navigateRequest struct {
	Path string `json:"path"`
}

// HandleNavigate moves the client to another path.
//
// HTTP: POST /api/navigate {"path": "/tasks"}
func (h *StateHandler) HandleNavigate(w http.ResponseWriter, r *http.Request) {
	var req navigateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	h.actions.Navigate(req.Path)
	accepted(w, r, h.store)
}

// HTTP: POST /api/navigate/back
func (h *StateHandler) HandleBack(w http.ResponseWriter, r *http.Request) {
	h.actions.NavigateBack()
	accepted(w, r, h.store)
}

// HTTP: POST /api/navigate/forward
func (h *StateHandler) HandleForward(w http.ResponseWriter, r *http.Request) {
	h.actions.NavigateForward()
	accepted(w, r, h.store)
}

// HandleClearError dismisses the error banner.
//
// HTTP: DELETE /api/error
func (h *StateHandler) HandleClearError(w http.ResponseWriter, r *http.Request) {
	h.actions.ClearError()
	accepted(w, r, h.store)
}
