package flux

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sakif/socialboard/internal/apperror"
	"github.com/sakif/socialboard/internal/model"
)

// SnapshotKey is the key the Store saves its state under.
const SnapshotKey = "flux:state"

const snapshotVersion = 1

const actionRehydrate ActionType = "@@REHYDRATE"

// ErrSnapshotVersion is returned when a persisted snapshot was written by an
// incompatible version of the store.
var ErrSnapshotVersion = errors.New("flux: unsupported snapshot version")

// Persister is a small key/value store for the state snapshot. Load returns
// an error wrapping apperror.ErrNotFound when nothing has been saved yet.
type Persister interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, value []byte) error
}

// snapshot is the envelope written under SnapshotKey.
//
// WHAT GETS SAVED?
// Everything in AppState except the admin console's account list, wrapped
// with a version number and a timestamp:
//
//	{
//	  "version": 1,
//	  "savedAt": "2024-05-01T12:00:00Z",
//	  "state": {"currentPath": "/tasks", "isAuthenticated": true, ...}
//	}
//
// On the way back in, DecodeSnapshot rejects any other version and fixes up
// what a stale or hand-edited file could get wrong: the path is normalized
// and re-guarded, the component is derived from it again, and Loading and
// Error start out cleared.
type snapshot struct {
	Version int       `json:"version"`
	SavedAt time.Time `json:"savedAt"`
	State   AppState  `json:"state"`
}

// EncodeSnapshot serializes state into a versioned envelope. The admin
// console's account list is never written to disk.
func EncodeSnapshot(state AppState, now time.Time) ([]byte, error) {
	state.Users = []model.User{}
	data, err := json.Marshal(snapshot{
		Version: snapshotVersion,
		SavedAt: now.UTC(),
		State:   state,
	})
	if err != nil {
		return nil, fmt.Errorf("flux: encoding snapshot: %w", err)
	}
	return data, nil
}

// DecodeSnapshot parses an envelope written by EncodeSnapshot. In-flight
// status does not survive a restart: the result is never loading and carries
// no error. The component is derived from the path again, and a stored admin
// path only survives for an admin.
func DecodeSnapshot(data []byte) (AppState, error) {
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return AppState{}, fmt.Errorf("flux: decoding snapshot: %w", err)
	}
	if snap.Version != snapshotVersion {
		return AppState{}, fmt.Errorf("%w: %d", ErrSnapshotVersion, snap.Version)
	}

	st := snap.State
	if st.CurrentPath == "" {
		st.CurrentPath = "/"
	}
	st.IsAuthenticated = st.CurrentUser != nil
	st.CurrentPath = guardPath(&st, NormalizePath(st.CurrentPath))
	st.CurrentComponent = ComponentFor(st.CurrentPath)
	st.Users = []model.User{}
	if st.Posts == nil {
		st.Posts = []model.Post{}
	}
	if st.Tasks == nil {
		st.Tasks = []model.Task{}
	}
	st.Loading = false
	st.Error = ""
	return st, nil
}

// Rehydrate replaces the state with the persisted snapshot, if there is one,
// and restarts the navigation history at its path. Listeners see it as a
// regular transition.
func (s *Store) Rehydrate(ctx context.Context) error {
	if s.persister == nil {
		return nil
	}
	data, err := s.persister.Load(ctx, SnapshotKey)
	if errors.Is(err, apperror.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("flux: loading snapshot: %w", err)
	}
	restored, err := DecodeSnapshot(data)
	if err != nil {
		return err
	}

	s.commit(actionRehydrate, func(st *AppState) bool {
		*st = restored
		s.history = []string{restored.CurrentPath}
		s.cursor = 0
		return true
	})
	return nil
}
