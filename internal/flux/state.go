package flux

import (
	"slices"

	"github.com/sakif/socialboard/internal/model"
)

// AppState is the whole client-visible state. The Store owns it and replaces
// it wholesale on every transition; everyone else gets copies.
//
// Error is the single "last operation failed" slot. An empty string means no
// error. Concurrent failures overwrite each other (last write wins).
//
// Users is the admin console's account list. It is only ever filled for an
// admin and is emptied whenever the signed-in user changes.
type AppState struct {
	CurrentPath      string       `json:"currentPath"`
	IsAuthenticated  bool         `json:"isAuthenticated"`
	CurrentUser      *model.User  `json:"currentUser"`
	Posts            []model.Post `json:"posts"`
	Tasks            []model.Task `json:"tasks"`
	Users            []model.User `json:"users"`
	Loading          bool         `json:"loading"`
	Error            string       `json:"error,omitempty"`
	CurrentComponent string       `json:"currentComponent"`
}

// InitialState is the signed-out state at "/".
func InitialState() AppState {
	return AppState{
		CurrentPath:      "/",
		Posts:            []model.Post{},
		Tasks:            []model.Task{},
		Users:            []model.User{},
		CurrentComponent: ComponentFor("/"),
	}
}

// Clone returns a deep copy of s.
func (s AppState) Clone() AppState {
	c := s
	if s.CurrentUser != nil {
		u := *s.CurrentUser
		c.CurrentUser = &u
	}
	c.Posts = slices.Clone(s.Posts)
	c.Tasks = slices.Clone(s.Tasks)
	c.Users = slices.Clone(s.Users)
	return c
}

// Field names a slice of AppState. Fields are combined into a bitmask to
// describe what a transition changed or what a subscriber cares about.
type Field uint8

const (
	FieldPath Field = 1 << iota
	FieldAuth
	FieldPosts
	FieldTasks
	FieldStatus
	FieldComponent
	FieldUsers

	FieldAll = FieldPath | FieldAuth | FieldPosts | FieldTasks | FieldStatus | FieldComponent | FieldUsers
)

var fieldNames = map[string]Field{
	"path":      FieldPath,
	"auth":      FieldAuth,
	"posts":     FieldPosts,
	"tasks":     FieldTasks,
	"status":    FieldStatus,
	"component": FieldComponent,
	"users":     FieldUsers,
}

// ParseField maps a lowercase field name ("posts", "auth", ...) to its Field.
func ParseField(name string) (Field, bool) {
	f, ok := fieldNames[name]
	return f, ok
}

// Changed reports which fields differ between prev and next.
func Changed(prev, next AppState) Field {
	var f Field
	if prev.CurrentPath != next.CurrentPath {
		f |= FieldPath
	}
	if prev.IsAuthenticated != next.IsAuthenticated || !sameUser(prev.CurrentUser, next.CurrentUser) {
		f |= FieldAuth
	}
	if !slices.Equal(prev.Posts, next.Posts) {
		f |= FieldPosts
	}
	if !slices.Equal(prev.Tasks, next.Tasks) {
		f |= FieldTasks
	}
	if prev.Loading != next.Loading || prev.Error != next.Error {
		f |= FieldStatus
	}
	if prev.CurrentComponent != next.CurrentComponent {
		f |= FieldComponent
	}
	if !slices.Equal(prev.Users, next.Users) {
		f |= FieldUsers
	}
	return f
}

func sameUser(a, b *model.User) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
