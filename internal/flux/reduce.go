package flux

import (
	"log/slog"
	"slices"
	"strings"

	"github.com/sakif/socialboard/internal/model"
)

// reduce applies a synchronous action to st in place and reports whether a
// transition happened. It runs under the store mutex, so it may also move
// the navigation history.
func (s *Store) reduce(st *AppState, a Action) bool {
	switch a := a.(type) {
	// Navigation.
	case Navigate:
		if strings.TrimSpace(a.Path) == "" {
			return s.malformed(a, "empty path")
		}
		path := guardPath(st, NormalizePath(a.Path))
		s.history = append(s.history[:s.cursor+1], path)
		s.cursor = len(s.history) - 1
		goTo(st, path)
	case NavigateBack:
		if s.cursor == 0 {
			return false
		}
		s.cursor--
		goTo(st, guardPath(st, s.history[s.cursor]))
	case NavigateForward:
		if s.cursor >= len(s.history)-1 {
			return false
		}
		s.cursor++
		goTo(st, guardPath(st, s.history[s.cursor]))

	// Operation lifecycle.
	case LoginStart, RegisterStart, PostRequest, TaskRequest, UserRequest:
		st.Loading = true
		st.Error = ""
	case LoginError:
		return s.fail(st, a, a.Message)
	case RegisterError:
		return s.fail(st, a, a.Message)
	case PostError:
		return s.fail(st, a, a.Message)
	case TaskError:
		return s.fail(st, a, a.Message)
	case UserError:
		return s.fail(st, a, a.Message)
	case AuthError:
		if a.Message == "" {
			return s.malformed(a, "empty message")
		}
		st.Error = a.Message
	case ValidationError:
		if a.Message == "" {
			return s.malformed(a, "empty message")
		}
		st.Error = a.Message
	case ClearError:
		st.Error = ""

	// Auth.
	case LoginSuccess:
		if a.User == nil {
			return s.malformed(a, "missing user")
		}
		signIn(st, a.User)
	case RegisterSuccess:
		if a.User == nil {
			return s.malformed(a, "missing user")
		}
		signIn(st, a.User)
	case Logout:
		signOut(st)
	case AuthStateChanged:
		if sameUser(st.CurrentUser, a.User) && st.IsAuthenticated == (a.User != nil) {
			return false
		}
		if a.User == nil {
			signOut(st)
			break
		}
		if st.CurrentUser == nil || st.CurrentUser.UID != a.User.UID {
			st.Tasks = []model.Task{}
			st.Users = []model.User{}
		}
		u := *a.User
		st.CurrentUser = &u
		st.IsAuthenticated = true
		dropAdmin(st)

	// Posts.
	case CreatePostSuccess:
		st.Posts = slices.DeleteFunc(st.Posts, func(p model.Post) bool { return p.ID == a.Post.ID })
		st.Posts = slices.Insert(st.Posts, 0, a.Post)
		st.Loading = false
	case UpdatePostSuccess:
		if i := slices.IndexFunc(st.Posts, func(p model.Post) bool { return p.ID == a.Post.ID }); i >= 0 {
			st.Posts[i] = a.Post
		}
		st.Loading = false
	case DeletePostSuccess:
		st.Posts = slices.DeleteFunc(st.Posts, func(p model.Post) bool { return p.ID == a.ID })
		st.Loading = false
	case FetchPostsSuccess:
		if a.Posts == nil {
			return s.malformed(a, "missing posts")
		}
		st.Posts = slices.Clone(a.Posts)
		st.Loading = false
	case SetPosts:
		if a.Posts == nil {
			return s.malformed(a, "missing posts")
		}
		st.Posts = slices.Clone(a.Posts)

	// Tasks. Results for a user who is no longer signed in only settle the
	// loading flag.
	case CreateTaskSuccess:
		st.Loading = false
		if !ownedBy(st, a.Task.UserID) {
			break
		}
		st.Tasks = slices.DeleteFunc(st.Tasks, func(t model.Task) bool { return t.ID == a.Task.ID })
		st.Tasks = append(st.Tasks, a.Task)
	case UpdateTaskStatusSuccess:
		if i := slices.IndexFunc(st.Tasks, func(t model.Task) bool { return t.ID == a.ID }); i >= 0 {
			st.Tasks[i].Status = a.Status
		}
		st.Loading = false
	case DeleteTaskSuccess:
		st.Tasks = slices.DeleteFunc(st.Tasks, func(t model.Task) bool { return t.ID == a.ID })
		st.Loading = false
	case FetchTasksSuccess:
		if a.Tasks == nil {
			return s.malformed(a, "missing tasks")
		}
		st.Loading = false
		if ownedBy(st, a.UserID) {
			st.Tasks = slices.Clone(a.Tasks)
		}

	// Admin console. Lists only land while an admin is signed in.
	case FetchUsersSuccess:
		if a.Users == nil {
			return s.malformed(a, "missing users")
		}
		st.Loading = false
		if st.CurrentUser.IsAdmin() {
			st.Users = slices.Clone(a.Users)
		}
	case DeleteUserSuccess:
		st.Users = slices.DeleteFunc(st.Users, func(u model.User) bool { return u.UID == a.ID })
		st.Posts = slices.DeleteFunc(st.Posts, func(p model.Post) bool { return p.UserID == a.ID })
		st.Loading = false
	case SetUserRoleSuccess:
		if a.User.UID == "" {
			return s.malformed(a, "missing user")
		}
		if i := slices.IndexFunc(st.Users, func(u model.User) bool { return u.UID == a.User.UID }); i >= 0 {
			st.Users[i] = a.User
		}
		if st.CurrentUser != nil && st.CurrentUser.UID == a.User.UID {
			u := a.User
			st.CurrentUser = &u
			dropAdmin(st)
		}
		st.Loading = false

	default:
		s.logger.Warn("store: unhandled action", slog.String("type", string(a.Type())))
		return false
	}
	return true
}

func (s *Store) malformed(a Action, reason string) bool {
	s.logger.Warn("store: ignoring malformed action",
		slog.String("type", string(a.Type())),
		slog.String("reason", reason),
	)
	return false
}

// fail settles a backend call that ended in an error.
func (s *Store) fail(st *AppState, a Action, msg string) bool {
	if msg == "" {
		return s.malformed(a, "empty message")
	}
	st.Loading = false
	st.Error = msg
	return true
}

func goTo(st *AppState, path string) {
	st.CurrentPath = path
	st.CurrentComponent = ComponentFor(path)
}

func signIn(st *AppState, u *model.User) {
	if st.CurrentUser == nil || st.CurrentUser.UID != u.UID {
		st.Tasks = []model.Task{}
		st.Users = []model.User{}
	}
	c := *u
	st.CurrentUser = &c
	st.IsAuthenticated = true
	st.Loading = false
	st.Error = ""
	dropAdmin(st)
}

// signOut drops the session, the private task board and the admin console.
// The public feed stays.
func signOut(st *AppState) {
	st.CurrentUser = nil
	st.IsAuthenticated = false
	st.Tasks = []model.Task{}
	dropAdmin(st)
}

// dropAdmin clears admin-only state once the signed-in user is not an admin,
// moving them off the admin console.
func dropAdmin(st *AppState) {
	if st.CurrentUser.IsAdmin() {
		return
	}
	st.Users = []model.User{}
	if st.CurrentPath == AdminPath {
		goTo(st, "/")
	}
}

// ownedBy reports whether uid is the signed-in user.
func ownedBy(st *AppState, uid string) bool {
	return st.CurrentUser != nil && uid != "" && st.CurrentUser.UID == uid
}
