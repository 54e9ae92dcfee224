package flux

import (
	"net/url"
	"strings"
)

// Components the client can render. Every path resolves to exactly one of them.
const (
	ComponentMain     = "main-page"
	ComponentLogin    = "login-form"
	ComponentRegister = "register-form"
	ComponentPosts    = "post-page"
	ComponentTasks    = "tasks-page"
	ComponentMenu     = "menu-page"
	ComponentAdmin    = "admin-page"
	ComponentNotFound = "not-found-page"
)

// AdminPath renders the admin console. Anyone who is not an admin is sent to
// "/" instead.
const AdminPath = "/admin"

var routes = map[string]string{
	"/":         ComponentMain,
	"/login":    ComponentLogin,
	"/register": ComponentRegister,
	"/posts":    ComponentPosts,
	"/tasks":    ComponentTasks,
	"/menu":     ComponentMenu,
	AdminPath:   ComponentAdmin,
}

// ComponentFor returns the component that renders path, or ComponentNotFound.
func ComponentFor(path string) string {
	if c, ok := routes[NormalizePath(path)]; ok {
		return c
	}
	return ComponentNotFound
}

// guardPath returns the path st may actually show for path.
func guardPath(st *AppState, path string) string {
	if path == AdminPath && !st.CurrentUser.IsAdmin() {
		return "/"
	}
	return path
}

// NormalizePath drops the query string and fragment, ensures a leading slash
// and strips trailing slashes, so "/tasks/?tab=done" and "/tasks" are the
// same route.
func NormalizePath(path string) string {
	path = strings.TrimSpace(path)
	if u, err := url.Parse(path); err == nil {
		path = u.Path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
		if path == "" {
			path = "/"
		}
	}
	return path
}
