package flux

import "github.com/sakif/socialboard/internal/model"

// Actions is the intent-level API consumers use instead of building action
// values by hand. Every method dispatches exactly one action and returns once
// the synchronous part of its handling is done.
type Actions struct {
	d *Dispatcher
}

func NewActions(d *Dispatcher) *Actions {
	return &Actions{d: d}
}

func (a *Actions) Navigate(path string) { a.d.Dispatch(Navigate{Path: path}) }
func (a *Actions) NavigateBack()        { a.d.Dispatch(NavigateBack{}) }
func (a *Actions) NavigateForward()     { a.d.Dispatch(NavigateForward{}) }

func (a *Actions) Login(email, password string) {
	a.d.Dispatch(Login{Email: email, Password: password})
}

func (a *Actions) LoginWithProvider(provider, code string) {
	a.d.Dispatch(LoginWithProvider{Provider: provider, Code: code})
}

func (a *Actions) Register(email, password, displayName string) {
	a.d.Dispatch(Register{Email: email, Password: password, DisplayName: displayName})
}

func (a *Actions) Logout() { a.d.Dispatch(Logout{}) }

func (a *Actions) CreatePost(content, imageURL string) {
	a.d.Dispatch(CreatePost{Content: content, ImageURL: imageURL})
}

func (a *Actions) UpdatePost(id, content string) {
	a.d.Dispatch(UpdatePost{ID: id, Content: content})
}

func (a *Actions) DeletePost(id string) { a.d.Dispatch(DeletePost{ID: id}) }

// SetPosts replaces the feed locally, without a backend call.
func (a *Actions) SetPosts(posts []model.Post) {
	if posts == nil {
		posts = []model.Post{}
	}
	a.d.Dispatch(SetPosts{Posts: posts})
}

func (a *Actions) FetchPosts() { a.d.Dispatch(FetchPosts{}) }

func (a *Actions) CreateTask(title, description string) {
	a.d.Dispatch(CreateTask{Title: title, Description: description})
}

func (a *Actions) UpdateTaskStatus(id string, status model.TaskStatus) {
	a.d.Dispatch(UpdateTaskStatus{ID: id, Status: status})
}

func (a *Actions) DeleteTask(id string) { a.d.Dispatch(DeleteTask{ID: id}) }
func (a *Actions) FetchTasks()          { a.d.Dispatch(FetchTasks{}) }
func (a *Actions) ClearError()          { a.d.Dispatch(ClearError{}) }

// Admin console.

func (a *Actions) FetchUsers()          { a.d.Dispatch(FetchUsers{}) }
func (a *Actions) DeleteUser(id string) { a.d.Dispatch(DeleteUser{ID: id}) }
func (a *Actions) SetUserRole(id string, role model.Role) {
	a.d.Dispatch(SetUserRole{ID: id, Role: role})
}
