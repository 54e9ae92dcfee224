package flux

import (
	"context"
	"log/slog"
	"strings"

	"github.com/sakif/socialboard/internal/apperror"
	"github.com/sakif/socialboard/internal/model"
)

// HandleAction is the Store's dispatcher callback. Synchronous kinds are
// reduced and delivered before it returns. Kinds that need the backend commit
// a loading transition, start the call and return; the outcome arrives later
// as a follow-up action.
func (s *Store) HandleAction(a Action) {
	if a == nil {
		return
	}
	s.logger.Debug("store: handling action", slog.String("type", string(a.Type())))

	switch a := a.(type) {
	case Login:
		s.login(a)
	case LoginWithProvider:
		s.loginWithProvider(a)
	case Register:
		s.register(a)
	case Logout:
		s.apply(a)
		s.logout()
	case CreatePost:
		s.createPost(a)
	case UpdatePost:
		s.updatePost(a)
	case DeletePost:
		s.deletePost(a)
	case FetchPosts:
		s.fetchPosts()
	case CreateTask:
		s.createTask(a)
	case UpdateTaskStatus:
		s.updateTaskStatus(a)
	case DeleteTask:
		s.deleteTask(a)
	case FetchTasks:
		s.fetchTasks()
	case FetchUsers:
		s.fetchUsers()
	case DeleteUser:
		s.deleteUser(a)
	case SetUserRole:
		s.setUserRole(a)
	default:
		s.apply(a)
	}
}

func (s *Store) apply(a Action) {
	s.commit(a.Type(), func(st *AppState) bool {
		return s.reduce(st, a)
	})
}

func (s *Store) invalid(msg string) {
	s.dispatch(ValidationError{Message: msg})
}

// Auth.

func (s *Store) login(a Login) {
	email := strings.TrimSpace(a.Email)
	if email == "" || a.Password == "" {
		s.invalid("email and password are required")
		return
	}
	if s.auth == nil {
		s.dispatch(LoginError{Message: "sign-in is unavailable"})
		return
	}

	const fallback = "could not sign in"
	s.async(LoginStart{}, func(ctx context.Context) Action {
		u, err := s.auth.Login(ctx, email, a.Password)
		if err != nil {
			return LoginError{Message: apperror.UserMessage(err, fallback)}
		}
		return LoginSuccess{User: u}
	}, LoginError{Message: fallback})
}

func (s *Store) loginWithProvider(a LoginWithProvider) {
	provider := strings.ToLower(strings.TrimSpace(a.Provider))
	if provider == "" || a.Code == "" {
		s.invalid("sign-in provider and code are required")
		return
	}
	pa, ok := s.auth.(ProviderAuth)
	if !ok {
		s.dispatch(LoginError{Message: "sign-in with " + provider + " is unavailable"})
		return
	}

	const fallback = "could not sign in"
	s.async(LoginStart{}, func(ctx context.Context) Action {
		u, err := pa.LoginWithProvider(ctx, provider, a.Code)
		if err != nil {
			return LoginError{Message: apperror.UserMessage(err, fallback)}
		}
		return LoginSuccess{User: u}
	}, LoginError{Message: fallback})
}

func (s *Store) register(a Register) {
	email := strings.TrimSpace(a.Email)
	name := strings.TrimSpace(a.DisplayName)
	switch {
	case email == "" || a.Password == "":
		s.invalid("email and password are required")
		return
	case name == "":
		s.invalid("display name is required")
		return
	case s.auth == nil:
		s.dispatch(RegisterError{Message: "registration is unavailable"})
		return
	}

	const fallback = "could not create account"
	s.async(RegisterStart{}, func(ctx context.Context) Action {
		u, err := s.auth.Register(ctx, email, a.Password, name)
		if err != nil {
			return RegisterError{Message: apperror.UserMessage(err, fallback)}
		}
		return RegisterSuccess{User: u}
	}, RegisterError{Message: fallback})
}

// logout ends the backend session after the local state has already been
// reset. Only a failure is reported back.
func (s *Store) logout() {
	if s.auth == nil {
		return
	}
	const fallback = "could not sign out"
	s.async(nil, func(ctx context.Context) Action {
		if err := s.auth.Logout(ctx); err != nil {
			return AuthError{Message: apperror.UserMessage(err, fallback)}
		}
		return nil
	}, AuthError{Message: fallback})
}

// Posts.

func (s *Store) createPost(a CreatePost) {
	content := strings.TrimSpace(a.Content)
	user := s.currentUser()
	switch {
	case user == nil:
		s.invalid("you must be signed in to post")
		return
	case content == "":
		s.invalid("post content is required")
		return
	case s.posts == nil:
		s.dispatch(PostError{Message: "posts are unavailable"})
		return
	}

	draft := model.Post{
		Content:    content,
		UserID:     user.UID,
		AuthorName: user.DisplayName,
		ImageURL:   strings.TrimSpace(a.ImageURL),
	}
	const fallback = "could not create post"
	s.async(PostRequest{Op: ActionCreatePost}, func(ctx context.Context) Action {
		p, err := s.posts.Create(ctx, draft)
		if err != nil {
			return PostError{Message: apperror.UserMessage(err, fallback)}
		}
		return CreatePostSuccess{Post: *p}
	}, PostError{Message: fallback})
}

func (s *Store) updatePost(a UpdatePost) {
	content := strings.TrimSpace(a.Content)
	user := s.currentUser()
	switch {
	case user == nil:
		s.invalid("you must be signed in to edit posts")
		return
	case a.ID == "":
		s.invalid("post id is required")
		return
	case content == "":
		s.invalid("post content is required")
		return
	case s.posts == nil:
		s.dispatch(PostError{Message: "posts are unavailable"})
		return
	}

	const fallback = "could not update post"
	s.async(PostRequest{Op: ActionUpdatePost}, func(ctx context.Context) Action {
		p, err := s.posts.Update(ctx, user.UID, a.ID, model.PostPatch{Content: &content})
		if err != nil {
			return PostError{Message: apperror.UserMessage(err, fallback)}
		}
		return UpdatePostSuccess{Post: *p}
	}, PostError{Message: fallback})
}

func (s *Store) deletePost(a DeletePost) {
	user := s.currentUser()
	switch {
	case user == nil:
		s.invalid("you must be signed in to delete posts")
		return
	case a.ID == "":
		s.invalid("post id is required")
		return
	case s.posts == nil:
		s.dispatch(PostError{Message: "posts are unavailable"})
		return
	}

	const fallback = "could not delete post"
	s.async(PostRequest{Op: ActionDeletePost}, func(ctx context.Context) Action {
		if err := s.posts.Delete(ctx, user.UID, a.ID); err != nil {
			return PostError{Message: apperror.UserMessage(err, fallback)}
		}
		return DeletePostSuccess{ID: a.ID}
	}, PostError{Message: fallback})
}

func (s *Store) fetchPosts() {
	if s.posts == nil {
		s.dispatch(PostError{Message: "posts are unavailable"})
		return
	}

	const fallback = "could not load posts"
	s.async(PostRequest{Op: ActionFetchPosts}, func(ctx context.Context) Action {
		posts, err := retry(ctx, s.retries, s.backoff, s.posts.List)
		if err != nil {
			return PostError{Message: apperror.UserMessage(err, fallback)}
		}
		if posts == nil {
			posts = []model.Post{}
		}
		return FetchPostsSuccess{Posts: posts}
	}, PostError{Message: fallback})
}

// Tasks.

// taskUser returns the signed-in user for a task operation, or reports why
// the operation cannot run.
func (s *Store) taskUser() (*model.User, bool) {
	user := s.currentUser()
	if user == nil {
		s.invalid("you must be signed in to manage tasks")
		return nil, false
	}
	if s.tasks == nil {
		s.dispatch(TaskError{Message: "tasks are unavailable"})
		return nil, false
	}
	return user, true
}

func (s *Store) createTask(a CreateTask) {
	title := strings.TrimSpace(a.Title)
	if title == "" {
		s.invalid("task title is required")
		return
	}
	user, ok := s.taskUser()
	if !ok {
		return
	}

	task := model.Task{
		Title:       title,
		Description: strings.TrimSpace(a.Description),
		Status:      model.TaskTodo,
		UserID:      user.UID,
	}
	const fallback = "could not create task"
	s.async(TaskRequest{Op: ActionCreateTask}, func(ctx context.Context) Action {
		t, err := s.tasks.Create(ctx, task)
		if err != nil {
			return TaskError{Message: apperror.UserMessage(err, fallback)}
		}
		return CreateTaskSuccess{Task: *t}
	}, TaskError{Message: fallback})
}

func (s *Store) updateTaskStatus(a UpdateTaskStatus) {
	switch {
	case a.ID == "":
		s.invalid("task id is required")
		return
	case !a.Status.Valid():
		s.invalid("unknown task status " + string(a.Status))
		return
	}
	user, ok := s.taskUser()
	if !ok {
		return
	}

	status := a.Status
	const fallback = "could not update task"
	s.async(TaskRequest{Op: ActionUpdateTaskStatus}, func(ctx context.Context) Action {
		t, err := s.tasks.Update(ctx, user.UID, a.ID, model.TaskPatch{Status: &status})
		if err != nil {
			return TaskError{Message: apperror.UserMessage(err, fallback)}
		}
		return UpdateTaskStatusSuccess{ID: t.ID, Status: t.Status}
	}, TaskError{Message: fallback})
}

func (s *Store) deleteTask(a DeleteTask) {
	if a.ID == "" {
		s.invalid("task id is required")
		return
	}
	user, ok := s.taskUser()
	if !ok {
		return
	}

	const fallback = "could not delete task"
	s.async(TaskRequest{Op: ActionDeleteTask}, func(ctx context.Context) Action {
		if err := s.tasks.Delete(ctx, user.UID, a.ID); err != nil {
			return TaskError{Message: apperror.UserMessage(err, fallback)}
		}
		return DeleteTaskSuccess{ID: a.ID}
	}, TaskError{Message: fallback})
}

func (s *Store) fetchTasks() {
	user, ok := s.taskUser()
	if !ok {
		return
	}

	uid := user.UID
	const fallback = "could not load tasks"
	s.async(TaskRequest{Op: ActionFetchTasks}, func(ctx context.Context) Action {
		tasks, err := retry(ctx, s.retries, s.backoff, func(ctx context.Context) ([]model.Task, error) {
			return s.tasks.List(ctx, uid)
		})
		if err != nil {
			return TaskError{Message: apperror.UserMessage(err, fallback)}
		}
		if tasks == nil {
			tasks = []model.Task{}
		}
		return FetchTasksSuccess{UserID: uid, Tasks: tasks}
	}, TaskError{Message: fallback})
}

// Admin console.

// adminUser returns the signed-in admin, or reports why an admin operation
// cannot run. The backend checks the role again.
func (s *Store) adminUser() (*model.User, bool) {
	user := s.currentUser()
	switch {
	case user == nil:
		s.invalid("you must be signed in to manage users")
		return nil, false
	case !user.IsAdmin():
		s.invalid("only admins can manage users")
		return nil, false
	case s.users == nil:
		s.dispatch(UserError{Message: "user management is unavailable"})
		return nil, false
	}
	return user, true
}

func (s *Store) fetchUsers() {
	admin, ok := s.adminUser()
	if !ok {
		return
	}

	const fallback = "could not load users"
	s.async(UserRequest{Op: ActionFetchUsers}, func(ctx context.Context) Action {
		users, err := retry(ctx, s.retries, s.backoff, func(ctx context.Context) ([]model.User, error) {
			return s.users.List(ctx, admin.UID)
		})
		if err != nil {
			return UserError{Message: apperror.UserMessage(err, fallback)}
		}
		if users == nil {
			users = []model.User{}
		}
		return FetchUsersSuccess{Users: users}
	}, UserError{Message: fallback})
}

func (s *Store) deleteUser(a DeleteUser) {
	if a.ID == "" {
		s.invalid("user id is required")
		return
	}
	admin, ok := s.adminUser()
	if !ok {
		return
	}
	if a.ID == admin.UID {
		s.invalid("you cannot delete your own account")
		return
	}

	const fallback = "could not delete user"
	s.async(UserRequest{Op: ActionDeleteUser}, func(ctx context.Context) Action {
		if err := s.users.Delete(ctx, admin.UID, a.ID); err != nil {
			return UserError{Message: apperror.UserMessage(err, fallback)}
		}
		return DeleteUserSuccess{ID: a.ID}
	}, UserError{Message: fallback})
}

func (s *Store) setUserRole(a SetUserRole) {
	switch {
	case a.ID == "":
		s.invalid("user id is required")
		return
	case !a.Role.Valid():
		s.invalid("unknown role " + string(a.Role))
		return
	}
	admin, ok := s.adminUser()
	if !ok {
		return
	}
	if a.ID == admin.UID {
		s.invalid("you cannot change your own role")
		return
	}

	role := a.Role
	const fallback = "could not change role"
	s.async(UserRequest{Op: ActionSetUserRole}, func(ctx context.Context) Action {
		u, err := s.users.SetRole(ctx, admin.UID, a.ID, role)
		if err != nil {
			return UserError{Message: apperror.UserMessage(err, fallback)}
		}
		return SetUserRoleSuccess{User: *u}
	}, UserError{Message: fallback})
}
