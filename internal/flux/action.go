package flux

import "github.com/sakif/socialboard/internal/model"

// ActionType is the tag of an Action. The set is closed: every value has a
// matching struct below and a case in Store.HandleAction.
type ActionType string

// Navigation.
const (
	ActionNavigate        ActionType = "NAVIGATE"
	ActionNavigateBack    ActionType = "NAVIGATE_BACK"
	ActionNavigateForward ActionType = "NAVIGATE_FORWARD"
)

// Authentication.
const (
	ActionLogin             ActionType = "LOGIN"
	ActionLoginWithProvider ActionType = "LOGIN_WITH_PROVIDER"
	ActionLoginStart        ActionType = "LOGIN_START"
	ActionLoginSuccess      ActionType = "LOGIN_SUCCESS"
	ActionLoginError        ActionType = "LOGIN_ERROR"
	ActionRegister          ActionType = "REGISTER"
	ActionRegisterStart     ActionType = "REGISTER_START"
	ActionRegisterSuccess   ActionType = "REGISTER_SUCCESS"
	ActionRegisterError     ActionType = "REGISTER_ERROR"
	ActionLogout            ActionType = "LOGOUT"
	ActionAuthStateChanged  ActionType = "AUTH_STATE_CHANGED"
	ActionAuthError         ActionType = "AUTH_ERROR"
)

// Posts.
const (
	ActionCreatePost        ActionType = "CREATE_POST"
	ActionUpdatePost        ActionType = "UPDATE_POST"
	ActionDeletePost        ActionType = "DELETE_POST"
	ActionFetchPosts        ActionType = "FETCH_POSTS"
	ActionPostRequest       ActionType = "POST_REQUEST"
	ActionCreatePostSuccess ActionType = "CREATE_POST_SUCCESS"
	ActionUpdatePostSuccess ActionType = "UPDATE_POST_SUCCESS"
	ActionDeletePostSuccess ActionType = "DELETE_POST_SUCCESS"
	ActionFetchPostsSuccess ActionType = "FETCH_POSTS_SUCCESS"
	ActionSetPosts          ActionType = "SET_POSTS"
	ActionPostError         ActionType = "POST_ERROR"
)

// Tasks.
const (
	ActionCreateTask              ActionType = "CREATE_TASK"
	ActionUpdateTaskStatus        ActionType = "UPDATE_TASK_STATUS"
	ActionDeleteTask              ActionType = "DELETE_TASK"
	ActionFetchTasks              ActionType = "FETCH_TASKS"
	ActionTaskRequest             ActionType = "TASK_REQUEST"
	ActionCreateTaskSuccess       ActionType = "CREATE_TASK_SUCCESS"
	ActionUpdateTaskStatusSuccess ActionType = "UPDATE_TASK_STATUS_SUCCESS"
	ActionDeleteTaskSuccess       ActionType = "DELETE_TASK_SUCCESS"
	ActionFetchTasksSuccess       ActionType = "FETCH_TASKS_SUCCESS"
	ActionTaskError               ActionType = "TASK_ERROR"
)

// Admin.
const (
	ActionFetchUsers         ActionType = "FETCH_USERS"
	ActionDeleteUser         ActionType = "DELETE_USER"
	ActionSetUserRole        ActionType = "SET_USER_ROLE"
	ActionUserRequest        ActionType = "USER_REQUEST"
	ActionFetchUsersSuccess  ActionType = "FETCH_USERS_SUCCESS"
	ActionDeleteUserSuccess  ActionType = "DELETE_USER_SUCCESS"
	ActionSetUserRoleSuccess ActionType = "SET_USER_ROLE_SUCCESS"
	ActionUserError          ActionType = "USER_ERROR"
)

// Status.
const (
	ActionValidationError ActionType = "VALIDATION_ERROR"
	ActionClearError      ActionType = "CLEAR_ERROR"
)

// Action is an immutable description of an intent. Each action kind is its
// own struct carrying exactly the fields that kind needs; handlers recover the
// concrete type with a type switch.
//
// The interface is sealed: only types in this package can satisfy it.
type Action interface {
	Type() ActionType
	sealed()
}

type action struct{}

func (action) sealed() {}

// Navigate moves the client to Path.
type Navigate struct {
	action
	Path string
}

type NavigateBack struct{ action }

type NavigateForward struct{ action }

// Login signs in with email and password through the auth backend.
type Login struct {
	action
	Email    string
	Password string
}

// LoginWithProvider completes a third-party sign-in (e.g. "github") using
// the authorization code returned by the provider.
type LoginWithProvider struct {
	action
	Provider string
	Code     string
}

type LoginStart struct{ action }

type LoginSuccess struct {
	action
	User *model.User
}

type LoginError struct {
	action
	Message string
}

// Register creates an account and signs in with it.
type Register struct {
	action
	Email       string
	Password    string
	DisplayName string
}

type RegisterStart struct{ action }

type RegisterSuccess struct {
	action
	User *model.User
}

type RegisterError struct {
	action
	Message string
}

type Logout struct{ action }

// AuthStateChanged mirrors the backend session into the client. User is nil
// when the session ended.
type AuthStateChanged struct {
	action
	User *model.User
}

type AuthError struct {
	action
	Message string
}

// CreatePost publishes a new post as the current user.
type CreatePost struct {
	action
	Content  string
	ImageURL string
}

type UpdatePost struct {
	action
	ID      string
	Content string
}

type DeletePost struct {
	action
	ID string
}

type FetchPosts struct{ action }

// PostRequest marks the start of a post backend call. Op names the
// operation that issued it.
type PostRequest struct {
	action
	Op ActionType
}

type CreatePostSuccess struct {
	action
	Post model.Post
}

type UpdatePostSuccess struct {
	action
	Post model.Post
}

type DeletePostSuccess struct {
	action
	ID string
}

type FetchPostsSuccess struct {
	action
	Posts []model.Post
}

// SetPosts replaces the feed with Posts without touching the loading flag.
type SetPosts struct {
	action
	Posts []model.Post
}

type PostError struct {
	action
	Message string
}

// CreateTask adds a card to the current user's board in the todo column.
type CreateTask struct {
	action
	Title       string
	Description string
}

type UpdateTaskStatus struct {
	action
	ID     string
	Status model.TaskStatus
}

type DeleteTask struct {
	action
	ID string
}

type FetchTasks struct{ action }

// TaskRequest marks the start of a task backend call.
type TaskRequest struct {
	action
	Op ActionType
}

type CreateTaskSuccess struct {
	action
	Task model.Task
}

type UpdateTaskStatusSuccess struct {
	action
	ID     string
	Status model.TaskStatus
}

type DeleteTaskSuccess struct {
	action
	ID string
}

// FetchTasksSuccess carries the board of UserID. It is ignored (apart from
// settling the loading flag) if a different user has signed in since.
type FetchTasksSuccess struct {
	action
	UserID string
	Tasks  []model.Task
}

type TaskError struct {
	action
	Message string
}

// FetchUsers loads every account into the admin console. Only admins may
// dispatch it successfully.
type FetchUsers struct{ action }

type DeleteUser struct {
	action
	ID string
}

// SetUserRole promotes or demotes another account.
type SetUserRole struct {
	action
	ID   string
	Role model.Role
}

// UserRequest marks the start of an admin backend call.
type UserRequest struct {
	action
	Op ActionType
}

type FetchUsersSuccess struct {
	action
	Users []model.User
}

type DeleteUserSuccess struct {
	action
	ID string
}

type SetUserRoleSuccess struct {
	action
	User model.User
}

type UserError struct {
	action
	Message string
}

// ValidationError reports input rejected before any backend call. Unlike the
// *Error actions it does not clear the loading flag, since no call was made.
type ValidationError struct {
	action
	Message string
}

type ClearError struct{ action }

func (Navigate) Type() ActionType                { return ActionNavigate }
func (NavigateBack) Type() ActionType            { return ActionNavigateBack }
func (NavigateForward) Type() ActionType         { return ActionNavigateForward }
func (Login) Type() ActionType                   { return ActionLogin }
func (LoginWithProvider) Type() ActionType       { return ActionLoginWithProvider }
func (LoginStart) Type() ActionType              { return ActionLoginStart }
func (LoginSuccess) Type() ActionType            { return ActionLoginSuccess }
func (LoginError) Type() ActionType              { return ActionLoginError }
func (Register) Type() ActionType                { return ActionRegister }
func (RegisterStart) Type() ActionType           { return ActionRegisterStart }
func (RegisterSuccess) Type() ActionType         { return ActionRegisterSuccess }
func (RegisterError) Type() ActionType           { return ActionRegisterError }
func (Logout) Type() ActionType                  { return ActionLogout }
func (AuthStateChanged) Type() ActionType        { return ActionAuthStateChanged }
func (AuthError) Type() ActionType               { return ActionAuthError }
func (CreatePost) Type() ActionType              { return ActionCreatePost }
func (UpdatePost) Type() ActionType              { return ActionUpdatePost }
func (DeletePost) Type() ActionType              { return ActionDeletePost }
func (FetchPosts) Type() ActionType              { return ActionFetchPosts }
func (PostRequest) Type() ActionType             { return ActionPostRequest }
func (CreatePostSuccess) Type() ActionType       { return ActionCreatePostSuccess }
func (UpdatePostSuccess) Type() ActionType       { return ActionUpdatePostSuccess }
func (DeletePostSuccess) Type() ActionType       { return ActionDeletePostSuccess }
func (FetchPostsSuccess) Type() ActionType       { return ActionFetchPostsSuccess }
func (SetPosts) Type() ActionType                { return ActionSetPosts }
func (PostError) Type() ActionType               { return ActionPostError }
func (CreateTask) Type() ActionType              { return ActionCreateTask }
func (UpdateTaskStatus) Type() ActionType        { return ActionUpdateTaskStatus }
func (DeleteTask) Type() ActionType              { return ActionDeleteTask }
func (FetchTasks) Type() ActionType              { return ActionFetchTasks }
func (TaskRequest) Type() ActionType             { return ActionTaskRequest }
func (CreateTaskSuccess) Type() ActionType       { return ActionCreateTaskSuccess }
func (UpdateTaskStatusSuccess) Type() ActionType { return ActionUpdateTaskStatusSuccess }
func (DeleteTaskSuccess) Type() ActionType       { return ActionDeleteTaskSuccess }
func (FetchTasksSuccess) Type() ActionType       { return ActionFetchTasksSuccess }
func (TaskError) Type() ActionType               { return ActionTaskError }
func (FetchUsers) Type() ActionType              { return ActionFetchUsers }
func (DeleteUser) Type() ActionType              { return ActionDeleteUser }
func (SetUserRole) Type() ActionType             { return ActionSetUserRole }
func (UserRequest) Type() ActionType             { return ActionUserRequest }
func (FetchUsersSuccess) Type() ActionType       { return ActionFetchUsersSuccess }
func (DeleteUserSuccess) Type() ActionType       { return ActionDeleteUserSuccess }
func (SetUserRoleSuccess) Type() ActionType      { return ActionSetUserRoleSuccess }
func (UserError) Type() ActionType               { return ActionUserError }
func (ValidationError) Type() ActionType         { return ActionValidationError }
func (ClearError) Type() ActionType              { return ActionClearError }
