package flux

import (
	"context"

	"github.com/sakif/socialboard/internal/model"
)

// The Store talks to the backend through these interfaces. Any of them may
// fail with an *apperror.AppError, whose Message is shown to the user.

// AuthBackend signs users in and out and reports session changes.
type AuthBackend interface {
	Login(ctx context.Context, email, password string) (*model.User, error)
	Register(ctx context.Context, email, password, displayName string) (*model.User, error)
	Logout(ctx context.Context) error
	// OnAuthStateChange calls fn with the current user (nil when signed out)
	// now and after every session change, until the returned cancel is called.
	OnAuthStateChange(fn func(*model.User)) (cancel func())
}

// ProviderAuth is implemented by auth backends that support third-party
// sign-in such as GitHub OAuth.
type ProviderAuth interface {
	LoginWithProvider(ctx context.Context, provider, code string) (*model.User, error)
}

// PostBackend stores the public feed. actorID is the uid of the signed-in
// user asking for a change; the backend decides whether they may make it.
type PostBackend interface {
	Create(ctx context.Context, draft model.Post) (*model.Post, error)
	List(ctx context.Context) ([]model.Post, error)
	Update(ctx context.Context, actorID, id string, patch model.PostPatch) (*model.Post, error)
	Delete(ctx context.Context, actorID, id string) error
}

// TaskBackend stores each user's task board.
type TaskBackend interface {
	Create(ctx context.Context, task model.Task) (*model.Task, error)
	List(ctx context.Context, userID string) ([]model.Task, error)
	Update(ctx context.Context, actorID, id string, patch model.TaskPatch) (*model.Task, error)
	Delete(ctx context.Context, actorID, id string) error
}

// UserBackend backs the admin console. Every call is made on behalf of
// actorID, who must be an admin.
type UserBackend interface {
	List(ctx context.Context, actorID string) ([]model.User, error)
	Delete(ctx context.Context, actorID, id string) error
	SetRole(ctx context.Context, actorID, id string, role model.Role) (*model.User, error)
}
