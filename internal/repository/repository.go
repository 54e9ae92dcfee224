// Package repository declares the storage interfaces the services depend on.
// The sqlite subpackage implements all of them on one database file.
package repository

import (
	"context"

	"github.com/sakif/socialboard/internal/model"
)

type ListOptions struct {
	Limit  int
	Offset int
}

// UserRepository stores accounts. Create and Update report a duplicate email
// or GitHub id as an apperror.ErrConflict. List returns oldest first.
// Deleting an account also deletes its posts and tasks.
type UserRepository interface {
	Create(ctx context.Context, account *model.Account) error
	GetByID(ctx context.Context, id string) (*model.Account, error)
	GetByEmail(ctx context.Context, email string) (*model.Account, error)
	GetByGitHubID(ctx context.Context, githubID int64) (*model.Account, error)
	List(ctx context.Context, opts ListOptions) ([]model.Account, error)
	Update(ctx context.Context, account *model.Account) error
	Delete(ctx context.Context, id string) error
}

// PostRepository stores the public feed. List returns newest first.
type PostRepository interface {
	Create(ctx context.Context, post *model.Post) error
	GetByID(ctx context.Context, id string) (*model.Post, error)
	List(ctx context.Context, opts ListOptions) ([]model.Post, error)
	Update(ctx context.Context, post *model.Post) error
	Delete(ctx context.Context, id string) error
}

// TaskRepository stores task boards. ListByUser returns oldest first.
type TaskRepository interface {
	Create(ctx context.Context, task *model.Task) error
	GetByID(ctx context.Context, id string) (*model.Task, error)
	ListByUser(ctx context.Context, userID string) ([]model.Task, error)
	UpdateStatus(ctx context.Context, id string, status model.TaskStatus) error
	Delete(ctx context.Context, id string) error
}

// KVRepository is a small key/value table for opaque blobs: the client
// state snapshot and the auth session token. Load returns an
// apperror.ErrNotFound for unknown keys.
type KVRepository interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}
