// Package service is the backend the flux store talks to.
//
//	Store → AuthService / PostService / TaskService / UserService → repository → SQLite
//
// Each service validates its input, enforces the business rules and returns
// *apperror.AppError values whose Message is safe to show to the user. None of
// them knows about HTTP or about the store's state; they only satisfy the
// flux backend interfaces.
//
// Operations that change existing content take an actorID, the uid of the
// signed-in user asking for the change. Owners may change their own posts and
// tasks. Admins may also moderate other people's posts and manage accounts.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/sakif/socialboard/internal/apperror"
	"github.com/sakif/socialboard/internal/model"
	"github.com/sakif/socialboard/internal/repository"
)

// Validation limits.
const (
	MinPasswordBytes     = 6
	MaxDisplayNameLength = 50
	MaxPostLength        = 5000
	MaxTaskTitleLength   = 200
	MaxTaskDescription   = 2000
	FeedLimit            = 100
)

// AnonymousAuthor is shown for posts whose author has no display name.
const AnonymousAuthor = "Anonymous"

func orDiscard(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return logger
}

// loadActor returns the account behind actorID. A blank or unknown actor is
// treated as signed out.
func loadActor(ctx context.Context, users repository.UserRepository, actorID string) (*model.Account, error) {
	if strings.TrimSpace(actorID) == "" {
		return nil, apperror.Unauthorized("you must be signed in")
	}
	actor, err := users.GetByID(ctx, actorID)
	if errors.Is(err, apperror.ErrNotFound) {
		return nil, apperror.Unauthorized("you must be signed in")
	}
	if err != nil {
		return nil, fmt.Errorf("service: loading account %s: %w", actorID, err)
	}
	return actor, nil
}
