package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/socialboard/internal/apperror"
	"github.com/sakif/socialboard/internal/flux"
	"github.com/sakif/socialboard/internal/model"
	"github.com/sakif/socialboard/internal/repository"
)

var _ flux.UserBackend = (*UserService)(nil)

// UserService is the admin console's backend: listing accounts, deleting
// them and changing their roles.
//
// Every method takes the uid of the signed-in user and refuses to run unless
// that account is an admin. The role is read from the users table on every
// call, not from the caller's copy, so a demoted admin loses access at once.
//
// Admins cannot delete or demote themselves. That keeps at least one admin
// around and mirrors what the admin page has always refused to do.
type UserService struct {
	users  repository.UserRepository
	logger *slog.Logger
}

func NewUserService(users repository.UserRepository, logger *slog.Logger) *UserService {
	return &UserService{users: users, logger: orDiscard(logger)}
}

// List returns every account in sign-up order.
func (s *UserService) List(ctx context.Context, actorID string) ([]model.User, error) {
	if _, err := s.requireAdmin(ctx, actorID); err != nil {
		return nil, err
	}

	accounts, err := s.users.List(ctx, repository.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("service/user: listing users: %w", err)
	}
	users := make([]model.User, 0, len(accounts))
	for i := range accounts {
		users = append(users, *accounts[i].Profile())
	}
	return users, nil
}

// Delete removes the account with the given id together with its posts and
// tasks.
func (s *UserService) Delete(ctx context.Context, actorID, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return apperror.ValidationFailed("id", "user id is required")
	}
	if _, err := s.requireAdmin(ctx, actorID); err != nil {
		return err
	}
	if id == actorID {
		return apperror.Forbidden("you cannot delete your own account")
	}

	if err := s.users.Delete(ctx, id); err != nil {
		return fmt.Errorf("service/user: deleting user %s: %w", id, err)
	}
	s.logger.Info("user deleted", slog.String("id", id), slog.String("actorID", actorID))
	return nil
}

// SetRole changes the role of the account with the given id and returns its
// updated profile.
func (s *UserService) SetRole(ctx context.Context, actorID, id string, role model.Role) (*model.User, error) {
	id = strings.TrimSpace(id)
	switch {
	case id == "":
		return nil, apperror.ValidationFailed("id", "user id is required")
	case !role.Valid():
		return nil, apperror.ValidationFailed("role", fmt.Sprintf("unknown role %s", role))
	}
	if _, err := s.requireAdmin(ctx, actorID); err != nil {
		return nil, err
	}
	if id == actorID {
		return nil, apperror.Forbidden("you cannot change your own role")
	}

	account, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if account.Role == role {
		return account.Profile(), nil
	}
	account.Role = role
	if err := s.users.Update(ctx, account); err != nil {
		return nil, fmt.Errorf("service/user: updating role of %s: %w", id, err)
	}

	s.logger.Info("role changed",
		slog.String("id", id),
		slog.String("role", string(role)),
		slog.String("actorID", actorID),
	)
	return account.Profile(), nil
}

func (s *UserService) requireAdmin(ctx context.Context, actorID string) (*model.Account, error) {
	actor, err := loadActor(ctx, s.users, actorID)
	if err != nil {
		return nil, err
	}
	if actor.Role != model.RoleAdmin {
		s.logger.Warn("admin action denied", slog.String("actorID", actorID))
		return nil, apperror.Forbidden("only admins can manage users")
	}
	return actor, nil
}
