package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/socialboard/internal/apperror"
	"github.com/sakif/socialboard/internal/model"
	"github.com/sakif/socialboard/internal/repository"
)

var _ repository.UserRepository = (*UserDB)(nil)

// UserDB stores accounts in the users table.
type UserDB struct {
	conn *sql.DB
}

const userColumns = `id, email, display_name, photo_url, role, password_hash, github_id, created_at, updated_at`

// Create inserts a new account, assigning its ID and timestamps. The role
// defaults to model.RoleUser.
func (u *UserDB) Create(ctx context.Context, a *model.Account) error {
	now := time.Now().UTC()
	a.UID = xid.New().String()
	a.CreatedAt = now
	a.UpdatedAt = now
	if a.Role == "" {
		a.Role = model.RoleUser
	}

	_, err := u.conn.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.UID,
		a.Email,
		a.DisplayName,
		a.PhotoURL,
		string(a.Role),
		a.PasswordHash,
		nullGitHubID(a.GitHubID),
		a.CreatedAt,
		a.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return conflictFor(a)
		}
		return fmt.Errorf("sqlite: inserting user: %w", err)
	}
	return nil
}

func (u *UserDB) GetByID(ctx context.Context, id string) (*model.Account, error) {
	a, err := u.getOne(ctx, `WHERE id = ?`, id)
	if err == sql.ErrNoRows {
		return nil, apperror.NotFound("user", id)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: getting user %s: %w", id, err)
	}
	return a, nil
}

// GetByEmail matches the address case-insensitively.
func (u *UserDB) GetByEmail(ctx context.Context, email string) (*model.Account, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, apperror.NotFound("user", "(empty email)")
	}
	a, err := u.getOne(ctx, `WHERE email = ? COLLATE NOCASE`, email)
	if err == sql.ErrNoRows {
		return nil, apperror.NotFound("user", email)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: getting user by email: %w", err)
	}
	return a, nil
}

func (u *UserDB) GetByGitHubID(ctx context.Context, githubID int64) (*model.Account, error) {
	a, err := u.getOne(ctx, `WHERE github_id = ?`, githubID)
	if err == sql.ErrNoRows {
		return nil, apperror.NotFound("user", fmt.Sprintf("github:%d", githubID))
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: getting user by github_id %d: %w", githubID, err)
	}
	return a, nil
}

// List returns accounts in sign-up order. A zero Limit means no limit.
func (u *UserDB) List(ctx context.Context, opts repository.ListOptions) ([]model.Account, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = -1
	}
	rows, err := u.conn.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY created_at, id LIMIT ? OFFSET ?`,
		limit, max(opts.Offset, 0),
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing users: %w", err)
	}
	defer rows.Close()

	accounts := []model.Account{}
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning user: %w", err)
		}
		accounts = append(accounts, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating users: %w", err)
	}
	return accounts, nil
}

// Update overwrites the mutable profile and credential columns.
func (u *UserDB) Update(ctx context.Context, a *model.Account) error {
	a.UpdatedAt = time.Now().UTC()

	result, err := u.conn.ExecContext(ctx,
		`UPDATE users
		 SET email = ?, display_name = ?, photo_url = ?, role = ?, password_hash = ?, github_id = ?, updated_at = ?
		 WHERE id = ?`,
		a.Email,
		a.DisplayName,
		a.PhotoURL,
		string(a.Role),
		a.PasswordHash,
		nullGitHubID(a.GitHubID),
		a.UpdatedAt,
		a.UID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return conflictFor(a)
		}
		return fmt.Errorf("sqlite: updating user %s: %w", a.UID, err)
	}
	return checkAffected(result, func() error { return apperror.NotFound("user", a.UID) })
}

// Delete removes the account. Its posts and tasks go with it through the
// ON DELETE CASCADE foreign keys.
func (u *UserDB) Delete(ctx context.Context, id string) error {
	result, err := u.conn.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting user %s: %w", id, err)
	}
	return checkAffected(result, func() error { return apperror.NotFound("user", id) })
}

func (u *UserDB) getOne(ctx context.Context, where string, args ...any) (*model.Account, error) {
	return scanAccount(u.conn.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users `+where, args...))
}

func scanAccount(s scanner) (*model.Account, error) {
	var (
		a        model.Account
		role     string
		githubID sql.NullInt64
	)
	err := s.Scan(
		&a.UID,
		&a.Email,
		&a.DisplayName,
		&a.PhotoURL,
		&role,
		&a.PasswordHash,
		&githubID,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	a.Role = model.Role(role)
	a.GitHubID = githubID.Int64
	return &a, nil
}

// nullGitHubID stores "not linked" as NULL so the UNIQUE constraint ignores it.
func nullGitHubID(id int64) sql.NullInt64 {
	return sql.NullInt64{Int64: id, Valid: id != 0}
}

func conflictFor(a *model.Account) error {
	if a.GitHubID != 0 && a.Email == "" {
		return apperror.Conflict("user", fmt.Sprintf("github:%d", a.GitHubID))
	}
	return apperror.Conflict("user", a.Email)
}
