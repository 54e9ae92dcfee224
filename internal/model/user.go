// Package model defines the users, posts and tasks shared by the store, the
// services and the repositories.
package model

import "time"

// Role controls what a signed-in user may see in the client.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// User is the public profile of a signed-in user. This is the shape that
// lives in the client state (AppState.CurrentUser) and travels in actions.
//
// DisplayName, Email and PhotoURL may be empty: accounts created through
// GitHub can have a hidden email, and password accounts have no photo.
type User struct {
	UID         string `json:"uid"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
	PhotoURL    string `json:"photoURL"`
	Role        Role   `json:"role"`
}

// IsAdmin reports whether u may manage other accounts. A nil user is never
// an admin.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// Account is the stored form of a user, including the credentials the
// backend needs to authenticate them. It never leaves the service layer and
// never appears in the persisted client state.
type Account struct {
	User
	PasswordHash string    `db:"password_hash"` // bcrypt hash; empty for OAuth-only accounts
	GitHubID     int64     `db:"github_id"`     // zero when not linked to GitHub
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// Profile returns a copy of the public part of the account.
func (a *Account) Profile() *User {
	u := a.User
	return &u
}
