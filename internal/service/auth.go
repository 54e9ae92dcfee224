package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/sakif/socialboard/internal/apperror"
	"github.com/sakif/socialboard/internal/auth"
	"github.com/sakif/socialboard/internal/flux"
	"github.com/sakif/socialboard/internal/model"
	"github.com/sakif/socialboard/internal/repository"
)

// SessionKey is the kv slot holding the signed session token.
const SessionKey = "auth:session"

var (
	_ flux.AuthBackend  = (*AuthService)(nil)
	_ flux.ProviderAuth = (*AuthService)(nil)
)

// AuthService owns the single signed-in session of this process.
//
// Sign-in methods verify credentials against the users table, issue a
// session token and store it in the kv table so Restore can resume the
// session after a restart. Every session change is reported to the
// OnAuthStateChange listeners.
type AuthService struct {
	users     repository.UserRepository
	sessions  repository.KVRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	providers map[string]auth.Provider
	admins    map[string]bool // lowercased emails promoted on sign-in
	logger    *slog.Logger

	// emit serializes session changes with their notifications, so
	// listeners observe changes in the order they happened.
	emit sync.Mutex

	mu        sync.Mutex
	current   *model.User
	listeners map[int]func(*model.User)
	nextID    int
}

// NewAuthService wires the auth backend. sessions may be nil, in which case
// sign-ins do not survive a restart.
func NewAuthService(
	users repository.UserRepository,
	sessions repository.KVRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
	providers ...auth.Provider,
) *AuthService {
	byName := make(map[string]auth.Provider, len(providers))
	for _, p := range providers {
		byName[p.Name()] = p
	}
	return &AuthService{
		users:     users,
		sessions:  sessions,
		tokens:    tokens,
		passwords: passwords,
		providers: byName,
		logger:    orDiscard(logger),
		listeners: make(map[int]func(*model.User)),
	}
}

// WithAdminEmails makes the accounts with these emails admins the next time
// they sign in. It must be called before the service is used.
func (s *AuthService) WithAdminEmails(emails ...string) *AuthService {
	s.admins = make(map[string]bool, len(emails))
	for _, e := range emails {
		if e = strings.ToLower(strings.TrimSpace(e)); e != "" {
			s.admins[e] = true
		}
	}
	return s
}

// Provider returns the registered OAuth provider with the given name.
func (s *AuthService) Provider(name string) (auth.Provider, bool) {
	p, ok := s.providers[strings.ToLower(name)]
	return p, ok
}

// CurrentUser returns a copy of the signed-in user, or nil.
func (s *AuthService) CurrentUser() *model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneUser(s.current)
}

// Login signs in with email and password. Unknown emails, wrong passwords
// and GitHub-only accounts all produce the same Unauthorized error.
func (s *AuthService) Login(ctx context.Context, email, password string) (*model.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, apperror.ValidationFailed("email", "email and password are required")
	}

	account, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, apperror.ErrNotFound) {
		return nil, apperror.Unauthorized("invalid email or password")
	}
	if err != nil {
		return nil, fmt.Errorf("service/auth: looking up %s: %w", email, err)
	}
	if account.PasswordHash == "" {
		return nil, apperror.Unauthorized("invalid email or password")
	}

	if err := s.passwords.Verify(account.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			s.logger.Info("failed sign-in", slog.String("userID", account.UID))
			return nil, apperror.Unauthorized("invalid email or password")
		}
		return nil, fmt.Errorf("service/auth: verifying password for %s: %w", account.UID, err)
	}

	return s.startSession(ctx, account)
}

// Register creates a password account and signs it in.
func (s *AuthService) Register(ctx context.Context, email, password, displayName string) (*model.User, error) {
	email = strings.TrimSpace(email)
	displayName = strings.TrimSpace(displayName)

	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return nil, apperror.ValidationFailed("email", "enter a valid email address")
	}
	if len(password) < MinPasswordBytes {
		return nil, apperror.ValidationFailed("password",
			fmt.Sprintf("password must be at least %d characters", MinPasswordBytes))
	}
	if len(password) > auth.MaxPasswordBytes {
		return nil, apperror.ValidationFailed("password",
			fmt.Sprintf("password must be %d bytes or fewer", auth.MaxPasswordBytes))
	}
	if displayName == "" {
		return nil, apperror.ValidationFailed("displayName", "display name is required")
	}
	if utf8.RuneCountInString(displayName) > MaxDisplayNameLength {
		return nil, apperror.ValidationFailed("displayName",
			fmt.Sprintf("display name must be %d characters or less", MaxDisplayNameLength))
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("service/auth: hashing password: %w", err)
	}

	account := &model.Account{
		User: model.User{
			DisplayName: displayName,
			Email:       email,
			Role:        model.RoleUser,
		},
		PasswordHash: hash,
	}
	if err := s.users.Create(ctx, account); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, apperror.Conflict("account", email)
		}
		return nil, fmt.Errorf("service/auth: creating account: %w", err)
	}

	s.logger.Info("account registered", slog.String("userID", account.UID))
	return s.startSession(ctx, account)
}

// LoginWithProvider completes an OAuth sign-in. The account is matched by
// provider id; on first sign-in it is created from the provider profile, and
// on later sign-ins the profile fields are refreshed.
func (s *AuthService) LoginWithProvider(ctx context.Context, provider, code string) (*model.User, error) {
	p, ok := s.Provider(provider)
	if !ok {
		return nil, apperror.ValidationFailed("provider",
			fmt.Sprintf("sign-in with %s is not supported", provider))
	}

	profile, err := p.Exchange(ctx, code)
	if err != nil {
		s.logger.Warn("OAuth exchange failed",
			slog.String("provider", p.Name()),
			slog.String("error", err.Error()),
		)
		return nil, apperror.Unauthorized(p.Name() + " sign-in failed")
	}

	account, err := s.upsertProviderAccount(ctx, profile)
	if err != nil {
		return nil, err
	}
	return s.startSession(ctx, account)
}

func (s *AuthService) upsertProviderAccount(ctx context.Context, profile *auth.Profile) (*model.Account, error) {
	account, err := s.users.GetByGitHubID(ctx, profile.ID)
	switch {
	case errors.Is(err, apperror.ErrNotFound):
		account = &model.Account{
			User: model.User{
				DisplayName: profile.DisplayName(),
				Email:       profile.Email,
				PhotoURL:    profile.AvatarURL,
				Role:        model.RoleUser,
			},
			GitHubID: profile.ID,
		}
		if err := s.users.Create(ctx, account); err != nil {
			if errors.Is(err, apperror.ErrConflict) {
				return nil, apperror.Conflict("account", profile.Email)
			}
			return nil, fmt.Errorf("service/auth: creating %s account: %w", profile.Provider, err)
		}
		s.logger.Info("account registered",
			slog.String("userID", account.UID),
			slog.String("provider", profile.Provider),
		)
		return account, nil

	case err != nil:
		return nil, fmt.Errorf("service/auth: looking up %s id %d: %w", profile.Provider, profile.ID, err)
	}

	account.DisplayName = profile.DisplayName()
	account.PhotoURL = profile.AvatarURL
	if profile.Email != "" {
		account.Email = profile.Email
	}
	if err := s.users.Update(ctx, account); err != nil {
		return nil, fmt.Errorf("service/auth: refreshing account %s: %w", account.UID, err)
	}
	return account, nil
}

// Logout ends the session. Signing out while signed out is a no-op.
func (s *AuthService) Logout(ctx context.Context) error {
	if s.sessions != nil {
		if err := s.sessions.Delete(ctx, SessionKey); err != nil {
			return fmt.Errorf("service/auth: clearing session: %w", err)
		}
	}
	s.setCurrent(nil)
	return nil
}

// Restore resumes the session stored by a previous process. A missing,
// expired or invalid token leaves the service signed out and is not an error.
func (s *AuthService) Restore(ctx context.Context) (*model.User, error) {
	if s.sessions == nil {
		return nil, nil
	}

	raw, err := s.sessions.Load(ctx, SessionKey)
	if errors.Is(err, apperror.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("service/auth: loading session: %w", err)
	}

	uid, err := s.tokens.Validate(string(raw))
	if err != nil {
		s.logger.Info("discarding stored session", slog.String("reason", err.Error()))
		s.discardSession(ctx)
		return nil, nil
	}

	account, err := s.users.GetByID(ctx, uid)
	if errors.Is(err, apperror.ErrNotFound) {
		s.logger.Info("discarding session of deleted account", slog.String("userID", uid))
		s.discardSession(ctx)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("service/auth: loading account %s: %w", uid, err)
	}

	u := account.Profile()
	s.setCurrent(u)
	s.logger.Info("session restored", slog.String("userID", u.UID))
	return cloneUser(u), nil
}

// OnAuthStateChange calls fn with the current user right away and again
// after every sign-in or sign-out, until cancel is called.
func (s *AuthService) OnAuthStateChange(fn func(*model.User)) (cancel func()) {
	s.emit.Lock()
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.listeners[id] = fn
	current := cloneUser(s.current)
	s.mu.Unlock()
	fn(current)
	s.emit.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

func (s *AuthService) startSession(ctx context.Context, account *model.Account) (*model.User, error) {
	if err := s.promote(ctx, account); err != nil {
		return nil, err
	}
	u := account.Profile()

	if s.sessions != nil {
		token, err := s.tokens.Issue(u.UID)
		if err != nil {
			return nil, fmt.Errorf("service/auth: issuing session for %s: %w", u.UID, err)
		}
		// The sign-in itself succeeded; only resuming after a restart is lost.
		if err := s.sessions.Save(ctx, SessionKey, []byte(token)); err != nil {
			s.logger.Warn("could not store session",
				slog.String("userID", u.UID),
				slog.String("error", err.Error()),
			)
		}
	}

	s.setCurrent(u)
	s.logger.Info("signed in", slog.String("userID", u.UID))
	return cloneUser(u), nil
}

// promote grants the admin role to accounts listed in WithAdminEmails.
func (s *AuthService) promote(ctx context.Context, account *model.Account) error {
	if account.Role == model.RoleAdmin || !s.admins[strings.ToLower(account.Email)] {
		return nil
	}
	account.Role = model.RoleAdmin
	if err := s.users.Update(ctx, account); err != nil {
		return fmt.Errorf("service/auth: promoting %s: %w", account.UID, err)
	}
	s.logger.Info("account promoted to admin", slog.String("userID", account.UID))
	return nil
}

func (s *AuthService) discardSession(ctx context.Context) {
	if err := s.sessions.Delete(ctx, SessionKey); err != nil {
		s.logger.Warn("could not discard session", slog.String("error", err.Error()))
	}
}

func (s *AuthService) setCurrent(u *model.User) {
	s.emit.Lock()
	defer s.emit.Unlock()

	s.mu.Lock()
	s.current = cloneUser(u)
	fns := make([]func(*model.User), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(cloneUser(u))
	}
}

func cloneUser(u *model.User) *model.User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}
