// Package auth holds the credential primitives behind the auth backend:
// bcrypt password hashes, signed session tokens and the GitHub OAuth
// provider.
//
// A session token is an HS256 JWT whose subject is the user id:
//
//	HEADER.PAYLOAD.SIGNATURE
//	{"alg":"HS256"}.{"sub":"<uid>","iss":"socialboard","exp":...}.HMAC
//
// The backend keeps the current token in its kv table so a restarted server
// can resume the session without asking for the password again.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "socialboard"

// DefaultSessionTTL is used when NewTokenService gets a non-positive ttl.
const DefaultSessionTTL = 7 * 24 * time.Hour

var (
	ErrTokenExpired = errors.New("auth: token expired")
	ErrTokenInvalid = errors.New("auth: invalid token")
)

// TokenService issues and validates session tokens.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenService creates a TokenService. The secret must be at least 16
// characters; in production use 32 random bytes (openssl rand -hex 32).
func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &TokenService{secret: []byte(secret), ttl: ttl}, nil
}

type claims struct {
	jwt.RegisteredClaims
}

// Issue signs a token for userID that expires after the configured TTL.
func (s *TokenService) Issue(userID string) (string, error) {
	return s.IssueWithTTL(userID, s.ttl)
}

// IssueWithTTL signs a token with an explicit lifetime. A negative ttl
// yields an already expired token, which the tests rely on.
func (s *TokenService) IssueWithTTL(userID string, ttl time.Duration) (string, error) {
	now := time.Now()
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    issuer,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}
	return signed, nil
}

// Validate verifies the signature, issuer and expiry of tokenStr and returns
// its subject. Failures wrap ErrTokenExpired or ErrTokenInvalid.
func (s *TokenService) Validate(tokenStr string) (string, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(*jwt.Token) (any, error) { return s.secret, nil },
		// Pinning the method rules out "alg: none" and RSA/HMAC confusion.
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired
		}
		return "", fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid || c.Subject == "" {
		return "", fmt.Errorf("%w: missing subject", ErrTokenInvalid)
	}
	return c.Subject, nil
}
