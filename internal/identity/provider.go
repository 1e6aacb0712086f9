// Package identity adapts the external authentication service that owns
// user credentials. The application database only stores the provider's
// opaque auth id on each user row.
package identity

import (
	"context"
	"errors"
	"strings"
)

var (
	// ErrInvalidCredentials is returned by SignIn for a wrong email/password.
	ErrInvalidCredentials = errors.New("identity: invalid credentials")
	// ErrEmailExists is returned when the provider already has the email.
	ErrEmailExists = errors.New("identity: email already registered")
	// ErrInvalidToken is returned by CurrentUser for unknown or expired tokens.
	ErrInvalidToken = errors.New("identity: invalid token")
	// ErrWeakPassword is returned when the provider refuses a password.
	ErrWeakPassword = errors.New("identity: password too weak")
)

// Account is a provider-side user record.
type Account struct {
	AuthID string `json:"auth_id"`
	Email  string `json:"email"`
}

// Session is the proof of a successful provider sign-in.
type Session struct {
	Account
	IDToken string `json:"id_token"`
}

// Provider is the surface the application needs from an identity service.
// ListUsers must return an error rather than a partial or empty listing when
// the provider cannot be read.
type Provider interface {
	SignIn(ctx context.Context, email, password string) (*Session, error)
	SignUp(ctx context.Context, email, password string) (*Session, error)
	CurrentUser(ctx context.Context, idToken string) (*Account, error)
	CreateUser(ctx context.Context, email, password string) (*Account, error)
	ListUsers(ctx context.Context) ([]Account, error)
}

// NormalizeEmail lowercases and trims an address before it reaches a provider.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
