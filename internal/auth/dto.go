package auth

import (
	"github.com/google/uuid"

	"github.com/shota3227/ludi/internal/users"
)

// LoginRequest captures the credentials sent to the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// ExchangeRequest carries a provider ID token obtained by the client.
type ExchangeRequest struct {
	IDToken string `json:"id_token" validate:"required"`
}

// SignUpRequest is a self-service staff registration.
type SignUpRequest struct {
	Email          string    `json:"email" validate:"required,email"`
	Password       string    `json:"password" validate:"required,min=8"`
	Name           string    `json:"name" validate:"required,max=100"`
	Nickname       string    `json:"nickname" validate:"omitempty,max=50"`
	PrimaryStoreID uuid.UUID `json:"primary_store_id" validate:"required"`
}

// RefreshRequest carries the refresh token; the expired access token travels
// in the Authorization header.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// TokenResponse is returned by every flow that opens a session.
type TokenResponse struct {
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token"`
	ExpiresIn    int            `json:"expires_in"`
	User         *users.UserDTO `json:"user"`
}
