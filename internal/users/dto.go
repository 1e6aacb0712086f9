package users

import (
	"time"

	"github.com/google/uuid"

	"github.com/shota3227/ludi/internal/identity"
	"github.com/shota3227/ludi/pkg/db/models"
	"github.com/shota3227/ludi/pkg/enums"
)

// UserDTO is the transport shape of a staff profile.
type UserDTO struct {
	ID              uuid.UUID      `json:"id"`
	Email           string         `json:"email"`
	Name            string         `json:"name"`
	Nickname        string         `json:"nickname"`
	Role            enums.UserRole `json:"role"`
	PrimaryStoreID  *uuid.UUID     `json:"primary_store_id,omitempty"`
	AvatarID        string         `json:"avatar_id"`
	Rank            int            `json:"rank"`
	ProfileText     *string        `json:"profile_text,omitempty"`
	Strengths       *string        `json:"strengths,omitempty"`
	Weaknesses      *string        `json:"weaknesses,omitempty"`
	Hobbies         *string        `json:"hobbies,omitempty"`
	PersonalityType *string        `json:"personality_type,omitempty"`
	IsActive        bool           `json:"is_active"`
	CreatedAt       time.Time      `json:"created_at"`
}

// CreateUserInput is the admin account creation request. An empty Password
// asks the service to generate a temporary one.
type CreateUserInput struct {
	Email          string
	Password       string
	Name           string
	Nickname       string
	Role           enums.UserRole
	PrimaryStoreID uuid.UUID
}

// CreateUserResult carries the new profile and, when generated, the
// temporary password to hand to the employee.
type CreateUserResult struct {
	User              UserDTO `json:"user"`
	TemporaryPassword string  `json:"temporary_password,omitempty"`
}

// RegisterInput is a self-service staff sign-up.
type RegisterInput struct {
	Email          string
	Password       string
	Name           string
	Nickname       string
	PrimaryStoreID uuid.UUID
}

// RegisterResult carries the new profile and the provider session.
type RegisterResult struct {
	User    UserDTO
	Session identity.Session
}

// UpdateProfileInput lists the fields a user may edit on their own profile.
type UpdateProfileInput struct {
	Nickname        *string
	AvatarID        *string
	ProfileText     *string
	Strengths       *string
	Weaknesses      *string
	Hobbies         *string
	PersonalityType *string
}

// ListParams filters the admin user listing.
type ListParams struct {
	Limit           int
	Cursor          string
	StoreID         *uuid.UUID
	Role            *enums.UserRole
	IncludeInactive bool
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}
	return &UserDTO{
		ID:              u.ID,
		Email:           u.Email,
		Name:            u.Name,
		Nickname:        u.Nickname,
		Role:            u.Role,
		PrimaryStoreID:  u.PrimaryStoreID,
		AvatarID:        u.AvatarID,
		Rank:            u.Rank,
		ProfileText:     u.ProfileText,
		Strengths:       u.Strengths,
		Weaknesses:      u.Weaknesses,
		Hobbies:         u.Hobbies,
		PersonalityType: u.PersonalityType,
		IsActive:        u.IsActive,
		CreatedAt:       u.CreatedAt,
	}
}
