package reconciliation

import (
	"time"

	"github.com/google/uuid"

	"github.com/shota3227/ludi/pkg/db/models"
	"github.com/shota3227/ludi/pkg/enums"
)

// GhostReason says why a user row no longer maps to a provider account.
type GhostReason string

const (
	GhostReasonNoAuthID        GhostReason = "no_auth_id"
	GhostReasonMissingProvider GhostReason = "missing_in_provider"
)

// Ghost is an application user without a live provider account.
type Ghost struct {
	ID             uuid.UUID      `json:"id"`
	Email          string         `json:"email"`
	Name           string         `json:"name"`
	Nickname       string         `json:"nickname"`
	Role           enums.UserRole `json:"role"`
	AuthID         *string        `json:"auth_id"`
	PrimaryStoreID *uuid.UUID     `json:"primary_store_id,omitempty"`
	IsActive       bool           `json:"is_active"`
	CreatedAt      time.Time      `json:"created_at"`
	Reason         GhostReason    `json:"reason"`
}

// UnlinkedAccount is a provider account with no application user.
type UnlinkedAccount struct {
	AuthID string `json:"auth_id"`
	Email  string `json:"email"`
}

// Report is the read-only result of a reconciliation check.
type Report struct {
	CheckedAt        time.Time         `json:"checked_at"`
	ProviderAccounts int               `json:"provider_accounts"`
	DatabaseUsers    int               `json:"database_users"`
	Ghosts           []Ghost           `json:"ghosts"`
	Unlinked         []UnlinkedAccount `json:"unlinked"`
}

// ExecuteInput lists the ghost ids an administrator confirmed for deletion.
type ExecuteInput struct {
	UserIDs []uuid.UUID `json:"user_ids"`
	Confirm bool        `json:"confirm"`
}

// ExecuteResult reports which requested ids were deleted and which were
// left alone because they stopped being ghosts.
type ExecuteResult struct {
	Deleted []uuid.UUID `json:"deleted"`
	Skipped []uuid.UUID `json:"skipped"`
}

func ghostFromModel(u models.User, reason GhostReason) Ghost {
	return Ghost{
		ID:             u.ID,
		Email:          u.Email,
		Name:           u.Name,
		Nickname:       u.Nickname,
		Role:           u.Role,
		AuthID:         u.AuthID,
		PrimaryStoreID: u.PrimaryStoreID,
		IsActive:       u.IsActive,
		CreatedAt:      u.CreatedAt,
		Reason:         reason,
	}
}
