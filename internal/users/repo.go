package users

import (
	"context"

	"github.com/google/uuid"

	"github.com/shota3227/ludi/internal/repo"
	"github.com/shota3227/ludi/pkg/db/models"
	"github.com/shota3227/ludi/pkg/enums"
	"github.com/shota3227/ludi/pkg/pagination"
	"gorm.io/gorm"
)

// Repository exposes user-related persistence operations.
type Repository struct {
	repo.Base
}

// NewRepository constructs a users repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

type listUsersParams struct {
	Limit           int
	Cursor          *pagination.Cursor
	StoreID         *uuid.UUID
	Role            *enums.UserRole
	IncludeInactive bool
}

// Create inserts a new user.
func (r *Repository) Create(ctx context.Context, user *models.User) error {
	return r.DB(ctx).Create(user).Error
}

// FindByEmail retrieves the user matching the provided email.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.DB(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByID loads a user by their UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.DB(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByAuthID loads the user linked to an identity provider account.
func (r *Repository) FindByAuthID(ctx context.Context, authID string) (*models.User, error) {
	var user models.User
	if err := r.DB(ctx).Where("auth_id = ?", authID).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// ListByStore returns the active members of a store, highest rank first.
func (r *Repository) ListByStore(ctx context.Context, storeID uuid.UUID) ([]models.User, error) {
	var rows []models.User
	err := r.DB(ctx).
		Where("primary_store_id = ? AND is_active = ?", storeID, true).
		Order("rank DESC, nickname ASC").
		Find(&rows).Error
	return rows, err
}

// List pages through users newest first.
func (r *Repository) List(ctx context.Context, params listUsersParams) ([]models.User, error) {
	query := r.DB(ctx).Model(&models.User{})
	if !params.IncludeInactive {
		query = query.Where("is_active = ?", true)
	}
	if params.StoreID != nil {
		query = query.Where("primary_store_id = ?", *params.StoreID)
	}
	if params.Role != nil {
		query = query.Where("role = ?", *params.Role)
	}

	var rows []models.User
	err := query.Scopes(pagination.Keyset(params.Cursor, params.Limit)).Find(&rows).Error
	return rows, err
}

// Update applies column updates and reports whether the row exists.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) (bool, error) {
	result := r.DB(ctx).Model(&models.User{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
