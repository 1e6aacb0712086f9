package reconciliation

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shota3227/ludi/internal/repo"
	"github.com/shota3227/ludi/pkg/db/models"
)

// Repository reads and prunes application users for reconciliation.
type Repository struct {
	repo.Base
}

func NewRepository(conn *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(conn)}
}

// ListUsers returns every user row, active or not, ordered by email. A nil
// tx reads outside any transaction.
func (r *Repository) ListUsers(ctx context.Context, tx *gorm.DB) ([]models.User, error) {
	conn := tx
	if conn == nil {
		conn = r.DB(ctx)
	}
	var users []models.User
	err := conn.
		Select("id", "auth_id", "email", "name", "nickname", "role", "primary_store_id", "is_active", "created_at").
		Order("email ASC, id ASC").
		Find(&users).Error
	return users, err
}

// DeleteUsers removes the given rows; dependent rows go with them through
// ON DELETE CASCADE.
func (r *Repository) DeleteUsers(tx *gorm.DB, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := tx.Where("id IN ?", ids).Delete(&models.User{})
	return res.RowsAffected, res.Error
}
