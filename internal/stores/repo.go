package stores

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shota3227/ludi/internal/repo"
	"github.com/shota3227/ludi/pkg/db/models"
)

// Repository reads stores. Other domains use FindByID to check a store
// inside their own transaction.
type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// FindByID returns gorm.ErrRecordNotFound when no store has id.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Store, error) {
	store := new(models.Store)
	if err := r.DB(ctx).First(store, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return store, nil
}

func (r *Repository) ListActive(ctx context.Context) ([]models.Store, error) {
	var rows []models.Store
	err := r.DB(ctx).Where(&models.Store{IsActive: true}).Order("name").Find(&rows).Error
	return rows, err
}
