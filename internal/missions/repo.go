package missions

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shota3227/ludi/internal/repo"
	"github.com/shota3227/ludi/pkg/db"
	"github.com/shota3227/ludi/pkg/db/models"
)

// Repository persists store missions.
type Repository struct {
	repo.Base
}

func NewRepository(conn *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(conn)}
}

// Lock loads a mission holding a write lock until tx ends.
func (r *Repository) Lock(tx *gorm.DB, id uuid.UUID) (*models.Mission, error) {
	var mission models.Mission
	if err := db.ForUpdate(tx).Where("id = ?", id).First(&mission).Error; err != nil {
		return nil, err
	}
	return &mission, nil
}

// SaveProgress writes value, status and updated_at for a locked mission.
func (r *Repository) SaveProgress(tx *gorm.DB, mission *models.Mission) error {
	return tx.Model(&models.Mission{}).
		Where("id = ?", mission.ID).
		Updates(map[string]any{
			"current_value": mission.CurrentValue,
			"status":        mission.Status,
			"updated_at":    mission.UpdatedAt,
		}).Error
}

func (r *Repository) Create(ctx context.Context, mission *models.Mission) error {
	return r.DB(ctx).Create(mission).Error
}

// ForDate lists a store's missions dated on the calendar day starting at day.
func (r *Repository) ForDate(ctx context.Context, storeID uuid.UUID, day time.Time) ([]models.Mission, error) {
	var rows []models.Mission
	err := r.DB(ctx).
		Where("store_id = ? AND target_date >= ? AND target_date < ?", storeID, day, day.AddDate(0, 0, 1)).
		Order("created_at ASC, id ASC").
		Find(&rows).Error
	return rows, err
}
