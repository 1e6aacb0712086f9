package skills

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shota3227/ludi/internal/repo"
	"github.com/shota3227/ludi/pkg/db/models"
)

// Repository reads the skill catalog and records acquisitions.
type Repository struct {
	repo.Base
}

func NewRepository(conn *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(conn)}
}

type acquisitionRow struct {
	ID          uuid.UUID
	SkillID     uuid.UUID
	CertifiedBy uuid.UUID
	AcquiredAt  time.Time
	Name        string
	Category    string
	Description *string
	Level       int
	Icon        string
}

func (r *Repository) ListByOrganization(ctx context.Context, organizationID uuid.UUID) ([]models.Skill, error) {
	var rows []models.Skill
	err := r.DB(ctx).
		Where("organization_id = ?", organizationID).
		Order("category ASC, sort_order ASC, name ASC").
		Find(&rows).Error
	return rows, err
}

func (r *Repository) FindSkill(ctx context.Context, id uuid.UUID) (*models.Skill, error) {
	var skill models.Skill
	if err := r.DB(ctx).Where("id = ?", id).First(&skill).Error; err != nil {
		return nil, err
	}
	return &skill, nil
}

func (r *Repository) FindUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.DB(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// UserAcquisitions joins a user's acquisitions with skill details, newest first.
func (r *Repository) UserAcquisitions(ctx context.Context, userID uuid.UUID) ([]acquisitionRow, error) {
	var rows []acquisitionRow
	err := r.DB(ctx).
		Table("skill_acquisitions AS sa").
		Select("sa.id, sa.skill_id, sa.certified_by, sa.acquired_at, sm.name, sm.category, sm.description, sm.level, sm.icon").
		Joins("JOIN skill_masters sm ON sm.id = sa.skill_id").
		Where("sa.user_id = ?", userID).
		Order("sa.acquired_at DESC, sa.id DESC").
		Scan(&rows).Error
	return rows, err
}

func (r *Repository) InsertAcquisition(ctx context.Context, acq *models.SkillAcquisition) error {
	return r.DB(ctx).Create(acq).Error
}
