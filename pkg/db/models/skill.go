package models

import (
	"time"

	"github.com/google/uuid"
)

type Skill struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrganizationID uuid.UUID `gorm:"column:organization_id;type:uuid;not null"`
	Name           string    `gorm:"column:name;not null"`
	Category       string    `gorm:"column:category;not null"`
	Description    *string   `gorm:"column:description"`
	Level          int       `gorm:"column:level;not null;default:1"`
	Icon           string    `gorm:"column:icon;not null"`
	SortOrder      int       `gorm:"column:sort_order;not null;default:0"`
}

func (Skill) TableName() string { return "skill_masters" }

type SkillAcquisition struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID      uuid.UUID `gorm:"column:user_id;type:uuid;not null"`
	SkillID     uuid.UUID `gorm:"column:skill_id;type:uuid;not null"`
	CertifiedBy uuid.UUID `gorm:"column:certified_by;type:uuid;not null"`
	AcquiredAt  time.Time `gorm:"column:acquired_at;not null"`
}
