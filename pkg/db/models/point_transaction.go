package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/shota3227/ludi/pkg/enums"
)

// PointTransaction is an immutable ledger entry.
type PointTransaction struct {
	ID                uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	FromUserID        uuid.UUID       `gorm:"column:from_user_id;type:uuid;not null"`
	ToUserID          uuid.UUID       `gorm:"column:to_user_id;type:uuid;not null"`
	PointType         enums.PointType `gorm:"column:point_type;type:point_type;not null"`
	Points            int             `gorm:"column:points;not null"`
	GoodJobCategoryID *uuid.UUID      `gorm:"column:goodjob_category_id;type:uuid"`
	GoodJobFreeText   *string         `gorm:"column:goodjob_free_text"`
	Message           *string         `gorm:"column:message"`
	CreatedAt         time.Time       `gorm:"column:created_at;autoCreateTime"`
}

// GoodJobCategory is an organization-defined reason for a goodjob.
type GoodJobCategory struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrganizationID uuid.UUID `gorm:"column:organization_id;type:uuid;not null"`
	Name           string    `gorm:"column:name;not null"`
	Description    *string   `gorm:"column:description"`
	Icon           string    `gorm:"column:icon;not null"`
	SortOrder      int       `gorm:"column:sort_order;not null;default:0"`
}

func (GoodJobCategory) TableName() string { return "goodjob_categories" }
