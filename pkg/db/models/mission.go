package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/shota3227/ludi/pkg/enums"
)

// Mission is a store-level daily goal.
type Mission struct {
	ID           uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	StoreID      uuid.UUID           `gorm:"column:store_id;type:uuid;not null"`
	Name         string              `gorm:"column:name;not null"`
	Description  *string             `gorm:"column:description"`
	Icon         string              `gorm:"column:icon;not null"`
	TargetValue  *int                `gorm:"column:target_value"`
	CurrentValue int                 `gorm:"column:current_value;not null;default:0"`
	TargetDate   time.Time           `gorm:"column:target_date;type:date;not null"`
	Points       int                 `gorm:"column:points;not null;default:0"`
	Status       enums.MissionStatus `gorm:"column:status;type:mission_status;not null;default:'active'"`
	CreatedBy    uuid.UUID           `gorm:"column:created_by;type:uuid;not null"`
	CreatedAt    time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
