package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/shota3227/ludi/pkg/enums"
)

// Notification stores in-app notification payloads scoped to a user.
type Notification struct {
	ID        uuid.UUID              `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    uuid.UUID              `gorm:"column:user_id;type:uuid;not null"`
	Type      enums.NotificationType `gorm:"column:type;type:text;not null"`
	Title     string                 `gorm:"column:title;type:text;not null"`
	Body      string                 `gorm:"column:body;type:text;not null"`
	Data      json.RawMessage        `gorm:"column:data;type:jsonb"`
	IsRead    bool                   `gorm:"column:is_read;not null;default:false"`
	ReadAt    *time.Time             `gorm:"column:read_at;type:timestamptz"`
	CreatedAt time.Time              `gorm:"column:created_at;type:timestamptz;default:now()"`
}
