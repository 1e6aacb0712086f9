package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/shota3227/ludi/pkg/enums"
)

// DefaultAvatarID is assigned to every newly provisioned user.
const DefaultAvatarID = "default_01"

// User is the application-side staff profile. AuthID links it to the
// identity provider; a nil or dangling AuthID marks a ghost row.
type User struct {
	ID              uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	AuthID          *string        `gorm:"column:auth_id;uniqueIndex"`
	Email           string         `gorm:"column:email;type:text;not null;uniqueIndex"`
	Name            string         `gorm:"column:name;not null"`
	Nickname        string         `gorm:"column:nickname;not null"`
	Role            enums.UserRole `gorm:"column:role;type:user_role;not null;default:'staff'"`
	PrimaryStoreID  *uuid.UUID     `gorm:"column:primary_store_id;type:uuid"`
	AvatarID        string         `gorm:"column:avatar_id;not null;default:'default_01'"`
	Rank            int            `gorm:"column:rank;not null;default:1"`
	ProfileText     *string        `gorm:"column:profile_text"`
	Strengths       *string        `gorm:"column:strengths"`
	Weaknesses      *string        `gorm:"column:weaknesses"`
	Hobbies         *string        `gorm:"column:hobbies"`
	PersonalityType *string        `gorm:"column:personality_type"`
	IsActive        bool           `gorm:"column:is_active;not null;default:true"`
	CreatedAt       time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
