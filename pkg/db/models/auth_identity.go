package models

import "time"

// AuthIdentity backs the local identity provider. Its ID is the opaque auth
// identifier stored on users.auth_id.
type AuthIdentity struct {
	ID           string    `gorm:"column:id;primaryKey"`
	Email        string    `gorm:"column:email;not null;uniqueIndex"`
	PasswordHash string    `gorm:"column:password_hash;not null"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
}
