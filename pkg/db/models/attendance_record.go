package models

import (
	"time"

	"github.com/google/uuid"
)

// AttendanceRecord is one clock-in/clock-out pair. An open shift has a nil
// ClockOut; at most one open shift per user exists.
type AttendanceRecord struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    uuid.UUID  `gorm:"column:user_id;type:uuid;not null"`
	StoreID   uuid.UUID  `gorm:"column:store_id;type:uuid;not null"`
	ClockIn   time.Time  `gorm:"column:clock_in;not null"`
	ClockOut  *time.Time `gorm:"column:clock_out"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
}
