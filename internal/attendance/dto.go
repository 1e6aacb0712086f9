package attendance

import (
	"time"

	"github.com/google/uuid"

	"github.com/shota3227/ludi/pkg/db/models"
	"github.com/shota3227/ludi/pkg/enums"
)

// Actor is the authenticated caller of a mutating operation.
type Actor struct {
	UserID uuid.UUID
	Role   enums.UserRole
}

// RecordDTO is an attendance record in API responses.
type RecordDTO struct {
	ID        uuid.UUID  `json:"id"`
	UserID    uuid.UUID  `json:"user_id"`
	StoreID   uuid.UUID  `json:"store_id"`
	StoreName string     `json:"store_name,omitempty"`
	ClockIn   time.Time  `json:"clock_in"`
	ClockOut  *time.Time `json:"clock_out"`
	CreatedAt time.Time  `json:"created_at"`
}

// WorkingMemberDTO is a member currently on shift.
type WorkingMemberDTO struct {
	AttendanceID uuid.UUID `json:"attendance_id"`
	UserID       uuid.UUID `json:"user_id"`
	Nickname     string    `json:"nickname"`
	AvatarID     string    `json:"avatar_id"`
	Rank         int       `json:"rank"`
	ClockIn      time.Time `json:"clock_in"`
}

func recordFromModel(m *models.AttendanceRecord) *RecordDTO {
	return &RecordDTO{
		ID:        m.ID,
		UserID:    m.UserID,
		StoreID:   m.StoreID,
		ClockIn:   m.ClockIn,
		ClockOut:  m.ClockOut,
		CreatedAt: m.CreatedAt,
	}
}

func recordFromRow(r recordRow) RecordDTO {
	return RecordDTO{
		ID:        r.ID,
		UserID:    r.UserID,
		StoreID:   r.StoreID,
		StoreName: r.StoreName,
		ClockIn:   r.ClockIn,
		ClockOut:  r.ClockOut,
		CreatedAt: r.CreatedAt,
	}
}
