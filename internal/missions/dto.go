package missions

import (
	"time"

	"github.com/google/uuid"

	"github.com/shota3227/ludi/pkg/db/models"
	"github.com/shota3227/ludi/pkg/enums"
)

// MissionDTO is a mission in API responses.
type MissionDTO struct {
	ID           uuid.UUID           `json:"id"`
	StoreID      uuid.UUID           `json:"store_id"`
	Name         string              `json:"name"`
	Description  *string             `json:"description,omitempty"`
	Icon         string              `json:"icon"`
	TargetValue  *int                `json:"target_value"`
	CurrentValue int                 `json:"current_value"`
	TargetDate   string              `json:"target_date"`
	Points       int                 `json:"points"`
	Status       enums.MissionStatus `json:"status"`
	CreatedBy    uuid.UUID           `json:"created_by"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
}

// CreateInput describes a new mission. TargetDate defaults to today.
type CreateInput struct {
	StoreID     uuid.UUID
	Name        string
	Description *string
	Icon        string
	TargetValue *int
	TargetDate  *time.Time
	Points      int
}

const dateLayout = "2006-01-02"

func fromModel(m *models.Mission) *MissionDTO {
	return &MissionDTO{
		ID:           m.ID,
		StoreID:      m.StoreID,
		Name:         m.Name,
		Description:  m.Description,
		Icon:         m.Icon,
		TargetValue:  m.TargetValue,
		CurrentValue: m.CurrentValue,
		TargetDate:   m.TargetDate.UTC().Format(dateLayout),
		Points:       m.Points,
		Status:       m.Status,
		CreatedBy:    m.CreatedBy,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}
