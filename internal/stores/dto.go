package stores

import (
	"github.com/google/uuid"

	"github.com/shota3227/ludi/pkg/db/models"
)

// StoreDTO exposes store data in API responses.
type StoreDTO struct {
	ID             uuid.UUID `json:"id"`
	OrganizationID uuid.UUID `json:"organization_id"`
	Name           string    `json:"name"`
	Code           string    `json:"code"`
	Address        *string   `json:"address,omitempty"`
	IsActive       bool      `json:"is_active"`
}

// FromModel maps a store row to its DTO.
func FromModel(m *models.Store) *StoreDTO {
	if m == nil {
		return nil
	}
	return &StoreDTO{
		ID:             m.ID,
		OrganizationID: m.OrganizationID,
		Name:           m.Name,
		Code:           m.Code,
		Address:        m.Address,
		IsActive:       m.IsActive,
	}
}
