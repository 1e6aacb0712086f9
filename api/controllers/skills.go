package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/shota3227/ludi/api/validators"
	"github.com/shota3227/ludi/internal/skills"
	"github.com/shota3227/ludi/internal/stores"
	"github.com/shota3227/ludi/pkg/logger"
)

type acquireSkillRequest struct {
	SkillID uuid.UUID `json:"skill_id" validate:"required"`
}

// ListSkills returns the skill catalogue of the caller's organization, found
// through their primary store.
func ListSkills(svc skills.Service, storeSvc stores.Service, logg *logger.Logger) http.HandlerFunc {
	return endpoint(svc, "skills", http.StatusOK, logg, func(_ http.ResponseWriter, r *http.Request) (any, error) {
		if storeSvc == nil {
			return nil, serviceUnavailable("stores")
		}
		orgID, err := currentOrganizationID(r.Context(), storeSvc)
		if err != nil {
			return nil, err
		}
		return svc.ListSkills(r.Context(), orgID)
	})
}

func MySkills(svc skills.Service, logg *logger.Logger) http.HandlerFunc {
	return endpoint(svc, "skills", http.StatusOK, logg, func(_ http.ResponseWriter, r *http.Request) (any, error) {
		userID, err := currentUserID(r.Context())
		if err != nil {
			return nil, err
		}
		return svc.UserSkills(r.Context(), userID)
	})
}

// AcquireSkill certifies a skill for the member in the path. The caller is
// recorded as certifier.
func AcquireSkill(svc skills.Service, logg *logger.Logger) http.HandlerFunc {
	return endpoint(svc, "skills", http.StatusCreated, logg, func(w http.ResponseWriter, r *http.Request) (any, error) {
		certifier, err := currentUserID(r.Context())
		if err != nil {
			return nil, err
		}
		userID, err := validators.ParseUUIDParam(r, "userId")
		if err != nil {
			return nil, err
		}
		body, err := decodeBody[acquireSkillRequest](w, r)
		if err != nil {
			return nil, err
		}
		return svc.Acquire(r.Context(), userID, body.SkillID, certifier)
	})
}
