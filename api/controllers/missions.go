package controllers

import (
	"net/http"
	"time"

	"github.com/shota3227/ludi/api/responses"
	"github.com/shota3227/ludi/api/validators"
	"github.com/shota3227/ludi/internal/missions"
	pkgerrors "github.com/shota3227/ludi/pkg/errors"
	"github.com/shota3227/ludi/pkg/logger"
)

type createMissionRequest struct {
	Name        string  `json:"name" validate:"required,notblank,max=100"`
	Description *string `json:"description" validate:"omitempty,max=500"`
	Icon        string  `json:"icon" validate:"required,max=16"`
	TargetValue *int    `json:"target_value" validate:"omitempty,gt=0"`
	TargetDate  *string `json:"target_date"`
	Points      int     `json:"points" validate:"gte=0"`
}

type missionProgressRequest struct {
	Value *int `json:"value" validate:"required,gte=0"`
}

// TodayMissions lists the store's missions dated today.
func TodayMissions(svc missions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("missions"))
			return
		}
		storeID, err := validators.ParseUUIDParam(r, "storeId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.TodayMissions(r.Context(), storeID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// CreateMission adds a mission to a store. target_date is YYYY-MM-DD in loc
// and defaults to today.
func CreateMission(svc missions.Service, loc *time.Location, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("missions"))
			return
		}
		actorID, err := currentUserID(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		storeID, err := validators.ParseUUIDParam(r, "storeId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body createMissionRequest
		if err := validators.DecodeJSONBody(w, r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := missions.CreateInput{
			StoreID:     storeID,
			Name:        body.Name,
			Description: body.Description,
			Icon:        body.Icon,
			TargetValue: body.TargetValue,
			Points:      body.Points,
		}
		if body.TargetDate != nil && *body.TargetDate != "" {
			if loc == nil {
				loc = time.UTC
			}
			date, err := time.ParseInLocation("2006-01-02", *body.TargetDate, loc)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "target_date must be YYYY-MM-DD"))
				return
			}
			input.TargetDate = &date
		}

		mission, err := svc.Create(r.Context(), actorID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, mission)
	}
}

// UpdateMissionProgress sets the absolute progress value of a mission.
func UpdateMissionProgress(svc missions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("missions"))
			return
		}
		missionID, err := validators.ParseUUIDParam(r, "missionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body missionProgressRequest
		if err := validators.DecodeJSONBody(w, r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		mission, err := svc.UpdateProgress(r.Context(), missionID, *body.Value)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, mission)
	}
}

// CancelMission moves an active mission to cancelled.
func CancelMission(svc missions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("missions"))
			return
		}
		missionID, err := validators.ParseUUIDParam(r, "missionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		mission, err := svc.Cancel(r.Context(), missionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, mission)
	}
}
