package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/shota3227/ludi/api/responses"
	"github.com/shota3227/ludi/api/validators"
	"github.com/shota3227/ludi/internal/points"
	"github.com/shota3227/ludi/internal/stores"
	"github.com/shota3227/ludi/pkg/enums"
	pkgerrors "github.com/shota3227/ludi/pkg/errors"
	"github.com/shota3227/ludi/pkg/logger"
)

type sendPointsRequest struct {
	ToUserID   uuid.UUID  `json:"to_user_id" validate:"required"`
	PointType  string     `json:"point_type" validate:"required,point_type"`
	Points     int        `json:"points" validate:"gt=0,lte=2147483647"` // points column is a 32-bit integer
	Message    *string    `json:"message" validate:"omitempty,max=500"`
	CategoryID *uuid.UUID `json:"goodjob_category_id"`
	FreeText   *string    `json:"goodjob_free_text" validate:"omitempty,max=200"`
}

// SendPoints appends a transfer from the caller to another member.
func SendPoints(svc points.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("points"))
			return
		}
		userID, err := currentUserID(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body sendPointsRequest
		if err := validators.DecodeJSONBody(w, r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		tx, err := svc.SendPoints(r.Context(), points.SendInput{
			FromUserID: userID,
			ToUserID:   body.ToUserID,
			Type:       enums.PointType(body.PointType),
			Points:     body.Points,
			Message:    body.Message,
			CategoryID: body.CategoryID,
			FreeText:   body.FreeText,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, tx)
	}
}

// PointAllowance reports how many points the caller may still send today.
func PointAllowance(svc points.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("points"))
			return
		}
		userID, err := currentUserID(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		allowance, err := svc.Allowance(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, allowance)
	}
}

// PointSummary returns the caller's sent and received totals.
func PointSummary(svc points.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("points"))
			return
		}
		userID, err := currentUserID(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		summary, err := svc.GetPointSummary(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}

// PointHistory lists the caller's ledger entries filtered by direction.
func PointHistory(svc points.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("points"))
			return
		}
		userID, err := currentUserID(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		direction, err := enums.ParsePointDirection(strings.TrimSpace(r.URL.Query().Get("direction")))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "direction must be all, sent or received"))
			return
		}
		history, err := svc.History(r.Context(), userID, direction)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, history)
	}
}

// PointCategories lists the goodjob categories of the caller's organization.
func PointCategories(svc points.Service, storeSvc stores.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil || storeSvc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("points"))
			return
		}
		orgID, err := currentOrganizationID(r.Context(), storeSvc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		categories, err := svc.Categories(r.Context(), orgID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, categories)
	}
}

// StoreRankings ranks store members by points received. The optional
// since date (YYYY-MM-DD, local) bounds the window.
func StoreRankings(svc points.Service, loc *time.Location, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("points"))
			return
		}
		storeID, err := validators.ParseUUIDParam(r, "storeId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		pointType, err := enums.ParsePointType(strings.TrimSpace(r.URL.Query().Get("type")))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "type must be thanks or goodjob"))
			return
		}
		since, err := validators.ParseQueryDate(r, "since", loc, false)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rankings, err := svc.Rankings(r.Context(), storeID, pointType, since)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rankings)
	}
}
