package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/shota3227/ludi/api/responses"
	"github.com/shota3227/ludi/api/validators"
	"github.com/shota3227/ludi/internal/users"
	"github.com/shota3227/ludi/pkg/enums"
	pkgerrors "github.com/shota3227/ludi/pkg/errors"
	"github.com/shota3227/ludi/pkg/logger"
)

type updateProfileRequest struct {
	Nickname        *string `json:"nickname" validate:"omitempty,max=50"`
	AvatarID        *string `json:"avatar_id" validate:"omitempty,max=32"`
	ProfileText     *string `json:"profile_text" validate:"omitempty,max=1000"`
	Strengths       *string `json:"strengths" validate:"omitempty,max=500"`
	Weaknesses      *string `json:"weaknesses" validate:"omitempty,max=500"`
	Hobbies         *string `json:"hobbies" validate:"omitempty,max=500"`
	PersonalityType *string `json:"personality_type" validate:"omitempty,max=50"`
}

type createUserRequest struct {
	Email          string    `json:"email" validate:"required,email"`
	Password       string    `json:"password" validate:"omitempty,min=8"`
	Name           string    `json:"name" validate:"required,notblank,max=100"`
	Nickname       string    `json:"nickname" validate:"omitempty,max=50"`
	Role           string    `json:"role" validate:"required,user_role"`
	PrimaryStoreID uuid.UUID `json:"primary_store_id" validate:"required"`
}

type setActiveRequest struct {
	Active *bool `json:"active" validate:"required"`
}

// Me returns the caller's profile.
func Me(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("users"))
			return
		}
		userID, err := currentUserID(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		user, err := svc.Get(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, user)
	}
}

// UpdateMe edits the caller's own profile fields.
func UpdateMe(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("users"))
			return
		}
		userID, err := currentUserID(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body updateProfileRequest
		if err := validators.DecodeJSONBody(w, r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		user, err := svc.UpdateProfile(r.Context(), userID, users.UpdateProfileInput{
			Nickname:        body.Nickname,
			AvatarID:        body.AvatarID,
			ProfileText:     body.ProfileText,
			Strengths:       body.Strengths,
			Weaknesses:      body.Weaknesses,
			Hobbies:         body.Hobbies,
			PersonalityType: body.PersonalityType,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, user)
	}
}

// StoreMembers lists the active members of a store.
func StoreMembers(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("users"))
			return
		}
		storeID, err := validators.ParseUUIDParam(r, "storeId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		members, err := svc.ListStoreMembers(r.Context(), storeID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, members)
	}
}

// AdminListUsers pages through accounts with optional store, role and
// include_inactive filters.
func AdminListUsers(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("users"))
			return
		}
		q := r.URL.Query()
		limit, err := validators.ParseQueryInt(r, "limit", 50, 1, 200)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params := users.ListParams{Limit: limit, Cursor: strings.TrimSpace(q.Get("cursor"))}
		if raw := strings.TrimSpace(q.Get("store_id")); raw != "" {
			storeID, err := uuid.Parse(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid store_id"))
				return
			}
			params.StoreID = &storeID
		}
		if raw := strings.TrimSpace(q.Get("role")); raw != "" {
			role, err := enums.ParseUserRole(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid role"))
				return
			}
			params.Role = &role
		}
		if raw := strings.TrimSpace(q.Get("include_inactive")); raw != "" {
			include, err := strconv.ParseBool(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid include_inactive"))
				return
			}
			params.IncludeInactive = include
		}

		page, err := svc.List(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

// AdminCreateUser provisions a provider account and its profile.
func AdminCreateUser(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("users"))
			return
		}
		var body createUserRequest
		if err := validators.DecodeJSONBody(w, r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.Create(r.Context(), users.CreateUserInput{
			Email:          body.Email,
			Password:       body.Password,
			Name:           body.Name,
			Nickname:       body.Nickname,
			Role:           enums.UserRole(body.Role),
			PrimaryStoreID: body.PrimaryStoreID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// AdminSetUserActive enables or disables an account.
func AdminSetUserActive(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("users"))
			return
		}
		userID, err := validators.ParseUUIDParam(r, "userId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body setActiveRequest
		if err := validators.DecodeJSONBody(w, r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		user, err := svc.SetActive(r.Context(), userID, *body.Active)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, user)
	}
}
