package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/shota3227/ludi/api/middleware"
	"github.com/shota3227/ludi/api/responses"
	"github.com/shota3227/ludi/api/validators"
	"github.com/shota3227/ludi/internal/stores"
	"github.com/shota3227/ludi/pkg/enums"
	pkgerrors "github.com/shota3227/ludi/pkg/errors"
	"github.com/shota3227/ludi/pkg/logger"
)

func currentUserID(ctx context.Context) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(ctx)
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id")
	}
	return id, nil
}

func currentRole(ctx context.Context) enums.UserRole {
	return middleware.ActorFromContext(ctx).Role
}

func currentStoreID(ctx context.Context) (uuid.UUID, error) {
	raw := middleware.StoreIDFromContext(ctx)
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "user has no primary store")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid store id")
	}
	return id, nil
}

// currentOrganizationID resolves the organization through the caller's
// primary store.
func currentOrganizationID(ctx context.Context, svc stores.Service) (uuid.UUID, error) {
	storeID, err := currentStoreID(ctx)
	if err != nil {
		return uuid.Nil, err
	}
	store, err := svc.GetByID(ctx, storeID)
	if err != nil {
		return uuid.Nil, err
	}
	return store.OrganizationID, nil
}

func serviceUnavailable(name string) error {
	return pkgerrors.New(pkgerrors.CodeInternal, name+" service unavailable")
}

// endpoint adapts fn to a handler that writes fn's result with status, or
// the error envelope. A nil svc short-circuits to an unavailable error.
func endpoint(svc any, name string, status int, logg *logger.Logger, fn func(w http.ResponseWriter, r *http.Request) (any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable(name))
			return
		}
		out, err := fn(w, r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, status, out)
	}
}

// decodeBody reads and validates a JSON body into a fresh T.
func decodeBody[T any](w http.ResponseWriter, r *http.Request) (T, error) {
	var body T
	err := validators.DecodeJSONBody(w, r, &body)
	return body, err
}
