package middleware

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/shota3227/ludi/api/responses"
	"github.com/shota3227/ludi/pkg/enums"
	pkgerrors "github.com/shota3227/ludi/pkg/errors"
	"github.com/shota3227/ludi/pkg/logger"
)

// StoreContext rejects tokens that carry no usable primary store. Routes that
// read organization data (categories, skills) resolve it through the store.
func StoreContext(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := StoreIDFromContext(r.Context())
			if raw == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "user has no primary store"))
				return
			}
			if _, err := uuid.Parse(raw); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid store claim"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// OwnStore confines store managers to the store named by the {storeId} path
// parameter being their primary store. Area managers and admins may act on
// any store.
func OwnStore(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor := ActorFromContext(r.Context())
			if actor.Role != enums.UserRoleManager {
				next.ServeHTTP(w, r)
				return
			}
			target := strings.TrimSpace(chi.URLParam(r, "storeId"))
			if target == "" || !strings.EqualFold(target, actor.StoreID) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "store managers may only manage their own store"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
