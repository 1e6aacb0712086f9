package middleware

import (
	"net/http"

	"github.com/shota3227/ludi/api/responses"
	"github.com/shota3227/ludi/pkg/enums"
	pkgerrors "github.com/shota3227/ludi/pkg/errors"
	"github.com/shota3227/ludi/pkg/logger"
)

// RequireRoles lets the request through only when the token role is one of
// allowed.
func RequireRoles(logg *logger.Logger, allowed ...enums.UserRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := enums.UserRole(RoleFromContext(r.Context()))
			for _, candidate := range allowed {
				if candidate == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "role required"))
		})
	}
}

// RequireManager admits manager-level roles.
func RequireManager(logg *logger.Logger) func(http.Handler) http.Handler {
	return RequireRoles(logg, enums.ManagerRoles...)
}

// RequireAdmin admits organization administrators.
func RequireAdmin(logg *logger.Logger) func(http.Handler) http.Handler {
	return RequireRoles(logg, enums.AdminRoles...)
}
