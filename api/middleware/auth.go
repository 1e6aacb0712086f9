package middleware

import (
	"net/http"
	"strings"

	"github.com/shota3227/ludi/api/responses"
	pkgAuth "github.com/shota3227/ludi/pkg/auth"
	"github.com/shota3227/ludi/pkg/auth/session"
	"github.com/shota3227/ludi/pkg/config"
	pkgerrors "github.com/shota3227/ludi/pkg/errors"
	"github.com/shota3227/ludi/pkg/logger"
)

// BearerToken extracts the token from an Authorization header. The "Bearer"
// scheme is optional.
func BearerToken(r *http.Request) (string, error) {
	token := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(token) > 7 && strings.EqualFold(token[:7], "bearer ") {
		token = strings.TrimSpace(token[7:])
	}
	if token == "" || strings.EqualFold(token, "bearer") {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	return token, nil
}

// Auth verifies the access token, checks its session is still live and puts
// the caller on the request context.
func Auth(cfg config.JWTConfig, verifier session.AccessSessionChecker, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			actor, err := resolveActor(r, cfg, verifier)
			if err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
			ctx = WithActor(ctx, actor)
			if logg != nil {
				ctx = logg.WithActor(ctx, actor.UserID, string(actor.Role), actor.StoreID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func resolveActor(r *http.Request, cfg config.JWTConfig, verifier session.AccessSessionChecker) (Actor, error) {
	token, err := BearerToken(r)
	if err != nil {
		return Actor{}, err
	}
	claims, err := pkgAuth.ParseAccessToken(cfg, token)
	switch {
	case err != nil:
		return Actor{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
	case claims.ID == "":
		return Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session id")
	}

	if verifier != nil {
		live, err := verifier.HasSession(r.Context(), claims.ID)
		if err != nil {
			return Actor{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "validate session")
		}
		if !live {
			return Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "session unavailable")
		}
	}

	actor := Actor{UserID: claims.UserID.String(), Role: claims.Role}
	if claims.StoreID != nil {
		actor.StoreID = claims.StoreID.String()
	}
	return actor, nil
}
