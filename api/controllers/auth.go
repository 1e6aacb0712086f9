package controllers

import (
	"net/http"

	"github.com/shota3227/ludi/api/middleware"
	"github.com/shota3227/ludi/internal/auth"
	"github.com/shota3227/ludi/pkg/logger"
)

// AuthLogin signs in with email and password through the identity provider.
func AuthLogin(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return endpoint(svc, "auth", http.StatusOK, logg, func(w http.ResponseWriter, r *http.Request) (any, error) {
		body, err := decodeBody[auth.LoginRequest](w, r)
		if err != nil {
			return nil, err
		}
		return svc.Login(r.Context(), body)
	})
}

// AuthExchange trades a provider id token for application tokens.
func AuthExchange(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return endpoint(svc, "auth", http.StatusOK, logg, func(w http.ResponseWriter, r *http.Request) (any, error) {
		body, err := decodeBody[auth.ExchangeRequest](w, r)
		if err != nil {
			return nil, err
		}
		return svc.Exchange(r.Context(), body)
	})
}

// AuthSignUp registers a staff account and signs it in.
func AuthSignUp(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return endpoint(svc, "auth", http.StatusCreated, logg, func(w http.ResponseWriter, r *http.Request) (any, error) {
		body, err := decodeBody[auth.SignUpRequest](w, r)
		if err != nil {
			return nil, err
		}
		return svc.SignUp(r.Context(), body)
	})
}

// AuthRefresh rotates the refresh token bound to the presented access token,
// which may already be expired.
func AuthRefresh(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return endpoint(svc, "auth", http.StatusOK, logg, func(w http.ResponseWriter, r *http.Request) (any, error) {
		token, err := middleware.BearerToken(r)
		if err != nil {
			return nil, err
		}
		body, err := decodeBody[auth.RefreshRequest](w, r)
		if err != nil {
			return nil, err
		}
		return svc.Refresh(r.Context(), token, body)
	})
}

// AuthLogout revokes the session behind the presented access token.
func AuthLogout(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return endpoint(svc, "auth", http.StatusOK, logg, func(_ http.ResponseWriter, r *http.Request) (any, error) {
		token, err := middleware.BearerToken(r)
		if err != nil {
			return nil, err
		}
		if err := svc.Logout(r.Context(), token); err != nil {
			return nil, err
		}
		return map[string]bool{"logged_out": true}, nil
	})
}
