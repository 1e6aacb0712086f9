package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"

	"github.com/shota3227/ludi/pkg/enums"
)

const (
	storeA = "6f1c1d2e-8a43-4c1e-9c38-3b7f3e2a0001"
	storeB = "6f1c1d2e-8a43-4c1e-9c38-3b7f3e2a0002"
)

func serveStoreScoped(mw func(http.Handler) http.Handler, actor Actor, storeParam string) int {
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	rc := chi.NewRouteContext()
	rc.URLParams.Add("storeId", storeParam)
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rc)
	ctx = WithActor(ctx, actor)

	rec := httptest.NewRecorder()
	mw(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})).ServeHTTP(rec, req.WithContext(ctx))
	return rec.Code
}

func TestOwnStore(t *testing.T) {
	mw := OwnStore(nil)

	assert.Equal(t, http.StatusNoContent, serveStoreScoped(mw, Actor{UserID: "u", Role: enums.UserRoleManager, StoreID: storeA}, storeA))
	assert.Equal(t, http.StatusForbidden, serveStoreScoped(mw, Actor{UserID: "u", Role: enums.UserRoleManager, StoreID: storeA}, storeB))
	assert.Equal(t, http.StatusForbidden, serveStoreScoped(mw, Actor{UserID: "u", Role: enums.UserRoleManager}, storeB))
	assert.Equal(t, http.StatusNoContent, serveStoreScoped(mw, Actor{UserID: "u", Role: enums.UserRoleAreaManager, StoreID: storeA}, storeB))
	assert.Equal(t, http.StatusNoContent, serveStoreScoped(mw, Actor{UserID: "u", Role: enums.UserRoleSystemAdmin}, storeB))
}

func TestStoreContext(t *testing.T) {
	mw := StoreContext(nil)

	assert.Equal(t, http.StatusNoContent, serveStoreScoped(mw, Actor{UserID: "u", StoreID: storeA}, ""))
	assert.Equal(t, http.StatusForbidden, serveStoreScoped(mw, Actor{UserID: "u"}, ""))
	assert.Equal(t, http.StatusUnauthorized, serveStoreScoped(mw, Actor{UserID: "u", StoreID: "not-a-uuid"}, ""))
}
