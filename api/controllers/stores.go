package controllers

import (
	"net/http"

	"github.com/shota3227/ludi/api/validators"
	"github.com/shota3227/ludi/internal/stores"
	"github.com/shota3227/ludi/pkg/logger"
)

// ListStores returns active stores ordered by name.
func ListStores(svc stores.Service, logg *logger.Logger) http.HandlerFunc {
	return endpoint(svc, "stores", http.StatusOK, logg, func(_ http.ResponseWriter, r *http.Request) (any, error) {
		return svc.ListActive(r.Context())
	})
}

func GetStore(svc stores.Service, logg *logger.Logger) http.HandlerFunc {
	return endpoint(svc, "stores", http.StatusOK, logg, func(_ http.ResponseWriter, r *http.Request) (any, error) {
		id, err := validators.ParseUUIDParam(r, "storeId")
		if err != nil {
			return nil, err
		}
		return svc.GetByID(r.Context(), id)
	})
}
