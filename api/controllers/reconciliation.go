package controllers

import (
	"net/http"

	"github.com/shota3227/ludi/api/responses"
	"github.com/shota3227/ludi/api/validators"
	"github.com/shota3227/ludi/internal/reconciliation"
	"github.com/shota3227/ludi/pkg/logger"
)

// ReconciliationCheck reports ghost users without changing anything.
func ReconciliationCheck(svc reconciliation.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("reconciliation"))
			return
		}
		report, err := svc.Check(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, report)
	}
}

// ReconciliationExecute deletes the confirmed ghost ids that are still
// ghosts against a fresh provider listing.
func ReconciliationExecute(svc reconciliation.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("reconciliation"))
			return
		}
		var body reconciliation.ExecuteInput
		if err := validators.DecodeJSONBody(w, r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.Execute(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if logg != nil {
			ctx := logg.WithFields(r.Context(), map[string]any{
				"deleted": len(result.Deleted),
				"skipped": len(result.Skipped),
			})
			logg.Info(ctx, "reconciliation.execute")
		}
		responses.WriteSuccess(w, result)
	}
}
