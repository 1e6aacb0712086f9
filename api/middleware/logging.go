package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/shota3227/ludi/pkg/logger"
	"github.com/shota3227/ludi/pkg/metrics"
)

// routeOf returns the matched chi pattern, which keeps metric label
// cardinality bounded by the route table rather than by ids in paths.
func routeOf(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

// Logging logs one line when a request arrives and one when it completes,
// and records the request in httpMetrics.
func Logging(logg *logger.Logger, httpMetrics *metrics.HTTPMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if logg != nil {
				ctx = logg.WithFields(ctx, map[string]any{"method": r.Method, "path": r.URL.Path})
				logg.Info(ctx, "request.start")
			}

			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			began := time.Now()
			next.ServeHTTP(ww, r.WithContext(ctx))
			took := time.Since(began)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			httpMetrics.Observe(routeOf(r), r.Method, status, took)

			if logg != nil {
				logg.Info(logg.WithFields(ctx, map[string]any{
					"status":      status,
					"bytes":       ww.BytesWritten(),
					"duration_ms": took.Milliseconds(),
				}), "request.complete")
			}
		})
	}
}
