package middleware

import (
	"fmt"
	"net/http"

	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/middleware/stdlib"

	"github.com/shota3227/ludi/api/responses"
	pkgerrors "github.com/shota3227/ludi/pkg/errors"
	"github.com/shota3227/ludi/pkg/logger"
)

// RateLimit throttles every request per client IP using a formatted rate
// such as "300-M". The store decides whether counters are shared across
// replicas (redis) or local (memory).
func RateLimit(rate string, store limiter.Store, logg *logger.Logger) (func(http.Handler) http.Handler, error) {
	parsed, err := limiter.NewRateFromFormatted(rate)
	if err != nil {
		return nil, fmt.Errorf("parse rate limit %q: %w", rate, err)
	}
	if store == nil {
		return nil, fmt.Errorf("rate limit store required")
	}
	instance := limiter.New(store, parsed)

	mw := stdlib.NewMiddleware(instance,
		stdlib.WithKeyGetter(clientIP),
		stdlib.WithLimitReachedHandler(func(w http.ResponseWriter, r *http.Request) {
			responses.WriteError(r.Context(), nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "rate limit exceeded"))
		}),
		stdlib.WithErrorHandler(func(w http.ResponseWriter, r *http.Request, err error) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
		}),
	)
	return mw.Handler, nil
}
