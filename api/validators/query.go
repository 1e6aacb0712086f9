package validators

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	pkgerrors "github.com/shota3227/ludi/pkg/errors"
)

const dateLayout = "2006-01-02"

func queryValue(r *http.Request, key string) string {
	return strings.TrimSpace(r.URL.Query().Get(key))
}

func fieldError(key, msg string, extra ...any) error {
	details := map[string]any{"field": key}
	for i := 0; i+1 < len(extra); i += 2 {
		if k, ok := extra[i].(string); ok {
			details[k] = extra[i+1]
		}
	}
	return pkgerrors.New(pkgerrors.CodeValidation, msg).WithDetails(details)
}

// ParseQueryInt reads an integer parameter bounded to [min, max], falling
// back to defaultVal when absent.
func ParseQueryInt(r *http.Request, key string, defaultVal, min, max int) (int, error) {
	raw := queryValue(r, key)
	if raw == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(raw)
	switch {
	case err != nil:
		return 0, fieldError(key, "query parameter must be numeric")
	case n < min || n > max:
		return 0, fieldError(key, "query parameter out of range", "min", min, "max", max)
	}
	return n, nil
}

// ParseQueryBool reads a boolean flag; absent means false.
func ParseQueryBool(r *http.Request, key string) (bool, error) {
	raw := queryValue(r, key)
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fieldError(key, "query parameter must be true or false")
	}
	return v, nil
}

// ParseQueryDate reads a YYYY-MM-DD parameter as midnight in loc. Missing
// values return nil unless required.
func ParseQueryDate(r *http.Request, key string, loc *time.Location, required bool) (*time.Time, error) {
	raw := queryValue(r, key)
	if raw == "" {
		if required {
			return nil, fieldError(key, "query parameter required")
		}
		return nil, nil
	}
	if loc == nil {
		loc = time.UTC
	}
	day, err := time.ParseInLocation(dateLayout, raw, loc)
	if err != nil {
		return nil, fieldError(key, "query parameter must be a date (YYYY-MM-DD)")
	}
	return &day, nil
}

// ParseUUIDParam reads a chi URL parameter as a UUID.
func ParseUUIDParam(r *http.Request, key string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, key)))
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+key)
	}
	return id, nil
}
