package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/shota3227/ludi/api/responses"
	"github.com/shota3227/ludi/api/validators"
	pkgerrors "github.com/shota3227/ludi/pkg/errors"
	"github.com/shota3227/ludi/pkg/logger"
	pkgredis "github.com/shota3227/ludi/pkg/redis"
)

const (
	IdempotencyKeyHeader      = "Idempotency-Key"
	IdempotencyReplayedHeader = "Idempotent-Replayed"

	// IdempotencyTTL is how long a finished response is replayed.
	IdempotencyTTL = 24 * time.Hour
	// CriticalIdempotencyTTL covers point transfers, clock-ins and
	// reconciliation deletes.
	CriticalIdempotencyTTL = 7 * 24 * time.Hour

	// a claimed key whose handler never finished frees itself after this
	inFlightTTL       = time.Minute
	maxIdempotencyKey = 255
)

var (
	errKeyMissing    = pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key header required")
	errKeyTooLong    = pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key header too long")
	errKeyInProgress = pkgerrors.New(pkgerrors.CodeIdempotency, "request with this Idempotency-Key is in progress")
	errKeyReused     = pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with different request body")
)

// storedResponse is what a key holds in Redis: a claim while the handler
// runs, then the finished response.
type storedResponse struct {
	InFlight    bool              `json:"in_flight,omitempty"`
	Status      int               `json:"status,omitempty"`
	Body        string            `json:"body,omitempty"`
	Headers     map[string]string `json:"headers,omitempty"`
	RequestHash string            `json:"request_hash"`
}

func (s storedResponse) replay(w http.ResponseWriter) {
	if ct := s.Headers["Content-Type"]; ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.Header().Set(IdempotencyReplayedHeader, "true")
	w.WriteHeader(s.Status)
	if body, err := base64.StdEncoding.DecodeString(s.Body); err == nil {
		_, _ = w.Write(body)
	}
}

type idempotencyGuard struct {
	store pkgredis.IdempotencyStore
	logg  *logger.Logger
}

// Idempotency guards one route with the Idempotency-Key header. The key is
// claimed before the handler runs, so a concurrent duplicate is refused
// instead of executing twice. Finished non-5xx responses are replayed for ttl;
// 5xx responses release the key so the client may retry. Attach it per route
// with chi's With.
func Idempotency(store pkgredis.IdempotencyStore, ttl time.Duration, logg *logger.Logger) func(http.Handler) http.Handler {
	g := idempotencyGuard{store: store, logg: logg}
	if ttl <= 0 {
		ttl = IdempotencyTTL
	}
	return func(next http.Handler) http.Handler {
		if store == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := g.serve(w, r, next, ttl); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
			}
		})
	}
}

// serve returns an error only when nothing has been written yet.
func (g idempotencyGuard) serve(w http.ResponseWriter, r *http.Request, next http.Handler, ttl time.Duration) error {
	ctx := r.Context()
	clientKey := strings.TrimSpace(r.Header.Get(IdempotencyKeyHeader))
	switch {
	case clientKey == "":
		return errKeyMissing
	case len(clientKey) > maxIdempotencyKey:
		return errKeyTooLong
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, validators.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return pkgerrors.New(pkgerrors.CodeValidation, "request body too large")
		}
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body")
	}
	r.Body = io.NopCloser(bytes.NewReader(body))
	digest := sha256.Sum256(body)
	hash := base64.StdEncoding.EncodeToString(digest[:])
	key := g.store.IdempotencyKey(UserIDFromContext(ctx)+"|"+r.Method+"|"+r.URL.Path, clientKey)

	prior, err := g.load(ctx, key)
	switch {
	case err != nil:
		return err
	case prior != nil && prior.RequestHash != hash:
		return errKeyReused
	case prior != nil && prior.InFlight:
		return errKeyInProgress
	case prior != nil:
		prior.replay(w)
		return nil
	}

	claim, _ := json.Marshal(storedResponse{InFlight: true, RequestHash: hash})
	claimed, err := g.store.SetNX(ctx, key, string(claim), inFlightTTL)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim idempotency key")
	}
	if !claimed {
		return errKeyInProgress
	}

	capture := &responseCapture{ResponseWriter: w}
	done := false
	defer func() {
		if !done {
			g.release(ctx, key)
		}
	}()
	next.ServeHTTP(capture, r)
	done = true

	if capture.status >= http.StatusInternalServerError {
		g.release(ctx, key)
		return nil
	}
	g.save(ctx, key, capture.stored(hash), ttl)
	return nil
}

func (g idempotencyGuard) load(ctx context.Context, key string) (*storedResponse, error) {
	raw, err := g.store.Get(ctx, key)
	if errors.Is(err, redis.Nil) || (err == nil && raw == "") {
		return nil, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency")
	}
	var stored storedResponse
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode idempotency record")
	}
	return &stored, nil
}

func (g idempotencyGuard) save(ctx context.Context, key string, stored storedResponse, ttl time.Duration) {
	payload, err := json.Marshal(stored)
	if err == nil {
		err = g.store.Set(ctx, key, string(payload), ttl)
	}
	if err != nil && g.logg != nil {
		g.logg.Error(ctx, "idempotency.persist_failed", err)
	}
}

func (g idempotencyGuard) release(ctx context.Context, key string) {
	if err := g.store.Del(context.WithoutCancel(ctx), key); err != nil && g.logg != nil {
		g.logg.Error(ctx, "idempotency.release_failed", err)
	}
}

type responseCapture struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (c *responseCapture) WriteHeader(code int) {
	c.status = code
	c.ResponseWriter.WriteHeader(code)
}

func (c *responseCapture) Write(b []byte) (int, error) {
	if c.status == 0 {
		c.status = http.StatusOK
	}
	c.body.Write(b)
	return c.ResponseWriter.Write(b)
}

func (c *responseCapture) stored(requestHash string) storedResponse {
	out := storedResponse{
		Status:      c.status,
		Body:        base64.StdEncoding.EncodeToString(c.body.Bytes()),
		RequestHash: requestHash,
	}
	if out.Status == 0 {
		out.Status = http.StatusOK
	}
	if ct := c.Header().Get("Content-Type"); ct != "" {
		out.Headers = map[string]string{"Content-Type": ct}
	}
	return out
}
