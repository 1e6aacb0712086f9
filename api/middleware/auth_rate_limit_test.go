package middleware

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/shota3227/ludi/pkg/errors"
)

type fakeRateStore struct {
	mu     sync.Mutex
	counts map[string]int64
}

func newFakeRateStore() *fakeRateStore {
	return &fakeRateStore{counts: map[string]int64{}}
}

func (f *fakeRateStore) FixedWindowAllow(_ context.Context, scope string, limit int64, _ time.Duration) (bool, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts[scope]++
	return f.counts[scope] <= limit, f.counts[scope], nil
}

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func hit(h http.Handler, path, remoteAddr, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	if remoteAddr != "" {
		req.RemoteAddr = remoteAddr
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAuthRateLimit_PassesBodyThrough(t *testing.T) {
	const body = `{"email":"tester@example.com","password":"secret"}`
	policy := NewAuthRateLimitPolicy("login", time.Minute, 2, 2)
	handler := AuthRateLimit(policy, newFakeRateStore(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.Equal(t, body, string(got), "handler must see the original body")
		w.WriteHeader(http.StatusOK)
	}))

	assert.Equal(t, http.StatusOK, hit(handler, "/api/v1/auth/login", "1.2.3.4:5678", body).Code)
}

func TestAuthRateLimit_EmailLimitTriggers(t *testing.T) {
	policy := NewAuthRateLimitPolicy("login", time.Minute, 0, 2)
	handler := AuthRateLimit(policy, newFakeRateStore(), nil)(okHandler)

	const body = `{"email":"blocked@example.com","password":"secret"}`
	for i := 0; i < 2; i++ {
		require.Equal(t, http.StatusOK, hit(handler, "/api/v1/auth/login", "1.2.3.4:5678", body).Code, "attempt %d", i+1)
	}

	rec := hit(handler, "/api/v1/auth/login", "1.2.3.4:5678", body)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, string(pkgerrors.CodeRateLimit), errorCode(t, rec))
}

func TestAuthRateLimit_IPLimitTriggers(t *testing.T) {
	policy := NewAuthRateLimitPolicy("signup", time.Minute, 1, 0)
	handler := AuthRateLimit(policy, newFakeRateStore(), nil)(okHandler)

	assert.Equal(t, http.StatusOK, hit(handler, "/api/v1/auth/signup", "5.6.7.8:1234", `{"email":"a@example.com"}`).Code)
	assert.Equal(t, http.StatusTooManyRequests, hit(handler, "/api/v1/auth/signup", "5.6.7.8:1234", `{"email":"b@example.com"}`).Code)
	assert.Equal(t, http.StatusOK, hit(handler, "/api/v1/auth/signup", "5.6.7.9:1234", `{"email":"c@example.com"}`).Code, "other peers keep their own window")
}

func TestAuthRateLimit_EmailIsCaseInsensitive(t *testing.T) {
	store := newFakeRateStore()
	policy := NewAuthRateLimitPolicy("login", time.Minute, 0, 1)
	handler := AuthRateLimit(policy, store, nil)(okHandler)

	first := hit(handler, "/api/v1/auth/login", "", `{"email":"Staff@Example.com","password":"x"}`)
	second := hit(handler, "/api/v1/auth/login", "", `{"email":" staff@example.com ","password":"x"}`)

	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusTooManyRequests, second.Code, "the same address in another case shares the window")
	for scope := range store.counts {
		assert.NotContains(t, scope, "example.com", "raw email leaked into limiter scope")
	}
}

func TestAuthRateLimit_SetsRetryAfter(t *testing.T) {
	policy := NewAuthRateLimitPolicy("login", 90*time.Second, 1, 0)
	handler := AuthRateLimit(policy, newFakeRateStore(), nil)(okHandler)

	hit(handler, "/api/v1/auth/login", "9.9.9.9:1000", `{}`)
	rec := hit(handler, "/api/v1/auth/login", "9.9.9.9:1000", `{}`)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "90", rec.Header().Get("Retry-After"))
}

func TestClientIPSkipsUnparseableForwardedEntries(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:443"
	req.Header.Set("X-Forwarded-For", "unknown, 203.0.113.7, 10.0.0.2")
	assert.Equal(t, "203.0.113.7", clientIP(req))

	req.Header.Del("X-Forwarded-For")
	req.Header.Set("X-Real-IP", "garbage")
	assert.Equal(t, "10.0.0.1", clientIP(req), "falls back to the socket peer")
}

func TestEmailDigestRestoresBody(t *testing.T) {
	const body = `{"email":" Staff@Example.com ","password":"x"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))

	digest, err := emailDigest(req)
	require.NoError(t, err)
	assert.Len(t, digest, 64)

	rest, err := io.ReadAll(req.Body)
	require.NoError(t, err)
	assert.Equal(t, body, string(rest))

	same, err := emailDigest(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"staff@example.com"}`)))
	require.NoError(t, err)
	assert.Equal(t, digest, same)

	none, err := emailDigest(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`not json`)))
	require.NoError(t, err)
	assert.Empty(t, none)
}
