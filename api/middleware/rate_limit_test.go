package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ulule/limiter/v3/drivers/store/memory"
)

func TestRateLimitBlocksAfterQuota(t *testing.T) {
	mw, err := RateLimit("2-M", memory.NewStore(), nil)
	if err != nil {
		t.Fatalf("build rate limit: %v", err)
	}
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK {
		t.Fatalf("expected first two requests allowed, got %v", codes)
	}
	if codes[2] != http.StatusTooManyRequests {
		t.Fatalf("expected third request limited, got %d", codes[2])
	}

	other := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	other.RemoteAddr = "10.0.0.2:1234"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, other)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected other client unaffected, got %d", rec.Code)
	}
}

func TestRateLimitRejectsBadRate(t *testing.T) {
	if _, err := RateLimit("lots", memory.NewStore(), nil); err == nil {
		t.Fatal("expected invalid rate to fail")
	}
}
