package middleware

import (
	"net/http"
	"testing"

	"github.com/haskel/variantlab/internal/config"
)

func TestRateLimit_Disabled(t *testing.T) {
	handler := RateLimit(config.RateLimitConfig{Enabled: false})(okHandler())

	for i := range 100 {
		if w := serve(handler, "/status"); w.Code != http.StatusOK {
			t.Fatalf("request %d: expected status 200, got %d", i, w.Code)
		}
	}
}

func TestRateLimit_BurstThenReject(t *testing.T) {
	handler := RateLimit(config.RateLimitConfig{Enabled: true, RequestsPerSecond: 0.5, Burst: 3})(okHandler())

	for i := range 3 {
		if w := serve(handler, "/status"); w.Code != http.StatusOK {
			t.Errorf("burst request %d: expected status 200, got %d", i, w.Code)
		}
	}

	w := serve(handler, "/status")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected status 429, got %d", w.Code)
	}
	if got := w.Header().Get("Retry-After"); got != "2" {
		t.Errorf("Retry-After = %q, want %q", got, "2")
	}
}

func TestRateLimit_ExcludedPaths(t *testing.T) {
	handler := RateLimit(config.RateLimitConfig{Enabled: true, RequestsPerSecond: 0.1, Burst: 1}, "/health")(okHandler())

	serve(handler, "/status")
	if w := serve(handler, "/status"); w.Code != http.StatusTooManyRequests {
		t.Errorf("expected status 429, got %d", w.Code)
	}

	for i := range 10 {
		if w := serve(handler, "/health"); w.Code != http.StatusOK {
			t.Errorf("health request %d: expected status 200, got %d", i, w.Code)
		}
	}
}
