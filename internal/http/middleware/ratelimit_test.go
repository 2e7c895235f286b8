package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRateLimiterRefillsOverTime(t *testing.T) {
	rl := NewRateLimiter(1, 2)
	defer rl.Stop()
	now := time.Date(2025, 3, 4, 9, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	if !rl.Allow("a") || !rl.Allow("a") {
		t.Fatalf("expected burst of two to pass")
	}
	if rl.Allow("a") {
		t.Fatalf("expected third request to be limited")
	}
	if !rl.Allow("b") {
		t.Fatalf("keys must not share buckets")
	}

	now = now.Add(time.Second)
	if !rl.Allow("a") {
		t.Fatalf("expected one token after a second")
	}
}

func TestRateLimiterEvictsIdleBuckets(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	defer rl.Stop()
	now := time.Date(2025, 3, 4, 9, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	rl.Allow("old")
	now = now.Add(11 * time.Minute)
	rl.Allow("fresh")

	if removed := rl.evict(10 * time.Minute); removed != 1 {
		t.Fatalf("expected one eviction, got %d", removed)
	}
}

func TestRateLimitMiddlewareUsesKeyFunc(t *testing.T) {
	rl := NewRateLimiter(0.001, 1)
	defer rl.Stop()
	bySession := func(r *http.Request) string { return r.URL.Query().Get("s") }

	h := RateLimit(rl, bySession)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	call := func(session string) int {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/intake?s="+session, nil))
		return rec.Code
	}

	if code := call("one"); code != http.StatusOK {
		t.Fatalf("first call: %d", code)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/intake?s=one", nil))
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second call: expected 429, got %d", rec.Code)
	}
	if got := rec.Header().Get("Retry-After"); got != "1000" && got != "999" {
		t.Fatalf("expected Retry-After near 1000s, got %q", got)
	}
	if code := call("two"); code != http.StatusOK {
		t.Fatalf("other key: %d", code)
	}
}

func TestRateLimiterReserveReportsWait(t *testing.T) {
	rl := NewRateLimiter(0.5, 1)
	defer rl.Stop()
	now := time.Date(2025, 3, 4, 9, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	if ok, _ := rl.Reserve("a"); !ok {
		t.Fatalf("first request should pass")
	}
	ok, wait := rl.Reserve("a")
	if ok || wait != 2*time.Second {
		t.Fatalf("expected 2s wait, got ok=%v wait=%v", ok, wait)
	}

	// a refused request does not consume future capacity
	now = now.Add(2 * time.Second)
	if ok, _ := rl.Reserve("a"); !ok {
		t.Fatalf("expected token after refill")
	}
}

func TestRetryAfterRoundsUp(t *testing.T) {
	cases := map[time.Duration]string{0: "1", 300 * time.Millisecond: "1", 1500 * time.Millisecond: "2", time.Minute: "60"}
	for wait, want := range cases {
		if got := retryAfter(wait); got != want {
			t.Errorf("retryAfter(%v) = %q, want %q", wait, got, want)
		}
	}
}
