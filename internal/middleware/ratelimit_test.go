package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(t *testing.T, limit int, window time.Duration) (*RateLimiter, *time.Time) {
	t.Helper()
	rl := NewRateLimiter(limit, window)
	t.Cleanup(rl.Stop)

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	return rl, &now
}

func TestRateLimiterSlidingWindow(t *testing.T) {
	rl, now := newTestLimiter(t, 5, 15*time.Minute)

	for i := range 5 {
		assert.True(t, rl.Allow("1.2.3.4"), "request %d", i+1)
	}
	assert.False(t, rl.Allow("1.2.3.4"))
	assert.True(t, rl.Allow("5.6.7.8"), "other clients have their own budget")

	*now = now.Add(15*time.Minute + time.Second)
	assert.True(t, rl.Allow("1.2.3.4"))
}

func TestRateLimiterDisabled(t *testing.T) {
	rl, _ := newTestLimiter(t, 0, time.Minute)
	for range 100 {
		require.True(t, rl.Allow("1.2.3.4"))
	}
}

func TestRateLimiterCleanup(t *testing.T) {
	rl, now := newTestLimiter(t, 5, time.Minute)
	rl.Allow("1.2.3.4")

	*now = now.Add(2 * time.Minute)
	rl.cleanup()

	rl.mu.Lock()
	defer rl.mu.Unlock()
	assert.Empty(t, rl.requests)
}

func TestRateLimitMiddleware(t *testing.T) {
	rl, _ := newTestLimiter(t, 2, time.Minute)
	h := RateLimit(rl, false)(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	codes := make([]int, 0, 3)
	for range 3 {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/login", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		rec := httptest.NewRecorder()
		h(rec, req)
		codes = append(codes, rec.Code)

		if rec.Code == http.StatusTooManyRequests {
			var body map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, false, body["success"])
			assert.Equal(t, "Too many requests. Please try again later.", body["message"])
		}
	}
	assert.Equal(t, []int{http.StatusNoContent, http.StatusNoContent, http.StatusTooManyRequests}, codes)
}

func TestRateLimitIgnoresSpoofedForwardedFor(t *testing.T) {
	for _, trustProxy := range []bool{false, true} {
		rl, _ := newTestLimiter(t, 5, 15*time.Minute)
		h := RateLimit(rl, trustProxy)(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})

		var last int
		for i := range 6 {
			req := httptest.NewRequest(http.MethodPost, "/admin/login", nil)
			req.RemoteAddr = "10.0.0.1:5555"
			// The client rotates the first entry, the proxy appends the real address
			req.Header.Set("X-Forwarded-For", fmt.Sprintf("198.51.100.%d, 203.0.113.7", i+1))
			rec := httptest.NewRecorder()
			h(rec, req)
			last = rec.Code
		}
		assert.Equal(t, http.StatusTooManyRequests, last, "trustProxy=%v", trustProxy)
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remote     string
		headers    map[string]string
		trustProxy bool
		want       string
	}{
		{name: "remote addr", remote: "10.0.0.1:1234", want: "10.0.0.1"},
		{name: "ipv6 remote addr", remote: "[::1]:1234", want: "::1"},
		{name: "forwarded for trusted takes last hop", remote: "10.0.0.1:1234", headers: map[string]string{"X-Forwarded-For": "198.51.100.1, 203.0.113.9"}, trustProxy: true, want: "203.0.113.9"},
		{name: "forwarded for single entry", remote: "10.0.0.1:1234", headers: map[string]string{"X-Forwarded-For": "203.0.113.9"}, trustProxy: true, want: "203.0.113.9"},
		{name: "real ip trusted", remote: "10.0.0.1:1234", headers: map[string]string{"X-Real-IP": "203.0.113.7"}, trustProxy: true, want: "203.0.113.7"},
		{name: "forwarded for ignored", remote: "10.0.0.1:1234", headers: map[string]string{"X-Forwarded-For": "203.0.113.9"}, want: "10.0.0.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, ClientIP(req, tt.trustProxy))
		})
	}
}
