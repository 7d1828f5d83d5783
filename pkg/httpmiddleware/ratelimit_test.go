package httpmiddleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func hit(h http.Handler, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = remoteAddr
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestRateLimit_UnderLimit(t *testing.T) {
	h := newLimiter(RateLimitConfig{Max: 5, Window: time.Minute}).middleware(okHandler())

	for i := range 5 {
		w := hit(h, "192.168.1.1:12345")
		assert.Equal(t, http.StatusOK, w.Code, "request %d should pass", i+1)
		assert.Equal(t, "5", w.Header().Get("X-RateLimit-Limit"))
		assert.NotEmpty(t, w.Header().Get("X-RateLimit-Remaining"))
		assert.NotEmpty(t, w.Header().Get("X-RateLimit-Reset"))
	}
}

func TestRateLimit_OverLimit(t *testing.T) {
	h := newLimiter(RateLimitConfig{Max: 2, Window: time.Minute}).middleware(okHandler())

	for range 2 {
		require.Equal(t, http.StatusOK, hit(h, "10.0.0.1:9999").Code)
	}

	w := hit(h, "10.0.0.1:9999")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	var body map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, float64(429), body["code"])
	assert.Equal(t, "rate limit exceeded", body["message"])
}

func TestRateLimit_DifferentIPs(t *testing.T) {
	h := newLimiter(RateLimitConfig{Max: 1, Window: time.Minute}).middleware(okHandler())

	assert.Equal(t, http.StatusOK, hit(h, "10.0.0.1:1234").Code)
	assert.Equal(t, http.StatusOK, hit(h, "10.0.0.2:1234").Code)
	assert.Equal(t, http.StatusTooManyRequests, hit(h, "10.0.0.1:5678").Code)
}

func TestRateLimit_CustomKeyFunc(t *testing.T) {
	h := newLimiter(RateLimitConfig{
		Max:    1,
		Window: time.Minute,
		KeyFunc: func(r *http.Request) string {
			return r.Header.Get("X-Client")
		},
	}).middleware(okHandler())

	do := func(client string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Client", client)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, do("a"))
	assert.Equal(t, http.StatusTooManyRequests, do("a"))
	assert.Equal(t, http.StatusOK, do("b"))
}

func TestLimiter_WindowSlides(t *testing.T) {
	l := newLimiter(RateLimitConfig{Max: 2, Window: time.Minute})
	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	_, _, ok := l.take("k", base)
	require.True(t, ok)
	_, _, ok = l.take("k", base.Add(time.Second))
	require.True(t, ok)
	_, _, ok = l.take("k", base.Add(2*time.Second))
	require.False(t, ok, "window is full")

	// Halfway through the next window the previous count weighs 50%.
	_, _, ok = l.take("k", base.Add(90*time.Second))
	assert.True(t, ok)

	// Two windows later everything is forgotten.
	remaining, _, ok := l.take("k", base.Add(5*time.Minute))
	assert.True(t, ok)
	assert.Equal(t, 1, remaining)
}

func TestLimiter_Sweep(t *testing.T) {
	l := newLimiter(RateLimitConfig{Max: 1, Window: time.Minute})
	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	l.take("old", base)
	l.take("fresh", base.Add(3*time.Minute))

	l.sweep(base.Add(3 * time.Minute))

	assert.NotContains(t, l.counters, "old")
	assert.Contains(t, l.counters, "fresh")
}

func TestClientKeys(t *testing.T) {
	tests := []struct {
		name      string
		header    map[string]string
		remote    string
		remoteIP  string
		forwarded string
	}{
		{name: "forwarded for list", header: map[string]string{"X-Forwarded-For": " 1.1.1.1 , 2.2.2.2"}, remote: "9.9.9.9:1", remoteIP: "9.9.9.9", forwarded: "1.1.1.1"},
		{name: "real ip", header: map[string]string{"X-Real-IP": "3.3.3.3"}, remote: "9.9.9.9:1", remoteIP: "9.9.9.9", forwarded: "3.3.3.3"},
		{name: "empty forwarded hop", header: map[string]string{"X-Forwarded-For": " , 2.2.2.2"}, remote: "9.9.9.9:1", remoteIP: "9.9.9.9", forwarded: "9.9.9.9"},
		{name: "remote addr", remote: "9.9.9.9:1", remoteIP: "9.9.9.9", forwarded: "9.9.9.9"},
		{name: "remote without port", remote: "9.9.9.9", remoteIP: "9.9.9.9", forwarded: "9.9.9.9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.remoteIP, RemoteIP(req))
			assert.Equal(t, tt.forwarded, ForwardedClientIP(req))
		})
	}
}

func TestRateLimit_IgnoresForwardedHeadersByDefault(t *testing.T) {
	h := newLimiter(RateLimitConfig{Max: 1, Window: time.Minute}).middleware(okHandler())

	do := func(xff string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		req.Header.Set("X-Forwarded-For", xff)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, do("1.1.1.1"))
	assert.Equal(t, http.StatusTooManyRequests, do("2.2.2.2"), "spoofed header must not open a new bucket")
}

func TestRateLimit_TrustedProxy(t *testing.T) {
	h := newLimiter(RateLimitConfig{Max: 1, Window: time.Minute, KeyFunc: ForwardedClientIP}).middleware(okHandler())

	do := func(xff string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		req.Header.Set("X-Forwarded-For", xff)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, do("1.1.1.1"))
	assert.Equal(t, http.StatusOK, do("2.2.2.2"))
	assert.Equal(t, http.StatusTooManyRequests, do("1.1.1.1"))
}
