package ratelimit

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(max int, window time.Duration) (*MemoryRateLimiter, *time.Time) {
	limiter := NewMemoryRateLimiter(&Config{WindowSize: window, MaxAttempts: max})
	clock := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return clock }
	return limiter, &clock
}

func TestAllowWithinWindow(t *testing.T) {
	limiter, clock := newTestLimiter(2, time.Minute)
	defer limiter.Close()

	allowed, info := limiter.Allow("a")
	assert.True(t, allowed)
	assert.Equal(t, 1, info.Remaining)

	allowed, info = limiter.Allow("a")
	assert.True(t, allowed)
	assert.Equal(t, 0, info.Remaining)

	allowed, info = limiter.Allow("a")
	assert.False(t, allowed)
	assert.False(t, info.Banned)
	assert.Equal(t, time.Minute, info.RetryAfter)

	allowed, _ = limiter.Allow("b")
	assert.True(t, allowed, "keys are independent")

	*clock = clock.Add(time.Minute)
	allowed, _ = limiter.Allow("a")
	assert.True(t, allowed, "window reset")
}

func TestBanDuration(t *testing.T) {
	limiter := NewMemoryRateLimiter(&Config{WindowSize: time.Minute, MaxAttempts: 1, BanDuration: time.Hour})
	defer limiter.Close()
	clock := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return clock }

	allowed, _ := limiter.Allow("a")
	require.True(t, allowed)
	allowed, info := limiter.Allow("a")
	require.False(t, allowed)
	assert.True(t, info.Banned)

	clock = clock.Add(2 * time.Minute)
	allowed, _ = limiter.Allow("a")
	assert.False(t, allowed, "still banned after the window")

	clock = clock.Add(time.Hour)
	allowed, _ = limiter.Allow("a")
	assert.True(t, allowed, "ban expired")
}

func TestGetClientIP(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "10.0.0.1:5555"
	assert.Equal(t, "10.0.0.1", GetClientIP(r))

	r.Header.Set("X-Real-IP", "10.0.0.2")
	assert.Equal(t, "10.0.0.2", GetClientIP(r))

	r.Header.Set("X-Forwarded-For", " 192.168.1.9 , 10.0.0.3")
	assert.Equal(t, "192.168.1.9", GetClientIP(r))
}
