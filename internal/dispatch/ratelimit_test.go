package dispatch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_DeniesNPlusOne(t *testing.T) {
	l := NewRateLimiter(NewStateStore(4))
	cfg := RateLimitConfig{Enabled: true, MaxPerWindow: 3, WindowSeconds: 60}

	for i := 0; i < 3; i++ {
		assert.True(t, l.Allow(cfg, "com.example.chat", t0.Add(time.Duration(i)*time.Second)))
	}
	assert.False(t, l.Allow(cfg, "com.example.chat", t0.Add(10*time.Second)))
	assert.True(t, l.Allow(cfg, "com.example.mail", t0.Add(10*time.Second)))

	// first send ages out after the window
	assert.True(t, l.Allow(cfg, "com.example.chat", t0.Add(61*time.Second)))
	assert.False(t, l.Allow(cfg, "com.example.chat", t0.Add(61*time.Second)))
}

func TestRateLimiter_DenialDoesNotConsume(t *testing.T) {
	l := NewRateLimiter(NewStateStore(4))
	cfg := RateLimitConfig{Enabled: true, MaxPerWindow: 1, WindowSeconds: 10}

	assert.True(t, l.Allow(cfg, "s", t0))
	for i := 1; i <= 5; i++ {
		assert.False(t, l.Allow(cfg, "s", t0.Add(time.Duration(i)*time.Second)))
	}
	assert.True(t, l.Allow(cfg, "s", t0.Add(11*time.Second)))
}

func TestRateLimiter_Disabled(t *testing.T) {
	l := NewRateLimiter(NewStateStore(4))
	for i := 0; i < 100; i++ {
		assert.True(t, l.Allow(RateLimitConfig{}, "s", t0))
	}
}

func TestRateLimiter_ZeroLimitMeansOne(t *testing.T) {
	l := NewRateLimiter(NewStateStore(4))
	cfg := RateLimitConfig{Enabled: true}

	assert.True(t, l.Allow(cfg, "s", t0))
	assert.False(t, l.Allow(cfg, "s", t0.Add(500*time.Millisecond)))
	assert.True(t, l.Allow(cfg, "s", t0.Add(1500*time.Millisecond)))
}
