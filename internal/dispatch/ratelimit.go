package dispatch

import (
	"time"
)

type RateLimiter struct {
	store *StateStore
}

func NewRateLimiter(store *StateStore) *RateLimiter {
	return &RateLimiter{store: store}
}

// Allow records a send for sourceID if fewer than MaxPerWindow sends
// happened in the trailing window. A denied send leaves no trace.
func (l *RateLimiter) Allow(cfg RateLimitConfig, sourceID string, now time.Time) bool {
	allowed, _ := l.allow(cfg, sourceID, now)
	return allowed
}

// allow is Allow plus a function handing the recorded slot back.
func (l *RateLimiter) allow(cfg RateLimitConfig, sourceID string, now time.Time) (bool, func()) {
	if !cfg.Enabled {
		return true, nil
	}
	window := windowOf(cfg.WindowSeconds)
	limit := cfg.MaxPerWindow
	if limit < 1 {
		limit = 1
	}

	allowed := false
	l.store.With(sourceID, func(st *sourceState) {
		i := 0
		for i < len(st.sends) && now.Sub(st.sends[i]) > window {
			i++
		}
		st.sends = st.sends[i:]

		if len(st.sends) >= limit {
			return
		}
		st.sends = append(st.sends, now)
		allowed = true
	})
	if !allowed {
		return false, nil
	}

	return true, func() {
		l.store.With(sourceID, func(st *sourceState) {
			for i := len(st.sends) - 1; i >= 0; i-- {
				if st.sends[i].Equal(now) {
					st.sends = append(st.sends[:i], st.sends[i+1:]...)
					return
				}
			}
		})
	}
}
