package handler

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// maxTrackedUsers bounds the limiter map before idle entries are dropped.
const maxTrackedUsers = 10_000

// UserLimiter throttles commands per user. A nil *UserLimiter allows
// everything.
type UserLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

// NewUserLimiter allows perMinute commands per user with short bursts.
// It returns nil when perMinute is not positive.
func NewUserLimiter(perMinute int) *UserLimiter {
	if perMinute <= 0 {
		return nil
	}
	return &UserLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    min(perMinute, 5),
	}
}

func (l *UserLimiter) Allow(userID string) bool {
	if l == nil {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	limiter, ok := l.limiters[userID]
	if !ok {
		if len(l.limiters) >= maxTrackedUsers {
			l.forgetIdle()
		}
		limiter = rate.NewLimiter(l.limit, l.burst)
		l.limiters[userID] = limiter
	}
	return limiter.Allow()
}

// forgetIdle drops limiters that have refilled completely.
func (l *UserLimiter) forgetIdle() {
	for id, limiter := range l.limiters {
		if limiter.Tokens() >= float64(l.burst) {
			delete(l.limiters, id)
		}
	}
}
