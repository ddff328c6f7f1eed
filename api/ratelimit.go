package api

import (
	"sync"

	"golang.org/x/time/rate"
)

// tokenRateLimiter 按 token 维度限流：每个 token 独立的令牌桶。
type tokenRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rps      rate.Limit
	burst    int
}

func newTokenRateLimiter(rps float64, burst int) *tokenRateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &tokenRateLimiter{
		limiters: make(map[string]*rate.Limiter),
		rps:      rate.Limit(rps),
		burst:    burst,
	}
}

func (l *tokenRateLimiter) Allow(key string) bool {
	l.mu.Lock()
	lim, ok := l.limiters[key]
	if !ok {
		lim = rate.NewLimiter(l.rps, l.burst)
		l.limiters[key] = lim
	}
	l.mu.Unlock()
	return lim.Allow()
}
