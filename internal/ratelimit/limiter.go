// Package ratelimit keeps one token bucket per window.
package ratelimit

import (
	"sync"

	"golang.org/x/time/rate"
)

// Limiter manages rate limits for many windows
type Limiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.Mutex
	rate     rate.Limit
	burst    int
}

// NewLimiter creates a limiter allowing r events per second per key, with
// bursts of up to burst events
func NewLimiter(r rate.Limit, burst int) *Limiter {
	return &Limiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     r,
		burst:    burst,
	}
}

// PerHour converts a number of events per hour to a rate
func PerHour(events int) rate.Limit {
	return rate.Limit(float64(events) / 3600.0)
}

// Get returns the bucket of key, creating it full on first use
func (l *Limiter) Get(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	limiter, exists := l.limiters[key]
	if !exists {
		limiter = rate.NewLimiter(l.rate, l.burst)
		l.limiters[key] = limiter
	}

	return limiter
}

// Allow checks if an event is allowed for key
func (l *Limiter) Allow(key string) bool {
	return l.Get(key).Allow()
}

// Tokens returns the number of events key may still burst
func (l *Limiter) Tokens(key string) float64 {
	return l.Get(key).Tokens()
}

// Burst returns the bucket size
func (l *Limiter) Burst() int {
	return l.burst
}

// Forget drops the bucket of key, e.g. once its window closed
func (l *Limiter) Forget(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.limiters, key)
}

// Len returns the number of tracked keys
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}
