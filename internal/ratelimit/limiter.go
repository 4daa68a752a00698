// Package ratelimit provides a token bucket used to pace marketplace
// write calls (price updates, relists), which have much tighter quotas
// than the read APIs.
package ratelimit

import (
	"sync"
	"time"
)

// Limiter implements a token bucket rate limiter.
type Limiter struct {
	tokens     int
	maxTokens  int
	refillRate time.Duration
	mu         sync.Mutex
	lastRefill time.Time
}

// NewLimiter creates a token bucket holding at most maxTokens, gaining
// one token every refillRate.
func NewLimiter(maxTokens int, refillRate time.Duration) *Limiter {
	return &Limiter{
		tokens:     maxTokens,
		maxTokens:  maxTokens,
		refillRate: refillRate,
		lastRefill: time.Now(),
	}
}

// Allow consumes a token if one is available.
func (l *Limiter) Allow() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.refill()
	if l.tokens > 0 {
		l.tokens--
		return true
	}
	return false
}

// Wait blocks until a token is available.
func (l *Limiter) Wait() {
	for !l.Allow() {
		time.Sleep(l.refillRate / time.Duration(l.maxTokens))
	}
}

// WaitWithTimeout waits for a token, giving up after timeout. Returns
// true if a token was acquired.
func (l *Limiter) WaitWithTimeout(timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if l.Allow() {
			return true
		}
		sleep := l.refillRate / time.Duration(l.maxTokens)
		if remaining := time.Until(deadline); sleep > remaining {
			sleep = remaining
		}
		if sleep > 0 {
			time.Sleep(sleep)
		}
	}
	return false
}

// refill adds tokens earned since the last refill. Caller holds mu.
func (l *Limiter) refill() {
	now := time.Now()
	earned := int(now.Sub(l.lastRefill) / l.refillRate)
	if earned > 0 {
		l.tokens = min(l.maxTokens, l.tokens+earned)
		l.lastRefill = now
	}
}

// WriteLimiters holds per-platform throttles for mutating API calls.
type WriteLimiters struct {
	EBay *Limiter
	Etsy *Limiter
}

// NewDefaultWriteLimiters returns throttles matching each platform's
// documented write quota, with headroom.
func NewDefaultWriteLimiters() *WriteLimiters {
	return &WriteLimiters{
		// eBay Trading API: 5,000 calls/day for most apps. One call per
		// second keeps bulk repricing well inside the budget.
		EBay: NewLimiter(5, time.Second),
		// Etsy v3: 10 requests per second per app shared across
		// endpoints. Stay conservative on writes.
		Etsy: NewLimiter(5, 500*time.Millisecond),
	}
}
