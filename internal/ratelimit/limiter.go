// Package ratelimit throttles outbound REST calls per endpoint class.
package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// Class identifies which limiter bucket a request draws from. Public quote
// endpoints and private account endpoints have separate budgets.
const (
	ClassPublic  = "public"
	ClassPrivate = "private"
)

// Limiter provides a global limit plus per-class buckets created on demand.
type Limiter struct {
	global   *rate.Limiter
	mu       sync.Mutex
	classes  map[string]*rate.Limiter
	requests int
	period   time.Duration

	totalRequests  atomic.Int64
	deniedRequests atomic.Int64
}

// New creates a Limiter allowing the given number of requests per period,
// applied globally and independently per class.
func New(requests int, period time.Duration) *Limiter {
	rps := float64(requests) / period.Seconds()
	return &Limiter{
		global:   rate.NewLimiter(rate.Limit(rps), requests),
		classes:  make(map[string]*rate.Limiter),
		requests: requests,
		period:   period,
	}
}

// Wait blocks until both the global and the class limiter admit a request,
// or the context is cancelled.
func (l *Limiter) Wait(ctx context.Context, class string) error {
	l.totalRequests.Add(1)
	if err := l.global.Wait(ctx); err != nil {
		l.deniedRequests.Add(1)
		return err
	}
	if err := l.class(class).Wait(ctx); err != nil {
		l.deniedRequests.Add(1)
		return err
	}
	return nil
}

// Allow reports whether a request for the class may proceed immediately.
func (l *Limiter) Allow(class string) bool {
	l.totalRequests.Add(1)
	if !l.global.Allow() {
		l.deniedRequests.Add(1)
		return false
	}
	if !l.class(class).Allow() {
		l.deniedRequests.Add(1)
		return false
	}
	return true
}

// Stats returns the total and denied request counts observed so far.
func (l *Limiter) Stats() (total, denied int64) {
	return l.totalRequests.Load(), l.deniedRequests.Load()
}

func (l *Limiter) class(name string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if limiter, ok := l.classes[name]; ok {
		return limiter
	}

	rps := float64(l.requests) / l.period.Seconds()
	limiter := rate.NewLimiter(rate.Limit(rps), l.requests)
	l.classes[name] = limiter
	return limiter
}
