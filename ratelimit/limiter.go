// Package ratelimit throttles deliveries per webhook with token buckets.
package ratelimit

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// Limiter keeps one token bucket per key. The bucket holds perSecond tokens
// and starts full.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
}

type bucket struct {
	lim       *rate.Limiter
	perSecond int
}

// New creates an empty Limiter.
func New() *Limiter {
	return &Limiter{buckets: make(map[string]*bucket)}
}

// Allow takes a token for key if one is available. perSecond <= 0 means
// unlimited.
func (l *Limiter) Allow(key string, perSecond int) bool {
	if perSecond <= 0 {
		return true
	}
	return l.get(key, perSecond).Allow()
}

// Wait blocks until key may proceed or ctx is done.
func (l *Limiter) Wait(ctx context.Context, key string, perSecond int) error {
	if perSecond <= 0 {
		return nil
	}
	return l.get(key, perSecond).Wait(ctx)
}

// Reset drops the bucket for key.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.buckets, key)
}

// get returns the bucket for key, retuning it when the configured rate
// changed since it was created.
func (l *Limiter) get(key string, perSecond int) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{
			lim:       rate.NewLimiter(rate.Limit(perSecond), perSecond),
			perSecond: perSecond,
		}
		l.buckets[key] = b
		return b.lim
	}
	if b.perSecond != perSecond {
		b.lim.SetLimit(rate.Limit(perSecond))
		b.lim.SetBurst(perSecond)
		b.perSecond = perSecond
	}
	return b.lim
}
