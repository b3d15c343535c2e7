package llm

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// KeyedLimiter enforces a minimum interval between calls per provider key,
// shared across all tasks, to respect upstream quotas. Waiting is
// cooperative: a blocked caller parks its goroutine without holding the
// limiter lock across the wait.
type KeyedLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	interval func(key string) time.Duration
}

// NewKeyedLimiter creates a limiter whose per-key interval is resolved
// through the given function each time a new key is first seen.
func NewKeyedLimiter(interval func(key string) time.Duration) *KeyedLimiter {
	return &KeyedLimiter{
		limiters: make(map[string]*rate.Limiter),
		interval: interval,
	}
}

// Wait blocks until the next call for key is permitted or ctx is done.
func (l *KeyedLimiter) Wait(ctx context.Context, key string) error {
	return l.limiterFor(key).Wait(ctx)
}

// limiterFor returns the limiter for key, creating it on first use. The
// lock covers only the map access, never the wait itself.
func (l *KeyedLimiter) limiterFor(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	lim, ok := l.limiters[key]
	if !ok {
		interval := l.interval(key)
		if interval <= 0 {
			lim = rate.NewLimiter(rate.Inf, 1)
		} else {
			lim = rate.NewLimiter(rate.Every(interval), 1)
		}
		l.limiters[key] = lim
	}

	return lim
}
