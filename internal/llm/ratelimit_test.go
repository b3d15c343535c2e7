package llm

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyedLimiter_MinimumInterval(t *testing.T) {
	t.Parallel()

	const interval = 100 * time.Millisecond

	limiter := NewKeyedLimiter(func(string) time.Duration { return interval })

	// Two concurrent callers against the same key: the second grant must
	// not come before the interval has elapsed since the first.
	var (
		mu     sync.Mutex
		grants []time.Time
		wg     sync.WaitGroup
	)

	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			require.NoError(t, limiter.Wait(context.Background(), "gemini"))
			mu.Lock()
			grants = append(grants, time.Now())
			mu.Unlock()
		}()
	}
	wg.Wait()

	require.Len(t, grants, 2)
	gap := grants[1].Sub(grants[0])
	if gap < 0 {
		gap = -gap
	}
	assert.GreaterOrEqual(t, gap, interval-5*time.Millisecond,
		"second call started %v after the first, want at least %v", gap, interval)
}

func TestKeyedLimiter_IndependentKeys(t *testing.T) {
	t.Parallel()

	limiter := NewKeyedLimiter(func(string) time.Duration { return 500 * time.Millisecond })

	// First grant per key is immediate; different keys do not throttle
	// each other.
	start := time.Now()
	require.NoError(t, limiter.Wait(context.Background(), "gemini"))
	require.NoError(t, limiter.Wait(context.Background(), "openai"))
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestKeyedLimiter_ZeroIntervalNeverBlocks(t *testing.T) {
	t.Parallel()

	limiter := NewKeyedLimiter(func(string) time.Duration { return 0 })

	start := time.Now()
	for i := 0; i < 10; i++ {
		require.NoError(t, limiter.Wait(context.Background(), "fast"))
	}
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestKeyedLimiter_WaitHonorsContext(t *testing.T) {
	t.Parallel()

	limiter := NewKeyedLimiter(func(string) time.Duration { return time.Minute })

	require.NoError(t, limiter.Wait(context.Background(), "slow"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := limiter.Wait(ctx, "slow")
	assert.Error(t, err)
}
