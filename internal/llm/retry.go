package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"github.com/benjamin1108/reinvent-insight/internal/source"
)

// RetryingClient fronts the closed set of configured providers. For each
// call it waits on the shared per-provider rate limiter, applies the
// route's per-call timeout, retries transient failures with exponential
// backoff and jitter, and logs every attempt with its duration and
// outcome. Callers see a single fallible call; no retry is hidden beyond
// this boundary.
type RetryingClient struct {
	providers map[string]Client
	limiter   *KeyedLimiter
	logger    *slog.Logger
}

// NewRetryingClient creates a RetryingClient over the given providers,
// keyed by provider name.
func NewRetryingClient(
	providers map[string]Client,
	limiter *KeyedLimiter,
	logger *slog.Logger,
) (*RetryingClient, error) {
	if len(providers) == 0 {
		return nil, fmt.Errorf("%w: no providers configured", ErrInvalidConfig)
	}
	if limiter == nil {
		return nil, errors.New("limiter cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	return &RetryingClient{
		providers: providers,
		limiter:   limiter,
		logger:    logger.With("component", "llm_client"),
	}, nil
}

// Generate performs a plain-text generation call via the route's provider.
func (c *RetryingClient) Generate(ctx context.Context, route Route, prompt string) (string, error) {
	provider, err := c.providerFor(route)
	if err != nil {
		return "", err
	}

	return c.callWithRetry(ctx, route, func(callCtx context.Context) (string, error) {
		return provider.Generate(callCtx, prompt, route.Params())
	})
}

// GenerateWithSource performs a source-augmented generation call via the
// route's provider.
func (c *RetryingClient) GenerateWithSource(
	ctx context.Context,
	route Route,
	prompt string,
	src source.Content,
) (string, error) {
	provider, err := c.providerFor(route)
	if err != nil {
		return "", err
	}

	return c.callWithRetry(ctx, route, func(callCtx context.Context) (string, error) {
		return provider.GenerateWithSource(callCtx, prompt, src, route.Params())
	})
}

func (c *RetryingClient) providerFor(route Route) (Client, error) {
	provider, ok := c.providers[route.Provider]
	if !ok {
		return nil, fmt.Errorf("%w: unknown provider %q", ErrInvalidConfig, route.Provider)
	}
	return provider, nil
}

// callWithRetry runs one provider call with rate limiting, per-call
// timeout, and bounded retry with exponential backoff and jitter.
func (c *RetryingClient) callWithRetry(
	ctx context.Context,
	route Route,
	call func(ctx context.Context) (string, error),
) (string, error) {
	maxRetries := route.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}

	baseDelay := route.RetryBaseDelay
	if baseDelay <= 0 {
		baseDelay = 2 * time.Second
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	logger := c.logger.With("provider", route.Provider, "model", route.Model)

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		// The shared limiter enforces the minimum inter-call interval per
		// provider key across all tasks.
		if err := c.limiter.Wait(ctx, route.Provider); err != nil {
			return "", fmt.Errorf("rate limiter wait interrupted: %w", err)
		}

		callCtx := ctx
		cancel := context.CancelFunc(func() {})
		if route.CallTimeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, route.CallTimeout)
		}

		start := time.Now()
		text, err := call(callCtx)
		duration := time.Since(start)
		cancel()

		if err == nil {
			logger.Info("provider call succeeded",
				"attempt", attempt+1,
				"duration_ms", duration.Milliseconds(),
				"response_length", len(text))
			return text, nil
		}

		// A per-call deadline hit is a transient failure; cancellation of
		// the caller's context is not.
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			err = fmt.Errorf("%w after %s", ErrTimeout, duration.Round(time.Millisecond))
		}

		logger.Error("provider call failed",
			"attempt", attempt+1,
			"max_attempts", maxRetries+1,
			"duration_ms", duration.Milliseconds(),
			"error", err)

		if !IsTransient(err) {
			return "", err
		}
		lastErr = err

		if attempt == maxRetries {
			break
		}

		// delay = base * 2^attempt * (0.5 + rand(0, 0.5))
		backoff := float64(baseDelay) * math.Pow(2, float64(attempt))
		jitter := 0.5 + rng.Float64()*0.5
		delay := time.Duration(backoff * jitter)

		logger.Info("retrying after backoff",
			"attempt", attempt+1,
			"delay_ms", delay.Milliseconds())

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", fmt.Errorf("retry wait interrupted: %w", ctx.Err())
		}
	}

	return "", fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, maxRetries+1, lastErr)
}
