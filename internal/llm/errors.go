package llm

import "errors"

// Common errors returned by provider clients. Transient errors are retried
// by the RetryingClient; permanent errors surface to the caller immediately.
var (
	// ErrRateLimited is returned when the upstream provider rejects a call
	// for quota reasons (transient)
	ErrRateLimited = errors.New("provider rate limit exceeded")

	// ErrProviderUnavailable is returned for upstream failures that may
	// resolve on retry, such as 5xx responses or network errors (transient)
	ErrProviderUnavailable = errors.New("provider temporarily unavailable")

	// ErrTimeout is returned when a call exceeds its per-call deadline (transient)
	ErrTimeout = errors.New("provider call timed out")

	// ErrContentBlocked is returned when the provider blocks the content,
	// for example via safety filters (permanent)
	ErrContentBlocked = errors.New("content blocked by provider")

	// ErrInvalidResponse is returned when the provider response is empty
	// or cannot be interpreted (permanent)
	ErrInvalidResponse = errors.New("invalid response from provider")

	// ErrInvalidConfig is returned when a provider client is constructed
	// or invoked with unusable configuration (permanent)
	ErrInvalidConfig = errors.New("invalid provider configuration")

	// ErrRetriesExhausted wraps the last transient failure once the retry
	// budget is spent
	ErrRetriesExhausted = errors.New("provider retries exhausted")

	// ErrUnknownTaskType is returned when no route exists for a task type
	ErrUnknownTaskType = errors.New("no provider route for task type")
)

// IsTransient reports whether an error is eligible for retry.
func IsTransient(err error) bool {
	return errors.Is(err, ErrRateLimited) ||
		errors.Is(err, ErrProviderUnavailable) ||
		errors.Is(err, ErrTimeout)
}
