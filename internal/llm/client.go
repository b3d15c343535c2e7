// Package llm provides the provider-neutral client abstraction over
// generative-text backends, together with the cross-task rate limiter,
// retry/backoff wrapper and the task-type route registry. Concrete
// providers live under internal/platform and implement Client.
package llm

import (
	"context"

	"github.com/benjamin1108/reinvent-insight/internal/source"
)

// GenerationParams are the per-call generation settings resolved from the
// route table for a task type.
type GenerationParams struct {
	Model           string
	Temperature     float32
	MaxOutputTokens int
}

// Client is the uniform interface over generative-text providers.
// Implementations perform exactly one upstream call per invocation; rate
// limiting and retry live in RetryingClient so that the pipeline engine
// always sees a single fallible call.
type Client interface {
	// Name returns the provider key used for rate limiting and logging
	Name() string

	// Generate produces text from a plain prompt
	Generate(ctx context.Context, prompt string, params GenerationParams) (string, error)

	// GenerateWithSource produces text from a prompt augmented with a
	// resolved source item (inline text or a file reference, depending on
	// what the provider supports)
	GenerateWithSource(
		ctx context.Context,
		prompt string,
		src source.Content,
		params GenerationParams,
	) (string, error)
}
