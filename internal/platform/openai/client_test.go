package openai

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benjamin1108/reinvent-insight/internal/llm"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	t.Run("missing API key", func(t *testing.T) {
		t.Parallel()

		_, err := New("", "", testLogger())
		assert.ErrorIs(t, err, llm.ErrInvalidConfig)
	})

	t.Run("nil logger", func(t *testing.T) {
		t.Parallel()

		_, err := New("key", "", nil)
		assert.Error(t, err)
	})

	t.Run("valid", func(t *testing.T) {
		t.Parallel()

		client, err := New("key", "http://localhost:9999/v1", testLogger())
		require.NoError(t, err)
		assert.Equal(t, ProviderName, client.Name())
	})
}

func TestClassifyError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		err     error
		wantIs  error
	}{
		{
			name:   "429 maps to rate limited",
			err:    &openai.APIError{HTTPStatusCode: http.StatusTooManyRequests},
			wantIs: llm.ErrRateLimited,
		},
		{
			name:   "503 maps to provider unavailable",
			err:    &openai.APIError{HTTPStatusCode: http.StatusServiceUnavailable},
			wantIs: llm.ErrProviderUnavailable,
		},
		{
			name:   "400 maps to permanent invalid response",
			err:    &openai.APIError{HTTPStatusCode: http.StatusBadRequest},
			wantIs: llm.ErrInvalidResponse,
		},
		{
			name:   "network error maps to provider unavailable",
			err:    errors.New("connection refused"),
			wantIs: llm.ErrProviderUnavailable,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got := classifyError(tc.err)
			assert.ErrorIs(t, got, tc.wantIs)
		})
	}
}

func TestClassifyError_TransientAgreement(t *testing.T) {
	t.Parallel()

	// Rate-limit and 5xx classifications must be retryable; 4xx must not.
	assert.True(t, llm.IsTransient(classifyError(&openai.APIError{HTTPStatusCode: 429})))
	assert.True(t, llm.IsTransient(classifyError(&openai.APIError{HTTPStatusCode: 500})))
	assert.False(t, llm.IsTransient(classifyError(&openai.APIError{HTTPStatusCode: 404})))
}
