// Package openai implements the llm.Client interface against any
// OpenAI-compatible chat-completion endpoint.
package openai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	openai "github.com/sashabaranov/go-openai"

	"github.com/benjamin1108/reinvent-insight/internal/llm"
	"github.com/benjamin1108/reinvent-insight/internal/source"
)

// ProviderName is the key this client registers under.
const ProviderName = "openai"

// Client calls an OpenAI-compatible chat-completion API.
type Client struct {
	logger *slog.Logger
	client *openai.Client
}

// New creates an OpenAI client. baseURL may be empty to use the default
// endpoint, or point at any compatible gateway.
func New(apiKey, baseURL string, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	if apiKey == "" {
		return nil, fmt.Errorf("%w: openai API key cannot be empty", llm.ErrInvalidConfig)
	}

	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}

	return &Client{
		logger: logger.With("component", "openai_client"),
		client: openai.NewClientWithConfig(config),
	}, nil
}

// Name returns the provider key.
func (c *Client) Name() string {
	return ProviderName
}

// Generate implements llm.Client.
func (c *Client) Generate(
	ctx context.Context,
	prompt string,
	params llm.GenerationParams,
) (string, error) {
	if prompt == "" {
		return "", fmt.Errorf("%w: empty prompt", llm.ErrInvalidConfig)
	}

	return c.complete(ctx, prompt, params)
}

// GenerateWithSource implements llm.Client. Chat-completion endpoints have
// no file-reference input, so transcript sources are inlined after the
// prompt and document sources are rejected.
func (c *Client) GenerateWithSource(
	ctx context.Context,
	prompt string,
	src source.Content,
	params llm.GenerationParams,
) (string, error) {
	switch src.Kind {
	case source.KindTranscript:
		return c.complete(ctx, prompt+"\n\n"+src.Text, params)
	case source.KindDocument:
		return "", fmt.Errorf(
			"%w: openai provider does not support file-augmented calls", llm.ErrInvalidConfig)
	default:
		return "", fmt.Errorf("%w: %q", source.ErrUnsupportedSource, src.Kind)
	}
}

func (c *Client) complete(
	ctx context.Context,
	prompt string,
	params llm.GenerationParams,
) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       params.Model,
		Temperature: params.Temperature,
		MaxTokens:   params.MaxOutputTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", classifyError(err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices", llm.ErrInvalidResponse)
	}

	choice := resp.Choices[0]
	if choice.FinishReason == openai.FinishReasonContentFilter {
		return "", fmt.Errorf("%w: content filter", llm.ErrContentBlocked)
	}

	text := choice.Message.Content
	if text == "" {
		return "", fmt.Errorf("%w: empty choice content", llm.ErrInvalidResponse)
	}

	c.logger.Debug("openai response received",
		"model", params.Model,
		"response_length", len(text))

	return text, nil
}

// classifyError maps transport and API failures onto the llm taxonomy.
func classifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return err
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.HTTPStatusCode == http.StatusTooManyRequests:
			return fmt.Errorf("%w: %v", llm.ErrRateLimited, err)
		case apiErr.HTTPStatusCode >= http.StatusInternalServerError:
			return fmt.Errorf("%w: %v", llm.ErrProviderUnavailable, err)
		default:
			return fmt.Errorf("%w: %v", llm.ErrInvalidResponse, err)
		}
	}

	// Anything else is a network-level failure and worth retrying.
	return fmt.Errorf("%w: %v", llm.ErrProviderUnavailable, err)
}
