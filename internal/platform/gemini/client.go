// Package gemini implements the llm.Client interface on top of Google's
// Gemini API. It performs exactly one upstream call per invocation; rate
// limiting and retry live in the llm package.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"google.golang.org/genai"

	"github.com/benjamin1108/reinvent-insight/internal/llm"
	"github.com/benjamin1108/reinvent-insight/internal/source"
)

// ProviderName is the key this client registers under.
const ProviderName = "gemini"

// Client calls the Gemini API for plain and file-augmented generation.
type Client struct {
	logger *slog.Logger
	client *genai.Client
}

// New creates a Gemini client.
func New(ctx context.Context, apiKey string, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	if apiKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", llm.ErrInvalidConfig)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create gemini client: %v", llm.ErrInvalidConfig, err)
	}

	return &Client{
		logger: logger.With("component", "gemini_client"),
		client: client,
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

	return c.generate(ctx, genai.Text(prompt), params)
}

// GenerateWithSource implements llm.Client. Document sources are passed as
// file parts; transcript sources are inlined after the prompt.
func (c *Client) GenerateWithSource(
	ctx context.Context,
	prompt string,
	src source.Content,
	params llm.GenerationParams,
) (string, error) {
	if prompt == "" {
		return "", fmt.Errorf("%w: empty prompt", llm.ErrInvalidConfig)
	}

	parts := []*genai.Part{genai.NewPartFromText(prompt)}
	switch src.Kind {
	case source.KindDocument:
		if src.FileURI == "" {
			return "", fmt.Errorf("%w: document source has no file URI", llm.ErrInvalidConfig)
		}
		parts = append(parts, genai.NewPartFromURI(src.FileURI, src.MIMEType))
	case source.KindTranscript:
		parts = append(parts, genai.NewPartFromText(src.Text))
	default:
		return "", fmt.Errorf("%w: %q", source.ErrUnsupportedSource, src.Kind)
	}

	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
	return c.generate(ctx, contents, params)
}

// generate performs the upstream call and maps failures onto the llm error
// taxonomy. Transport errors are assumed transient; malformed or blocked
// responses are permanent.
func (c *Client) generate(
	ctx context.Context,
	contents []*genai.Content,
	params llm.GenerationParams,
) (string, error) {
	config := &genai.GenerateContentConfig{}
	if params.Temperature > 0 {
		config.Temperature = genai.Ptr(params.Temperature)
	}
	if params.MaxOutputTokens > 0 {
		config.MaxOutputTokens = int32(params.MaxOutputTokens)
	}

	resp, err := c.client.Models.GenerateContent(ctx, params.Model, contents, config)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return "", err
		}
		return "", fmt.Errorf("%w: %v", llm.ErrProviderUnavailable, err)
	}

	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("%w: no candidates", llm.ErrInvalidResponse)
	}

	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety {
		return "", fmt.Errorf("%w: safety filters", llm.ErrContentBlocked)
	}
	if candidate.Content == nil {
		return "", fmt.Errorf("%w: empty candidate content", llm.ErrInvalidResponse)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("%w: empty response text", llm.ErrInvalidResponse)
	}

	c.logger.Debug("gemini response received",
		"model", params.Model,
		"response_length", len(text))

	return text, nil
}
