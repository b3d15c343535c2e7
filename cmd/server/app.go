package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/benjamin1108/reinvent-insight/internal/config"
	"github.com/benjamin1108/reinvent-insight/internal/llm"
	"github.com/benjamin1108/reinvent-insight/internal/pipeline"
	"github.com/benjamin1108/reinvent-insight/internal/platform/gemini"
	"github.com/benjamin1108/reinvent-insight/internal/platform/logger"
	"github.com/benjamin1108/reinvent-insight/internal/platform/openai"
	"github.com/benjamin1108/reinvent-insight/internal/prompt"
	"github.com/benjamin1108/reinvent-insight/internal/source"
	"github.com/benjamin1108/reinvent-insight/internal/task"
)

// application holds the fully wired dependencies of the running server.
type application struct {
	config   *config.Config
	logger   *slog.Logger
	registry *llm.Registry
	engine   *pipeline.Engine
	manager  *task.Manager
}

// initializeApp loads configuration and wires all application components:
// logging, provider clients, the rate-limited generation client, the report
// pipeline and the task manager.
func initializeApp() (*application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.Setup(cfg.Server)
	if err != nil {
		return nil, fmt.Errorf("failed to set up logger: %w", err)
	}

	log.Info("server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"routes", len(cfg.Tasks.Routes))

	registry := llm.NewRegistry(routesFromConfig(cfg.Tasks.Routes))

	providers, err := buildProviders(context.Background(), cfg, log)
	if err != nil {
		return nil, err
	}

	// One limiter shared by all routes, keyed by provider, seeded with the
	// strictest interval configured for each provider.
	limiter := llm.NewKeyedLimiter(registry.ProviderInterval)

	client, err := llm.NewRetryingClient(providers, limiter, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create generation client: %w", err)
	}

	prompts, err := prompt.NewBuilder()
	if err != nil {
		return nil, fmt.Errorf("failed to load prompt templates: %w", err)
	}

	engine, err := pipeline.NewEngine(
		client,
		registry,
		prompts,
		source.NewInlineResolver(),
		pipeline.Config{ChapterConcurrency: cfg.Tasks.ChapterConcurrency},
		log,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline engine: %w", err)
	}

	manager := task.NewManager(task.ManagerConfig{
		ChannelCapacity: cfg.Tasks.ChannelCapacity,
		Retention:       cfg.Tasks.Retention,
	}, log)

	return &application{
		config:   cfg,
		logger:   log,
		registry: registry,
		engine:   engine,
		manager:  manager,
	}, nil
}

// buildProviders creates the configured provider clients. Gemini is always
// present; OpenAI joins when its API key is configured.
func buildProviders(
	ctx context.Context,
	cfg *config.Config,
	log *slog.Logger,
) (map[string]llm.Client, error) {
	providers := make(map[string]llm.Client)

	geminiClient, err := gemini.New(ctx, cfg.LLM.GeminiAPIKey, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	providers[gemini.ProviderName] = geminiClient

	if cfg.LLM.OpenAIAPIKey != "" {
		openaiClient, err := openai.New(cfg.LLM.OpenAIAPIKey, cfg.LLM.OpenAIBaseURL, log)
		if err != nil {
			return nil, fmt.Errorf("failed to create openai client: %w", err)
		}
		providers[openai.ProviderName] = openaiClient
	}

	log.Info("provider clients initialized", "count", len(providers))
	return providers, nil
}

// routesFromConfig converts the configured routes into the registry's shape.
func routesFromConfig(routes map[string]config.RouteConfig) map[string]llm.Route {
	out := make(map[string]llm.Route, len(routes))
	for taskType, rc := range routes {
		out[taskType] = llm.Route{
			Provider:          rc.Provider,
			Model:             rc.Model,
			Temperature:       rc.Temperature,
			MaxOutputTokens:   rc.MaxOutputTokens,
			RateLimitInterval: rc.RateLimitInterval,
			MaxRetries:        rc.MaxRetries,
			RetryBaseDelay:    rc.RetryBaseDelay,
			CallTimeout:       rc.CallTimeout,
		}
	}
	return out
}

// cleanup releases application resources after the HTTP server has stopped.
func (app *application) cleanup() {
	// Cancels running tasks and stops the retention sweeper.
	app.manager.Close()
}
