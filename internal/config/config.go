package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server ServerConfig `mapstructure:"server" validate:"required"`
	LLM    LLMConfig    `mapstructure:"llm" validate:"required"`
	Tasks  TasksConfig  `mapstructure:"tasks" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port            int           `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel        string        `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required"`
}

// LLMConfig contains credentials and endpoints for the generation providers.
// The Gemini key is always required; the OpenAI provider is registered only
// when its key is present.
type LLMConfig struct {
	GeminiAPIKey  string `mapstructure:"gemini_api_key" validate:"required"`
	OpenAIAPIKey  string `mapstructure:"openai_api_key"`
	OpenAIBaseURL string `mapstructure:"openai_base_url" validate:"omitempty,url"`
}

// TasksConfig controls the orchestration layer: fan-out width, event channel
// sizing, retention of finished tasks, and the per-task-type provider routes.
type TasksConfig struct {
	ChapterConcurrency int                    `mapstructure:"chapter_concurrency" validate:"required,gt=0,lte=32"`
	ChannelCapacity    int                    `mapstructure:"channel_capacity" validate:"required,gt=0"`
	Retention          time.Duration          `mapstructure:"retention" validate:"required"`
	Routes             map[string]RouteConfig `mapstructure:"routes" validate:"required,min=1,dive"`
}

// RouteConfig binds one task type to a provider, model and call policy.
type RouteConfig struct {
	Provider          string        `mapstructure:"provider" validate:"required,oneof=gemini openai"`
	Model             string        `mapstructure:"model" validate:"required"`
	Temperature       float32       `mapstructure:"temperature" validate:"gte=0,lte=2"`
	MaxOutputTokens   int           `mapstructure:"max_output_tokens" validate:"gte=0"`
	RateLimitInterval time.Duration `mapstructure:"rate_limit_interval" validate:"gte=0"`
	MaxRetries        int           `mapstructure:"max_retries" validate:"gte=0,lte=10"`
	RetryBaseDelay    time.Duration `mapstructure:"retry_base_delay" validate:"gte=0"`
	CallTimeout       time.Duration `mapstructure:"call_timeout" validate:"gte=0"`
}
