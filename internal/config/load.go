package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Load configuration from environment variables and optionally a config file.
// Environment variables take precedence over values from config files.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	// Optional config file in the working directory; absence is fine.
	v.SetConfigName("insight")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// INSIGHT_SERVER_PORT overrides server.port, and so on.
	v.SetEnvPrefix("INSIGHT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvKeys(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	validate := validator.New()
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("tasks.chapter_concurrency", 4)
	v.SetDefault("tasks.channel_capacity", 100)
	v.SetDefault("tasks.retention", 5*time.Minute)

	// Default routes for the built-in task types. A config file can add
	// routes or repoint these at other providers/models.
	for key, route := range map[string]map[string]any{
		"deep-summary": {
			"provider":            "gemini",
			"model":               "gemini-2.5-pro",
			"temperature":         0.7,
			"max_output_tokens":   65536,
			"rate_limit_interval": 6 * time.Second,
			"max_retries":         3,
			"retry_base_delay":    2 * time.Second,
			"call_timeout":        5 * time.Minute,
		},
		"doc-analysis": {
			"provider":            "gemini",
			"model":               "gemini-2.5-pro",
			"temperature":         0.4,
			"max_output_tokens":   65536,
			"rate_limit_interval": 6 * time.Second,
			"max_retries":         3,
			"retry_base_delay":    2 * time.Second,
			"call_timeout":        5 * time.Minute,
		},
	} {
		for field, value := range route {
			v.SetDefault("tasks.routes."+key+"."+field, value)
		}
	}
}

// bindEnvKeys registers the scalar keys explicitly. AutomaticEnv alone does
// not surface env-only keys through Unmarshal when no default or file value
// exists for them.
func bindEnvKeys(v *viper.Viper) {
	for _, key := range []string{
		"server.port",
		"server.log_level",
		"server.shutdown_timeout",
		"llm.gemini_api_key",
		"llm.openai_api_key",
		"llm.openai_base_url",
		"tasks.chapter_concurrency",
		"tasks.channel_capacity",
		"tasks.retention",
	} {
		// BindEnv only errors on an empty key.
		_ = v.BindEnv(key)
	}
}
