// Package config loads application configuration from environment variables.
// All variables use the DRILL_ prefix.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds all application configuration.
type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Cache       CacheConfig
	AI          AIConfig
	Auth        AuthConfig
	Generate    GenerateConfig
	Log         LogConfig
	CatalogPath string
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int
	Host string
}

// DatabaseConfig holds PostgreSQL connection settings. An empty URL runs
// the service with in-memory stores only.
type DatabaseConfig struct {
	URL      string
	MaxConns int
	MinConns int
}

// CacheConfig holds Redis connection settings. An empty URL disables
// content caching.
type CacheConfig struct {
	URL        string
	ContentTTL int // minutes
}

// AIConfig holds configuration for all AI providers.
type AIConfig struct {
	OpenAI   OpenAIConfig
	DeepSeek DeepSeekConfig
	Google   GoogleConfig
	Ollama   OllamaConfig
}

// OpenAIConfig holds OpenAI provider settings.
type OpenAIConfig struct {
	APIKey string
}

// DeepSeekConfig holds DeepSeek provider settings (OpenAI-compatible).
type DeepSeekConfig struct {
	APIKey string
}

// GoogleConfig holds Google Gemini provider settings.
type GoogleConfig struct {
	APIKey string
}

// OllamaConfig holds self-hosted Ollama settings.
type OllamaConfig struct {
	Enabled bool
	URL     string
}

// AuthConfig holds authentication settings. TokenHash is a bcrypt hash of
// the bearer token mutation endpoints require.
type AuthConfig struct {
	TokenHash string
}

// GenerateConfig bounds calls to the generation backend.
type GenerateConfig struct {
	TimeoutSeconds int
	Retries        int
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string
	Format string
}

// Load reads configuration from environment variables with DRILL_ prefix.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: envInt("DRILL_SERVER_PORT", 8080),
			Host: envStr("DRILL_SERVER_HOST", "0.0.0.0"),
		},
		Database: DatabaseConfig{
			URL:      envStr("DRILL_DATABASE_URL", ""),
			MaxConns: envInt("DRILL_DATABASE_MAX_CONNS", 25),
			MinConns: envInt("DRILL_DATABASE_MIN_CONNS", 5),
		},
		Cache: CacheConfig{
			URL:        envStr("DRILL_CACHE_URL", ""),
			ContentTTL: envInt("DRILL_CACHE_CONTENT_TTL", 720),
		},
		AI: AIConfig{
			OpenAI: OpenAIConfig{
				APIKey: envStr("DRILL_AI_OPENAI_API_KEY", ""),
			},
			DeepSeek: DeepSeekConfig{
				APIKey: envStr("DRILL_AI_DEEPSEEK_API_KEY", ""),
			},
			Google: GoogleConfig{
				APIKey: envStr("DRILL_AI_GOOGLE_API_KEY", ""),
			},
			Ollama: OllamaConfig{
				Enabled: envBool("DRILL_AI_OLLAMA_ENABLED", false),
				URL:     envStr("DRILL_AI_OLLAMA_URL", "http://localhost:11434"),
			},
		},
		Auth: AuthConfig{
			TokenHash: envStr("DRILL_AUTH_TOKEN_HASH", ""),
		},
		Generate: GenerateConfig{
			TimeoutSeconds: envInt("DRILL_GENERATE_TIMEOUT_SECONDS", 45),
			Retries:        envInt("DRILL_GENERATE_RETRIES", 1),
		},
		Log: LogConfig{
			Level:  envStr("DRILL_LOG_LEVEL", "info"),
			Format: envStr("DRILL_LOG_FORMAT", "json"),
		},
		CatalogPath: envStr("DRILL_CATALOG_PATH", "./catalog"),
	}

	return cfg, nil
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if !c.HasAIProvider() {
		return fmt.Errorf("at least one AI provider must be configured")
	}

	if c.Generate.TimeoutSeconds <= 0 {
		return fmt.Errorf("DRILL_GENERATE_TIMEOUT_SECONDS must be positive, got %d", c.Generate.TimeoutSeconds)
	}
	if c.Generate.Retries < 0 {
		return fmt.Errorf("DRILL_GENERATE_RETRIES must not be negative, got %d", c.Generate.Retries)
	}

	if c.CatalogPath == "" {
		return fmt.Errorf("DRILL_CATALOG_PATH is required")
	}

	return nil
}

// HasAIProvider returns true if at least one AI provider is configured.
func (c *Config) HasAIProvider() bool {
	return c.AI.OpenAI.APIKey != "" ||
		c.AI.DeepSeek.APIKey != "" ||
		c.AI.Google.APIKey != "" ||
		c.AI.Ollama.Enabled
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		return strings.EqualFold(v, "true") || v == "1"
	}
	return fallback
}
