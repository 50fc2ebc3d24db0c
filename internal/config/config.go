// Package config loads process configuration from the environment,
// following the same getEnv/validate shape the rest of the stack uses.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fadhilmayati/dompet-platform/internal/provider"
	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	// Server
	Port        string
	CORSOrigins []string
	Env         string

	// Database (one of DATABASE_URL, POSTGRES_URL, POSTGRES_CONNECTION_STRING)
	DatabaseURL string

	// Auth
	AuthSecret string

	// Providers
	OpenAIAPIKey        string
	AnthropicAPIKey     string
	DefaultChatProvider provider.Name
	DefaultEmbedProvider provider.Name

	// Timeouts
	RequestTimeout time.Duration

	// Object storage (insight archival)
	S3 S3Config
}

// S3Config configures the best-effort insight-archival writer.
type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Enabled         bool
}

// Load reads configuration from environment variables, loading a .env file
// first if one is present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		CORSOrigins: strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000"), ","),
		Env:         getEnv("ENV", "development"),

		DatabaseURL: firstNonEmpty(
			os.Getenv("DATABASE_URL"),
			os.Getenv("POSTGRES_URL"),
			os.Getenv("POSTGRES_CONNECTION_STRING"),
		),

		AuthSecret: getEnv("AUTH_SECRET", ""),

		OpenAIAPIKey:         getEnv("OPENAI_API_KEY", ""),
		AnthropicAPIKey:      getEnv("ANTHROPIC_API_KEY", ""),
		DefaultChatProvider:  provider.Name(getEnv("DEFAULT_MODEL_PROVIDER", string(provider.NameOpenAI))),
		DefaultEmbedProvider: provider.Name(getEnv("DEFAULT_EMBEDDING_PROVIDER", string(provider.NameOpenAI))),

		RequestTimeout: getEnvDuration("REQUEST_TIMEOUT_SECONDS", 20*time.Second),

		S3: S3Config{
			Bucket:          getEnv("INSIGHT_ARCHIVE_BUCKET", ""),
			Region:          getEnv("INSIGHT_ARCHIVE_REGION", "us-east-1"),
			Endpoint:        getEnv("INSIGHT_ARCHIVE_ENDPOINT", ""),
			AccessKeyID:     getEnv("INSIGHT_ARCHIVE_ACCESS_KEY", ""),
			SecretAccessKey: getEnv("INSIGHT_ARCHIVE_SECRET_KEY", ""),
		},
	}
	cfg.S3.Enabled = cfg.S3.Bucket != ""

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL (or POSTGRES_URL / POSTGRES_CONNECTION_STRING) is required")
	}
	if c.AuthSecret == "" {
		return fmt.Errorf("AUTH_SECRET is required")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	secs, err := strconv.Atoi(raw)
	if err != nil || secs <= 0 {
		return def
	}
	return time.Duration(secs) * time.Second
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
