package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"local"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	DBMinConns  int32  `envconfig:"ND_DB_MIN_CONNS" default:"1"`
	DBMaxConns  int32  `envconfig:"ND_DB_MAX_CONNS" default:"8"`

	TopicsFile       string `envconfig:"TOPICS_FILE" default:"topics.yaml"`
	MaxItemsPerTopic int    `envconfig:"MAX_ITEMS_PER_TOPIC" default:"10"`

	EmbeddingEndpoint  string `envconfig:"EMBEDDING_ENDPOINT" default:"http://127.0.0.1:8844/embed"`
	EmbeddingModel     string `envconfig:"EMBEDDING_MODEL" default:"text-embedding-3-small"`
	EmbeddingBatchSize int    `envconfig:"EMBEDDING_BATCH_SIZE" default:"32"`
	EmbeddingMaxLen    int    `envconfig:"EMBEDDING_MAX_LENGTH" default:"512"`
	EmbeddingTimeout   int    `envconfig:"EMBEDDING_TIMEOUT_SECONDS" default:"45"`

	TextGenProvider string `envconfig:"TEXTGEN_PROVIDER" default:"openai"`
	TextGenBaseURL  string `envconfig:"TEXTGEN_BASE_URL" default:""`
	TextGenModel    string `envconfig:"TEXTGEN_MODEL" default:"gpt-4o-mini"`
	TextGenAPIKey   string `envconfig:"TEXTGEN_API_KEY" default:""`
	TextGenTimeout  int    `envconfig:"TEXTGEN_TIMEOUT_SECONDS" default:"60"`

	FeedCacheTTLMinutes int    `envconfig:"FEED_CACHE_TTL_MINUTES" default:"60"`
	CORSAllowedOrigins  string `envconfig:"CORS_ALLOWED_ORIGINS" default:""`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.DBMinConns < 0 {
		return fmt.Errorf("ND_DB_MIN_CONNS must be >= 0")
	}
	if c.DBMaxConns < 1 {
		return fmt.Errorf("ND_DB_MAX_CONNS must be >= 1")
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("ND_DB_MIN_CONNS (%d) cannot exceed ND_DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	if c.MaxItemsPerTopic < 1 {
		return fmt.Errorf("MAX_ITEMS_PER_TOPIC must be >= 1")
	}
	switch strings.ToLower(strings.TrimSpace(c.TextGenProvider)) {
	case "openai", "deepseek", "google":
	default:
		return fmt.Errorf("TEXTGEN_PROVIDER must be one of openai, deepseek, google")
	}
	if c.EmbeddingBatchSize < 1 {
		return fmt.Errorf("EMBEDDING_BATCH_SIZE must be >= 1")
	}
	if c.FeedCacheTTLMinutes < 1 {
		return fmt.Errorf("FEED_CACHE_TTL_MINUTES must be >= 1")
	}
	return nil
}

func (c *Config) EmbeddingRequestTimeout() time.Duration {
	if c.EmbeddingTimeout <= 0 {
		return 45 * time.Second
	}
	return time.Duration(c.EmbeddingTimeout) * time.Second
}

func (c *Config) TextGenRequestTimeout() time.Duration {
	if c.TextGenTimeout <= 0 {
		return 60 * time.Second
	}
	return time.Duration(c.TextGenTimeout) * time.Second
}

func (c *Config) FeedCacheTTL() time.Duration {
	if c.FeedCacheTTLMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(c.FeedCacheTTLMinutes) * time.Minute
}
