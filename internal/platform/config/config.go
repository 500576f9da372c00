// Package config loads runtime configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv      string `env:"APP_ENV" envDefault:"local"`
	PostgresDSN string `env:"POSTGRES_DSN,required"`

	// WhatsApp Business webhook
	VerifyToken   string `env:"WEBHOOK_VERIFY_TOKEN,required"`
	WebhookSecret string `env:"WEBHOOK_SECRET"`
	WebhookPort   int    `env:"WEBHOOK_PORT" envDefault:"8080"`
	HealthPort    int    `env:"HEALTH_PORT" envDefault:"8081"`

	// OpenAI providers. An empty or "mock" key switches to the offline mocks.
	OpenAIAPIKey        string  `env:"OPENAI_API_KEY"`
	LLMModel            string  `env:"LLM_MODEL" envDefault:"gpt-4o-mini"`
	EmbeddingModel      string  `env:"EMBEDDING_MODEL" envDefault:"text-embedding-3-small"`
	EmbeddingDimensions int     `env:"EMBEDDING_DIMENSIONS" envDefault:"1536"`
	RateLimitRPS        float64 `env:"RATE_LIMIT_RPS" envDefault:"2"`

	// Extraction strategy: "pattern" or "llm".
	ExtractorMode string `env:"EXTRACTOR_MODE" envDefault:"pattern"`

	// Search
	SimilarityThreshold float64 `env:"SIMILARITY_THRESHOLD" envDefault:"0.7"`
	SearchLimit         int     `env:"SEARCH_LIMIT" envDefault:"10"`

	// Database pool
	DBMaxConns        int32         `env:"DB_MAX_CONNS" envDefault:"10"`
	DBMinConns        int32         `env:"DB_MIN_CONNS" envDefault:"2"`
	DBMaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" envDefault:"5m"`
	DBMaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" envDefault:"30m"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
