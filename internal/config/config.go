package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds runtime configuration for the embedder.
type Config struct {
	// Server
	Port        int           `env:"PORT" envDefault:"8080" validate:"min=1,max=65535"`
	HTTPTimeout time.Duration `env:"HTTP_TIMEOUT" envDefault:"60s"`
	LogLevel    string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat   string        `env:"LOG_FORMAT" envDefault:"json" validate:"oneof=json text"`

	// Embeddings
	OpenAIKey      string `env:"OPENAI_KEY" validate:"required"`
	OpenAIBaseURL  string `env:"OPENAI_BASE_URL" envDefault:"https://api.openai.com/v1/" validate:"url"`
	EmbeddingModel string `env:"EMBEDDING_MODEL" envDefault:"text-embedding-ada-002"`

	// Store
	StoreProvider   string `env:"STORE_PROVIDER" envDefault:"mongo" validate:"oneof=postgres mongo"`
	DBURL           string `env:"DB_URL" validate:"required_if=StoreProvider postgres"`
	DBTable         string `env:"DB_TABLE" envDefault:"user_reddit_data"`
	MongoURI        string `env:"MONGO_URI" validate:"required_if=StoreProvider mongo"`
	MongoDatabase   string `env:"MONGO_DATABASE" envDefault:"redditData"`
	MongoCollection string `env:"MONGO_COLLECTION" envDefault:"userRedditData"`

	// Trigger
	TriggerProvider string `env:"TRIGGER_PROVIDER" envDefault:"http" validate:"oneof=http nats redis postgres mongo"`
	QueueURL        string `env:"QUEUE_URL" validate:"required_if=TriggerProvider nats"`
	NATSSubject     string `env:"NATS_SUBJECT" envDefault:"changes.userRedditData"`
	NATSQueueGroup  string `env:"NATS_QUEUE_GROUP" envDefault:"embedders"`
	RedisAddr       string `env:"REDIS_ADDR" validate:"required_if=TriggerProvider redis"`
	RedisPassword   string `env:"REDIS_PASSWORD"`
	RedisChannel    string `env:"REDIS_CHANNEL" envDefault:"changes.userRedditData"`
	PGChannel       string `env:"PG_CHANNEL" envDefault:"user_reddit_data_changes"`
}

var validate = validator.New()

// LoadDotEnv reads a .env file into the process environment if one exists.
func LoadDotEnv(paths ...string) error {
	if err := godotenv.Load(paths...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load environment file: %w", err)
	}
	return nil
}

// Load reads configuration from environment variables with defaults.
func Load() Config {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		slog.Warn("failed to parse env; using defaults where set", "err", err)
	}
	return cfg
}

// Validate checks provider choices and the settings each provider needs.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.TriggerProvider == "postgres" && c.StoreProvider != "postgres" {
		return errors.New("invalid configuration: TRIGGER_PROVIDER=postgres requires STORE_PROVIDER=postgres")
	}
	if c.TriggerProvider == "mongo" && c.StoreProvider != "mongo" {
		return errors.New("invalid configuration: TRIGGER_PROVIDER=mongo requires STORE_PROVIDER=mongo")
	}
	return nil
}
