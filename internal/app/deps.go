package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/openai/openai-go/v3"
	"github.com/redis/go-redis/v9"

	"reddit-embeddings/internal/config"
	"reddit-embeddings/internal/embeddings"
	"reddit-embeddings/internal/logger"
	"reddit-embeddings/internal/store"
	"reddit-embeddings/internal/trigger"
	"reddit-embeddings/internal/updater"
)

// Deps bundles the runtime dependencies of the embedder.
type Deps struct {
	Config   config.Config
	Log      *slog.Logger
	Store    store.Store
	Embedder embeddings.Embedder
	Updater  *updater.Updater
	// Source is nil when events arrive over the HTTP webhook.
	Source trigger.Source

	closers []func() error
}

// Build loads .env, config, and shared components.
func Build(ctx context.Context) (*Deps, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	return BuildWith(ctx, cfg, logger.New(cfg.LogLevel, cfg.LogFormat))
}

// LoadConfig reads .env into the environment, then loads Config. BuildWith
// validates it.
func LoadConfig() (config.Config, error) {
	if err := config.LoadDotEnv(); err != nil {
		return config.Config{}, err
	}
	return config.Load(), nil
}

// BuildWith validates cfg and wires components from it. The builders below rely
// on Config.Validate for required settings.
func BuildWith(ctx context.Context, cfg config.Config, log *slog.Logger) (*Deps, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	d := &Deps{Config: cfg, Log: log}

	st, err := buildStore(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}
	d.Store = st
	d.closers = append(d.closers, st.Close)

	embedder, err := buildEmbedder(cfg, log)
	if err != nil {
		_ = d.Close()
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}
	d.Embedder = embedder
	d.Updater = updater.New(embedder, st, log)

	src, closeSrc, err := buildSource(ctx, cfg, log, st)
	if err != nil {
		_ = d.Close()
		return nil, fmt.Errorf("failed to initialize trigger: %w", err)
	}
	d.Source = src
	if closeSrc != nil {
		d.closers = append(d.closers, closeSrc)
	}
	return d, nil
}

// Close releases connections in reverse order of acquisition.
func (d *Deps) Close() error {
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	d.closers = nil
	return errors.Join(errs...)
}

func buildStore(ctx context.Context, cfg config.Config, log *slog.Logger) (store.Store, error) {
	switch cfg.StoreProvider {
	case "postgres":
		db, err := store.NewPostgres(cfg.DBURL, cfg.DBTable)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Postgres: %w", err)
		}
		log.Info("using Postgres store", "table", cfg.DBTable)
		return db, nil
	case "mongo":
		db, err := store.NewMongo(ctx, cfg.MongoURI, cfg.MongoDatabase, cfg.MongoCollection)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize MongoDB: %w", err)
		}
		log.Info("using MongoDB store", "database", cfg.MongoDatabase, "collection", cfg.MongoCollection)
		return db, nil
	default:
		return nil, fmt.Errorf("invalid STORE_PROVIDER: %s (valid options: postgres, mongo)", cfg.StoreProvider)
	}
}

func buildEmbedder(cfg config.Config, log *slog.Logger) (embeddings.Embedder, error) {
	embedder, err := embeddings.NewOpenAIEmbedder(cfg.OpenAIKey, openai.EmbeddingModel(cfg.EmbeddingModel), embeddings.OpenAIOptions{
		BaseURL: cfg.OpenAIBaseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenAI embedder: %w", err)
	}
	log.Info("using OpenAI embedder", "model", cfg.EmbeddingModel)
	return embedder, nil
}

func buildSource(ctx context.Context, cfg config.Config, log *slog.Logger, st store.Store) (trigger.Source, func() error, error) {
	switch cfg.TriggerProvider {
	case "http":
		log.Info("receiving change events over HTTP")
		return nil, nil, nil
	case "nats":
		nc, err := nats.Connect(cfg.QueueURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to NATS: %w", err)
		}
		log.Info("using NATS trigger", "subject", cfg.NATSSubject)
		return trigger.NewNATS(log, nc, cfg.NATSSubject, cfg.NATSQueueGroup), func() error { nc.Close(); return nil }, nil
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       0,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("redis connection failed: %w", err)
		}
		log.Info("using Redis trigger", "channel", cfg.RedisChannel)
		return trigger.NewRedis(log, client, cfg.RedisChannel), client.Close, nil
	case "postgres":
		pg, ok := st.(*store.PostgresStore)
		if !ok {
			return nil, nil, fmt.Errorf("postgres trigger needs a Postgres store, got %T", st)
		}
		if err := pg.EnsureChangeNotifications(ctx, cfg.PGChannel); err != nil {
			return nil, nil, err
		}
		log.Info("using Postgres LISTEN trigger", "channel", cfg.PGChannel)
		return trigger.NewPostgres(log, cfg.DBURL, cfg.PGChannel), nil, nil
	case "mongo":
		ms, ok := st.(*store.MongoStore)
		if !ok {
			return nil, nil, fmt.Errorf("mongo trigger needs a MongoDB store, got %T", st)
		}
		log.Info("using MongoDB change stream trigger", "collection", cfg.MongoCollection)
		return trigger.NewMongo(log, ms.Collection()), nil, nil
	default:
		return nil, nil, fmt.Errorf("invalid TRIGGER_PROVIDER: %s (valid options: http, nats, redis, postgres, mongo)", cfg.TriggerProvider)
	}
}
