package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/J-Naish/amazon-scraper/internal/api"
	"github.com/J-Naish/amazon-scraper/internal/browser"
	"github.com/J-Naish/amazon-scraper/internal/cache"
	"github.com/J-Naish/amazon-scraper/internal/config"
	"github.com/J-Naish/amazon-scraper/internal/database"
	"github.com/J-Naish/amazon-scraper/internal/events"
	"github.com/J-Naish/amazon-scraper/internal/scraper"
	"github.com/redis/go-redis/v9"
)

// App holds the handlers shared by the HTTP server and the Lambda entry
// point together with the optional backing services.
type App struct {
	Handlers *api.Handlers
	Service  *scraper.Service

	db     *database.DB
	redis  *redis.Client
	logger *slog.Logger
}

// New wires the scraper service and, when enabled, the Postgres run history
// and the Redis cache and event stream.
func New(ctx context.Context, cfg *config.Config, browserOpts *browser.Options, logger *slog.Logger) (*App, error) {
	a := &App{logger: logger}

	service := scraper.NewService(scraper.BrowserLauncher(browserOpts), cfg.ScraperOptions(), logger)
	a.Service = service

	var opts []api.Option

	if cfg.Database.Enabled {
		db, err := database.New(ctx, database.Config{
			DSN:      cfg.Database.DSN(),
			MaxConns: cfg.Database.MaxConns,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		a.db = db

		runs := database.NewRunRepository(db)
		if err := runs.Migrate(ctx); err != nil {
			a.Close()
			return nil, err
		}
		opts = append(opts, api.WithRecorder(runs), api.WithRunLister(runs))
		logger.Info("run history enabled", "host", cfg.Database.Host, "database", cfg.Database.DBName)
	}

	if cfg.Redis.Enabled {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		a.redis = client

		// Test Redis connection
		if err := client.Ping(ctx).Err(); err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}

		opts = append(opts,
			api.WithCache(cache.New(client, cfg.Redis.CacheTTL)),
			api.WithRecorder(events.NewPublisher(client, cfg.Redis.Stream, logger)),
		)
		logger.Info("redis cache and event stream enabled",
			"addr", cfg.Redis.Addr,
			"stream", cfg.Redis.Stream,
			"cache_ttl", cfg.Redis.CacheTTL)
	}

	a.Handlers = api.NewHandlers(service, logger, opts...)
	return a, nil
}

// Close releases the backing services.
func (a *App) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("failed to close redis client", "error", err)
		}
	}
	if a.db != nil {
		a.db.Close()
	}
}
