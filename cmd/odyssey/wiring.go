package main

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/odyssey-backoffice/internal/app"
	"github.com/odyssey-erp/odyssey-backoffice/internal/billing"
	"github.com/odyssey-erp/odyssey-backoffice/internal/lookup"
	"github.com/odyssey-erp/odyssey-backoffice/internal/observability"
	"github.com/odyssey-erp/odyssey-backoffice/internal/platform/cache"
	"github.com/odyssey-erp/odyssey-backoffice/internal/platform/db"
)

// deps holds the long-lived resources shared by every subcommand.
type deps struct {
	cfg     *app.Config
	logger  *slog.Logger
	pool    *pgxpool.Pool
	redis   *redis.Client
	metrics *observability.Metrics
	lookups *lookup.Service
	billing *billing.Service
}

func loadDeps(ctx context.Context) (*deps, error) {
	cfg, err := app.LoadConfig()
	if err != nil {
		return nil, err
	}
	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN, db.Options{})
	if err != nil {
		return nil, err
	}

	// Lookups still work against Postgres alone when Redis is unavailable.
	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, lookup cache disabled", slog.Any("error", err))
		redisClient = nil
	}

	metrics := observability.NewMetrics()
	lookupService := lookup.NewService(
		lookup.NewRepository(pool),
		lookup.NewCache(redisClient, cfg.LookupCacheTTL),
		metrics,
		logger,
	)
	billingService := billing.NewService(lookupService, metrics, logger, billing.WithDefaultCurrency(cfg.DefaultCurrency))

	return &deps{
		cfg:     cfg,
		logger:  logger,
		pool:    pool,
		redis:   redisClient,
		metrics: metrics,
		lookups: lookupService,
		billing: billingService,
	}, nil
}

func (d *deps) Close() {
	if d.redis != nil {
		if err := d.redis.Close(); err != nil {
			d.logger.Warn("redis close", slog.Any("error", err))
		}
	}
	d.pool.Close()
}
