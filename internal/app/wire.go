// Package app builds the shared dependencies of the server and the CLI
// from a loaded Config.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/swaptoon/swap-engine/internal/catalog"
	"github.com/swaptoon/swap-engine/internal/clock"
	"github.com/swaptoon/swap-engine/internal/config"
	"github.com/swaptoon/swap-engine/internal/insight"
	"github.com/swaptoon/swap-engine/internal/store"
)

// Catalog returns the built-in catalog unless cfg names a YAML file.
func Catalog(cfg *config.Config) (*catalog.Catalog, error) {
	if cfg.CatalogFile == "" {
		return catalog.Default(), nil
	}
	cat, err := catalog.LoadFile(cfg.CatalogFile)
	if err != nil {
		return nil, err
	}
	slog.Info("catalog loaded", "file", cfg.CatalogFile, "assets", len(cat.Assets()), "pools", len(cat.Pools()))
	return cat, nil
}

// OpenStore picks the ledger backend: Postgres when DATABASE_URL is set
// (optionally behind Redis), in-memory otherwise. The returned cleanup
// closes whatever was opened and is never nil.
func OpenStore(ctx context.Context, cfg *config.Config) (store.Store, func(), error) {
	var cleanup []func()
	closeAll := func() {
		for i := len(cleanup) - 1; i >= 0; i-- {
			cleanup[i]()
		}
	}

	if cfg.DatabaseURL == "" {
		slog.Warn("DATABASE_URL not set, using in-memory store (data will not persist)")
		return store.NewMemoryStore(), closeAll, nil
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, closeAll, fmt.Errorf("connect database: %w", err)
	}
	cleanup = append(cleanup, pool.Close)

	pg := store.NewPostgresStore(pool)
	if err := pg.EnsureSchema(ctx); err != nil {
		closeAll()
		return nil, func() {}, fmt.Errorf("ensure schema: %w", err)
	}
	slog.Info("connected to PostgreSQL")

	var st store.Store = pg
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			closeAll()
			return nil, func() {}, fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		rdb := redis.NewClient(opt)
		cleanup = append(cleanup, func() { rdb.Close() })
		st = store.NewCachedStore(st, rdb, cfg.CacheTTL)
		slog.Info("Redis cache enabled", "ttl", cfg.CacheTTL)
	}
	return st, closeAll, nil
}

// Insight returns the Gemini provider behind a pair cache.
func Insight(cfg *config.Config, sched clock.Scheduler) insight.Provider {
	gemini := insight.NewGemini(cfg.APIKey,
		insight.WithEndpoint(cfg.InsightEndpoint),
		insight.WithModel(cfg.InsightModel),
		insight.WithRateLimit(cfg.InsightRPS, 4),
	)
	if cfg.InsightTTL <= 0 {
		return gemini
	}
	return insight.NewCached(gemini, cfg.InsightTTL, sched)
}
