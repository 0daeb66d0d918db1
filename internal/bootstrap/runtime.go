// Package bootstrap wires the process-wide runtime: tracing, database, Redis
// and the optional demo catalog.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"shopagg/internal/cache"
	"shopagg/internal/config"
	"shopagg/internal/database"
	"shopagg/internal/middleware"
	"shopagg/internal/models"
	"shopagg/internal/observability"
	"shopagg/internal/seed"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Version is reported as the tracing service version.
var Version = "dev"

// Options control runtime initialization behavior.
type Options struct {
	// FixturePath seeds an empty development database from this YAML file.
	FixturePath string
}

// Runtime holds the shared connections of a running process.
type Runtime struct {
	DB              *gorm.DB
	Redis           *redis.Client
	ShutdownTracing func(context.Context) error
}

// InitRuntime starts tracing, connects to DB and Redis and optionally seeds the
// demo catalog. Redis may end up nil; callers degrade without it.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*Runtime, error) {
	shutdown, err := observability.InitTracing(observability.TracingConfig{
		ServiceName:    "shopagg-api",
		ServiceVersion: Version,
		Environment:    cfg.Env,
		Enabled:        cfg.TracingEnabled,
		Exporter:       cfg.TracingExporter,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		SamplerRatio:   cfg.TracingSampler,
	})
	if err != nil {
		return nil, fmt.Errorf("tracing init failed: %w", err)
	}

	db, err := database.Connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	r := cache.InitRedis(cfg.RedisURL)

	if opts.FixturePath != "" && strings.EqualFold(cfg.Env, "development") {
		if err := seedIfEmpty(ctx, db, opts.FixturePath); err != nil {
			return nil, fmt.Errorf("failed to seed demo catalog: %w", err)
		}
	}

	return &Runtime{DB: db, Redis: r, ShutdownTracing: shutdown}, nil
}

// seedIfEmpty applies the fixture only to a database without cities.
func seedIfEmpty(ctx context.Context, db *gorm.DB, path string) error {
	var cities int64
	if err := db.WithContext(ctx).Model(&models.City{}).Count(&cities).Error; err != nil {
		return err
	}
	if cities > 0 {
		return nil
	}

	fx, err := seed.LoadFixture(path)
	if err != nil {
		return err
	}
	res, err := seed.NewSeeder(db, 1).Apply(ctx, fx)
	if err != nil {
		return err
	}
	middleware.Logger.InfoContext(ctx, "Demo catalog seeded",
		slog.String("fixture", path), slog.Int("products", res.Products))
	return nil
}
