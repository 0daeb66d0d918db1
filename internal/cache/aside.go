package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	cityListKey          = "catalog:cities"
	categoryCountsPrefix = "catalog:category_counts:%s"
	sellerListKey        = "catalog:sellers"
)

const (
	CityListTTL       = 30 * time.Minute
	CategoryCountsTTL = 2 * time.Minute
	SellerListTTL     = 10 * time.Minute
)

// CityListKey caches the full city list.
func CityListKey() string {
	return cityListKey
}

// CategoryCountsKey caches category product counts for a city ("all" when nil).
func CategoryCountsKey(cityID *uint) string {
	scope := "all"
	if cityID != nil {
		scope = fmt.Sprintf("%d", *cityID)
	}
	return fmt.Sprintf(categoryCountsPrefix, scope)
}

// SellerListKey caches the verified seller list.
func SellerListKey() string {
	return sellerListKey
}

// Aside loads key into dest, calling load to fill dest on a miss and storing
// the result for ttl. Without a client, or on Redis errors, it falls through
// to load.
func Aside(ctx context.Context, key string, dest any, ttl time.Duration, load func() error) error {
	if client == nil {
		return load()
	}

	raw, err := client.Get(ctx, key).Bytes()
	if err == nil {
		if jsonErr := json.Unmarshal(raw, dest); jsonErr == nil {
			return nil
		}
		slog.WarnContext(ctx, "Discarding undecodable cache entry", slog.String("key", key))
	} else if !errors.Is(err, redis.Nil) {
		slog.WarnContext(ctx, "Cache read failed", slog.String("key", key), slog.String("error", err.Error()))
		return load()
	}

	if err := load(); err != nil {
		return err
	}

	payload, err := json.Marshal(dest)
	if err != nil {
		return nil
	}
	if err := client.Set(ctx, key, payload, ttl).Err(); err != nil {
		slog.WarnContext(ctx, "Cache write failed", slog.String("key", key), slog.String("error", err.Error()))
	}
	return nil
}

// Invalidate removes keys from the cache.
func Invalidate(ctx context.Context, keys ...string) {
	if client == nil || len(keys) == 0 {
		return
	}
	if err := client.Del(ctx, keys...).Err(); err != nil {
		slog.WarnContext(ctx, "Cache invalidation failed", slog.Any("keys", keys), slog.String("error", err.Error()))
	}
}

// InvalidateCategoryCounts drops every per-city category count entry.
func InvalidateCategoryCounts(ctx context.Context) {
	if client == nil {
		return
	}
	iter := client.Scan(ctx, 0, fmt.Sprintf(categoryCountsPrefix, "*"), 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		slog.WarnContext(ctx, "Cache scan failed", slog.String("error", err.Error()))
		return
	}
	Invalidate(ctx, keys...)
}
