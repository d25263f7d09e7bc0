package data

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/KotFed0t/quote_server/config"
	"github.com/redis/go-redis/v9"
)

// NewRedisClient returns nil when no Redis host is configured, the rates cache
// is then skipped.
func NewRedisClient(cfg *config.Config) *redis.Client {
	if cfg.Redis.Host == "" {
		slog.Info("Redis is not configured, exchange rates are not cached")
		return nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx := context.Background()
	pong, err := rdb.Ping(ctx).Result()
	if err != nil {
		slog.Error("Error while connecting Redis", slog.String("error", err.Error()))
		panic(err)
	}
	slog.Info("Redis connected", slog.String("pong", pong))

	return rdb
}
