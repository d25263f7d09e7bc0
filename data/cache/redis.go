package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/KotFed0t/quote_server/config"
	"github.com/KotFed0t/quote_server/internal/date"
	"github.com/KotFed0t/quote_server/utils"
	"github.com/redis/go-redis/v9"
)

const ratesKey = "quote_server:ecb_rates"

var ErrCacheMiss = errors.New("cache miss")

// RedisCache keeps the ECB rate table between restarts.
type RedisCache struct {
	redis *redis.Client
	cfg   *config.Config
}

func NewRedisCache(redisClient *redis.Client, cfg *config.Config) *RedisCache {
	return &RedisCache{redis: redisClient, cfg: cfg}
}

func (r *RedisCache) SetRates(ctx context.Context, rates map[date.Date]map[string]float64) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "RedisCache.SetRates"
	slog.Debug("SetRates start", slog.String("rqID", rqID), slog.String("op", op))

	ratesJson, err := json.Marshal(rates)
	if err != nil {
		slog.Error("can't marshall rates", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return errors.New("can't marshall rates")
	}

	err = r.redis.Set(ctx, ratesKey, ratesJson, r.cfg.Cache.RatesExpiration).Err()
	if err != nil {
		slog.Error("failed on redis.Set", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	slog.Debug("SetRates completed", slog.String("rqID", rqID), slog.String("op", op))

	return nil
}

func (r *RedisCache) GetRates(ctx context.Context) (map[date.Date]map[string]float64, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "RedisCache.GetRates"
	slog.Debug("GetRates start", slog.String("rqID", rqID), slog.String("op", op))

	res, err := r.redis.Get(ctx, ratesKey).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		slog.Error("failed on redis.Get", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()), slog.String("key", ratesKey))
		return nil, err
	}

	rates := make(map[date.Date]map[string]float64)
	err = json.Unmarshal([]byte(res), &rates)
	if err != nil {
		slog.Error("can't unmarshall rates", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, errors.New("can't unmarshall rates")
	}

	slog.Debug("GetRates finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int("days", len(rates)))

	return rates, nil
}
