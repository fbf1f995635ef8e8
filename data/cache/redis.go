package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nimishshah/portfolio_engine/config"
	"github.com/nimishshah/portfolio_engine/internal/model"
	"github.com/nimishshah/portfolio_engine/utils"
	"github.com/redis/go-redis/v9"
)

type RedisCache struct {
	redis *redis.Client
	cfg   *config.Config
}

func NewRedisCache(redisClient *redis.Client, cfg *config.Config) *RedisCache {
	return &RedisCache{redis: redisClient, cfg: cfg}
}

func quoteKey(symbol string) string {
	return fmt.Sprintf("quote:%s", symbol)
}

func (r *RedisCache) GetQuote(ctx context.Context, symbol string) (model.Quote, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("start GetQuote", slog.String("rqID", rqID), slog.String("symbol", symbol))

	res, err := r.redis.Get(ctx, quoteKey(symbol)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return model.Quote{}, ErrCacheMiss
		}
		slog.Error("failed on redis.Get", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return model.Quote{}, err
	}

	quote := model.Quote{}
	if err = json.Unmarshal([]byte(res), &quote); err != nil {
		slog.Error("can't unmarshal quote", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return model.Quote{}, err
	}

	slog.Debug("GetQuote completed", slog.String("rqID", rqID), slog.String("symbol", symbol))

	return quote, nil
}

func (r *RedisCache) SetQuotes(ctx context.Context, quotes map[string]model.Quote) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("start SetQuotes", slog.String("rqID", rqID))

	pipe := r.redis.Pipeline()
	for symbol, quote := range quotes {
		quoteJson, err := json.Marshal(quote)
		if err != nil {
			slog.Error(
				"can't marshal quote in SetQuotes",
				slog.String("rqID", rqID),
				slog.String("err", err.Error()),
				slog.Any("quote", quote),
			)
			return errors.New("can't marshal quote")
		}

		pipe.Set(ctx, quoteKey(symbol), quoteJson, r.cfg.Cache.QuotesExpiration)
	}

	_, err := pipe.Exec(ctx)
	if err != nil {
		slog.Error("failed on pipe.Exec", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return err
	}

	slog.Debug("SetQuotes completed", slog.String("rqID", rqID))

	return nil
}

// NoopCache is used when no redis host is configured: every read misses and
// writes are dropped.
type NoopCache struct{}

func NewNoopCache() *NoopCache {
	return &NoopCache{}
}

func (c *NoopCache) GetQuote(_ context.Context, _ string) (model.Quote, error) {
	return model.Quote{}, ErrCacheMiss
}

func (c *NoopCache) SetQuotes(_ context.Context, _ map[string]model.Quote) error {
	return nil
}
