package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/KotFed0t/investa/config"
	"github.com/KotFed0t/investa/internal/model"
	"github.com/KotFed0t/investa/utils"
	"github.com/redis/go-redis/v9"
)

const (
	quoteKeyPrefix = "quote:"
	portfolioKey   = "portfolio:metrics"
)

type RedisCache struct {
	redis *redis.Client
	cfg   *config.Config
}

func NewRedisCache(redisClient *redis.Client, cfg *config.Config) *RedisCache {
	return &RedisCache{redis: redisClient, cfg: cfg}
}

// SetQuotes stores price snapshots with the snapshot TTL. The warm-quotes job
// uses it to prime prices for every ticker present in the ledger.
func (r *RedisCache) SetQuotes(ctx context.Context, quotes []model.PriceQuote) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("SetQuotes start", slog.String("rqID", rqID))

	pipe := r.redis.Pipeline()
	for _, quote := range quotes {
		quoteJson, err := json.Marshal(quote)
		if err != nil {
			slog.Error(
				"can't marshall quote in SetQuotes",
				slog.String("rqID", rqID),
				slog.String("err", err.Error()),
				slog.Any("quote", quote),
			)
			return errors.New("can't marshall quote")
		}

		pipe.Set(ctx, quoteKeyPrefix+quote.Ticker, quoteJson, r.cfg.Cache.SnapshotTTL)
	}

	_, err := pipe.Exec(ctx)
	if err != nil {
		slog.Error("failed on pipe.Exec", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return err
	}

	slog.Debug("SetQuotes completed", slog.String("rqID", rqID))

	return nil
}

func (r *RedisCache) GetQuote(ctx context.Context, ticker string) (model.PriceQuote, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("GetQuote start", slog.String("rqID", rqID))

	res, err := r.redis.Get(ctx, quoteKeyPrefix+ticker).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.Error("failed on redis.Get", slog.String("rqID", rqID), slog.String("err", err.Error()), slog.String("key", quoteKeyPrefix+ticker))
		}
		return model.PriceQuote{}, err
	}

	quote := model.PriceQuote{}
	err = json.Unmarshal([]byte(res), &quote)
	if err != nil {
		slog.Error(
			"can't unmarshall quote in GetQuote",
			slog.String("rqID", rqID),
			slog.String("err", err.Error()),
			slog.String("resultFromRedis", res),
		)
		return model.PriceQuote{}, errors.New("can't unmarshall quote")
	}

	slog.Debug("GetQuote finished", slog.String("rqID", rqID))

	return quote, nil
}

func (r *RedisCache) GetPortfolioMetrics(ctx context.Context) (model.PortfolioMetrics, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("GetPortfolioMetrics start", slog.String("rqID", rqID))

	res, err := r.redis.Get(ctx, portfolioKey).Result()
	if err != nil {
		return model.PortfolioMetrics{}, err
	}

	metrics := model.PortfolioMetrics{}
	err = json.Unmarshal([]byte(res), &metrics)
	if err != nil {
		slog.Error(
			"can't unmarshall metrics in GetPortfolioMetrics",
			slog.String("rqID", rqID),
			slog.String("err", err.Error()),
			slog.String("resultFromRedis", res),
		)
		return model.PortfolioMetrics{}, errors.New("can't unmarshall metrics")
	}

	slog.Debug("GetPortfolioMetrics finished", slog.String("rqID", rqID))

	return metrics, nil
}

func (r *RedisCache) SetPortfolioMetrics(ctx context.Context, metrics model.PortfolioMetrics) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("SetPortfolioMetrics start", slog.String("rqID", rqID))

	metricsJson, err := json.Marshal(metrics)
	if err != nil {
		slog.Error("can't marshall metrics in SetPortfolioMetrics", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return errors.New("can't marshall metrics")
	}

	_, err = r.redis.Set(ctx, portfolioKey, metricsJson, r.cfg.Cache.ReportTTL).Result()
	if err != nil {
		slog.Error("failed on redis.Set", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return err
	}

	slog.Debug("SetPortfolioMetrics completed", slog.String("rqID", rqID))

	return nil
}

// FlushPortfolioMetrics drops the cached metrics after every ledger write so
// the next read recomputes from the ledger.
func (r *RedisCache) FlushPortfolioMetrics(ctx context.Context) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("FlushPortfolioMetrics start", slog.String("rqID", rqID))

	_, err := r.redis.Del(ctx, portfolioKey).Result()
	if err != nil {
		slog.Error("failed on redis.Del", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return err
	}

	slog.Debug("FlushPortfolioMetrics completed", slog.String("rqID", rqID))

	return nil
}
