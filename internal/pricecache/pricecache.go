package pricecache

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/KotFed0t/investa/config"
	"github.com/KotFed0t/investa/internal/model"
	"github.com/KotFed0t/investa/utils"
	"github.com/shopspring/decimal"
)

// ErrUnavailable is returned when the oracle failed and no prior value exists
// for the requested key. Expired-but-present values are returned marked stale
// instead.
var ErrUnavailable = errors.New("error price data unavailable")

type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Oracle is the external market data source behind the cache.
type Oracle interface {
	GetCurrentPrice(ctx context.Context, ticker string) (decimal.Decimal, error)
	GetSummary(ctx context.Context, ticker string) (model.StockSummary, error)
	GetHistory(ctx context.Context, ticker, period string) ([]model.Candle, error)
}

type entry[T any] struct {
	value     T
	fetchedAt time.Time
}

// TieredCache keeps three independent views of the oracle, each with its own
// TTL: live prices for P&L, session summaries for descriptive stats and
// candle series for charts. The views never share entries, so staleness of
// one never leaks into another.
type TieredCache struct {
	oracle Oracle
	clock  Clock
	cfg    *config.Config

	mu      sync.Mutex
	live    map[string]entry[decimal.Decimal]
	summary map[string]entry[model.StockSummary]
	history map[string]entry[[]model.Candle]
}

type Option func(*TieredCache)

// WithClock substitutes the wall clock, for deterministic TTL tests.
func WithClock(clock Clock) Option {
	return func(c *TieredCache) {
		c.clock = clock
	}
}

func New(cfg *config.Config, oracle Oracle, opts ...Option) *TieredCache {
	c := &TieredCache{
		oracle:  oracle,
		clock:   systemClock{},
		cfg:     cfg,
		live:    make(map[string]entry[decimal.Decimal]),
		summary: make(map[string]entry[model.StockSummary]),
		history: make(map[string]entry[[]model.Candle]),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// GetPrice serves the live view (TTL cfg.Cache.LiveTTL).
func (c *TieredCache) GetPrice(ctx context.Context, ticker string) (model.PriceQuote, error) {
	price, fetchedAt, stale, err := lookup(ctx, c, c.live, ticker, c.cfg.Cache.LiveTTL, func(ctx context.Context) (decimal.Decimal, error) {
		return c.oracle.GetCurrentPrice(ctx, ticker)
	})
	if err != nil {
		return model.PriceQuote{}, err
	}

	return model.PriceQuote{
		Ticker:    ticker,
		Price:     price,
		FetchedAt: fetchedAt,
		Stale:     stale,
	}, nil
}

// GetSummary serves the summary view (TTL cfg.Cache.SummaryTTL).
func (c *TieredCache) GetSummary(ctx context.Context, ticker string) (model.StockSummary, error) {
	summary, fetchedAt, stale, err := lookup(ctx, c, c.summary, ticker, c.cfg.Cache.SummaryTTL, func(ctx context.Context) (model.StockSummary, error) {
		return c.oracle.GetSummary(ctx, ticker)
	})
	if err != nil {
		return model.StockSummary{}, err
	}

	summary.FetchedAt = fetchedAt
	summary.Stale = stale
	return summary, nil
}

// GetHistory serves the historical view (TTL cfg.Cache.HistoricalTTL), keyed
// by ticker and period.
func (c *TieredCache) GetHistory(ctx context.Context, ticker, period string) (model.PriceHistory, error) {
	candles, fetchedAt, stale, err := lookup(ctx, c, c.history, ticker+"|"+period, c.cfg.Cache.HistoricalTTL, func(ctx context.Context) ([]model.Candle, error) {
		return c.oracle.GetHistory(ctx, ticker, period)
	})
	if err != nil {
		return model.PriceHistory{}, err
	}

	return model.PriceHistory{
		Ticker:    ticker,
		Period:    period,
		Candles:   candles,
		FetchedAt: fetchedAt,
		Stale:     stale,
	}, nil
}

// PrimePrices seeds the live view without touching the oracle. The warm-quotes
// job uses it after a batch fetch.
func (c *TieredCache) PrimePrices(prices map[string]decimal.Decimal) {
	now := c.clock.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	for ticker, price := range prices {
		c.live[ticker] = entry[decimal.Decimal]{value: price, fetchedAt: now}
	}
}

// lookup implements the shared view policy: serve within TTL, re-fetch past
// it, fall back to the expired value marked stale when the oracle fails.
func lookup[T any](
	ctx context.Context,
	c *TieredCache,
	view map[string]entry[T],
	key string,
	ttl time.Duration,
	fetch func(ctx context.Context) (T, error),
) (value T, fetchedAt time.Time, stale bool, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	now := c.clock.Now()

	c.mu.Lock()
	cached, ok := view[key]
	c.mu.Unlock()

	if ok && now.Sub(cached.fetchedAt) < ttl {
		return cached.value, cached.fetchedAt, false, nil
	}

	value, err = fetch(ctx)
	if err != nil {
		slog.Warn("oracle fetch failed", slog.String("rqID", rqID), slog.String("key", key), slog.String("err", err.Error()))

		if ok {
			return cached.value, cached.fetchedAt, true, nil
		}

		var zero T
		return zero, time.Time{}, false, ErrUnavailable
	}

	c.mu.Lock()
	view[key] = entry[T]{value: value, fetchedAt: now}
	c.mu.Unlock()

	return value, now, false, nil
}
