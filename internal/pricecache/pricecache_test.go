package pricecache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KotFed0t/investa/config"
	"github.com/KotFed0t/investa/internal/model"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) advance(d time.Duration) { c.now = c.now.Add(d) }

type fakeOracle struct {
	price        decimal.Decimal
	summaryClose decimal.Decimal
	candles      []model.Candle
	failing      bool

	priceCalls   int
	summaryCalls int
	historyCalls int
}

var errOracleDown = errors.New("oracle down")

func (o *fakeOracle) GetCurrentPrice(_ context.Context, _ string) (decimal.Decimal, error) {
	o.priceCalls++
	if o.failing {
		return decimal.Decimal{}, errOracleDown
	}
	return o.price, nil
}

func (o *fakeOracle) GetSummary(_ context.Context, ticker string) (model.StockSummary, error) {
	o.summaryCalls++
	if o.failing {
		return model.StockSummary{}, errOracleDown
	}
	return model.StockSummary{Ticker: ticker, Close: o.summaryClose}, nil
}

func (o *fakeOracle) GetHistory(_ context.Context, _ string, _ string) ([]model.Candle, error) {
	o.historyCalls++
	if o.failing {
		return nil, errOracleDown
	}
	return o.candles, nil
}

func newTestCache(oracle *fakeOracle, clock *fakeClock) *TieredCache {
	cfg := &config.Config{}
	cfg.Cache.LiveTTL = 300 * time.Second
	cfg.Cache.SummaryTTL = 600 * time.Second
	cfg.Cache.HistoricalTTL = 3600 * time.Second

	return New(cfg, oracle, WithClock(clock))
}

func TestGetPriceCachesWithinTTL(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	oracle := &fakeOracle{price: decimal.NewFromInt(180)}
	cache := newTestCache(oracle, clock)
	ctx := context.Background()

	quote, err := cache.GetPrice(ctx, "AAPL")
	require.NoError(t, err)
	assert.True(t, quote.Price.Equal(decimal.NewFromInt(180)))
	assert.False(t, quote.Stale)
	assert.Equal(t, 1, oracle.priceCalls)

	clock.advance(299 * time.Second)
	_, err = cache.GetPrice(ctx, "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 1, oracle.priceCalls, "must serve from cache within TTL")
}

func TestGetPriceRefetchesPastTTL(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	oracle := &fakeOracle{price: decimal.NewFromInt(180)}
	cache := newTestCache(oracle, clock)
	ctx := context.Background()

	_, err := cache.GetPrice(ctx, "AAPL")
	require.NoError(t, err)

	clock.advance(300 * time.Second)
	oracle.price = decimal.NewFromInt(185)

	quote, err := cache.GetPrice(ctx, "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 2, oracle.priceCalls)
	assert.True(t, quote.Price.Equal(decimal.NewFromInt(185)))
	assert.False(t, quote.Stale)
}

func TestGetPriceStaleFallback(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	oracle := &fakeOracle{price: decimal.NewFromInt(180)}
	cache := newTestCache(oracle, clock)
	ctx := context.Background()

	fetchedAt := clock.now
	_, err := cache.GetPrice(ctx, "AAPL")
	require.NoError(t, err)

	clock.advance(10 * time.Minute)
	oracle.failing = true

	quote, err := cache.GetPrice(ctx, "AAPL")
	require.NoError(t, err, "expired value must still be served when the source fails")
	assert.True(t, quote.Stale)
	assert.True(t, quote.Price.Equal(decimal.NewFromInt(180)))
	assert.Equal(t, fetchedAt, quote.FetchedAt, "stale quote keeps its original fetch time")
}

func TestGetPriceUnavailableOnColdFailure(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	oracle := &fakeOracle{failing: true}
	cache := newTestCache(oracle, clock)

	_, err := cache.GetPrice(context.Background(), "AAPL")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestGetSummaryStaleFallback(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	oracle := &fakeOracle{summaryClose: decimal.NewFromInt(179)}
	cache := newTestCache(oracle, clock)
	ctx := context.Background()

	_, err := cache.GetSummary(ctx, "AAPL")
	require.NoError(t, err)

	clock.advance(11 * time.Minute)
	oracle.failing = true

	summary, err := cache.GetSummary(ctx, "AAPL")
	require.NoError(t, err)
	assert.True(t, summary.Stale)
	assert.True(t, summary.Close.Equal(decimal.NewFromInt(179)))
}

func TestGetSummaryUnavailableOnColdFailure(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	oracle := &fakeOracle{failing: true}
	cache := newTestCache(oracle, clock)

	_, err := cache.GetSummary(context.Background(), "AAPL")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestGetHistoryStaleFallback(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	oracle := &fakeOracle{candles: []model.Candle{{Close: decimal.NewFromInt(170)}}}
	cache := newTestCache(oracle, clock)
	ctx := context.Background()

	_, err := cache.GetHistory(ctx, "AAPL", "1mo")
	require.NoError(t, err)

	clock.advance(2 * time.Hour)
	oracle.failing = true

	history, err := cache.GetHistory(ctx, "AAPL", "1mo")
	require.NoError(t, err)
	assert.True(t, history.Stale)
	require.Len(t, history.Candles, 1)
	assert.True(t, history.Candles[0].Close.Equal(decimal.NewFromInt(170)))
}

func TestGetHistoryUnavailableOnColdFailure(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	oracle := &fakeOracle{failing: true}
	cache := newTestCache(oracle, clock)

	_, err := cache.GetHistory(context.Background(), "AAPL", "1mo")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestViewsHaveIndependentTTLs(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	oracle := &fakeOracle{
		price:        decimal.NewFromInt(180),
		summaryClose: decimal.NewFromInt(179),
		candles:      []model.Candle{{Close: decimal.NewFromInt(170)}},
	}
	cache := newTestCache(oracle, clock)
	ctx := context.Background()

	_, err := cache.GetPrice(ctx, "AAPL")
	require.NoError(t, err)
	_, err = cache.GetSummary(ctx, "AAPL")
	require.NoError(t, err)
	_, err = cache.GetHistory(ctx, "AAPL", "1mo")
	require.NoError(t, err)

	// Past the live TTL, inside the summary and historical TTLs.
	clock.advance(301 * time.Second)

	_, err = cache.GetPrice(ctx, "AAPL")
	require.NoError(t, err)
	_, err = cache.GetSummary(ctx, "AAPL")
	require.NoError(t, err)
	_, err = cache.GetHistory(ctx, "AAPL", "1mo")
	require.NoError(t, err)

	assert.Equal(t, 2, oracle.priceCalls)
	assert.Equal(t, 1, oracle.summaryCalls)
	assert.Equal(t, 1, oracle.historyCalls)
}

func TestGetHistoryKeyedByPeriod(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	oracle := &fakeOracle{candles: []model.Candle{{Close: decimal.NewFromInt(170)}}}
	cache := newTestCache(oracle, clock)
	ctx := context.Background()

	_, err := cache.GetHistory(ctx, "AAPL", "1mo")
	require.NoError(t, err)
	_, err = cache.GetHistory(ctx, "AAPL", "1y")
	require.NoError(t, err)

	assert.Equal(t, 2, oracle.historyCalls, "different periods are separate cache entries")
}

func TestPrimePricesSeedsLiveView(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	oracle := &fakeOracle{price: decimal.NewFromInt(999)}
	cache := newTestCache(oracle, clock)

	cache.PrimePrices(map[string]decimal.Decimal{
		"AAPL": decimal.NewFromInt(180),
		"MSFT": decimal.NewFromInt(300),
	})

	quote, err := cache.GetPrice(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.True(t, quote.Price.Equal(decimal.NewFromInt(180)))
	assert.Equal(t, 0, oracle.priceCalls, "primed prices must not hit the source")
}
