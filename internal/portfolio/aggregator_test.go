package portfolio

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KotFed0t/investa/internal/model"
)

func buy(ticker string, shares, price int64) model.Trade {
	return model.Trade{
		Ticker:    ticker,
		Side:      model.TradeSideBuy,
		Shares:    decimal.NewFromInt(shares),
		Price:     decimal.NewFromInt(price),
		TradeDate: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func sell(ticker string, shares, price int64) model.Trade {
	trade := buy(ticker, shares, price)
	trade.Side = model.TradeSideSell
	return trade
}

func TestAggregateEmptyLedger(t *testing.T) {
	holdings := Aggregate(nil)
	assert.Empty(t, holdings)
}

func TestAggregateWeightedAverageCost(t *testing.T) {
	trades := []model.Trade{
		buy("AAPL", 10, 150),
		buy("AAPL", 5, 180),
		sell("AAPL", 3, 200),
	}

	holdings := Aggregate(trades)
	require.Contains(t, holdings, "AAPL")

	holding := holdings["AAPL"]
	assert.True(t, holding.Shares.Equal(decimal.NewFromInt(12)), "got %s shares", holding.Shares)
	assert.True(t, holding.AvgCost.Equal(decimal.NewFromInt(160)), "got avg cost %s", holding.AvgCost)
	assert.False(t, holding.Invalid)
}

func TestAggregateSellKeepsAvgCost(t *testing.T) {
	trades := []model.Trade{
		buy("MSFT", 10, 100),
		sell("MSFT", 4, 250),
	}

	holding := Aggregate(trades)["MSFT"]
	assert.True(t, holding.Shares.Equal(decimal.NewFromInt(6)))
	assert.True(t, holding.AvgCost.Equal(decimal.NewFromInt(100)))
}

func TestAggregateClosedPositionRetained(t *testing.T) {
	trades := []model.Trade{
		buy("NVDA", 5, 400),
		sell("NVDA", 5, 500),
	}

	holdings := Aggregate(trades)
	require.Contains(t, holdings, "NVDA")

	holding := holdings["NVDA"]
	assert.True(t, holding.Closed())
	assert.False(t, holding.Invalid)
	assert.True(t, holding.AvgCost.Equal(decimal.NewFromInt(400)), "closed position keeps its last avg cost")
}

func TestAggregateOversellMarksInvalid(t *testing.T) {
	trades := []model.Trade{
		buy("TSLA", 2, 200),
		sell("TSLA", 5, 210),
	}

	holding := Aggregate(trades)["TSLA"]
	assert.True(t, holding.Invalid)
	assert.True(t, holding.Shares.IsNegative())
}

func TestAggregateInvalidFlagSticks(t *testing.T) {
	trades := []model.Trade{
		buy("TSLA", 2, 200),
		sell("TSLA", 5, 210),
		buy("TSLA", 10, 220),
	}

	holding := Aggregate(trades)["TSLA"]
	assert.True(t, holding.Invalid, "later buys must not clear the oversell flag")
	assert.True(t, holding.Shares.Equal(decimal.NewFromInt(7)))
}

func TestAggregateRecoveryBuyPricesFromNewLot(t *testing.T) {
	trades := []model.Trade{
		sell("TSLA", 5, 210),
		buy("TSLA", 10, 220),
	}

	holding := Aggregate(trades)["TSLA"]
	assert.True(t, holding.Invalid, "oversell flag survives the recovery buy")
	assert.True(t, holding.Shares.Equal(decimal.NewFromInt(5)))
	assert.True(t, holding.AvgCost.Equal(decimal.NewFromInt(220)), "negative share count must not distort the average, got %s", holding.AvgCost)
}

func TestAggregateSellOnlyTickerInvalid(t *testing.T) {
	holding := Aggregate([]model.Trade{sell("AMD", 1, 100)})["AMD"]
	assert.True(t, holding.Invalid)
}

func TestAggregateIndependentTickers(t *testing.T) {
	trades := []model.Trade{
		buy("AAPL", 1, 100),
		sell("TSLA", 1, 100),
	}

	holdings := Aggregate(trades)
	assert.False(t, holdings["AAPL"].Invalid)
	assert.True(t, holdings["TSLA"].Invalid)
}

func TestAggregateIsPure(t *testing.T) {
	trades := []model.Trade{
		buy("AAPL", 10, 150),
		sell("AAPL", 3, 170),
	}

	first := Aggregate(trades)
	second := Aggregate(trades)
	assert.Equal(t, first, second)
}

func TestAggregateFractionalShares(t *testing.T) {
	trades := []model.Trade{
		{
			Ticker: "VOO",
			Side:   model.TradeSideBuy,
			Shares: decimal.RequireFromString("0.5"),
			Price:  decimal.NewFromInt(400),
		},
		{
			Ticker: "VOO",
			Side:   model.TradeSideBuy,
			Shares: decimal.RequireFromString("1.5"),
			Price:  decimal.NewFromInt(440),
		},
	}

	holding := Aggregate(trades)["VOO"]
	assert.True(t, holding.Shares.Equal(decimal.NewFromInt(2)))
	assert.True(t, holding.AvgCost.Equal(decimal.NewFromInt(430)), "got avg cost %s", holding.AvgCost)
}
