package xlsxGenerator

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/KotFed0t/investa/internal/model"
)

func TestGenerate(t *testing.T) {
	metrics := model.PortfolioMetrics{
		TotalAssets:   decimal.NewFromInt(5300),
		CashBalance:   decimal.NewFromInt(3500),
		InvestValue:   decimal.NewFromInt(1800),
		CostBasis:     decimal.NewFromInt(1500),
		UnrealizedPnL: decimal.NewFromInt(300),
		Allocation: map[string]decimal.Decimal{
			"AAPL": decimal.NewFromInt(1),
		},
		Positions: []model.Position{
			{
				Ticker:        "AAPL",
				Shares:        decimal.NewFromInt(10),
				AvgCost:       decimal.NewFromInt(150),
				Price:         decimal.NewFromInt(180),
				CostBasis:     decimal.NewFromInt(1500),
				Value:         decimal.NewFromInt(1800),
				UnrealizedPnL: decimal.NewFromInt(300),
			},
		},
		InvalidTickers: []string{"TSLA"},
	}
	trades := []model.Trade{
		{
			ID:        1,
			Ticker:    "AAPL",
			Side:      model.TradeSideBuy,
			Shares:    decimal.NewFromInt(10),
			Price:     decimal.NewFromInt(150),
			Currency:  "USD",
			TradeDate: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		},
	}

	fileBytes, ext, err := New().Generate(context.Background(), metrics, trades)
	require.NoError(t, err)
	assert.Equal(t, ".xlsx", ext)
	require.NotEmpty(t, fileBytes)

	f, err := excelize.OpenReader(bytes.NewReader(fileBytes))
	require.NoError(t, err)
	defer f.Close()

	assert.ElementsMatch(t, []string{"Portfolio", "Trades"}, f.GetSheetList())

	ticker, err := f.GetCellValue("Portfolio", "A2")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", ticker)

	side, err := f.GetCellValue("Trades", "D2")
	require.NoError(t, err)
	assert.Equal(t, "BUY", side)
}

func TestGenerateEmptyPortfolio(t *testing.T) {
	fileBytes, ext, err := New().Generate(context.Background(), model.PortfolioMetrics{}, nil)
	require.NoError(t, err)
	assert.Equal(t, ".xlsx", ext)
	assert.NotEmpty(t, fileBytes)
}
