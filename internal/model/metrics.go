package model

import "github.com/shopspring/decimal"

// Position is the valued view of a holding.
type Position struct {
	Ticker           string
	Shares           decimal.Decimal
	AvgCost          decimal.Decimal
	Price            decimal.Decimal
	CostBasis        decimal.Decimal
	Value            decimal.Decimal
	UnrealizedPnL    decimal.Decimal
	UnrealizedPnLPct decimal.Decimal
	// PriceFallback is set when no market price was available and the
	// position was valued at its average cost instead.
	PriceFallback bool
}

type PortfolioMetrics struct {
	TotalAssets      decimal.Decimal
	CashBalance      decimal.Decimal
	InvestValue      decimal.Decimal
	CostBasis        decimal.Decimal
	UnrealizedPnL    decimal.Decimal
	UnrealizedPnLPct decimal.Decimal
	// Allocation maps ticker to its share of total invest value. Weights
	// sum to 1 when InvestValue is positive, the map is empty otherwise.
	Allocation map[string]decimal.Decimal
	Positions  []Position
	// InvalidTickers lists oversold tickers excluded from the totals.
	InvalidTickers []string
}
