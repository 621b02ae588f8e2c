package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceQuote is a cached market price. Stale marks a value served past its
// TTL because the upstream source could not be reached.
type PriceQuote struct {
	Ticker    string
	Price     decimal.Decimal
	FetchedAt time.Time
	Stale     bool
}

// StockSummary holds the latest session stats for a ticker.
type StockSummary struct {
	Ticker    string
	Open      decimal.Decimal
	High      decimal.Decimal
	Low       decimal.Decimal
	Close     decimal.Decimal
	Volume    int64
	FetchedAt time.Time
	Stale     bool
}

type Candle struct {
	Time   time.Time
	Open   decimal.Decimal
	High   decimal.Decimal
	Low    decimal.Decimal
	Close  decimal.Decimal
	Volume int64
}

// PriceHistory is a cached candle series for one ticker and period.
type PriceHistory struct {
	Ticker    string
	Period    string
	Candles   []Candle
	FetchedAt time.Time
	Stale     bool
}

type TickerInfo struct {
	Symbol   string
	Name     string
	Exchange string
	IsETF    bool
}
