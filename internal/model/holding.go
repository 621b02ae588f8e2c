package model

import "github.com/shopspring/decimal"

// Holding is the derived net position for one ticker. It is recomputed from
// the trade ledger on every access and never persisted.
//
// Invalid marks an oversold position (recorded sells exceed recorded buys).
// Such holdings are kept in the aggregation result so the caller can surface
// the inconsistency, but they are excluded from valuation totals.
type Holding struct {
	Ticker  string
	Shares  decimal.Decimal
	AvgCost decimal.Decimal
	Invalid bool
}

// Closed reports whether the position was fully sold out. Closed holdings
// keep their last average cost for history but carry no market value.
func (h Holding) Closed() bool {
	return h.Shares.IsZero()
}
