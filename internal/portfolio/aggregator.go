package portfolio

import (
	"github.com/KotFed0t/investa/internal/model"
	"github.com/shopspring/decimal"
)

// Aggregate derives net holdings from the trade ledger.
//
// It is a pure function of its input: no clock, no storage, no hidden state.
// Buys move the average cost by the weighted-average method, sells reduce
// shares and leave the average cost untouched (realized gains on sold lots
// are not tracked). A ticker sold down to exactly zero keeps its last average
// cost; a ticker sold below zero is marked Invalid and the flag sticks even
// if later buys bring the share count back up. A buy on an oversold position
// prices the average cost from the new lot alone.
func Aggregate(trades []model.Trade) map[string]model.Holding {
	holdings := make(map[string]model.Holding)

	for _, trade := range trades {
		holding, ok := holdings[trade.Ticker]
		if !ok {
			holding = model.Holding{Ticker: trade.Ticker}
		}

		switch trade.Side {
		case model.TradeSideBuy:
			// A buy on an oversold position prices the average from the
			// new lot only; the negative share count must not distort it.
			base := holding.Shares
			if base.IsNegative() {
				base = decimal.Zero
			}
			total := holding.AvgCost.Mul(base).Add(trade.Price.Mul(trade.Shares))
			holding.Shares = holding.Shares.Add(trade.Shares)
			if costShares := base.Add(trade.Shares); costShares.IsPositive() {
				holding.AvgCost = total.Div(costShares)
			}
		case model.TradeSideSell:
			holding.Shares = holding.Shares.Sub(trade.Shares)
		}

		if holding.Shares.IsNegative() {
			holding.Invalid = true
		}

		holdings[trade.Ticker] = holding
	}

	return holdings
}
