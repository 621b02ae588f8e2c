package valuation

import (
	"sort"

	"github.com/KotFed0t/investa/internal/model"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// PriceLookup supplies the current price for a ticker. ok = false means no
// price could be obtained; the engine then values the position at its average
// cost, which pins its unrealized P&L to zero and sets PriceFallback.
type PriceLookup func(ticker string) (price decimal.Decimal, ok bool)

// ComputeMetrics values the holdings against the supplied prices.
//
// Invalid (oversold) holdings are reported in InvalidTickers and excluded
// from every total. Closed holdings carry no value and are skipped. The
// degenerate cases are defined, not errors: percentage P&L is zero when the
// cost basis is zero and the allocation map is empty when nothing has value.
func ComputeMetrics(holdings map[string]model.Holding, lookup PriceLookup, cashBalance decimal.Decimal) model.PortfolioMetrics {
	metrics := model.PortfolioMetrics{
		CashBalance: cashBalance,
		Allocation:  make(map[string]decimal.Decimal),
	}

	tickers := make([]string, 0, len(holdings))
	for ticker := range holdings {
		tickers = append(tickers, ticker)
	}
	sort.Strings(tickers)

	for _, ticker := range tickers {
		holding := holdings[ticker]

		if holding.Invalid {
			metrics.InvalidTickers = append(metrics.InvalidTickers, ticker)
			continue
		}

		if holding.Closed() {
			continue
		}

		price, ok := lookup(ticker)
		if !ok {
			price = holding.AvgCost
		}

		costBasis := holding.Shares.Mul(holding.AvgCost)
		value := holding.Shares.Mul(price)
		pnl := value.Sub(costBasis)

		position := model.Position{
			Ticker:        ticker,
			Shares:        holding.Shares,
			AvgCost:       holding.AvgCost,
			Price:         price,
			CostBasis:     costBasis,
			Value:         value,
			UnrealizedPnL: pnl,
			PriceFallback: !ok,
		}

		if costBasis.IsPositive() {
			position.UnrealizedPnLPct = pnl.Div(costBasis).Mul(hundred)
		}

		metrics.Positions = append(metrics.Positions, position)
		metrics.InvestValue = metrics.InvestValue.Add(value)
		metrics.CostBasis = metrics.CostBasis.Add(costBasis)
		metrics.UnrealizedPnL = metrics.UnrealizedPnL.Add(pnl)
	}

	metrics.TotalAssets = metrics.CashBalance.Add(metrics.InvestValue)

	if metrics.CostBasis.IsPositive() {
		metrics.UnrealizedPnLPct = metrics.UnrealizedPnL.Div(metrics.CostBasis).Mul(hundred)
	}

	if metrics.InvestValue.IsPositive() {
		for _, position := range metrics.Positions {
			metrics.Allocation[position.Ticker] = position.Value.Div(metrics.InvestValue)
		}
	}

	// Largest positions first.
	sort.SliceStable(metrics.Positions, func(i, j int) bool {
		return metrics.Positions[i].Value.GreaterThan(metrics.Positions[j].Value)
	})

	return metrics
}

// CashBalance derives the free cash position from the full ledger:
// income minus expenses, minus money put into buys, plus sale proceeds.
func CashBalance(cashflows []model.Cashflow, trades []model.Trade) decimal.Decimal {
	var balance decimal.Decimal

	for _, flow := range cashflows {
		switch flow.Type {
		case model.CashflowIncome:
			balance = balance.Add(flow.Amount)
		case model.CashflowExpense:
			balance = balance.Sub(flow.Amount)
		}
	}

	for _, trade := range trades {
		amount := trade.Shares.Mul(trade.Price)
		switch trade.Side {
		case model.TradeSideBuy:
			balance = balance.Sub(amount)
		case model.TradeSideSell:
			balance = balance.Add(amount)
		}
	}

	return balance
}
