package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type TradeSide string

const (
	TradeSideBuy  TradeSide = "BUY"
	TradeSideSell TradeSide = "SELL"
)

func (s TradeSide) Valid() bool {
	return s == TradeSideBuy || s == TradeSideSell
}

// Trade is a single ledger entry. Entries are append-only: once recorded a
// trade is never updated, only deleted by id.
type Trade struct {
	ID        int64
	Ticker    string
	Side      TradeSide
	Shares    decimal.Decimal
	Price     decimal.Decimal
	Currency  string
	TradeDate time.Time
	Note      string
	DtCreate  time.Time
}

type CashflowType string

const (
	CashflowIncome  CashflowType = "INCOME"
	CashflowExpense CashflowType = "EXPENSE"
)

func (t CashflowType) Valid() bool {
	return t == CashflowIncome || t == CashflowExpense
}

type Cashflow struct {
	ID       int64
	Type     CashflowType
	Amount   decimal.Decimal
	Currency string
	Category string
	Tag      string
	Note     string
	FlowDate time.Time
	DtCreate time.Time
}

type Tag struct {
	ID   int64
	Name string
}
