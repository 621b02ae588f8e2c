package dbModel

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

type Trade struct {
	ID        int64           `db:"trade_id"`
	Ticker    string          `db:"ticker"`
	Side      string          `db:"side"`
	Shares    decimal.Decimal `db:"shares"`
	Price     decimal.Decimal `db:"price"`
	Currency  string          `db:"currency"`
	TradeDate time.Time       `db:"trade_date"`
	Note      sql.NullString  `db:"note"`
	DtCreate  time.Time       `db:"dt_create"`
}

type Cashflow struct {
	ID       int64           `db:"cashflow_id"`
	Type     string          `db:"flow_type"`
	Amount   decimal.Decimal `db:"amount"`
	Currency string          `db:"currency"`
	Category sql.NullString  `db:"category"`
	Tag      sql.NullString  `db:"tag"`
	Note     sql.NullString  `db:"note"`
	FlowDate time.Time       `db:"flow_date"`
	DtCreate time.Time       `db:"dt_create"`
}

type Tag struct {
	ID   int64  `db:"tag_id"`
	Name string `db:"name"`
}

type Ticker struct {
	Symbol   string `db:"symbol"`
	Name     string `db:"name"`
	Exchange string `db:"exchange"`
	IsETF    bool   `db:"is_etf"`
}
