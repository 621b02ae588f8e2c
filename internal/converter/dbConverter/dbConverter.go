package dbConverter

import (
	"github.com/KotFed0t/investa/internal/model"
	"github.com/KotFed0t/investa/internal/model/dbModel"
)

func ConvertTrade(dbTrade dbModel.Trade) model.Trade {
	return model.Trade{
		ID:        dbTrade.ID,
		Ticker:    dbTrade.Ticker,
		Side:      model.TradeSide(dbTrade.Side),
		Shares:    dbTrade.Shares,
		Price:     dbTrade.Price,
		Currency:  dbTrade.Currency,
		TradeDate: dbTrade.TradeDate,
		Note:      dbTrade.Note.String,
		DtCreate:  dbTrade.DtCreate,
	}
}

func ConvertCashflow(dbCashflow dbModel.Cashflow) model.Cashflow {
	return model.Cashflow{
		ID:       dbCashflow.ID,
		Type:     model.CashflowType(dbCashflow.Type),
		Amount:   dbCashflow.Amount,
		Currency: dbCashflow.Currency,
		Category: dbCashflow.Category.String,
		Tag:      dbCashflow.Tag.String,
		Note:     dbCashflow.Note.String,
		FlowDate: dbCashflow.FlowDate,
		DtCreate: dbCashflow.DtCreate,
	}
}

func ConvertTicker(dbTicker dbModel.Ticker) model.TickerInfo {
	return model.TickerInfo{
		Symbol:   dbTicker.Symbol,
		Name:     dbTicker.Name,
		Exchange: dbTicker.Exchange,
		IsETF:    dbTicker.IsETF,
	}
}
