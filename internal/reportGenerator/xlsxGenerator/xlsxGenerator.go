package xlsxGenerator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/KotFed0t/investa/internal/model"
	"github.com/KotFed0t/investa/utils"
	"github.com/xuri/excelize/v2"
)

type XLSXGenerator struct{}

func New() *XLSXGenerator {
	return &XLSXGenerator{}
}

func (g *XLSXGenerator) Generate(ctx context.Context, metrics model.PortfolioMetrics, trades []model.Trade) (fileBytes []byte, fileExtension string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "XLSXGenerator.Generate"

	slog.Debug("Generate start", slog.String("rqID", rqID), slog.String("op", op))

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			slog.Error("got error while closing file", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		}
	}()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
		Font: &excelize.Font{
			Bold: true,
			Size: 11,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Pattern: 1,
			Color:   []string{"#cfe2f3"},
		},
	})
	if err != nil {
		return nil, "", err
	}

	if err := g.fillPositionsSheet(f, metrics, headerStyle); err != nil {
		return nil, "", err
	}

	if err := g.fillTradesSheet(f, trades, headerStyle); err != nil {
		return nil, "", err
	}

	// Sheet1 is the excelize default, everything lives on named sheets.
	if err := f.DeleteSheet("Sheet1"); err != nil {
		slog.Error("got error while deleting Sheet1", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		slog.Error("got error while saving file to bytes buffer", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, "", err
	}

	slog.Debug("Generate completed", slog.String("rqID", rqID), slog.String("op", op))

	return buf.Bytes(), ".xlsx", nil
}

func (g *XLSXGenerator) fillPositionsSheet(f *excelize.File, metrics model.PortfolioMetrics, headerStyle int) error {
	const sheetName = "Portfolio"

	if _, err := f.NewSheet(sheetName); err != nil {
		return err
	}

	headers := []string{"Ticker", "Shares", "Avg Cost", "Price", "Cost Basis", "Value", "Unrealized P&L", "Unrealized P&L %", "Weight", "Price Fallback"}
	for i, header := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		f.SetCellValue(sheetName, cell, header)
		if err := f.SetCellStyle(sheetName, cell, cell, headerStyle); err != nil {
			return err
		}
	}

	for i, position := range metrics.Positions {
		row := i + 2
		weight := ""
		if w, ok := metrics.Allocation[position.Ticker]; ok {
			weight = w.StringFixed(4)
		}

		values := []any{
			position.Ticker,
			position.Shares.String(),
			position.AvgCost.StringFixed(2),
			position.Price.StringFixed(2),
			position.CostBasis.StringFixed(2),
			position.Value.StringFixed(2),
			position.UnrealizedPnL.StringFixed(2),
			position.UnrealizedPnLPct.StringFixed(2),
			weight,
			position.PriceFallback,
		}
		for j, value := range values {
			cell, err := excelize.CoordinatesToCellName(j+1, row)
			if err != nil {
				return err
			}
			f.SetCellValue(sheetName, cell, value)
		}
	}

	summaryRow := len(metrics.Positions) + 3
	summary := [][2]any{
		{"Total Assets", metrics.TotalAssets.StringFixed(2)},
		{"Cash Balance", metrics.CashBalance.StringFixed(2)},
		{"Invest Value", metrics.InvestValue.StringFixed(2)},
		{"Cost Basis", metrics.CostBasis.StringFixed(2)},
		{"Unrealized P&L", metrics.UnrealizedPnL.StringFixed(2)},
		{"Unrealized P&L %", metrics.UnrealizedPnLPct.StringFixed(2)},
	}
	for i, pair := range summary {
		nameCell, err := excelize.CoordinatesToCellName(1, summaryRow+i)
		if err != nil {
			return err
		}
		valueCell, err := excelize.CoordinatesToCellName(2, summaryRow+i)
		if err != nil {
			return err
		}
		f.SetCellValue(sheetName, nameCell, pair[0])
		f.SetCellValue(sheetName, valueCell, pair[1])
	}

	if len(metrics.InvalidTickers) > 0 {
		cell, err := excelize.CoordinatesToCellName(1, summaryRow+len(summary)+1)
		if err != nil {
			return err
		}
		f.SetCellValue(sheetName, cell, fmt.Sprintf("Oversold tickers excluded: %v", metrics.InvalidTickers))
	}

	return nil
}

func (g *XLSXGenerator) fillTradesSheet(f *excelize.File, trades []model.Trade, headerStyle int) error {
	const sheetName = "Trades"

	if _, err := f.NewSheet(sheetName); err != nil {
		return err
	}

	headers := []string{"ID", "Date", "Ticker", "Side", "Shares", "Price", "Currency", "Note"}
	for i, header := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		f.SetCellValue(sheetName, cell, header)
		if err := f.SetCellStyle(sheetName, cell, cell, headerStyle); err != nil {
			return err
		}
	}

	for i, trade := range trades {
		row := i + 2
		values := []any{
			trade.ID,
			trade.TradeDate.Format("2006-01-02"),
			trade.Ticker,
			string(trade.Side),
			trade.Shares.String(),
			trade.Price.StringFixed(2),
			trade.Currency,
			trade.Note,
		}
		for j, value := range values {
			cell, err := excelize.CoordinatesToCellName(j+1, row)
			if err != nil {
				return err
			}
			f.SetCellValue(sheetName, cell, value)
		}
	}

	return nil
}
