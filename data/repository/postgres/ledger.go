package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/KotFed0t/investa/data/repository"
	"github.com/KotFed0t/investa/internal/converter/dbConverter"
	"github.com/KotFed0t/investa/internal/model"
	"github.com/KotFed0t/investa/internal/model/dbModel"
	"github.com/KotFed0t/investa/utils"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
)

func (r *Postgres) InsertTrade(ctx context.Context, trade model.Trade) (tradeID int64, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.InsertTrade"
	query := `
		INSERT INTO trades(ticker, side, shares, price, currency, trade_date, note)
		VALUES($1, $2, $3, $4, $5, $6, $7)
		RETURNING trade_id
	`

	slog.Debug("InsertTrade start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("InsertTrade failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("InsertTrade completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	var note any
	if trade.Note != "" {
		note = trade.Note
	}

	err = r.txOrDb(ctx).QueryRowContext(
		ctx,
		query,
		trade.Ticker,
		string(trade.Side),
		trade.Shares,
		trade.Price,
		trade.Currency,
		trade.TradeDate,
		note,
	).Scan(&tradeID)
	if err != nil {
		return 0, err
	}

	return tradeID, nil
}

func (r *Postgres) GetTrades(ctx context.Context) (trades []model.Trade, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.GetTrades"
	query := `
		SELECT trade_id, ticker, side, shares, price, currency, trade_date, note, dt_create
		FROM trades
		ORDER BY trade_date, trade_id
	`

	slog.Debug("GetTrades start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("GetTrades failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetTrades completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	rows, err := r.txOrDb(ctx).QueryxContext(ctx, query)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	for rows.Next() {
		var trade dbModel.Trade
		err = rows.StructScan(&trade)
		if err != nil {
			return nil, err
		}
		trades = append(trades, dbConverter.ConvertTrade(trade))
	}

	return trades, nil
}

func (r *Postgres) GetTradeTickers(ctx context.Context) (tickers []string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.GetTradeTickers"
	query := `SELECT DISTINCT ticker FROM trades ORDER BY ticker`

	slog.Debug("GetTradeTickers start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("GetTradeTickers failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetTradeTickers completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	err = r.txOrDb(ctx).SelectContext(ctx, &tickers, query)
	if err != nil {
		return nil, err
	}

	return tickers, nil
}

func (r *Postgres) DeleteTrade(ctx context.Context, tradeID int64) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.DeleteTrade"
	query := `DELETE FROM trades WHERE trade_id = $1`

	slog.Debug("DeleteTrade start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query), slog.Int64("tradeID", tradeID))
	defer func() {
		if err != nil {
			slog.Error("DeleteTrade failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("DeleteTrade completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	res, err := r.txOrDb(ctx).ExecContext(ctx, query, tradeID)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}

	if affected == 0 {
		return repository.ErrNotFound
	}

	return nil
}

func (r *Postgres) InsertCashflow(ctx context.Context, cashflow model.Cashflow) (cashflowID int64, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.InsertCashflow"
	query := `
		INSERT INTO cashflows(flow_type, amount, currency, category, tag, note, flow_date)
		VALUES($1, $2, $3, $4, $5, $6, $7)
		RETURNING cashflow_id
	`

	slog.Debug("InsertCashflow start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("InsertCashflow failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("InsertCashflow completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	nullable := func(s string) any {
		if s == "" {
			return nil
		}
		return s
	}

	err = r.txOrDb(ctx).QueryRowContext(
		ctx,
		query,
		string(cashflow.Type),
		cashflow.Amount,
		cashflow.Currency,
		nullable(cashflow.Category),
		nullable(cashflow.Tag),
		nullable(cashflow.Note),
		cashflow.FlowDate,
	).Scan(&cashflowID)
	if err != nil {
		return 0, err
	}

	return cashflowID, nil
}

func (r *Postgres) GetCashflows(ctx context.Context) (cashflows []model.Cashflow, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.GetCashflows"
	query := `
		SELECT cashflow_id, flow_type, amount, currency, category, tag, note, flow_date, dt_create
		FROM cashflows
		ORDER BY flow_date, cashflow_id
	`

	slog.Debug("GetCashflows start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("GetCashflows failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetCashflows completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	rows, err := r.txOrDb(ctx).QueryxContext(ctx, query)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	for rows.Next() {
		var cashflow dbModel.Cashflow
		err = rows.StructScan(&cashflow)
		if err != nil {
			return nil, err
		}
		cashflows = append(cashflows, dbConverter.ConvertCashflow(cashflow))
	}

	return cashflows, nil
}

func (r *Postgres) DeleteCashflow(ctx context.Context, cashflowID int64) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.DeleteCashflow"
	query := `DELETE FROM cashflows WHERE cashflow_id = $1`

	slog.Debug("DeleteCashflow start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query), slog.Int64("cashflowID", cashflowID))
	defer func() {
		if err != nil {
			slog.Error("DeleteCashflow failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("DeleteCashflow completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	res, err := r.txOrDb(ctx).ExecContext(ctx, query, cashflowID)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}

	if affected == 0 {
		return repository.ErrNotFound
	}

	return nil
}

func (r *Postgres) InsertTag(ctx context.Context, name string) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.InsertTag"
	query := `INSERT INTO tags(name) VALUES($1)`

	slog.Debug("InsertTag start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("InsertTag failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("InsertTag completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	_, err = r.txOrDb(ctx).ExecContext(ctx, query, name)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == "23505" { // unique_violation
				return repository.ErrAlreadyExists
			}
		}
		return err
	}

	return nil
}

func (r *Postgres) GetTags(ctx context.Context) (tags []string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.GetTags"
	query := `SELECT name FROM tags ORDER BY name`

	slog.Debug("GetTags start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("GetTags failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetTags completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	err = r.txOrDb(ctx).SelectContext(ctx, &tags, query)
	if err != nil {
		return nil, err
	}

	return tags, nil
}

func (r *Postgres) UpsertTickers(ctx context.Context, tickers []model.TickerInfo) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.UpsertTickers"

	slog.Debug("UpsertTickers start", slog.String("rqID", rqID), slog.String("op", op), slog.Int("count", len(tickers)))
	defer func() {
		if err != nil {
			slog.Error("UpsertTickers failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("UpsertTickers completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	if len(tickers) == 0 {
		return nil
	}

	sb := strings.Builder{}
	args := make([]any, 0, len(tickers)*4)

	sb.WriteString(`INSERT INTO tickers (symbol, name, exchange, is_etf) VALUES `)

	for i, ticker := range tickers {
		args = append(args, ticker.Symbol, ticker.Name, ticker.Exchange, ticker.IsETF)

		start := i*4 + 1
		sb.WriteString(fmt.Sprintf("($%d, $%d, $%d, $%d)", start, start+1, start+2, start+3))

		if i < len(tickers)-1 {
			sb.WriteString(",")
		}
	}

	sb.WriteString(`
		ON CONFLICT (symbol) DO UPDATE SET
			name = EXCLUDED.name,
			exchange = EXCLUDED.exchange,
			is_etf = EXCLUDED.is_etf;
	`)

	_, err = r.txOrDb(ctx).ExecContext(ctx, sb.String(), args...)
	return err
}

func (r *Postgres) SearchTickers(ctx context.Context, search string, limit int) (tickers []model.TickerInfo, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.SearchTickers"
	query := `
		SELECT symbol, name, exchange, is_etf
		FROM tickers
		WHERE symbol ILIKE $1 || '%' OR name ILIKE '%' || $1 || '%'
		ORDER BY (symbol ILIKE $1 || '%') DESC, symbol
		LIMIT $2
	`

	slog.Debug("SearchTickers start", slog.String("rqID", rqID), slog.String("op", op), slog.String("search", search))
	defer func() {
		if err != nil {
			slog.Error("SearchTickers failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("SearchTickers completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	rows, err := r.txOrDb(ctx).QueryxContext(ctx, query, search, limit)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	tickers = make([]model.TickerInfo, 0, limit)
	for rows.Next() {
		var ticker dbModel.Ticker
		err = rows.StructScan(&ticker)
		if err != nil {
			return nil, err
		}
		tickers = append(tickers, dbConverter.ConvertTicker(ticker))
	}

	return tickers, nil
}

func (r *Postgres) CountTickers(ctx context.Context) (count int, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.CountTickers"
	query := `SELECT COUNT(*) FROM tickers`

	slog.Debug("CountTickers start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		if err != nil {
			slog.Error("CountTickers failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("CountTickers completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	err = r.txOrDb(ctx).QueryRowContext(ctx, query).Scan(&count)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}

	return count, nil
}
