package portfolioService

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/KotFed0t/investa/config"
	"github.com/KotFed0t/investa/data/repository"
	"github.com/KotFed0t/investa/internal/model"
	"github.com/KotFed0t/investa/internal/pricecache"
	"github.com/KotFed0t/investa/internal/portfolio"
	"github.com/KotFed0t/investa/internal/service"
	"github.com/KotFed0t/investa/internal/valuation"
	"github.com/KotFed0t/investa/utils"
	"github.com/shopspring/decimal"
)

const (
	tickerUpsertChunk = 500
	defaultCurrency   = "USD"
)

type Repository interface {
	InsertTrade(ctx context.Context, trade model.Trade) (tradeID int64, err error)
	GetTrades(ctx context.Context) ([]model.Trade, error)
	GetTradeTickers(ctx context.Context) ([]string, error)
	DeleteTrade(ctx context.Context, tradeID int64) error
	InsertCashflow(ctx context.Context, cashflow model.Cashflow) (cashflowID int64, err error)
	GetCashflows(ctx context.Context) ([]model.Cashflow, error)
	DeleteCashflow(ctx context.Context, cashflowID int64) error
	InsertTag(ctx context.Context, name string) error
	GetTags(ctx context.Context) ([]string, error)
	UpsertTickers(ctx context.Context, tickers []model.TickerInfo) error
	SearchTickers(ctx context.Context, search string, limit int) ([]model.TickerInfo, error)
	CountTickers(ctx context.Context) (int, error)
	WithinTransaction(ctx context.Context, tFunc func(ctx context.Context) error) error
}

type Cache interface {
	SetQuotes(ctx context.Context, quotes []model.PriceQuote) error
	GetQuote(ctx context.Context, ticker string) (model.PriceQuote, error)
	GetPortfolioMetrics(ctx context.Context) (model.PortfolioMetrics, error)
	SetPortfolioMetrics(ctx context.Context, metrics model.PortfolioMetrics) error
	FlushPortfolioMetrics(ctx context.Context) error
}

// PriceSource is the tiered in-process cache over the quote oracle.
type PriceSource interface {
	GetPrice(ctx context.Context, ticker string) (model.PriceQuote, error)
	GetSummary(ctx context.Context, ticker string) (model.StockSummary, error)
	GetHistory(ctx context.Context, ticker, period string) (model.PriceHistory, error)
	PrimePrices(prices map[string]decimal.Decimal)
}

type QuoteApi interface {
	GetCurrentPrices(ctx context.Context, tickers []string) (map[string]decimal.Decimal, error)
}

type NasdaqApi interface {
	GetListedTickers(ctx context.Context) ([]model.TickerInfo, error)
}

type ReportGenerator interface {
	Generate(ctx context.Context, metrics model.PortfolioMetrics, trades []model.Trade) (fileBytes []byte, fileExtension string, err error)
}

// CloudStorage may be nil when cloud upload is disabled in config.
type CloudStorage interface {
	UploadFile(ctx context.Context, reader io.Reader, filename string) (downloadLink string, err error)
	DeleteOldFiles(ctx context.Context) error
}

type PortfolioService struct {
	cfg       *config.Config
	repo      Repository
	cache     Cache
	prices    PriceSource
	quoteApi  QuoteApi
	nasdaqApi NasdaqApi
	reportGen ReportGenerator
	storage   CloudStorage
}

func New(
	cfg *config.Config,
	repo Repository,
	cache Cache,
	prices PriceSource,
	quoteApi QuoteApi,
	nasdaqApi NasdaqApi,
	reportGen ReportGenerator,
	storage CloudStorage,
) *PortfolioService {
	return &PortfolioService{
		cfg:       cfg,
		repo:      repo,
		cache:     cache,
		prices:    prices,
		quoteApi:  quoteApi,
		nasdaqApi: nasdaqApi,
		reportGen: reportGen,
		storage:   storage,
	}
}

func (s *PortfolioService) RecordTrade(ctx context.Context, trade model.Trade) (model.Trade, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.RecordTrade"

	slog.Debug("RecordTrade start", slog.String("rqID", rqID), slog.String("op", op), slog.String("ticker", trade.Ticker))
	defer func() {
		slog.Debug("RecordTrade finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("ticker", trade.Ticker))
	}()

	trade.Ticker = strings.ToUpper(strings.TrimSpace(trade.Ticker))
	if trade.Currency == "" {
		trade.Currency = defaultCurrency
	}

	if err := validateTrade(trade); err != nil {
		slog.Warn("invalid trade", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Trade{}, err
	}

	tradeID, err := s.repo.InsertTrade(ctx, trade)
	if err != nil {
		slog.Error("got error from repo.InsertTrade", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Trade{}, err
	}

	trade.ID = tradeID

	s.flushMetricsCache(ctx)

	return trade, nil
}

func (s *PortfolioService) DeleteTrade(ctx context.Context, tradeID int64) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.DeleteTrade"

	slog.Debug("DeleteTrade start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("tradeID", tradeID))
	defer func() {
		slog.Debug("DeleteTrade finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("tradeID", tradeID))
	}()

	err := s.repo.DeleteTrade(ctx, tradeID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return service.ErrNotFound
		}
		slog.Error("got error from repo.DeleteTrade", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	s.flushMetricsCache(ctx)

	return nil
}

func (s *PortfolioService) Trades(ctx context.Context) ([]model.Trade, error) {
	return s.repo.GetTrades(ctx)
}

func (s *PortfolioService) RecordCashflow(ctx context.Context, cashflow model.Cashflow) (model.Cashflow, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.RecordCashflow"

	slog.Debug("RecordCashflow start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		slog.Debug("RecordCashflow finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	if cashflow.Currency == "" {
		cashflow.Currency = defaultCurrency
	}

	if err := validateCashflow(cashflow); err != nil {
		slog.Warn("invalid cashflow", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Cashflow{}, err
	}

	cashflowID, err := s.repo.InsertCashflow(ctx, cashflow)
	if err != nil {
		slog.Error("got error from repo.InsertCashflow", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Cashflow{}, err
	}

	cashflow.ID = cashflowID

	s.flushMetricsCache(ctx)

	return cashflow, nil
}

func (s *PortfolioService) DeleteCashflow(ctx context.Context, cashflowID int64) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.DeleteCashflow"

	err := s.repo.DeleteCashflow(ctx, cashflowID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return service.ErrNotFound
		}
		slog.Error("got error from repo.DeleteCashflow", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	s.flushMetricsCache(ctx)

	return nil
}

func (s *PortfolioService) Cashflows(ctx context.Context) ([]model.Cashflow, error) {
	return s.repo.GetCashflows(ctx)
}

func (s *PortfolioService) CreateTag(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: empty tag name", service.ErrInvalidInput)
	}

	err := s.repo.InsertTag(ctx, name)
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			return service.ErrAlreadyExists
		}
		return err
	}

	return nil
}

func (s *PortfolioService) Tags(ctx context.Context) ([]string, error) {
	return s.repo.GetTags(ctx)
}

// PortfolioSnapshot recomputes holdings and metrics from the ledger. The
// result is cached in redis with a short TTL and flushed on every ledger
// write, so the ledger stays the single source of truth.
func (s *PortfolioService) PortfolioSnapshot(ctx context.Context) (model.PortfolioMetrics, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.PortfolioSnapshot"

	slog.Debug("PortfolioSnapshot start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		slog.Debug("PortfolioSnapshot finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	metrics, err := s.cache.GetPortfolioMetrics(ctx)
	if err == nil {
		return metrics, nil
	}

	trades, err := s.repo.GetTrades(ctx)
	if err != nil {
		slog.Error("got error from repo.GetTrades", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.PortfolioMetrics{}, err
	}

	cashflows, err := s.repo.GetCashflows(ctx)
	if err != nil {
		slog.Error("got error from repo.GetCashflows", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.PortfolioMetrics{}, err
	}

	holdings := portfolio.Aggregate(trades)
	cash := valuation.CashBalance(cashflows, trades)

	metrics = valuation.ComputeMetrics(holdings, s.priceLookup(ctx), cash)

	// Written synchronously: a write-behind goroutine could land after a
	// later flush and resurrect metrics computed before a ledger write.
	if err := s.cache.SetPortfolioMetrics(ctx, metrics); err != nil {
		slog.Error("got error from cache.SetPortfolioMetrics", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
	}

	return metrics, nil
}

// priceLookup resolves prices through the tiered cache, falling back to the
// redis snapshot primed by the warm-quotes job. A stale value still counts as
// a price; only a full miss makes the valuation fall back to average cost.
func (s *PortfolioService) priceLookup(ctx context.Context) valuation.PriceLookup {
	rqID := utils.GetRequestIDFromCtx(ctx)

	return func(ticker string) (decimal.Decimal, bool) {
		quote, err := s.prices.GetPrice(ctx, ticker)
		if err == nil {
			return quote.Price, true
		}

		if !errors.Is(err, pricecache.ErrUnavailable) {
			slog.Error("got error from prices.GetPrice", slog.String("rqID", rqID), slog.String("ticker", ticker), slog.String("err", err.Error()))
		}

		snapshot, err := s.cache.GetQuote(ctx, ticker)
		if err == nil {
			return snapshot.Price, true
		}

		slog.Warn("no price available, falling back to avg cost", slog.String("rqID", rqID), slog.String("ticker", ticker))

		return decimal.Decimal{}, false
	}
}

func (s *PortfolioService) StockSummary(ctx context.Context, ticker string) (model.StockSummary, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.StockSummary"

	slog.Debug("StockSummary start", slog.String("rqID", rqID), slog.String("op", op), slog.String("ticker", ticker))
	defer func() {
		slog.Debug("StockSummary finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("ticker", ticker))
	}()

	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return model.StockSummary{}, fmt.Errorf("%w: empty ticker", service.ErrInvalidInput)
	}

	summary, err := s.prices.GetSummary(ctx, ticker)
	if err != nil {
		if errors.Is(err, pricecache.ErrUnavailable) {
			return model.StockSummary{}, service.ErrPriceUnavailable
		}
		return model.StockSummary{}, err
	}

	return summary, nil
}

func (s *PortfolioService) PriceHistory(ctx context.Context, ticker, period string) (model.PriceHistory, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.PriceHistory"

	slog.Debug("PriceHistory start", slog.String("rqID", rqID), slog.String("op", op), slog.String("ticker", ticker), slog.String("period", period))
	defer func() {
		slog.Debug("PriceHistory finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("ticker", ticker))
	}()

	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return model.PriceHistory{}, fmt.Errorf("%w: empty ticker", service.ErrInvalidInput)
	}

	history, err := s.prices.GetHistory(ctx, ticker, period)
	if err != nil {
		if errors.Is(err, pricecache.ErrUnavailable) {
			return model.PriceHistory{}, service.ErrPriceUnavailable
		}
		return model.PriceHistory{}, err
	}

	return history, nil
}

func (s *PortfolioService) SearchTickers(ctx context.Context, search string, limit int) ([]model.TickerInfo, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.SearchTickers"

	if limit <= 0 {
		limit = 10
	}

	count, err := s.repo.CountTickers(ctx)
	if err != nil {
		slog.Error("got error from repo.CountTickers", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		count = 0
	}

	if count > 0 {
		tickers, err := s.repo.SearchTickers(ctx, strings.TrimSpace(search), limit)
		if err == nil && len(tickers) > 0 {
			return tickers, nil
		}
		if err != nil {
			slog.Error("got error from repo.SearchTickers", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		}
	}

	// directory empty or unavailable, fall back to the embedded list
	return searchFallbackTickers(search, limit), nil
}

// WarmQuotes batch-fetches current prices for every ticker in the ledger,
// primes the live price view and stores a redis snapshot. Runs as a
// scheduler job.
func (s *PortfolioService) WarmQuotes(ctx context.Context) error {
	ctx = utils.CtxWithRqID(ctx)
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.WarmQuotes"

	slog.Debug("WarmQuotes start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		slog.Debug("WarmQuotes finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	tickers, err := s.repo.GetTradeTickers(ctx)
	if err != nil {
		slog.Error("got error from repo.GetTradeTickers", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	if len(tickers) == 0 {
		return nil
	}

	prices, err := s.quoteApi.GetCurrentPrices(ctx, tickers)
	if err != nil {
		slog.Error("got error from quoteApi.GetCurrentPrices", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	s.prices.PrimePrices(prices)

	now := time.Now()
	quotes := make([]model.PriceQuote, 0, len(prices))
	for ticker, price := range prices {
		quotes = append(quotes, model.PriceQuote{Ticker: ticker, Price: price, FetchedAt: now})
	}

	err = s.cache.SetQuotes(ctx, quotes)
	if err != nil {
		slog.Error("got error from cache.SetQuotes", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	slog.Info("quotes warmed", slog.String("rqID", rqID), slog.Int("tickers", len(tickers)), slog.Int("prices", len(prices)))

	return nil
}

// SyncTickers refreshes the ticker directory from the Nasdaq symbol listing.
// Runs as a scheduler job.
func (s *PortfolioService) SyncTickers(ctx context.Context) error {
	ctx = utils.CtxWithRqID(ctx)
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.SyncTickers"

	slog.Debug("SyncTickers start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		slog.Debug("SyncTickers finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	tickers, err := s.nasdaqApi.GetListedTickers(ctx)
	if err != nil {
		slog.Error("got error from nasdaqApi.GetListedTickers", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	err = s.repo.WithinTransaction(ctx, func(ctx context.Context) error {
		for start := 0; start < len(tickers); start += tickerUpsertChunk {
			end := min(start+tickerUpsertChunk, len(tickers))
			if err := s.repo.UpsertTickers(ctx, tickers[start:end]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		slog.Error("got error from repo.UpsertTickers", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	slog.Info("ticker directory synced", slog.String("rqID", rqID), slog.Int("tickers", len(tickers)))

	return nil
}

// GenerateReport builds an xlsx report from the current portfolio snapshot
// and the full trade history.
func (s *PortfolioService) GenerateReport(ctx context.Context) (fileBytes []byte, filename string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.GenerateReport"

	slog.Debug("GenerateReport start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		slog.Debug("GenerateReport finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	metrics, err := s.PortfolioSnapshot(ctx)
	if err != nil {
		return nil, "", err
	}

	trades, err := s.repo.GetTrades(ctx)
	if err != nil {
		slog.Error("got error from repo.GetTrades", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, "", err
	}

	fileBytes, fileExtension, err := s.reportGen.Generate(ctx, metrics, trades)
	if err != nil {
		slog.Error("got error from reportGen.Generate", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, "", err
	}

	filename = "portfolio_" + time.Now().Format("20060102_150405") + fileExtension

	return fileBytes, filename, nil
}

// UploadReport generates a report and pushes it to cloud storage, returning a
// shareable download link.
func (s *PortfolioService) UploadReport(ctx context.Context) (downloadLink string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.UploadReport"

	slog.Debug("UploadReport start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		slog.Debug("UploadReport finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	if s.storage == nil {
		return "", service.ErrStorageDisabled
	}

	fileBytes, filename, err := s.GenerateReport(ctx)
	if err != nil {
		return "", err
	}

	downloadLink, err = s.storage.UploadFile(ctx, bytes.NewReader(fileBytes), filename)
	if err != nil {
		slog.Error("got error from storage.UploadFile", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return "", err
	}

	return downloadLink, nil
}

// CleanupReports removes expired report files from cloud storage. Runs as a
// scheduler job.
func (s *PortfolioService) CleanupReports(ctx context.Context) error {
	ctx = utils.CtxWithRqID(ctx)

	if s.storage == nil {
		return nil
	}

	return s.storage.DeleteOldFiles(ctx)
}

// flushMetricsCache runs synchronously: an async flush could lose the race
// with the next read and serve metrics from before the write.
func (s *PortfolioService) flushMetricsCache(ctx context.Context) {
	rqID := utils.GetRequestIDFromCtx(ctx)

	err := s.cache.FlushPortfolioMetrics(ctx)
	if err != nil {
		slog.Error("got error from cache.FlushPortfolioMetrics", slog.String("rqID", rqID), slog.String("err", err.Error()))
	}
}

func validateTrade(trade model.Trade) error {
	if trade.Ticker == "" {
		return fmt.Errorf("%w: empty ticker", service.ErrInvalidInput)
	}
	if !trade.Side.Valid() {
		return fmt.Errorf("%w: unknown trade side %q", service.ErrInvalidInput, trade.Side)
	}
	if !trade.Shares.IsPositive() {
		return fmt.Errorf("%w: shares must be positive", service.ErrInvalidInput)
	}
	if !trade.Price.IsPositive() {
		return fmt.Errorf("%w: price must be positive", service.ErrInvalidInput)
	}
	if trade.TradeDate.IsZero() {
		return fmt.Errorf("%w: empty trade date", service.ErrInvalidInput)
	}
	return nil
}

func validateCashflow(cashflow model.Cashflow) error {
	if !cashflow.Type.Valid() {
		return fmt.Errorf("%w: unknown cashflow type %q", service.ErrInvalidInput, cashflow.Type)
	}
	if !cashflow.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive", service.ErrInvalidInput)
	}
	if cashflow.FlowDate.IsZero() {
		return fmt.Errorf("%w: empty flow date", service.ErrInvalidInput)
	}
	return nil
}
