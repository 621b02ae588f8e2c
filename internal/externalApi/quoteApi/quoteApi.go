package quoteApi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/KotFed0t/investa/config"
	"github.com/KotFed0t/investa/internal/externalApi"
	"github.com/KotFed0t/investa/internal/model"
	"github.com/KotFed0t/investa/internal/model/yahooModel"
	"github.com/KotFed0t/investa/utils"
	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

// periodRanges maps the supported history periods to chart API ranges.
var periodRanges = map[string]string{
	"1d":  "1d",
	"5d":  "5d",
	"1mo": "1mo",
	"3mo": "3mo",
	"6mo": "6mo",
	"1y":  "1y",
	"2y":  "2y",
	"5y":  "5y",
}

type QuoteApi struct {
	client *resty.Client
}

func New(cfg *config.Config) *QuoteApi {
	client := resty.New().
		SetDebug(cfg.API.Debug).
		SetTimeout(cfg.API.Timeout).
		SetBaseURL(cfg.API.QuoteApi.Url).
		SetHeader("User-Agent", "investa/1.0")
	return &QuoteApi{client: client}
}

func (a *QuoteApi) fetchChart(ctx context.Context, ticker, interval, rng string) (yahooModel.Result, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	chartURL := fmt.Sprintf("/v8/finance/chart/%s", url.PathEscape(ticker))
	params := map[string]string{
		"interval": interval,
		"range":    rng,
	}

	slog.Debug("QuoteApi.fetchChart request start", slog.String("rqID", rqID), slog.String("ticker", ticker), slog.String("range", rng))

	resp, err := a.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetQueryParams(params).
		Get(chartURL)

	if err != nil {
		slog.Error("error while dialing QuoteApi", slog.String("err", err.Error()), slog.String("rqID", rqID))
		return yahooModel.Result{}, err
	}

	if resp.StatusCode() == http.StatusNotFound {
		return yahooModel.Result{}, externalApi.ErrNotFound
	}

	if resp.StatusCode() != http.StatusOK {
		slog.Error("QuoteApi unexpected status", slog.Int("status", resp.StatusCode()), slog.String("rqID", rqID))
		return yahooModel.Result{}, fmt.Errorf("quote api status %d", resp.StatusCode())
	}

	chartResp := yahooModel.ChartResponse{}
	err = json.Unmarshal(resp.Body(), &chartResp)
	if err != nil {
		slog.Error("can't unmarshall response into yahooModel.ChartResponse", slog.String("err", err.Error()), slog.String("rqID", rqID))
		return yahooModel.Result{}, err
	}

	if chartResp.Chart.Error != nil {
		if chartResp.Chart.Error.Code == "Not Found" {
			return yahooModel.Result{}, externalApi.ErrNotFound
		}
		return yahooModel.Result{}, fmt.Errorf("quote api error: %s", chartResp.Chart.Error.Description)
	}

	if len(chartResp.Chart.Result) == 0 {
		return yahooModel.Result{}, externalApi.ErrNoData
	}

	slog.Debug("QuoteApi.fetchChart request complete", slog.String("rqID", rqID), slog.String("ticker", ticker))

	return chartResp.Chart.Result[0], nil
}

func (a *QuoteApi) GetCurrentPrice(ctx context.Context, ticker string) (decimal.Decimal, error) {
	result, err := a.fetchChart(ctx, ticker, "1d", "1d")
	if err != nil {
		return decimal.Decimal{}, err
	}

	if result.Meta.RegularMarketPrice > 0 {
		return decimal.NewFromFloat(result.Meta.RegularMarketPrice), nil
	}

	candles := parseCandles(result)
	if len(candles) == 0 {
		return decimal.Decimal{}, externalApi.ErrNoData
	}

	return candles[len(candles)-1].Close, nil
}

// GetCurrentPrices fetches prices one ticker at a time (the chart endpoint is
// per-symbol). Failed tickers are skipped, not fatal.
func (a *QuoteApi) GetCurrentPrices(ctx context.Context, tickers []string) (map[string]decimal.Decimal, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)

	prices := make(map[string]decimal.Decimal, len(tickers))
	for _, ticker := range tickers {
		price, err := a.GetCurrentPrice(ctx, ticker)
		if err != nil {
			slog.Warn("can't fetch price", slog.String("rqID", rqID), slog.String("ticker", ticker), slog.String("err", err.Error()))
			continue
		}
		prices[ticker] = price
	}

	if len(prices) == 0 && len(tickers) > 0 {
		return nil, externalApi.ErrNoData
	}

	return prices, nil
}

func (a *QuoteApi) GetSummary(ctx context.Context, ticker string) (model.StockSummary, error) {
	result, err := a.fetchChart(ctx, ticker, "1d", "1d")
	if err != nil {
		return model.StockSummary{}, err
	}

	candles := parseCandles(result)
	if len(candles) == 0 {
		return model.StockSummary{}, externalApi.ErrNoData
	}

	latest := candles[len(candles)-1]

	return model.StockSummary{
		Ticker: ticker,
		Open:   latest.Open,
		High:   latest.High,
		Low:    latest.Low,
		Close:  latest.Close,
		Volume: latest.Volume,
	}, nil
}

func (a *QuoteApi) GetHistory(ctx context.Context, ticker, period string) ([]model.Candle, error) {
	rng, ok := periodRanges[period]
	if !ok {
		return nil, fmt.Errorf("unsupported period %q", period)
	}

	interval := "1d"
	if period == "2y" || period == "5y" {
		interval = "1wk"
	}

	result, err := a.fetchChart(ctx, ticker, interval, rng)
	if err != nil {
		return nil, err
	}

	candles := parseCandles(result)
	if len(candles) == 0 {
		return nil, externalApi.ErrNoData
	}

	return candles, nil
}

// parseCandles flattens a chart result, dropping null bars (holidays etc.).
func parseCandles(result yahooModel.Result) []model.Candle {
	if len(result.Indicators.Quote) == 0 {
		return nil
	}

	quote := result.Indicators.Quote[0]
	candles := make([]model.Candle, 0, len(result.Timestamp))

	for i, ts := range result.Timestamp {
		if i >= len(quote.Close) || quote.Close[i] == nil {
			continue
		}

		candle := model.Candle{
			Time:  time.Unix(ts, 0).UTC(),
			Close: decimal.NewFromFloat(*quote.Close[i]),
		}

		if i < len(quote.Open) && quote.Open[i] != nil {
			candle.Open = decimal.NewFromFloat(*quote.Open[i])
		}
		if i < len(quote.High) && quote.High[i] != nil {
			candle.High = decimal.NewFromFloat(*quote.High[i])
		}
		if i < len(quote.Low) && quote.Low[i] != nil {
			candle.Low = decimal.NewFromFloat(*quote.Low[i])
		}
		if i < len(quote.Volume) && quote.Volume[i] != nil {
			candle.Volume = *quote.Volume[i]
		}

		candles = append(candles, candle)
	}

	return candles
}
