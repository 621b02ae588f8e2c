package nasdaqApi

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/KotFed0t/investa/config"
	"github.com/KotFed0t/investa/internal/externalApi"
	"github.com/KotFed0t/investa/internal/model"
	"github.com/KotFed0t/investa/utils"
	"github.com/go-resty/resty/v2"
)

const (
	nasdaqListedPath = "/dynamic/SymDir/nasdaqlisted.txt"
	otherListedPath  = "/dynamic/SymDir/otherlisted.txt"
)

// NasdaqApi downloads the Nasdaq symbol directory (pipe-delimited listings of
// all Nasdaq- and other-exchange-listed securities).
type NasdaqApi struct {
	client *resty.Client
}

func New(cfg *config.Config) *NasdaqApi {
	client := resty.New().
		SetDebug(cfg.API.Debug).
		SetTimeout(cfg.API.Timeout).
		SetBaseURL(cfg.API.NasdaqApi.Url)
	return &NasdaqApi{client: client}
}

func (a *NasdaqApi) GetListedTickers(ctx context.Context) ([]model.TickerInfo, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)

	slog.Debug("NasdaqApi.GetListedTickers start", slog.String("rqID", rqID))

	nasdaqListed, err := a.fetchDirectory(ctx, nasdaqListedPath)
	if err != nil {
		return nil, err
	}

	tickers := parseNasdaqListed(nasdaqListed)

	otherListed, err := a.fetchDirectory(ctx, otherListedPath)
	if err != nil {
		// Nasdaq-listed alone is a usable directory.
		slog.Warn("can't fetch otherlisted directory", slog.String("rqID", rqID), slog.String("err", err.Error()))
	} else {
		tickers = append(tickers, parseOtherListed(otherListed)...)
	}

	if len(tickers) == 0 {
		return nil, externalApi.ErrNoData
	}

	slog.Debug("NasdaqApi.GetListedTickers complete", slog.String("rqID", rqID), slog.Int("count", len(tickers)))

	return tickers, nil
}

func (a *NasdaqApi) fetchDirectory(ctx context.Context, path string) (string, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)

	resp, err := a.client.R().SetContext(ctx).Get(path)
	if err != nil {
		slog.Error("error while dialing NasdaqApi", slog.String("err", err.Error()), slog.String("rqID", rqID))
		return "", err
	}

	if resp.StatusCode() != http.StatusOK {
		return "", fmt.Errorf("nasdaq symbol directory status %d", resp.StatusCode())
	}

	return string(resp.Body()), nil
}

// parseNasdaqListed parses nasdaqlisted.txt:
// Symbol|Security Name|Market Category|Test Issue|Financial Status|Round Lot Size|ETF|NextShares
func parseNasdaqListed(body string) []model.TickerInfo {
	lines := strings.Split(body, "\n")
	tickers := make([]model.TickerInfo, 0, len(lines))

	for i, line := range lines {
		if i == 0 || strings.HasPrefix(line, "File Creation Time") {
			continue
		}

		fields := strings.Split(strings.TrimRight(line, "\r"), "|")
		if len(fields) < 7 || fields[0] == "" {
			continue
		}

		if fields[3] == "Y" { // test issue
			continue
		}

		tickers = append(tickers, model.TickerInfo{
			Symbol:   fields[0],
			Name:     fields[1],
			Exchange: "NASDAQ",
			IsETF:    fields[6] == "Y",
		})
	}

	return tickers
}

// parseOtherListed parses otherlisted.txt:
// ACT Symbol|Security Name|Exchange|CQS Symbol|ETF|Round Lot Size|Test Issue|NASDAQ Symbol
func parseOtherListed(body string) []model.TickerInfo {
	lines := strings.Split(body, "\n")
	tickers := make([]model.TickerInfo, 0, len(lines))

	for i, line := range lines {
		if i == 0 || strings.HasPrefix(line, "File Creation Time") {
			continue
		}

		fields := strings.Split(strings.TrimRight(line, "\r"), "|")
		if len(fields) < 7 || fields[0] == "" {
			continue
		}

		if fields[6] == "Y" { // test issue
			continue
		}

		tickers = append(tickers, model.TickerInfo{
			Symbol:   fields[0],
			Name:     fields[1],
			Exchange: fields[2],
			IsETF:    fields[4] == "Y",
		})
	}

	return tickers
}
