package nasdaqApi

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KotFed0t/investa/config"
	"github.com/KotFed0t/investa/internal/externalApi"
)

const nasdaqListedBody = "Symbol|Security Name|Market Category|Test Issue|Financial Status|Round Lot Size|ETF|NextShares\r\n" +
	"AAPL|Apple Inc. - Common Stock|Q|N|N|100|N|N\r\n" +
	"QQQ|Invesco QQQ Trust|G|N|N|100|Y|N\r\n" +
	"ZAZZT|Test Pilot - Common Stock|G|Y|N|100|N|N\r\n" +
	"File Creation Time: 0817202518:03|||||||\r\n"

const otherListedBody = "ACT Symbol|Security Name|Exchange|CQS Symbol|ETF|Round Lot Size|Test Issue|NASDAQ Symbol\r\n" +
	"SPY|SPDR S&P 500 ETF Trust|P|SPY|Y|100|N|SPY\r\n" +
	"IBM|International Business Machines Corporation|N|IBM|N|100|N|IBM\r\n" +
	"File Creation Time: 0817202518:03|||||||\r\n"

func newTestApi(handler http.Handler) (*NasdaqApi, *httptest.Server) {
	server := httptest.NewServer(handler)

	cfg := &config.Config{}
	cfg.API.Timeout = 5 * time.Second
	cfg.API.NasdaqApi.Url = server.URL

	return New(cfg), server
}

func TestGetListedTickers(t *testing.T) {
	api, server := newTestApi(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/dynamic/SymDir/nasdaqlisted.txt":
			fmt.Fprint(w, nasdaqListedBody)
		case "/dynamic/SymDir/otherlisted.txt":
			fmt.Fprint(w, otherListedBody)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	tickers, err := api.GetListedTickers(context.Background())
	require.NoError(t, err)
	require.Len(t, tickers, 4, "test issues and trailer lines are dropped")

	bySymbol := make(map[string]int, len(tickers))
	for i, ticker := range tickers {
		bySymbol[ticker.Symbol] = i
	}

	require.Contains(t, bySymbol, "AAPL")
	aapl := tickers[bySymbol["AAPL"]]
	assert.Equal(t, "Apple Inc. - Common Stock", aapl.Name)
	assert.Equal(t, "NASDAQ", aapl.Exchange)
	assert.False(t, aapl.IsETF)

	require.Contains(t, bySymbol, "QQQ")
	assert.True(t, tickers[bySymbol["QQQ"]].IsETF)

	require.Contains(t, bySymbol, "SPY")
	spy := tickers[bySymbol["SPY"]]
	assert.Equal(t, "P", spy.Exchange)
	assert.True(t, spy.IsETF)

	assert.NotContains(t, bySymbol, "ZAZZT", "test issues are excluded")
}

func TestGetListedTickersOtherListedFailureNonFatal(t *testing.T) {
	api, server := newTestApi(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/dynamic/SymDir/nasdaqlisted.txt" {
			fmt.Fprint(w, nasdaqListedBody)
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	tickers, err := api.GetListedTickers(context.Background())
	require.NoError(t, err, "nasdaqlisted alone is a usable directory")
	assert.Len(t, tickers, 2)
}

func TestGetListedTickersNasdaqListedFailureFatal(t *testing.T) {
	api, server := newTestApi(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := api.GetListedTickers(context.Background())
	assert.Error(t, err)
}

func TestGetListedTickersEmptyDirectory(t *testing.T) {
	api, server := newTestApi(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "Symbol|Security Name|Market Category|Test Issue|Financial Status|Round Lot Size|ETF|NextShares\r\n")
	}))
	defer server.Close()

	_, err := api.GetListedTickers(context.Background())
	assert.ErrorIs(t, err, externalApi.ErrNoData)
}
