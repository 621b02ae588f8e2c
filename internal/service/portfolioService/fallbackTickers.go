package portfolioService

import (
	"sort"
	"strings"

	"github.com/KotFed0t/investa/internal/model"
)

// fallbackTickers backs ticker search until the Nasdaq directory has synced
// at least once.
var fallbackTickers = []string{
	"AAPL", "ABBV", "ADBE", "AMD", "AMZN", "AXP", "BA", "BAC", "BLK", "BRK.B",
	"C", "CAT", "COST", "CRM", "CSCO", "CVX", "DIS", "F", "GE", "GM",
	"GOOG", "GOOGL", "GS", "HD", "IBM", "INTC", "JNJ", "JPM", "KO", "LLY",
	"LMT", "MA", "MCD", "META", "MSFT", "MU", "NFLX", "NKE", "NVDA", "ORCL",
	"PEP", "PFE", "PG", "PYPL", "QCOM", "SBUX", "T", "TMUS", "TSLA", "UNH",
	"UPS", "V", "VZ", "WFC", "WMT", "XOM",
}

func searchFallbackTickers(search string, limit int) []model.TickerInfo {
	query := strings.ToUpper(strings.TrimSpace(search))

	var matches []string
	if query == "" {
		matches = fallbackTickers
	} else {
		for _, ticker := range fallbackTickers {
			if strings.HasPrefix(ticker, query) {
				matches = append(matches, ticker)
			}
		}
		if len(matches) == 0 {
			for _, ticker := range fallbackTickers {
				if strings.Contains(ticker, query) {
					matches = append(matches, ticker)
				}
			}
		}
		sort.Strings(matches)
	}

	if len(matches) > limit {
		matches = matches[:limit]
	}

	result := make([]model.TickerInfo, 0, len(matches))
	for _, ticker := range matches {
		result = append(result, model.TickerInfo{Symbol: ticker, Name: ticker})
	}

	return result
}
