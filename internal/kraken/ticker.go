package kraken

import (
	"context"
	"net/url"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"kraken-trade-analyzer/internal/interfaces"
	"kraken-trade-analyzer/internal/logger"
	"kraken-trade-analyzer/internal/types"
)

var _ interfaces.PriceSource = (*Client)(nil)

// tickerInfo is the slice-heavy shape the public Ticker endpoint returns.
// a/b are [price, whole lot volume, lot volume]; c is [price, lot volume].
type tickerInfo struct {
	Ask  []string `json:"a"`
	Bid  []string `json:"b"`
	Last []string `json:"c"`
}

// CurrentPrices fetches current prices for the given venue pair names.
// Mode selects the last traded price or the bid/ask midpoint. Pairs
// without a usable quote are left out of the result; a venue error yields
// an empty map rather than failing the run, since valuation is optional.
func (c *Client) CurrentPrices(ctx context.Context, venuePairs []string, mode types.PriceMode) (map[string]decimal.Decimal, error) {
	prices := make(map[string]decimal.Decimal)
	if len(venuePairs) == 0 {
		return prices, nil
	}

	names := append([]string(nil), venuePairs...)
	sort.Strings(names)

	var result map[string]tickerInfo
	err := c.queryPublic(ctx, "Ticker", url.Values{"pair": {strings.Join(names, ",")}}, &result)
	if err != nil {
		logger.Warn(ctx, "Ticker lookup failed, report will omit current prices", "error", err)
		return prices, nil
	}

	for name, info := range result {
		var price decimal.Decimal
		var ok bool
		if mode == types.PriceMid {
			price, ok = midPrice(info)
		} else {
			price, ok = firstDecimal(info.Last)
		}
		if ok && price.IsPositive() {
			prices[name] = price
		}
	}
	return prices, nil
}

func midPrice(info tickerInfo) (decimal.Decimal, bool) {
	bid, okB := firstDecimal(info.Bid)
	ask, okA := firstDecimal(info.Ask)
	if !okB || !okA {
		return decimal.Decimal{}, false
	}
	return bid.Add(ask).Div(decimal.NewFromInt(2)), true
}

func firstDecimal(vals []string) (decimal.Decimal, bool) {
	if len(vals) == 0 {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(vals[0])
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}
