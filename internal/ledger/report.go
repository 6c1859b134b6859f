package ledger

import (
	"github.com/shopspring/decimal"

	"kraken-trade-analyzer/internal/types"
)

// BuildReport merges VWAP, FIFO totals and valuation into one row per
// pair, sorted by (asset, quote). prices is keyed by venue pair name; a
// pair without a usable price still gets a row, with the price columns
// absent.
func BuildReport(l *Ledger, prices map[string]decimal.Decimal) []types.ReportRow {
	states := l.Pairs()
	rows := make([]types.ReportRow, 0, len(states))
	for _, ps := range states {
		row := types.ReportRow{
			Asset:                  ps.Pair.Asset,
			Quote:                  ps.Pair.Quote,
			TotalBought:            ps.TotalBought,
			AvgBuyPrice:            ps.AvgBuyPrice(),
			TotalSold:              ps.TotalSold,
			AvgSellPrice:           ps.AvgSellPrice(),
			NetFromHistory:         ps.NetFromHistory(),
			RemainingVolume:        ps.RemainingVolume(),
			AvgBuyPriceOfRemaining: ps.AvgCostOfRemaining(),
			FeesTotal:              ps.FeesTotal,
			RealizedPnL:            ps.RealizedPnL,
		}
		if price, ok := prices[ps.VenuePair]; ok && price.IsPositive() {
			row.HasPrice = true
			row.CurrentPrice = price
			row.UnrealizedPnL = ps.UnrealizedPnL(price)
		}
		rows = append(rows, row)
	}
	return rows
}
