package ledger

import "github.com/shopspring/decimal"

// Volume-weighted average prices. Both sides are tracked as running sums
// while trades are applied, so these are pure reads.
//
// When fees are included, the buy side averages cost+fee and the sell side
// averages cost-fee, so the figures are the effective prices actually paid
// and received.

// AvgBuyPrice is Σ effective buy cost / Σ buy volume, or zero when the
// pair has no buys.
func (ps *PairState) AvgBuyPrice() decimal.Decimal {
	if !ps.TotalBought.IsPositive() {
		return decimal.Zero
	}
	return ps.BuyCost.Div(ps.TotalBought)
}

// AvgSellPrice is Σ effective sell proceeds / Σ sell volume, or zero when
// the pair has no sells.
func (ps *PairState) AvgSellPrice() decimal.Decimal {
	if !ps.TotalSold.IsPositive() {
		return decimal.Zero
	}
	return ps.SellProceeds.Div(ps.TotalSold)
}

// NetFromHistory is bought minus sold in asset units, always derived from
// the raw history and unaffected by reconciliation.
func (ps *PairState) NetFromHistory() decimal.Decimal {
	return ps.TotalBought.Sub(ps.TotalSold)
}
