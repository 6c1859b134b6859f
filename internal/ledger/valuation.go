package ledger

import "github.com/shopspring/decimal"

// UnrealizedPnL marks the open lots to the given current price:
// Σ (price - unit cost) × lot volume. With no open lots the result is
// exactly zero regardless of price.
func (ps *PairState) UnrealizedPnL(price decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, lot := range ps.lots {
		total = total.Add(price.Sub(lot.UnitCost).Mul(lot.Volume))
	}
	return total
}
