package ledger

import (
	"errors"

	"github.com/shopspring/decimal"
)

// ErrInvalidTarget is returned when a reconciliation target exceeds the
// pair's remaining lot volume. Cost basis cannot be fabricated for units
// the history never saw.
var ErrInvalidTarget = errors.New("reconcile: target exceeds remaining volume")

// Reconcile shrinks the open lots until their total volume equals target.
// It models units that left the venue outside the trade history (sold on
// another exchange, moved to cold storage), so it must not touch any
// realized figure: RealizedPnL, TotalBought, TotalSold and FeesTotal are
// all left alone.
//
// Lots are consumed newest first. The assumption is that units disposed of
// elsewhere are most plausibly the most recently acquired, which keeps the
// oldest (usually cheapest) lots intact. That is a policy choice, not a
// provable fact.
//
// Reconcile is idempotent: applying the same target twice is a no-op the
// second time. On error the state is unchanged.
func (ps *PairState) Reconcile(target decimal.Decimal) error {
	if target.IsNegative() {
		return ErrInvalidTarget
	}
	current := ps.RemainingVolume()
	if target.GreaterThan(current) {
		return ErrInvalidTarget
	}
	if target.Equal(current) {
		return nil
	}

	toReduce := current.Sub(target)
	for i := len(ps.lots) - 1; i >= 0 && toReduce.IsPositive(); i-- {
		lot := ps.lots[i]
		use := decimal.Min(lot.Volume, toReduce)
		lot.Volume = lot.Volume.Sub(use)
		toReduce = toReduce.Sub(use)
		if lot.Volume.IsZero() {
			// Only ever the current tail; truncation keeps order intact.
			ps.lots = ps.lots[:i]
		}
	}
	return nil
}
