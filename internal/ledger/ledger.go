package ledger

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"kraken-trade-analyzer/internal/logger"
	"kraken-trade-analyzer/internal/types"
)

// Config controls how costs and proceeds are computed.
type Config struct {
	// IncludeFees makes buy cost include the fee and sell proceeds net of
	// the fee. Off, cost and proceeds are the gross amounts.
	IncludeFees bool
}

// Lot is one parcel of asset bought at a single effective unit cost.
// Volume only ever decreases; UnitCost is fixed for the lot's life.
type Lot struct {
	Volume   decimal.Decimal
	UnitCost decimal.Decimal
	OpenedAt time.Time
}

// Cost returns the remaining cost basis of the lot.
func (l Lot) Cost() decimal.Decimal { return l.Volume.Mul(l.UnitCost) }

// RealizedEvent records one sell being matched against open lots.
// Events are append-only and never revised, not even by reconciliation.
type RealizedEvent struct {
	Pair        types.Pair
	Time        time.Time
	Volume      decimal.Decimal
	Proceeds    decimal.Decimal // net of fee when fees are included
	MatchedCost decimal.Decimal
	PnL         decimal.Decimal
}

// PairState holds the full accounting state for one (asset, quote) pair.
type PairState struct {
	Pair      types.Pair
	VenuePair string

	lots []*Lot // open lots, oldest first

	TotalBought  decimal.Decimal
	TotalSold    decimal.Decimal
	BuyCost      decimal.Decimal // Σ effective buy cost, drives the buy VWAP
	SellProceeds decimal.Decimal // Σ effective sell proceeds, drives the sell VWAP
	FeesTotal    decimal.Decimal
	RealizedPnL  decimal.Decimal

	// UnderSupplied is sell volume that had no buy lot to match against
	// (history starts after a transfer-in, for example). It is priced at
	// zero cost basis, which overstates realized PnL rather than failing.
	UnderSupplied decimal.Decimal

	Events []RealizedEvent

	LastTradeAt time.Time
}

// Ledger applies a time-ordered trade stream and maintains one PairState
// per pair. Pairs are mutually independent.
type Ledger struct {
	cfg   Config
	pairs map[types.Pair]*PairState
}

func New(cfg Config) *Ledger {
	return &Ledger{cfg: cfg, pairs: make(map[types.Pair]*PairState)}
}

// Pair returns the state for p, or nil if no trade touched it.
func (l *Ledger) Pair(p types.Pair) *PairState { return l.pairs[p] }

// Pairs returns all pair states sorted by (asset, quote).
func (l *Ledger) Pairs() []*PairState {
	out := make([]*PairState, 0, len(l.pairs))
	for _, ps := range l.pairs {
		out = append(out, ps)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Pair.Asset != out[j].Pair.Asset {
			return out[i].Pair.Asset < out[j].Pair.Asset
		}
		return out[i].Pair.Quote < out[j].Pair.Quote
	})
	return out
}

// Apply processes one fill. Records for a pair must arrive in
// non-decreasing timestamp order or FIFO matching is meaningless.
func (l *Ledger) Apply(ctx context.Context, t types.TradeRecord) {
	if !t.Volume.IsPositive() {
		logger.Warn(ctx, "Skipping fill with non-positive volume",
			"pair", t.Pair.String(), "txid", t.TxID)
		return
	}

	ps := l.pairs[t.Pair]
	if ps == nil {
		ps = &PairState{Pair: t.Pair, VenuePair: t.VenuePair}
		l.pairs[t.Pair] = ps
	}
	if ps.VenuePair == "" {
		ps.VenuePair = t.VenuePair
	}
	if t.Time.After(ps.LastTradeAt) {
		ps.LastTradeAt = t.Time
	}

	switch t.Side {
	case types.SideBuy:
		ps.applyBuy(t, l.cfg)
	case types.SideSell:
		ps.applySell(ctx, t, l.cfg)
	default:
		logger.Warn(ctx, "Skipping fill with unknown side",
			"pair", t.Pair.String(), "side", string(t.Side), "txid", t.TxID)
	}
}

func (ps *PairState) applyBuy(t types.TradeRecord, cfg Config) {
	cost := t.Cost
	if cfg.IncludeFees {
		cost = cost.Add(t.Fee)
	}

	ps.TotalBought = ps.TotalBought.Add(t.Volume)
	ps.BuyCost = ps.BuyCost.Add(cost)
	ps.FeesTotal = ps.FeesTotal.Add(t.Fee)

	ps.lots = append(ps.lots, &Lot{
		Volume:   t.Volume,
		UnitCost: cost.Div(t.Volume),
		OpenedAt: t.Time,
	})
}

func (ps *PairState) applySell(ctx context.Context, t types.TradeRecord, cfg Config) {
	proceeds := t.Cost
	if cfg.IncludeFees {
		proceeds = proceeds.Sub(t.Fee)
	}

	ps.TotalSold = ps.TotalSold.Add(t.Volume)
	ps.SellProceeds = ps.SellProceeds.Add(proceeds)
	ps.FeesTotal = ps.FeesTotal.Add(t.Fee)

	// Match against the oldest lots first.
	remaining := t.Volume
	matchedCost := decimal.Zero
	for remaining.IsPositive() && len(ps.lots) > 0 {
		lot := ps.lots[0]
		use := decimal.Min(lot.Volume, remaining)
		matchedCost = matchedCost.Add(use.Mul(lot.UnitCost))
		lot.Volume = lot.Volume.Sub(use)
		remaining = remaining.Sub(use)
		if lot.Volume.IsZero() {
			ps.lots = ps.lots[1:]
		}
	}

	// Shortfall means the history is missing earlier buys. The unmatched
	// volume carries a zero cost basis so its proceeds count as pure gain;
	// conservative for inventory, optimistic for PnL, and logged so the
	// user can reconcile.
	if remaining.IsPositive() {
		ps.UnderSupplied = ps.UnderSupplied.Add(remaining)
		logger.Warn(ctx, "Sell exceeds tracked lot volume, shortfall priced at zero cost basis",
			"pair", ps.Pair.String(), "txid", t.TxID, "shortfall", remaining.String())
	}

	pnl := proceeds.Sub(matchedCost)
	ps.RealizedPnL = ps.RealizedPnL.Add(pnl)
	ps.Events = append(ps.Events, RealizedEvent{
		Pair:        ps.Pair,
		Time:        t.Time,
		Volume:      t.Volume,
		Proceeds:    proceeds,
		MatchedCost: matchedCost,
		PnL:         pnl,
	})
}

// RemainingVolume is the total volume across open lots.
func (ps *PairState) RemainingVolume() decimal.Decimal {
	total := decimal.Zero
	for _, lot := range ps.lots {
		total = total.Add(lot.Volume)
	}
	return total
}

// RemainingCost is the total cost basis across open lots.
func (ps *PairState) RemainingCost() decimal.Decimal {
	total := decimal.Zero
	for _, lot := range ps.lots {
		total = total.Add(lot.Cost())
	}
	return total
}

// AvgCostOfRemaining is the volume-weighted average unit cost of the open
// lots, or zero when nothing remains.
func (ps *PairState) AvgCostOfRemaining() decimal.Decimal {
	vol := ps.RemainingVolume()
	if !vol.IsPositive() {
		return decimal.Zero
	}
	return ps.RemainingCost().Div(vol)
}

// Lots returns a copy of the open lots, oldest first.
func (ps *PairState) Lots() []Lot {
	out := make([]Lot, len(ps.lots))
	for i, lot := range ps.lots {
		out[i] = *lot
	}
	return out
}
