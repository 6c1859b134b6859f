package types

import (
	"time"

	"github.com/shopspring/decimal"
)

type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// PriceMode selects which ticker price is used for valuation.
type PriceMode string

const (
	PriceLast PriceMode = "LAST"
	PriceMid  PriceMode = "MID"
)

// Pair is a canonical (asset, quote) instrument identifier, e.g. BTC/USD.
type Pair struct {
	Asset string
	Quote string
}

func (p Pair) String() string { return p.Asset + "/" + p.Quote }

// TradeRecord is one normalized fill from the venue's trade history.
// Records for a pair must be applied to the ledger in timestamp order.
type TradeRecord struct {
	Pair      Pair
	VenuePair string // venue-native code (e.g. XXBTZUSD), kept for ticker lookups
	TxID      string
	Side      Side
	Volume    decimal.Decimal // units of asset
	Price     decimal.Decimal // quote per unit
	Cost      decimal.Decimal // gross quote amount before fee
	Fee       decimal.Decimal // quote currency
	Time      time.Time
}

// ReportRow is one per-pair line of the final summary. All money fields are
// in the pair's quote currency. CurrentPrice and UnrealizedPnL are only
// meaningful when HasPrice is true; they render as blank otherwise.
type ReportRow struct {
	Asset                  string
	Quote                  string
	TotalBought            decimal.Decimal
	AvgBuyPrice            decimal.Decimal
	TotalSold              decimal.Decimal
	AvgSellPrice           decimal.Decimal
	NetFromHistory         decimal.Decimal
	RemainingVolume        decimal.Decimal
	AvgBuyPriceOfRemaining decimal.Decimal
	FeesTotal              decimal.Decimal
	RealizedPnL            decimal.Decimal
	CurrentPrice           decimal.Decimal
	UnrealizedPnL          decimal.Decimal
	HasPrice               bool
}
