package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"kraken-trade-analyzer/internal/types"
)

var ethUSD = types.Pair{Asset: "ETH", Quote: "USD"}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func requireEq(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.True(t, got.Equal(d(want)), "want %s, got %s", want, got.String())
}

// trade builds a fill with cost = volume × price.
func trade(side types.Side, vol, price, fee string, seq int) types.TradeRecord {
	v, p := d(vol), d(price)
	return types.TradeRecord{
		Pair:      ethUSD,
		VenuePair: "XETHZUSD",
		Side:      side,
		Volume:    v,
		Price:     p,
		Cost:      v.Mul(p),
		Fee:       d(fee),
		Time:      time.Unix(int64(1700000000+seq*60), 0),
	}
}

// fixtureLedger builds the worked example: two buys and one sell with fees
// included. Expected: lot one (2002) fully consumed, half of lot two
// (unit cost 3003) consumed, realized PnL 243.5, 0.5 ETH remaining.
func fixtureLedger(t *testing.T) *Ledger {
	t.Helper()
	led := New(Config{IncludeFees: true})
	ctx := context.Background()
	led.Apply(ctx, trade(types.SideBuy, "1.0", "2000", "2", 0))
	led.Apply(ctx, trade(types.SideBuy, "1.0", "3000", "3", 1))
	led.Apply(ctx, trade(types.SideSell, "1.5", "2500", "3", 2))
	return led
}

func TestFIFOWorkedExample(t *testing.T) {
	led := fixtureLedger(t)
	ps := led.Pair(ethUSD)
	require.NotNil(t, ps)

	requireEq(t, "243.5", ps.RealizedPnL)
	requireEq(t, "0.5", ps.RemainingVolume())
	requireEq(t, "3003", ps.AvgCostOfRemaining())
	requireEq(t, "2", ps.TotalBought)
	requireEq(t, "1.5", ps.TotalSold)
	requireEq(t, "8", ps.FeesTotal)
	requireEq(t, "0.5", ps.NetFromHistory())

	require.Len(t, ps.Events, 1)
	ev := ps.Events[0]
	requireEq(t, "3747", ev.Proceeds)
	requireEq(t, "3503.5", ev.MatchedCost)
	requireEq(t, "243.5", ev.PnL)
	requireEq(t, "1.5", ev.Volume)
}

func TestFIFOConsumesOldestFirst(t *testing.T) {
	led := New(Config{IncludeFees: false})
	ctx := context.Background()
	led.Apply(ctx, trade(types.SideBuy, "1", "100", "0", 0))
	led.Apply(ctx, trade(types.SideBuy, "1", "200", "0", 1))
	led.Apply(ctx, trade(types.SideBuy, "1", "300", "0", 2))
	led.Apply(ctx, trade(types.SideSell, "1.5", "400", "0", 3))

	ps := led.Pair(ethUSD)
	// 1 @ 100 and 0.5 @ 200 consumed; remaining 0.5 @ 200 and 1 @ 300.
	requireEq(t, "1.5", ps.RemainingVolume())
	requireEq(t, "400", ps.RemainingCost())
	lots := ps.Lots()
	require.Len(t, lots, 2)
	requireEq(t, "0.5", lots[0].Volume)
	requireEq(t, "200", lots[0].UnitCost)
	requireEq(t, "1", lots[1].Volume)
	requireEq(t, "300", lots[1].UnitCost)

	// realized = 1.5*400 - (100 + 0.5*200) = 600 - 200 = 400
	requireEq(t, "400", ps.RealizedPnL)
}

func TestPartialLotConsumptionAcrossSells(t *testing.T) {
	led := New(Config{IncludeFees: false})
	ctx := context.Background()
	led.Apply(ctx, trade(types.SideBuy, "2", "100", "0", 0))
	led.Apply(ctx, trade(types.SideSell, "0.5", "150", "0", 1))
	led.Apply(ctx, trade(types.SideSell, "0.5", "150", "0", 2))
	led.Apply(ctx, trade(types.SideSell, "0.5", "150", "0", 3))

	ps := led.Pair(ethUSD)
	requireEq(t, "0.5", ps.RemainingVolume())
	requireEq(t, "100", ps.AvgCostOfRemaining())
	// each sell realizes 0.5 * (150 - 100) = 25
	requireEq(t, "75", ps.RealizedPnL)
	require.Len(t, ps.Events, 3)
}

func TestUndersuppliedSellUsesZeroCostBasis(t *testing.T) {
	led := New(Config{IncludeFees: false})
	ctx := context.Background()
	led.Apply(ctx, trade(types.SideBuy, "1", "100", "0", 0))
	led.Apply(ctx, trade(types.SideSell, "3", "200", "0", 1))

	ps := led.Pair(ethUSD)
	requireEq(t, "0", ps.RemainingVolume())
	requireEq(t, "2", ps.UnderSupplied)
	// proceeds 600, matched cost only the tracked lot (100)
	requireEq(t, "500", ps.RealizedPnL)
	require.Len(t, ps.Events, 1)
	requireEq(t, "100", ps.Events[0].MatchedCost)
	requireEq(t, "600", ps.Events[0].Proceeds)

	// bookkeeping still reflects the raw history
	requireEq(t, "-2", ps.NetFromHistory())
}

func TestSellWithNoLotsAtAll(t *testing.T) {
	led := New(Config{IncludeFees: false})
	led.Apply(context.Background(), trade(types.SideSell, "1", "500", "0", 0))

	ps := led.Pair(ethUSD)
	requireEq(t, "1", ps.UnderSupplied)
	requireEq(t, "500", ps.RealizedPnL)
	requireEq(t, "0", ps.RemainingVolume())
}

func TestFeesExcludedMode(t *testing.T) {
	led := New(Config{IncludeFees: false})
	ctx := context.Background()
	led.Apply(ctx, trade(types.SideBuy, "1.0", "2000", "2", 0))
	led.Apply(ctx, trade(types.SideSell, "1.0", "2500", "3", 1))

	ps := led.Pair(ethUSD)
	// gross figures; fees only show up in FeesTotal
	requireEq(t, "500", ps.RealizedPnL)
	requireEq(t, "5", ps.FeesTotal)
	requireEq(t, "2000", ps.AvgBuyPrice())
	requireEq(t, "2500", ps.AvgSellPrice())
}

func TestPairsAreIndependent(t *testing.T) {
	led := New(Config{IncludeFees: true})
	ctx := context.Background()
	led.Apply(ctx, trade(types.SideBuy, "1", "2000", "2", 0))

	btc := trade(types.SideBuy, "0.1", "40000", "4", 1)
	btc.Pair = types.Pair{Asset: "BTC", Quote: "USD"}
	btc.VenuePair = "XXBTZUSD"
	led.Apply(ctx, btc)

	require.NoError(t, led.Pair(ethUSD).Reconcile(decimal.Zero))

	requireEq(t, "0", led.Pair(ethUSD).RemainingVolume())
	requireEq(t, "0.1", led.Pair(types.Pair{Asset: "BTC", Quote: "USD"}).RemainingVolume())
}

func TestPairsSorted(t *testing.T) {
	led := New(Config{})
	ctx := context.Background()
	for _, p := range []types.Pair{
		{Asset: "ETH", Quote: "USD"},
		{Asset: "BTC", Quote: "USD"},
		{Asset: "BTC", Quote: "EUR"},
	} {
		tr := trade(types.SideBuy, "1", "10", "0", 0)
		tr.Pair = p
		led.Apply(ctx, tr)
	}

	states := led.Pairs()
	require.Len(t, states, 3)
	require.Equal(t, "BTC/EUR", states[0].Pair.String())
	require.Equal(t, "BTC/USD", states[1].Pair.String())
	require.Equal(t, "ETH/USD", states[2].Pair.String())
}

func TestApplySkipsNonPositiveVolume(t *testing.T) {
	led := New(Config{})
	tr := trade(types.SideBuy, "1", "10", "0", 0)
	tr.Volume = decimal.Zero
	led.Apply(context.Background(), tr)
	require.Nil(t, led.Pair(ethUSD))
}
