package kraken

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"kraken-trade-analyzer/internal/interfaces"
	"kraken-trade-analyzer/internal/logger"
	"kraken-trade-analyzer/internal/pairs"
	"kraken-trade-analyzer/internal/types"
)

var _ interfaces.HistorySource = (*Client)(nil)

// rawFill is one fill as the TradesHistory endpoint reports it. Numeric
// fields arrive as strings.
type rawFill struct {
	Pair  string  `json:"pair"`
	Type  string  `json:"type"`
	Price string  `json:"price"`
	Cost  string  `json:"cost"`
	Fee   string  `json:"fee"`
	Vol   string  `json:"vol"`
	Time  float64 `json:"time"`
}

type tradesHistoryResult struct {
	Trades map[string]rawFill `json:"trades"`
	Count  int                `json:"count"`
}

// FetchTradeHistory pages through the account's full trade history and
// returns normalized records sorted by (time, txid). Fills that cannot be
// normalized are skipped with a warning; the fetch only fails outright
// when the venue itself does.
func (c *Client) FetchTradeHistory(ctx context.Context) ([]types.TradeRecord, error) {
	op := logger.StartOperation(ctx, "fetch_trade_history")
	ctx = op.GetContext()

	var records []types.TradeRecord
	var skipped, filtered int
	ofs := 0

	for {
		if err := c.limiter.Wait(ctx); err != nil {
			op.EndWithError(err)
			return nil, err
		}

		var page tradesHistoryResult
		err := c.queryPrivate(ctx, "TradesHistory", url.Values{"ofs": {strconv.Itoa(ofs)}}, &page)
		if err != nil {
			op.EndWithError(err)
			return nil, fmt.Errorf("trade history page at offset %d: %w", ofs, err)
		}

		for txid, fill := range page.Trades {
			rec, err := normalizeFill(txid, fill)
			if err != nil {
				skipped++
				logger.Warn(ctx, "Skipping malformed fill", "txid", txid, "error", err)
				continue
			}
			if len(c.cfg.OnlyQuotes) > 0 && !c.cfg.OnlyQuotes[rec.Pair.Quote] {
				filtered++
				continue
			}
			records = append(records, rec)
		}

		got := len(page.Trades)
		ofs += got
		if got == 0 || ofs >= page.Count {
			break
		}
	}

	// The venue keys fills by txid, so page order is lost; (time, txid)
	// gives a deterministic total order for FIFO matching.
	sort.SliceStable(records, func(i, j int) bool {
		if !records[i].Time.Equal(records[j].Time) {
			return records[i].Time.Before(records[j].Time)
		}
		return records[i].TxID < records[j].TxID
	})

	logger.Info(ctx, "Trade history fetched",
		"records", len(records), "skipped", skipped, "filtered", filtered)
	op.End()
	return records, nil
}

// normalizeFill converts a raw venue fill into a canonical TradeRecord.
func normalizeFill(txid string, f rawFill) (types.TradeRecord, error) {
	pair, err := pairs.Parse(f.Pair)
	if err != nil {
		return types.TradeRecord{}, err
	}

	var side types.Side
	switch f.Type {
	case "buy":
		side = types.SideBuy
	case "sell":
		side = types.SideSell
	default:
		return types.TradeRecord{}, fmt.Errorf("unknown side %q", f.Type)
	}

	vol, err := decimal.NewFromString(f.Vol)
	if err != nil || !vol.IsPositive() {
		return types.TradeRecord{}, fmt.Errorf("bad volume %q", f.Vol)
	}
	price, err := decimal.NewFromString(f.Price)
	if err != nil || price.IsNegative() {
		return types.TradeRecord{}, fmt.Errorf("bad price %q", f.Price)
	}

	fee := decimal.Zero
	if f.Fee != "" {
		if fee, err = decimal.NewFromString(f.Fee); err != nil || fee.IsNegative() {
			return types.TradeRecord{}, fmt.Errorf("bad fee %q", f.Fee)
		}
	}

	// The venue usually provides cost; fall back to volume × price.
	cost := vol.Mul(price)
	if f.Cost != "" {
		if cost, err = decimal.NewFromString(f.Cost); err != nil {
			return types.TradeRecord{}, fmt.Errorf("bad cost %q", f.Cost)
		}
	}

	sec := int64(f.Time)
	nsec := int64((f.Time - float64(sec)) * 1e9)

	return types.TradeRecord{
		Pair:      pair,
		VenuePair: f.Pair,
		TxID:      txid,
		Side:      side,
		Volume:    vol,
		Price:     price,
		Cost:      cost,
		Fee:       fee,
		Time:      time.Unix(sec, nsec).UTC(),
	}, nil
}
