package interfaces

import (
	"context"

	"kraken-trade-analyzer/internal/types"
)

// HistorySource retrieves the account's complete trade history, already
// normalized, deduplicated and sorted by (time, txid). Implementations own
// all pagination, pacing and retry behavior; the core only ever sees the
// materialized record set.
type HistorySource interface {
	FetchTradeHistory(ctx context.Context) ([]types.TradeRecord, error)
}
