package interfaces

import (
	"context"

	"github.com/shopspring/decimal"

	"kraken-trade-analyzer/internal/types"
)

// PriceSource looks up current prices for venue pair names. Pairs without
// a live quote are simply absent from the result, not an error.
type PriceSource interface {
	CurrentPrices(ctx context.Context, venuePairs []string, mode types.PriceMode) (map[string]decimal.Decimal, error)
}
