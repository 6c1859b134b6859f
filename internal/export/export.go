// Package export renders report rows to CSV and to a console table. The
// column set is the report schema; rendering adds nothing and drops
// nothing.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"kraken-trade-analyzer/internal/types"
)

// Headers is the column order of both the CSV file and the console table.
var Headers = []string{
	"asset", "quote", "total_bought", "avg_buy_price",
	"total_sold", "avg_sell_price", "net_from_history",
	"remaining_unsold_volume", "avg_buy_price_of_remaining",
	"fees_total", "realized_pnl", "current_price", "unrealized_pnl",
}

func rowValues(r types.ReportRow) []string {
	currentPrice, unrealized := "", ""
	if r.HasPrice {
		currentPrice = r.CurrentPrice.String()
		unrealized = r.UnrealizedPnL.String()
	}
	return []string{
		r.Asset,
		r.Quote,
		r.TotalBought.String(),
		r.AvgBuyPrice.String(),
		r.TotalSold.String(),
		r.AvgSellPrice.String(),
		r.NetFromHistory.String(),
		r.RemainingVolume.String(),
		r.AvgBuyPriceOfRemaining.String(),
		r.FeesTotal.String(),
		r.RealizedPnL.String(),
		currentPrice,
		unrealized,
	}
}

// WriteCSV writes the report to path, header first.
func WriteCSV(path string, rows []types.ReportRow) error {
	if len(rows) == 0 {
		return nil
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(Headers); err != nil {
		return err
	}
	for _, r := range rows {
		if err := w.Write(rowValues(r)); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Close()
}

// PrintTable writes a column-aligned summary table.
func PrintTable(out io.Writer, rows []types.ReportRow) {
	if len(rows) == 0 {
		fmt.Fprintln(out, "No trades found.")
		return
	}

	widths := make([]int, len(Headers))
	for i, h := range Headers {
		widths[i] = len(h)
	}
	cells := make([][]string, 0, len(rows))
	for _, r := range rows {
		vals := rowValues(r)
		for i, v := range vals {
			if len(v) > widths[i] {
				widths[i] = len(v)
			}
		}
		cells = append(cells, vals)
	}

	writeLine := func(vals []string) {
		parts := make([]string, len(vals))
		for i, v := range vals {
			parts[i] = v + strings.Repeat(" ", widths[i]-len(v))
		}
		fmt.Fprintln(out, strings.Join(parts, " | "))
	}

	writeLine(Headers)
	total := len(Headers)*3 - 3
	for _, w := range widths {
		total += w
	}
	fmt.Fprintln(out, strings.Repeat("-", total))
	for _, vals := range cells {
		writeLine(vals)
	}
}
