// Package adjust implements the interactive balance-adjustment loop. It
// only ever talks to the ledger through Reconcile, so the FIFO internals
// stay owned by the ledger package.
package adjust

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"kraken-trade-analyzer/internal/ledger"
	"kraken-trade-analyzer/internal/logger"
)

// Run asks whether remaining balances should be adjusted and, if so, lets
// the user pick pairs and set target remaining volumes. EOF at any prompt
// (non-interactive runs) quietly ends the loop. Returns the number of
// pairs adjusted.
func Run(ctx context.Context, in io.Reader, out io.Writer, led *ledger.Ledger) int {
	sc := bufio.NewScanner(in)

	answer, ok := prompt(sc, out, "Adjust current balances? (Y/N): ")
	if !ok {
		return 0
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
	default:
		return 0
	}

	var items []*ledger.PairState
	for _, ps := range led.Pairs() {
		if ps.RemainingVolume().IsPositive() {
			items = append(items, ps)
		}
	}
	if len(items) == 0 {
		fmt.Fprintln(out, "Nothing to adjust (no remaining inventory from history).")
		return 0
	}

	fmt.Fprintln(out, "\nSelect which assets to adjust (by index, comma-separated) or type 'all':")
	for i, ps := range items {
		fmt.Fprintf(out, "[%d] %s  remaining=%s\n", i+1, ps.Pair, ps.RemainingVolume())
	}

	choice, ok := prompt(sc, out, "Your choice: ")
	if !ok {
		return 0
	}
	indices := parseSelection(choice, len(items))
	if len(indices) == 0 {
		fmt.Fprintln(out, "No valid selection; skipping adjustments.")
		return 0
	}

	adjusted := 0
	for _, i := range indices {
		applied, more := adjustPair(ctx, sc, out, items[i-1])
		if applied {
			adjusted++
		}
		if !more {
			break
		}
	}
	return adjusted
}

// adjustPair prompts until a valid target is applied, the adjustment is
// rejected, or input runs out. A rejected target does not stop the other
// pairs from being processed; EOF does.
func adjustPair(ctx context.Context, sc *bufio.Scanner, out io.Writer, ps *ledger.PairState) (applied, more bool) {
	for {
		current := ps.RemainingVolume()
		answer, ok := prompt(sc, out,
			fmt.Sprintf("Set target remaining volume for %s (current %s, usually 0): ", ps.Pair, current))
		if !ok {
			return false, false
		}

		target, err := decimal.NewFromString(strings.TrimSpace(answer))
		if err != nil {
			fmt.Fprintln(out, "Please enter a valid number (e.g., 0 or 0.123456).")
			continue
		}
		if target.IsNegative() {
			fmt.Fprintln(out, "Target cannot be negative.")
			continue
		}

		if err := ps.Reconcile(target); err != nil {
			if errors.Is(err, ledger.ErrInvalidTarget) {
				fmt.Fprintf(out, "Target %s exceeds remaining volume %s for %s; adjustment rejected.\n",
					target, current, ps.Pair)
				return false, true
			}
			fmt.Fprintf(out, "Adjustment failed: %v\n", err)
			return false, true
		}

		logger.Adjustment(ctx, ps.Pair.String(), current.String(), target.String())
		return true, true
	}
}

func prompt(sc *bufio.Scanner, out io.Writer, msg string) (string, bool) {
	fmt.Fprint(out, msg)
	if !sc.Scan() {
		return "", false
	}
	return strings.TrimSpace(sc.Text()), true
}

// parseSelection turns "all" or "1,3" into valid 1-based indices.
func parseSelection(choice string, n int) []int {
	if strings.EqualFold(choice, "all") {
		all := make([]int, n)
		for i := range all {
			all[i] = i + 1
		}
		return all
	}
	var indices []int
	for _, part := range strings.Split(choice, ",") {
		i, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || i < 1 || i > n {
			continue
		}
		indices = append(indices, i)
	}
	return indices
}
