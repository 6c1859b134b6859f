package pairs

import (
	"fmt"
	"strings"

	"kraken-trade-analyzer/internal/types"
)

// Venue asset aliases. Kraken still reports a few assets under their legacy
// codes; map them to the symbols everyone actually uses.
var assetAliases = map[string]string{
	"XBT": "BTC",
	"XDG": "DOGE",
}

// knownQuotes are the quote currencies we recognize when splitting a
// concatenated pair code by suffix. Longest match wins.
var knownQuotes = map[string]bool{
	"USD":  true,
	"USDT": true,
	"USDC": true,
	"EUR":  true,
	"GBP":  true,
	"JPY":  true,
	"CHF":  true,
	"CAD":  true,
	"AUD":  true,
	"DAI":  true,
	"BTC":  true,
	"ETH":  true,
}

// Parse normalizes a venue pair code into a canonical (asset, quote) pair.
// It handles the legacy X/Z-prefixed format ("XXBTZUSD", "XETHZUSD"), plain
// concatenated codes ("ETHUSD", "ADAEUR") and slash-separated ones
// ("ETH/USDT"). Codes that cannot be split are rejected; the caller decides
// whether to skip or abort.
func Parse(raw string) (types.Pair, error) {
	if strings.TrimSpace(raw) == "" {
		return types.Pair{}, fmt.Errorf("empty pair code")
	}

	if asset, quote, ok := strings.Cut(raw, "/"); ok {
		a, q := normalize(asset), normalize(quote)
		if a == "" || q == "" {
			return types.Pair{}, fmt.Errorf("malformed pair code %q", raw)
		}
		return types.Pair{Asset: a, Quote: q}, nil
	}

	p := strings.ToUpper(strings.TrimSpace(raw))
	for alias, canon := range assetAliases {
		p = strings.ReplaceAll(p, alias, canon)
	}

	// Legacy "XBASEZQUOTE" format, e.g. XETHZUSD.
	if i := strings.LastIndex(p, "Z"); i > 0 && len(p) >= 7 {
		left, right := p[:i], p[i+1:]
		if left != "" && len(right) >= 3 && len(right) <= 4 {
			left = strings.TrimPrefix(left, "X")
			return types.Pair{Asset: normalize(left), Quote: normalize(right)}, nil
		}
	}

	// Otherwise split on a known quote suffix, longest first.
	for _, qlen := range []int{4, 3} {
		if len(p) > qlen && knownQuotes[p[len(p)-qlen:]] {
			return types.Pair{Asset: normalize(p[:len(p)-qlen]), Quote: p[len(p)-qlen:]}, nil
		}
	}

	return types.Pair{}, fmt.Errorf("unrecognized pair code %q", raw)
}

func normalize(code string) string {
	c := strings.ToUpper(strings.TrimSpace(code))
	if canon, ok := assetAliases[c]; ok {
		return canon
	}
	return c
}
