package pairs

import (
	"testing"

	"kraken-trade-analyzer/internal/types"
)

func TestParse(t *testing.T) {
	cases := []struct {
		raw   string
		asset string
		quote string
	}{
		{"XXBTZUSD", "BTC", "USD"},
		{"XETHZUSD", "ETH", "USD"},
		{"XETHZEUR", "ETH", "EUR"},
		{"ETHUSD", "ETH", "USD"},
		{"ETHUSDT", "ETH", "USDT"},
		{"ETH/USDT", "ETH", "USDT"},
		{"eth/usd", "ETH", "USD"},
		{"XDGUSD", "DOGE", "USD"},
		{"XBT/USD", "BTC", "USD"},
		{"ADAEUR", "ADA", "EUR"},
		{"ZRXUSD", "ZRX", "USD"},
		{"SOLUSDC", "SOL", "USDC"},
	}

	for _, c := range cases {
		got, err := Parse(c.raw)
		if err != nil {
			t.Errorf("Parse(%q) returned error: %v", c.raw, err)
			continue
		}
		want := types.Pair{Asset: c.asset, Quote: c.quote}
		if got != want {
			t.Errorf("Parse(%q) = %v, want %v", c.raw, got, want)
		}
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	for _, raw := range []string{"", "   ", "XYZ", "Q"} {
		if _, err := Parse(raw); err == nil {
			t.Errorf("Parse(%q) should have failed", raw)
		}
	}
}
