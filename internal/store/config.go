package store

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"kraken-trade-analyzer/internal/types"
)

type Config struct {
	// IncludeFeesInCost makes buy cost include the fee and sell proceeds
	// net of the fee, so averages reflect what was actually paid/received.
	IncludeFeesInCost bool `yaml:"include_fees_in_cost"`

	// OnlyTheseQuotes restricts processing to pairs quoted in the listed
	// currencies, e.g. [USD, USDT]. Empty means all quotes.
	OnlyTheseQuotes []string `yaml:"only_these_quotes"`

	// UseMidprice values remaining inventory at (bid+ask)/2 instead of the
	// last traded price.
	UseMidprice bool `yaml:"use_midprice"`

	CSVOut string `yaml:"csv_out"`

	// AdjustBalances runs the interactive reconciliation loop after
	// aggregation. Non-interactive runs (cron) just see EOF and skip it.
	AdjustBalances bool `yaml:"adjust_balances"`

	// HistoryLog appends every fetched fill to a JSONL audit log.
	HistoryLog bool `yaml:"history_log"`

	Request struct {
		PageDelayMS   int     `yaml:"page_delay_ms"`
		MaxRetries    int     `yaml:"max_retries"`
		BaseBackoffMS int     `yaml:"base_backoff_ms"`
		MaxBackoffMS  int     `yaml:"max_backoff_ms"`
		JitterPct     float64 `yaml:"jitter_pct"`
	} `yaml:"request"`
}

// DefaultConfig mirrors the documented defaults; used when no config file
// exists.
func DefaultConfig() *Config {
	c := &Config{
		IncludeFeesInCost: true,
		CSVOut:            "kraken_trade_averages.csv",
		AdjustBalances:    true,
	}
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.CSVOut == "" {
		c.CSVOut = "kraken_trade_averages.csv"
	}
	if c.Request.PageDelayMS == 0 {
		c.Request.PageDelayMS = 800
	}
	if c.Request.MaxRetries == 0 {
		c.Request.MaxRetries = 8
	}
	if c.Request.BaseBackoffMS == 0 {
		c.Request.BaseBackoffMS = 800
	}
	if c.Request.MaxBackoffMS == 0 {
		c.Request.MaxBackoffMS = 30000
	}
	if c.Request.JitterPct == 0 {
		c.Request.JitterPct = 0.35
	}
}

func (c *Config) Validate() error {
	if c.Request.PageDelayMS < 0 {
		return fmt.Errorf("request.page_delay_ms must be >= 0, got %d", c.Request.PageDelayMS)
	}
	if c.Request.MaxRetries < 1 {
		return fmt.Errorf("request.max_retries must be >= 1, got %d", c.Request.MaxRetries)
	}
	if c.Request.BaseBackoffMS < 1 {
		return fmt.Errorf("request.base_backoff_ms must be >= 1, got %d", c.Request.BaseBackoffMS)
	}
	if c.Request.JitterPct < 0 || c.Request.JitterPct >= 1 {
		return fmt.Errorf("request.jitter_pct must be in [0, 1), got %.2f", c.Request.JitterPct)
	}
	return nil
}

// LoadConfig reads path; a missing file yields the defaults so the tool
// works out of the box with just the API credentials set.
func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return DefaultConfig(), nil
	}
	if err != nil {
		return nil, err
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &c, nil
}

// QuoteFilter returns the quote allow-list as a set, or nil for all.
func (c *Config) QuoteFilter() map[string]bool {
	if len(c.OnlyTheseQuotes) == 0 {
		return nil
	}
	set := make(map[string]bool, len(c.OnlyTheseQuotes))
	for _, q := range c.OnlyTheseQuotes {
		set[q] = true
	}
	return set
}

// PriceMode maps the use_midprice flag onto the valuation price mode.
func (c *Config) PriceMode() types.PriceMode {
	if c.UseMidprice {
		return types.PriceMid
	}
	return types.PriceLast
}

func (c *Config) PageDelay() time.Duration {
	return time.Duration(c.Request.PageDelayMS) * time.Millisecond
}
