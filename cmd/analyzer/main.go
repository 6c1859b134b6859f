package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"kraken-trade-analyzer/internal/adjust"
	"kraken-trade-analyzer/internal/api"
	"kraken-trade-analyzer/internal/export"
	"kraken-trade-analyzer/internal/kraken"
	"kraken-trade-analyzer/internal/ledger"
	"kraken-trade-analyzer/internal/logger"
	"kraken-trade-analyzer/internal/store"
	"kraken-trade-analyzer/internal/tradelog"
)

func must(err error) {
	if err != nil {
		log.Fatal(err)
	}
}

func main() {
	_ = godotenv.Load()
	must(logger.Init())

	cfg, err := store.LoadConfig("config.yaml")
	must(err)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	defer logger.Shutdown(context.Background())

	if v := os.Getenv("TRADER_LOG_RETENTION_DAYS"); v != "" {
		var n int
		fmt.Sscanf(v, "%d", &n)
		_ = tradelog.CompressOlder(n)
	}

	client, err := kraken.New(kraken.Config{
		Key:       os.Getenv("KRAKEN_KEY"),
		Secret:    os.Getenv("KRAKEN_SECRET"),
		PageDelay: cfg.PageDelay(),
		Retry: api.RetryConfig{
			MaxAttempts: cfg.Request.MaxRetries,
			BaseDelay:   time.Duration(cfg.Request.BaseBackoffMS) * time.Millisecond,
			MaxDelay:    time.Duration(cfg.Request.MaxBackoffMS) * time.Millisecond,
			Jitter:      cfg.Request.JitterPct,
		},
		OnlyQuotes: cfg.QuoteFilter(),
	})
	must(err)

	records, err := client.FetchTradeHistory(ctx)
	must(err)

	led := ledger.New(ledger.Config{IncludeFees: cfg.IncludeFeesInCost})
	for _, rec := range records {
		led.Apply(ctx, rec)
		logger.Fill(ctx, rec.Pair.String(), string(rec.Side), rec.Volume.String(), rec.Price.String(), "txid", rec.TxID)
		if cfg.HistoryLog {
			if err := tradelog.Append(tradelog.FromRecord(rec)); err != nil {
				logger.Warn(ctx, "Audit log append failed", "txid", rec.TxID, "error", err)
			}
		}
	}

	if cfg.AdjustBalances {
		if n := adjust.Run(ctx, os.Stdin, os.Stdout, led); n > 0 {
			fmt.Printf("Adjusted %d pair(s).\n", n)
		}
	}

	var venuePairs []string
	for _, ps := range led.Pairs() {
		if ps.RemainingVolume().IsPositive() {
			venuePairs = append(venuePairs, ps.VenuePair)
		}
	}
	prices, err := client.CurrentPrices(ctx, venuePairs, cfg.PriceMode())
	must(err)

	rows := ledger.BuildReport(led, prices)
	fmt.Println()
	export.PrintTable(os.Stdout, rows)

	if cfg.CSVOut != "" && len(rows) > 0 {
		must(export.WriteCSV(cfg.CSVOut, rows))
		fmt.Printf("\nReport written to %s\n", cfg.CSVOut)
	}
}
