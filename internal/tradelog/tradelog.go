// Package tradelog keeps an append-only JSONL audit trail of every fill
// pulled from the venue, one file per UTC day. Old files are gzipped in
// place after the retention window.
package tradelog

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"kraken-trade-analyzer/internal/types"
)

var mu sync.Mutex

// Entry is one audited fill. Numeric fields stay strings so the audit
// record round-trips exactly what went into the ledger.
type Entry struct {
	Time   string `json:"time"`
	Pair   string `json:"pair"`
	Venue  string `json:"venue_pair"`
	TxID   string `json:"txid"`
	Side   string `json:"side"`
	Volume string `json:"volume"`
	Price  string `json:"price"`
	Cost   string `json:"cost"`
	Fee    string `json:"fee"`
}

func logDir() string {
	if v := os.Getenv("TRADER_LOG_DIR"); v != "" {
		return v
	}
	return "logs"
}

func dailyFilepath(t time.Time) string {
	return filepath.Join(logDir(), t.UTC().Format("2006-01-02")+".txt")
}

// FromRecord builds the audit entry for a normalized fill.
func FromRecord(r types.TradeRecord) Entry {
	return Entry{
		Time:   r.Time.UTC().Format("2006-01-02 15:04:05"),
		Pair:   r.Pair.String(),
		Venue:  r.VenuePair,
		TxID:   r.TxID,
		Side:   string(r.Side),
		Volume: r.Volume.String(),
		Price:  r.Price.String(),
		Cost:   r.Cost.String(),
		Fee:    r.Fee.String(),
	}
}

// Append writes the entry to today's file, creating the directory as
// needed.
func Append(e Entry) error {
	mu.Lock()
	defer mu.Unlock()

	p := dailyFilepath(time.Now())
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(p, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(f, string(b))
	return err
}

// CompressOlder gzips .txt audit files older than retentionDays and
// removes the originals. retentionDays <= 0 disables compression.
func CompressOlder(retentionDays int) error {
	if retentionDays <= 0 {
		return nil
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	return filepath.WalkDir(logDir(), func(p string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() || filepath.Ext(p) != ".txt" {
			return nil
		}
		info, err := os.Stat(p)
		if err != nil || !info.ModTime().Before(cutoff) {
			return nil
		}

		gz := p + ".gz"
		if _, err := os.Stat(gz); err == nil {
			// already compressed on a previous run
			return os.Remove(p)
		}
		if err := gzipFile(p, gz); err != nil {
			return nil
		}
		return os.Remove(p)
	})
}

func gzipFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	gw := gzip.NewWriter(out)
	if _, err := io.Copy(gw, in); err != nil {
		gw.Close()
		out.Close()
		return err
	}
	if err := gw.Close(); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
