// Package kraken implements the ingestion side of the analyzer: private
// trade-history retrieval and public ticker lookups against the Kraken
// REST API. Everything here is I/O; the core engine only sees the
// normalized records this package hands back.
package kraken

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"kraken-trade-analyzer/internal/api"
)

const defaultBaseURL = "https://api.kraken.com"

// Config holds credentials and pacing knobs for the Kraken client.
// The API key only needs query permission; never use a trading key here.
type Config struct {
	Key    string
	Secret string // base64, as issued by Kraken

	BaseURL    string
	PageDelay  time.Duration // minimum spacing between history pages
	Retry      api.RetryConfig
	OnlyQuotes map[string]bool // quote-currency filter; empty means all
}

// Client talks to the Kraken REST API.
type Client struct {
	cfg     Config
	secret  []byte
	api     *api.Client
	limiter *rate.Limiter
	nonce   atomic.Int64
}

// New builds a client. Credentials are validated up front so a bad key
// fails at startup rather than mid-pagination.
func New(cfg Config) (*Client, error) {
	if cfg.Key == "" || cfg.Secret == "" {
		return nil, errors.New("kraken: missing API credentials (set KRAKEN_KEY and KRAKEN_SECRET)")
	}
	secret, err := base64.StdEncoding.DecodeString(cfg.Secret)
	if err != nil {
		return nil, fmt.Errorf("kraken: API secret is not valid base64: %w", err)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.PageDelay <= 0 {
		cfg.PageDelay = 800 * time.Millisecond
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry = api.DefaultRetryConfig()
	}

	return &Client{
		cfg:    cfg,
		secret: secret,
		api: api.NewClient(
			api.WithBaseURL(cfg.BaseURL),
			api.WithTimeout(30*time.Second),
			api.WithLogging(true),
		),
		limiter: rate.NewLimiter(rate.Every(cfg.PageDelay), 1),
	}, nil
}

// APIError carries the error strings Kraken returns in its response
// envelope, e.g. "EAPI:Invalid key".
type APIError struct {
	Errors []string
}

func (e *APIError) Error() string {
	return "kraken: " + strings.Join(e.Errors, "; ")
}

type envelope struct {
	Error  []string        `json:"error"`
	Result json.RawMessage `json:"result"`
}

// isRateLimited reports whether the error array is a throttling response
// worth backing off for.
func isRateLimited(errs []string) bool {
	msg := strings.ToLower(strings.Join(errs, " "))
	return strings.Contains(msg, "rate limit") || strings.Contains(msg, "exceeded")
}

func rateLimitedResponse(r *api.Response) bool {
	var env envelope
	if err := json.Unmarshal(r.Body, &env); err != nil {
		return false
	}
	return isRateLimited(env.Error)
}

// nextNonce returns a strictly increasing nonce.
func (c *Client) nextNonce() string {
	for {
		cur := c.nonce.Load()
		next := time.Now().UnixNano()
		if next <= cur {
			next = cur + 1
		}
		if c.nonce.CompareAndSwap(cur, next) {
			return strconv.FormatInt(next, 10)
		}
	}
}

func decodeResult(body []byte, v any) error {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("kraken: malformed response: %w", err)
	}
	if len(env.Error) > 0 {
		return &APIError{Errors: env.Error}
	}
	if err := json.Unmarshal(env.Result, v); err != nil {
		return fmt.Errorf("kraken: malformed result: %w", err)
	}
	return nil
}
