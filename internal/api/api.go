package api

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"kraken-trade-analyzer/internal/logger"
)

// Client is a thin HTTP client with shared configuration: base URL,
// default headers and optional request logging.
type Client struct {
	httpClient *http.Client
	baseURL    string
	headers    map[string]string
	useLogging bool
}

// ClientOption configures the client.
type ClientOption func(*Client)

// WithTimeout sets the HTTP client timeout.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) { c.httpClient.Timeout = timeout }
}

// WithBaseURL sets the base URL prefixed to every request path.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) { c.baseURL = baseURL }
}

// WithHeader sets a default header for all requests.
func WithHeader(key, value string) ClientOption {
	return func(c *Client) { c.headers[key] = value }
}

// WithLogging enables debug logging of requests and responses.
func WithLogging(enabled bool) ClientOption {
	return func(c *Client) { c.useLogging = enabled }
}

// NewClient creates a new HTTP client with the given options.
func NewClient(opts ...ClientOption) *Client {
	client := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		headers:    make(map[string]string),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Body       []byte
	Headers    http.Header
}

// Do executes a request against path with an optional raw body.
func (c *Client) Do(ctx context.Context, method, path string, body io.Reader, headers map[string]string) (*Response, error) {
	fullURL := c.baseURL + path

	req, err := http.NewRequestWithContext(ctx, method, fullURL, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	if c.useLogging {
		logger.Debug(ctx, "HTTP request", "method", method, "url", fullURL)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if c.useLogging {
		logger.Debug(ctx, "HTTP response",
			"method", method,
			"url", fullURL,
			"status", resp.StatusCode,
			"duration", time.Since(start),
			"bodySize", len(respBody))
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, truncate(respBody, 512))
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Body:       respBody,
		Headers:    resp.Header,
	}, nil
}

// GET performs a GET request with an optional query string.
func (c *Client) GET(ctx context.Context, path string, query url.Values) (*Response, error) {
	if len(query) > 0 {
		path = path + "?" + query.Encode()
	}
	return c.Do(ctx, http.MethodGet, path, nil, nil)
}

// PostForm performs a form-encoded POST request.
func (c *Client) PostForm(ctx context.Context, path string, form url.Values, headers map[string]string) (*Response, error) {
	h := map[string]string{"Content-Type": "application/x-www-form-urlencoded"}
	for key, value := range headers {
		h[key] = value
	}
	return c.Do(ctx, http.MethodPost, path, strings.NewReader(form.Encode()), h)
}

// RetryConfig configures exponential backoff with jitter.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Jitter      float64 // fractional bound, e.g. 0.35 for ±35%
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 8,
		BaseDelay:   800 * time.Millisecond,
		MaxDelay:    30 * time.Second,
		Jitter:      0.35,
	}
}

// DoWithRetry calls do until it succeeds, retryable reports the response
// as non-retryable, or attempts run out. Backoff doubles each attempt with
// random jitter so synchronized clients do not hammer a rate-limited
// endpoint in lockstep. A transport error is always retryable.
func (c *Client) DoWithRetry(ctx context.Context, cfg RetryConfig, do func(context.Context) (*Response, error), retryable func(*Response) bool) (*Response, error) {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultRetryConfig().MaxAttempts
	}

	var lastErr error
	var lastResp *Response

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		resp, err := do(ctx)
		if err == nil && (retryable == nil || !retryable(resp)) {
			return resp, nil
		}
		lastErr = err
		lastResp = resp

		if attempt == cfg.MaxAttempts {
			break
		}

		delay := backoffDelay(cfg, attempt)
		if c.useLogging {
			logger.Warn(ctx, "Request failed, retrying",
				"attempt", attempt, "maxAttempts", cfg.MaxAttempts, "delay", delay, "error", err)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	if lastErr != nil {
		return nil, fmt.Errorf("all %d attempts failed: %w", cfg.MaxAttempts, lastErr)
	}
	// Retryable response, attempts exhausted: hand the last response back
	// so the caller can surface the service's own error message.
	return lastResp, nil
}

func backoffDelay(cfg RetryConfig, attempt int) time.Duration {
	base := cfg.BaseDelay
	if base <= 0 {
		base = DefaultRetryConfig().BaseDelay
	}
	delay := float64(base) * float64(int64(1)<<uint(attempt-1))
	if cfg.Jitter > 0 {
		delay *= 1 + (rand.Float64()*2-1)*cfg.Jitter
	}
	d := time.Duration(delay)
	if d < 200*time.Millisecond {
		d = 200 * time.Millisecond
	}
	if cfg.MaxDelay > 0 && d > cfg.MaxDelay {
		d = cfg.MaxDelay
	}
	return d
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
