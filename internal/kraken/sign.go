package kraken

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"net/url"

	"kraken-trade-analyzer/internal/api"
)

// sign computes the API-Sign header:
// base64(HMAC-SHA512(path + SHA256(nonce + postData), secret)).
func sign(secret []byte, path, nonce, postData string) string {
	sha := sha256.Sum256([]byte(nonce + postData))
	mac := hmac.New(sha512.New, secret)
	mac.Write([]byte(path))
	mac.Write(sha[:])
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// queryPrivate calls a private endpoint, signing each attempt with a fresh
// nonce. Rate-limit responses trigger backoff; other venue errors come
// back as *APIError.
func (c *Client) queryPrivate(ctx context.Context, endpoint string, params url.Values, v any) error {
	path := "/0/private/" + endpoint

	do := func(ctx context.Context) (*api.Response, error) {
		form := url.Values{}
		for key, vals := range params {
			form[key] = vals
		}
		nonce := c.nextNonce()
		form.Set("nonce", nonce)

		headers := map[string]string{
			"API-Key":  c.cfg.Key,
			"API-Sign": sign(c.secret, path, nonce, form.Encode()),
		}
		return c.api.PostForm(ctx, path, form, headers)
	}

	resp, err := c.api.DoWithRetry(ctx, c.cfg.Retry, do, rateLimitedResponse)
	if err != nil {
		return err
	}
	return decodeResult(resp.Body, v)
}

// queryPublic calls a public endpoint with the same backoff behavior.
func (c *Client) queryPublic(ctx context.Context, endpoint string, query url.Values, v any) error {
	path := "/0/public/" + endpoint

	do := func(ctx context.Context) (*api.Response, error) {
		return c.api.GET(ctx, path, query)
	}

	resp, err := c.api.DoWithRetry(ctx, c.cfg.Retry, do, rateLimitedResponse)
	if err != nil {
		return err
	}
	return decodeResult(resp.Body, v)
}
