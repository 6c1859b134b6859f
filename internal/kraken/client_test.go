package kraken

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kraken-trade-analyzer/internal/api"
	"kraken-trade-analyzer/internal/types"
)

// Published signing example from the venue's API documentation.
func TestSignKnownVector(t *testing.T) {
	secret, err := base64.StdEncoding.DecodeString(
		"kQH5HW/8p1uGOVjbgWA7FunAmGO8lsSUXNsu3eow76sz84Q18fWxnyRzBHCd3pd5nE9qa99HAZtuZuj6F1huXg==")
	require.NoError(t, err)

	got := sign(secret,
		"/0/private/AddOrder",
		"1616492376594",
		"nonce=1616492376594&ordertype=limit&pair=XBTUSD&price=37500&type=buy&volume=1.25")

	require.Equal(t,
		"4/dpxb3iT4tp/ZCVEwSnEsLxx0bqyhLpdfOpc6fn7OR8+UClSV5n9E6aSS8MPtnRfp32bAb0nmbRn6H8ndwLUQ==",
		got)
}

func TestIsRateLimited(t *testing.T) {
	assert.True(t, isRateLimited([]string{"EAPI:Rate limit exceeded"}))
	assert.True(t, isRateLimited([]string{"EGeneral:Too many requests", "counter exceeded"}))
	assert.False(t, isRateLimited([]string{"EAPI:Invalid key"}))
	assert.False(t, isRateLimited(nil))
}

func TestNonceStrictlyIncreasing(t *testing.T) {
	c := &Client{}
	prev := ""
	for i := 0; i < 100; i++ {
		n := c.nextNonce()
		require.Greater(t, n, prev)
		prev = n
	}
}

func TestNewRequiresCredentials(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)

	_, err = New(Config{Key: "k", Secret: "not-base64!!!"})
	require.Error(t, err)
}

func testClient(t *testing.T, srvURL string) *Client {
	t.Helper()
	c, err := New(Config{
		Key:       "test-key",
		Secret:    base64.StdEncoding.EncodeToString([]byte("test-secret")),
		BaseURL:   srvURL,
		PageDelay: time.Millisecond,
		Retry:     api.RetryConfig{MaxAttempts: 4, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond},
	})
	require.NoError(t, err)
	return c
}

func fillJSON(pair, side, vol, price, cost, fee string, ts float64) string {
	return fmt.Sprintf(`{"pair":%q,"type":%q,"vol":%q,"price":%q,"cost":%q,"fee":%q,"time":%v}`,
		pair, side, vol, price, cost, fee, ts)
}

func TestFetchTradeHistoryPaginates(t *testing.T) {
	pages := map[string]string{
		"0": `{"error":[],"result":{"count":3,"trades":{
			"TX2":` + fillJSON("XETHZUSD", "sell", "0.5", "2500", "1250", "1", 1700000200) + `,
			"TX1":` + fillJSON("XETHZUSD", "buy", "1.0", "2000", "2000", "2", 1700000100) + `}}}`,
		"2": `{"error":[],"result":{"count":3,"trades":{
			"TX3":` + fillJSON("XXBTZUSD", "buy", "0.1", "40000", "4000", "4", 1700000300) + `}}}`,
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/0/private/TradesHistory", r.URL.Path)
		require.NotEmpty(t, r.Header.Get("API-Key"))
		require.NotEmpty(t, r.Header.Get("API-Sign"))
		require.NoError(t, r.ParseForm())
		require.NotEmpty(t, r.PostForm.Get("nonce"))

		body, ok := pages[r.PostForm.Get("ofs")]
		require.True(t, ok, "unexpected offset %s", r.PostForm.Get("ofs"))
		w.Write([]byte(body))
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	records, err := c.FetchTradeHistory(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 3)

	// sorted by time regardless of map order
	require.Equal(t, "TX1", records[0].TxID)
	require.Equal(t, "TX2", records[1].TxID)
	require.Equal(t, "TX3", records[2].TxID)

	require.Equal(t, types.Pair{Asset: "ETH", Quote: "USD"}, records[0].Pair)
	require.Equal(t, "XETHZUSD", records[0].VenuePair)
	require.Equal(t, types.SideBuy, records[0].Side)
	require.True(t, records[0].Volume.Equal(dec(t, "1.0")))
	require.True(t, records[0].Fee.Equal(dec(t, "2")))
}

func TestFetchTradeHistorySkipsMalformedFills(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":[],"result":{"count":2,"trades":{
			"BAD":` + fillJSON("XETHZUSD", "short", "1", "2000", "2000", "0", 1700000100) + `,
			"OK":` + fillJSON("XETHZUSD", "buy", "1", "2000", "2000", "0", 1700000100) + `}}}`))
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	records, err := c.FetchTradeHistory(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "OK", records[0].TxID)
}

func TestFetchTradeHistoryQuoteFilter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":[],"result":{"count":2,"trades":{
			"TX1":` + fillJSON("XETHZUSD", "buy", "1", "2000", "2000", "0", 1700000100) + `,
			"TX2":` + fillJSON("XETHZEUR", "buy", "1", "1800", "1800", "0", 1700000200) + `}}}`))
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	c.cfg.OnlyQuotes = map[string]bool{"USD": true}

	records, err := c.FetchTradeHistory(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "USD", records[0].Pair.Quote)
}

func TestFetchTradeHistoryRetriesRateLimit(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Write([]byte(`{"error":["EAPI:Rate limit exceeded"]}`))
			return
		}
		w.Write([]byte(`{"error":[],"result":{"count":1,"trades":{
			"TX1":` + fillJSON("XETHZUSD", "buy", "1", "2000", "2000", "0", 1700000100) + `}}}`))
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	records, err := c.FetchTradeHistory(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.GreaterOrEqual(t, calls.Load(), int32(2))
}

func TestFetchTradeHistoryVenueError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":["EAPI:Invalid key"]}`))
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	_, err := c.FetchTradeHistory(context.Background())
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Contains(t, apiErr.Errors, "EAPI:Invalid key")
}

func TestCurrentPricesLast(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/0/public/Ticker", r.URL.Path)
		require.Equal(t, "XETHZUSD,XXBTZUSD", r.URL.Query().Get("pair"))
		w.Write([]byte(`{"error":[],"result":{
			"XETHZUSD":{"a":["2510.0","1","1"],"b":["2500.0","1","1"],"c":["2505.0","0.1"]},
			"XXBTZUSD":{"a":["40100.0","1","1"],"b":["40000.0","1","1"],"c":["40050.0","0.1"]}}}`))
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	prices, err := c.CurrentPrices(context.Background(), []string{"XXBTZUSD", "XETHZUSD"}, types.PriceLast)
	require.NoError(t, err)
	require.Len(t, prices, 2)
	require.True(t, prices["XETHZUSD"].Equal(dec(t, "2505.0")))
	require.True(t, prices["XXBTZUSD"].Equal(dec(t, "40050.0")))
}

func TestCurrentPricesMid(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":[],"result":{
			"XETHZUSD":{"a":["2510.0","1","1"],"b":["2500.0","1","1"],"c":["2505.0","0.1"]}}}`))
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	prices, err := c.CurrentPrices(context.Background(), []string{"XETHZUSD"}, types.PriceMid)
	require.NoError(t, err)
	require.True(t, prices["XETHZUSD"].Equal(dec(t, "2505")))
}

func TestCurrentPricesSwallowsVenueError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":["EQuery:Unknown asset pair"]}`))
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	prices, err := c.CurrentPrices(context.Background(), []string{"BOGUS"}, types.PriceLast)
	require.NoError(t, err)
	require.Empty(t, prices)
}

func TestCurrentPricesNoPairs(t *testing.T) {
	c := testClient(t, "http://127.0.0.1:0")
	prices, err := c.CurrentPrices(context.Background(), nil, types.PriceLast)
	require.NoError(t, err)
	require.Empty(t, prices)
}

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}
