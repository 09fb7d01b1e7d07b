package stocks

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/finsight/finsight/internal/config"
	"github.com/finsight/finsight/internal/resilience"
)

const dailyFixture = `{
	"Meta Data": {
		"1. Information": "Daily Prices (open, high, low, close) and Volumes",
		"2. Symbol": "IBM",
		"3. Last Refreshed": "2026-08-28",
		"4. Output Size": "Compact",
		"5. Time Zone": "US/Eastern"
	},
	"Time Series (Daily)": {
		"2026-08-27": {
			"1. open": "197.5000",
			"2. high": "199.2000",
			"3. low": "196.8000",
			"4. close": "198.1000",
			"5. volume": "3120000"
		},
		"2026-08-28": {
			"1. open": "198.5000",
			"2. high": "201.0000",
			"3. low": "198.0000",
			"4. close": "200.2500",
			"5. volume": "4150000"
		}
	}
}`

func testConfig(baseURL string) config.StocksConfig {
	return config.StocksConfig{
		BaseURL: baseURL,
		APIKey:  "test-key",
		Retry: config.RetryConfig{
			MaxRetries:     3,
			InitialBackoff: time.Millisecond,
			BackoffFactor:  2.0,
		},
		RateLimit: config.RateLimitConfig{
			MaxCalls: 5,
			Period:   time.Minute,
			Policy:   "reject",
		},
		Cache: config.CacheConfig{
			TTL:        5 * time.Minute,
			MaxEntries: 64,
		},
	}
}

func TestDailyParsesSeries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/query", r.URL.Path)
		q := r.URL.Query()
		require.Equal(t, "TIME_SERIES_DAILY", q.Get("function"))
		require.Equal(t, "IBM", q.Get("symbol"))
		require.Equal(t, "compact", q.Get("outputsize"))
		require.Equal(t, "test-key", q.Get("apikey"))
		_, _ = w.Write([]byte(dailyFixture))
	}))
	defer server.Close()

	client, err := New(testConfig(server.URL))
	require.NoError(t, err)

	series, err := client.Daily(context.Background(), "ibm")
	require.NoError(t, err)
	require.Equal(t, "IBM", series.Symbol)
	require.Equal(t, "2026-08-28", series.LastRefreshed)
	require.Len(t, series.Bars, 2)

	latest, ok := series.Latest()
	require.True(t, ok)
	require.Equal(t, "2026-08-28", latest.Date)
	require.InDelta(t, 198.5, latest.Open, 0.0001)
	require.InDelta(t, 200.25, latest.Close, 0.0001)
	require.Equal(t, int64(4150000), latest.Volume)

	// Bars are sorted newest first.
	require.Equal(t, "2026-08-27", series.Bars[1].Date)
}

func TestDailyServesRepeatFromCache(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(dailyFixture))
	}))
	defer server.Close()

	client, err := New(testConfig(server.URL))
	require.NoError(t, err)

	_, err = client.Daily(context.Background(), "IBM")
	require.NoError(t, err)
	_, err = client.Daily(context.Background(), "IBM")
	require.NoError(t, err)
	require.Equal(t, int64(1), calls.Load())
}

func TestDailyRejectsInvalidSymbolBeforeNetwork(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer server.Close()

	client, err := New(testConfig(server.URL))
	require.NoError(t, err)

	for _, symbol := range []string{"", "not a symbol", "AB;DROP", "WAYTOOLONGSYMBOL"} {
		_, err := client.Daily(context.Background(), symbol)
		require.ErrorIs(t, err, ErrInvalidSymbol, "symbol %q", symbol)
	}
	require.Equal(t, int64(0), calls.Load())
}

func TestDailyProviderInBandError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"Error Message": "Invalid API call."}`))
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.Retry.MaxRetries = 0
	client, err := New(cfg)
	require.NoError(t, err)

	_, err = client.Daily(context.Background(), "IBM")
	require.Error(t, err)
	require.Contains(t, err.Error(), "Invalid API call.")
}

func TestDailyRetriesServerErrors(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(dailyFixture))
	}))
	defer server.Close()

	client, err := New(testConfig(server.URL))
	require.NoError(t, err)
	client.retrier.Sleep = func(ctx context.Context, d time.Duration) error { return nil }

	series, err := client.Daily(context.Background(), "IBM")
	require.NoError(t, err)
	require.Len(t, series.Bars, 2)
	require.Equal(t, int64(2), calls.Load())
}

func TestDailyRejectedByLimiter(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(dailyFixture))
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.RateLimit.MaxCalls = 1
	client, err := New(cfg)
	require.NoError(t, err)

	_, err = client.Daily(context.Background(), "IBM")
	require.NoError(t, err)

	// Cache hit still consumes a slot only after admission; a new symbol
	// past the limit is rejected.
	_, err = client.Daily(context.Background(), "AAPL")
	require.ErrorIs(t, err, resilience.ErrRateLimited)
}

func TestDailyMissingAPIKey(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.APIKey = ""
	client, err := New(cfg)
	require.NoError(t, err)

	var sleeps atomic.Int64
	client.retrier.Sleep = func(ctx context.Context, d time.Duration) error {
		sleeps.Add(1)
		return nil
	}

	_, err = client.Daily(context.Background(), "IBM")
	require.ErrorIs(t, err, ErrMissingAPIKey)
	require.Equal(t, int64(0), calls.Load(), "a config fault must not reach the provider")
	require.Equal(t, int64(0), sleeps.Load(), "a config fault must not be retried")
	require.Zero(t, client.limiter.Pending(), "a config fault must not consume a rate-limit slot")
}
