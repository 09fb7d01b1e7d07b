package news

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fulmenhq/gofulmen/telemetry"
	telemetrytesting "github.com/fulmenhq/gofulmen/telemetry/testing"
	"github.com/stretchr/testify/require"

	"github.com/finsight/finsight/internal/config"
	"github.com/finsight/finsight/internal/metrics"
	"github.com/finsight/finsight/internal/observability"
	"github.com/finsight/finsight/internal/resilience"
)

func testConfig(baseURL string) config.NewsConfig {
	return config.NewsConfig{
		BaseURL:     baseURL,
		APIKey:      "test-key",
		SearchDepth: "advanced",
		IncludeDomains: []string{
			"finance.yahoo.com",
			"reuters.com",
		},
		Retry: config.RetryConfig{
			MaxRetries:     3,
			InitialBackoff: time.Millisecond,
			BackoffFactor:  2.0,
		},
		RateLimit: config.RateLimitConfig{
			MaxCalls: 20,
			Period:   time.Minute,
			Policy:   "wait",
		},
		Cache: config.CacheConfig{
			TTL:        time.Hour,
			MaxEntries: 64,
		},
	}
}

func fiveArticleHandler(t *testing.T, calls *atomic.Int64) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/search", r.URL.Path)

		var req searchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "test-key", req.APIKey)
		require.Equal(t, "advanced", req.SearchDepth)
		require.True(t, req.IncludeAnswer)
		require.GreaterOrEqual(t, req.MaxResults, 1)
		require.LessOrEqual(t, req.MaxResults, 10)
		require.NotEmpty(t, req.StartDate)

		resp := searchResponse{
			Answer: "Markets rallied on rate-cut hopes.",
			Results: []searchItem{
				{Title: "Fed signals cuts", URL: "https://reuters.com/a1", PublishedDate: "2026-08-29", Content: "The Fed signaled possible cuts."},
				{Title: "Tech stocks surge", URL: "https://reuters.com/a2", PublishedDate: "2026-08-29", Content: "Tech led gains."},
				{Title: "Oil steadies", URL: "https://reuters.com/a3", PublishedDate: "2026-08-29", Content: "Crude held flat."},
				{Title: "Bond yields fall", URL: "https://reuters.com/a4", PublishedDate: "2026-08-29", Content: "Yields dipped."},
				{Title: "Dollar weakens", URL: "https://reuters.com/a5", PublishedDate: "2026-08-29", Content: "The dollar slid."},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}
}

func TestFetchFormatsSummaryAndArticles(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(fiveArticleHandler(t, &calls))
	defer server.Close()

	client, err := New(testConfig(server.URL))
	require.NoError(t, err)

	out, err := client.Fetch(context.Background(), "economy", 5, 24)
	require.NoError(t, err)

	require.Contains(t, out, "### Summary\nMarkets rallied on rate-cut hopes.")
	for _, block := range []string{
		"#### 1. Fed signals cuts",
		"#### 2. Tech stocks surge",
		"#### 3. Oil steadies",
		"#### 4. Bond yields fall",
		"#### 5. Dollar weakens",
	} {
		require.Contains(t, out, block)
	}
	require.Contains(t, out, "**Source**: https://reuters.com/a1")
	require.Contains(t, out, "**Date**: 2026-08-29")
	require.Equal(t, int64(1), calls.Load())
}

func TestFetchServesRepeatFromCache(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(fiveArticleHandler(t, &calls))
	defer server.Close()

	client, err := New(testConfig(server.URL))
	require.NoError(t, err)

	first, err := client.Fetch(context.Background(), "economy", 5, 24)
	require.NoError(t, err)
	second, err := client.Fetch(context.Background(), "economy", 5, 24)
	require.NoError(t, err)

	require.Equal(t, first, second)
	require.Equal(t, int64(1), calls.Load(), "second fetch must not reach the provider")

	// Different parameters are a different cache key.
	_, err = client.Fetch(context.Background(), "economy", 3, 24)
	require.NoError(t, err)
	require.Equal(t, int64(2), calls.Load())
}

func TestFetchScopesNonFinancialQueries(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req searchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		gotQuery = req.Query
		_, _ = w.Write([]byte(`{"results": [{"title": "t", "url": "u", "content": "c"}]}`))
	}))
	defer server.Close()

	client, err := New(testConfig(server.URL))
	require.NoError(t, err)

	_, err = client.Fetch(context.Background(), "climate policy", 3, 24)
	require.NoError(t, err)
	require.Equal(t, "climate policy financial market implications", gotQuery)

	_, err = client.Fetch(context.Background(), "stock futures", 3, 24)
	require.NoError(t, err)
	require.Equal(t, "stock futures", gotQuery)
}

func TestFetchRetriesServerErrors(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"results": [{"title": "t", "url": "u", "content": "c"}]}`))
	}))
	defer server.Close()

	client, err := New(testConfig(server.URL))
	require.NoError(t, err)
	client.retrier.Sleep = func(ctx context.Context, d time.Duration) error { return nil }

	out, err := client.Fetch(context.Background(), "markets", 3, 24)
	require.NoError(t, err)
	require.Contains(t, out, "#### 1. t")
	require.Equal(t, int64(3), calls.Load())
}

func TestFetchEmptyResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"results": []}`))
	}))
	defer server.Close()

	client, err := New(testConfig(server.URL))
	require.NoError(t, err)

	out, err := client.Fetch(context.Background(), "markets", 3, 24)
	require.NoError(t, err)
	require.Equal(t, "No relevant financial news found.", out)
}

func TestFetchMissingAPIKey(t *testing.T) {
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

	_, err = client.Fetch(context.Background(), "markets", 3, 24)
	require.ErrorIs(t, err, ErrMissingAPIKey)
	require.Equal(t, int64(0), calls.Load(), "a config fault must not reach the provider")
	require.Equal(t, int64(0), sleeps.Load(), "a config fault must not be retried")
	require.Zero(t, client.limiter.Pending(), "a config fault must not consume a rate-limit slot")
}

func TestFetchRecordsRateLimitWaits(t *testing.T) {
	collector := telemetrytesting.NewFakeCollector()
	sys, err := telemetry.NewSystem(&telemetry.Config{Enabled: true, Emitter: collector})
	require.NoError(t, err)
	original := observability.TelemetrySystem
	observability.TelemetrySystem = sys
	t.Cleanup(func() { observability.TelemetrySystem = original })

	var calls atomic.Int64
	server := httptest.NewServer(fiveArticleHandler(t, &calls))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.RateLimit.MaxCalls = 1
	cfg.RateLimit.Policy = "wait"
	client, err := New(cfg)
	require.NoError(t, err)

	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	client.limiter.Clock = func() time.Time { return now }
	client.limiter.Sleep = func(ctx context.Context, d time.Duration) error {
		now = now.Add(d)
		return nil
	}

	_, err = client.Fetch(context.Background(), "economy", 5, 24)
	require.NoError(t, err)
	require.Zero(t, collector.CountMetricsByName(metrics.RateLimitWaitsTotal))

	_, err = client.Fetch(context.Background(), "different query", 5, 24)
	require.NoError(t, err)
	require.Equal(t, 1, collector.CountMetricsByName(metrics.RateLimitWaitsTotal))
}

func TestFetchCollapsesConcurrentIdenticalFetches(t *testing.T) {
	var calls atomic.Int64
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		<-release
		_, _ = w.Write([]byte(`{"results": [{"title": "t", "url": "u", "content": "c"}]}`))
	}))
	defer server.Close()

	client, err := New(testConfig(server.URL))
	require.NoError(t, err)

	const workers = 4
	var wg sync.WaitGroup
	outs := make([]string, workers)
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outs[i], errs[i] = client.Fetch(context.Background(), "economy", 5, 24)
		}(i)
	}

	// Hold the provider response open until every worker is queued.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		require.Equal(t, outs[0], outs[i])
	}
	require.Equal(t, int64(1), calls.Load(), "identical in-flight fetches must share one provider call")
}

func TestFetchRejectedByLimiter(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(fiveArticleHandler(t, &calls))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.RateLimit.MaxCalls = 1
	cfg.RateLimit.Policy = "reject"
	client, err := New(cfg)
	require.NoError(t, err)

	_, err = client.Fetch(context.Background(), "economy", 5, 24)
	require.NoError(t, err)

	_, err = client.Fetch(context.Background(), "different query", 5, 24)
	require.ErrorIs(t, err, resilience.ErrRateLimited)
	require.Equal(t, int64(1), calls.Load())
}

func TestFetchClampsArticleCount(t *testing.T) {
	var gotMax int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req searchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		gotMax = req.MaxResults
		_, _ = w.Write([]byte(`{"results": [{"title": "t", "url": "u", "content": "c"}]}`))
	}))
	defer server.Close()

	client, err := New(testConfig(server.URL))
	require.NoError(t, err)

	_, err = client.Fetch(context.Background(), "markets", 50, 24)
	require.NoError(t, err)
	require.Equal(t, 10, gotMax)

	_, err = client.Fetch(context.Background(), "markets", 0, 24)
	require.NoError(t, err)
	require.Equal(t, 1, gotMax)
}
