// Package news implements the resilient news-search outbound client.
//
// Every fetch runs through the fixed chain: rate-limit admission, cache
// lookup, backoff-wrapped HTTP call, cache store on success. A missing
// credential fails before the chain; it is a config fault, not a transient
// one. The formatted result is free text consumed downstream as LLM context.
package news

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/finsight/finsight/internal/config"
	"github.com/finsight/finsight/internal/metrics"
	"github.com/finsight/finsight/internal/observability"
	"github.com/finsight/finsight/internal/resilience"
)

const (
	operationName = "news_fetch"

	defaultQuery = "latest financial news market update"

	minArticles = 1
	maxArticles = 10
)

// ErrMissingAPIKey indicates the news provider credential is absent.
var ErrMissingAPIKey = errors.New("news api key is not configured")

// financialTerms mark a query as already finance-scoped. Queries without one
// get a market-implications suffix so general topics return relevant results.
var financialTerms = []string{"finance", "market", "stock", "economic", "invest"}

// Client is the resilient news-search client backed by the Tavily search API.
type Client struct {
	cfg        config.NewsConfig
	httpClient *http.Client

	limiter *resilience.Limiter
	retrier *resilience.Retrier
	cache   *resilience.Cache[string]

	// Clock overrides time.Now for the recency window. Tests inject it.
	Clock func() time.Time
}

// New builds a client from configuration.
func New(cfg config.NewsConfig) (*Client, error) {
	policy, err := resilience.ParseLimitPolicy(cfg.RateLimit.Policy)
	if err != nil {
		return nil, err
	}

	limiter := resilience.NewLimiter(cfg.RateLimit.MaxCalls, cfg.RateLimit.Period, policy)
	limiter.Logger = observability.Logger()
	limiter.OnWait = func(time.Duration) {
		metrics.RecordRateLimitWait(operationName)
	}

	retrier := &resilience.Retrier{
		Policy: resilience.RetryPolicy{
			MaxRetries:     cfg.Retry.MaxRetries,
			InitialBackoff: cfg.Retry.InitialBackoff,
			Factor:         cfg.Retry.BackoffFactor,
		},
		Logger: observability.Logger(),
		OnRetry: func(attempt int, err error) {
			metrics.RecordRetry(operationName)
		},
	}

	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    limiter,
		retrier:    retrier,
		cache:      resilience.NewCache[string](cfg.Cache.TTL, cfg.Cache.MaxEntries),
	}, nil
}

type searchRequest struct {
	APIKey            string   `json:"api_key"`
	Query             string   `json:"query"`
	SearchDepth       string   `json:"search_depth"`
	IncludeDomains    []string `json:"include_domains,omitempty"`
	MaxResults        int      `json:"max_results"`
	IncludeAnswer     bool     `json:"include_answer"`
	IncludeImages     bool     `json:"include_images"`
	IncludeRawContent bool     `json:"include_raw_content"`
	StartDate         string   `json:"start_date"`
}

type searchResponse struct {
	Answer  string       `json:"answer"`
	Results []searchItem `json:"results"`
}

type searchItem struct {
	Title         string `json:"title"`
	URL           string `json:"url"`
	PublishedDate string `json:"published_date"`
	Content       string `json:"content"`
}

// Fetch returns recent news for query as a formatted text blob: an optional
// "### Summary" section followed by numbered article blocks. numArticles is
// clamped to [1, 10]; an empty query falls back to a general market query.
func (c *Client) Fetch(ctx context.Context, query string, numArticles, maxAgeHours int) (string, error) {
	if strings.TrimSpace(c.cfg.APIKey) == "" {
		return "", ErrMissingAPIKey
	}
	if strings.TrimSpace(query) == "" {
		query = defaultQuery
	}
	if numArticles < minArticles {
		numArticles = minArticles
	}
	if numArticles > maxArticles {
		numArticles = maxArticles
	}

	if err := c.limiter.Admit(ctx); err != nil {
		if errors.Is(err, resilience.ErrRateLimited) {
			metrics.RecordRateLimitReject(operationName)
		}
		metrics.RecordOperation(operationName, false)
		return "", err
	}

	cacheKey := fmt.Sprintf("%s|%d|%d", query, numArticles, maxAgeHours)
	filled := false
	out, err := c.cache.GetOrFill(ctx, cacheKey, func(ctx context.Context) (string, error) {
		filled = true
		metrics.RecordCacheLookup(operationName, false)
		return resilience.Do(ctx, c.retrier, operationName, func(ctx context.Context) (string, error) {
			return c.fetchOnce(ctx, query, numArticles, maxAgeHours)
		})
	})
	if err != nil {
		metrics.RecordOperation(operationName, false)
		return "", err
	}

	if !filled {
		metrics.RecordCacheLookup(operationName, true)
		if logger := observability.Logger(); logger != nil {
			logger.Debug("Serving cached news results", zap.String("query", query))
		}
	}
	metrics.RecordOperation(operationName, true)
	return out, nil
}

func (c *Client) fetchOnce(ctx context.Context, query string, numArticles, maxAgeHours int) (string, error) {
	now := time.Now
	if c.Clock != nil {
		now = c.Clock
	}
	startDate := now().Add(-time.Duration(maxAgeHours) * time.Hour).Format("2006-01-02")

	payload := searchRequest{
		APIKey:         c.cfg.APIKey,
		Query:          scopeQuery(query),
		SearchDepth:    c.cfg.SearchDepth,
		IncludeDomains: c.cfg.IncludeDomains,
		MaxResults:     numArticles,
		IncludeAnswer:  true,
		StartDate:      startDate,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode search request: %w", err)
	}

	url := strings.TrimRight(c.cfg.BaseURL, "/") + "/search"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("news search request failed: %w", err)
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read search response: %w", err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return "", fmt.Errorf("news provider returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var parsed searchResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("decode search response: %w", err)
	}

	return formatResults(&parsed, numArticles), nil
}

// scopeQuery appends a market-implications suffix when the query carries no
// finance term of its own.
func scopeQuery(query string) string {
	lower := strings.ToLower(query)
	for _, term := range financialTerms {
		if strings.Contains(lower, term) {
			return query
		}
	}
	return query + " financial market implications"
}

func formatResults(resp *searchResponse, numArticles int) string {
	if len(resp.Results) == 0 {
		return "No relevant financial news found."
	}

	var blocks []string
	if resp.Answer != "" {
		blocks = append(blocks, fmt.Sprintf("### Summary\n%s\n", resp.Answer))
	}

	items := resp.Results
	if len(items) > numArticles {
		items = items[:numArticles]
	}
	for i, item := range items {
		title := item.Title
		if title == "" {
			title = "Untitled"
		}
		blocks = append(blocks, fmt.Sprintf("#### %d. %s\n**Source**: %s\n**Date**: %s\n%s\n",
			i+1, title, item.URL, item.PublishedDate, item.Content))
	}

	return strings.Join(blocks, "\n")
}
