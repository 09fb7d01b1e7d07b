// Package stocks implements the resilient stock-quote outbound client
// backed by the Alpha Vantage daily time series API.
package stocks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/finsight/finsight/internal/config"
	"github.com/finsight/finsight/internal/metrics"
	"github.com/finsight/finsight/internal/observability"
	"github.com/finsight/finsight/internal/resilience"
)

const operationName = "stock_fetch"

var (
	// ErrMissingAPIKey indicates the quote provider credential is absent.
	ErrMissingAPIKey = errors.New("stocks api key is not configured")

	// ErrInvalidSymbol indicates a symbol that fails validation before any
	// network call.
	ErrInvalidSymbol = errors.New("invalid stock symbol")

	symbolPattern = regexp.MustCompile(`^[A-Z0-9.\-]{1,10}$`)
)

// Bar is one daily OHLCV record.
type Bar struct {
	Date   string  `json:"date"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume int64   `json:"volume"`
}

// Series is the daily history for one symbol, newest bar first.
type Series struct {
	Symbol        string `json:"symbol"`
	LastRefreshed string `json:"last_refreshed"`
	TimeZone      string `json:"time_zone"`
	Bars          []Bar  `json:"bars"`
}

// Latest returns the most recent bar.
func (s *Series) Latest() (Bar, bool) {
	if s == nil || len(s.Bars) == 0 {
		return Bar{}, false
	}
	return s.Bars[0], true
}

// Client is the resilient stock-quote client.
type Client struct {
	cfg        config.StocksConfig
	httpClient *http.Client

	limiter *resilience.Limiter
	retrier *resilience.Retrier
	cache   *resilience.Cache[*Series]
}

// New builds a client from configuration.
func New(cfg config.StocksConfig) (*Client, error) {
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
		cache:      resilience.NewCache[*Series](cfg.Cache.TTL, cfg.Cache.MaxEntries),
	}, nil
}

// Daily fetches the compact daily series for symbol. Symbols are upper-cased
// and validated, and a missing credential fails fast, before any rate-limit
// slot is consumed or retry scheduled.
func (c *Client) Daily(ctx context.Context, symbol string) (*Series, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if !symbolPattern.MatchString(symbol) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSymbol, symbol)
	}
	if strings.TrimSpace(c.cfg.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}

	if err := c.limiter.Admit(ctx); err != nil {
		if errors.Is(err, resilience.ErrRateLimited) {
			metrics.RecordRateLimitReject(operationName)
		}
		metrics.RecordOperation(operationName, false)
		return nil, err
	}

	filled := false
	series, err := c.cache.GetOrFill(ctx, symbol, func(ctx context.Context) (*Series, error) {
		filled = true
		metrics.RecordCacheLookup(operationName, false)
		return resilience.Do(ctx, c.retrier, operationName, func(ctx context.Context) (*Series, error) {
			return c.fetchOnce(ctx, symbol)
		})
	})
	if err != nil {
		metrics.RecordOperation(operationName, false)
		return nil, err
	}

	if !filled {
		metrics.RecordCacheLookup(operationName, true)
	}
	metrics.RecordOperation(operationName, true)
	return series, nil
}

// dailyResponse mirrors the provider's quoted-ordinal JSON keys.
type dailyResponse struct {
	MetaData struct {
		Symbol        string `json:"2. Symbol"`
		LastRefreshed string `json:"3. Last Refreshed"`
		TimeZone      string `json:"5. Time Zone"`
	} `json:"Meta Data"`
	Series map[string]struct {
		Open   string `json:"1. open"`
		High   string `json:"2. high"`
		Low    string `json:"3. low"`
		Close  string `json:"4. close"`
		Volume string `json:"5. volume"`
	} `json:"Time Series (Daily)"`

	// The provider reports request problems in-band with HTTP 200.
	ErrorMessage string `json:"Error Message"`
	Note         string `json:"Note"`
	Information  string `json:"Information"`
}

func (c *Client) fetchOnce(ctx context.Context, symbol string) (*Series, error) {
	params := url.Values{}
	params.Set("function", "TIME_SERIES_DAILY")
	params.Set("symbol", symbol)
	params.Set("outputsize", "compact")
	params.Set("apikey", c.cfg.APIKey)

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/query?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build quote request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("quote request failed: %w", err)
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read quote response: %w", err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("quote provider returned status %d", resp.StatusCode)
	}

	var parsed dailyResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode quote response: %w", err)
	}

	switch {
	case parsed.ErrorMessage != "":
		return nil, fmt.Errorf("quote provider rejected request: %s", parsed.ErrorMessage)
	case parsed.Note != "":
		return nil, fmt.Errorf("quote provider throttled request: %s", parsed.Note)
	case len(parsed.Series) == 0 && parsed.Information != "":
		return nil, fmt.Errorf("quote provider rejected request: %s", parsed.Information)
	case len(parsed.Series) == 0:
		return nil, fmt.Errorf("quote provider returned no data for %s", symbol)
	}

	return buildSeries(symbol, &parsed)
}

func buildSeries(symbol string, resp *dailyResponse) (*Series, error) {
	dates := make([]string, 0, len(resp.Series))
	for date := range resp.Series {
		dates = append(dates, date)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))

	out := &Series{
		Symbol:        symbol,
		LastRefreshed: resp.MetaData.LastRefreshed,
		TimeZone:      resp.MetaData.TimeZone,
		Bars:          make([]Bar, 0, len(dates)),
	}

	for _, date := range dates {
		raw := resp.Series[date]
		bar := Bar{Date: date}

		var err error
		if bar.Open, err = strconv.ParseFloat(raw.Open, 64); err != nil {
			return nil, fmt.Errorf("parse open for %s: %w", date, err)
		}
		if bar.High, err = strconv.ParseFloat(raw.High, 64); err != nil {
			return nil, fmt.Errorf("parse high for %s: %w", date, err)
		}
		if bar.Low, err = strconv.ParseFloat(raw.Low, 64); err != nil {
			return nil, fmt.Errorf("parse low for %s: %w", date, err)
		}
		if bar.Close, err = strconv.ParseFloat(raw.Close, 64); err != nil {
			return nil, fmt.Errorf("parse close for %s: %w", date, err)
		}
		if bar.Volume, err = strconv.ParseInt(raw.Volume, 10, 64); err != nil {
			return nil, fmt.Errorf("parse volume for %s: %w", date, err)
		}

		out.Bars = append(out.Bars, bar)
	}

	return out, nil
}
