// Package ailink composes the LLM provider driver with rate limiting and
// retry. LLM responses are intentionally not cached: advice depends on
// per-request context that never repeats byte for byte.
package ailink

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/finsight/finsight/internal/ailink/driver"
	"github.com/finsight/finsight/internal/ailink/driver/groq"
	"github.com/finsight/finsight/internal/config"
	"github.com/finsight/finsight/internal/metrics"
	"github.com/finsight/finsight/internal/observability"
	"github.com/finsight/finsight/internal/resilience"
)

const operationName = "llm_complete"

// ErrMissingAPIKey indicates the provider credential is absent.
var ErrMissingAPIKey = groq.ErrMissingAPIKey

// Client is the resilient LLM outbound client. Every completion passes
// through the limiter first, then the retrier around the provider call.
type Client struct {
	driver  driver.Driver
	limiter *resilience.Limiter
	retrier *resilience.Retrier

	model       string
	temperature float64
	maxTokens   int
}

// New builds a client from configuration using the Groq driver.
func New(cfg config.LLMConfig) (*Client, error) {
	policy, err := resilience.ParseLimitPolicy(cfg.RateLimit.Policy)
	if err != nil {
		return nil, err
	}

	drv := groq.NewClient(cfg.BaseURL, cfg.APIKey)
	drv.Timeout = cfg.Timeout

	return NewWithDriver(drv, cfg, policy), nil
}

// NewWithDriver builds a client around an explicit driver. Tests use this to
// substitute a stub provider.
func NewWithDriver(drv driver.Driver, cfg config.LLMConfig, policy resilience.LimitPolicy) *Client {
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
		driver:      drv,
		limiter:     limiter,
		retrier:     retrier,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}
}

// Complete sends a system/user prompt pair through the resilience chain and
// returns the assistant's reply text.
func (c *Client) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	// Configuration errors fail immediately: they never consume a rate
	// limit slot and are never retried.
	if gc, ok := c.driver.(*groq.Client); ok && gc.APIKey == "" {
		return "", ErrMissingAPIKey
	}

	if err := c.limiter.Admit(ctx); err != nil {
		if errors.Is(err, resilience.ErrRateLimited) {
			metrics.RecordRateLimitReject(operationName)
		}
		metrics.RecordOperation(operationName, false)
		return "", err
	}

	req := &driver.Request{
		Model: c.model,
		Messages: []driver.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
	}
	if c.temperature > 0 {
		temp := c.temperature
		req.Temperature = &temp
	}
	if c.maxTokens > 0 {
		max := c.maxTokens
		req.MaxTokens = &max
	}

	resp, err := resilience.Do(ctx, c.retrier, operationName, func(ctx context.Context) (*driver.Response, error) {
		return c.driver.Complete(ctx, req)
	})
	if err != nil {
		metrics.RecordOperation(operationName, false)
		return "", err
	}

	if logger := observability.Logger(); logger != nil && resp.Usage != nil {
		logger.Debug("LLM completion finished",
			zap.String("provider", c.driver.Name()),
			zap.String("model", c.model),
			zap.Int("prompt_tokens", resp.Usage.PromptTokens),
			zap.Int("completion_tokens", resp.Usage.CompletionTokens),
			zap.Int("total_tokens", resp.Usage.TotalTokens))
	}

	metrics.RecordOperation(operationName, true)
	return resp.Content, nil
}
