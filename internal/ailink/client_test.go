package ailink

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/finsight/finsight/internal/ailink/driver"
	"github.com/finsight/finsight/internal/config"
	"github.com/finsight/finsight/internal/resilience"
)

type stubDriver struct {
	calls     int
	failUntil int
	response  *driver.Response
}

func (s *stubDriver) Name() string { return "stub" }

func (s *stubDriver) Complete(ctx context.Context, req *driver.Request) (*driver.Response, error) {
	s.calls++
	if s.calls <= s.failUntil {
		return nil, fmt.Errorf("transient provider failure %d", s.calls)
	}
	if s.response != nil {
		return s.response, nil
	}
	return &driver.Response{Content: "ok"}, nil
}

func testConfig() config.LLMConfig {
	return config.LLMConfig{
		Model:       "mixtral-8x7b-32768",
		Temperature: 0.7,
		MaxTokens:   1024,
		Retry: config.RetryConfig{
			MaxRetries:     3,
			InitialBackoff: time.Millisecond,
			BackoffFactor:  2.0,
		},
		RateLimit: config.RateLimitConfig{
			MaxCalls: 30,
			Period:   time.Minute,
		},
	}
}

func TestCompletePassesPromptsAndParameters(t *testing.T) {
	stub := &stubDriver{response: &driver.Response{Content: "Consider index funds."}}
	client := NewWithDriver(stub, testConfig(), resilience.PolicyWait)
	client.retrier.Sleep = func(ctx context.Context, d time.Duration) error { return nil }

	out, err := client.Complete(context.Background(), "system prompt", "user question")
	require.NoError(t, err)
	require.Equal(t, "Consider index funds.", out)
	require.Equal(t, 1, stub.calls)
}

func TestCompleteRetriesTransientFailures(t *testing.T) {
	stub := &stubDriver{failUntil: 2}
	client := NewWithDriver(stub, testConfig(), resilience.PolicyWait)
	client.retrier.Sleep = func(ctx context.Context, d time.Duration) error { return nil }

	out, err := client.Complete(context.Background(), "system", "user")
	require.NoError(t, err)
	require.Equal(t, "ok", out)
	require.Equal(t, 3, stub.calls)
}

func TestCompletePropagatesExhaustedRetries(t *testing.T) {
	stub := &stubDriver{failUntil: 100}
	client := NewWithDriver(stub, testConfig(), resilience.PolicyWait)
	client.retrier.Sleep = func(ctx context.Context, d time.Duration) error { return nil }

	_, err := client.Complete(context.Background(), "system", "user")
	require.Error(t, err)
	require.Contains(t, err.Error(), "transient provider failure 4")
	require.Equal(t, 4, stub.calls)
}

func TestCompleteRejectedByLimiter(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit.MaxCalls = 1
	stub := &stubDriver{}
	client := NewWithDriver(stub, cfg, resilience.PolicyReject)

	_, err := client.Complete(context.Background(), "system", "user")
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), "system", "user")
	require.ErrorIs(t, err, resilience.ErrRateLimited)
	require.Equal(t, 1, stub.calls)
}

func TestNewRejectsMissingKeyWithoutProviderCall(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit.Policy = "wait"
	client, err := New(cfg)
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), "system", "user")
	require.ErrorIs(t, err, ErrMissingAPIKey)
}
