package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := load(viper.New(), "")
	require.NoError(t, err)

	require.Equal(t, 8000, cfg.Server.Port)
	require.Equal(t, 20, cfg.News.RateLimit.MaxCalls)
	require.Equal(t, time.Minute, cfg.News.RateLimit.Period)
	require.Equal(t, "wait", cfg.News.RateLimit.Policy)
	require.Equal(t, "reject", cfg.Stocks.RateLimit.Policy)
	require.Equal(t, time.Hour, cfg.News.Cache.TTL)
	require.Equal(t, 3, cfg.News.Retry.MaxRetries)
	require.Equal(t, time.Second, cfg.News.Retry.InitialBackoff)
	require.InDelta(t, 2.0, cfg.News.Retry.BackoffFactor, 0.001)
	require.Equal(t, "mixtral-8x7b-32768", cfg.LLM.Model)
	require.Contains(t, cfg.News.IncludeDomains, "reuters.com")
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "finsight.yaml")
	contents := `
server:
  port: 9100
news:
  rate_limit:
    max_calls: 5
    period: 30s
    policy: reject
llm:
  retry:
    max_retries: 1
    initial_backoff: 250ms
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	cfg, err := load(viper.New(), path)
	require.NoError(t, err)

	require.Equal(t, 9100, cfg.Server.Port)
	require.Equal(t, 5, cfg.News.RateLimit.MaxCalls)
	require.Equal(t, 30*time.Second, cfg.News.RateLimit.Period)
	require.Equal(t, "reject", cfg.News.RateLimit.Policy)
	require.Equal(t, 1, cfg.LLM.Retry.MaxRetries)
	require.Equal(t, 250*time.Millisecond, cfg.LLM.Retry.InitialBackoff)
}

func TestLoadRejectsUnknownPolicy(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "finsight.yaml")
	require.NoError(t, os.WriteFile(path, []byte("news:\n  rate_limit:\n    policy: maybe\n"), 0o600))

	_, err := load(viper.New(), path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "rate limit policy")
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("FINSIGHT_SERVER_PORT", "9200")
	t.Setenv("FINSIGHT_LLM_API_KEY", "test-key")

	cfg, err := load(viper.New(), "")
	require.NoError(t, err)
	require.Equal(t, 9200, cfg.Server.Port)
	require.Equal(t, "test-key", cfg.LLM.APIKey)
}
