package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Load resolves the configuration from defaults, the optional config file,
// and FINSIGHT_* environment variables. cfgFile may be empty, in which case
// viper searches the standard locations.
func Load(cfgFile string) (*Config, error) {
	v := viper.GetViper()
	return load(v, cfgFile)
}

func load(v *viper.Viper, cfgFile string) (*Config, error) {
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("finsight")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/finsight")
		v.AddConfigPath("/etc/finsight")
	}

	v.SetEnvPrefix("FINSIGHT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		// No config file is fine; defaults and environment apply.
	}

	var cfg Config
	decodeHook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&cfg, decodeHook); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.idle_timeout", 120*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("store.driver", "libsql")
	v.SetDefault("store.path", "data/finsight.db")

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl", 30*time.Minute)

	v.SetDefault("news.base_url", "https://api.tavily.com")
	v.SetDefault("news.api_key", "")
	v.SetDefault("news.timeout", 10*time.Second)
	v.SetDefault("news.search_depth", "advanced")
	v.SetDefault("news.include_domains", []string{
		"finance.yahoo.com",
		"bloomberg.com",
		"cnbc.com",
		"ft.com",
		"wsj.com",
		"reuters.com",
		"marketwatch.com",
		"economist.com",
		"barrons.com",
		"investing.com",
	})
	v.SetDefault("news.retry.max_retries", 3)
	v.SetDefault("news.retry.initial_backoff", time.Second)
	v.SetDefault("news.retry.backoff_factor", 2.0)
	v.SetDefault("news.rate_limit.max_calls", 20)
	v.SetDefault("news.rate_limit.period", time.Minute)
	v.SetDefault("news.rate_limit.policy", "wait")
	v.SetDefault("news.cache.ttl", time.Hour)
	v.SetDefault("news.cache.max_entries", 512)

	v.SetDefault("llm.base_url", "https://api.groq.com/openai/v1")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.model", "mixtral-8x7b-32768")
	v.SetDefault("llm.temperature", 0.7)
	v.SetDefault("llm.max_tokens", 1024)
	v.SetDefault("llm.timeout", 60*time.Second)
	v.SetDefault("llm.retry.max_retries", 3)
	v.SetDefault("llm.retry.initial_backoff", time.Second)
	v.SetDefault("llm.retry.backoff_factor", 2.0)
	v.SetDefault("llm.rate_limit.max_calls", 30)
	v.SetDefault("llm.rate_limit.period", time.Minute)
	v.SetDefault("llm.rate_limit.policy", "wait")

	v.SetDefault("stocks.base_url", "https://www.alphavantage.co")
	v.SetDefault("stocks.api_key", "")
	v.SetDefault("stocks.timeout", 10*time.Second)
	v.SetDefault("stocks.retry.max_retries", 2)
	v.SetDefault("stocks.retry.initial_backoff", time.Second)
	v.SetDefault("stocks.retry.backoff_factor", 2.0)
	// Alpha Vantage free tier allows 5 requests/minute; reject rather than
	// queue callers behind a minute-long wait.
	v.SetDefault("stocks.rate_limit.max_calls", 5)
	v.SetDefault("stocks.rate_limit.period", time.Minute)
	v.SetDefault("stocks.rate_limit.policy", "reject")
	v.SetDefault("stocks.cache.ttl", 5*time.Minute)
	v.SetDefault("stocks.cache.max_entries", 256)

	v.SetDefault("vector.enabled", false)
	v.SetDefault("vector.base_url", "http://localhost:8001")
	v.SetDefault("vector.collection", "self_help_books")
	v.SetDefault("vector.timeout", 10*time.Second)
	v.SetDefault("vector.retry.max_retries", 1)
	v.SetDefault("vector.retry.initial_backoff", 500*time.Millisecond)
	v.SetDefault("vector.retry.backoff_factor", 2.0)

	v.SetDefault("advisor.news_articles", 5)
	v.SetDefault("advisor.news_max_age_hours", 24)
	v.SetDefault("advisor.book_insights", 3)

	v.SetDefault("logging.level", "info")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)
}

func validate(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", cfg.Server.Port)
	}

	for name, rl := range map[string]RateLimitConfig{
		"news":   cfg.News.RateLimit,
		"llm":    cfg.LLM.RateLimit,
		"stocks": cfg.Stocks.RateLimit,
	} {
		switch rl.Policy {
		case "", "wait", "reject":
		default:
			return fmt.Errorf("invalid %s rate limit policy %q (want wait or reject)", name, rl.Policy)
		}
	}

	for name, retry := range map[string]RetryConfig{
		"news":   cfg.News.Retry,
		"llm":    cfg.LLM.Retry,
		"stocks": cfg.Stocks.Retry,
		"vector": cfg.Vector.Retry,
	} {
		if retry.MaxRetries < 0 {
			return fmt.Errorf("invalid %s max_retries: %d", name, retry.MaxRetries)
		}
		if retry.BackoffFactor != 0 && retry.BackoffFactor < 1 {
			return fmt.Errorf("invalid %s backoff_factor: %v (must be >= 1)", name, retry.BackoffFactor)
		}
	}

	return nil
}
