// Package config provides centralized configuration for FinSight.
// Values resolve in three layers: built-in defaults, an optional YAML config
// file, and FINSIGHT_* environment variables.
package config

import "time"

// Config represents the complete application configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Store   StoreConfig   `mapstructure:"store"`
	Auth    AuthConfig    `mapstructure:"auth"`
	News    NewsConfig    `mapstructure:"news"`
	LLM     LLMConfig     `mapstructure:"llm"`
	Stocks  StocksConfig  `mapstructure:"stocks"`
	Vector  VectorConfig  `mapstructure:"vector"`
	Advisor AdvisorConfig `mapstructure:"advisor"`
	Logging LoggingConfig `mapstructure:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// StoreConfig contains database configuration for libsql/Turso.
type StoreConfig struct {
	Driver    string `mapstructure:"driver"`
	Path      string `mapstructure:"path"`
	URL       string `mapstructure:"url"`
	AuthToken string `mapstructure:"auth_token"`
}

// AuthConfig contains token issuance configuration.
type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

// RetryConfig configures the backoff retrier for one outbound operation.
type RetryConfig struct {
	MaxRetries     int           `mapstructure:"max_retries"`
	InitialBackoff time.Duration `mapstructure:"initial_backoff"`
	BackoffFactor  float64       `mapstructure:"backoff_factor"`
}

// RateLimitConfig configures the sliding-window limiter for one operation.
// Policy is "wait" (block until a slot frees) or "reject" (fail fast).
type RateLimitConfig struct {
	MaxCalls int           `mapstructure:"max_calls"`
	Period   time.Duration `mapstructure:"period"`
	Policy   string        `mapstructure:"policy"`
}

// CacheConfig configures the response cache for one operation.
type CacheConfig struct {
	TTL        time.Duration `mapstructure:"ttl"`
	MaxEntries int           `mapstructure:"max_entries"`
}

// NewsConfig configures the news-search provider client.
type NewsConfig struct {
	BaseURL        string          `mapstructure:"base_url"`
	APIKey         string          `mapstructure:"api_key"`
	Timeout        time.Duration   `mapstructure:"timeout"`
	SearchDepth    string          `mapstructure:"search_depth"`
	IncludeDomains []string        `mapstructure:"include_domains"`
	Retry          RetryConfig     `mapstructure:"retry"`
	RateLimit      RateLimitConfig `mapstructure:"rate_limit"`
	Cache          CacheConfig     `mapstructure:"cache"`
}

// LLMConfig configures the hosted LLM provider client.
type LLMConfig struct {
	BaseURL     string          `mapstructure:"base_url"`
	APIKey      string          `mapstructure:"api_key"`
	Model       string          `mapstructure:"model"`
	Temperature float64         `mapstructure:"temperature"`
	MaxTokens   int             `mapstructure:"max_tokens"`
	Timeout     time.Duration   `mapstructure:"timeout"`
	Retry       RetryConfig     `mapstructure:"retry"`
	RateLimit   RateLimitConfig `mapstructure:"rate_limit"`
}

// StocksConfig configures the stock-quote provider client.
type StocksConfig struct {
	BaseURL   string          `mapstructure:"base_url"`
	APIKey    string          `mapstructure:"api_key"`
	Timeout   time.Duration   `mapstructure:"timeout"`
	Retry     RetryConfig     `mapstructure:"retry"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Cache     CacheConfig     `mapstructure:"cache"`
}

// VectorConfig configures the embedding vector store client.
type VectorConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	BaseURL    string        `mapstructure:"base_url"`
	Collection string        `mapstructure:"collection"`
	Timeout    time.Duration `mapstructure:"timeout"`
	Retry      RetryConfig   `mapstructure:"retry"`
}

// AdvisorConfig configures context assembly for the advice orchestrator.
type AdvisorConfig struct {
	// PromptsDir overrides the built-in prompt templates.
	PromptsDir      string `mapstructure:"prompts_dir"`
	NewsArticles    int    `mapstructure:"news_articles"`
	NewsMaxAgeHours int    `mapstructure:"news_max_age_hours"`
	BookInsights    int    `mapstructure:"book_insights"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level controls the minimum log level: trace, debug, info, warn, error.
	Level string `mapstructure:"level"`
}

// MetricsConfig controls the Prometheus exporter.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// Port for the exporter listener; /metrics on the main server proxies it.
	Port int `mapstructure:"port"`
}
