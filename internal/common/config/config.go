// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Server    ServerConfig    `mapstructure:"server"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Search    SearchConfig    `mapstructure:"search"`
	Quota     QuotaConfig     `mapstructure:"quota"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Sources   SourcesConfig   `mapstructure:"sources"`
	Agents    AgentsConfig    `mapstructure:"agents"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Address         string `mapstructure:"address"`
	MetricsAddress  string `mapstructure:"metrics_address"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout"` // seconds
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// SearchConfig tunes the orchestrator and the relevance scorer.
type SearchConfig struct {
	DefaultLimit        int     `mapstructure:"default_limit"`
	MaxLimit            int     `mapstructure:"max_limit"`
	SourceTimeout       int     `mapstructure:"source_timeout"` // milliseconds
	OverfetchMultiplier float64 `mapstructure:"overfetch_multiplier"`
	KeywordWeight       float64 `mapstructure:"keyword_weight"`
	SemanticWeight      float64 `mapstructure:"semantic_weight"`
	RecencyWindowDays   int     `mapstructure:"recency_window_days"`

	// Minimum relevance per source category; items below are dropped
	// before ranking. Looser for broad feeds, stricter for code search.
	CategoryThresholds map[string]float64 `mapstructure:"category_thresholds"`
}

// QuotaConfig bounds request volume over a sliding 24-hour window.
type QuotaConfig struct {
	PerIdentityDaily int `mapstructure:"per_identity_daily"`
	GlobalDaily      int `mapstructure:"global_daily"`
	WindowHours      int `mapstructure:"window_hours"`
}

// CacheConfig controls query-cache TTLs. TTLs are minutes; the
// time-sensitive TTL applies when the classified intent needs fresh data.
type CacheConfig struct {
	DefaultTTL       int            `mapstructure:"default_ttl"`
	TimeSensitiveTTL int            `mapstructure:"time_sensitive_ttl"`
	PerIntentTTL     map[string]int `mapstructure:"per_intent_ttl"`
}

type SourcesConfig struct {
	GitHub     GitHubConfig     `mapstructure:"github"`
	HackerNews HackerNewsConfig `mapstructure:"hackernews"`
	DevTo      DevToConfig      `mapstructure:"devto"`
	Crypto     CryptoConfig     `mapstructure:"crypto"`
}

type GitHubConfig struct {
	BaseURL  string `mapstructure:"base_url"`
	Token    string `mapstructure:"token"`
	MinStars int    `mapstructure:"min_stars"`
}

type HackerNewsConfig struct {
	BaseURL   string `mapstructure:"base_url"`
	MinPoints int    `mapstructure:"min_points"`
}

type DevToConfig struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
}

type CryptoConfig struct {
	BaseURL string `mapstructure:"base_url"`
}

// AgentsConfig configures the narration backends.
type AgentsConfig struct {
	Enabled       bool    `mapstructure:"enabled"`
	BaseURL       string  `mapstructure:"base_url"`
	Token         string  `mapstructure:"token"`
	Model         string  `mapstructure:"model"`
	Timeout       int     `mapstructure:"timeout"` // milliseconds
	MinConfidence float64 `mapstructure:"min_confidence"`
}

// EmbeddingConfig configures optional semantic scoring.
type EmbeddingConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BaseURL  string `mapstructure:"base_url"`
	Model    string `mapstructure:"model"`
	PoolSize int    `mapstructure:"pool_size"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "devpulse-search"
	}
	if cfg.Server.Address == "" {
		cfg.Server.Address = ":8080"
	}
	if cfg.Server.MetricsAddress == "" {
		cfg.Server.MetricsAddress = ":9090"
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10
	}
	if cfg.Redis.Address == "" {
		cfg.Redis.Address = "localhost:6379"
	}
	if cfg.Search.DefaultLimit == 0 {
		cfg.Search.DefaultLimit = 15
	}
	if cfg.Search.MaxLimit == 0 {
		cfg.Search.MaxLimit = 50
	}
	if cfg.Search.SourceTimeout == 0 {
		cfg.Search.SourceTimeout = 5000
	}
	if cfg.Search.OverfetchMultiplier == 0 {
		cfg.Search.OverfetchMultiplier = 2.0
	}
	if cfg.Search.KeywordWeight == 0 && cfg.Search.SemanticWeight == 0 {
		cfg.Search.KeywordWeight = 0.7
		cfg.Search.SemanticWeight = 0.3
	}
	if cfg.Search.RecencyWindowDays == 0 {
		cfg.Search.RecencyWindowDays = 30
	}
	if cfg.Search.CategoryThresholds == nil {
		cfg.Search.CategoryThresholds = map[string]float64{
			"repository": 20,
			"article":    10,
			"discussion": 10,
			"market":     0,
		}
	}
	if cfg.Quota.PerIdentityDaily == 0 {
		cfg.Quota.PerIdentityDaily = 50
	}
	if cfg.Quota.GlobalDaily == 0 {
		cfg.Quota.GlobalDaily = 1200
	}
	if cfg.Quota.WindowHours == 0 {
		cfg.Quota.WindowHours = 24
	}
	if cfg.Cache.DefaultTTL == 0 {
		cfg.Cache.DefaultTTL = 24 * 60
	}
	if cfg.Cache.TimeSensitiveTTL == 0 {
		cfg.Cache.TimeSensitiveTTL = 15
	}
	if cfg.Sources.GitHub.BaseURL == "" {
		cfg.Sources.GitHub.BaseURL = "https://api.github.com"
	}
	if cfg.Sources.GitHub.MinStars == 0 {
		cfg.Sources.GitHub.MinStars = 5
	}
	if cfg.Sources.HackerNews.BaseURL == "" {
		cfg.Sources.HackerNews.BaseURL = "https://hn.algolia.com/api/v1"
	}
	if cfg.Sources.HackerNews.MinPoints == 0 {
		cfg.Sources.HackerNews.MinPoints = 10
	}
	if cfg.Sources.DevTo.BaseURL == "" {
		cfg.Sources.DevTo.BaseURL = "https://dev.to/api"
	}
	if cfg.Sources.Crypto.BaseURL == "" {
		cfg.Sources.Crypto.BaseURL = "https://api.coingecko.com/api/v3"
	}
	if cfg.Agents.Model == "" {
		cfg.Agents.Model = "gpt-4o-mini"
	}
	if cfg.Agents.Timeout == 0 {
		cfg.Agents.Timeout = 8000
	}
	if cfg.Agents.MinConfidence == 0 {
		cfg.Agents.MinConfidence = 0.3
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "text-embedding-3-small"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "console"
	}
}

func validateConfig(cfg *Config) error {
	if cfg.Search.OverfetchMultiplier < 1.0 {
		return fmt.Errorf("search.overfetch_multiplier must be >= 1.0, got %v", cfg.Search.OverfetchMultiplier)
	}
	if cfg.Search.KeywordWeight < 0 || cfg.Search.SemanticWeight < 0 {
		return fmt.Errorf("scoring weights must be non-negative")
	}
	if cfg.Search.KeywordWeight+cfg.Search.SemanticWeight == 0 {
		return fmt.Errorf("at least one scoring weight must be positive")
	}
	if cfg.Quota.PerIdentityDaily > cfg.Quota.GlobalDaily {
		return fmt.Errorf("quota.per_identity_daily (%d) cannot exceed quota.global_daily (%d)",
			cfg.Quota.PerIdentityDaily, cfg.Quota.GlobalDaily)
	}
	if cfg.Search.DefaultLimit > cfg.Search.MaxLimit {
		return fmt.Errorf("search.default_limit (%d) cannot exceed search.max_limit (%d)",
			cfg.Search.DefaultLimit, cfg.Search.MaxLimit)
	}
	return nil
}
