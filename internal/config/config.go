package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	AI        AIConfig        `yaml:"ai" mapstructure:"ai"`
	Search    SearchConfig    `yaml:"search" mapstructure:"search"`
	Translate TranslateConfig `yaml:"translate" mapstructure:"translate"`
	Overpass  OverpassConfig  `yaml:"overpass" mapstructure:"overpass"`
	Crawl     CrawlConfig     `yaml:"crawl" mapstructure:"crawl"`
	Enrich    EnrichConfig    `yaml:"enrich" mapstructure:"enrich"`
	Batch     BatchConfig     `yaml:"batch" mapstructure:"batch"`
	Scheduler SchedulerConfig `yaml:"scheduler" mapstructure:"scheduler"`
	Queue     QueueConfig     `yaml:"queue" mapstructure:"queue"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Monitor   MonitorConfig   `yaml:"monitor" mapstructure:"monitor"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// AIConfig configures the completion backends. Backend selects which one is
// constructed; "cli" is preferred when the tool is installed and enabled.
type AIConfig struct {
	Backend        string `yaml:"backend" mapstructure:"backend"` // "cli", "api", "mock"
	CLIPath        string `yaml:"cli_path" mapstructure:"cli_path"`
	CLIEnabled     bool   `yaml:"cli_enabled" mapstructure:"cli_enabled"`
	CLITimeoutSecs int    `yaml:"cli_timeout_secs" mapstructure:"cli_timeout_secs"`
	APIKey         string `yaml:"api_key" mapstructure:"api_key"`
	Model          string `yaml:"model" mapstructure:"model"`
	MaxTokens      int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// SearchConfig configures the web-search backends.
type SearchConfig struct {
	Backend       string `yaml:"backend" mapstructure:"backend"` // "scrape", "api", "mock"
	APIKey        string `yaml:"api_key" mapstructure:"api_key"`
	APIBaseURL    string `yaml:"api_base_url" mapstructure:"api_base_url"`
	MaxResults    int    `yaml:"max_results" mapstructure:"max_results"`
	FetchContent  bool   `yaml:"fetch_content" mapstructure:"fetch_content"`
	TimeoutSecs   int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	StaggerMillis int    `yaml:"stagger_millis" mapstructure:"stagger_millis"`
}

// TranslateConfig configures the translation backends.
type TranslateConfig struct {
	Backend    string `yaml:"backend" mapstructure:"backend"` // "api", "ai", "mock"
	APIKey     string `yaml:"api_key" mapstructure:"api_key"`
	APIBaseURL string `yaml:"api_base_url" mapstructure:"api_base_url"`
	SourceLang string `yaml:"source_lang" mapstructure:"source_lang"`
}

// OverpassConfig configures the geo-catalog client used by discovery imports.
type OverpassConfig struct {
	BaseURL     string `yaml:"base_url" mapstructure:"base_url"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// CrawlConfig configures the website research coordinator.
type CrawlConfig struct {
	MaxPages     int      `yaml:"max_pages" mapstructure:"max_pages"`
	MaxDepth     int      `yaml:"max_depth" mapstructure:"max_depth"`
	TimeoutSecs  int      `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RatePerSec   float64  `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	ExcludePaths []string `yaml:"exclude_paths" mapstructure:"exclude_paths"`
}

// EnrichConfig configures prompt assembly and parsing.
type EnrichConfig struct {
	MaxReviews           int     `yaml:"max_reviews" mapstructure:"max_reviews"`
	MaxWebsiteChars      int     `yaml:"max_website_chars" mapstructure:"max_website_chars"`
	TopSnippetsPerQuery  int     `yaml:"top_snippets_per_query" mapstructure:"top_snippets_per_query"`
	CategoryFitThreshold float64 `yaml:"category_fit_threshold" mapstructure:"category_fit_threshold"`
}

// BatchConfig configures the self-chaining batch controller.
type BatchConfig struct {
	Size          int `yaml:"size" mapstructure:"size"`
	StaggerSecs   int `yaml:"stagger_secs" mapstructure:"stagger_secs"`
	UniqueMinutes int `yaml:"unique_minutes" mapstructure:"unique_minutes"`
}

// SchedulerConfig configures the periodic region discovery loop.
type SchedulerConfig struct {
	IntervalHours     int     `yaml:"interval_hours" mapstructure:"interval_hours"`
	CityThreshold     int     `yaml:"city_threshold" mapstructure:"city_threshold"`
	ImportRadiusKM    float64 `yaml:"import_radius_km" mapstructure:"import_radius_km"`
	RunOnStart        bool    `yaml:"run_on_start" mapstructure:"run_on_start"`
	RegionSeedPath    string  `yaml:"region_seed_path" mapstructure:"region_seed_path"`
	TranslateUniqueHr int     `yaml:"translate_unique_hours" mapstructure:"translate_unique_hours"`
}

// QueueConfig configures per-queue worker pools and retry bounds.
type QueueConfig struct {
	AIWorkers        int `yaml:"ai_workers" mapstructure:"ai_workers"`
	CrawlWorkers     int `yaml:"crawl_workers" mapstructure:"crawl_workers"`
	SearchWorkers    int `yaml:"search_workers" mapstructure:"search_workers"`
	DiscoveryWorkers int `yaml:"discovery_workers" mapstructure:"discovery_workers"`
	TranslateWorkers int `yaml:"translate_workers" mapstructure:"translate_workers"`
	ControlWorkers   int `yaml:"control_workers" mapstructure:"control_workers"`
	MaxAttempts      int `yaml:"max_attempts" mapstructure:"max_attempts"`
}

// ServerConfig configures the observability HTTP server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// MonitorConfig configures the background pipeline health checker.
type MonitorConfig struct {
	CheckIntervalSecs   int     `yaml:"check_interval_secs" mapstructure:"check_interval_secs"`
	LookbackWindowHours int     `yaml:"lookback_window_hours" mapstructure:"lookback_window_hours"`
	WebhookURL          string  `yaml:"webhook_url" mapstructure:"webhook_url"`
	DiscardedThreshold  int     `yaml:"discarded_threshold" mapstructure:"discarded_threshold"`
	CoverageThreshold   float64 `yaml:"coverage_threshold" mapstructure:"coverage_threshold"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("LISTING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("ai.backend", "cli")
	v.SetDefault("ai.cli_path", "llm")
	v.SetDefault("ai.cli_enabled", true)
	v.SetDefault("ai.cli_timeout_secs", 300)
	v.SetDefault("ai.model", "claude-haiku-4-5-20251001")
	v.SetDefault("ai.max_tokens", 4096)
	v.SetDefault("search.backend", "scrape")
	v.SetDefault("search.api_base_url", "https://api.tavily.com")
	v.SetDefault("search.max_results", 5)
	v.SetDefault("search.fetch_content", false)
	v.SetDefault("search.timeout_secs", 20)
	v.SetDefault("search.stagger_millis", 750)
	v.SetDefault("translate.backend", "api")
	v.SetDefault("translate.api_base_url", "https://api-free.deepl.com/v2")
	v.SetDefault("translate.source_lang", "en")
	v.SetDefault("overpass.base_url", "https://overpass-api.de/api/interpreter")
	v.SetDefault("overpass.timeout_secs", 60)
	v.SetDefault("crawl.max_pages", 8)
	v.SetDefault("crawl.max_depth", 2)
	v.SetDefault("crawl.timeout_secs", 30)
	v.SetDefault("crawl.rate_per_sec", 2)
	v.SetDefault("crawl.exclude_paths", []string{"/blog/*", "/news/*", "/careers/*", "/privacy*", "/terms*"})
	v.SetDefault("enrich.max_reviews", 12)
	v.SetDefault("enrich.max_website_chars", 12000)
	v.SetDefault("enrich.top_snippets_per_query", 3)
	v.SetDefault("enrich.category_fit_threshold", 0.5)
	v.SetDefault("batch.size", 100)
	v.SetDefault("batch.stagger_secs", 5)
	v.SetDefault("batch.unique_minutes", 30)
	v.SetDefault("scheduler.interval_hours", 24)
	v.SetDefault("scheduler.city_threshold", 5)
	v.SetDefault("scheduler.import_radius_km", 10)
	v.SetDefault("scheduler.run_on_start", false)
	v.SetDefault("scheduler.translate_unique_hours", 12)
	v.SetDefault("queue.ai_workers", 1)
	v.SetDefault("queue.crawl_workers", 3)
	v.SetDefault("queue.search_workers", 3)
	v.SetDefault("queue.discovery_workers", 2)
	v.SetDefault("queue.translate_workers", 2)
	v.SetDefault("queue.control_workers", 2)
	v.SetDefault("queue.max_attempts", 5)
	v.SetDefault("monitor.check_interval_secs", 300)
	v.SetDefault("monitor.lookback_window_hours", 24)
	v.SetDefault("monitor.discarded_threshold", 10)
	v.SetDefault("monitor.coverage_threshold", 0.5)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
