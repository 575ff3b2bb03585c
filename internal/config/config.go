// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Fetch      FetchConfig      `mapstructure:"fetch"`
	Headless   HeadlessConfig   `mapstructure:"headless"`
	Compliance ComplianceConfig `mapstructure:"compliance"`
	Pipeline   PipelineConfig   `mapstructure:"pipeline"`
	Jobs       JobsConfig       `mapstructure:"jobs"`
	Webhook    WebhookConfig    `mapstructure:"webhook"`
	Gemini     GeminiConfig     `mapstructure:"gemini"`
	DB         DBConfig         `mapstructure:"db"`
	PubSub     PubSubConfig     `mapstructure:"pubsub"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// FetchConfig governs the static fetcher.
type FetchConfig struct {
	UserAgent         string `mapstructure:"user_agent"`
	TimeoutSeconds    int    `mapstructure:"timeout_seconds"`
	MaxTimeoutSeconds int    `mapstructure:"max_timeout_seconds"`
}

// HeadlessConfig configures the rendering fetcher.
type HeadlessConfig struct {
	Enabled       bool    `mapstructure:"enabled"`
	MaxParallel   int     `mapstructure:"max_parallel"`
	NavTimeoutSec int     `mapstructure:"nav_timeout_seconds"`
	DomainQPS     float64 `mapstructure:"domain_qps"`
}

// ComplianceConfig controls the crawl-permission check.
type ComplianceConfig struct {
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	UserAgent      string `mapstructure:"user_agent"`
}

// PipelineConfig governs worker fan-out over the job queue.
type PipelineConfig struct {
	Concurrency int `mapstructure:"concurrency"`
	QueueDepth  int `mapstructure:"queue_depth"`
}

// JobsConfig bounds the in-memory job table.
type JobsConfig struct {
	StoreCapacity int `mapstructure:"store_capacity"`
}

// WebhookConfig bounds outbound terminal notifications.
type WebhookConfig struct {
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

// GeminiConfig selects the reasoning service model. The API key is read
// by the genai client from GEMINI_API_KEY / GOOGLE_API_KEY.
type GeminiConfig struct {
	Model string `mapstructure:"model"`
}

// DBConfig enables the Postgres-backed job store when a DSN is set.
type DBConfig struct {
	DSN string `mapstructure:"dsn"`
}

// PubSubConfig enables Pub/Sub terminal notifications when set.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SKYSCRAPER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("fetch.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36")
	v.SetDefault("fetch.timeout_seconds", 30)
	v.SetDefault("fetch.max_timeout_seconds", 120)
	v.SetDefault("headless.enabled", false)
	v.SetDefault("headless.max_parallel", 2)
	v.SetDefault("headless.nav_timeout_seconds", 45)
	v.SetDefault("headless.domain_qps", 1.0)
	v.SetDefault("compliance.timeout_seconds", 5)
	v.SetDefault("compliance.user_agent", "skyscraper-bot/1.0")
	v.SetDefault("pipeline.concurrency", 4)
	v.SetDefault("pipeline.queue_depth", 64)
	v.SetDefault("jobs.store_capacity", 1000)
	v.SetDefault("webhook.timeout_seconds", 10)
	v.SetDefault("gemini.model", "gemini-2.5-flash")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Pipeline.Concurrency <= 0 {
		return fmt.Errorf("pipeline.concurrency must be > 0")
	}
	if c.Fetch.TimeoutSeconds <= 0 {
		return fmt.Errorf("fetch.timeout_seconds must be > 0")
	}
	if c.Fetch.MaxTimeoutSeconds < c.Fetch.TimeoutSeconds {
		return fmt.Errorf("fetch.max_timeout_seconds must be >= fetch.timeout_seconds")
	}
	if c.Compliance.TimeoutSeconds <= 0 {
		return fmt.Errorf("compliance.timeout_seconds must be > 0")
	}
	if c.Jobs.StoreCapacity <= 0 {
		return fmt.Errorf("jobs.store_capacity must be > 0")
	}
	if c.Headless.Enabled && c.Headless.MaxParallel <= 0 {
		return fmt.Errorf("headless.max_parallel must be > 0 when headless is enabled")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	return nil
}

// FetchTimeout clamps a per-request timeout to the configured bounds,
// falling back to the default when the request does not supply one.
func (c Config) FetchTimeout(requestedSeconds int) time.Duration {
	seconds := requestedSeconds
	if seconds <= 0 {
		seconds = c.Fetch.TimeoutSeconds
	}
	if seconds > c.Fetch.MaxTimeoutSeconds {
		seconds = c.Fetch.MaxTimeoutSeconds
	}
	return time.Duration(seconds) * time.Second
}

// ComplianceTimeout returns the fixed short timeout for policy fetches.
func (c Config) ComplianceTimeout() time.Duration {
	return time.Duration(c.Compliance.TimeoutSeconds) * time.Second
}

// WebhookTimeout returns the fixed short timeout for webhook delivery.
func (c Config) WebhookTimeout() time.Duration {
	return time.Duration(c.Webhook.TimeoutSeconds) * time.Second
}
