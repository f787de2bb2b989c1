// Package config defines the top-level configuration for arbwatch and
// provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by ARBWATCH_* environment variables.
type Config struct {
	Scanner   ScannerConfig   `toml:"scanner"`
	Mapping   MappingConfig   `toml:"mapping"`
	Exchanges ExchangesConfig `toml:"exchanges"`
	Redis     RedisConfig     `toml:"redis"`
	Postgres  PostgresConfig  `toml:"postgres"`
	S3        S3Config        `toml:"s3"`
	Server    ServerConfig    `toml:"server"`
	Notify    NotifyConfig    `toml:"notify"`
	Mode      string          `toml:"mode"`
	LogLevel  string          `toml:"log_level"`
}

// ScannerConfig holds detection thresholds and loop pacing.
type ScannerConfig struct {
	MinSpreadPct    float64  `toml:"min_spread_pct"`
	MinVolume       float64  `toml:"min_volume"`
	HistoryLength   int      `toml:"history_length"`
	RefreshInterval duration `toml:"refresh_interval"`
	MinSleep        duration `toml:"min_sleep"`
	ErrorBackoff    duration `toml:"error_backoff"`
	RequestTimeout  duration `toml:"request_timeout"`
	NotifyTimeout   duration `toml:"notify_timeout"`
	Concurrency     int      `toml:"concurrency"`
	// CycleLock serialises cycles across replicas through Redis.
	CycleLock    bool     `toml:"cycle_lock"`
	CycleLockTTL duration `toml:"cycle_lock_ttl"`
}

// MappingConfig selects where the asset-to-pair table comes from.
type MappingConfig struct {
	// Source is "csv" or "postgres".
	Source string `toml:"source"`
	Path   string `toml:"path"`
}

// ExchangesConfig selects and tunes the venues.
type ExchangesConfig struct {
	// Enabled lists venue IDs in polling order. Empty means every mapping
	// column.
	Enabled []string               `toml:"enabled"`
	Venues  map[string]VenueConfig `toml:"venues"`
}

// VenueConfig holds per-venue overrides.
type VenueConfig struct {
	BaseURL         string `toml:"base_url"`
	RateLimitPerSec int    `toml:"rate_limit_per_sec"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Enabled    bool     `toml:"enabled"`
	URL        string   `toml:"url"`
	Addr       string   `toml:"addr"`
	Password   string   `toml:"password"`
	DB         int      `toml:"db"`
	PoolSize   int      `toml:"pool_size"`
	MaxRetries int      `toml:"max_retries"`
	TLSEnabled bool     `toml:"tls_enabled"`
	KeyPrefix  string   `toml:"key_prefix"`
	TickerTTL  duration `toml:"ticker_ttl"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Enabled       bool   `toml:"enabled"`
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
	// Audit records startup and cycle summaries in audit_log.
	Audit bool `toml:"audit"`
}

// S3Config holds S3-compatible object storage parameters for the ticker
// archive.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
	Prefix         string `toml:"prefix"`
}

// duration is a wrapper around time.Duration that supports TOML string decoding
// (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	APIKey      string   `toml:"api_key"`
	// RateLimitPerMin is the per-IP request budget. Only enforced when Redis
	// is enabled.
	RateLimitPerMin int `toml:"rate_limit_per_min"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramAPI    string `toml:"telegram_api"`
	TelegramToken  string `toml:"telegram_token"`
	TelegramChatID string `toml:"telegram_chat_id"`
	// TelegramTokenFile is a sealed token written by the sealsecret tool. It
	// is used when TelegramToken is empty.
	TelegramTokenFile     string   `toml:"telegram_token_file"`
	TelegramTokenPassword string   `toml:"telegram_token_password"`
	DiscordWebhookURL     string   `toml:"discord_webhook_url"`
	WebhookURL            string   `toml:"webhook_url"`
	WebhookSecret         string   `toml:"webhook_secret"`
	Cooldown              duration `toml:"cooldown"`
}

// TelegramConfigured reports whether a Telegram sender should be built.
func (n NotifyConfig) TelegramConfigured() bool {
	return n.TelegramChatID != "" && (n.TelegramToken != "" || n.TelegramTokenFile != "")
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Scanner: ScannerConfig{
			MinSpreadPct:    1.5,
			MinVolume:       10000,
			HistoryLength:   100,
			RefreshInterval: duration{30 * time.Second},
			MinSleep:        duration{5 * time.Second},
			ErrorBackoff:    duration{60 * time.Second},
			RequestTimeout:  duration{10 * time.Second},
			NotifyTimeout:   duration{10 * time.Second},
			Concurrency:     8,
			CycleLockTTL:    duration{2 * time.Minute},
		},
		Mapping: MappingConfig{
			Source: "csv",
			Path:   "crypto_mapping.csv",
		},
		Exchanges: ExchangesConfig{
			Enabled: []string{"binance", "coinbase", "kraken"},
			Venues: map[string]VenueConfig{
				"binance":  {RateLimitPerSec: 10},
				"coinbase": {RateLimitPerSec: 10},
				"kraken":   {RateLimitPerSec: 1},
			},
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			PoolSize:   20,
			MaxRetries: 3,
			KeyPrefix:  "arbwatch:",
			TickerTTL:  duration{5 * time.Minute},
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "arbwatch",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  5,
			PoolMinConns:  1,
			RunMigrations: true,
			Audit:         true,
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "arbwatch-data",
			ForcePathStyle: true,
			Prefix:         "tickers",
		},
		Server: ServerConfig{
			Port:            8000,
			RateLimitPerMin: 120,
		},
		Mode:     "scan",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"scan":           true,
	"once":           true,
	"import-mapping": true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	mode := strings.ToLower(c.Mode)
	if !validModes[mode] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: scan, once, import-mapping)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Scanner
	s := c.Scanner
	if s.MinSpreadPct < 0 {
		errs = append(errs, "scanner: min_spread_pct must be >= 0")
	}
	if s.MinVolume < 0 {
		errs = append(errs, "scanner: min_volume must be >= 0")
	}
	if s.HistoryLength < 2 {
		errs = append(errs, "scanner: history_length must be >= 2")
	}
	if s.RefreshInterval.Duration <= 0 {
		errs = append(errs, "scanner: refresh_interval must be > 0")
	}
	if s.MinSleep.Duration < 0 {
		errs = append(errs, "scanner: min_sleep must be >= 0")
	}
	if s.ErrorBackoff.Duration <= 0 {
		errs = append(errs, "scanner: error_backoff must be > 0")
	}
	if s.RequestTimeout.Duration <= 0 {
		errs = append(errs, "scanner: request_timeout must be > 0")
	}
	if s.Concurrency < 1 {
		errs = append(errs, "scanner: concurrency must be >= 1")
	}
	if s.CycleLock {
		if !c.Redis.Enabled {
			errs = append(errs, "scanner: cycle_lock requires redis.enabled")
		}
		if s.CycleLockTTL.Duration <= 0 {
			errs = append(errs, "scanner: cycle_lock_ttl must be > 0")
		}
	}

	// Mapping
	switch strings.ToLower(c.Mapping.Source) {
	case "csv":
		if c.Mapping.Path == "" {
			errs = append(errs, "mapping: path must be set for source csv")
		}
	case "postgres":
		if !c.Postgres.Enabled {
			errs = append(errs, "mapping: source postgres requires postgres.enabled")
		}
	default:
		errs = append(errs, fmt.Sprintf("mapping: unknown source %q (valid: csv, postgres)", c.Mapping.Source))
	}
	if mode == "import-mapping" {
		if !c.Postgres.Enabled {
			errs = append(errs, "mode import-mapping requires postgres.enabled")
		}
		if c.Mapping.Path == "" {
			errs = append(errs, "mode import-mapping requires mapping.path")
		}
	}

	// Exchanges
	seen := make(map[string]bool, len(c.Exchanges.Enabled))
	for _, ex := range c.Exchanges.Enabled {
		if seen[ex] {
			errs = append(errs, fmt.Sprintf("exchanges: %q listed twice", ex))
		}
		seen[ex] = true
	}
	for name, v := range c.Exchanges.Venues {
		if v.RateLimitPerSec < 0 {
			errs = append(errs, fmt.Sprintf("exchanges.venues.%s: rate_limit_per_sec must be >= 0", name))
		}
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.URL == "" && c.Redis.Addr == "" {
			errs = append(errs, "redis: url or addr must be set")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	// Postgres
	if c.Postgres.Enabled {
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			if c.Postgres.Host == "" {
				errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
			}
			if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
				errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
			}
			if c.Postgres.Database == "" {
				errs = append(errs, "postgres: database must not be empty")
			}
		}
		if c.Postgres.PoolMaxConns < 1 {
			errs = append(errs, "postgres: pool_max_conns must be >= 1")
		}
		if c.Postgres.PoolMinConns < 0 || c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			errs = append(errs, "postgres: pool_min_conns must be between 0 and pool_max_conns")
		}
	}

	// S3
	if c.S3.Enabled {
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty")
		}
		if c.S3.Region == "" {
			errs = append(errs, "s3: region must not be empty")
		}
	}

	// Server
	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
		if c.Server.RateLimitPerMin < 0 {
			errs = append(errs, "server: rate_limit_per_min must be >= 0")
		}
	}

	// Notify
	n := c.Notify
	if (n.TelegramToken != "" || n.TelegramTokenFile != "") && n.TelegramChatID == "" {
		errs = append(errs, "notify: telegram_chat_id is required when a telegram token is set")
	}
	if n.TelegramTokenFile != "" && n.TelegramTokenPassword == "" {
		errs = append(errs, "notify: telegram_token_password is required when telegram_token_file is set")
	}
	if n.WebhookSecret != "" && n.WebhookURL == "" {
		errs = append(errs, "notify: webhook_secret set without webhook_url")
	}
	if n.Cooldown.Duration < 0 {
		errs = append(errs, "notify: cooldown must be >= 0")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
