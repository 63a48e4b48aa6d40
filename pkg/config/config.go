package config

import (
	"fmt"
	"time"
)

// Config holds runtime configuration for the gift shop bot.
type Config struct {
	AppEnv    string          `mapstructure:"app_env"`
	Bot       BotConfig       `mapstructure:"bot"`
	Logger    LoggerConfig    `mapstructure:"logger"`
	Sentry    SentryConfig    `mapstructure:"sentry"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Server    ServerConfig    `mapstructure:"server"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Catalog   CatalogConfig   `mapstructure:"catalog"`
	Purchase  PurchaseConfig  `mapstructure:"purchase"`
	Session   SessionConfig   `mapstructure:"session"`
	I18n      I18nConfig      `mapstructure:"i18n"`
}

type BotConfig struct {
	Token         string        `mapstructure:"token" validate:"required"`
	Mode          string        `mapstructure:"mode" validate:"oneof=polling webhook"`
	PollTimeout   time.Duration `mapstructure:"poll_timeout" validate:"gt=0"`
	WebhookListen string        `mapstructure:"webhook_listen" validate:"required_if=Mode webhook"`
	WebhookURL    string        `mapstructure:"webhook_url" validate:"required_if=Mode webhook"`
}

type LoggerConfig struct {
	Level      string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format     string `mapstructure:"format" validate:"oneof=json text"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" validate:"gte=0"`
	MaxBackups int    `mapstructure:"max_backups" validate:"gte=0"`
	MaxAgeDays int    `mapstructure:"max_age_days" validate:"gte=0"`
	Compress   bool   `mapstructure:"compress"`
}

type SentryConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	DSN         string  `mapstructure:"dsn" validate:"required_if=Enabled true"`
	Environment string  `mapstructure:"environment"`
	SampleRate  float64 `mapstructure:"sample_rate" validate:"gte=0,lte=1"`
}

// RedisConfig is empty-addr tolerant: without an address every Redis-backed
// component falls back to process memory.
type RedisConfig struct {
	Addr            string        `mapstructure:"addr"`
	Password        string        `mapstructure:"password"`
	DB              int           `mapstructure:"db" validate:"gte=0"`
	PoolSize        int           `mapstructure:"pool_size" validate:"gte=0"`
	MinIdleConns    int           `mapstructure:"min_idle_conns" validate:"gte=0"`
	PoolTimeout     time.Duration `mapstructure:"pool_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	MaxRetries      int           `mapstructure:"max_retries"`
	MinRetryBackoff time.Duration `mapstructure:"min_retry_backoff"`
	MaxRetryBackoff time.Duration `mapstructure:"max_retry_backoff"`
}

// Enabled reports whether a Redis server is configured.
func (c RedisConfig) Enabled() bool {
	return c.Addr != ""
}

// DatabaseConfig describes the Postgres history store. An empty Name disables it.
type DatabaseConfig struct {
	Host          string `mapstructure:"host"`
	Port          string `mapstructure:"port"`
	User          string `mapstructure:"user"`
	Password      string `mapstructure:"password"`
	Name          string `mapstructure:"name"`
	SSLMode       string `mapstructure:"sslmode" validate:"omitempty,oneof=disable require verify-ca verify-full"`
	MigrationsDir string `mapstructure:"migrations_dir"`
	MaxOpenConns  int    `mapstructure:"max_open_conns" validate:"gte=0"`
}

// Enabled reports whether purchase history should be persisted.
func (c DatabaseConfig) Enabled() bool {
	return c.Name != ""
}

// DSN returns PostgreSQL DSN based on config values.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host,
		c.Port,
		c.User,
		c.Password,
		c.Name,
		c.SSLMode,
	)
}

type ServerConfig struct {
	HTTPPort        string        `mapstructure:"http_port" validate:"required"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

type RateLimitConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Requests  int           `mapstructure:"requests" validate:"gt=0"`
	Window    time.Duration `mapstructure:"window" validate:"gt=0"`
	Whitelist []int64       `mapstructure:"whitelist"`
}

type CatalogConfig struct {
	MinPrice         int64 `mapstructure:"min_price" validate:"gte=0"`
	MaxPrice         int64 `mapstructure:"max_price" validate:"gtefield=MinPrice"`
	MinSupply        int64 `mapstructure:"min_supply" validate:"gte=0"`
	MaxSupply        int64 `mapstructure:"max_supply" validate:"gtefield=MinSupply"`
	IncludeUnlimited bool  `mapstructure:"include_unlimited"`
}

type PurchaseConfig struct {
	Delay time.Duration `mapstructure:"delay" validate:"gte=0"`
}

type SessionConfig struct {
	Backend         string        `mapstructure:"backend" validate:"oneof=redis memory"`
	TTL             time.Duration `mapstructure:"ttl" validate:"gt=0"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval" validate:"gt=0"`
}

type I18nConfig struct {
	DefaultLang string `mapstructure:"default_lang" validate:"required"`
	Dir         string `mapstructure:"dir"`
}
