package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Store backends accepted by ledger.store_backend.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	AES      AESConfig      `mapstructure:"aes"`
	Log      LogConfig      `mapstructure:"log"`
	Ledger   LedgerConfig   `mapstructure:"ledger"`
	Provider ProviderConfig `mapstructure:"provider"`
	Admin    AdminConfig    `mapstructure:"admin"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug, release, test
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"` // idempotency cache + rate limiting
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the Redis address string.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type JWTConfig struct {
	Secret string        `mapstructure:"secret"`
	Expiry time.Duration `mapstructure:"expiry"`
	Issuer string        `mapstructure:"issuer"`
}

type AESConfig struct {
	Key string `mapstructure:"key"` // 32-byte hex-encoded key, encrypts payout destinations
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Pretty bool   `mapstructure:"pretty"` // human-readable output (dev only)
}

// LedgerConfig tunes the ledger engine. Rates are decimal strings so they
// survive YAML and env round-trips without float drift.
type LedgerConfig struct {
	StoreBackend     string        `mapstructure:"store_backend"`
	PointsMultiplier string        `mapstructure:"points_multiplier"`
	ExchangeRate     string        `mapstructure:"exchange_rate"`
	MaxRetries       int           `mapstructure:"max_retries"`
	StoreTimeout     time.Duration `mapstructure:"store_timeout"`
}

// Rates parses the points multiplier and the points→payout exchange rate.
func (l LedgerConfig) Rates() (multiplier, exchangeRate decimal.Decimal, err error) {
	multiplier, err = decimal.NewFromString(l.PointsMultiplier)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("parsing ledger.points_multiplier: %w", err)
	}
	exchangeRate, err = decimal.NewFromString(l.ExchangeRate)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("parsing ledger.exchange_rate: %w", err)
	}
	if !multiplier.IsPositive() || !exchangeRate.IsPositive() {
		return decimal.Zero, decimal.Zero, fmt.Errorf("ledger rates must be positive")
	}
	return multiplier, exchangeRate, nil
}

type ProviderConfig struct {
	WebhookSecret  string        `mapstructure:"webhook_secret"`
	TimestampDrift time.Duration `mapstructure:"timestamp_drift"`
}

// AdminConfig bootstraps the operator account at startup. Empty email disables it.
type AdminConfig struct {
	Email       string `mapstructure:"email"`
	Password    string `mapstructure:"password"`
	DisplayName string `mapstructure:"display_name"`
}

// Load reads configuration from file and environment variables.
// Environment variables override file values. Prefix: TKL_ (Token Ledger).
// Nested keys use underscore: TKL_DATABASE_HOST, TKL_LEDGER_STORE_BACKEND, etc.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "token_ledger")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("redis.enabled", true)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.expiry", "24h")
	v.SetDefault("jwt.issuer", "token-ledger")
	v.SetDefault("aes.key", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
	v.SetDefault("ledger.store_backend", BackendPostgres)
	v.SetDefault("ledger.points_multiplier", "1.25")
	v.SetDefault("ledger.exchange_rate", "0.5")
	v.SetDefault("ledger.max_retries", 5)
	v.SetDefault("ledger.store_timeout", "5s")
	v.SetDefault("provider.webhook_secret", "")
	v.SetDefault("provider.timestamp_drift", "5m")
	v.SetDefault("admin.email", "")
	v.SetDefault("admin.password", "")
	v.SetDefault("admin.display_name", "Operator")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// TKL_LEDGER_STORE_BACKEND -> ledger.store_backend
	v.SetEnvPrefix("TKL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Config file is optional; env vars can suffice.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	switch cfg.Ledger.StoreBackend {
	case BackendMemory, BackendPostgres, BackendRedis:
	default:
		return nil, fmt.Errorf("unknown ledger.store_backend %q", cfg.Ledger.StoreBackend)
	}
	if cfg.Ledger.MaxRetries < 1 {
		return nil, fmt.Errorf("ledger.max_retries must be at least 1, got %d", cfg.Ledger.MaxRetries)
	}

	return &cfg, nil
}
