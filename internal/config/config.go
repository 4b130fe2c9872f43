// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	EnvDevelopment = "development"
	EnvStaging     = "staging"
	EnvProduction  = "production"
)

type RuntimeConfig struct {
	Dev bool
}

type AppConfig struct {
	Environment string `yaml:"environment"` // development|staging|production
	Version     string `yaml:"version"`
	Commit      string `yaml:"commit"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int32  `yaml:"max_conns"`
}

// RedisConfig is optional. An empty URL disables the renewal lock and rate limiting.
type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type HTTPConfig struct {
	Port           int           `yaml:"port"`
	JWTSecret      string        `yaml:"jwt_secret"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	// RateLimit is the per-user request budget per RateWindow on payout and tip endpoints.
	RateLimit  int           `yaml:"rate_limit"`
	RateWindow time.Duration `yaml:"rate_window"`
}

type LedgerConfig struct {
	ConflictRetries int `yaml:"conflict_retries"`
}

type GiftCacheConfig struct {
	Size int           `yaml:"size"`
	TTL  time.Duration `yaml:"ttl"`
}

type SubscriptionConfig struct {
	PeriodDays        int           `yaml:"period_days"`
	RenewalBatchSize  int           `yaml:"renewal_batch_size"`
	MaxFailedPayments int           `yaml:"max_failed_payments"`
	RetryInterval     time.Duration `yaml:"retry_interval"`
	DefaultTierPrice  int64         `yaml:"default_tier_price"`
	RenewalInterval   time.Duration `yaml:"renewal_interval"`
}

type PayoutConfig struct {
	Provider           string        `yaml:"provider"` // http|mock
	MockMode           bool          `yaml:"mock_mode"`
	BaseURL            string        `yaml:"base_url"`
	APIKey             string        `yaml:"api_key"`
	WebhookSecret      string        `yaml:"webhook_secret"`
	SettlementCurrency string        `yaml:"settlement_currency"`
	CoinToMinorRate    int64         `yaml:"coin_to_minor_rate"`
	MinPayoutCoins     int64         `yaml:"min_payout_coins"`
	DefaultMethod      string        `yaml:"default_method"`
	SyncStaleAfter     time.Duration `yaml:"sync_stale_after"`
	ReconcileInterval  time.Duration `yaml:"reconcile_interval"`
	ReconcileOlderThan time.Duration `yaml:"reconcile_older_than"`
	RedirectURL        string        `yaml:"redirect_url"`
	Timeout            time.Duration `yaml:"timeout"`
}

type TelegramConfig struct {
	Token     string `yaml:"token"`
	OpsChatID int64  `yaml:"ops_chat_id"`
}

type NotifyConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

type Config struct {
	App          AppConfig          `yaml:"app"`
	Log          LogConfig          `yaml:"log"`
	Database     DatabaseConfig     `yaml:"database"`
	Redis        RedisConfig        `yaml:"redis"`
	HTTP         HTTPConfig         `yaml:"http"`
	Ledger       LedgerConfig       `yaml:"ledger"`
	GiftCache    GiftCacheConfig    `yaml:"gift_cache"`
	Subscription SubscriptionConfig `yaml:"subscription"`
	Payout       PayoutConfig       `yaml:"payout"`
	Notify       NotifyConfig       `yaml:"notify"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b, dev)
}

// Parse decodes YAML bytes, applies defaults and validates.
func Parse(b []byte, dev bool) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	cfg.Runtime.Dev = dev
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	c.App.Environment = strings.ToLower(strings.TrimSpace(c.App.Environment))
	if c.App.Environment == "" {
		c.App.Environment = EnvDevelopment
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Database.MaxConns <= 0 {
		c.Database.MaxConns = 10
	}
	c.Redis.TTL = normalizeTTL(c.Redis.TTL)

	if c.HTTP.Port <= 0 {
		c.HTTP.Port = 8080
	}
	if c.HTTP.RequestTimeout <= 0 {
		c.HTTP.RequestTimeout = 15 * time.Second
	}
	if c.HTTP.RateLimit <= 0 {
		c.HTTP.RateLimit = 30
	}
	if c.HTTP.RateWindow <= 0 {
		c.HTTP.RateWindow = time.Minute
	}

	if c.Ledger.ConflictRetries <= 0 {
		c.Ledger.ConflictRetries = 3
	}
	if c.GiftCache.Size <= 0 {
		c.GiftCache.Size = 512
	}
	if c.GiftCache.TTL <= 0 {
		c.GiftCache.TTL = 5 * time.Minute
	}

	s := &c.Subscription
	if s.PeriodDays <= 0 {
		s.PeriodDays = 30
	}
	if s.RenewalBatchSize <= 0 {
		s.RenewalBatchSize = 10
	}
	if s.MaxFailedPayments <= 0 {
		s.MaxFailedPayments = 3
	}
	if s.RetryInterval <= 0 {
		s.RetryInterval = 24 * time.Hour
	}
	if s.DefaultTierPrice <= 0 {
		s.DefaultTierPrice = 50
	}
	if s.RenewalInterval <= 0 {
		s.RenewalInterval = time.Hour
	}

	p := &c.Payout
	p.Provider = strings.ToLower(strings.TrimSpace(p.Provider))
	if p.Provider == "" {
		p.Provider = "mock"
	}
	if p.SettlementCurrency == "" {
		p.SettlementCurrency = "USD"
	}
	if p.CoinToMinorRate <= 0 {
		p.CoinToMinorRate = 1
	}
	if p.MinPayoutCoins <= 0 {
		p.MinPayoutCoins = 100
	}
	if p.DefaultMethod == "" {
		p.DefaultMethod = "paypal"
	}
	if p.SyncStaleAfter <= 0 {
		p.SyncStaleAfter = 5 * time.Minute
	}
	if p.ReconcileInterval <= 0 {
		p.ReconcileInterval = 10 * time.Minute
	}
	if p.ReconcileOlderThan <= 0 {
		p.ReconcileOlderThan = 15 * time.Minute
	}
	if p.Timeout <= 0 {
		p.Timeout = 10 * time.Second
	}
}

func (c *Config) validate() error {
	switch c.App.Environment {
	case EnvDevelopment, EnvStaging, EnvProduction:
	default:
		return fmt.Errorf("app.environment %q is not one of development|staging|production", c.App.Environment)
	}
	if c.Database.URL == "" {
		return errors.New("database.url is required")
	}
	if c.HTTP.JWTSecret == "" {
		return errors.New("http.jwt_secret is required")
	}
	switch c.Payout.Provider {
	case "mock":
	case "http":
		if c.Payout.BaseURL == "" || c.Payout.APIKey == "" {
			return errors.New("payout.base_url and payout.api_key are required for the http provider")
		}
	default:
		return fmt.Errorf("payout.provider %q is not one of http|mock", c.Payout.Provider)
	}
	if c.Payout.WebhookSecret == "" {
		return errors.New("payout.webhook_secret is required")
	}
	if c.Notify.Telegram.Token != "" && c.Notify.Telegram.OpsChatID == 0 {
		return errors.New("notify.telegram.ops_chat_id is required when a token is set")
	}
	return nil
}

// EnvVar overrides app.environment at runtime.
const EnvVar = "APP_ENV"

// IsProduction reports whether mock providers must be refused.
func (c *Config) IsProduction() bool { return c.CurrentEnvironment() == EnvProduction }

// CurrentEnvironment reads APP_ENV on every call and falls back to the loaded
// app.environment.
func (c *Config) CurrentEnvironment() string {
	if v := strings.ToLower(strings.TrimSpace(os.Getenv(EnvVar))); v != "" {
		return v
	}
	return c.App.Environment
}

// RedisEnabled reports whether redis-backed locking and rate limiting are configured.
func (c *Config) RedisEnabled() bool { return c.Redis.URL != "" }

func normalizeTTL(d time.Duration) time.Duration {
	if d <= 0 {
		return time.Hour
	}
	return d
}
