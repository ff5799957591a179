// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type LogConfig struct {
	Level    string `yaml:"level" env:"LOG_LEVEL"`   // trace|debug|info|warn|error
	Format   string `yaml:"format" env:"LOG_FORMAT"` // json|console
	Sampling bool   `yaml:"sampling"`                // enable sampling in prod
}

type HTTPConfig struct {
	Port            int           `yaml:"port" env:"HTTP_PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type AdminConfig struct {
	Username     string        `yaml:"username" env:"ADMIN_USERNAME"`
	PasswordHash string        `yaml:"password_hash" env:"ADMIN_PASSWORD_HASH"` // bcrypt
	JWTSecret    string        `yaml:"jwt_secret" env:"ADMIN_JWT_SECRET"`
	APIKey       string        `yaml:"api_key" env:"ADMIN_API_KEY"` // reseller bots, sent as X-API-Key
	SessionTTL   time.Duration `yaml:"session_ttl"`
}

type DatabaseConfig struct {
	URL      string `yaml:"url" env:"DATABASE_URL"`
	MaxConns int32  `yaml:"max_conns"`
}

type RedisConfig struct {
	URL      string        `yaml:"url" env:"REDIS_URL"`
	Password string        `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int           `yaml:"db"`
	LockTTL  time.Duration `yaml:"lock_ttl"`
}

type PanelConfig struct {
	Timeout     time.Duration `yaml:"timeout"`
	InsecureTLS bool          `yaml:"insecure_tls"`
	LoginLimit  int           `yaml:"login_limit"` // logins per server per window, 0 = unlimited
	LoginWindow time.Duration `yaml:"login_window"`
}

type ZarinPalConfig struct {
	MerchantID  string `yaml:"merchant_id" env:"ZARINPAL_MERCHANT_ID"`
	CallbackURL string `yaml:"callback_url"`
	Sandbox     bool   `yaml:"sandbox"`
	BaseURL     string `yaml:"base_url"` // overrides the sandbox/production host
}

type PaymentConfig struct {
	Provider string         `yaml:"provider"` // zarinpal | noop
	Currency string         `yaml:"currency"`
	ZarinPal ZarinPalConfig `yaml:"zarinpal"`
}

type LinksConfig struct {
	// FallbackBaseURL is used when a server has no subscription endpoint of its own.
	FallbackBaseURL  string `yaml:"fallback_base_url" env:"LINKS_FALLBACK_BASE_URL"`
	// PaymentReturnURL is the "back" link on the payment result page, e.g. the reseller bot.
	PaymentReturnURL string `yaml:"payment_return_url"`
}

type NotifyConfig struct {
	WebhookURL       string  `yaml:"webhook_url" env:"NOTIFY_WEBHOOK_URL"`
	WebhookSecret    string  `yaml:"webhook_secret" env:"NOTIFY_WEBHOOK_SECRET"`
	TelegramToken    string  `yaml:"telegram_token" env:"NOTIFY_TELEGRAM_TOKEN"`
	TelegramAdminIDs []int64 `yaml:"telegram_admin_ids" env:"NOTIFY_TELEGRAM_ADMIN_IDS" envSeparator:","`
	Workers          int     `yaml:"workers"`
}

type SchedulerConfig struct {
	SweepInterval     time.Duration `yaml:"sweep_interval"`
	SweepBatch        int           `yaml:"sweep_batch"`
	// ReconcileInterval 0 disables the payment reconciler.
	ReconcileInterval time.Duration `yaml:"reconcile_interval"`
	ReconcileAfter    time.Duration `yaml:"reconcile_after"` // order age before it is reconciled
}

type SecurityConfig struct {
	EncryptionKey string `yaml:"encryption_key" env:"ENCRYPTION_KEY"`
}

type Config struct {
	Log       LogConfig       `yaml:"log"`
	HTTP      HTTPConfig      `yaml:"http"`
	Admin     AdminConfig     `yaml:"admin"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Panel     PanelConfig     `yaml:"panel"`
	Payment   PaymentConfig   `yaml:"payment"`
	Links     LinksConfig     `yaml:"links"`
	Notify    NotifyConfig    `yaml:"notify"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Security  SecurityConfig  `yaml:"security"`

	Runtime RuntimeConfig `yaml:"-"`
}

// LoadConfig reads the YAML file at path, then applies .env and process
// environment overrides. A missing file is allowed when everything required
// comes from the environment.
func LoadConfig(path string, dev bool) (*Config, error) {
	var cfg Config
	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(b, &cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	// the .env file is optional
	_ = godotenv.Load()
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.HTTP.Port <= 0 {
		cfg.HTTP.Port = 8080
	}
	cfg.HTTP.ReadTimeout = orDefault(cfg.HTTP.ReadTimeout, 10*time.Second)
	cfg.HTTP.WriteTimeout = orDefault(cfg.HTTP.WriteTimeout, 30*time.Second)
	cfg.HTTP.RequestTimeout = orDefault(cfg.HTTP.RequestTimeout, 25*time.Second)
	cfg.HTTP.ShutdownTimeout = orDefault(cfg.HTTP.ShutdownTimeout, 15*time.Second)
	cfg.Admin.SessionTTL = orDefault(cfg.Admin.SessionTTL, 12*time.Hour)
	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = 10
	}
	cfg.Redis.LockTTL = orDefault(cfg.Redis.LockTTL, time.Minute)
	cfg.Panel.Timeout = orDefault(cfg.Panel.Timeout, 10*time.Second)
	cfg.Panel.LoginWindow = orDefault(cfg.Panel.LoginWindow, time.Minute)
	if cfg.Payment.Provider == "" {
		cfg.Payment.Provider = "noop"
	}
	if cfg.Payment.Currency == "" {
		cfg.Payment.Currency = "IRR"
	}
	if cfg.Notify.Workers <= 0 {
		cfg.Notify.Workers = 2
	}
	cfg.Scheduler.SweepInterval = orDefault(cfg.Scheduler.SweepInterval, 10*time.Minute)
	cfg.Scheduler.ReconcileAfter = orDefault(cfg.Scheduler.ReconcileAfter, time.Hour)
	if cfg.Scheduler.SweepBatch <= 0 {
		cfg.Scheduler.SweepBatch = 100
	}
}

// Validate performs minimal validation of required settings.
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return errors.New("database.url is required")
	}
	if n := len(c.Security.EncryptionKey); n != 16 && n != 24 && n != 32 {
		return errors.New("security.encryption_key must be 16, 24 or 32 bytes")
	}
	if c.Admin.JWTSecret == "" && c.Admin.APIKey == "" {
		return errors.New("admin.jwt_secret or admin.api_key is required")
	}
	if c.Payment.Provider == "zarinpal" && c.Payment.ZarinPal.MerchantID == "" {
		return errors.New("payment.zarinpal.merchant_id is required")
	}
	return nil
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}
