// Package config assembles the service configuration from defaults, an
// optional YAML file, the environment and command-line flags, in that
// order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/tunaaoguzhann/secure-delivery/core"
)

// Config holds runtime settings.
//
// SigningSecret keys delivery tokens, SessionSecret verifies session JWTs
// and StripeSecretKey authenticates against the payment gateway. None of
// them has a default.
type Config struct {
	Addr                string                `yaml:"addr"`
	SigningSecret       string                `yaml:"signing_secret"`
	SessionSecret       string                `yaml:"session_secret"`
	StripeSecretKey     string                `yaml:"stripe_secret_key"`
	StripeWebhookSecret string                `yaml:"stripe_webhook_secret"`
	Currency            string                `yaml:"currency"`
	DatabaseDSN         string                `yaml:"database_dsn"`
	RedisAddr           string                `yaml:"redis_addr"`
	RedisKeyPrefix      string                `yaml:"redis_key_prefix"`
	TokenTTL            time.Duration         `yaml:"token_ttl"`
	MaxRedemptions      int                   `yaml:"max_redemptions"`
	RedemptionRetention time.Duration         `yaml:"redemption_retention"`
	IssueRateLimit      int                   `yaml:"issue_rate_limit"`
	IssueRateWindow     time.Duration         `yaml:"issue_rate_window"`
	UpstreamTimeout     time.Duration         `yaml:"upstream_timeout"`
	ShutdownTimeout     time.Duration         `yaml:"shutdown_timeout"`
	LogLevel            string                `yaml:"log_level"`
	S3                  S3Config              `yaml:"s3"`
	Resources           []core.ResourceRecord `yaml:"resources"`
}

// S3Config points at an S3-compatible store used for s3:// delivery
// targets. An empty Region disables presigning.
type S3Config struct {
	Region       string        `yaml:"region"`
	AccessKey    string        `yaml:"access_key"`
	SecretKey    string        `yaml:"secret_key"`
	BaseEndpoint string        `yaml:"base_endpoint"`
	Bucket       string        `yaml:"bucket"`
	UsePathStyle bool          `yaml:"use_path_style"`
	PresignTTL   time.Duration `yaml:"presign_ttl"`
}

func (c *Config) LoadDefaults() {
	c.Addr = ":8080"
	c.Currency = "usd"
	c.RedisKeyPrefix = "delivery:"
	c.TokenTTL = core.DefaultTokenTTL
	c.MaxRedemptions = 5
	c.RedemptionRetention = 30 * 24 * time.Hour
	c.IssueRateWindow = time.Hour
	c.UpstreamTimeout = 5 * time.Second
	c.ShutdownTimeout = 30 * time.Second
	c.LogLevel = "info"
	c.S3.PresignTTL = 5 * time.Minute
}

// Load builds and validates a Config. args excludes the program name.
func Load(args []string) (*Config, error) {
	return load(args, os.Getenv)
}

func load(args []string, getenv func(string) string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseFile(cfg, args); err != nil {
		return nil, err
	}
	if err := parseEnv(cfg, getenv); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var (
	ErrMissingSigningSecret = errors.New("SECURE_DELIVERY_SECRET is required")
	ErrMissingSessionSecret = errors.New("JWT_SECRET is required")
	ErrMissingStripeKey     = errors.New("STRIPE_SECRET_KEY is required")
)

// Validate reports every problem at once so a misconfigured deployment
// fails on the first start rather than one setting at a time.
func (c *Config) Validate() error {
	var errs []error
	if c.SigningSecret == "" {
		errs = append(errs, ErrMissingSigningSecret)
	}
	if c.SessionSecret == "" {
		errs = append(errs, ErrMissingSessionSecret)
	}
	if c.StripeSecretKey == "" {
		errs = append(errs, ErrMissingStripeKey)
	}
	if c.TokenTTL <= 0 {
		errs = append(errs, fmt.Errorf("token_ttl must be positive, got %s", c.TokenTTL))
	}
	if c.MaxRedemptions < 0 {
		errs = append(errs, fmt.Errorf("max_redemptions must not be negative"))
	}
	if c.IssueRateLimit < 0 {
		errs = append(errs, fmt.Errorf("issue_rate_limit must not be negative"))
	}
	if c.IssueRateLimit > 0 && c.IssueRateWindow <= 0 {
		errs = append(errs, fmt.Errorf("issue_rate_window must be positive when issue_rate_limit is set, got %s", c.IssueRateWindow))
	}
	if c.UpstreamTimeout <= 0 {
		errs = append(errs, fmt.Errorf("upstream_timeout must be positive"))
	}
	if c.S3.Region != "" && c.S3.PresignTTL <= 0 {
		errs = append(errs, fmt.Errorf("s3.presign_ttl must be positive"))
	}
	return errors.Join(errs...)
}

// Catalog builds the resource catalog from the configured resources, or
// the built-in one when none are configured. Priced resources without a
// currency are charged in Currency.
func (c *Config) Catalog() (*core.Catalog, error) {
	src := c.Resources
	if len(src) == 0 {
		src = core.DefaultCatalog()
	}
	records := make([]core.ResourceRecord, len(src))
	copy(records, src)
	for i := range records {
		if records[i].PriceCents > 0 && records[i].Currency == "" {
			records[i].Currency = c.Currency
		}
	}
	return core.NewCatalog(records)
}
