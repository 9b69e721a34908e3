package config

import (
	"fmt"
	"strconv"
	"time"
)

func parseEnv(cfg *Config, getenv func(string) string) error {
	str := func(key string, dst *string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	str("SECURE_DELIVERY_SECRET", &cfg.SigningSecret)
	str("JWT_SECRET", &cfg.SessionSecret)
	str("STRIPE_SECRET_KEY", &cfg.StripeSecretKey)
	str("STRIPE_WEBHOOK_SECRET", &cfg.StripeWebhookSecret)
	str("DATABASE_URL", &cfg.DatabaseDSN)
	str("REDIS_ADDR", &cfg.RedisAddr)
	str("LOG_LEVEL", &cfg.LogLevel)
	str("S3_REGION", &cfg.S3.Region)
	str("S3_ACCESS_KEY", &cfg.S3.AccessKey)
	str("S3_SECRET_KEY", &cfg.S3.SecretKey)
	str("S3_BASE_ENDPOINT", &cfg.S3.BaseEndpoint)
	str("S3_BUCKET", &cfg.S3.Bucket)

	if p := getenv("PORT"); p != "" {
		if _, err := strconv.Atoi(p); err != nil {
			return fmt.Errorf("PORT: %w", err)
		}
		cfg.Addr = ":" + p
	}
	if v := getenv("TOKEN_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("TOKEN_TTL: %w", err)
		}
		cfg.TokenTTL = d
	}
	if v := getenv("MAX_REDEMPTIONS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("MAX_REDEMPTIONS: %w", err)
		}
		cfg.MaxRedemptions = n
	}
	if v := getenv("ISSUE_RATE_LIMIT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("ISSUE_RATE_LIMIT: %w", err)
		}
		cfg.IssueRateLimit = n
	}
	if v := getenv("ISSUE_RATE_WINDOW"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("ISSUE_RATE_WINDOW: %w", err)
		}
		cfg.IssueRateWindow = d
	}
	return nil
}
