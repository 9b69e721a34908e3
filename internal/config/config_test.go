package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tunaaoguzhann/secure-delivery/core"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

var requiredEnv = map[string]string{
	"SECURE_DELIVERY_SECRET": "sign",
	"JWT_SECRET":             "jwt",
	"STRIPE_SECRET_KEY":      "sk_test",
}

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	want := Config{
		Addr:                ":8080",
		Currency:            "usd",
		RedisKeyPrefix:      "delivery:",
		TokenTTL:            30 * time.Minute,
		MaxRedemptions:      5,
		RedemptionRetention: 30 * 24 * time.Hour,
		IssueRateWindow:     time.Hour,
		UpstreamTimeout:     5 * time.Second,
		ShutdownTimeout:     30 * time.Second,
		LogLevel:            "info",
		S3:                  S3Config{PresignTTL: 5 * time.Minute},
	}
	assert.Empty(t, cmp.Diff(want, c))
	assert.Empty(t, c.SigningSecret, "signing secret must not have a default")
}

func TestLoad_RequiresSecrets(t *testing.T) {
	_, err := load(nil, envMap(nil))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingSigningSecret)
	assert.ErrorIs(t, err, ErrMissingSessionSecret)
	assert.ErrorIs(t, err, ErrMissingStripeKey)

	_, err = load(nil, envMap(requiredEnv))
	assert.NoError(t, err)
}

func TestLoad_Env(t *testing.T) {
	env := map[string]string{
		"PORT":              "9000",
		"DATABASE_URL":      "postgres://x",
		"REDIS_ADDR":        "redis:6379",
		"TOKEN_TTL":         "10m",
		"MAX_REDEMPTIONS":   "0",
		"ISSUE_RATE_LIMIT":  "10",
		"ISSUE_RATE_WINDOW": "15m",
		"S3_REGION":         "us-east-1",
		"S3_BUCKET":         "notes",
	}
	for k, v := range requiredEnv {
		env[k] = v
	}
	cfg, err := load(nil, envMap(env))
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Addr)
	assert.Equal(t, "postgres://x", cfg.DatabaseDSN)
	assert.Equal(t, "redis:6379", cfg.RedisAddr)
	assert.Equal(t, 10*time.Minute, cfg.TokenTTL)
	assert.Equal(t, 0, cfg.MaxRedemptions)
	assert.Equal(t, 10, cfg.IssueRateLimit)
	assert.Equal(t, 15*time.Minute, cfg.IssueRateWindow)
	assert.Equal(t, "notes", cfg.S3.Bucket)
}

func TestLoad_BadEnv(t *testing.T) {
	for _, kv := range [][2]string{{"PORT", "eighty"}, {"TOKEN_TTL", "forever"}, {"MAX_REDEMPTIONS", "many"}, {"ISSUE_RATE_LIMIT", "lots"}, {"ISSUE_RATE_WINDOW", "a while"}} {
		env := map[string]string{kv[0]: kv[1]}
		for k, v := range requiredEnv {
			env[k] = v
		}
		_, err := load(nil, envMap(env))
		assert.Error(t, err, kv[0])
	}
}

func TestLoad_FilePrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "delivery.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
addr: ":7000"
signing_secret: from-file
session_secret: jwt-from-file
stripe_secret_key: sk_file
token_ttl: 15m
redis_addr: file-redis:6379
s3:
  region: eu-west-1
  bucket: vault
  presign_ttl: 2m
resources:
  - id: hist_caie_s1
    title: History
    target: s3://vault/notes/hist_caie_s1.pdf
    price_cents: 2499
    currency: usd
  - id: chem_caie_s1
    target: https://example.com/chem.pdf
`), 0o600))

	env := map[string]string{"SECURE_DELIVERY_SECRET": "from-env"}
	cfg, err := load([]string{"-c", path, "-r", "flag-redis:6379"}, envMap(env))
	require.NoError(t, err)

	assert.Equal(t, ":7000", cfg.Addr)
	assert.Equal(t, "from-env", cfg.SigningSecret, "env overrides file")
	assert.Equal(t, "jwt-from-file", cfg.SessionSecret)
	assert.Equal(t, "flag-redis:6379", cfg.RedisAddr, "flags override file")
	assert.Equal(t, 15*time.Minute, cfg.TokenTTL)
	assert.Equal(t, S3Config{Region: "eu-west-1", Bucket: "vault", PresignTTL: 2 * time.Minute}, cfg.S3)
	assert.Equal(t, 5, cfg.MaxRedemptions, "defaults survive a partial file")

	want := []core.ResourceRecord{
		{ResourceID: "hist_caie_s1", Title: "History", DeliveryTarget: "s3://vault/notes/hist_caie_s1.pdf", PriceCents: 2499, Currency: "usd"},
		{ResourceID: "chem_caie_s1", DeliveryTarget: "https://example.com/chem.pdf"},
	}
	assert.Empty(t, cmp.Diff(want, cfg.Resources))
}

func TestLoad_BadFile(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("addr: [unterminated"), 0o600))

	_, err := load([]string{"-config", bad}, envMap(requiredEnv))
	assert.Error(t, err)

	_, err = load([]string{"-c", filepath.Join(dir, "missing.yaml")}, envMap(requiredEnv))
	assert.Error(t, err)
}

func TestParseFlags(t *testing.T) {
	cfg := &Config{}
	cfg.LoadDefaults()
	err := parseFlags(cfg, []string{"-a", "127.0.0.1:9090", "-d", "db", "-t", "1m", "-m", "3", "-l", "debug", "-rl", "4", "-rw", "10m", "-unknown", "x"})
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9090", cfg.Addr)
	assert.Equal(t, "db", cfg.DatabaseDSN)
	assert.Equal(t, time.Minute, cfg.TokenTTL)
	assert.Equal(t, 3, cfg.MaxRedemptions)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 4, cfg.IssueRateLimit)
	assert.Equal(t, 10*time.Minute, cfg.IssueRateWindow)

	assert.Error(t, parseFlags(cfg, []string{"-t", "soon"}))

	require.NoError(t, parseFlags(cfg, []string{"-m", "-1", "-rw", "-1h"}))
	assert.Equal(t, -1, cfg.MaxRedemptions, "negative values reach the parser")
	assert.Equal(t, -time.Hour, cfg.IssueRateWindow)
	assert.Error(t, cfg.Validate())
}

func TestValidate_Durations(t *testing.T) {
	cfg := &Config{}
	cfg.LoadDefaults()
	cfg.SigningSecret, cfg.SessionSecret, cfg.StripeSecretKey = "a", "b", "c"
	require.NoError(t, cfg.Validate())

	cfg.TokenTTL = 0
	assert.Error(t, cfg.Validate())
	cfg.TokenTTL = time.Minute

	cfg.S3.Region = "us-east-1"
	cfg.S3.PresignTTL = 0
	assert.Error(t, cfg.Validate())
}

func TestValidate_RateWindow(t *testing.T) {
	cfg := &Config{}
	cfg.LoadDefaults()
	cfg.SigningSecret, cfg.SessionSecret, cfg.StripeSecretKey = "a", "b", "c"

	cfg.IssueRateLimit = 2
	cfg.IssueRateWindow = -time.Hour
	assert.ErrorContains(t, cfg.Validate(), "issue_rate_window")
	cfg.IssueRateWindow = 0
	assert.Error(t, cfg.Validate())

	cfg.IssueRateLimit = 0
	assert.NoError(t, cfg.Validate(), "window is ignored while limiting is off")

	cfg.IssueRateLimit = -1
	assert.Error(t, cfg.Validate())
}

func TestLoad_RejectsNegativeRateWindowFromEnv(t *testing.T) {
	env := map[string]string{"ISSUE_RATE_LIMIT": "2", "ISSUE_RATE_WINDOW": "-1h"}
	for k, v := range requiredEnv {
		env[k] = v
	}
	_, err := load(nil, envMap(env))
	assert.ErrorContains(t, err, "issue_rate_window")
}

func TestCatalog(t *testing.T) {
	cfg := &Config{}
	cfg.LoadDefaults()

	c, err := cfg.Catalog()
	require.NoError(t, err)
	rec, ok := c.Lookup("hist_caie_s1")
	require.True(t, ok)
	assert.Equal(t, int64(2499), rec.PriceCents)

	cfg.Currency = "EUR"
	cfg.Resources = []core.ResourceRecord{
		{ResourceID: "chem", DeliveryTarget: "https://x/chem", PriceCents: 1499},
		{ResourceID: "phys", DeliveryTarget: "https://x/phys", PriceCents: 1999, Currency: "usd"},
		{ResourceID: "free", DeliveryTarget: "https://x/free"},
	}
	c, err = cfg.Catalog()
	require.NoError(t, err)

	chem, _ := c.Lookup("chem")
	assert.Equal(t, "eur", chem.Currency)
	phys, _ := c.Lookup("phys")
	assert.Equal(t, "usd", phys.Currency)
	free, _ := c.Lookup("free")
	assert.Empty(t, free.Currency)
	_, ok = c.Lookup("hist_caie_s1")
	assert.False(t, ok)
	assert.Empty(t, cfg.Resources[0].Currency, "configured records are not mutated")
}
