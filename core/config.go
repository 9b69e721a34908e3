package core

import (
	"time"

	"github.com/redis/go-redis/v9"
)

// Options describes a Service in terms of deployment choices rather than
// ready-made collaborators. Redis is optional; without it the redemption
// log and rate limiter live in process memory. Catalog, when set, wins
// over Resources.
type Options struct {
	Secret              string
	Catalog             *Catalog
	Resources           []ResourceRecord
	Verifier            PurchaseVerifier
	Sessions            SessionProvider
	Locator             Locator
	Redis               *redis.Client
	RedisKeyPrefix      string
	Now                 func() time.Time
	TokenTTL            time.Duration
	MaxRedemptions      int
	RedemptionRetention time.Duration
	UpstreamTimeout     time.Duration
	RateLimit           int
	RateWindow          time.Duration
}

func NewServiceWithOptions(opts Options) (*Service, error) {
	codec, err := NewCodec(opts.Secret, opts.Now)
	if err != nil {
		return nil, err
	}
	if opts.RateLimit > 0 && opts.RateWindow < 0 {
		return nil, ErrInvalidRateWindow
	}
	catalog := opts.Catalog
	if catalog == nil {
		resources := opts.Resources
		if len(resources) == 0 {
			resources = DefaultCatalog()
		}
		if catalog, err = NewCatalog(resources); err != nil {
			return nil, err
		}
	}

	var store RedemptionStore
	var rateLimiter RateLimiter

	if opts.Redis != nil {
		prefix := opts.RedisKeyPrefix
		if prefix == "" {
			prefix = "delivery:"
		}
		store = NewRedisStore(opts.Redis, prefix+"redemptions:")
		if opts.RateLimit > 0 {
			rateLimiter = NewRedisRateLimiter(opts.Redis, prefix+"rate:")
		}
	} else {
		store = NewMemoryStore()
		if opts.RateLimit > 0 {
			rateLimiter = NewMemoryRateLimiter(opts.Now)
		}
	}

	rateWindow := opts.RateWindow
	if rateWindow == 0 && opts.RateLimit > 0 {
		rateWindow = 1 * time.Hour
	}

	verifier := opts.Verifier
	if verifier == nil {
		verifier = ApproveAll{}
	}

	return NewService(Config{
		Codec:               codec,
		Catalog:             catalog,
		Verifier:            verifier,
		Sessions:            opts.Sessions,
		Redemptions:         store,
		Locator:             opts.Locator,
		Now:                 opts.Now,
		TokenTTL:            opts.TokenTTL,
		MaxRedemptions:      opts.MaxRedemptions,
		RedemptionRetention: opts.RedemptionRetention,
		UpstreamTimeout:     opts.UpstreamTimeout,
		RateLimiter:         rateLimiter,
		RateLimit:           opts.RateLimit,
		RateWindow:          rateWindow,
	})
}
