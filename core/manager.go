package core

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DefaultTokenTTL is how long an issued download link stays valid.
const DefaultTokenTTL = 30 * time.Minute

// Service issues download links and later exchanges them for the
// resource location.
type Service struct {
	codec           *Codec
	catalog         *Catalog
	verifier        PurchaseVerifier
	sessions        SessionProvider
	redemptions     RedemptionStore
	locator         Locator
	now             func() time.Time
	tokenTTL        time.Duration
	maxRedemptions  int
	retention       time.Duration
	upstreamTimeout time.Duration
	rateLimiter     RateLimiter
	rateLimit       int
	rateWindow      time.Duration
}

type Config struct {
	Codec       *Codec
	Catalog     *Catalog
	Verifier    PurchaseVerifier
	Sessions    SessionProvider
	Redemptions RedemptionStore
	Locator     Locator
	Now         func() time.Time
	TokenTTL    time.Duration
	// MaxRedemptions caps gate passes per (transaction, resource); 0 means
	// unlimited.
	MaxRedemptions      int
	RedemptionRetention time.Duration
	UpstreamTimeout     time.Duration
	RateLimiter         RateLimiter
	RateLimit           int
	RateWindow          time.Duration
}

func NewService(cfg Config) (*Service, error) {
	switch {
	case cfg.Codec == nil:
		return nil, fmt.Errorf("codec is required")
	case cfg.Catalog == nil:
		return nil, fmt.Errorf("catalog is required")
	case cfg.Verifier == nil:
		return nil, fmt.Errorf("purchase verifier is required")
	case cfg.Sessions == nil:
		return nil, fmt.Errorf("session provider is required")
	case cfg.Redemptions == nil:
		return nil, fmt.Errorf("redemption store is required")
	}
	if cfg.TokenTTL < 0 {
		return nil, ErrInvalidTTL
	}
	nowFn := cfg.Now
	if nowFn == nil {
		nowFn = time.Now
	}
	ttl := cfg.TokenTTL
	if ttl == 0 {
		ttl = DefaultTokenTTL
	}
	locator := cfg.Locator
	if locator == nil {
		locator = DirectLocator{}
	}
	return &Service{
		codec:           cfg.Codec,
		catalog:         cfg.Catalog,
		verifier:        cfg.Verifier,
		sessions:        cfg.Sessions,
		redemptions:     cfg.Redemptions,
		locator:         locator,
		now:             nowFn,
		tokenTTL:        ttl,
		maxRedemptions:  cfg.MaxRedemptions,
		retention:       cfg.RedemptionRetention,
		upstreamTimeout: cfg.UpstreamTimeout,
		rateLimiter:     cfg.RateLimiter,
		rateLimit:       cfg.RateLimit,
		rateWindow:      cfg.RateWindow,
	}, nil
}

type IssueRequest struct {
	ResourceID    string `json:"productId"`
	TransactionID string `json:"transactionId"`
}

type Issued struct {
	Token       DeliveryToken
	DownloadURL string
	ExpiresAt   int64
}

// Issue authenticates the caller, checks the purchase and mints a link.
// Steps run in a fixed order and the first failure ends the request.
func (s *Service) Issue(ctx context.Context, req IssueRequest) (Issued, error) {
	who, ok := s.sessions.CurrentUser(ctx)
	if !ok || who.RequesterID() == "" {
		return Issued{}, ErrUnauthorized
	}
	if req.ResourceID == "" || req.TransactionID == "" {
		return Issued{}, ErrMissingFields
	}
	if s.rateLimiter != nil && s.rateLimit > 0 {
		if err := s.rateLimiter.Allow(ctx, who.RequesterID(), s.rateLimit, s.rateWindow); err != nil {
			return Issued{}, err
		}
	}
	claim := PurchaseClaim{
		ResourceID:    req.ResourceID,
		TransactionID: req.TransactionID,
		RequesterID:   who.RequesterID(),
	}
	if err := s.verifyPurchase(ctx, claim); err != nil {
		return Issued{}, err
	}
	rec, ok := s.catalog.Lookup(req.ResourceID)
	if !ok {
		return Issued{}, ErrUnknownResource
	}

	token, err := s.codec.Mint(rec.ResourceID, who.RequesterID(), s.tokenTTL)
	if err != nil {
		return Issued{}, err
	}
	return Issued{
		Token:       token,
		DownloadURL: EncodeDownloadURL(token, req.TransactionID),
		ExpiresAt:   token.ExpiresAt,
	}, nil
}

type Delivery struct {
	ResourceID  string
	DownloadURL string
	// Redemptions counts gate passes for this purchase including this one.
	Redemptions int
}

// Redeem re-verifies everything the issuer checked, then the token itself,
// and only then discloses where the resource lives.
func (s *Service) Redeem(ctx context.Context, p DownloadParams) (Delivery, error) {
	if p.TransactionID == "" {
		return Delivery{}, ErrMissingTransaction
	}
	// The session is read up front so the verifier can bind the purchase
	// to its buyer, but a missing session is only reported after lookup.
	who, authed := s.sessions.CurrentUser(ctx)
	claim := PurchaseClaim{ResourceID: p.ResourceID, TransactionID: p.TransactionID}
	if authed {
		claim.RequesterID = who.RequesterID()
	}
	if err := s.verifyPurchase(ctx, claim); err != nil {
		return Delivery{}, err
	}
	rec, ok := s.catalog.Lookup(p.ResourceID)
	if !ok {
		return Delivery{}, ErrUnknownResource
	}
	if !authed || who.RequesterID() == "" {
		return Delivery{}, ErrUnauthorized
	}
	if p.Token == "" || p.Expires == "" {
		return Delivery{}, ErrMissingToken
	}
	expiresAt, err := ParseExpires(p.Expires)
	if err != nil {
		return Delivery{}, err
	}
	if err := s.codec.Check(rec.ResourceID, who.RequesterID(), expiresAt, p.Token); err != nil {
		return Delivery{}, err
	}

	uctx, cancel := s.upstream(ctx)
	defer cancel()

	target, err := s.locator.Locate(uctx, rec)
	if err != nil {
		return Delivery{}, fmt.Errorf("locate %s: %w", rec.ResourceID, err)
	}
	count, err := s.redemptions.Record(uctx, Redemption{
		ID:            uuid.NewString(),
		TransactionID: p.TransactionID,
		ResourceID:    rec.ResourceID,
		RequesterID:   who.RequesterID(),
		At:            s.now(),
	}, s.maxRedemptions, s.retention)
	if err != nil {
		return Delivery{}, err
	}
	return Delivery{
		ResourceID:  rec.ResourceID,
		DownloadURL: target,
		Redemptions: count,
	}, nil
}

// Redemptions lists the gate passes logged for a purchase.
func (s *Service) Redemptions(ctx context.Context, transactionID, resourceID string) ([]Redemption, error) {
	return s.redemptions.List(ctx, transactionID, resourceID)
}

func (s *Service) TokenTTL() time.Duration {
	return s.tokenTTL
}

// Lookup exposes the catalog so checkout can price a resource.
func (s *Service) Lookup(resourceID string) (ResourceRecord, bool) {
	return s.catalog.Lookup(resourceID)
}

func (s *Service) verifyPurchase(ctx context.Context, claim PurchaseClaim) error {
	ctx, cancel := s.upstream(ctx)
	defer cancel()
	ok, err := s.verifier.Verify(ctx, claim)
	if err != nil {
		return fmt.Errorf("verify purchase: %w", err)
	}
	if !ok {
		return ErrPurchaseRejected
	}
	return nil
}

func (s *Service) upstream(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.upstreamTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.upstreamTimeout)
}
