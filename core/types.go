package core

import (
	"errors"
	"fmt"
	"time"
)

// DeliveryToken binds a resource, a requester and an expiry instant.
// ExpiresAt is milliseconds since the Unix epoch.
type DeliveryToken struct {
	ResourceID  string `json:"resource_id"`
	RequesterID string `json:"requester_id"`
	ExpiresAt   int64  `json:"expires_at"`
	Signature   string `json:"signature"`
}

// Expiry returns ExpiresAt as a time.Time.
func (t DeliveryToken) Expiry() time.Time {
	return time.UnixMilli(t.ExpiresAt)
}

// ResourceRecord maps a product id to where its bytes actually live and
// what it costs. PriceCents of zero means the resource is not for sale.
type ResourceRecord struct {
	ResourceID     string `json:"id" yaml:"id"`
	Title          string `json:"title,omitempty" yaml:"title"`
	DeliveryTarget string `json:"target" yaml:"target"`
	PriceCents     int64  `json:"price_cents,omitempty" yaml:"price_cents"`
	Currency       string `json:"currency,omitempty" yaml:"currency"`
}

// PurchaseClaim is what a caller presents to prove it paid for a resource.
// RequesterID is empty when the caller has no session.
type PurchaseClaim struct {
	ResourceID    string `json:"resource_id"`
	TransactionID string `json:"transaction_id"`
	RequesterID   string `json:"requester_id"`
}

// Identity is the authenticated requester as reported by the session layer.
type Identity struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

// RequesterID is the value bound into delivery tokens: the email when the
// identity provider supplied one, the subject otherwise.
func (i Identity) RequesterID() string {
	if i.Email != "" {
		return i.Email
	}
	return i.UserID
}

// Redemption is one successful pass through the delivery gate.
type Redemption struct {
	ID            string    `json:"id"`
	TransactionID string    `json:"transaction_id"`
	ResourceID    string    `json:"resource_id"`
	RequesterID   string    `json:"requester_id"`
	At            time.Time `json:"at"`
}

// Error kinds. Every error returned by the service matches at most one of
// these through errors.Is; anything else is an internal failure.
var (
	ErrUnauthorized      = errors.New("unauthorized")
	ErrBadRequest        = errors.New("bad request")
	ErrForbidden         = errors.New("forbidden")
	ErrNotFound          = errors.New("not found")
	ErrGone              = errors.New("gone")
	ErrConflict          = errors.New("conflict")
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
)

var (
	ErrMissingFields      = fmt.Errorf("%w: missing required fields", ErrBadRequest)
	ErrMissingTransaction = fmt.Errorf("%w: transaction id is required", ErrBadRequest)
	ErrMissingToken       = fmt.Errorf("%w: token and expires are required", ErrBadRequest)
	ErrBadExpiry          = fmt.Errorf("%w: malformed expires", ErrBadRequest)
	ErrPurchaseRejected   = fmt.Errorf("%w: invalid purchase", ErrForbidden)
	ErrBadSignature       = fmt.Errorf("%w: signature mismatch", ErrForbidden)
	ErrUnknownResource    = fmt.Errorf("%w: product not found", ErrNotFound)
	ErrExpired            = fmt.Errorf("%w: token expired", ErrGone)
	ErrRedemptionLimit    = fmt.Errorf("%w: download limit reached", ErrConflict)
)

var (
	ErrMissingSecret     = errors.New("signing secret is required")
	ErrInvalidTTL        = errors.New("ttl must not be negative")
	ErrInvalidRateWindow = errors.New("rate window must be positive")
)
