// Package payments talks to the payment gateway: it opens payment intents
// for the checkout page and authenticates the gateway's webhooks.
package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
)

type Intent struct {
	AmountCents int64
	Currency    string
	ProjectID   string
	RequesterID string
}

type PaymentIntent struct {
	ID           string
	ClientSecret string
}

type Gateway interface {
	CreateIntent(ctx context.Context, in Intent) (PaymentIntent, error)
}

// Event is the part of a webhook delivery the service acts on.
type Event struct {
	Type            string
	PaymentIntentID string
}

const EventPaymentSucceeded = "payment_intent.succeeded"

var ErrBadWebhook = errors.New("webhook signature verification failed")

type StripeOptions struct {
	SecretKey     string
	WebhookSecret string
	Timeout       time.Duration
	// BaseURL overrides the API endpoint; empty means Stripe's.
	BaseURL string
}

type Stripe struct {
	api           *client.API
	webhookSecret string
}

var _ Gateway = (*Stripe)(nil)

func NewStripe(opts StripeOptions) *Stripe {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	cfg := &stripe.BackendConfig{
		HTTPClient:        &http.Client{Timeout: timeout},
		MaxNetworkRetries: stripe.Int64(0),
	}
	if opts.BaseURL != "" {
		cfg.URL = stripe.String(opts.BaseURL)
	}
	backend := stripe.GetBackendWithConfig(stripe.APIBackend, cfg)
	return &Stripe{
		api:           client.New(opts.SecretKey, &stripe.Backends{API: backend, Connect: backend, Uploads: backend}),
		webhookSecret: opts.WebhookSecret,
	}
}

func (s *Stripe) CreateIntent(ctx context.Context, in Intent) (PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(in.AmountCents),
		Currency: stripe.String(in.Currency),
	}
	params.Context = ctx
	params.AddMetadata("projectId", in.ProjectID)
	if in.RequesterID != "" {
		params.AddMetadata("requester", in.RequesterID)
	}
	pi, err := s.api.PaymentIntents.New(params)
	if err != nil {
		return PaymentIntent{}, fmt.Errorf("create payment intent: %w", err)
	}
	return PaymentIntent{ID: pi.ID, ClientSecret: pi.ClientSecret}, nil
}

// ParseWebhook authenticates a webhook body against its Stripe-Signature
// header and extracts the payment intent it refers to, if any.
func (s *Stripe) ParseWebhook(payload []byte, signatureHeader string) (Event, error) {
	ev, err := webhook.ConstructEventWithOptions(payload, signatureHeader, s.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrBadWebhook, err)
	}
	out := Event{Type: string(ev.Type)}
	if out.Type != EventPaymentSucceeded || ev.Data == nil {
		return out, nil
	}
	var pi stripe.PaymentIntent
	if err := json.Unmarshal(ev.Data.Raw, &pi); err != nil {
		return Event{}, fmt.Errorf("decode payment intent: %w", err)
	}
	out.PaymentIntentID = pi.ID
	return out, nil
}
