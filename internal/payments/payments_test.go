package payments

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateIntent(t *testing.T) {
	var form map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/payment_intents", r.URL.Path)
		require.NoError(t, r.ParseForm())
		form = r.PostForm
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"pi_123","object":"payment_intent","amount":1500,"currency":"usd","client_secret":"pi_123_secret_abc"}`)
	}))
	defer srv.Close()

	s := NewStripe(StripeOptions{SecretKey: "sk_test_x", BaseURL: srv.URL})
	pi, err := s.CreateIntent(context.Background(), Intent{AmountCents: 1500, Currency: "usd", ProjectID: "hist_caie_s1"})
	require.NoError(t, err)

	assert.Equal(t, PaymentIntent{ID: "pi_123", ClientSecret: "pi_123_secret_abc"}, pi)
	assert.Equal(t, []string{"1500"}, form["amount"])
	assert.Equal(t, []string{"usd"}, form["currency"])
	assert.Equal(t, []string{"hist_caie_s1"}, form["metadata[projectId]"])
}

func TestCreateIntent_GatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":{"type":"invalid_request_error","message":"Amount must be at least 50 cents"}}`)
	}))
	defer srv.Close()

	s := NewStripe(StripeOptions{SecretKey: "sk_test_x", BaseURL: srv.URL})
	_, err := s.CreateIntent(context.Background(), Intent{AmountCents: 1, Currency: "usd"})
	assert.Error(t, err)
}

func sign(secret string, payload []byte, ts time.Time) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts.Unix(), payload)
	return fmt.Sprintf("t=%d,v1=%s", ts.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

func TestParseWebhook(t *testing.T) {
	s := NewStripe(StripeOptions{SecretKey: "sk_test_x", WebhookSecret: "whsec_test"})
	payload := []byte(`{"id":"evt_1","object":"event","type":"payment_intent.succeeded","api_version":"2020-08-27","data":{"object":{"id":"pi_123","object":"payment_intent"}}}`)

	ev, err := s.ParseWebhook(payload, sign("whsec_test", payload, time.Now()))
	require.NoError(t, err)
	assert.Equal(t, Event{Type: EventPaymentSucceeded, PaymentIntentID: "pi_123"}, ev)

	_, err = s.ParseWebhook(payload, sign("whsec_other", payload, time.Now()))
	assert.ErrorIs(t, err, ErrBadWebhook)

	_, err = s.ParseWebhook(payload, sign("whsec_test", payload, time.Now().Add(-time.Hour)))
	assert.ErrorIs(t, err, ErrBadWebhook)
}

func TestParseWebhook_OtherEvent(t *testing.T) {
	s := NewStripe(StripeOptions{SecretKey: "sk_test_x", WebhookSecret: "whsec_test"})
	payload := []byte(`{"id":"evt_2","object":"event","type":"charge.refunded","data":{"object":{"id":"ch_1","object":"charge"}}}`)

	ev, err := s.ParseWebhook(payload, sign("whsec_test", payload, time.Now()))
	require.NoError(t, err)
	assert.Equal(t, "charge.refunded", ev.Type)
	assert.Empty(t, ev.PaymentIntentID)
}
