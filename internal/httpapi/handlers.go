package httpapi

import (
	"errors"
	"io"
	"math"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tunaaoguzhann/secure-delivery/core"
	"github.com/tunaaoguzhann/secure-delivery/internal/auth"
	"github.com/tunaaoguzhann/secure-delivery/internal/ledger"
	"github.com/tunaaoguzhann/secure-delivery/internal/metrics"
	"github.com/tunaaoguzhann/secure-delivery/internal/payments"
)

type issueResponse struct {
	DownloadURL string `json:"downloadUrl"`
	Expires     int64  `json:"expires"`
}

func (s *Server) handleIssue(w http.ResponseWriter, r *http.Request) {
	var req core.IssueRequest
	if err := readJSON(w, r, &req); err != nil {
		// Authentication is judged before the body, so a malformed body
		// only surfaces as missing fields.
		req = core.IssueRequest{}
	}

	out, err := s.svc.Issue(r.Context(), req)
	metrics.LinksIssuedTotal.WithLabelValues(outcome(err)).Inc()
	if err != nil {
		status, msg := statusFor(err)
		s.logFailure(r, "issue failed", status, err, "product", req.ResourceID)
		writeError(w, status, msg)
		return
	}

	s.log.Info(r.Context(), "download link issued",
		"product", out.Token.ResourceID,
		"requester", out.Token.RequesterID,
		"expires", out.ExpiresAt,
	)
	writeJSON(w, http.StatusOK, issueResponse{DownloadURL: out.DownloadURL, Expires: out.ExpiresAt})
}

type downloadResponse struct {
	Success     bool   `json:"success"`
	DownloadURL string `json:"downloadUrl"`
	Message     string `json:"message"`
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params := core.DownloadParams{
		ResourceID:    chi.URLParam(r, "productId"),
		TransactionID: q.Get("txn"),
		Token:         q.Get("token"),
		Expires:       q.Get("expires"),
	}

	d, err := s.svc.Redeem(r.Context(), params)
	metrics.RedemptionsTotal.WithLabelValues(outcome(err)).Inc()
	if err != nil {
		status, msg := statusFor(err)
		if errors.Is(err, core.ErrPurchaseRejected) {
			msg = "Invalid transaction"
		}
		s.logFailure(r, "download refused", status, err, "product", params.ResourceID)
		http.Error(w, msg, status)
		return
	}

	s.log.Info(r.Context(), "download authorized",
		"product", d.ResourceID,
		"redemptions", d.Redemptions,
	)
	writeJSON(w, http.StatusOK, downloadResponse{
		Success:     true,
		DownloadURL: d.DownloadURL,
		Message:     "Download authorized",
	})
}

// paymentIntentRequest carries the amount the checkout page displayed.
// The catalog decides the charge; a zero amount accepts the catalog price.
type paymentIntentRequest struct {
	Amount    float64 `json:"amount"`
	ProjectID string  `json:"projectId"`
}

type paymentIntentResponse struct {
	ClientSecret string `json:"clientSecret"`
}

func (s *Server) handleCreatePaymentIntent(w http.ResponseWriter, r *http.Request) {
	var req paymentIntentRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.ProjectID == "" || req.Amount < 0 {
		writeError(w, http.StatusBadRequest, "Missing required fields")
		return
	}
	rec, ok := s.svc.Lookup(req.ProjectID)
	if !ok {
		metrics.PaymentIntentsTotal.WithLabelValues("unknown_product").Inc()
		writeError(w, http.StatusNotFound, "Product not found")
		return
	}
	if rec.PriceCents <= 0 {
		metrics.PaymentIntentsTotal.WithLabelValues("not_for_sale").Inc()
		writeError(w, http.StatusBadRequest, "Product is not for sale")
		return
	}
	cents := rec.PriceCents
	if req.Amount > 0 && int64(math.Round(req.Amount*100)) != cents {
		metrics.PaymentIntentsTotal.WithLabelValues("price_mismatch").Inc()
		s.log.Warn(r.Context(), "payment amount differs from catalog price",
			"project", req.ProjectID, "amount", req.Amount, "price_cents", cents)
		writeError(w, http.StatusBadRequest, "Amount does not match product price")
		return
	}
	currency := rec.Currency
	if currency == "" {
		currency = s.currency
	}

	var requester string
	if id, ok := auth.IdentityFrom(r.Context()); ok {
		requester = id.RequesterID()
	}

	pi, err := s.payments.CreateIntent(r.Context(), payments.Intent{
		AmountCents: cents,
		Currency:    currency,
		ProjectID:   rec.ResourceID,
		RequesterID: requester,
	})
	if err != nil {
		metrics.PaymentIntentsTotal.WithLabelValues("gateway_error").Inc()
		s.log.Error(r.Context(), "create payment intent", "project", req.ProjectID, "error", err)
		writeError(w, http.StatusInternalServerError, "Error creating payment intent")
		return
	}

	if s.ledger != nil {
		err := s.ledger.RecordIntent(r.Context(), ledger.Purchase{
			TransactionID: pi.ID,
			ResourceID:    rec.ResourceID,
			RequesterID:   requester,
			AmountCents:   cents,
			Currency:      currency,
		})
		if err != nil {
			metrics.PaymentIntentsTotal.WithLabelValues("ledger_error").Inc()
			s.log.Error(r.Context(), "record payment intent", "intent", pi.ID, "error", err)
			writeError(w, http.StatusInternalServerError, "Error creating payment intent")
			return
		}
	}

	metrics.PaymentIntentsTotal.WithLabelValues("ok").Inc()
	s.log.Info(r.Context(), "payment intent created", "intent", pi.ID, "project", req.ProjectID, "amount_cents", cents)
	writeJSON(w, http.StatusOK, paymentIntentResponse{ClientSecret: pi.ClientSecret})
}

const maxWebhookBody = 64 << 10

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	ev, err := s.webhooks.ParseWebhook(payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		s.log.Warn(r.Context(), "webhook rejected", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid signature")
		return
	}

	if ev.Type == payments.EventPaymentSucceeded && ev.PaymentIntentID != "" {
		err := s.ledger.MarkSucceeded(r.Context(), ev.PaymentIntentID)
		switch {
		case errors.Is(err, core.ErrNotFound):
			s.log.Warn(r.Context(), "payment for unknown intent", "intent", ev.PaymentIntentID)
		case err != nil:
			s.log.Error(r.Context(), "mark payment succeeded", "intent", ev.PaymentIntentID, "error", err)
			writeError(w, http.StatusInternalServerError, "Internal server error")
			return
		default:
			s.log.Info(r.Context(), "payment succeeded", "intent", ev.PaymentIntentID)
		}
	}
	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}

func (s *Server) logFailure(r *http.Request, msg string, status int, err error, args ...any) {
	args = append(args, "status", status, "error", err)
	if status >= http.StatusInternalServerError {
		s.log.Error(r.Context(), msg, args...)
		return
	}
	s.log.Warn(r.Context(), msg, args...)
}
