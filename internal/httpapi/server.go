// Package httpapi exposes the delivery service over HTTP.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tunaaoguzhann/secure-delivery/core"
	"github.com/tunaaoguzhann/secure-delivery/internal/auth"
	"github.com/tunaaoguzhann/secure-delivery/internal/ledger"
	"github.com/tunaaoguzhann/secure-delivery/internal/logging"
	"github.com/tunaaoguzhann/secure-delivery/internal/metrics"
	"github.com/tunaaoguzhann/secure-delivery/internal/payments"
)

// Ledger is the part of the purchase ledger the handlers write to.
type Ledger interface {
	RecordIntent(ctx context.Context, p ledger.Purchase) error
	MarkSucceeded(ctx context.Context, transactionID string) error
}

type WebhookParser interface {
	ParseWebhook(payload []byte, signatureHeader string) (payments.Event, error)
}

type Options struct {
	Service       *core.Service
	Payments      payments.Gateway
	Webhooks      WebhookParser
	Ledger        Ledger
	Currency      string
	SessionSecret []byte
	Logger        logging.Logger
}

type Server struct {
	svc           *core.Service
	payments      payments.Gateway
	webhooks      WebhookParser
	ledger        Ledger
	currency      string
	sessionSecret []byte
	log           logging.Logger
}

func New(opts Options) *Server {
	log := opts.Logger
	if log == nil {
		log = logging.NewNop()
	}
	currency := opts.Currency
	if currency == "" {
		currency = "usd"
	}
	return &Server{
		svc:           opts.Service,
		payments:      opts.Payments,
		webhooks:      opts.Webhooks,
		ledger:        opts.Ledger,
		currency:      currency,
		sessionSecret: opts.SessionSecret,
		log:           log,
	}
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Instrument)
	r.Use(auth.Middleware(s.sessionSecret))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	r.Route("/api", func(api chi.Router) {
		api.Post("/secure-delivery", s.handleIssue)
		api.Get("/download/{productId}", s.handleDownload)
		if s.payments != nil {
			api.Post("/create-payment-intent", s.handleCreatePaymentIntent)
		}
		if s.webhooks != nil && s.ledger != nil {
			api.Post("/payment-webhook", s.handleWebhook)
		}
	})
	return r
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := logging.WithRequestID(r.Context(), middleware.GetReqID(r.Context()))
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r.WithContext(ctx))

		s.log.Info(ctx, "request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", metrics.StatusOf(ww),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start).String(),
		)
	})
}
