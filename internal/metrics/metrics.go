// Package metrics holds the prometheus collectors for the service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)

	// LinksIssuedTotal counts issuer outcomes by result ("ok" or an error
	// kind).
	LinksIssuedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "delivery_links_issued_total",
			Help: "Download link issuance attempts by outcome",
		},
		[]string{"outcome"},
	)

	RedemptionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "delivery_redemptions_total",
			Help: "Download gate requests by outcome",
		},
		[]string{"outcome"},
	)

	PaymentIntentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "delivery_payment_intents_total",
			Help: "Payment intents created by outcome",
		},
		[]string{"outcome"},
	)
)

// Registry holds every collector above. It is separate from the default
// registry so tests can build several servers in one process.
var Registry = prometheus.NewRegistry()

func init() {
	Registry.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		LinksIssuedTotal,
		RedemptionsTotal,
		PaymentIntentsTotal,
	)
}

// Instrument records count and latency per route pattern.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		HTTPRequestDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
		HTTPRequestsTotal.WithLabelValues(route, r.Method, strconv.Itoa(StatusOf(ww))).Inc()
	})
}

// StatusOf reports the status a wrapped handler answered with. A handler
// that wrote nothing answered 200.
func StatusOf(ww middleware.WrapResponseWriter) int {
	if s := ww.Status(); s != 0 {
		return s
	}
	return http.StatusOK
}
