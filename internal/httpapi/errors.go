package httpapi

import (
	"errors"
	"net/http"

	"github.com/tunaaoguzhann/secure-delivery/core"
)

// statusFor maps a service error onto its HTTP status and the message the
// checkout page shows. Unknown errors are internal.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, core.ErrUnauthorized):
		return http.StatusUnauthorized, "Unauthorized"
	case errors.Is(err, core.ErrMissingFields):
		return http.StatusBadRequest, "Missing required fields"
	case errors.Is(err, core.ErrMissingTransaction):
		return http.StatusBadRequest, "Transaction ID is required"
	case errors.Is(err, core.ErrBadRequest):
		return http.StatusBadRequest, "Invalid download link"
	case errors.Is(err, core.ErrPurchaseRejected):
		return http.StatusForbidden, "Invalid purchase"
	case errors.Is(err, core.ErrForbidden):
		return http.StatusForbidden, "Invalid download link"
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound, "Product not found"
	case errors.Is(err, core.ErrGone):
		return http.StatusGone, "Download link expired"
	case errors.Is(err, core.ErrConflict):
		return http.StatusConflict, "Download limit reached"
	case errors.Is(err, core.ErrRateLimitExceeded):
		return http.StatusTooManyRequests, "Too many requests"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

// outcome labels metrics with the error kind rather than the message.
func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	switch status, _ := statusFor(err); status {
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusGone:
		return "expired"
	case http.StatusConflict:
		return "limit_reached"
	case http.StatusTooManyRequests:
		return "rate_limited"
	default:
		return "internal"
	}
}
