package core

import (
	"net/url"
	"strconv"
	"strings"
)

// DownloadPath is the gate route prefix embedded into issued links.
const DownloadPath = "/api/download/"

// EncodeDownloadURL renders the link handed back by the issuer. The
// transaction id travels with the link because the gate re-checks it.
func EncodeDownloadURL(t DeliveryToken, transactionID string) string {
	q := url.Values{}
	q.Set("token", t.Signature)
	q.Set("expires", strconv.FormatInt(t.ExpiresAt, 10))
	if transactionID != "" {
		q.Set("txn", transactionID)
	}
	return DownloadPath + url.PathEscape(t.ResourceID) + "?" + q.Encode()
}

// DownloadParams is what a gate request carries besides the session.
type DownloadParams struct {
	ResourceID    string
	TransactionID string
	Token         string
	Expires       string
}

// DecodeDownloadURL is the inverse of EncodeDownloadURL. It accepts both
// a bare path and an absolute URL.
func DecodeDownloadURL(raw string) (DownloadParams, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return DownloadParams{}, ErrBadRequest
	}
	if !strings.HasPrefix(u.Path, DownloadPath) {
		return DownloadParams{}, ErrBadRequest
	}
	id := strings.TrimPrefix(u.Path, DownloadPath)
	if id == "" || strings.Contains(id, "/") {
		return DownloadParams{}, ErrBadRequest
	}
	q := u.Query()
	return DownloadParams{
		ResourceID:    id,
		TransactionID: q.Get("txn"),
		Token:         q.Get("token"),
		Expires:       q.Get("expires"),
	}, nil
}

func ParseExpires(raw string) (int64, error) {
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, ErrBadExpiry
	}
	return v, nil
}
