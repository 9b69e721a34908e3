package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/tunaaoguzhann/secure-delivery/core"
)

// CookieName is the cookie checked when no Authorization header is sent.
const CookieName = "session"

type identityKey struct{}

func WithIdentity(ctx context.Context, id core.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

func IdentityFrom(ctx context.Context) (core.Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(core.Identity)
	return id, ok
}

// ContextSessions reads the identity that Middleware attached to the
// request context.
type ContextSessions struct{}

func (ContextSessions) CurrentUser(ctx context.Context) (core.Identity, bool) {
	return IdentityFrom(ctx)
}

var _ core.SessionProvider = ContextSessions{}

// Middleware resolves the session, if any, and attaches it to the
// request. It never rejects: whether a session is required is decided by
// the handler.
func Middleware(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := tokenFromRequest(r)
			if raw != "" {
				if id, err := ParseToken(raw, secret); err == nil {
					r = r.WithContext(WithIdentity(r.Context(), id))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func tokenFromRequest(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	if c, err := r.Cookie(CookieName); err == nil {
		return c.Value
	}
	return ""
}
