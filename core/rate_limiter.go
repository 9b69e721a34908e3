package core

import (
	"context"
	"time"
)

// RateLimiter caps how many links a requester may be issued per window.
type RateLimiter interface {
	Allow(ctx context.Context, requesterID string, limit int, window time.Duration) error
}
