package core

import (
	"context"
	"sync"
	"time"
)

// MemoryRateLimiter is a fixed-window counter per requester.
type MemoryRateLimiter struct {
	mu      sync.Mutex
	now     func() time.Time
	windows map[string]*window
}

type window struct {
	count int
	end   time.Time
}

func NewMemoryRateLimiter(now func() time.Time) *MemoryRateLimiter {
	if now == nil {
		now = time.Now
	}
	return &MemoryRateLimiter{
		now:     now,
		windows: make(map[string]*window),
	}
}

func (r *MemoryRateLimiter) Allow(_ context.Context, requesterID string, limit int, win time.Duration) error {
	if win <= 0 {
		return ErrInvalidRateWindow
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	w, ok := r.windows[requesterID]
	if !ok || now.After(w.end) {
		r.windows[requesterID] = &window{count: 1, end: now.Add(win)}
		return nil
	}
	if w.count >= limit {
		return ErrRateLimitExceeded
	}
	w.count++
	return nil
}
