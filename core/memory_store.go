package core

import (
	"context"
	"sync"
	"time"
)

type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]*redemptionLog
}

type redemptionLog struct {
	entries []Redemption
	until   time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string]*redemptionLog),
	}
}

func (s *MemoryStore) Record(_ context.Context, r Redemption, limit int, retention time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := redemptionKey(r.TransactionID, r.ResourceID)
	l, ok := s.data[key]
	if !ok || (retention > 0 && r.At.After(l.until)) {
		l = &redemptionLog{}
		s.data[key] = l
	}
	if limit > 0 && len(l.entries) >= limit {
		return len(l.entries), ErrRedemptionLimit
	}
	l.entries = append(l.entries, r)
	if retention > 0 {
		l.until = r.At.Add(retention)
	}
	return len(l.entries), nil
}

func (s *MemoryStore) List(_ context.Context, transactionID, resourceID string) ([]Redemption, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.data[redemptionKey(transactionID, resourceID)]
	if !ok {
		return nil, nil
	}
	out := make([]Redemption, len(l.entries))
	copy(out, l.entries)
	return out, nil
}
