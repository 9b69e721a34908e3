package core

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_Limit(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	at := time.Unix(100, 0)
	r := Redemption{TransactionID: "T", ResourceID: "R", At: at}

	n, err := s.Record(ctx, r, 2, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	n, err = s.Record(ctx, r, 2, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = s.Record(ctx, r, 2, time.Hour)
	assert.ErrorIs(t, err, ErrRedemptionLimit)
	assert.Equal(t, 2, n)

	other := r
	other.ResourceID = "R2"
	n, err = s.Record(ctx, other, 2, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	list, err := s.List(ctx, "T", "R")
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestMemoryStore_RetentionResets(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	r := Redemption{TransactionID: "T", ResourceID: "R", At: time.Unix(100, 0)}

	_, err := s.Record(ctx, r, 1, time.Minute)
	require.NoError(t, err)

	r.At = r.At.Add(2 * time.Minute)
	n, err := s.Record(ctx, r, 1, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestMemoryStore_Unlimited(t *testing.T) {
	s := NewMemoryStore()
	r := Redemption{TransactionID: "T", ResourceID: "R", At: time.Unix(100, 0)}
	for i := 0; i < 10; i++ {
		_, err := s.Record(context.Background(), r, 0, 0)
		require.NoError(t, err)
	}
}

func TestMemoryStore_Concurrent(t *testing.T) {
	s := NewMemoryStore()
	r := Redemption{TransactionID: "T", ResourceID: "R", At: time.Unix(100, 0)}

	var wg sync.WaitGroup
	var mu sync.Mutex
	accepted := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Record(context.Background(), r, 5, time.Hour); err == nil {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 5, accepted)
}
