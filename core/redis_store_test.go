package core

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMiniredis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { c.Close() })
	return mr, c
}

func unreachableRedis(t *testing.T) *redis.Client {
	t.Helper()
	c := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { c.Close() })
	return c
}

func TestRedisStore_Keys(t *testing.T) {
	s := NewRedisStore(nil, "")
	assert.Equal(t, "delivery-redemptions:TXN_1|hist_caie_s1", s.key("TXN_1", "hist_caie_s1"))

	s = NewRedisStore(nil, "app:redemptions:")
	assert.Equal(t, "app:redemptions:TXN_1|r", s.key("TXN_1", "r"))
}

func TestRedisStore_RecordUntilLimit(t *testing.T) {
	mr, client := newMiniredis(t)
	s := NewRedisStore(client, "")
	ctx := context.Background()
	at := time.UnixMilli(1_700_000_000_000).UTC()

	for i := 1; i <= 2; i++ {
		n, err := s.Record(ctx, Redemption{ID: "r" + strconv.Itoa(i), TransactionID: "TXN_1", ResourceID: "hist_caie_s1", RequesterID: "buyer@example.com", At: at}, 2, time.Hour)
		require.NoError(t, err)
		assert.Equal(t, i, n)
	}

	n, err := s.Record(ctx, Redemption{ID: "r3", TransactionID: "TXN_1", ResourceID: "hist_caie_s1"}, 2, time.Hour)
	assert.ErrorIs(t, err, ErrRedemptionLimit)
	assert.Equal(t, 2, n)

	key := s.key("TXN_1", "hist_caie_s1")
	assert.Equal(t, time.Hour, mr.TTL(key))

	got, err := s.List(ctx, "TXN_1", "hist_caie_s1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "r1", got[0].ID)
	assert.Equal(t, "buyer@example.com", got[1].RequesterID)
	assert.True(t, at.Equal(got[0].At))

	n, err = s.Record(ctx, Redemption{ID: "x", TransactionID: "TXN_2", ResourceID: "hist_caie_s1"}, 2, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "other purchases have their own log")
}

func TestRedisStore_RetentionExpiresLog(t *testing.T) {
	mr, client := newMiniredis(t)
	s := NewRedisStore(client, "")
	ctx := context.Background()
	r := Redemption{TransactionID: "TXN_1", ResourceID: "hist_caie_s1"}

	_, err := s.Record(ctx, r, 1, time.Minute)
	require.NoError(t, err)
	_, err = s.Record(ctx, r, 1, time.Minute)
	require.ErrorIs(t, err, ErrRedemptionLimit)

	mr.FastForward(time.Minute + time.Second)

	n, err := s.Record(ctx, r, 1, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRedisStore_Unlimited(t *testing.T) {
	mr, client := newMiniredis(t)
	s := NewRedisStore(client, "")
	ctx := context.Background()
	r := Redemption{TransactionID: "TXN_1", ResourceID: "hist_caie_s1"}

	for i := 0; i < 5; i++ {
		_, err := s.Record(ctx, r, 0, 0)
		require.NoError(t, err)
	}
	assert.Equal(t, time.Duration(0), mr.TTL(s.key("TXN_1", "hist_caie_s1")), "no retention means no expiry")

	got, err := s.List(ctx, "TXN_1", "hist_caie_s1")
	require.NoError(t, err)
	assert.Len(t, got, 5)
}

func TestRedisStore_ListEmpty(t *testing.T) {
	_, client := newMiniredis(t)
	got, err := NewRedisStore(client, "").List(context.Background(), "TXN_9", "r")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRedisRateLimiter_Window(t *testing.T) {
	mr, client := newMiniredis(t)
	rl := NewRedisRateLimiter(client, "")
	ctx := context.Background()

	require.NoError(t, rl.Allow(ctx, "a", 2, time.Minute))
	require.NoError(t, rl.Allow(ctx, "a", 2, time.Minute))
	assert.ErrorIs(t, rl.Allow(ctx, "a", 2, time.Minute), ErrRateLimitExceeded)
	assert.NoError(t, rl.Allow(ctx, "b", 2, time.Minute))
	assert.Equal(t, time.Minute, mr.TTL("delivery-rate:a"))

	mr.FastForward(time.Minute + time.Second)
	assert.NoError(t, rl.Allow(ctx, "a", 2, time.Minute))
}

func TestRedisRateLimiter_RejectsNonPositiveWindow(t *testing.T) {
	_, client := newMiniredis(t)
	rl := NewRedisRateLimiter(client, "")
	assert.ErrorIs(t, rl.Allow(context.Background(), "a", 2, -time.Hour), ErrInvalidRateWindow)
}

func TestRedisStore_BackendDown(t *testing.T) {
	s := NewRedisStore(unreachableRedis(t), "")
	ctx := context.Background()

	n, err := s.Record(ctx, Redemption{TransactionID: "TXN_1", ResourceID: "r"}, 5, time.Hour)
	require.Error(t, err)
	assert.Zero(t, n)
	assert.NotErrorIs(t, err, ErrRedemptionLimit)

	_, err = s.List(ctx, "TXN_1", "r")
	assert.Error(t, err)
}

func TestRedisRateLimiter_BackendDown(t *testing.T) {
	l := NewRedisRateLimiter(unreachableRedis(t), "")
	err := l.Allow(context.Background(), "buyer@example.com", 3, time.Minute)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrRateLimitExceeded)
	assert.Contains(t, err.Error(), "rate limit")
}
