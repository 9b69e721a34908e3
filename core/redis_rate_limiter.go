package core

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var allowScript = redis.NewScript(`
local current = redis.call("GET", KEYS[1])
if current == false then
  redis.call("SET", KEYS[1], 1, "PX", ARGV[2])
  return 1
end
if tonumber(current) >= tonumber(ARGV[1]) then
  return 0
end
redis.call("INCR", KEYS[1])
return 1
`)

type RedisRateLimiter struct {
	client    *redis.Client
	keyPrefix string
}

func NewRedisRateLimiter(client *redis.Client, keyPrefix string) *RedisRateLimiter {
	if keyPrefix == "" {
		keyPrefix = "delivery-rate:"
	}
	return &RedisRateLimiter{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

func (r *RedisRateLimiter) Allow(ctx context.Context, requesterID string, limit int, window time.Duration) error {
	if window <= 0 {
		return ErrInvalidRateWindow
	}
	key := fmt.Sprintf("%s%s", r.keyPrefix, requesterID)
	result, err := allowScript.Run(ctx, r.client, []string{key}, limit, window.Milliseconds()).Int()
	if err != nil {
		return fmt.Errorf("rate limit: %w", err)
	}
	if result == 0 {
		return ErrRateLimitExceeded
	}
	return nil
}
