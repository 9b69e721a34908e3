package core

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// recordScript appends ARGV[1] unless the list already holds ARGV[2]
// entries. A refused append returns the current length negated.
var recordScript = redis.NewScript(`
local n = redis.call("LLEN", KEYS[1])
local limit = tonumber(ARGV[2])
if limit > 0 and n >= limit then
  return -n
end
n = redis.call("RPUSH", KEYS[1], ARGV[1])
local ttl = tonumber(ARGV[3])
if ttl > 0 then
  redis.call("PEXPIRE", KEYS[1], ttl)
end
return n
`)

type RedisStore struct {
	client    *redis.Client
	keyPrefix string
}

func NewRedisStore(client *redis.Client, keyPrefix string) *RedisStore {
	if keyPrefix == "" {
		keyPrefix = "delivery-redemptions:"
	}
	return &RedisStore{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

func (s *RedisStore) key(transactionID, resourceID string) string {
	return fmt.Sprintf("%s%s", s.keyPrefix, redemptionKey(transactionID, resourceID))
}

func (s *RedisStore) Record(ctx context.Context, r Redemption, limit int, retention time.Duration) (int, error) {
	raw, err := json.Marshal(r)
	if err != nil {
		return 0, err
	}
	res, err := recordScript.Run(ctx, s.client,
		[]string{s.key(r.TransactionID, r.ResourceID)},
		string(raw), limit, retention.Milliseconds(),
	).Int()
	if err != nil {
		return 0, fmt.Errorf("record redemption: %w", err)
	}
	if res < 0 {
		return -res, ErrRedemptionLimit
	}
	return res, nil
}

func (s *RedisStore) List(ctx context.Context, transactionID, resourceID string) ([]Redemption, error) {
	vals, err := s.client.LRange(ctx, s.key(transactionID, resourceID), 0, -1).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	out := make([]Redemption, 0, len(vals))
	for _, v := range vals {
		var r Redemption
		if err := json.Unmarshal([]byte(v), &r); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}
