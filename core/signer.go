package core

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"
)

// Codec mints and checks delivery tokens. It holds no state besides the
// secret, so one Codec is shared by every request.
type Codec struct {
	secret []byte
	now    func() time.Time
}

func NewCodec(secret string, now func() time.Time) (*Codec, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}
	if now == nil {
		now = time.Now
	}
	return &Codec{secret: []byte(secret), now: now}, nil
}

// Sign returns the hex HMAC-SHA256 of the canonical token fields.
func (c *Codec) Sign(resourceID, requesterID string, expiresAt int64) string {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write(canonical(resourceID, requesterID, expiresAt))
	return hex.EncodeToString(mac.Sum(nil))
}

func (c *Codec) Mint(resourceID, requesterID string, ttl time.Duration) (DeliveryToken, error) {
	if ttl < 0 {
		return DeliveryToken{}, ErrInvalidTTL
	}
	expiresAt := c.now().UnixMilli() + ttl.Milliseconds()
	return DeliveryToken{
		ResourceID:  resourceID,
		RequesterID: requesterID,
		ExpiresAt:   expiresAt,
		Signature:   c.Sign(resourceID, requesterID, expiresAt),
	}, nil
}

// Check reports why a claimed token is not acceptable. A token is still
// valid at exactly its expiry millisecond.
func (c *Codec) Check(resourceID, requesterID string, expiresAt int64, signature string) error {
	if c.now().UnixMilli() > expiresAt {
		return ErrExpired
	}
	expected := c.Sign(resourceID, requesterID, expiresAt)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return ErrBadSignature
	}
	return nil
}

func (c *Codec) Verify(resourceID, requesterID string, expiresAt int64, signature string) bool {
	return c.Check(resourceID, requesterID, expiresAt, signature) == nil
}

// canonical length-prefixes the string fields so "ab"+"c" and "a"+"bc"
// never sign the same bytes.
func canonical(resourceID, requesterID string, expiresAt int64) []byte {
	buf := make([]byte, 0, len(resourceID)+len(requesterID)+48)
	buf = strconv.AppendInt(buf, int64(len(resourceID)), 10)
	buf = append(buf, ':')
	buf = append(buf, resourceID...)
	buf = strconv.AppendInt(buf, int64(len(requesterID)), 10)
	buf = append(buf, ':')
	buf = append(buf, requesterID...)
	buf = strconv.AppendInt(buf, expiresAt, 10)
	return buf
}
