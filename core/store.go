package core

import (
	"context"
	"time"
)

// RedemptionStore logs gate passes per (transaction, resource) and refuses
// to log more than limit of them. Record returns the count including the
// new entry, or ErrRedemptionLimit without recording anything.
type RedemptionStore interface {
	Record(ctx context.Context, r Redemption, limit int, retention time.Duration) (int, error)
	List(ctx context.Context, transactionID, resourceID string) ([]Redemption, error)
}

func redemptionKey(transactionID, resourceID string) string {
	return transactionID + "|" + resourceID
}
