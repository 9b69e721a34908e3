package core

import "context"

// PurchaseVerifier decides whether a claim's transaction entitles its
// holder to the claimed resource. Real implementations look the
// transaction up in a ledger or at the payment processor and confirm the
// amount and resource match. A non-nil error means the answer is unknown,
// not that the purchase is invalid.
type PurchaseVerifier interface {
	Verify(ctx context.Context, claim PurchaseClaim) (bool, error)
}

// ApproveAll accepts every transaction. It stands in for the ledger in
// local development only.
type ApproveAll struct{}

func (ApproveAll) Verify(context.Context, PurchaseClaim) (bool, error) {
	return true, nil
}

// SessionProvider reports who is making the current request.
type SessionProvider interface {
	CurrentUser(ctx context.Context) (Identity, bool)
}

// Locator turns a resource's delivery target into the URL finally handed
// to the buyer, e.g. a presigned object-store link.
type Locator interface {
	Locate(ctx context.Context, r ResourceRecord) (string, error)
}

// DirectLocator discloses the delivery target as is.
type DirectLocator struct{}

func (DirectLocator) Locate(_ context.Context, r ResourceRecord) (string, error) {
	return r.DeliveryTarget, nil
}
