// Package ledger records purchases in PostgreSQL and answers whether a
// transaction entitles its holder to a resource.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tunaaoguzhann/secure-delivery/core"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusSucceeded Status = "succeeded"
)

type Purchase struct {
	TransactionID string
	ResourceID    string
	RequesterID   string
	AmountCents   int64
	Currency      string
	Status        Status
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Prices resolves the catalog entry a purchase is checked against.
// *core.Catalog satisfies it.
type Prices interface {
	Lookup(resourceID string) (core.ResourceRecord, bool)
}

type Ledger struct {
	db     DBTX
	prices Prices
}

func New(db DBTX, prices Prices) *Ledger {
	return &Ledger{db: db, prices: prices}
}

var _ core.PurchaseVerifier = (*Ledger)(nil)

// RecordIntent stores a pending purchase. Re-recording the same
// transaction refreshes its amount but never downgrades a paid row.
func (l *Ledger) RecordIntent(ctx context.Context, p Purchase) error {
	query := `
		INSERT INTO purchases (transaction_id, resource_id, requester_id, amount_cents, currency, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (transaction_id) DO UPDATE
		SET amount_cents = EXCLUDED.amount_cents, currency = EXCLUDED.currency, updated_at = now()
		WHERE purchases.status = 'pending'
	`
	if _, err := l.db.ExecContext(ctx, query,
		p.TransactionID, p.ResourceID, p.RequesterID, p.AmountCents, p.Currency, string(StatusPending),
	); err != nil {
		return fmt.Errorf("record intent: %w", err)
	}
	return nil
}

// MarkSucceeded flips a purchase to paid.
func (l *Ledger) MarkSucceeded(ctx context.Context, transactionID string) error {
	query := `
		UPDATE purchases
		SET status = $2, updated_at = now()
		WHERE transaction_id = $1
	`
	res, err := l.db.ExecContext(ctx, query, transactionID, string(StatusSucceeded))
	if err != nil {
		return fmt.Errorf("mark succeeded: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark succeeded: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (l *Ledger) Find(ctx context.Context, transactionID string) (*Purchase, error) {
	query := `
		SELECT transaction_id, resource_id, requester_id, amount_cents, currency, status, created_at, updated_at
		FROM purchases
		WHERE transaction_id = $1
	`
	p := &Purchase{}
	err := l.db.QueryRowContext(ctx, query, transactionID).Scan(
		&p.TransactionID, &p.ResourceID, &p.RequesterID, &p.AmountCents,
		&p.Currency, &p.Status, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrNotFound
		}
		return nil, fmt.Errorf("find purchase: %w", err)
	}
	return p, nil
}

// Verify approves a claim only when its transaction is paid, was for the
// claimed resource at the catalog price, and, when both sides name a
// buyer, was made by the claimant. Unknown transactions are a plain "no".
func (l *Ledger) Verify(ctx context.Context, claim core.PurchaseClaim) (bool, error) {
	rec, ok := l.prices.Lookup(claim.ResourceID)
	if !ok || rec.PriceCents <= 0 {
		return false, nil
	}
	p, err := l.Find(ctx, claim.TransactionID)
	if errors.Is(err, core.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	switch {
	case p.Status != StatusSucceeded:
		return false, nil
	case p.ResourceID != rec.ResourceID:
		return false, nil
	case p.AmountCents != rec.PriceCents || !strings.EqualFold(p.Currency, rec.Currency):
		return false, nil
	case p.RequesterID != "" && claim.RequesterID != "" && p.RequesterID != claim.RequesterID:
		return false, nil
	}
	return true, nil
}
