package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/tunaaoguzhann/secure-delivery/core"
)

type staticSession core.Identity

func (s staticSession) CurrentUser(context.Context) (core.Identity, bool) {
	return core.Identity(s), true
}

var errNoSecret = errors.New("SECURE_DELIVERY_SECRET is required, e.g. SECURE_DELIVERY_SECRET=$(openssl rand -hex 32)")

func signingSecret(getenv func(string) string) (string, error) {
	secret := getenv("SECURE_DELIVERY_SECRET")
	if secret == "" {
		return "", errNoSecret
	}
	return secret, nil
}

func main() {
	secret, err := signingSecret(os.Getenv)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	svc, err := core.NewServiceWithOptions(core.Options{
		Secret:         secret,
		Sessions:       staticSession{UserID: "user-123", Email: "buyer@example.com"},
		MaxRedemptions: 1,
	})
	if err != nil {
		log.Fatalf("init service: %v", err)
	}
	ctx := context.Background()

	issued, err := svc.Issue(ctx, core.IssueRequest{ResourceID: "hist_caie_s1", TransactionID: "TXN_1"})
	if err != nil {
		log.Fatalf("issue: %v", err)
	}
	fmt.Printf("Issued link:\n  %s\n  expires at %s\n\n", issued.DownloadURL, issued.Token.Expiry())

	params, err := core.DecodeDownloadURL(issued.DownloadURL)
	if err != nil {
		log.Fatalf("decode: %v", err)
	}
	d, err := svc.Redeem(ctx, params)
	if err != nil {
		log.Fatalf("redeem: %v", err)
	}
	fmt.Printf("Redeemed %s (redemption #%d):\n  %s\n\n", d.ResourceID, d.Redemptions, d.DownloadURL)

	_, err = svc.Redeem(ctx, params)
	if errors.Is(err, core.ErrRedemptionLimit) {
		fmt.Println("Second redemption refused: download limit reached")
	} else {
		log.Fatalf("expected the redemption limit, got %v", err)
	}
}
