package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tunaaoguzhann/secure-delivery/core"
	"github.com/tunaaoguzhann/secure-delivery/internal/auth"
)

const (
	envSigningSecret = "SECURE_DELIVERY_SECRET"
	envSessionSecret = "JWT_SECRET"
)

type rootFlags struct {
	secret        string
	sessionSecret string
}

func newRootCmd(getenv func(string) string) *cobra.Command {
	f := &rootFlags{}
	root := &cobra.Command{
		Use:           "deliveryctl",
		Short:         "Mint and verify secure delivery links",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			if f.secret == "" {
				f.secret = getenv(envSigningSecret)
			}
			if f.sessionSecret == "" {
				f.sessionSecret = getenv(envSessionSecret)
			}
		},
	}
	root.PersistentFlags().StringVar(&f.secret, "secret", "", "link signing secret (default $"+envSigningSecret+")")
	root.PersistentFlags().StringVar(&f.sessionSecret, "session-secret", "", "session JWT secret (default $"+envSessionSecret+")")

	root.AddCommand(newMintCmd(f), newVerifyCmd(f), newSessionCmd(f))
	return root
}

func newMintCmd(f *rootFlags) *cobra.Command {
	var (
		resource  string
		requester string
		txn       string
		ttl       time.Duration
	)
	cmd := &cobra.Command{
		Use:   "mint",
		Short: "Mint a download link for a requester",
		RunE: func(cmd *cobra.Command, _ []string) error {
			codec, err := core.NewCodec(f.secret, nil)
			if err != nil {
				return err
			}
			tok, err := codec.Mint(resource, requester, ttl)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "url:     %s\n", core.EncodeDownloadURL(tok, txn))
			fmt.Fprintf(out, "token:   %s\n", tok.Signature)
			fmt.Fprintf(out, "expires: %d (%s)\n", tok.ExpiresAt, tok.Expiry().UTC().Format(time.RFC3339))
			return nil
		},
	}
	cmd.Flags().StringVar(&resource, "resource", "", "resource id")
	cmd.Flags().StringVar(&requester, "requester", "", "requester id, usually the buyer's email")
	cmd.Flags().StringVar(&txn, "txn", "", "transaction id carried in the link")
	cmd.Flags().DurationVar(&ttl, "ttl", core.DefaultTokenTTL, "link lifetime")
	_ = cmd.MarkFlagRequired("resource")
	_ = cmd.MarkFlagRequired("requester")
	return cmd
}

var errInvalidLink = errors.New("link rejected")

func newVerifyCmd(f *rootFlags) *cobra.Command {
	var requester string
	cmd := &cobra.Command{
		Use:   "verify <download-url>",
		Short: "Check a download link against a requester",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			codec, err := core.NewCodec(f.secret, nil)
			if err != nil {
				return err
			}
			p, err := core.DecodeDownloadURL(args[0])
			if err != nil {
				return err
			}
			exp, err := core.ParseExpires(p.Expires)
			if err != nil {
				return err
			}
			if err := codec.Check(p.ResourceID, requester, exp, p.Token); err != nil {
				return fmt.Errorf("%w: %v", errInvalidLink, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "valid: resource=%s requester=%s expires=%s\n",
				p.ResourceID, requester, time.UnixMilli(exp).UTC().Format(time.RFC3339))
			return nil
		},
	}
	cmd.Flags().StringVar(&requester, "requester", "", "requester id the link was minted for")
	_ = cmd.MarkFlagRequired("requester")
	return cmd
}

func newSessionCmd(f *rootFlags) *cobra.Command {
	var (
		sub      string
		email    string
		validity time.Duration
	)
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Issue a session token for local testing",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if f.sessionSecret == "" {
				return fmt.Errorf("session secret is required (--session-secret or $%s)", envSessionSecret)
			}
			raw, err := auth.GenerateToken(sub, email, []byte(f.sessionSecret), validity)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), raw)
			return nil
		},
	}
	cmd.Flags().StringVar(&sub, "sub", "", "subject (user id)")
	cmd.Flags().StringVar(&email, "email", "", "verified email")
	cmd.Flags().DurationVar(&validity, "ttl", time.Hour, "session lifetime")
	_ = cmd.MarkFlagRequired("sub")
	return cmd
}
