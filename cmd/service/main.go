package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tunaaoguzhann/secure-delivery/core"
	"github.com/tunaaoguzhann/secure-delivery/internal/auth"
	"github.com/tunaaoguzhann/secure-delivery/internal/config"
	"github.com/tunaaoguzhann/secure-delivery/internal/httpapi"
	"github.com/tunaaoguzhann/secure-delivery/internal/ledger"
	"github.com/tunaaoguzhann/secure-delivery/internal/logging"
	"github.com/tunaaoguzhann/secure-delivery/internal/payments"
	"github.com/tunaaoguzhann/secure-delivery/internal/storage"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}

	log, sync, err := logging.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(2)
	}
	defer sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error(ctx, "service stopped", "error", err)
		sync()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log logging.Logger) error {
	catalog, err := cfg.Catalog()
	if err != nil {
		return fmt.Errorf("catalog: %w", err)
	}
	log.Info(ctx, "catalog loaded", "resources", catalog.Len())

	var (
		verifier core.PurchaseVerifier = core.ApproveAll{}
		ledgerAPI httpapi.Ledger
	)
	if cfg.DatabaseDSN != "" {
		db, err := ledger.Open(ctx, cfg.DatabaseDSN)
		if err != nil {
			return fmt.Errorf("open ledger: %w", err)
		}
		defer closeDB(ctx, log, db)
		l := ledger.New(db, catalog)
		verifier, ledgerAPI = l, l
		log.Info(ctx, "purchase ledger ready")
	} else {
		log.Warn(ctx, "no database configured, every transaction id is accepted")
	}

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis ping %s: %w", cfg.RedisAddr, err)
		}
		defer rdb.Close()
		log.Info(ctx, "using redis", "addr", cfg.RedisAddr)
	} else {
		log.Info(ctx, "using in-memory redemption log")
	}

	locator, err := storage.NewLocator(ctx, storage.S3Options{
		Region:       cfg.S3.Region,
		AccessKey:    cfg.S3.AccessKey,
		SecretKey:    cfg.S3.SecretKey,
		BaseEndpoint: cfg.S3.BaseEndpoint,
		Bucket:       cfg.S3.Bucket,
		UsePathStyle: cfg.S3.UsePathStyle,
		PresignTTL:   cfg.S3.PresignTTL,
	})
	if err != nil {
		return fmt.Errorf("object store: %w", err)
	}

	svc, err := core.NewServiceWithOptions(core.Options{
		Secret:              cfg.SigningSecret,
		Catalog:             catalog,
		Verifier:            verifier,
		Sessions:            auth.ContextSessions{},
		Locator:             locator,
		Redis:               rdb,
		RedisKeyPrefix:      cfg.RedisKeyPrefix,
		TokenTTL:            cfg.TokenTTL,
		MaxRedemptions:      cfg.MaxRedemptions,
		RedemptionRetention: cfg.RedemptionRetention,
		UpstreamTimeout:     cfg.UpstreamTimeout,
		RateLimit:           cfg.IssueRateLimit,
		RateWindow:          cfg.IssueRateWindow,
	})
	if err != nil {
		return fmt.Errorf("init service: %w", err)
	}

	stripe := payments.NewStripe(payments.StripeOptions{
		SecretKey:     cfg.StripeSecretKey,
		WebhookSecret: cfg.StripeWebhookSecret,
		Timeout:       cfg.UpstreamTimeout,
	})
	opts := httpapi.Options{
		Service:       svc,
		Payments:      stripe,
		Ledger:        ledgerAPI,
		Currency:      cfg.Currency,
		SessionSecret: []byte(cfg.SessionSecret),
		Logger:        log,
	}
	if cfg.StripeWebhookSecret != "" {
		opts.Webhooks = stripe
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpapi.New(opts).Routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info(ctx, "listening", "addr", cfg.Addr, "token_ttl", svc.TokenTTL().String())
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info(context.Background(), "shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info(context.Background(), "shutdown complete")
	return nil
}

func closeDB(ctx context.Context, log logging.Logger, db *sql.DB) {
	if err := db.Close(); err != nil {
		log.Warn(ctx, "close database", "error", err)
	}
}
