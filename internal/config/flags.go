package config

import (
	"flag"
	"io"

	"github.com/tunaaoguzhann/secure-delivery/internal/flagx"
)

// parseFlags applies command-line overrides.
//
//	-a string     listen address (":8080")
//	-d string     PostgreSQL DSN for the purchase ledger
//	-r string     Redis address for redemptions and rate limits
//	-t duration   delivery token lifetime
//	-m int        redemptions allowed per purchase (0 = unlimited)
//	-l string     log level
//	-rl int       link issuances per requester and window (0 = off)
//	-rw duration  issuance rate window
func parseFlags(cfg *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-a", "-d", "-r", "-t", "-m", "-l", "-rl", "-rw"})

	fs := flag.NewFlagSet("service", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.Addr, "a", cfg.Addr, "listen address")
	fs.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "database DSN")
	fs.StringVar(&cfg.RedisAddr, "r", cfg.RedisAddr, "redis address")
	fs.DurationVar(&cfg.TokenTTL, "t", cfg.TokenTTL, "delivery token lifetime")
	fs.IntVar(&cfg.MaxRedemptions, "m", cfg.MaxRedemptions, "redemptions per purchase")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")
	fs.IntVar(&cfg.IssueRateLimit, "rl", cfg.IssueRateLimit, "issuances per requester and window")
	fs.DurationVar(&cfg.IssueRateWindow, "rw", cfg.IssueRateWindow, "issuance rate window")

	return fs.Parse(args)
}
