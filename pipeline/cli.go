package pipeline

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli"
)

const (
	FundingAddressFlagName = "funding-address"
	FundingSecretFlagName  = "funding-secret"
	MaxInFlightFlagName    = "max-in-flight"
	PollIntervalFlagName   = "poll-interval"
	StoreDSNFlagName       = "store-dsn"
	LedgerRPCURLFlagName   = "ledger-rpc-url"
	LedgerTimeoutFlagName  = "ledger-timeout"
)

// prefixEnvVar mirrors op-service.PrefixEnvVar: upper-cases name, joins it to
// envPrefix with an underscore.
func prefixEnvVar(envPrefix, name string) string {
	return strings.ToUpper(envPrefix) + "_" + strings.ToUpper(name)
}

// CLIFlags returns the pipeline's flag set, namespaced under envPrefix the
// way txmgr.CLIFlags namespaces its own.
func CLIFlags(envPrefix string) []cli.Flag {
	return []cli.Flag{
		cli.StringFlag{
			Name:   FundingAddressFlagName,
			Usage:  "Address of the account whose sequence number stream this driver owns",
			EnvVar: prefixEnvVar(envPrefix, "FUNDING_ADDRESS"),
		},
		cli.StringFlag{
			Name:   FundingSecretFlagName,
			Usage:  "Secret key used to sign transactions for the funding account. Never logged.",
			EnvVar: prefixEnvVar(envPrefix, "FUNDING_SECRET"),
		},
		cli.IntFlag{
			Name:   MaxInFlightFlagName,
			Usage:  "Maximum Signed+Submitted rows allowed at once",
			Value:  DefaultMaxInFlight,
			EnvVar: prefixEnvVar(envPrefix, "MAX_IN_FLIGHT"),
		},
		cli.DurationFlag{
			Name:   PollIntervalFlagName,
			Usage:  "Interval between driver ticks",
			Value:  time.Second,
			EnvVar: prefixEnvVar(envPrefix, "POLL_INTERVAL"),
		},
		cli.StringFlag{
			Name:   StoreDSNFlagName,
			Usage:  "Postgres connection string for the payment store",
			EnvVar: prefixEnvVar(envPrefix, "STORE_DSN"),
		},
		cli.StringFlag{
			Name:   LedgerRPCURLFlagName,
			Usage:  "URL of the ledger's JSON-RPC endpoint",
			EnvVar: prefixEnvVar(envPrefix, "LEDGER_RPC_URL"),
		},
		cli.DurationFlag{
			Name:   LedgerTimeoutFlagName,
			Usage:  "Timeout for a single ledger RPC call",
			Value:  5 * time.Second,
			EnvVar: prefixEnvVar(envPrefix, "LEDGER_TIMEOUT"),
		},
	}
}

// CLIConfig is the flag-parsed, unvalidated configuration (mirrors
// txmgr.CLIConfig).
type CLIConfig struct {
	FundingAddress string
	FundingSecret  string
	MaxInFlight    int
	PollInterval   time.Duration
	StoreDSN       string
	LedgerRPCURL   string
	LedgerTimeout  time.Duration
}

func (c CLIConfig) Check() error {
	if c.FundingAddress == "" {
		return errors.New("must provide a funding address")
	}
	if c.FundingSecret == "" {
		return errors.New("must provide a funding secret")
	}
	if c.MaxInFlight <= 0 {
		return errors.New("must provide a positive max-in-flight")
	}
	if c.PollInterval == 0 {
		return errors.New("must provide PollInterval")
	}
	if c.StoreDSN == "" {
		return errors.New("must provide a store DSN")
	}
	if c.LedgerRPCURL == "" {
		return errors.New("must provide a ledger RPC url")
	}
	if c.LedgerTimeout == 0 {
		return errors.New("must provide LedgerTimeout")
	}
	return nil
}

func ReadCLIConfig(ctx *cli.Context) CLIConfig {
	return CLIConfig{
		FundingAddress: ctx.GlobalString(FundingAddressFlagName),
		FundingSecret:  ctx.GlobalString(FundingSecretFlagName),
		MaxInFlight:    ctx.GlobalInt(MaxInFlightFlagName),
		PollInterval:   ctx.GlobalDuration(PollIntervalFlagName),
		StoreDSN:       ctx.GlobalString(StoreDSNFlagName),
		LedgerRPCURL:   ctx.GlobalString(LedgerRPCURLFlagName),
		LedgerTimeout:  ctx.GlobalDuration(LedgerTimeoutFlagName),
	}
}

// Config is the validated, wired configuration a Driver is built from.
type Config struct {
	FundingAddress string
	FundingSecret  string
	MaxInFlight    int
	PollInterval   time.Duration
	StoreDSN       string
	LedgerRPCURL   string
	LedgerTimeout  time.Duration
}

// NewConfig validates cfg and lifts it into a Config. It never logs
// FundingSecret.
func NewConfig(cfg CLIConfig, l log.Logger) (Config, error) {
	if err := cfg.Check(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	l.Info("pipeline config loaded",
		"funding_address", cfg.FundingAddress,
		"max_in_flight", cfg.MaxInFlight,
		"poll_interval", cfg.PollInterval,
		"ledger_rpc_url", cfg.LedgerRPCURL,
	)

	return Config{
		FundingAddress: cfg.FundingAddress,
		FundingSecret:  cfg.FundingSecret,
		MaxInFlight:    cfg.MaxInFlight,
		PollInterval:   cfg.PollInterval,
		StoreDSN:       cfg.StoreDSN,
		LedgerRPCURL:   cfg.LedgerRPCURL,
		LedgerTimeout:  cfg.LedgerTimeout,
	}, nil
}
