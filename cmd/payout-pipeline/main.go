package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli"

	"github.com/ledgerflow/payout-pipeline/ledger/xrpl"
	"github.com/ledgerflow/payout-pipeline/pipeline"
	"github.com/ledgerflow/payout-pipeline/pipeline/metrics"
	"github.com/ledgerflow/payout-pipeline/store/postgres"
)

const envPrefix = "PAYOUT_PIPELINE"

func main() {
	app := cli.NewApp()
	app.Name = "payout-pipeline"
	app.Usage = "drives pending payments through signing, submission and confirmation against a distributed ledger"
	app.Flags = append(pipeline.CLIFlags(envPrefix), cli.StringFlag{
		Name:   "metrics-addr",
		Usage:  "Address to serve Prometheus metrics on",
		Value:  ":7300",
		EnvVar: envPrefix + "_METRICS_ADDR",
	})
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx *cli.Context) error {
	l := log.NewLogger(log.NewTerminalHandler(os.Stdout, false))

	cliCfg := pipeline.ReadCLIConfig(ctx)
	cfg, err := pipeline.NewConfig(cliCfg, l)
	if err != nil {
		return fmt.Errorf("payout-pipeline: %w", err)
	}

	appCtx := context.Background()

	store, err := postgres.New(appCtx, cfg.StoreDSN, l)
	if err != nil {
		return fmt.Errorf("payout-pipeline: open store: %w", err)
	}
	defer store.Close()

	acquired, release, err := store.TryAcquireDriverLock(appCtx, cfg.FundingAddress)
	if err != nil {
		return fmt.Errorf("payout-pipeline: acquire driver lock: %w", err)
	}
	if !acquired {
		return fmt.Errorf("payout-pipeline: another driver already owns funding account %s", cfg.FundingAddress)
	}
	defer func() { _ = release(appCtx) }()

	ledgerClient, err := xrpl.NewClient(cfg.LedgerRPCURL, cfg.LedgerTimeout)
	if err != nil {
		return fmt.Errorf("payout-pipeline: dial ledger client: %w", err)
	}

	signerFn, err := xrpl.NewSecretSigner(cfg.FundingSecret)
	if err != nil {
		return fmt.Errorf("payout-pipeline: init signer: %w", err)
	}

	reg := prometheus.NewRegistry()
	metr := metrics.NewPipelineMetrics("payout_pipeline", reg)

	signer := pipeline.NewSigner(store, signerFn, l, metr)
	submitter := pipeline.NewSubmitter(store, ledgerClient, l, metr)
	driver := pipeline.NewDriver(store, ledgerClient, signer, submitter, cfg.FundingAddress, l, metr)

	go serveMetrics(ctx.String("metrics-addr"), reg, l)

	runLoop(appCtx, driver, cfg.MaxInFlight, cfg.PollInterval, l)
	return nil
}

// runLoop ticks the driver on a fixed interval, the way reconcile.Worker.Run
// drives its own poll loop off a time.Ticker.
func runLoop(ctx context.Context, driver *pipeline.Driver, maxInFlight int, interval time.Duration, l log.Logger) {
	l.Info("payout pipeline started", "poll_interval", interval, "max_in_flight", maxInFlight)
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			l.Info("payout pipeline stopping")
			return
		case <-t.C:
			if err := driver.Tick(ctx, maxInFlight); err != nil {
				l.Error("tick returned a fatal error", "err", err)
			}
		}
	}
}

func serveMetrics(addr string, reg *prometheus.Registry, l log.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	l.Info("serving metrics", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		l.Error("metrics server exited", "err", err)
	}
}
