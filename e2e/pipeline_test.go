//go:build e2e

package e2e

import (
	"context"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/ledgerflow/payout-pipeline/ledger/xrpl"
	"github.com/ledgerflow/payout-pipeline/pipeline"
	"github.com/ledgerflow/payout-pipeline/pipeline/metrics"
	"github.com/ledgerflow/payout-pipeline/store/postgres"
)

type testHarness struct {
	driver *pipeline.Driver
	store  *postgres.Store
}

func newTestHarness(t *testing.T) *testHarness {
	l := log.NewLogger(log.DiscardHandler())

	ctx := context.Background()
	store, err := postgres.New(ctx, testConfig.storeDSN, l)
	require.NoError(t, err)

	ledgerClient, err := xrpl.NewClient(testConfig.rpcURL, 5*time.Second)
	require.NoError(t, err)

	signFn, err := xrpl.NewSecretSigner(testConfig.fundingSecret)
	require.NoError(t, err)

	metr := metrics.NewPipelineMetrics("e2e", prometheus.NewRegistry())
	signer := pipeline.NewSigner(store, signFn, l, metr)
	submitter := pipeline.NewSubmitter(store, ledgerClient, l, metr)

	fundingAddress, err := deriveAddress(testConfig.fundingSecret)
	require.NoError(t, err)
	driver := pipeline.NewDriver(store, ledgerClient, signer, submitter, fundingAddress, l, metr)

	return &testHarness{driver: driver, store: store}
}

// TestPaymentReachesConfirmed exercises a single payment through the whole
// pipeline against a live rippled node: insert, tick until Confirmed.
func TestPaymentReachesConfirmed(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()

	id, err := h.store.InsertPending(ctx, testConfig.selfDestination(), pipeline.NativeAmount("1000000"), "e2e test")
	require.NoError(t, err)

	deadline := time.Now().Add(30 * time.Second)
	for time.Now().Before(deadline) {
		require.NoError(t, h.driver.Tick(ctx, pipeline.DefaultMaxInFlight))

		state, err := h.store.PaymentState(ctx, id)
		require.NoError(t, err)
		require.NotEqual(t, pipeline.StateAborted, state)
		require.NotEqual(t, pipeline.StateError, state)

		if state == pipeline.StateConfirmed {
			return
		}

		time.Sleep(time.Second)
	}

	t.Fatalf("payment %d did not reach StateConfirmed within the deadline", id)
}

func (c TestConfig) selfDestination() string {
	addr, err := deriveAddress(c.fundingSecret)
	if err != nil {
		return ""
	}
	return addr
}

func deriveAddress(secret string) (string, error) {
	w, err := xrpl.WalletAddress(secret)
	if err != nil {
		return "", err
	}
	return w, nil
}
