// Package xrpl implements pipeline.LedgerClient against the XRP Ledger,
// using xrpl-go's JSON-RPC client the way rpc.Client wraps it in the
// Peersyst SDK.
package xrpl

import (
	"context"
	"fmt"
	"time"

	"github.com/Peersyst/xrpl-go/xrpl/queries/account"
	"github.com/Peersyst/xrpl-go/xrpl/queries/transactions"
	"github.com/Peersyst/xrpl-go/xrpl/rpc"
	"github.com/Peersyst/xrpl-go/xrpl/transaction/types"

	"github.com/ledgerflow/payout-pipeline/pipeline"
)

// Client is an implementation of pipeline.LedgerClient and a thin wrapper
// over the xrpl-go JSON-RPC client, the way AlgodClient wraps the Algorand
// SDK's client.
type Client struct {
	rpc     *rpc.Client
	timeout time.Duration
}

// NewClient dials an XRPL JSON-RPC endpoint.
func NewClient(url string, timeout time.Duration) (*Client, error) {
	cfg, err := rpc.NewClientConfig(url)
	if err != nil {
		return nil, fmt.Errorf("xrpl: build client config: %w", err)
	}
	return &Client{rpc: rpc.NewClient(cfg), timeout: timeout}, nil
}

// GetAccountInfo implements pipeline.LedgerClient.
func (c *Client) GetAccountInfo(ctx context.Context, address string) (pipeline.AccountInfo, error) {
	resp, err := c.rpc.GetAccountInfo(&account.InfoRequest{
		Account: types.Address(address),
	})
	if err != nil {
		return pipeline.AccountInfo{}, fmt.Errorf("xrpl: get account info for %s: %w", address, err)
	}
	return pipeline.AccountInfo{NextSequence: int64(resp.AccountData.Sequence)}, nil
}

// Submit implements pipeline.LedgerClient. artifact is a hex-encoded signed
// transaction blob produced by the Signer.
func (c *Client) Submit(ctx context.Context, artifact []byte) (pipeline.SubmitOutcome, error) {
	resp, err := c.rpc.SubmitTxBlob(string(artifact), false)
	if err != nil {
		return pipeline.SubmitOutcome{}, fmt.Errorf("xrpl: submit: %w", err)
	}
	return classifySubmitResult(resp.EngineResult), nil
}

// Confirm implements pipeline.LedgerClient. It looks up the transaction by
// the hash recoverable from the signed artifact and checks whether it has
// been validated into a closed ledger.
func (c *Client) Confirm(ctx context.Context, artifact []byte) (pipeline.ConfirmOutcome, error) {
	hash, err := txHash(artifact)
	if err != nil {
		return pipeline.ConfirmStillPending, fmt.Errorf("xrpl: hash signed artifact: %w", err)
	}

	resp, err := c.rpc.Request(&transactions.TxRequest{Transaction: hash})
	if err != nil {
		// xrpl returns a "txnNotFound" style error for a tx the ledger has
		// never seen; that is not yet distinguishable from "still pending"
		// without inspecting the raw response, so treat any lookup failure
		// as still-pending and let the caller retry next tick.
		return pipeline.ConfirmStillPending, nil
	}

	txResp, ok := resp.(*transactions.TxResponse)
	if !ok {
		return pipeline.ConfirmStillPending, fmt.Errorf("xrpl: unexpected tx response type %T", resp)
	}
	if !txResp.Validated {
		return pipeline.ConfirmStillPending, nil
	}
	if txResp.Meta.TransactionResult != "tesSUCCESS" {
		return pipeline.ConfirmLost, nil
	}
	return pipeline.ConfirmConfirmed, nil
}
