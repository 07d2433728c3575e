package xrpl

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/Peersyst/xrpl-go/xrpl/transaction"
	"github.com/Peersyst/xrpl-go/xrpl/transaction/types"
	"github.com/Peersyst/xrpl-go/xrpl/wallet"

	"github.com/ledgerflow/payout-pipeline/pipeline"
)

// WalletAddress derives the classic address for a funding account's secret,
// for callers that need to populate CLIConfig.FundingAddress from the same
// secret used to build the signer.
func WalletAddress(secret string) (string, error) {
	w, err := wallet.FromSecret(secret)
	if err != nil {
		return "", fmt.Errorf("xrpl: derive wallet from secret: %w", err)
	}
	return w.ClassicAddress, nil
}

// NewSecretSigner builds a pipeline.SignFunc that signs Payments with the
// funding account's secret key, the way milk-crypto.CreateSignerFn derives
// an Algorand signer from a private key. Unlike the Algorand signer it must
// be handed an explicit sequence number per call, since that number is
// assigned by the Signer's cursor rather than looked up per transaction.
func NewSecretSigner(secret string) (pipeline.SignFunc, error) {
	w, err := wallet.FromSecret(secret)
	if err != nil {
		return nil, fmt.Errorf("xrpl: derive wallet from secret: %w", err)
	}

	return func(ctx context.Context, p pipeline.Payment, sequence int64) ([]byte, error) {
		tx := transaction.FlatTransaction{
			"TransactionType": "Payment",
			"Account":         types.Address(w.ClassicAddress),
			"Destination":     types.Address(p.Destination),
			"Sequence":        uint32(sequence),
			"Amount":          flattenAmount(p.Amount),
		}
		if p.Memo != "" {
			tx["Memos"] = []any{
				map[string]any{
					"Memo": map[string]any{
						"MemoData": strings.ToUpper(hex.EncodeToString([]byte(p.Memo))),
					},
				},
			}
		}

		_, blob, err := w.Sign(tx)
		if err != nil {
			return nil, fmt.Errorf("xrpl: sign payment %d: %w", p.ID, err)
		}
		return []byte(blob), nil
	}, nil
}

// flattenAmount renders a pipeline.Amount into the shape xrpl-go's
// transaction.FlatTransaction expects: a bare decimal string for the native
// asset, or an issued-currency object otherwise.
func flattenAmount(a pipeline.Amount) any {
	if a.Kind == pipeline.AmountNative {
		return a.Value
	}
	return map[string]any{
		"value":    a.Value,
		"currency": a.Currency,
		"issuer":   a.Issuer,
	}
}
