package xrpl

import (
	"strings"

	"github.com/Peersyst/xrpl-go/xrpl/hash"

	"github.com/ledgerflow/payout-pipeline/pipeline"
)

// txHash recovers the transaction hash from a signed blob the way
// SubmitTxBlobAndWait does, for use as the lookup key in Confirm.
func txHash(artifact []byte) (string, error) {
	return hash.SignTxBlob(string(artifact))
}

// classifySubmitResult maps an XRPL engine result code onto a
// pipeline.SubmitOutcome. "tes" codes succeeded outright; "tec" codes were
// applied to the ledger (consuming the sequence number) but the payment
// itself failed, classified further by classifyRejectResult; "tem" codes are
// malformed and never valid, also a permanent reject; "tef" and "ter" codes
// mean the transaction was never applied and must be resubmitted with the
// same sequence number once the underlying cause (e.g. a sequence race) is
// resolved.
func classifySubmitResult(engineResult string) pipeline.SubmitOutcome {
	switch {
	case engineResult == "tesSUCCESS":
		return pipeline.SubmitOutcome{Kind: pipeline.SubmitAccepted}
	case strings.HasPrefix(engineResult, "tec"):
		return pipeline.SubmitOutcome{Kind: pipeline.SubmitPermanentReject, Reason: engineResult}
	case strings.HasPrefix(engineResult, "tem"):
		return pipeline.SubmitOutcome{Kind: pipeline.SubmitPermanentReject, Reason: engineResult}
	case strings.HasPrefix(engineResult, "tef"):
		return pipeline.SubmitOutcome{Kind: pipeline.SubmitResign, Reason: engineResult}
	case strings.HasPrefix(engineResult, "ter"):
		return pipeline.SubmitOutcome{Kind: pipeline.SubmitTransientNetwork, Reason: engineResult}
	default:
		return pipeline.SubmitOutcome{Kind: pipeline.SubmitTransientNetwork, Reason: engineResult}
	}
}
