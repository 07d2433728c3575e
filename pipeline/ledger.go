package pipeline

import "context"

// AccountInfo is the ledger's view of the funding account, as returned by
// LedgerClient.GetAccountInfo.
type AccountInfo struct {
	NextSequence int64
}

// SubmitOutcome classifies the result of submitting a signed artifact.
// Reason is only set for SubmitResign and SubmitPermanentReject.
type SubmitOutcome struct {
	Kind   SubmitOutcomeKind
	Reason string
}

type SubmitOutcomeKind int

const (
	SubmitAccepted SubmitOutcomeKind = iota
	SubmitTransientNetwork
	SubmitResign
	SubmitPermanentReject
)

// ConfirmOutcome classifies the result of polling for confirmation of a
// previously submitted artifact.
type ConfirmOutcome int

const (
	ConfirmConfirmed ConfirmOutcome = iota
	ConfirmStillPending
	ConfirmLost
)

// LedgerClient is the opaque interface to the distributed ledger.
// Implementations map ledger-specific error codes onto the four
// SubmitOutcome variants and three ConfirmOutcome variants; see
// classifyRejectResult for the XRPL-specific mapping used by XRPLClient.
type LedgerClient interface {
	// GetAccountInfo returns the funding account's next usable sequence
	// number, used by the Driver to cold-start the Signer's cursor.
	GetAccountInfo(ctx context.Context, address string) (AccountInfo, error)

	// Submit transmits a signed artifact to the ledger's network.
	Submit(ctx context.Context, artifact []byte) (SubmitOutcome, error)

	// Confirm polls for confirmation of a previously submitted artifact.
	Confirm(ctx context.Context, artifact []byte) (ConfirmOutcome, error)
}
