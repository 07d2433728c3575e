// Package pipeline drains a queue of pending payments from a Store, signs
// each with a monotonically increasing sequence number tied to a single
// funding account, submits the signed artifacts to a ledger, and drives each
// payment through its lifecycle until it is confirmed or marked in error.
package pipeline

import "time"

// State is the lifecycle state of a Payment.
type State int

const (
	StatePending State = iota
	StateSigned
	StateSubmitted
	StateConfirmed
	StateError
	StateAborted
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateSigned:
		return "signed"
	case StateSubmitted:
		return "submitted"
	case StateConfirmed:
		return "confirmed"
	case StateError:
		return "error"
	case StateAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// AmountKind distinguishes the two shapes an Amount can take.
type AmountKind int

const (
	// AmountNative is a scalar amount in the ledger's native asset.
	AmountNative AmountKind = iota
	// AmountIssued is a tuple of (value, currency, issuer) for a non-native asset.
	AmountIssued
)

// Amount is a tagged variant: either a native scalar or an issued (value,
// currency, issuer) tuple. Validation of the
// underlying value and addresses happens once, at the creation boundary
// (CreatePayment), not here.
type Amount struct {
	Kind     AmountKind
	Value    string // decimal string; native chains use fixed-point integer strings
	Currency string // only set when Kind == AmountIssued
	Issuer   string // only set when Kind == AmountIssued
}

// NativeAmount builds a scalar Amount in the funding account's native asset.
func NativeAmount(value string) Amount {
	return Amount{Kind: AmountNative, Value: value}
}

// IssuedAmount builds a tuple Amount for a non-native asset.
func IssuedAmount(value, currency, issuer string) Amount {
	return Amount{Kind: AmountIssued, Value: value, Currency: currency, Issuer: issuer}
}

// ErrorKind classifies why a Payment ended up in StateError.
type ErrorKind string

const (
	ErrorKindTransient       ErrorKind = "transient"
	ErrorKindPermanentReject ErrorKind = "permanent_reject"
	ErrorKindResign          ErrorKind = "resign"
	ErrorKindLost            ErrorKind = "lost"
	ErrorKindFatal           ErrorKind = "fatal"
)

// Payment is a single row in the Store: one intended transfer and its
// position in the lifecycle state machine.
type Payment struct {
	ID          int64
	Destination string
	Amount      Amount
	Memo        string

	State State

	// Sequence is set when transitioning Pending -> Signed and is immutable
	// thereafter until a resign clears it back to Pending.
	Sequence *int64

	// SignedArtifact is the opaque signed blob produced by the Signer.
	// Present iff State >= StateSigned.
	SignedArtifact []byte

	SubmittedAt *time.Time
	ConfirmedAt *time.Time

	ErrorKind ErrorKind
	Fatal     bool
}

// InFlight reports whether the payment is consuming a sequence number the
// ledger has not yet confirmed (Signed or Submitted).
func (p Payment) InFlight() bool {
	return p.State == StateSigned || p.State == StateSubmitted
}
