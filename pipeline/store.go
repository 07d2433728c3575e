package pipeline

import "context"

// Store is the durable persistence contract the pipeline depends on.
// Every method must be atomic and durable; clearSignedFrom
// in particular must be a single transaction spanning every affected row.
type Store interface {
	// InsertPending creates a Payment in StatePending and returns its id.
	InsertPending(ctx context.Context, dest string, amount Amount, memo string) (int64, error)

	// ListUnsigned returns the `limit` lowest-id Pending rows, id ascending.
	ListUnsigned(ctx context.Context, limit int) ([]Payment, error)

	// ListSignedUnsubmitted returns rows with a SignedArtifact present and
	// State == StateSigned, id ascending.
	ListSignedUnsubmitted(ctx context.Context) ([]Payment, error)

	// ListSubmittedUnconfirmed returns rows in StateSubmitted, id ascending.
	ListSubmittedUnconfirmed(ctx context.Context) ([]Payment, error)

	// MarkSigned transitions Pending -> Signed. It fails if the row's
	// current state is not Pending.
	MarkSigned(ctx context.Context, id int64, sequence int64, artifact []byte) error

	// MarkSubmitted transitions Signed -> Submitted.
	MarkSubmitted(ctx context.Context, id int64) error

	// MarkConfirmed transitions Submitted -> Confirmed.
	MarkConfirmed(ctx context.Context, id int64) error

	// MarkError transitions any non-terminal row to StateError.
	MarkError(ctx context.Context, id int64, kind ErrorKind, fatal bool) error

	// IsAborted reports whether the row is in StateAborted.
	IsAborted(ctx context.Context, id int64) (bool, error)

	// HighestSequence returns the max sequence across rows with State >=
	// StateSigned, or ok == false if there are none.
	HighestSequence(ctx context.Context) (seq int64, ok bool, err error)

	// ClearSignedFrom atomically demotes every row with id >= fromID that is
	// in StateSigned or StateSubmitted back to StatePending, clearing
	// SignedArtifact and Sequence. Used by resign recovery.
	ClearSignedFrom(ctx context.Context, fromID int64) error
}
