package pipeline

import "fmt"

// TransientNetworkErr is retried on the next tick and logged at warn. The
// Driver swallows it after logging.
type TransientNetworkErr struct {
	PaymentID int64
	Err       error
}

func (e *TransientNetworkErr) Error() string {
	return fmt.Sprintf("transient network error on payment %d: %v", e.PaymentID, e.Err)
}

func (e *TransientNetworkErr) Unwrap() error { return e.Err }

// ResignRequiredErr signals that a row was rejected in a way that
// invalidates every later in-flight row. The Driver recovers from it by
// running resign recovery starting at PaymentID.
type ResignRequiredErr struct {
	PaymentID int64
	Reason    string

	// ClearOffendingRow is true when PaymentID itself must also be demoted
	// back to Pending (a true Resign outcome). When false, PaymentID has
	// already been recorded as a non-fatal Error by the caller and only the
	// rows strictly behind it are cleared (an invalidating PermanentReject).
	ClearOffendingRow bool
}

func (e *ResignRequiredErr) Error() string {
	return fmt.Sprintf("resign required from payment %d: %s", e.PaymentID, e.Reason)
}

// FatalErr is an unclassified or unrecoverable error. The Driver records it
// in its fatalError slot; every subsequent tick short-circuits until the
// operator aborts the associated row (if any) or it is otherwise cleared.
type FatalErr struct {
	// PaymentID is the offending row, if one exists. Zero means no row is
	// associated and the error can only be cleared by a restart.
	PaymentID int64
	HasRow    bool
	Err       error
}

func (e *FatalErr) Error() string {
	if e.HasRow {
		return fmt.Sprintf("fatal error on payment %d: %v", e.PaymentID, e.Err)
	}
	return fmt.Sprintf("fatal error: %v", e.Err)
}

func (e *FatalErr) Unwrap() error { return e.Err }

// ValidationErr is raised synchronously at the payment-creation boundary and
// never enters the pipeline.
type ValidationErr struct {
	Field  string
	Reason string
}

func (e *ValidationErr) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
