package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/ledgerflow/payout-pipeline/pipeline/metrics"
)

// DefaultMaxInFlight is the default cap on Submitted+Signed rows a single
// tick will allow.
const DefaultMaxInFlight = 10

// Driver orchestrates a single "tick": fatal-error check, sequence
// initialization, signing-quota calculation, signing, submission, and error
// classification. Exactly one tick executes at a time; the re-entrancy guard
// is the sole mutual-exclusion primitive.
type Driver struct {
	store     Store
	ledger    LedgerClient
	signer    *Signer
	submitter *Submitter
	l         log.Logger
	metr      metrics.PipelineMetricer

	fundingAddress string

	// ticking guards re-entrancy: 0 = idle, 1 = a tick is in progress.
	ticking int32

	// fatalError is set by fatal promotion and checked at the top of every
	// subsequent tick until the operator clears it.
	fatalError *FatalErr
}

// NewDriver constructs a Driver. fundingAddress identifies the account whose
// sequence number stream this Driver owns; running more than one Driver
// against the same funding account concurrently corrupts that stream.
func NewDriver(store Store, ledger LedgerClient, signer *Signer, submitter *Submitter, fundingAddress string, l log.Logger, m metrics.PipelineMetricer) *Driver {
	return &Driver{
		store:          store,
		ledger:         ledger,
		signer:         signer,
		submitter:      submitter,
		fundingAddress: fundingAddress,
		l:              l.New("component", "driver"),
		metr:           m,
	}
}

// Tick executes a single orchestration pass. If a tick is already in
// progress it returns immediately without error and without side effect.
func (d *Driver) Tick(ctx context.Context, maxInFlight int) error {
	if !atomic.CompareAndSwapInt32(&d.ticking, 0, 1) {
		return nil
	}
	defer atomic.StoreInt32(&d.ticking, 0)

	if maxInFlight <= 0 {
		maxInFlight = DefaultMaxInFlight
	}

	start := time.Now()
	defer func() { d.metr.RecordTickDuration(time.Since(start)) }()

	if proceed, err := d.checkFatalError(ctx); !proceed {
		return err
	}

	if err := d.ensureSequenceInitialized(ctx); err != nil {
		return d.classify(ctx, err)
	}

	unconfirmed, err := d.store.ListSubmittedUnconfirmed(ctx)
	if err != nil {
		return d.classify(ctx, fmt.Errorf("driver: list submitted unconfirmed: %w", err))
	}
	d.metr.RecordSubmittedUnconfirmedDepth(len(unconfirmed))
	quota := maxInFlight - len(unconfirmed)

	if quota > 0 {
		if err := d.signer.SignTransactions(ctx, quota); err != nil {
			if cerr := d.classify(ctx, err); cerr != nil {
				return cerr
			}
		}
	}

	if err := d.submitter.SubmitTransactions(ctx); err != nil {
		return d.classify(ctx, err)
	}

	return nil
}

// checkFatalError returns proceed == false when the tick must abort
// (fatalError is set and not resolved by an operator abort).
func (d *Driver) checkFatalError(ctx context.Context) (proceed bool, err error) {
	if d.fatalError == nil {
		return true, nil
	}

	if d.fatalError.HasRow {
		aborted, aerr := d.store.IsAborted(ctx, d.fatalError.PaymentID)
		if aerr == nil && aborted {
			offending := d.fatalError.PaymentID
			d.fatalError = nil
			// The aborted row stays Aborted (terminal); only the rows behind
			// it are demoted and re-signed.
			if err := d.resignFrom(ctx, offending, false); err != nil {
				return false, err
			}
			return true, nil
		}
	}

	return false, d.fatalError
}

// ensureSequenceInitialized seeds the signer's cursor on cold start: from the
// highest stamped sequence already in the Store if any row is in flight,
// otherwise from the ledger's account info.
func (d *Driver) ensureSequenceInitialized(ctx context.Context) error {
	if _, ok := d.signer.GetSequence(); ok {
		return nil
	}

	if highest, ok, err := d.store.HighestSequence(ctx); err != nil {
		return fmt.Errorf("driver: highest sequence: %w", err)
	} else if ok {
		d.signer.SetSequence(highest + 1)
		return nil
	}

	info, err := d.ledger.GetAccountInfo(ctx, d.fundingAddress)
	if err != nil {
		return &TransientNetworkErr{Err: fmt.Errorf("driver: get account info: %w", err)}
	}
	d.signer.SetSequence(info.NextSequence)
	return nil
}

// classify is the tick's error classification step: transient errors are
// logged and swallowed, resign-required errors trigger resign recovery,
// anything else is promoted to fatal.
func (d *Driver) classify(ctx context.Context, err error) error {
	var transient *TransientNetworkErr
	if errors.As(err, &transient) {
		d.l.Warn("transient network error, will retry next tick", "err", transient)
		return nil
	}

	var resign *ResignRequiredErr
	if errors.As(err, &resign) {
		d.metr.RecordResign()
		if rerr := d.resignFrom(ctx, resign.PaymentID, resign.ClearOffendingRow); rerr != nil {
			return d.promoteFatal(ctx, rerr, resign.PaymentID, true)
		}
		return nil
	}

	return d.promoteFatal(ctx, err, 0, false)
}

// resignFrom performs resign recovery: demote every strictly later
// signed/submitted-unconfirmed row, plus the offending row itself when
// clearOffending is true (a true Resign outcome, as opposed to an
// invalidating PermanentReject that leaves the offending row in Error), then
// refresh the signer's cursor from the ledger.
func (d *Driver) resignFrom(ctx context.Context, offendingID int64, clearOffending bool) error {
	from := offendingID + 1
	if clearOffending {
		from = offendingID
	}
	if err := d.store.ClearSignedFrom(ctx, from); err != nil {
		return fmt.Errorf("driver: clear signed from %d: %w", from, err)
	}

	info, err := d.ledger.GetAccountInfo(ctx, d.fundingAddress)
	if err != nil {
		return fmt.Errorf("driver: refresh sequence after resign: %w", err)
	}
	d.signer.SetSequence(info.NextSequence)

	d.l.Warn("resigned trailing window", "from_payment_id", offendingID, "next_sequence", info.NextSequence)
	return nil
}

// promoteFatal wedges the Driver on an unrecoverable error.
func (d *Driver) promoteFatal(ctx context.Context, err error, paymentID int64, hasRow bool) error {
	fatal := &FatalErr{PaymentID: paymentID, HasRow: hasRow, Err: err}
	d.fatalError = fatal
	d.metr.RecordFatal()

	if hasRow {
		if merr := d.store.MarkError(ctx, paymentID, ErrorKindFatal, true); merr != nil {
			d.l.Error("failed to record fatal error on payment", "payment_id", paymentID, "err", merr)
		}
	}

	d.l.Error("promoted error to fatal", "err", err, "payment_id", paymentID, "has_row", hasRow)
	return fatal
}

// FatalError returns the Driver's current fatal error slot, or nil if none
// is set. Exposed for operator tooling that needs to inspect the wedged
// state without waiting for another Tick.
func (d *Driver) FatalError() *FatalErr {
	return d.fatalError
}
