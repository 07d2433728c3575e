package pipeline

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/log"
	"github.com/ledgerflow/payout-pipeline/pipeline/metrics"
)

// Submitter drains signed-unsubmitted rows and pushes them to the ledger,
// then sweeps submitted-unconfirmed rows for confirmation.
type Submitter struct {
	store  Store
	ledger LedgerClient
	l      log.Logger
	metr   metrics.PipelineMetricer
}

// NewSubmitter constructs a Submitter bound to the given Store and
// LedgerClient.
func NewSubmitter(store Store, ledger LedgerClient, l log.Logger, m metrics.PipelineMetricer) *Submitter {
	return &Submitter{
		store:  store,
		ledger: ledger,
		l:      l.New("component", "submitter"),
		metr:   m,
	}
}

// SubmitTransactions drains all signed-unsubmitted rows in id-ascending
// order, submitting each to the ledger and classifying the outcome.
//
// Accepted rows are marked Submitted and the batch continues. A
// TransientNetwork outcome stops the batch (the row stays Signed, retried
// next tick) and is returned as a *TransientNetworkErr. A Resign outcome, or
// a PermanentReject judged to invalidate the sequence chain, stops the batch
// and is returned as a *ResignRequiredErr carrying the offending row. A
// PermanentReject judged non-invalidating marks the row as a non-fatal Error
// and the batch continues.
//
// Once submission is drained, every row in StateSubmitted is polled for
// confirmation; a Lost outcome is surfaced as a *ResignRequiredErr for that
// row.
func (s *Submitter) SubmitTransactions(ctx context.Context) error {
	rows, err := s.store.ListSignedUnsubmitted(ctx)
	if err != nil {
		return fmt.Errorf("submitter: list signed unsubmitted: %w", err)
	}

	for _, row := range rows {
		outcome, err := s.ledger.Submit(ctx, row.SignedArtifact)
		if err != nil {
			s.metr.RPCError()
			return &TransientNetworkErr{PaymentID: row.ID, Err: err}
		}

		switch outcome.Kind {
		case SubmitAccepted:
			if err := s.store.MarkSubmitted(ctx, row.ID); err != nil {
				return fmt.Errorf("submitter: mark payment %d submitted: %w", row.ID, err)
			}
			s.l.Info("submitted payment", "payment_id", row.ID)
			s.metr.RecordSubmitted()

		case SubmitTransientNetwork:
			return &TransientNetworkErr{PaymentID: row.ID, Err: fmt.Errorf("%s", outcome.Reason)}

		case SubmitResign:
			return &ResignRequiredErr{PaymentID: row.ID, Reason: outcome.Reason, ClearOffendingRow: true}

		case SubmitPermanentReject:
			if err := s.store.MarkError(ctx, row.ID, ErrorKindPermanentReject, false); err != nil {
				return fmt.Errorf("submitter: mark payment %d errored: %w", row.ID, err)
			}
			if classifyRejectResult(outcome.Reason) {
				// Invalidating: r stays in Error (already marked above); only
				// the rows strictly behind it need to be resigned.
				return &ResignRequiredErr{PaymentID: row.ID, Reason: outcome.Reason, ClearOffendingRow: false}
			}
			s.l.Warn("payment permanently rejected, sequence chain intact", "payment_id", row.ID, "reason", outcome.Reason)
			s.metr.RecordPermanentReject()

		default:
			return fmt.Errorf("submitter: unknown submit outcome for payment %d", row.ID)
		}
	}

	return s.confirmSubmitted(ctx)
}

// confirmSubmitted polls every Submitted row for confirmation.
func (s *Submitter) confirmSubmitted(ctx context.Context) error {
	rows, err := s.store.ListSubmittedUnconfirmed(ctx)
	if err != nil {
		return fmt.Errorf("submitter: list submitted unconfirmed: %w", err)
	}

	for _, row := range rows {
		outcome, err := s.ledger.Confirm(ctx, row.SignedArtifact)
		if err != nil {
			s.metr.RPCError()
			return &TransientNetworkErr{PaymentID: row.ID, Err: err}
		}

		switch outcome {
		case ConfirmConfirmed:
			if err := s.store.MarkConfirmed(ctx, row.ID); err != nil {
				return fmt.Errorf("submitter: mark payment %d confirmed: %w", row.ID, err)
			}
			s.l.Info("confirmed payment", "payment_id", row.ID)
			s.metr.RecordConfirmed()

		case ConfirmStillPending:
			// Nothing to do; retried next tick.

		case ConfirmLost:
			return &ResignRequiredErr{PaymentID: row.ID, Reason: "submitted artifact lost", ClearOffendingRow: true}

		default:
			return fmt.Errorf("submitter: unknown confirm outcome for payment %d", row.ID)
		}
	}

	return nil
}
