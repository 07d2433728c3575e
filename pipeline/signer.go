package pipeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/log"
	"github.com/ledgerflow/payout-pipeline/pipeline/metrics"
)

// SignFunc produces a signed artifact for a payment at the given sequence
// number. It is the opaque signing operation left to the concrete ledger
// implementation; the XRPL signer in ledger/xrpl is what production uses.
type SignFunc func(ctx context.Context, p Payment, sequence int64) ([]byte, error)

// Signer owns the in-memory next-sequence cursor. It is authoritative only
// while a single Driver is actively ticking; on cold start it is empty and
// must be initialized from the Store or the ledger.
type Signer struct {
	store Store
	sign  SignFunc
	l     log.Logger
	metr  metrics.PipelineMetricer

	mu           sync.Mutex
	nextSequence *int64
}

// NewSigner constructs a Signer bound to the given Store and signing
// function.
func NewSigner(store Store, sign SignFunc, l log.Logger, m metrics.PipelineMetricer) *Signer {
	return &Signer{
		store: store,
		sign:  sign,
		l:     l.New("component", "signer"),
		metr:  m,
	}
}

// GetSequence returns the current cursor, or ok == false if it has not yet
// been initialized.
func (s *Signer) GetSequence() (seq int64, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.nextSequence == nil {
		return 0, false
	}
	return *s.nextSequence, true
}

// SetSequence explicitly overrides the cursor. Used by sequence
// initialization and resign recovery.
func (s *Signer) SetSequence(n int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSequence = &n
}

// SignTransactions reads up to limit unsigned rows from the Store in
// id-ascending order and stamps each with the next sequence number,
// producing a signed artifact and persisting it via MarkSigned.
//
// If limit <= 0 this is a no-op. If any per-row step fails, the batch stops,
// the error is returned, and the cursor is left pointing at the first
// unassigned sequence: SignTransactions never introduces a gap in stamped
// sequence numbers across the rows it successfully signs.
func (s *Signer) SignTransactions(ctx context.Context, limit int) error {
	if limit <= 0 {
		return nil
	}

	s.mu.Lock()
	if s.nextSequence == nil {
		s.mu.Unlock()
		return fmt.Errorf("signer: sequence not initialized")
	}
	s.mu.Unlock()

	rows, err := s.store.ListUnsigned(ctx, limit)
	if err != nil {
		return fmt.Errorf("signer: list unsigned: %w", err)
	}

	for _, row := range rows {
		s.mu.Lock()
		seq := *s.nextSequence
		s.mu.Unlock()

		artifact, err := s.sign(ctx, row, seq)
		if err != nil {
			return fmt.Errorf("signer: sign payment %d at sequence %d: %w", row.ID, seq, err)
		}

		if err := s.store.MarkSigned(ctx, row.ID, seq, artifact); err != nil {
			return fmt.Errorf("signer: mark payment %d signed: %w", row.ID, err)
		}

		s.mu.Lock()
		s.nextSequence = int64Ptr(seq + 1)
		s.mu.Unlock()

		s.metr.RecordSequenceCursor(seq + 1)
		s.l.Info("signed payment", "payment_id", row.ID, "sequence", seq)
	}

	return nil
}

func int64Ptr(v int64) *int64 { return &v }
