package pipeline

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/log"
)

// fakeLedger is a hand-rolled LedgerClient fake, the same way mockBackend
// fakes AlgoBackend in txmgr_test.go: each call is driven by a queue of
// canned responses so a test can script exact sequences of outcomes.
type fakeLedger struct {
	mu sync.Mutex

	accountInfo    AccountInfo
	accountInfoErr error

	submitOutcomes []SubmitOutcome
	submitErr      error

	confirmOutcomes []ConfirmOutcome
	confirmErr      error
}

func newFakeLedger(startSeq int64) *fakeLedger {
	return &fakeLedger{accountInfo: AccountInfo{NextSequence: startSeq}}
}

func (f *fakeLedger) GetAccountInfo(ctx context.Context, address string) (AccountInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.accountInfoErr != nil {
		return AccountInfo{}, f.accountInfoErr
	}
	return f.accountInfo, nil
}

func (f *fakeLedger) Submit(ctx context.Context, artifact []byte) (SubmitOutcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitErr != nil {
		return SubmitOutcome{}, f.submitErr
	}
	if len(f.submitOutcomes) == 0 {
		return SubmitOutcome{Kind: SubmitAccepted}, nil
	}
	out := f.submitOutcomes[0]
	f.submitOutcomes = f.submitOutcomes[1:]
	return out, nil
}

func (f *fakeLedger) Confirm(ctx context.Context, artifact []byte) (ConfirmOutcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.confirmErr != nil {
		return ConfirmStillPending, f.confirmErr
	}
	if len(f.confirmOutcomes) == 0 {
		return ConfirmConfirmed, nil
	}
	out := f.confirmOutcomes[0]
	f.confirmOutcomes = f.confirmOutcomes[1:]
	return out, nil
}

var _ LedgerClient = (*fakeLedger)(nil)

// discardLogger returns a Logger that writes nowhere, the way testlog.Logger
// is used at log.LvlCrit in txmgr_test.go to keep test output quiet.
func discardLogger() log.Logger {
	return log.NewLogger(log.DiscardHandler())
}

// stubSign is a SignFunc that produces a deterministic artifact without
// touching any real cryptography, the way tests stub opcrypto.SignerFn with
// an in-memory account.
func stubSign(ctx context.Context, p Payment, sequence int64) ([]byte, error) {
	return []byte{byte(sequence)}, nil
}
