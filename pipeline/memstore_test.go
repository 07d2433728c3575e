package pipeline

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// memStore is an in-memory Store fake, the way mockBackend fakes AlgoBackend
// in txmgr_test.go: hand-rolled, not generated, so its semantics can mirror
// the Store contract's atomicity guarantees exactly.
type memStore struct {
	mu       sync.Mutex
	nextID   int64
	payments map[int64]*Payment
}

func newMemStore() *memStore {
	return &memStore{payments: map[int64]*Payment{}}
}

func (m *memStore) InsertPending(ctx context.Context, dest string, amount Amount, memo string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	id := m.nextID
	m.payments[id] = &Payment{ID: id, Destination: dest, Amount: amount, Memo: memo, State: StatePending}
	return id, nil
}

func (m *memStore) sortedIDs() []int64 {
	ids := make([]int64, 0, len(m.payments))
	for id := range m.payments {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (m *memStore) listByState(state State, limit int) []Payment {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Payment
	for _, id := range m.sortedIDs() {
		p := m.payments[id]
		if p.State != state {
			continue
		}
		out = append(out, *p)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

func (m *memStore) ListUnsigned(ctx context.Context, limit int) ([]Payment, error) {
	return m.listByState(StatePending, limit), nil
}

func (m *memStore) ListSignedUnsubmitted(ctx context.Context) ([]Payment, error) {
	return m.listByState(StateSigned, 0), nil
}

func (m *memStore) ListSubmittedUnconfirmed(ctx context.Context) ([]Payment, error) {
	return m.listByState(StateSubmitted, 0), nil
}

func (m *memStore) MarkSigned(ctx context.Context, id int64, sequence int64, artifact []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[id]
	if !ok || p.State != StatePending {
		return fmt.Errorf("memstore: payment %d is not pending", id)
	}
	p.State = StateSigned
	p.Sequence = int64Ptr(sequence)
	p.SignedArtifact = artifact
	return nil
}

func (m *memStore) MarkSubmitted(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[id]
	if !ok || p.State != StateSigned {
		return fmt.Errorf("memstore: payment %d is not signed", id)
	}
	p.State = StateSubmitted
	return nil
}

func (m *memStore) MarkConfirmed(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[id]
	if !ok || p.State != StateSubmitted {
		return fmt.Errorf("memstore: payment %d is not submitted", id)
	}
	p.State = StateConfirmed
	return nil
}

func (m *memStore) MarkError(ctx context.Context, id int64, kind ErrorKind, fatal bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[id]
	if !ok {
		return fmt.Errorf("memstore: payment %d not found", id)
	}
	if p.State == StateConfirmed || p.State == StateError || p.State == StateAborted {
		return fmt.Errorf("memstore: payment %d is already terminal", id)
	}
	p.State = StateError
	p.ErrorKind = kind
	p.Fatal = fatal
	return nil
}

func (m *memStore) IsAborted(ctx context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[id]
	if !ok {
		return false, fmt.Errorf("memstore: payment %d not found", id)
	}
	return p.State == StateAborted, nil
}

func (m *memStore) HighestSequence(ctx context.Context) (int64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var max int64
	found := false
	for _, p := range m.payments {
		if p.State >= StateSigned && p.Sequence != nil {
			if !found || *p.Sequence > max {
				max = *p.Sequence
				found = true
			}
		}
	}
	return max, found, nil
}

func (m *memStore) ClearSignedFrom(ctx context.Context, fromID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, p := range m.payments {
		if id >= fromID && (p.State == StateSigned || p.State == StateSubmitted) {
			p.State = StatePending
			p.Sequence = nil
			p.SignedArtifact = nil
		}
	}
	return nil
}

// abort is a test-only helper; real abort is an operator action outside the
// Store interface's scope.
func (m *memStore) abort(id int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payments[id].State = StateAborted
}

var _ Store = (*memStore)(nil)
