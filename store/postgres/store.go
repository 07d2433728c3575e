// Package postgres implements pipeline.Store against Postgres using pgx,
// the way paymatch's reconcile worker drives its repo: every multi-row
// mutation runs inside a single pgx.Tx so the durability contract in
// pipeline.Store holds even under a crash mid-write.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ledgerflow/payout-pipeline/pipeline"
)

// Store is the Postgres-backed pipeline.Store.
type Store struct {
	pool *pgxpool.Pool
	l    log.Logger
}

var _ pipeline.Store = (*Store)(nil)

// New connects to Postgres at dsn and returns a Store. Callers own the
// returned Store's lifetime and should call Close when done.
func New(ctx context.Context, dsn string, l log.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return &Store{pool: pool, l: l.New("component", "store")}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) InsertPending(ctx context.Context, dest string, amount pipeline.Amount, memo string) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO payments (destination, amount_kind, amount_value, amount_currency, amount_issuer, memo, state)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, dest, int(amount.Kind), amount.Value, amount.Currency, amount.Issuer, memo, int(pipeline.StatePending)).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("postgres: insert pending: %w", err)
	}
	return id, nil
}

func (s *Store) ListUnsigned(ctx context.Context, limit int) ([]pipeline.Payment, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, destination, amount_kind, amount_value, amount_currency, amount_issuer, memo
		FROM payments
		WHERE state = $1
		ORDER BY id ASC
		LIMIT $2
	`, int(pipeline.StatePending), limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list unsigned: %w", err)
	}
	defer rows.Close()

	var out []pipeline.Payment
	for rows.Next() {
		var p pipeline.Payment
		var kind int
		if err := rows.Scan(&p.ID, &p.Destination, &kind, &p.Amount.Value, &p.Amount.Currency, &p.Amount.Issuer, &p.Memo); err != nil {
			return nil, fmt.Errorf("postgres: scan unsigned row: %w", err)
		}
		p.Amount.Kind = pipeline.AmountKind(kind)
		p.State = pipeline.StatePending
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) ListSignedUnsubmitted(ctx context.Context) ([]pipeline.Payment, error) {
	return s.listByState(ctx, pipeline.StateSigned)
}

func (s *Store) ListSubmittedUnconfirmed(ctx context.Context) ([]pipeline.Payment, error) {
	return s.listByState(ctx, pipeline.StateSubmitted)
}

func (s *Store) listByState(ctx context.Context, state pipeline.State) ([]pipeline.Payment, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, destination, amount_kind, amount_value, amount_currency, amount_issuer, memo, sequence, signed_artifact
		FROM payments
		WHERE state = $1
		ORDER BY id ASC
	`, int(state))
	if err != nil {
		return nil, fmt.Errorf("postgres: list state %s: %w", state, err)
	}
	defer rows.Close()

	var out []pipeline.Payment
	for rows.Next() {
		var p pipeline.Payment
		var kind int
		if err := rows.Scan(&p.ID, &p.Destination, &kind, &p.Amount.Value, &p.Amount.Currency, &p.Amount.Issuer, &p.Memo, &p.Sequence, &p.SignedArtifact); err != nil {
			return nil, fmt.Errorf("postgres: scan %s row: %w", state, err)
		}
		p.Amount.Kind = pipeline.AmountKind(kind)
		p.State = state
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) MarkSigned(ctx context.Context, id int64, sequence int64, artifact []byte) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE payments SET state = $1, sequence = $2, signed_artifact = $3
		WHERE id = $4 AND state = $5
	`, int(pipeline.StateSigned), sequence, artifact, id, int(pipeline.StatePending))
	if err != nil {
		return fmt.Errorf("postgres: mark payment %d signed: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: payment %d is not pending", id)
	}
	return nil
}

func (s *Store) MarkSubmitted(ctx context.Context, id int64) error {
	now := time.Now()
	tag, err := s.pool.Exec(ctx, `
		UPDATE payments SET state = $1, submitted_at = $2
		WHERE id = $3 AND state = $4
	`, int(pipeline.StateSubmitted), now, id, int(pipeline.StateSigned))
	if err != nil {
		return fmt.Errorf("postgres: mark payment %d submitted: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: payment %d is not signed", id)
	}
	return nil
}

func (s *Store) MarkConfirmed(ctx context.Context, id int64) error {
	now := time.Now()
	tag, err := s.pool.Exec(ctx, `
		UPDATE payments SET state = $1, confirmed_at = $2
		WHERE id = $3 AND state = $4
	`, int(pipeline.StateConfirmed), now, id, int(pipeline.StateSubmitted))
	if err != nil {
		return fmt.Errorf("postgres: mark payment %d confirmed: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: payment %d is not submitted", id)
	}
	return nil
}

func (s *Store) MarkError(ctx context.Context, id int64, kind pipeline.ErrorKind, fatal bool) error {
	state := pipeline.StateError
	tag, err := s.pool.Exec(ctx, `
		UPDATE payments SET state = $1, error_kind = $2, fatal = $3
		WHERE id = $4 AND state NOT IN ($5, $6, $7)
	`, int(state), string(kind), fatal, id, int(pipeline.StateConfirmed), int(pipeline.StateError), int(pipeline.StateAborted))
	if err != nil {
		return fmt.Errorf("postgres: mark payment %d errored: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: payment %d is already terminal", id)
	}
	return nil
}

func (s *Store) IsAborted(ctx context.Context, id int64) (bool, error) {
	state, err := s.PaymentState(ctx, id)
	if err != nil {
		return false, err
	}
	return state == pipeline.StateAborted, nil
}

// PaymentState returns a payment's current lifecycle state. Not part of the
// pipeline.Store contract; exposed for operator tooling and tests that need
// to observe a row's terminal state directly rather than inferring it from
// which queue the row is absent from.
func (s *Store) PaymentState(ctx context.Context, id int64) (pipeline.State, error) {
	var state int
	err := s.pool.QueryRow(ctx, `SELECT state FROM payments WHERE id = $1`, id).Scan(&state)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("postgres: payment %d not found", id)
	}
	if err != nil {
		return 0, fmt.Errorf("postgres: payment state %d: %w", id, err)
	}
	return pipeline.State(state), nil
}

func (s *Store) HighestSequence(ctx context.Context) (int64, bool, error) {
	var seq *int64
	err := s.pool.QueryRow(ctx, `
		SELECT max(sequence) FROM payments WHERE state >= $1
	`, int(pipeline.StateSigned)).Scan(&seq)
	if err != nil {
		return 0, false, fmt.Errorf("postgres: highest sequence: %w", err)
	}
	if seq == nil {
		return 0, false, nil
	}
	return *seq, true, nil
}

// ClearSignedFrom demotes every Signed/Submitted row with id >= fromID back
// to Pending in a single transaction, the way finalize() in the reconcile
// worker combines UpsertPayment and MarkEventProcessed into one atomic
// pgx.Tx.
func (s *Store) ClearSignedFrom(ctx context.Context, fromID int64) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("postgres: begin clear-signed-from tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
		UPDATE payments
		SET state = $1, sequence = NULL, signed_artifact = NULL
		WHERE id >= $2 AND state IN ($3, $4)
	`, int(pipeline.StatePending), fromID, int(pipeline.StateSigned), int(pipeline.StateSubmitted))
	if err != nil {
		return fmt.Errorf("postgres: clear signed from %d: %w", fromID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit clear-signed-from tx: %w", err)
	}
	s.l.Warn("cleared signed rows for resign", "from_id", fromID, "rows_affected", tag.RowsAffected())
	return nil
}
