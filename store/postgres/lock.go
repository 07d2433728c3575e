package postgres

import (
	"context"
	"fmt"
	"hash/fnv"
)

// driverLockKey derives a stable int64 advisory lock key from the funding
// address, so distinct funding accounts don't contend with each other's
// locks.
func driverLockKey(fundingAddress string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(fundingAddress))
	return int64(h.Sum64())
}

// TryAcquireDriverLock takes a session-level Postgres advisory lock keyed on
// fundingAddress, enforcing the single-driver-per-account rule across
// process restarts and multiple hosts, not just within one process's
// atomic.CompareAndSwapInt32 re-entrancy guard. The lock is held
// for the lifetime of conn; the caller must keep conn open for as long as
// the Driver runs and must not return it to a pool.
func (s *Store) TryAcquireDriverLock(ctx context.Context, fundingAddress string) (acquired bool, release func(context.Context) error, err error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return false, nil, fmt.Errorf("postgres: acquire conn for driver lock: %w", err)
	}

	key := driverLockKey(fundingAddress)
	var ok bool
	if err := conn.QueryRow(ctx, `SELECT pg_try_advisory_lock($1)`, key).Scan(&ok); err != nil {
		conn.Release()
		return false, nil, fmt.Errorf("postgres: pg_try_advisory_lock: %w", err)
	}
	if !ok {
		conn.Release()
		return false, nil, nil
	}

	release = func(ctx context.Context) error {
		defer conn.Release()
		_, err := conn.Exec(ctx, `SELECT pg_advisory_unlock($1)`, key)
		return err
	}
	return true, release, nil
}
