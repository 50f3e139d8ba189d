// Package guardrails keeps a retention sweep from overlapping another sweep or an ingest run
package guardrails

import (
	"context"
	"errors"

	"tally/internal/modkit"
	"tally/internal/modkit/repokit"
	perr "tally/internal/platform/errors"
	"tally/internal/platform/store"
	"tally/internal/services/retention/domain"
)

// ErrLeaseHeld signals another sweeper owns the lease
var ErrLeaseHeld = errors.New("retention: sweep lease already held")

// DefaultLeaseKey names the advisory lock taken by sweepers and ingest runs
const DefaultLeaseKey = "tally-retention"

// TryLockHook takes a transaction scoped advisory lock on key, or returns ErrLeaseHeld
func TryLockHook(key string) repokit.BeginHook {
	return func(ctx context.Context, q repokit.Queryer) error {
		ok, err := store.Scalar[bool](ctx, q, `SELECT pg_try_advisory_xact_lock(hashtext($1))`, key)
		if err != nil {
			return perr.FromPostgresf(err, "retention: lease %s", key)
		}
		if !ok {
			return ErrLeaseHeld
		}
		return nil
	}
}

// SharedLockHook waits for a shared hold on key. Shared holders run side by side and
// keep TryLockHook from granting the lease until they all finish
func SharedLockHook(key string) repokit.BeginHook {
	return func(ctx context.Context, q repokit.Queryer) error {
		if _, err := q.Exec(ctx, `SELECT pg_advisory_xact_lock_shared(hashtext($1))`, key); err != nil {
			return perr.FromPostgresf(err, "lease %s: shared hold", key)
		}
		return nil
	}
}

// MakeAdvisoryLease returns a lease that holds a transaction open on its own pooled
// connection while do runs. The lock goes away with the transaction, so a crashed
// sweeper never leaves it behind. The pool needs one connection more than the
// sweep workers
func MakeAdvisoryLease(deps modkit.Deps, key string) domain.LeaseFunc {
	return holdWith(deps.PG, TryLockHook(keyOr(key)))
}

// MakeSharedLease returns the lease of an ingest run. It waits out a sweep in progress,
// and a sweep that starts meanwhile finds the lease held and skips, so dimension rows
// created by the run cannot be swept as orphans before its facts land
func MakeSharedLease(deps modkit.Deps, key string) func(context.Context, func(context.Context) error) error {
	return holdWith(deps.PG, SharedLockHook(keyOr(key)))
}

func keyOr(key string) string {
	if key == "" {
		return DefaultLeaseKey
	}
	return key
}

func holdWith(pg repokit.TxRunner, hook repokit.BeginHook) domain.LeaseFunc {
	db := repokit.WithBeginHooks(pg, hook)
	return func(ctx context.Context, do func(context.Context) error) error {
		return db.Tx(ctx, func(repokit.Queryer) error { return do(ctx) })
	}
}
