package domain

import (
	"context"
	"time"

	ingdom "tally/internal/services/ingest/domain"
)

// PurgerPort is the inbound port of the retention job
type PurgerPort interface {
	// Purge removes facts older than maxAge then the dimension rows no fact references
	Purge(ctx context.Context, maxAge time.Duration) (Report, error)
}

// StorageRepo is bound to one transaction
type StorageRepo interface {
	// PurgeFacts deletes facts created strictly before cutoff and returns their ids
	PurgeFacts(ctx context.Context, cutoff time.Time) ([]int64, error)
	// DeleteOrphans deletes rows of dim no fact points at and returns their ids
	DeleteOrphans(ctx context.Context, dim ingdom.Dimension) ([]int64, error)
}

// MirrorPruner drops expired rows from the analytics mirror
type MirrorPruner interface {
	PruneMirror(ctx context.Context, cutoff time.Time) error
}

// LeaseFunc runs do while holding the sweep lease; it returns guardrails.ErrLeaseHeld
// without calling do when another sweeper has it
type LeaseFunc func(ctx context.Context, do func(context.Context) error) error
