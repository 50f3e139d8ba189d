package domain

import (
	"context"

	"tally/internal/adapters/ingest/usagecsv"
	"tally/internal/core/cleaning"
)

// RunnerPort is the public port exposed by the module
type RunnerPort interface {
	Run(ctx context.Context, path string) (RunReport, error)
}

// DimensionRepo reads and grows one dimension table at a time
type DimensionRepo interface {
	// Mapping returns natural key -> surrogate id for every row of the table
	Mapping(ctx context.Context, dim Dimension) (map[any]int64, error)

	// InsertKeys adds keys, skipping the ones already present, and returns the ids it created
	InsertKeys(ctx context.Context, dim Dimension, keys []any) ([]int64, error)
}

// FactRepo writes event rows
type FactRepo interface {
	// InsertFacts writes every fact in one statement and returns the new ids in input order
	InsertFacts(ctx context.Context, facts []Fact) ([]int64, error)
}

// StorageRepo is the postgres surface the service binds per transaction
type StorageRepo interface {
	DimensionRepo
	FactRepo
}

// MirrorRepo appends inserted facts to the analytics store
type MirrorRepo interface {
	MirrorEvents(ctx context.Context, rows []MirrorRow) error
}

// ChunkSource yields the chunks of one input file
type ChunkSource interface {
	Columns() []string
	Next(ctx context.Context) (usagecsv.Chunk, error)
	Close() error
	Stats() (chunks, rows, malformed int)
}

// LeaseFunc runs do while holding the lease that keeps retention sweeps out
type LeaseFunc func(ctx context.Context, do func(context.Context) error) error

// SourceOpener opens path as a ChunkSource
type SourceOpener func(path string) (ChunkSource, error)

// RejectSink exports the rejected rows of a chunk and returns where they went
type RejectSink interface {
	Write(chunk int, rejected []cleaning.Rejected) (string, error)
}
