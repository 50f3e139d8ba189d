// Package domain holds the retention sweep types and ports
package domain

import (
	"time"

	ingdom "tally/internal/services/ingest/domain"
)

// Deleted lists the ids removed from one table
type Deleted struct {
	Table string
	IDs   []int64
}

// Report is the outcome of one sweep. Deleted holds the fact table first, then
// the dimensions in Targets order
type Report struct {
	RunID   string
	MaxAge  time.Duration
	Cutoff  time.Time
	Deleted []Deleted

	// Skipped is set when another sweeper held the lease
	Skipped bool
	// MirrorPruned is set when the clickhouse mirror was pruned too
	MirrorPruned bool
	Elapsed      time.Duration
}

// Count returns how many rows were removed from table
func (r Report) Count(table string) int {
	for _, d := range r.Deleted {
		if d.Table == table {
			return len(d.IDs)
		}
	}
	return 0
}

// Total returns how many rows were removed across every table
func (r Report) Total() int {
	n := 0
	for _, d := range r.Deleted {
		n += len(d.IDs)
	}
	return n
}

// Targets are the dimensions swept for orphans once facts are purged
func Targets() []ingdom.Dimension {
	return []ingdom.Dimension{ingdom.Customer, ingdom.RatePlan, ingdom.ServiceType}
}
