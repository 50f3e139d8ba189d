// Package domain defines the core types and interfaces for the ingest service
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Input column names, in file order
const (
	ColCustomerID   = "customer_id"
	ColEventStart   = "event_start_time"
	ColServiceType  = "service_type"
	ColRatePlanID   = "rate_plan_id"
	ColBillingFlag1 = "billing_flag_1"
	ColBillingFlag2 = "billing_flag_2"
	ColDuration     = "duration"
	ColCharge       = "charge"
	ColMonth        = "month"
)

// Columns is the expected input header
var Columns = []string{
	ColCustomerID, ColEventStart, ColServiceType, ColRatePlanID,
	ColBillingFlag1, ColBillingFlag2, ColDuration, ColCharge, ColMonth,
}

// CleanRecord is a usage row that passed every cleaning stage
type CleanRecord struct {
	Line         int
	CustomerID   int64
	EventStart   time.Time
	ServiceType  string
	RatePlanID   int64
	BillingFlag1 int64
	BillingFlag2 int64
	Duration     int64
	Charge       decimal.Decimal
	Month        string
}

// Fact is one event row ready for insert; the fk fields are filled by dimension resolution
type Fact struct {
	CustomerFK    int64           `db:"customer_fk" validate:"gt=0"`
	StartDate     time.Time       `db:"start_date" validate:"required"`
	ServiceTypeFK int64           `db:"service_type_fk" validate:"gt=0"`
	RatePlanFK    int64           `db:"rate_plan_fk" validate:"gt=0"`
	BillingFlag1  int64           `db:"billing_flag_1"`
	BillingFlag2  int64           `db:"billing_flag_2"`
	Duration      int64           `db:"duration"`
	Charge        decimal.Decimal `db:"charge"`
	Month         string          `db:"month" validate:"required"`
}

// FactFrom copies the attributes of r; fks stay zero until resolved
func FactFrom(r CleanRecord) Fact {
	return Fact{
		StartDate:    r.EventStart,
		BillingFlag1: r.BillingFlag1,
		BillingFlag2: r.BillingFlag2,
		Duration:     r.Duration,
		Charge:       r.Charge,
		Month:        r.Month,
	}
}

// MirrorRow is the analytics copy of an inserted fact, natural keys included
type MirrorRow struct {
	EventID     int64
	Fact        Fact
	CustomerID  int64
	ServiceType string
	RatePlanID  int64
	RunID       string
	CreatedAt   time.Time
}

// TableCount is a per table tally kept in first-touched order
type TableCount struct {
	Table string
	Rows  int
}

// ChunkReport summarizes one processed chunk
type ChunkReport struct {
	Chunk      int
	Read       int
	Clean      int
	Rejected   int
	RejectFile string
	// Created holds dimension rows created per table
	Created []TableCount
	// Inserted is the number of fact rows written
	Inserted int
	Elapsed  time.Duration
}

// RunReport summarizes a whole file
type RunReport struct {
	RunID    string
	File     string
	DryRun   bool
	Chunks   int
	Read     int
	Clean    int
	Rejected int
	// Malformed counts lines the reader could not split into fields; they are part of Rejected
	Malformed int
	// Inserted holds rows written per table, dimensions first then the fact table
	Inserted    []TableCount
	RejectFiles []string
	Elapsed     time.Duration
}

// Add folds n rows for table into counts, keeping first-touched order
func Add(counts []TableCount, table string, n int) []TableCount {
	for i := range counts {
		if counts[i].Table == table {
			counts[i].Rows += n
			return counts
		}
	}
	return append(counts, TableCount{Table: table, Rows: n})
}

// Count returns the tally for table or 0
func Count(counts []TableCount, table string) int {
	for _, c := range counts {
		if c.Table == table {
			return c.Rows
		}
	}
	return 0
}
