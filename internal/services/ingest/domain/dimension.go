package domain

import (
	"regexp"

	perr "tally/internal/platform/errors"
)

// FactTable is the event table every dimension is referenced from
const FactTable = "event"

// KeyType is the SQL type of a natural key
type KeyType string

// Supported natural key types
const (
	KeyBigint KeyType = "bigint"
	KeyText   KeyType = "text"
)

// Dimension describes one dimension table and how facts reference it
type Dimension struct {
	Table      string
	KeyColumn  string
	KeyType    KeyType
	FactColumn string

	// Key reads the natural key from a record: int64 for bigint, string for text
	Key func(CleanRecord) any
	// Assign stores the surrogate id on a fact
	Assign func(*Fact, int64)
}

var (
	// Customer is keyed by customer_id
	Customer = Dimension{
		Table: "customer", KeyColumn: "customer_id", KeyType: KeyBigint, FactColumn: "customer_fk",
		Key:    func(r CleanRecord) any { return r.CustomerID },
		Assign: func(f *Fact, id int64) { f.CustomerFK = id },
	}
	// ServiceType is keyed by the normalized service_type label
	ServiceType = Dimension{
		Table: "service", KeyColumn: "service_type", KeyType: KeyText, FactColumn: "service_type_fk",
		Key:    func(r CleanRecord) any { return r.ServiceType },
		Assign: func(f *Fact, id int64) { f.ServiceTypeFK = id },
	}
	// RatePlan is keyed by rate_plan_id
	RatePlan = Dimension{
		Table: "plan", KeyColumn: "rate_plan_id", KeyType: KeyBigint, FactColumn: "rate_plan_fk",
		Key:    func(r CleanRecord) any { return r.RatePlanID },
		Assign: func(f *Fact, id int64) { f.RatePlanFK = id },
	}
)

// Dimensions lists the dimensions in resolution order
func Dimensions() []Dimension { return []Dimension{Customer, ServiceType, RatePlan} }

var identRe = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Validate checks the descriptor before any of its names reach SQL
func (d Dimension) Validate() error {
	for _, n := range []string{d.Table, d.KeyColumn, d.FactColumn} {
		if !identRe.MatchString(n) {
			return perr.Internalf("ingest: bad identifier %q in dimension %q", n, d.Table)
		}
	}
	if d.KeyType != KeyBigint && d.KeyType != KeyText {
		return perr.Internalf("ingest: dimension %q has unsupported key type %q", d.Table, d.KeyType)
	}
	if d.Key == nil || d.Assign == nil {
		return perr.Internalf("ingest: dimension %q is missing accessors", d.Table)
	}
	return nil
}

// CastKeys turns natural keys into the typed slice the key type binds as:
// []int64 for bigint, []string for text. A key of any other Go type is an internal error
func (d Dimension) CastKeys(keys []any) (any, error) {
	switch d.KeyType {
	case KeyBigint:
		out := make([]int64, len(keys))
		for i, k := range keys {
			n, ok := k.(int64)
			if !ok {
				return nil, perr.WithField(perr.Internalf("ingest: %s key %v is %T, want int64", d.Table, k, k), d.KeyColumn)
			}
			out[i] = n
		}
		return out, nil
	case KeyText:
		out := make([]string, len(keys))
		for i, k := range keys {
			s, ok := k.(string)
			if !ok {
				return nil, perr.WithField(perr.Internalf("ingest: %s key %v is %T, want string", d.Table, k, k), d.KeyColumn)
			}
			out[i] = s
		}
		return out, nil
	default:
		return nil, perr.Internalf("ingest: dimension %q has unsupported key type %q", d.Table, d.KeyType)
	}
}
