package domain

import (
	"time"

	"tally/internal/core/cleaning"
	perr "tally/internal/platform/errors"
	"tally/internal/platform/validate"

	"github.com/shopspring/decimal"
)

// RecordsFromBatch converts the coerced rows of a clean batch into records.
// A value of the wrong Go type means the cleaner was misconfigured and is an internal error
func RecordsFromBatch(b cleaning.Batch) ([]CleanRecord, error) {
	idx := make(map[string]int, len(Columns))
	for _, c := range Columns {
		i := b.Index(c)
		if i < 0 {
			return nil, perr.WithField(perr.Internalf("ingest: column %q missing from clean batch", c), c)
		}
		idx[c] = i
	}

	out := make([]CleanRecord, 0, b.Len())
	for _, row := range b.Rows {
		c := rowCursor{row: row, idx: idx}
		rec := CleanRecord{
			Line:         row.Line,
			CustomerID:   c.i64(ColCustomerID),
			EventStart:   c.ts(ColEventStart),
			ServiceType:  c.str(ColServiceType),
			RatePlanID:   c.i64(ColRatePlanID),
			BillingFlag1: c.i64(ColBillingFlag1),
			BillingFlag2: c.i64(ColBillingFlag2),
			Duration:     c.i64(ColDuration),
			Charge:       c.dec(ColCharge),
			Month:        c.str(ColMonth),
		}
		if c.err != nil {
			return nil, c.err
		}
		out = append(out, rec)
	}
	return out, nil
}

// rowCursor reads typed values and keeps the first mismatch
type rowCursor struct {
	row cleaning.Row
	idx map[string]int
	err error
}

func (c *rowCursor) value(col string) any {
	i := c.idx[col]
	if i >= len(c.row.Values) {
		return nil
	}
	return c.row.Values[i]
}

func (c *rowCursor) fail(col string, v any, want string) {
	if c.err == nil {
		c.err = perr.WithField(perr.Internalf("ingest: line %d column %s holds %T, want %s", c.row.Line, col, v, want), col)
	}
}

func (c *rowCursor) i64(col string) int64 {
	v := c.value(col)
	n, ok := v.(int64)
	if !ok {
		c.fail(col, v, "int64")
	}
	return n
}

func (c *rowCursor) str(col string) string {
	v := c.value(col)
	s, ok := v.(string)
	if !ok {
		c.fail(col, v, "string")
	}
	return s
}

func (c *rowCursor) ts(col string) time.Time {
	v := c.value(col)
	t, ok := v.(time.Time)
	if !ok {
		c.fail(col, v, "time.Time")
	}
	return t
}

func (c *rowCursor) dec(col string) decimal.Decimal {
	v := c.value(col)
	d, ok := v.(decimal.Decimal)
	if !ok {
		c.fail(col, v, "decimal.Decimal")
	}
	return d
}

// ValidateFacts checks every fact before insert. Resolution should have made
// them valid, so a failure is an internal error carrying the translated message
func ValidateFacts(facts []Fact) error {
	for i := range facts {
		if err := validate.Struct(facts[i]); err != nil {
			field := ""
			if e, ok := perr.As(err); ok {
				field = e.Field()
			}
			return perr.WithField(perr.Wrapf(err, perr.ErrorCodeInternal, "ingest: fact %d is invalid", i), field)
		}
	}
	return nil
}
