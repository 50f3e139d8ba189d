// Package cleaning validates and coerces raw usage rows column by column.
// Rules are pure: they never mutate the batch they are given and every row
// leaves a rule either accepted (with a coerced value) or rejected with one reason
package cleaning

// Row is one ingested record
type Row struct {
	// Line is the 1-based data line in the source file (header excluded)
	Line int
	// Raw holds the values as read; never mutated and exported verbatim on rejection
	Raw []any
	// Values is the working copy coerced stage by stage
	Values []any
}

// NewRow builds a row whose working values start as a copy of raw
func NewRow(line int, raw []any) Row {
	return Row{Line: line, Raw: raw, Values: append([]any(nil), raw...)}
}

// withValue returns a copy of r whose Values slice is cloned before the write
func (r Row) withValue(i int, v any) Row {
	vals := append([]any(nil), r.Values...)
	vals[i] = v
	r.Values = vals
	return r
}

// Batch is a chunk of rows sharing one header
type Batch struct {
	Columns []string
	Rows    []Row
}

// Len returns the number of rows
func (b Batch) Len() int { return len(b.Rows) }

// Index returns the position of column or -1
func (b Batch) Index(column string) int {
	for i, c := range b.Columns {
		if c == column {
			return i
		}
	}
	return -1
}

// Value returns the working value of column in row, or nil when the column is unknown
func (b Batch) Value(row Row, column string) any {
	i := b.Index(column)
	if i < 0 || i >= len(row.Values) {
		return nil
	}
	return row.Values[i]
}

// with returns a batch with the same header and the given rows
func (b Batch) with(rows []Row) Batch { return Batch{Columns: b.Columns, Rows: rows} }

// Rejected is a row that failed a stage
type Rejected struct {
	Line   int
	Raw    []any
	Reason string
	Stage  string
}

func reject(r Row, stage, reason string) Rejected {
	return Rejected{Line: r.Line, Raw: r.Raw, Reason: reason, Stage: stage}
}

// Rule validates columns of a batch and splits it into accepted and rejected rows
type Rule func(b Batch, columns []string) (clean Batch, rejected []Rejected)

// targets resolves columns to indexes, dropping unknown names and repeats
func (b Batch) targets(columns []string) []int {
	seen := make(map[string]struct{}, len(columns))
	out := make([]int, 0, len(columns))
	for _, c := range columns {
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		if i := b.Index(c); i >= 0 {
			out = append(out, i)
		}
	}
	return out
}

// perColumn runs check over each target column in sequence; rows rejected by an
// earlier column are not seen by later ones
func perColumn(b Batch, columns []string, stage string, check func(v any) (any, string, bool)) (Batch, []Rejected) {
	rows := append([]Row(nil), b.Rows...)
	var rejected []Rejected
	for _, idx := range b.targets(columns) {
		kept := make([]Row, 0, len(rows))
		for _, r := range rows {
			if idx >= len(r.Values) {
				rejected = append(rejected, reject(r, stage, "missing value"))
				continue
			}
			coerced, reason, ok := check(r.Values[idx])
			if !ok {
				rejected = append(rejected, reject(r, stage, reason))
				continue
			}
			kept = append(kept, r.withValue(idx, coerced))
		}
		rows = kept
	}
	if rows == nil {
		rows = []Row{}
	}
	return b.with(rows), rejected
}
