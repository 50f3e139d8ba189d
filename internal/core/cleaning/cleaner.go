package cleaning

import (
	"tally/internal/core/normalize"
	perr "tally/internal/platform/errors"
)

// Config names the column groups each rule family applies to
type Config struct {
	IntColumns      []string
	DateColumns     []string
	CurrencyColumns []string
	TextColumns     []string

	// MaxFraction is the allowed digits after the decimal point; <=0 means DefaultMaxFraction
	MaxFraction int
	// MaxWhole is the allowed digits before the decimal point; <=0 means DefaultMaxWhole
	MaxWhole int

	// NullTokens replaces DefaultNullTokens when non-empty
	NullTokens []string
}

// StageCount reports how many rows a stage saw, kept and rejected
type StageCount struct {
	Stage    string
	In       int
	Accepted int
	Rejected int
}

// Result is the outcome of cleaning one batch
type Result struct {
	Clean    Batch
	Rejected []Rejected
	Stages   []StageCount
}

type stage struct {
	name    string
	rule    Rule
	columns []string
}

// Cleaner applies missing, text, integer, timestamp and decimal rules in that order
type Cleaner struct {
	cfg    Config
	stages []stage
}

// New builds a Cleaner from cfg
func New(cfg Config) *Cleaner {
	if cfg.MaxFraction <= 0 {
		cfg.MaxFraction = DefaultMaxFraction
	}
	if cfg.MaxWhole <= 0 {
		cfg.MaxWhole = DefaultMaxWhole
	}
	if len(cfg.NullTokens) == 0 {
		cfg.NullTokens = DefaultNullTokens
	}
	return &Cleaner{
		cfg: cfg,
		stages: []stage{
			{name: StageMissing, rule: MissingTokens(cfg.NullTokens), columns: nil},
			{name: StageText, rule: Texts(normalize.New()), columns: cfg.TextColumns},
			{name: StageInteger, rule: Integers, columns: cfg.IntColumns},
			{name: StageTimestamp, rule: Timestamps, columns: cfg.DateColumns},
			{name: StageDecimal, rule: DecimalsBounded(cfg.MaxWhole, cfg.MaxFraction), columns: cfg.CurrencyColumns},
		},
	}
}

// Config returns the effective configuration
func (c *Cleaner) Config() Config { return c.cfg }

// Check verifies every configured column is present in header
func (c *Cleaner) Check(header []string) error {
	b := Batch{Columns: header}
	for _, group := range [][]string{c.cfg.IntColumns, c.cfg.DateColumns, c.cfg.CurrencyColumns, c.cfg.TextColumns} {
		for _, col := range group {
			if b.Index(col) < 0 {
				return perr.WithField(perr.InvalidArgf("cleaning: column %q is not in the input header", col), col)
			}
		}
	}
	return nil
}

// Clean runs every stage over b, forwarding only the rows each stage accepts.
// Rejections are concatenated in stage order so a row carries the reason of the
// first stage that failed it and appears once
func (c *Cleaner) Clean(b Batch) Result {
	res := Result{Stages: make([]StageCount, 0, len(c.stages))}
	cur := b
	for _, st := range c.stages {
		in := cur.Len()
		next, rejected := st.rule(cur, st.columns)
		res.Rejected = append(res.Rejected, rejected...)
		res.Stages = append(res.Stages, StageCount{
			Stage:    st.name,
			In:       in,
			Accepted: next.Len(),
			Rejected: len(rejected),
		})
		cur = next
	}
	res.Clean = cur
	return res
}
