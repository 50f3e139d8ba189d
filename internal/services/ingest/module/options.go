package module

import (
	"time"

	"tally/internal/adapters/ingest/usagecsv"
	"tally/internal/core/cleaning"
	"tally/internal/platform/config"
	pstrings "tally/internal/platform/strings"
	"tally/internal/services/ingest/domain"
	"tally/internal/services/ingest/repo"
	"tally/internal/services/retention/guardrails"
)

// Options holds configuration options for the ingest service
type Options struct {
	File      string
	ChunkSize int
	Header    bool
	Delimiter rune
	ErrorDir  string
	DryRun    bool

	// Cleaning rules
	IntColumns      []string
	DateColumns     []string
	CurrencyColumns []string
	TextColumns     []string
	MaxFraction     int
	MaxWhole        int
	NullTokens      []string

	// Dimension race retry
	DimRetries int
	RetryBase  time.Duration

	// ClickHouse mirror
	CHMirror bool
	CHTable  string

	// SweepLock holds the retention lease shared for the run; LeaseKey must match
	// CORE_RETENTION_LEASE_KEY
	SweepLock bool
	LeaseKey  string
}

// FromConfig reads the ingest options from config with CORE_INGEST_ prefix
func FromConfig(cfg config.Conf) Options {
	in := cfg.Prefix("CORE_INGEST_")
	return Options{
		File:      in.MayString("FILE", "usage.csv"),
		ChunkSize: in.MayPositiveInt("CHUNK_SIZE", usagecsv.DefaultChunkSize),
		Header:    in.MayBool("HEADER", true),
		Delimiter: in.MayRune("DELIMITER", ','),
		ErrorDir:  in.MayString("ERROR_DIR", "."),
		DryRun:    in.MayBool("DRY_RUN", false),

		IntColumns: pstrings.Dedupe(in.MayCSV("INT_COLUMNS", []string{
			domain.ColCustomerID, domain.ColRatePlanID, domain.ColBillingFlag1, domain.ColBillingFlag2, domain.ColDuration,
		})),
		DateColumns:     pstrings.Dedupe(in.MayCSV("DATE_COLUMNS", []string{domain.ColEventStart})),
		CurrencyColumns: pstrings.Dedupe(in.MayCSV("CURRENCY_COLUMNS", []string{domain.ColCharge})),
		TextColumns:     pstrings.Dedupe(in.MayCSV("TEXT_COLUMNS", []string{domain.ColServiceType, domain.ColMonth})),
		MaxFraction:     in.MayPositiveInt("MAX_FRACTION", cleaning.DefaultMaxFraction),
		MaxWhole:        in.MayPositiveInt("MAX_WHOLE_DIGITS", cleaning.DefaultMaxWhole),
		NullTokens:      pstrings.Dedupe(in.MayCSV("NULL_TOKENS", nil)),

		DimRetries: in.MayPositiveInt("DIM_RETRIES", 5),
		RetryBase:  in.MayDuration("RETRY_BASE", 100*time.Millisecond),

		CHMirror: in.MayBool("CH_MIRROR", false),
		CHTable:  in.MayString("CH_TABLE", repo.DefaultMirrorTable),

		SweepLock: in.MayBool("SWEEP_LOCK", true),
		LeaseKey:  in.MayString("LEASE_KEY", guardrails.DefaultLeaseKey),
	}
}

// CleaningConfig returns the cleaner rule groups
func (o Options) CleaningConfig() cleaning.Config {
	return cleaning.Config{
		IntColumns:      o.IntColumns,
		DateColumns:     o.DateColumns,
		CurrencyColumns: o.CurrencyColumns,
		TextColumns:     o.TextColumns,
		MaxFraction:     o.MaxFraction,
		MaxWhole:        o.MaxWhole,
		NullTokens:      o.NullTokens,
	}
}

// ReaderOptions returns the csv reader settings. Without a header the columns
// are taken to be in the usage file order
func (o Options) ReaderOptions() usagecsv.Options {
	opt := usagecsv.Options{Delimiter: o.Delimiter, Header: o.Header, ChunkSize: o.ChunkSize}
	if !o.Header {
		opt.Columns = domain.Columns
	}
	return opt
}
