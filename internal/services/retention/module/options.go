package module

import (
	"time"

	"tally/internal/platform/config"
	ptime "tally/internal/platform/time"
	"tally/internal/services/ingest/repo"
	"tally/internal/services/retention/guardrails"
)

// Options holds configuration options for the retention service
type Options struct {
	DeleteAfterDays int
	Workers         int
	EnableLeases    bool
	LeaseKey        string

	// ClickHouse mirror prune
	CHPrune bool
	CHTable string
}

// FromConfig reads the retention options from config with CORE_RETENTION_ prefix.
// The mirror table is shared with ingest (CORE_INGEST_CH_TABLE)
func FromConfig(cfg config.Conf) Options {
	rt := cfg.Prefix("CORE_RETENTION_")
	return Options{
		DeleteAfterDays: rt.MayPositiveInt("DELETE_AFTER_DAYS", 180),
		Workers:         rt.MayPositiveInt("WORKERS", 3),
		EnableLeases:    rt.MayBool("LEASES", true),
		LeaseKey:        rt.MayString("LEASE_KEY", guardrails.DefaultLeaseKey),
		CHPrune:         rt.MayBool("CH_PRUNE", false),
		CHTable:         cfg.Prefix("CORE_INGEST_").MayString("CH_TABLE", repo.DefaultMirrorTable),
	}
}

// MaxAge is DeleteAfterDays as a duration
func (o Options) MaxAge() time.Duration { return ptime.Days(o.DeleteAfterDays) }
