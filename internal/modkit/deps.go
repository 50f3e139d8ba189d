// Package modkit provides module wiring and core deps
package modkit

import (
	"tally/internal/modkit/repokit"
	"tally/internal/platform/config"
	"tally/internal/platform/logger"
	"tally/internal/platform/store"
)

// Deps holds core dependencies passed to modules
// this is wiring only and does not introduce new abstractions
type Deps struct {
	Log logger.Logger
	Cfg config.Conf
	PG  repokit.TxRunner
	CH  store.Clickhouse

	// Job labels metrics recorded by the module, e.g. "tally-ingest"
	Job string
}

// FromStore copies the opened backends of s into deps
func FromStore(s *store.Store, cfg config.Conf, job string) Deps {
	d := Deps{Cfg: cfg, Job: job}
	if s != nil {
		d.Log = s.Log
		d.PG = s.PG
		d.CH = s.CH
	}
	return d
}

// ZeroOK returns true when deps are safe to use with zero values in tests
// consumers should still nil check for optional stores
func (d Deps) ZeroOK() bool { return true }

// HasCH reports whether the clickhouse mirror is wired
func (d Deps) HasCH() bool { return d.CH != nil }
