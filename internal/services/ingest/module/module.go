// Package module provides the ingest module implementation
package module

import (
	"tally/internal/adapters/ingest/usagecsv"
	"tally/internal/core/cleaning"
	"tally/internal/modkit"
	"tally/internal/platform/logger"
	"tally/internal/services/ingest/domain"
	"tally/internal/services/ingest/repo"
	"tally/internal/services/ingest/service"
	"tally/internal/services/retention/guardrails"
)

// Ports defines the ingest module ports
type Ports struct {
	Runner domain.RunnerPort
}

// Module implements the ingest module
type Module struct {
	deps  modkit.Deps
	opts  Options
	ports Ports
}

var _ modkit.Module = (*Module)(nil)

// New constructs the ingest module
// It wires the csv reader, reject files, cleaner and store using config from deps.Cfg
func New(deps modkit.Deps) *Module {
	opts := FromConfig(deps.Cfg)

	// DB binder (no deps passed into repo)
	storeBinder := repo.NewPG()

	readerOpts := opts.ReaderOptions()
	open := func(path string) (domain.ChunkSource, error) {
		rd, err := usagecsv.Open(path, readerOpts)
		if err != nil {
			return nil, err
		}
		return rd, nil
	}
	sinks := func(stamp string, columns []string) domain.RejectSink {
		return usagecsv.RejectsWriter{Dir: opts.ErrorDir, Stamp: stamp, Columns: columns, Delimiter: opts.Delimiter}
	}

	var mirror domain.MirrorRepo
	if opts.CHMirror {
		if deps.HasCH() {
			mirror = repo.NewCH(deps.CH, opts.CHTable)
		} else {
			logger.Get().Warn().Msg("ingest: clickhouse mirror requested but clickhouse is not enabled")
		}
	}

	svc := service.New(
		deps.PG, storeBinder,
		open, cleaning.New(opts.CleaningConfig()), sinks, mirror,
		service.Config{
			DryRun:     opts.DryRun,
			MaxRetries: opts.DimRetries,
			RetryBase:  opts.RetryBase,
			Job:        deps.Job,
		},
	)

	if opts.SweepLock && deps.PG != nil {
		svc.Lease = guardrails.MakeSharedLease(deps, opts.LeaseKey)
	}

	return &Module{deps: deps, opts: opts, ports: Ports{Runner: svc}}
}

// Name returns the module name
func (m *Module) Name() string { return "ingest" }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

// Options returns the options the module was built with
func (m *Module) Options() Options { return m.opts }
