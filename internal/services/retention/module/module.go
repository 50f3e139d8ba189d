// Package module provides the retention module implementation
package module

import (
	"tally/internal/modkit"
	"tally/internal/platform/logger"
	"tally/internal/services/retention/domain"
	"tally/internal/services/retention/guardrails"
	"tally/internal/services/retention/repo"
	"tally/internal/services/retention/service"
)

// Ports defines the retention module ports
type Ports struct {
	Purger domain.PurgerPort
}

// Module implements the retention module
type Module struct {
	deps  modkit.Deps
	opts  Options
	ports Ports
}

var _ modkit.Module = (*Module)(nil)

// New constructs the retention module using config from deps.Cfg
func New(deps modkit.Deps) *Module {
	opts := FromConfig(deps.Cfg)

	var mirror domain.MirrorPruner
	if opts.CHPrune {
		if deps.HasCH() {
			mirror = repo.NewCH(deps.CH, opts.CHTable)
		} else {
			logger.Get().Warn().Msg("retention: mirror prune requested but clickhouse is not enabled")
		}
	}

	var lease domain.LeaseFunc
	if opts.EnableLeases && deps.PG != nil {
		lease = guardrails.MakeAdvisoryLease(deps, opts.LeaseKey)
	}

	svc := service.New(
		deps.PG, repo.NewPG(), mirror,
		service.Config{
			Workers:      opts.Workers,
			EnableLeases: opts.EnableLeases,
			Job:          deps.Job,
		},
		lease,
	)

	return &Module{deps: deps, opts: opts, ports: Ports{Purger: svc}}
}

// Name returns the module name
func (m *Module) Name() string { return "retention" }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

// Options returns the options the module was built with
func (m *Module) Options() Options { return m.opts }
