// Package pg opens the pgxpool the repos run on, with optional query tracing
package pg

import (
	"context"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Config configures the pool
type Config struct {
	URL      string
	AppName  string // reported as application_name so DBAs can tell ingest from retention
	MaxConns int32
	MinConns int32
	SlowMs   int

	// StatementTimeout is applied server-side to every session; 0 leaves the server default
	StatementTimeout time.Duration
}

// PG bundles the pool with the tracer the store adapter emits to
type PG struct {
	Pool   *pgxpool.Pool
	Tracer QueryTracer
	SlowMs int
}

var newPool = pgxpool.NewWithConfig

// Open parses cfg, applies the optional mutator last, and builds the pool.
// pgxpool connects lazily; callers ping before publishing the client
func Open(ctx context.Context, cfg Config, tracer QueryTracer, poolCfgMut func(*pgxpool.Config)) (*PG, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, err
	}
	if cfg.MaxConns > 0 {
		pcfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 && cfg.MinConns <= pcfg.MaxConns {
		pcfg.MinConns = cfg.MinConns
	}
	applyRuntimeParams(pcfg, cfg)
	if poolCfgMut != nil {
		poolCfgMut(pcfg)
	}
	pool, err := newPool(ctx, pcfg)
	if err != nil {
		return nil, err
	}
	return &PG{
		Pool:   pool,
		Tracer: tracer,
		SlowMs: cfg.SlowMs,
	}, nil
}

func applyRuntimeParams(pcfg *pgxpool.Config, cfg Config) {
	rp := pcfg.ConnConfig.RuntimeParams
	if rp == nil {
		rp = map[string]string{}
		pcfg.ConnConfig.RuntimeParams = rp
	}
	if cfg.AppName != "" {
		rp["application_name"] = cfg.AppName
	}
	if cfg.StatementTimeout > 0 {
		rp["statement_timeout"] = strconv.FormatInt(cfg.StatementTimeout.Milliseconds(), 10)
	}
}

// Close closes the pool; nil safe
func (p *PG) Close() {
	if p != nil && p.Pool != nil {
		p.Pool.Close()
	}
}
