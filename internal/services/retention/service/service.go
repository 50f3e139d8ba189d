// Package service provides the retention sweep
package service

import (
	"context"
	"errors"
	"time"

	"tally/internal/modkit/repokit"
	perr "tally/internal/platform/errors"
	"tally/internal/platform/logger"
	"tally/internal/platform/metrics"
	pstrings "tally/internal/platform/strings"
	ptime "tally/internal/platform/time"
	ingdom "tally/internal/services/ingest/domain"
	"tally/internal/services/retention/domain"
	"tally/internal/services/retention/guardrails"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Config controls the sweep
type Config struct {
	// Workers bounds the concurrent orphan sweeps; <=0 -> one per dimension
	Workers int

	// EnableLeases takes the shared advisory lease around the sweep
	EnableLeases bool

	// Job labels metrics
	Job string
}

// Service implements domain.PurgerPort
type Service struct {
	DB     repokit.TxRunner
	Binder repokit.Binder[domain.StorageRepo]
	Mirror domain.MirrorPruner
	Cfg    Config

	// Lease runs do while holding the sweep lease (optional)
	Lease domain.LeaseFunc
}

var _ domain.PurgerPort = (*Service)(nil)

// New constructs the retention service; mirror and lease may be nil
func New(
	db repokit.TxRunner,
	binder repokit.Binder[domain.StorageRepo],
	mirror domain.MirrorPruner,
	cfg Config,
	lease domain.LeaseFunc,
) *Service {
	if db == nil {
		panic("retention.Service requires a non nil TxRunner")
	}
	if binder == nil {
		panic("retention.Service requires a non nil Repo binder")
	}
	return &Service{DB: db, Binder: binder, Mirror: mirror, Cfg: cfg, Lease: lease}
}

// Purge deletes facts created more than maxAge ago, then every dimension row left
// without a fact. The fact purge commits before any orphan sweep starts
func (s *Service) Purge(ctx context.Context, maxAge time.Duration) (rep domain.Report, retErr error) {
	start := time.Now()
	if maxAge <= 0 {
		return rep, perr.InvalidArgf("retention: max age must be positive, got %s", maxAge)
	}
	runID := logger.RunID(ctx)
	if runID == "" {
		runID = uuid.NewString()
		ctx = logger.WithRun(ctx, runID)
	}
	rep = domain.Report{RunID: runID, MaxAge: maxAge, Cutoff: ptime.Cutoff(ptime.Now(), maxAge)}
	log := logger.C(ctx)

	defer func() {
		rep.Elapsed = time.Since(start)
		metrics.RecordStep(s.Cfg.Job, "purge", retErr, rep.Elapsed)
	}()

	log.Info().Time("cutoff", rep.Cutoff).Dur("max_age", maxAge).Msg("retention: sweep started")

	run := func(ctx context.Context) error {
		deleted, err := s.sweep(ctx, rep.Cutoff)
		rep.Deleted = deleted
		if err != nil {
			return err
		}
		rep.MirrorPruned = s.pruneMirror(ctx, rep.Cutoff)
		return nil
	}

	if s.Lease != nil && s.Cfg.EnableLeases {
		if err := s.Lease(ctx, run); err != nil {
			if errors.Is(err, guardrails.ErrLeaseHeld) {
				log.Info().Msg("retention: lease not acquired; clean skip")
				rep.Skipped = true
				return rep, nil
			}
			log.Error().Err(err).Msg("retention: sweep failed")
			return rep, err
		}
	} else if err := run(ctx); err != nil {
		log.Error().Err(err).Msg("retention: sweep failed")
		return rep, err
	}

	log.Info().
		Int("deleted", rep.Total()).
		Bool("mirror_pruned", rep.MirrorPruned).
		Dur("elapsed", time.Since(start)).
		Msg("retention: sweep finished")
	return rep, nil
}

// sweep purges facts, then fans the orphan deletes out over a bounded errgroup.
// Each delete is its own short transaction
func (s *Service) sweep(ctx context.Context, cutoff time.Time) ([]domain.Deleted, error) {
	targets := domain.Targets()
	out := make([]domain.Deleted, 0, len(targets)+1)

	t0 := time.Now()
	var purged []int64
	err := repokit.InTx(ctx, s.DB, s.Binder, func(repo domain.StorageRepo) error {
		var err error
		purged, err = repo.PurgeFacts(ctx, cutoff)
		return err
	})
	metrics.RecordStep(s.Cfg.Job, "purge_facts", err, time.Since(t0))
	if err != nil {
		return out, err
	}
	out = append(out, s.deleted(ctx, ingdom.FactTable, purged))

	workers := s.Cfg.Workers
	if workers <= 0 {
		workers = len(targets)
	}
	orphans := make([][]int64, len(targets))
	done := make([]bool, len(targets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, dim := range targets {
		g.Go(func() error {
			t := time.Now()
			err := repokit.InTx(gctx, s.DB, s.Binder, func(repo domain.StorageRepo) error {
				var err error
				orphans[i], err = repo.DeleteOrphans(gctx, dim)
				return err
			})
			done[i] = err == nil
			metrics.RecordStep(s.Cfg.Job, "orphans_"+dim.Table, err, time.Since(t))
			return err
		})
	}
	err = g.Wait()
	// sweeps that committed are reported even when a sibling failed
	for i, dim := range targets {
		if done[i] {
			out = append(out, s.deleted(ctx, dim.Table, orphans[i]))
		}
	}
	return out, err
}

func (s *Service) deleted(ctx context.Context, table string, ids []int64) domain.Deleted {
	logger.C(ctx).Info().Str("table", table).Int("rows", len(ids)).
		Msgf("deleted: %d records from a %s table", len(ids), pstrings.Quote(table))
	metrics.RecordRows(s.Cfg.Job, "deleted_"+table, int64(len(ids)))
	return domain.Deleted{Table: table, IDs: ids}
}

// pruneMirror drops expired mirror rows; Postgres stays the store of record so a
// failure is logged and counted
func (s *Service) pruneMirror(ctx context.Context, cutoff time.Time) bool {
	if s.Mirror == nil {
		return false
	}
	t := time.Now()
	err := s.Mirror.PruneMirror(ctx, cutoff)
	metrics.RecordStep(s.Cfg.Job, "prune_mirror", err, time.Since(t))
	if err != nil {
		logger.C(ctx).Warn().Err(err).Msg("retention: mirror prune failed")
		return false
	}
	return true
}
