// Package service provides the ingest service implementation
package service

import (
	"context"
	"errors"
	"io"
	"time"

	"tally/internal/adapters/ingest/usagecsv"
	"tally/internal/core/cleaning"
	"tally/internal/modkit/repokit"
	perr "tally/internal/platform/errors"
	"tally/internal/platform/logger"
	"tally/internal/platform/metrics"
	pstrings "tally/internal/platform/strings"
	ptime "tally/internal/platform/time"
	"tally/internal/services/ingest/domain"

	"github.com/google/uuid"
)

// Config holds configuration options for the ingest service
type Config struct {
	// DryRun cleans and exports rejects without touching the store
	DryRun bool

	// Dimension race retry
	MaxRetries int           // attempts per dimension; <=0 -> 1
	RetryBase  time.Duration // base backoff; <=0 -> 100ms

	// Job labels metrics
	Job string
}

// SinkFactory builds the reject sink of one run
type SinkFactory func(stamp string, columns []string) domain.RejectSink

// Service implements domain.RunnerPort
type Service struct {
	DB      repokit.TxRunner
	Binder  repokit.Binder[domain.StorageRepo]
	Open    domain.SourceOpener
	Cleaner *cleaning.Cleaner
	Sinks   SinkFactory
	Cfg     Config
	// Lease is held for the whole of a run that writes (optional)
	Lease domain.LeaseFunc

	resolver *Resolver
	loader   *Loader
}

var _ domain.RunnerPort = (*Service)(nil)

// New constructs the ingest service; mirror may be nil
func New(
	db repokit.TxRunner,
	binder repokit.Binder[domain.StorageRepo],
	open domain.SourceOpener,
	cleaner *cleaning.Cleaner,
	sinks SinkFactory,
	mirror domain.MirrorRepo,
	cfg Config,
) *Service {
	if db == nil {
		panic("ingest.Service requires a non nil TxRunner")
	}
	if binder == nil {
		panic("ingest.Service requires a non nil Repo binder")
	}
	if open == nil || cleaner == nil || sinks == nil {
		panic("ingest.Service requires a source opener, a cleaner and a reject sink")
	}
	return &Service{
		DB: db, Binder: binder, Open: open, Cleaner: cleaner, Sinks: sinks, Cfg: cfg,
		resolver: NewResolver(db, binder, cfg.MaxRetries, cfg.RetryBase),
		loader:   NewLoader(db, binder, mirror, cfg.Job),
	}
}

// Run ingests the file at path chunk by chunk. Chunks already loaded stay loaded when a
// later chunk fails; the report covers everything committed so far
func (s *Service) Run(ctx context.Context, path string) (domain.RunReport, error) {
	if s.Lease == nil || s.Cfg.DryRun {
		return s.run(ctx, path)
	}
	var rep domain.RunReport
	err := s.Lease(ctx, func(ctx context.Context) error {
		var runErr error
		rep, runErr = s.run(ctx, path)
		return runErr
	})
	if err != nil && rep.RunID == "" {
		logger.C(ctx).Error().Err(err).Msg("ingest: lease not taken")
	}
	return rep, err
}

func (s *Service) run(ctx context.Context, path string) (rep domain.RunReport, retErr error) {
	start := time.Now()
	runID := logger.RunID(ctx)
	if runID == "" {
		runID = uuid.NewString()
		ctx = logger.WithRun(ctx, runID)
	}
	rep = domain.RunReport{RunID: runID, File: path, DryRun: s.Cfg.DryRun}
	log := logger.C(ctx)

	defer func() {
		rep.Elapsed = time.Since(start)
		metrics.RecordStep(s.Cfg.Job, "run", retErr, rep.Elapsed)
	}()

	src, err := s.Open(path)
	if err != nil {
		return rep, err
	}
	defer func() {
		if cerr := src.Close(); cerr != nil && retErr == nil {
			retErr = perr.IOf(cerr, "ingest: close %s", path)
		}
	}()

	if err := s.checkHeader(src.Columns()); err != nil {
		return rep, err
	}
	sink := s.Sinks(ptime.Stamp(ptime.Now()), src.Columns())

	log.Info().Str("file", path).Bool("dry_run", s.Cfg.DryRun).Msg("ingest: run started")

	for {
		ch, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return rep, err
		}
		cr, err := s.ProcessChunk(logger.WithChunk(ctx, ch.Index), ch, sink)
		rep.Chunks++
		rep.Read += cr.Read
		rep.Clean += cr.Clean
		rep.Rejected += cr.Rejected
		if cr.RejectFile != "" {
			rep.RejectFiles = append(rep.RejectFiles, cr.RejectFile)
		}
		for _, c := range cr.Created {
			rep.Inserted = domain.Add(rep.Inserted, c.Table, c.Rows)
		}
		if cr.Inserted > 0 {
			rep.Inserted = domain.Add(rep.Inserted, domain.FactTable, cr.Inserted)
		}
		if err != nil {
			log.Error().Err(err).Int("chunk", ch.Index).Str("code", perr.CodeOf(err).String()).
				Msg("ingest: chunk failed, stopping run")
			return rep, err
		}
	}

	_, _, rep.Malformed = src.Stats()
	for _, c := range rep.Inserted {
		log.Info().Msgf("inserted total: '%d' records into a %s table", c.Rows, pstrings.Quote(c.Table))
	}
	log.Info().
		Int("chunks", rep.Chunks).
		Int("malformed", rep.Malformed).
		Int("read", rep.Read).
		Int("clean", rep.Clean).
		Int("rejected", rep.Rejected).
		Int("events", domain.Count(rep.Inserted, domain.FactTable)).
		Dur("elapsed", time.Since(start)).
		Msg("ingest: run finished")
	return rep, nil
}

// checkHeader verifies the input carries every column the loader maps and the cleaner checks
func (s *Service) checkHeader(header []string) error {
	have := pstrings.Set(header)
	for _, c := range domain.Columns {
		if _, ok := have[c]; !ok {
			return perr.WithField(perr.InvalidArgf("ingest: input header lacks column %q", c), c)
		}
	}
	return s.Cleaner.Check(header)
}

// ProcessChunk cleans one chunk, exports its rejects, resolves the dimensions and loads the facts
func (s *Service) ProcessChunk(ctx context.Context, ch usagecsv.Chunk, sink domain.RejectSink) (cr domain.ChunkReport, retErr error) {
	start := time.Now()
	log := logger.C(ctx)
	cr.Chunk = ch.Index
	cr.Read = ch.Batch.Len() + len(ch.Malformed)

	defer func() {
		cr.Elapsed = time.Since(start)
		metrics.RecordStep(s.Cfg.Job, "chunk", retErr, cr.Elapsed)
		metrics.RecordChunks(s.Cfg.Job, 1)
	}()
	metrics.RecordRows(s.Cfg.Job, "read", int64(cr.Read))

	// clean
	t0 := time.Now()
	res := s.Cleaner.Clean(ch.Batch)
	metrics.RecordStep(s.Cfg.Job, "clean", nil, time.Since(t0))
	rejected := append(append([]cleaning.Rejected(nil), ch.Malformed...), res.Rejected...)
	cr.Clean = res.Clean.Len()
	cr.Rejected = len(rejected)
	metrics.RecordRows(s.Cfg.Job, "clean", int64(cr.Clean))
	metrics.RecordRows(s.Cfg.Job, "rejected", int64(cr.Rejected))
	for _, st := range res.Stages {
		if st.Rejected > 0 {
			log.Debug().Str("stage", st.Stage).Int("in", st.In).Int("rejected", st.Rejected).Msg("ingest: stage rejections")
		}
	}

	// export
	if len(rejected) > 0 {
		path, err := sink.Write(ch.Index, rejected)
		if err != nil {
			return cr, err
		}
		cr.RejectFile = path
		log.Warn().Int("rejected", len(rejected)).Msgf("validation errors found. exported to a file: %s", pstrings.Quote(path))
	}

	if cr.Clean == 0 {
		return cr, nil
	}
	records, err := domain.RecordsFromBatch(res.Clean)
	if err != nil {
		return cr, err
	}
	if s.Cfg.DryRun {
		log.Info().Int("clean", cr.Clean).Msg("ingest: dry run, nothing written")
		return cr, nil
	}

	// resolve
	t1 := time.Now()
	facts := make([]domain.Fact, len(records))
	for i := range records {
		facts[i] = domain.FactFrom(records[i])
	}
	for _, dim := range domain.Dimensions() {
		r, err := s.resolver.Resolve(ctx, dim, records, facts)
		if err != nil {
			metrics.RecordStep(s.Cfg.Job, "resolve", err, time.Since(t1))
			return cr, err
		}
		if r.Created > 0 {
			cr.Created = domain.Add(cr.Created, dim.Table, r.Created)
			metrics.RecordRows(s.Cfg.Job, "created_"+dim.Table, int64(r.Created))
			log.Info().Msgf("%d records inserted into the %s table", r.Created, pstrings.Quote(dim.Table))
		}
	}
	metrics.RecordStep(s.Cfg.Job, "resolve", nil, time.Since(t1))

	// load
	t2 := time.Now()
	ids, err := s.loader.Insert(ctx, facts)
	metrics.RecordStep(s.Cfg.Job, "load", err, time.Since(t2))
	if err != nil {
		return cr, err
	}
	cr.Inserted = len(ids)
	metrics.RecordRows(s.Cfg.Job, "inserted", int64(cr.Inserted))
	log.Info().Msgf("%d records inserted into the %s table", cr.Inserted, pstrings.Quote(domain.FactTable))

	s.loader.MirrorInserted(ctx, records, facts, ids)
	return cr, nil
}
