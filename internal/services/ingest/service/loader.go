package service

import (
	"context"

	"tally/internal/modkit/repokit"
	perr "tally/internal/platform/errors"
	"tally/internal/platform/logger"
	"tally/internal/platform/metrics"
	ptime "tally/internal/platform/time"
	"tally/internal/services/ingest/domain"
)

// Loader validates and writes fact rows, then copies them to the mirror when one is wired
type Loader struct {
	DB     repokit.TxRunner
	Binder repokit.Binder[domain.StorageRepo]
	Mirror domain.MirrorRepo
	Job    string
}

// NewLoader constructs a Loader; mirror may be nil
func NewLoader(db repokit.TxRunner, binder repokit.Binder[domain.StorageRepo], mirror domain.MirrorRepo, job string) *Loader {
	if db == nil {
		panic("ingest.Loader requires a non nil TxRunner")
	}
	if binder == nil {
		panic("ingest.Loader requires a non nil Repo binder")
	}
	return &Loader{DB: db, Binder: binder, Mirror: mirror, Job: job}
}

// Load writes facts and returns how many rows were inserted
func (l *Loader) Load(ctx context.Context, facts []domain.Fact) (int, error) {
	ids, err := l.Insert(ctx, facts)
	return len(ids), err
}

// Insert validates every fact then writes them in one statement. The chunk is
// never split or retried: a failure leaves nothing written
func (l *Loader) Insert(ctx context.Context, facts []domain.Fact) ([]int64, error) {
	if len(facts) == 0 {
		return nil, nil
	}
	if err := domain.ValidateFacts(facts); err != nil {
		return nil, err
	}
	var ids []int64
	err := repokit.InTx(ctx, l.DB, l.Binder, func(repo domain.StorageRepo) error {
		var err error
		ids, err = repo.InsertFacts(ctx, facts)
		return err
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// MirrorInserted copies inserted facts to the mirror. Failures are logged and
// counted; the store of record already holds the rows
func (l *Loader) MirrorInserted(ctx context.Context, records []domain.CleanRecord, facts []domain.Fact, ids []int64) {
	if l.Mirror == nil || len(ids) == 0 {
		return
	}
	if len(ids) != len(facts) || len(records) != len(facts) {
		logger.C(ctx).Error().Int("ids", len(ids)).Int("facts", len(facts)).
			Msg("ingest: mirror skipped, ids do not line up with facts")
		metrics.RecordRows(l.Job, "mirror_failed", int64(len(facts)))
		return
	}
	now := ptime.Now()
	runID := logger.RunID(ctx)
	rows := make([]domain.MirrorRow, len(ids))
	for i := range ids {
		rows[i] = domain.MirrorRow{
			EventID:     ids[i],
			Fact:        facts[i],
			CustomerID:  records[i].CustomerID,
			ServiceType: records[i].ServiceType,
			RatePlanID:  records[i].RatePlanID,
			RunID:       runID,
			CreatedAt:   now,
		}
	}
	if err := l.Mirror.MirrorEvents(ctx, rows); err != nil {
		logger.C(ctx).Warn().Err(err).Str("code", perr.CodeOf(err).String()).Int("rows", len(rows)).
			Msg("ingest: mirror write failed")
		metrics.RecordRows(l.Job, "mirror_failed", int64(len(rows)))
		return
	}
	metrics.RecordRows(l.Job, "mirrored", int64(len(rows)))
}
