package service

import (
	"context"
	"math/rand"
	"time"

	"tally/internal/modkit/repokit"
	perr "tally/internal/platform/errors"
	"tally/internal/platform/logger"
	"tally/internal/services/ingest/domain"
)

// Resolution reports one dimension pass over a chunk
type Resolution struct {
	Table    string
	Keys     int
	Created  int
	Attempts int
}

// Resolver maps natural keys to surrogate ids and creates the missing dimension rows.
// The table's unique constraint arbitrates concurrent writers; a conflict that still
// surfaces is retried from the read
type Resolver struct {
	DB         repokit.TxRunner
	Binder     repokit.Binder[domain.StorageRepo]
	MaxRetries int           // attempts; <=0 -> 1
	RetryBase  time.Duration // <=0 -> 100ms

	sleep func(context.Context, time.Duration) error
}

// NewResolver constructs a Resolver
func NewResolver(db repokit.TxRunner, binder repokit.Binder[domain.StorageRepo], maxRetries int, base time.Duration) *Resolver {
	if db == nil {
		panic("ingest.Resolver requires a non nil TxRunner")
	}
	if binder == nil {
		panic("ingest.Resolver requires a non nil Repo binder")
	}
	return &Resolver{DB: db, Binder: binder, MaxRetries: maxRetries, RetryBase: base, sleep: sleepCtx}
}

// Resolve assigns dim's surrogate ids to facts; facts[i] belongs to records[i]
func (r *Resolver) Resolve(ctx context.Context, dim domain.Dimension, records []domain.CleanRecord, facts []domain.Fact) (Resolution, error) {
	res := Resolution{Table: dim.Table}
	if len(records) != len(facts) {
		return res, perr.Internalf("ingest: %d records for %d facts", len(records), len(facts))
	}
	if err := dim.Validate(); err != nil {
		return res, err
	}
	keys := distinctKeys(dim, records)
	res.Keys = len(keys)
	if len(keys) == 0 {
		return res, nil
	}

	attempts := max(r.MaxRetries, 1)
	base := r.RetryBase
	if base <= 0 {
		base = 100 * time.Millisecond
	}
	sleep := r.sleep
	if sleep == nil {
		sleep = sleepCtx
	}

	var last error
	for i := range attempts {
		res.Attempts = i + 1
		created, mapping, err := r.once(ctx, dim, keys)
		if err == nil {
			res.Created = created
			return res, assign(dim, records, facts, mapping)
		}
		last = err

		if !retryableConflict(err) {
			return res, last
		}
		if i == attempts-1 {
			break
		}

		d := min(base<<i, 10*time.Second)
		j := d/2 + time.Duration(rand.Int63n(int64(d/2)+1))
		logger.C(ctx).Warn().Err(err).
			Str("table", dim.Table).
			Int("attempt", i+1).
			Dur("backoff", j).
			Msg("ingest: dimension write conflicted, retrying")
		if se := sleep(ctx, j); se != nil {
			return res, se
		}
	}
	return res, last
}

// once reads the mapping, inserts what is missing and reads again, in one short tx
func (r *Resolver) once(ctx context.Context, dim domain.Dimension, keys []any) (int, map[any]int64, error) {
	var (
		created int
		mapping map[any]int64
	)
	err := repokit.InTx(ctx, r.DB, r.Binder, func(repo domain.StorageRepo) error {
		existing, err := repo.Mapping(ctx, dim)
		if err != nil {
			return err
		}
		missing := make([]any, 0, len(keys))
		for _, k := range keys {
			if _, ok := existing[k]; !ok {
				missing = append(missing, k)
			}
		}
		if len(missing) == 0 {
			mapping = existing
			return nil
		}
		ids, err := repo.InsertKeys(ctx, dim, missing)
		if err != nil {
			return err
		}
		created = len(ids)
		mapping, err = repo.Mapping(ctx, dim)
		return err
	})
	if err != nil {
		return 0, nil, err
	}
	for _, k := range keys {
		if _, ok := mapping[k]; !ok {
			return 0, nil, perr.WithField(perr.Internalf("ingest: %s key %v has no id after insert", dim.Table, k), dim.KeyColumn)
		}
	}
	return created, mapping, nil
}

func assign(dim domain.Dimension, records []domain.CleanRecord, facts []domain.Fact, mapping map[any]int64) error {
	for i := range records {
		id, ok := mapping[dim.Key(records[i])]
		if !ok {
			return perr.Internalf("ingest: line %d has no %s id", records[i].Line, dim.Table)
		}
		dim.Assign(&facts[i], id)
	}
	return nil
}

// distinctKeys returns the natural keys of records in first-seen order
func distinctKeys(dim domain.Dimension, records []domain.CleanRecord) []any {
	seen := make(map[any]struct{}, len(records))
	out := make([]any, 0)
	for _, rec := range records {
		k := dim.Key(rec)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}

func retryableConflict(err error) bool {
	if perr.IsCode(err, perr.ErrorCodeInternal) {
		return false
	}
	return perr.IsDuplicateKey(err) || perr.Retryable(err)
}

// sleepCtx sleeps for d or until ctx is done
func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
