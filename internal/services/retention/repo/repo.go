// Package repo provides the Postgres deletes and the clickhouse prune behind a retention sweep
package repo

import (
	"context"
	"fmt"
	"time"

	"tally/internal/modkit/repokit"
	perr "tally/internal/platform/errors"
	"tally/internal/platform/store"
	ingdom "tally/internal/services/ingest/domain"
	"tally/internal/services/retention/domain"
)

type queries struct{ q repokit.Queryer }

var _ domain.StorageRepo = (*queries)(nil)

// NewPG returns a binder of StorageRepo to a Postgres transaction
func NewPG() repokit.Binder[domain.StorageRepo] {
	return repokit.BindFunc[domain.StorageRepo](func(q repokit.Queryer) domain.StorageRepo {
		return &queries{q: repokit.RequireQueryer(q)}
	})
}

// PurgeFactsSQL deletes expired facts
var PurgeFactsSQL = `DELETE FROM ` + ingdom.FactTable + ` WHERE created_at < $1 RETURNING id`

// OrphansSQL deletes the rows of dim no fact references
func OrphansSQL(dim ingdom.Dimension) string {
	return fmt.Sprintf(
		`DELETE FROM %[1]s WHERE NOT EXISTS (SELECT 1 FROM %[2]s WHERE %[2]s.%[3]s = %[1]s.id) RETURNING id`,
		dim.Table, ingdom.FactTable, dim.FactColumn,
	)
}

func (r *queries) PurgeFacts(ctx context.Context, cutoff time.Time) ([]int64, error) {
	ids, err := store.Column[int64](ctx, r.q, PurgeFactsSQL, cutoff.UTC())
	if err != nil {
		return nil, perr.FromPostgresf(err, "retention: purge %s before %s", ingdom.FactTable, cutoff.UTC().Format(time.RFC3339))
	}
	return ids, nil
}

func (r *queries) DeleteOrphans(ctx context.Context, dim ingdom.Dimension) ([]int64, error) {
	if err := dim.Validate(); err != nil {
		return nil, err
	}
	ids, err := store.Column[int64](ctx, r.q, OrphansSQL(dim))
	if err != nil {
		return nil, perr.FromPostgresf(err, "retention: delete orphans from %s", dim.Table)
	}
	return ids, nil
}
