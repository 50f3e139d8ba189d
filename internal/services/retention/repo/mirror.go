package repo

import (
	"context"
	"time"

	perr "tally/internal/platform/errors"
	"tally/internal/platform/store"
	ingrepo "tally/internal/services/ingest/repo"
	"tally/internal/services/retention/domain"
)

// CH prunes the clickhouse usage mirror
type CH struct {
	ch    store.Clickhouse
	table string
}

var _ domain.MirrorPruner = (*CH)(nil)

// NewCH returns the pruner; table defaults to the ingest mirror table
func NewCH(c store.Clickhouse, table string) *CH {
	if table == "" {
		table = ingrepo.DefaultMirrorTable
	}
	return &CH{ch: c, table: table}
}

// PruneMirror issues a delete mutation for rows created before cutoff
func (m *CH) PruneMirror(ctx context.Context, cutoff time.Time) error {
	if m == nil || m.ch == nil {
		return nil
	}
	if err := m.ch.Exec(ctx, `ALTER TABLE `+m.table+` DELETE WHERE created_at < ?`, cutoff.UTC()); err != nil {
		return perr.Wrapf(err, perr.ErrorCodeUnavailable, "retention: prune %s", m.table)
	}
	return nil
}
