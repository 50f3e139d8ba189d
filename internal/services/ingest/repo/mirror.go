package repo

import (
	"context"

	perr "tally/internal/platform/errors"
	"tally/internal/platform/store"
	"tally/internal/services/ingest/domain"
)

// DefaultMirrorTable is the clickhouse table inserted facts are copied to
const DefaultMirrorTable = "usage_events"

// MirrorColumns is the column order of a mirror row
var MirrorColumns = []string{
	"event_id", "customer_id", "service_type", "rate_plan_id", "start_date",
	"billing_flag_1", "billing_flag_2", "duration", "charge", "month",
	"run_id", "created_at",
}

// CH writes mirror rows to clickhouse
type CH struct {
	ch    store.Clickhouse
	table string
}

var _ domain.MirrorRepo = (*CH)(nil)

// NewCH returns the mirror repo; table defaults to DefaultMirrorTable
func NewCH(c store.Clickhouse, table string) *CH {
	if table == "" {
		table = DefaultMirrorTable
	}
	return &CH{ch: c, table: table}
}

// Table returns the target table
func (m *CH) Table() string { return m.table }

// MirrorEvents appends rows in one batch
func (m *CH) MirrorEvents(ctx context.Context, rows []domain.MirrorRow) error {
	if m == nil || m.ch == nil || len(rows) == 0 {
		return nil
	}
	vals := make([][]any, len(rows))
	for i, r := range rows {
		vals[i] = []any{
			r.EventID, r.CustomerID, r.ServiceType, r.RatePlanID, r.Fact.StartDate.UTC(),
			r.Fact.BillingFlag1, r.Fact.BillingFlag2, r.Fact.Duration, r.Fact.Charge, r.Fact.Month,
			r.RunID, r.CreatedAt.UTC(),
		}
	}
	if err := m.ch.Insert(ctx, m.table, MirrorColumns, vals); err != nil {
		return perr.Wrapf(err, perr.ErrorCodeUnavailable, "ingest: mirror %d rows to %s", len(rows), m.table)
	}
	return nil
}
