package repo

import (
	"context"
	"time"

	perr "tally/internal/platform/errors"
	"tally/internal/platform/store"
	"tally/internal/services/ingest/domain"
)

// insertFactsSQL writes one event per array position. Ordinality keeps the
// returned ids in input order
const insertFactsSQL = `
	INSERT INTO event (
		customer_fk, start_date, service_type_fk, rate_plan_fk,
		billing_flag_1, billing_flag_2, duration, charge, month
	)
	SELECT c, s, st, rp, b1, b2, d, ch::numeric, m
	FROM unnest(
		$1::bigint[], $2::timestamptz[], $3::bigint[], $4::bigint[],
		$5::bigint[], $6::bigint[], $7::bigint[], $8::text[], $9::text[]
	) WITH ORDINALITY AS t(c, s, st, rp, b1, b2, d, ch, m, ord)
	ORDER BY ord
	RETURNING id`

// factColumns are the arrays bound to insertFactsSQL
type factColumns struct {
	customer, service, plan []int64
	flag1, flag2, duration  []int64
	start                   []time.Time
	charge, month           []string
}

func columnsOf(facts []domain.Fact) factColumns {
	n := len(facts)
	c := factColumns{
		customer: make([]int64, n), service: make([]int64, n), plan: make([]int64, n),
		flag1: make([]int64, n), flag2: make([]int64, n), duration: make([]int64, n),
		start: make([]time.Time, n), charge: make([]string, n), month: make([]string, n),
	}
	for i, f := range facts {
		c.customer[i] = f.CustomerFK
		c.start[i] = f.StartDate
		c.service[i] = f.ServiceTypeFK
		c.plan[i] = f.RatePlanFK
		c.flag1[i] = f.BillingFlag1
		c.flag2[i] = f.BillingFlag2
		c.duration[i] = f.Duration
		// text keeps the exact scale; numeric(18,6) takes it from there
		c.charge[i] = f.Charge.String()
		c.month[i] = f.Month
	}
	return c
}

// InsertFacts writes facts in a single statement
func (r *queries) InsertFacts(ctx context.Context, facts []domain.Fact) ([]int64, error) {
	if len(facts) == 0 {
		return nil, nil
	}
	c := columnsOf(facts)
	ids, err := store.Column[int64](ctx, r.q, insertFactsSQL,
		c.customer, c.start, c.service, c.plan,
		c.flag1, c.flag2, c.duration, c.charge, c.month,
	)
	if err != nil {
		return nil, perr.FromPostgresWithField(err, "ingest: insert into event")
	}
	if len(ids) != len(facts) {
		return ids, perr.Internalf("ingest: inserted %d events for %d facts", len(ids), len(facts))
	}
	return ids, nil
}
