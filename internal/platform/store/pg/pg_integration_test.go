//go:build integration_pg

package pg

import (
	"context"
	"testing"
	"time"

	"tally/internal/platform/store/pg/pgtest"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

func TestOpen_And_BasicQueries_Integration(t *testing.T) {
	dsn := pgtest.Start(t)

	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	appName := "tally-pg-integration"

	client, err := Open(ctx, Config{URL: dsn, AppName: appName, MinConns: 1, MaxConns: 4, StatementTimeout: time.Minute}, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer client.Close()

	WithTestDB(t, dsn, func(pc *pgxpool.Config) {
		pc.ConnConfig.RuntimeParams["application_name"] = appName
	}, func(p *PG) {
		conn := AcquireConn(t, p, ctx)

		var one int
		if err := conn.QueryRow(ctx, "select 1").Scan(&one); err != nil || one != 1 {
			t.Fatalf("select failed: %v (%d)", err, one)
		}

		// TEMP table stays on the acquired session
		if _, err := conn.Exec(ctx, `create temporary table dim (id bigserial primary key, customer_id bigint unique)`); err != nil {
			t.Fatalf("create temp table failed: %v", err)
		}
		defer func() { _, _ = conn.Exec(ctx, `drop table if exists dim`) }()

		rows, err := conn.Query(ctx, `
			INSERT INTO dim (customer_id)
			SELECT x FROM unnest($1::bigint[]) AS t(x)
			ON CONFLICT (customer_id) DO NOTHING
			RETURNING customer_id`, []int64{7, 8, 7})
		if err != nil {
			t.Fatalf("unnest insert: %v", err)
		}
		got, err := pgx.CollectRows(rows, pgx.RowTo[int64])
		if err != nil {
			t.Fatalf("collect: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("expected 2 inserted keys, got %v", got)
		}
	})

	var gotApp string
	if err := client.Pool.QueryRow(ctx, `select current_setting('application_name')`).Scan(&gotApp); err != nil {
		t.Fatalf("check app name: %v", err)
	}
	if gotApp != appName {
		t.Fatalf("application_name mismatch: got %q want %q", gotApp, appName)
	}
	var timeout string
	if err := client.Pool.QueryRow(ctx, `show statement_timeout`).Scan(&timeout); err != nil {
		t.Fatalf("show statement_timeout: %v", err)
	}
	if timeout != "1min" {
		t.Fatalf("statement_timeout = %q, want 1min", timeout)
	}
}
