package store

import (
	"context"
	"errors"

	"tally/internal/platform/store/ch"
)

// chClient is what the adapter needs from *ch.CH
type chClient interface {
	Exec(ctx context.Context, sql string, args ...any) error
	Query(ctx context.Context, sql string, args ...any) (ch.Rows, error)
	Insert(ctx context.Context, table string, columns []string, rows [][]any) error
	Ping(ctx context.Context) error
	Close() error
}

// newCHAdapter wraps a client as the store.Clickhouse seam
func newCHAdapter(c chClient) *clickhouseAdapter {
	return &clickhouseAdapter{inner: c}
}

type clickhouseAdapter struct {
	inner chClient
}

var (
	_ Clickhouse = (*clickhouseAdapter)(nil)
	_ Pinger     = (*clickhouseAdapter)(nil)
	_ chClient   = (*ch.CH)(nil)
)

func (a *clickhouseAdapter) Exec(ctx context.Context, sql string, args ...any) error {
	return a.inner.Exec(ctx, sql, args...)
}

func (a *clickhouseAdapter) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	r, err := a.inner.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return &chRows{r: r}, nil
}

func (a *clickhouseAdapter) Insert(ctx context.Context, table string, columns []string, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}
	return a.inner.Insert(ctx, table, columns, rows)
}

func (a *clickhouseAdapter) Close() error { return a.inner.Close() }

// Ping verifies connectivity with ClickHouse
func (a *clickhouseAdapter) Ping(ctx context.Context) error {
	if a == nil || a.inner == nil {
		return errors.New("store: nil clickhouse adapter")
	}
	return a.inner.Ping(ctx)
}

// chRows narrows ch.Rows (Close returns error) to store.Rows; the close error surfaces via Err
type chRows struct {
	r        ch.Rows
	closeErr error
}

func (r *chRows) Next() bool             { return r.r.Next() }
func (r *chRows) Scan(dest ...any) error { return r.r.Scan(dest...) }
func (r *chRows) Columns() []string      { return r.r.Columns() }
func (r *chRows) Close()                 { r.closeErr = r.r.Close() }
func (r *chRows) Err() error {
	if err := r.r.Err(); err != nil {
		return err
	}
	return r.closeErr
}
