package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"tally/internal/adapters/ingest/usagecsv"
	"tally/internal/core/cleaning"
	"tally/internal/modkit/repokit"
	"tally/internal/services/ingest/domain"

	"github.com/jackc/pgx/v5/pgconn"
)

// memStore is an in-memory star schema that enforces natural key uniqueness
type memStore struct {
	mu     sync.Mutex
	dims   map[string]map[any]int64
	nextID int64
	events []domain.Fact
	txs    int

	// conflicts makes the next n InsertKeys calls fail with 23505 after a rival
	// writer has committed rival[table]
	conflicts int
	rival     map[string][]any

	mappingCalls int
	insertErr    error
	factErr      error
	factOK       int // InsertFacts calls that succeed before factErr applies
	factCalls    int
	dropOnRead   any
}

func newMemStore() *memStore {
	return &memStore{dims: map[string]map[any]int64{}, rival: map[string][]any{}}
}

func (m *memStore) binder() repokit.Binder[domain.StorageRepo] {
	return repokit.BindFunc[domain.StorageRepo](func(repokit.Queryer) domain.StorageRepo { return m })
}

// TxRunner

func (m *memStore) Exec(context.Context, string, ...any) (repokit.CommandTag, error) {
	return nil, errors.New("memStore: no sql")
}
func (m *memStore) Query(context.Context, string, ...any) (repokit.Rows, error) {
	return nil, errors.New("memStore: no sql")
}
func (m *memStore) QueryRow(context.Context, string, ...any) repokit.Row { return nil }
func (m *memStore) Tx(_ context.Context, fn func(q repokit.Queryer) error) error {
	m.mu.Lock()
	m.txs++
	m.mu.Unlock()
	return fn(m)
}

// StorageRepo

func (m *memStore) table(name string) map[any]int64 {
	t, ok := m.dims[name]
	if !ok {
		t = map[any]int64{}
		m.dims[name] = t
	}
	return t
}

func (m *memStore) add(table string, k any) (int64, bool) {
	t := m.table(table)
	if _, ok := t[k]; ok {
		return 0, false
	}
	m.nextID++
	t[k] = m.nextID
	return m.nextID, true
}

func (m *memStore) Mapping(_ context.Context, dim domain.Dimension) (map[any]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mappingCalls++
	out := map[any]int64{}
	for k, v := range m.table(dim.Table) {
		if m.dropOnRead != nil && k == m.dropOnRead {
			continue
		}
		out[k] = v
	}
	return out, nil
}

func (m *memStore) InsertKeys(_ context.Context, dim domain.Dimension, keys []any) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return nil, m.insertErr
	}
	if _, err := dim.CastKeys(keys); err != nil {
		return nil, err
	}
	if m.conflicts > 0 {
		m.conflicts--
		for _, k := range m.rival[dim.Table] {
			m.add(dim.Table, k)
		}
		return nil, &pgconn.PgError{Code: "23505", TableName: dim.Table}
	}
	var ids []int64
	for _, k := range keys {
		if id, ok := m.add(dim.Table, k); ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (m *memStore) InsertFacts(_ context.Context, facts []domain.Fact) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.factCalls++
	if m.factErr != nil && m.factCalls > m.factOK {
		return nil, m.factErr
	}
	ids := make([]int64, len(facts))
	for i, f := range facts {
		m.events = append(m.events, f)
		ids[i] = int64(len(m.events))
	}
	return ids, nil
}

// idOf returns the surrogate id of key in table, or 0
func (m *memStore) idOf(table string, key any) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dims[table][key]
}

type fakeMirror struct {
	rows []domain.MirrorRow
	err  error
}

func (f *fakeMirror) MirrorEvents(_ context.Context, rows []domain.MirrorRow) error {
	if f.err != nil {
		return f.err
	}
	f.rows = append(f.rows, rows...)
	return nil
}

func noSleep(context.Context, time.Duration) error { return nil }

func usageCleaner() *cleaning.Cleaner {
	return cleaning.New(cleaning.Config{
		IntColumns:      []string{domain.ColCustomerID, domain.ColRatePlanID, domain.ColBillingFlag1, domain.ColBillingFlag2, domain.ColDuration},
		DateColumns:     []string{domain.ColEventStart},
		CurrencyColumns: []string{domain.ColCharge},
		TextColumns:     []string{domain.ColServiceType, domain.ColMonth},
	})
}

func csvOpener(chunk int) domain.SourceOpener {
	return func(path string) (domain.ChunkSource, error) {
		rd, err := usagecsv.Open(path, usagecsv.Options{Header: true, ChunkSize: chunk})
		if err != nil {
			return nil, err
		}
		return rd, nil
	}
}

func dirSinks(dir string) SinkFactory {
	return func(stamp string, columns []string) domain.RejectSink {
		return usagecsv.RejectsWriter{Dir: dir, Stamp: stamp, Columns: columns}
	}
}

func newTestService(m *memStore, chunk int, dir string, mirror domain.MirrorRepo, cfg Config) *Service {
	s := New(m, m.binder(), csvOpener(chunk), usageCleaner(), dirSinks(dir), mirror, cfg)
	s.resolver.sleep = noSleep
	return s
}
