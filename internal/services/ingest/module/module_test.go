package module

import (
	"context"
	"errors"
	"testing"
	"time"

	"tally/internal/modkit"
	modpkg "tally/internal/modkit/module"
	"tally/internal/modkit/repokit"
	"tally/internal/platform/config"
	"tally/internal/platform/store"
	"tally/internal/services/ingest/domain"
	"tally/internal/services/ingest/service"
	"tally/internal/services/retention/guardrails"
)

type nopTx struct{}

func (nopTx) Exec(context.Context, string, ...any) (repokit.CommandTag, error) {
	return nil, errors.New("nopTx")
}
func (nopTx) Query(context.Context, string, ...any) (repokit.Rows, error) {
	return nil, errors.New("nopTx")
}
func (nopTx) QueryRow(context.Context, string, ...any) repokit.Row { return nil }
func (nopTx) Tx(context.Context, func(repokit.Queryer) error) error {
	return errors.New("nopTx")
}

type nopCH struct{}

func (nopCH) Exec(context.Context, string, ...any) error                { return nil }
func (nopCH) Query(context.Context, string, ...any) (store.Rows, error) { return nil, nil }
func (nopCH) Insert(context.Context, string, []string, [][]any) error   { return nil }
func (nopCH) Close() error                                              { return nil }

func TestFromConfig_Defaults(t *testing.T) {
	o := FromConfig(config.New())

	if o.File != "usage.csv" || o.ChunkSize != 500000 || !o.Header || o.Delimiter != ',' || o.ErrorDir != "." {
		t.Fatalf("input defaults = %+v", o)
	}
	if o.DimRetries != 5 || o.RetryBase != 100*time.Millisecond || o.MaxFraction != 6 || o.MaxWhole != 12 {
		t.Fatalf("retry defaults = %+v", o)
	}
	if o.CHMirror || o.CHTable != "usage_events" || o.DryRun {
		t.Fatalf("mirror defaults = %+v", o)
	}
	if len(o.IntColumns) != 5 || o.DateColumns[0] != domain.ColEventStart || o.CurrencyColumns[0] != domain.ColCharge {
		t.Fatalf("column defaults = %+v", o)
	}
	if len(o.NullTokens) != 0 {
		t.Fatalf("null tokens should fall back to the cleaner defaults, got %v", o.NullTokens)
	}
}

func TestFromConfig_Env(t *testing.T) {
	t.Setenv("CORE_INGEST_FILE", "/data/june.csv.gz")
	t.Setenv("CORE_INGEST_CHUNK_SIZE", "1000")
	t.Setenv("CORE_INGEST_HEADER", "false")
	t.Setenv("CORE_INGEST_DELIMITER", "tab")
	t.Setenv("CORE_INGEST_MAX_FRACTION", "2")
	t.Setenv("CORE_INGEST_MAX_WHOLE_DIGITS", "9")
	t.Setenv("CORE_INGEST_NULL_TOKENS", "-, ?, -")
	t.Setenv("CORE_INGEST_INT_COLUMNS", "duration, customer_id,duration")
	t.Setenv("CORE_INGEST_CH_MIRROR", "true")
	t.Setenv("CORE_INGEST_DRY_RUN", "1")

	o := FromConfig(config.New())
	if o.File != "/data/june.csv.gz" || o.ChunkSize != 1000 || o.Header || o.Delimiter != '\t' {
		t.Fatalf("options = %+v", o)
	}
	if o.MaxFraction != 2 || len(o.NullTokens) != 2 || !o.CHMirror || !o.DryRun {
		t.Fatalf("options = %+v", o)
	}

	if len(o.IntColumns) != 2 || o.IntColumns[0] != domain.ColDuration || o.IntColumns[1] != domain.ColCustomerID {
		t.Fatalf("int columns = %v", o.IntColumns)
	}

	ro := o.ReaderOptions()
	if ro.Header || len(ro.Columns) != len(domain.Columns) || ro.Delimiter != '\t' {
		t.Fatalf("reader options = %+v", ro)
	}
	cc := o.CleaningConfig()
	if cc.MaxFraction != 2 || cc.MaxWhole != 9 || len(cc.TextColumns) != 2 {
		t.Fatalf("cleaning config = %+v", cc)
	}
}

func TestReaderOptions_HeaderKeepsColumnsUnset(t *testing.T) {
	t.Parallel()

	o := Options{Header: true, ChunkSize: 10, Delimiter: ';'}
	if ro := o.ReaderOptions(); ro.Columns != nil || ro.ChunkSize != 10 {
		t.Fatalf("reader options = %+v", ro)
	}
}

func TestNew_ExposesRunner(t *testing.T) {
	m := New(modkit.Deps{Cfg: config.New(), PG: nopTx{}, Job: "tally-ingest"})

	if m.Name() != "ingest" {
		t.Fatalf("name = %q", m.Name())
	}
	if _, ok := modpkg.PortsOf[domain.RunnerPort](m); !ok {
		t.Fatal("runner port not found")
	}
}

func TestNew_MirrorNeedsClickhouse(t *testing.T) {
	t.Setenv("CORE_INGEST_CH_MIRROR", "true")

	// without a client the module still builds and runs without the mirror
	m := New(modkit.Deps{Cfg: config.New(), PG: nopTx{}})
	if !m.Options().CHMirror {
		t.Fatal("mirror option not read")
	}

	m = New(modkit.Deps{Cfg: config.New(), PG: nopTx{}, CH: nopCH{}})
	if m.Ports().(Ports).Runner == nil {
		t.Fatal("runner not wired")
	}
}

func TestNew_SweepLock(t *testing.T) {
	m := New(modkit.Deps{Cfg: config.New(), PG: nopTx{}})
	if o := m.Options(); !o.SweepLock || o.LeaseKey != guardrails.DefaultLeaseKey {
		t.Fatalf("lock options = %+v", o)
	}
	if svc := m.Ports().(Ports).Runner.(*service.Service); svc.Lease == nil {
		t.Fatal("sweep lock not wired")
	}

	t.Setenv("CORE_INGEST_SWEEP_LOCK", "false")
	m = New(modkit.Deps{Cfg: config.New(), PG: nopTx{}})
	if svc := m.Ports().(Ports).Runner.(*service.Service); svc.Lease != nil {
		t.Fatal("sweep lock wired while disabled")
	}
}

func TestNew_PanicsWithoutPostgres(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic without a TxRunner")
		}
	}()
	New(modkit.Deps{Cfg: config.New()})
}
