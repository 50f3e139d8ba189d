package service

import (
	"context"
	"testing"
	"time"

	perr "tally/internal/platform/errors"
	"tally/internal/services/ingest/domain"

	"github.com/shopspring/decimal"
)

func validFact() domain.Fact {
	return domain.Fact{
		CustomerFK: 1, StartDate: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		ServiceTypeFK: 2, RatePlanFK: 3, Charge: decimal.NewFromInt(1), Month: "2023-01",
	}
}

func TestLoad_CountsInserted(t *testing.T) {
	t.Parallel()

	m := newMemStore()
	n, err := NewLoader(m, m.binder(), nil, "test").Load(context.Background(), []domain.Fact{validFact(), validFact()})
	if err != nil || n != 2 || len(m.events) != 2 {
		t.Fatalf("n=%d err=%v events=%d", n, err, len(m.events))
	}
}

func TestLoad_InvalidFactIsInternalAndWritesNothing(t *testing.T) {
	t.Parallel()

	m := newMemStore()
	bad := validFact()
	bad.ServiceTypeFK = 0

	n, err := NewLoader(m, m.binder(), nil, "test").Load(context.Background(), []domain.Fact{validFact(), bad})
	if !perr.IsCode(err, perr.ErrorCodeInternal) || n != 0 {
		t.Fatalf("n=%d err=%v", n, err)
	}
	if m.txs != 0 || len(m.events) != 0 {
		t.Fatalf("store touched: txs=%d events=%d", m.txs, len(m.events))
	}
}

func TestLoad_Empty(t *testing.T) {
	t.Parallel()

	m := newMemStore()
	if n, err := NewLoader(m, m.binder(), nil, "test").Load(context.Background(), nil); n != 0 || err != nil || m.txs != 0 {
		t.Fatalf("n=%d err=%v txs=%d", n, err, m.txs)
	}
}

func TestMirrorInserted_SkipsMisalignedIDs(t *testing.T) {
	t.Parallel()

	m := newMemStore()
	mir := &fakeMirror{}
	l := NewLoader(m, m.binder(), mir, "test")
	l.MirrorInserted(context.Background(), []domain.CleanRecord{{}}, []domain.Fact{validFact()}, []int64{1, 2})
	if len(mir.rows) != 0 {
		t.Fatalf("mirrored misaligned rows")
	}
}
