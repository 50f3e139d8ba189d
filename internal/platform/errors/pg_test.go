package errors

import (
	stderrs "errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func pg(code, col, constraint string) *pgconn.PgError {
	return &pgconn.PgError{
		Code:           code,
		ColumnName:     col,
		ConstraintName: constraint,
	}
}

func TestDBErrorCodeMappings(t *testing.T) {
	cases := []struct {
		code string
		want ErrorCode
	}{
		{"23505", ErrorCodeDuplicateKey},    // unique violation
		{"23503", ErrorCodeInternal},        // fk violation -> resolver bug
		{"23502", ErrorCodeValidation},      // not null
		{"23514", ErrorCodeValidation},      // check
		{"22001", ErrorCodeInternal},        // string truncation
		{"22003", ErrorCodeInternal},        // numeric out of range
		{"22P02", ErrorCodeInternal},        // invalid text representation
		{"42P01", ErrorCodeNotFound},        // undefined table
		{"40001", ErrorCodeDB},              // serialization failure (retryable) mapped to DB
		{"40P01", ErrorCodeDB},              // deadlock
		{"55P03", ErrorCodeDB},              // lock not available
		{"25006", ErrorCodeUnavailable},     // read-only
		{"57P03", ErrorCodeUnavailable},     // cannot connect now
		{"57P01", ErrorCodeUnavailable},     // admin shutdown
		{"08006", ErrorCodeUnavailable},     // connection failure class
		{"XXXXX", ErrorCodeDB},              // default branch
	}
	for _, c := range cases {
		got, ok := DBErrorCode(pg(c.code, "", ""))
		if !ok {
			t.Fatalf("expected ok for PgError code %s", c.code)
		}
		if got != c.want {
			t.Fatalf("DBErrorCode(%s) = %v, want %v", c.code, got, c.want)
		}
	}

	// Non-pg error path
	if _, ok := DBErrorCode(stderrs.New("nope")); ok {
		t.Fatalf("DBErrorCode should return ok=false for non-pg error")
	}
}

func TestFromPostgresVariants(t *testing.T) {
	// nil passthrough
	if FromPostgres(nil, "x") != nil {
		t.Fatalf("FromPostgres(nil) should be nil")
	}
	if FromPostgresf(nil, "x %d", 1) != nil {
		t.Fatalf("FromPostgresf(nil) should be nil")
	}

	// mapped: check codes only (PgError string includes SQLSTATE formatting)
	err := FromPostgres(pg("23505", "", ""), "insert customer")
	if CodeOf(err) != ErrorCodeDuplicateKey {
		t.Fatalf("FromPostgres map code = %v", CodeOf(err))
	}
	errf := FromPostgresf(pg("22P02", "", ""), "bad: %s", "charge")
	if CodeOf(errf) != ErrorCodeInternal {
		t.Fatalf("FromPostgresf code = %v, want %v", CodeOf(errf), ErrorCodeInternal)
	}
	if CodeOf(FromPostgres(stderrs.New("plain"), "x")) != ErrorCodeDB {
		t.Fatalf("FromPostgres(non-pg) should default to DB")
	}
}

func pgTable(code, table string) *pgconn.PgError {
	return &pgconn.PgError{Code: code, TableName: table}
}

func TestAttachFieldFromPg(t *testing.T) {
	// prefer ColumnName when present
	withCol := AttachFieldFromPg(Wrap(pg("23502", "charge", ""), ErrorCodeValidation, "oops"))
	e, ok := As(withCol)
	if !ok || e.Field() != "charge" {
		t.Fatalf("AttachFieldFromPg column name failed: %+v", e)
	}

	// fall back to the table
	withTbl := AttachFieldFromPg(Wrap(pgTable("23505", "customer"), ErrorCodeDuplicateKey, "dup"))
	e2, ok := As(withTbl)
	if !ok || e2.Field() != "customer" {
		t.Fatalf("AttachFieldFromPg table fallback failed: %+v", e2)
	}

	// nothing to infer -> unchanged
	bare := Wrap(pg("23505", "", "customer_customer_id_key"), ErrorCodeDuplicateKey, "dup")
	if out := AttachFieldFromPg(bare); out != bare {
		t.Fatalf("AttachFieldFromPg should return input when nothing is inferable")
	}

	other := Wrap(stderrs.New("x"), ErrorCodeDB, "wrap")
	if out := AttachFieldFromPg(other); out != other {
		t.Fatalf("AttachFieldFromPg changed non-pg error")
	}
}

func TestFromPostgresWithField(t *testing.T) {
	err := FromPostgresWithField(pgTable("23505", "plan"), "insert")
	e, ok := As(err)
	if !ok || e.Field() != "plan" || e.Code() != ErrorCodeDuplicateKey {
		t.Fatalf("FromPostgresWithField failed: %+v", e)
	}
}

func TestIsRetryable(t *testing.T) {
	if !IsRetryable(pg("40001", "", "")) { // serialization failure
		t.Fatalf("40001 should be retryable")
	}
	if !IsRetryable(pg("40P01", "", "")) { // deadlock
		t.Fatalf("40P01 should be retryable")
	}
	if !IsRetryable(pg("55P03", "", "")) { // lock not available
		t.Fatalf("55P03 should be retryable")
	}
	if !IsRetryable(pg("08006", "", "")) { // connection failure
		t.Fatalf("08006 should be retryable")
	}
	if !IsRetryable(stderrs.New("commit unexpectedly resulted in rollback")) {
		t.Fatalf("commit rollback text should be retryable")
	}
	// non-retryable
	if IsRetryable(pg("23505", "", "")) {
		t.Fatalf("23505 should not be retryable")
	}
	if IsRetryable(stderrs.New("nope")) {
		t.Fatalf("non-pg error should not be retryable")
	}
}

func TestPredicates(t *testing.T) {
	if !IsDuplicateKey(Wrap(pg("23505", "", ""), ErrorCodeDB, "wrapped")) {
		t.Fatalf("IsDuplicateKey should see through wrapping")
	}
	if !IsForeignKeyViolation(pg("23503", "", "")) {
		t.Fatalf("IsForeignKeyViolation mismatch")
	}
	if !IsUndefinedTable(pg("42P01", "", "")) {
		t.Fatalf("IsUndefinedTable mismatch")
	}
	if !IsSerializationFailure(pg("40001", "", "")) || !IsDeadlock(pg("40P01", "", "")) {
		t.Fatalf("contention predicates mismatch")
	}
}
