package strings

import (
	"testing"

	kit "tally/internal/platform/testkit"
)

func TestIfEmpty(t *testing.T) {
	t.Parallel()

	if got := IfEmpty([]int{1, 2, 3}, []int{9}); len(got) != 3 || got[0] != 1 {
		t.Fatalf("IfEmpty returned wrong slice: %#v", got)
	}
	var empty []string
	if got := IfEmpty(empty, []string{"x"}); len(got) != 1 || got[0] != "x" {
		t.Fatalf("IfEmpty did not return default: %#v", got)
	}
}

func TestDedupe(t *testing.T) {
	t.Parallel()

	in := []string{"customer_id", " rate_plan_id", "", "customer_id", "duration ", "duration"}
	got := Dedupe(in)
	want := []string{"customer_id", "rate_plan_id", "duration"}
	if len(got) != len(want) {
		t.Fatalf("Dedupe = %#v, want %#v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Dedupe[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSet(t *testing.T) {
	t.Parallel()

	s := Set([]string{"a", "b"})
	if _, ok := s["a"]; !ok {
		t.Fatalf("missing a")
	}
	if _, ok := s["c"]; ok {
		t.Fatalf("unexpected c")
	}
}

func TestMustString(t *testing.T) {
	t.Parallel()

	if MustString("x", "name") != "x" {
		t.Fatalf("MustString changed value")
	}
	kit.MustPanic(t, func() { _ = MustString("  ", "name") })
}

func TestQuote(t *testing.T) {
	t.Parallel()

	if Quote("event") != "'event'" {
		t.Fatalf("Quote = %q", Quote("event"))
	}
}
