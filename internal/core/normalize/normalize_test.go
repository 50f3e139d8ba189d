package normalize

import "testing"

func TestNormalize_Table(t *testing.T) {
	t.Parallel()
	n := New()

	tests := []struct {
		name string
		in   string
		out  string
	}{
		{name: "identity ascii", in: "voice", out: "voice"},
		{name: "empty", in: "", out: ""},
		{name: "trim and collapse", in: "  sms \t  roaming\n", out: "sms roaming"},
		{name: "case preserved", in: "VOICE", out: "VOICE"},
		{name: "utf8 repair drops invalid bytes", in: string([]byte{0xff, 'd', 'a', 't', 'a', 0x80}), out: "data"},
		{name: "controls dropped", in: "da\x00ta\x7f\u0085", out: "data"},
		{name: "zero width removed", in: "vo\u200bice\ufeff", out: "voice"},
		{name: "nfc composes", in: "cafe\u0301", out: "caf\u00e9"},
		{name: "nfc keeps compatibility forms", in: "\ufb01le", out: "\ufb01le"},
		{name: "whitespace only", in: " \t\r\n ", out: ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := n.Normalize(tc.in); got != tc.out {
				t.Fatalf("Normalize(%q) = %q, want %q", tc.in, got, tc.out)
			}
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	t.Parallel()
	n := New()
	for _, in := range []string{"  a  b ", "cafe\u0301 \u200b x", "plain"} {
		once := n.Normalize(in)
		if twice := n.Normalize(once); twice != once {
			t.Fatalf("not idempotent: %q -> %q -> %q", in, once, twice)
		}
	}
}

func TestEqual(t *testing.T) {
	t.Parallel()
	n := New()
	if !n.Equal("cafe\u0301 ", " caf\u00e9") {
		t.Fatal("composed and decomposed forms should be equal")
	}
	if n.Equal("voice", "Voice") {
		t.Fatal("case differences must not collapse")
	}
}

func TestSanitize_FastPathReturnsInput(t *testing.T) {
	t.Parallel()
	in := "line one\nline\ttwo"
	if got := Sanitize(in); got != in {
		t.Fatalf("Sanitize(%q) = %q", in, got)
	}
}
