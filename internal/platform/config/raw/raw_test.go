package raw

import "testing"

func TestGet(t *testing.T) {
	t.Setenv("LOG_SERVICE", " tally-ingest ")
	t.Setenv("LOG_FORMAT", "json")

	root := New()
	log := root.Prefix("LOG_")

	tests := []struct {
		name string
		conf Conf
		key  string
		def  string
		want string
	}{
		{name: "root full key", conf: root, key: "LOG_SERVICE", def: "x", want: "tally-ingest"},
		{name: "prefixed hit", conf: log, key: "FORMAT", def: "console", want: "json"},
		{name: "missing returns default", conf: log, key: "COMPONENT", def: "defv", want: "defv"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.conf.Get(tt.key, tt.def); got != tt.want {
				t.Fatalf("Get(%q) = %q, want %q", tt.key, got, tt.want)
			}
		})
	}
}

func TestGetBool(t *testing.T) {
	log := New().Prefix("LOG_")

	t.Setenv("LOG_T1", "true")
	t.Setenv("LOG_T2", "1")
	t.Setenv("LOG_T3", "YES")
	t.Setenv("LOG_T4", " on ")
	t.Setenv("LOG_F1", "false")
	t.Setenv("LOG_F2", "nah")

	tests := []struct {
		key  string
		def  bool
		want bool
	}{
		{"T1", false, true},
		{"T2", false, true},
		{"T3", false, true},
		{"T4", false, true},
		{"F1", true, false},
		{"F2", true, false},
		{"MISSING", true, true},
	}
	for _, tt := range tests {
		if got := log.GetBool(tt.key, tt.def); got != tt.want {
			t.Fatalf("GetBool(%q) = %v, want %v", tt.key, got, tt.want)
		}
	}
}

func TestGetInt(t *testing.T) {
	log := New().Prefix("LOG_")

	t.Setenv("LOG_OK", "42")
	t.Setenv("LOG_WS", "  7  ")
	t.Setenv("LOG_NONNUM", "12x")
	t.Setenv("LOG_NEG", "-5")

	tests := []struct {
		key  string
		def  int
		want int
	}{
		{"OK", 0, 42},
		{"WS", 1, 7},
		{"NONNUM", 9, 9},
		{"NEG", 3, 3},
		{"MISSING", 11, 11},
	}
	for _, tt := range tests {
		if got := log.GetInt(tt.key, tt.def); got != tt.want {
			t.Fatalf("GetInt(%q) = %d, want %d", tt.key, got, tt.want)
		}
	}
}

func TestPrefixNesting(t *testing.T) {
	t.Setenv("CORE_LOG_LEVEL", "warn")
	if got := New().Prefix("CORE_").Prefix("LOG_").Get("LEVEL", ""); got != "warn" {
		t.Fatalf("nested prefix Get = %q", got)
	}
}
