package normalize

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Sanitize drops invalid UTF-8 and control runes (C0, DEL, C1) except tab and line breaks,
// which the whitespace collapse turns into spaces later.
// Returns s unchanged when there is nothing to drop
func Sanitize(s string) string {
	if s == "" {
		return s
	}
	if utf8.ValidString(s) && strings.IndexFunc(s, unwanted) < 0 {
		return s
	}
	s = strings.ToValidUTF8(s, "")
	return strings.Map(func(r rune) rune {
		if unwanted(r) {
			return -1
		}
		return r
	}, s)
}

func unwanted(r rune) bool {
	switch r {
	case '\t', '\n', '\r':
		return false
	}
	return unicode.IsControl(r)
}
