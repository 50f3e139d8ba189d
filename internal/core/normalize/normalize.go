// Package normalize canonicalizes free-text labels before they become natural keys.
// Pipeline order
// 1 sanitize: drop NUL, C0/C1 controls (tab and line breaks survive as whitespace) and invalid UTF-8
// 2 Unicode NFC composition
// 3 strip zero-width format characters (ZWSP, ZWJ, BOM)
// 4 collapse whitespace runs to a single space and trim
// Case and compatibility forms are left alone so "Voice" and "VOICE" stay distinct keys
package normalize

import (
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalizer is concurrency safe when used with the pool below
type Normalizer struct{}

var chainPool = sync.Pool{
	New: func() any {
		return transform.Chain(
			norm.NFC,
			runes.Remove(runes.In(unicode.Cf)),
		)
	},
}

// New constructs a Normalizer
func New() *Normalizer { return &Normalizer{} }

// Normalize returns the canonical form of s
func (n *Normalizer) Normalize(s string) string {
	if s == "" {
		return ""
	}

	s = Sanitize(s)
	if isPlainASCII(s) {
		return collapseSpaces(s)
	}

	tr := chainPool.Get().(transform.Transformer)
	ns, _, err := transform.String(tr, s)
	tr.Reset()
	chainPool.Put(tr)
	if err != nil {
		// transformers above never fail on valid UTF-8; keep the sanitized input
		ns = s
	}

	return collapseSpaces(ns)
}

// Equal reports whether a and b normalize to the same label
func (n *Normalizer) Equal(a, b string) bool { return n.Normalize(a) == n.Normalize(b) }

func isPlainASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}

// collapseSpaces converts every whitespace run (tabs and line breaks included) to one ASCII space
// and trims the edges
func collapseSpaces(s string) string {
	if s == "" {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	inWS := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			inWS = true
			continue
		}
		if inWS && b.Len() > 0 {
			b.WriteByte(' ')
		}
		inWS = false
		b.WriteRune(r)
	}
	return b.String()
}
