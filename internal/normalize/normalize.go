// Package normalize produces the canonical text form used as a fuzzy
// comparison key when matching notebook references.
package normalize

import (
	"strings"
	"unicode"
)

// Normalize reduces s to a lowercase, punctuation-free, single-spaced
// comparison key: lowercase, drop every rune that is not a letter, digit,
// or underscore (whitespace is kept), collapse whitespace runs to one
// space, trim the ends. The result is never displayed to users.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
