package util

import (
	"strings"
	"unicode"
)

// NormalizeSpace trims s, turns control characters into spaces and
// collapses every run of whitespace into a single space.
func NormalizeSpace(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

// StripBracketed removes every balanced "(...)" group from s, including
// nested ones. An unmatched ")" is kept; an unclosed "(" drops the rest.
func StripBracketed(s string) string {
	var b strings.Builder
	depth := 0
	for _, r := range s {
		switch {
		case r == '(':
			depth++
		case r == ')' && depth > 0:
			depth--
		case depth == 0:
			b.WriteRune(r)
		}
	}
	return b.String()
}
