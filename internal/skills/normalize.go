// Package skills normalizes skill names and finds skill mentions in free text.
package skills

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize lowercases a skill name, applies NFKC and collapses whitespace.
// Comparisons between skill names are done on normalized values only.
func Normalize(skill string) string {
	if skill == "" {
		return ""
	}
	s := norm.NFKC.String(skill)
	s = strings.ToLower(s)
	return strings.Join(strings.Fields(s), " ")
}

// Fold is Normalize with diacritics removed. Used for dictionary lookups so
// that "Résumé" and "resume" hit the same entry.
func Fold(skill string) string {
	s := Normalize(skill)
	if s == "" {
		return ""
	}
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return folded
}
