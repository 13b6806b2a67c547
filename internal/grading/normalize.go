// Package grading scores case answers. Every function is pure and safe for
// concurrent use.
package grading

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MinKeywordLength is the shortest token ExtractKeywords keeps, in runes.
const MinKeywordLength = 4

// Normalize lowercases text and strips diacritics so that "Fiebre Alta" and
// "fiebre álta" compare equal.
func Normalize(text string) string {
	// transform.Chain keeps state, so build one per call.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, text)
	if err != nil {
		folded = text
	}
	return strings.ToLower(folded)
}

// ExtractKeywords splits a criterion into normalized words and keeps those of at
// least MinKeywordLength runes, in order of appearance.
func ExtractKeywords(criterion string) []string {
	words := strings.FieldsFunc(Normalize(criterion), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	keywords := make([]string, 0, len(words))
	for _, w := range words {
		if utf8.RuneCountInString(w) >= MinKeywordLength {
			keywords = append(keywords, w)
		}
	}
	return keywords
}
