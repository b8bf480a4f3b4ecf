// Package matcher scores how well an uploaded column name matches a template column,
// using accent and separator insensitive comparison, a synonym table and edit distance.
package matcher

import (
	"strings"
	"unicode"

	"github.com/texttheater/golang-levenshtein/levenshtein"
	"golang.org/x/text/unicode/norm"
)

// Normalize folds a column name into its comparison form: lower case, combining
// diacritics (U+0300..U+036F) removed, underscores, hyphens and whitespace removed.
// Every other character is kept, so "Receita (R$)" becomes "receita(r$)".
func Normalize(name string) string {
	decomposed := norm.NFD.String(strings.ToLower(name))

	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		switch {
		case r >= 0x0300 && r <= 0x036F:
		case r == '_' || r == '-' || unicode.IsSpace(r):
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

var editOptions = levenshtein.Options{
	InsCost: 1,
	DelCost: 1,
	SubCost: 1,
	Matches: levenshtein.IdenticalRunes,
}

// Similarity scores two names in [0, 1]. Equal normalized forms score 1,
// containment of one in the other scores 0.8, anything else is
// 1 - distance/maxLen over the normalized forms.
func Similarity(a, b string) float64 {
	s1, s2 := Normalize(a), Normalize(b)
	if s1 == s2 {
		return 1
	}
	if strings.Contains(s1, s2) || strings.Contains(s2, s1) {
		return 0.8
	}

	r1, r2 := []rune(s1), []rune(s2)
	maxLen := max(len(r1), len(r2))
	if maxLen == 0 {
		return 1
	}
	dist := levenshtein.DistanceForStrings(r1, r2, editOptions)
	return 1 - float64(dist)/float64(maxLen)
}
