// Package vocab normalizes attribute terms and maps user wording onto catalog vocabulary.
package vocab

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold lowercases, strips accents and collapses whitespace. "Relajación " -> "relajacion".
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.Join(strings.Fields(strings.ToLower(folded)), " ")
}

// Title renders a canonical value the way the catalog stores it. "dry mouth" -> "Dry Mouth".
func Title(s string) string {
	// Casers are stateful; one per call.
	return cases.Title(language.English).String(strings.TrimSpace(s))
}

// Canon folds s and resolves known synonyms, giving the comparison key for set membership.
func Canon(s string) string {
	f := Fold(s)
	if c, ok := synonyms[f]; ok {
		return c
	}
	return f
}

// EqualTerms reports whether a and b name the same attribute.
func EqualTerms(a, b string) bool {
	return Canon(a) == Canon(b)
}

// ContainsTerm reports whether list holds a term equal to v.
func ContainsTerm(list []string, v string) bool {
	key := Canon(v)
	for _, x := range list {
		if Canon(x) == key {
			return true
		}
	}
	return false
}

// Tokens splits free text into folded words.
func Tokens(text string) []string {
	return strings.FieldsFunc(Fold(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '.'
	})
}

// Dedupe removes duplicate terms keeping first occurrence.
func Dedupe(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		k := Canon(v)
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, v)
	}
	return out
}
