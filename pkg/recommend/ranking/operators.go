package ranking

import (
	"strings"

	"ai-budtender-be/pkg/recommend/criteria"
	"ai-budtender-be/pkg/recommend/vocab"
	"ai-budtender-be/pkg/store"
)

// Matches reports whether s satisfies f.
func Matches(s store.Strain, f criteria.Filter) bool {
	return Evaluate(FieldValue(s, string(f.Field)), f.Expr)
}

// MatchesAll reports whether s satisfies every filter of c.
func MatchesAll(s store.Strain, c criteria.Criteria) bool {
	for _, f := range c.Filters {
		if !Matches(s, f) {
			return false
		}
	}
	return true
}

// Evaluate applies one expression to a value. Set comparisons are case-insensitive after synonym
// resolution. Missing data never satisfies a positive expression and always satisfies an exclusion.
func Evaluate(v Value, e criteria.Expr) bool {
	switch x := e.(type) {
	case criteria.Eq:
		if n, ok := CleanNumeric(x.Value); ok && v.HasNum {
			return n == v.Num
		}
		if v.IsSet {
			return vocab.ContainsTerm(v.Set, x.Value)
		}
		return v.Text != "" && vocab.EqualTerms(v.Text, x.Value)
	case criteria.Compare:
		return v.HasNum && criteria.Holds(x, v.Num)
	case criteria.Range:
		return v.HasNum && criteria.Holds(x, v.Num)
	case criteria.Contains:
		return len(x.Values) > 0 && Coverage(v, x.Values) == 1
	case criteria.NotContains:
		return Coverage(v, x.Values) == 0
	case criteria.Any:
		return Coverage(v, x.Values) > 0
	}
	return false
}

// Coverage is the fraction of values present in v.
func Coverage(v Value, values []string) float64 {
	if len(values) == 0 {
		return 0
	}
	hits := 0
	for _, want := range values {
		if has(v, want) {
			hits++
		}
	}
	return float64(hits) / float64(len(values))
}

func has(v Value, want string) bool {
	if v.IsSet {
		return vocab.ContainsTerm(v.Set, want)
	}
	if v.Text == "" {
		return false
	}
	return strings.Contains(vocab.Fold(v.Text), vocab.Canon(want)) || strings.Contains(vocab.Fold(v.Text), vocab.Fold(want))
}
