package fuzzy

import (
	"strings"
	"unicode/utf8"

	"ai-budtender-be/pkg/recommend/vocab"

	"github.com/agnivade/levenshtein"
	sfuzzy "github.com/sahilm/fuzzy"
)

// Exact matches after folding and synonym resolution ("mint" finds "Menthol").
type Exact struct{}

func (Exact) Name() string { return "exact" }

func (Exact) Match(term string, vocabulary []string) (string, bool) {
	for _, v := range vocabulary {
		if vocab.EqualTerms(v, term) {
			return v, true
		}
	}
	return "", false
}

// Substring matches when one side contains the other. The shortest containing entry wins.
type Substring struct {
	MinLength int
}

func (Substring) Name() string { return "substring" }

func (s Substring) Match(term string, vocabulary []string) (string, bool) {
	t := vocab.Canon(term)
	if len([]rune(t)) < s.MinLength {
		return "", false
	}
	best, bestLen := "", 0
	for _, v := range vocabulary {
		f := vocab.Fold(v)
		if !strings.Contains(f, t) && !strings.Contains(t, f) {
			continue
		}
		if best == "" || len(f) < bestLen {
			best, bestLen = v, len(f)
		}
	}
	return best, best != ""
}

// Subsequence uses ordered-character matching ("rlxd" finds "Relaxed"). The pattern must cover at least
// MinCoverage of the candidate to avoid short patterns matching everything.
type Subsequence struct {
	MinCoverage float64
	MinLength   int
}

func (Subsequence) Name() string { return "subsequence" }

func (s Subsequence) Match(term string, vocabulary []string) (string, bool) {
	pattern := vocab.Fold(term)
	if len([]rune(pattern)) < s.MinLength {
		return "", false
	}
	folded := make([]string, len(vocabulary))
	for i, v := range vocabulary {
		folded[i] = vocab.Fold(v)
	}
	for _, m := range sfuzzy.Find(pattern, folded) {
		coverage := float64(len([]rune(pattern))) / float64(len([]rune(m.Str)))
		if coverage >= s.MinCoverage {
			return vocabulary[m.Index], true
		}
	}
	return "", false
}

// EditDistance catches typos ("citris" finds "Citrus").
type EditDistance struct {
	MinSimilarity float64
}

func (EditDistance) Name() string { return "edit_distance" }

func (e EditDistance) Match(term string, vocabulary []string) (string, bool) {
	t := vocab.Fold(term)
	best, bestScore := "", 0.0
	for _, v := range vocabulary {
		score := similarity(t, vocab.Fold(v))
		if score > bestScore {
			best, bestScore = v, score
		}
	}
	if bestScore >= e.MinSimilarity {
		return best, true
	}
	return "", false
}

// similarity is 1 - levenshtein/maxLen, over runes.
func similarity(a, b string) float64 {
	maxLen := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if maxLen == 0 {
		return 1
	}
	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(maxLen)
}
