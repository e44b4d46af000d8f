// Package fuzzy maps free-form attribute terms onto the catalog vocabulary.
package fuzzy

import (
	"ai-budtender-be/internal/pkg/logger"
	"ai-budtender-be/pkg/recommend/criteria"
	"ai-budtender-be/pkg/recommend/taxonomy"
)

const module = "FUZZY_MATCHER"

// Strategy finds the vocabulary entry closest to term, if any.
type Strategy interface {
	Name() string
	Match(term string, vocabulary []string) (string, bool)
}

// Match is a resolved term.
type Match struct {
	Term     string
	Value    string
	Strategy string
}

// Matcher tries strategies in order; the first hit wins.
type Matcher struct {
	strategies []Strategy
	log        logger.ILogger
}

func DefaultStrategies() []Strategy {
	return []Strategy{
		Exact{},
		Substring{MinLength: 3},
		Subsequence{MinCoverage: 0.5, MinLength: 3},
		EditDistance{MinSimilarity: 0.75},
	}
}

func NewMatcher(log logger.ILogger, strategies ...Strategy) *Matcher {
	if len(strategies) == 0 {
		strategies = DefaultStrategies()
	}
	return &Matcher{strategies: strategies, log: log}
}

func (m *Matcher) Match(term string, vocabulary []string) (Match, bool) {
	if term == "" || len(vocabulary) == 0 {
		return Match{}, false
	}
	for _, s := range m.strategies {
		if v, ok := s.Match(term, vocabulary); ok {
			return Match{Term: term, Value: v, Strategy: s.Name()}, true
		}
	}
	return Match{}, false
}

// Resolve maps terms for field onto the taxonomy. Localized aliases are tried before the strategies.
// Unmatched terms are returned separately so callers can keep them for partial store matching.
func (m *Matcher) Resolve(tax *taxonomy.Taxonomy, field criteria.Field, terms []string) (resolved, unmatched []string) {
	vocabulary := tax.Vocabulary(field)
	for _, term := range terms {
		if v, ok := tax.Lookup(field, term); ok {
			resolved = append(resolved, v)
			continue
		}
		if match, ok := m.Match(term, vocabulary); ok {
			if match.Strategy != "exact" {
				m.log.Debug(module, "Approximate attribute match", map[string]interface{}{
					"field": field, "term": term, "value": match.Value, "strategy": match.Strategy,
				})
			}
			resolved = append(resolved, match.Value)
			continue
		}
		unmatched = append(unmatched, term)
	}
	return resolved, unmatched
}
