// Package taxonomy caches the catalog vocabulary (attribute names per language, categories, numeric bounds).
package taxonomy

import (
	"context"
	"time"

	"ai-budtender-be/pkg/recommend/criteria"
	"ai-budtender-be/pkg/recommend/vocab"
)

// Taxonomy is the vocabulary of one language.
type Taxonomy struct {
	Language   string
	Categories []string
	// Canonical catalog names per attribute field.
	Terms map[criteria.Field][]string
	// Folded localized name to canonical name.
	Aliases  map[string]string
	Bounds map[criteria.Field]criteria.Bounds
	// Catalog size when the taxonomy was loaded.
	Strains  int64
	LoadedAt time.Time
}

// Loader reads the taxonomy from the catalog store.
type Loader interface {
	LoadTaxonomy(ctx context.Context, language string) (*Taxonomy, error)
}

// Empty is the taxonomy used when nothing could be loaded.
func Empty(language string) *Taxonomy {
	return &Taxonomy{
		Language:   language,
		Categories: append([]string(nil), criteria.Categories...),
		Terms:      make(map[criteria.Field][]string),
		Aliases:    make(map[string]string),
		Bounds:     make(map[criteria.Field]criteria.Bounds),
	}
}

func (t *Taxonomy) Vocabulary(field criteria.Field) []string {
	if t == nil {
		return nil
	}
	return t.Terms[field]
}

func (t *Taxonomy) IsEmpty() bool {
	if t == nil {
		return true
	}
	for _, terms := range t.Terms {
		if len(terms) > 0 {
			return false
		}
	}
	return true
}

// Lookup returns the canonical name for an exact (folded or aliased) match.
func (t *Taxonomy) Lookup(field criteria.Field, term string) (string, bool) {
	if t == nil {
		return "", false
	}
	if canonical, ok := t.Aliases[vocab.Fold(term)]; ok && containsExact(t.Terms[field], canonical) {
		return canonical, true
	}
	for _, name := range t.Terms[field] {
		if vocab.EqualTerms(name, term) {
			return name, true
		}
	}
	return "", false
}

// ParseOptions returns criteria parse options clamped to this taxonomy's numeric bounds.
func (t *Taxonomy) ParseOptions(base criteria.ParseOptions) criteria.ParseOptions {
	if t != nil && len(t.Bounds) > 0 {
		base.Bounds = t.Bounds
	}
	return base
}

func containsExact(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}
