package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"ai-budtender-be/pkg/embedding"
	"ai-budtender-be/pkg/recommend/catalog"
	"ai-budtender-be/pkg/recommend/criteria"
	"ai-budtender-be/pkg/recommend/ranking"
	"ai-budtender-be/pkg/recommend/taxonomy"
	"ai-budtender-be/pkg/recommend/vocab"
	"ai-budtender-be/pkg/store"
)

// CatalogRepository is an in-process catalog used by the simulation command and tests.
type CatalogRepository struct {
	mu      sync.RWMutex
	items   []store.Strain
	vectors map[int64][]float32
	aliases map[string]map[string]string
}

func NewCatalogRepository(items ...store.Strain) *CatalogRepository {
	return &CatalogRepository{
		items:   append([]store.Strain(nil), items...),
		vectors: make(map[int64][]float32),
		aliases: make(map[string]map[string]string),
	}
}

func (r *CatalogRepository) SetEmbedding(id int64, vec []float32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.vectors[id] = vec
}

// SetAlias registers a localized attribute name.
func (r *CatalogRepository) SetAlias(language, localized, canonical string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.aliases[language] == nil {
		r.aliases[language] = make(map[string]string)
	}
	r.aliases[language][vocab.Fold(localized)] = canonical
}

func (r *CatalogRepository) Search(ctx context.Context, q catalog.Query) ([]store.Strain, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []store.Strain
	for _, s := range r.items {
		if !matchQuery(s, q) {
			continue
		}
		out = append(out, s)
		if q.Limit > 0 && len(out) == q.Limit {
			break
		}
	}
	return out, nil
}

func matchQuery(s store.Strain, q catalog.Query) bool {
	if q.Category != "" && !vocab.EqualTerms(s.Category, q.Category) {
		return false
	}
	if q.THC != nil && !ranking.Evaluate(ranking.FieldValue(s, "thc"), q.THC) {
		return false
	}
	if q.CBD != nil && !ranking.Evaluate(ranking.FieldValue(s, "cbd"), q.CBD) {
		return false
	}
	desired := []struct {
		field  criteria.Field
		values []string
	}{
		{criteria.FieldEffects, q.Effects},
		{criteria.FieldHelpsWith, q.MedicalUses},
		{criteria.FieldFlavors, q.Flavors},
		{criteria.FieldTerpenes, q.Terpenes},
	}
	for _, d := range desired {
		if len(d.values) > 0 && ranking.Coverage(ranking.FieldValue(s, string(d.field)), d.values) == 0 {
			return false
		}
	}
	if len(q.ExcludeEffects) > 0 && ranking.Coverage(ranking.FieldValue(s, "effects"), q.ExcludeEffects) > 0 {
		return false
	}
	if len(q.ExcludeNegatives) > 0 && ranking.Coverage(ranking.FieldValue(s, "negatives"), q.ExcludeNegatives) > 0 {
		return false
	}
	return true
}

func (r *CatalogRepository) FindByIDs(ctx context.Context, ids []int64) ([]store.Strain, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	want := make(map[int64]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []store.Strain
	for _, s := range r.items {
		if want[s.ID] {
			out = append(out, s)
		}
	}
	return out, nil
}

// NearestIDs ranks by cosine distance. Strains without a vector are skipped.
func (r *CatalogRepository) NearestIDs(ctx context.Context, vector []float32, allow []int64, limit int) ([]catalog.ScoredID, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	allowed := make(map[int64]bool, len(allow))
	for _, id := range allow {
		allowed[id] = true
	}
	var out []catalog.ScoredID
	for _, s := range r.items {
		vec, ok := r.vectors[s.ID]
		if !ok || (len(allow) > 0 && !allowed[s.ID]) {
			continue
		}
		out = append(out, catalog.ScoredID{ID: s.ID, Distance: 1 - embedding.Cosine(vector, vec)})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Distance < out[j].Distance })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *CatalogRepository) TopN(ctx context.Context, n int) ([]store.Strain, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if n <= 0 || n > len(r.items) {
		n = len(r.items)
	}
	return append([]store.Strain(nil), r.items[:n]...), nil
}

// LoadTaxonomy derives the vocabulary from the strains held in memory.
func (r *CatalogRepository) LoadTaxonomy(ctx context.Context, language string) (*taxonomy.Taxonomy, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	t := taxonomy.Empty(language)
	for _, s := range r.items {
		t.Terms[criteria.FieldEffects] = append(t.Terms[criteria.FieldEffects], s.Effects...)
		t.Terms[criteria.FieldHelpsWith] = append(t.Terms[criteria.FieldHelpsWith], s.MedicalUses...)
		t.Terms[criteria.FieldNegatives] = append(t.Terms[criteria.FieldNegatives], s.Negatives...)
		t.Terms[criteria.FieldFlavors] = append(t.Terms[criteria.FieldFlavors], s.Flavors...)
		t.Terms[criteria.FieldTerpenes] = append(t.Terms[criteria.FieldTerpenes], s.Terpenes...)
		for _, f := range []criteria.Field{criteria.FieldTHC, criteria.FieldCBD} {
			v := ranking.FieldValue(s, string(f))
			if !v.HasNum {
				continue
			}
			b, ok := t.Bounds[f]
			if !ok {
				b = criteria.Bounds{Min: v.Num, Max: v.Num}
			}
			if v.Num < b.Min {
				b.Min = v.Num
			}
			if v.Num > b.Max {
				b.Max = v.Num
			}
			t.Bounds[f] = b
		}
	}
	for f, terms := range t.Terms {
		t.Terms[f] = vocab.Dedupe(terms)
	}
	for k, v := range r.aliases[language] {
		t.Aliases[k] = v
	}
	t.Strains = int64(len(r.items))
	t.LoadedAt = time.Now()
	return t, nil
}
