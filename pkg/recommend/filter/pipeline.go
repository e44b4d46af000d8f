// Package filter narrows the catalog to candidates for a set of criteria, relaxing step by step until
// something is found.
package filter

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"ai-budtender-be/internal/pkg/logger"
	"ai-budtender-be/pkg/embedding"
	"ai-budtender-be/pkg/recommend/catalog"
	"ai-budtender-be/pkg/recommend/criteria"
	"ai-budtender-be/pkg/recommend/fuzzy"
	"ai-budtender-be/pkg/recommend/ranking"
	"ai-budtender-be/pkg/recommend/taxonomy"
	"ai-budtender-be/pkg/recommend/vocab"
	"ai-budtender-be/pkg/store"
)

const module = "FILTER_PIPELINE"

type Stage string

const (
	StageDirect              Stage = "direct"
	StageAllCriteria         Stage = "all_criteria"
	StageWithoutAvoid        Stage = "without_avoid"
	StageCategoryFromEffects Stage = "category_from_effects"
	StageVectorSimilarity    Stage = "vector_similarity"
	StageLastResort          Stage = "last_resort"
)

type Config struct {
	ResultLimit    int
	CandidatePool  int
	LastResortSize int
	// Number of leading candidates reordered by flavor similarity.
	FlavorBoostWindow int
	EmbeddingTimeout  time.Duration
}

func DefaultConfig() Config {
	return Config{
		ResultLimit:       10,
		CandidatePool:     200,
		LastResortSize:    5,
		FlavorBoostWindow: 20,
		EmbeddingTimeout:  3 * time.Second,
	}
}

type SearchRequest struct {
	Criteria criteria.Criteria
	Query    string
	Language string
	Limit    int
}

// Result of a catalog search. Attempted lists every stage tried, in order, ending with Stage.
type Result struct {
	Items     []store.Strain
	Criteria  criteria.Criteria
	Stage     Stage
	Attempted []Stage
	Relaxed   []string
	Fallback  bool
}

// Pipeline runs hard filters in the store, soft filters in memory and the relaxation cascade.
// vector and embedder may be nil; the stages that need them are then skipped.
type Pipeline struct {
	store    catalog.Store
	taxonomy *taxonomy.Cache
	matcher  *fuzzy.Matcher
	vector   *ranking.VectorRanker
	embedder embedding.EmbeddingProvider
	cfg      Config
	log      logger.ILogger
}

func NewPipeline(
	store catalog.Store,
	tax *taxonomy.Cache,
	matcher *fuzzy.Matcher,
	vector *ranking.VectorRanker,
	embedder embedding.EmbeddingProvider,
	cfg Config,
	log logger.ILogger,
) *Pipeline {
	return &Pipeline{
		store:    store,
		taxonomy: tax,
		matcher:  matcher,
		vector:   vector,
		embedder: embedder,
		cfg:      cfg,
		log:      log,
	}
}

// Resolve maps every set value of c onto the catalog vocabulary. Unmatched terms are kept as typed so
// the store can still match them partially.
func (p *Pipeline) Resolve(ctx context.Context, c criteria.Criteria, language string) criteria.Criteria {
	tax := p.taxonomy.Get(ctx, language)
	out := c.Clone()
	for i, f := range out.Filters {
		if !f.Field.IsSet() {
			continue
		}
		values := criteria.Values(f.Expr)
		resolved, unmatched := p.matcher.Resolve(tax, f.Field, values)
		all := vocab.Dedupe(append(resolved, unmatched...))
		switch f.Expr.(type) {
		case criteria.Contains:
			out.Filters[i].Expr = criteria.Contains{Values: all}
		case criteria.NotContains:
			out.Filters[i].Expr = criteria.NotContains{Values: all}
		case criteria.Any:
			out.Filters[i].Expr = criteria.Any{Values: all}
		}
	}
	return out
}

// Filter applies c to an in-context set. Hard filters always apply and may empty the set; soft filters
// are skipped when they would.
func (p *Pipeline) Filter(ctx context.Context, c criteria.Criteria, items []store.Strain, language string) ([]store.Strain, []string) {
	c = p.Resolve(ctx, c, language)
	var hard []store.Strain
	for _, s := range items {
		if matchesHard(s, c) {
			hard = append(hard, s)
		}
	}
	return p.soft(hard, c)
}

// Search runs a fresh catalog search. Only total store failure is returned as an error.
func (p *Pipeline) Search(ctx context.Context, req SearchRequest) (*Result, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = p.cfg.ResultLimit
	}
	c := p.Resolve(ctx, req.Criteria, req.Language)
	res := &Result{Criteria: c, Stage: StageDirect, Attempted: []Stage{StageDirect}}

	// 1. Direct search: hard filters, then set filters narrowed in the store
	items, relaxed, err := p.narrow(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", catalog.ErrUnavailable, err)
	}
	res.Relaxed = relaxed
	if len(items) > 0 {
		res.Items = p.order(ctx, items, c, limit)
		return res, nil
	}

	// 2. Relaxation cascade
	for _, st := range p.cascade() {
		res.Attempted = append(res.Attempted, st.name)
		found, err := st.run(ctx, c, req, limit)
		if err != nil {
			p.log.Warn(module, "Relaxation stage failed", map[string]interface{}{"stage": st.name, "error": err.Error()})
			if st.name == StageLastResort {
				return nil, fmt.Errorf("%w: %v", catalog.ErrUnavailable, err)
			}
			continue
		}
		if len(found) == 0 {
			continue
		}
		res.Stage = st.name
		res.Fallback = st.name == StageLastResort
		if st.name == StageVectorSimilarity || st.name == StageLastResort {
			res.Items = capItems(found, limit)
		} else {
			res.Items = p.order(ctx, found, c, limit)
		}
		p.log.Info(module, "Search relaxed", map[string]interface{}{
			"stage": st.name, "attempted": res.Attempted, "count": len(res.Items),
		})
		return res, nil
	}

	res.Stage = StageLastResort
	res.Fallback = true
	return res, nil
}

type stage struct {
	name Stage
	run  func(ctx context.Context, c criteria.Criteria, req SearchRequest, limit int) ([]store.Strain, error)
}

// cascade is the ordered relaxation list. The first non-empty stage wins.
func (p *Pipeline) cascade() []stage {
	return []stage{
		{StageAllCriteria, func(ctx context.Context, c criteria.Criteria, _ SearchRequest, _ int) ([]store.Strain, error) {
			return p.store.Search(ctx, attributeQuery(c, p.cfg.CandidatePool, true))
		}},
		{StageWithoutAvoid, func(ctx context.Context, c criteria.Criteria, _ SearchRequest, _ int) ([]store.Strain, error) {
			return p.store.Search(ctx, attributeQuery(c, p.cfg.CandidatePool, false))
		}},
		{StageCategoryFromEffects, func(ctx context.Context, c criteria.Criteria, _ SearchRequest, _ int) ([]store.Strain, error) {
			return p.store.Search(ctx, catalog.Query{Category: CategoryForEffects(c.Desired(criteria.FieldEffects)), Limit: p.cfg.CandidatePool})
		}},
		{StageVectorSimilarity, func(ctx context.Context, c criteria.Criteria, req SearchRequest, limit int) ([]store.Strain, error) {
			text := semanticText(req.Query, c)
			if p.vector == nil || text == "" {
				return nil, nil
			}
			return p.vector.Nearest(ctx, text, limit)
		}},
		{StageLastResort, func(ctx context.Context, _ criteria.Criteria, _ SearchRequest, _ int) ([]store.Strain, error) {
			return p.store.TopN(ctx, p.cfg.LastResortSize)
		}},
	}
}

func hardQuery(c criteria.Criteria, limit int) catalog.Query {
	q := catalog.Query{Category: c.Category(), Limit: limit}
	if f, ok := c.Numeric(criteria.FieldTHC); ok {
		q.THC = f.Expr
	}
	if f, ok := c.Numeric(criteria.FieldCBD); ok {
		q.CBD = f.Expr
	}
	return q
}

// attributeQuery matches attributes partially in the store. Numeric ranges are left out: they are
// what emptied the direct search.
func attributeQuery(c criteria.Criteria, limit int, withAvoid bool) catalog.Query {
	q := catalog.Query{
		Category:    c.Category(),
		Effects:     c.Desired(criteria.FieldEffects),
		MedicalUses: c.Desired(criteria.FieldHelpsWith),
		Flavors:     c.Desired(criteria.FieldFlavors),
		Terpenes:    c.Desired(criteria.FieldTerpenes),
		Limit:       limit,
	}
	if withAvoid {
		q.ExcludeEffects = c.Avoided(criteria.FieldEffects)
		q.ExcludeNegatives = c.Avoided(criteria.FieldNegatives)
	}
	return q
}

func matchesHard(s store.Strain, c criteria.Criteria) bool {
	for _, f := range c.Filters {
		if f.Field == criteria.FieldCategory || f.Field.IsNumeric() {
			if !ranking.Matches(s, f) {
				return false
			}
		}
	}
	return true
}

// narrow runs the hard filters in the store, then adds set filters one at a time to the store query.
// A filter is kept only when the catalog still has a strain matching it together with every filter
// kept before it.
func (p *Pipeline) narrow(ctx context.Context, c criteria.Criteria) ([]store.Strain, []string, error) {
	q := hardQuery(c, p.cfg.CandidatePool)
	items, err := p.store.Search(ctx, q)
	if err != nil || len(items) == 0 {
		return nil, nil, err
	}

	var kept criteria.Criteria
	var relaxed []string
	for _, f := range c.Filters {
		if !f.Field.IsSet() {
			continue
		}
		next := pushDown(q, f)
		found, err := p.store.Search(ctx, next)
		if err != nil {
			return nil, nil, err
		}
		trial := kept.With(f)
		var matched []store.Strain
		for _, s := range found {
			if ranking.MatchesAll(s, trial) {
				matched = append(matched, s)
			}
		}
		if len(matched) == 0 {
			desc := fmt.Sprintf("%s %s %s", f.Field, f.Expr.Op(), f.Expr)
			relaxed = append(relaxed, desc)
			p.log.Debug(module, "Soft filter skipped", map[string]interface{}{"filter": desc})
			continue
		}
		q, kept, items = next, trial, matched
	}
	return items, relaxed, nil
}

// pushDown adds f to q where the store can express it. Desired values narrow to strains with at least
// one hit; exact containment is checked in memory afterwards.
func pushDown(q catalog.Query, f criteria.Filter) catalog.Query {
	values := criteria.Values(f.Expr)
	extend := func(list []string) []string {
		return vocab.Dedupe(append(append([]string(nil), list...), values...))
	}
	if criteria.IsExclusion(f.Expr) {
		switch f.Field {
		case criteria.FieldEffects:
			q.ExcludeEffects = extend(q.ExcludeEffects)
		case criteria.FieldNegatives:
			q.ExcludeNegatives = extend(q.ExcludeNegatives)
		}
		return q
	}
	switch f.Field {
	case criteria.FieldEffects:
		q.Effects = extend(q.Effects)
	case criteria.FieldHelpsWith:
		q.MedicalUses = extend(q.MedicalUses)
	case criteria.FieldFlavors:
		q.Flavors = extend(q.Flavors)
	case criteria.FieldTerpenes:
		q.Terpenes = extend(q.Terpenes)
	}
	return q
}

// soft applies set filters one at a time, skipping any that would empty the result.
func (p *Pipeline) soft(items []store.Strain, c criteria.Criteria) ([]store.Strain, []string) {
	if len(items) == 0 {
		return items, nil
	}
	var relaxed []string
	for _, f := range c.Filters {
		if !f.Field.IsSet() {
			continue
		}
		var next []store.Strain
		for _, s := range items {
			if ranking.Matches(s, f) {
				next = append(next, s)
			}
		}
		if len(next) == 0 {
			desc := fmt.Sprintf("%s %s %s", f.Field, f.Expr.Op(), f.Expr)
			relaxed = append(relaxed, desc)
			p.log.Debug(module, "Soft filter skipped", map[string]interface{}{"filter": desc})
			continue
		}
		items = next
	}
	return items, relaxed
}

// order sorts by desired-effect overlap, then nudges flavor matches up within the boost window.
func (p *Pipeline) order(ctx context.Context, items []store.Strain, c criteria.Criteria, limit int) []store.Strain {
	out := append([]store.Strain(nil), items...)
	effects := c.Desired(criteria.FieldEffects)
	flavors := c.Desired(criteria.FieldFlavors)

	scores := make(map[int64]float64, len(out))
	for _, s := range out {
		scores[s.ID] = float64(overlap(s.Effects, effects))
	}
	if len(flavors) > 0 && p.embedder != nil {
		p.flavorBoost(ctx, out, flavors, scores)
	}
	sort.SliceStable(out, func(i, j int) bool { return scores[out[i].ID] > scores[out[j].ID] })
	return capItems(out, limit)
}

// flavorBoost adds a sub-unit similarity bonus, so it never outweighs one more matching effect.
func (p *Pipeline) flavorBoost(ctx context.Context, items []store.Strain, flavors []string, scores map[int64]float64) {
	ectx, cancel := context.WithTimeout(ctx, p.cfg.EmbeddingTimeout)
	defer cancel()

	want, err := p.embedder.Generate(ectx, strings.Join(flavors, ", "), embedding.TaskSimilar)
	if err != nil {
		p.log.Warn(module, "Flavor embedding failed, boost skipped", map[string]interface{}{"error": err.Error()})
		return
	}
	window := p.cfg.FlavorBoostWindow
	if window <= 0 || window > len(items) {
		window = len(items)
	}
	for _, s := range items[:window] {
		if len(s.Flavors) == 0 {
			continue
		}
		got, err := p.embedder.Generate(ectx, strings.Join(s.Flavors, ", "), embedding.TaskSimilar)
		if err != nil {
			return
		}
		sim := embedding.Cosine(want.Embedding.Values, got.Embedding.Values)
		if sim > 0 {
			scores[s.ID] += sim * 0.99
		}
	}
}

// CategoryForEffects guesses a category from desired effects.
func CategoryForEffects(effects []string) string {
	for _, e := range effects {
		switch vocab.Canon(e) {
		case "sleepy", "relaxed", "hungry":
			return "Indica"
		case "energetic", "uplifted", "focused", "creative":
			return "Sativa"
		}
	}
	return "Hybrid"
}

func semanticText(query string, c criteria.Criteria) string {
	if strings.TrimSpace(query) != "" {
		return query
	}
	var terms []string
	for _, f := range []criteria.Field{criteria.FieldEffects, criteria.FieldHelpsWith, criteria.FieldFlavors} {
		terms = append(terms, c.Desired(f)...)
	}
	return strings.Join(terms, " ")
}

func overlap(have, want []string) int {
	n := 0
	for _, w := range want {
		if vocab.ContainsTerm(have, w) {
			n++
		}
	}
	return n
}

func capItems(items []store.Strain, limit int) []store.Strain {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}
