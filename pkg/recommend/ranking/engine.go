package ranking

import (
	"context"

	"ai-budtender-be/internal/pkg/logger"
	"ai-budtender-be/pkg/recommend/criteria"
	"ai-budtender-be/pkg/recommend/plan"
	"ai-budtender-be/pkg/store"
)

// Request is one ranking call.
type Request struct {
	Items    []store.Strain
	Criteria criteria.Criteria
	Method   plan.ScoringMethod
	Sort     plan.SortSpec
	Query    string
	Limit    int
}

// Engine picks the ranking strategy for a request. vector may be nil.
type Engine struct {
	cfg    Config
	vector *VectorRanker
	log    logger.ILogger
}

func NewEngine(cfg Config, vector *VectorRanker, log logger.ILogger) *Engine {
	return &Engine{cfg: cfg, vector: vector, log: log}
}

// Rank orders req.Items. An explicit sort wins, then weighted scoring when requested or when medical
// criteria are present, then semantic re-ranking when a query is available.
func (e *Engine) Rank(ctx context.Context, req Request) []ScoredItem {
	var out []ScoredItem
	switch {
	case !req.Sort.IsZero():
		out = plain(SortBy(req.Items, req.Sort.Field, req.Sort.Order))
	case req.Method == plan.ScoringWeightedPriority || len(req.Criteria.MedicalFilters()) > 0:
		out = e.Weighted(req.Items, req.Criteria)
	case req.Query != "" && e.vector != nil:
		out = plain(e.vector.Rerank(ctx, req.Query, req.Items, req.Limit))
	default:
		out = plain(req.Items)
	}

	if req.Limit > 0 && len(out) > req.Limit {
		out = out[:req.Limit]
	}
	return out
}

// Items unwraps scored items.
func Items(scored []ScoredItem) []store.Strain {
	out := make([]store.Strain, len(scored))
	for i, s := range scored {
		out[i] = s.Strain
	}
	return out
}

func plain(items []store.Strain) []ScoredItem {
	out := make([]ScoredItem, len(items))
	for i, s := range items {
		out[i] = ScoredItem{Strain: s, Qualified: true}
	}
	return out
}
