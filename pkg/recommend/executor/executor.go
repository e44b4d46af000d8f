// Package executor turns an action plan into a concrete list of strains.
package executor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ai-budtender-be/internal/pkg/logger"
	"ai-budtender-be/pkg/recommend/catalog"
	"ai-budtender-be/pkg/recommend/criteria"
	"ai-budtender-be/pkg/recommend/filter"
	"ai-budtender-be/pkg/recommend/plan"
	"ai-budtender-be/pkg/recommend/ranking"
	"ai-budtender-be/pkg/recommend/vocab"
	"ai-budtender-be/pkg/store"
)

const module = "ACTION_EXECUTOR"

// CandidateSource finds candidates. *filter.Pipeline implements it.
type CandidateSource interface {
	Search(ctx context.Context, req filter.SearchRequest) (*filter.Result, error)
	Filter(ctx context.Context, c criteria.Criteria, items []store.Strain, language string) ([]store.Strain, []string)
}

type Request struct {
	Plan      plan.ActionPlan
	InContext []store.Strain
	Query     string
	Language  string
}

// Outcome is the executed result. Escalated is set when an in-context action had to fall back to a
// fresh search.
type Outcome struct {
	Items     []store.Strain
	Action    plan.Action
	Escalated bool
	Fallback  bool
	Stage     filter.Stage
	Notes     []string
}

type Executor struct {
	source CandidateSource
	ranker *ranking.Engine
	limit  int
	log    logger.ILogger
}

func NewExecutor(source CandidateSource, ranker *ranking.Engine, limit int, log logger.ILogger) *Executor {
	if limit <= 0 {
		limit = 10
	}
	return &Executor{source: source, ranker: ranker, limit: limit, log: log}
}

// Execute runs the plan. Failures and panics inside an action return the in-context list unchanged;
// an error is returned only when the catalog is unreachable and there is nothing to fall back to.
func (e *Executor) Execute(ctx context.Context, req Request) (out Outcome, err error) {
	action := req.Plan.PrimaryAction
	defer func() {
		if r := recover(); r != nil {
			e.log.Error(module, "Action panicked, keeping context", map[string]interface{}{
				"action": action, "panic": fmt.Sprint(r),
			})
			out, err = e.unchanged(req, "recovered from panic"), nil
		}
	}()

	switch action {
	case plan.ActionSort:
		out, err = e.sort(ctx, req)
	case plan.ActionFilter:
		out, err = e.filter(ctx, req)
	case plan.ActionSelect:
		out = e.selectOne(req)
	case plan.ActionExplain:
		out = e.unchanged(req, "")
	case plan.ActionSearch:
		out, err = e.search(ctx, req)
	case plan.ActionExpand:
		out, err = e.expand(ctx, req)
	default:
		e.log.Warn(module, "Unknown action, keeping context", map[string]interface{}{"action": action})
		return e.unchanged(req, "unknown action"), nil
	}

	if err != nil {
		if errors.Is(err, catalog.ErrUnavailable) && len(req.InContext) == 0 {
			return Outcome{Action: action}, err
		}
		e.log.Warn(module, "Action failed, keeping context", map[string]interface{}{"action": action, "error": err.Error()})
		return e.unchanged(req, "action failed"), nil
	}

	if len(out.Items) == 0 && escalatesWhenEmpty(action) && !out.Escalated {
		return e.escalate(ctx, req)
	}
	return out, nil
}

// escalatesWhenEmpty excludes pass-through actions: explain and select return the context as given,
// even when it is empty.
func escalatesWhenEmpty(a plan.Action) bool {
	switch a {
	case plan.ActionSearch, plan.ActionExplain, plan.ActionSelect:
		return false
	}
	return true
}

func (e *Executor) sort(ctx context.Context, req Request) (Outcome, error) {
	items := req.InContext
	p := req.Plan.Parameters
	if !p.Filters.IsEmpty() {
		items, _ = e.source.Filter(ctx, p.Filters, items, req.Language)
		if len(items) == 0 {
			return e.escalate(ctx, req)
		}
	}

	sortSpec := p.Sort
	if sortSpec.IsZero() {
		return Outcome{Items: items, Action: plan.ActionSort}, nil
	}
	var valid []store.Strain
	for _, s := range items {
		if ranking.HasValue(s, sortSpec.Field) && sortable(s, sortSpec.Field) {
			valid = append(valid, s)
		}
	}
	if len(valid) > 0 {
		items = valid
	}
	return Outcome{Items: ranking.SortBy(items, sortSpec.Field, sortSpec.Order), Action: plan.ActionSort}, nil
}

// sortable drops placeholder values on numeric fields.
func sortable(s store.Strain, field string) bool {
	f, ok := criteria.ParseField(field)
	if !ok || !f.IsNumeric() {
		return true
	}
	return ranking.FieldValue(s, field).HasNum
}

func (e *Executor) filter(ctx context.Context, req Request) (Outcome, error) {
	p := req.Plan.Parameters
	items, relaxed := e.source.Filter(ctx, p.Filters, req.InContext, req.Language)
	if len(items) == 0 {
		return e.escalate(ctx, req)
	}
	ranked := e.ranker.Rank(ctx, ranking.Request{
		Items:    items,
		Criteria: p.Filters,
		Method:   p.ScoringMethod,
		Sort:     p.Sort,
		Limit:    e.limitFor(p),
	})
	return Outcome{Items: ranking.Items(ranked), Action: plan.ActionFilter, Notes: relaxed}, nil
}

// selectOne picks by 1-based index, then name substring, then id. No match keeps the list.
func (e *Executor) selectOne(req Request) Outcome {
	sel := req.Plan.Parameters.Selection
	items := req.InContext
	pick := func(s store.Strain) Outcome {
		return Outcome{Items: []store.Strain{s}, Action: plan.ActionSelect}
	}

	if sel.Index > 0 && sel.Index <= len(items) {
		return pick(items[sel.Index-1])
	}
	if name := vocab.Fold(sel.Name); name != "" {
		for _, s := range items {
			if strings.Contains(vocab.Fold(s.Name), name) {
				return pick(s)
			}
		}
	}
	if sel.ID != 0 {
		for _, s := range items {
			if s.ID == sel.ID {
				return pick(s)
			}
		}
	}
	return e.unchanged(req, "selection not found")
}

func (e *Executor) search(ctx context.Context, req Request) (Outcome, error) {
	p := req.Plan.Parameters
	limit := e.limitFor(p)
	res, err := e.source.Search(ctx, filter.SearchRequest{
		Criteria: p.Filters,
		Query:    req.Query,
		Language: req.Language,
		Limit:    limit,
	})
	if err != nil {
		return Outcome{}, err
	}
	ranked := e.ranker.Rank(ctx, ranking.Request{
		Items:    res.Items,
		Criteria: res.Criteria,
		Method:   p.ScoringMethod,
		Sort:     p.Sort,
		Query:    req.Query,
		Limit:    limit,
	})
	return Outcome{
		Items:    ranking.Items(ranked),
		Action:   plan.ActionSearch,
		Fallback: res.Fallback,
		Stage:    res.Stage,
		Notes:    res.Relaxed,
	}, nil
}

// expand adds fresh results the user has not seen ahead of the (prefiltered) context.
func (e *Executor) expand(ctx context.Context, req Request) (Outcome, error) {
	p := req.Plan.Parameters
	limit := e.limitFor(p)
	kept := req.InContext
	if !p.Filters.IsEmpty() {
		kept, _ = e.source.Filter(ctx, p.Filters, kept, req.Language)
	}

	fresh, err := e.search(ctx, Request{Plan: req.Plan, Query: req.Query, Language: req.Language})
	if err != nil {
		return Outcome{}, err
	}

	seen := make(map[int64]bool, len(kept))
	for _, s := range kept {
		seen[s.ID] = true
	}
	var items []store.Strain
	for _, s := range fresh.Items {
		if !seen[s.ID] {
			items = append(items, s)
			seen[s.ID] = true
		}
	}
	items = append(items, kept...)
	if !p.Sort.IsZero() {
		items = ranking.SortBy(items, p.Sort.Field, p.Sort.Order)
	}
	if len(items) > limit {
		items = items[:limit]
	}
	return Outcome{Items: items, Action: plan.ActionExpand, Stage: fresh.Stage, Fallback: fresh.Fallback}, nil
}

// escalate replaces an in-context action with a fresh search using the same parameters.
func (e *Executor) escalate(ctx context.Context, req Request) (Outcome, error) {
	e.log.Info(module, "Escalating to search", map[string]interface{}{"action": req.Plan.PrimaryAction})
	out, err := e.search(ctx, req)
	if err != nil {
		return Outcome{}, err
	}
	out.Escalated = true
	return out, nil
}

func (e *Executor) unchanged(req Request, note string) Outcome {
	out := Outcome{Items: req.InContext, Action: req.Plan.PrimaryAction}
	if note != "" {
		out.Notes = []string{note}
	}
	return out
}

func (e *Executor) limitFor(p plan.Parameters) int {
	if p.Limit > 0 {
		return p.Limit
	}
	return e.limit
}
