package executor

import (
	"context"
	"errors"
	"testing"

	"ai-budtender-be/internal/pkg/logger"
	"ai-budtender-be/pkg/recommend/catalog"
	"ai-budtender-be/pkg/recommend/criteria"
	"ai-budtender-be/pkg/recommend/filter"
	"ai-budtender-be/pkg/recommend/plan"
	"ai-budtender-be/pkg/recommend/ranking"
	"ai-budtender-be/pkg/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	results  []store.Strain
	err      error
	searches int
	filtered []store.Strain
	panics   bool
}

func (f *fakeSource) Search(ctx context.Context, req filter.SearchRequest) (*filter.Result, error) {
	f.searches++
	if f.err != nil {
		return nil, f.err
	}
	return &filter.Result{Items: f.results, Criteria: req.Criteria, Stage: filter.StageDirect}, nil
}

func (f *fakeSource) Filter(ctx context.Context, c criteria.Criteria, items []store.Strain, language string) ([]store.Strain, []string) {
	if f.panics {
		panic("boom")
	}
	if f.filtered != nil {
		return f.filtered, nil
	}
	var out []store.Strain
	for _, s := range items {
		if ranking.MatchesAll(s, c) {
			out = append(out, s)
		}
	}
	return out, nil
}

func newExecutor(src CandidateSource) *Executor {
	log := logger.NewNopLogger()
	return NewExecutor(src, ranking.NewEngine(ranking.DefaultConfig(), nil, log), 10, log)
}

func shown() []store.Strain {
	return []store.Strain{
		{ID: 5, Name: "Sour Diesel", Category: "Sativa", THC: "24%"},
		{ID: 7, Name: "Harlequin", Category: "Sativa", THC: "12%"},
		{ID: 8, Name: "Mystery", Category: "Sativa", THC: "N/A"},
		{ID: 9, Name: "Jack Herer", Category: "Sativa", THC: "17%"},
	}
}

func TestWhichHasLessTHC(t *testing.T) {
	src := &fakeSource{}
	ex := newExecutor(src)

	out, err := ex.Execute(context.Background(), Request{
		Plan: plan.ActionPlan{
			PrimaryAction: plan.ActionSort,
			Parameters:    plan.Parameters{Sort: plan.SortSpec{Field: "thc", Order: plan.OrderAsc}},
		},
		InContext: shown(),
		Query:     "which has less THC?",
	})
	require.NoError(t, err)

	assert.Equal(t, []int64{7, 9, 5}, store.IDs(out.Items))
	assert.Equal(t, plan.ActionSort, out.Action)
	assert.False(t, out.Escalated)
	assert.Zero(t, src.searches)
}

func TestEscalationEqualsDirectSearch(t *testing.T) {
	fresh := []store.Strain{{ID: 21, Category: "Indica"}, {ID: 22, Category: "Indica"}}
	params := plan.Parameters{Filters: criteria.New(criteria.Filter{Field: criteria.FieldCategory, Expr: criteria.Eq{Value: "Indica"}, Priority: 2})}

	for _, action := range []plan.Action{plan.ActionFilter, plan.ActionSort} {
		src := &fakeSource{results: fresh}
		ex := newExecutor(src)

		escalated, err := ex.Execute(context.Background(), Request{
			Plan:      plan.ActionPlan{PrimaryAction: action, Parameters: params},
			InContext: shown(),
			Query:     "only indicas",
		})
		require.NoError(t, err)

		direct, err := ex.Execute(context.Background(), Request{
			Plan:  plan.ActionPlan{PrimaryAction: plan.ActionSearch, Parameters: params},
			Query: "only indicas",
		})
		require.NoError(t, err)

		assert.True(t, escalated.Escalated, action)
		assert.Equal(t, store.IDs(direct.Items), store.IDs(escalated.Items), action)
	}
}

func TestSelectIsIdempotent(t *testing.T) {
	ex := newExecutor(&fakeSource{})
	run := func(items []store.Strain, sel plan.Selection) []store.Strain {
		out, err := ex.Execute(context.Background(), Request{
			Plan:      plan.ActionPlan{PrimaryAction: plan.ActionSelect, Parameters: plan.Parameters{Selection: sel}},
			InContext: items,
		})
		require.NoError(t, err)
		return out.Items
	}

	for _, sel := range []plan.Selection{{Index: 2}, {Name: "jack"}, {ID: 5}} {
		once := run(shown(), sel)
		require.Len(t, once, 1)
		assert.Equal(t, store.IDs(once), store.IDs(run(once, sel)))
	}

	assert.Equal(t, store.IDs(shown()), store.IDs(run(shown(), plan.Selection{Name: "gelato"})))
}

func TestPassThroughActionsDoNotSearchOnEmptyContext(t *testing.T) {
	for _, p := range []plan.ActionPlan{
		{PrimaryAction: plan.ActionExplain},
		{PrimaryAction: plan.ActionSelect, Parameters: plan.Parameters{Selection: plan.Selection{Name: "gelato"}}},
	} {
		src := &fakeSource{results: shown()}
		ex := newExecutor(src)

		out, err := ex.Execute(context.Background(), Request{Plan: p})
		require.NoError(t, err)
		assert.Empty(t, out.Items, p.PrimaryAction)
		assert.False(t, out.Escalated, p.PrimaryAction)
		assert.Zero(t, src.searches, p.PrimaryAction)
	}
}

func TestUnknownActionKeepsContext(t *testing.T) {
	src := &fakeSource{}
	ex := newExecutor(src)

	out, err := ex.Execute(context.Background(), Request{
		Plan:      plan.ActionPlan{PrimaryAction: plan.ParseAction("teleport")},
		InContext: shown(),
	})
	require.NoError(t, err)
	assert.Equal(t, store.IDs(shown()), store.IDs(out.Items))
	assert.Zero(t, src.searches)
}

func TestPanicsAndFailuresKeepContext(t *testing.T) {
	ex := newExecutor(&fakeSource{panics: true})
	out, err := ex.Execute(context.Background(), Request{
		Plan:      plan.ActionPlan{PrimaryAction: plan.ActionFilter},
		InContext: shown(),
	})
	require.NoError(t, err)
	assert.Equal(t, store.IDs(shown()), store.IDs(out.Items))

	ex = newExecutor(&fakeSource{err: errors.New("timeout")})
	out, err = ex.Execute(context.Background(), Request{
		Plan:      plan.ActionPlan{PrimaryAction: plan.ActionExpand},
		InContext: shown(),
	})
	require.NoError(t, err)
	assert.Equal(t, store.IDs(shown()), store.IDs(out.Items))

	ex = newExecutor(&fakeSource{err: catalog.ErrUnavailable})
	_, err = ex.Execute(context.Background(), Request{Plan: plan.ActionPlan{PrimaryAction: plan.ActionSearch}})
	assert.ErrorIs(t, err, catalog.ErrUnavailable)
}

func TestExpandPutsUnseenFirst(t *testing.T) {
	src := &fakeSource{results: []store.Strain{{ID: 5}, {ID: 30}, {ID: 31}}}
	ex := NewExecutor(src, ranking.NewEngine(ranking.DefaultConfig(), nil, logger.NewNopLogger()), 4, logger.NewNopLogger())

	out, err := ex.Execute(context.Background(), Request{
		Plan:      plan.ActionPlan{PrimaryAction: plan.ActionExpand},
		InContext: shown()[:2],
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{30, 31, 5, 7}, store.IDs(out.Items))
}
