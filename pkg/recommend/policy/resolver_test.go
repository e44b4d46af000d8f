package policy

import (
	"testing"

	"ai-budtender-be/internal/pkg/logger"
	"ai-budtender-be/pkg/recommend/criteria"
	"ai-budtender-be/pkg/store"

	"github.com/stretchr/testify/assert"
)

func effects(op criteria.Expr) criteria.Filter {
	return criteria.Filter{Field: criteria.FieldEffects, Expr: op, Priority: criteria.PriorityCore}
}

func TestDetectLanguage(t *testing.T) {
	assert.Equal(t, "es", DetectLanguage("Quiero algo para dormir por favor"))
	assert.Equal(t, "en", DetectLanguage("I want something for sleep"))
	assert.Equal(t, "en", DetectLanguage("OG Kush"))
	assert.Equal(t, "es", DetectLanguageOr("OG Kush", "es"))
	assert.Equal(t, "en", DetectLanguageOr("show me something", "es"))
	assert.Equal(t, "es", NormalizeLanguage("es-MX"))
	assert.Equal(t, "", NormalizeLanguage("fr"))
}

func TestDirectConflictKeepsDesiredValue(t *testing.T) {
	r := NewResolver(DefaultConfig(), logger.NewNopLogger())
	c := criteria.New(
		effects(criteria.Contains{Values: []string{"Happy"}}),
		effects(criteria.NotContains{Values: []string{"happy", "Dizzy"}}),
	)

	d := r.Resolve("happy but not happy", "en", c, nil)
	assert.Equal(t, []string{"Happy"}, d.Criteria.Desired(criteria.FieldEffects))
	assert.Equal(t, []string{"Dizzy"}, d.Criteria.Avoided(criteria.FieldEffects))
	assert.Len(t, d.Conflicts, 1)
}

func TestOppositeEffectsAreOrderIndependent(t *testing.T) {
	r := NewResolver(DefaultConfig(), logger.NewNopLogger())
	orders := [][]string{
		{"Sleepy", "Energetic"},
		{"Energetic", "Sleepy"},
	}
	for _, query := range []string{"something for bedtime", "something to focus at work"} {
		var first Decision
		for i, values := range orders {
			d := r.Resolve(query, "en", criteria.New(effects(criteria.Contains{Values: values})), nil)
			if i == 0 {
				first = d
				continue
			}
			assert.Equal(t, first.Criteria.Desired(criteria.FieldEffects), d.Criteria.Desired(criteria.FieldEffects), query)
			assert.Equal(t, first.Criteria.Avoided(criteria.FieldEffects), d.Criteria.Avoided(criteria.FieldEffects), query)
			assert.Equal(t, first.Conflicts, d.Conflicts, query)
		}
	}

	d := r.Resolve("something for bedtime", "en", criteria.New(effects(criteria.Contains{Values: []string{"Energetic", "Sleepy"}})), nil)
	assert.Equal(t, []string{"Sleepy"}, d.Criteria.Desired(criteria.FieldEffects))
	assert.Equal(t, []string{"Energetic"}, d.Criteria.Avoided(criteria.FieldEffects))

	d = r.Resolve("something to focus at work", "en", criteria.New(effects(criteria.Contains{Values: []string{"Energetic", "Sleepy"}})), nil)
	assert.Equal(t, []string{"Energetic"}, d.Criteria.Desired(criteria.FieldEffects))
	assert.Equal(t, []string{"Sleepy"}, d.Criteria.Avoided(criteria.FieldEffects))
}

func TestWarningsDoNotChangeCriteria(t *testing.T) {
	r := NewResolver(DefaultConfig(), logger.NewNopLogger())
	c := criteria.New(
		criteria.Filter{Field: criteria.FieldHelpsWith, Expr: criteria.Contains{Values: []string{"Insomnia", "Fatigue", "Anxiety"}}, Priority: 1},
		criteria.Filter{Field: criteria.FieldTHC, Expr: criteria.Compare{Cmp: criteria.OpGte, Value: 22}, Priority: 2},
	)

	d := r.Resolve("", "es", c, nil)
	assert.Len(t, d.Warnings, 2)
	assert.Equal(t, c.Describe(), d.Criteria.Describe())
	assert.Equal(t, "es", d.Language)
}

func TestPriorityRepair(t *testing.T) {
	r := NewResolver(DefaultConfig(), logger.NewNopLogger())
	c := criteria.New(
		criteria.Filter{Field: criteria.FieldNegatives, Expr: criteria.NotContains{Values: []string{"Paranoid"}}, Priority: 3},
		criteria.Filter{Field: criteria.FieldFlavors, Expr: criteria.Contains{Values: []string{"Lemon"}}, Priority: 9},
		criteria.Filter{Field: criteria.FieldEffects, Expr: criteria.Contains{Values: []string{"Happy"}}, Priority: 3},
	)
	d := r.Resolve("", "en", c, nil)
	assert.Equal(t, 1, d.Criteria.Filters[0].Priority)
	assert.Equal(t, 3, d.Criteria.Filters[1].Priority)
	assert.Equal(t, 3, d.Criteria.Filters[2].Priority)
}

func TestEvaluateContextAndExpansion(t *testing.T) {
	r := NewResolver(DefaultConfig(), logger.NewNopLogger())
	shown := []store.Strain{
		{ID: 1, Category: "Indica", Effects: []string{"Sleepy", "Relaxed"}, Flavors: []string{"Grape"}},
		{ID: 2, Category: "Hybrid", Effects: []string{"Happy"}, Flavors: []string{"Lemon"}},
	}

	m := r.EvaluateContext(criteria.New(), shown)
	assert.Equal(t, ContextMatch{CategoryMatch: true, EffectCoverage: 1, FlavorCoverage: 1, MedicalCoverage: 1}, m)

	d := r.Resolve("", "en", criteria.New(effects(criteria.Contains{Values: []string{"Happy", "Relaxed"}})), shown)
	assert.False(t, d.MustExpand)

	d = r.Resolve("", "en", criteria.New(criteria.Filter{Field: criteria.FieldCategory, Expr: criteria.Eq{Value: "Sativa"}, Priority: 2}), shown)
	assert.False(t, d.Match.CategoryMatch)
	assert.True(t, d.MustExpand)

	d = r.Resolve("", "en", criteria.New(criteria.Filter{Field: criteria.FieldFlavors, Expr: criteria.Contains{Values: []string{"Pine", "Diesel", "Grape"}}, Priority: 3}), shown)
	assert.InDelta(t, 0.5, d.Match.FlavorCoverage, 1e-9)
	assert.False(t, d.MustExpand)

	d = r.Resolve("", "en", criteria.New(criteria.Filter{Field: criteria.FieldFlavors, Expr: criteria.Contains{Values: []string{"Pine", "Diesel"}}, Priority: 3}), shown)
	assert.Equal(t, 0.0, d.Match.FlavorCoverage)
	assert.True(t, d.MustExpand)

	d = r.Resolve("", "en", criteria.New(), nil)
	assert.True(t, d.MustExpand)
}

func TestCoverageCountsItemsNotTerms(t *testing.T) {
	r := NewResolver(DefaultConfig(), logger.NewNopLogger())
	shown := []store.Strain{
		{ID: 1, Effects: []string{"Sleepy"}, MedicalUses: []string{"Insomnia"}},
		{ID: 2, Effects: []string{"Energetic"}, MedicalUses: []string{"Fatigue"}},
		{ID: 3, Effects: []string{"Energetic"}, MedicalUses: []string{"Insomnia", "Pain"}},
	}

	d := r.Resolve("", "en", criteria.New(effects(criteria.Contains{Values: []string{"Sleepy"}})), shown)
	assert.InDelta(t, 1.0/3, d.Match.EffectCoverage, 1e-9)
	assert.True(t, d.MustExpand)

	d = r.Resolve("", "en", criteria.New(
		criteria.Filter{Field: criteria.FieldHelpsWith, Expr: criteria.Any{Values: []string{"insomnia", "Stress"}}, Priority: criteria.PrioritySafety},
	), shown)
	assert.InDelta(t, 2.0/3, d.Match.MedicalCoverage, 1e-9)
	assert.Equal(t, 1.0, d.Match.EffectCoverage)
	assert.False(t, d.MustExpand)
}
