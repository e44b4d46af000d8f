package criteria

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDiscardsInvalidFieldsOnly(t *testing.T) {
	data := []byte(`[
		{"field": "effects", "operator": "contains", "value": ["relaxed", "Happy"]},
		{"field": "colour", "operator": "eq", "value": "green"},
		{"field": "thc", "operator": "lte", "value": "nope"},
		{"field": "negatives", "operator": "not_contains", "value": "paranoid"},
		{"field": "category", "value": "indica"}
	]`)

	c, rejected, err := Parse(data, DefaultParseOptions())
	require.NoError(t, err)
	require.Len(t, c.Filters, 3)
	assert.Len(t, rejected, 2)

	assert.Equal(t, []string{"Relaxed", "Happy"}, c.Desired(FieldEffects))
	assert.Equal(t, []string{"Paranoid"}, c.Avoided(FieldNegatives))
	assert.Equal(t, "Indica", c.Category())
}

func TestParseRejectsNonArray(t *testing.T) {
	_, _, err := Parse([]byte(`{"field":"thc"}`), DefaultParseOptions())
	assert.Error(t, err)
}

func TestParseNumericForms(t *testing.T) {
	raws := []RawFilter{
		{Field: "thc", Operator: "gte", Value: []byte(`"18%"`)},
		{Field: "cbd_level", Operator: "range", Value: []byte(`[10, 2]`)},
		{Field: "thc", Operator: "range", Min: Float(5)},
		{Field: "thc", Operator: "lt", Value: []byte(`-3`)},
	}
	c, rejected := ParseFilters(raws, DefaultParseOptions())
	require.Len(t, c.Filters, 3)
	require.Len(t, rejected, 1)

	assert.Equal(t, Compare{Cmp: OpGte, Value: 18}, c.Filters[0].Expr)
	r := c.Filters[1].Expr.(Range)
	assert.Equal(t, 2.0, *r.Min)
	assert.Equal(t, 10.0, *r.Max)
	assert.Equal(t, FieldCBD, c.Filters[1].Field)
}

func TestParseBucketsClampToBounds(t *testing.T) {
	opts := DefaultParseOptions()
	opts.Bounds = map[Field]Bounds{FieldTHC: {Min: 0.5, Max: 18}}

	c, rejected := ParseFilters([]RawFilter{
		{Field: "thc", Value: []byte(`"high"`)},
		{Field: "thc", Value: []byte(`"bajo"`)},
	}, opts)
	require.Empty(t, rejected)

	high := c.Filters[0].Expr.(Range)
	assert.Equal(t, 18.0, *high.Min, "high bucket above catalog max is clamped")
	assert.Nil(t, high.Max)

	low := c.Filters[1].Expr.(Range)
	assert.Nil(t, low.Min)
	assert.Equal(t, 12.0, *low.Max)
}

func TestDefaultPriorities(t *testing.T) {
	c, _ := ParseFilters([]RawFilter{
		{Field: "helps_with", Value: []byte(`"Insomnia"`)},
		{Field: "effects", Operator: "not_contains", Value: []byte(`"Energetic"`)},
		{Field: "thc", Operator: "lte", Value: []byte(`15`), Priority: 9},
		{Field: "flavors", Value: []byte(`"citrus, lemon"`)},
	}, DefaultParseOptions())

	got := make([]int, len(c.Filters))
	for i, f := range c.Filters {
		got[i] = f.Priority
	}
	assert.Equal(t, []int{PrioritySafety, PrioritySafety, PriorityCore, PriorityCosmetic}, got)
	assert.Equal(t, []string{"Citrus", "Lemon"}, c.Desired(FieldFlavors))
}

func TestCriteriaHelpers(t *testing.T) {
	c := New(
		Filter{Field: FieldHelpsWith, Expr: Contains{Values: []string{"Pain"}}, Priority: PrioritySafety},
		Filter{Field: FieldNegatives, Expr: NotContains{Values: []string{"Dizzy"}}, Priority: PrioritySafety},
		Filter{Field: FieldTHC, Expr: Compare{Cmp: OpLte, Value: 15}, Priority: PriorityCore},
	)

	assert.Len(t, c.MedicalFilters(), 1)
	assert.Len(t, c.WithoutAvoid().Filters, 2)
	assert.Len(t, c.Filters, 3, "WithoutAvoid must not mutate the receiver")

	f, ok := c.Numeric(FieldTHC)
	require.True(t, ok)
	assert.True(t, Holds(f.Expr, 12))
	assert.False(t, Holds(f.Expr, 16))

	views := c.Describe()
	assert.Equal(t, "lte", views[2].Operator)
	assert.Equal(t, 15.0, views[2].Value)
}

func TestBucketsIsHigh(t *testing.T) {
	b := DefaultParseOptions().THC
	assert.True(t, b.IsHigh(Compare{Cmp: OpGte, Value: 22}))
	assert.False(t, b.IsHigh(Compare{Cmp: OpLte, Value: 22}))
	assert.True(t, b.IsHigh(Range{Min: Float(20)}))
	assert.True(t, b.IsHigh(Eq{Value: "25"}))
	assert.False(t, b.IsHigh(Contains{Values: []string{"x"}}))
}
