package criteria

import (
	"ai-budtender-be/pkg/recommend/vocab"
)

type Field string

const (
	FieldCategory  Field = "category"
	FieldTHC       Field = "thc"
	FieldCBD       Field = "cbd"
	FieldEffects   Field = "effects"
	FieldFlavors   Field = "flavors"
	FieldHelpsWith Field = "helps_with"
	FieldTerpenes  Field = "terpenes"
	FieldNegatives Field = "negatives"
)

// Reserved priorities. Lower is more important.
const (
	PrioritySafety   = 1
	PriorityCore     = 2
	PriorityCosmetic = 3
)

// Categories recognized by the catalog.
var Categories = []string{"Indica", "Sativa", "Hybrid"}

var fieldAliases = map[string]Field{
	"category":      FieldCategory,
	"type":          FieldCategory,
	"thc":           FieldTHC,
	"thc_level":     FieldTHC,
	"cbd":           FieldCBD,
	"cbd_level":     FieldCBD,
	"effects":       FieldEffects,
	"effect":        FieldEffects,
	"feelings":      FieldEffects,
	"flavors":       FieldFlavors,
	"flavor":        FieldFlavors,
	"flavours":      FieldFlavors,
	"helps_with":    FieldHelpsWith,
	"medical":       FieldHelpsWith,
	"medical_uses":  FieldHelpsWith,
	"conditions":    FieldHelpsWith,
	"terpenes":      FieldTerpenes,
	"terpene":       FieldTerpenes,
	"negatives":     FieldNegatives,
	"negative":      FieldNegatives,
	"side_effects":  FieldNegatives,
	"avoid_effects": FieldNegatives,
}

// ParseField resolves a field name or alias.
func ParseField(s string) (Field, bool) {
	f, ok := fieldAliases[vocab.Fold(s)]
	return f, ok
}

func (f Field) IsNumeric() bool {
	return f == FieldTHC || f == FieldCBD
}

func (f Field) IsSet() bool {
	switch f {
	case FieldEffects, FieldFlavors, FieldHelpsWith, FieldTerpenes, FieldNegatives:
		return true
	}
	return false
}

// Filter is one constraint on one field.
type Filter struct {
	Field    Field
	Expr     Expr
	Priority int
}

// Criteria is an ordered list of filters. The same field may appear with a desired and an avoid filter.
type Criteria struct {
	Filters []Filter
}

func New(filters ...Filter) Criteria {
	return Criteria{Filters: append([]Filter(nil), filters...)}
}

func (c Criteria) IsEmpty() bool {
	return len(c.Filters) == 0
}

func (c Criteria) Clone() Criteria {
	out := Criteria{Filters: make([]Filter, len(c.Filters))}
	for i, f := range c.Filters {
		out.Filters[i] = Filter{Field: f.Field, Expr: cloneExpr(f.Expr), Priority: f.Priority}
	}
	return out
}

// With appends f.
func (c Criteria) With(f Filter) Criteria {
	out := c.Clone()
	out.Filters = append(out.Filters, f)
	return out
}

// Where keeps filters matching keep.
func (c Criteria) Where(keep func(Filter) bool) Criteria {
	out := Criteria{}
	for _, f := range c.Clone().Filters {
		if keep(f) {
			out.Filters = append(out.Filters, f)
		}
	}
	return out
}

// WithoutAvoid drops every exclusion filter.
func (c Criteria) WithoutAvoid() Criteria {
	return c.Where(func(f Filter) bool { return !IsExclusion(f.Expr) })
}

// Has reports whether any filter targets field.
func (c Criteria) Has(field Field) bool {
	for _, f := range c.Filters {
		if f.Field == field {
			return true
		}
	}
	return false
}

// Desired returns the values requested on field, deduplicated.
func (c Criteria) Desired(field Field) []string {
	var out []string
	for _, f := range c.Filters {
		if f.Field != field || IsExclusion(f.Expr) {
			continue
		}
		switch f.Expr.(type) {
		case Contains, Any, Eq:
			out = append(out, Values(f.Expr)...)
		}
	}
	return vocab.Dedupe(out)
}

// Avoided returns the values excluded on field, deduplicated.
func (c Criteria) Avoided(field Field) []string {
	var out []string
	for _, f := range c.Filters {
		if f.Field == field && IsExclusion(f.Expr) {
			out = append(out, Values(f.Expr)...)
		}
	}
	return vocab.Dedupe(out)
}

// Numeric returns the first numeric constraint on field.
func (c Criteria) Numeric(field Field) (Filter, bool) {
	for _, f := range c.Filters {
		if f.Field != field {
			continue
		}
		switch f.Expr.(type) {
		case Compare, Range:
			return f, true
		case Eq:
			if field.IsNumeric() {
				return f, true
			}
		}
	}
	return Filter{}, false
}

// Category returns the requested category or "".
func (c Criteria) Category() string {
	for _, f := range c.Filters {
		if f.Field == FieldCategory {
			if eq, ok := f.Expr.(Eq); ok {
				return eq.Value
			}
		}
	}
	return ""
}

// MedicalFilters returns the safety-priority desired filters on helps_with.
func (c Criteria) MedicalFilters() []Filter {
	var out []Filter
	for _, f := range c.Filters {
		if f.Field == FieldHelpsWith && f.Priority == PrioritySafety && !IsExclusion(f.Expr) {
			out = append(out, f)
		}
	}
	return out
}

// View is the serializable form of a filter.
type View struct {
	Field    string      `json:"field"`
	Operator string      `json:"operator"`
	Value    interface{} `json:"value"`
	Priority int         `json:"priority"`
}

// Describe renders the criteria for responses and logs.
func (c Criteria) Describe() []View {
	out := make([]View, 0, len(c.Filters))
	for _, f := range c.Filters {
		v := View{Field: string(f.Field), Operator: string(f.Expr.Op()), Priority: f.Priority}
		switch x := f.Expr.(type) {
		case Compare:
			v.Value = x.Value
		case Range:
			r := map[string]float64{}
			if x.Min != nil {
				r["min"] = *x.Min
			}
			if x.Max != nil {
				r["max"] = *x.Max
			}
			v.Value = r
		case Eq:
			v.Value = x.Value
		case Contains, NotContains, Any:
			v.Value = Values(f.Expr)
		}
		out = append(out, v)
	}
	return out
}

func cloneExpr(e Expr) Expr {
	switch x := e.(type) {
	case Contains:
		return Contains{Values: append([]string(nil), x.Values...)}
	case NotContains:
		return NotContains{Values: append([]string(nil), x.Values...)}
	case Any:
		return Any{Values: append([]string(nil), x.Values...)}
	case Range:
		r := Range{}
		if x.Min != nil {
			r.Min = Float(*x.Min)
		}
		if x.Max != nil {
			r.Max = Float(*x.Max)
		}
		return r
	case Eq, Compare:
		return x
	}
	return e
}
