// Package policy validates and repairs criteria before a search and decides whether the
// current conversation context can answer a follow-up.
package policy

import (
	"sort"
	"strings"

	"ai-budtender-be/internal/pkg/logger"
	"ai-budtender-be/pkg/recommend/criteria"
	"ai-budtender-be/pkg/recommend/vocab"
	"ai-budtender-be/pkg/store"
)

const module = "DIALOG_POLICY"

type Config struct {
	EffectCoverage  float64
	FlavorCoverage  float64
	MedicalCoverage float64
	THC             criteria.Buckets
}

func DefaultConfig() Config {
	return Config{
		EffectCoverage:  0.5,
		FlavorCoverage:  0.5,
		MedicalCoverage: 0.5,
		THC:             criteria.DefaultParseOptions().THC,
	}
}

// ContextMatch measures how well the items already shown satisfy new criteria.
// Criteria that are absent count as satisfied.
type ContextMatch struct {
	CategoryMatch   bool    `json:"category_match"`
	EffectCoverage  float64 `json:"effect_coverage"`
	FlavorCoverage  float64 `json:"flavor_coverage"`
	MedicalCoverage float64 `json:"medical_coverage"`
}

type Decision struct {
	Criteria   criteria.Criteria
	Conflicts  []string
	Warnings   []string
	MustExpand bool
	Language   string
	Match      ContextMatch
}

type Resolver struct {
	cfg Config
	log logger.ILogger
}

func NewResolver(cfg Config, log logger.ILogger) *Resolver {
	return &Resolver{cfg: cfg, log: log}
}

// Resolve runs language detection, conflict resolution, priority repair and the context check.
// sessionItems are the strains shown in the previous turn.
func (r *Resolver) Resolve(query, language string, c criteria.Criteria, sessionItems []store.Strain) Decision {
	d := Decision{Language: NormalizeLanguage(language)}
	if d.Language == "" {
		d.Language = DetectLanguage(query)
	}

	c = repairPriorities(c)
	c, d.Conflicts = r.resolveDirect(c, d.Language)
	var opposite []string
	c, opposite = r.resolveOpposites(query, c, d.Language)
	d.Conflicts = append(d.Conflicts, opposite...)
	d.Warnings = append(d.Warnings, r.medicalWarnings(c, d.Language)...)
	if w, ok := r.potencyWarning(c, d.Language); ok {
		d.Warnings = append(d.Warnings, w)
	}

	d.Criteria = c
	d.Match = r.EvaluateContext(c, sessionItems)
	d.MustExpand = r.mustExpand(d.Match, sessionItems)

	if len(d.Conflicts) > 0 || len(d.Warnings) > 0 {
		r.log.Info(module, "Criteria adjusted", map[string]interface{}{
			"conflicts": d.Conflicts, "warnings": d.Warnings,
		})
	}
	return d
}

// EvaluateContext computes category agreement and, per attribute, the share of items whose values
// intersect the desired ones. Absent criteria count as fully covered.
func (r *Resolver) EvaluateContext(c criteria.Criteria, items []store.Strain) ContextMatch {
	m := ContextMatch{CategoryMatch: true, EffectCoverage: 1, FlavorCoverage: 1, MedicalCoverage: 1}

	if cat := c.Category(); cat != "" {
		m.CategoryMatch = false
		for _, s := range items {
			if vocab.EqualTerms(s.Category, cat) {
				m.CategoryMatch = true
				break
			}
		}
	}

	m.EffectCoverage = itemCoverage(items, c.Desired(criteria.FieldEffects), func(s store.Strain) []string { return s.Effects })
	m.FlavorCoverage = itemCoverage(items, c.Desired(criteria.FieldFlavors), func(s store.Strain) []string { return s.Flavors })
	m.MedicalCoverage = itemCoverage(items, c.Desired(criteria.FieldHelpsWith), func(s store.Strain) []string { return s.MedicalUses })
	return m
}

func (r *Resolver) mustExpand(m ContextMatch, items []store.Strain) bool {
	return len(items) == 0 ||
		!m.CategoryMatch ||
		m.EffectCoverage < r.cfg.EffectCoverage ||
		m.FlavorCoverage < r.cfg.FlavorCoverage ||
		m.MedicalCoverage < r.cfg.MedicalCoverage
}

func itemCoverage(items []store.Strain, want []string, values func(store.Strain) []string) float64 {
	if len(want) == 0 {
		return 1
	}
	if len(items) == 0 {
		return 0
	}
	hits := 0
	for _, s := range items {
		have := values(s)
		for _, w := range want {
			if vocab.ContainsTerm(have, w) {
				hits++
				break
			}
		}
	}
	return float64(hits) / float64(len(items))
}

// repairPriorities forces exclusions and medical needs to safety priority and fills invalid ones.
func repairPriorities(c criteria.Criteria) criteria.Criteria {
	out := c.Clone()
	for i, f := range out.Filters {
		want := criteria.DefaultPriority(f.Field, f.Expr)
		if want == criteria.PrioritySafety || f.Priority < criteria.PrioritySafety || f.Priority > criteria.PriorityCosmetic {
			out.Filters[i].Priority = want
		}
	}
	return out
}

// resolveDirect keeps a value that is both requested and avoided on the same field as requested.
func (r *Resolver) resolveDirect(c criteria.Criteria, lang string) (criteria.Criteria, []string) {
	var conflicts []string
	for _, field := range []criteria.Field{criteria.FieldEffects, criteria.FieldFlavors, criteria.FieldHelpsWith, criteria.FieldTerpenes, criteria.FieldNegatives} {
		desired := c.Desired(field)
		var both []string
		for _, v := range c.Avoided(field) {
			if vocab.ContainsTerm(desired, v) {
				both = append(both, v)
			}
		}
		if len(both) == 0 {
			continue
		}
		c = removeValues(c, field, true, both)
		conflicts = append(conflicts, message(lang, msgDirectConflict, strings.Join(both, ", ")))
	}
	return c, conflicts
}

var (
	sedating    = []string{"Sleepy", "Relaxed"}
	stimulating = []string{"Energetic", "Uplifted", "Focused"}
)

// Context keywords vote for one side of an opposite-effects conflict.
var contextKeywords = []struct {
	words    []string
	sedating bool
}{
	{[]string{"sleep", "night", "bed", "bedtime", "insomnia", "evening", "dormir", "noche", "cama", "insomnio"}, true},
	{[]string{"pain", "anxiety", "stress", "cramps", "dolor", "ansiedad", "estres", "medical", "medico"}, true},
	{[]string{"work", "study", "focus", "day", "daytime", "morning", "productive", "trabajo", "trabajar", "estudiar", "dia", "manana"}, false},
	{[]string{"party", "friends", "social", "hike", "creative", "fiesta", "amigos", "salir"}, false},
}

// resolveOpposites resolves sedating vs stimulating effect requests. The outcome depends only on the
// set of values and the query, never on their order.
func (r *Resolver) resolveOpposites(query string, c criteria.Criteria, lang string) (criteria.Criteria, []string) {
	desired := c.Desired(criteria.FieldEffects)
	var calm, active []string
	for _, v := range desired {
		switch {
		case vocab.ContainsTerm(sedating, v):
			calm = append(calm, v)
		case vocab.ContainsTerm(stimulating, v):
			active = append(active, v)
		}
	}
	if len(calm) == 0 || len(active) == 0 {
		return c, nil
	}
	sort.Strings(calm)
	sort.Strings(active)

	score := 0
	for _, tok := range vocab.Tokens(query) {
		for _, group := range contextKeywords {
			for _, w := range group.words {
				if tok != w {
					continue
				}
				if group.sedating {
					score++
				} else {
					score--
				}
			}
		}
	}

	winners, losers := calm, active
	if score < 0 {
		winners, losers = active, calm
	}
	c = removeValues(c, criteria.FieldEffects, false, losers)
	c = c.With(criteria.Filter{
		Field:    criteria.FieldEffects,
		Expr:     criteria.NotContains{Values: losers},
		Priority: criteria.PrioritySafety,
	})
	return c, []string{message(lang, msgOppositeEffects, strings.Join(calm, ", "), strings.Join(active, ", "), strings.Join(winners, ", "))}
}

var conflictingConditions = [][2]string{
	{"Insomnia", "Fatigue"},
	{"Depression", "Insomnia"},
}

func (r *Resolver) medicalWarnings(c criteria.Criteria, lang string) []string {
	medical := c.Desired(criteria.FieldHelpsWith)
	var out []string
	for _, pair := range conflictingConditions {
		if vocab.ContainsTerm(medical, pair[0]) && vocab.ContainsTerm(medical, pair[1]) {
			out = append(out, message(lang, msgMedicalPair, pair[0], pair[1]))
		}
	}
	return out
}

var (
	anxiousConditions = []string{"Anxiety", "Stress", "Paranoia", "PTSD"}
	anxiousNegatives  = []string{"Anxious", "Paranoid"}
)

func (r *Resolver) potencyWarning(c criteria.Criteria, lang string) (string, bool) {
	f, ok := c.Numeric(criteria.FieldTHC)
	if !ok || !r.cfg.THC.IsHigh(f.Expr) {
		return "", false
	}
	sensitive := false
	for _, v := range c.Desired(criteria.FieldHelpsWith) {
		sensitive = sensitive || vocab.ContainsTerm(anxiousConditions, v)
	}
	for _, v := range append(c.Avoided(criteria.FieldNegatives), c.Avoided(criteria.FieldEffects)...) {
		sensitive = sensitive || vocab.ContainsTerm(anxiousNegatives, v)
	}
	if !sensitive {
		return "", false
	}
	return message(lang, msgHighPotency), true
}

// removeValues deletes values from the desired (exclusion=false) or avoid filters on field.
// Filters left without values are dropped.
func removeValues(c criteria.Criteria, field criteria.Field, exclusion bool, values []string) criteria.Criteria {
	out := criteria.Criteria{}
	for _, f := range c.Clone().Filters {
		if f.Field != field || criteria.IsExclusion(f.Expr) != exclusion {
			out.Filters = append(out.Filters, f)
			continue
		}
		var kept []string
		for _, v := range criteria.Values(f.Expr) {
			if !vocab.ContainsTerm(values, v) {
				kept = append(kept, v)
			}
		}
		if len(kept) == 0 {
			continue
		}
		switch f.Expr.(type) {
		case criteria.Contains:
			f.Expr = criteria.Contains{Values: kept}
		case criteria.NotContains:
			f.Expr = criteria.NotContains{Values: kept}
		case criteria.Any:
			f.Expr = criteria.Any{Values: kept}
		case criteria.Eq:
			f.Expr = criteria.Eq{Value: kept[0]}
		}
		out.Filters = append(out.Filters, f)
	}
	return out
}
