package ranking

import (
	"math"
	"sort"

	"ai-budtender-be/pkg/recommend/criteria"
	"ai-budtender-be/pkg/recommend/vocab"
	"ai-budtender-be/pkg/store"
)

// ScoredItem is a strain with its weighted score.
type ScoredItem struct {
	Strain    store.Strain
	Score     float64
	Qualified bool
}

// Config holds the weighted-priority scoring constants.
type Config struct {
	// A criterion counts with full weight once this share of its values match.
	QualificationThreshold float64
	Weights                map[int]float64

	NumericBonusScale float64
	NumericBonusCap   float64

	SevereNegatives   []string
	ModerateNegatives []string
	SeverePenalty     float64
	ModeratePenalty   float64
	MildPenalty       float64
	PenaltyCap        float64

	DataQualityBonus   float64
	DataQualityPenalty float64

	// Score assigned to items that fail medical qualification. Always positive.
	FloorScore float64
}

func DefaultConfig() Config {
	return Config{
		QualificationThreshold: 0.5,
		Weights: map[int]float64{
			criteria.PrioritySafety:   50,
			criteria.PriorityCore:     25,
			criteria.PriorityCosmetic: 10,
		},
		NumericBonusScale:  1.0,
		NumericBonusCap:    10,
		SevereNegatives:    []string{"Paranoid", "Anxious"},
		ModerateNegatives:  []string{"Dizzy", "Headache"},
		SeverePenalty:      15,
		ModeratePenalty:    8,
		MildPenalty:        3,
		PenaltyCap:         30,
		DataQualityBonus:   2,
		DataQualityPenalty: 5,
		FloorScore:         1,
	}
}

// Weighted scores items against c and orders them: qualified first, then by score, then by the
// requested numeric field.
func (e *Engine) Weighted(items []store.Strain, c criteria.Criteria) []ScoredItem {
	medical := c.MedicalFilters()
	scored := make([]ScoredItem, len(items))
	for i, s := range items {
		scored[i] = e.scoreOne(s, c, medical)
	}

	tie, hasTie := tieBreaker(c)
	sort.SliceStable(scored, func(i, j int) bool {
		a, b := scored[i], scored[j]
		if a.Qualified != b.Qualified {
			return a.Qualified
		}
		ra, rb := round1(a.Score), round1(b.Score)
		if ra != rb {
			return ra > rb
		}
		if hasTie {
			return tie.less(a.Strain, b.Strain)
		}
		return false
	})
	return scored
}

func (e *Engine) scoreOne(s store.Strain, c criteria.Criteria, medical []criteria.Filter) ScoredItem {
	qualified := len(medical) == 0
	for _, f := range medical {
		if ratio(s, f) > 0 {
			qualified = true
			break
		}
	}
	if !qualified {
		return ScoredItem{Strain: s, Score: e.cfg.FloorScore}
	}

	score := 0.0
	for _, f := range c.Filters {
		if criteria.IsExclusion(f.Expr) {
			continue
		}
		w := e.cfg.Weights[f.Priority]
		r := ratio(s, f)
		if r >= e.cfg.QualificationThreshold {
			score += w
		} else {
			score += w * r
		}
		score += e.numericBonus(s, f)
	}
	score -= e.penalty(s, c)
	score += e.dataQuality(s)

	return ScoredItem{Strain: s, Score: math.Max(score, e.cfg.FloorScore), Qualified: true}
}

// ratio is the matched share of a positive filter: set coverage for set fields, 1 or 0 otherwise.
func ratio(s store.Strain, f criteria.Filter) float64 {
	v := FieldValue(s, string(f.Field))
	switch x := f.Expr.(type) {
	case criteria.Contains:
		return Coverage(v, x.Values)
	case criteria.Any:
		if Coverage(v, x.Values) > 0 {
			return 1
		}
		return 0
	case criteria.Eq, criteria.Compare, criteria.Range, criteria.NotContains:
		if Evaluate(v, f.Expr) {
			return 1
		}
		return 0
	}
	return 0
}

func (e *Engine) numericBonus(s store.Strain, f criteria.Filter) float64 {
	if f.Priority != criteria.PriorityCore || !f.Field.IsNumeric() {
		return 0
	}
	v := FieldValue(s, string(f.Field))
	if !v.HasNum || !Evaluate(v, f.Expr) {
		return 0
	}
	var bonus float64
	switch x := f.Expr.(type) {
	case criteria.Compare:
		bonus = math.Abs(v.Num-x.Value) * e.cfg.NumericBonusScale
	case criteria.Range:
		bonus = e.cfg.NumericBonusCap / 2
	case criteria.Eq, criteria.Contains, criteria.NotContains, criteria.Any:
		return 0
	}
	return math.Min(bonus, e.cfg.NumericBonusCap)
}

// penalty charges for item effects or negatives the user asked to avoid, graded by severity.
func (e *Engine) penalty(s store.Strain, c criteria.Criteria) float64 {
	avoided := append(c.Avoided(criteria.FieldNegatives), c.Avoided(criteria.FieldEffects)...)
	if len(avoided) == 0 {
		return 0
	}
	total := 0.0
	for _, term := range append(append([]string(nil), s.Negatives...), s.Effects...) {
		if !vocab.ContainsTerm(avoided, term) {
			continue
		}
		switch {
		case vocab.ContainsTerm(e.cfg.SevereNegatives, term):
			total += e.cfg.SeverePenalty
		case vocab.ContainsTerm(e.cfg.ModerateNegatives, term):
			total += e.cfg.ModeratePenalty
		default:
			total += e.cfg.MildPenalty
		}
	}
	return math.Min(total, e.cfg.PenaltyCap)
}

func (e *Engine) dataQuality(s store.Strain) float64 {
	thc := FieldValue(s, "thc")
	cbd := FieldValue(s, "cbd")
	if (!thc.HasNum && !cbd.HasNum) || len(s.Effects) == 0 {
		return -e.cfg.DataQualityPenalty
	}
	if thc.HasNum && len(s.Flavors) > 0 && len(s.MedicalUses) > 0 {
		return e.cfg.DataQualityBonus
	}
	return 0
}

type tieBreak struct {
	field string
	desc  bool
}

// tieBreaker derives the ordering field from the first numeric criterion.
func tieBreaker(c criteria.Criteria) (tieBreak, bool) {
	for _, field := range []criteria.Field{criteria.FieldTHC, criteria.FieldCBD} {
		f, ok := c.Numeric(field)
		if !ok {
			continue
		}
		desc := true
		switch x := f.Expr.(type) {
		case criteria.Compare:
			desc = x.Cmp == criteria.OpGte || x.Cmp == criteria.OpGt
		case criteria.Range:
			desc = !(x.Min == nil && x.Max != nil)
		}
		return tieBreak{field: string(field), desc: desc}, true
	}
	return tieBreak{}, false
}

func (t tieBreak) less(a, b store.Strain) bool {
	va, vb := FieldValue(a, t.field), FieldValue(b, t.field)
	if va.HasNum != vb.HasNum {
		return va.HasNum
	}
	if !va.HasNum || va.Num == vb.Num {
		return false
	}
	if t.desc {
		return va.Num > vb.Num
	}
	return va.Num < vb.Num
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
