package criteria

import (
	"strconv"
	"strings"
)

// Buckets splits a potency scale into low, medium and high.
type Buckets struct {
	LowMax  float64
	HighMin float64
}

// Bounds is the observed numeric range of a catalog field.
type Bounds struct {
	Min float64
	Max float64
}

func (b Bounds) valid() bool {
	return b.Max > b.Min
}

// Range maps a level word (English or Spanish) to an inclusive range clamped to bounds.
func (b Buckets) Range(level string, bounds Bounds) (Range, bool) {
	var r Range
	switch level {
	case "low", "bajo", "baja":
		r = Range{Max: Float(b.LowMax)}
	case "medium", "medio", "media":
		r = Range{Min: Float(b.LowMax), Max: Float(b.HighMin)}
	case "high", "alto", "alta":
		r = Range{Min: Float(b.HighMin)}
	default:
		return Range{}, false
	}
	if !bounds.valid() {
		return r, true
	}
	if r.Min != nil {
		*r.Min = clamp(*r.Min, bounds.Min, bounds.Max)
	}
	if r.Max != nil {
		*r.Max = clamp(*r.Max, bounds.Min, bounds.Max)
	}
	return r, true
}

// IsHigh reports whether e asks for potency at or above the high bucket.
func (b Buckets) IsHigh(e Expr) bool {
	switch x := e.(type) {
	case Compare:
		return (x.Cmp == OpGte || x.Cmp == OpGt) && x.Value >= b.HighMin
	case Range:
		return x.Min != nil && *x.Min >= b.HighMin
	case Eq:
		return numericAtLeast(x.Value, b.HighMin)
	case Contains, NotContains, Any:
		return false
	}
	return false
}

func numericAtLeast(s string, min float64) bool {
	v, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(s), "%"), 64)
	return err == nil && v >= min
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// DefaultPriority applies the reserved scheme: exclusions and medical needs are safety,
// potency, category and effects are core, flavors and terpenes are cosmetic.
func DefaultPriority(field Field, e Expr) int {
	if IsExclusion(e) {
		return PrioritySafety
	}
	switch field {
	case FieldHelpsWith, FieldNegatives:
		return PrioritySafety
	case FieldTHC, FieldCBD, FieldCategory, FieldEffects:
		return PriorityCore
	case FieldFlavors, FieldTerpenes:
		return PriorityCosmetic
	}
	return PriorityCore
}
