// Package ranking scores, sorts and semantically re-ranks candidate strains.
package ranking

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"ai-budtender-be/pkg/recommend/criteria"
	"ai-budtender-be/pkg/recommend/vocab"
	"ai-budtender-be/pkg/store"
)

// Value is the uniform view of any field of a strain.
type Value struct {
	Num    float64
	HasNum bool
	Text   string
	Set    []string
	IsSet  bool
}

func (v Value) Present() bool {
	return v.HasNum || strings.TrimSpace(v.Text) != "" || len(v.Set) > 0
}

var numberPattern = regexp.MustCompile(`[0-9]+(?:\.[0-9]+)?`)

// placeholders are catalog values that mean "unknown".
var placeholders = map[string]bool{
	"":     true,
	"n/a":  true,
	"na":   true,
	"null": true,
	"none": true,
	"-":    true,
	"?":    true,
}

// CleanNumeric extracts the first number of a raw catalog value. Placeholders, text without digits and
// zero are treated as absent. "17%" -> 17, "15-20%" -> 15.
func CleanNumeric(raw string) (float64, bool) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if placeholders[s] {
		return 0, false
	}
	m := numberPattern.FindString(s)
	if m == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil || v == 0 {
		return 0, false
	}
	return v, true
}

// FieldValue reads field from s. Direct columns, the attribute relationships and free-form metadata
// all resolve here; new attribute kinds only need a case below.
func FieldValue(s store.Strain, field string) Value {
	if f, ok := criteria.ParseField(field); ok {
		switch f {
		case criteria.FieldTHC:
			return numeric(s.THC)
		case criteria.FieldCBD:
			return numeric(s.CBD)
		case criteria.FieldCategory:
			return Value{Text: s.Category}
		case criteria.FieldEffects:
			return set(s.Effects)
		case criteria.FieldHelpsWith:
			return set(s.MedicalUses)
		case criteria.FieldNegatives:
			return set(s.Negatives)
		case criteria.FieldFlavors:
			return set(s.Flavors)
		case criteria.FieldTerpenes:
			return set(s.Terpenes)
		}
	}

	switch vocab.Fold(field) {
	case "id":
		return Value{Num: float64(s.ID), HasNum: true, Text: strconv.FormatInt(s.ID, 10)}
	case "name":
		return Value{Text: s.Name}
	case "description":
		return Value{Text: s.Description}
	}
	return extraValue(s.Extra, field)
}

func numeric(raw string) Value {
	v, ok := CleanNumeric(raw)
	return Value{Num: v, HasNum: ok, Text: raw}
}

func set(values []string) Value {
	return Value{Set: values, IsSet: true}
}

func extraValue(extra map[string]interface{}, field string) Value {
	if extra == nil {
		return Value{}
	}
	raw, ok := extra[field]
	if !ok {
		raw, ok = extra[strings.ToLower(field)]
	}
	if !ok || raw == nil {
		return Value{}
	}
	switch x := raw.(type) {
	case float64:
		return Value{Num: x, HasNum: x != 0, Text: strconv.FormatFloat(x, 'f', -1, 64)}
	case int:
		return Value{Num: float64(x), HasNum: x != 0, Text: strconv.Itoa(x)}
	case bool:
		return Value{Text: strconv.FormatBool(x)}
	case string:
		return numeric(x)
	case []interface{}:
		out := make([]string, 0, len(x))
		for _, item := range x {
			out = append(out, fmt.Sprint(item))
		}
		return set(out)
	case []string:
		return set(x)
	}
	return Value{Text: fmt.Sprint(raw)}
}
