package ranking

import (
	"sort"
	"strings"

	"ai-budtender-be/pkg/recommend/plan"
	"ai-budtender-be/pkg/recommend/vocab"
	"ai-budtender-be/pkg/store"
)

// SortBy orders items by field. The sort is stable and items without a usable value go last in
// both directions. Numeric ordering applies when any item carries a number for field.
func SortBy(items []store.Strain, field string, order plan.Order) []store.Strain {
	out := append([]store.Strain(nil), items...)
	if field == "" || len(out) < 2 {
		return out
	}

	values := make(map[int64]Value, len(out))
	numericMode := false
	for _, s := range out {
		v := FieldValue(s, field)
		values[s.ID] = v
		if v.HasNum {
			numericMode = true
		}
	}
	desc := order == plan.OrderDesc

	sort.SliceStable(out, func(i, j int) bool {
		a, b := values[out[i].ID], values[out[j].ID]
		if numericMode {
			if a.HasNum != b.HasNum {
				return a.HasNum
			}
			if !a.HasNum || a.Num == b.Num {
				return false
			}
			if desc {
				return a.Num > b.Num
			}
			return a.Num < b.Num
		}

		ta, tb := sortText(a), sortText(b)
		if (ta == "") != (tb == "") {
			return ta != ""
		}
		if ta == tb {
			return false
		}
		if desc {
			return ta > tb
		}
		return ta < tb
	})
	return out
}

// HasValue reports whether s has a usable value for field.
func HasValue(s store.Strain, field string) bool {
	return FieldValue(s, field).Present()
}

func sortText(v Value) string {
	if v.IsSet {
		return vocab.Fold(strings.Join(v.Set, " "))
	}
	return vocab.Fold(v.Text)
}
