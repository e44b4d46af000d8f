package store

import "strings"

// Strain is the read-only projection of a catalog item used by the recommendation pipeline.
// THC and CBD keep the raw catalog text; numeric cleaning happens at access time.
type Strain struct {
	ID          int64                  `json:"id"`
	Name        string                 `json:"name"`
	Category    string                 `json:"category"`
	THC         string                 `json:"thc_level"`
	CBD         string                 `json:"cbd_level"`
	Description string                 `json:"description"`
	Effects     []string               `json:"effects"`
	MedicalUses []string               `json:"helps_with"`
	Negatives   []string               `json:"negatives"`
	Flavors     []string               `json:"flavors"`
	Terpenes    []string               `json:"terpenes"`
	Extra       map[string]interface{} `json:"extra,omitempty"`
}

// IDs returns the ids of items in order.
func IDs(items []Strain) []int64 {
	ids := make([]int64, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}
	return ids
}

// OrderByIDs arranges items to follow ids. Items whose id is not listed are dropped.
func OrderByIDs(items []Strain, ids []int64) []Strain {
	byID := make(map[int64]Strain, len(items))
	for _, it := range items {
		byID[it.ID] = it
	}
	out := make([]Strain, 0, len(ids))
	for _, id := range ids {
		if it, ok := byID[id]; ok {
			out = append(out, it)
		}
	}
	return out
}

func containsFold(list []string, v string) bool {
	for _, x := range list {
		if equalFold(x, v) {
			return true
		}
	}
	return false
}

func equalFold(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
