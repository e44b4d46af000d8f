// Package catalog declares the read operations the recommendation pipeline needs from the catalog store.
package catalog

import (
	"context"
	"errors"

	"ai-budtender-be/pkg/recommend/criteria"
	"ai-budtender-be/pkg/store"
)

// ErrUnavailable wraps failures reaching the catalog store.
var ErrUnavailable = errors.New("catalog store unavailable")

// Query is a structural store-level search. Attribute lists match case-insensitively and partially;
// a non-empty desired list requires at least one hit, an exclusion list rejects any hit.
type Query struct {
	Category string
	THC      criteria.Expr
	CBD      criteria.Expr

	Effects     []string
	MedicalUses []string
	Flavors     []string
	Terpenes    []string

	ExcludeEffects   []string
	ExcludeNegatives []string

	Limit int
}

// ScoredID is one row of a nearest-neighbour lookup. Lower distance is closer.
type ScoredID struct {
	ID       int64
	Distance float64
}

type Store interface {
	Search(ctx context.Context, q Query) ([]store.Strain, error)
	FindByIDs(ctx context.Context, ids []int64) ([]store.Strain, error)
	// NearestIDs ranks by vector distance in one query. An empty allowlist means the whole catalog.
	NearestIDs(ctx context.Context, vector []float32, allow []int64, limit int) ([]ScoredID, error)
	TopN(ctx context.Context, n int) ([]store.Strain, error)
}
