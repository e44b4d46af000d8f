package contract

import (
	"context"

	"ai-budtender-be/internal/entity"
	"ai-budtender-be/internal/repository/specification"
	"ai-budtender-be/pkg/store"
)

type StrainRepository interface {
	FindAll(ctx context.Context, specs ...specification.Specification) ([]store.Strain, error)
	FindByIDs(ctx context.Context, ids []int64) ([]store.Strain, error)
	// NearestByEmbedding ranks strains by cosine distance in a single query. An empty allowlist searches
	// the whole catalog.
	NearestByEmbedding(ctx context.Context, vector []float32, allow []int64, limit int) ([]entity.ScoredStrainID, error)
	TopN(ctx context.Context, n int) ([]store.Strain, error)
	Categories(ctx context.Context) ([]string, error)
	NumericRange(ctx context.Context, column string) (entity.NumericRange, error)
	UpsertEmbedding(ctx context.Context, strainID int64, vector []float32, document string) error
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}
