package ranking

import (
	"context"
	"fmt"
	"time"

	"ai-budtender-be/internal/pkg/logger"
	"ai-budtender-be/pkg/embedding"
	"ai-budtender-be/pkg/recommend/catalog"
	"ai-budtender-be/pkg/store"
)

// VectorRanker orders strains by semantic distance between the query and their stored embeddings.
type VectorRanker struct {
	embedder embedding.EmbeddingProvider
	store    catalog.Store
	timeout  time.Duration
	log      logger.ILogger
}

func NewVectorRanker(embedder embedding.EmbeddingProvider, store catalog.Store, timeout time.Duration, log logger.ILogger) *VectorRanker {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &VectorRanker{embedder: embedder, store: store, timeout: timeout, log: log}
}

// Rerank orders items by distance to query with a single nearest-neighbour query scoped to their ids.
// Items without an embedding keep their original order after the ranked ones. Any failure returns
// the first limit items unchanged.
func (r *VectorRanker) Rerank(ctx context.Context, query string, items []store.Strain, limit int) []store.Strain {
	if limit <= 0 || limit > len(items) {
		limit = len(items)
	}
	if query == "" || len(items) == 0 {
		return items[:limit]
	}

	vec, err := r.embed(ctx, query)
	if err != nil {
		r.log.Warn("RANKING", "Query embedding failed, keeping order", map[string]interface{}{"error": err.Error()})
		return items[:limit]
	}

	rctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	nearest, err := r.store.NearestIDs(rctx, vec, store.IDs(items), limit)
	if err != nil {
		r.log.Warn("RANKING", "Vector lookup failed, keeping order", map[string]interface{}{"error": err.Error()})
		return items[:limit]
	}

	byID := make(map[int64]store.Strain, len(items))
	for _, s := range items {
		byID[s.ID] = s
	}
	out := make([]store.Strain, 0, limit)
	seen := make(map[int64]bool, limit)
	for _, n := range nearest {
		s, ok := byID[n.ID]
		if !ok || seen[n.ID] {
			continue
		}
		out = append(out, s)
		seen[n.ID] = true
		if len(out) == limit {
			return out
		}
	}
	for _, s := range items {
		if len(out) == limit {
			break
		}
		if !seen[s.ID] {
			out = append(out, s)
			seen[s.ID] = true
		}
	}
	return out
}

// Nearest searches the whole catalog by semantic distance to query.
func (r *VectorRanker) Nearest(ctx context.Context, query string, limit int) ([]store.Strain, error) {
	vec, err := r.embed(ctx, query)
	if err != nil {
		return nil, err
	}

	rctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	nearest, err := r.store.NearestIDs(rctx, vec, nil, limit)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, len(nearest))
	for i, n := range nearest {
		ids[i] = n.ID
	}
	found, err := r.store.FindByIDs(rctx, ids)
	if err != nil {
		return nil, err
	}
	return store.OrderByIDs(found, ids), nil
}

func (r *VectorRanker) embed(ctx context.Context, text string) ([]float32, error) {
	ectx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	res, err := r.embedder.Generate(ectx, text, embedding.TaskQuery)
	if err != nil {
		return nil, err
	}
	if res == nil || len(res.Embedding.Values) == 0 {
		return nil, fmt.Errorf("empty embedding")
	}
	return res.Embedding.Values, nil
}
