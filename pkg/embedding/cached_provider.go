package embedding

import (
	"context"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// CachedProvider memoizes embeddings by task type and normalized text.
// Attribute terms repeat constantly across turns, so most lookups hit.
type CachedProvider struct {
	next  EmbeddingProvider
	cache *gocache.Cache
}

func NewCachedProvider(next EmbeddingProvider, ttl time.Duration) *CachedProvider {
	return &CachedProvider{
		next:  next,
		cache: gocache.New(ttl, 2*ttl),
	}
}

func (p *CachedProvider) Generate(ctx context.Context, text string, taskType string) (*EmbeddingResponse, error) {
	key := taskType + "|" + strings.Join(strings.Fields(strings.ToLower(text)), " ")
	if x, ok := p.cache.Get(key); ok {
		return x.(*EmbeddingResponse), nil
	}

	res, err := p.next.Generate(ctx, text, taskType)
	if err != nil {
		return nil, err
	}
	p.cache.SetDefault(key, res)
	return res, nil
}
