package embedding

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingProvider struct {
	calls int
	err   error
}

func (p *countingProvider) Generate(ctx context.Context, text string, taskType string) (*EmbeddingResponse, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	return &EmbeddingResponse{Embedding: EmbeddingResponseEmbedding{Values: []float32{float32(len(text)), 1}}}, nil
}

func TestCachedProviderNormalizesKey(t *testing.T) {
	next := &countingProvider{}
	p := NewCachedProvider(next, time.Minute)
	ctx := context.Background()

	a, err := p.Generate(ctx, "Citrus  Lemon", TaskSimilar)
	require.NoError(t, err)
	b, err := p.Generate(ctx, "citrus lemon", TaskSimilar)
	require.NoError(t, err)

	assert.Same(t, a, b)
	assert.Equal(t, 1, next.calls)

	_, err = p.Generate(ctx, "citrus lemon", TaskQuery)
	require.NoError(t, err)
	assert.Equal(t, 2, next.calls)
}

func TestCachedProviderDoesNotCacheErrors(t *testing.T) {
	next := &countingProvider{err: errors.New("timeout")}
	p := NewCachedProvider(next, time.Minute)

	_, err := p.Generate(context.Background(), "x", TaskQuery)
	assert.Error(t, err)
	_, err = p.Generate(context.Background(), "x", TaskQuery)
	assert.Error(t, err)
	assert.Equal(t, 2, next.calls)
}

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, Cosine([]float32{1, 0}, []float32{2, 0}), 1e-9)
	assert.InDelta(t, 0.0, Cosine([]float32{1, 0}, []float32{0, 3}), 1e-9)
	assert.Equal(t, 0.0, Cosine([]float32{1}, []float32{1, 2}))
	assert.Equal(t, 0.0, Cosine(nil, nil))
}

func TestNormalizeVector(t *testing.T) {
	v := normalizeVector([]float32{3, 4})
	assert.InDelta(t, 0.6, v[0], 1e-6)
	assert.InDelta(t, 0.8, v[1], 1e-6)
	assert.Equal(t, []float32{0, 0}, normalizeVector([]float32{0, 0}))
}
