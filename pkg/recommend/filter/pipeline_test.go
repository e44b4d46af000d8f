package filter

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"ai-budtender-be/internal/pkg/logger"
	"ai-budtender-be/internal/repository/memory"
	"ai-budtender-be/pkg/embedding"
	"ai-budtender-be/pkg/recommend/catalog"
	"ai-budtender-be/pkg/recommend/criteria"
	"ai-budtender-be/pkg/recommend/fuzzy"
	"ai-budtender-be/pkg/recommend/ranking"
	"ai-budtender-be/pkg/recommend/taxonomy"
	"ai-budtender-be/pkg/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixtures() []store.Strain {
	return []store.Strain{
		{ID: 1, Name: "Northern Lights", Category: "Indica", THC: "18%", Effects: []string{"Sleepy", "Relaxed"}, Negatives: []string{"Dizzy"}, Flavors: []string{"Earthy", "Pine"}, MedicalUses: []string{"Insomnia"}},
		{ID: 2, Name: "Sour Diesel", Category: "Sativa", THC: "22%", Effects: []string{"Energetic", "Uplifted"}, Negatives: []string{"Paranoid"}, Flavors: []string{"Diesel", "Lemon"}, MedicalUses: []string{"Fatigue"}},
		{ID: 3, Name: "Blue Dream", Category: "Hybrid", THC: "17%", Effects: []string{"Relaxed", "Happy"}, Flavors: []string{"Berry"}, MedicalUses: []string{"Stress"}},
		{ID: 4, Name: "Granddaddy Purple", Category: "Indica", THC: "N/A", Effects: []string{"Sleepy", "Hungry"}, Flavors: []string{"Grape"}, MedicalUses: []string{"Pain", "Insomnia"}},
	}
}

func newPipeline(st catalog.Store, loader taxonomy.Loader) *Pipeline {
	log := logger.NewNopLogger()
	return NewPipeline(st, taxonomy.NewCache(loader, taxonomy.DefaultConfig(), log), fuzzy.NewMatcher(log), nil, nil, DefaultConfig(), log)
}

func TestSearchDirectAppliesSoftFilters(t *testing.T) {
	repo := memory.NewCatalogRepository(fixtures()...)
	p := newPipeline(repo, repo)

	res, err := p.Search(context.Background(), SearchRequest{Criteria: criteria.New(
		criteria.Filter{Field: criteria.FieldCategory, Expr: criteria.Eq{Value: "Indica"}, Priority: 2},
		criteria.Filter{Field: criteria.FieldEffects, Expr: criteria.Contains{Values: []string{"slepy"}}, Priority: 2},
		criteria.Filter{Field: criteria.FieldFlavors, Expr: criteria.Contains{Values: []string{"Mango"}}, Priority: 3},
	)})
	require.NoError(t, err)

	assert.Equal(t, StageDirect, res.Stage)
	assert.Equal(t, []int64{1, 4}, store.IDs(res.Items))
	assert.Len(t, res.Relaxed, 1)
	assert.False(t, res.Fallback)
}

func TestCascadeDropsAvoidBeforeGuessingCategory(t *testing.T) {
	repo := memory.NewCatalogRepository(fixtures()...)
	p := newPipeline(repo, repo)

	res, err := p.Search(context.Background(), SearchRequest{Criteria: criteria.New(
		criteria.Filter{Field: criteria.FieldTHC, Expr: criteria.Compare{Cmp: criteria.OpGte, Value: 30}, Priority: 2},
		criteria.Filter{Field: criteria.FieldEffects, Expr: criteria.Contains{Values: []string{"Sleepy"}}, Priority: 2},
		criteria.Filter{Field: criteria.FieldNegatives, Expr: criteria.NotContains{Values: []string{"Dizzy"}}, Priority: 1},
	)})
	require.NoError(t, err)

	assert.Equal(t, []Stage{StageDirect, StageAllCriteria}, res.Attempted)
	assert.Equal(t, StageAllCriteria, res.Stage)
	assert.Equal(t, []int64{4}, store.IDs(res.Items))

	res, err = p.Search(context.Background(), SearchRequest{Criteria: criteria.New(
		criteria.Filter{Field: criteria.FieldTHC, Expr: criteria.Compare{Cmp: criteria.OpGte, Value: 30}, Priority: 2},
		criteria.Filter{Field: criteria.FieldEffects, Expr: criteria.Contains{Values: []string{"Relaxed"}}, Priority: 2},
		criteria.Filter{Field: criteria.FieldEffects, Expr: criteria.NotContains{Values: []string{"Happy", "Sleepy"}}, Priority: 1},
	)})
	require.NoError(t, err)

	assert.Equal(t, []Stage{StageDirect, StageAllCriteria, StageWithoutAvoid}, res.Attempted)
	assert.Equal(t, []int64{1, 3}, store.IDs(res.Items))
}

func TestCascadeLastResortIsFlagged(t *testing.T) {
	repo := memory.NewCatalogRepository(fixtures()...)
	p := newPipeline(repo, repo)

	res, err := p.Search(context.Background(), SearchRequest{Criteria: criteria.New(
		criteria.Filter{Field: criteria.FieldCategory, Expr: criteria.Eq{Value: "Hybrid"}, Priority: 2},
		criteria.Filter{Field: criteria.FieldCBD, Expr: criteria.Compare{Cmp: criteria.OpGte, Value: 10}, Priority: 2},
	)})
	require.NoError(t, err)
	assert.Equal(t, StageAllCriteria, res.Stage)

	empty := memory.NewCatalogRepository()
	p = newPipeline(&onlyTopN{CatalogRepository: empty, top: fixtures()[:2]}, empty)
	res, err = p.Search(context.Background(), SearchRequest{Criteria: criteria.New(
		criteria.Filter{Field: criteria.FieldCategory, Expr: criteria.Eq{Value: "Hybrid"}, Priority: 2},
	)})
	require.NoError(t, err)
	assert.Equal(t, StageLastResort, res.Stage)
	assert.True(t, res.Fallback)
	assert.Equal(t, []int64{1, 2}, store.IDs(res.Items))
}

type onlyTopN struct {
	*memory.CatalogRepository
	top []store.Strain
}

func (o *onlyTopN) TopN(ctx context.Context, n int) ([]store.Strain, error) {
	return o.top, nil
}

type downStore struct{ catalog.Store }

func (downStore) Search(ctx context.Context, q catalog.Query) ([]store.Strain, error) {
	return nil, errors.New("connection refused")
}

func TestSearchPropagatesStoreFailure(t *testing.T) {
	repo := memory.NewCatalogRepository()
	p := newPipeline(downStore{}, repo)

	_, err := p.Search(context.Background(), SearchRequest{})
	assert.ErrorIs(t, err, catalog.ErrUnavailable)
}

func TestSearchNeverEmptyForRandomCriteria(t *testing.T) {
	repo := memory.NewCatalogRepository(fixtures()...)
	p := newPipeline(repo, repo)
	rng := rand.New(rand.NewSource(42))

	categories := []string{"Indica", "Sativa", "Hybrid"}
	effects := []string{"Sleepy", "Energetic", "Focused", "Talkative", "Happy"}
	negatives := []string{"Dizzy", "Paranoid", "Dry Mouth"}

	for i := 0; i < 200; i++ {
		var filters []criteria.Filter
		if rng.Intn(2) == 0 {
			filters = append(filters, criteria.Filter{Field: criteria.FieldCategory, Expr: criteria.Eq{Value: categories[rng.Intn(3)]}, Priority: 2})
		}
		if rng.Intn(2) == 0 {
			filters = append(filters, criteria.Filter{Field: criteria.FieldTHC, Expr: criteria.Compare{Cmp: criteria.OpGte, Value: float64(rng.Intn(40))}, Priority: 2})
		}
		if rng.Intn(2) == 0 {
			filters = append(filters, criteria.Filter{Field: criteria.FieldEffects, Expr: criteria.Contains{Values: []string{effects[rng.Intn(len(effects))]}}, Priority: 2})
		}
		if rng.Intn(2) == 0 {
			filters = append(filters, criteria.Filter{Field: criteria.FieldNegatives, Expr: criteria.NotContains{Values: []string{negatives[rng.Intn(len(negatives))]}}, Priority: 1})
		}

		res, err := p.Search(context.Background(), SearchRequest{Criteria: criteria.New(filters...)})
		require.NoError(t, err)
		assert.NotEmpty(t, res.Items, fmt.Sprintf("criteria %v", criteria.New(filters...).Describe()))
	}
}

func TestFilterInContext(t *testing.T) {
	repo := memory.NewCatalogRepository(fixtures()...)
	p := newPipeline(repo, repo)

	items, relaxed := p.Filter(context.Background(), criteria.New(
		criteria.Filter{Field: criteria.FieldTHC, Expr: criteria.Compare{Cmp: criteria.OpLte, Value: 20}, Priority: 2},
	), fixtures(), "en")
	assert.Equal(t, []int64{1, 3}, store.IDs(items))
	assert.Empty(t, relaxed)

	items, _ = p.Filter(context.Background(), criteria.New(
		criteria.Filter{Field: criteria.FieldCategory, Expr: criteria.Eq{Value: "Sativa"}, Priority: 2},
	), fixtures()[:1], "en")
	assert.Empty(t, items)
}

func TestCategoryForEffects(t *testing.T) {
	assert.Equal(t, "Indica", CategoryForEffects([]string{"sleep"}))
	assert.Equal(t, "Sativa", CategoryForEffects([]string{"Energía"}))
	assert.Equal(t, "Hybrid", CategoryForEffects([]string{"Talkative"}))
	assert.Equal(t, "Hybrid", CategoryForEffects(nil))
}

func TestSearchFindsMatchesBeyondCandidatePool(t *testing.T) {
	var items []store.Strain
	for i := int64(1); i <= 250; i++ {
		items = append(items, store.Strain{ID: i, Name: fmt.Sprintf("Strain %d", i), Category: "Hybrid", Effects: []string{"Happy"}, Flavors: []string{"Earthy"}})
	}
	items[249].Flavors = []string{"Mango"}
	repo := memory.NewCatalogRepository(items...)
	p := newPipeline(repo, repo)

	res, err := p.Search(context.Background(), SearchRequest{Criteria: criteria.New(
		criteria.Filter{Field: criteria.FieldFlavors, Expr: criteria.Contains{Values: []string{"Mango"}}, Priority: 3},
	)})
	require.NoError(t, err)

	assert.Equal(t, StageDirect, res.Stage)
	assert.Empty(t, res.Relaxed)
	assert.Equal(t, []int64{250}, store.IDs(res.Items))
}

// vectors maps exact texts to embeddings; anything else embeds to the zero vector.
type vectors map[string][]float32

func (v vectors) Generate(ctx context.Context, text string, taskType string) (*embedding.EmbeddingResponse, error) {
	vec, ok := v[text]
	if !ok {
		vec = []float32{0, 0}
	}
	return &embedding.EmbeddingResponse{Embedding: embedding.EmbeddingResponseEmbedding{Values: vec}}, nil
}

type failingEmbedder struct{}

func (failingEmbedder) Generate(ctx context.Context, text string, taskType string) (*embedding.EmbeddingResponse, error) {
	return nil, errors.New("quota exceeded")
}

func TestCascadeUsesVectorSimilarityBeforeLastResort(t *testing.T) {
	log := logger.NewNopLogger()
	repo := memory.NewCatalogRepository(fixtures()[1], fixtures()[2])
	repo.SetEmbedding(2, []float32{0, 1})
	repo.SetEmbedding(3, []float32{1, 0})
	embedder := vectors{"something for a calm night": {1, 0}}
	vector := ranking.NewVectorRanker(embedder, repo, time.Second, log)
	p := NewPipeline(repo, taxonomy.NewCache(repo, taxonomy.DefaultConfig(), log), fuzzy.NewMatcher(log), vector, nil, DefaultConfig(), log)

	req := SearchRequest{
		Query: "something for a calm night",
		Criteria: criteria.New(
			criteria.Filter{Field: criteria.FieldCategory, Expr: criteria.Eq{Value: "Ruderalis"}, Priority: 2},
			criteria.Filter{Field: criteria.FieldEffects, Expr: criteria.Contains{Values: []string{"Sleepy"}}, Priority: 2},
		),
	}
	res, err := p.Search(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, []Stage{StageDirect, StageAllCriteria, StageWithoutAvoid, StageCategoryFromEffects, StageVectorSimilarity}, res.Attempted)
	assert.Equal(t, StageVectorSimilarity, res.Stage)
	assert.False(t, res.Fallback)
	assert.Equal(t, []int64{3, 2}, store.IDs(res.Items))

	p = newPipeline(repo, repo)
	res, err = p.Search(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, StageLastResort, res.Stage)
	assert.True(t, res.Fallback)
}

func TestOrderBoostsFlavorMatchesBelowOneEffect(t *testing.T) {
	log := logger.NewNopLogger()
	repo := memory.NewCatalogRepository()
	items := []store.Strain{
		{ID: 1, Effects: []string{"Relaxed"}, Flavors: []string{"Lemon"}},
		{ID: 2, Effects: []string{"Relaxed"}, Flavors: []string{"Grape"}},
		{ID: 3, Effects: []string{"Relaxed", "Happy"}, Flavors: []string{"Lemon"}},
	}
	c := criteria.New(
		criteria.Filter{Field: criteria.FieldEffects, Expr: criteria.Contains{Values: []string{"Relaxed", "Happy"}}, Priority: 2},
		criteria.Filter{Field: criteria.FieldFlavors, Expr: criteria.Contains{Values: []string{"Grape"}}, Priority: 3},
	)

	embedder := vectors{"Grape": {1, 0}, "Lemon": {0, 1}}
	p := NewPipeline(repo, taxonomy.NewCache(repo, taxonomy.DefaultConfig(), log), fuzzy.NewMatcher(log), nil, embedder, DefaultConfig(), log)
	assert.Equal(t, []int64{3, 2, 1}, store.IDs(p.order(context.Background(), items, c, 10)))

	p = NewPipeline(repo, taxonomy.NewCache(repo, taxonomy.DefaultConfig(), log), fuzzy.NewMatcher(log), nil, failingEmbedder{}, DefaultConfig(), log)
	assert.Equal(t, []int64{3, 1, 2}, store.IDs(p.order(context.Background(), items, c, 10)))
}
