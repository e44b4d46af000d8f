package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"ai-budtender-be/internal/dto"
	"ai-budtender-be/internal/pkg/logger"
	"ai-budtender-be/internal/repository/memory"
	"ai-budtender-be/pkg/cache"
	"ai-budtender-be/pkg/events"
	"ai-budtender-be/pkg/recommend/catalog"
	"ai-budtender-be/pkg/recommend/criteria"
	"ai-budtender-be/pkg/recommend/executor"
	"ai-budtender-be/pkg/recommend/filter"
	"ai-budtender-be/pkg/recommend/fuzzy"
	"ai-budtender-be/pkg/recommend/intent"
	"ai-budtender-be/pkg/recommend/plan"
	"ai-budtender-be/pkg/recommend/policy"
	"ai-budtender-be/pkg/recommend/ranking"
	"ai-budtender-be/pkg/recommend/session"
	"ai-budtender-be/pkg/recommend/taxonomy"
	"ai-budtender-be/pkg/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strainFixtures() []store.Strain {
	return []store.Strain{
		{ID: 1, Name: "Northern Lights", Category: "Indica", THC: "18%", Effects: []string{"Sleepy", "Relaxed"}, Flavors: []string{"Earthy"}, MedicalUses: []string{"Insomnia"}},
		{ID: 2, Name: "Sour Diesel", Category: "Sativa", THC: "22%", Effects: []string{"Energetic", "Uplifted"}, Negatives: []string{"Paranoid"}, Flavors: []string{"Diesel"}},
		{ID: 3, Name: "Blue Dream", Category: "Hybrid", THC: "17%", Effects: []string{"Relaxed", "Happy"}, Flavors: []string{"Berry"}},
		{ID: 4, Name: "Purple Kush", Category: "Indica", THC: "15%", Effects: []string{"Sleepy", "Hungry"}, Flavors: []string{"Grape"}, MedicalUses: []string{"Pain"}},
		{ID: 5, Name: "Bubba Kush", Category: "Indica", THC: "N/A", Effects: []string{"Sleepy"}, Flavors: []string{"Coffee"}},
	}
}

type recordingPublisher struct {
	events chan events.RecommendationServed
}

func (p *recordingPublisher) PublishTurn(ctx context.Context, e events.RecommendationServed) {
	p.events <- e
}

type downStore struct{}

var errDown = errors.New("connection refused")

func (downStore) Search(ctx context.Context, q catalog.Query) ([]store.Strain, error) {
	return nil, errDown
}
func (downStore) FindByIDs(ctx context.Context, ids []int64) ([]store.Strain, error) {
	return nil, errDown
}
func (downStore) NearestIDs(ctx context.Context, v []float32, allow []int64, limit int) ([]catalog.ScoredID, error) {
	return nil, errDown
}
func (downStore) TopN(ctx context.Context, n int) ([]store.Strain, error) {
	return nil, errDown
}

type testRig struct {
	svc       IRecommendationService
	sessions  *session.Manager
	publisher *recordingPublisher
}

func newRig(st catalog.Store, loader taxonomy.Loader) testRig {
	log := logger.NewNopLogger()
	tax := taxonomy.NewCache(loader, taxonomy.DefaultConfig(), log)
	pipe := filter.NewPipeline(st, tax, fuzzy.NewMatcher(log), nil, nil, filter.DefaultConfig(), log)
	exec := executor.NewExecutor(pipe, ranking.NewEngine(ranking.DefaultConfig(), nil, log), 10, log)
	sessions := session.NewManager(cache.NewMemoryClient(time.Minute), session.DefaultConfig(), log)
	pub := &recordingPublisher{events: make(chan events.RecommendationServed, 16)}

	svc := NewRecommendationService(RecommendationDependencies{
		Sessions:  sessions,
		Catalog:   st,
		Taxonomy:  tax,
		Analyzer:  intent.NewFallbackAnalyzer(nil, intent.NewRuleBasedAnalyzer(), time.Second, log),
		Resolver:  policy.NewResolver(policy.DefaultConfig(), log),
		Executor:  exec,
		Publisher: pub,
		Options:   criteria.DefaultParseOptions(),
		Log:       log,
	})
	return testRig{svc: svc, sessions: sessions, publisher: pub}
}

func itemIDs(items []dto.StrainDTO) []int64 {
	ids := make([]int64, len(items))
	for i, it := range items {
		ids[i] = it.Id
	}
	return ids
}

func TestGreetingReturnsNoItems(t *testing.T) {
	repo := memory.NewCatalogRepository(strainFixtures()...)
	rig := newRig(repo, repo)

	resp, err := rig.svc.Chat(context.Background(), &dto.ChatRequest{Message: "hello"})
	require.NoError(t, err)

	assert.NotEmpty(t, resp.SessionID)
	assert.Equal(t, "greeting", resp.DetectedIntent)
	assert.Equal(t, "conversational", resp.QueryType)
	assert.Empty(t, resp.RecommendedItems)
	assert.NotEmpty(t, resp.ResponseText)
	assert.Len(t, resp.QuickActions, 3)
	assert.True(t, resp.IsFallback)
}

func TestSearchThenFollowUpSort(t *testing.T) {
	repo := memory.NewCatalogRepository(strainFixtures()...)
	rig := newRig(repo, repo)
	ctx := context.Background()

	first, err := rig.svc.Chat(ctx, &dto.ChatRequest{Message: "I need something to make me sleepy"})
	require.NoError(t, err)
	require.NotEmpty(t, first.RecommendedItems)
	assert.Equal(t, "new_search", first.QueryType)
	assert.Equal(t, "en", first.Language)
	for _, it := range first.RecommendedItems {
		assert.Contains(t, it.Effects, "Sleepy")
	}

	second, err := rig.svc.Chat(ctx, &dto.ChatRequest{Message: "which has less THC?", SessionID: first.SessionID})
	require.NoError(t, err)
	assert.Equal(t, "follow_up", second.QueryType)
	assert.Equal(t, []int64{4, 1}, itemIDs(second.RecommendedItems))

	sess, err := rig.sessions.Get(ctx, first.SessionID)
	require.NoError(t, err)
	assert.Len(t, sess.RecommendationHistory, 2)
	assert.Len(t, sess.ConversationLog, 2)
	assert.Contains(t, sess.Preferences[store.PrefDesiredEffect], "Sleepy")
	assert.Equal(t, "follow_up", sess.CurrentTopic)
	assert.Equal(t, []string{"sleepy"}, sess.TopicStack)
}

func TestFollowUpSortSearchesWhenContextDoesNotFit(t *testing.T) {
	repo := memory.NewCatalogRepository(strainFixtures()...)
	rig := newRig(repo, repo)
	ctx := context.Background()

	first, err := rig.svc.Chat(ctx, &dto.ChatRequest{Message: "something energetic"})
	require.NoError(t, err)
	require.Equal(t, []int64{2}, itemIDs(first.RecommendedItems))

	second, err := rig.svc.Chat(ctx, &dto.ChatRequest{Message: "which has less THC? I want something sleepy", SessionID: first.SessionID})
	require.NoError(t, err)

	ids := itemIDs(second.RecommendedItems)
	require.GreaterOrEqual(t, len(ids), 2)
	assert.Equal(t, []int64{4, 1}, ids[:2])
	assert.NotContains(t, ids, int64(2))
	for _, it := range second.RecommendedItems {
		assert.Contains(t, it.Effects, "Sleepy")
	}
}

func TestRestoredSessionKeepsPreferencesAndLanguage(t *testing.T) {
	repo := memory.NewCatalogRepository(strainFixtures()...)
	rig := newRig(repo, repo)
	ctx := context.Background()

	first, err := rig.svc.Chat(ctx, &dto.ChatRequest{Message: "quiero algo para dormir"})
	require.NoError(t, err)
	assert.Equal(t, "es", first.Language)

	require.NoError(t, rig.svc.DeleteSession(ctx, first.SessionID))
	_, err = rig.svc.GetSession(ctx, first.SessionID)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	again, err := rig.svc.Chat(ctx, &dto.ChatRequest{Message: "Blue Dream", SessionID: first.SessionID})
	require.NoError(t, err)
	assert.True(t, again.IsRestored)
	assert.Equal(t, "es", again.Language)
	assert.NotEmpty(t, again.RecommendedItems)
}

func TestCatalogOutageIsReported(t *testing.T) {
	repo := memory.NewCatalogRepository(strainFixtures()...)
	rig := newRig(downStore{}, repo)

	_, err := rig.svc.Chat(context.Background(), &dto.ChatRequest{Message: "something sleepy"})
	assert.ErrorIs(t, err, catalog.ErrUnavailable)
}

func TestTurnEventPublished(t *testing.T) {
	repo := memory.NewCatalogRepository(strainFixtures()...)
	rig := newRig(repo, repo)

	resp, err := rig.svc.Chat(context.Background(), &dto.ChatRequest{Message: "something energetic"})
	require.NoError(t, err)

	select {
	case e := <-rig.publisher.events:
		assert.Equal(t, resp.SessionID, e.SessionID)
		assert.Equal(t, itemIDs(resp.RecommendedItems), e.ItemIDs)
		assert.Equal(t, "search", e.Action)
	case <-time.After(time.Second):
		t.Fatal("no event published")
	}
}

func TestRefreshTaxonomyCountsTerms(t *testing.T) {
	repo := memory.NewCatalogRepository(strainFixtures()...)
	rig := newRig(repo, repo)

	res, err := rig.svc.RefreshTaxonomy(context.Background())
	require.NoError(t, err)
	assert.Greater(t, res.Terms["en"], 0)
	assert.Equal(t, res.Terms["en"], res.Terms["es"])
	assert.Equal(t, int64(len(strainFixtures())), res.Strains)
}

func TestRememberPreferencesMovesValues(t *testing.T) {
	sess := store.NewConversationSession("s", time.Now())
	sess.RememberPreference(store.PrefDesiredEffect, "Energetic")

	rememberPreferences(sess, criteria.New(
		criteria.Filter{Field: criteria.FieldEffects, Expr: criteria.Contains{Values: []string{"Sleepy"}}, Priority: 2},
		criteria.Filter{Field: criteria.FieldEffects, Expr: criteria.NotContains{Values: []string{"Energetic"}}, Priority: 1},
	))

	assert.Equal(t, []string{"Sleepy"}, sess.Preferences[store.PrefDesiredEffect])
	assert.Equal(t, []string{"Energetic"}, sess.Preferences[store.PrefAvoidEffect])
}

func TestComposeTextDisclosesLastResort(t *testing.T) {
	out := executor.Outcome{Items: strainFixtures()[:1], Fallback: true, Stage: filter.StageLastResort}
	text := composeText("en", out, plan.ActionPlan{PrimaryAction: plan.ActionSearch}, nil)
	assert.Contains(t, text, "couldn't find an exact match")
	assert.Contains(t, text, "1. Northern Lights (Indica, THC 18%)")
}
