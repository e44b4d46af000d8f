package intent

import (
	"context"
	"errors"
	"testing"
	"time"

	"ai-budtender-be/internal/pkg/logger"
	"ai-budtender-be/pkg/llm"
	"ai-budtender-be/pkg/recommend/criteria"
	"ai-budtender-be/pkg/recommend/plan"
	"ai-budtender-be/pkg/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var shownItems = []store.Strain{
	{ID: 5, Name: "Sour Diesel", THC: "24%"},
	{ID: 7, Name: "Harlequin", THC: "12%"},
	{ID: 9, Name: "Jack Herer", THC: "17%"},
}

func analyze(t *testing.T, query string, sc SessionContext) *Analysis {
	t.Helper()
	res, err := NewRuleBasedAnalyzer().Analyze(context.Background(), query, sc)
	require.NoError(t, err)
	return res
}

func TestRulesExtractCriteriaAndAvoidScope(t *testing.T) {
	res := analyze(t, "I need something for insomnia without paranoia or dry mouth, maybe citrus", SessionContext{})

	assert.Equal(t, []string{"Insomnia"}, res.Criteria.Desired(criteria.FieldHelpsWith))
	assert.Equal(t, []string{"Paranoid", "Dry Mouth"}, res.Criteria.Avoided(criteria.FieldNegatives))
	assert.Equal(t, []string{"Citrus"}, res.Criteria.Desired(criteria.FieldFlavors))
	assert.Equal(t, plan.ActionSearch, res.Plan.PrimaryAction)
	assert.Equal(t, plan.ScoringWeightedPriority, res.Plan.Parameters.ScoringMethod)
	assert.Equal(t, QueryNewSearch, res.QueryType)
	assert.Equal(t, "en", res.Language)
}

func TestRulesSpanish(t *testing.T) {
	res := analyze(t, "Quiero una indica para dormir con sabor a menta, sin ansiedad", SessionContext{})

	assert.Equal(t, "es", res.Language)
	assert.Equal(t, "Indica", res.Criteria.Category())
	assert.Equal(t, []string{"Sleepy"}, res.Criteria.Desired(criteria.FieldEffects))
	assert.Equal(t, []string{"Menthol"}, res.Criteria.Desired(criteria.FieldFlavors))
	assert.Equal(t, []string{"Anxious"}, res.Criteria.Avoided(criteria.FieldNegatives))
}

func TestRulesPotencyWords(t *testing.T) {
	res := analyze(t, "something strong and energetic", SessionContext{})
	f, ok := res.Criteria.Numeric(criteria.FieldTHC)
	require.True(t, ok)
	assert.Equal(t, criteria.Range{Min: criteria.Float(20)}, f.Expr)

	res = analyze(t, "a mild hybrid, not too strong", SessionContext{})
	f, ok = res.Criteria.Numeric(criteria.FieldTHC)
	require.True(t, ok)
	assert.Equal(t, criteria.Range{Max: criteria.Float(12)}, f.Expr)
}

func TestRulesFollowUps(t *testing.T) {
	sc := SessionContext{Shown: shownItems}

	res := analyze(t, "Which has less THC?", sc)
	assert.Equal(t, plan.ActionSort, res.Plan.PrimaryAction)
	assert.Equal(t, plan.SortSpec{Field: "thc", Order: plan.OrderAsc}, res.Plan.Parameters.Sort)
	assert.Equal(t, QueryFollowUp, res.QueryType)
	assert.Equal(t, IntentFollowUp, res.Intent)

	res = analyze(t, "tell me about the second one", sc)
	assert.Equal(t, plan.ActionSelect, res.Plan.PrimaryAction)
	assert.Equal(t, 2, res.Plan.Parameters.Selection.Index)
	assert.Equal(t, IntentDetails, res.Intent)

	res = analyze(t, "what about jack herer?", sc)
	assert.Equal(t, plan.Selection{Name: "Jack Herer"}, res.Plan.Parameters.Selection)

	res = analyze(t, "show me other options", sc)
	assert.Equal(t, plan.ActionExpand, res.Plan.PrimaryAction)

	res = analyze(t, "only the ones with berry flavor", sc)
	assert.Equal(t, plan.ActionFilter, res.Plan.PrimaryAction)
	assert.Equal(t, []string{"Berry"}, res.Criteria.Desired(criteria.FieldFlavors))
}

func TestRulesComparativeWithoutContextBecomesPotency(t *testing.T) {
	res := analyze(t, "which has less THC?", SessionContext{})
	assert.Equal(t, plan.ActionSearch, res.Plan.PrimaryAction)
	f, ok := res.Criteria.Numeric(criteria.FieldTHC)
	require.True(t, ok)
	assert.Equal(t, criteria.Range{Max: criteria.Float(12)}, f.Expr)
}

func TestRulesConversational(t *testing.T) {
	cases := map[string]Intent{
		"hola":                   IntentGreeting,
		"Hey there!":             IntentGreeting,
		"thanks a lot":           IntentThanks,
		"what can you do?":       IntentHelp,
		"hello, I need to sleep": IntentRecommendation,
	}
	for q, want := range cases {
		res := analyze(t, q, SessionContext{})
		assert.Equal(t, want, res.Intent, q)
	}
	assert.Equal(t, QueryConversational, analyze(t, "hola", SessionContext{}).QueryType)
	assert.Equal(t, "es", analyze(t, "hola", SessionContext{}).Language)
}

type fakeLLM struct {
	reply string
	err   error
	delay time.Duration
}

func (f fakeLLM) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	return f.Generate(ctx, "", options...)
}

func (f fakeLLM) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.reply, f.err
}

func TestLLMAnalyzerParsesStructuredReply(t *testing.T) {
	reply := "Sure! ```json\n" + `{
		"intent": "follow_up",
		"is_follow_up": true,
		"language": "es",
		"confidence": 0.92,
		"action": "refine",
		"filters": [
			{"field": "effects", "operator": "contains", "value": ["Relaxed"], "priority": 2},
			{"field": "colour", "operator": "eq", "value": "green"},
			{"field": "thc", "operator": "gte", "value": -5}
		],
		"sort": {"field": "thc", "order": "DESC"}
	}` + "\n```"
	a := NewLLMAnalyzer(fakeLLM{reply: reply}, logger.NewNopLogger())

	res, err := a.Analyze(context.Background(), "solo las relajantes", SessionContext{Shown: shownItems})
	require.NoError(t, err)

	assert.Equal(t, plan.ActionFilter, res.Plan.PrimaryAction)
	assert.Equal(t, "es", res.Language)
	assert.Equal(t, IntentFollowUp, res.Intent)
	assert.Equal(t, []string{"Relaxed"}, res.Criteria.Desired(criteria.FieldEffects))
	assert.Len(t, res.Rejected, 2)
	assert.Equal(t, plan.SortSpec{Field: "thc", Order: plan.OrderDesc}, res.Plan.Parameters.Sort)
	assert.False(t, res.IsFallback)
}

func TestLLMAnalyzerContextActionWithoutContextSearches(t *testing.T) {
	a := NewLLMAnalyzer(fakeLLM{reply: `{"intent":"recommendation","action":"sort","sort":{"field":"thc","order":"asc"}}`}, logger.NewNopLogger())
	res, err := a.Analyze(context.Background(), "lowest thc", SessionContext{})
	require.NoError(t, err)
	assert.Equal(t, plan.ActionSearch, res.Plan.PrimaryAction)
	assert.Equal(t, QueryNewSearch, res.QueryType)
}

func TestFallbackAnalyzer(t *testing.T) {
	rules := NewRuleBasedAnalyzer()
	log := logger.NewNopLogger()

	for name, primary := range map[string]llm.LLMProvider{
		"error":     fakeLLM{err: errors.New("503")},
		"malformed": fakeLLM{reply: "I think you want something relaxing"},
		"timeout":   fakeLLM{reply: `{"intent":"greeting"}`, delay: time.Second},
	} {
		a := NewFallbackAnalyzer(NewLLMAnalyzer(primary, log), rules, 50*time.Millisecond, log)
		res, err := a.Analyze(context.Background(), "something relaxing", SessionContext{})
		require.NoError(t, err, name)
		assert.True(t, res.IsFallback, name)
		assert.Equal(t, []string{"Relaxed"}, res.Criteria.Desired(criteria.FieldEffects), name)
	}

	a := NewFallbackAnalyzer(NewLLMAnalyzer(fakeLLM{reply: `{"intent":"greeting","confidence":0.99}`}, log), rules, time.Second, log)
	res, err := a.Analyze(context.Background(), "hi", SessionContext{})
	require.NoError(t, err)
	assert.False(t, res.IsFallback)
	assert.Equal(t, IntentGreeting, res.Intent)
}
