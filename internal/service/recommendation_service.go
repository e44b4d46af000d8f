package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ai-budtender-be/internal/dto"
	"ai-budtender-be/internal/pkg/logger"
	"ai-budtender-be/pkg/cache"
	"ai-budtender-be/pkg/events"
	"ai-budtender-be/pkg/recommend/catalog"
	"ai-budtender-be/pkg/recommend/criteria"
	"ai-budtender-be/pkg/recommend/executor"
	"ai-budtender-be/pkg/recommend/intent"
	"ai-budtender-be/pkg/recommend/plan"
	"ai-budtender-be/pkg/recommend/policy"
	"ai-budtender-be/pkg/recommend/ranking"
	"ai-budtender-be/pkg/recommend/session"
	"ai-budtender-be/pkg/recommend/taxonomy"
	"ai-budtender-be/pkg/store"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const recommendModule = "RECOMMENDATION"

var ErrSessionNotFound = errors.New("session not found")

type IRecommendationService interface {
	Chat(ctx context.Context, req *dto.ChatRequest) (*dto.RecommendResponse, error)
	GetSession(ctx context.Context, id string) (*dto.SessionResponse, error)
	DeleteSession(ctx context.Context, id string) error
	RefreshTaxonomy(ctx context.Context) (*dto.TaxonomyRefreshResponse, error)
}

// RecommendationDependencies groups the collaborators of one conversational turn.
type RecommendationDependencies struct {
	Sessions  *session.Manager
	Catalog   catalog.Store
	Taxonomy  *taxonomy.Cache
	Analyzer  intent.Analyzer
	Resolver  *policy.Resolver
	Executor  *executor.Executor
	Publisher IPublisherService
	Options   criteria.ParseOptions
	Log       logger.ILogger
}

type recommendationService struct {
	deps   RecommendationDependencies
	tracer trace.Tracer
	now    func() time.Time
}

func NewRecommendationService(deps RecommendationDependencies) IRecommendationService {
	return &recommendationService{
		deps:   deps,
		tracer: otel.Tracer("ai-budtender-be/recommendation"),
		now:    time.Now,
	}
}

// Chat runs one turn: analyze, resolve, execute, persist. Only a catalog outage with nothing to fall
// back to is returned as an error.
func (s *recommendationService) Chat(ctx context.Context, req *dto.ChatRequest) (*dto.RecommendResponse, error) {
	ctx, span := s.tracer.Start(ctx, "recommendation.chat")
	defer span.End()

	// Load session and the items shown last turn
	query := strings.TrimSpace(req.Message)
	sess := s.deps.Sessions.GetOrRestore(ctx, req.SessionID)
	lang := s.language(req.Language, query, sess)
	shown := s.shownItems(ctx, sess)
	tax := s.deps.Taxonomy.Get(ctx, lang)

	// Analyze query (LLM, falling back to keyword rules)
	analysis, err := s.deps.Analyzer.Analyze(ctx, query, intent.SessionContext{
		Language:    lang,
		Shown:       shown,
		Preferences: sess.Preferences,
		Options:     tax.ParseOptions(s.deps.Options),
	})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("analyze query: %w", err)
	}
	if req.Language == "" && !analysis.IsFallback {
		if l := policy.NormalizeLanguage(analysis.Language); l != "" {
			lang = l
		}
	}

	resp := &dto.RecommendResponse{
		SessionID:        sess.ID,
		Language:         lang,
		DetectedIntent:   string(analysis.Intent),
		QueryType:        string(analysis.QueryType),
		Confidence:       analysis.Confidence,
		IsRestored:       sess.IsRestored,
		IsFallback:       analysis.IsFallback,
		RecommendedItems: []dto.StrainDTO{},
		FiltersApplied:   []dto.FilterDTO{},
		Warnings:         []string{},
	}
	span.SetAttributes(
		attribute.String("session.id", sess.ID),
		attribute.String("language", lang),
		attribute.String("intent", resp.DetectedIntent),
		attribute.Bool("analyzer.fallback", analysis.IsFallback),
	)

	// Greetings, help and thanks skip the pipeline
	if analysis.QueryType == intent.QueryConversational {
		resp.ResponseText = conversationalText(lang, analysis)
		resp.QuickActions = quickActionsFor(lang, false)
		s.finishTurn(ctx, sess, query, lang, resp, string(analysis.Intent))
		s.publish(ctx, sess.ID, lang, analysis, executor.Outcome{})
		return resp, nil
	}

	// Resolve conflicts and check the shown items still fit
	decision := s.deps.Resolver.Resolve(query, lang, analysis.Criteria, shown)
	p := analysis.Plan
	p.Parameters.Filters = decision.Criteria
	if decision.MustExpand && operatesOnContext(p.PrimaryAction) {
		s.deps.Log.Info(recommendModule, "Context does not fit the request, searching instead", map[string]interface{}{
			"action": p.PrimaryAction, "effect_coverage": decision.Match.EffectCoverage,
			"category_match": decision.Match.CategoryMatch,
		})
		p.PrimaryAction = plan.ActionSearch
	}

	// Execute plan
	out, err := s.deps.Executor.Execute(ctx, executor.Request{
		Plan:      p,
		InContext: shown,
		Query:     query,
		Language:  lang,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "catalog unavailable")
		return nil, err
	}
	span.SetAttributes(
		attribute.String("action", string(out.Action)),
		attribute.String("stage", string(out.Stage)),
		attribute.Int("items", len(out.Items)),
		attribute.Bool("catalog.fallback", out.Fallback),
	)

	// Compose response
	notices := append(append([]string(nil), decision.Conflicts...), decision.Warnings...)
	resp.Warnings = append(resp.Warnings, notices...)
	resp.FiltersApplied = filterDTOs(decision.Criteria)
	resp.RecommendedItems = strainDTOs(out.Items)
	resp.ResponseText = composeText(lang, out, p, notices)
	resp.QuickActions = quickActionsFor(lang, len(out.Items) > 0)

	// Persist session and publish the turn
	rememberPreferences(sess, decision.Criteria)
	if changesContext(out) {
		sess.AppendRecommendation(store.IDs(out.Items))
	}
	s.finishTurn(ctx, sess, query, lang, resp, topicOf(decision.Criteria, analysis.Intent))
	s.publish(ctx, sess.ID, lang, analysis, out)

	s.deps.Log.Info(recommendModule, "Turn served", map[string]interface{}{
		"session_id": sess.ID,
		"action":     out.Action,
		"stage":      out.Stage,
		"items":      len(out.Items),
		"escalated":  out.Escalated,
		"fallback":   out.Fallback,
	})
	return resp, nil
}

// language prefers an explicit request language, then keyword detection, then the session's language.
func (s *recommendationService) language(requested, query string, sess *store.ConversationSession) string {
	if l := policy.NormalizeLanguage(requested); l != "" {
		return l
	}
	return policy.DetectLanguageOr(query, sess.Language)
}

// shownItems reloads the last shown group in its original order. Failures yield no context.
func (s *recommendationService) shownItems(ctx context.Context, sess *store.ConversationSession) []store.Strain {
	ids := sess.LastGroup()
	if len(ids) == 0 {
		return nil
	}
	items, err := s.deps.Catalog.FindByIDs(ctx, ids)
	if err != nil {
		s.deps.Log.Warn(recommendModule, "Could not reload shown strains", map[string]interface{}{
			"session_id": sess.ID, "error": err.Error(),
		})
		return nil
	}
	return store.OrderByIDs(items, ids)
}

func (s *recommendationService) finishTurn(ctx context.Context, sess *store.ConversationSession, query, lang string, resp *dto.RecommendResponse, topic string) {
	sess.Language = lang
	sess.PushTopic(topic)
	sess.AppendTurn(store.Turn{Query: query, Response: resp.ResponseText, Topic: topic, At: s.now()})
	s.deps.Sessions.Save(ctx, sess)
}

func (s *recommendationService) publish(ctx context.Context, sessionID, lang string, a *intent.Analysis, out executor.Outcome) {
	if s.deps.Publisher == nil {
		return
	}
	go s.deps.Publisher.PublishTurn(context.WithoutCancel(ctx), events.RecommendationServed{
		SessionID:  sessionID,
		Language:   lang,
		Intent:     string(a.Intent),
		Action:     string(out.Action),
		Stage:      string(out.Stage),
		ItemIDs:    store.IDs(out.Items),
		IsFallback: a.IsFallback || out.Fallback,
		OccurredAt: s.now(),
	})
}

// operatesOnContext reports actions that only reorder or narrow the shown items. Sort parameters are
// kept when such an action becomes a search.
func operatesOnContext(a plan.Action) bool {
	return a == plan.ActionSort || a == plan.ActionFilter
}

func changesContext(out executor.Outcome) bool {
	if len(out.Items) == 0 {
		return false
	}
	switch out.Action {
	case plan.ActionSelect, plan.ActionExplain:
		return out.Escalated
	}
	return true
}

// rememberPreferences folds the turn's desired and avoided values into the session. A value moves
// between the desired and avoid lists when the user changes their mind.
func rememberPreferences(sess *store.ConversationSession, c criteria.Criteria) {
	desired := map[string][]string{
		store.PrefDesiredEffect: c.Desired(criteria.FieldEffects),
		store.PrefMedical:       c.Desired(criteria.FieldHelpsWith),
		store.PrefFlavor:        c.Desired(criteria.FieldFlavors),
	}
	for key, values := range desired {
		sess.RememberPreference(key, values...)
	}
	for _, v := range desired[store.PrefDesiredEffect] {
		sess.ForgetPreference(store.PrefAvoidEffect, v)
	}

	avoided := append(c.Avoided(criteria.FieldEffects), c.Avoided(criteria.FieldNegatives)...)
	sess.RememberPreference(store.PrefAvoidEffect, avoided...)
	for _, v := range avoided {
		sess.ForgetPreference(store.PrefDesiredEffect, v)
	}
}

func topicOf(c criteria.Criteria, i intent.Intent) string {
	for _, field := range []criteria.Field{criteria.FieldHelpsWith, criteria.FieldEffects, criteria.FieldFlavors} {
		if values := c.Desired(field); len(values) > 0 {
			return strings.ToLower(values[0])
		}
	}
	if cat := c.Category(); cat != "" {
		return strings.ToLower(cat)
	}
	return string(i)
}

func filterDTOs(c criteria.Criteria) []dto.FilterDTO {
	views := c.Describe()
	out := make([]dto.FilterDTO, len(views))
	for i, v := range views {
		out[i] = dto.FilterDTO{Field: v.Field, Operator: v.Operator, Value: v.Value, Priority: v.Priority}
	}
	return out
}

func strainDTOs(items []store.Strain) []dto.StrainDTO {
	out := make([]dto.StrainDTO, len(items))
	for i, s := range items {
		out[i] = dto.StrainDTO{
			Id:          s.ID,
			Name:        s.Name,
			Category:    s.Category,
			ThcLevel:    numericPtr(s.THC),
			CbdLevel:    numericPtr(s.CBD),
			Effects:     nonNil(s.Effects),
			HelpsWith:   nonNil(s.MedicalUses),
			Negatives:   nonNil(s.Negatives),
			Flavors:     nonNil(s.Flavors),
			Terpenes:    s.Terpenes,
			Description: s.Description,
		}
	}
	return out
}

func numericPtr(raw string) *float64 {
	if v, ok := ranking.CleanNumeric(raw); ok {
		return &v
	}
	return nil
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

func (s *recommendationService) GetSession(ctx context.Context, id string) (*dto.SessionResponse, error) {
	sess, err := s.deps.Sessions.Get(ctx, id)
	if errors.Is(err, cache.ErrCacheMiss) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}

	turns := sess.ConversationLog
	if len(turns) > 10 {
		turns = turns[len(turns)-10:]
	}
	recent := make([]dto.TurnDTO, len(turns))
	for i, t := range turns {
		recent[i] = dto.TurnDTO{Query: t.Query, Response: t.Response, Topic: t.Topic, At: t.At}
	}
	lastShown := sess.LastGroup()
	if lastShown == nil {
		lastShown = []int64{}
	}
	prefs := sess.Preferences
	if prefs == nil {
		prefs = map[string][]string{}
	}
	return &dto.SessionResponse{
		SessionID:     sess.ID,
		Language:      sess.Language,
		CreatedAt:     sess.CreatedAt,
		LastActivity:  sess.LastActivity,
		CurrentTopic:  sess.CurrentTopic,
		LastShown:     lastShown,
		HistoryGroups: len(sess.RecommendationHistory),
		Preferences:   prefs,
		RecentTurns:   recent,
	}, nil
}

func (s *recommendationService) DeleteSession(ctx context.Context, id string) error {
	return s.deps.Sessions.Delete(ctx, id)
}

// RefreshTaxonomy drops cached vocabularies and reloads them for every supported language.
func (s *recommendationService) RefreshTaxonomy(ctx context.Context) (*dto.TaxonomyRefreshResponse, error) {
	s.deps.Taxonomy.Invalidate()
	res := &dto.TaxonomyRefreshResponse{Terms: map[string]int{}}
	for _, lang := range []string{policy.LanguageEnglish, policy.LanguageSpanish} {
		t := s.deps.Taxonomy.Get(ctx, lang)
		n := 0
		for _, terms := range t.Terms {
			n += len(terms)
		}
		res.Terms[lang] = n
		res.Strains = t.Strains
		res.LoadedAt = t.LoadedAt
	}
	return res, nil
}
