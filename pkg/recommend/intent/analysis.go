// Package intent interprets a user message: what they want, which criteria apply and which action to run.
package intent

import (
	"context"
	"fmt"
	"time"

	"ai-budtender-be/internal/pkg/logger"
	"ai-budtender-be/pkg/recommend/criteria"
	"ai-budtender-be/pkg/recommend/plan"
	"ai-budtender-be/pkg/store"
)

const module = "QUERY_ANALYZER"

type Intent string

const (
	IntentGreeting       Intent = "greeting"
	IntentHelp           Intent = "help"
	IntentThanks         Intent = "thanks"
	IntentRecommendation Intent = "recommendation"
	IntentFollowUp       Intent = "follow_up"
	IntentDetails        Intent = "details"
)

// ParseIntent returns the intent named by s, or IntentRecommendation.
func ParseIntent(s string) Intent {
	switch i := Intent(s); i {
	case IntentGreeting, IntentHelp, IntentThanks, IntentRecommendation, IntentFollowUp, IntentDetails:
		return i
	}
	return IntentRecommendation
}

// Conversational intents are answered without recommending anything.
func (i Intent) Conversational() bool {
	return i == IntentGreeting || i == IntentHelp || i == IntentThanks
}

type QueryType string

const (
	QueryNewSearch      QueryType = "new_search"
	QueryFollowUp       QueryType = "follow_up"
	QueryConversational QueryType = "conversational"
)

// SessionContext is what an analyzer may know about the conversation.
type SessionContext struct {
	Language    string
	Shown       []store.Strain
	Preferences map[string][]string
	Options     criteria.ParseOptions
}

// parseOptions falls back to the default potency buckets when none were configured.
func (sc SessionContext) parseOptions() criteria.ParseOptions {
	opts := sc.Options
	def := criteria.DefaultParseOptions()
	if opts.THC == (criteria.Buckets{}) {
		opts.THC = def.THC
	}
	if opts.CBD == (criteria.Buckets{}) {
		opts.CBD = def.CBD
	}
	return opts
}

type Analysis struct {
	Intent     Intent
	QueryType  QueryType
	Language   string
	Confidence float64
	Criteria   criteria.Criteria
	Rejected   []criteria.Rejection
	Plan       plan.ActionPlan
	// Response is the analyzer's own wording for conversational turns. Empty from the rules.
	Response   string
	IsFallback bool
}

type Analyzer interface {
	Analyze(ctx context.Context, query string, sc SessionContext) (*Analysis, error)
}

// FallbackAnalyzer bounds the primary analyzer by a timeout and answers from the fallback on any failure.
type FallbackAnalyzer struct {
	primary  Analyzer
	fallback Analyzer
	timeout  time.Duration
	log      logger.ILogger
}

func NewFallbackAnalyzer(primary, fallback Analyzer, timeout time.Duration, log logger.ILogger) *FallbackAnalyzer {
	return &FallbackAnalyzer{primary: primary, fallback: fallback, timeout: timeout, log: log}
}

func (a *FallbackAnalyzer) Analyze(ctx context.Context, query string, sc SessionContext) (*Analysis, error) {
	if a.primary != nil {
		res, err := a.callPrimary(ctx, query, sc)
		if err == nil && res != nil {
			return res, nil
		}
		a.log.Warn(module, "Analyzer unavailable, using rules", map[string]interface{}{"error": fmt.Sprint(err)})
	}

	res, err := a.fallback.Analyze(ctx, query, sc)
	if err != nil {
		return nil, err
	}
	res.IsFallback = true
	return res, nil
}

func (a *FallbackAnalyzer) callPrimary(ctx context.Context, query string, sc SessionContext) (res *Analysis, err error) {
	defer func() {
		if r := recover(); r != nil {
			res, err = nil, fmt.Errorf("analyzer panic: %v", r)
		}
	}()
	actx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	return a.primary.Analyze(actx, query, sc)
}

// finish fills the derived fields shared by every analyzer.
func finish(a *Analysis, sc SessionContext) *Analysis {
	if a.Plan.PrimaryAction.NeedsContext() && len(sc.Shown) == 0 {
		a.Plan.PrimaryAction = plan.ActionSearch
	}
	a.Plan.Parameters.Filters = a.Criteria
	if a.Plan.Parameters.ScoringMethod == "" && len(a.Criteria.MedicalFilters()) > 0 {
		a.Plan.Parameters.ScoringMethod = plan.ScoringWeightedPriority
	}

	switch {
	case a.Intent.Conversational() && a.Criteria.IsEmpty():
		a.QueryType = QueryConversational
	case a.Plan.PrimaryAction.NeedsContext() || a.Plan.PrimaryAction == plan.ActionExpand:
		a.QueryType = QueryFollowUp
		if a.Intent == IntentRecommendation || a.Intent.Conversational() {
			a.Intent = IntentFollowUp
		}
	default:
		a.QueryType = QueryNewSearch
		if a.Intent.Conversational() {
			a.Intent = IntentRecommendation
		}
	}
	if a.Confidence < 0 {
		a.Confidence = 0
	}
	if a.Confidence > 1 {
		a.Confidence = 1
	}
	return a
}
