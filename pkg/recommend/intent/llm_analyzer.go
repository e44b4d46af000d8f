package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"ai-budtender-be/internal/constant"
	"ai-budtender-be/internal/pkg/logger"
	"ai-budtender-be/pkg/llm"
	"ai-budtender-be/pkg/recommend/criteria"
	"ai-budtender-be/pkg/recommend/plan"
	"ai-budtender-be/pkg/recommend/policy"
)

// LLMAnalyzer asks a language model for a structured reading of the message.
type LLMAnalyzer struct {
	provider llm.LLMProvider
	log      logger.ILogger
}

func NewLLMAnalyzer(provider llm.LLMProvider, log logger.ILogger) *LLMAnalyzer {
	return &LLMAnalyzer{provider: provider, log: log}
}

type llmResponse struct {
	Intent        string               `json:"intent"`
	IsFollowUp    bool                 `json:"is_follow_up"`
	Language      string               `json:"language"`
	Confidence    float64              `json:"confidence"`
	Action        string               `json:"action"`
	ScoringMethod string               `json:"scoring_method"`
	Filters       []criteria.RawFilter `json:"filters"`
	Sort          *plan.SortSpec       `json:"sort"`
	Selection     *plan.Selection      `json:"selection"`
	Limit         int                  `json:"limit"`
	Reasoning     string               `json:"reasoning"`
	Response      string               `json:"natural_response"`
	ItemName      string               `json:"specific_item_name"`
}

func (a *LLMAnalyzer) Analyze(ctx context.Context, query string, sc SessionContext) (*Analysis, error) {
	prompt := fmt.Sprintf(constant.QueryAnalyzerPromptV1, languageOrUnknown(sc.Language), describeShown(sc), describePreferences(sc), query)

	response, err := a.provider.Generate(ctx, prompt, llm.WithTemperature(0.0), llm.WithJSON())
	if err != nil {
		return nil, fmt.Errorf("analyzer request: %w", err)
	}

	jsonContent := extractJSON(response)
	if jsonContent == "" {
		return nil, fmt.Errorf("no JSON found in analyzer response")
	}
	var raw llmResponse
	if err := json.Unmarshal([]byte(jsonContent), &raw); err != nil {
		return nil, fmt.Errorf("analyzer JSON unmarshal failed: %w", err)
	}

	c, rejected := criteria.ParseFilters(raw.Filters, sc.parseOptions())
	if len(rejected) > 0 {
		a.log.Debug(module, "Discarded analyzer filters", map[string]interface{}{"rejected": rejected})
	}

	lang := policy.NormalizeLanguage(raw.Language)
	if lang == "" {
		lang = policy.DetectLanguage(query)
	}

	res := &Analysis{
		Intent:     ParseIntent(strings.ToLower(strings.TrimSpace(raw.Intent))),
		Language:   lang,
		Confidence: raw.Confidence,
		Criteria:   c,
		Rejected:   rejected,
		Response:   strings.TrimSpace(raw.Response),
		Plan: plan.ActionPlan{
			PrimaryAction: plan.ParseAction(raw.Action),
			Reasoning:     raw.Reasoning,
			Parameters: plan.Parameters{
				ScoringMethod: parseScoring(raw.ScoringMethod),
				Limit:         raw.Limit,
			},
		},
	}
	if raw.Sort != nil && raw.Sort.Field != "" {
		res.Plan.Parameters.Sort = plan.SortSpec{Field: raw.Sort.Field, Order: plan.ParseOrder(string(raw.Sort.Order))}
	}
	if raw.Selection != nil {
		res.Plan.Parameters.Selection = *raw.Selection
	}
	if res.Plan.Parameters.Selection.IsZero() && raw.ItemName != "" {
		res.Plan.Parameters.Selection.Name = raw.ItemName
	}
	if raw.IsFollowUp && res.Plan.PrimaryAction == plan.ActionSearch && len(sc.Shown) > 0 && !c.IsEmpty() {
		res.Plan.PrimaryAction = plan.ActionFilter
	}
	return finish(res, sc), nil
}

func parseScoring(s string) plan.ScoringMethod {
	switch plan.ScoringMethod(strings.ToLower(strings.TrimSpace(s))) {
	case plan.ScoringWeightedPriority:
		return plan.ScoringWeightedPriority
	case plan.ScoringSimpleSort:
		return plan.ScoringSimpleSort
	}
	return ""
}

func languageOrUnknown(lang string) string {
	if lang == "" {
		return "unknown"
	}
	return lang
}

func describeShown(sc SessionContext) string {
	if len(sc.Shown) == 0 {
		return "  (none)"
	}
	var b strings.Builder
	for i, s := range sc.Shown {
		b.WriteString(fmt.Sprintf("  %d. %s (%s, THC %s, CBD %s)\n", i+1, s.Name, s.Category, s.THC, s.CBD))
	}
	return strings.TrimRight(b.String(), "\n")
}

func describePreferences(sc SessionContext) string {
	if len(sc.Preferences) == 0 {
		return "none"
	}
	keys := make([]string, 0, len(sc.Preferences))
	for k := range sc.Preferences {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+strings.Join(sc.Preferences[k], ", "))
	}
	return strings.Join(parts, "; ")
}

func extractJSON(response string) string {
	startIdx := strings.Index(response, "{")
	endIdx := strings.LastIndex(response, "}")

	if startIdx == -1 || endIdx == -1 || endIdx <= startIdx {
		return ""
	}

	return response[startIdx : endIdx+1]
}
