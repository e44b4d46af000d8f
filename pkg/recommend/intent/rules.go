package intent

import (
	"context"
	"strconv"
	"strings"

	"ai-budtender-be/pkg/recommend/criteria"
	"ai-budtender-be/pkg/recommend/plan"
	"ai-budtender-be/pkg/recommend/policy"
	"ai-budtender-be/pkg/recommend/vocab"
)

// RuleBasedAnalyzer reads messages with keyword tables in English and Spanish. It never fails.
type RuleBasedAnalyzer struct {
	lexicon map[string]lexEntry
}

type lexEntry struct {
	field criteria.Field
	value string
}

var lexiconTerms = map[criteria.Field][]string{
	criteria.FieldEffects: {
		"Relaxed", "Sleepy", "Happy", "Euphoric", "Uplifted", "Energetic", "Focused", "Creative",
		"Hungry", "Giggly", "Talkative", "Tingly", "Aroused",
	},
	criteria.FieldNegatives: {"Paranoid", "Anxious", "Dry Mouth", "Dry Eyes", "Dizzy", "Headache"},
	criteria.FieldHelpsWith: {
		"Pain", "Anxiety", "Insomnia", "Stress", "Depression", "Nausea", "Fatigue", "Lack of Appetite",
		"Inflammation", "Muscle Spasms", "Migraines", "PTSD", "Cramps",
	},
	criteria.FieldFlavors: {
		"Menthol", "Lemon", "Citrus", "Berry", "Sweet", "Earthy", "Pine", "Grape", "Spicy/Herbal", "Coffee",
		"Diesel", "Skunk", "Woody", "Tropical", "Orange", "Vanilla", "Blueberry", "Lime", "Mango", "Pepper",
		"Lavender", "Cheese",
	},
	criteria.FieldCategory: criteria.Categories,
}

// Conditions that become side effects when the user wants to avoid them.
var avoidedConditions = map[string]string{
	"anxiety": "Anxious",
	"stress":  "Anxious",
}

var (
	avoidMarkers = map[string]bool{
		"no": true, "not": true, "without": true, "avoid": true, "dont": true, "don": true, "never": true,
		"sin": true, "evitar": true, "evita": true, "nada": true, "nunca": true,
	}

	connectors = map[string]bool{"or": true, "and": true, "nor": true, "o": true, "y": true, "ni": true, "u": true, "e": true}

	greetingPhrases = []string{"hi", "hello", "hey", "hola", "buenas", "good morning", "good evening", "buenos dias", "buenas tardes", "buenas noches"}
	thanksPhrases   = []string{"thanks", "thank you", "thx", "gracias"}
	helpPhrases     = []string{"help", "ayuda", "what can you do", "que puedes hacer", "how does this work", "como funciona"}

	lowPotency  = []string{"low thc", "bajo thc", "bajo en thc", "poco thc", "mild", "suave", "light", "ligera", "ligero", "beginner", "principiante", "not too strong", "no muy fuerte"}
	highPotency = []string{"high thc", "alto thc", "alto en thc", "mucho thc", "strong", "potent", "fuerte", "potente"}
	highCBD     = []string{"high cbd", "alto cbd", "alto en cbd", "mucho cbd", "rich in cbd", "cbd rich"}
	lowCBD      = []string{"low cbd", "bajo cbd", "bajo en cbd", "poco cbd"}

	lessTHC = []string{"less thc", "lower thc", "least thc", "lowest thc", "menos thc", "weaker", "weakest", "mas suave", "less potent", "menos fuerte", "menos potente"}
	moreTHC = []string{"more thc", "higher thc", "highest thc", "mas thc", "stronger", "strongest", "mas fuerte", "more potent", "most potent", "mas potente"}
	lessCBD = []string{"less cbd", "lower cbd", "lowest cbd", "menos cbd"}
	moreCBD = []string{"more cbd", "higher cbd", "highest cbd", "most cbd", "mas cbd"}

	expandPhrases   = []string{"more options", "other options", "show more", "others", "another", "alternatives", "different", "something else", "otras", "otros", "otra", "mas opciones", "alternativas", "diferentes", "algo diferente", "similar", "like these", "parecidas", "como estas"}
	explainPhrases  = []string{"compare", "comparison", "difference", "differences", "tell me about", "tell me more", "details", "describe", "explain", "what about", "compara", "diferencia", "diferencias", "cuentame", "detalles", "explica", "que tal"}
	restrictPhrases = []string{"only", "just", "solo", "solamente", "of those", "of these", "de esas", "de esos", "filter", "filtra", "among them"}

	ordinals = map[string]int{
		"first": 1, "1st": 1, "primera": 1, "primero": 1,
		"second": 2, "2nd": 2, "segunda": 2, "segundo": 2,
		"third": 3, "3rd": 3, "tercera": 3, "tercero": 3,
		"fourth": 4, "4th": 4, "cuarta": 4, "cuarto": 4,
		"fifth": 5, "5th": 5, "quinta": 5, "quinto": 5,
	}
	lastWords   = map[string]bool{"last": true, "ultima": true, "ultimo": true}
	numberWords = map[string]bool{"number": true, "numero": true, "option": true, "opcion": true, "no.": true}
)

func NewRuleBasedAnalyzer() *RuleBasedAnalyzer {
	lex := make(map[string]lexEntry)
	for field, terms := range lexiconTerms {
		for _, t := range terms {
			lex[vocab.Fold(t)] = lexEntry{field: field, value: t}
		}
	}
	return &RuleBasedAnalyzer{lexicon: lex}
}

func (a *RuleBasedAnalyzer) Analyze(ctx context.Context, query string, sc SessionContext) (*Analysis, error) {
	sc.Options = sc.parseOptions()
	toks := vocab.Tokens(query)
	text := " " + strings.Join(toks, " ") + " "

	lang := policy.DetectLanguage(query)
	if lang == policy.LanguageEnglish && sc.Language == policy.LanguageSpanish && len(toks) <= 2 {
		lang = policy.LanguageSpanish
	}

	c := a.criteria(toks, text, sc)
	res := &Analysis{
		Intent:     IntentRecommendation,
		Language:   lang,
		Confidence: 0.3,
		Criteria:   c,
		Plan:       plan.ActionPlan{PrimaryAction: plan.ActionSearch, Reasoning: "keyword rules"},
	}
	if !c.IsEmpty() {
		res.Confidence = 0.6
	}

	if len(sc.Shown) > 0 && a.followUp(res, toks, text, sc) {
		res.Confidence = 0.6
		return finish(res, sc), nil
	}

	if sortSpec, ok := comparative(text); ok && len(sc.Shown) == 0 {
		level := "high"
		if sortSpec.Order == plan.OrderAsc {
			level = "low"
		}
		field := criteria.Field(sortSpec.Field)
		if r, ok := buckets(sc.Options, field).Range(level, sc.Options.Bounds[field]); ok && !res.Criteria.Has(field) {
			res.Criteria = res.Criteria.With(criteria.Filter{Field: field, Expr: r, Priority: criteria.PriorityCore})
		}
	}

	if res.Criteria.IsEmpty() {
		switch {
		case hasAny(text, thanksPhrases):
			res.Intent = IntentThanks
		case hasAny(text, helpPhrases):
			res.Intent = IntentHelp
		case len(toks) <= 5 && hasAny(text, greetingPhrases):
			res.Intent = IntentGreeting
		}
		if res.Intent.Conversational() {
			res.Confidence = 0.7
		}
	}
	return finish(res, sc), nil
}

// followUp recognizes actions on the shown list. It reports false for a fresh request.
func (a *RuleBasedAnalyzer) followUp(res *Analysis, toks []string, text string, sc SessionContext) bool {
	p := &res.Plan
	if sortSpec, ok := comparative(text); ok {
		p.PrimaryAction = plan.ActionSort
		p.Parameters.Sort = sortSpec
		res.Intent = IntentFollowUp
		return true
	}
	if sel, ok := selection(toks, text, sc); ok {
		p.PrimaryAction = plan.ActionSelect
		p.Parameters.Selection = sel
		res.Intent = IntentDetails
		return true
	}
	if hasAny(text, explainPhrases) {
		p.PrimaryAction = plan.ActionExplain
		res.Intent = IntentDetails
		return true
	}
	if hasAny(text, expandPhrases) {
		p.PrimaryAction = plan.ActionExpand
		return true
	}
	if hasAny(text, restrictPhrases) && !res.Criteria.IsEmpty() {
		p.PrimaryAction = plan.ActionFilter
		return true
	}
	return false
}

func (a *RuleBasedAnalyzer) criteria(toks []string, text string, sc SessionContext) criteria.Criteria {
	desired := map[criteria.Field][]string{}
	avoided := map[criteria.Field][]string{}
	var order []criteria.Field
	note := func(m map[criteria.Field][]string, f criteria.Field, v string) {
		if _, seen := desired[f]; !seen {
			if _, seen := avoided[f]; !seen {
				order = append(order, f)
			}
		}
		m[f] = append(m[f], v)
	}

	// An avoid marker covers the next term and any terms joined to it by connectors.
	avoiding, avoidedOne, filler := false, false, 0
	for i := 0; i < len(toks); {
		tok := toks[i]
		if avoidMarkers[tok] {
			avoiding, avoidedOne, filler = true, false, 0
			i++
			continue
		}
		if entry, n, ok := a.match(toks[i:]); ok {
			if avoiding {
				switch {
				case entry.field == criteria.FieldHelpsWith:
					if v, ok := avoidedConditions[vocab.Fold(entry.value)]; ok {
						note(avoided, criteria.FieldNegatives, v)
					}
				case entry.field != criteria.FieldCategory:
					note(avoided, entry.field, entry.value)
				}
				avoidedOne = true
			} else {
				note(desired, entry.field, entry.value)
			}
			i += n
			continue
		}
		if avoiding && !connectors[tok] {
			filler++
			if avoidedOne || filler > 4 {
				avoiding = false
			}
		}
		i++
	}

	var c criteria.Criteria
	for _, f := range order {
		if values := vocab.Dedupe(desired[f]); len(values) > 0 {
			if f == criteria.FieldCategory {
				c = c.With(criteria.Filter{Field: f, Expr: criteria.Eq{Value: values[0]}, Priority: criteria.PriorityCore})
			} else {
				expr := criteria.Contains{Values: values}
				c = c.With(criteria.Filter{Field: f, Expr: expr, Priority: criteria.DefaultPriority(f, expr)})
			}
		}
		if values := vocab.Dedupe(avoided[f]); len(values) > 0 {
			c = c.With(criteria.Filter{Field: f, Expr: criteria.NotContains{Values: values}, Priority: criteria.PrioritySafety})
		}
	}

	potency := func(field criteria.Field, low, high []string) {
		level := ""
		switch {
		case hasAny(text, low):
			level = "low"
		case hasAny(text, high):
			level = "high"
		}
		if level == "" {
			return
		}
		if r, ok := buckets(sc.Options, field).Range(level, sc.Options.Bounds[field]); ok {
			c = c.With(criteria.Filter{Field: field, Expr: r, Priority: criteria.PriorityCore})
		}
	}
	if _, isComparative := comparative(text); !isComparative {
		potency(criteria.FieldTHC, lowPotency, highPotency)
	}
	potency(criteria.FieldCBD, lowCBD, highCBD)
	return c
}

// match finds the longest lexicon phrase (up to three words) at the start of toks.
func (a *RuleBasedAnalyzer) match(toks []string) (lexEntry, int, bool) {
	for n := 3; n >= 1; n-- {
		if n > len(toks) {
			continue
		}
		if entry, ok := a.lexicon[vocab.Canon(strings.Join(toks[:n], " "))]; ok {
			return entry, n, true
		}
	}
	return lexEntry{}, 0, false
}

func comparative(text string) (plan.SortSpec, bool) {
	switch {
	case hasAny(text, lessTHC):
		return plan.SortSpec{Field: string(criteria.FieldTHC), Order: plan.OrderAsc}, true
	case hasAny(text, moreTHC):
		return plan.SortSpec{Field: string(criteria.FieldTHC), Order: plan.OrderDesc}, true
	case hasAny(text, lessCBD):
		return plan.SortSpec{Field: string(criteria.FieldCBD), Order: plan.OrderAsc}, true
	case hasAny(text, moreCBD):
		return plan.SortSpec{Field: string(criteria.FieldCBD), Order: plan.OrderDesc}, true
	}
	return plan.SortSpec{}, false
}

func selection(toks []string, text string, sc SessionContext) (plan.Selection, bool) {
	for i, tok := range toks {
		if idx, ok := ordinals[tok]; ok {
			return plan.Selection{Index: idx}, true
		}
		if lastWords[tok] {
			return plan.Selection{Index: len(sc.Shown)}, true
		}
		if numberWords[tok] && i+1 < len(toks) {
			if n, err := strconv.Atoi(toks[i+1]); err == nil && n > 0 {
				return plan.Selection{Index: n}, true
			}
		}
	}
	for _, s := range sc.Shown {
		name := strings.Join(vocab.Tokens(s.Name), " ")
		if len(name) >= 3 && strings.Contains(text, " "+name+" ") {
			return plan.Selection{Name: s.Name}, true
		}
	}
	return plan.Selection{}, false
}

func buckets(opts criteria.ParseOptions, field criteria.Field) criteria.Buckets {
	if field == criteria.FieldCBD {
		return opts.CBD
	}
	return opts.THC
}

// hasAny reports whether padded text contains any phrase as whole words.
func hasAny(text string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(text, " "+p+" ") {
			return true
		}
	}
	return false
}
