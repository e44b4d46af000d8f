package service

import (
	"fmt"
	"strings"

	"ai-budtender-be/internal/dto"
	"ai-budtender-be/pkg/recommend/executor"
	"ai-budtender-be/pkg/recommend/intent"
	"ai-budtender-be/pkg/recommend/plan"
	"ai-budtender-be/pkg/recommend/policy"
	"ai-budtender-be/pkg/recommend/ranking"
	"ai-budtender-be/pkg/store"
)

type replyKey string

const (
	replyGreeting  replyKey = "greeting"
	replyHelp      replyKey = "help"
	replyThanks    replyKey = "thanks"
	replySearch    replyKey = "search"
	replySort      replyKey = "sort"
	replyFilter    replyKey = "filter"
	replyExpand    replyKey = "expand"
	replyExplain   replyKey = "explain"
	replySelect    replyKey = "select"
	replyEscalated replyKey = "escalated"
	replyFallback  replyKey = "fallback"
	replyEmpty     replyKey = "empty"
)

var replies = map[string]map[replyKey]string{
	policy.LanguageEnglish: {
		replyGreeting:  "Hi! Tell me how you want to feel, any flavors you like or anything you want to avoid, and I'll suggest some strains.",
		replyHelp:      "Describe the effects you're after (relaxed, focused, sleepy...), a medical need, a flavor or a THC level. After I show results you can ask which has less THC, narrow them down or ask for more.",
		replyThanks:    "You're welcome! Ask me anytime you want more suggestions.",
		replySearch:    "Here are %d strains that match what you're looking for:",
		replySort:      "Here they are sorted by %s (%s):",
		replyFilter:    "I narrowed the list down to %d:",
		replyExpand:    "Here are more options:",
		replyExplain:   "Here's how they compare:",
		replySelect:    "Here's %s:",
		replyEscalated: "None of the strains I showed fit that, so I searched the whole catalog:",
		replyFallback:  "I couldn't find an exact match, so here are some picks from the catalog you might like.",
		replyEmpty:     "I couldn't find any strains right now. Try describing it differently.",
	},
	policy.LanguageSpanish: {
		replyGreeting:  "¡Hola! Cuéntame cómo te quieres sentir, qué sabores te gustan o qué quieres evitar y te sugiero algunas cepas.",
		replyHelp:      "Describe los efectos que buscas (relajado, concentrado, con sueño...), una necesidad médica, un sabor o un nivel de THC. Después puedes preguntar cuál tiene menos THC, filtrar los resultados o pedir más.",
		replyThanks:    "¡De nada! Pregúntame cuando quieras más sugerencias.",
		replySearch:    "Aquí tienes %d cepas que encajan con lo que buscas:",
		replySort:      "Aquí están ordenadas por %s (%s):",
		replyFilter:    "Reduje la lista a %d:",
		replyExpand:    "Aquí tienes más opciones:",
		replyExplain:   "Así se comparan:",
		replySelect:    "Esta es %s:",
		replyEscalated: "Ninguna de las cepas que te mostré encaja, así que busqué en todo el catálogo:",
		replyFallback:  "No encontré una coincidencia exacta, así que aquí tienes algunas opciones del catálogo que te podrían gustar.",
		replyEmpty:     "No encontré cepas ahora mismo. Intenta describirlo de otra forma.",
	},
}

func reply(lang string, key replyKey, args ...interface{}) string {
	table, ok := replies[lang]
	if !ok {
		table = replies[policy.LanguageEnglish]
	}
	if len(args) == 0 {
		return table[key]
	}
	return fmt.Sprintf(table[key], args...)
}

var orderNames = map[string]map[plan.Order]string{
	policy.LanguageEnglish: {plan.OrderAsc: "lowest first", plan.OrderDesc: "highest first"},
	policy.LanguageSpanish: {plan.OrderAsc: "de menor a mayor", plan.OrderDesc: "de mayor a menor"},
}

func conversationalText(lang string, a *intent.Analysis) string {
	if a.Response != "" && !a.IsFallback {
		return a.Response
	}
	switch a.Intent {
	case intent.IntentHelp:
		return reply(lang, replyHelp)
	case intent.IntentThanks:
		return reply(lang, replyThanks)
	}
	return reply(lang, replyGreeting)
}

// composeText renders the reply of a turn that produced items.
func composeText(lang string, out executor.Outcome, p plan.ActionPlan, notices []string) string {
	var b strings.Builder
	switch {
	case len(out.Items) == 0:
		b.WriteString(reply(lang, replyEmpty))
	case out.Fallback:
		b.WriteString(reply(lang, replyFallback))
	case out.Escalated:
		b.WriteString(reply(lang, replyEscalated))
	default:
		b.WriteString(heading(lang, out, p))
	}

	detailed := out.Action == plan.ActionSelect || out.Action == plan.ActionExplain
	for i, s := range out.Items {
		b.WriteString("\n")
		b.WriteString(itemLine(i+1, s, detailed))
	}
	for _, n := range notices {
		b.WriteString("\n\n")
		b.WriteString(n)
	}
	return b.String()
}

func heading(lang string, out executor.Outcome, p plan.ActionPlan) string {
	switch out.Action {
	case plan.ActionSort:
		order := p.Parameters.Sort.Order
		if order == "" {
			order = plan.OrderAsc
		}
		names, ok := orderNames[lang]
		if !ok {
			names = orderNames[policy.LanguageEnglish]
		}
		return reply(lang, replySort, strings.ToUpper(p.Parameters.Sort.Field), names[order])
	case plan.ActionFilter:
		return reply(lang, replyFilter, len(out.Items))
	case plan.ActionExpand:
		return reply(lang, replyExpand)
	case plan.ActionExplain:
		return reply(lang, replyExplain)
	case plan.ActionSelect:
		return reply(lang, replySelect, out.Items[0].Name)
	}
	return reply(lang, replySearch, len(out.Items))
}

func itemLine(n int, s store.Strain, detailed bool) string {
	var facts []string
	if s.Category != "" {
		facts = append(facts, s.Category)
	}
	if v, ok := ranking.CleanNumeric(s.THC); ok {
		facts = append(facts, fmt.Sprintf("THC %s%%", trimFloat(v)))
	}
	if v, ok := ranking.CleanNumeric(s.CBD); ok {
		facts = append(facts, fmt.Sprintf("CBD %s%%", trimFloat(v)))
	}
	line := fmt.Sprintf("%d. %s", n, s.Name)
	if len(facts) > 0 {
		line += " (" + strings.Join(facts, ", ") + ")"
	}
	if len(s.Effects) > 0 {
		line += ": " + strings.Join(firstN(s.Effects, 3), ", ")
	}
	if detailed {
		if len(s.Flavors) > 0 {
			line += " | " + strings.Join(firstN(s.Flavors, 3), ", ")
		}
		if s.Description != "" {
			line += "\n   " + s.Description
		}
	}
	return line
}

func trimFloat(v float64) string {
	return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.1f", v), "0"), ".")
}

func firstN(values []string, n int) []string {
	if len(values) > n {
		return values[:n]
	}
	return values
}

var quickActions = map[string]struct {
	starter  []dto.QuickActionDTO
	followUp []dto.QuickActionDTO
}{
	policy.LanguageEnglish: {
		starter: []dto.QuickActionDTO{
			{Label: "Help me sleep", Query: "something to help me sleep"},
			{Label: "Energy for the day", Query: "something energetic and uplifting"},
			{Label: "Low THC", Query: "low thc strains"},
		},
		followUp: []dto.QuickActionDTO{
			{Label: "Lower THC first", Query: "which has less thc?"},
			{Label: "Show more like these", Query: "show more like these"},
			{Label: "Tell me about the first", Query: "tell me about the first one"},
		},
	},
	policy.LanguageSpanish: {
		starter: []dto.QuickActionDTO{
			{Label: "Para dormir", Query: "algo para dormir"},
			{Label: "Energía para el día", Query: "algo con energía"},
			{Label: "THC bajo", Query: "cepas con thc bajo"},
		},
		followUp: []dto.QuickActionDTO{
			{Label: "Menos THC primero", Query: "¿cuál tiene menos thc?"},
			{Label: "Más opciones como estas", Query: "mas opciones como estas"},
			{Label: "Cuéntame de la primera", Query: "cuentame de la primera"},
		},
	},
}

func quickActionsFor(lang string, hasItems bool) []dto.QuickActionDTO {
	set, ok := quickActions[lang]
	if !ok {
		set = quickActions[policy.LanguageEnglish]
	}
	if hasItems {
		return set.followUp
	}
	return set.starter
}
