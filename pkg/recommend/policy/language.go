package policy

import (
	"strings"

	"ai-budtender-be/pkg/recommend/vocab"
)

const (
	LanguageEnglish = "en"
	LanguageSpanish = "es"
)

var languageKeywords = map[string][]string{
	LanguageEnglish: {
		"the", "and", "for", "with", "something", "want", "need", "help", "sleep", "which", "show",
		"more", "less", "strain", "strains", "please", "what", "recommend", "me", "my", "i", "to",
	},
	LanguageSpanish: {
		"el", "la", "los", "las", "para", "con", "algo", "quiero", "necesito", "ayuda", "dormir", "cual",
		"muestra", "mas", "menos", "cepa", "cepas", "por", "favor", "que", "recomienda", "me", "mi", "yo",
		"hola", "gracias", "dolor", "ansiedad", "una", "un", "sabor",
	},
}

// DetectLanguage scores the words of text against small keyword lists. Ties and unknown text are English.
func DetectLanguage(text string) string {
	return DetectLanguageOr(text, LanguageEnglish)
}

// DetectLanguageOr is DetectLanguage with fallback returned when no keyword of either language occurs.
func DetectLanguageOr(text, fallback string) string {
	scores := map[string]int{}
	for _, tok := range vocab.Tokens(text) {
		for lang, words := range languageKeywords {
			for _, w := range words {
				if tok == w {
					scores[lang]++
				}
			}
		}
	}
	switch {
	case scores[LanguageSpanish] == 0 && scores[LanguageEnglish] == 0 && fallback != "":
		return fallback
	case scores[LanguageSpanish] > scores[LanguageEnglish]:
		return LanguageSpanish
	}
	return LanguageEnglish
}

// NormalizeLanguage accepts "es", "es-MX", "spanish" and similar. Anything unknown returns "".
func NormalizeLanguage(lang string) string {
	l := vocab.Fold(lang)
	switch {
	case l == "":
		return ""
	case l == "es" || l == "spa" || l == "spanish" || l == "espanol" || strings.HasPrefix(l, "es-"):
		return LanguageSpanish
	case l == "en" || l == "eng" || l == "english" || strings.HasPrefix(l, "en-"):
		return LanguageEnglish
	}
	return ""
}
