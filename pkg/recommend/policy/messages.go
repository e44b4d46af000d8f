package policy

import "fmt"

type messageKey int

const (
	msgDirectConflict messageKey = iota
	msgOppositeEffects
	msgMedicalPair
	msgHighPotency
)

var messages = map[string]map[messageKey]string{
	LanguageEnglish: {
		msgDirectConflict:  "You asked for and against %s; keeping it as a preference.",
		msgOppositeEffects: "%s and %s pull in opposite directions; focusing on %s.",
		msgMedicalPair:     "%s and %s usually call for different approaches; results may favour one of them.",
		msgHighPotency:     "High THC can make anxiety or paranoia worse. Consider starting with a lower dose.",
	},
	LanguageSpanish: {
		msgDirectConflict:  "Pediste a favor y en contra de %s; lo mantenemos como preferencia.",
		msgOppositeEffects: "%s y %s van en direcciones opuestas; nos enfocamos en %s.",
		msgMedicalPair:     "%s y %s suelen requerir enfoques distintos; los resultados pueden favorecer uno.",
		msgHighPotency:     "Un THC alto puede empeorar la ansiedad o la paranoia. Considera empezar con una dosis baja.",
	},
}

func message(lang string, key messageKey, args ...interface{}) string {
	table, ok := messages[lang]
	if !ok {
		table = messages[LanguageEnglish]
	}
	return fmt.Sprintf(table[key], args...)
}
