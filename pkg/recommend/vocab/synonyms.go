package vocab

// synonyms maps folded user wording to the folded canonical catalog term.
var synonyms = map[string]string{
	// effects
	"relax":       "relaxed",
	"relaxing":    "relaxed",
	"relaxation":  "relaxed",
	"calm":        "relaxed",
	"relajado":    "relaxed",
	"relajante":   "relaxed",
	"relajacion":  "relaxed",
	"relajarme":   "relaxed",
	"sleep":       "sleepy",
	"sleeping":    "sleepy",
	"drowsy":      "sleepy",
	"somnoliento": "sleepy",
	"sueno":       "sleepy",
	"dormir":      "sleepy",
	"energy":      "energetic",
	"energizing":  "energetic",
	"energia":     "energetic",
	"energetico":  "energetic",
	"focus":       "focused",
	"concentrado": "focused",
	"enfocado":    "focused",
	"uplifting":   "uplifted",
	"animado":     "uplifted",
	"happiness":   "happy",
	"feliz":       "happy",
	"euphoria":    "euphoric",
	"euforico":    "euphoric",
	"creativity":  "creative",
	"creativo":    "creative",
	"hambre":      "hungry",
	"giggly":      "giggly",
	"talkative":   "talkative",
	"hablador":    "talkative",

	// negatives
	"paranoia":        "paranoid",
	"paranoico":       "paranoid",
	"anxiousness":     "anxious",
	"ansioso":         "anxious",
	"boca seca":       "dry mouth",
	"ojos secos":      "dry eyes",
	"dizziness":       "dizzy",
	"mareado":         "dizzy",
	"mareo":           "dizzy",
	"headaches":       "headache",
	"dolor cabeza":    "headache",
	"dolor de cabeza": "headache",

	// medical
	"dolor":        "pain",
	"chronic pain": "pain",
	"ansiedad":     "anxiety",
	"insomnio":     "insomnia",
	"estres":       "stress",
	"depresion":    "depression",
	"depressed":    "depression",
	"nauseas":      "nausea",
	"fatiga":       "fatigue",
	"cansancio":    "fatigue",
	"tired":        "fatigue",
	"apetito":      "lack of appetite",
	"appetite":     "lack of appetite",
	"inflamacion":  "inflammation",
	"espasmos":     "muscle spasms",
	"spasms":       "muscle spasms",
	"migraine":     "migraines",
	"migrana":      "migraines",

	// flavors
	"mint":       "menthol",
	"minty":      "menthol",
	"peppermint": "menthol",
	"spearmint":  "menthol",
	"menta":      "menthol",
	"limon":      "lemon",
	"lemons":     "lemon",
	"citrico":    "citrus",
	"citric":     "citrus",
	"berries":    "berry",
	"baya":       "berry",
	"bayas":      "berry",
	"dulce":      "sweet",
	"terroso":    "earthy",
	"earth":      "earthy",
	"pino":       "pine",
	"uva":        "grape",
	"grapes":     "grape",
	"especiado":  "spicy/herbal",
	"spicy":      "spicy/herbal",
	"herbal":     "spicy/herbal",
	"cafe":       "coffee",

	// categories
	"hibrida": "hybrid",
	"hibrido": "hybrid",
	"mixed":   "hybrid",
}
