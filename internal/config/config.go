package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App         AppConfig
	Database    DatabaseConfig
	Keys        APIKeys
	Ai          AIConfig
	Recommender RecommenderConfig
}

type AppConfig struct {
	Port               string
	BaseURL            string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	RedisPrefix        string
}

type DatabaseConfig struct {
	Connection string
}

type APIKeys struct {
	GoogleGemini string
	Jina         string
	HuggingFace  string
}

type AIConfig struct {
	EmbeddingProvider string // "gemini", "ollama" or "jina"
	OllamaBaseURL     string
	OllamaModel       string
	LLMProvider       string // "ollama" or "huggingface"
	LLMModel          string
	LLMBaseURL        string
	AnalyzerTimeout   time.Duration
}

// RecommenderConfig carries the tunables of the recommendation pipeline.
type RecommenderConfig struct {
	EffectCoverage         float64
	FlavorCoverage         float64
	MedicalCoverage        float64
	QualificationThreshold float64

	SafetyWeight   float64
	CoreWeight     float64
	CosmeticWeight float64

	NumericBonusCap float64
	PenaltyCap      float64

	THCLowMax  float64
	THCHighMin float64
	CBDLowMax  float64
	CBDHighMin float64

	ResultLimit       int
	CandidatePool     int
	LastResortSize    int
	FlavorBoostWindow int

	SessionTTL       time.Duration
	PreferenceTTL    time.Duration
	SessionTimeout   time.Duration
	TaxonomyTTL      time.Duration
	TaxonomyTimeout  time.Duration
	EmbeddingTimeout time.Duration
	EmbeddingCache   time.Duration
}

func DefaultRecommenderConfig() RecommenderConfig {
	return RecommenderConfig{
		EffectCoverage:         0.5,
		FlavorCoverage:         0.5,
		MedicalCoverage:        0.5,
		QualificationThreshold: 0.5,
		SafetyWeight:           50,
		CoreWeight:             25,
		CosmeticWeight:         10,
		NumericBonusCap:        10,
		PenaltyCap:             30,
		THCLowMax:              12,
		THCHighMin:             20,
		CBDLowMax:              2,
		CBDHighMin:             8,
		ResultLimit:            10,
		CandidatePool:          200,
		LastResortSize:         5,
		FlavorBoostWindow:      20,
		SessionTTL:             2 * time.Hour,
		PreferenceTTL:          30 * 24 * time.Hour,
		SessionTimeout:         500 * time.Millisecond,
		TaxonomyTTL:            30 * time.Minute,
		TaxonomyTimeout:        3 * time.Second,
		EmbeddingTimeout:       3 * time.Second,
		EmbeddingCache:         time.Hour,
	}
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	d := DefaultRecommenderConfig()
	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log.csv"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", ""),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
			RedisPrefix:        getEnv("REDIS_PREFIX", "budtender:"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Keys: APIKeys{
			GoogleGemini: getEnv("GOOGLE_GEMINI_API_KEY", ""),
			Jina:         getEnv("JINA_API_KEY", ""),
			HuggingFace:  getEnv("HUGGINGFACE_API_KEY", ""),
		},
		Ai: AIConfig{
			EmbeddingProvider: getEnv("EMBEDDING_PROVIDER", "gemini"),
			OllamaBaseURL:     getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			OllamaModel:       getEnv("OLLAMA_EMBEDDING_MODEL", "nomic-embed-text"),
			LLMProvider:       getEnv("LLM_PROVIDER", "ollama"),
			LLMModel:          getEnv("LLM_MODEL", "llama3"),
			LLMBaseURL:        getEnv("LLM_BASE_URL", ""),
			AnalyzerTimeout:   getEnvAsDuration("ANALYZER_TIMEOUT", 8*time.Second),
		},
		Recommender: RecommenderConfig{
			EffectCoverage:         getEnvAsFloat("REC_EFFECT_COVERAGE", d.EffectCoverage),
			FlavorCoverage:         getEnvAsFloat("REC_FLAVOR_COVERAGE", d.FlavorCoverage),
			MedicalCoverage:        getEnvAsFloat("REC_MEDICAL_COVERAGE", d.MedicalCoverage),
			QualificationThreshold: getEnvAsFloat("REC_QUALIFICATION_THRESHOLD", d.QualificationThreshold),
			SafetyWeight:           getEnvAsFloat("REC_WEIGHT_SAFETY", d.SafetyWeight),
			CoreWeight:             getEnvAsFloat("REC_WEIGHT_CORE", d.CoreWeight),
			CosmeticWeight:         getEnvAsFloat("REC_WEIGHT_COSMETIC", d.CosmeticWeight),
			NumericBonusCap:        getEnvAsFloat("REC_NUMERIC_BONUS_CAP", d.NumericBonusCap),
			PenaltyCap:             getEnvAsFloat("REC_PENALTY_CAP", d.PenaltyCap),
			THCLowMax:              getEnvAsFloat("REC_THC_LOW_MAX", d.THCLowMax),
			THCHighMin:             getEnvAsFloat("REC_THC_HIGH_MIN", d.THCHighMin),
			CBDLowMax:              getEnvAsFloat("REC_CBD_LOW_MAX", d.CBDLowMax),
			CBDHighMin:             getEnvAsFloat("REC_CBD_HIGH_MIN", d.CBDHighMin),
			ResultLimit:            getEnvAsInt("REC_RESULT_LIMIT", d.ResultLimit),
			CandidatePool:          getEnvAsInt("REC_CANDIDATE_POOL", d.CandidatePool),
			LastResortSize:         getEnvAsInt("REC_LAST_RESORT_SIZE", d.LastResortSize),
			FlavorBoostWindow:      getEnvAsInt("REC_FLAVOR_BOOST_WINDOW", d.FlavorBoostWindow),
			SessionTTL:             getEnvAsDuration("SESSION_TTL", d.SessionTTL),
			PreferenceTTL:          getEnvAsDuration("SESSION_PREFERENCE_TTL", d.PreferenceTTL),
			SessionTimeout:         getEnvAsDuration("SESSION_TIMEOUT", d.SessionTimeout),
			TaxonomyTTL:            getEnvAsDuration("TAXONOMY_TTL", d.TaxonomyTTL),
			TaxonomyTimeout:        getEnvAsDuration("TAXONOMY_TIMEOUT", d.TaxonomyTimeout),
			EmbeddingTimeout:       getEnvAsDuration("EMBEDDING_TIMEOUT", d.EmbeddingTimeout),
			EmbeddingCache:         getEnvAsDuration("EMBEDDING_CACHE_TTL", d.EmbeddingCache),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}
