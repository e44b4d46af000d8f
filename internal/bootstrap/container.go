package bootstrap

import (
	"context"
	"log"

	"ai-budtender-be/internal/config"
	"ai-budtender-be/internal/controller"
	"ai-budtender-be/internal/pkg/logger"
	"ai-budtender-be/internal/repository/unitofwork"
	"ai-budtender-be/internal/service"
	"ai-budtender-be/pkg/cache"
	"ai-budtender-be/pkg/embedding"
	"ai-budtender-be/pkg/embedding/jina"
	"ai-budtender-be/pkg/events"
	"ai-budtender-be/pkg/llm/factory"
	"ai-budtender-be/pkg/recommend/criteria"
	"ai-budtender-be/pkg/recommend/executor"
	"ai-budtender-be/pkg/recommend/filter"
	"ai-budtender-be/pkg/recommend/fuzzy"
	"ai-budtender-be/pkg/recommend/intent"
	"ai-budtender-be/pkg/recommend/policy"
	"ai-budtender-be/pkg/recommend/ranking"
	"ai-budtender-be/pkg/recommend/session"
	"ai-budtender-be/pkg/recommend/taxonomy"

	pktNats "ai-budtender-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	RecommendationController controller.IRecommendationController

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService

	Logger logger.ILogger

	natsPub *pktNats.Publisher
	natsSub *pktNats.Subscriber
	cache   cache.Client
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
	rc := cfg.Recommender

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 3. Session cache: Redis, or process memory when Redis is unreachable
	var sessionCache cache.Client
	redisClient, err := cache.NewRedisClient(cfg.App.RedisURL, cfg.App.RedisPrefix)
	if err != nil {
		log.Printf("[WARN] Redis unavailable (%v), sessions are kept in memory", err)
		sessionCache = cache.NewMemoryClient(rc.SessionTTL)
	} else {
		sessionCache = redisClient
	}

	// 4. Providers
	embeddingProvider := newEmbeddingProvider(cfg)
	embeddingProvider = embedding.NewCachedProvider(embeddingProvider, rc.EmbeddingCache)

	var primaryAnalyzer intent.Analyzer
	llmProvider, err := factory.NewLLMProvider(
		cfg.Ai.LLMProvider,
		cfg.Ai.LLMModel,
		cfg.Ai.LLMBaseURL,
		cfg.Keys.HuggingFace,
	)
	if err != nil {
		log.Printf("[WARN] LLM provider unavailable (%v), using keyword rules only", err)
	} else {
		primaryAnalyzer = intent.NewLLMAnalyzer(llmProvider, sysLogger)
		log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)
	}

	// 5. NATS (optional)
	var natsPub *pktNats.Publisher
	var natsSub *pktNats.Subscriber
	if cfg.App.NatsURL != "" {
		natsPub, err = pktNats.NewPublisher(cfg.App.NatsURL, sysLogger)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
		}
		natsSub, err = pktNats.NewSubscriber(cfg.App.NatsURL, sysLogger)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
		}
	}

	// 6. Recommendation pipeline
	parseOptions := criteria.ParseOptions{
		THC: criteria.Buckets{LowMax: rc.THCLowMax, HighMin: rc.THCHighMin},
		CBD: criteria.Buckets{LowMax: rc.CBDLowMax, HighMin: rc.CBDHighMin},
	}

	catalogService := service.NewCatalogService(uowFactory)
	taxonomyCache := taxonomy.NewCache(catalogService, taxonomy.Config{
		TTL:         rc.TaxonomyTTL,
		LoadTimeout: rc.TaxonomyTimeout,
	}, sysLogger)
	sessions := session.NewManager(sessionCache, session.Config{
		ActiveTTL:        rc.SessionTTL,
		PreferenceTTL:    rc.PreferenceTTL,
		OperationTimeout: rc.SessionTimeout,
	}, sysLogger)

	vectorRanker := ranking.NewVectorRanker(embeddingProvider, catalogService, rc.EmbeddingTimeout, sysLogger)
	rankingCfg := ranking.DefaultConfig()
	rankingCfg.QualificationThreshold = rc.QualificationThreshold
	rankingCfg.Weights = map[int]float64{
		criteria.PrioritySafety:   rc.SafetyWeight,
		criteria.PriorityCore:     rc.CoreWeight,
		criteria.PriorityCosmetic: rc.CosmeticWeight,
	}
	rankingCfg.NumericBonusCap = rc.NumericBonusCap
	rankingCfg.PenaltyCap = rc.PenaltyCap
	rankingEngine := ranking.NewEngine(rankingCfg, vectorRanker, sysLogger)

	pipeline := filter.NewPipeline(
		catalogService,
		taxonomyCache,
		fuzzy.NewMatcher(sysLogger),
		vectorRanker,
		embeddingProvider,
		filter.Config{
			ResultLimit:       rc.ResultLimit,
			CandidatePool:     rc.CandidatePool,
			LastResortSize:    rc.LastResortSize,
			FlavorBoostWindow: rc.FlavorBoostWindow,
			EmbeddingTimeout:  rc.EmbeddingTimeout,
		},
		sysLogger,
	)
	actionExecutor := executor.NewExecutor(pipeline, rankingEngine, rc.ResultLimit, sysLogger)

	resolver := policy.NewResolver(policy.Config{
		EffectCoverage:  rc.EffectCoverage,
		FlavorCoverage:  rc.FlavorCoverage,
		MedicalCoverage: rc.MedicalCoverage,
		THC:             parseOptions.THC,
	}, sysLogger)
	analyzer := intent.NewFallbackAnalyzer(primaryAnalyzer, intent.NewRuleBasedAnalyzer(), cfg.Ai.AnalyzerTimeout, sysLogger)

	// 7. Services
	var eventPublisher service.EventPublisher
	if natsPub != nil {
		eventPublisher = natsPub
	}
	publisherService := service.NewPublisherService(eventPublisher, sysLogger)
	consumerService := service.NewConsumerService(
		pubSub,
		uowFactory,
		catalogService,
		taxonomyCache,
		embeddingProvider,
		sysLogger,
	)

	recommendationService := service.NewRecommendationService(service.RecommendationDependencies{
		Sessions:  sessions,
		Catalog:   catalogService,
		Taxonomy:  taxonomyCache,
		Analyzer:  analyzer,
		Resolver:  resolver,
		Executor:  actionExecutor,
		Publisher: publisherService,
		Options:   parseOptions,
		Log:       sysLogger,
	})

	// 8. External catalog updates feed the in-process bus
	if natsSub != nil {
		err := natsSub.Subscribe(context.Background(), events.TypeCatalogUpdated, "budtender-catalog-sync", consumerService.Forward)
		if err != nil {
			log.Printf("[WARN] Failed to subscribe to %s: %v", events.TypeCatalogUpdated, err)
		}
	}

	return &Container{
		RecommendationController: controller.NewRecommendationController(recommendationService),
		ConsumerService:          consumerService,
		Logger:                   sysLogger,
		natsPub:                  natsPub,
		natsSub:                  natsSub,
		cache:                    sessionCache,
	}
}

func newEmbeddingProvider(cfg *config.Config) embedding.EmbeddingProvider {
	switch cfg.Ai.EmbeddingProvider {
	case "ollama":
		log.Printf("[INFO] Using Embedding Provider: OLLAMA (%s)", cfg.Ai.OllamaModel)
		return embedding.NewOllamaProvider(cfg.Ai.OllamaBaseURL, cfg.Ai.OllamaModel)
	case "jina":
		log.Printf("[INFO] Using Embedding Provider: JINA AI")
		return jina.NewJinaProvider(cfg.Keys.Jina)
	}
	log.Printf("[INFO] Using Embedding Provider: GEMINI")
	return embedding.NewGeminiProvider(cfg.Keys.GoogleGemini)
}

// Close releases broker and cache connections.
func (c *Container) Close() {
	if c.natsSub != nil {
		c.natsSub.Close()
	}
	if c.natsPub != nil {
		c.natsPub.Close()
	}
	if c.cache != nil {
		if err := c.cache.Close(); err != nil {
			log.Printf("[WARN] Failed to close cache: %v", err)
		}
	}
}
