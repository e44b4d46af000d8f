package service

import (
	"context"
	"encoding/json"
	"fmt"

	"ai-budtender-be/internal/pkg/logger"
	"ai-budtender-be/internal/repository/unitofwork"
	"ai-budtender-be/pkg/embedding"
	"ai-budtender-be/pkg/events"
	"ai-budtender-be/pkg/recommend/taxonomy"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

const CatalogUpdatedTopic = "CATALOG_UPDATED"

// CatalogUpdatedMessage is emitted by the catalog sync job. StrainIDs lists rows whose text changed and
// need a fresh embedding.
type CatalogUpdatedMessage struct {
	StrainIDs []int64 `json:"strain_ids"`
}

type IConsumerService interface {
	Consume(ctx context.Context) error
	// Forward bridges an external catalog_updated event onto the in-process bus.
	Forward(ctx context.Context, event events.Event) error
}

type consumerService struct {
	pubSub     *gochannel.GoChannel
	uowFactory unitofwork.RepositoryFactory
	catalog    ICatalogService
	taxonomy   *taxonomy.Cache
	embedder   embedding.EmbeddingProvider
	log        logger.ILogger
}

func NewConsumerService(
	pubSub *gochannel.GoChannel,
	uowFactory unitofwork.RepositoryFactory,
	catalog ICatalogService,
	taxonomy *taxonomy.Cache,
	embedder embedding.EmbeddingProvider,
	log logger.ILogger,
) IConsumerService {
	return &consumerService{
		pubSub:     pubSub,
		uowFactory: uowFactory,
		catalog:    catalog,
		taxonomy:   taxonomy,
		embedder:   embedder,
		log:        log,
	}
}

func (cs *consumerService) Forward(ctx context.Context, event events.Event) error {
	var msg CatalogUpdatedMessage
	if raw, ok := event.Payload()["strain_ids"].([]interface{}); ok {
		for _, v := range raw {
			if f, ok := v.(float64); ok {
				msg.StrainIDs = append(msg.StrainIDs, int64(f))
			}
		}
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return cs.pubSub.Publish(CatalogUpdatedTopic, message.NewMessage(watermill.NewUUID(), payload))
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, CatalogUpdatedTopic)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var payload CatalogUpdatedMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		cs.log.Warn("CATALOG_CONSUMER", "Dropping malformed message", map[string]interface{}{"error": err.Error()})
		msg.Ack()
		return
	}

	cs.taxonomy.Invalidate()

	if len(payload.StrainIDs) > 0 && cs.embedder != nil {
		if err := cs.reembed(ctx, payload.StrainIDs); err != nil {
			cs.log.Error("CATALOG_CONSUMER", "Re-embedding failed", map[string]interface{}{
				"strain_ids": payload.StrainIDs, "error": err.Error(),
			})
			msg.Nack()
			return
		}
	}

	cs.log.Info("CATALOG_CONSUMER", "Catalog update processed", map[string]interface{}{"strains": len(payload.StrainIDs)})
	msg.Ack()
}

// reembed regenerates the vectors of the given strains in one transaction.
func (cs *consumerService) reembed(ctx context.Context, ids []int64) error {
	strains, err := cs.catalog.FindByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("load strains: %w", err)
	}

	type pending struct {
		id     int64
		doc    string
		vector []float32
	}
	batch := make([]pending, 0, len(strains))
	for _, s := range strains {
		doc := cs.catalog.Document(s)
		res, err := cs.embedder.Generate(ctx, doc, embedding.TaskDocument)
		if err != nil {
			return fmt.Errorf("embed strain %d: %w", s.ID, err)
		}
		batch = append(batch, pending{id: s.ID, doc: doc, vector: res.Embedding.Values})
	}

	return cs.uowFactory.NewUnitOfWork(ctx).Do(ctx, func(uow unitofwork.UnitOfWork) error {
		for _, p := range batch {
			if err := uow.StrainRepository().UpsertEmbedding(ctx, p.id, p.vector, p.doc); err != nil {
				return fmt.Errorf("store embedding %d: %w", p.id, err)
			}
		}
		return nil
	})
}
