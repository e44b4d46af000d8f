package service

import (
	"context"
	"time"

	"ai-budtender-be/internal/pkg/logger"
	"ai-budtender-be/pkg/events"
)

type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

// IPublisherService emits domain events without ever failing the caller.
type IPublisherService interface {
	PublishTurn(ctx context.Context, event events.RecommendationServed)
}

type publisherService struct {
	publisher EventPublisher
	timeout   time.Duration
	log       logger.ILogger
}

// NewPublisherService accepts a nil publisher, in which case events are dropped.
func NewPublisherService(publisher EventPublisher, log logger.ILogger) IPublisherService {
	return &publisherService{publisher: publisher, timeout: 2 * time.Second, log: log}
}

func (s *publisherService) PublishTurn(ctx context.Context, event events.RecommendationServed) {
	if s.publisher == nil {
		return
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()
	if err := s.publisher.Publish(pctx, event); err != nil {
		s.log.Warn("EVENTS", "Turn event not published", map[string]interface{}{
			"session_id": event.SessionID, "error": err.Error(),
		})
	}
}
