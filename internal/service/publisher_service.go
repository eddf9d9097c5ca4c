package service

import (
	"context"
	"encoding/json"
	"time"

	"ai-chat-be/internal/pkg/logger"
	"ai-chat-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

type IPublisherService interface {
	Publish(ctx context.Context, payload []byte) error
	PublishEvent(ctx context.Context, eventType string, data map[string]interface{})
}

type publisherService struct {
	topicName string
	publisher message.Publisher
	logger    logger.ILogger
}

func NewPublisherService(topicName string, publisher message.Publisher, log logger.ILogger) IPublisherService {
	return &publisherService{
		topicName: topicName,
		publisher: publisher,
		logger:    log,
	}
}

func (p *publisherService) Publish(ctx context.Context, payload []byte) error {
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)
	return p.publisher.Publish(p.topicName, msg)
}

// PublishEvent never fails the caller; errors are logged.
func (p *publisherService) PublishEvent(ctx context.Context, eventType string, data map[string]interface{}) {
	payload, err := json.Marshal(events.BaseEvent{
		Type:       eventType,
		Data:       data,
		OccurredAt: time.Now().UTC(),
	})
	if err != nil {
		p.logger.Error("Publisher", "Failed to marshal event", map[string]interface{}{"type": eventType, "error": err})
		return
	}

	if err := p.Publish(ctx, payload); err != nil {
		p.logger.Error("Publisher", "Failed to publish event", map[string]interface{}{"type": eventType, "error": err})
	}
}
