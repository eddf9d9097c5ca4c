package service

import (
	"context"
	"encoding/json"
	"time"

	"ai-chat-be/internal/pkg/logger"
	"ai-chat-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill/message"
)

const relayTimeout = 2 * time.Second

type IConsumerService interface {
	Consume(ctx context.Context) error
}

// EventRelay forwards events to an external bus (NATS JetStream).
type EventRelay interface {
	Publish(ctx context.Context, event events.Event) error
}

// EventDelivery pushes events to the owner's live connections.
type EventDelivery interface {
	SendToOwner(ownerId string, payload []byte)
}

type consumerService struct {
	subscriber message.Subscriber
	topicName  string
	audit      logger.ILogger
	relay      EventRelay
	delivery   EventDelivery
	logger     logger.ILogger
}

// NewConsumerService wires the fan-out targets. relay and delivery may be nil.
func NewConsumerService(
	subscriber message.Subscriber,
	topicName string,
	audit logger.ILogger,
	relay EventRelay,
	delivery EventDelivery,
	log logger.ILogger,
) IConsumerService {
	return &consumerService{
		subscriber: subscriber,
		topicName:  topicName,
		audit:      audit,
		relay:      relay,
		delivery:   delivery,
		logger:     log,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.subscriber.Subscribe(ctx, cs.topicName)
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

// processMessage always acks: the bus is in-process and a failed target
// must not block the others or redeliver forever.
func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	defer msg.Ack()

	var event events.BaseEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		cs.logger.Error("ConsumerService", "Failed to unmarshal event", map[string]interface{}{"error": err})
		return
	}

	cs.audit.Info("ChatEvents", event.Type, auditDetails(event))

	if cs.relay != nil {
		relayCtx, cancel := context.WithTimeout(ctx, relayTimeout)
		err := cs.relay.Publish(relayCtx, event)
		cancel()
		if err != nil {
			cs.logger.Warn("ConsumerService", "Failed to relay event", map[string]interface{}{
				"type":  event.Type,
				"error": err.Error(),
			})
		}
	}

	if cs.delivery != nil {
		if owner := events.OwnerID(event); owner != "" {
			cs.delivery.SendToOwner(owner, msg.Payload)
		}
	}
}

// auditDetails drops message bodies from the audit trail.
func auditDetails(event events.BaseEvent) map[string]interface{} {
	details := make(map[string]interface{}, len(event.Data)+1)
	for k, v := range event.Data {
		if k == "content" {
			if s, ok := v.(string); ok {
				details["content_length"] = len([]rune(s))
			}
			continue
		}
		details[k] = v
	}
	details["occurred_at"] = event.OccurredAt
	return details
}
