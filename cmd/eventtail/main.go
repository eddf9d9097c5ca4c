// Command eventtail prints chat events relayed to NATS JetStream.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"ai-chat-be/internal/config"
	"ai-chat-be/pkg/events"
	pktNats "ai-chat-be/pkg/nats"

	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	natsURL := flag.String("nats", cfg.Infra.NatsURL, "NATS server URL")
	eventType := flag.String("type", "", "only show this event type, e.g. chat.created")
	owner := flag.String("owner", "", "only show events of this owner id")
	durable := flag.String("durable", "", "durable consumer name; empty for an ephemeral consumer")
	flag.Parse()

	if *natsURL == "" {
		log.Fatal("NATS URL is empty (set NATS_URL or -nats)")
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	sub, err := pktNats.NewSubscriber(*natsURL)
	if err != nil {
		logger.Fatal("connect", zap.Error(err))
	}
	defer sub.Close()

	subject := pktNats.SubjectPrefix + ">"
	if *eventType != "" {
		subject = pktNats.Subject(*eventType)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = sub.Subscribe(ctx, subject, *durable, func(ctx context.Context, e events.Event) error {
		ownerID := events.OwnerID(e)
		if *owner != "" && ownerID != *owner {
			return nil
		}
		logger.Info(e.EventType(),
			zap.String("owner_id", ownerID),
			zap.Time("occurred_at", e.Timestamp()),
			zap.Any("data", e.Payload()),
		)
		return nil
	})
	if err != nil {
		logger.Fatal("subscribe", zap.Error(err))
	}

	<-ctx.Done()
}
