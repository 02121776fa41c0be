package publisher

import (
	"context"
	"log"
	"time"

	"github.com/hoaglog2004/Argaty-sub000/internal/repository"
	"github.com/segmentio/kafka-go"
)

const orderEventsTopic = "order-events"

// messageWriter is the slice of kafka.Writer the poller needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// outboxSource is the slice of the store the poller reads from.
type outboxSource interface {
	UnprocessedOutboxEvents(ctx context.Context, limit int) ([]*repository.OutboxEvent, error)
	MarkOutboxEventProcessed(ctx context.Context, id int64) error
}

// OutboxPoller drains the outbox table into Kafka. Events are inserted in
// the same transaction as the rows they describe, so everything committed
// is eventually published; an event is marked processed only after the
// broker accepted it, so a crash between the two replays the event rather
// than losing it.
type OutboxPoller struct {
	tick      time.Duration
	batchSize int
	store     outboxSource
	writer    messageWriter
}

func NewOutboxPoller(store outboxSource, brokers ...string) *OutboxPoller {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  orderEventsTopic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
	return &OutboxPoller{
		tick:      time.Second,
		batchSize: 100,
		store:     store,
		writer:    w,
	}
}

func (p *OutboxPoller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.processUnpublishedEvents(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (p *OutboxPoller) processUnpublishedEvents(ctx context.Context) {
	events, err := p.store.UnprocessedOutboxEvents(ctx, p.batchSize)
	if err != nil {
		log.Printf("failed to fetch outbox events: %v", err)
		return
	}

	for _, event := range events {
		if err := p.publishToKafka(ctx, event); err != nil {
			log.Printf("failed to publish event id=%d: %v", event.ID, err)
			continue
		}

		if err := p.store.MarkOutboxEventProcessed(ctx, event.ID); err != nil {
			log.Printf("failed to mark event id=%d as processed: %v", event.ID, err)
			continue
		}
	}
}

func (p *OutboxPoller) publishToKafka(ctx context.Context, event *repository.OutboxEvent) error {
	msg := kafka.Message{
		Key:   []byte(event.AggregateID), // order code, so one order's events stay ordered
		Value: event.Payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "event_id", Value: []byte(event.EventID)},
		},
	}

	return p.writer.WriteMessages(ctx, msg)
}
