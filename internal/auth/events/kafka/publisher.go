package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aussiebroadwan/bartab-security/internal/auth/events"
	"github.com/aussiebroadwan/bartab-security/pkg/slogx"
	kafkago "github.com/segmentio/kafka-go"
)

type Config struct {
	Brokers      []string
	Topic        string
	WriteTimeout time.Duration
}

// messageWriter is the part of *kafkago.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Publisher writes JSON envelopes to a single topic.
type Publisher struct {
	w       messageWriter
	timeout time.Duration
	now     func() time.Time
}

// NewPublisher creates a synchronous writer that waits for all in-sync
// replicas before returning.
func NewPublisher(cfg Config) *Publisher {
	if cfg.Topic == "" {
		cfg.Topic = events.DefaultTopic
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}

	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		WriteTimeout:           cfg.WriteTimeout,
		BatchTimeout:           10 * time.Millisecond,
		AllowAutoTopicCreation: false,
	}
	return newPublisher(w, cfg.WriteTimeout)
}

func newPublisher(w messageWriter, timeout time.Duration) *Publisher {
	return &Publisher{w: w, timeout: timeout, now: time.Now}
}

// Publish blocks until the broker acknowledged the message, ctx is done or
// the write timeout elapses.
func (p *Publisher) Publish(ctx context.Context, eventType, key string, payload any) error {
	env := events.NewEnvelope(ctx, eventType, payload, p.now())

	value, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("kafka: marshal %s: %w", eventType, err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	err = p.w.WriteMessages(ctx, kafkago.Message{
		Key:   []byte(key),
		Value: value,
		Headers: []kafkago.Header{
			{Key: "eventType", Value: []byte(eventType)},
			{Key: "eventId", Value: []byte(env.EventID)},
		},
		Time: env.Timestamp,
	})
	if err != nil {
		return fmt.Errorf("kafka: write %s: %w", eventType, err)
	}

	slogx.FromContext(ctx).Info("event published",
		"event_type", eventType,
		"event_id", env.EventID,
		"key", key,
	)
	return nil
}

// Close flushes pending writes.
func (p *Publisher) Close() error {
	return p.w.Close()
}
