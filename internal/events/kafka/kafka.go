// Package kafka moves domain events over a Kafka topic.
package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"moneta/internal/events"
)

const (
	writeTimeout  = 5 * time.Second
	handleRetries = 3
)

type Publisher struct {
	writer *kafka.Writer
}

var _ events.Publisher = (*Publisher)(nil)

// NewPublisher writes to topic, hashing on the user id so each user's events
// land on one partition in order.
func NewPublisher(brokers []string, topic string) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
		},
	}
}

func (p *Publisher) Publish(ctx context.Context, e events.Event) error {
	msg, err := toMessage(e)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write kafka message: %w", err)
	}
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

type Subscriber struct {
	reader *kafka.Reader
}

var _ events.Subscriber = (*Subscriber)(nil)

// SubscriberOption adjusts the reader configuration.
type SubscriberOption func(*kafka.ReaderConfig)

// FromLatest starts a new consumer group at the end of the topic. Groups that
// only care about events published while they run, such as cache
// invalidation, use it to skip history.
func FromLatest() SubscriberOption {
	return func(c *kafka.ReaderConfig) { c.StartOffset = kafka.LastOffset }
}

func NewSubscriber(brokers []string, topic, groupID string, opts ...SubscriberOption) *Subscriber {
	cfg := kafka.ReaderConfig{
		Brokers:  brokers,
		GroupID:  groupID,
		Topic:    topic,
		MinBytes: 1,
		MaxBytes: 10e6,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Subscriber{reader: kafka.NewReader(cfg)}
}

// Subscribe commits a message once h succeeded, or after handleRetries failed
// attempts so a poison message cannot block the partition.
func (s *Subscriber) Subscribe(ctx context.Context, h events.Handler) error {
	for {
		msg, err := s.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return ctx.Err()
			}
			return fmt.Errorf("fetch kafka message: %w", err)
		}

		e, err := fromMessage(msg)
		if err != nil {
			slog.ErrorContext(ctx, "Dropping undecodable event",
				"error", err,
				"partition", msg.Partition,
				"offset", msg.Offset)
		} else {
			s.handle(ctx, h, e)
		}

		if err := s.reader.CommitMessages(ctx, msg); err != nil {
			return fmt.Errorf("commit kafka message: %w", err)
		}
	}
}

func (s *Subscriber) handle(ctx context.Context, h events.Handler, e events.Event) {
	for attempt := 1; attempt <= handleRetries; attempt++ {
		err := h(ctx, e)
		if err == nil {
			return
		}
		slog.WarnContext(ctx, "Event handler failed",
			"error", err,
			"type", e.Type,
			"user_id", e.UserID,
			"attempt", attempt)
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Duration(attempt) * time.Second):
		}
	}
	slog.ErrorContext(ctx, "Giving up on event", "type", e.Type, "user_id", e.UserID)
}

func (s *Subscriber) Close() error {
	return s.reader.Close()
}

func toMessage(e events.Event) (kafka.Message, error) {
	body, err := e.ToJSON()
	if err != nil {
		return kafka.Message{}, fmt.Errorf("marshal event: %w", err)
	}
	return kafka.Message{
		Key:     []byte(e.Key()),
		Value:   body,
		Time:    e.Timestamp,
		Headers: []kafka.Header{{Key: "type", Value: []byte(e.Type)}},
	}, nil
}

func fromMessage(msg kafka.Message) (events.Event, error) {
	return events.FromJSON(msg.Value)
}
