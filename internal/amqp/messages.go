package amqp

import (
	"fmt"

	"github.com/rabbitmq/amqp091-go"

	"moneta/internal/events"
)

// toPublishing wraps e in a persistent JSON message. The event type travels
// as the AMQP message type so consumers can filter without decoding.
func toPublishing(e events.Event) (amqp091.Publishing, error) {
	body, err := e.ToJSON()
	if err != nil {
		return amqp091.Publishing{}, fmt.Errorf("marshal message: %w", err)
	}
	return amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		Type:         string(e.Type),
		Timestamp:    e.Timestamp,
		Body:         body,
	}, nil
}
