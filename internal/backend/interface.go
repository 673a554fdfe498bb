package backend

import (
	"context"

	"moneta/internal/events"
	"moneta/internal/store"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the store instance and optional cleanup function
type BackendResult struct {
	Store   store.Store
	Cleanup CleanupFunc
}

// EventsResult carries the transport selected by EventsConfig. Subscriber
// is nil when events are disabled.
type EventsResult struct {
	Publisher  events.Publisher
	Subscriber events.Subscriber
	Cleanup    CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	// CreateBackend creates a store instance based on the provided config
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
	// CreateEvents creates the event transport based on the provided config
	CreateEvents(ctx context.Context, config EventsConfig) (*EventsResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	// Backend type
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// Postgres specific
	DatabaseURL string
}

// EventsConfig holds configuration for the event transport.
type EventsConfig struct {
	Driver EventsDriver

	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	KafkaBrokers []string
	KafkaTopic   string
	// KafkaGroupID is the consumer group of the subscriber.
	KafkaGroupID string

	// PerInstance gives the subscriber its own copy of every event: an
	// exclusive AMQP queue, or a Kafka group already scoped to the instance.
	PerInstance bool
}

// BackendType represents the type of backend
type BackendType string

const (
	MemoryBackend   BackendType = "memory"
	SQLiteBackend   BackendType = "sqlite"
	PostgresBackend BackendType = "postgres"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, SQLiteBackend, PostgresBackend:
		return true
	default:
		return false
	}
}

// EventsDriver names an event transport.
type EventsDriver string

const (
	NoEvents    EventsDriver = "none"
	AMQPEvents  EventsDriver = "amqp"
	KafkaEvents EventsDriver = "kafka"
)

func (d EventsDriver) IsValid() bool {
	switch d {
	case NoEvents, AMQPEvents, KafkaEvents:
		return true
	default:
		return false
	}
}
