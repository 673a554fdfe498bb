package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"moneta/internal/amqp"
	"moneta/internal/events"
	"moneta/internal/events/kafka"
	"moneta/internal/storage"
	"moneta/internal/store/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteBackend(config)
	case PostgresBackend:
		return f.createPostgresBackend(config)
	case MemoryBackend:
		return f.createMemoryBackend()
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)

	return &BackendResult{
		Store:   repo,
		Cleanup: repo.Close,
	}, nil
}

func (f *DefaultFactory) createPostgresBackend(config Config) (*BackendResult, error) {
	repo, err := storage.NewPostgresRepository(config.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Postgres repository: %w", err)
	}

	f.logger.Info("Initialized Postgres backend")

	return &BackendResult{
		Store:   repo,
		Cleanup: repo.Close,
	}, nil
}

func (f *DefaultFactory) createMemoryBackend() (*BackendResult, error) {
	f.logger.Warn("Initialized memory backend, data is lost on restart")

	return &BackendResult{
		Store:   memory.New(),
		Cleanup: nil, // No cleanup needed for memory backend
	}, nil
}

// CreateEvents implements Factory.CreateEvents. A broker that cannot be
// reached degrades to no events instead of failing startup; the ledger stays
// the source of truth.
func (f *DefaultFactory) CreateEvents(ctx context.Context, config EventsConfig) (*EventsResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Driver {
	case AMQPEvents:
		var opts []amqp.Option
		if config.PerInstance {
			opts = append(opts, amqp.WithExclusiveQueue())
		}
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue, opts...)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without events", "error", err)
			return disabledEvents(), nil
		}
		f.logger.Info("Initialized AMQP client",
			"exchange", config.AMQPExchange,
			"queue", config.AMQPQueue,
			"per_instance", config.PerInstance)
		return &EventsResult{Publisher: client, Subscriber: client, Cleanup: client.Close}, nil

	case KafkaEvents:
		pub := kafka.NewPublisher(config.KafkaBrokers, config.KafkaTopic)
		var opts []kafka.SubscriberOption
		if config.PerInstance {
			opts = append(opts, kafka.FromLatest())
		}
		sub := kafka.NewSubscriber(config.KafkaBrokers, config.KafkaTopic, config.KafkaGroupID, opts...)
		f.logger.Info("Initialized Kafka transport",
			"brokers", config.KafkaBrokers,
			"topic", config.KafkaTopic,
			"group_id", config.KafkaGroupID)
		return &EventsResult{
			Publisher:  pub,
			Subscriber: sub,
			Cleanup: func() error {
				return errors.Join(pub.Close(), sub.Close())
			},
		}, nil

	default:
		return disabledEvents(), nil
	}
}

func disabledEvents() *EventsResult {
	return &EventsResult{Publisher: events.Discard{}}
}
