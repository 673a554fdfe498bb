package backend

import (
	"fmt"

	"moneta/internal/config"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	return Config{
		Type:         backendType,
		SQLiteDBPath: appConfig.SQLiteDBPath,
		DatabaseURL:  appConfig.DatabaseURL,
	}, nil
}

// Consumer describes how a binary subscribes to events.
type Consumer struct {
	// GroupID overrides the configured Kafka consumer group when not empty.
	GroupID string
	// PerInstance is set by binaries that must see every event, such as API
	// replicas invalidating their local caches. The Kafka group is suffixed
	// with the instance id and AMQP consumes from an exclusive queue.
	PerInstance bool
}

// EventsFromAppConfig converts the application config to events config.
func EventsFromAppConfig(appConfig *config.Config, consumer Consumer) (EventsConfig, error) {
	if appConfig == nil {
		return EventsConfig{}, fmt.Errorf("app config is nil")
	}

	driver := EventsDriver(appConfig.EventsDriver)
	if !driver.IsValid() {
		return EventsConfig{}, fmt.Errorf("invalid events driver in config: %s", appConfig.EventsDriver)
	}
	groupID := consumer.GroupID
	if groupID == "" {
		groupID = appConfig.KafkaGroupID
	}
	if consumer.PerInstance {
		if appConfig.InstanceID == "" {
			return EventsConfig{}, fmt.Errorf("instance id is required for a per-instance consumer")
		}
		groupID += "-" + appConfig.InstanceID
	}

	return EventsConfig{
		Driver:       driver,
		AMQPURL:      appConfig.AMQPURL,
		AMQPExchange: appConfig.AMQPExchange,
		AMQPQueue:    appConfig.AMQPQueue,
		KafkaBrokers: appConfig.KafkaBrokers,
		KafkaTopic:   appConfig.KafkaTopic,
		KafkaGroupID: groupID,
		PerInstance:  consumer.PerInstance,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite backend")
		}
	case PostgresBackend:
		if c.DatabaseURL == "" {
			return fmt.Errorf("database URL is required for postgres backend")
		}
	case MemoryBackend:
		// Memory backend doesn't require additional validation
	}

	return nil
}

// Validate validates the events configuration
func (c EventsConfig) Validate() error {
	if !c.Driver.IsValid() {
		return fmt.Errorf("invalid events driver: %s", c.Driver)
	}

	switch c.Driver {
	case AMQPEvents:
		if c.AMQPURL == "" || c.AMQPExchange == "" || c.AMQPQueue == "" {
			return fmt.Errorf("AMQP URL, exchange and queue are required for amqp events")
		}
	case KafkaEvents:
		if len(c.KafkaBrokers) == 0 || c.KafkaTopic == "" {
			return fmt.Errorf("Kafka brokers and topic are required for kafka events")
		}
	}

	return nil
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{MemoryBackend, SQLiteBackend, PostgresBackend}
}

// GetBackendTypeStrings returns all valid backend type strings
func GetBackendTypeStrings() []string {
	types := GetBackendTypes()
	strings := make([]string, len(types))
	for i, t := range types {
		strings[i] = t.String()
	}
	return strings
}
