package backend

import (
	"context"
	"path/filepath"
	"testing"

	"moneta/internal/config"
	"moneta/internal/events"
)

func TestFromAppConfig(t *testing.T) {
	tests := []struct {
		name    string
		backend string
		wantErr bool
	}{
		{"memory", "memory", false},
		{"sqlite", "sqlite", false},
		{"postgres", "postgres", false},
		{"sheets is gone", "sheets", true},
		{"empty", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{DataBackend: tt.backend, SQLiteDBPath: "x.db", DatabaseURL: "postgres://localhost/db"}
			got, err := FromAppConfig(cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("FromAppConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && got.Type.String() != tt.backend {
				t.Errorf("FromAppConfig().Type = %s, want %s", got.Type, tt.backend)
			}
		})
	}

	if _, err := FromAppConfig(nil); err == nil {
		t.Error("FromAppConfig(nil) should fail")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"memory", Config{Type: MemoryBackend}, false},
		{"sqlite without path", Config{Type: SQLiteBackend}, true},
		{"postgres without url", Config{Type: PostgresBackend}, true},
		{"unknown", Config{Type: "mongo"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestEventsConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     EventsConfig
		wantErr bool
	}{
		{"none", EventsConfig{Driver: NoEvents}, false},
		{"amqp complete", EventsConfig{Driver: AMQPEvents, AMQPURL: "amqp://x", AMQPExchange: "e", AMQPQueue: "q"}, false},
		{"amqp missing queue", EventsConfig{Driver: AMQPEvents, AMQPURL: "amqp://x", AMQPExchange: "e"}, true},
		{"kafka without brokers", EventsConfig{Driver: KafkaEvents, KafkaTopic: "t"}, true},
		{"kafka complete", EventsConfig{Driver: KafkaEvents, KafkaBrokers: []string{"b:9092"}, KafkaTopic: "t"}, false},
		{"unknown", EventsConfig{Driver: "nats"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestEventsFromAppConfigConsumer(t *testing.T) {
	cfg := &config.Config{EventsDriver: "kafka", KafkaGroupID: "moneta-api", InstanceID: "pod-a"}
	tests := []struct {
		name        string
		consumer    Consumer
		wantGroup   string
		perInstance bool
	}{
		{"configured group", Consumer{}, "moneta-api", false},
		{"group override", Consumer{GroupID: "moneta-worker"}, "moneta-worker", false},
		{"per instance", Consumer{PerInstance: true}, "moneta-api-pod-a", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EventsFromAppConfig(cfg, tt.consumer)
			if err != nil {
				t.Fatalf("EventsFromAppConfig() error = %v", err)
			}
			if got.KafkaGroupID != tt.wantGroup || got.PerInstance != tt.perInstance {
				t.Errorf("EventsFromAppConfig() = group %q per-instance %v, want %q %v",
					got.KafkaGroupID, got.PerInstance, tt.wantGroup, tt.perInstance)
			}
		})
	}

	other := *cfg
	other.InstanceID = "pod-b"
	a, _ := EventsFromAppConfig(cfg, Consumer{PerInstance: true})
	b, _ := EventsFromAppConfig(&other, Consumer{PerInstance: true})
	if a.KafkaGroupID == b.KafkaGroupID {
		t.Errorf("replicas share consumer group %q", a.KafkaGroupID)
	}

	noID := *cfg
	noID.InstanceID = ""
	if _, err := EventsFromAppConfig(&noID, Consumer{PerInstance: true}); err == nil {
		t.Error("EventsFromAppConfig() without instance id should fail")
	}
}

func TestCreateBackend(t *testing.T) {
	f := NewFactory(nil)
	ctx := context.Background()

	mem, err := f.CreateBackend(ctx, Config{Type: MemoryBackend})
	if err != nil {
		t.Fatalf("CreateBackend(memory) error = %v", err)
	}
	if err := mem.Store.Ping(ctx); err != nil {
		t.Errorf("memory Ping() error = %v", err)
	}

	res, err := f.CreateBackend(ctx, Config{Type: SQLiteBackend, SQLiteDBPath: filepath.Join(t.TempDir(), "moneta.db")})
	if err != nil {
		t.Fatalf("CreateBackend(sqlite) error = %v", err)
	}
	defer res.Cleanup()
	if err := res.Store.Ping(ctx); err != nil {
		t.Errorf("sqlite Ping() error = %v", err)
	}
}

func TestCreateEventsDisabled(t *testing.T) {
	res, err := NewFactory(nil).CreateEvents(context.Background(), EventsConfig{Driver: NoEvents})
	if err != nil {
		t.Fatalf("CreateEvents() error = %v", err)
	}
	if _, ok := res.Publisher.(events.Discard); !ok {
		t.Errorf("Publisher = %T, want events.Discard", res.Publisher)
	}
	if res.Subscriber != nil {
		t.Errorf("Subscriber = %T, want nil", res.Subscriber)
	}
}
