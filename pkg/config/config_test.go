package config

import (
	"reflect"
	"testing"

	"github.com/spf13/viper"
)

func TestRead_Defaults(t *testing.T) {
	cfg := read(viper.New())

	if cfg.Server.Port != "8080" {
		t.Errorf("Expected port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Database.Driver != "pgx" {
		t.Errorf("Expected pgx driver, got %s", cfg.Database.Driver)
	}
	if cfg.Planner.Epsilon != 1e-6 {
		t.Errorf("Expected epsilon 1e-6, got %v", cfg.Planner.Epsilon)
	}
	if cfg.Planner.MaxConcurrentRuns != 4 {
		t.Errorf("Expected 4 concurrent runs, got %d", cfg.Planner.MaxConcurrentRuns)
	}
	if !reflect.DeepEqual(cfg.Server.AllowedOrigins, []string{"*"}) {
		t.Errorf("Expected wildcard origin, got %v", cfg.Server.AllowedOrigins)
	}
	if cfg.Cache.Enabled || cfg.Events.KafkaEnabled || cfg.Storage.Enabled {
		t.Error("Expected optional integrations disabled by default")
	}
}

func TestRead_Environment(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092")
	t.Setenv("PLANNER_MAX_CONCURRENT_RUNS", "8")
	t.Setenv("DB_DRIVER", "postgres")

	cfg := read(viper.New())

	if cfg.Server.Port != "9090" {
		t.Errorf("Expected port 9090, got %s", cfg.Server.Port)
	}
	if !reflect.DeepEqual(cfg.Events.KafkaBrokers, []string{"kafka-1:9092", "kafka-2:9092"}) {
		t.Errorf("Unexpected brokers: %v", cfg.Events.KafkaBrokers)
	}
	if cfg.Planner.MaxConcurrentRuns != 8 {
		t.Errorf("Expected 8 concurrent runs, got %d", cfg.Planner.MaxConcurrentRuns)
	}
	if cfg.Database.Driver != "postgres" {
		t.Errorf("Expected postgres driver, got %s", cfg.Database.Driver)
	}
}
