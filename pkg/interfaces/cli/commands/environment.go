package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/vsinha/batchplan/pkg/application/services/orchestration"
	"github.com/vsinha/batchplan/pkg/config"
	"github.com/vsinha/batchplan/pkg/domain/repositories"
	"github.com/vsinha/batchplan/pkg/infrastructure/cache"
	"github.com/vsinha/batchplan/pkg/infrastructure/events"
	"github.com/vsinha/batchplan/pkg/infrastructure/repositories/csv"
	"github.com/vsinha/batchplan/pkg/infrastructure/repositories/memory"
	"github.com/vsinha/batchplan/pkg/infrastructure/repositories/postgres"
	"github.com/vsinha/batchplan/pkg/infrastructure/storage"
	"github.com/vsinha/batchplan/pkg/logger"
)

// Environment is the wired set of repositories and adapters a command runs against
type Environment struct {
	Orchestrator *orchestration.PlanningOrchestrator
	Materials    repositories.MaterialRepository
	Formulations repositories.FormulationRepository
	Stock        repositories.StockRepository
	Plans        repositories.PlanRepository
	// Storage is nil unless object storage is enabled
	Storage storage.ObjectStorage

	closers []func() error
	log     zerolog.Logger
}

// NewEnvironment wires repositories (postgres when enabled, otherwise in-memory),
// the plan cache, the event store with its Kafka publisher and object storage.
func NewEnvironment(ctx context.Context, cfg *config.Config) (*Environment, error) {
	env := &Environment{log: logger.With("environment")}

	var results orchestration.PlanResultStore
	if cfg.Database.Enabled {
		db, err := postgres.NewDB(cfg.Database)
		if err != nil {
			return nil, err
		}
		env.closers = append(env.closers, db.Close)
		if err := db.Migrate(ctx); err != nil {
			env.Close()
			return nil, err
		}
		env.Materials = postgres.NewMaterialRepository(db)
		env.Formulations = postgres.NewFormulationRepository(db)
		env.Stock = postgres.NewStockRepository(db)
		env.Plans = postgres.NewPlanRepository(db)
		results = postgres.NewResultRepository(db)
	} else {
		env.Materials = memory.NewMaterialRepository(0)
		env.Formulations = memory.NewFormulationRepository()
		env.Stock = memory.NewStockRepository()
		env.Plans = memory.NewPlanRepository()
	}

	planCache, err := cache.NewPlanCache(cfg.Cache)
	if err != nil {
		env.Close()
		return nil, fmt.Errorf("failed to initialize plan cache: %w", err)
	}
	env.closers = append(env.closers, planCache.Close)

	store := events.NewInMemoryEventStore()
	if cfg.Events.KafkaEnabled {
		publisher, err := events.NewKafkaPublisher(cfg.Events.KafkaBrokers, cfg.Events.KafkaTopic)
		if err != nil {
			env.Close()
			return nil, fmt.Errorf("failed to initialize kafka publisher: %w", err)
		}
		env.closers = append(env.closers, publisher.Close)
		if err := store.Subscribe(events.AllEventTypes, publisher); err != nil {
			env.Close()
			return nil, fmt.Errorf("failed to subscribe kafka publisher: %w", err)
		}
	}

	if cfg.Storage.Enabled {
		client, err := storage.NewMinioClient(ctx, cfg.Storage)
		if err != nil {
			env.Close()
			return nil, fmt.Errorf("failed to initialize object storage: %w", err)
		}
		env.Storage = client
	}

	env.Orchestrator = orchestration.NewPlanningOrchestrator(
		env.Materials,
		env.Formulations,
		env.Stock,
		env.Plans,
		cfg.Planner,
	).WithCache(planCache).WithEventStore(store)
	if results != nil {
		env.Orchestrator.WithResultStore(results)
	}

	env.log.Debug().
		Bool("database", cfg.Database.Enabled).
		Bool("cache", cfg.Cache.Enabled).
		Bool("kafka", cfg.Events.KafkaEnabled).
		Bool("storage", cfg.Storage.Enabled).
		Msg("environment ready")

	return env, nil
}

// Seed loads a scenario's masters and stock snapshot into the repositories
func (e *Environment) Seed(ctx context.Context, scenario *csv.Scenario) error {
	if err := e.Materials.LoadMaterials(ctx, scenario.Materials); err != nil {
		return fmt.Errorf("failed to load materials into repository: %w", err)
	}
	if err := e.Formulations.LoadFormulations(ctx, scenario.Formulations); err != nil {
		return fmt.Errorf("failed to load formulations into repository: %w", err)
	}
	if scenario.Stock != nil {
		if err := e.Stock.SaveSnapshot(ctx, scenario.Stock); err != nil {
			return fmt.Errorf("failed to save stock snapshot: %w", err)
		}
	}
	return nil
}

// Close releases database, publisher and other held resources
func (e *Environment) Close() error {
	var errs []error
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	e.closers = nil
	return errors.Join(errs...)
}
