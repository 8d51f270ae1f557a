package orchestration

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/vsinha/batchplan/pkg/application/dto"
	"github.com/vsinha/batchplan/pkg/application/services/aggregator"
	"github.com/vsinha/batchplan/pkg/application/services/assembler"
	"github.com/vsinha/batchplan/pkg/application/services/planner"
	"github.com/vsinha/batchplan/pkg/config"
	"github.com/vsinha/batchplan/pkg/domain/entities"
	"github.com/vsinha/batchplan/pkg/domain/repositories"
	"github.com/vsinha/batchplan/pkg/domain/services/validation"
	"github.com/vsinha/batchplan/pkg/infrastructure/cache"
	"github.com/vsinha/batchplan/pkg/infrastructure/events"
	"github.com/vsinha/batchplan/pkg/logger"
)

// PlanResultStore persists assembled results
type PlanResultStore interface {
	SaveResult(ctx context.Context, result *dto.PlanResult) error
}

// PlanningOrchestrator loads master data, runs the scaler, aggregator, planner
// and assembler in sequence, and fans results out to the cache, event store and
// result store.
type PlanningOrchestrator struct {
	materialRepo    repositories.MaterialRepository
	formulationRepo repositories.FormulationRepository
	stockRepo       repositories.StockRepository
	planRepo        repositories.PlanRepository

	results    PlanResultStore
	cache      cache.PlanCache
	eventStore events.EventStore
	options    config.PlannerConfig
	log        zerolog.Logger
	now        func() time.Time
}

// NewPlanningOrchestrator creates a new planning orchestrator with a noop cache
// and an in-memory event store
func NewPlanningOrchestrator(
	materialRepo repositories.MaterialRepository,
	formulationRepo repositories.FormulationRepository,
	stockRepo repositories.StockRepository,
	planRepo repositories.PlanRepository,
	options config.PlannerConfig,
) *PlanningOrchestrator {
	if options.MaxConcurrentRuns < 1 {
		options.MaxConcurrentRuns = 1
	}
	return &PlanningOrchestrator{
		materialRepo:    materialRepo,
		formulationRepo: formulationRepo,
		stockRepo:       stockRepo,
		planRepo:        planRepo,
		cache:           cache.NewNoopPlanCache(),
		eventStore:      events.NewInMemoryEventStore(),
		options:         options,
		log:             logger.With("orchestrator"),
		now:             time.Now,
	}
}

// WithCache replaces the result cache
func (po *PlanningOrchestrator) WithCache(c cache.PlanCache) *PlanningOrchestrator {
	if c != nil {
		po.cache = c
	}
	return po
}

// WithEventStore replaces the event store runs publish to
func (po *PlanningOrchestrator) WithEventStore(store events.EventStore) *PlanningOrchestrator {
	if store != nil {
		po.eventStore = store
	}
	return po
}

// WithResultStore persists every computed result
func (po *PlanningOrchestrator) WithResultStore(store PlanResultStore) *PlanningOrchestrator {
	po.results = store
	return po
}

// EventStore returns the store planning events are appended to
func (po *PlanningOrchestrator) EventStore() events.EventStore {
	return po.eventStore
}

// PlanRequest describes one planning run. When Stock is nil the snapshot named
// StockInventory is loaded from the stock repository.
type PlanRequest struct {
	PlanName       string
	StockInventory string
	Stock          *entities.StockSnapshot
	AsOf           time.Time
	Batches        []entities.Batch
	// Save stores the batches as a production plan for PreviousBatches
	Save bool
}

// runInputs is the canonical input of a run; its fingerprint keys the cache
type runInputs struct {
	Stock        string                                      `json:"stock"`
	AsOf         time.Time                                   `json:"asOf"`
	Quantities   map[entities.MaterialCode]entities.Quantity `json:"quantities"`
	Batches      []entities.Batch                            `json:"batches"`
	Materials    []entities.Material                         `json:"materials"`
	Formulations []*entities.Formulation                     `json:"formulations"`
	Epsilon      float64                                     `json:"epsilon"`
}

// RunPlan performs one complete planning run
func (po *PlanningOrchestrator) RunPlan(ctx context.Context, req PlanRequest) (*dto.PlanResult, error) {
	start := time.Now()

	stock, err := po.resolveStock(ctx, req)
	if err != nil {
		return nil, err
	}

	materialList, err := po.materialRepo.GetAllMaterials(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load materials: %w", err)
	}
	materialValues := make([]entities.Material, 0, len(materialList))
	for _, m := range materialList {
		materialValues = append(materialValues, *m)
	}
	materials, err := entities.NewMaterialSet(materialValues)
	if err != nil {
		return nil, fmt.Errorf("failed to build material set: %w", err)
	}

	formulationList, err := po.formulationRepo.GetAllFormulations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load formulations: %w", err)
	}

	validationResult := validation.ValidateMasters(formulationList, materials)
	if err := validationResult.Err(); err != nil {
		return nil, fmt.Errorf("invalid master data: %w", err)
	}
	if err := validation.ValidateStock(stock, materials); err != nil {
		return nil, fmt.Errorf("invalid stock snapshot: %w", err)
	}

	warnings := append([]string(nil), validationResult.Warnings...)
	for _, conflict := range validation.DetectReactorConflicts(req.Batches) {
		warnings = append(warnings, conflict.Message)
	}

	// the planner falls back to the snapshot date, which decides late orders
	asOf := req.AsOf
	if asOf.IsZero() {
		asOf = stock.AsOf
	}

	fingerprint, err := cache.Fingerprint(runInputs{
		Stock:        stock.Name,
		AsOf:         asOf,
		Quantities:   stock.Quantities(),
		Batches:      req.Batches,
		Materials:    materialValues,
		Formulations: formulationList,
		Epsilon:      po.options.Epsilon,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fingerprint run: %w", err)
	}

	if cached, ok, err := po.cache.GetPlan(ctx, fingerprint); err != nil {
		po.log.Warn().Err(err).Str("plan_id", req.PlanName).Msg("plan cache lookup failed")
	} else if ok {
		po.log.Info().
			Str("plan_id", req.PlanName).
			Str("run_id", cached.RunID).
			Msg("plan served from cache")
		if err := po.savePlan(ctx, req, stock, cached.RunID); err != nil {
			return nil, err
		}
		served := *cached
		served.PlanName = req.PlanName
		return &served, nil
	}

	formulations, err := aggregator.IndexFormulations(formulationList)
	if err != nil {
		return nil, fmt.Errorf("failed to index formulations: %w", err)
	}
	requirements, err := aggregator.Aggregate(req.Batches, formulations, materials)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate requirements: %w", err)
	}
	outcome, err := planner.Plan(planner.PlanInput{
		InitialStock: stock,
		Requirements: requirements,
		Materials:    materials,
		AsOf:         asOf,
		Epsilon:      po.options.Epsilon,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to plan reorders: %w", err)
	}

	runID := uuid.New().String()
	result := assembler.Assemble(assembler.AssembleInput{
		RunID:        runID,
		PlanName:     req.PlanName,
		Stock:        stock,
		Materials:    materials,
		Batches:      req.Batches,
		Requirements: requirements,
		Outcome:      outcome,
		Warnings:     warnings,
	})

	published, err := po.publish(runID, req.PlanName, result, outcome)
	if err != nil {
		return nil, err
	}

	if po.results != nil {
		if err := po.results.SaveResult(ctx, result); err != nil {
			return nil, fmt.Errorf("failed to save plan result: %w", err)
		}
	}
	if err := po.savePlan(ctx, req, stock, runID); err != nil {
		return nil, err
	}

	if err := po.cache.SetPlan(ctx, fingerprint, result); err != nil {
		po.log.Warn().Err(err).Str("run_id", runID).Msg("failed to cache plan result")
	}

	po.log.Info().
		Str("plan_id", req.PlanName).
		Str("run_id", runID).
		Str("stock", stock.Name).
		Int("batches", len(req.Batches)).
		Int("reorders", len(outcome.Events)).
		Int("events", published).
		Int("warnings", len(warnings)).
		Dur("duration", time.Since(start)).
		Msg("planning run completed")

	return result, nil
}

func (po *PlanningOrchestrator) resolveStock(ctx context.Context, req PlanRequest) (*entities.StockSnapshot, error) {
	if req.Stock != nil {
		return req.Stock, nil
	}
	if req.StockInventory == "" {
		return nil, fmt.Errorf("no stock snapshot provided for planning")
	}
	stock, err := po.stockRepo.GetSnapshot(ctx, req.StockInventory)
	if err != nil {
		return nil, fmt.Errorf("failed to load stock snapshot %s: %w", req.StockInventory, err)
	}
	return stock, nil
}

func (po *PlanningOrchestrator) publish(runID, planName string, result *dto.PlanResult, outcome *planner.PlanOutcome) (int, error) {
	runEvents := events.OutcomeEvents(runID, outcome)

	late := 0
	for _, e := range outcome.Events {
		if e.Late {
			late++
		}
	}
	runEvents = append(runEvents, events.NewPlanCompletedEvent(runID, events.PlanCompleted{
		PlanName:       planName,
		StockInventory: result.StockInventory,
		StartDate:      result.StartDate,
		EndDate:        result.EndDate,
		Reorders:       len(outcome.Events),
		LateOrders:     late,
		Warnings:       len(result.Warnings),
	}))

	for _, event := range runEvents {
		if err := po.eventStore.AppendEvent(runID, event); err != nil {
			return 0, fmt.Errorf("failed to append %s event: %w", event.Type(), err)
		}
	}
	return len(runEvents), nil
}

func (po *PlanningOrchestrator) savePlan(ctx context.Context, req PlanRequest, stock *entities.StockSnapshot, runID string) error {
	if !req.Save {
		return nil
	}
	name := req.PlanName
	if name == "" {
		name = runID
	}
	plan, err := entities.NewProductionPlan(name, stock.Name, po.now(), req.Batches)
	if err != nil {
		return fmt.Errorf("failed to build production plan: %w", err)
	}
	if err := po.planRepo.SavePlan(ctx, plan); err != nil {
		return fmt.Errorf("failed to save production plan %s: %w", name, err)
	}
	return nil
}

// RunPlans executes independent runs concurrently, bounded by MaxConcurrentRuns.
// Results are returned in request order; the first failure cancels the rest.
func (po *PlanningOrchestrator) RunPlans(ctx context.Context, reqs []PlanRequest) ([]*dto.PlanResult, error) {
	results := make([]*dto.PlanResult, len(reqs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(po.options.MaxConcurrentRuns)
	for i := range reqs {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			result, err := po.RunPlan(gctx, reqs[i])
			if err != nil {
				return fmt.Errorf("run %d (%s): %w", i+1, reqs[i].PlanName, err)
			}
			results[i] = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// PreviousBatches returns the batches of the latest saved plan for stockInventory
// dated today or later. No saved plan yields an empty list.
func (po *PlanningOrchestrator) PreviousBatches(ctx context.Context, stockInventory string, today time.Time) ([]entities.Batch, error) {
	plan, err := po.planRepo.LatestPlan(ctx, stockInventory)
	if errors.Is(err, repositories.ErrNotFound) {
		return []entities.Batch{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load latest plan for %s: %w", stockInventory, err)
	}
	batches := plan.BatchesFrom(today)
	if batches == nil {
		batches = []entities.Batch{}
	}
	return batches, nil
}

// RunDiff plans current and, when given, previous, then writes the usage diff CSV to w
func (po *PlanningOrchestrator) RunDiff(ctx context.Context, current PlanRequest, previous *PlanRequest, w io.Writer) (*dto.PlanResult, error) {
	currentResult, err := po.RunPlan(ctx, current)
	if err != nil {
		return nil, fmt.Errorf("failed to plan current schedule: %w", err)
	}

	var previousResult *dto.PlanResult
	if previous != nil {
		previousResult, err = po.RunPlan(ctx, *previous)
		if err != nil {
			return nil, fmt.Errorf("failed to plan previous schedule: %w", err)
		}
	}

	if err := assembler.WriteDiffCSV(w, currentResult, previousResult); err != nil {
		return nil, fmt.Errorf("failed to write diff: %w", err)
	}
	return currentResult, nil
}
