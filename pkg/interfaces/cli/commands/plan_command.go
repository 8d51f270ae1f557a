package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/vsinha/batchplan/pkg/application/dto"
	"github.com/vsinha/batchplan/pkg/application/services/orchestration"
	"github.com/vsinha/batchplan/pkg/config"
	"github.com/vsinha/batchplan/pkg/domain/entities"
	"github.com/vsinha/batchplan/pkg/infrastructure/repositories/csv"
	"github.com/vsinha/batchplan/pkg/infrastructure/storage"
	"github.com/vsinha/batchplan/pkg/interfaces/cli/output"
	"github.com/vsinha/batchplan/pkg/logger"
)

// DiffFile is written next to the plan output when a previous scenario is given
const DiffFile = "plan_diff.csv"

// PlanConfig holds configuration for the plan command
type PlanConfig struct {
	ScenarioDir      string
	MaterialsFile    string
	FormulationsFile string
	StockFile        string
	BatchesFile      string
	PreviousDir      string
	PlanName         string
	AsOf             string
	OutputDir        string
	Format           string
	Upload           bool
	Save             bool
	Verbose          bool
}

// PlanCommand runs one planning scenario and renders its result
type PlanCommand struct {
	config PlanConfig
	app    *config.Config
	out    io.Writer
}

// NewPlanCommand creates a new plan command with the given configuration
func NewPlanCommand(cfg PlanConfig, app *config.Config, out io.Writer) *PlanCommand {
	if out == nil {
		out = os.Stdout
	}
	return &PlanCommand{config: cfg, app: app, out: out}
}

// Execute runs the plan command
func (c *PlanCommand) Execute(ctx context.Context) error {
	if err := c.validateInputs(); err != nil {
		return fmt.Errorf("validation error: %w", err)
	}

	asOf, err := parseAsOf(c.config.AsOf)
	if err != nil {
		return fmt.Errorf("validation error: %w", err)
	}

	scenario, err := c.loadScenario(asOf)
	if err != nil {
		return err
	}

	log := logger.With("plan")
	log.Info().
		Str("scenario", scenario.Name).
		Int("materials", len(scenario.Materials)).
		Int("formulations", len(scenario.Formulations)).
		Int("batches", len(scenario.Batches)).
		Msg("scenario loaded")

	env, err := NewEnvironment(ctx, c.app)
	if err != nil {
		return err
	}
	defer env.Close()

	if err := env.Seed(ctx, scenario); err != nil {
		return err
	}

	req := orchestration.PlanRequest{
		PlanName:       c.planName(scenario),
		StockInventory: scenario.Stock.Name,
		Stock:          scenario.Stock,
		AsOf:           asOf,
		Batches:        scenario.Batches,
		Save:           c.config.Save,
	}

	startTime := time.Now()
	var (
		result *dto.PlanResult
		diff   bytes.Buffer
	)
	if c.config.PreviousDir != "" {
		previous, err := csv.NewLoader().LoadScenario(c.config.PreviousDir, asOf)
		if err != nil {
			return fmt.Errorf("error loading previous scenario: %w", err)
		}
		previousReq := orchestration.PlanRequest{
			PlanName:       previous.Name,
			StockInventory: previous.Stock.Name,
			Stock:          previous.Stock,
			AsOf:           asOf,
			Batches:        previous.Batches,
		}
		result, err = env.Orchestrator.RunDiff(ctx, req, &previousReq, &diff)
		if err != nil {
			return fmt.Errorf("error running plan: %w", err)
		}
	} else {
		result, err = env.Orchestrator.RunPlan(ctx, req)
		if err != nil {
			return fmt.Errorf("error running plan: %w", err)
		}
	}
	runTime := time.Since(startTime)

	files, err := output.Generate(result, output.Config{
		Format:    c.config.Format,
		OutputDir: c.config.OutputDir,
		Verbose:   c.config.Verbose,
		RunTime:   runTime,
		Out:       c.out,
	})
	if err != nil {
		return fmt.Errorf("error generating output: %w", err)
	}

	if diff.Len() > 0 {
		filename := filepath.Join(c.config.OutputDir, DiffFile)
		if err := os.WriteFile(filename, diff.Bytes(), 0644); err != nil {
			return fmt.Errorf("failed to write diff file: %w", err)
		}
		files = append(files, filename)
	}

	for _, f := range files {
		log.Info().Str("file", f).Msg("output written")
	}

	if c.config.Upload {
		if err := uploadResult(ctx, env.Storage, result, files); err != nil {
			return err
		}
	}

	return nil
}

// validateInputs validates the command configuration
func (c *PlanCommand) validateInputs() error {
	if c.config.ScenarioDir == "" &&
		(c.config.MaterialsFile == "" || c.config.FormulationsFile == "" ||
			c.config.StockFile == "" || c.config.BatchesFile == "") {
		return fmt.Errorf("must specify either --scenario directory or all four CSV files")
	}
	if c.config.PreviousDir != "" && c.config.OutputDir == "" {
		return fmt.Errorf("--previous requires --output for the diff file")
	}
	return nil
}

func (c *PlanCommand) loadScenario(asOf time.Time) (*csv.Scenario, error) {
	loader := csv.NewLoader()
	if c.config.ScenarioDir != "" {
		scenario, err := loader.LoadScenario(c.config.ScenarioDir, asOf)
		if err != nil {
			return nil, fmt.Errorf("error loading scenario: %w", err)
		}
		return scenario, nil
	}

	files := map[string]string{
		"Materials":    c.config.MaterialsFile,
		"Formulations": c.config.FormulationsFile,
		"Stock":        c.config.StockFile,
		"Batches":      c.config.BatchesFile,
	}
	for name, path := range files {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return nil, fmt.Errorf("%s file not found: %s", name, path)
		}
	}

	materials, err := loader.LoadMaterials(c.config.MaterialsFile)
	if err != nil {
		return nil, fmt.Errorf("error loading materials: %w", err)
	}
	formulations, err := loader.LoadFormulations(c.config.FormulationsFile)
	if err != nil {
		return nil, fmt.Errorf("error loading formulations: %w", err)
	}
	name := strings.TrimSuffix(filepath.Base(c.config.StockFile), filepath.Ext(c.config.StockFile))
	stock, err := loader.LoadStock(c.config.StockFile, name, asOf)
	if err != nil {
		return nil, fmt.Errorf("error loading stock: %w", err)
	}
	batches, err := loader.LoadBatches(c.config.BatchesFile)
	if err != nil {
		return nil, fmt.Errorf("error loading batches: %w", err)
	}
	return &csv.Scenario{
		Name:         name,
		Materials:    materials,
		Formulations: formulations,
		Stock:        stock,
		Batches:      batches,
	}, nil
}

func (c *PlanCommand) planName(scenario *csv.Scenario) string {
	if c.config.PlanName != "" {
		return c.config.PlanName
	}
	return scenario.Name
}

func parseAsOf(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return entities.ParseDate(s)
}

// uploadResult stores the JSON result and every written file under the run's export prefix
func uploadResult(ctx context.Context, store storage.ObjectStorage, result *dto.PlanResult, files []string) error {
	if store == nil {
		return fmt.Errorf("object storage is not enabled (set STORAGE_ENABLED=true)")
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal plan result: %w", err)
	}
	key := storage.ExportKey(result.StockInventory, result.RunID, "json")
	if err := store.UploadObject(ctx, key, payload, "application/json"); err != nil {
		return err
	}
	log := logger.With("upload")
	log.Info().Str("key", key).Msg("plan result uploaded")

	for _, f := range files {
		if filepath.Ext(f) == ".json" {
			continue
		}
		data, err := os.ReadFile(f)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", f, err)
		}
		key := storage.ExportKey(result.StockInventory, result.RunID, filepath.Base(f))
		if err := store.UploadObject(ctx, key, data, contentType(f)); err != nil {
			return err
		}
		log.Info().Str("key", key).Msg("export uploaded")
	}
	return nil
}

func contentType(filename string) string {
	switch filepath.Ext(filename) {
	case ".csv":
		return "text/csv"
	case ".svg":
		return "image/svg+xml"
	case ".json":
		return "application/json"
	default:
		return "text/plain"
	}
}
