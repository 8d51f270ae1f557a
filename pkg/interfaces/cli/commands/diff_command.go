package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/vsinha/batchplan/pkg/application/services/orchestration"
	"github.com/vsinha/batchplan/pkg/config"
	"github.com/vsinha/batchplan/pkg/infrastructure/repositories/csv"
)

// DiffConfig holds configuration for the diff command
type DiffConfig struct {
	CurrentDir  string
	PreviousDir string
	AsOf        string
	// Output is the CSV destination; empty writes to the command's writer
	Output string
}

// DiffCommand compares the material usage of two scenarios. Both are planned
// against the current scenario's masters.
type DiffCommand struct {
	config DiffConfig
	app    *config.Config
	out    io.Writer
}

func NewDiffCommand(cfg DiffConfig, app *config.Config, out io.Writer) *DiffCommand {
	if out == nil {
		out = os.Stdout
	}
	return &DiffCommand{config: cfg, app: app, out: out}
}

// Execute runs the diff command
func (c *DiffCommand) Execute(ctx context.Context) error {
	if c.config.CurrentDir == "" {
		return fmt.Errorf("validation error: current scenario directory is required")
	}
	asOf, err := parseAsOf(c.config.AsOf)
	if err != nil {
		return fmt.Errorf("validation error: %w", err)
	}

	loader := csv.NewLoader()
	current, err := loader.LoadScenario(c.config.CurrentDir, asOf)
	if err != nil {
		return fmt.Errorf("error loading current scenario: %w", err)
	}

	var previousReq *orchestration.PlanRequest
	if c.config.PreviousDir != "" {
		previous, err := loader.LoadScenario(c.config.PreviousDir, asOf)
		if err != nil {
			return fmt.Errorf("error loading previous scenario: %w", err)
		}
		previousReq = &orchestration.PlanRequest{
			PlanName:       previous.Name,
			StockInventory: previous.Stock.Name,
			Stock:          previous.Stock,
			AsOf:           asOf,
			Batches:        previous.Batches,
		}
	}

	env, err := NewEnvironment(ctx, c.app)
	if err != nil {
		return err
	}
	defer env.Close()

	if err := env.Seed(ctx, current); err != nil {
		return err
	}

	w := c.out
	if c.config.Output != "" {
		f, err := os.Create(c.config.Output)
		if err != nil {
			return fmt.Errorf("failed to create diff file: %w", err)
		}
		defer f.Close()
		w = f
	}

	_, err = env.Orchestrator.RunDiff(ctx, orchestration.PlanRequest{
		PlanName:       current.Name,
		StockInventory: current.Stock.Name,
		Stock:          current.Stock,
		AsOf:           asOf,
		Batches:        current.Batches,
	}, previousReq, w)
	if err != nil {
		return fmt.Errorf("error running diff: %w", err)
	}
	return nil
}
