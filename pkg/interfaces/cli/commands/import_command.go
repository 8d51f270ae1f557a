package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/vsinha/batchplan/pkg/config"
	"github.com/vsinha/batchplan/pkg/infrastructure/repositories/csv"
	"github.com/vsinha/batchplan/pkg/infrastructure/repositories/xlsx"
	"github.com/vsinha/batchplan/pkg/logger"
)

// ImportConfig holds configuration for the import-stock command
type ImportConfig struct {
	Workbook string
	// MaterialsFile seeds the material master used to resolve tally codes
	MaterialsFile string
	Name          string
	AsOf          string
	// Output is the stock.csv destination; empty writes to the command's writer
	Output string
}

// ImportCommand converts the accounting stock workbook into a stock snapshot
type ImportCommand struct {
	config ImportConfig
	app    *config.Config
	out    io.Writer
}

func NewImportCommand(cfg ImportConfig, app *config.Config, out io.Writer) *ImportCommand {
	if out == nil {
		out = os.Stdout
	}
	return &ImportCommand{config: cfg, app: app, out: out}
}

// Execute runs the import-stock command. The snapshot is also saved to the
// stock repository, which persists it when the database is enabled.
func (c *ImportCommand) Execute(ctx context.Context) error {
	if c.config.Workbook == "" {
		return fmt.Errorf("validation error: workbook path is required")
	}
	asOf, err := parseAsOf(c.config.AsOf)
	if err != nil {
		return fmt.Errorf("validation error: %w", err)
	}

	env, err := NewEnvironment(ctx, c.app)
	if err != nil {
		return err
	}
	defer env.Close()

	if c.config.MaterialsFile != "" {
		materials, err := csv.NewLoader().LoadMaterials(c.config.MaterialsFile)
		if err != nil {
			return fmt.Errorf("error loading materials: %w", err)
		}
		if err := env.Materials.LoadMaterials(ctx, materials); err != nil {
			return fmt.Errorf("failed to load materials into repository: %w", err)
		}
	}

	name := c.config.Name
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(c.config.Workbook), filepath.Ext(c.config.Workbook))
	}

	result, err := xlsx.NewStockImporter(env.Materials).ImportFile(ctx, c.config.Workbook, name, asOf)
	if err != nil {
		return fmt.Errorf("error importing stock workbook: %w", err)
	}
	if err := env.Stock.SaveSnapshot(ctx, result.Snapshot); err != nil {
		return fmt.Errorf("failed to save stock snapshot: %w", err)
	}

	if c.config.Output != "" {
		if err := csv.WriteStockFile(c.config.Output, result.Snapshot); err != nil {
			return err
		}
	} else if err := csv.WriteStock(c.out, result.Snapshot); err != nil {
		return err
	}

	log := logger.With("import")
	log.Info().
		Str("stock", name).
		Int("lines", len(result.Lines)).
		Int("unknown", len(result.UnknownTallyCodes)).
		Msg("stock workbook imported")
	return nil
}
