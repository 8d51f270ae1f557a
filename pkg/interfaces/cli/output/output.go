package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/vsinha/batchplan/pkg/application/dto"
	"github.com/vsinha/batchplan/pkg/domain/entities"
)

// Output file names written into Config.OutputDir
const (
	JSONFile         = "plan_result.json"
	RequirementsFile = "material_requirements.csv"
	OverallFile      = "overall_material_requirements.csv"
	ReordersFile     = "reorders.csv"
	ScheduleFile     = "plan_schedule.svg"
)

// Config holds configuration for output generation
type Config struct {
	Format    string
	OutputDir string
	Verbose   bool
	RunTime   time.Duration
	// Out receives text output and JSON when no OutputDir is set
	Out io.Writer
}

func (c Config) out() io.Writer {
	if c.Out == nil {
		return os.Stdout
	}
	return c.Out
}

// Generate creates output in the specified format and returns the files written
func Generate(result *dto.PlanResult, config Config) ([]string, error) {
	if result == nil {
		return nil, fmt.Errorf("plan result cannot be nil")
	}
	switch config.Format {
	case "", "text":
		return nil, WriteText(config.out(), result, config.RunTime)
	case "json":
		return generateJSONOutput(result, config)
	case "csv":
		return generateCSVOutput(result, config)
	case "svg":
		return generateSVGOutput(result, config)
	default:
		return nil, fmt.Errorf("unsupported output format: %s", config.Format)
	}
}

// WriteText writes a human-readable summary of result
func WriteText(w io.Writer, result *dto.PlanResult, runTime time.Duration) error {
	var b strings.Builder

	fmt.Fprintf(&b, "Plan Results Summary\n")
	fmt.Fprintf(&b, "====================\n\n")
	if result.PlanName != "" {
		fmt.Fprintf(&b, "Plan: %s\n", result.PlanName)
	}
	fmt.Fprintf(&b, "Stock Inventory: %s\n", result.StockInventory)
	if result.StartDate != "" {
		fmt.Fprintf(&b, "Horizon: %s to %s\n", result.StartDate, result.EndDate)
	}
	fmt.Fprintf(&b, "Requirement Rows: %d\n", result.MaterialCount())
	fmt.Fprintf(&b, "Reorders Placed: %d\n", len(result.PlacedReorders()))
	if runTime > 0 {
		fmt.Fprintf(&b, "Run Time: %v\n", runTime)
	}
	b.WriteString("\n")

	if len(result.OverallMaterialRequirements) > 0 {
		fmt.Fprintf(&b, "Overall Requirements:\n")
		fmt.Fprintf(&b, "%-12s %-24s %12s %12s %12s %12s %12s\n",
			"Material", "Name", "Stock", "Used", "Reorder", "Safety", "Final")
		fmt.Fprintf(&b, "%-12s %-24s %12s %12s %12s %12s %12s\n",
			"------------", "------------------------", "------------", "------------",
			"------------", "------------", "------------")
		for _, row := range result.OverallMaterialRequirements {
			fmt.Fprintf(&b, "%-12s %-24s %12s %12s %12s %12s %12s\n",
				row.MaterialCode,
				truncate(row.MaterialName, 24),
				number(row.CurrentStock),
				number(row.TotalUsed),
				number(row.TotalReorder),
				number(row.SafetyStock),
				number(row.FinalStock))
		}
		b.WriteString("\n")
	}

	if placed := result.PlacedReorders(); len(placed) > 0 {
		fmt.Fprintf(&b, "Reorders:\n")
		fmt.Fprintf(&b, "%-12s %-12s %12s %-12s %s\n", "Placed", "Material", "Qty", "Need Date", "Reason")
		fmt.Fprintf(&b, "%-12s %-12s %12s %-12s %s\n", "------------", "------------", "------------", "------------", "------")
		for _, day := range result.Reorders {
			for _, line := range day.ReordersPlaced {
				fmt.Fprintf(&b, "%-12s %-12s %12s %-12s %s\n",
					day.Date, line.MaterialCode, number(line.Qty), line.NeedDate, line.Reason)
			}
		}
		b.WriteString("\n")
	}

	if len(result.Warnings) > 0 {
		fmt.Fprintf(&b, "Warnings:\n")
		for _, warning := range result.Warnings {
			fmt.Fprintf(&b, "  - %s\n", warning)
		}
		b.WriteString("\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func generateJSONOutput(result *dto.PlanResult, config Config) ([]string, error) {
	jsonData, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if config.OutputDir == "" {
		_, err := fmt.Fprintln(config.out(), string(jsonData))
		return nil, err
	}

	if err := os.MkdirAll(config.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	filename := filepath.Join(config.OutputDir, JSONFile)
	if err := os.WriteFile(filename, jsonData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write JSON file: %w", err)
	}
	return []string{filename}, nil
}

func generateCSVOutput(result *dto.PlanResult, config Config) ([]string, error) {
	if config.OutputDir == "" {
		return nil, fmt.Errorf("output directory required for CSV format")
	}
	if err := os.MkdirAll(config.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	writers := []struct {
		name  string
		write func(io.Writer, *dto.PlanResult) error
	}{
		{RequirementsFile, WriteRequirementsCSV},
		{OverallFile, WriteOverallCSV},
		{ReordersFile, WriteReordersCSV},
	}

	files := make([]string, 0, len(writers))
	for _, wr := range writers {
		filename := filepath.Join(config.OutputDir, wr.name)
		if err := writeFile(filename, result, wr.write); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", wr.name, err)
		}
		files = append(files, filename)
	}
	return files, nil
}

func generateSVGOutput(result *dto.PlanResult, config Config) ([]string, error) {
	svg := NewGanttChart(result).GenerateSVG(result)
	if config.OutputDir == "" {
		_, err := io.WriteString(config.out(), svg)
		return nil, err
	}
	if err := os.MkdirAll(config.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	filename := filepath.Join(config.OutputDir, ScheduleFile)
	if err := os.WriteFile(filename, []byte(svg), 0644); err != nil {
		return nil, fmt.Errorf("failed to write SVG file: %w", err)
	}
	return []string{filename}, nil
}

func writeFile(filename string, result *dto.PlanResult, write func(io.Writer, *dto.PlanResult) error) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	if err := write(f, result); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// WriteRequirementsCSV writes one row per (date, material) requirement
func WriteRequirementsCSV(w io.Writer, result *dto.PlanResult) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"date", "material_code", "material_name", "usage", "ending_stock", "batches"}); err != nil {
		return err
	}
	for _, day := range result.MaterialRequirements {
		for _, m := range day.Materials {
			batches := make([]string, 0, len(m.UsageDetails))
			for _, d := range m.UsageDetails {
				batches = append(batches, d.Batch)
			}
			record := []string{day.Date, m.MaterialCode, m.MaterialName, number(m.Usage), number(m.EndingStock), strings.Join(batches, ";")}
			if err := writer.Write(record); err != nil {
				return err
			}
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteOverallCSV writes one row per material across the horizon
func WriteOverallCSV(w io.Writer, result *dto.PlanResult) error {
	writer := csv.NewWriter(w)
	header := []string{"material_code", "material_name", "unit_of_measure", "current_stock", "total_used", "total_reorder", "safety_stock", "final_stock"}
	if err := writer.Write(header); err != nil {
		return err
	}
	for _, row := range result.OverallMaterialRequirements {
		record := []string{
			row.MaterialCode,
			row.MaterialName,
			row.UnitOfMeasure,
			number(row.CurrentStock),
			number(row.TotalUsed),
			number(row.TotalReorder),
			number(row.SafetyStock),
			number(row.FinalStock),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteReordersCSV flattens the reorders table into placed, arrived and completed rows
func WriteReordersCSV(w io.Writer, result *dto.PlanResult) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"date", "kind", "code", "name", "qty", "need_date", "late", "reason"}); err != nil {
		return err
	}
	for _, day := range result.Reorders {
		for _, line := range day.ReordersPlaced {
			record := []string{day.Date, "placed", line.MaterialCode, line.MaterialName, number(line.Qty), line.NeedDate, fmt.Sprintf("%t", line.Late), line.Reason}
			if err := writer.Write(record); err != nil {
				return err
			}
		}
		for _, line := range day.ReordersArrived {
			record := []string{day.Date, "arrived", line.MaterialCode, line.MaterialName, number(line.Qty), "", "false", line.Reason}
			if err := writer.Write(record); err != nil {
				return err
			}
		}
		for _, done := range day.ProductionCompleted {
			record := []string{day.Date, "production_completed", done.Batch, done.Formulation, number(done.BatchSize), "", "false", done.Reactor}
			if err := writer.Write(record); err != nil {
				return err
			}
		}
	}
	writer.Flush()
	return writer.Error()
}

func number(f float64) string {
	return entities.Quantity(f).String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "~"
}
