package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/vsinha/batchplan/pkg/application/dto"
	"github.com/vsinha/batchplan/pkg/config"
	"github.com/vsinha/batchplan/pkg/infrastructure/repositories/csv"
	"github.com/vsinha/batchplan/pkg/infrastructure/repositories/xlsx"
	"github.com/vsinha/batchplan/pkg/interfaces/cli/output"
)

const scenarioMaterials = `material_code,name,tally_code,lead_time_days,safety_stock,reorder_qty,unit_of_measure
ACID,Acrylic Acid,RM-001,10,500,440,kg
WATER,Process Water,RM-002,0,,,
DRUM200,Drum 200L,PK-200,5,10,50,ea
`

const scenarioFormulations = `formulation_id,batch_size,material_code,quantity,packaging_code,packaging_amount_used
EMUL,1000,ACID,780,DRUM200,5
EMUL,1000,WATER,220,,
`

const scenarioStock = `material_code,quantity
ACID,1000
WATER,5000
DRUM200,20
`

func writeScenario(t *testing.T, name string, batchSize string) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), name)
	if err := os.Mkdir(dir, 0o755); err != nil {
		t.Fatalf("Failed to create scenario dir: %v", err)
	}
	files := map[string]string{
		csv.MaterialsFile:    scenarioMaterials,
		csv.FormulationsFile: scenarioFormulations,
		csv.StockFile:        scenarioStock,
		csv.BatchesFile: "name,date,reactor,formulation_id,batch_size,processing_time_hours\n" +
			"B-001,2025-01-21,R1,EMUL," + batchSize + ",30\n",
	}
	for file, content := range files {
		if err := os.WriteFile(filepath.Join(dir, file), []byte(content), 0o644); err != nil {
			t.Fatalf("Failed to write %s: %v", file, err)
		}
	}
	return dir
}

func TestPlanCommand_JSON(t *testing.T) {
	scenario := writeScenario(t, "week-03", "1000")
	outDir := t.TempDir()

	cmd := NewPlanCommand(PlanConfig{
		ScenarioDir: scenario,
		AsOf:        "2025-01-01",
		OutputDir:   outDir,
		Format:      "json",
	}, &config.Config{}, &bytes.Buffer{})
	if err := cmd.Execute(context.Background()); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(outDir, output.JSONFile))
	if err != nil {
		t.Fatalf("Expected JSON output: %v", err)
	}
	var result dto.PlanResult
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatalf("Failed to decode result: %v", err)
	}
	if result.PlanName != "week-03" || result.StockInventory != "week-03" {
		t.Errorf("Expected plan and stock named week-03, got %s / %s", result.PlanName, result.StockInventory)
	}
	placed := result.PlacedReorders()
	if len(placed) != 1 || placed[0].MaterialCode != "ACID" || placed[0].Qty != 440 {
		t.Errorf("Expected one 440 ACID reorder, got %+v", placed)
	}
}

func TestPlanCommand_TextToWriter(t *testing.T) {
	scenario := writeScenario(t, "week-03", "1000")
	var out bytes.Buffer

	cmd := NewPlanCommand(PlanConfig{
		ScenarioDir: scenario,
		AsOf:        "2025-01-01",
		PlanName:    "JAN-W3",
		Format:      "text",
	}, &config.Config{}, &out)
	if err := cmd.Execute(context.Background()); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if !strings.Contains(out.String(), "Plan: JAN-W3") {
		t.Errorf("Expected plan name in summary, got:\n%s", out.String())
	}
}

func TestPlanCommand_WithPrevious(t *testing.T) {
	current := writeScenario(t, "week-03", "1000")
	previous := writeScenario(t, "week-02", "500")
	outDir := t.TempDir()

	cmd := NewPlanCommand(PlanConfig{
		ScenarioDir: current,
		PreviousDir: previous,
		AsOf:        "2025-01-01",
		OutputDir:   outDir,
		Format:      "csv",
	}, &config.Config{}, &bytes.Buffer{})
	if err := cmd.Execute(context.Background()); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	for _, name := range []string{output.RequirementsFile, output.OverallFile, output.ReordersFile, DiffFile} {
		if _, err := os.Stat(filepath.Join(outDir, name)); err != nil {
			t.Errorf("Expected %s to be written: %v", name, err)
		}
	}

	data, err := os.ReadFile(filepath.Join(outDir, DiffFile))
	if err != nil {
		t.Fatalf("Failed to read diff: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) < 2 || lines[1] != "ACID,Acrylic Acid,500,1000,780,0,780,390,390" {
		t.Errorf("Unexpected diff contents:\n%s", data)
	}
}

func TestPlanCommand_Validation(t *testing.T) {
	tests := []struct {
		name     string
		config   PlanConfig
		expected string
	}{
		{
			name:     "no inputs",
			config:   PlanConfig{Format: "text"},
			expected: "validation error: must specify either --scenario directory or all four CSV files",
		},
		{
			name:     "partial files",
			config:   PlanConfig{MaterialsFile: "materials.csv", StockFile: "stock.csv"},
			expected: "validation error: must specify either --scenario directory or all four CSV files",
		},
		{
			name:     "previous without output",
			config:   PlanConfig{ScenarioDir: "week-03", PreviousDir: "week-02"},
			expected: "validation error: --previous requires --output for the diff file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewPlanCommand(tt.config, &config.Config{}, &bytes.Buffer{}).Execute(context.Background())
			if err == nil || err.Error() != tt.expected {
				t.Errorf("Expected %q, got %v", tt.expected, err)
			}
		})
	}
}

func TestPlanCommand_UploadWithoutStorage(t *testing.T) {
	scenario := writeScenario(t, "week-03", "1000")

	cmd := NewPlanCommand(PlanConfig{
		ScenarioDir: scenario,
		AsOf:        "2025-01-01",
		Format:      "text",
		Upload:      true,
	}, &config.Config{}, &bytes.Buffer{})
	err := cmd.Execute(context.Background())
	if err == nil || err.Error() != "object storage is not enabled (set STORAGE_ENABLED=true)" {
		t.Errorf("Expected storage disabled error, got %v", err)
	}
}

func TestDiffCommand(t *testing.T) {
	current := writeScenario(t, "week-03", "1000")
	previous := writeScenario(t, "week-02", "500")
	var out bytes.Buffer

	cmd := NewDiffCommand(DiffConfig{
		CurrentDir:  current,
		PreviousDir: previous,
		AsOf:        "2025-01-01",
	}, &config.Config{}, &out)
	if err := cmd.Execute(context.Background()); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	expected := []string{
		"Material Code,Material Name,Safety Stock,Current Stock,Overall Requirement,Shortfall,2025-01-21 Usage,2025-01-21 Prev Usage,2025-01-21 Delta",
		"ACID,Acrylic Acid,500,1000,780,0,780,390,390",
	}
	if len(lines) < len(expected) {
		t.Fatalf("Expected at least %d lines, got:\n%s", len(expected), out.String())
	}
	for i, want := range expected {
		if lines[i] != want {
			t.Errorf("Line %d: expected %s, got %s", i, want, lines[i])
		}
	}
}

func TestDiffCommand_RequiresCurrent(t *testing.T) {
	err := NewDiffCommand(DiffConfig{}, &config.Config{}, &bytes.Buffer{}).Execute(context.Background())
	if err == nil || err.Error() != "validation error: current scenario directory is required" {
		t.Errorf("Expected validation error, got %v", err)
	}
}

func TestImportCommand(t *testing.T) {
	dir := t.TempDir()
	materials := filepath.Join(dir, csv.MaterialsFile)
	if err := os.WriteFile(materials, []byte(scenarioMaterials), 0o644); err != nil {
		t.Fatalf("Failed to write materials: %v", err)
	}

	workbook := filepath.Join(dir, "stock-jan.xlsx")
	f := excelize.NewFile()
	if _, err := f.NewSheet(xlsx.StockSheet); err != nil {
		t.Fatalf("Failed to create sheet: %v", err)
	}
	cells := map[string]interface{}{
		"A11": "RM-001", "B11": "1,250.5",
		"A12": "PK-200", "B12": 20,
		"A13": "XX-999", "B13": 3,
	}
	for cell, value := range cells {
		if err := f.SetCellValue(xlsx.StockSheet, cell, value); err != nil {
			t.Fatalf("Failed to set %s: %v", cell, err)
		}
	}
	if err := f.SaveAs(workbook); err != nil {
		t.Fatalf("Failed to save workbook: %v", err)
	}
	f.Close()

	var out bytes.Buffer
	cmd := NewImportCommand(ImportConfig{
		Workbook:      workbook,
		MaterialsFile: materials,
		AsOf:          "2025-01-01",
	}, &config.Config{}, &out)
	if err := cmd.Execute(context.Background()); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	expected := "material_code,quantity\nACID,1250.5\nDRUM200,20\n"
	if out.String() != expected {
		t.Errorf("Expected:\n%s\ngot:\n%s", expected, out.String())
	}
}

func TestImportCommand_RequiresWorkbook(t *testing.T) {
	err := NewImportCommand(ImportConfig{}, &config.Config{}, &bytes.Buffer{}).Execute(context.Background())
	if err == nil || err.Error() != "validation error: workbook path is required" {
		t.Errorf("Expected validation error, got %v", err)
	}
}

func TestServeCommand_StopsOnCancel(t *testing.T) {
	scenario := writeScenario(t, "week-03", "1000")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	app := &config.Config{Server: config.ServerConfig{Port: "0"}}
	if err := NewServeCommand(ServeConfig{ScenarioDir: scenario}, app).Execute(ctx); err != nil {
		t.Errorf("Expected clean shutdown, got %v", err)
	}
}

func TestEnvironment_ClosesPlanCache(t *testing.T) {
	env, err := NewEnvironment(context.Background(), &config.Config{})
	if err != nil {
		t.Fatalf("NewEnvironment failed: %v", err)
	}
	if len(env.closers) != 1 {
		t.Fatalf("Expected the plan cache to be registered for Close, got %d closers", len(env.closers))
	}
	if err := env.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
	if len(env.closers) != 0 {
		t.Errorf("Expected closers to be released, got %d", len(env.closers))
	}
}
