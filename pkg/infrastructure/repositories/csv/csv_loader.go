package csv

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/vsinha/batchplan/pkg/domain/entities"
)

// Scenario file names inside a scenario directory
const (
	MaterialsFile    = "materials.csv"
	FormulationsFile = "formulations.csv"
	StockFile        = "stock.csv"
	BatchesFile      = "batches.csv"
)

var (
	materialsHeader    = []string{"material_code", "name", "tally_code", "lead_time_days", "safety_stock", "reorder_qty", "unit_of_measure"}
	formulationsHeader = []string{"formulation_id", "batch_size", "material_code", "quantity", "packaging_code", "packaging_amount_used"}
	stockHeader        = []string{"material_code", "quantity"}
	batchesHeader      = []string{"name", "date", "reactor", "formulation_id", "batch_size", "processing_time_hours"}
)

// Loader handles loading planning data from CSV files
type Loader struct{}

// NewLoader creates a new CSV loader
func NewLoader() *Loader {
	return &Loader{}
}

// Scenario is one complete set of planning inputs
type Scenario struct {
	Name         string
	Materials    []*entities.Material
	Formulations []*entities.Formulation
	Stock        *entities.StockSnapshot
	Batches      []entities.Batch
}

// LoadScenario reads the four scenario files from dir. The stock snapshot is
// named after the directory and dated asOf (zero for undated).
func (l *Loader) LoadScenario(dir string, asOf time.Time) (*Scenario, error) {
	materials, err := l.LoadMaterials(filepath.Join(dir, MaterialsFile))
	if err != nil {
		return nil, err
	}
	formulations, err := l.LoadFormulations(filepath.Join(dir, FormulationsFile))
	if err != nil {
		return nil, err
	}
	name := filepath.Base(filepath.Clean(dir))
	stock, err := l.LoadStock(filepath.Join(dir, StockFile), name, asOf)
	if err != nil {
		return nil, err
	}
	batches, err := l.LoadBatches(filepath.Join(dir, BatchesFile))
	if err != nil {
		return nil, err
	}
	return &Scenario{
		Name:         name,
		Materials:    materials,
		Formulations: formulations,
		Stock:        stock,
		Batches:      batches,
	}, nil
}

// LoadMaterials loads the material master from a CSV file
func (l *Loader) LoadMaterials(filename string) ([]*entities.Material, error) {
	records, err := readRecords(filename, "materials", materialsHeader)
	if err != nil {
		return nil, err
	}

	var materials []*entities.Material
	for i, record := range records {
		material, err := parseMaterial(record)
		if err != nil {
			return nil, fmt.Errorf("materials CSV row %d: %w", i+2, err)
		}
		materials = append(materials, material)
	}

	return materials, nil
}

// LoadFormulations loads formulations from a CSV file with one row per ratio line.
// Rows of the same formulation must agree on batch_size; the first non-empty
// packaging_code wins.
func (l *Loader) LoadFormulations(filename string) ([]*entities.Formulation, error) {
	records, err := readRecords(filename, "formulations", formulationsHeader)
	if err != nil {
		return nil, err
	}

	type draft struct {
		batchSize     entities.Quantity
		ratios        []entities.FormulationRatio
		packagingCode entities.MaterialCode
		packagingUsed entities.Quantity
	}
	var order []entities.FormulationID
	drafts := make(map[entities.FormulationID]*draft)

	for i, record := range records {
		row := i + 2
		id := entities.FormulationID(strings.TrimSpace(record[0]))
		if id == "" {
			return nil, fmt.Errorf("formulations CSV row %d: formulation_id cannot be empty", row)
		}
		batchSize, err := parseQuantity("batch_size", record[1])
		if err != nil {
			return nil, fmt.Errorf("formulations CSV row %d: %w", row, err)
		}

		d, exists := drafts[id]
		if !exists {
			d = &draft{batchSize: batchSize}
			drafts[id] = d
			order = append(order, id)
		} else if d.batchSize != batchSize {
			return nil, fmt.Errorf("formulations CSV row %d: batch_size %s differs from %s for %s", row, batchSize, d.batchSize, id)
		}

		if code := strings.TrimSpace(record[2]); code != "" {
			qty, err := parseQuantity("quantity", record[3])
			if err != nil {
				return nil, fmt.Errorf("formulations CSV row %d: %w", row, err)
			}
			d.ratios = append(d.ratios, entities.FormulationRatio{MaterialCode: entities.MaterialCode(code), Quantity: qty})
		}

		if pkg := strings.TrimSpace(record[4]); pkg != "" && d.packagingCode == "" {
			used, err := parseQuantity("packaging_amount_used", record[5])
			if err != nil {
				return nil, fmt.Errorf("formulations CSV row %d: %w", row, err)
			}
			d.packagingCode = entities.MaterialCode(pkg)
			d.packagingUsed = used
		}
	}

	formulations := make([]*entities.Formulation, 0, len(order))
	for _, id := range order {
		d := drafts[id]
		f, err := entities.NewFormulation(id, d.batchSize, d.ratios, d.packagingCode, d.packagingUsed)
		if err != nil {
			return nil, fmt.Errorf("formulations CSV: %w", err)
		}
		formulations = append(formulations, f)
	}
	return formulations, nil
}

// LoadStock loads a stock snapshot from a CSV file. Repeated codes are summed.
func (l *Loader) LoadStock(filename, name string, asOf time.Time) (*entities.StockSnapshot, error) {
	records, err := readRecords(filename, "stock", stockHeader)
	if err != nil {
		return nil, err
	}

	quantities := make(map[entities.MaterialCode]entities.Quantity)
	for i, record := range records {
		code := entities.MaterialCode(strings.TrimSpace(record[0]))
		if code == "" {
			return nil, fmt.Errorf("stock CSV row %d: material_code cannot be empty", i+2)
		}
		qty, err := parseQuantity("quantity", record[1])
		if err != nil {
			return nil, fmt.Errorf("stock CSV row %d: %w", i+2, err)
		}
		quantities[code] += qty
	}

	return entities.NewStockSnapshot(name, asOf, quantities)
}

// LoadBatches loads the batch schedule from a CSV file
func (l *Loader) LoadBatches(filename string) ([]entities.Batch, error) {
	records, err := readRecords(filename, "batches", batchesHeader)
	if err != nil {
		return nil, err
	}

	var batches []entities.Batch
	for i, record := range records {
		batch, err := parseBatch(record)
		if err != nil {
			return nil, fmt.Errorf("batches CSV row %d: %w", i+2, err)
		}
		batches = append(batches, *batch)
	}

	return batches, nil
}

// readRecords opens filename, validates its header and returns the data rows
func readRecords(filename, kind string, expectedHeader []string) ([][]string, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s file %s: %w", kind, filename, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s CSV: %w", kind, err)
	}

	if len(records) < 2 {
		return nil, fmt.Errorf("%s CSV must have header and at least one data row", kind)
	}

	// Validate header
	header := records[0]
	if !validateHeader(header, expectedHeader) {
		return nil, fmt.Errorf("%s CSV header mismatch. Expected: %v, Got: %v", kind, expectedHeader, header)
	}

	for i, record := range records[1:] {
		if len(record) != len(expectedHeader) {
			return nil, fmt.Errorf("%s CSV row %d: expected %d columns, got %d", kind, i+2, len(expectedHeader), len(record))
		}
	}

	return records[1:], nil
}

// Helper functions for parsing CSV records

func validateHeader(actual, expected []string) bool {
	if len(actual) != len(expected) {
		return false
	}

	for i, col := range expected {
		// Spreadsheet exports often prefix the first cell with a UTF-8 BOM
		if strings.ToLower(strings.TrimSpace(strings.TrimPrefix(actual[i], "\ufeff"))) != col {
			return false
		}
	}

	return true
}

func parseMaterial(record []string) (*entities.Material, error) {
	leadTimeDays, err := parseOptionalInt("lead_time_days", record[3])
	if err != nil {
		return nil, err
	}
	safetyStock, err := parseOptionalQuantity("safety_stock", record[4])
	if err != nil {
		return nil, err
	}
	reorderQty, err := parseOptionalQuantity("reorder_qty", record[5])
	if err != nil {
		return nil, err
	}

	material, err := entities.NewMaterial(
		entities.MaterialCode(strings.TrimSpace(record[0])),
		strings.TrimSpace(record[1]),
		leadTimeDays,
		safetyStock,
		reorderQty,
		strings.TrimSpace(record[6]),
	)
	if err != nil {
		return nil, err
	}
	material.TallyCode = strings.TrimSpace(record[2])
	return material, nil
}

func parseBatch(record []string) (*entities.Batch, error) {
	date, err := entities.ParseDate(strings.TrimSpace(record[1]))
	if err != nil {
		return nil, err
	}
	batchSize, err := parseQuantity("batch_size", record[4])
	if err != nil {
		return nil, err
	}
	hours, err := parseOptionalQuantity("processing_time_hours", record[5])
	if err != nil {
		return nil, err
	}

	return entities.NewBatch(
		strings.TrimSpace(record[0]),
		date,
		strings.TrimSpace(record[2]),
		entities.FormulationID(strings.TrimSpace(record[3])),
		batchSize,
		float64(hours),
	)
}

func parseQuantity(field, s string) (entities.Quantity, error) {
	value, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %s", field, s)
	}
	return entities.Quantity(value), nil
}

func parseOptionalQuantity(field, s string) (entities.Quantity, error) {
	if strings.TrimSpace(s) == "" {
		return 0, nil
	}
	return parseQuantity(field, s)
}

func parseOptionalInt(field, s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	value, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %s", field, s)
	}
	return value, nil
}
