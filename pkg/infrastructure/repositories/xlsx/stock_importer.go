// Package xlsx imports stock counts from the accounting spreadsheet export.
package xlsx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/vsinha/batchplan/pkg/domain/entities"
	"github.com/vsinha/batchplan/pkg/domain/repositories"
	"github.com/vsinha/batchplan/pkg/logger"
)

const (
	// StockSheet is the sheet holding raw material balances
	StockSheet = "RAW MATERIAL (MPD)"
	// HeaderRows precede the first data row of StockSheet
	HeaderRows = 10
)

// StockLine is one resolved row of the stock sheet
type StockLine struct {
	MaterialCode  entities.MaterialCode
	MaterialName  string
	Stock         entities.Quantity
	UnitOfMeasure string
}

// ImportResult is the outcome of a stock sheet import
type ImportResult struct {
	Snapshot *entities.StockSnapshot
	Lines    []StockLine
	// UnknownTallyCodes lists codes with a quantity but no material, in sheet order
	UnknownTallyCodes []string
}

// StockImporter maps tally codes in the stock sheet onto the material master
type StockImporter struct {
	materials repositories.MaterialRepository
}

func NewStockImporter(materials repositories.MaterialRepository) *StockImporter {
	return &StockImporter{materials: materials}
}

// ImportFile reads the stock sheet of the workbook at path
func (i *StockImporter) ImportFile(ctx context.Context, path, name string, asOf time.Time) (*ImportResult, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open xlsx file %s: %w", path, err)
	}
	defer f.Close()

	return i.importWorkbook(ctx, f, name, asOf)
}

// ImportReader reads the stock sheet of a workbook streamed from r
func (i *StockImporter) ImportReader(ctx context.Context, r io.Reader, name string, asOf time.Time) (*ImportResult, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read xlsx workbook: %w", err)
	}
	defer f.Close()

	return i.importWorkbook(ctx, f, name, asOf)
}

func (i *StockImporter) importWorkbook(ctx context.Context, f *excelize.File, name string, asOf time.Time) (*ImportResult, error) {
	if !hasSheet(f, StockSheet) {
		return nil, fmt.Errorf("xlsx workbook has no sheet %q", StockSheet)
	}

	rows, err := f.GetRows(StockSheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows from sheet %s: %w", StockSheet, err)
	}

	result := &ImportResult{}
	quantities := make(map[entities.MaterialCode]entities.Quantity)

	for idx, row := range rows {
		if idx < HeaderRows {
			continue
		}
		tallyCode, rawQty := cell(row, 0), cell(row, 1)
		if rawQty == "" {
			continue
		}
		qty, err := strconv.ParseFloat(strings.ReplaceAll(rawQty, ",", ""), 64)
		if err != nil {
			return nil, fmt.Errorf("stock sheet row %d: invalid quantity %q", idx+1, rawQty)
		}

		material, err := i.lookup(ctx, tallyCode)
		if err != nil {
			return nil, err
		}
		if material == nil {
			result.UnknownTallyCodes = append(result.UnknownTallyCodes, tallyCode)
			continue
		}

		result.Lines = append(result.Lines, StockLine{
			MaterialCode:  material.Code,
			MaterialName:  material.DisplayName(),
			Stock:         entities.Quantity(qty),
			UnitOfMeasure: material.UnitOfMeasure,
		})
		quantities[material.Code] += entities.Quantity(qty)
	}

	snapshot, err := entities.NewStockSnapshot(name, asOf, quantities)
	if err != nil {
		return nil, err
	}
	result.Snapshot = snapshot

	if len(result.UnknownTallyCodes) > 0 {
		logger.Log.Warn().
			Str("stock", name).
			Strs("tally_codes", result.UnknownTallyCodes).
			Msg("stock sheet lists tally codes with no material")
	}
	return result, nil
}

// lookup returns nil, nil when no material carries tallyCode
func (i *StockImporter) lookup(ctx context.Context, tallyCode string) (*entities.Material, error) {
	if tallyCode == "" {
		return nil, nil
	}
	material, err := i.materials.GetMaterialByTallyCode(ctx, tallyCode)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve tally code %s: %w", tallyCode, err)
	}
	return material, nil
}

func hasSheet(f *excelize.File, name string) bool {
	for _, sheet := range f.GetSheetList() {
		if sheet == name {
			return true
		}
	}
	return false
}

func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
