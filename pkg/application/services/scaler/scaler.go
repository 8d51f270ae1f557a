// Package scaler converts a formulation's reference ratios into the material
// quantities consumed by one batch of a given size.
package scaler

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/vsinha/batchplan/pkg/domain/entities"
)

// Line is one material's scaled quantity
type Line struct {
	MaterialCode entities.MaterialCode
	Quantity     entities.Quantity
}

// Scale returns the quantity of every material consumed by a batch of batchSize.
// Quantities are ratio × batchSize / reference batch size, rounded to four places.
func Scale(
	formulation *entities.Formulation,
	batchSize entities.Quantity,
	materials *entities.MaterialSet,
) (map[entities.MaterialCode]entities.Quantity, error) {
	lines, err := ScaleLines(formulation, batchSize, materials)
	if err != nil {
		return nil, err
	}

	result := make(map[entities.MaterialCode]entities.Quantity, len(lines))
	for _, line := range lines {
		result[line.MaterialCode] = line.Quantity
	}
	return result, nil
}

// ScaleLines is Scale with the formulation's material order preserved, packaging last.
// A code repeated in the ratio table is merged into its first line. Zero-quantity ratio
// lines are kept; packaging is only added when its amount is non-zero.
func ScaleLines(
	formulation *entities.Formulation,
	batchSize entities.Quantity,
	materials *entities.MaterialSet,
) ([]Line, error) {
	if formulation == nil {
		return nil, fmt.Errorf("formulation cannot be nil")
	}
	if formulation.BatchSize <= 0 {
		return nil, &entities.FormulationError{
			FormulationID: formulation.ID,
			Reason:        fmt.Sprintf("reference batch size must be positive, got %s", formulation.BatchSize),
		}
	}
	if batchSize < 0 {
		return nil, fmt.Errorf("batch size cannot be negative, got %s", batchSize)
	}

	source := fmt.Sprintf("formulation %s", formulation.ID)
	reference := formulation.BatchSize.Decimal()
	size := batchSize.Decimal()

	totals := make(map[entities.MaterialCode]decimal.Decimal)
	var order []entities.MaterialCode
	add := func(code entities.MaterialCode, perReference entities.Quantity) {
		if _, ok := totals[code]; !ok {
			order = append(order, code)
			totals[code] = decimal.Zero
		}
		totals[code] = totals[code].Add(perReference.Decimal().Mul(size).Div(reference))
	}

	for i, ratio := range formulation.Ratios {
		if ratio.Quantity < 0 {
			return nil, &entities.FormulationError{
				FormulationID: formulation.ID,
				Reason:        fmt.Sprintf("ratio line %d (%s) has negative quantity %s", i+1, ratio.MaterialCode, ratio.Quantity),
			}
		}
		if !materials.Has(ratio.MaterialCode) {
			return nil, entities.NewUnknownMaterialError(ratio.MaterialCode, source)
		}
		add(ratio.MaterialCode, ratio.Quantity)
	}

	if formulation.PackagingCode != "" && formulation.PackagingAmountUsed != 0 {
		if formulation.PackagingAmountUsed < 0 {
			return nil, &entities.FormulationError{
				FormulationID: formulation.ID,
				Reason:        fmt.Sprintf("packaging amount cannot be negative, got %s", formulation.PackagingAmountUsed),
			}
		}
		if !materials.Has(formulation.PackagingCode) {
			return nil, entities.NewUnknownMaterialError(formulation.PackagingCode, source+" packaging")
		}
		add(formulation.PackagingCode, formulation.PackagingAmountUsed)
	}

	lines := make([]Line, 0, len(order))
	for _, code := range order {
		f, _ := totals[code].Round(entities.QuantityPlaces).Float64()
		lines = append(lines, Line{MaterialCode: code, Quantity: entities.Quantity(f)})
	}
	return lines, nil
}
