// Package aggregator folds scheduled batches into per-date material requirements.
package aggregator

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/vsinha/batchplan/pkg/application/services/scaler"
	"github.com/vsinha/batchplan/pkg/domain/entities"
)

// Formulations indexes the formulation master by id
type Formulations map[entities.FormulationID]*entities.Formulation

// IndexFormulations builds a Formulations index, rejecting duplicate ids
func IndexFormulations(list []*entities.Formulation) (Formulations, error) {
	index := make(Formulations, len(list))
	for _, f := range list {
		if f == nil {
			continue
		}
		if _, exists := index[f.ID]; exists {
			return nil, fmt.Errorf("duplicate formulation id: %s", f.ID)
		}
		index[f.ID] = f
	}
	return index, nil
}

type usageAccumulator struct {
	total   decimal.Decimal
	details []entities.UsageDetail
}

type dayAccumulator struct {
	date  entities.DailyRequirement
	order []entities.MaterialCode
	usage map[entities.MaterialCode]*usageAccumulator
}

// Aggregate scales every batch's formulation and sums the result under the batch date.
// Dates without batches are omitted and the result is sorted by date. Inside a date,
// materials keep the order in which they first appear and usage details keep batch input order.
func Aggregate(
	batches []entities.Batch,
	formulations Formulations,
	materials *entities.MaterialSet,
) ([]entities.DailyRequirement, error) {
	days := make(map[int64]*dayAccumulator)

	for i, batch := range batches {
		if batch.BatchSize <= 0 {
			return nil, fmt.Errorf("batch %d (%s): batch size must be positive, got %s", i+1, batch.Label(), batch.BatchSize)
		}
		formulation, ok := formulations[batch.FormulationID]
		if !ok || formulation == nil {
			return nil, &entities.FormulationError{
				FormulationID: batch.FormulationID,
				Reason:        fmt.Sprintf("not found in formulation master (batch %s)", batch.Label()),
			}
		}

		lines, err := scaler.ScaleLines(formulation, batch.BatchSize, materials)
		if err != nil {
			return nil, fmt.Errorf("batch %s: %w", batch.Label(), err)
		}

		date := entities.Date(batch.Date)
		key := date.Unix()
		day, exists := days[key]
		if !exists {
			day = &dayAccumulator{
				date:  entities.DailyRequirement{Date: date},
				usage: make(map[entities.MaterialCode]*usageAccumulator),
			}
			days[key] = day
		}

		ref := batch.Ref()
		ref.Date = date
		for _, line := range lines {
			if line.Quantity == 0 {
				continue
			}
			acc, seen := day.usage[line.MaterialCode]
			if !seen {
				acc = &usageAccumulator{total: decimal.Zero}
				day.usage[line.MaterialCode] = acc
				day.order = append(day.order, line.MaterialCode)
			}
			acc.total = acc.total.Add(line.Quantity.Decimal())
			acc.details = append(acc.details, entities.UsageDetail{Batch: ref, Quantity: line.Quantity})
		}
	}

	keys := make([]int64, 0, len(days))
	for key := range days {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	requirements := make([]entities.DailyRequirement, 0, len(keys))
	for _, key := range keys {
		day := days[key]
		req := day.date
		req.Materials = make([]entities.MaterialUsage, 0, len(day.order))
		for _, code := range day.order {
			acc := day.usage[code]
			total, _ := acc.total.Round(entities.QuantityPlaces).Float64()
			req.Materials = append(req.Materials, entities.MaterialUsage{
				MaterialCode: code,
				Quantity:     entities.Quantity(total),
				Details:      acc.details,
			})
		}
		requirements = append(requirements, req)
	}

	return requirements, nil
}
