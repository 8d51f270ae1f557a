// Package assembler shapes a planning run into the result tables consumed by
// callers and renders the usage diff between two runs.
package assembler

import (
	"sort"
	"time"

	"github.com/vsinha/batchplan/pkg/application/dto"
	"github.com/vsinha/batchplan/pkg/application/services/planner"
	"github.com/vsinha/batchplan/pkg/domain/entities"
)

// AssembleInput is everything the assembler reads
type AssembleInput struct {
	RunID        string
	PlanName     string
	Stock        *entities.StockSnapshot
	Materials    *entities.MaterialSet
	Batches      []entities.Batch
	Requirements []entities.DailyRequirement
	Outcome      *planner.PlanOutcome
	Warnings     []string
}

// Assemble builds the material_requirements, overall_material_requirements and reorders tables
func Assemble(in AssembleInput) *dto.PlanResult {
	outcome := in.Outcome
	if outcome == nil {
		outcome = &planner.PlanOutcome{}
	}

	result := &dto.PlanResult{
		RunID:                       in.RunID,
		PlanName:                    in.PlanName,
		MaterialRequirements:        dailyRows(in.Requirements, in.Materials, outcome),
		OverallMaterialRequirements: overallRows(in, outcome),
		Reorders:                    reorderRows(in.Batches, in.Materials, outcome),
		Warnings:                    append([]string(nil), in.Warnings...),
	}
	if in.Stock != nil {
		result.StockInventory = in.Stock.Name
	}
	if !outcome.Start.IsZero() {
		result.StartDate = entities.FormatDate(outcome.Start)
		result.EndDate = entities.FormatDate(outcome.End)
	}
	return result
}

func dailyRows(reqs []entities.DailyRequirement, materials *entities.MaterialSet, outcome *planner.PlanOutcome) []dto.DailyMaterialRequirements {
	rows := make([]dto.DailyMaterialRequirements, 0, len(reqs))
	for _, req := range reqs {
		day := dto.DailyMaterialRequirements{
			Date:      entities.FormatDate(req.Date),
			Materials: make([]dto.MaterialRequirement, 0, len(req.Materials)),
		}
		for _, usage := range req.Materials {
			ending, _ := outcome.BalanceOn(usage.MaterialCode, req.Date)
			day.Materials = append(day.Materials, dto.MaterialRequirement{
				MaterialCode: string(usage.MaterialCode),
				MaterialName: materials.Name(usage.MaterialCode),
				Usage:        float64(usage.Quantity.Round()),
				EndingStock:  float64(ending),
				UsageDetails: usageDetails(usage.Details),
			})
		}
		rows = append(rows, day)
	}
	return rows
}

func overallRows(in AssembleInput, outcome *planner.PlanOutcome) []dto.OverallMaterialRequirement {
	used := make(map[entities.MaterialCode]float64)
	details := make(map[entities.MaterialCode][]dto.UsageDetail)
	for _, req := range in.Requirements {
		for _, usage := range req.Materials {
			used[usage.MaterialCode] += float64(usage.Quantity)
			details[usage.MaterialCode] = append(details[usage.MaterialCode], usageDetails(usage.Details)...)
		}
	}

	reordered := make(map[entities.MaterialCode]float64)
	for _, e := range outcome.Events {
		reordered[e.MaterialCode] += float64(e.Quantity)
	}

	rows := make([]dto.OverallMaterialRequirement, 0, len(used))
	for _, code := range in.Materials.Codes() {
		if _, ok := used[code]; !ok {
			continue
		}
		material, _ := in.Materials.Get(code)
		rows = append(rows, dto.OverallMaterialRequirement{
			MaterialCode:  string(code),
			MaterialName:  material.DisplayName(),
			UnitOfMeasure: material.UnitOfMeasure,
			CurrentStock:  float64(in.Stock.Quantity(code)),
			TotalUsed:     float64(entities.Quantity(used[code]).Round()),
			TotalReorder:  float64(entities.Quantity(reordered[code]).Round()),
			SafetyStock:   float64(material.SafetyStock),
			FinalStock:    float64(outcome.FinalBalances[code]),
			UsageDetails:  details[code],
		})
	}
	return rows
}

func reorderRows(batches []entities.Batch, materials *entities.MaterialSet, outcome *planner.PlanOutcome) []dto.ReorderDay {
	days := make(map[int64]*dto.ReorderDay)
	row := func(date time.Time) *dto.ReorderDay {
		date = entities.Date(date)
		key := date.Unix()
		if r, ok := days[key]; ok {
			return r
		}
		r := &dto.ReorderDay{
			Date:                entities.FormatDate(date),
			ReordersPlaced:      make([]dto.ReorderLine, 0),
			ReordersArrived:     make([]dto.ReorderLine, 0),
			ProductionCompleted: make([]dto.ProductionCompleted, 0),
		}
		days[key] = r
		return r
	}

	for _, d := range outcome.Dates {
		row(d)
	}
	for _, e := range outcome.Events {
		r := row(e.PlacedOn)
		r.ReordersPlaced = append(r.ReordersPlaced, dto.ReorderLine{
			MaterialCode: string(e.MaterialCode),
			MaterialName: materials.Name(e.MaterialCode),
			Qty:          float64(e.Quantity),
			Reason:       e.Reason,
			NeedDate:     entities.FormatDate(e.NeedDate),
			Late:         e.Late,
		})
	}
	for _, a := range outcome.Arrivals {
		r := row(a.Date)
		r.ReordersArrived = append(r.ReordersArrived, dto.ReorderLine{
			MaterialCode: string(a.MaterialCode),
			MaterialName: materials.Name(a.MaterialCode),
			Qty:          float64(a.Quantity),
			Reason:       a.Reason,
		})
	}
	for _, b := range batches {
		r := row(b.CompletionDate())
		r.ProductionCompleted = append(r.ProductionCompleted, dto.ProductionCompleted{
			Batch:       b.Name,
			Reactor:     b.Reactor,
			Formulation: string(b.FormulationID),
			BatchSize:   float64(b.BatchSize),
			StartDate:   entities.FormatDate(b.Date),
		})
	}

	keys := make([]int64, 0, len(days))
	for key := range days {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	rows := make([]dto.ReorderDay, 0, len(keys))
	for _, key := range keys {
		rows = append(rows, *days[key])
	}
	return rows
}

func usageDetails(details []entities.UsageDetail) []dto.UsageDetail {
	out := make([]dto.UsageDetail, 0, len(details))
	for _, d := range details {
		out = append(out, dto.UsageDetail{
			Batch:       d.Batch.Name,
			Date:        entities.FormatDate(d.Batch.Date),
			Reactor:     d.Batch.Reactor,
			Formulation: string(d.Batch.FormulationID),
			BatchSize:   float64(d.Batch.BatchSize),
			Quantity:    float64(d.Quantity),
		})
	}
	return out
}
