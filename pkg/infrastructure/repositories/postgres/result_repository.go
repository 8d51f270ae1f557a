package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/vsinha/batchplan/pkg/application/dto"
)

// ResultRepository stores assembled run results as child tables of plan_runs
type ResultRepository struct {
	db *DB
}

func NewResultRepository(db *DB) *ResultRepository {
	return &ResultRepository{db: db}
}

type reorderRow struct {
	Date         string  `db:"reorder_date"`
	Kind         string  `db:"kind"`
	MaterialCode string  `db:"material_code"`
	MaterialName string  `db:"material_name"`
	Qty          float64 `db:"qty"`
	Reason       string  `db:"reason"`
	NeedDate     string  `db:"need_date"`
	Late         bool    `db:"late"`
}

const (
	reorderPlaced    = "placed"
	reorderArrived   = "arrived"
	reorderCompleted = "production_completed"
)

// flattenReorders turns the per-day reorder table into one row per placed,
// arrived or completed entry. Completed batches carry the batch name in material_name.
func flattenReorders(days []dto.ReorderDay) []reorderRow {
	var rows []reorderRow
	for _, day := range days {
		for _, line := range day.ReordersPlaced {
			rows = append(rows, reorderRow{
				Date: day.Date, Kind: reorderPlaced,
				MaterialCode: line.MaterialCode, MaterialName: line.MaterialName,
				Qty: line.Qty, Reason: line.Reason, NeedDate: line.NeedDate, Late: line.Late,
			})
		}
		for _, line := range day.ReordersArrived {
			rows = append(rows, reorderRow{
				Date: day.Date, Kind: reorderArrived,
				MaterialCode: line.MaterialCode, MaterialName: line.MaterialName,
				Qty: line.Qty, Reason: line.Reason,
			})
		}
		for _, done := range day.ProductionCompleted {
			rows = append(rows, reorderRow{
				Date: day.Date, Kind: reorderCompleted,
				MaterialCode: done.Formulation, MaterialName: done.Batch,
				Qty: done.BatchSize, Reason: done.Reactor,
			})
		}
	}
	return rows
}

// SaveResult replaces any stored rows for result.RunID
func (r *ResultRepository) SaveResult(ctx context.Context, result *dto.PlanResult) error {
	if result == nil || result.RunID == "" {
		return fmt.Errorf("plan result must have a run id")
	}
	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM plan_runs WHERE run_id = $1`, result.RunID); err != nil {
			return fmt.Errorf("failed to clear run %s: %w", result.RunID, err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO plan_runs (run_id, plan_name, stock_inventory, start_date, end_date)
			VALUES ($1, $2, $3, $4, $5)`,
			result.RunID, result.PlanName, result.StockInventory, result.StartDate, result.EndDate); err != nil {
			return fmt.Errorf("failed to insert run %s: %w", result.RunID, err)
		}

		for _, day := range result.MaterialRequirements {
			for _, m := range day.Materials {
				details, err := json.Marshal(m.UsageDetails)
				if err != nil {
					return fmt.Errorf("failed to encode usage details: %w", err)
				}
				if _, err := tx.ExecContext(ctx, `
					INSERT INTO run_material_requirements
						(run_id, req_date, material_code, material_name, usage, ending_stock, usage_details)
					VALUES ($1, $2, $3, $4, $5, $6, $7)`,
					result.RunID, day.Date, m.MaterialCode, m.MaterialName, m.Usage, m.EndingStock, string(details)); err != nil {
					return fmt.Errorf("failed to insert material requirement %s on %s: %w", m.MaterialCode, day.Date, err)
				}
			}
		}

		for _, o := range result.OverallMaterialRequirements {
			details, err := json.Marshal(o.UsageDetails)
			if err != nil {
				return fmt.Errorf("failed to encode usage details: %w", err)
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO run_overall_requirements
					(run_id, material_code, material_name, current_stock, total_used, total_reorder,
					 safety_stock, final_stock, usage_details)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
				result.RunID, o.MaterialCode, o.MaterialName, o.CurrentStock, o.TotalUsed, o.TotalReorder,
				o.SafetyStock, o.FinalStock, string(details)); err != nil {
				return fmt.Errorf("failed to insert overall requirement %s: %w", o.MaterialCode, err)
			}
		}

		for _, row := range flattenReorders(result.Reorders) {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO run_reorders
					(run_id, reorder_date, kind, material_code, material_name, qty, reason, need_date, late)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
				result.RunID, row.Date, row.Kind, row.MaterialCode, row.MaterialName,
				row.Qty, row.Reason, row.NeedDate, row.Late); err != nil {
				return fmt.Errorf("failed to insert reorder row on %s: %w", row.Date, err)
			}
		}
		return nil
	})
}
