package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/vsinha/batchplan/pkg/domain/entities"
	"github.com/vsinha/batchplan/pkg/domain/repositories"
)

type StockRepository struct {
	db *DB
}

func NewStockRepository(db *DB) *StockRepository {
	return &StockRepository{db: db}
}

var _ repositories.StockRepository = (*StockRepository)(nil)

type stockLineRow struct {
	MaterialCode string  `db:"material_code"`
	Quantity     float64 `db:"quantity"`
}

func (r *StockRepository) GetSnapshot(ctx context.Context, name string) (*entities.StockSnapshot, error) {
	var asOf sql.NullTime
	err := r.db.GetContext(ctx, &asOf, `SELECT as_of FROM stock_snapshots WHERE name = $1`, name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("stock snapshot %s: %w", name, repositories.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query stock snapshot %s: %w", name, err)
	}

	var lines []stockLineRow
	if err := r.db.SelectContext(ctx, &lines,
		`SELECT material_code, quantity FROM stock_lines WHERE snapshot_name = $1`, name); err != nil {
		return nil, fmt.Errorf("failed to query stock lines of %s: %w", name, err)
	}

	quantities := make(map[entities.MaterialCode]entities.Quantity, len(lines))
	for _, line := range lines {
		quantities[entities.MaterialCode(line.MaterialCode)] = entities.Quantity(line.Quantity)
	}
	var date time.Time
	if asOf.Valid {
		date = asOf.Time
	}
	return entities.NewStockSnapshot(name, date, quantities)
}

func (r *StockRepository) SaveSnapshot(ctx context.Context, snapshot *entities.StockSnapshot) error {
	if snapshot == nil || snapshot.Name == "" {
		return fmt.Errorf("stock snapshot must have a name")
	}
	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		asOf := sql.NullTime{Time: snapshot.AsOf, Valid: !snapshot.AsOf.IsZero()}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO stock_snapshots (name, as_of) VALUES ($1, $2)
			ON CONFLICT (name) DO UPDATE SET as_of = EXCLUDED.as_of`, snapshot.Name, asOf); err != nil {
			return fmt.Errorf("failed to upsert stock snapshot %s: %w", snapshot.Name, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM stock_lines WHERE snapshot_name = $1`, snapshot.Name); err != nil {
			return fmt.Errorf("failed to clear stock lines of %s: %w", snapshot.Name, err)
		}
		for _, code := range snapshot.Codes() {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO stock_lines (snapshot_name, material_code, quantity) VALUES ($1, $2, $3)`,
				snapshot.Name, string(code), float64(snapshot.Quantity(code))); err != nil {
				return fmt.Errorf("failed to insert stock line %s: %w", code, err)
			}
		}
		return nil
	})
}

type PlanRepository struct {
	db *DB
}

func NewPlanRepository(db *DB) *PlanRepository {
	return &PlanRepository{db: db}
}

var _ repositories.PlanRepository = (*PlanRepository)(nil)

type planRow struct {
	Name           string    `db:"name"`
	StockInventory string    `db:"stock_inventory"`
	CreatedAt      time.Time `db:"created_at"`
}

type batchRow struct {
	Line                int       `db:"line"`
	Name                string    `db:"name"`
	BatchDate           time.Time `db:"batch_date"`
	Reactor             string    `db:"reactor"`
	FormulationID       string    `db:"formulation_id"`
	BatchSize           float64   `db:"batch_size"`
	ProcessingTimeHours float64   `db:"processing_time_hours"`
	Remark              string    `db:"remark"`
	MarketingPerson     string    `db:"marketing_person"`
}

func (r batchRow) toEntity() entities.Batch {
	return entities.Batch{
		Name:                r.Name,
		Date:                entities.Date(r.BatchDate),
		Reactor:             r.Reactor,
		FormulationID:       entities.FormulationID(r.FormulationID),
		BatchSize:           entities.Quantity(r.BatchSize),
		ProcessingTimeHours: r.ProcessingTimeHours,
		Remark:              r.Remark,
		MarketingPerson:     r.MarketingPerson,
	}
}

func (r *PlanRepository) SavePlan(ctx context.Context, plan *entities.ProductionPlan) error {
	if plan == nil || plan.Name == "" {
		return fmt.Errorf("production plan must have a name")
	}
	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO production_plans (name, stock_inventory, created_at) VALUES ($1, $2, $3)
			ON CONFLICT (name) DO UPDATE SET
				stock_inventory = EXCLUDED.stock_inventory,
				created_at = EXCLUDED.created_at`,
			plan.Name, plan.StockInventory, plan.CreatedAt); err != nil {
			return fmt.Errorf("failed to upsert plan %s: %w", plan.Name, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM plan_batches WHERE plan_name = $1`, plan.Name); err != nil {
			return fmt.Errorf("failed to clear batches of %s: %w", plan.Name, err)
		}
		for i, b := range plan.Batches {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO plan_batches (plan_name, line, name, batch_date, reactor, formulation_id,
					batch_size, processing_time_hours, remark, marketing_person)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
				plan.Name, i+1, b.Name, b.Date, b.Reactor, string(b.FormulationID),
				float64(b.BatchSize), b.ProcessingTimeHours, b.Remark, b.MarketingPerson); err != nil {
				return fmt.Errorf("failed to insert batch %d of %s: %w", i+1, plan.Name, err)
			}
		}
		return nil
	})
}

func (r *PlanRepository) GetPlan(ctx context.Context, name string) (*entities.ProductionPlan, error) {
	var row planRow
	err := r.db.GetContext(ctx, &row,
		`SELECT name, stock_inventory, created_at FROM production_plans WHERE name = $1`, name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("plan %s: %w", name, repositories.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query plan %s: %w", name, err)
	}
	return r.withBatches(ctx, row)
}

func (r *PlanRepository) LatestPlan(ctx context.Context, stockInventory string) (*entities.ProductionPlan, error) {
	var row planRow
	err := r.db.GetContext(ctx, &row, `
		SELECT name, stock_inventory, created_at FROM production_plans
		WHERE stock_inventory = $1 ORDER BY created_at DESC LIMIT 1`, stockInventory)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("plan for stock %s: %w", stockInventory, repositories.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest plan for %s: %w", stockInventory, err)
	}
	return r.withBatches(ctx, row)
}

func (r *PlanRepository) withBatches(ctx context.Context, row planRow) (*entities.ProductionPlan, error) {
	var rows []batchRow
	if err := r.db.SelectContext(ctx, &rows, `
		SELECT line, name, batch_date, reactor, formulation_id, batch_size,
			processing_time_hours, remark, marketing_person
		FROM plan_batches WHERE plan_name = $1 ORDER BY line`, row.Name); err != nil {
		return nil, fmt.Errorf("failed to query batches of %s: %w", row.Name, err)
	}
	batches := make([]entities.Batch, 0, len(rows))
	for _, b := range rows {
		batches = append(batches, b.toEntity())
	}
	return &entities.ProductionPlan{
		Name:           row.Name,
		StockInventory: row.StockInventory,
		CreatedAt:      row.CreatedAt,
		Batches:        batches,
	}, nil
}
