package postgres

import (
	"context"
	"fmt"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS materials (
		position         SERIAL,
		code             TEXT PRIMARY KEY,
		name             TEXT NOT NULL DEFAULT '',
		tally_code       TEXT NOT NULL DEFAULT '',
		lead_time_days   INTEGER NOT NULL DEFAULT 0,
		safety_stock     DOUBLE PRECISION NOT NULL DEFAULT 0,
		reorder_quantity DOUBLE PRECISION NOT NULL DEFAULT 0,
		unit_of_measure  TEXT NOT NULL DEFAULT 'kg',
		is_raw_material  BOOLEAN NOT NULL DEFAULT TRUE,
		is_produced      BOOLEAN NOT NULL DEFAULT FALSE,
		is_packaging     BOOLEAN NOT NULL DEFAULT FALSE,
		is_imported      BOOLEAN NOT NULL DEFAULT FALSE
	)`,
	`CREATE INDEX IF NOT EXISTS materials_tally_code_idx ON materials (lower(tally_code))`,
	`CREATE TABLE IF NOT EXISTS formulations (
		id                    TEXT PRIMARY KEY,
		batch_size            DOUBLE PRECISION NOT NULL,
		packaging_code        TEXT NOT NULL DEFAULT '',
		packaging_amount_used DOUBLE PRECISION NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS formulation_ratios (
		formulation_id TEXT NOT NULL REFERENCES formulations (id) ON DELETE CASCADE,
		line           INTEGER NOT NULL,
		material_code  TEXT NOT NULL,
		quantity       DOUBLE PRECISION NOT NULL,
		PRIMARY KEY (formulation_id, line)
	)`,
	`CREATE TABLE IF NOT EXISTS stock_snapshots (
		name  TEXT PRIMARY KEY,
		as_of DATE
	)`,
	`CREATE TABLE IF NOT EXISTS stock_lines (
		snapshot_name TEXT NOT NULL REFERENCES stock_snapshots (name) ON DELETE CASCADE,
		material_code TEXT NOT NULL,
		quantity      DOUBLE PRECISION NOT NULL,
		PRIMARY KEY (snapshot_name, material_code)
	)`,
	`CREATE TABLE IF NOT EXISTS production_plans (
		name            TEXT PRIMARY KEY,
		stock_inventory TEXT NOT NULL,
		created_at      TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS plan_batches (
		plan_name             TEXT NOT NULL REFERENCES production_plans (name) ON DELETE CASCADE,
		line                  INTEGER NOT NULL,
		name                  TEXT NOT NULL DEFAULT '',
		batch_date            DATE NOT NULL,
		reactor               TEXT NOT NULL,
		formulation_id        TEXT NOT NULL,
		batch_size            DOUBLE PRECISION NOT NULL,
		processing_time_hours DOUBLE PRECISION NOT NULL DEFAULT 0,
		remark                TEXT NOT NULL DEFAULT '',
		marketing_person      TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (plan_name, line)
	)`,
	`CREATE TABLE IF NOT EXISTS plan_runs (
		run_id          TEXT PRIMARY KEY,
		plan_name       TEXT NOT NULL DEFAULT '',
		stock_inventory TEXT NOT NULL DEFAULT '',
		start_date      TEXT NOT NULL DEFAULT '',
		end_date        TEXT NOT NULL DEFAULT '',
		created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS run_material_requirements (
		run_id        TEXT NOT NULL REFERENCES plan_runs (run_id) ON DELETE CASCADE,
		req_date      TEXT NOT NULL,
		material_code TEXT NOT NULL,
		material_name TEXT NOT NULL,
		usage         DOUBLE PRECISION NOT NULL,
		ending_stock  DOUBLE PRECISION NOT NULL,
		usage_details JSONB NOT NULL DEFAULT '[]'
	)`,
	`CREATE TABLE IF NOT EXISTS run_overall_requirements (
		run_id        TEXT NOT NULL REFERENCES plan_runs (run_id) ON DELETE CASCADE,
		material_code TEXT NOT NULL,
		material_name TEXT NOT NULL,
		current_stock DOUBLE PRECISION NOT NULL,
		total_used    DOUBLE PRECISION NOT NULL,
		total_reorder DOUBLE PRECISION NOT NULL,
		safety_stock  DOUBLE PRECISION NOT NULL,
		final_stock   DOUBLE PRECISION NOT NULL,
		usage_details JSONB NOT NULL DEFAULT '[]'
	)`,
	`CREATE TABLE IF NOT EXISTS run_reorders (
		run_id        TEXT NOT NULL REFERENCES plan_runs (run_id) ON DELETE CASCADE,
		reorder_date  TEXT NOT NULL,
		kind          TEXT NOT NULL,
		material_code TEXT NOT NULL DEFAULT '',
		material_name TEXT NOT NULL DEFAULT '',
		qty           DOUBLE PRECISION NOT NULL DEFAULT 0,
		reason        TEXT NOT NULL DEFAULT '',
		need_date     TEXT NOT NULL DEFAULT '',
		late          BOOLEAN NOT NULL DEFAULT FALSE
	)`,
}

// Migrate creates any missing tables
func (db *DB) Migrate(ctx context.Context) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration step %d failed: %w", i+1, err)
		}
	}
	return nil
}
