package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/vsinha/batchplan/pkg/domain/entities"
	"github.com/vsinha/batchplan/pkg/domain/repositories"
)

type materialRow struct {
	Code            string  `db:"code"`
	Name            string  `db:"name"`
	TallyCode       string  `db:"tally_code"`
	LeadTimeDays    int     `db:"lead_time_days"`
	SafetyStock     float64 `db:"safety_stock"`
	ReorderQuantity float64 `db:"reorder_quantity"`
	UnitOfMeasure   string  `db:"unit_of_measure"`
	IsRawMaterial   bool    `db:"is_raw_material"`
	IsProduced      bool    `db:"is_produced"`
	IsPackaging     bool    `db:"is_packaging"`
	IsImported      bool    `db:"is_imported"`
}

func newMaterialRow(m *entities.Material) materialRow {
	return materialRow{
		Code:            string(m.Code),
		Name:            m.Name,
		TallyCode:       m.TallyCode,
		LeadTimeDays:    m.LeadTimeDays,
		SafetyStock:     float64(m.SafetyStock),
		ReorderQuantity: float64(m.ReorderQuantity),
		UnitOfMeasure:   m.UnitOfMeasure,
		IsRawMaterial:   m.IsRawMaterial,
		IsProduced:      m.IsProduced,
		IsPackaging:     m.IsPackaging,
		IsImported:      m.IsImported,
	}
}

func (r materialRow) toEntity() *entities.Material {
	return &entities.Material{
		Code:            entities.MaterialCode(r.Code),
		Name:            r.Name,
		TallyCode:       r.TallyCode,
		LeadTimeDays:    r.LeadTimeDays,
		SafetyStock:     entities.Quantity(r.SafetyStock),
		ReorderQuantity: entities.Quantity(r.ReorderQuantity),
		UnitOfMeasure:   r.UnitOfMeasure,
		IsRawMaterial:   r.IsRawMaterial,
		IsProduced:      r.IsProduced,
		IsPackaging:     r.IsPackaging,
		IsImported:      r.IsImported,
	}
}

const materialColumns = `code, name, tally_code, lead_time_days, safety_stock, reorder_quantity,
	unit_of_measure, is_raw_material, is_produced, is_packaging, is_imported`

type MaterialRepository struct {
	db *DB
}

func NewMaterialRepository(db *DB) *MaterialRepository {
	return &MaterialRepository{db: db}
}

var _ repositories.MaterialRepository = (*MaterialRepository)(nil)

func (r *MaterialRepository) GetMaterial(ctx context.Context, code entities.MaterialCode) (*entities.Material, error) {
	var row materialRow
	err := r.db.GetContext(ctx, &row, `SELECT `+materialColumns+` FROM materials WHERE code = $1`, string(code))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("material %s: %w", code, repositories.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query material %s: %w", code, err)
	}
	return row.toEntity(), nil
}

func (r *MaterialRepository) GetMaterialByTallyCode(ctx context.Context, tallyCode string) (*entities.Material, error) {
	var row materialRow
	err := r.db.GetContext(ctx, &row,
		`SELECT `+materialColumns+` FROM materials WHERE lower(tally_code) = lower($1) ORDER BY position LIMIT 1`,
		strings.TrimSpace(tallyCode))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("tally code %s: %w", tallyCode, repositories.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query tally code %s: %w", tallyCode, err)
	}
	return row.toEntity(), nil
}

// GetAllMaterials returns materials in insertion order
func (r *MaterialRepository) GetAllMaterials(ctx context.Context) ([]*entities.Material, error) {
	var rows []materialRow
	if err := r.db.SelectContext(ctx, &rows, `SELECT `+materialColumns+` FROM materials ORDER BY position`); err != nil {
		return nil, fmt.Errorf("failed to query materials: %w", err)
	}
	out := make([]*entities.Material, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toEntity())
	}
	return out, nil
}

// LoadMaterials upserts materials; an updated material keeps its original position
func (r *MaterialRepository) LoadMaterials(ctx context.Context, materials []*entities.Material) error {
	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		for _, m := range materials {
			if m == nil {
				continue
			}
			_, err := tx.NamedExecContext(ctx, `
				INSERT INTO materials (`+materialColumns+`)
				VALUES (:code, :name, :tally_code, :lead_time_days, :safety_stock, :reorder_quantity,
					:unit_of_measure, :is_raw_material, :is_produced, :is_packaging, :is_imported)
				ON CONFLICT (code) DO UPDATE SET
					name = EXCLUDED.name,
					tally_code = EXCLUDED.tally_code,
					lead_time_days = EXCLUDED.lead_time_days,
					safety_stock = EXCLUDED.safety_stock,
					reorder_quantity = EXCLUDED.reorder_quantity,
					unit_of_measure = EXCLUDED.unit_of_measure,
					is_raw_material = EXCLUDED.is_raw_material,
					is_produced = EXCLUDED.is_produced,
					is_packaging = EXCLUDED.is_packaging,
					is_imported = EXCLUDED.is_imported`,
				newMaterialRow(m))
			if err != nil {
				return fmt.Errorf("failed to upsert material %s: %w", m.Code, err)
			}
		}
		return nil
	})
}

type formulationRow struct {
	ID                  string  `db:"id"`
	BatchSize           float64 `db:"batch_size"`
	PackagingCode       string  `db:"packaging_code"`
	PackagingAmountUsed float64 `db:"packaging_amount_used"`
}

type ratioRow struct {
	FormulationID string  `db:"formulation_id"`
	Line          int     `db:"line"`
	MaterialCode  string  `db:"material_code"`
	Quantity      float64 `db:"quantity"`
}

// assembleFormulations joins header rows with their ratio lines, keeping header order
func assembleFormulations(headers []formulationRow, ratios []ratioRow) []*entities.Formulation {
	byID := make(map[string]*entities.Formulation, len(headers))
	out := make([]*entities.Formulation, 0, len(headers))
	for _, h := range headers {
		f := &entities.Formulation{
			ID:                  entities.FormulationID(h.ID),
			BatchSize:           entities.Quantity(h.BatchSize),
			PackagingCode:       entities.MaterialCode(h.PackagingCode),
			PackagingAmountUsed: entities.Quantity(h.PackagingAmountUsed),
		}
		byID[h.ID] = f
		out = append(out, f)
	}
	for _, r := range ratios {
		if f, ok := byID[r.FormulationID]; ok {
			f.Ratios = append(f.Ratios, entities.FormulationRatio{
				MaterialCode: entities.MaterialCode(r.MaterialCode),
				Quantity:     entities.Quantity(r.Quantity),
			})
		}
	}
	return out
}

type FormulationRepository struct {
	db *DB
}

func NewFormulationRepository(db *DB) *FormulationRepository {
	return &FormulationRepository{db: db}
}

var _ repositories.FormulationRepository = (*FormulationRepository)(nil)

func (r *FormulationRepository) GetFormulation(ctx context.Context, id entities.FormulationID) (*entities.Formulation, error) {
	var header formulationRow
	err := r.db.GetContext(ctx, &header,
		`SELECT id, batch_size, packaging_code, packaging_amount_used FROM formulations WHERE id = $1`, string(id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("formulation %s: %w", id, repositories.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query formulation %s: %w", id, err)
	}

	var ratios []ratioRow
	if err := r.db.SelectContext(ctx, &ratios,
		`SELECT formulation_id, line, material_code, quantity FROM formulation_ratios
		 WHERE formulation_id = $1 ORDER BY line`, string(id)); err != nil {
		return nil, fmt.Errorf("failed to query ratios of %s: %w", id, err)
	}
	return assembleFormulations([]formulationRow{header}, ratios)[0], nil
}

func (r *FormulationRepository) GetAllFormulations(ctx context.Context) ([]*entities.Formulation, error) {
	var headers []formulationRow
	if err := r.db.SelectContext(ctx, &headers,
		`SELECT id, batch_size, packaging_code, packaging_amount_used FROM formulations ORDER BY id`); err != nil {
		return nil, fmt.Errorf("failed to query formulations: %w", err)
	}
	var ratios []ratioRow
	if err := r.db.SelectContext(ctx, &ratios,
		`SELECT formulation_id, line, material_code, quantity FROM formulation_ratios ORDER BY formulation_id, line`); err != nil {
		return nil, fmt.Errorf("failed to query formulation ratios: %w", err)
	}
	return assembleFormulations(headers, ratios), nil
}

// LoadFormulations replaces each formulation and its ratio lines
func (r *FormulationRepository) LoadFormulations(ctx context.Context, formulations []*entities.Formulation) error {
	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		for _, f := range formulations {
			if f == nil {
				continue
			}
			_, err := tx.ExecContext(ctx, `
				INSERT INTO formulations (id, batch_size, packaging_code, packaging_amount_used)
				VALUES ($1, $2, $3, $4)
				ON CONFLICT (id) DO UPDATE SET
					batch_size = EXCLUDED.batch_size,
					packaging_code = EXCLUDED.packaging_code,
					packaging_amount_used = EXCLUDED.packaging_amount_used`,
				string(f.ID), float64(f.BatchSize), string(f.PackagingCode), float64(f.PackagingAmountUsed))
			if err != nil {
				return fmt.Errorf("failed to upsert formulation %s: %w", f.ID, err)
			}
			if _, err := tx.ExecContext(ctx, `DELETE FROM formulation_ratios WHERE formulation_id = $1`, string(f.ID)); err != nil {
				return fmt.Errorf("failed to clear ratios of %s: %w", f.ID, err)
			}
			for i, ratio := range f.Ratios {
				_, err := tx.ExecContext(ctx,
					`INSERT INTO formulation_ratios (formulation_id, line, material_code, quantity) VALUES ($1, $2, $3, $4)`,
					string(f.ID), i+1, string(ratio.MaterialCode), float64(ratio.Quantity))
				if err != nil {
					return fmt.Errorf("failed to insert ratio %d of %s: %w", i+1, f.ID, err)
				}
			}
		}
		return nil
	})
}
