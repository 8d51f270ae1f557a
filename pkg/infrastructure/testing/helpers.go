package testing

import (
	"context"
	"time"

	"github.com/vsinha/batchplan/pkg/domain/entities"
	"github.com/vsinha/batchplan/pkg/infrastructure/repositories/memory"
)

// EmulsionStock names the snapshot loaded by BuildEmulsionTestData
const EmulsionStock = "STOCK-2025-01-01"

// EmulsionStart is the as-of date of EmulsionStock
var EmulsionStart = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

// mustCreateMaterial is a helper for tests - panics on validation error
func mustCreateMaterial(
	code, name, tallyCode string,
	leadTime int,
	safetyStock, reorderQty entities.Quantity,
	uom string,
) *entities.Material {
	material, err := entities.NewMaterial(entities.MaterialCode(code), name, leadTime, safetyStock, reorderQty, uom)
	if err != nil {
		panic(err)
	}
	material.TallyCode = tallyCode
	return material
}

// mustCreateFormulation is a helper for tests - panics on validation error
func mustCreateFormulation(
	id string,
	batchSize entities.Quantity,
	packaging string,
	packagingUsed entities.Quantity,
	ratios ...entities.FormulationRatio,
) *entities.Formulation {
	f, err := entities.NewFormulation(entities.FormulationID(id), batchSize, ratios, entities.MaterialCode(packaging), packagingUsed)
	if err != nil {
		panic(err)
	}
	return f
}

// mustCreateBatch is a helper for tests - panics on validation error
func mustCreateBatch(name string, date time.Time, reactor, formulation string, size entities.Quantity, hours float64) entities.Batch {
	b, err := entities.NewBatch(name, date, reactor, entities.FormulationID(formulation), size, hours)
	if err != nil {
		panic(err)
	}
	return *b
}

func ratio(code string, qty entities.Quantity) entities.FormulationRatio {
	return entities.FormulationRatio{MaterialCode: entities.MaterialCode(code), Quantity: qty}
}

// BuildEmulsionTestData builds a small emulsion plant: one acrylic emulsion
// formulation packed in drums and a primer, with 1000 kg of acid on hand.
func BuildEmulsionTestData() (*memory.MaterialRepository, *memory.FormulationRepository, *memory.StockRepository, *memory.PlanRepository) {
	ctx := context.Background()
	materialRepo := memory.NewMaterialRepository(4)
	formulationRepo := memory.NewFormulationRepository()
	stockRepo := memory.NewStockRepository()
	planRepo := memory.NewPlanRepository()

	materials := []*entities.Material{
		mustCreateMaterial("ACID", "Acrylic Acid", "RM-001", 10, 500, 440, "kg"),
		mustCreateMaterial("WATER", "Process Water", "RM-002", 0, 0, 0, "kg"),
		mustCreateMaterial("ZINC", "Zinc Oxide", "RM-003", 7, 50, 200, "kg"),
		mustCreateMaterial("DRUM200", "Drum 200L", "PK-200", 5, 10, 50, "ea"),
	}
	materials[3].IsPackaging = true
	materials[3].IsRawMaterial = false

	formulations := []*entities.Formulation{
		mustCreateFormulation("EMUL", 1000, "DRUM200", 5,
			ratio("ACID", 780),
			ratio("WATER", 220),
		),
		mustCreateFormulation("PRIMER", 500, "", 0,
			ratio("ZINC", 100),
			ratio("ACID", 50),
			ratio("WATER", 350),
		),
	}

	stock, err := entities.NewStockSnapshot(EmulsionStock, EmulsionStart, map[entities.MaterialCode]entities.Quantity{
		"ACID":    1000,
		"WATER":   5000,
		"ZINC":    300,
		"DRUM200": 20,
	})
	if err != nil {
		panic(err)
	}

	if err := materialRepo.LoadMaterials(ctx, materials); err != nil {
		panic(err)
	}
	if err := formulationRepo.LoadFormulations(ctx, formulations); err != nil {
		panic(err)
	}
	if err := stockRepo.SaveSnapshot(ctx, stock); err != nil {
		panic(err)
	}

	return materialRepo, formulationRepo, stockRepo, planRepo
}

// EmulsionBatches is the week's schedule: one EMUL batch that drives ACID below safety stock
func EmulsionBatches() []entities.Batch {
	return []entities.Batch{
		mustCreateBatch("B-001", time.Date(2025, 1, 21, 0, 0, 0, 0, time.UTC), "R1", "EMUL", 1000, 30),
	}
}

// QuietBatches is a schedule that needs no reorders
func QuietBatches() []entities.Batch {
	return []entities.Batch{
		mustCreateBatch("B-101", time.Date(2025, 1, 21, 0, 0, 0, 0, time.UTC), "R2", "PRIMER", 250, 8),
	}
}
