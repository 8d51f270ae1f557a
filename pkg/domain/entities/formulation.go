package entities

import "fmt"

// FormulationRatio is the quantity of one material used by a reference-size batch
type FormulationRatio struct {
	MaterialCode MaterialCode
	Quantity     Quantity
}

// Formulation is a recipe expressed for a reference batch size
type Formulation struct {
	ID                  FormulationID
	BatchSize           Quantity
	Ratios              []FormulationRatio
	PackagingCode       MaterialCode
	PackagingAmountUsed Quantity
}

// NewFormulation creates a validated Formulation. The ratio slice is copied.
func NewFormulation(
	id FormulationID,
	batchSize Quantity,
	ratios []FormulationRatio,
	packagingCode MaterialCode,
	packagingAmountUsed Quantity,
) (*Formulation, error) {
	if string(id) == "" {
		return nil, fmt.Errorf("formulation id cannot be empty")
	}
	if batchSize <= 0 {
		return nil, &FormulationError{
			FormulationID: id,
			Reason:        fmt.Sprintf("reference batch size must be positive, got %s", batchSize),
		}
	}
	for i, r := range ratios {
		if string(r.MaterialCode) == "" {
			return nil, &FormulationError{
				FormulationID: id,
				Reason:        fmt.Sprintf("ratio line %d has an empty material code", i+1),
			}
		}
		if r.Quantity < 0 {
			return nil, &FormulationError{
				FormulationID: id,
				Reason:        fmt.Sprintf("ratio line %d (%s) has negative quantity %s", i+1, r.MaterialCode, r.Quantity),
			}
		}
	}
	if packagingAmountUsed < 0 {
		return nil, &FormulationError{
			FormulationID: id,
			Reason:        fmt.Sprintf("packaging amount cannot be negative, got %s", packagingAmountUsed),
		}
	}

	copied := make([]FormulationRatio, len(ratios))
	copy(copied, ratios)

	return &Formulation{
		ID:                  id,
		BatchSize:           batchSize,
		Ratios:              copied,
		PackagingCode:       packagingCode,
		PackagingAmountUsed: packagingAmountUsed,
	}, nil
}

// HasPackaging reports whether the formulation consumes a packaging material
func (f Formulation) HasPackaging() bool {
	return f.PackagingCode != "" && f.PackagingAmountUsed > 0
}

// MaterialCodes returns every material code the formulation references, packaging last
func (f Formulation) MaterialCodes() []MaterialCode {
	codes := make([]MaterialCode, 0, len(f.Ratios)+1)
	for _, r := range f.Ratios {
		codes = append(codes, r.MaterialCode)
	}
	if f.HasPackaging() {
		codes = append(codes, f.PackagingCode)
	}
	return codes
}
