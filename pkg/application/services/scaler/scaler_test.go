package scaler

import (
	"errors"
	"math"
	"testing"

	"github.com/vsinha/batchplan/pkg/domain/entities"
)

func testMaterials(t *testing.T) *entities.MaterialSet {
	t.Helper()
	set, err := entities.NewMaterialSet([]entities.Material{
		{Code: "ACID"},
		{Code: "WATER"},
		{Code: "SURF"},
		{Code: "DRUM200", IsPackaging: true},
	})
	if err != nil {
		t.Fatalf("NewMaterialSet failed: %v", err)
	}
	return set
}

func emulsion() *entities.Formulation {
	return &entities.Formulation{
		ID:        "EMUL-01",
		BatchSize: 1000,
		Ratios: []entities.FormulationRatio{
			{MaterialCode: "ACID", Quantity: 390},
			{MaterialCode: "WATER", Quantity: 600},
			{MaterialCode: "SURF", Quantity: 10},
		},
		PackagingCode:       "DRUM200",
		PackagingAmountUsed: 5,
	}
}

func TestScale_ReferenceBatchSizeReturnsRatios(t *testing.T) {
	f := emulsion()
	got, err := Scale(f, 1000, testMaterials(t))
	if err != nil {
		t.Fatalf("Scale failed: %v", err)
	}

	expected := map[entities.MaterialCode]entities.Quantity{
		"ACID":    390,
		"WATER":   600,
		"SURF":    10,
		"DRUM200": 5,
	}
	if len(got) != len(expected) {
		t.Fatalf("Expected %d materials, got %d", len(expected), len(got))
	}
	for code, qty := range expected {
		if got[code] != qty {
			t.Errorf("Expected %s = %v, got %v", code, qty, got[code])
		}
	}
}

func TestScale_ReferenceBatchSizeKeepsZeroLines(t *testing.T) {
	f := &entities.Formulation{
		ID:        "F3",
		BatchSize: 100,
		Ratios: []entities.FormulationRatio{
			{MaterialCode: "ACID", Quantity: 40},
			{MaterialCode: "SURF", Quantity: 0},
			{MaterialCode: "WATER", Quantity: 60},
		},
	}

	got, err := Scale(f, f.BatchSize, testMaterials(t))
	if err != nil {
		t.Fatalf("Scale failed: %v", err)
	}

	if len(got) != len(f.Ratios) {
		t.Fatalf("Expected %d materials, got %d: %v", len(f.Ratios), len(got), got)
	}
	for _, ratio := range f.Ratios {
		qty, ok := got[ratio.MaterialCode]
		if !ok {
			t.Errorf("Expected %s in scaled table", ratio.MaterialCode)
			continue
		}
		if qty != ratio.Quantity {
			t.Errorf("Expected %s = %v, got %v", ratio.MaterialCode, ratio.Quantity, qty)
		}
	}
}

func TestScale_Linearity(t *testing.T) {
	f := emulsion()
	materials := testMaterials(t)

	for _, size := range []entities.Quantity{1, 250, 333, 1000, 2000, 1234.5} {
		got, err := Scale(f, size, materials)
		if err != nil {
			t.Fatalf("Scale(%v) failed: %v", size, err)
		}
		factor := float64(size) / float64(f.BatchSize)
		for _, ratio := range f.Ratios {
			want := factor * float64(ratio.Quantity)
			if math.Abs(float64(got[ratio.MaterialCode])-want) > 0.00005 {
				t.Errorf("size %v: expected %s = %v, got %v", size, ratio.MaterialCode, want, got[ratio.MaterialCode])
			}
		}
		wantPack := factor * float64(f.PackagingAmountUsed)
		if math.Abs(float64(got["DRUM200"])-wantPack) > 0.00005 {
			t.Errorf("size %v: expected packaging %v, got %v", size, wantPack, got["DRUM200"])
		}
	}
}

func TestScale_RoundsToFourPlaces(t *testing.T) {
	f := &entities.Formulation{
		ID:        "F3",
		BatchSize: 3,
		Ratios:    []entities.FormulationRatio{{MaterialCode: "ACID", Quantity: 1}},
	}
	got, err := Scale(f, 1, testMaterials(t))
	if err != nil {
		t.Fatalf("Scale failed: %v", err)
	}
	if got["ACID"] != 0.3333 {
		t.Errorf("Expected 0.3333, got %v", got["ACID"])
	}
}

func TestScaleLines_OrderAndAccumulation(t *testing.T) {
	f := &entities.Formulation{
		ID:        "F2",
		BatchSize: 100,
		Ratios: []entities.FormulationRatio{
			{MaterialCode: "WATER", Quantity: 50},
			{MaterialCode: "SURF", Quantity: 0},
			{MaterialCode: "ACID", Quantity: 20},
			{MaterialCode: "WATER", Quantity: 30},
		},
		PackagingCode:       "DRUM200",
		PackagingAmountUsed: 1,
	}

	lines, err := ScaleLines(f, 200, testMaterials(t))
	if err != nil {
		t.Fatalf("ScaleLines failed: %v", err)
	}

	expected := []Line{
		{MaterialCode: "WATER", Quantity: 160},
		{MaterialCode: "SURF", Quantity: 0},
		{MaterialCode: "ACID", Quantity: 40},
		{MaterialCode: "DRUM200", Quantity: 2},
	}
	if len(lines) != len(expected) {
		t.Fatalf("Expected %d lines, got %d: %v", len(expected), len(lines), lines)
	}
	for i := range expected {
		if lines[i] != expected[i] {
			t.Errorf("Line %d: expected %+v, got %+v", i, expected[i], lines[i])
		}
	}
}

func TestScale_Errors(t *testing.T) {
	materials := testMaterials(t)

	tests := []struct {
		name        string
		formulation *entities.Formulation
		batchSize   entities.Quantity
		sentinel    error
		expectError string
	}{
		{
			name:        "zero reference batch size",
			formulation: &entities.Formulation{ID: "F0", BatchSize: 0},
			batchSize:   100,
			sentinel:    entities.ErrInvalidFormulation,
			expectError: "invalid formulation F0: reference batch size must be positive, got 0",
		},
		{
			name: "unknown ratio material",
			formulation: &entities.Formulation{
				ID:        "F1",
				BatchSize: 100,
				Ratios:    []entities.FormulationRatio{{MaterialCode: "GLYCOL", Quantity: 0}},
			},
			batchSize:   100,
			sentinel:    entities.ErrUnknownMaterial,
			expectError: "unknown material: material GLYCOL referenced by formulation F1",
		},
		{
			name: "unknown packaging",
			formulation: &entities.Formulation{
				ID:                  "F2",
				BatchSize:           100,
				PackagingCode:       "IBC1000",
				PackagingAmountUsed: 1,
			},
			batchSize:   100,
			sentinel:    entities.ErrUnknownMaterial,
			expectError: "unknown material: material IBC1000 referenced by formulation F2 packaging",
		},
		{
			name: "negative ratio",
			formulation: &entities.Formulation{
				ID:        "F3",
				BatchSize: 100,
				Ratios:    []entities.FormulationRatio{{MaterialCode: "ACID", Quantity: -1}},
			},
			batchSize:   100,
			sentinel:    entities.ErrInvalidFormulation,
			expectError: "invalid formulation F3: ratio line 1 (ACID) has negative quantity -1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Scale(tt.formulation, tt.batchSize, materials)
			if err == nil {
				t.Fatal("Expected error, got none")
			}
			if !errors.Is(err, tt.sentinel) {
				t.Errorf("Expected %v, got %v", tt.sentinel, err)
			}
			if err.Error() != tt.expectError {
				t.Errorf("Expected error '%s', got '%s'", tt.expectError, err.Error())
			}
		})
	}
}

func TestScale_DoesNotMutateFormulation(t *testing.T) {
	f := emulsion()
	before := f.Ratios[0]

	if _, err := Scale(f, 5000, testMaterials(t)); err != nil {
		t.Fatalf("Scale failed: %v", err)
	}
	if f.Ratios[0] != before || f.BatchSize != 1000 {
		t.Error("Expected formulation to be left untouched")
	}
}
