package entities

import "testing"

func TestMaterial_Validation(t *testing.T) {
	validMaterial, err := NewMaterial("RM-ACID", "Acrylic Acid", 10, 500, 440, "kg")
	if err != nil {
		t.Fatalf("Expected valid material creation to succeed: %v", err)
	}
	if validMaterial.SafetyStock != 500 {
		t.Errorf("Expected safety stock 500, got %v", validMaterial.SafetyStock)
	}
	if !validMaterial.IsRawMaterial {
		t.Error("Expected new material to be flagged as raw material")
	}

	defaulted, err := NewMaterial("RM-WATER", "", 0, 0, 0, "")
	if err != nil {
		t.Fatalf("Expected zero-policy material creation to succeed: %v", err)
	}
	if defaulted.UnitOfMeasure != "kg" {
		t.Errorf("Expected default unit kg, got %s", defaulted.UnitOfMeasure)
	}
	if defaulted.DisplayName() != "RM-WATER" {
		t.Errorf("Expected display name to fall back to code, got %s", defaulted.DisplayName())
	}

	testCases := []struct {
		name        string
		code        MaterialCode
		leadTime    int
		safety      Quantity
		reorderQty  Quantity
		expectError string
	}{
		{"empty code", "", 1, 0, 0, "material code cannot be empty"},
		{"negative lead time", "RM", -1, 0, 0, "lead time cannot be negative, got -1"},
		{"negative safety stock", "RM", 1, -1, 0, "safety stock cannot be negative, got -1"},
		{"negative reorder quantity", "RM", 1, 0, -2.5, "reorder quantity cannot be negative, got -2.5"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewMaterial(tc.code, "desc", tc.leadTime, tc.safety, tc.reorderQty, "kg")
			if err == nil {
				t.Fatalf("Expected error for %s, but got none", tc.name)
			}
			if err.Error() != tc.expectError {
				t.Errorf("Expected error '%s', got '%s'", tc.expectError, err.Error())
			}
		})
	}
}

func TestMaterialSet_OrderAndLookup(t *testing.T) {
	set, err := NewMaterialSet([]Material{
		{Code: "ZINC", Name: "Zinc Oxide"},
		{Code: "ACID", Name: "Acrylic Acid"},
		{Code: "DRUM"},
	})
	if err != nil {
		t.Fatalf("NewMaterialSet failed: %v", err)
	}

	codes := set.Codes()
	expected := []MaterialCode{"ZINC", "ACID", "DRUM"}
	if len(codes) != len(expected) {
		t.Fatalf("Expected %d codes, got %d", len(expected), len(codes))
	}
	for i := range expected {
		if codes[i] != expected[i] {
			t.Errorf("Expected code %s at position %d, got %s", expected[i], i, codes[i])
		}
	}

	if !set.Has("ACID") {
		t.Error("Expected ACID to be in the set")
	}
	if set.Has("MISSING") {
		t.Error("Expected MISSING not to be in the set")
	}
	if set.Name("ZINC") != "Zinc Oxide" {
		t.Errorf("Expected name Zinc Oxide, got %s", set.Name("ZINC"))
	}
	if set.Name("MISSING") != "MISSING" {
		t.Errorf("Expected unknown code to be its own name, got %s", set.Name("MISSING"))
	}

	// Callers must not be able to reorder the set through the returned slice
	codes[0] = "MUTATED"
	if set.Codes()[0] != "ZINC" {
		t.Error("Expected Codes to return a copy")
	}

	_, err = NewMaterialSet([]Material{{Code: "A"}, {Code: "A"}})
	if err == nil {
		t.Fatal("Expected duplicate code error")
	}
	if err.Error() != "duplicate material code: A" {
		t.Errorf("Expected 'duplicate material code: A', got '%s'", err.Error())
	}
}
