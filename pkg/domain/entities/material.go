package entities

import "fmt"

// Material represents a raw material, intermediate or packaging item with its replenishment policy
type Material struct {
	Code            MaterialCode
	Name            string
	TallyCode       string
	LeadTimeDays    int
	SafetyStock     Quantity
	ReorderQuantity Quantity
	UnitOfMeasure   string
	IsRawMaterial   bool
	IsProduced      bool
	IsPackaging     bool
	IsImported      bool
}

// NewMaterial creates a validated Material. An empty unit of measure defaults to kg.
func NewMaterial(
	code MaterialCode,
	name string,
	leadTimeDays int,
	safetyStock, reorderQuantity Quantity,
	unitOfMeasure string,
) (*Material, error) {
	if string(code) == "" {
		return nil, fmt.Errorf("material code cannot be empty")
	}
	if leadTimeDays < 0 {
		return nil, fmt.Errorf("lead time cannot be negative, got %d", leadTimeDays)
	}
	if safetyStock < 0 {
		return nil, fmt.Errorf("safety stock cannot be negative, got %s", safetyStock)
	}
	if reorderQuantity < 0 {
		return nil, fmt.Errorf("reorder quantity cannot be negative, got %s", reorderQuantity)
	}
	if unitOfMeasure == "" {
		unitOfMeasure = "kg"
	}

	return &Material{
		Code:            code,
		Name:            name,
		LeadTimeDays:    leadTimeDays,
		SafetyStock:     safetyStock,
		ReorderQuantity: reorderQuantity,
		UnitOfMeasure:   unitOfMeasure,
		IsRawMaterial:   true,
	}, nil
}

// DisplayName returns the material name, falling back to its code
func (m Material) DisplayName() string {
	if m.Name == "" {
		return string(m.Code)
	}
	return m.Name
}

// MaterialSet is an immutable, ordered view of the material master.
// Iteration order is insertion order and is what the planner uses to break ties.
type MaterialSet struct {
	order  []MaterialCode
	byCode map[MaterialCode]Material
}

// NewMaterialSet builds a set from materials, rejecting duplicate codes
func NewMaterialSet(materials []Material) (*MaterialSet, error) {
	s := &MaterialSet{
		order:  make([]MaterialCode, 0, len(materials)),
		byCode: make(map[MaterialCode]Material, len(materials)),
	}
	for _, m := range materials {
		if _, exists := s.byCode[m.Code]; exists {
			return nil, fmt.Errorf("duplicate material code: %s", m.Code)
		}
		s.order = append(s.order, m.Code)
		s.byCode[m.Code] = m
	}
	return s, nil
}

// Get returns the material for code
func (s *MaterialSet) Get(code MaterialCode) (Material, bool) {
	if s == nil {
		return Material{}, false
	}
	m, ok := s.byCode[code]
	return m, ok
}

// Has reports whether code is in the set
func (s *MaterialSet) Has(code MaterialCode) bool {
	_, ok := s.Get(code)
	return ok
}

// Codes returns the material codes in iteration order
func (s *MaterialSet) Codes() []MaterialCode {
	if s == nil {
		return nil
	}
	out := make([]MaterialCode, len(s.order))
	copy(out, s.order)
	return out
}

// Len returns the number of materials
func (s *MaterialSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.order)
}

// Name returns the display name for code, or the code itself when unknown
func (s *MaterialSet) Name(code MaterialCode) string {
	if m, ok := s.Get(code); ok {
		return m.DisplayName()
	}
	return string(code)
}
