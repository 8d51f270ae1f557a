package entities

import (
	"fmt"
	"sort"
	"time"
)

// StockSnapshot is the on-hand quantity of each material as of a date
type StockSnapshot struct {
	Name       string
	AsOf       time.Time
	quantities map[MaterialCode]Quantity
}

// NewStockSnapshot creates a snapshot, copying the quantity map
func NewStockSnapshot(name string, asOf time.Time, quantities map[MaterialCode]Quantity) (*StockSnapshot, error) {
	copied := make(map[MaterialCode]Quantity, len(quantities))
	for code, qty := range quantities {
		if string(code) == "" {
			return nil, fmt.Errorf("stock snapshot %s has an empty material code", name)
		}
		copied[code] = qty
	}
	if !asOf.IsZero() {
		asOf = Date(asOf)
	}
	return &StockSnapshot{Name: name, AsOf: asOf, quantities: copied}, nil
}

// Quantity returns the on-hand quantity for code (0 when absent)
func (s *StockSnapshot) Quantity(code MaterialCode) Quantity {
	if s == nil {
		return 0
	}
	return s.quantities[code]
}

// Has reports whether the snapshot lists code
func (s *StockSnapshot) Has(code MaterialCode) bool {
	if s == nil {
		return false
	}
	_, ok := s.quantities[code]
	return ok
}

// Codes returns the listed material codes sorted ascending
func (s *StockSnapshot) Codes() []MaterialCode {
	if s == nil {
		return nil
	}
	codes := make([]MaterialCode, 0, len(s.quantities))
	for code := range s.quantities {
		codes = append(codes, code)
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
	return codes
}

// Quantities returns a copy of the snapshot's quantities
func (s *StockSnapshot) Quantities() map[MaterialCode]Quantity {
	out := make(map[MaterialCode]Quantity)
	if s == nil {
		return out
	}
	for code, qty := range s.quantities {
		out[code] = qty
	}
	return out
}
