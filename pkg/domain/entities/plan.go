package entities

import (
	"fmt"
	"time"
)

// ProductionPlan is a saved batch schedule drawn against a stock snapshot
type ProductionPlan struct {
	Name           string
	StockInventory string
	CreatedAt      time.Time
	Batches        []Batch
}

// NewProductionPlan creates a validated ProductionPlan. The batch slice is copied.
func NewProductionPlan(name, stockInventory string, createdAt time.Time, batches []Batch) (*ProductionPlan, error) {
	if name == "" {
		return nil, fmt.Errorf("plan name cannot be empty")
	}
	if stockInventory == "" {
		return nil, fmt.Errorf("stock inventory cannot be empty")
	}
	copied := make([]Batch, len(batches))
	copy(copied, batches)
	return &ProductionPlan{
		Name:           name,
		StockInventory: stockInventory,
		CreatedAt:      createdAt,
		Batches:        copied,
	}, nil
}

// BatchesFrom returns the plan's batches dated on or after day
func (p *ProductionPlan) BatchesFrom(day time.Time) []Batch {
	day = Date(day)
	var out []Batch
	for _, b := range p.Batches {
		if !b.Date.Before(day) {
			out = append(out, b)
		}
	}
	return out
}
