package api

import (
	"fmt"
	"time"

	"github.com/vsinha/batchplan/pkg/application/services/orchestration"
	"github.com/vsinha/batchplan/pkg/domain/entities"
)

// BatchRequest is one scheduled batch in a simulate request
type BatchRequest struct {
	Name                string  `json:"name"`
	Date                string  `json:"date" binding:"required"`
	Reactor             string  `json:"reactor" binding:"required"`
	FormulationID       string  `json:"formulationId" binding:"required"`
	BatchSize           float64 `json:"batchSize"`
	ProcessingTimeHours float64 `json:"processingTimeHours"`
	Remark              string  `json:"remark,omitempty"`
	MarketingPerson     string  `json:"marketingPerson,omitempty"`
}

// SimulateRequest plans a batch schedule. Stock overrides the stored snapshot
// named StockInventory when present.
type SimulateRequest struct {
	PlanName       string             `json:"planName"`
	StockInventory string             `json:"stockInventory"`
	AsOf           string             `json:"asOf"`
	Stock          map[string]float64 `json:"stock"`
	Batches        []BatchRequest     `json:"batches" binding:"dive"`
	Save           bool               `json:"save"`
}

// DiffRequest compares Current against an optional Previous schedule
type DiffRequest struct {
	Current  SimulateRequest  `json:"current"`
	Previous *SimulateRequest `json:"previous"`
}

// PreviousBatchesResponse lists the batches still ahead in the latest saved plan
type PreviousBatchesResponse struct {
	StockInventory string         `json:"stockInventory"`
	Batches        []BatchRequest `json:"batches"`
}

func (r SimulateRequest) toPlanRequest() (orchestration.PlanRequest, error) {
	var asOf time.Time
	if r.AsOf != "" {
		parsed, err := entities.ParseDate(r.AsOf)
		if err != nil {
			return orchestration.PlanRequest{}, fmt.Errorf("asOf: %w", err)
		}
		asOf = parsed
	}

	req := orchestration.PlanRequest{
		PlanName:       r.PlanName,
		StockInventory: r.StockInventory,
		AsOf:           asOf,
		Save:           r.Save,
		Batches:        make([]entities.Batch, 0, len(r.Batches)),
	}

	if r.Stock != nil {
		name := r.StockInventory
		if name == "" {
			name = "request"
		}
		quantities := make(map[entities.MaterialCode]entities.Quantity, len(r.Stock))
		for code, qty := range r.Stock {
			quantities[entities.MaterialCode(code)] = entities.Quantity(qty)
		}
		stock, err := entities.NewStockSnapshot(name, asOf, quantities)
		if err != nil {
			return orchestration.PlanRequest{}, err
		}
		req.Stock = stock
		req.StockInventory = name
	}

	for i, b := range r.Batches {
		date, err := entities.ParseDate(b.Date)
		if err != nil {
			return orchestration.PlanRequest{}, fmt.Errorf("batch %d: %w", i+1, err)
		}
		batch, err := entities.NewBatch(b.Name, date, b.Reactor, entities.FormulationID(b.FormulationID),
			entities.Quantity(b.BatchSize), b.ProcessingTimeHours)
		if err != nil {
			return orchestration.PlanRequest{}, fmt.Errorf("batch %d: %w", i+1, err)
		}
		batch.Remark = b.Remark
		batch.MarketingPerson = b.MarketingPerson
		req.Batches = append(req.Batches, *batch)
	}

	return req, nil
}

func toBatchRequest(b entities.Batch) BatchRequest {
	return BatchRequest{
		Name:                b.Name,
		Date:                entities.FormatDate(b.Date),
		Reactor:             b.Reactor,
		FormulationID:       string(b.FormulationID),
		BatchSize:           float64(b.BatchSize),
		ProcessingTimeHours: b.ProcessingTimeHours,
		Remark:              b.Remark,
		MarketingPerson:     b.MarketingPerson,
	}
}
