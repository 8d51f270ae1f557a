package entities

import (
	"fmt"
	"math"
	"time"
)

// Batch is a scheduled production run of a formulation in a reactor
type Batch struct {
	Name                string
	Date                time.Time
	Reactor             string
	FormulationID       FormulationID
	BatchSize           Quantity
	ProcessingTimeHours float64
	Remark              string
	MarketingPerson     string
}

// NewBatch creates a validated Batch. The date is truncated to a calendar day.
func NewBatch(
	name string,
	date time.Time,
	reactor string,
	formulationID FormulationID,
	batchSize Quantity,
	processingTimeHours float64,
) (*Batch, error) {
	if date.IsZero() {
		return nil, fmt.Errorf("batch date cannot be empty")
	}
	if reactor == "" {
		return nil, fmt.Errorf("reactor cannot be empty")
	}
	if string(formulationID) == "" {
		return nil, fmt.Errorf("formulation cannot be empty")
	}
	if batchSize <= 0 {
		return nil, fmt.Errorf("batch size must be positive, got %s", batchSize)
	}
	if processingTimeHours < 0 {
		return nil, fmt.Errorf("processing time cannot be negative, got %v", processingTimeHours)
	}

	return &Batch{
		Name:                name,
		Date:                Date(date),
		Reactor:             reactor,
		FormulationID:       formulationID,
		BatchSize:           batchSize,
		ProcessingTimeHours: processingTimeHours,
	}, nil
}

// ProcessingDays is the number of calendar days the batch occupies its reactor (at least one)
func (b Batch) ProcessingDays() int {
	days := int(math.Ceil(b.ProcessingTimeHours / 24))
	if days < 1 {
		return 1
	}
	return days
}

// CompletionDate is the last day the batch occupies its reactor
func (b Batch) CompletionDate() time.Time {
	return AddDays(b.Date, b.ProcessingDays()-1)
}

// Label identifies the batch in traces and reason strings
func (b Batch) Label() string {
	if b.Name != "" {
		return b.Name
	}
	return fmt.Sprintf("%s/%s/%s", FormatDate(b.Date), b.Reactor, b.FormulationID)
}

// BatchRef is the provenance carried with aggregated usage
type BatchRef struct {
	Name          string        `json:"name,omitempty"`
	Date          time.Time     `json:"date"`
	Reactor       string        `json:"reactor"`
	FormulationID FormulationID `json:"formulation"`
	BatchSize     Quantity      `json:"batchSize"`
}

// Ref returns the batch's provenance record
func (b Batch) Ref() BatchRef {
	return BatchRef{
		Name:          b.Name,
		Date:          b.Date,
		Reactor:       b.Reactor,
		FormulationID: b.FormulationID,
		BatchSize:     b.BatchSize,
	}
}
