package events

import (
	"github.com/vsinha/batchplan/pkg/application/services/planner"
	"github.com/vsinha/batchplan/pkg/domain/entities"
)

const (
	ReorderPlacedEvent    = "reorder.placed"
	ReorderArrivedEvent   = "reorder.arrived"
	ShortageDetectedEvent = "shortage.detected"
	OrderLateEvent        = "order.late"
	PlanCompletedEvent    = "plan.completed"
)

// AllEventTypes lists every planning event type
var AllEventTypes = []string{
	ReorderPlacedEvent,
	ReorderArrivedEvent,
	ShortageDetectedEvent,
	OrderLateEvent,
	PlanCompletedEvent,
}

type ReorderPlaced struct {
	MaterialCode string  `json:"materialCode"`
	Quantity     float64 `json:"qty"`
	PlacedOn     string  `json:"placedOn"`
	NeedDate     string  `json:"needDate"`
	Reason       string  `json:"reason"`
}

type ReorderArrived struct {
	MaterialCode string  `json:"materialCode"`
	Quantity     float64 `json:"qty"`
	Date         string  `json:"date"`
	PlacedOn     string  `json:"placedOn"`
}

type ShortageDetected struct {
	MaterialCode string   `json:"materialCode"`
	NeedDate     string   `json:"needDate"`
	Deficit      float64  `json:"deficit"`
	Batches      []string `json:"batches,omitempty"`
}

type OrderLate struct {
	MaterialCode string `json:"materialCode"`
	PlacedOn     string `json:"placedOn"`
	NeedDate     string `json:"needDate"`
}

type PlanCompleted struct {
	PlanName       string `json:"planName,omitempty"`
	StockInventory string `json:"stockInventory,omitempty"`
	StartDate      string `json:"startDate,omitempty"`
	EndDate        string `json:"endDate,omitempty"`
	Reorders       int    `json:"reorders"`
	LateOrders     int    `json:"lateOrders"`
	Warnings       int    `json:"warnings"`
}

func NewReorderPlacedEvent(runID string, e entities.ReorderEvent) Event {
	return NewEvent(ReorderPlacedEvent, runID, ReorderPlaced{
		MaterialCode: string(e.MaterialCode),
		Quantity:     float64(e.Quantity),
		PlacedOn:     entities.FormatDate(e.PlacedOn),
		NeedDate:     entities.FormatDate(e.NeedDate),
		Reason:       e.Reason,
	})
}

func NewShortageDetectedEvent(runID string, e entities.ReorderEvent) Event {
	batches := make([]string, 0, len(e.Triggers))
	for _, ref := range e.Triggers {
		batches = append(batches, ref.Name)
	}
	return NewEvent(ShortageDetectedEvent, runID, ShortageDetected{
		MaterialCode: string(e.MaterialCode),
		NeedDate:     entities.FormatDate(e.NeedDate),
		Deficit:      float64(e.Deficit),
		Batches:      batches,
	})
}

func NewOrderLateEvent(runID string, e entities.ReorderEvent) Event {
	return NewEvent(OrderLateEvent, runID, OrderLate{
		MaterialCode: string(e.MaterialCode),
		PlacedOn:     entities.FormatDate(e.PlacedOn),
		NeedDate:     entities.FormatDate(e.NeedDate),
	})
}

func NewReorderArrivedEvent(runID string, a planner.Arrival) Event {
	return NewEvent(ReorderArrivedEvent, runID, ReorderArrived{
		MaterialCode: string(a.MaterialCode),
		Quantity:     float64(a.Quantity),
		Date:         entities.FormatDate(a.Date),
		PlacedOn:     entities.FormatDate(a.PlacedOn),
	})
}

func NewPlanCompletedEvent(runID string, summary PlanCompleted) Event {
	return NewEvent(PlanCompletedEvent, runID, summary)
}

// OutcomeEvents converts a planner outcome into the event sequence of one run:
// shortages and placements in placement order, then arrivals.
func OutcomeEvents(runID string, outcome *planner.PlanOutcome) []Event {
	if outcome == nil {
		return nil
	}
	out := make([]Event, 0, 2*len(outcome.Events)+len(outcome.Arrivals))
	for _, e := range outcome.Events {
		if e.Deficit > 0 {
			out = append(out, NewShortageDetectedEvent(runID, e))
		}
		out = append(out, NewReorderPlacedEvent(runID, e))
		if e.Late {
			out = append(out, NewOrderLateEvent(runID, e))
		}
	}
	for _, a := range outcome.Arrivals {
		out = append(out, NewReorderArrivedEvent(runID, a))
	}
	return out
}
