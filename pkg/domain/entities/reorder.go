package entities

import (
	"fmt"
	"time"
)

// ReorderEvent is a replenishment recommendation produced by the planner
type ReorderEvent struct {
	PlacedOn     time.Time
	MaterialCode MaterialCode
	Quantity     Quantity
	Reason       string
	NeedDate     time.Time
	ArrivalDate  time.Time
	Deficit      Quantity
	Late         bool
	Triggers     []BatchRef
}

// NewReorderEvent creates a validated ReorderEvent arriving leadTimeDays after placement
func NewReorderEvent(
	placedOn time.Time,
	material Material,
	quantity Quantity,
	needDate time.Time,
	deficit Quantity,
	reason string,
) (*ReorderEvent, error) {
	if string(material.Code) == "" {
		return nil, fmt.Errorf("material code cannot be empty")
	}
	if quantity <= 0 {
		return nil, fmt.Errorf("reorder quantity must be positive, got %s", quantity)
	}
	arrival := AddDays(placedOn, material.LeadTimeDays)
	if !arrival.Equal(Date(needDate)) {
		return nil, fmt.Errorf("arrival date %s does not match need date %s", FormatDate(arrival), FormatDate(needDate))
	}

	return &ReorderEvent{
		PlacedOn:     Date(placedOn),
		MaterialCode: material.Code,
		Quantity:     quantity,
		Reason:       reason,
		NeedDate:     Date(needDate),
		ArrivalDate:  arrival,
		Deficit:      deficit,
	}, nil
}

// ShortfallReason formats the justification recorded with a reorder
func ShortfallReason(needDate time.Time, deficit Quantity, material Material) string {
	return fmt.Sprintf("Shortfall on %s = %s, safety=%s, lead_time=%d, reorder qty=%s",
		FormatDate(needDate), deficit, material.SafetyStock, material.LeadTimeDays, material.ReorderQuantity)
}

// LateOrderSuffix is appended to the reason when lead time cannot avert the shortfall
func LateOrderSuffix(placedOn, evaluatedOn time.Time) string {
	return fmt.Sprintf("; LATE ORDER: placement date %s is before planning date %s",
		FormatDate(placedOn), FormatDate(evaluatedOn))
}
