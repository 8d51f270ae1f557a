package entities

import "time"

// UsageDetail is one batch's contribution to a material's usage on a date
type UsageDetail struct {
	Batch    BatchRef `json:"batch"`
	Quantity Quantity `json:"quantity"`
}

// MaterialUsage is the aggregated usage of one material on one date
type MaterialUsage struct {
	MaterialCode MaterialCode
	Quantity     Quantity
	Details      []UsageDetail
}

// DailyRequirement holds every material used on a date, in first-appearance order
type DailyRequirement struct {
	Date      time.Time
	Materials []MaterialUsage
}

// Usage returns the usage entry for code on this date
func (d DailyRequirement) Usage(code MaterialCode) (MaterialUsage, bool) {
	for _, u := range d.Materials {
		if u.MaterialCode == code {
			return u, true
		}
	}
	return MaterialUsage{}, false
}
