package dto

// PlanResult contains the complete output of a planning run
type PlanResult struct {
	RunID                       string                       `json:"runId,omitempty"`
	PlanName                    string                       `json:"planName,omitempty"`
	StockInventory              string                       `json:"stockInventory,omitempty"`
	StartDate                   string                       `json:"startDate,omitempty"`
	EndDate                     string                       `json:"endDate,omitempty"`
	MaterialRequirements        []DailyMaterialRequirements  `json:"material_requirements"`
	OverallMaterialRequirements []OverallMaterialRequirement `json:"overall_material_requirements"`
	Reorders                    []ReorderDay                 `json:"reorders"`
	Warnings                    []string                     `json:"warnings,omitempty"`
}

// DailyMaterialRequirements lists every material used on one date
type DailyMaterialRequirements struct {
	Date      string                `json:"date"`
	Materials []MaterialRequirement `json:"materials"`
}

// MaterialRequirement is one material's usage on a date
type MaterialRequirement struct {
	MaterialCode string        `json:"materialCode"`
	MaterialName string        `json:"materialName"`
	Usage        float64       `json:"usage"`
	EndingStock  float64       `json:"endingStock"`
	UsageDetails []UsageDetail `json:"usageDetails"`
}

// UsageDetail is one batch's contribution to a material's usage
type UsageDetail struct {
	Batch       string  `json:"batch,omitempty"`
	Date        string  `json:"date"`
	Reactor     string  `json:"reactor"`
	Formulation string  `json:"formulation"`
	BatchSize   float64 `json:"batchSize"`
	Quantity    float64 `json:"quantity"`
}

// OverallMaterialRequirement aggregates one material across the whole horizon
type OverallMaterialRequirement struct {
	MaterialCode  string        `json:"materialCode"`
	MaterialName  string        `json:"materialName"`
	UnitOfMeasure string        `json:"unitOfMeasure,omitempty"`
	CurrentStock  float64       `json:"currentStock"`
	TotalUsed     float64       `json:"totalUsed"`
	TotalReorder  float64       `json:"totalReorder"`
	SafetyStock   float64       `json:"safetyStock"`
	FinalStock    float64       `json:"finalStock"`
	UsageDetails  []UsageDetail `json:"usageDetails"`
}

// ReorderDay carries the reorder activity and completed production of one date
type ReorderDay struct {
	Date                string                `json:"date"`
	ReordersPlaced      []ReorderLine         `json:"reorders_placed"`
	ReordersArrived     []ReorderLine         `json:"reorders_arrived"`
	ProductionCompleted []ProductionCompleted `json:"production_completed"`
}

// ReorderLine is a placed or arrived reorder
type ReorderLine struct {
	MaterialCode string  `json:"materialCode"`
	MaterialName string  `json:"materialName"`
	Qty          float64 `json:"qty"`
	Reason       string  `json:"reason"`
	NeedDate     string  `json:"needDate,omitempty"`
	Late         bool    `json:"late,omitempty"`
}

// ProductionCompleted marks a batch finishing on its reactor
type ProductionCompleted struct {
	Batch       string  `json:"batch,omitempty"`
	Reactor     string  `json:"reactor"`
	Formulation string  `json:"formulation"`
	BatchSize   float64 `json:"batchSize"`
	StartDate   string  `json:"startDate"`
}

// MaterialCount returns the number of (date, material) requirement rows
func (r *PlanResult) MaterialCount() int {
	n := 0
	for _, day := range r.MaterialRequirements {
		n += len(day.Materials)
	}
	return n
}

// PlacedReorders returns every placed reorder in date order
func (r *PlanResult) PlacedReorders() []ReorderLine {
	var out []ReorderLine
	for _, day := range r.Reorders {
		out = append(out, day.ReordersPlaced...)
	}
	return out
}
