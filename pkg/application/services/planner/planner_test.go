package planner

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/vsinha/batchplan/pkg/domain/entities"
)

func day(m time.Month, d int) time.Time {
	return time.Date(2025, m, d, 0, 0, 0, 0, time.UTC)
}

func acid() entities.Material {
	return entities.Material{
		Code:            "ACID",
		Name:            "Acrylic Acid",
		LeadTimeDays:    10,
		SafetyStock:     500,
		ReorderQuantity: 440,
	}
}

func materialSet(t *testing.T, materials ...entities.Material) *entities.MaterialSet {
	t.Helper()
	set, err := entities.NewMaterialSet(materials)
	if err != nil {
		t.Fatalf("NewMaterialSet failed: %v", err)
	}
	return set
}

func snapshot(t *testing.T, asOf time.Time, quantities map[entities.MaterialCode]entities.Quantity) *entities.StockSnapshot {
	t.Helper()
	s, err := entities.NewStockSnapshot("STOCK-1", asOf, quantities)
	if err != nil {
		t.Fatalf("NewStockSnapshot failed: %v", err)
	}
	return s
}

func requirement(date time.Time, code entities.MaterialCode, qty entities.Quantity, batch string) entities.DailyRequirement {
	ref := entities.BatchRef{Name: batch, Date: date, Reactor: "R1", FormulationID: "EMUL"}
	return entities.DailyRequirement{
		Date: date,
		Materials: []entities.MaterialUsage{{
			MaterialCode: code,
			Quantity:     qty,
			Details:      []entities.UsageDetail{{Batch: ref, Quantity: qty}},
		}},
	}
}

func TestPlan_ShortfallPlacesBackdatedReorder(t *testing.T) {
	outcome, err := Plan(PlanInput{
		InitialStock: snapshot(t, day(1, 1), map[entities.MaterialCode]entities.Quantity{"ACID": 1000}),
		Requirements: []entities.DailyRequirement{requirement(day(1, 21), "ACID", 780, "B-001")},
		Materials:    materialSet(t, acid()),
	})
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}

	if len(outcome.Events) != 1 {
		t.Fatalf("Expected 1 reorder, got %d", len(outcome.Events))
	}
	event := outcome.Events[0]
	if event.Quantity != 440 {
		t.Errorf("Expected quantity 440, got %v", event.Quantity)
	}
	if !event.PlacedOn.Equal(day(1, 11)) {
		t.Errorf("Expected placement 2025-01-11, got %s", entities.FormatDate(event.PlacedOn))
	}
	if !event.ArrivalDate.Equal(day(1, 21)) {
		t.Errorf("Expected arrival 2025-01-21, got %s", entities.FormatDate(event.ArrivalDate))
	}
	if event.Deficit != 280 {
		t.Errorf("Expected deficit 280, got %v", event.Deficit)
	}
	if event.Late {
		t.Error("Expected order placed on time")
	}
	expectedReason := "Shortfall on 2025-01-21 = 280, safety=500, lead_time=10, reorder qty=440"
	if event.Reason != expectedReason {
		t.Errorf("Expected reason '%s', got '%s'", expectedReason, event.Reason)
	}
	if len(event.Triggers) != 1 || event.Triggers[0].Name != "B-001" {
		t.Errorf("Expected trigger B-001, got %v", event.Triggers)
	}

	if balance, ok := outcome.BalanceOn("ACID", day(1, 1)); !ok || balance != 1000 {
		t.Errorf("Expected 1000 on start date, got %v (evaluated=%v)", balance, ok)
	}
	if balance, _ := outcome.BalanceOn("ACID", day(1, 21)); balance != 660 {
		t.Errorf("Expected 660 after arrival and usage, got %v", balance)
	}
	if outcome.FinalBalances["ACID"] != 660 {
		t.Errorf("Expected final balance 660, got %v", outcome.FinalBalances["ACID"])
	}
	if len(outcome.Arrivals) != 1 || !outcome.Arrivals[0].Date.Equal(day(1, 21)) {
		t.Errorf("Expected one arrival on 2025-01-21, got %v", outcome.Arrivals)
	}
	if !outcome.Start.Equal(day(1, 1)) || !outcome.End.Equal(day(1, 21)) {
		t.Errorf("Expected horizon 2025-01-01..2025-01-21, got %s..%s",
			entities.FormatDate(outcome.Start), entities.FormatDate(outcome.End))
	}
}

func TestPlan_NoShortfall(t *testing.T) {
	outcome, err := Plan(PlanInput{
		InitialStock: snapshot(t, day(1, 1), map[entities.MaterialCode]entities.Quantity{"ACID": 1000}),
		Requirements: []entities.DailyRequirement{requirement(day(1, 21), "ACID", 50, "B-001")},
		Materials:    materialSet(t, acid()),
	})
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}

	if len(outcome.Events) != 0 {
		t.Errorf("Expected no reorders, got %d", len(outcome.Events))
	}
	if outcome.FinalBalances["ACID"] != 950 {
		t.Errorf("Expected final balance 950, got %v", outcome.FinalBalances["ACID"])
	}
}

func TestPlan_LateOrderIsPlacedAndFlagged(t *testing.T) {
	// Without an as-of date the run starts on the first requirement date,
	// so the lead time cannot be honoured.
	outcome, err := Plan(PlanInput{
		InitialStock: snapshot(t, time.Time{}, map[entities.MaterialCode]entities.Quantity{"ACID": 1000}),
		Requirements: []entities.DailyRequirement{requirement(day(1, 21), "ACID", 780, "B-001")},
		Materials:    materialSet(t, acid()),
	})
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}

	if len(outcome.Events) != 1 {
		t.Fatalf("Expected 1 reorder, got %d", len(outcome.Events))
	}
	event := outcome.Events[0]
	if !event.Late {
		t.Error("Expected late order")
	}
	if !event.PlacedOn.Equal(day(1, 11)) {
		t.Errorf("Expected placement 2025-01-11, got %s", entities.FormatDate(event.PlacedOn))
	}
	expectedReason := "Shortfall on 2025-01-21 = 280, safety=500, lead_time=10, reorder qty=440" +
		"; LATE ORDER: placement date 2025-01-11 is before planning date 2025-01-21"
	if event.Reason != expectedReason {
		t.Errorf("Expected reason '%s', got '%s'", expectedReason, event.Reason)
	}
	if outcome.FinalBalances["ACID"] != 660 {
		t.Errorf("Expected same-day arrival to restore 660, got %v", outcome.FinalBalances["ACID"])
	}
}

func TestPlan_SnapshotDatedAfterFirstRequirement(t *testing.T) {
	// A snapshot counted after the first batch does not move the start: every
	// requirement is still consumed from its quantities and lateness is judged
	// against the first requirement date.
	outcome, err := Plan(PlanInput{
		InitialStock: snapshot(t, day(1, 25), map[entities.MaterialCode]entities.Quantity{"ACID": 1000}),
		Requirements: []entities.DailyRequirement{
			requirement(day(1, 21), "ACID", 780, "B-001"),
			requirement(day(1, 28), "ACID", 100, "B-002"),
		},
		Materials: materialSet(t, acid()),
	})
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}

	if !outcome.Start.Equal(day(1, 21)) || !outcome.End.Equal(day(1, 28)) {
		t.Errorf("Expected horizon 2025-01-21..2025-01-28, got %s..%s",
			entities.FormatDate(outcome.Start), entities.FormatDate(outcome.End))
	}
	expectedDates := []time.Time{day(1, 21), day(1, 28)}
	if !reflect.DeepEqual(outcome.Dates, expectedDates) {
		t.Errorf("Expected dates %v, got %v", expectedDates, outcome.Dates)
	}

	if len(outcome.Events) != 1 {
		t.Fatalf("Expected 1 reorder, got %d", len(outcome.Events))
	}
	event := outcome.Events[0]
	if !event.Late {
		t.Error("Expected late order")
	}
	expectedReason := "Shortfall on 2025-01-21 = 280, safety=500, lead_time=10, reorder qty=440" +
		"; LATE ORDER: placement date 2025-01-11 is before planning date 2025-01-21"
	if event.Reason != expectedReason {
		t.Errorf("Expected reason '%s', got '%s'", expectedReason, event.Reason)
	}

	// 1000 - 780 + 440 - 100
	if outcome.FinalBalances["ACID"] != 560 {
		t.Errorf("Expected final balance 560, got %v", outcome.FinalBalances["ACID"])
	}
}

func TestPlan_DeficitExceedsMinimumLot(t *testing.T) {
	outcome, err := Plan(PlanInput{
		InitialStock: snapshot(t, day(1, 1), map[entities.MaterialCode]entities.Quantity{"ACID": 1000}),
		Requirements: []entities.DailyRequirement{requirement(day(1, 21), "ACID", 1400, "B-001")},
		Materials:    materialSet(t, acid()),
	})
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}

	if len(outcome.Events) != 1 {
		t.Fatalf("Expected 1 reorder, got %d", len(outcome.Events))
	}
	if outcome.Events[0].Quantity != 900 {
		t.Errorf("Expected quantity 900, got %v", outcome.Events[0].Quantity)
	}
	if outcome.FinalBalances["ACID"] != 500 {
		t.Errorf("Expected balance restored to safety 500, got %v", outcome.FinalBalances["ACID"])
	}
}

func TestPlan_SuccessiveEpisodes(t *testing.T) {
	material := entities.Material{Code: "ACID", LeadTimeDays: 5, SafetyStock: 500, ReorderQuantity: 200}
	outcome, err := Plan(PlanInput{
		InitialStock: snapshot(t, day(1, 1), map[entities.MaterialCode]entities.Quantity{"ACID": 1000}),
		Requirements: []entities.DailyRequirement{
			requirement(day(1, 10), "ACID", 300, "B1"),
			requirement(day(1, 20), "ACID", 300, "B2"),
			requirement(day(1, 30), "ACID", 300, "B3"),
		},
		Materials: materialSet(t, material),
	})
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}

	expected := []struct {
		placed string
		need   string
		qty    entities.Quantity
	}{
		{"2025-01-15", "2025-01-20", 200},
		{"2025-01-25", "2025-01-30", 200},
	}
	if len(outcome.Events) != len(expected) {
		t.Fatalf("Expected %d reorders, got %d", len(expected), len(outcome.Events))
	}
	for i, want := range expected {
		got := outcome.Events[i]
		if entities.FormatDate(got.PlacedOn) != want.placed || entities.FormatDate(got.NeedDate) != want.need {
			t.Errorf("Reorder %d: expected %s->%s, got %s->%s", i, want.placed, want.need,
				entities.FormatDate(got.PlacedOn), entities.FormatDate(got.NeedDate))
		}
		if got.Quantity != want.qty {
			t.Errorf("Reorder %d: expected qty %v, got %v", i, want.qty, got.Quantity)
		}
	}
	if outcome.FinalBalances["ACID"] != 500 {
		t.Errorf("Expected final balance 500, got %v", outcome.FinalBalances["ACID"])
	}
	if len(outcome.Dates) != 4 {
		t.Errorf("Expected 4 evaluated dates, got %d", len(outcome.Dates))
	}
}

func TestPlan_EpsilonSuppressesRoundingNoise(t *testing.T) {
	outcome, err := Plan(PlanInput{
		InitialStock: snapshot(t, day(1, 1), map[entities.MaterialCode]entities.Quantity{"ACID": 1000}),
		Requirements: []entities.DailyRequirement{requirement(day(1, 21), "ACID", 500.0000005, "B-001")},
		Materials:    materialSet(t, acid()),
	})
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}
	if len(outcome.Events) != 0 {
		t.Errorf("Expected no reorder for sub-epsilon shortfall, got %d", len(outcome.Events))
	}
}

func TestPlan_ZeroLeadTime(t *testing.T) {
	material := entities.Material{Code: "WATER", SafetyStock: 0, ReorderQuantity: 0}
	outcome, err := Plan(PlanInput{
		InitialStock: snapshot(t, day(1, 1), nil),
		Requirements: []entities.DailyRequirement{requirement(day(1, 5), "WATER", 120.5, "B1")},
		Materials:    materialSet(t, material),
	})
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}

	if len(outcome.Events) != 1 {
		t.Fatalf("Expected 1 reorder, got %d", len(outcome.Events))
	}
	event := outcome.Events[0]
	if event.Late || !event.PlacedOn.Equal(day(1, 5)) {
		t.Errorf("Expected on-time order placed 2025-01-05, got %s (late=%v)", entities.FormatDate(event.PlacedOn), event.Late)
	}
	if event.Quantity != 120.5 {
		t.Errorf("Expected lot-for-lot quantity 120.5, got %v", event.Quantity)
	}
	if outcome.FinalBalances["WATER"] != 0 {
		t.Errorf("Expected final balance 0, got %v", outcome.FinalBalances["WATER"])
	}
}

func TestPlan_MaterialOrderFollowsMaster(t *testing.T) {
	zinc := entities.Material{Code: "ZINC", LeadTimeDays: 3, SafetyStock: 10, ReorderQuantity: 50}
	reqs := []entities.DailyRequirement{{
		Date: day(2, 10),
		Materials: []entities.MaterialUsage{
			{MaterialCode: "ACID", Quantity: 100},
			{MaterialCode: "ZINC", Quantity: 20},
		},
	}}

	outcome, err := Plan(PlanInput{
		InitialStock: snapshot(t, day(2, 1), nil),
		Requirements: reqs,
		Materials:    materialSet(t, zinc, acid()),
	})
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}

	if len(outcome.Events) != 2 {
		t.Fatalf("Expected 2 reorders, got %d", len(outcome.Events))
	}
	if outcome.Events[0].MaterialCode != "ZINC" || outcome.Events[1].MaterialCode != "ACID" {
		t.Errorf("Expected ZINC then ACID, got %s then %s", outcome.Events[0].MaterialCode, outcome.Events[1].MaterialCode)
	}
	if len(outcome.EventsFor("ACID")) != 1 {
		t.Errorf("Expected one ACID reorder")
	}
}

func TestPlan_InvalidMaterialReference(t *testing.T) {
	_, err := Plan(PlanInput{
		InitialStock: snapshot(t, day(1, 1), nil),
		Requirements: []entities.DailyRequirement{requirement(day(1, 21), "GHOST", 5, "B1")},
		Materials:    materialSet(t, acid()),
	})
	if !errors.Is(err, entities.ErrInvalidMaterialReference) {
		t.Fatalf("Expected ErrInvalidMaterialReference, got %v", err)
	}
	expected := "invalid material reference: material GHOST referenced by requirements on 2025-01-21"
	if err.Error() != expected {
		t.Errorf("Expected error '%s', got '%s'", expected, err.Error())
	}
}

func TestPlan_NegativeBalanceIsNotAnError(t *testing.T) {
	// Safety 0 and no minimum lot: the order covers exactly the deficit
	material := entities.Material{Code: "ACID", LeadTimeDays: 2, SafetyStock: 0, ReorderQuantity: 0}
	outcome, err := Plan(PlanInput{
		InitialStock: snapshot(t, time.Time{}, map[entities.MaterialCode]entities.Quantity{"ACID": 10}),
		Requirements: []entities.DailyRequirement{requirement(day(3, 1), "ACID", 25, "B1")},
		Materials:    materialSet(t, material),
	})
	if err != nil {
		t.Fatalf("Expected negative projection to be handled, got %v", err)
	}
	if len(outcome.Events) != 1 || outcome.Events[0].Quantity != 15 {
		t.Errorf("Expected a single reorder of 15, got %v", outcome.Events)
	}
}

func TestPlan_Properties(t *testing.T) {
	materials := materialSet(t,
		entities.Material{Code: "ACID", LeadTimeDays: 7, SafetyStock: 300, ReorderQuantity: 250},
		entities.Material{Code: "WATER", LeadTimeDays: 0, SafetyStock: 0, ReorderQuantity: 0},
		entities.Material{Code: "ZINC", LeadTimeDays: 14, SafetyStock: 40, ReorderQuantity: 100},
		entities.Material{Code: "DRUM", LeadTimeDays: 3, SafetyStock: 5, ReorderQuantity: 20},
	)
	stock := snapshot(t, day(4, 1), map[entities.MaterialCode]entities.Quantity{
		"ACID": 900, "WATER": 50, "ZINC": 60, "DRUM": 200,
	})
	var reqs []entities.DailyRequirement
	for i := 0; i < 8; i++ {
		date := day(4, 3+i*3)
		reqs = append(reqs, entities.DailyRequirement{
			Date: date,
			Materials: []entities.MaterialUsage{
				{MaterialCode: "ACID", Quantity: entities.Quantity(180 + 17*i)},
				{MaterialCode: "WATER", Quantity: entities.Quantity(90.25)},
				{MaterialCode: "ZINC", Quantity: entities.Quantity(12.5 * float64(i%3+1))},
				{MaterialCode: "DRUM", Quantity: 4},
			},
		})
	}
	input := PlanInput{InitialStock: stock, Requirements: reqs, Materials: materials}

	outcome, err := Plan(input)
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}

	t.Run("idempotence", func(t *testing.T) {
		again, err := Plan(input)
		if err != nil {
			t.Fatalf("Plan failed: %v", err)
		}
		if !reflect.DeepEqual(outcome, again) {
			t.Error("Expected identical outcomes for identical input")
		}
	})

	t.Run("minimum lot and arrival timing", func(t *testing.T) {
		for _, e := range outcome.Events {
			m, _ := materials.Get(e.MaterialCode)
			if e.Quantity < m.ReorderQuantity {
				t.Errorf("%s: quantity %v below minimum lot %v", e.MaterialCode, e.Quantity, m.ReorderQuantity)
			}
			if !e.ArrivalDate.Equal(entities.AddDays(e.PlacedOn, m.LeadTimeDays)) {
				t.Errorf("%s: arrival %s is not placement %s + %d days", e.MaterialCode,
					entities.FormatDate(e.ArrivalDate), entities.FormatDate(e.PlacedOn), m.LeadTimeDays)
			}
		}
	})

	t.Run("reorder sufficiency", func(t *testing.T) {
		if len(outcome.Events) == 0 {
			t.Fatal("Expected the fixture to trigger reorders")
		}
		for _, e := range outcome.Events {
			m, _ := materials.Get(e.MaterialCode)
			balance, ok := outcome.BalanceOn(e.MaterialCode, e.NeedDate)
			if !ok {
				t.Fatalf("%s: need date %s was not evaluated", e.MaterialCode, entities.FormatDate(e.NeedDate))
			}
			if float64(balance) < float64(m.SafetyStock)-entities.DefaultEpsilon {
				t.Errorf("%s: balance %v on %s below safety %v", e.MaterialCode, balance,
					entities.FormatDate(e.NeedDate), m.SafetyStock)
			}
		}
	})

	t.Run("conservation", func(t *testing.T) {
		for _, code := range materials.Codes() {
			var used, ordered float64
			for _, r := range reqs {
				if u, ok := r.Usage(code); ok {
					used += float64(u.Quantity)
				}
			}
			for _, e := range outcome.EventsFor(code) {
				ordered += float64(e.Quantity)
			}
			want := entities.Quantity(float64(stock.Quantity(code)) - used + ordered).Round()
			if outcome.FinalBalances[code] != want {
				t.Errorf("%s: expected final %v, got %v", code, want, outcome.FinalBalances[code])
			}
		}
	})

	t.Run("inputs untouched", func(t *testing.T) {
		if reqs[0].Materials[0].Quantity != 180 || stock.Quantity("ACID") != 900 {
			t.Error("Expected inputs to be left untouched")
		}
	})
}

func TestPlan_Empty(t *testing.T) {
	outcome, err := Plan(PlanInput{Materials: materialSet(t, acid())})
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}
	if len(outcome.Dates) != 0 || len(outcome.Events) != 0 {
		t.Errorf("Expected empty outcome, got %d dates and %d events", len(outcome.Dates), len(outcome.Events))
	}
}
