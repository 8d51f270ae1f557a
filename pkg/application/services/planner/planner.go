// Package planner projects material stock forward through a batch schedule and
// places dated replenishment orders ahead of every shortfall below safety stock.
//
// A run is a sequential fold over evaluation dates. It owns all of its state,
// never mutates its inputs and performs no I/O, so independent runs may execute
// concurrently and repeated runs over the same input produce identical output.
package planner

import (
	"sort"
	"time"

	"github.com/vsinha/batchplan/pkg/domain/entities"
)

// PlanInput is everything a run needs
type PlanInput struct {
	InitialStock *entities.StockSnapshot
	Requirements []entities.DailyRequirement
	Materials    *entities.MaterialSet

	// AsOf overrides InitialStock.AsOf when set
	AsOf time.Time
	// Epsilon is the comparison tolerance; zero means entities.DefaultEpsilon
	Epsilon float64
}

// BalancePoint is a material's running balance at the end of an evaluated date
type BalancePoint struct {
	Date    time.Time
	Balance entities.Quantity
}

// Arrival is a reorder landing in stock
type Arrival struct {
	Date         time.Time
	MaterialCode entities.MaterialCode
	Quantity     entities.Quantity
	PlacedOn     time.Time
	Reason       string
}

// PlanOutcome is the result of a run
type PlanOutcome struct {
	Start           time.Time
	End             time.Time
	Dates           []time.Time
	Trace           map[entities.MaterialCode][]BalancePoint
	Events          []entities.ReorderEvent
	Arrivals        []Arrival
	InitialBalances map[entities.MaterialCode]entities.Quantity
	FinalBalances   map[entities.MaterialCode]entities.Quantity
}

// BalanceOn returns the balance of code at the end of date, if date was evaluated
func (o *PlanOutcome) BalanceOn(code entities.MaterialCode, date time.Time) (entities.Quantity, bool) {
	points := o.Trace[code]
	date = entities.Date(date)
	i := sort.Search(len(points), func(i int) bool { return !points[i].Date.Before(date) })
	if i < len(points) && points[i].Date.Equal(date) {
		return points[i].Balance, true
	}
	return 0, false
}

// EventsFor returns the reorders placed for code, in placement order
func (o *PlanOutcome) EventsFor(code entities.MaterialCode) []entities.ReorderEvent {
	var out []entities.ReorderEvent
	for _, e := range o.Events {
		if e.MaterialCode == code {
			out = append(out, e)
		}
	}
	return out
}

// Plan runs the stock projection.
//
// Evaluation dates are the start date, every requirement date and every arrival
// date. On each date arrivals are applied, the day's usage is consumed and every
// material with a requirement on or after the date is projected forward through its
// last requirement. The first requirement date whose projected balance falls below
// safety stock is covered by an order of max(reorder quantity, deficit) placed lead
// time days earlier. Orders whose placement date precedes the evaluated date are
// still placed and flagged late.
func Plan(input PlanInput) (*PlanOutcome, error) {
	sim, err := newSimulation(input)
	if err != nil {
		return nil, err
	}
	return sim.run()
}

type pendingOrder struct {
	date     time.Time
	quantity float64
	placedOn time.Time
	reason   string
}

type simulation struct {
	materials *entities.MaterialSet
	codes     []entities.MaterialCode
	eps       float64

	balance map[entities.MaterialCode]float64
	usage   map[entities.MaterialCode]map[int64]float64
	reqKeys map[entities.MaterialCode][]int64
	details map[entities.MaterialCode]map[int64][]entities.UsageDetail
	pending map[entities.MaterialCode][]pendingOrder
	dates   []time.Time
	outcome *PlanOutcome
}

func newSimulation(input PlanInput) (*simulation, error) {
	eps := input.Epsilon
	if eps <= 0 {
		eps = entities.DefaultEpsilon
	}

	codes := input.Materials.Codes()
	sim := &simulation{
		materials: input.Materials,
		codes:     codes,
		eps:       eps,
		balance:   make(map[entities.MaterialCode]float64, len(codes)),
		usage:     make(map[entities.MaterialCode]map[int64]float64),
		reqKeys:   make(map[entities.MaterialCode][]int64),
		details:   make(map[entities.MaterialCode]map[int64][]entities.UsageDetail),
		pending:   make(map[entities.MaterialCode][]pendingOrder),
		outcome: &PlanOutcome{
			Trace:           make(map[entities.MaterialCode][]BalancePoint, len(codes)),
			Events:          make([]entities.ReorderEvent, 0),
			Arrivals:        make([]Arrival, 0),
			InitialBalances: make(map[entities.MaterialCode]entities.Quantity, len(codes)),
			FinalBalances:   make(map[entities.MaterialCode]entities.Quantity, len(codes)),
		},
	}

	for _, code := range codes {
		qty := input.InitialStock.Quantity(code)
		sim.balance[code] = float64(qty)
		sim.outcome.InitialBalances[code] = qty
	}

	requirementDays := make(map[int64]time.Time)
	for _, req := range input.Requirements {
		date := entities.Date(req.Date)
		key := date.Unix()
		for _, u := range req.Materials {
			if !input.Materials.Has(u.MaterialCode) {
				return nil, entities.NewInvalidMaterialReferenceError(
					u.MaterialCode, "requirements on "+entities.FormatDate(date))
			}
			if sim.usage[u.MaterialCode] == nil {
				sim.usage[u.MaterialCode] = make(map[int64]float64)
				sim.details[u.MaterialCode] = make(map[int64][]entities.UsageDetail)
			}
			if _, seen := sim.usage[u.MaterialCode][key]; !seen {
				sim.reqKeys[u.MaterialCode] = append(sim.reqKeys[u.MaterialCode], key)
			}
			sim.usage[u.MaterialCode][key] += float64(u.Quantity)
			sim.details[u.MaterialCode][key] = append(sim.details[u.MaterialCode][key], u.Details...)
		}
		requirementDays[key] = date
	}
	for code := range sim.reqKeys {
		keys := sim.reqKeys[code]
		sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	}

	for _, date := range requirementDays {
		sim.dates = append(sim.dates, date)
	}
	sort.Slice(sim.dates, func(i, j int) bool { return sim.dates[i].Before(sim.dates[j]) })

	asOf := input.AsOf
	if asOf.IsZero() && input.InitialStock != nil {
		asOf = input.InitialStock.AsOf
	}
	if !asOf.IsZero() {
		asOf = entities.Date(asOf)
		if len(sim.dates) == 0 || asOf.Before(sim.dates[0]) {
			sim.dates = append([]time.Time{asOf}, sim.dates...)
		}
	}
	return sim, nil
}

func (s *simulation) run() (*PlanOutcome, error) {
	for i := 0; i < len(s.dates); i++ {
		d := s.dates[i]

		s.applyArrivals(d)
		s.consume(d)
		for _, code := range s.codes {
			if err := s.cover(code, d); err != nil {
				return nil, err
			}
		}
		s.record(d)
	}

	s.outcome.Dates = append([]time.Time(nil), s.dates...)
	if len(s.dates) > 0 {
		s.outcome.Start = s.dates[0]
		s.outcome.End = s.dates[len(s.dates)-1]
	}
	for _, code := range s.codes {
		s.outcome.FinalBalances[code] = entities.Quantity(s.balance[code]).Round()
	}
	return s.outcome, nil
}

func (s *simulation) applyArrivals(d time.Time) {
	key := d.Unix()
	for _, code := range s.codes {
		orders := s.pending[code]
		kept := orders[:0]
		for _, o := range orders {
			if o.date.Unix() == key {
				s.receive(code, o)
				continue
			}
			kept = append(kept, o)
		}
		s.pending[code] = kept
	}
}

func (s *simulation) receive(code entities.MaterialCode, o pendingOrder) {
	s.balance[code] += o.quantity
	s.outcome.Arrivals = append(s.outcome.Arrivals, Arrival{
		Date:         o.date,
		MaterialCode: code,
		Quantity:     entities.Quantity(o.quantity),
		PlacedOn:     o.placedOn,
		Reason:       o.reason,
	})
}

func (s *simulation) consume(d time.Time) {
	key := d.Unix()
	for _, code := range s.codes {
		if qty, ok := s.usage[code][key]; ok {
			s.balance[code] -= qty
		}
	}
}

func (s *simulation) record(d time.Time) {
	for _, code := range s.codes {
		s.outcome.Trace[code] = append(s.outcome.Trace[code], BalancePoint{
			Date:    d,
			Balance: entities.Quantity(s.balance[code]).Round(),
		})
	}
}

// cover places orders for code until no shortfall remains ahead of d
func (s *simulation) cover(code entities.MaterialCode, d time.Time) error {
	material, ok := s.materials.Get(code)
	if !ok {
		return nil
	}

	for {
		needDate, projected, found := s.firstShortfall(code, d, float64(material.SafetyStock))
		if !found {
			return nil
		}
		if s.hasPendingOn(code, needDate) {
			return nil
		}

		deficit := entities.Quantity(float64(material.SafetyStock) - projected).RoundUp()
		if float64(deficit) < s.eps {
			deficit = 0
		}
		quantity := material.ReorderQuantity
		if deficit > quantity {
			quantity = deficit
		}
		if quantity <= 0 {
			return nil
		}

		placedOn := entities.AddDays(needDate, -material.LeadTimeDays)
		late := placedOn.Before(d)
		reason := entities.ShortfallReason(needDate, deficit, material)
		if late {
			reason += entities.LateOrderSuffix(placedOn, d)
		}

		event, err := entities.NewReorderEvent(placedOn, material, quantity, needDate, deficit, reason)
		if err != nil {
			return err
		}
		event.Late = late
		event.Triggers = s.triggers(code, needDate)
		s.outcome.Events = append(s.outcome.Events, *event)

		order := pendingOrder{date: needDate, quantity: float64(quantity), placedOn: placedOn, reason: reason}
		if needDate.Equal(d) {
			s.receive(code, order)
			continue
		}
		s.schedule(code, order)
	}
}

// firstShortfall projects code from d through its last requirement date, including
// scheduled arrivals, and returns the first requirement date whose balance is below safety.
func (s *simulation) firstShortfall(code entities.MaterialCode, d time.Time, safety float64) (time.Time, float64, bool) {
	keys := s.reqKeys[code]
	if len(keys) == 0 {
		return time.Time{}, 0, false
	}
	dKey := d.Unix()
	lastKey := keys[len(keys)-1]
	if lastKey < dKey {
		return time.Time{}, 0, false
	}

	threshold := safety - s.eps
	projected := s.balance[code]

	arrivals := make(map[int64]float64)
	steps := make([]int64, 0, len(keys))
	for _, o := range s.pending[code] {
		key := o.date.Unix()
		if key <= dKey || key > lastKey {
			continue
		}
		if _, ok := arrivals[key]; !ok {
			steps = append(steps, key)
		}
		arrivals[key] += o.quantity
	}
	for _, key := range keys {
		if key < dKey {
			continue
		}
		if _, ok := arrivals[key]; !ok {
			steps = append(steps, key)
		}
	}
	sort.Slice(steps, func(i, j int) bool { return steps[i] < steps[j] })

	for _, key := range steps {
		if key > dKey {
			projected += arrivals[key]
			projected -= s.usage[code][key]
		}
		if _, isRequirement := s.usage[code][key]; !isRequirement {
			continue
		}
		if projected < threshold {
			return entities.Date(time.Unix(key, 0).UTC()), projected, true
		}
	}
	return time.Time{}, 0, false
}

func (s *simulation) hasPendingOn(code entities.MaterialCode, date time.Time) bool {
	for _, o := range s.pending[code] {
		if o.date.Equal(date) {
			return true
		}
	}
	return false
}

func (s *simulation) schedule(code entities.MaterialCode, order pendingOrder) {
	s.pending[code] = append(s.pending[code], order)

	i := sort.Search(len(s.dates), func(i int) bool { return !s.dates[i].Before(order.date) })
	if i < len(s.dates) && s.dates[i].Equal(order.date) {
		return
	}
	s.dates = append(s.dates, time.Time{})
	copy(s.dates[i+1:], s.dates[i:])
	s.dates[i] = order.date
}

func (s *simulation) triggers(code entities.MaterialCode, date time.Time) []entities.BatchRef {
	details := s.details[code][date.Unix()]
	refs := make([]entities.BatchRef, 0, len(details))
	for _, d := range details {
		refs = append(refs, d.Batch)
	}
	return refs
}
