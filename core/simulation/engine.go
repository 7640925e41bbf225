package simulation

import "github.com/kilianp07/fleetops/core/model"

// Rules holds the scoring constants of the allocation pass.
type Rules struct {
	FatigueMultiplier    float64 // applied to the route base time for fatigued drivers
	LateToleranceMin     float64
	FuelPerKM            float64
	HighTrafficSurcharge float64 // extra fuel cost per km on High traffic routes
	HighValueThreshold   float64
	HighValueBonusRate   float64
	LatePenalty          float64
	UnassignedPenalty    float64
}

// DefaultRules returns the production scoring constants.
func DefaultRules() Rules {
	return Rules{
		FatigueMultiplier:    1.3,
		LateToleranceMin:     10,
		FuelPerKM:            5,
		HighTrafficSurcharge: 2,
		HighValueThreshold:   1000,
		HighValueBonusRate:   0.1,
		LatePenalty:          50,
		UnassignedPenalty:    50,
	}
}

// Status is the terminal state of an order within a run.
type Status int

const (
	StatusAssigned Status = iota
	StatusRejected
)

func (s Status) String() string {
	if s == StatusAssigned {
		return "assigned"
	}
	return "rejected"
}

// RejectReason explains why an order was not assigned.
type RejectReason string

const (
	RejectNoRoute          RejectReason = "no_route"
	RejectNoEligibleDriver RejectReason = "no_eligible_driver"
)

// Outcome is the decision taken for one order.
type Outcome struct {
	OrderID    string
	Status     Status
	Reason     RejectReason
	DriverID   string
	DriverName string

	// EffectiveMinutes is the delivery time after the fatigue multiplier.
	EffectiveMinutes float64
	Late             bool
	HighTraffic      bool
	FuelCost         float64
	Bonus            float64
	Penalty          float64
	Profit           float64
}

// Observer receives each outcome in processing order.
type Observer interface {
	Observe(Outcome)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Outcome)

func (f ObserverFunc) Observe(o Outcome) { f(o) }

// Engine runs the greedy allocation pass.
type Engine struct {
	Rules Rules
}

// NewEngine returns an engine using DefaultRules.
func NewEngine() *Engine {
	return &Engine{Rules: DefaultRules()}
}

// Run processes the queue in order, mutating the remaining hours of the fleet.
// Each order is considered exactly once and decisions are never revisited.
func (e *Engine) Run(fleet []*DriverState, queue []QueuedOrder, obs Observer) {
	for _, q := range queue {
		obs.Observe(e.allocate(fleet, q))
	}
}

func (e *Engine) allocate(fleet []*DriverState, q QueuedOrder) Outcome {
	if q.Route == nil {
		return e.reject(q.Order, RejectNoRoute)
	}
	base := q.Route.BaseTimeMin
	driver := e.pick(fleet, base)
	if driver == nil {
		return e.reject(q.Order, RejectNoEligibleDriver)
	}

	r := e.Rules
	effective := e.effectiveMinutes(driver, base)
	late := effective > base+r.LateToleranceMin
	high := q.Route.TrafficLevel == model.TrafficHigh
	perKM := r.FuelPerKM
	if high {
		perKM += r.HighTrafficSurcharge
	}
	fuel := float64(q.Route.DistanceKM * perKM)

	var bonus, penalty float64
	if !late && q.Order.ValueRs > r.HighValueThreshold {
		bonus = float64(q.Order.ValueRs * r.HighValueBonusRate)
	}
	if late {
		penalty = r.LatePenalty
	}
	profit := q.Order.ValueRs + bonus - penalty - fuel

	driver.RemainingHours -= effective / 60

	return Outcome{
		OrderID:          q.Order.OrderID,
		Status:           StatusAssigned,
		DriverID:         driver.DriverID,
		DriverName:       driver.Name,
		EffectiveMinutes: effective,
		Late:             late,
		HighTraffic:      high,
		FuelCost:         fuel,
		Bonus:            bonus,
		Penalty:          penalty,
		Profit:           profit,
	}
}

// pick returns the eligible driver with strictly the most remaining hours.
// The first one scanned wins ties.
func (e *Engine) pick(fleet []*DriverState, base float64) *DriverState {
	var best *DriverState
	maxRemaining := -1.0
	for _, d := range fleet {
		need := e.effectiveMinutes(d, base)
		if float64(d.RemainingHours*60) >= need && d.RemainingHours > maxRemaining {
			best = d
			maxRemaining = d.RemainingHours
		}
	}
	return best
}

func (e *Engine) effectiveMinutes(d *DriverState, base float64) float64 {
	if d.Fatigued {
		return float64(base * e.Rules.FatigueMultiplier)
	}
	return base
}

func (e *Engine) reject(o model.Order, reason RejectReason) Outcome {
	return Outcome{
		OrderID:    o.OrderID,
		Status:     StatusRejected,
		Reason:     reason,
		DriverName: model.NoDriverAssigned,
		Late:       true,
		Profit:     -e.Rules.UnassignedPenalty,
	}
}
