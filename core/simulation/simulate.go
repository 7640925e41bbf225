package simulation

import "github.com/kilianp07/fleetops/core/model"

// Report is the in-memory product of a run, before it gets an identity.
type Report struct {
	KPIs        model.KPIs
	Allocations []model.Allocation
	// Unassigned lists the order ids that received no driver.
	Unassigned []string
}

// Simulate validates the input and runs the whole pipeline on a snapshot.
// It is deterministic and never returns a partial report.
func Simulate(in model.SimulationInput, drivers []model.Driver, orders []model.Order, routes []model.Route) (Report, error) {
	return NewEngine().Simulate(in, drivers, orders, routes)
}

// Simulate is the package-level Simulate using the engine's rules.
func (e *Engine) Simulate(in model.SimulationInput, drivers []model.Driver, orders []model.Order, routes []model.Route) (Report, error) {
	if err := Validate(in); err != nil {
		return Report{}, err
	}
	fleet, err := BuildFleet(drivers, in.NumDrivers, in.MaxHoursPerDriver)
	if err != nil {
		return Report{}, err
	}
	queue := BuildQueue(orders, routes)

	agg := NewAggregator()
	var unassigned []string
	e.Run(fleet, queue, ObserverFunc(func(o Outcome) {
		agg.Observe(o)
		if o.Status == StatusRejected {
			unassigned = append(unassigned, o.OrderID)
		}
	}))
	return Report{KPIs: agg.KPIs(), Allocations: agg.Allocations(), Unassigned: unassigned}, nil
}
