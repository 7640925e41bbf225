package simulation

import "github.com/kilianp07/fleetops/core/model"

// Aggregator folds outcomes into fleet KPIs. It implements Observer.
type Aggregator struct {
	processed   int
	totalProfit float64
	onTime      int
	late        int
	fuelHigh    float64
	fuelNormal  float64
	fuelTotal   float64
	allocations []model.Allocation
}

// NewAggregator returns an empty aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{allocations: []model.Allocation{}}
}

// Observe accumulates one outcome. Rejected outcomes count as late and
// contribute their penalty to the profit total but never fuel.
func (a *Aggregator) Observe(o Outcome) {
	a.processed++
	a.totalProfit += o.Profit
	if o.Late {
		a.late++
	} else {
		a.onTime++
	}
	if o.Status != StatusAssigned {
		return
	}
	if o.HighTraffic {
		a.fuelHigh += o.FuelCost
	} else {
		a.fuelNormal += o.FuelCost
	}
	a.fuelTotal += o.FuelCost
	a.allocations = append(a.allocations, model.Allocation{
		OrderID:                      o.OrderID,
		DriverName:                   o.DriverName,
		EstimatedDeliveryTimeMinutes: o.EffectiveMinutes,
		OnTime:                       !o.Late,
		Profit:                       o.Profit,
	})
}

// KPIs returns the aggregate so far. Efficiency is 0 when nothing was processed.
func (a *Aggregator) KPIs() model.KPIs {
	var eff float64
	if a.processed > 0 {
		eff = float64(a.onTime) / float64(a.onTime+a.late) * 100
	}
	return model.KPIs{
		TotalProfit:   a.totalProfit,
		Efficiency:    eff,
		OnTime:        a.onTime,
		Late:          a.late,
		FuelCostTotal: a.fuelTotal,
		FuelBreakdown: model.FuelBreakdown{High: a.fuelHigh, Normal: a.fuelNormal},
	}
}

// Allocations returns the assigned orders in processing order.
func (a *Aggregator) Allocations() []model.Allocation {
	out := make([]model.Allocation, len(a.allocations))
	copy(out, a.allocations)
	return out
}

// Processed returns the number of outcomes observed.
func (a *Aggregator) Processed() int { return a.processed }
