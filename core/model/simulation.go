package model

import "time"

// NoDriverAssigned is the driver name recorded for orders that could not be
// allocated.
const NoDriverAssigned = "No Driver Assigned"

// SimulationInput holds the staffing parameters of a what-if run.
type SimulationInput struct {
	NumDrivers        int     `json:"numDrivers"`
	StartTime         string  `json:"startTime"` // "HH:MM"; validated but not used in delivery math
	MaxHoursPerDriver float64 `json:"maxHoursPerDriver"`
}

// FuelBreakdown splits the fuel cost by traffic tier.
type FuelBreakdown struct {
	High   float64 `json:"high"`
	Normal float64 `json:"normal"`
}

// KPIs aggregates the fleet-level outcome of a run.
type KPIs struct {
	TotalProfit   float64       `json:"totalProfit"`
	Efficiency    float64       `json:"efficiency"` // on-time percentage, 0-100
	OnTime        int           `json:"onTime"`
	Late          int           `json:"late"`
	FuelCostTotal float64       `json:"fuelCostTotal"`
	FuelBreakdown FuelBreakdown `json:"fuelBreakdown"`
}

// Processed returns the number of orders counted by the KPIs.
func (k KPIs) Processed() int { return k.OnTime + k.Late }

// Allocation records the decision taken for a single order.
type Allocation struct {
	OrderID                      string  `json:"order_id"`
	DriverName                   string  `json:"driver_name"`
	EstimatedDeliveryTimeMinutes float64 `json:"estimatedDeliveryTimeMinutes"`
	OnTime                       bool    `json:"onTime"`
	Profit                       float64 `json:"profit"`
}

// Unassigned reports whether the allocation carries the sentinel driver.
func (a Allocation) Unassigned() bool { return a.DriverName == NoDriverAssigned }

// SimulationResult is the persisted output of a run. Allocations only lists
// orders that received a driver.
type SimulationResult struct {
	ID          string          `json:"id"`
	CreatedAt   time.Time       `json:"createdAt"`
	Inputs      SimulationInput `json:"inputs"`
	KPIs        KPIs            `json:"kpis"`
	Allocations []Allocation    `json:"allocations"`
}

// RunOutcome classifies how a simulation attempt ended.
type RunOutcome string

const (
	OutcomeCompleted           RunOutcome = "completed"
	OutcomeInvalidInput        RunOutcome = "invalid_input"
	OutcomeInsufficientDrivers RunOutcome = "insufficient_drivers"
	OutcomeError               RunOutcome = "error"
)

// Valid reports whether o is one of the known outcomes.
func (o RunOutcome) Valid() bool {
	switch o {
	case OutcomeCompleted, OutcomeInvalidInput, OutcomeInsufficientDrivers, OutcomeError:
		return true
	}
	return false
}
